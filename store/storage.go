package store

/*
 * storage.go - 存储后端接口
 *
 * 核心组件：
 *   - Storable: 计算单元缓存读写的最小接口，读缺失与写不可用
 *     由哨兵错误区分
 *   - Storage: 完整后端，补充存在性检查、键枚举、键绑定与关闭
 *   - NoStorage: 空后端，读写分别报 ErrNoSource/ErrNoTarget，
 *     让计算单元在未配置缓存时自然落到重新计算路径
 *
 * 设计特点：
 *   - 计算单元只依赖 Storable，读到 ErrNoSource 时重算，
 *     写到 ErrNoTarget 时静默放弃
 *   - At 返回绑定到指定键的后端视图，底层数据共享
 */

import "errors"

// ErrNoSource 表示后端中没有可读的数据，调用方应重新计算。
var ErrNoSource = errors.New("no data source available")

// ErrNoTarget 表示后端不可写入，调用方可安全忽略。
var ErrNoTarget = errors.New("no data target available")

// Storable 是计算单元看到的缓存接口。
// dataIn 与 meta 供内容寻址的后端推导缓存键，键绑定的后端忽略它们。
type Storable interface {
	// Read 返回缓存值，缺失时返回 ErrNoSource。
	Read(dataIn, meta any) (any, error)
	// Write 写入缓存值，后端不可写时返回 ErrNoTarget。
	Write(dataOut, dataIn, meta any) error
}

// Storage 是完整的存储后端。
type Storage interface {
	Storable
	// Exists 报告当前键（或给定输入推导出的键）下是否有数据。
	Exists(dataIn, meta any) (bool, error)
	// Keys 返回后端中全部顶层键，字典序排列。
	Keys() ([]string, error)
	// At 返回绑定到 key 的后端视图，与原后端共享底层数据。
	At(key string) (Storage, error)
	// Close 释放后端占用的资源。
	Close() error
}

// NoStorage 是不保存任何数据的后端。
type NoStorage struct{}

func (NoStorage) Read(dataIn, meta any) (any, error)      { return nil, ErrNoSource }
func (NoStorage) Write(dataOut, dataIn, meta any) error   { return ErrNoTarget }
func (NoStorage) Exists(dataIn, meta any) (bool, error)   { return false, nil }
func (NoStorage) Keys() ([]string, error)                 { return nil, nil }
func (n NoStorage) At(key string) (Storage, error)        { return n, nil }
func (NoStorage) Close() error                            { return nil }

// GetKey 读取 key 下的缓存值。
func GetKey(s Storage, key string) (any, error) {
	bound, err := s.At(key)
	if err != nil {
		return nil, err
	}
	return bound.Read(nil, nil)
}

// SetKey 把值写入 key 下。
func SetKey(s Storage, key string, v any) error {
	bound, err := s.At(key)
	if err != nil {
		return err
	}
	return bound.Write(v, nil, nil)
}

// HasKey 报告 key 下是否已有数据。
func HasKey(s Storage, key string) (bool, error) {
	bound, err := s.At(key)
	if err != nil {
		return false, err
	}
	return bound.Exists(nil, nil)
}
