package store

/*
 * log.go - 追加日志后端
 *
 * 核心组件：
 *   - LogStorage: 单文件 JSON 行追加日志，每行一条 {"key", "data"} 记录
 *
 * 设计特点：
 *   - 写入只追加，同键后写覆盖先写，读取取最后一条
 *   - 首次读取时整文件惰性加载进内存索引，之后的写入同步更新索引
 *   - At 返回绑定到新键的视图，文件句柄与索引共享
 */

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/bytedance/sonic"

	"relay/field"
	"relay/tensor"
)

var logSchema = field.NewSchema().
	Field("key", field.String, field.Default("data"), field.Identifier())

type logRecord struct {
	Key  string          `json:"key"`
	Data json.RawMessage `json:"data"`
}

type logState struct {
	path string
	mode string

	mu      sync.Mutex
	file    *os.File
	entries map[string]json.RawMessage
	loaded  bool
}

// LogStorage 是基于 JSON 行追加日志的键绑定后端。
// 模式 "r" 只读、"w" 截断重写、"a" 追加。
type LogStorage struct {
	field.Container
	state *logState
}

// NewLog 打开路径对应的日志后端。
// kw 可覆盖 "key" 字段，未提供时键为 "data"。
func NewLog(path, mode string, kw field.Args) (*LogStorage, error) {
	s := &LogStorage{state: &logState{path: path, mode: mode}}
	if err := s.Init(logSchema, kw); err != nil {
		return nil, err
	}

	var (
		f   *os.File
		err error
	)
	switch mode {
	case "r":
		f, err = os.Open(path)
	case "w":
		f, err = os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	case "a":
		f, err = os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	default:
		return nil, fmt.Errorf("unknown storage mode %q, expected one of \"r\", \"w\", \"a\"", mode)
	}
	if err != nil {
		return nil, fmt.Errorf("open log storage: %w", err)
	}
	s.state.file = f
	if mode == "w" {
		// 截断后旧索引不再有效
		s.state.entries = make(map[string]json.RawMessage)
		s.state.loaded = true
	}
	return s, nil
}

// Read 返回当前键下最后写入的值，缺失时返回 ErrNoSource。
func (s *LogStorage) Read(dataIn, meta any) (any, error) {
	key, err := s.key()
	if err != nil {
		return nil, err
	}
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	if err := s.state.load(); err != nil {
		return nil, err
	}
	raw, ok := s.state.entries[key]
	if !ok {
		return nil, fmt.Errorf("key %q: %w", key, ErrNoSource)
	}
	return tensor.Decode(raw)
}

// Write 在日志末尾追加一条当前键的记录。只读模式返回 ErrNoTarget。
func (s *LogStorage) Write(dataOut, dataIn, meta any) error {
	if s.state.mode == "r" {
		return fmt.Errorf("storage opened read-only: %w", ErrNoTarget)
	}
	key, err := s.key()
	if err != nil {
		return err
	}
	raw, err := tensor.Encode(dataOut)
	if err != nil {
		return err
	}
	line, err := sonic.Marshal(logRecord{Key: key, Data: raw})
	if err != nil {
		return err
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	if _, err := s.state.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append log record: %w", err)
	}
	if s.state.loaded {
		s.state.entries[key] = raw
	}
	return nil
}

// Exists 报告当前键下是否已有记录。
func (s *LogStorage) Exists(dataIn, meta any) (bool, error) {
	key, err := s.key()
	if err != nil {
		return false, err
	}
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	if err := s.state.load(); err != nil {
		return false, err
	}
	_, ok := s.state.entries[key]
	return ok, nil
}

// Keys 返回日志中出现过的全部键，字典序排列。
func (s *LogStorage) Keys() ([]string, error) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	if err := s.state.load(); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(s.state.entries))
	for k := range s.state.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// At 返回绑定到 key 的视图，底层日志共享。
// 新键写在显式层，压过构造时指定的键。
func (s *LogStorage) At(key string) (Storage, error) {
	forked, err := s.Fork(nil)
	if err != nil {
		return nil, err
	}
	bound := &LogStorage{Container: *forked, state: s.state}
	if err := bound.Set("key", key); err != nil {
		return nil, err
	}
	return bound, nil
}

// Close 关闭日志文件。
func (s *LogStorage) Close() error {
	return s.state.file.Close()
}

func (s *LogStorage) key() (string, error) {
	v, err := s.Get("key")
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// load 把整个日志读入内存索引，只执行一次。调用方持锁。
func (st *logState) load() error {
	if st.loaded {
		return nil
	}
	raw, err := os.ReadFile(st.path)
	if err != nil {
		return fmt.Errorf("load log storage: %w", err)
	}
	st.entries = make(map[string]json.RawMessage)
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var rec logRecord
		if err := sonic.Unmarshal(line, &rec); err != nil {
			return fmt.Errorf("parse log record: %w", err)
		}
		st.entries[rec.Key] = rec.Data
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("load log storage: %w", err)
	}
	st.loaded = true
	return nil
}
