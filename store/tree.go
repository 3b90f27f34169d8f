package store

/*
 * tree.go - 目录树后端
 *
 * 核心组件：
 *   - TreeStorage: 以文件系统目录为载体的层级后端
 *
 * 布局约定（每个条目一个目录）：
 *   <root>/<key>/data.json          标量或数组负载
 *   <root>/<key>/data/000.json ...  元组负载，按三位序号展开为子文件，
 *                                   嵌套元组递归展开为同构子目录
 *   <root>/<key>/meta.json          写入时附带的识别元数据
 *   <root>/<key>/input.json         输入内容摘要
 *   <root>/<key>/output.json        输出内容摘要
 *
 * 设计特点：
 *   - 键未绑定时进入内容寻址模式：缓存键为 (输入, 元数据) 的摘要，
 *     相同输入与配置自动命中同一条目
 *   - 键可含 "/"，对应嵌套目录分组
 *   - At 返回绑定到指定键的视图，根目录共享
 */

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bytedance/sonic"

	"relay/field"
	"relay/tensor"
)

var treeSchema = field.NewSchema().
	Field("key", field.String, field.Default(""), field.Identifier())

type digestRecord struct {
	Hash string `json:"hash"`
}

// TreeStorage 是基于目录树的存储后端。
// 模式 "r" 只读、"w" 清空重建、"a" 追加。
type TreeStorage struct {
	field.Container

	root   string
	mode   string
	hasher Hasher
}

// NewTree 打开根目录对应的树后端。
// kw 可预先绑定 "key" 字段，留空时按输入内容寻址。
func NewTree(root, mode string, kw field.Args) (*TreeStorage, error) {
	s := &TreeStorage{root: root, mode: mode}
	if err := s.Init(treeSchema, kw); err != nil {
		return nil, err
	}

	switch mode {
	case "r":
		if _, err := os.Stat(root); err != nil {
			return nil, fmt.Errorf("open tree storage: %w", err)
		}
	case "w":
		if err := os.RemoveAll(root); err != nil {
			return nil, fmt.Errorf("reset tree storage: %w", err)
		}
		fallthrough
	case "a":
		if err := os.MkdirAll(root, 0o755); err != nil {
			return nil, fmt.Errorf("open tree storage: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown storage mode %q, expected one of \"r\", \"w\", \"a\"", mode)
	}
	return s, nil
}

// Read 返回条目负载，条目缺失时返回 ErrNoSource。
func (s *TreeStorage) Read(dataIn, meta any) (any, error) {
	key, err := s.resolveKey(dataIn, meta)
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(s.root, filepath.FromSlash(key))

	v, err := readValue(dir, "data")
	if err != nil {
		if errors.Is(err, ErrNoSource) {
			return nil, fmt.Errorf("key %q: %w", key, ErrNoSource)
		}
		return nil, fmt.Errorf("read tree entry %q: %w", key, err)
	}
	return v, nil
}

// readValue 读取 dir 下名为 name 的负载：叶子是 name.json 文件，
// 元组是 name 目录，子项按序号名递归读取。
func readValue(dir, name string) (any, error) {
	if raw, err := os.ReadFile(filepath.Join(dir, name+".json")); err == nil {
		return tensor.Decode(raw)
	}
	sub := filepath.Join(dir, name)
	info, err := os.Stat(sub)
	if err != nil || !info.IsDir() {
		return nil, ErrNoSource
	}

	entries, err := os.ReadDir(sub)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	out := make(tensor.Tuple, 0, len(names))
	for _, n := range names {
		v, err := readValue(sub, strings.TrimSuffix(n, ".json"))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Write 写入条目负载及其元数据与输入输出摘要。
// 只读模式返回 ErrNoTarget。
func (s *TreeStorage) Write(dataOut, dataIn, meta any) error {
	if s.mode == "r" {
		return fmt.Errorf("storage opened read-only: %w", ErrNoTarget)
	}
	key, err := s.resolveKey(dataIn, meta)
	if err != nil {
		return err
	}
	dir := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("write tree entry %q: %w", key, err)
	}

	if err := s.writePayload(dir, key, dataOut); err != nil {
		return err
	}
	if meta != nil {
		raw, err := sonic.Marshal(meta)
		if err != nil {
			return fmt.Errorf("encode tree metadata: %w", err)
		}
		if err := os.WriteFile(filepath.Join(dir, "meta.json"), raw, 0o644); err != nil {
			return fmt.Errorf("write tree entry %q: %w", key, err)
		}
	}
	if dataIn != nil {
		if err := s.writeDigest(dir, "input.json", dataIn); err != nil {
			return err
		}
	}
	return s.writeDigest(dir, "output.json", dataOut)
}

// Exists 报告条目是否存在。
func (s *TreeStorage) Exists(dataIn, meta any) (bool, error) {
	key, err := s.resolveKey(dataIn, meta)
	if err != nil {
		return false, err
	}
	dir := filepath.Join(s.root, filepath.FromSlash(key))
	if _, err := os.Stat(filepath.Join(dir, "data.json")); err == nil {
		return true, nil
	}
	if info, err := os.Stat(filepath.Join(dir, "data")); err == nil && info.IsDir() {
		return true, nil
	}
	return false, nil
}

// Keys 返回根目录下的全部顶层条目名，字典序排列。
func (s *TreeStorage) Keys() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("list tree storage: %w", err)
	}
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			keys = append(keys, e.Name())
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// At 返回绑定到 key 的视图，根目录共享。
// 新键写在显式层，压过构造时指定的键。
func (s *TreeStorage) At(key string) (Storage, error) {
	forked, err := s.Fork(nil)
	if err != nil {
		return nil, err
	}
	bound := &TreeStorage{Container: *forked, root: s.root, mode: s.mode, hasher: s.hasher}
	if err := bound.Set("key", key); err != nil {
		return nil, err
	}
	return bound, nil
}

// Close 对目录树后端无事可做。
func (s *TreeStorage) Close() error { return nil }

// resolveKey 返回绑定键，未绑定时按 (输入, 元数据) 计算内容摘要。
func (s *TreeStorage) resolveKey(dataIn, meta any) (string, error) {
	v, err := s.Get("key")
	if err != nil {
		return "", err
	}
	if key := v.(string); key != "" {
		return key, nil
	}
	if dataIn == nil && meta == nil {
		return "", fmt.Errorf("%w: storage has no bound key and no input to derive one from", ErrNoSource)
	}
	return s.hasher.Hash(tensor.Tuple{dataIn, meta})
}

func (s *TreeStorage) writePayload(dir, key string, dataOut any) error {
	// 先清掉旧负载的两种形态，避免类型变化后残留
	if err := os.RemoveAll(filepath.Join(dir, "data.json")); err != nil {
		return fmt.Errorf("write tree entry %q: %w", key, err)
	}
	if err := os.RemoveAll(filepath.Join(dir, "data")); err != nil {
		return fmt.Errorf("write tree entry %q: %w", key, err)
	}
	if err := writeValue(dir, "data", dataOut); err != nil {
		return fmt.Errorf("write tree entry %q: %w", key, err)
	}
	return nil
}

// writeValue 在 dir 下写出名为 name 的负载：叶子写 name.json，
// 元组建 name 目录并按三位序号递归写出各子项。
func writeValue(dir, name string, v any) error {
	tup, ok := v.(tensor.Tuple)
	if !ok {
		raw, err := tensor.Encode(v)
		if err != nil {
			return err
		}
		return os.WriteFile(filepath.Join(dir, name+".json"), raw, 0o644)
	}

	sub := filepath.Join(dir, name)
	if err := os.MkdirAll(sub, 0o755); err != nil {
		return err
	}
	for i, item := range tup {
		if err := writeValue(sub, fmt.Sprintf("%03d", i), item); err != nil {
			return err
		}
	}
	return nil
}

func (s *TreeStorage) writeDigest(dir, name string, v any) error {
	sum, err := s.hasher.Hash(v)
	if err != nil {
		return err
	}
	raw, err := sonic.Marshal(digestRecord{Hash: sum})
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, name), raw, 0o644); err != nil {
		return fmt.Errorf("write tree digest: %w", err)
	}
	return nil
}
