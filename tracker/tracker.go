package tracker

/*
 * tracker.go - 声明注册表
 *
 * 核心组件：
 *   - Registry: 按声明顺序记录一个类型的全部公开声明
 *   - Collect/CollectAs: 按声明的具体类型过滤注册表条目
 *
 * 设计特点：
 *   - 顺序稳定：条目按首次声明顺序排列，重复声明原位更新值
 *   - 继承合并：子类型注册表 = 父注册表的副本 + 自身声明逐条叠加
 *   - 注册表一经构建即视为不可变，运行期只读
 */

import (
	"reflect"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Registry 按声明顺序记录一个可配置类型的全部声明条目。
// 每个类型只构建一次，通常在包级 var 初始化时完成。
type Registry struct {
	entries *orderedmap.OrderedMap[string, any]
}

// New 创建新的注册表。父注册表按给定顺序依次复制，
// 形成继承链上所有声明的合并视图：父条目保持原有相对顺序，
// 子声明随后通过 Set 追加。
func New(parents ...*Registry) *Registry {
	r := &Registry{entries: orderedmap.New[string, any]()}
	for _, parent := range parents {
		if parent == nil {
			continue
		}
		for pair := parent.entries.Oldest(); pair != nil; pair = pair.Next() {
			r.entries.Set(pair.Key, pair.Value)
		}
	}
	return r
}

// Set 记录一条声明。同名声明原位更新值，不改变其在顺序中的位置。
func (r *Registry) Set(name string, value any) {
	r.entries.Set(name, value)
}

// Get 按名称取回声明值。
func (r *Registry) Get(name string) (any, bool) {
	return r.entries.Get(name)
}

// Len 返回声明条目数。
func (r *Registry) Len() int {
	return r.entries.Len()
}

// Names 按声明顺序返回全部条目名称。
func (r *Registry) Names() []string {
	names := make([]string, 0, r.entries.Len())
	for pair := r.entries.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// Collect 按声明顺序返回值类型可赋给 kind 的全部条目。
// kind 为接口类型时按接口实现判断。非匹配条目被静默排除，
// 它们仍是普通声明，只是不属于所要求的种类。
func (r *Registry) Collect(kind reflect.Type) *orderedmap.OrderedMap[string, any] {
	result := orderedmap.New[string, any]()
	for pair := r.entries.Oldest(); pair != nil; pair = pair.Next() {
		if matchKind(pair.Value, kind) {
			result.Set(pair.Key, pair.Value)
		}
	}
	return result
}

// CollectAs 是 Collect 的泛型形式，按声明顺序返回类型断言为 T 成功的条目。
func CollectAs[T any](r *Registry) *orderedmap.OrderedMap[string, T] {
	result := orderedmap.New[string, T]()
	for pair := r.entries.Oldest(); pair != nil; pair = pair.Next() {
		if v, ok := pair.Value.(T); ok {
			result.Set(pair.Key, v)
		}
	}
	return result
}

func matchKind(v any, kind reflect.Type) bool {
	if v == nil || kind == nil {
		return false
	}
	t := reflect.TypeOf(v)
	if kind.Kind() == reflect.Interface {
		return t.Implements(kind)
	}
	return t.AssignableTo(kind)
}
