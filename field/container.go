package field

/*
 * container.go - 字段容器
 *
 * 核心组件：
 *   - Container: 可配置类型的基座，构造时把参数接线到声明的字段
 *   - Args: 命名参数表，键为字段名
 *   - CollectAs/ValuesAs: 按声明种类收集声明或当前有效值
 *
 * 构造协议：
 *   1. 位置参数按声明顺序配对到标记 positional 的字段
 *   2. 同名字段同时出现在位置参数与命名参数中为错误
 *   3. 命名参数中不属于任何声明字段的键为错误
 *   4. 其余参数经字段的赋值路径写入，走类型一致性检查
 */

import (
	"fmt"
	"sort"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"relay/tracker"
)

// Args 是按字段名索引的命名参数表。值为 nil 的条目视同未提供。
type Args map[string]any

// Container 为内嵌它的类型管理字段取值。
// 每个实例持有独立的取值单元表，单元在字段首次被访问时惰性创建。
type Container struct {
	schema *Schema
	cells  map[string]*Cell
}

// Init 按构造协议把位置参数与命名参数接线到声明的字段。
// 内嵌 Container 的类型在自己的构造函数中调用。
func (c *Container) Init(schema *Schema, kw Args, positional ...any) error {
	c.schema = schema
	c.cells = make(map[string]*Cell)

	// 位置参数按声明顺序配对到 positional 字段
	posNames := make([]string, 0)
	for _, name := range schema.reg.Names() {
		if f := schema.fieldOf(name); f != nil && f.positional {
			posNames = append(posNames, name)
		}
	}
	if len(positional) > len(posNames) {
		return fmt.Errorf("expected at most %d positional arguments, got %d", len(posNames), len(positional))
	}

	assigned := orderedmap.New[string, any]()
	for i, v := range positional {
		name := posNames[i]
		if _, dup := kw[name]; dup {
			return fmt.Errorf("argument %q was specified as both positional and a keyword argument", name)
		}
		assigned.Set(name, v)
	}

	// 未知命名参数立即拒绝；排序保证多个未知键时报错稳定
	names := make([]string, 0, len(kw))
	for name := range kw {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if c.schema.fieldOf(name) == nil {
			return fmt.Errorf("%w: %q is not a declared field", ErrUnknown, name)
		}
		assigned.Set(name, kw[name])
	}

	for pair := assigned.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value == nil {
			continue
		}
		if err := c.Set(pair.Key, pair.Value); err != nil {
			return err
		}
	}
	return nil
}

// Schema 返回该容器的声明集合。
func (c *Container) Schema() *Schema { return c.schema }

// Cell 返回名称对应的取值单元，首次访问时创建。
func (c *Container) Cell(name string) (*Cell, error) {
	if cell, ok := c.cells[name]; ok {
		return cell, nil
	}
	f := c.schema.fieldOf(name)
	if f == nil {
		return nil, fmt.Errorf("%w: %q is not a declared field", ErrUnknown, name)
	}
	cell := newCell(f)
	c.cells[name] = cell
	return cell, nil
}

// Get 返回字段的有效值。
func (c *Container) Get(name string) (any, error) {
	cell, err := c.Cell(name)
	if err != nil {
		return nil, err
	}
	return cell.Value()
}

// Set 写入字段的显式值。
func (c *Container) Set(name string, v any) error {
	cell, err := c.Cell(name)
	if err != nil {
		return err
	}
	return cell.Set(v)
}

// Del 清除字段的显式值，取值回退到默认层级。
func (c *Container) Del(name string) error {
	cell, err := c.Cell(name)
	if err != nil {
		return err
	}
	return cell.Clear()
}

// DefaultOf 返回字段的实例默认值（缺失时为声明默认值）。
func (c *Container) DefaultOf(name string) (any, error) {
	cell, err := c.Cell(name)
	if err != nil {
		return nil, err
	}
	return cell.Default(), nil
}

// SetDefault 写入字段的实例默认值。
func (c *Container) SetDefault(name string, v any) error {
	cell, err := c.Cell(name)
	if err != nil {
		return err
	}
	return cell.SetDefault(v)
}

// UpdateDefaults 批量写入实例默认值。
func (c *Container) UpdateDefaults(kw Args) error {
	names := make([]string, 0, len(kw))
	for name := range kw {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := c.SetDefault(name, kw[name]); err != nil {
			return err
		}
	}
	return nil
}

// ResetDefaults 清除所有字段的实例默认值。
func (c *Container) ResetDefaults() error {
	for _, name := range c.schema.reg.Names() {
		if c.schema.fieldOf(name) == nil {
			continue
		}
		cell, err := c.Cell(name)
		if err != nil {
			return err
		}
		if err := cell.ClearDefault(); err != nil {
			return err
		}
	}
	return nil
}

// Fork 返回容器的浅拷贝，并把 overrides 施加在命名字段的默认层级，
// 显式值保持原样。覆盖名不是声明字段时返回错误。
func (c *Container) Fork(overrides Args) (*Container, error) {
	forked := &Container{
		schema: c.schema,
		cells:  make(map[string]*Cell, len(c.cells)),
	}
	for name, cell := range c.cells {
		forked.cells[name] = cell.clone()
	}

	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if forked.schema.fieldOf(name) == nil {
			return nil, fmt.Errorf("%w: %q is an invalid argument", ErrUnknown, name)
		}
		if err := forked.SetDefault(name, overrides[name]); err != nil {
			return nil, err
		}
	}
	return forked, nil
}

// CollectAs 按声明顺序返回容器 Schema 中类型断言为 T 成功的声明。
func CollectAs[T any](c *Container) *orderedmap.OrderedMap[string, T] {
	return tracker.CollectAs[T](c.schema.reg)
}

// ValuesAs 按声明顺序返回种类 T 的字段的当前有效值。
// 未设置的字段值为 nil，与读取成功的字段并列返回。
func ValuesAs[T Fielder](c *Container) *orderedmap.OrderedMap[string, any] {
	result := orderedmap.New[string, any]()
	decls := tracker.CollectAs[T](c.schema.reg)
	for pair := decls.Oldest(); pair != nil; pair = pair.Next() {
		v, err := c.Get(pair.Key)
		if err != nil {
			result.Set(pair.Key, nil)
			continue
		}
		result.Set(pair.Key, v)
	}
	return result
}
