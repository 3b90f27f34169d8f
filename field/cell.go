package field

/*
 * cell.go - 取值单元
 *
 * 每个容器实例为每个被访问过的字段惰性创建一个 Cell，
 * 按三级优先级解析有效值：
 *
 *   显式值 > 实例默认值 > 声明默认值
 *
 * 写入走一致性检查，失败时恢复旧值并返回描述性错误；
 * 三级全空时读取报 ErrUnset，与类型不匹配错误可区分。
 */

import "fmt"

// Cell 持有一个容器实例上某字段的显式值与实例默认值。
// nil 表示对应层级缺失。
type Cell struct {
	field *Field
	value any // 显式值
	def   any // 实例默认值
}

func newCell(f *Field) *Cell {
	return &Cell{field: f}
}

// Field 返回该单元所属的字段声明。
func (c *Cell) Field() *Field { return c.field }

// Value 返回有效值：显式值、实例默认值、声明默认值中的第一个非空者。
// 三级全空时返回 ErrUnset。
func (c *Cell) Value() (any, error) {
	if v := c.resolve(); v != nil {
		return v, nil
	}
	return nil, fmt.Errorf("field %q: %w", c.field.name, ErrUnset)
}

// Set 写入显式值。写入前先经过字段的赋值钩子变换，
// 随后做一致性检查；检查失败时恢复之前的显式值并返回错误。
// 传入 nil 等价于 Clear。
func (c *Cell) Set(v any) error {
	if v != nil && c.field.coerce != nil {
		coerced, err := c.field.coerce(v)
		if err != nil {
			return fmt.Errorf("field %q: %w", c.field.name, err)
		}
		v = coerced
	}

	prev := c.value
	c.value = v
	if err := c.validate(); err != nil {
		c.value = prev
		return err
	}
	return nil
}

// Clear 清除显式值，取值回退到实例默认值乃至声明默认值。
// 清除后整条解析链为空时返回错误。
func (c *Cell) Clear() error {
	prev := c.value
	c.value = nil
	if err := c.validate(); err != nil {
		c.value = prev
		return err
	}
	return nil
}

// Default 返回实例默认值，未设置时回退到声明默认值。
func (c *Cell) Default() any {
	if c.def != nil {
		return c.def
	}
	return c.field.def
}

// SetDefault 写入实例默认值，同样经过赋值钩子与一致性检查。
func (c *Cell) SetDefault(v any) error {
	if v != nil && c.field.coerce != nil {
		coerced, err := c.field.coerce(v)
		if err != nil {
			return fmt.Errorf("field %q: %w", c.field.name, err)
		}
		v = coerced
	}

	prev := c.def
	c.def = v
	if err := c.validate(); err != nil {
		c.def = prev
		return err
	}
	return nil
}

// ClearDefault 清除实例默认值，取值回退到声明默认值。
func (c *Cell) ClearDefault() error {
	prev := c.def
	c.def = nil
	if err := c.validate(); err != nil {
		c.def = prev
		return err
	}
	return nil
}

// Fallback 返回声明默认值，即解析链的最后一级。
func (c *Cell) Fallback() any {
	return c.field.def
}

func (c *Cell) clone() *Cell {
	return &Cell{field: c.field, value: c.value, def: c.def}
}

func (c *Cell) resolve() any {
	if c.value != nil {
		return c.value
	}
	if c.def != nil {
		return c.def
	}
	return c.field.def
}

// validate 检查当前有效值：为空时报 ErrUnset，
// 不满足种类约束时报 ErrType。
func (c *Cell) validate() error {
	v := c.resolve()
	if v == nil {
		return fmt.Errorf("field %q: %w", c.field.name, ErrUnset)
	}
	if !c.field.kind.Accepts(v) {
		return fmt.Errorf("field %q: %w: value %v is not of kind %s", c.field.name, ErrType, v, c.field.kind)
	}
	return nil
}
