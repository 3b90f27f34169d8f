package proc

/*
 * function.go - 函数型计算单元
 *
 * 核心组件：
 *   - FuncProcessor: 把普通函数包装成计算单元
 *   - Ensure: 把任意值规整为计算单元的统一入口，
 *     任务字段的赋值钩子走这里
 *
 * 支持的函数形态：
 *   - func(any) (any, error)
 *   - func(any) any
 *   - bind_method 打开时额外接收单元自身作为首参
 */

import (
	"fmt"
	"reflect"

	"relay/field"
)

// Identity 原样返回输入，是函数型单元的默认函数。
func Identity(data any) (any, error) { return data, nil }

var funcSchema = field.NewSchema(baseSchema).
	Field("function", field.FuncKind, field.Default(Identity), field.Positional(), field.Identifier()).
	Field("bind_method", field.Bool, field.Default(false))

// FuncProcessor 用一个函数充当计算单元的 Function。
type FuncProcessor struct {
	Base
}

// NewFunc 构造函数型单元。函数可作为首个位置参数传入。
func NewFunc(kw field.Args, positional ...any) (*FuncProcessor, error) {
	p := &FuncProcessor{}
	if err := Init(p, funcSchema, kw, positional...); err != nil {
		return nil, err
	}
	return p, nil
}

// Function 调用包装的函数。bind_method 打开时函数额外接收单元自身，
// 可借此读取单元上声明的其他字段。
func (p *FuncProcessor) Function(data any) (any, error) {
	v, err := p.Get("function")
	if err != nil {
		return nil, err
	}
	bind, err := p.Get("bind_method")
	if err != nil {
		return nil, err
	}

	if bind.(bool) {
		switch fn := v.(type) {
		case func(Processor, any) (any, error):
			return fn(p.self, data)
		case func(Processor, any) any:
			return fn(p.self, data), nil
		}
		return nil, fmt.Errorf("bound function has unsupported signature %T", v)
	}

	switch fn := v.(type) {
	case func(any) (any, error):
		return fn(data)
	case func(any) any:
		return fn(data), nil
	}
	return nil, fmt.Errorf("function has unsupported signature %T", v)
}

// Ensure 把值规整为计算单元：已是单元的在默认层级施加 overrides，
// 函数被包装成 FuncProcessor。其他值报错。
func Ensure(v any, overrides field.Args) (Processor, error) {
	p, ok := v.(Processor)
	if !ok {
		if v == nil || reflect.ValueOf(v).Kind() != reflect.Func {
			return nil, fmt.Errorf("value of type %T cannot be used as a processor", v)
		}
		fp, err := NewFunc(field.Args{"function": v})
		if err != nil {
			return nil, err
		}
		p = fp
	}
	if len(overrides) > 0 {
		if err := p.base().UpdateDefaults(overrides); err != nil {
			return nil, err
		}
	}
	return p, nil
}
