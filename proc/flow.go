package proc

/*
 * flow.go - 流程组合单元
 *
 * 核心组件：
 *   - Shaper: 按下标描述重排元组元素，可复制、可嵌套
 *   - Parallel: 子单元并列执行，元组输入逐个分发，单值广播
 *   - Sequential: 子单元串联执行，前一个的输出是后一个的输入
 *
 * 子单元经 Ensure 规整，普通函数也能直接作为子单元传入；
 * 子单元通过 Invoke 执行，各自的缓存配置独立生效。
 */

import (
	"fmt"

	"relay/field"
	"relay/tensor"
)

var shaperSchema = field.NewSchema(baseSchema).
	Field("indices", field.TypeOf[[][]int](), field.Mandatory(), field.Positional(), field.Identifier())

// Shaper 按下标模式重排输入元组。
// 模式中的每个条目是一组下标：一组恰含一个下标时取出单个元素，
// 多个下标时生成嵌套元组。同一下标可出现多次，元素被复制。
type Shaper struct {
	Base
}

// NewShaper 构造重排单元，下标模式可作为首个位置参数传入。
func NewShaper(kw field.Args, positional ...any) (*Shaper, error) {
	p := &Shaper{}
	if err := Init(p, shaperSchema, kw, positional...); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Shaper) Function(data any) (any, error) {
	v, err := p.Get("indices")
	if err != nil {
		return nil, err
	}
	indices := v.([][]int)

	tup, ok := data.(tensor.Tuple)
	if !ok {
		tup = tensor.Tuple{data}
	}
	out := make(tensor.Tuple, 0, len(indices))
	for _, group := range indices {
		if len(group) == 1 {
			item, err := pick(tup, group[0])
			if err != nil {
				return nil, err
			}
			out = append(out, item)
			continue
		}
		nested := make(tensor.Tuple, 0, len(group))
		for _, idx := range group {
			item, err := pick(tup, idx)
			if err != nil {
				return nil, err
			}
			nested = append(nested, item)
		}
		out = append(out, nested)
	}
	return out, nil
}

func pick(tup tensor.Tuple, idx int) (any, error) {
	if idx < 0 || idx >= len(tup) {
		return nil, fmt.Errorf("shaper index %d out of range for tuple of length %d", idx, len(tup))
	}
	return tup[idx], nil
}

var parallelSchema = field.NewSchema(baseSchema).
	Field("children", field.TypeOf[[]Processor](), field.Mandatory(), field.Positional()).
	Field("broadcast", field.Bool, field.Default(false))

// Parallel 并列执行全部子单元，输出为各子单元结果的元组。
// 元组输入按位分发给子单元，长度不等为错误；
// 非元组输入或打开 broadcast 时同一输入复制给所有子单元。
type Parallel struct {
	Base
}

// NewParallel 构造并列单元，children 中的函数自动包装为函数型单元。
func NewParallel(children []any, kw field.Args) (*Parallel, error) {
	procs, err := ensureAll(children)
	if err != nil {
		return nil, err
	}
	p := &Parallel{}
	if err := Init(p, parallelSchema, kw, procs); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Parallel) Function(data any) (any, error) {
	children, err := p.children()
	if err != nil {
		return nil, err
	}
	bv, err := p.Get("broadcast")
	if err != nil {
		return nil, err
	}
	broadcast := bv.(bool)

	inputs := make(tensor.Tuple, len(children))
	tup, isTuple := data.(tensor.Tuple)
	switch {
	case broadcast || !isTuple:
		for i := range inputs {
			inputs[i] = data
		}
	case len(tup) != len(children):
		return nil, fmt.Errorf("parallel expects %d inputs, got a tuple of length %d", len(children), len(tup))
	default:
		copy(inputs, tup)
	}

	out := make(tensor.Tuple, len(children))
	for i, child := range children {
		res, err := Invoke(child, inputs[i])
		if err != nil {
			return nil, err
		}
		out[i] = res
	}
	return out, nil
}

func (p *Parallel) children() ([]Processor, error) {
	v, err := p.Get("children")
	if err != nil {
		return nil, err
	}
	return v.([]Processor), nil
}

var sequentialSchema = field.NewSchema(baseSchema).
	Field("children", field.TypeOf[[]Processor](), field.Mandatory(), field.Positional())

// Sequential 串联执行全部子单元。
type Sequential struct {
	Base
}

// NewSequential 构造串联单元，children 中的函数自动包装为函数型单元。
func NewSequential(children []any, kw field.Args) (*Sequential, error) {
	procs, err := ensureAll(children)
	if err != nil {
		return nil, err
	}
	p := &Sequential{}
	if err := Init(p, sequentialSchema, kw, procs); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Sequential) Function(data any) (any, error) {
	children, err := p.children()
	if err != nil {
		return nil, err
	}
	for _, child := range children {
		res, err := Invoke(child, data)
		if err != nil {
			return nil, err
		}
		data = res
	}
	return data, nil
}

func (p *Sequential) children() ([]Processor, error) {
	v, err := p.Get("children")
	if err != nil {
		return nil, err
	}
	return v.([]Processor), nil
}

func ensureAll(children []any) ([]Processor, error) {
	procs := make([]Processor, len(children))
	for i, child := range children {
		p, err := Ensure(child, nil)
		if err != nil {
			return nil, fmt.Errorf("child %d: %w", i, err)
		}
		procs[i] = p
	}
	return procs, nil
}
