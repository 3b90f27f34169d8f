package proc

/*
 * processor.go - 计算单元
 *
 * 核心组件：
 *   - Processor: 计算单元接口，只能通过内嵌 Base 实现
 *   - Base: 通用字段（is_output / is_checkpoint / io）与检查点数据
 *   - Invoke: 缓存感知的执行入口，读命中即短路，未命中计算后回写
 *   - Identifiers: 识别元数据，内容寻址后端用它区分不同配置的单元
 *
 * 执行协议：
 *   1. 向后端读取 (输入, 识别元数据) 对应的缓存，命中直接返回
 *   2. 读到 ErrNoSource 时调用 Function 计算
 *   3. 计算结果回写后端，ErrNoTarget 被静默吞掉
 *   4. 标记 is_checkpoint 的单元把本次结果留存为检查点数据
 */

import (
	"errors"
	"fmt"
	"reflect"
	"runtime/debug"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"relay/field"
	"relay/internal/generic"
	"relay/internal/safe"
	"relay/store"
)

var baseSchema = field.NewSchema().
	Field("is_output", field.Bool, field.Default(false)).
	Field("is_checkpoint", field.Bool, field.Default(false)).
	Field("io", field.TypeOf[store.Storable](), field.Default(store.NoStorage{}))

// BaseSchema 返回所有计算单元共有的声明集合，
// 具体单元以它为父 Schema 叠加自身字段。
func BaseSchema() *field.Schema { return baseSchema }

// Processor 是一个计算单元。实现方式只有一种：内嵌 Base 并提供 Function。
type Processor interface {
	// Function 执行单元的实际计算。
	Function(data any) (any, error)

	base() *Base
}

// Base 是计算单元的公共基座，内嵌进每个具体单元类型。
type Base struct {
	field.Container

	// CheckpointData 保存标记 is_checkpoint 的单元最近一次的执行结果。
	CheckpointData any

	self Processor
}

func (b *Base) base() *Base { return b }

// IsOutput 报告该单元的结果是否计入管线输出。
func (b *Base) IsOutput() bool { return b.boolField("is_output") }

// IsCheckpoint 报告该单元是否留存检查点数据。
func (b *Base) IsCheckpoint() bool { return b.boolField("is_checkpoint") }

// Storage 返回该单元的缓存后端，未配置时为 NoStorage。
func (b *Base) Storage() store.Storable {
	v, err := b.Get("io")
	if err != nil {
		return store.NoStorage{}
	}
	return v.(store.Storable)
}

func (b *Base) boolField(name string) bool {
	v, err := b.Get(name)
	if err != nil {
		return false
	}
	return v.(bool)
}

// Init 把参数接线到单元的字段并记录具体类型。
// 具体单元在自己的构造函数中调用。
func Init(p Processor, schema *field.Schema, kw field.Args, positional ...any) error {
	b := p.base()
	b.self = p
	return b.Container.Init(schema, kw, positional...)
}

// IsOutput 报告单元结果是否计入管线输出。
func IsOutput(p Processor) bool { return p.base().IsOutput() }

// IsCheckpoint 报告单元是否留存检查点数据。
func IsCheckpoint(p Processor) bool { return p.base().IsCheckpoint() }

// Checkpoint 返回单元留存的检查点数据，尚未执行过时为 nil。
func Checkpoint(p Processor) any { return p.base().CheckpointData }

// Invoke 按执行协议运行单元：先查缓存，未命中再计算并回写。
func Invoke(p Processor, data any) (any, error) {
	b := p.base()
	io := b.Storage()
	meta, err := Identifiers(p)
	if err != nil {
		return nil, err
	}

	out, err := io.Read(data, meta)
	switch {
	case err == nil:
		// 缓存命中
	case errors.Is(err, store.ErrNoSource):
		out, err = call(p, data)
		if err != nil {
			return nil, err
		}
		if werr := io.Write(out, data, meta); werr != nil && !errors.Is(werr, store.ErrNoTarget) {
			return nil, werr
		}
	default:
		return nil, err
	}

	if b.IsCheckpoint() {
		b.CheckpointData = out
	}
	return out, nil
}

// call 执行 Function，把计算中的 panic 转换为错误返回。
func call(p Processor, data any) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = safe.NewPanicErr(generic.TypeName(p), r, debug.Stack())
		}
	}()
	return p.Function(data)
}

// fieldDecl 覆盖普通字段与内嵌 Field 的派生字段（如管线的任务字段）。
type fieldDecl interface {
	field.Fielder
	Identifier() bool
}

// Identifiers 返回单元的识别元数据：带包路径的完整类型名加上所有
// 标记 identifier 的字段的有效值，按声明顺序排列。
// 未设置的字段值为 nil。
func Identifiers(p Processor) (*orderedmap.OrderedMap[string, any], error) {
	b := p.base()
	meta := orderedmap.New[string, any]()
	meta.Set("name", generic.QualifiedTypeName(p))

	decls := field.CollectAs[fieldDecl](&b.Container)
	for pair := decls.Oldest(); pair != nil; pair = pair.Next() {
		if !pair.Value.Identifier() {
			continue
		}
		v, err := b.Get(pair.Key)
		if err != nil {
			if errors.Is(err, field.ErrUnset) {
				meta.Set(pair.Key, nil)
				continue
			}
			return nil, err
		}
		// 函数值以符号全名参与元数据，保证可序列化且跨运行稳定
		if v != nil && reflect.ValueOf(v).Kind() == reflect.Func {
			v = generic.FuncName(v)
		}
		meta.Set(pair.Key, v)
	}
	return meta, nil
}

// ParamValues 返回单元全部字段的有效值，按声明顺序排列，
// 未设置的字段值为 nil。
func ParamValues(p Processor) *orderedmap.OrderedMap[string, any] {
	return field.ValuesAs[field.Fielder](&p.base().Container)
}

// Copy 构造同类型的新单元，带上原单元的有效字段值与检查点数据。
func Copy(p Processor) (Processor, error) {
	b := p.base()
	typ := reflect.TypeOf(p)
	if typ.Kind() != reflect.Pointer {
		return nil, fmt.Errorf("cannot copy processor of non-pointer type %T", p)
	}
	clone, ok := reflect.New(typ.Elem()).Interface().(Processor)
	if !ok {
		return nil, fmt.Errorf("cannot copy processor of type %T", p)
	}

	kw := field.Args{}
	for pair := ParamValues(p).Oldest(); pair != nil; pair = pair.Next() {
		kw[pair.Key] = pair.Value
	}
	if err := Init(clone, b.Schema(), kw); err != nil {
		return nil, err
	}
	clone.base().CheckpointData = b.CheckpointData
	return clone, nil
}
