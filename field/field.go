package field

/*
 * field.go - 字段描述符
 *
 * 核心组件：
 *   - Field: 有类型、可带默认值的字段声明，附着在容器类型的 Schema 上
 *   - Option: 声明期配置（默认值、必填、位置参数、识别标志、赋值钩子）
 *   - Fielder: 可作为字段声明的种类标记接口
 *
 * 设计特点：
 *   - 声明期校验：默认值必须满足种类约束，非法声明立即报错
 *   - 必填字段强制无默认值，读取缺失时延迟报错
 *   - 赋值钩子在写入前对值做变换（如把普通函数包装成计算单元）
 */

import "fmt"

// CoerceFunc 在值写入字段前对其做一次变换。
// 变换失败返回错误，赋值随之失败。
type CoerceFunc func(v any) (any, error)

// Field 是一条字段声明：种类约束、默认值与行为标志。
// 同一声明被其类型的全部实例共享，实例各自的取值存放在 Cell 中。
type Field struct {
	name       string
	kind       Kind
	def        any
	mandatory  bool
	positional bool
	identifier bool
	coerce     CoerceFunc
}

// Option 配置一条字段声明。
type Option func(*Field)

// Default 设置声明级默认值，即取值解析链的最后一级。
func Default(v any) Option {
	return func(f *Field) { f.def = v }
}

// Mandatory 标记字段为必填。必填字段没有声明级默认值，
// 在整条解析链为空时被读取会报错。
func Mandatory() Option {
	return func(f *Field) { f.mandatory = true }
}

// Positional 标记字段可通过位置参数赋值，位置按声明顺序决定。
func Positional() Option {
	return func(f *Field) { f.positional = true }
}

// Identifier 标记字段参与计算单元的识别元数据，
// 配置不同的单元由此产生不同的缓存键。
func Identifier() Option {
	return func(f *Field) { f.identifier = true }
}

// CoerceWith 设置赋值钩子，对写入该字段的值先做变换。
// 声明级默认值同样会经过变换。
func CoerceWith(fn CoerceFunc) Option {
	return func(f *Field) { f.coerce = fn }
}

// New 构造一条字段声明。种类约束无效、默认值变换失败或
// 默认值不满足种类约束时返回错误。必填字段的默认值被强制清空。
func New(kind Kind, opts ...Option) (*Field, error) {
	if !kind.valid() {
		return nil, fmt.Errorf("%w: field kind is empty, declare at least one type", ErrType)
	}

	f := &Field{kind: kind}
	for _, opt := range opts {
		opt(f)
	}

	if f.mandatory {
		f.def = nil
	}
	if f.def != nil && f.coerce != nil {
		coerced, err := f.coerce(f.def)
		if err != nil {
			return nil, fmt.Errorf("coerce default value: %w", err)
		}
		f.def = coerced
	}
	if f.def != nil && !f.kind.Accepts(f.def) {
		return nil, fmt.Errorf("%w: default value %v is not of kind %s", ErrType, f.def, f.kind)
	}
	return f, nil
}

// MustNew 等同 New，声明非法时 panic。
// 字段声明发生在类型定义期（包级 var 初始化），非法声明属于编程错误。
func MustNew(kind Kind, opts ...Option) *Field {
	f, err := New(kind, opts...)
	if err != nil {
		panic(err)
	}
	return f
}

// Name 返回字段在 Schema 中的声明名称。
func (f *Field) Name() string { return f.name }

// Kind 返回字段的种类约束。
func (f *Field) Kind() Kind { return f.kind }

// Default 返回声明级默认值，未设置时为 nil。
func (f *Field) Default() any { return f.def }

// Mandatory 报告字段是否必填。
func (f *Field) Mandatory() bool { return f.mandatory }

// Positional 报告字段是否可由位置参数赋值。
func (f *Field) Positional() bool { return f.positional }

// Identifier 报告字段是否参与识别元数据。
func (f *Field) Identifier() bool { return f.identifier }

func (f *Field) spec() *Field { return f }

// Fielder 标记一个声明值可以作为字段使用。
// 只有内嵌 Field 的类型能实现该接口，外部包通过内嵌扩展字段
// 种类（如把取值约束为计算单元的任务字段）。
type Fielder interface {
	spec() *Field
}
