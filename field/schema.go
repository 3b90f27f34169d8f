package field

import "relay/tracker"

// Schema 是一个容器类型的声明集合，类型定义期构建一次，
// 之后只读。子类型的 Schema 以父 Schema 为底本复制，
// 再叠加自身声明，父声明的相对顺序保持不变。
type Schema struct {
	reg *tracker.Registry
}

// NewSchema 创建 Schema，父 Schema 按给定顺序合并。
func NewSchema(parents ...*Schema) *Schema {
	regs := make([]*tracker.Registry, 0, len(parents))
	for _, p := range parents {
		if p != nil {
			regs = append(regs, p.reg)
		}
	}
	return &Schema{reg: tracker.New(regs...)}
}

// Declare 记录一条声明并返回 Schema 本身，便于链式构建。
// 声明值实现 Fielder 时自动记下声明名称；其他值仍被注册表跟踪，
// 只是不作为字段参与取值。
func (s *Schema) Declare(name string, value any) *Schema {
	if fd, ok := value.(Fielder); ok {
		fd.spec().name = name
	}
	s.reg.Set(name, value)
	return s
}

// Field 声明一条普通字段，等价于 Declare(name, MustNew(kind, opts...))。
func (s *Schema) Field(name string, kind Kind, opts ...Option) *Schema {
	return s.Declare(name, MustNew(kind, opts...))
}

// Registry 返回底层声明注册表。
func (s *Schema) Registry() *tracker.Registry {
	return s.reg
}

// fieldOf 返回名称对应的字段声明，不存在或不是字段时返回 nil。
func (s *Schema) fieldOf(name string) *Field {
	v, ok := s.reg.Get(name)
	if !ok {
		return nil
	}
	fd, ok := v.(Fielder)
	if !ok {
		return nil
	}
	return fd.spec()
}
