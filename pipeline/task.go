package pipeline

/*
 * task.go - 任务字段
 *
 * Task 是取值被约束为计算单元的字段：写入任务的值先经 proc.Ensure
 * 规整，普通函数自动包装为函数型单元，已有单元在默认层级施加
 * 任务携带的覆盖参数。管线按任务的声明顺序串联执行。
 */

import (
	"relay/field"
	"relay/proc"
)

// Task 声明管线中的一个执行步骤。
type Task struct {
	*field.Field
}

// NewTask 构造任务字段。def 是步骤的默认单元（单元或函数），
// 缺省时步骤表现为恒等操作。overrides 在写入任务的每个单元的
// 默认层级生效，管线用它为步骤预设 is_output 等行为标志。
func NewTask(def any, overrides field.Args, opts ...field.Option) *Task {
	coerce := func(v any) (any, error) {
		return proc.Ensure(v, overrides)
	}
	if def == nil {
		def = proc.Identity
	}
	all := append([]field.Option{field.CoerceWith(coerce), field.Default(def)}, opts...)
	return &Task{Field: field.MustNew(field.TypeOf[proc.Processor](), all...)}
}
