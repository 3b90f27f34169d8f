package pipeline

/*
 * pipeline.go - 管线
 *
 * 核心组件：
 *   - Base: 管线基座，本身也是计算单元，管线可以嵌套为其他管线的步骤
 *   - New: 用 Schema 即席构造管线，无需定义新类型
 *
 * 执行语义：
 *   - 任务按声明顺序串联，前一步输出是后一步输入
 *   - 标记 is_output 的步骤结果计入管线输出：无标记时输出最后一步
 *     的结果，恰一个标记时直接输出该结果，多个标记时输出元组
 *   - 标记 is_checkpoint 的步骤留存结果，FromCheckpoint 从最近的
 *     检查点继续执行，跳过之前的步骤
 */

import (
	"errors"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"relay/field"
	"relay/proc"
	"relay/tensor"
)

// ErrNoCheckpoint 表示管线中没有任何标记 is_checkpoint 的步骤。
var ErrNoCheckpoint = errors.New("no checkpoint defined")

// Base 是管线的公共基座，内嵌进具体管线类型。
type Base struct {
	proc.Base
}

// Processors 返回管线全部步骤的单元，按声明顺序排列。
func (b *Base) Processors() (*orderedmap.OrderedMap[string, proc.Processor], error) {
	out := orderedmap.New[string, proc.Processor]()
	tasks := field.CollectAs[*Task](&b.Container)
	for pair := tasks.Oldest(); pair != nil; pair = pair.Next() {
		v, err := b.Get(pair.Key)
		if err != nil {
			return nil, fmt.Errorf("task %q: %w", pair.Key, err)
		}
		p, ok := v.(proc.Processor)
		if !ok {
			return nil, fmt.Errorf("task %q holds a value of type %T instead of a processor", pair.Key, v)
		}
		out.Set(pair.Key, p)
	}
	return out, nil
}

// Function 串联执行全部步骤并聚合标记 is_output 的结果。
func (b *Base) Function(data any) (any, error) {
	procs, err := b.Processors()
	if err != nil {
		return nil, err
	}

	outputs := make(tensor.Tuple, 0)
	for pair := procs.Oldest(); pair != nil; pair = pair.Next() {
		data, err = proc.Invoke(pair.Value, data)
		if err != nil {
			return nil, fmt.Errorf("task %q: %w", pair.Key, err)
		}
		if proc.IsOutput(pair.Value) {
			outputs = append(outputs, data)
		}
	}

	switch len(outputs) {
	case 0:
		return data, nil
	case 1:
		return outputs[0], nil
	default:
		return outputs, nil
	}
}

// CheckpointProcessors 返回从最近的检查点步骤（含）到末尾的单元，
// 按执行顺序排列。没有检查点时返回 ErrNoCheckpoint。
func (b *Base) CheckpointProcessors() (*orderedmap.OrderedMap[string, proc.Processor], error) {
	procs, err := b.Processors()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, procs.Len())
	for pair := procs.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	start := -1
	for i := len(names) - 1; i >= 0; i-- {
		p, _ := procs.Get(names[i])
		if proc.IsCheckpoint(p) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, ErrNoCheckpoint
	}

	out := orderedmap.New[string, proc.Processor]()
	for _, name := range names[start:] {
		p, _ := procs.Get(name)
		out.Set(name, p)
	}
	return out, nil
}

// FromCheckpoint 从最近的检查点数据出发执行其后的步骤。
// 检查点步骤尚未执行过（没有留存数据）时报错。
func (b *Base) FromCheckpoint() (any, error) {
	procs, err := b.CheckpointProcessors()
	if err != nil {
		return nil, err
	}

	head := procs.Oldest()
	data := proc.Checkpoint(head.Value)
	if data == nil {
		return nil, fmt.Errorf("checkpoint %q has no data, run the full pipeline first", head.Key)
	}
	for pair := head.Next(); pair != nil; pair = pair.Next() {
		data, err = proc.Invoke(pair.Value, data)
		if err != nil {
			return nil, fmt.Errorf("task %q: %w", pair.Key, err)
		}
	}
	return data, nil
}

// Pipeline 是用 Schema 即席构造的管线。
type Pipeline struct {
	Base
}

// New 用声明好任务的 Schema 构造管线。
func New(schema *field.Schema, kw field.Args) (*Pipeline, error) {
	p := &Pipeline{}
	if err := proc.Init(p, schema, kw); err != nil {
		return nil, err
	}
	return p, nil
}
