package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relay/field"
	"relay/proc"
	"relay/store"
	"relay/tensor"
)

func addOne(data any) any { return data.(int) + 1 }
func double(data any) any { return data.(int) * 2 }
func subOne(data any) any { return data.(int) - 1 }

func chainSchema(overrides map[string]field.Args) *field.Schema {
	ov := func(name string) field.Args { return overrides[name] }
	return field.NewSchema(proc.BaseSchema()).
		Declare("add", NewTask(addOne, ov("add"))).
		Declare("double", NewTask(double, ov("double"))).
		Declare("sub", NewTask(subOne, ov("sub")))
}

func TestPipelineAggregation(t *testing.T) {
	t.Run("无输出标记时返回最后一步", func(t *testing.T) {
		p, err := New(chainSchema(nil), nil)
		require.NoError(t, err)
		out, err := proc.Invoke(p, 5)
		require.NoError(t, err)
		assert.Equal(t, 11, out)
	})

	t.Run("恰一个标记时直接返回该结果", func(t *testing.T) {
		p, err := New(chainSchema(map[string]field.Args{
			"double": {"is_output": true},
		}), nil)
		require.NoError(t, err)
		out, err := proc.Invoke(p, 5)
		require.NoError(t, err)
		assert.Equal(t, 12, out)
	})

	t.Run("多个标记时返回元组", func(t *testing.T) {
		p, err := New(chainSchema(map[string]field.Args{
			"add": {"is_output": true},
			"sub": {"is_output": true},
		}), nil)
		require.NoError(t, err)
		out, err := proc.Invoke(p, 5)
		require.NoError(t, err)
		assert.Equal(t, tensor.Tuple{6, 11}, out)
	})
}

func TestPipelineTaskOverride(t *testing.T) {
	schema := chainSchema(nil)

	t.Run("构造参数按任务名替换步骤", func(t *testing.T) {
		p, err := New(schema, field.Args{
			"double": func(data any) any { return data.(int) * 10 },
		})
		require.NoError(t, err)
		out, err := proc.Invoke(p, 5)
		require.NoError(t, err)
		assert.Equal(t, 59, out)
	})

	t.Run("替换值可以是现成的单元", func(t *testing.T) {
		repl, err := proc.NewFunc(nil, func(data any) any { return 0 })
		require.NoError(t, err)
		p, err := New(schema, field.Args{"sub": repl})
		require.NoError(t, err)
		out, err := proc.Invoke(p, 5)
		require.NoError(t, err)
		assert.Equal(t, 0, out)
	})

	t.Run("不可调用的替换值报错", func(t *testing.T) {
		_, err := New(schema, field.Args{"double": "nope"})
		assert.ErrorContains(t, err, "cannot be used as a processor")
	})
}

func TestTaskDefaultsToIdentity(t *testing.T) {
	schema := field.NewSchema(proc.BaseSchema()).
		Declare("noop", NewTask(nil, nil)).
		Declare("add", NewTask(addOne, nil))

	p, err := New(schema, nil)
	require.NoError(t, err)

	out, err := proc.Invoke(p, 5)
	require.NoError(t, err)
	assert.Equal(t, 6, out, "未指定默认单元的任务原样传递输入")
}

func TestPipelineProcessors(t *testing.T) {
	p, err := New(chainSchema(nil), nil)
	require.NoError(t, err)

	procs, err := p.Processors()
	require.NoError(t, err)

	names := make([]string, 0, procs.Len())
	for pair := procs.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	assert.Equal(t, []string{"add", "double", "sub"}, names, "步骤按声明顺序排列")
}

func TestPipelineCheckpoint(t *testing.T) {
	t.Run("无检查点时报错", func(t *testing.T) {
		p, err := New(chainSchema(nil), nil)
		require.NoError(t, err)
		_, err = p.CheckpointProcessors()
		assert.ErrorIs(t, err, ErrNoCheckpoint)
		_, err = p.FromCheckpoint()
		assert.ErrorIs(t, err, ErrNoCheckpoint)
	})

	t.Run("取最靠后的检查点", func(t *testing.T) {
		p, err := New(chainSchema(map[string]field.Args{
			"add":    {"is_checkpoint": true},
			"double": {"is_checkpoint": true},
		}), nil)
		require.NoError(t, err)

		procs, err := p.CheckpointProcessors()
		require.NoError(t, err)
		assert.Equal(t, "double", procs.Oldest().Key)
		assert.Equal(t, 2, procs.Len())
	})

	t.Run("从检查点继续得到相同结果", func(t *testing.T) {
		p, err := New(chainSchema(map[string]field.Args{
			"double": {"is_checkpoint": true},
		}), nil)
		require.NoError(t, err)

		full, err := proc.Invoke(p, 5)
		require.NoError(t, err)

		resumed, err := p.FromCheckpoint()
		require.NoError(t, err)
		assert.Equal(t, full, resumed)
	})

	t.Run("检查点尚无数据时报错", func(t *testing.T) {
		p, err := New(chainSchema(map[string]field.Args{
			"double": {"is_checkpoint": true},
		}), nil)
		require.NoError(t, err)
		_, err = p.FromCheckpoint()
		assert.ErrorContains(t, err, "run the full pipeline first")
	})
}

func TestPipelineNesting(t *testing.T) {
	inner, err := New(chainSchema(nil), nil)
	require.NoError(t, err)

	outer, err := New(field.NewSchema(proc.BaseSchema()).
		Declare("chain", NewTask(nil, nil)).
		Declare("negate", NewTask(func(data any) any { return -data.(int) }, nil)),
		field.Args{"chain": inner})
	require.NoError(t, err)

	out, err := proc.Invoke(outer, 5)
	require.NoError(t, err)
	assert.Equal(t, -11, out, "管线可以作为其他管线的步骤")
}

func TestPipelineStepCaching(t *testing.T) {
	io, err := store.NewTree(t.TempDir(), "a", nil)
	require.NoError(t, err)

	calls := 0
	counted := func(data any) any {
		calls++
		return data.(int) + 1
	}
	schema := field.NewSchema(proc.BaseSchema()).
		Declare("count", NewTask(counted, field.Args{"io": io})).
		Declare("double", NewTask(double, nil))

	p, err := New(schema, nil)
	require.NoError(t, err)

	out, err := proc.Invoke(p, 5)
	require.NoError(t, err)
	assert.Equal(t, 12, out)

	out, err = proc.Invoke(p, 5)
	require.NoError(t, err)
	assert.Equal(t, 12, out)
	assert.Equal(t, 1, calls, "配置后端的步骤第二次命中缓存")
}
