package proc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relay/field"
	"relay/store"
	"relay/tensor"
)

// countingSchema 带一个识别字段和一个普通字段。
var countingSchema = field.NewSchema(baseSchema).
	Field("offset", field.Float, field.Default(1.0), field.Identifier()).
	Field("note", field.String, field.Default("plain"))

// counting 每次实际计算时递增计数器，用来观察缓存是否生效。
type counting struct {
	Base
	calls int
}

func newCounting(kw field.Args) (*counting, error) {
	p := &counting{}
	if err := Init(p, countingSchema, kw); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *counting) Function(data any) (any, error) {
	p.calls++
	v, err := p.Get("offset")
	if err != nil {
		return nil, err
	}
	in := data.(*tensor.Array)
	out := in.Clone()
	raw := out.Data()
	for i := range raw {
		raw[i] += v.(float64)
	}
	return out, nil
}

func TestInvokeWithoutStorage(t *testing.T) {
	p, err := newCounting(nil)
	require.NoError(t, err)

	in := tensor.Vector(1, 2)
	out, err := Invoke(p, in)
	require.NoError(t, err)
	assert.True(t, tensor.Vector(2, 3).Equal(out.(*tensor.Array)))

	_, err = Invoke(p, in)
	require.NoError(t, err)
	assert.Equal(t, 2, p.calls, "未配置后端时每次都重新计算")
}

func TestInvokeCaching(t *testing.T) {
	io, err := store.NewTree(t.TempDir(), "a", nil)
	require.NoError(t, err)

	p, err := newCounting(field.Args{"io": io})
	require.NoError(t, err)

	in := tensor.Vector(1, 2)
	first, err := Invoke(p, in)
	require.NoError(t, err)
	second, err := Invoke(p, in)
	require.NoError(t, err)

	assert.Equal(t, 1, p.calls, "第二次调用命中缓存")
	assert.True(t, first.(*tensor.Array).Equal(second.(*tensor.Array)))

	t.Run("不同输入重新计算", func(t *testing.T) {
		_, err := Invoke(p, tensor.Vector(5, 6))
		require.NoError(t, err)
		assert.Equal(t, 2, p.calls)
	})

	t.Run("识别字段不同时不共享缓存", func(t *testing.T) {
		other, err := newCounting(field.Args{"io": io, "offset": 2.0})
		require.NoError(t, err)
		out, err := Invoke(other, in)
		require.NoError(t, err)
		assert.True(t, tensor.Vector(3, 4).Equal(out.(*tensor.Array)))
		assert.Equal(t, 1, other.calls)
	})

	t.Run("非识别字段不同时共享缓存", func(t *testing.T) {
		alias, err := newCounting(field.Args{"io": io, "note": "changed"})
		require.NoError(t, err)
		_, err = Invoke(alias, in)
		require.NoError(t, err)
		assert.Equal(t, 0, alias.calls, "配置等价的单元直接命中")
	})

	t.Run("跨实例命中同一条目", func(t *testing.T) {
		twin, err := newCounting(field.Args{"io": io})
		require.NoError(t, err)
		out, err := Invoke(twin, in)
		require.NoError(t, err)
		assert.Equal(t, 0, twin.calls)
		assert.True(t, first.(*tensor.Array).Equal(out.(*tensor.Array)))
	})
}

func TestInvokeCheckpoint(t *testing.T) {
	p, err := newCounting(field.Args{"is_checkpoint": true})
	require.NoError(t, err)
	assert.Nil(t, Checkpoint(p))

	out, err := Invoke(p, tensor.Vector(1))
	require.NoError(t, err)
	assert.Equal(t, out, Checkpoint(p))

	t.Run("未标记的单元不留存", func(t *testing.T) {
		q, err := newCounting(nil)
		require.NoError(t, err)
		_, err = Invoke(q, tensor.Vector(1))
		require.NoError(t, err)
		assert.Nil(t, Checkpoint(q))
	})
}

func TestInvokePanicRecovery(t *testing.T) {
	p, err := NewFunc(nil, func(data any) any {
		panic("deliberate")
	})
	require.NoError(t, err)

	_, err = Invoke(p, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deliberate")
	assert.Contains(t, err.Error(), "FuncProcessor")
}

func TestIdentifiers(t *testing.T) {
	p, err := newCounting(field.Args{"offset": 3.0})
	require.NoError(t, err)

	meta, err := Identifiers(p)
	require.NoError(t, err)

	first := meta.Oldest()
	assert.Equal(t, "name", first.Key, "识别元数据以类型名开头")
	assert.Equal(t, "relay/proc.counting", first.Value,
		"类型名带包路径，不同包的同名单元不会共享缓存条目")

	offset, ok := meta.Get("offset")
	assert.True(t, ok)
	assert.Equal(t, 3.0, offset)

	_, ok = meta.Get("note")
	assert.False(t, ok, "未标记 identifier 的字段不参与")
	_, ok = meta.Get("is_output")
	assert.False(t, ok)
}

func TestCopy(t *testing.T) {
	p, err := newCounting(field.Args{"offset": 3.0, "is_output": true})
	require.NoError(t, err)
	p.CheckpointData = "kept"

	clone, err := Copy(p)
	require.NoError(t, err)

	c, ok := clone.(*counting)
	require.True(t, ok)
	v, err := c.Get("offset")
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)
	assert.True(t, c.IsOutput())
	assert.Equal(t, "kept", Checkpoint(clone))

	t.Run("副本与原件取值独立", func(t *testing.T) {
		require.NoError(t, c.Set("offset", 9.0))
		orig, err := p.Get("offset")
		require.NoError(t, err)
		assert.Equal(t, 3.0, orig)
	})
}

func TestBaseFieldDefaults(t *testing.T) {
	p, err := newCounting(nil)
	require.NoError(t, err)
	assert.False(t, p.IsOutput())
	assert.False(t, p.IsCheckpoint())
	assert.IsType(t, store.NoStorage{}, p.Storage())

	t.Run("未知构造参数被拒绝", func(t *testing.T) {
		_, err := newCounting(field.Args{"bogus": 1})
		assert.ErrorIs(t, err, field.ErrUnknown)
	})
}
