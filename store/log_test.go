package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relay/field"
	"relay/tensor"
)

func TestLogStorageRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.jsonl")

	w, err := NewLog(path, "w", nil)
	require.NoError(t, err)
	require.NoError(t, SetKey(w, "first", tensor.Vector(1, 2, 3)))
	require.NoError(t, SetKey(w, "second", tensor.Tuple{1, "x"}))
	require.NoError(t, w.Close())

	r, err := NewLog(path, "r", nil)
	require.NoError(t, err)
	defer r.Close()

	v, err := GetKey(r, "first")
	require.NoError(t, err)
	assert.True(t, tensor.Vector(1, 2, 3).Equal(v.(*tensor.Array)))

	v, err = GetKey(r, "second")
	require.NoError(t, err)
	assert.Equal(t, tensor.Tuple{1, "x"}, v.(tensor.Tuple))

	keys, err := r.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, keys)

	t.Run("缺失键报 ErrNoSource", func(t *testing.T) {
		_, err := GetKey(r, "missing")
		assert.ErrorIs(t, err, ErrNoSource)
	})

	t.Run("只读模式拒绝写入", func(t *testing.T) {
		err := SetKey(r, "third", 1)
		assert.ErrorIs(t, err, ErrNoTarget)
	})
}

func TestLogStorageAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.jsonl")

	w, err := NewLog(path, "w", nil)
	require.NoError(t, err)
	require.NoError(t, SetKey(w, "data", 1))
	require.NoError(t, w.Close())

	a, err := NewLog(path, "a", nil)
	require.NoError(t, err)
	require.NoError(t, SetKey(a, "data", 2))
	require.NoError(t, SetKey(a, "other", 3))

	t.Run("同键后写覆盖先写", func(t *testing.T) {
		v, err := GetKey(a, "data")
		require.NoError(t, err)
		assert.Equal(t, 2, v)
	})

	t.Run("追加后重新打开可见全部记录", func(t *testing.T) {
		require.NoError(t, a.Close())
		r, err := NewLog(path, "r", nil)
		require.NoError(t, err)
		defer r.Close()

		v, err := GetKey(r, "data")
		require.NoError(t, err)
		assert.Equal(t, 2, v)
		ok, err := HasKey(r, "other")
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestLogStorageBoundKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.jsonl")

	s, err := NewLog(path, "w", field.Args{"key": "bound"})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Write(42, nil, nil))
	v, err := s.Read(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	t.Run("At 视图共享底层日志", func(t *testing.T) {
		other, err := s.At("elsewhere")
		require.NoError(t, err)
		require.NoError(t, other.Write("moved", nil, nil))

		v, err := GetKey(s, "elsewhere")
		require.NoError(t, err)
		assert.Equal(t, "moved", v)

		v, err = s.Read(nil, nil)
		require.NoError(t, err)
		assert.Equal(t, 42, v, "原视图的键绑定不受影响")
	})
}
