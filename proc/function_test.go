package proc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relay/field"
)

func TestFuncProcessor(t *testing.T) {
	t.Run("默认函数原样返回输入", func(t *testing.T) {
		p, err := NewFunc(nil)
		require.NoError(t, err)
		out, err := Invoke(p, 42)
		require.NoError(t, err)
		assert.Equal(t, 42, out)
	})

	t.Run("带错误返回的函数", func(t *testing.T) {
		boom := errors.New("boom")
		p, err := NewFunc(nil, func(data any) (any, error) {
			return nil, boom
		})
		require.NoError(t, err)
		_, err = Invoke(p, 1)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("简化签名的函数", func(t *testing.T) {
		p, err := NewFunc(nil, func(data any) any {
			return data.(int) * 2
		})
		require.NoError(t, err)
		out, err := Invoke(p, 21)
		require.NoError(t, err)
		assert.Equal(t, 42, out)
	})

	t.Run("不支持的签名报错", func(t *testing.T) {
		p, err := NewFunc(nil, func(a, b int) int { return a + b })
		require.NoError(t, err, "函数种类不限签名，构造不报错")
		_, err = Invoke(p, 1)
		assert.ErrorContains(t, err, "unsupported signature")
	})

	t.Run("非函数值在构造期报错", func(t *testing.T) {
		_, err := NewFunc(nil, 42)
		assert.ErrorIs(t, err, field.ErrType)
	})
}

func TestFuncProcessorBindMethod(t *testing.T) {
	fn := func(self Processor, data any) (any, error) {
		v, err := self.base().Get("is_output")
		if err != nil {
			return nil, err
		}
		return v, nil
	}
	p, err := NewFunc(field.Args{"bind_method": true, "is_output": true}, fn)
	require.NoError(t, err)

	out, err := Invoke(p, nil)
	require.NoError(t, err)
	assert.Equal(t, true, out, "绑定函数能读取单元自身的字段")

	t.Run("绑定模式下普通签名报错", func(t *testing.T) {
		p, err := NewFunc(field.Args{"bind_method": true}, func(data any) any { return data })
		require.NoError(t, err)
		_, err = Invoke(p, 1)
		assert.ErrorContains(t, err, "unsupported signature")
	})
}

func TestEnsure(t *testing.T) {
	t.Run("函数被包装为函数型单元", func(t *testing.T) {
		p, err := Ensure(func(data any) any { return data }, nil)
		require.NoError(t, err)
		assert.IsType(t, &FuncProcessor{}, p)
	})

	t.Run("已有单元原样返回", func(t *testing.T) {
		orig, err := NewFunc(nil)
		require.NoError(t, err)
		p, err := Ensure(orig, nil)
		require.NoError(t, err)
		assert.Same(t, orig, p)
	})

	t.Run("覆盖参数施加在默认层级", func(t *testing.T) {
		orig, err := NewFunc(nil)
		require.NoError(t, err)
		p, err := Ensure(orig, field.Args{"is_output": true})
		require.NoError(t, err)
		assert.True(t, IsOutput(p))

		require.NoError(t, p.base().Set("is_output", false))
		assert.False(t, IsOutput(p), "显式值仍可覆盖")
	})

	t.Run("既非单元也非函数的值报错", func(t *testing.T) {
		_, err := Ensure("nope", nil)
		assert.ErrorContains(t, err, "cannot be used as a processor")
		_, err = Ensure(nil, nil)
		assert.Error(t, err)
	})
}
