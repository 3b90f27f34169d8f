package safe

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPanicErr(t *testing.T) {
	err := NewPanicErr("FuncProcessor", "boom", debug.Stack())
	require.Error(t, err)

	assert.Contains(t, err.Error(), "processor FuncProcessor panicked")
	assert.Contains(t, err.Error(), "boom")
	assert.Contains(t, err.Error(), "panic_test.go", "错误信息携带捕获时的堆栈")
}
