package safe

import "fmt"

// panicErr 记录某个计算单元执行中 panic 的现场：单元名、panic 值与堆栈。
type panicErr struct {
	unit  string // 出事的计算单元名
	info  any    // panic 值
	stack []byte // 捕获时的堆栈跟踪
}

func (p *panicErr) Error() string {
	return fmt.Sprintf("processor %s panicked: %v\nstack: %s", p.unit, p.info, string(p.stack))
}

// NewPanicErr 把 unit 单元计算中的 panic 转换为普通错误。
// 用户提供的操作函数可能 panic，执行引擎借此把 panic
// 变成错误返回给调用方，并保留单元名方便定位。
func NewPanicErr(unit string, info any, stack []byte) error {
	return &panicErr{
		unit:  unit,
		info:  info,
		stack: stack,
	}
}
