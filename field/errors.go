package field

import "errors"

// 配置错误在构造或赋值时同步抛出，互相可用 errors.Is 区分：
// 类型不匹配、未知字段名、必填字段在整条解析链为空时被读取。
var (
	// ErrType 字段值与声明的种类不一致。
	ErrType = errors.New("field value type mismatch")

	// ErrUnknown 名称不对应任何已声明字段。
	ErrUnknown = errors.New("unknown field")

	// ErrUnset 必填字段在显式值、实例默认值、声明默认值均为空时被访问。
	ErrUnset = errors.New("mandatory field accessed unset")
)
