package generic

import (
	"reflect"
	"runtime"
	"strings"
)

// TypeName 返回值的类型名称，自动解引用指针类型。
// 计算单元的识别元数据以类型名称开头，缓存键因此能区分
// 类型不同但配置相同的单元。
//
// 示例:
//
//	TypeName(&FuncProcessor{})  // "FuncProcessor"
//	TypeName(tensor.Tuple{})    // "Tuple"
func TypeName(v any) string {
	if v == nil {
		return ""
	}

	typ := reflect.TypeOf(v)
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	return typ.Name()
}

// QualifiedTypeName 返回带包路径的完整类型名称，如 "relay/proc.FuncProcessor"。
// 识别元数据用完整名称区分不同包里的同名类型，
// 共享同一后端时缓存条目不会互相串用。
func QualifiedTypeName(v any) string {
	if v == nil {
		return ""
	}

	typ := reflect.TypeOf(v)
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if pkg := typ.PkgPath(); pkg != "" {
		return pkg + "." + typ.Name()
	}
	return typ.String()
}

// FuncName 返回函数值的完整符号名称，如 "relay/proc.Identity"。
// 函数无法按值序列化，哈希时以符号名称代表函数本身；
// 匿名函数返回编译器生成的名称，如 "TestInvoke.func1"。
// 非函数值返回空字符串。
func FuncName(v any) string {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Func {
		return ""
	}

	fn := runtime.FuncForPC(rv.Pointer())
	if fn == nil {
		return ""
	}
	return fn.Name()
}

// ShortFuncName 返回去掉包路径前缀的函数名称，如 "Identity" 或 "TestInvoke.func1"。
func ShortFuncName(v any) string {
	name := FuncName(v)
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	if idx := strings.Index(name, "."); idx >= 0 {
		name = name[idx+1:]
	}
	return name
}
