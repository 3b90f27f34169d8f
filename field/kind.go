package field

import (
	"reflect"
	"strings"
)

// Kind 描述一个字段允许持有的值类型集合，对应声明中的 dtype。
// 集合可以包含具体类型和接口类型：具体类型按可赋值性判断，
// 接口类型按实现关系判断。
//
// 很多可调用值并不属于同一个具体函数类型，签名彼此不同，
// 因此"函数"作为一种放宽的种类单独表示：含 FuncKind 的集合
// 接受任意 reflect.Kind 为 Func 的值，不限签名。
type Kind struct {
	types   []reflect.Type
	anyFunc bool
}

// 常用的字段种类。
var (
	Bool   = TypeOf[bool]()
	Int    = TypeOf[int]()
	Float  = TypeOf[float64]()
	String = TypeOf[string]()

	// Any 接受任意非空值。
	Any = TypeOf[any]()

	// FuncKind 接受任意签名的函数值。
	FuncKind = Kind{anyFunc: true}
)

// TypeOf 构造只接受类型 T 的种类。T 为接口类型时接受其全部实现。
func TypeOf[T any]() Kind {
	return Kind{types: []reflect.Type{reflect.TypeOf((*T)(nil)).Elem()}}
}

// Union 合并多个种类为一个，值满足其中任意一个即可。
func Union(kinds ...Kind) Kind {
	var merged Kind
	for _, k := range kinds {
		merged.types = append(merged.types, k.types...)
		merged.anyFunc = merged.anyFunc || k.anyFunc
	}
	return merged
}

// Accepts 报告值 v 是否满足该种类约束。nil 值不满足任何种类。
func (k Kind) Accepts(v any) bool {
	if v == nil {
		return false
	}

	rv := reflect.ValueOf(v)
	if k.anyFunc && rv.Kind() == reflect.Func {
		return true
	}

	t := rv.Type()
	for _, want := range k.types {
		if want.Kind() == reflect.Interface {
			if t.Implements(want) {
				return true
			}
			continue
		}
		if t.AssignableTo(want) {
			return true
		}
	}
	return false
}

func (k Kind) valid() bool {
	return k.anyFunc || len(k.types) > 0
}

func (k Kind) String() string {
	names := make([]string, 0, len(k.types)+1)
	for _, t := range k.types {
		names = append(names, t.String())
	}
	if k.anyFunc {
		names = append(names, "func")
	}
	if len(names) == 0 {
		return "<invalid>"
	}
	return strings.Join(names, "|")
}
