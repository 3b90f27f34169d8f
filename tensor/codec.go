package tensor

/*
 * codec.go - 值编解码
 *
 * 核心组件：
 *   - Encode/Decode: 带类型标签的 JSON 信封，保证数组、元组与标量
 *     往返存储后类型不丢失
 *
 * 设计特点：
 *   - 信封结构 {"kind": ..., ...}，解码按标签还原具体 Go 类型
 *   - 未知类型回退为原样 JSON，标签 "json"，解码得到 map/切片等通用值
 */

import (
	"encoding/json"
	"fmt"

	"github.com/bytedance/sonic"
)

type envelope struct {
	Kind  string            `json:"kind"`
	Shape []int             `json:"shape,omitempty"`
	Data  []float64         `json:"data,omitempty"`
	Items []json.RawMessage `json:"items,omitempty"`
	Value json.RawMessage   `json:"value,omitempty"`
}

// Encode 把值序列化为带类型标签的 JSON。
// 支持 *Array、Tuple、整数、浮点、字符串、布尔与 nil，
// 其余值按原样 JSON 序列化并打上 "json" 标签。
func Encode(v any) ([]byte, error) {
	env, err := wrap(v)
	if err != nil {
		return nil, err
	}
	return sonic.Marshal(env)
}

// Decode 还原 Encode 产出的 JSON。
func Decode(raw []byte) (any, error) {
	var env envelope
	if err := sonic.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode value envelope: %w", err)
	}
	return unwrap(&env)
}

func wrap(v any) (*envelope, error) {
	switch t := v.(type) {
	case nil:
		return &envelope{Kind: "null"}, nil
	case *Array:
		return &envelope{Kind: "array", Shape: t.shape, Data: t.data}, nil
	case Tuple:
		items := make([]json.RawMessage, len(t))
		for i, item := range t {
			raw, err := Encode(item)
			if err != nil {
				return nil, fmt.Errorf("encode tuple element %d: %w", i, err)
			}
			items[i] = raw
		}
		return &envelope{Kind: "tuple", Items: items}, nil
	case bool:
		return rawEnvelope("bool", t)
	case int:
		return rawEnvelope("int", t)
	case int64:
		return rawEnvelope("int", t)
	case float64:
		return rawEnvelope("float", t)
	case string:
		return rawEnvelope("string", t)
	default:
		return rawEnvelope("json", t)
	}
}

func rawEnvelope(kind string, v any) (*envelope, error) {
	raw, err := sonic.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s value: %w", kind, err)
	}
	return &envelope{Kind: kind, Value: raw}, nil
}

func unwrap(env *envelope) (any, error) {
	switch env.Kind {
	case "null":
		return nil, nil
	case "array":
		return New(env.Shape, env.Data)
	case "tuple":
		t := make(Tuple, len(env.Items))
		for i, raw := range env.Items {
			v, err := Decode(raw)
			if err != nil {
				return nil, fmt.Errorf("decode tuple element %d: %w", i, err)
			}
			t[i] = v
		}
		return t, nil
	case "bool":
		var v bool
		return v, unmarshalValue(env, &v)
	case "int":
		var v int
		return v, unmarshalValue(env, &v)
	case "float":
		var v float64
		return v, unmarshalValue(env, &v)
	case "string":
		var v string
		return v, unmarshalValue(env, &v)
	case "json":
		var v any
		return v, unmarshalValue(env, &v)
	default:
		return nil, fmt.Errorf("decode value envelope: unknown kind %q", env.Kind)
	}
}

func unmarshalValue(env *envelope, out any) error {
	if err := sonic.Unmarshal(env.Value, out); err != nil {
		return fmt.Errorf("decode %s value: %w", env.Kind, err)
	}
	return nil
}
