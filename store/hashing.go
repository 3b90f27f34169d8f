package store

/*
 * hashing.go - 内容寻址哈希
 *
 * 核心组件：
 *   - Hasher: 把任意值归约为 128 位十六进制摘要，作为缓存键
 *   - Hash: 默认配置（尾数两位小数）的包级入口
 *
 * 设计特点：
 *   - 数组按 (元素类型名, 形状, 降精度数值) 参与哈希：每个元素
 *     经 frexp 拆成尾数与指数，尾数四舍五入到固定小数位，
 *     使输入中的微小数值抖动不会让缓存失效
 *   - 函数按其符号全名参与哈希，同一函数在多次运行间键稳定
 *   - 每个值先写入类型标签，避免不同类型的同构内容发生碰撞
 */

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"reflect"
	"sort"

	"github.com/bytedance/sonic"
	"github.com/zeebo/xxh3"

	"relay/internal/generic"
	"relay/tensor"
)

// DefaultMantissaDigits 是数组元素尾数参与哈希时保留的小数位数。
const DefaultMantissaDigits = 2

// Hasher 把值归约为稳定的十六进制摘要。
type Hasher struct {
	// MantissaDigits 控制数组元素降精度的粒度，零值按默认位数处理。
	MantissaDigits int
}

// Hash 用默认配置计算值的摘要。
func Hash(v any) (string, error) {
	return Hasher{}.Hash(v)
}

// Hash 返回值的 128 位摘要，编码为 32 个十六进制字符。
// 相同内容（在降精度意义下）的值产出相同摘要。
func (h Hasher) Hash(v any) (string, error) {
	state := xxh3.New()
	if err := h.write(state, v); err != nil {
		return "", err
	}
	sum := state.Sum128()
	return fmt.Sprintf("%016x%016x", sum.Hi, sum.Lo), nil
}

func (h Hasher) digits() int {
	if h.MantissaDigits > 0 {
		return h.MantissaDigits
	}
	return DefaultMantissaDigits
}

func (h Hasher) write(w io.Writer, v any) error {
	switch t := v.(type) {
	case nil:
		return writeTag(w, "nil")
	case bool:
		if err := writeTag(w, "bool"); err != nil {
			return err
		}
		return binary.Write(w, binary.LittleEndian, t)
	case int:
		return h.writeInt(w, int64(t))
	case int64:
		return h.writeInt(w, t)
	case float64:
		if err := writeTag(w, "float"); err != nil {
			return err
		}
		return h.writeFloat(w, t)
	case string:
		return writeString(w, "string", t)
	case *tensor.Array:
		return h.writeArray(w, t)
	case tensor.Tuple:
		if err := writeTag(w, "tuple"); err != nil {
			return err
		}
		if err := writeLen(w, len(t)); err != nil {
			return err
		}
		for _, item := range t {
			if err := h.write(w, item); err != nil {
				return err
			}
		}
		return nil
	case []any:
		if err := writeTag(w, "slice"); err != nil {
			return err
		}
		if err := writeLen(w, len(t)); err != nil {
			return err
		}
		for _, item := range t {
			if err := h.write(w, item); err != nil {
				return err
			}
		}
		return nil
	case map[string]any:
		if err := writeTag(w, "map"); err != nil {
			return err
		}
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		if err := writeLen(w, len(keys)); err != nil {
			return err
		}
		for _, k := range keys {
			if err := writeString(w, "key", k); err != nil {
				return err
			}
			if err := h.write(w, t[k]); err != nil {
				return err
			}
		}
		return nil
	}

	// 函数值按符号全名参与哈希
	if reflect.ValueOf(v).Kind() == reflect.Func {
		return writeString(w, "func", generic.FuncName(v))
	}

	// 其余类型回退为 JSON 表示，顺序敏感的类型
	// （如有序映射）自带确定性序列化
	raw, err := sonic.Marshal(v)
	if err != nil {
		return fmt.Errorf("hash value of type %T: %w", v, err)
	}
	if err := writeTag(w, "json"); err != nil {
		return err
	}
	_, err = w.Write(raw)
	return err
}

func (h Hasher) writeArray(w io.Writer, a *tensor.Array) error {
	if err := writeString(w, "array", a.DType()); err != nil {
		return err
	}
	shape := a.Shape()
	if err := writeLen(w, len(shape)); err != nil {
		return err
	}
	for _, s := range shape {
		if err := binary.Write(w, binary.LittleEndian, int64(s)); err != nil {
			return err
		}
	}
	for _, v := range a.Data() {
		if err := h.writeFloat(w, v); err != nil {
			return err
		}
	}
	return nil
}

// writeFloat 把浮点数拆成尾数与指数写入，尾数先降精度。
func (h Hasher) writeFloat(w io.Writer, v float64) error {
	frac, exp := math.Frexp(v)
	scale := math.Pow(10, float64(h.digits()))
	frac = math.Round(frac*scale) / scale
	if err := binary.Write(w, binary.LittleEndian, frac); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, int64(exp))
}

func (h Hasher) writeInt(w io.Writer, v int64) error {
	if err := writeTag(w, "int"); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, v)
}

func writeTag(w io.Writer, tag string) error {
	_, err := io.WriteString(w, tag)
	return err
}

func writeString(w io.Writer, tag, s string) error {
	if err := writeTag(w, tag); err != nil {
		return err
	}
	if err := writeLen(w, len(s)); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func writeLen(w io.Writer, n int) error {
	return binary.Write(w, binary.LittleEndian, int64(n))
}
