package tensor

/*
 * array.go - 数值数组
 *
 * 核心组件：
 *   - Array: 行优先存储的多维 float64 数组，管线各步骤间传递的主要数据类型
 *   - Tuple: 嵌套元组，承载多输出聚合与层级存储的叶子结构
 *
 * 与其他文件关系：
 *   - codec.go 提供确定性的 JSON 编解码，供存储后端使用
 *   - store 包按 (元素类型名, 形状, 降精度数值) 对 Array 计算缓存键
 */

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Array 是行优先存储的多维 float64 数组。
// 形状为空表示标量（恰有一个元素）。
type Array struct {
	shape []int
	data  []float64
}

// Tuple 是有序的值元组，元素可以是 *Array、嵌套 Tuple 或其他值。
// 管线聚合多个输出、层级存储组织嵌套结果时都使用该类型。
type Tuple []any

// New 用给定形状和数据构造数组。数据长度必须与形状元素积一致。
func New(shape []int, data []float64) (*Array, error) {
	if len(data) != sizeOf(shape) {
		return nil, fmt.Errorf("array data length %d does not match shape %v", len(data), shape)
	}
	return &Array{shape: append([]int(nil), shape...), data: data}, nil
}

// MustNew 等同 New，参数非法时 panic。
func MustNew(shape []int, data []float64) *Array {
	a, err := New(shape, data)
	if err != nil {
		panic(err)
	}
	return a
}

// Zeros 构造给定形状的全零数组。
func Zeros(shape ...int) *Array {
	return &Array{shape: append([]int(nil), shape...), data: make([]float64, sizeOf(shape))}
}

// Vector 构造一维数组。
func Vector(data ...float64) *Array {
	return MustNew([]int{len(data)}, data)
}

// DType 返回元素类型名称，参与缓存键计算。
func (a *Array) DType() string { return "float64" }

// Shape 返回形状的副本。
func (a *Array) Shape() []int { return append([]int(nil), a.shape...) }

// NDim 返回维数。
func (a *Array) NDim() int { return len(a.shape) }

// Len 返回元素总数。
func (a *Array) Len() int { return len(a.data) }

// Data 返回底层数据切片，调用方不应修改其长度。
func (a *Array) Data() []float64 { return a.data }

// At 返回给定下标处的元素。
func (a *Array) At(idx ...int) float64 {
	return a.data[a.offset(idx)]
}

// SetAt 写入给定下标处的元素。
func (a *Array) SetAt(v float64, idx ...int) {
	a.data[a.offset(idx)] = v
}

// Row 返回二维数组第 i 行的视图。
func (a *Array) Row(i int) []float64 {
	if len(a.shape) != 2 {
		panic(fmt.Sprintf("Row requires a 2-dimensional array, got shape %v", a.shape))
	}
	cols := a.shape[1]
	return a.data[i*cols : (i+1)*cols]
}

// Clone 返回数组的深拷贝。
func (a *Array) Clone() *Array {
	return &Array{
		shape: append([]int(nil), a.shape...),
		data:  append([]float64(nil), a.data...),
	}
}

// Equal 报告两个数组形状与元素是否完全一致。
func (a *Array) Equal(b *Array) bool {
	if b == nil || len(a.shape) != len(b.shape) || len(a.data) != len(b.data) {
		return false
	}
	for i, s := range a.shape {
		if b.shape[i] != s {
			return false
		}
	}
	for i, v := range a.data {
		if b.data[i] != v {
			return false
		}
	}
	return true
}

// Matrix 把二维数组转换为 gonum 稠密矩阵，与底层数据共享存储。
func (a *Array) Matrix() (*mat.Dense, error) {
	if len(a.shape) != 2 {
		return nil, fmt.Errorf("matrix conversion requires a 2-dimensional array, got shape %v", a.shape)
	}
	return mat.NewDense(a.shape[0], a.shape[1], a.data), nil
}

// FromDense 把 gonum 稠密矩阵转换为二维数组。
func FromDense(m *mat.Dense) *Array {
	rows, cols := m.Dims()
	a := Zeros(rows, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			a.SetAt(m.At(i, j), i, j)
		}
	}
	return a
}

func (a *Array) String() string {
	return fmt.Sprintf("Array(shape=%v)", a.shape)
}

func (a *Array) offset(idx []int) int {
	if len(idx) != len(a.shape) {
		panic(fmt.Sprintf("index %v does not match shape %v", idx, a.shape))
	}
	off := 0
	for i, x := range idx {
		if x < 0 || x >= a.shape[i] {
			panic(fmt.Sprintf("index %v out of range for shape %v", idx, a.shape))
		}
		off = off*a.shape[i] + x
	}
	return off
}

func sizeOf(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}
