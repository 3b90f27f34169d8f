package proc

/*
 * affinity.go - 亲和度
 *
 * 核心组件：
 *   - SparseKNN: 把距离矩阵变换为 k 近邻 0/1 亲和度矩阵
 *   - RadialBasisFunction: 高斯核亲和度
 */

import (
	"math"
	"sort"

	"relay/field"
	"relay/tensor"
)

var knnSchema = field.NewSchema(baseSchema).
	Field("n_neighbors", field.Int, field.Default(10), field.Identifier()).
	Field("symmetric", field.Bool, field.Default(true), field.Identifier())

// SparseKNN 从距离矩阵构造 k 近邻亲和度矩阵：
// 第 i 行在 i 的 k 个最近邻居处为 1，其余为 0。
// symmetric 打开时按对称或取并，保证矩阵对称。
type SparseKNN struct {
	Base
}

// NewSparseKNN 构造 k 近邻亲和度单元。
func NewSparseKNN(kw field.Args) (*SparseKNN, error) {
	p := &SparseKNN{}
	if err := Init(p, knnSchema, kw); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *SparseKNN) Function(data any) (any, error) {
	dist, err := matrixInput(data)
	if err != nil {
		return nil, err
	}
	kv, err := p.Get("n_neighbors")
	if err != nil {
		return nil, err
	}
	sv, err := p.Get("symmetric")
	if err != nil {
		return nil, err
	}
	k := kv.(int)
	symmetric := sv.(bool)

	n := dist.Shape()[0]
	if k > n-1 {
		k = n - 1
	}
	out := tensor.Zeros(n, n)
	order := make([]int, n)
	for i := 0; i < n; i++ {
		row := dist.Row(i)
		for j := range order {
			order[j] = j
		}
		sort.SliceStable(order, func(a, b int) bool { return row[order[a]] < row[order[b]] })

		// 自身距离为零排最前，跳过后取 k 个邻居
		taken := 0
		for _, j := range order {
			if j == i {
				continue
			}
			if taken == k {
				break
			}
			out.SetAt(1, i, j)
			taken++
		}
	}

	if symmetric {
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				if out.At(i, j) == 1 || out.At(j, i) == 1 {
					out.SetAt(1, i, j)
					out.SetAt(1, j, i)
				}
			}
		}
	}
	return out, nil
}

var rbfSchema = field.NewSchema(baseSchema).
	Field("sigma", field.Float, field.Default(1.0), field.Identifier())

// RadialBasisFunction 用高斯核把距离矩阵变换为亲和度矩阵：
// exp(-d² / (2σ²))。
type RadialBasisFunction struct {
	Base
}

// NewRadialBasisFunction 构造高斯核亲和度单元。
func NewRadialBasisFunction(kw field.Args) (*RadialBasisFunction, error) {
	p := &RadialBasisFunction{}
	if err := Init(p, rbfSchema, kw); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *RadialBasisFunction) Function(data any) (any, error) {
	dist, err := matrixInput(data)
	if err != nil {
		return nil, err
	}
	v, err := p.Get("sigma")
	if err != nil {
		return nil, err
	}
	sigma := v.(float64)

	out := dist.Clone()
	denom := 2 * sigma * sigma
	raw := out.Data()
	for i, d := range raw {
		raw[i] = math.Exp(-d * d / denom)
	}
	return out, nil
}
