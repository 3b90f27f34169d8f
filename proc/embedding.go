package proc

/*
 * embedding.go - 谱嵌入
 *
 * EigenDecomposition 对对称核矩阵做特征分解，取最大的 n_eigval 个
 * 特征对作为低维嵌入，输出 (特征值, 特征向量) 元组。
 */

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"relay/field"
	"relay/tensor"
)

var eigenSchema = field.NewSchema(baseSchema).
	Field("n_eigval", field.Int, field.Default(32), field.Identifier()).
	Field("normalize", field.Bool, field.Default(true), field.Identifier())

// EigenDecomposition 计算对称矩阵最大的 n_eigval 个特征对。
// 输出元组的第一个元素是 1-λ 形式的特征值（升序排列的拉普拉斯谱），
// 第二个元素是 n×k 的特征向量矩阵，normalize 打开时按行归一化。
type EigenDecomposition struct {
	Base
}

// NewEigenDecomposition 构造谱嵌入单元。
func NewEigenDecomposition(kw field.Args) (*EigenDecomposition, error) {
	p := &EigenDecomposition{}
	if err := Init(p, eigenSchema, kw); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *EigenDecomposition) Function(data any) (any, error) {
	kernel, err := matrixInput(data)
	if err != nil {
		return nil, err
	}
	kv, err := p.Get("n_eigval")
	if err != nil {
		return nil, err
	}
	nv, err := p.Get("normalize")
	if err != nil {
		return nil, err
	}
	k := kv.(int)
	normalize := nv.(bool)

	shape := kernel.Shape()
	n := shape[0]
	if shape[1] != n {
		return nil, fmt.Errorf("eigendecomposition requires a square matrix, got shape %v", shape)
	}
	if k > n {
		k = n
	}

	var es mat.EigenSym
	if ok := es.Factorize(mat.NewSymDense(n, kernel.Data()), true); !ok {
		return nil, fmt.Errorf("eigendecomposition failed to converge")
	}
	values := es.Values(nil)
	var vectors mat.Dense
	es.VectorsTo(&vectors)

	// 特征值升序排列，最大的 k 个在末尾；翻转为 1-λ 后恰为升序
	eigval := tensor.Zeros(k)
	eigvec := tensor.Zeros(n, k)
	for c := 0; c < k; c++ {
		src := n - 1 - c
		eigval.SetAt(1-values[src], c)
		for r := 0; r < n; r++ {
			eigvec.SetAt(vectors.At(r, src), r, c)
		}
	}

	if normalize {
		for r := 0; r < n; r++ {
			row := eigvec.Row(r)
			norm := 0.0
			for _, v := range row {
				norm += v * v
			}
			if norm > 0 {
				norm = math.Sqrt(norm)
				for i := range row {
					row[i] /= norm
				}
			}
		}
	}
	return tensor.Tuple{eigval, eigvec}, nil
}
