package proc

/*
 * laplacian.go - 图拉普拉斯
 *
 * SymmetricNormalLaplacian 把亲和度矩阵 A 变换为对称规范化
 * 拉普拉斯核 D^(-1/2) · A · D^(-1/2)，D 为度对角矩阵。
 */

import (
	"math"

	"relay/field"
	"relay/tensor"
)

var laplacianSchema = field.NewSchema(baseSchema)

// SymmetricNormalLaplacian 计算对称规范化的图拉普拉斯核。
type SymmetricNormalLaplacian struct {
	Base
}

// NewSymmetricNormalLaplacian 构造拉普拉斯单元。
func NewSymmetricNormalLaplacian(kw field.Args) (*SymmetricNormalLaplacian, error) {
	p := &SymmetricNormalLaplacian{}
	if err := Init(p, laplacianSchema, kw); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *SymmetricNormalLaplacian) Function(data any) (any, error) {
	aff, err := matrixInput(data)
	if err != nil {
		return nil, err
	}
	n := aff.Shape()[0]

	// 度的逆平方根，孤立节点的度按零处理
	invRoot := make([]float64, n)
	for i := 0; i < n; i++ {
		deg := 0.0
		for j := 0; j < n; j++ {
			deg += aff.At(i, j)
		}
		if deg > 0 {
			invRoot[i] = 1 / math.Sqrt(deg)
		}
	}

	out := tensor.Zeros(n, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			out.SetAt(invRoot[i]*aff.At(i, j)*invRoot[j], i, j)
		}
	}
	return out, nil
}
