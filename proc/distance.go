package proc

/*
 * distance.go - 成对距离
 *
 * PairwiseDistance 把 n×d 的样本矩阵变换为 n×n 的距离矩阵，
 * 度量由 metric 字段选择，是谱分析管线的第一步数值单元。
 */

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"relay/field"
	"relay/tensor"
)

var distanceSchema = field.NewSchema(baseSchema).
	Field("metric", field.String, field.Default("euclidean"), field.Identifier())

// PairwiseDistance 计算样本两两之间的距离。
// 支持的度量："euclidean"、"sqeuclidean"。
type PairwiseDistance struct {
	Base
}

// NewPairwiseDistance 构造成对距离单元。
func NewPairwiseDistance(kw field.Args) (*PairwiseDistance, error) {
	p := &PairwiseDistance{}
	if err := Init(p, distanceSchema, kw); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *PairwiseDistance) Function(data any) (any, error) {
	samples, err := matrixInput(data)
	if err != nil {
		return nil, err
	}
	v, err := p.Get("metric")
	if err != nil {
		return nil, err
	}
	metric := v.(string)

	square := false
	switch metric {
	case "euclidean":
	case "sqeuclidean":
		square = true
	default:
		return nil, fmt.Errorf("unknown distance metric %q", metric)
	}

	n := samples.Shape()[0]
	out := tensor.Zeros(n, n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := floats.Distance(samples.Row(i), samples.Row(j), 2)
			if square {
				d *= d
			}
			out.SetAt(d, i, j)
			out.SetAt(d, j, i)
		}
	}
	return out, nil
}

// matrixInput 校验输入是二维数组。
func matrixInput(data any) (*tensor.Array, error) {
	a, ok := data.(*tensor.Array)
	if !ok {
		return nil, fmt.Errorf("expected a numeric array, got %T", data)
	}
	if a.NDim() != 2 {
		return nil, fmt.Errorf("expected a 2-dimensional array, got shape %v", a.Shape())
	}
	return a, nil
}
