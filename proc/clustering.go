package proc

/*
 * clustering.go - 聚类
 *
 * KMeans 用 Lloyd 迭代把 n×d 的嵌入矩阵划分为 n_clusters 个簇，
 * 输出每个样本的簇标签。随机初始化由 seed 字段决定，
 * 相同配置与输入产出相同标签，缓存键因此稳定。
 */

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"relay/field"
	"relay/tensor"
)

var kmeansSchema = field.NewSchema(baseSchema).
	Field("n_clusters", field.Int, field.Default(2), field.Identifier()).
	Field("max_iter", field.Int, field.Default(300)).
	Field("seed", field.Int, field.Default(0), field.Identifier())

// KMeans 把样本划分为 n_clusters 个簇，输出一维标签数组。
type KMeans struct {
	Base
}

// NewKMeans 构造聚类单元。
func NewKMeans(kw field.Args) (*KMeans, error) {
	p := &KMeans{}
	if err := Init(p, kmeansSchema, kw); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *KMeans) Function(data any) (any, error) {
	samples, err := matrixInput(data)
	if err != nil {
		return nil, err
	}
	kv, err := p.Get("n_clusters")
	if err != nil {
		return nil, err
	}
	iv, err := p.Get("max_iter")
	if err != nil {
		return nil, err
	}
	sv, err := p.Get("seed")
	if err != nil {
		return nil, err
	}
	k := kv.(int)
	maxIter := iv.(int)
	seed := sv.(int)

	n := samples.Shape()[0]
	if k > n {
		k = n
	}

	// 确定性初始化：按种子无放回抽取 k 个样本作为初始中心
	rng := rand.New(rand.NewSource(int64(seed)))
	centers := make([][]float64, k)
	for i, idx := range rng.Perm(n)[:k] {
		centers[i] = append([]float64(nil), samples.Row(idx)...)
	}

	labels := make([]int, n)
	counts := make([]int, k)
	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i := 0; i < n; i++ {
			best, bestDist := 0, math.Inf(1)
			for c := 0; c < k; c++ {
				dist := floats.Distance(samples.Row(i), centers[c], 2)
				if dist < bestDist {
					best, bestDist = c, dist
				}
			}
			if labels[i] != best {
				labels[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		for c := range centers {
			counts[c] = 0
			for j := range centers[c] {
				centers[c][j] = 0
			}
		}
		for i := 0; i < n; i++ {
			c := labels[i]
			counts[c]++
			floats.Add(centers[c], samples.Row(i))
		}
		for c := range centers {
			if counts[c] > 0 {
				floats.Scale(1/float64(counts[c]), centers[c])
			}
		}
	}

	out := tensor.Zeros(n)
	for i, label := range labels {
		out.SetAt(float64(label), i)
	}
	return out, nil
}
