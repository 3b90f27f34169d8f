package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relay/field"
	"relay/proc"
	"relay/tensor"
)

// 两个相距很远的点簇，每簇四个样本。
func clusteredSamples() *tensor.Array {
	return tensor.MustNew([]int{8, 2}, []float64{
		0.0, 0.0,
		0.2, 0.0,
		0.0, 0.2,
		0.2, 0.2,
		10.0, 10.0,
		10.2, 10.0,
		10.0, 10.2,
		10.2, 10.2,
	})
}

func TestSpectralEmbedding(t *testing.T) {
	p, err := NewSpectralEmbedding(field.Args{
		"affinity":  mustProc(proc.NewSparseKNN(field.Args{"n_neighbors": 3})),
		"embedding": mustProc(proc.NewEigenDecomposition(field.Args{"n_eigval": 2})),
	})
	require.NoError(t, err)

	out, err := proc.Invoke(p, clusteredSamples())
	require.NoError(t, err)

	tup, ok := out.(tensor.Tuple)
	require.True(t, ok, "谱嵌入输出 (特征值, 特征向量) 元组")
	require.Len(t, tup, 2)

	eigval := tup[0].(*tensor.Array)
	eigvec := tup[1].(*tensor.Array)
	assert.Equal(t, []int{2}, eigval.Shape())
	assert.Equal(t, []int{8, 2}, eigvec.Shape())

	t.Run("断开的两个分量给出两个零特征值", func(t *testing.T) {
		assert.InDelta(t, 0.0, eigval.At(0), 1e-9)
		assert.InDelta(t, 0.0, eigval.At(1), 1e-9)
	})

	t.Run("预处理步骤可替换", func(t *testing.T) {
		called := false
		p, err := NewSpectralEmbedding(field.Args{
			"affinity": mustProc(proc.NewSparseKNN(field.Args{"n_neighbors": 3})),
			"preprocessing": func(data any) any {
				called = true
				return data
			},
		})
		require.NoError(t, err)
		_, err = proc.Invoke(p, clusteredSamples())
		require.NoError(t, err)
		assert.True(t, called)
	})
}

func TestSpectralClustering(t *testing.T) {
	p, err := NewSpectralClustering(field.Args{
		"affinity":  mustProc(proc.NewSparseKNN(field.Args{"n_neighbors": 3})),
		"embedding": mustProc(proc.NewEigenDecomposition(field.Args{"n_eigval": 2})),
	})
	require.NoError(t, err)

	out, err := proc.Invoke(p, clusteredSamples())
	require.NoError(t, err)

	tup, ok := out.(tensor.Tuple)
	require.True(t, ok, "谱聚类输出 (谱嵌入, 簇标签) 元组")
	require.Len(t, tup, 2)

	embedding := tup[0].(tensor.Tuple)
	require.Len(t, embedding, 2)

	labels := tup[1].(*tensor.Array)
	require.Equal(t, []int{8}, labels.Shape())

	t.Run("两个簇被正确分开", func(t *testing.T) {
		for i := 1; i < 4; i++ {
			assert.Equal(t, labels.At(0), labels.At(i))
		}
		for i := 5; i < 8; i++ {
			assert.Equal(t, labels.At(4), labels.At(i))
		}
		assert.NotEqual(t, labels.At(0), labels.At(4))
	})

	t.Run("任务按声明顺序排列", func(t *testing.T) {
		procs, err := p.Processors()
		require.NoError(t, err)
		names := make([]string, 0, procs.Len())
		for pair := procs.Oldest(); pair != nil; pair = pair.Next() {
			names = append(names, pair.Key)
		}
		assert.Equal(t, []string{
			"preprocessing", "pairwise_distance", "affinity",
			"laplacian", "embedding", "select_eigenvector", "clustering",
		}, names)
	})
}
