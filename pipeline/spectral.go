package pipeline

/*
 * spectral.go - 谱分析管线
 *
 * 核心组件：
 *   - SpectralEmbedding: 样本 → 距离 → 亲和度 → 拉普拉斯 → 谱嵌入
 *   - SpectralClustering: 在谱嵌入之上追加特征向量选取与 KMeans 聚类
 *
 * 每个步骤都是任务字段，调用方可用自己的单元或函数替换任意一步，
 * 行为标志与缓存后端同样可按步骤覆盖。
 */

import (
	"fmt"

	"relay/field"
	"relay/proc"
	"relay/tensor"
)

func mustProc[P proc.Processor](p P, err error) proc.Processor {
	if err != nil {
		panic(err)
	}
	return p
}

var spectralEmbeddingSchema = field.NewSchema(proc.BaseSchema()).
	Declare("preprocessing", NewTask(proc.Identity, nil)).
	Declare("pairwise_distance", NewTask(mustProc(proc.NewPairwiseDistance(nil)), nil)).
	Declare("affinity", NewTask(mustProc(proc.NewSparseKNN(field.Args{"n_neighbors": 10})), nil)).
	Declare("laplacian", NewTask(mustProc(proc.NewSymmetricNormalLaplacian(nil)), nil)).
	Declare("embedding", NewTask(mustProc(proc.NewEigenDecomposition(nil)), field.Args{"is_output": true}))

// SpectralEmbedding 把样本矩阵变换为谱嵌入，
// 输出 (特征值, 特征向量) 元组。
type SpectralEmbedding struct {
	Base
}

// NewSpectralEmbedding 构造谱嵌入管线，kw 可按任务名替换任意步骤。
func NewSpectralEmbedding(kw field.Args) (*SpectralEmbedding, error) {
	p := &SpectralEmbedding{}
	if err := proc.Init(p, spectralEmbeddingSchema, kw); err != nil {
		return nil, err
	}
	return p, nil
}

// selectEigenvector 从谱嵌入输出中取出特征向量矩阵。
func selectEigenvector(data any) (any, error) {
	tup, ok := data.(tensor.Tuple)
	if !ok || len(tup) < 2 {
		return nil, fmt.Errorf("expected an (eigenvalues, eigenvectors) tuple, got %T", data)
	}
	return tup[1], nil
}

var spectralClusteringSchema = field.NewSchema(spectralEmbeddingSchema).
	Declare("select_eigenvector", NewTask(selectEigenvector, nil)).
	Declare("clustering", NewTask(mustProc(proc.NewKMeans(field.Args{"n_clusters": 2})), field.Args{"is_output": true}))

// SpectralClustering 在谱嵌入之上做 KMeans 聚类，
// 输出 (谱嵌入, 簇标签) 元组。
type SpectralClustering struct {
	Base
}

// NewSpectralClustering 构造谱聚类管线，kw 可按任务名替换任意步骤。
func NewSpectralClustering(kw field.Args) (*SpectralClustering, error) {
	p := &SpectralClustering{}
	if err := proc.Init(p, spectralClusteringSchema, kw); err != nil {
		return nil, err
	}
	return p, nil
}
