// Package index 定义了向量索引的抽象与其两种后端实现。
//
// 所有后端统一使用余弦相似度作为距离度量，得分范围 [-1, 1]，
// 下游消费方（Retriever 的阈值过滤）依赖这一语义。
package index

import (
	"context"

	"civic-smart-go/internal/model"
)

// VectorIndex 是分块向量数据的唯一持有者。
//
// Upsert 以 chunk_id 为键做替换式写入；向量长度与索引已确立的维度
// 不一致时返回 model.ErrDimensionMismatch。维度在首次成功 Upsert 时
// 固定，此后不可变。
//
// Query 返回至多 k 条按相似度降序排列的候选，得分相同时按插入顺序
// 稳定排序。支持读读并发，以及写入与查询并发（查询看到的是
// 查询开始时刻的快照即可，不要求跨分块的事务一致性）。
type VectorIndex interface {
	Upsert(ctx context.Context, entries []model.IndexEntry) (int, error)
	Query(ctx context.Context, vector []float32, k int) ([]model.ScoredChunk, error)
	Delete(ctx context.Context, ids []string) error
	Size(ctx context.Context) (int, error)
}
