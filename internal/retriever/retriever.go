// Package retriever 负责问答读路径的检索：向量化问题，查询向量索引，
// 过滤掉相似度不足的候选。
package retriever

import (
	"context"
	"fmt"

	"civic-smart-go/internal/config"
	"civic-smart-go/internal/index"
	"civic-smart-go/internal/model"
	"civic-smart-go/pkg/embedding"
	"civic-smart-go/pkg/log"
)

const (
	defaultTopK     = 3
	defaultMinScore = 0.25
)

// Retriever 组合嵌入客户端与向量索引，产出排好序、去过阈的候选集。
type Retriever struct {
	embedder embedding.Client
	idx      index.VectorIndex
	topK     int
	minScore float64
}

// New 创建一个 Retriever。topK 为 0 时默认取 3，minScore 为 0 时默认 0.25。
func New(embedder embedding.Client, idx index.VectorIndex, ragCfg config.RAGConfig) *Retriever {
	topK := ragCfg.TopK
	if topK <= 0 {
		topK = defaultTopK
	}
	minScore := ragCfg.MinScore
	if minScore == 0 {
		minScore = defaultMinScore
	}
	return &Retriever{embedder: embedder, idx: idx, topK: topK, minScore: minScore}
}

// Retrieve 返回与问题最相关的至多 k 个分块（k<=0 时使用配置的 topK）。
//
// 索引为空或没有候选过阈时返回空切片和 nil error——这是正常结果，
// 供应商调用失败才会返回 error，两者对调用方是可区分的。
func (r *Retriever) Retrieve(ctx context.Context, question string, k int) ([]model.ScoredChunk, error) {
	if k <= 0 {
		k = r.topK
	}

	queryVector, err := r.embedder.CreateEmbedding(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("问题向量化失败: %w", err)
	}

	candidates, err := r.idx.Query(ctx, queryVector, k)
	if err != nil {
		return nil, fmt.Errorf("向量检索失败: %w", err)
	}

	// 阈值过滤 + 按 chunk_id 去重（重叠窗口可能带来重复命中）
	seen := make(map[string]struct{}, len(candidates))
	filtered := make([]model.ScoredChunk, 0, len(candidates))
	for _, c := range candidates {
		if c.Score < r.minScore {
			continue
		}
		if _, dup := seen[c.Chunk.ID]; dup {
			continue
		}
		seen[c.Chunk.ID] = struct{}{}
		filtered = append(filtered, c)
	}

	log.Debugf("[Retriever] 检索完成, 候选 %d 条, 过阈 %d 条", len(candidates), len(filtered))
	return filtered, nil
}
