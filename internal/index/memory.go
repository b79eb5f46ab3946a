package index

import (
	"context"
	"math"
	"sort"
	"sync"

	"civic-smart-go/internal/model"
)

// MemoryIndex 是一个纯内存的向量索引实现：持有全部条目，
// 查询时对所有向量做暴力余弦相似度计算。
//
// 只适合小规模语料（几千个分块以内）与单测场景；进程重启后数据丢失。
// 生产路径请使用 EsIndex，它以 chunk_id 为键做持久化存储。
type MemoryIndex struct {
	mu      sync.RWMutex
	dim     int
	entries map[string]model.IndexEntry
	order   []string // 插入顺序，用于稳定的同分排序
}

// NewMemoryIndex 创建一个空的内存索引。维度在首次 Upsert 时确立。
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{entries: make(map[string]model.IndexEntry)}
}

// Upsert 批量写入条目，同 ID 覆盖旧条目（保留其插入位置）。
func (m *MemoryIndex) Upsert(ctx context.Context, entries []model.IndexEntry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	// 先整体校验维度，保证一批写入不会只写一半
	dim := m.dim
	for _, e := range entries {
		if dim == 0 {
			dim = len(e.Vector)
		}
		if len(e.Vector) == 0 || len(e.Vector) != dim {
			return 0, model.ErrDimensionMismatch
		}
	}
	m.dim = dim

	for _, e := range entries {
		if _, exists := m.entries[e.Chunk.ID]; !exists {
			m.order = append(m.order, e.Chunk.ID)
		}
		m.entries[e.Chunk.ID] = e
	}
	return len(entries), nil
}

// Query 返回与查询向量最相似的至多 k 个分块，按相似度降序。
func (m *MemoryIndex) Query(ctx context.Context, vector []float32, k int) ([]model.ScoredChunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.entries) == 0 || k <= 0 {
		return []model.ScoredChunk{}, nil
	}
	if m.dim != 0 && len(vector) != m.dim {
		return nil, model.ErrDimensionMismatch
	}

	scored := make([]model.ScoredChunk, 0, len(m.order))
	for _, id := range m.order {
		e := m.entries[id]
		scored = append(scored, model.ScoredChunk{
			Chunk: e.Chunk,
			Score: cosineSimilarity(vector, e.Vector),
		})
	}

	// 按插入顺序遍历 + 稳定排序，保证同分时先插入者在前
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k], nil
}

// Delete 按 ID 删除条目，不存在的 ID 被忽略。
func (m *MemoryIndex) Delete(ctx context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := m.entries[id]; ok {
			delete(m.entries, id)
			removed[id] = struct{}{}
		}
	}
	if len(removed) == 0 {
		return nil
	}
	kept := m.order[:0]
	for _, id := range m.order {
		if _, gone := removed[id]; !gone {
			kept = append(kept, id)
		}
	}
	m.order = kept
	return nil
}

// Size 返回当前条目数。
func (m *MemoryIndex) Size(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries), nil
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
