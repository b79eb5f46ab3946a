package retriever

import (
	"context"
	"errors"
	"testing"

	"civic-smart-go/internal/config"
	"civic-smart-go/internal/index"
	"civic-smart-go/internal/model"
	"civic-smart-go/pkg/log"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	log.InitForTest()
	m.Run()
}

// fakeEmbedder 对任何输入返回固定向量或固定错误。
type fakeEmbedder struct {
	vector []float32
	err    error
}

func (f *fakeEmbedder) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

func seedIndex(t *testing.T, entries ...model.IndexEntry) *index.MemoryIndex {
	t.Helper()
	m := index.NewMemoryIndex()
	if len(entries) > 0 {
		_, err := m.Upsert(context.Background(), entries)
		require.NoError(t, err)
	}
	return m
}

func TestRetrieveFiltersByMinScore(t *testing.T) {
	idx := seedIndex(t,
		model.IndexEntry{Chunk: model.Chunk{ID: "hit", Text: "避難所の場所"}, Vector: []float32{1, 0}},
		model.IndexEntry{Chunk: model.Chunk{ID: "noise", Text: "関係ない話"}, Vector: []float32{0, 1}},
	)
	r := New(&fakeEmbedder{vector: []float32{1, 0}}, idx, config.RAGConfig{TopK: 3, MinScore: 0.25})

	results, err := r.Retrieve(context.Background(), "避難所はどこですか", 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "hit", results[0].Chunk.ID)
	assert.GreaterOrEqual(t, results[0].Score, 0.25)
}

func TestRetrieveEmptyIndexIsNormalOutcome(t *testing.T) {
	r := New(&fakeEmbedder{vector: []float32{1, 0}}, seedIndex(t), config.RAGConfig{})

	results, err := r.Retrieve(context.Background(), "避難所はどこですか", 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRetrieveEmbedderFailureIsError(t *testing.T) {
	providerErr := errors.New("embedding api returned non-200 status")
	r := New(&fakeEmbedder{err: providerErr}, seedIndex(t), config.RAGConfig{})

	results, err := r.Retrieve(context.Background(), "避難所はどこですか", 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, providerErr)
	assert.Nil(t, results)
}

func TestRetrieveRespectsTopK(t *testing.T) {
	idx := seedIndex(t,
		model.IndexEntry{Chunk: model.Chunk{ID: "a"}, Vector: []float32{1, 0}},
		model.IndexEntry{Chunk: model.Chunk{ID: "b"}, Vector: []float32{0.9, 0.1}},
		model.IndexEntry{Chunk: model.Chunk{ID: "c"}, Vector: []float32{0.8, 0.2}},
		model.IndexEntry{Chunk: model.Chunk{ID: "d"}, Vector: []float32{0.7, 0.3}},
	)
	r := New(&fakeEmbedder{vector: []float32{1, 0}}, idx, config.RAGConfig{TopK: 3, MinScore: 0.1})

	results, err := r.Retrieve(context.Background(), "question", 0)
	require.NoError(t, err)
	assert.Len(t, results, 3)

	// 显式 k 覆盖配置值
	results, err = r.Retrieve(context.Background(), "question", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, "a", results[0].Chunk.ID)
}
