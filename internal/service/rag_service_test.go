package service

import (
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"strings"
	"testing"

	"civic-smart-go/internal/chunker"
	"civic-smart-go/internal/composer"
	"civic-smart-go/internal/config"
	"civic-smart-go/internal/extract"
	"civic-smart-go/internal/index"
	"civic-smart-go/internal/pipeline"
	"civic-smart-go/internal/retriever"
	"civic-smart-go/pkg/llm"
	"civic-smart-go/pkg/log"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	log.InitForTest()
	m.Run()
}

// keywordEmbedder 按关键词返回确定性向量，使语义相近的
// 文本落在同一方向上，便于端到端验证检索排序。
type keywordEmbedder struct {
	err error
}

func (k *keywordEmbedder) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if k.err != nil {
		return nil, k.err
	}
	switch {
	case strings.Contains(text, "避難所"):
		return []float32{1, 0, 0}, nil
	case strings.Contains(text, "ゴミ"):
		return []float32{0, 1, 0}, nil
	default:
		return []float32{0, 0, 1}, nil
	}
}

type recordingLLM struct {
	answer string
	calls  int
}

func (r *recordingLLM) Generate(ctx context.Context, messages []llm.Message, gen *llm.GenerationParams) (string, error) {
	r.calls++
	return r.answer, nil
}

type noopOCR struct{}

func (noopOCR) RecognizeText(ctx context.Context, image []byte, languages []string) (string, error) {
	return "", errors.New("ocr unavailable")
}

func newTestService(embedder *keywordEmbedder, llmClient *recordingLLM, noResultText string) RAGService {
	idx := index.NewMemoryIndex()
	ragCfg := config.RAGConfig{TopK: 3, MinScore: 0.25}
	extractor := extract.NewExtractor(noopOCR{}, config.OCRConfig{}, ragCfg)
	processor := pipeline.NewProcessor(extractor, chunker.New(400, 0), embedder, idx, nil, nil, "test-model", 2, 1)
	ret := retriever.New(embedder, idx, ragCfg)
	comp := composer.New(llmClient, config.LLMPromptConfig{NoResultText: noResultText})
	return NewRAGService(processor, ret, comp, nil)
}

func TestIngestDocumentUsesContentHashAsID(t *testing.T) {
	svc := newTestService(&keywordEmbedder{}, &recordingLLM{answer: "ok"}, "")

	data := []byte("避難所の場所は市役所です")
	result, err := svc.IngestDocument(context.Background(), "bousai.txt", data)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("%x", md5.Sum(data)), result.DocumentID)
	assert.Equal(t, 1, result.ChunksIndexed)
}

func TestAnswerQuestionReturnsCitedAnswer(t *testing.T) {
	llmClient := &recordingLLM{answer: "避難所は市役所です。(bousai.txt p.1)"}
	svc := newTestService(&keywordEmbedder{}, llmClient, "")

	_, err := svc.IngestDocument(context.Background(), "bousai.txt", []byte("避難所の場所は市役所です"))
	require.NoError(t, err)
	_, err = svc.IngestDocument(context.Background(), "gomi.txt", []byte("燃えるゴミは毎週月曜日です"))
	require.NoError(t, err)

	result, err := svc.AnswerQuestion(context.Background(), "避難所はどこですか")
	require.NoError(t, err)
	assert.True(t, result.Grounded)
	assert.Equal(t, llmClient.answer, result.Answer)

	// 正交方向的ゴミ分块被阈值过滤，引用只指向防災资料
	citations := result.Citations()
	require.Len(t, citations, 1)
	assert.Equal(t, "bousai.txt", citations[0].Source)
	assert.Equal(t, 1, citations[0].Page)
}

func TestAnswerQuestionEmptyKnowledgeBaseRefuses(t *testing.T) {
	llmClient := &recordingLLM{answer: "should not be used"}
	svc := newTestService(&keywordEmbedder{}, llmClient, "該当する資料がありません")

	result, err := svc.AnswerQuestion(context.Background(), "避難所はどこですか")
	require.NoError(t, err)

	// 知识库为空：固定拒答，不调用生成模型
	assert.False(t, result.Grounded)
	assert.Equal(t, "該当する資料がありません", result.Answer)
	assert.Zero(t, llmClient.calls)
	assert.Empty(t, result.Citations())
}

func TestAnswerQuestionRejectsBlankQuestion(t *testing.T) {
	svc := newTestService(&keywordEmbedder{}, &recordingLLM{}, "")

	_, err := svc.AnswerQuestion(context.Background(), "   ")
	require.Error(t, err)
}

func TestAnswerQuestionEmbedderFailureIsError(t *testing.T) {
	embedder := &keywordEmbedder{err: errors.New("embedding api unavailable")}
	idx := index.NewMemoryIndex()
	ragCfg := config.RAGConfig{TopK: 3, MinScore: 0.25}
	extractor := extract.NewExtractor(noopOCR{}, config.OCRConfig{}, ragCfg)
	processor := pipeline.NewProcessor(extractor, chunker.New(400, 0), embedder, idx, nil, nil, "test-model", 2, 1)
	ret := retriever.New(embedder, idx, ragCfg)
	comp := composer.New(&recordingLLM{}, config.LLMPromptConfig{})
	svc := NewRAGService(processor, ret, comp, nil)

	_, err := svc.AnswerQuestion(context.Background(), "避難所はどこですか")
	require.Error(t, err)
}
