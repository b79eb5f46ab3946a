package chunker

import (
	"strings"
	"testing"

	"civic-smart-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkSplitsLongPages(t *testing.T) {
	c := New(400, 0)
	doc := model.Document{ID: "doc1", Name: "guide.txt"}
	pages := []model.Page{
		{DocumentID: "doc1", Number: 1, Text: strings.Repeat("あ", 500), Method: model.MethodNative},
		{DocumentID: "doc1", Number: 2, Text: strings.Repeat("い", 500), Method: model.MethodNative},
		{DocumentID: "doc1", Number: 3, Text: strings.Repeat("う", 500), Method: model.MethodNative},
	}

	chunks := c.Chunk(doc, pages)
	require.Len(t, chunks, 6)

	// 每页 500 字符 → 400 + 100
	assert.Equal(t, 400, len([]rune(chunks[0].Text)))
	assert.Equal(t, 100, len([]rune(chunks[1].Text)))
	assert.Equal(t, 1, chunks[0].Page)
	assert.Equal(t, 1, chunks[1].Page)
	assert.Equal(t, 2, chunks[2].Page)

	// 序号全文档单调递增，ID 由文档标识与序号确定性生成
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Seq)
		assert.Equal(t, model.ChunkID("doc1", i), chunk.ID)
		assert.Equal(t, "guide.txt", chunk.DocumentName)
	}
}

func TestChunkIsDeterministic(t *testing.T) {
	c := New(400, 0)
	doc := model.Document{ID: "doc1", Name: "guide.txt"}
	pages := []model.Page{
		{Number: 1, Text: strings.Repeat("燃えるゴミは月曜日です。", 60), Method: model.MethodNative},
	}

	first := c.Chunk(doc, pages)
	second := c.Chunk(doc, pages)
	require.Equal(t, first, second)
}

func TestChunkOverlapAdvancesByStep(t *testing.T) {
	c := New(10, 4)
	doc := model.Document{ID: "d"}
	pages := []model.Page{{Number: 1, Text: "abcdefghijklmnopqrst", Method: model.MethodNative}}

	chunks := c.Chunk(doc, pages)
	require.GreaterOrEqual(t, len(chunks), 3)
	assert.Equal(t, "abcdefghij", chunks[0].Text)
	// 窗口每次前进 chunkSize - overlap = 6 个字符
	assert.Equal(t, "ghijklmnop", chunks[1].Text)
}

func TestChunkDropsWhitespaceOnlyWindows(t *testing.T) {
	c := New(5, 0)
	doc := model.Document{ID: "d"}
	pages := []model.Page{{Number: 1, Text: "abcde     fghij", Method: model.MethodNative}}

	chunks := c.Chunk(doc, pages)
	require.Len(t, chunks, 2)
	assert.Equal(t, "abcde", chunks[0].Text)
	assert.Equal(t, "fghij", chunks[1].Text)
	// 全空白窗口被丢弃，但序号依旧连续
	assert.Equal(t, 0, chunks[0].Seq)
	assert.Equal(t, 1, chunks[1].Seq)
}

func TestChunkSkipsEmptyPages(t *testing.T) {
	c := New(400, 0)
	doc := model.Document{ID: "d"}
	pages := []model.Page{
		{Number: 1, Text: "", Method: model.MethodFailed},
		{Number: 2, Text: "避難所の場所は市役所です", Method: model.MethodOCR},
	}

	chunks := c.Chunk(doc, pages)
	require.Len(t, chunks, 1)
	assert.Equal(t, 2, chunks[0].Page)
	assert.Equal(t, model.MethodOCR, chunks[0].Method)
	assert.Equal(t, 0, chunks[0].Seq)
}

func TestNewFallsBackToDefaults(t *testing.T) {
	c := New(0, -1)
	assert.Equal(t, 400, c.chunkSize)
	assert.Equal(t, 0, c.overlap)

	// overlap >= chunkSize 同样非法
	c = New(10, 10)
	assert.Equal(t, 0, c.overlap)
}
