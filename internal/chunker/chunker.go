// Package chunker 把页文本切分为有界、可重叠的分块。
//
// 采用按字符（rune）计数的固定窗口策略：窗口默认 400 字符、重叠默认 0，
// 窗口每次前进 window - overlap 个字符。这一策略使分块边界完全确定，
// 同一文档重复切分必然得到相同的分块序列与标识。
package chunker

import (
	"strings"

	"civic-smart-go/internal/model"
)

const (
	defaultChunkSize = 400
	defaultOverlap   = 0
)

// Chunker 按固定窗口切分页文本。
type Chunker struct {
	chunkSize int
	overlap   int
}

// New 创建一个 Chunker。非法参数回落到默认值（窗口 400，重叠 0）。
func New(chunkSize, overlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = defaultOverlap
	}
	return &Chunker{chunkSize: chunkSize, overlap: overlap}
}

// Chunk 将一份文档的所有页切分为分块序列。
//
// 序号在整份文档内单调递增，与文档标识一起构成确定性的分块 ID；
// 全空白的窗口直接丢弃，不会生成空分块。OCR 失败的页（Method=failed）
// 文本为空，自然不产出任何分块——即不为其保留页对齐占位。
func (c *Chunker) Chunk(doc model.Document, pages []model.Page) []model.Chunk {
	chunks := make([]model.Chunk, 0)
	seq := 0
	for _, page := range pages {
		for _, window := range c.split(page.Text) {
			chunks = append(chunks, model.Chunk{
				ID:           model.ChunkID(doc.ID, seq),
				DocumentID:   doc.ID,
				DocumentName: doc.Name,
				Page:         page.Number,
				Seq:          seq,
				Text:         window,
				Method:       page.Method,
			})
			seq++
		}
	}
	return chunks
}

// split 对单页文本做固定窗口切分，丢弃全空白窗口。
func (c *Chunker) split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := c.chunkSize - c.overlap
	var windows []string
	for i := 0; i < len(runes); i += step {
		end := i + c.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		window := strings.TrimSpace(string(runes[i:end]))
		if window != "" {
			windows = append(windows, window)
		}
		if end == len(runes) {
			break
		}
	}
	return windows
}
