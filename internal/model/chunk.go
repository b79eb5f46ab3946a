package model

import "fmt"

// Chunk 是嵌入与检索的最小单元：一段有界的文档文本，
// 携带足够的元数据以便在回答中标注出处（文件名 + 页码）。
type Chunk struct {
	ID           string           `json:"chunk_id"`
	DocumentID   string           `json:"document_id"`
	DocumentName string           `json:"document_name"`
	Page         int              `json:"page"`
	Seq          int              `json:"seq"`
	Text         string           `json:"text"`
	Method       ExtractionMethod `json:"method"`
}

// ChunkID 由文档标识与序号确定性地生成，重复摄取同一文档
// 会得到相同的标识，从而实现幂等的 upsert 而非重复写入。
func ChunkID(documentID string, seq int) string {
	return fmt.Sprintf("%s_%d", documentID, seq)
}

// IndexEntry 是 Chunk 与其嵌入向量的组合，upsert 之后由向量索引独占持有。
type IndexEntry struct {
	Chunk  Chunk
	Vector []float32
}

// ScoredChunk 是一次检索命中的候选：分块与相似度得分（余弦相似度）。
type ScoredChunk struct {
	Chunk Chunk
	Score float64
}

// Citation 是返回给调用方的引用信息。
type Citation struct {
	Source string `json:"source"`
	Page   int    `json:"page"`
}

// IngestResult 汇报一次文档摄取的结果。部分分块嵌入失败时
// 以计数形式上报，而不是整体失败。
type IngestResult struct {
	DocumentID    string `json:"document_id"`
	ChunksIndexed int    `json:"chunks_indexed"`
	ChunksFailed  int    `json:"chunks_failed"`
}

// AnswerResult 是一次问答的最终结果。Grounded 为 true 表示至少
// 有一个分块超过了相似度阈值；Err 仅供调用方记录日志，
// Answer 中永远不会出现原始的供应商错误。
type AnswerResult struct {
	Answer   string
	Contexts []Chunk
	Grounded bool
	Err      error
}

// Citations 按上下文顺序生成引用列表。
func (r AnswerResult) Citations() []Citation {
	citations := make([]Citation, 0, len(r.Contexts))
	for _, c := range r.Contexts {
		citations = append(citations, Citation{Source: c.DocumentName, Page: c.Page})
	}
	return citations
}
