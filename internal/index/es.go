package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"civic-smart-go/internal/model"
	"civic-smart-go/pkg/log"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// esDocument 是分块在 Elasticsearch 中的存储结构。
type esDocument struct {
	ChunkID      string    `json:"chunk_id"`
	DocumentID   string    `json:"document_id"`
	DocumentName string    `json:"document_name"`
	Page         int       `json:"page"`
	Seq          int       `json:"seq"`
	TextContent  string    `json:"text_content"`
	Method       string    `json:"method"`
	Vector       []float32 `json:"vector"`
	ModelVersion string    `json:"model_version"`
}

// EsIndex 是 VectorIndex 的 Elasticsearch 后端实现，基于 dense_vector + kNN。
// ES 文档 ID 即 chunk_id，因此重复摄取同一文档是替换而非追加。
type EsIndex struct {
	client       *elasticsearch.Client
	indexName    string
	dims         int
	modelVersion string
}

// NewEsIndex 创建一个绑定到指定索引的 EsIndex。
// dims 是索引声明的向量维度（建索引时已固定），写入前在客户端先行校验。
func NewEsIndex(client *elasticsearch.Client, indexName string, dims int, modelVersion string) *EsIndex {
	return &EsIndex{client: client, indexName: indexName, dims: dims, modelVersion: modelVersion}
}

// Upsert 将条目批量写入 Elasticsearch，同 chunk_id 覆盖旧文档。
func (e *EsIndex) Upsert(ctx context.Context, entries []model.IndexEntry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	for _, entry := range entries {
		if len(entry.Vector) != e.dims {
			return 0, fmt.Errorf("块 %s 向量维度 %d 与索引维度 %d 不一致: %w",
				entry.Chunk.ID, len(entry.Vector), e.dims, model.ErrDimensionMismatch)
		}
	}

	// 整批拼成一次 _bulk 请求：NDJSON 的 action 行带 _id（即 chunk_id），
	// 整批只触发一次 refresh。
	var buf bytes.Buffer
	for _, entry := range entries {
		doc := esDocument{
			ChunkID:      entry.Chunk.ID,
			DocumentID:   entry.Chunk.DocumentID,
			DocumentName: entry.Chunk.DocumentName,
			Page:         entry.Chunk.Page,
			Seq:          entry.Chunk.Seq,
			TextContent:  entry.Chunk.Text,
			Method:       string(entry.Chunk.Method),
			Vector:       entry.Vector,
			ModelVersion: e.modelVersion,
		}
		meta, err := json.Marshal(map[string]interface{}{
			"index": map[string]string{"_id": doc.ChunkID},
		})
		if err != nil {
			return 0, err
		}
		docBytes, err := json.Marshal(doc)
		if err != nil {
			return 0, err
		}
		buf.Write(meta)
		buf.WriteByte('\n')
		buf.Write(docBytes)
		buf.WriteByte('\n')
	}

	req := esapi.BulkRequest{
		Index:   e.indexName,
		Body:    &buf,
		Refresh: "true",
	}
	res, err := req.Do(ctx, e.client)
	if err != nil {
		return 0, fmt.Errorf("批量索引 %d 个分块到 Elasticsearch 失败: %w", len(entries), err)
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Errorf("[EsIndex] 批量索引到 Elasticsearch 出错: %s", res.String())
		return 0, fmt.Errorf("批量索引时 Elasticsearch 返回错误: %s", res.Status())
	}

	var bulkResp struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			Status int             `json:"status"`
			Error  json.RawMessage `json:"error"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&bulkResp); err != nil {
		return 0, fmt.Errorf("failed to decode bulk response: %w", err)
	}
	if !bulkResp.Errors {
		return len(entries), nil
	}

	indexed := 0
	for _, item := range bulkResp.Items {
		for _, action := range item {
			if action.Status < 300 {
				indexed++
			} else {
				log.Errorf("[EsIndex] 批量索引中单条写入失败, status: %d, error: %s",
					action.Status, string(action.Error))
			}
		}
	}
	return indexed, fmt.Errorf("批量索引部分失败: %d/%d 条写入成功", indexed, len(entries))
}

// Query 执行 kNN 检索，返回至多 k 条按相似度降序排列的候选。
func (e *EsIndex) Query(ctx context.Context, vector []float32, k int) ([]model.ScoredChunk, error) {
	if k <= 0 {
		return []model.ScoredChunk{}, nil
	}
	if len(vector) != e.dims {
		return nil, model.ErrDimensionMismatch
	}

	var buf bytes.Buffer
	esQuery := map[string]interface{}{
		"knn": map[string]interface{}{
			"field":          "vector",
			"query_vector":   vector,
			"k":              k,
			"num_candidates": k * 10,
		},
		"size": k,
	}
	if err := json.NewEncoder(&buf).Encode(esQuery); err != nil {
		return nil, fmt.Errorf("failed to encode es query: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithContext(ctx),
		e.client.Search.WithIndex(e.indexName),
		e.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		bodyBytes, _ := io.ReadAll(res.Body)
		log.Errorf("[EsIndex] Elasticsearch 返回错误, status: %s, body: %s", res.Status(), string(bodyBytes))
		return nil, fmt.Errorf("elasticsearch returned an error: %s", res.Status())
	}

	var esResponse struct {
		Hits struct {
			Hits []struct {
				Source esDocument `json:"_source"`
				Score  float64    `json:"_score"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&esResponse); err != nil {
		return nil, fmt.Errorf("failed to decode es response: %w", err)
	}

	results := make([]model.ScoredChunk, 0, len(esResponse.Hits.Hits))
	for _, hit := range esResponse.Hits.Hits {
		results = append(results, model.ScoredChunk{
			Chunk: model.Chunk{
				ID:           hit.Source.ChunkID,
				DocumentID:   hit.Source.DocumentID,
				DocumentName: hit.Source.DocumentName,
				Page:         hit.Source.Page,
				Seq:          hit.Source.Seq,
				Text:         hit.Source.TextContent,
				Method:       model.ExtractionMethod(hit.Source.Method),
			},
			// ES 对 cosine 的 _score 是 (1 + cosine) / 2，还原为余弦值
			// 以便与 MemoryIndex 的得分语义一致。
			Score: hit.Score*2 - 1,
		})
	}
	return results, nil
}

// Delete 按 chunk_id 删除文档，不存在的 ID 被忽略。
func (e *EsIndex) Delete(ctx context.Context, ids []string) error {
	for _, id := range ids {
		req := esapi.DeleteRequest{
			Index:      e.indexName,
			DocumentID: id,
			Refresh:    "true",
		}
		res, err := req.Do(ctx, e.client)
		if err != nil {
			return fmt.Errorf("从 Elasticsearch 删除块 %s 失败: %w", id, err)
		}
		// 404 表示该 ID 本就不存在，忽略
		if res.IsError() && res.StatusCode != 404 {
			res.Body.Close()
			return fmt.Errorf("删除块 %s 时 Elasticsearch 返回错误: %s", id, res.Status())
		}
		res.Body.Close()
	}
	return nil
}

// Size 返回索引中的文档总数。
func (e *EsIndex) Size(ctx context.Context) (int, error) {
	res, err := e.client.Count(
		e.client.Count.WithContext(ctx),
		e.client.Count.WithIndex(e.indexName),
	)
	if err != nil {
		return 0, fmt.Errorf("elasticsearch count failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, fmt.Errorf("elasticsearch count returned an error: %s", res.Status())
	}

	var countResp struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&countResp); err != nil {
		return 0, fmt.Errorf("failed to decode count response: %w", err)
	}
	return countResp.Count, nil
}
