package service

import (
	"context"
	"fmt"

	"civic-smart-go/pkg/log"
	"civic-smart-go/pkg/storage"
	"civic-smart-go/pkg/tasks"
)

// IngestTaskProcessor 消费 Kafka 文档摄取任务：
// 从 MinIO 取回暂存的原始字节，交给 RAGService 完成摄取。
type IngestTaskProcessor struct {
	ragService RAGService
	bucketName string
}

// NewIngestTaskProcessor 创建一个新的 IngestTaskProcessor 实例。
func NewIngestTaskProcessor(ragService RAGService, bucketName string) *IngestTaskProcessor {
	return &IngestTaskProcessor{
		ragService: ragService,
		bucketName: bucketName,
	}
}

// Process 处理一个文档摄取任务。返回 error 时消费者会按重试策略重投。
func (p *IngestTaskProcessor) Process(ctx context.Context, task tasks.DocumentTask) error {
	data, err := storage.GetDocument(ctx, p.bucketName, task.ObjectName)
	if err != nil {
		return fmt.Errorf("从 MinIO 取回文档失败 (object=%s): %w", task.ObjectName, err)
	}

	result, err := p.ragService.IngestDocument(ctx, task.FileName, data)
	if err != nil {
		return fmt.Errorf("文档摄取失败 (document_id=%s): %w", task.DocumentID, err)
	}

	log.Infof("[IngestTaskProcessor] 文档摄取完成: document_id=%s, indexed=%d, failed=%d",
		result.DocumentID, result.ChunksIndexed, result.ChunksFailed)
	return nil
}
