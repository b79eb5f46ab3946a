// Package tasks defines the structure for tasks that are sent to Kafka.
package tasks

// DocumentTask represents an ingestion job for one uploaded document.
// 文档字节已暂存在 MinIO，消费者按 ObjectName 取回后交给核心摄取。
type DocumentTask struct {
	DocumentID string `json:"document_id"`
	FileName   string `json:"file_name"`
	ObjectName string `json:"object_name"`
}
