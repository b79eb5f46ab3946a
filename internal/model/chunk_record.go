package model

import "time"

// ChunkRecord 对应于数据库中的 chunk_records 表。
// 作为分块文本的持久副本（阶段一落库），以 chunk_id 为主键支撑幂等重建。
type ChunkRecord struct {
	ChunkID      string `gorm:"primaryKey;type:varchar(64);column:chunk_id"`
	DocumentID   string `gorm:"type:varchar(32);not null;index;column:document_id"`
	DocumentName string `gorm:"type:varchar(255);column:document_name"`
	Page         int    `gorm:"not null;column:page"`
	Seq          int    `gorm:"not null;column:seq"`
	TextContent  string `gorm:"type:text;column:text_content"`
	Method       string `gorm:"type:varchar(16);column:method"`
	ModelVersion string `gorm:"type:varchar(50);column:model_version"`
}

func (ChunkRecord) TableName() string {
	return "chunk_records"
}

// 摄取任务的状态机：received → extracting → chunking → embedding → indexed，
// 任一阶段出现不可恢复错误则进入 failed。
const (
	JobStateReceived   = "received"
	JobStateExtracting = "extracting"
	JobStateChunking   = "chunking"
	JobStateEmbedding  = "embedding"
	JobStateIndexed    = "indexed"
	JobStateFailed     = "failed"
)

// IngestJob 对应于数据库中的 ingest_jobs 表，记录每次摄取任务的状态与结果。
type IngestJob struct {
	JobID         string    `gorm:"primaryKey;type:varchar(36);column:job_id"`
	DocumentID    string    `gorm:"type:varchar(32);not null;index;column:document_id"`
	DocumentName  string    `gorm:"type:varchar(255);column:document_name"`
	State         string    `gorm:"type:varchar(16);not null;column:state"`
	ChunksIndexed int       `gorm:"column:chunks_indexed"`
	ChunksFailed  int       `gorm:"column:chunks_failed"`
	FailReason    string    `gorm:"type:varchar(500);column:fail_reason"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

func (IngestJob) TableName() string {
	return "ingest_jobs"
}
