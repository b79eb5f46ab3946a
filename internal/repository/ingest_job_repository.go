package repository

import (
	"civic-smart-go/internal/model"

	"gorm.io/gorm"
)

// IngestJobRepository 定义了对 ingest_jobs 表的数据操作接口，
// 用于持久化摄取任务的状态机轨迹与最终计数。
type IngestJobRepository interface {
	Create(job *model.IngestJob) error
	UpdateState(jobID, state string) error
	Finish(jobID, state string, indexed, failed int, failReason string) error
	FindByDocumentID(documentID string) ([]*model.IngestJob, error)
}

type ingestJobRepository struct {
	db *gorm.DB
}

// NewIngestJobRepository 创建一个新的 IngestJobRepository 实例。
func NewIngestJobRepository(db *gorm.DB) IngestJobRepository {
	return &ingestJobRepository{db: db}
}

func (r *ingestJobRepository) Create(job *model.IngestJob) error {
	return r.db.Create(job).Error
}

// UpdateState 推进任务状态。
func (r *ingestJobRepository) UpdateState(jobID, state string) error {
	return r.db.Model(&model.IngestJob{}).
		Where("job_id = ?", jobID).
		Update("state", state).Error
}

// Finish 将任务置为终态并写入结果计数。
func (r *ingestJobRepository) Finish(jobID, state string, indexed, failed int, failReason string) error {
	return r.db.Model(&model.IngestJob{}).
		Where("job_id = ?", jobID).
		Updates(map[string]interface{}{
			"state":          state,
			"chunks_indexed": indexed,
			"chunks_failed":  failed,
			"fail_reason":    failReason,
		}).Error
}

func (r *ingestJobRepository) FindByDocumentID(documentID string) ([]*model.IngestJob, error) {
	var jobs []*model.IngestJob
	err := r.db.Where("document_id = ?", documentID).Order("created_at desc").Find(&jobs).Error
	return jobs, err
}
