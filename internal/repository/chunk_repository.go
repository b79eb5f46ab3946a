// Package repository 封装了对 MySQL 的数据访问。
package repository

import (
	"civic-smart-go/internal/model"

	"gorm.io/gorm"
)

// ChunkRepository 定义了对 chunk_records 表的数据操作接口。
// 分块文本在向量化之前先落库（阶段一），作为可重建索引的持久副本。
type ChunkRepository interface {
	ReplaceForDocument(documentID string, records []*model.ChunkRecord) error
	FindByDocumentID(documentID string) ([]*model.ChunkRecord, error)
	DeleteByDocumentID(documentID string) error
}

type chunkRepository struct {
	db *gorm.DB
}

// NewChunkRepository 创建一个新的 ChunkRepository 实例。
func NewChunkRepository(db *gorm.DB) ChunkRepository {
	return &chunkRepository{db: db}
}

// ReplaceForDocument 以文档为单位整体替换分块记录（幂等重摄取）。
func (r *chunkRepository) ReplaceForDocument(documentID string, records []*model.ChunkRecord) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", documentID).Delete(&model.ChunkRecord{}).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		return tx.CreateInBatches(records, 100).Error
	})
}

// FindByDocumentID 按文档查找所有分块记录，按序号排列。
func (r *chunkRepository) FindByDocumentID(documentID string) ([]*model.ChunkRecord, error) {
	var records []*model.ChunkRecord
	err := r.db.Where("document_id = ?", documentID).Order("seq").Find(&records).Error
	return records, err
}

// DeleteByDocumentID 按文档删除所有分块记录。
func (r *chunkRepository) DeleteByDocumentID(documentID string) error {
	return r.db.Where("document_id = ?", documentID).Delete(&model.ChunkRecord{}).Error
}
