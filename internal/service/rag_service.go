// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"crypto/md5"
	"fmt"
	"strings"

	"civic-smart-go/internal/composer"
	"civic-smart-go/internal/model"
	"civic-smart-go/internal/pipeline"
	"civic-smart-go/internal/repository"
	"civic-smart-go/internal/retriever"
	"civic-smart-go/pkg/log"

	"github.com/google/uuid"
)

// RAGService 是核心对宿主应用暴露的仅有的两个操作：
// 摄取一份文档，以及回答一个问题。授权、文件存储、病毒扫描
// 都是调用方的职责。
type RAGService interface {
	IngestDocument(ctx context.Context, name string, data []byte) (model.IngestResult, error)
	AnswerQuestion(ctx context.Context, question string) (model.AnswerResult, error)
}

type ragService struct {
	processor *pipeline.Processor
	retriever *retriever.Retriever
	composer  *composer.Composer
	jobRepo   repository.IngestJobRepository // 可为 nil
}

// NewRAGService 创建一个新的 RAGService 实例。
func NewRAGService(
	processor *pipeline.Processor,
	retriever *retriever.Retriever,
	composer *composer.Composer,
	jobRepo repository.IngestJobRepository,
) RAGService {
	return &ragService{
		processor: processor,
		retriever: retriever,
		composer:  composer,
		jobRepo:   jobRepo,
	}
}

// IngestDocument 将一份文档摄取进知识库。
// 文档标识取内容的 MD5，重复摄取同一内容是幂等的替换。
func (s *ragService) IngestDocument(ctx context.Context, name string, data []byte) (model.IngestResult, error) {
	doc := model.Document{
		ID:   fmt.Sprintf("%x", md5.Sum(data)),
		Name: name,
		Data: data,
	}

	job := &model.IngestJob{
		JobID:        uuid.NewString(),
		DocumentID:   doc.ID,
		DocumentName: doc.Name,
		State:        model.JobStateReceived,
	}
	if s.jobRepo != nil {
		if err := s.jobRepo.Create(job); err != nil {
			log.Warnf("[RAGService] 创建摄取任务记录失败 (document_id=%s): %v", doc.ID, err)
		}
	}

	return s.processor.Ingest(ctx, job, doc)
}

// AnswerQuestion 用知识库中的资料回答一个问题。
// 检索不到相关资料是正常结果（grounded=false 的固定拒答），
// 只有供应商失败才返回 error。
func (s *ragService) AnswerQuestion(ctx context.Context, question string) (model.AnswerResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return model.AnswerResult{}, fmt.Errorf("问题为空")
	}

	candidates, err := s.retriever.Retrieve(ctx, question, 0)
	if err != nil {
		return model.AnswerResult{}, fmt.Errorf("检索失败: %w", err)
	}

	result := s.composer.Compose(ctx, question, candidates)
	if result.Err != nil {
		// 原始错误只记日志，最终用户看到的是兜底文案
		log.Errorf("[RAGService] 回答生成降级为兜底文案: %v", result.Err)
	}
	return result, nil
}
