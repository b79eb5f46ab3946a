// Package pipeline 定义了文档摄取的核心流程。
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"civic-smart-go/internal/chunker"
	"civic-smart-go/internal/extract"
	"civic-smart-go/internal/index"
	"civic-smart-go/internal/model"
	"civic-smart-go/internal/repository"
	"civic-smart-go/pkg/embedding"
	"civic-smart-go/pkg/log"

	"golang.org/x/sync/errgroup"
)

const (
	defaultEmbedWorkers  = 4
	defaultEmbedAttempts = 3
	embedBackoffBase     = 500 * time.Millisecond
)

// Processor 封装了文档摄取的所有依赖和逻辑：
// 提取 → 分块 → 落库 → 并发向量化 → 批量写入向量索引。
type Processor struct {
	extractor    *extract.Extractor
	chunkr       *chunker.Chunker
	embedder     embedding.Client
	idx          index.VectorIndex
	chunkRepo    repository.ChunkRepository   // 可为 nil（纯内存部署）
	jobRepo      repository.IngestJobRepository // 可为 nil
	modelVersion string
	workers      int
	maxAttempts  int
}

// NewProcessor 创建一个新的 Processor 实例。
// workers 限定并发向量化的上限（默认 4），maxAttempts 是单块嵌入的
// 最大尝试次数（默认 3，指数退避）。
func NewProcessor(
	extractor *extract.Extractor,
	chunkr *chunker.Chunker,
	embedder embedding.Client,
	idx index.VectorIndex,
	chunkRepo repository.ChunkRepository,
	jobRepo repository.IngestJobRepository,
	modelVersion string,
	workers int,
	maxAttempts int,
) *Processor {
	if workers <= 0 {
		workers = defaultEmbedWorkers
	}
	if maxAttempts <= 0 {
		maxAttempts = defaultEmbedAttempts
	}
	return &Processor{
		extractor:    extractor,
		chunkr:       chunkr,
		embedder:     embedder,
		idx:          idx,
		chunkRepo:    chunkRepo,
		jobRepo:      jobRepo,
		modelVersion: modelVersion,
		workers:      workers,
		maxAttempts:  maxAttempts,
	}
}

// Ingest 是文档摄取的主函数。
//
// 部分分块嵌入失败不会让整次摄取失败：成功的分块照常入索引，
// 结果以 chunks_indexed / chunks_failed 计数上报。只有结构性错误
// （文档不可读、全页为空、维度不匹配、全部分块嵌入失败）才返回 error。
func (p *Processor) Ingest(ctx context.Context, job *model.IngestJob, doc model.Document) (model.IngestResult, error) {
	log.Infof("[Processor] 开始处理文档, DocumentID: %s, Name: %s", doc.ID, doc.Name)

	// 1. 提取
	p.advance(job, model.JobStateExtracting)
	pages, err := p.extractor.Extract(ctx, doc)
	if err != nil {
		p.fail(job, err)
		return model.IngestResult{DocumentID: doc.ID}, err
	}
	log.Infof("[Processor] 步骤1: 提取完成, 共 %d 页", len(pages))

	// 2. 分块
	p.advance(job, model.JobStateChunking)
	chunks := p.chunkr.Chunk(doc, pages)
	if len(chunks) == 0 {
		err := fmt.Errorf("文档 '%s': %w", doc.Name, model.ErrExtractionEmpty)
		p.fail(job, err)
		return model.IngestResult{DocumentID: doc.ID}, err
	}
	log.Infof("[Processor] 步骤2: 分块完成, 共生成 %d 个分块", len(chunks))

	// 阶段一：分块文本先落库，并记下旧的分块 ID 以便清理索引中的残留
	staleIDs := p.persistChunks(doc, chunks)

	// 3. 并发向量化（有界工作池 + 指数退避重试）
	p.advance(job, model.JobStateEmbedding)
	entries, failedCount := p.embedChunks(ctx, chunks)
	if err := ctx.Err(); err != nil {
		p.fail(job, err)
		return model.IngestResult{DocumentID: doc.ID}, err
	}
	if len(entries) == 0 {
		err := fmt.Errorf("文档 '%s' 全部 %d 个分块向量化失败: %w", doc.Name, len(chunks), model.ErrEmbeddingFailed)
		p.fail(job, err)
		return model.IngestResult{DocumentID: doc.ID, ChunksFailed: failedCount}, err
	}

	// 4. 一次性批量写入向量索引。嵌入只有部分成功时也只提交这一批，
	// 避免半成品文档以增量写入的方式被提前查询到。
	indexed, err := p.idx.Upsert(ctx, entries)
	if err != nil {
		p.fail(job, err)
		return model.IngestResult{DocumentID: doc.ID, ChunksFailed: failedCount}, fmt.Errorf("写入向量索引失败: %w", err)
	}

	// 5. 清理重摄取后不复存在的旧分块
	p.deleteStale(ctx, staleIDs, chunks)

	result := model.IngestResult{
		DocumentID:    doc.ID,
		ChunksIndexed: indexed,
		ChunksFailed:  failedCount,
	}
	p.finish(job, result)
	log.Infof("[Processor] 文档处理完成, DocumentID: %s, 已索引: %d, 失败: %d",
		doc.ID, result.ChunksIndexed, result.ChunksFailed)
	return result, nil
}

// embedChunks 用有界工作池并发向量化所有分块。
// 返回成功的条目（保持分块原有顺序）与失败计数。
func (p *Processor) embedChunks(ctx context.Context, chunks []model.Chunk) ([]model.IndexEntry, int) {
	vectors := make([][]float32, len(chunks))
	var mu sync.Mutex
	failedCount := 0

	g, gctx := errgroup.WithContext(ctx)
	// SetLimit 同时限定在途任务数：池满时 g.Go 会阻塞，天然形成背压
	g.SetLimit(p.workers)

	for i := range chunks {
		i := i
		g.Go(func() error {
			vector, err := p.embedWithRetry(gctx, chunks[i].Text)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.Errorf("[Processor] 分块 %s 向量化失败(已重试 %d 次): %v", chunks[i].ID, p.maxAttempts, err)
				mu.Lock()
				failedCount++
				mu.Unlock()
				return nil // 单块失败不中断其他分块
			}
			vectors[i] = vector
			return nil
		})
	}
	// 只有 context 取消会让 goroutine 返回 error
	_ = g.Wait()

	entries := make([]model.IndexEntry, 0, len(chunks))
	for i, c := range chunks {
		if vectors[i] != nil {
			entries = append(entries, model.IndexEntry{Chunk: c, Vector: vectors[i]})
		}
	}
	return entries, failedCount
}

// embedWithRetry 对单个分块做带指数退避的嵌入调用。
func (p *Processor) embedWithRetry(ctx context.Context, text string) ([]float32, error) {
	var lastErr error
	for attempt := 0; attempt < p.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := embedBackoffBase << (attempt - 1)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
		vector, err := p.embedder.CreateEmbedding(ctx, text)
		if err == nil {
			return vector, nil
		}
		lastErr = err
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: %v", model.ErrEmbeddingFailed, lastErr)
}

// persistChunks 将分块文本整体替换式落库，返回重摄取后不复存在的旧分块 ID。
func (p *Processor) persistChunks(doc model.Document, chunks []model.Chunk) []string {
	if p.chunkRepo == nil {
		return nil
	}

	current := make(map[string]struct{}, len(chunks))
	for _, c := range chunks {
		current[c.ID] = struct{}{}
	}
	var staleIDs []string
	if old, err := p.chunkRepo.FindByDocumentID(doc.ID); err == nil {
		for _, rec := range old {
			if _, alive := current[rec.ChunkID]; !alive {
				staleIDs = append(staleIDs, rec.ChunkID)
			}
		}
	}

	records := make([]*model.ChunkRecord, 0, len(chunks))
	for _, c := range chunks {
		records = append(records, &model.ChunkRecord{
			ChunkID:      c.ID,
			DocumentID:   c.DocumentID,
			DocumentName: c.DocumentName,
			Page:         c.Page,
			Seq:          c.Seq,
			TextContent:  c.Text,
			Method:       string(c.Method),
			ModelVersion: p.modelVersion,
		})
	}
	if err := p.chunkRepo.ReplaceForDocument(doc.ID, records); err != nil {
		// 落库失败不阻断摄取：数据库副本只用于重建，索引才是查询真相
		log.Warnf("[Processor] 分块落库失败 (document_id=%s): %v", doc.ID, err)
	}
	return staleIDs
}

func (p *Processor) deleteStale(ctx context.Context, staleIDs []string, chunks []model.Chunk) {
	if len(staleIDs) == 0 {
		return
	}
	if err := p.idx.Delete(ctx, staleIDs); err != nil {
		log.Warnf("[Processor] 清理旧分块失败 (%d 条): %v", len(staleIDs), err)
	}
}

// advance / fail / finish 维护摄取任务的状态机（jobRepo 未配置时为空操作）。

func (p *Processor) advance(job *model.IngestJob, state string) {
	if job == nil {
		return
	}
	job.State = state
	if p.jobRepo != nil {
		if err := p.jobRepo.UpdateState(job.JobID, state); err != nil {
			log.Warnf("[Processor] 更新任务状态失败 (job_id=%s, state=%s): %v", job.JobID, state, err)
		}
	}
}

func (p *Processor) fail(job *model.IngestJob, cause error) {
	if job == nil {
		return
	}
	job.State = model.JobStateFailed
	if p.jobRepo != nil {
		if err := p.jobRepo.Finish(job.JobID, model.JobStateFailed, 0, 0, cause.Error()); err != nil {
			log.Warnf("[Processor] 记录任务失败状态出错 (job_id=%s): %v", job.JobID, err)
		}
	}
}

func (p *Processor) finish(job *model.IngestJob, result model.IngestResult) {
	if job == nil {
		return
	}
	job.State = model.JobStateIndexed
	job.ChunksIndexed = result.ChunksIndexed
	job.ChunksFailed = result.ChunksFailed
	if p.jobRepo != nil {
		if err := p.jobRepo.Finish(job.JobID, model.JobStateIndexed, result.ChunksIndexed, result.ChunksFailed, ""); err != nil {
			log.Warnf("[Processor] 记录任务完成状态出错 (job_id=%s): %v", job.JobID, err)
		}
	}
}
