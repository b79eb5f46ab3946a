package model

import "errors"

// 管道中的错误种类。瞬时的供应商错误在内部重试；
// 结构性错误（文档不可读、维度不匹配）立即向调用方传播。
var (
	// ErrDocumentUnreadable 表示文档无法打开，整个摄取中止，不产生任何页。
	ErrDocumentUnreadable = errors.New("文档无法读取")

	// ErrExtractionEmpty 表示 OCR 兜底之后所有页仍然为空，该文档摄取失败。
	ErrExtractionEmpty = errors.New("提取不到任何文本内容")

	// ErrEmbeddingFailed 表示某个分块在重试耗尽后仍嵌入失败。
	// 单块失败只降级为部分成功，不会阻塞其他分块。
	ErrEmbeddingFailed = errors.New("向量化失败")

	// ErrDimensionMismatch 表示向量长度与索引声明的维度不一致，属于配置错误。
	ErrDimensionMismatch = errors.New("向量维度不匹配")

	// ErrGenerationFailed 表示生成模型调用失败。Composer 会兜底为固定文案，
	// 该错误只出现在 AnswerResult.Err 中供日志使用。
	ErrGenerationFailed = errors.New("答案生成失败")
)
