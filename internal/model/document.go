// Package model 定义了问答管道的核心数据结构与数据库表结构体。
package model

// ExtractionMethod 标记某一页文本的提取方式。
type ExtractionMethod string

const (
	// MethodNative 表示通过 PDF 自带文本层提取。
	MethodNative ExtractionMethod = "native"
	// MethodOCR 表示原生提取不足，走了 OCR 兜底。
	MethodOCR ExtractionMethod = "ocr"
	// MethodFailed 表示该页 OCR 也失败了，文本为空，仅用于诊断。
	MethodFailed ExtractionMethod = "failed"
)

// Document 代表一份待摄取的原始文档。字节内容只在提取期间持有，
// 摄取结束后即被丢弃，核心不负责文件的长期存储。
type Document struct {
	ID   string // 文件内容的 MD5，作为文档唯一标识
	Name string // 原始文件名，用于引用展示
	Data []byte
}

// Page 是提取阶段的产物：一份文档中某一页的文本。不可变，供分块器消费。
type Page struct {
	DocumentID string
	Number     int // 1 起始的页码
	Text       string
	Method     ExtractionMethod
}
