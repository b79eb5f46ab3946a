// Package extract 负责把一份原始文档转换为按页组织的文本序列。
//
// PDF 优先走自带文本层的原生提取；某一页的原生文本少于阈值时，
// 取出该页的扫描图像交给 OCR 服务兜底。单页 OCR 失败只把该页标记
// 为 failed，绝不中止整份文档的提取。
package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"civic-smart-go/internal/config"
	"civic-smart-go/internal/model"
	"civic-smart-go/pkg/log"
	"civic-smart-go/pkg/ocr"
)

const defaultMinNativeTextLen = 50

// pdfMagic 是 PDF 文件头。不以它开头的文档按 UTF-8 纯文本处理。
var pdfMagic = []byte("%PDF-")

// Extractor 将文档字节转换为 Page 序列，除此之外不产生任何持久化副作用。
type Extractor struct {
	ocrEngine    ocr.Engine
	minNativeLen int
	languages    []string
}

// NewExtractor 创建一个提取器。minNativeLen 为 0 时使用默认阈值（50 字符）。
func NewExtractor(ocrEngine ocr.Engine, ocrCfg config.OCRConfig, ragCfg config.RAGConfig) *Extractor {
	minLen := ragCfg.MinNativeTextLen
	if minLen <= 0 {
		minLen = defaultMinNativeTextLen
	}
	languages := ocrCfg.Languages
	if len(languages) == 0 {
		languages = []string{"jpn"}
	}
	return &Extractor{
		ocrEngine:    ocrEngine,
		minNativeLen: minLen,
		languages:    languages,
	}
}

// Extract 将文档转换为有序的页文本序列。
// 文档整体无法打开时返回 model.ErrDocumentUnreadable，不产生任何页。
func (e *Extractor) Extract(ctx context.Context, doc model.Document) ([]model.Page, error) {
	if len(doc.Data) == 0 {
		return nil, fmt.Errorf("文档 '%s' 内容为空: %w", doc.Name, model.ErrDocumentUnreadable)
	}
	if bytes.HasPrefix(doc.Data, pdfMagic) {
		return e.extractPDF(ctx, doc)
	}
	return e.extractPlainText(doc)
}

// extractPlainText 把 UTF-8 文本按换页符（U+000C）切分成页。
func (e *Extractor) extractPlainText(doc model.Document) ([]model.Page, error) {
	if !utf8.Valid(doc.Data) {
		return nil, fmt.Errorf("文档 '%s' 不是合法的 UTF-8 文本: %w", doc.Name, model.ErrDocumentUnreadable)
	}
	parts := strings.Split(string(doc.Data), "\f")
	pages := make([]model.Page, 0, len(parts))
	for i, part := range parts {
		pages = append(pages, model.Page{
			DocumentID: doc.ID,
			Number:     i + 1,
			Text:       part,
			Method:     model.MethodNative,
		})
	}
	return pages, nil
}

// pageSource 抽象了按页读取文本与扫描图像的能力。
// 生产路径由 pdfReader 实现；兜底判定逻辑只依赖这个接口。
type pageSource interface {
	pageCount() int
	pageText(pageNum int) string
	pageImage(pageNum int) ([]byte, error)
}

func (e *Extractor) extractPDF(ctx context.Context, doc model.Document) ([]model.Page, error) {
	reader, err := newPDFReader(doc.Data)
	if err != nil {
		return nil, fmt.Errorf("打开 PDF '%s' 失败: %w: %v", doc.Name, model.ErrDocumentUnreadable, err)
	}
	return e.extractPages(ctx, doc, reader)
}

// extractPages 对每一页做原生提取或 OCR 兜底的判定。
func (e *Extractor) extractPages(ctx context.Context, doc model.Document, reader pageSource) ([]model.Page, error) {
	total := reader.pageCount()
	pages := make([]model.Page, 0, total)
	for i := 1; i <= total; i++ {
		page := model.Page{DocumentID: doc.ID, Number: i}

		native := reader.pageText(i)
		if utf8.RuneCountInString(strings.TrimSpace(native)) >= e.minNativeLen {
			page.Text = native
			page.Method = model.MethodNative
			pages = append(pages, page)
			continue
		}

		// 原生文本不足，走 OCR 兜底
		text, ocrErr := e.recognizePage(ctx, reader, i)
		if ocrErr != nil {
			log.Warnf("[Extractor] 文档 '%s' 第 %d 页 OCR 失败, 该页置空: %v", doc.Name, i, ocrErr)
			page.Text = ""
			page.Method = model.MethodFailed
		} else {
			page.Text = text
			page.Method = model.MethodOCR
		}
		pages = append(pages, page)
	}
	log.Infof("[Extractor] 文档 '%s' 提取完成, 共 %d 页", doc.Name, len(pages))
	return pages, nil
}

// recognizePage 取出该页的扫描图像并交给 OCR 服务识别。
func (e *Extractor) recognizePage(ctx context.Context, reader pageSource, pageNum int) (string, error) {
	image, err := reader.pageImage(pageNum)
	if err != nil {
		return "", fmt.Errorf("获取第 %d 页图像失败: %w", pageNum, err)
	}
	text, err := e.ocrEngine.RecognizeText(ctx, image, e.languages)
	if err != nil {
		return "", fmt.Errorf("OCR 识别第 %d 页失败: %w", pageNum, err)
	}
	return strings.TrimSpace(text), nil
}
