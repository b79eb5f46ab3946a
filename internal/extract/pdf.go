package extract

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
)

// pdfReader 包装 ledongthuc/pdf，收敛其在畸形输入上的 panic 行为。
type pdfReader struct {
	reader *pdf.Reader
}

func newPDFReader(data []byte) (r *pdfReader, err error) {
	// 该库在部分畸形文件上会 panic 而不是返回 error
	defer func() {
		if rec := recover(); rec != nil {
			r = nil
			err = fmt.Errorf("pdf parse panic: %v", rec)
		}
	}()
	inner, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	return &pdfReader{reader: inner}, nil
}

func (r *pdfReader) pageCount() int {
	return r.reader.NumPage()
}

// pageText 返回某一页的原生文本层内容，页码从 1 开始。
// 提取失败（包括库内部 panic）时返回空串，由调用方决定是否走 OCR。
func (r *pdfReader) pageText(pageNum int) (text string) {
	defer func() {
		if rec := recover(); rec != nil {
			text = ""
		}
	}()
	page := r.reader.Page(pageNum)
	if page.V.IsNull() {
		return ""
	}
	content, err := page.GetPlainText(nil)
	if err != nil {
		return ""
	}
	return content
}

// pageImage 返回某一页中最大的嵌入图像的原始字节。
// 扫描件 PDF 通常每页就是一张整页图像（JPEG/CCITT 流），
// 取出后可直接交给 OCR 服务识别。
func (r *pdfReader) pageImage(pageNum int) (image []byte, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			image = nil
			err = fmt.Errorf("pdf image extract panic: %v", rec)
		}
	}()

	page := r.reader.Page(pageNum)
	if page.V.IsNull() {
		return nil, fmt.Errorf("第 %d 页不存在", pageNum)
	}

	resources := page.Resources()
	if resources.IsNull() {
		return nil, fmt.Errorf("第 %d 页没有资源字典", pageNum)
	}
	xobjects := resources.Key("XObject")
	if xobjects.IsNull() {
		return nil, fmt.Errorf("第 %d 页没有嵌入图像", pageNum)
	}

	var largest []byte
	for _, name := range xobjects.Keys() {
		obj := xobjects.Key(name)
		if obj.Kind() != pdf.Stream {
			continue
		}
		if obj.Key("Subtype").Name() != "Image" {
			continue
		}
		data, readErr := io.ReadAll(obj.Reader())
		if readErr != nil {
			continue
		}
		if len(data) > len(largest) {
			largest = data
		}
	}
	if len(largest) == 0 {
		return nil, fmt.Errorf("第 %d 页没有可用的图像流", pageNum)
	}
	return largest, nil
}
