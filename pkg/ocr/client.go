// Package ocr 提供了一个与 OCR 服务（Tesseract HTTP 服务）交互的客户端。
package ocr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"civic-smart-go/internal/config"
)

// Engine 是核心消费的 OCR 能力接口：输入一张页面图像与语言集，返回识别出的文本。
type Engine interface {
	RecognizeText(ctx context.Context, image []byte, languages []string) (string, error)
}

// Client 是 OCR 服务的 HTTP 客户端。
type Client struct {
	serverURL string
	client    *http.Client
	timeout   time.Duration
}

// NewClient 创建一个新的 OCR 客户端实例。
func NewClient(cfg config.OCRConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		serverURL: cfg.ServerURL,
		client:    &http.Client{},
		timeout:   timeout,
	}
}

// RecognizeText 将页面图像提交给 OCR 服务并返回纯文本结果。
// 语言集通过 X-OCR-Language 头传递（多语言以 + 连接，如 jpn+eng）。
func (c *Client) RecognizeText(ctx context.Context, image []byte, languages []string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "PUT", c.serverURL+"/ocr", bytes.NewReader(image))
	if err != nil {
		return "", fmt.Errorf("创建请求失败: %w", err)
	}

	req.Header.Set("Accept", "text/plain")
	req.Header.Set("Content-Type", "application/octet-stream")
	if len(languages) > 0 {
		req.Header.Set("X-OCR-Language", strings.Join(languages, "+"))
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("调用 OCR 服务失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("OCR 服务返回错误 [%d]: %s", resp.StatusCode, string(body))
	}

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, resp.Body); err != nil {
		return "", fmt.Errorf("读取 OCR 响应失败: %w", err)
	}

	return buf.String(), nil
}
