// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"crypto/md5"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"civic-smart-go/internal/config"
	"civic-smart-go/pkg/kafka"
	"civic-smart-go/pkg/log"
	"civic-smart-go/pkg/storage"
	"civic-smart-go/pkg/tasks"

	"github.com/gin-gonic/gin"
)

// DocumentHandler 负责处理文档上传相关的 API 请求。
type DocumentHandler struct {
	minioCfg config.MinIOConfig
}

// NewDocumentHandler 创建一个新的 DocumentHandler 实例。
func NewDocumentHandler(minioCfg config.MinIOConfig) *DocumentHandler {
	return &DocumentHandler{minioCfg: minioCfg}
}

// Upload 接收一份文档，暂存到 MinIO 并投递摄取任务到 Kafka。
// 摄取是异步的，接口立即返回 202 与文档标识。
func (h *DocumentHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少文件字段 file"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		log.Errorf("[DocumentHandler] 打开上传文件失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		log.Errorf("[DocumentHandler] 读取上传文件失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
		return
	}
	if len(data) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "上传文件为空"})
		return
	}

	fileName := filepath.Base(fileHeader.Filename)
	documentID := fmt.Sprintf("%x", md5.Sum(data))
	objectName := fmt.Sprintf("documents/%s_%s", documentID, fileName)

	if err := storage.PutDocument(c.Request.Context(), h.minioCfg.BucketName, objectName, data); err != nil {
		log.Errorf("[DocumentHandler] 暂存文档到 MinIO 失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "文档暂存失败"})
		return
	}

	task := tasks.DocumentTask{
		DocumentID: documentID,
		FileName:   fileName,
		ObjectName: objectName,
	}
	if err := kafka.ProduceDocumentTask(task); err != nil {
		log.Errorf("[DocumentHandler] 投递摄取任务失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "投递摄取任务失败"})
		return
	}

	log.Infof("[DocumentHandler] 文档已接收并排队摄取: document_id=%s, file=%s, size=%d",
		documentID, fileName, len(data))
	c.JSON(http.StatusAccepted, gin.H{
		"document_id": documentID,
		"file_name":   fileName,
		"status":      "queued",
	})
}
