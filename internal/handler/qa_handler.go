package handler

import (
	"net/http"

	"civic-smart-go/internal/service"
	"civic-smart-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// QAHandler 结构体定义了问答相关的处理器。
type QAHandler struct {
	ragService service.RAGService
}

// NewQAHandler 创建一个新的 QAHandler 实例。
func NewQAHandler(ragService service.RAGService) *QAHandler {
	return &QAHandler{ragService: ragService}
}

// AskRequest 定义了问答 API 的请求体结构。
type AskRequest struct {
	Question string `json:"question" binding:"required"`
}

// Ask 处理一次问答请求。
// 知识库里没有相关资料时返回 grounded=false 的固定拒答，不算错误。
func (h *QAHandler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求负载"})
		return
	}

	result, err := h.ragService.AnswerQuestion(c.Request.Context(), req.Question)
	if err != nil {
		log.Errorf("[QAHandler] 问答失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "问答服务暂时不可用"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"answer":    result.Answer,
		"grounded":  result.Grounded,
		"citations": result.Citations(),
	})
}
