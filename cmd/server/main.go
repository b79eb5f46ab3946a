// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"civic-smart-go/internal/chunker"
	"civic-smart-go/internal/composer"
	"civic-smart-go/internal/config"
	"civic-smart-go/internal/extract"
	"civic-smart-go/internal/handler"
	"civic-smart-go/internal/index"
	"civic-smart-go/internal/middleware"
	"civic-smart-go/internal/pipeline"
	"civic-smart-go/internal/repository"
	"civic-smart-go/internal/retriever"
	"civic-smart-go/internal/service"
	"civic-smart-go/pkg/database"
	"civic-smart-go/pkg/embedding"
	"civic-smart-go/pkg/es"
	"civic-smart-go/pkg/kafka"
	"civic-smart-go/pkg/llm"
	"civic-smart-go/pkg/log"
	"civic-smart-go/pkg/ocr"
	"civic-smart-go/pkg/storage"

	"github.com/gin-gonic/gin"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化外部依赖
	database.InitMySQL(cfg.Database.MySQL.DSN)
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	storage.InitMinIO(cfg.MinIO)
	if err := es.InitES(cfg.Elasticsearch, cfg.Embedding.Dimensions); err != nil {
		log.Errorf("es 初始化失败 %s", err)
		return
	}
	kafka.InitProducer(cfg.Kafka)

	// 4. 初始化 Repository
	chunkRepo := repository.NewChunkRepository(database.DB)
	jobRepo := repository.NewIngestJobRepository(database.DB)

	// 5. 初始化外部模型客户端
	embeddingClient := embedding.NewClient(cfg.Embedding)
	llmClient := llm.NewClient(cfg.LLM)
	ocrClient := ocr.NewClient(cfg.OCR)

	// 6. 组装摄取与问答管道 (依赖注入)
	vectorIndex := index.NewEsIndex(es.ESClient, cfg.Elasticsearch.IndexName, cfg.Embedding.Dimensions, cfg.Embedding.Model)
	extractor := extract.NewExtractor(ocrClient, cfg.OCR, cfg.RAG)
	chunkr := chunker.New(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	processor := pipeline.NewProcessor(
		extractor,
		chunkr,
		embeddingClient,
		vectorIndex,
		chunkRepo,
		jobRepo,
		cfg.Embedding.Model,
		cfg.RAG.EmbedWorkers,
		cfg.RAG.EmbedAttempts,
	)
	ret := retriever.New(embeddingClient, vectorIndex, cfg.RAG)
	comp := composer.New(llmClient, cfg.LLM.Prompt)
	ragService := service.NewRAGService(processor, ret, comp, jobRepo)

	// 7. 启动后台 Kafka 消费者
	consumerCtx, cancelConsumer := context.WithCancel(context.Background())
	defer cancelConsumer()
	taskProcessor := service.NewIngestTaskProcessor(ragService, cfg.MinIO.BucketName)
	go kafka.StartConsumer(consumerCtx, cfg.Kafka, taskProcessor)

	// 8. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	r.Use(middleware.RequestLogger(), gin.Recovery())

	// 9. 注册路由
	apiV1 := r.Group("/api/v1")
	{
		documents := apiV1.Group("/documents")
		{
			documents.POST("/upload", handler.NewDocumentHandler(cfg.MinIO).Upload)
		}

		qa := apiV1.Group("/qa")
		{
			qa.POST("/ask", handler.NewQAHandler(ragService).Ask)
		}
	}

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("服务启动失败: %v", err)
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("收到停机信号，正在关闭服务...")

	// 先停消费者，再给正在处理的 HTTP 请求 5 秒收尾
	cancelConsumer()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("服务强制关闭: %v", err)
	}

	log.Info("服务已退出")
}
