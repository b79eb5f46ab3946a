// Package composer 负责把检索结果组装成接地提示词并调用生成模型。
//
// 空检索结果直接短路为固定的"无资料"回复，不调用生成模型；
// 生成模型失败时向最终用户返回固定的致歉文案，原始错误只进结果的
// Err 字段供调用方记录日志。
package composer

import (
	"context"
	"fmt"
	"strings"

	"civic-smart-go/internal/config"
	"civic-smart-go/internal/model"
	"civic-smart-go/pkg/llm"
	"civic-smart-go/pkg/log"
)

// 缺省文案面向日文语料；均可通过配置覆盖。
const (
	defaultRules = "以下の文脈に含まれる情報だけを使って質問に答えてください。" +
		"文脈に答えが見つからない場合は、資料に該当する情報がない旨を答えてください。" +
		"回答には出典（資料名とページ番号）を含めてください。"
	defaultNoResultText = "申し訳ありませんが、アップロードされた資料からは該当する情報が見つかりませんでした。"
	defaultFallbackText = "申し訳ありませんが、現在回答を生成できません。しばらくしてからもう一度お試しください。"
)

// Composer 组合生成模型客户端与提示词配置。
type Composer struct {
	llmClient    llm.Client
	rules        string
	noResultText string
	fallbackText string
}

// New 创建一个 Composer，未配置的文案回落到内置日文缺省值。
func New(llmClient llm.Client, promptCfg config.LLMPromptConfig) *Composer {
	c := &Composer{
		llmClient:    llmClient,
		rules:        promptCfg.Rules,
		noResultText: promptCfg.NoResultText,
		fallbackText: promptCfg.FallbackText,
	}
	if c.rules == "" {
		c.rules = defaultRules
	}
	if c.noResultText == "" {
		c.noResultText = defaultNoResultText
	}
	if c.fallbackText == "" {
		c.fallbackText = defaultFallbackText
	}
	return c
}

// Compose 根据检索结果生成最终回答。
func (c *Composer) Compose(ctx context.Context, question string, candidates []model.ScoredChunk) model.AnswerResult {
	// 无相关上下文：确定性拒答，省掉一次生成调用
	if len(candidates) == 0 {
		return model.AnswerResult{
			Answer:   c.noResultText,
			Contexts: []model.Chunk{},
			Grounded: false,
		}
	}

	contexts := make([]model.Chunk, 0, len(candidates))
	for _, cand := range candidates {
		contexts = append(contexts, cand.Chunk)
	}

	messages := []llm.Message{
		{Role: "system", Content: c.rules},
		{Role: "user", Content: c.buildPrompt(question, contexts)},
	}

	// 生成参数固定为确定性设置：temperature 0，输出长度由配置约束
	temperature := 0.0
	text, err := c.llmClient.Generate(ctx, messages, &llm.GenerationParams{Temperature: &temperature})
	if err != nil {
		log.Errorf("[Composer] 生成模型调用失败: %v", err)
		return model.AnswerResult{
			Answer:   c.fallbackText,
			Contexts: contexts,
			Grounded: true,
			Err:      fmt.Errorf("%w: %v", model.ErrGenerationFailed, err),
		}
	}

	return model.AnswerResult{
		Answer:   text,
		Contexts: contexts,
		Grounded: true,
	}
}

// buildPrompt 组装接地提示词：带出处标注的上下文块 + 原始问题。
func (c *Composer) buildPrompt(question string, contexts []model.Chunk) string {
	var b strings.Builder
	b.WriteString("文脈:\n")
	for i, chunk := range contexts {
		b.WriteString(fmt.Sprintf("[%d] (%s p.%d) %s\n", i+1, chunk.DocumentName, chunk.Page, chunk.Text))
	}
	b.WriteString("\n質問: ")
	b.WriteString(question)
	b.WriteString("\n\n回答:")
	return b.String()
}
