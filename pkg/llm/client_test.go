package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"civic-smart-go/internal/config"
	"civic-smart-go/pkg/log"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	log.InitForTest()
	m.Run()
}

func TestGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.False(t, req.Stream)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		require.NotNil(t, req.Temperature)
		assert.Zero(t, *req.Temperature)

		resp := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": "  避難所は市役所です。\n"}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(config.LLMConfig{BaseURL: server.URL, Model: "test-model"})

	temperature := 0.0
	answer, err := client.Generate(context.Background(), []Message{
		{Role: "system", Content: "rules"},
		{Role: "user", Content: "避難所はどこですか"},
	}, &GenerationParams{Temperature: &temperature})
	require.NoError(t, err)
	// 前后空白被裁剪
	assert.Equal(t, "避難所は市役所です。", answer)
}

func TestGenerateNon200IsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(config.LLMConfig{BaseURL: server.URL})
	_, err := client.Generate(context.Background(), []Message{{Role: "user", Content: "q"}}, nil)
	require.Error(t, err)
}

func TestGenerateNoChoicesIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"choices": []interface{}{}})
	}))
	defer server.Close()

	client := NewClient(config.LLMConfig{BaseURL: server.URL})
	_, err := client.Generate(context.Background(), []Message{{Role: "user", Content: "q"}}, nil)
	require.Error(t, err)
}

func TestGenerateAppliesConfiguredMaxTokens(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotNil(t, req.MaxTokens)
		assert.Equal(t, 1024, *req.MaxTokens)

		resp := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": "ok"}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(config.LLMConfig{BaseURL: server.URL, MaxTokens: 1024})
	_, err := client.Generate(context.Background(), []Message{{Role: "user", Content: "q"}}, nil)
	require.NoError(t, err)
}
