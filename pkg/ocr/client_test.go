package ocr

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"civic-smart-go/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecognizeText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "PUT", r.Method)
		assert.Equal(t, "/ocr", r.URL.Path)
		assert.Equal(t, "jpn+eng", r.Header.Get("X-OCR-Language"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, []byte{0xff, 0xd8, 0xff}, body)

		_, _ = w.Write([]byte("避難所の場所は市役所です"))
	}))
	defer server.Close()

	client := NewClient(config.OCRConfig{ServerURL: server.URL})

	text, err := client.RecognizeText(context.Background(), []byte{0xff, 0xd8, 0xff}, []string{"jpn", "eng"})
	require.NoError(t, err)
	assert.Equal(t, "避難所の場所は市役所です", text)
}

func TestRecognizeTextServerErrorIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "tesseract crashed", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(config.OCRConfig{ServerURL: server.URL})

	_, err := client.RecognizeText(context.Background(), []byte("img"), []string{"jpn"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestRecognizeTextUnreachableServerIsError(t *testing.T) {
	client := NewClient(config.OCRConfig{ServerURL: "http://127.0.0.1:1", TimeoutSeconds: 1})

	_, err := client.RecognizeText(context.Background(), []byte("img"), []string{"jpn"})
	require.Error(t, err)
}
