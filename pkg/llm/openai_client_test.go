package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DigitumDei/WellnessWingman-sub001/internal/utils/logging"
)

var jpegHeader = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}

func newOpenAITestClient(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewOpenAIClient(OpenAIOptions{
		APIKey:  "sk-test",
		Model:   "gpt-4o-mini",
		BaseURL: srv.URL + "/v1",
		Logger:  logging.Discard(),
	})
	require.NoError(t, err)
	return client
}

func TestOpenAIClient_AnalyzeImage_SendsDataURLAndSchema(t *testing.T) {
	var captured map[string]any
	client := newOpenAITestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id":"chatcmpl-1","object":"chat.completion","model":"gpt-4o-mini",
			"choices":[{"index":0,"message":{"role":"assistant","content":"{\"entryType\":\"meal\"}"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":120,"completion_tokens":30,"total_tokens":150}
		}`))
	})

	hint := &SchemaHint{Name: "unified_analysis", Schema: json.RawMessage(`{"type":"object"}`)}
	resp, err := client.AnalyzeImage(context.Background(), jpegHeader, "describe", hint)
	require.NoError(t, err)

	assert.Equal(t, `{"entryType":"meal"}`, resp.Content)
	assert.Equal(t, ProviderOpenAI, resp.Diagnostics.Provider)
	require.NotNil(t, resp.Diagnostics.TotalTokens)
	assert.Equal(t, 120, *resp.Diagnostics.PromptTokens)
	assert.Equal(t, 30, *resp.Diagnostics.CompletionTokens)
	assert.Equal(t, 150, *resp.Diagnostics.TotalTokens)

	messages := captured["messages"].([]any)
	parts := messages[0].(map[string]any)["content"].([]any)
	require.Len(t, parts, 2)
	imagePart := parts[1].(map[string]any)
	assert.Equal(t, "image_url", imagePart["type"])
	url := imagePart["image_url"].(map[string]any)["url"].(string)
	assert.True(t, strings.HasPrefix(url, "data:image/jpeg;base64,"), url)

	format := captured["response_format"].(map[string]any)
	assert.Equal(t, "json_schema", format["type"])
	assert.Equal(t, "unified_analysis", format["json_schema"].(map[string]any)["name"])
}

func TestOpenAIClient_GenerateCompletion_NoSchema(t *testing.T) {
	client := newOpenAITestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, hasFormat := body["response_format"]
		assert.False(t, hasFormat)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hello"}}],"usage":{"prompt_tokens":1,"completion_tokens":1,"total_tokens":2}}`))
	})

	resp, err := client.GenerateCompletion(context.Background(), "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Content)
}

func TestOpenAIClient_Non2xxIsProviderError(t *testing.T) {
	client := newOpenAITestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit"}}`))
	})

	_, err := client.GenerateCompletion(context.Background(), "hi", nil)
	var providerErr *ProviderError
	require.True(t, errors.As(err, &providerErr), "got %v", err)
	assert.Equal(t, http.StatusTooManyRequests, providerErr.StatusCode)
}

func TestOpenAIClient_EmptyChoices(t *testing.T) {
	client := newOpenAITestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})

	_, err := client.GenerateCompletion(context.Background(), "hi", nil)
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestOpenAIClient_TranscribeAudio(t *testing.T) {
	client := newOpenAITestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/transcriptions", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		_, header, err := r.FormFile("file")
		require.NoError(t, err)
		assert.Equal(t, "voice-note.mp3", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":" two eggs and toast "}`))
	})

	text, err := client.TranscribeAudio(context.Background(), []byte("audio"), "audio/mpeg")
	require.NoError(t, err)
	assert.Equal(t, "two eggs and toast", text)
}

func TestNewOpenAIClient_RequiresKey(t *testing.T) {
	_, err := NewOpenAIClient(OpenAIOptions{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}
