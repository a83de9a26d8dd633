package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// messagesServer answers POST /v1/messages with reply and records the
// decoded request body.
func messagesServer(t *testing.T, status int, reply map[string]any, got *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "/messages")
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		if got != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(got))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(reply) //nolint:errcheck
	}))
	t.Cleanup(srv.Close)
	return srv
}

func message(id string, blocks ...map[string]any) map[string]any {
	return map[string]any{
		"id":          id,
		"type":        "message",
		"role":        "assistant",
		"content":     blocks,
		"model":       "claude-haiku-4-5-20251001",
		"stop_reason": "end_turn",
		"usage": map[string]any{
			"input_tokens":                42,
			"output_tokens":               7,
			"cache_creation_input_tokens": 1200,
			"cache_read_input_tokens":     0,
		},
	}
}

func TestCreateMessage(t *testing.T) {
	var body map[string]any
	srv := messagesServer(t, http.StatusOK, message("msg_1",
		map[string]any{"type": "text", "text": "Jane Doe is "},
		map[string]any{"type": "text", "text": "a pilot."},
	), &body)

	temp := 0.0
	c := NewClient("test-key", option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	resp, err := c.CreateMessage(context.Background(), MessageRequest{
		Model:       "claude-haiku-4-5-20251001",
		MaxTokens:   256,
		System:      "You write short biographies.",
		CacheTTL:    "1h",
		Messages:    UserPrompt("Who is Jane Doe?"),
		Temperature: &temp,
	})
	require.NoError(t, err)

	assert.Equal(t, "msg_1", resp.ID)
	assert.Equal(t, "Jane Doe is a pilot.", resp.Text)
	assert.False(t, resp.Truncated())
	assert.Equal(t, Usage{InputTokens: 42, OutputTokens: 7, CacheWriteTokens: 1200}, resp.Usage)

	system, ok := body["system"].([]any)
	require.True(t, ok)
	require.Len(t, system, 1)
	block := system[0].(map[string]any)
	assert.Equal(t, "You write short biographies.", block["text"])
	assert.Equal(t, "1h", block["cache_control"].(map[string]any)["ttl"])
	assert.InDelta(t, 0.0, body["temperature"], 0)
}

func TestCreateMessage_SkipsNonTextBlocks(t *testing.T) {
	srv := messagesServer(t, http.StatusOK, message("msg_2",
		map[string]any{"type": "thinking", "thinking": "hmm", "signature": "s"},
		map[string]any{"type": "text", "text": "VALID"},
	), nil)

	c := NewClient("test-key", option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	resp, err := c.CreateMessage(context.Background(), MessageRequest{Model: "m", MaxTokens: 8, Messages: UserPrompt("x")})
	require.NoError(t, err)
	assert.Equal(t, "VALID", resp.Text)
}

func TestCreateMessage_APIError(t *testing.T) {
	srv := messagesServer(t, http.StatusTooManyRequests, map[string]any{
		"type":  "error",
		"error": map[string]any{"type": "rate_limit_error", "message": "slow down"},
	}, nil)

	c := NewClient("test-key", option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	_, err := c.CreateMessage(context.Background(), MessageRequest{Model: "m", MaxTokens: 8, Messages: UserPrompt("x")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic: m")
	assert.Equal(t, http.StatusTooManyRequests, StatusCode(err))
}

func TestNewParams_Roles(t *testing.T) {
	p := newParams(MessageRequest{
		Model:     "m",
		MaxTokens: 16,
		Messages: []Message{
			{Role: "user", Content: "q"},
			{Role: "assistant", Content: "a"},
			{Role: "system", Content: "x"},
		},
		StopSequences: []string{"\n\n"},
	})
	require.Len(t, p.Messages, 3)
	assert.Equal(t, sdk.MessageParamRoleUser, p.Messages[0].Role)
	assert.Equal(t, sdk.MessageParamRoleAssistant, p.Messages[1].Role)
	assert.Equal(t, sdk.MessageParamRoleUser, p.Messages[2].Role)
	assert.Empty(t, p.System)
	assert.Equal(t, []string{"\n\n"}, p.StopSequences)
}

func TestTruncatedAndStatusCode(t *testing.T) {
	var nilResp *MessageResponse
	assert.False(t, nilResp.Truncated())
	assert.True(t, (&MessageResponse{StopReason: "max_tokens"}).Truncated())
	assert.Zero(t, StatusCode(context.Canceled))
}

func TestUsageLog_DoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		Usage{InputTokens: 10, OutputTokens: 5}.Log("claude-haiku-4-5-20251001", "dedup")
	})
}
