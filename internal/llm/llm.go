// Package llm routes prompts to the fast (Haiku) and smart (Sonnet) Claude
// tiers and decodes JSON replies.
package llm

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/person-search/pkg/anthropic"
)

// Tier selects which model serves a request.
type Tier int

const (
	// Fast is the cheap extraction/judgment model.
	Fast Tier = iota
	// Smart is the long-form writing model.
	Smart
)

// Request is a single-turn prompt.
type Request struct {
	Tier      Tier
	System    string
	Prompt    string
	MaxTokens int64
	// Phase labels the call in usage logs.
	Phase string
}

// Completer is the text-understanding capability used across the pipeline.
type Completer interface {
	Text(ctx context.Context, req Request) (string, error)
	// JSON sends the prompt and unmarshals the first JSON object or array in
	// the reply into out.
	JSON(ctx context.Context, req Request, out any) error
}

// Client implements Completer on top of the Anthropic Messages API.
type Client struct {
	api         anthropic.Client
	fastModel   string
	smartModel  string
	temperature float64
}

// New creates a Client.
func New(api anthropic.Client, fastModel, smartModel string) *Client {
	return &Client{api: api, fastModel: fastModel, smartModel: smartModel}
}

func (c *Client) model(t Tier) string {
	if t == Smart {
		return c.smartModel
	}
	return c.fastModel
}

// Text implements Completer.
func (c *Client) Text(ctx context.Context, req Request) (string, error) {
	if req.MaxTokens <= 0 {
		req.MaxTokens = 1024
	}
	model := c.model(req.Tier)
	phase := phaseOr(req.Phase)
	msg := anthropic.MessageRequest{
		Model:     model,
		MaxTokens: req.MaxTokens,
		System:    req.System,
		Messages:  anthropic.UserPrompt(req.Prompt),
	}
	if req.System != "" {
		msg.CacheTTL = "5m"
	}
	if req.Tier == Fast {
		temp := c.temperature
		msg.Temperature = &temp
	}

	resp, err := c.api.CreateMessage(ctx, msg)
	if err != nil {
		if status := anthropic.StatusCode(err); status == 429 || status == 529 {
			zap.L().Warn("llm: model overloaded", zap.String("phase", phase), zap.Int("status", status))
		}
		return "", eris.Wrapf(err, "llm: %s", phase)
	}
	resp.Usage.Log(model, phase)
	if resp.Truncated() {
		zap.L().Debug("llm: reply truncated", zap.String("phase", phase), zap.Int64("max_tokens", req.MaxTokens))
	}
	return strings.TrimSpace(resp.Text), nil
}

// JSON implements Completer.
func (c *Client) JSON(ctx context.Context, req Request, out any) error {
	text, err := c.Text(ctx, req)
	if err != nil {
		return err
	}
	return Decode(text, out)
}

// Decode extracts a JSON value from a model reply that may be wrapped in
// prose or markdown fences and unmarshals it into out.
func Decode(text string, out any) error {
	cleaned := CleanJSON(text)
	if cleaned == "" {
		return eris.New("llm: no json in reply")
	}
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return eris.Wrap(err, "llm: parse json")
	}
	return nil
}

// CleanJSON strips code fences and returns the outermost object or array.
func CleanJSON(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	openTok, closeTok := "{", "}"
	obj := strings.Index(text, "{")
	arr := strings.Index(text, "[")
	if arr >= 0 && (obj < 0 || arr < obj) {
		openTok, closeTok = "[", "]"
	}
	start := strings.Index(text, openTok)
	end := strings.LastIndex(text, closeTok)
	if start < 0 || end <= start {
		return ""
	}
	return strings.TrimSpace(text[start : end+1])
}

func phaseOr(p string) string {
	if p == "" {
		return "llm"
	}
	return p
}
