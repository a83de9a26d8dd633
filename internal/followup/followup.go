// Package followup answers short questions about an already aggregated
// person without running a new search.
package followup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/sells-group/person-search/internal/model"
)

const (
	maxPhotos  = 3
	maxSources = 4
	maxRelated = 3
)

// ErrEmptyQuestion is returned for a blank question.
var ErrEmptyQuestion = eris.New("followup: question is empty")

// Store loads stored people.
type Store interface {
	GetPersonByID(ctx context.Context, id string) (*model.Person, error)
}

// Source is a citation returned with an answer.
type Source struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// Result is the reply to one follow-up question.
type Result struct {
	Question         string        `json:"question"`
	Answer           string        `json:"answer"`
	Photos           []model.Photo `json:"photos"`
	Sources          []Source      `json:"sources"`
	RelatedQuestions []string      `json:"relatedQuestions"`
}

// Service answers follow-up questions with an OpenAI chat model.
type Service struct {
	client *openai.Client
	model  string
	store  Store
	chats  ChatStore
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithChatStore enables persistent chats.
func WithChatStore(c ChatStore) Option {
	return func(s *Service) { s.chats = c }
}

// WithClock overrides the message timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a Service. baseURL overrides the API endpoint when set.
func New(apiKey, model, baseURL string, store Store, opts ...Option) *Service {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	s := &Service{client: openai.NewClientWithConfig(cfg), model: model, store: store, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Ask loads the person and answers question about them.
func (s *Service) Ask(ctx context.Context, personID, question string) (*Result, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	p, err := s.store.GetPersonByID(ctx, personID)
	if err != nil {
		return nil, eris.Wrap(err, "followup: load person")
	}
	return s.Answer(ctx, p, question)
}

// Answer answers question from p's stored data.
func (s *Service) Answer(ctx context.Context, p *model.Person, question string) (*Result, error) {
	query := p.DisplayQuery()
	zap.L().Info("followup: answering", zap.String("query", query), zap.String("question", question))

	prompt := fmt.Sprintf(`Question: %s

Context about %s:
%s

Provide a brief, direct answer.`, question, query, focusedContext(p))

	answer, err := s.chat(ctx,
		"You give short answers to specific questions about people. Use 2-3 sentences at most. Be direct and factual and start with the answer.",
		prompt)
	if err != nil {
		return nil, eris.Wrap(err, "followup: answer")
	}

	return &Result{
		Question:         question,
		Answer:           answer,
		Photos:           firstPhotos(p.Photos),
		Sources:          sources(p),
		RelatedQuestions: s.related(ctx, query, question, p.BasicInfo.Occupation),
	}, nil
}

func (s *Service) chat(ctx context.Context, system, prompt string) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", eris.New("followup: no response choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// related suggests the next questions. Failure yields an empty list.
func (s *Service) related(ctx context.Context, query, question, occupation string) []string {
	if occupation == "" {
		occupation = "person"
	}
	text, err := s.chat(ctx,
		"You suggest follow-up questions. Return only the questions, one per line, without numbering.",
		fmt.Sprintf("User just asked: '%s' about %s (%s).\n\nSuggest %d related questions they might ask next.", question, query, occupation, maxRelated))
	if err != nil {
		zap.L().Warn("followup: related questions failed", zap.Error(err))
		return []string{}
	}

	out := []string{}
	for line := range strings.SplitSeq(text, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*0123456789.) "))
		if line == "" {
			continue
		}
		out = append(out, line)
		if len(out) == maxRelated {
			break
		}
	}
	return out
}

func focusedContext(p *model.Person) string {
	var parts []string
	b := p.BasicInfo
	for _, f := range []struct{ label, v string }{
		{"Name", b.Name},
		{"Occupation", b.Occupation},
		{"Company", b.Company},
		{"Location", b.Location},
		{"Age", b.Age},
	} {
		if f.v != "" {
			parts = append(parts, f.label+": "+f.v)
		}
	}

	var mentions []string
	for _, m := range p.NotableMentions {
		if len(mentions) == 5 {
			break
		}
		if m.Title != "" {
			mentions = append(mentions, fmt.Sprintf("- %s: %s", m.Title, m.Description))
		}
	}
	if len(mentions) > 0 {
		parts = append(parts, "Notable achievements:\n"+strings.Join(mentions, "\n"))
	}

	if len(parts) == 0 {
		return "Person: " + p.DisplayQuery()
	}
	return strings.Join(parts, "\n")
}

func firstPhotos(photos []model.Photo) []model.Photo {
	return append([]model.Photo{}, photos[:min(len(photos), maxPhotos)]...)
}

// sources cites up to two mentions, then up to two social profiles.
func sources(p *model.Person) []Source {
	out := []Source{}
	for _, m := range p.NotableMentions[:min(len(p.NotableMentions), 2)] {
		if m.Title == "" {
			continue
		}
		name := m.Source
		if name == "" {
			name = "Source"
		}
		out = append(out, Source{Name: name, URL: m.URL, Type: "news", Description: m.Title})
	}
	for _, sp := range p.SocialProfiles[:min(len(p.SocialProfiles), 2)] {
		desc := sp.Username
		if desc == "" {
			desc = "@" + string(sp.Platform)
		}
		name := string(sp.Platform)
		if name != "" {
			name = strings.ToUpper(name[:1]) + name[1:]
		}
		out = append(out, Source{Name: name, URL: sp.URL, Type: "social", Description: desc})
	}
	return out[:min(len(out), maxSources)]
}
