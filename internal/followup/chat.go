package followup

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/sells-group/person-search/internal/model"
)

// maxHistory bounds the stored turns sent back to the model.
const maxHistory = 20

var (
	// ErrNoMessages is returned when a chat request carries no messages.
	ErrNoMessages = eris.New("followup: at least one message is required")
	// ErrNotUserTurn is returned when the newest message is not from the user.
	ErrNotUserTurn = eris.New("followup: last message must come from the user")
	// ErrChatsDisabled is returned by chat calls on a Service without a ChatStore.
	ErrChatsDisabled = eris.New("followup: chat storage not configured")
)

// ChatStore persists chats.
type ChatStore interface {
	LatestChat(ctx context.Context, personID string) (*model.Chat, error)
	SaveChat(ctx context.Context, c *model.Chat) error
}

// ChatReply is the assistant turn produced by Chat.
type ChatReply struct {
	Reply  string `json:"reply"`
	ChatID string `json:"chatId"`
}

// Chat continues the person's latest conversation with the newest entry of
// messages, which must be a user turn. Earlier entries are ignored: the
// stored history is authoritative. The exchange is saved before returning.
func (s *Service) Chat(ctx context.Context, personID string, messages []model.ChatMessage) (*ChatReply, error) {
	if s.chats == nil {
		return nil, ErrChatsDisabled
	}
	if len(messages) == 0 {
		return nil, ErrNoMessages
	}
	last := messages[len(messages)-1]
	if last.Role == "" {
		last.Role = model.ChatRoleUser
	}
	if last.Role != model.ChatRoleUser {
		return nil, ErrNotUserTurn
	}
	content := strings.TrimSpace(last.Content)
	if content == "" {
		return nil, ErrEmptyQuestion
	}

	p, err := s.store.GetPersonByID(ctx, personID)
	if err != nil {
		return nil, eris.Wrap(err, "followup: load person")
	}
	c, err := s.chats.LatestChat(ctx, personID)
	if err != nil {
		return nil, eris.Wrap(err, "followup: load chat")
	}
	if c == nil {
		c = &model.Chat{PersonID: personID}
	}
	log := zap.L().With(zap.String("person_id", personID), zap.String("chat_id", c.ID))
	log.Info("followup: chat turn", zap.Int("history", len(c.Messages)))

	c.Add(model.ChatRoleUser, content, s.now().UTC())
	reply, err := s.converse(ctx, chatSystemPrompt(p), c.Messages)
	if err != nil {
		return nil, eris.Wrap(err, "followup: chat")
	}
	c.Add(model.ChatRoleAssistant, reply, s.now().UTC())

	if err := s.chats.SaveChat(ctx, c); err != nil {
		return nil, eris.Wrap(err, "followup: save chat")
	}
	return &ChatReply{Reply: reply, ChatID: c.ID}, nil
}

// History returns the person's latest chat, or an empty one when none exists.
func (s *Service) History(ctx context.Context, personID string) (*model.Chat, error) {
	if s.chats == nil {
		return nil, ErrChatsDisabled
	}
	c, err := s.chats.LatestChat(ctx, personID)
	if err != nil {
		return nil, eris.Wrap(err, "followup: load chat")
	}
	if c == nil {
		c = &model.Chat{PersonID: personID, Messages: []model.ChatMessage{}}
	}
	return c, nil
}

func (s *Service) converse(ctx context.Context, system string, history []model.ChatMessage) (string, error) {
	history = history[max(0, len(history)-maxHistory):]
	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	for _, m := range history {
		role := openai.ChatMessageRoleUser
		if m.Role == model.ChatRoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{Model: s.model, Messages: msgs})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", eris.New("followup: no response choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func chatSystemPrompt(p *model.Person) string {
	return fmt.Sprintf(`You are an assistant helping users understand information about a person.

You have access to the following information about this person:

%s

Answer from this information only. If the user asks about something that is not in the data, say you do not have it. Support follow-up requests such as "show me only Instagram data" or "summarize their professional background".`, personContext(p))
}

// personContext extends focusedContext with the profile and photo details a
// longer conversation can draw on.
func personContext(p *model.Person) string {
	parts := []string{focusedContext(p)}

	if len(p.SocialProfiles) > 0 {
		lines := []string{"Social media profiles:"}
		for _, sp := range p.SocialProfiles {
			b, err := json.Marshal(sp)
			if err != nil {
				continue
			}
			lines = append(lines, fmt.Sprintf("- %s: %s", strings.ToUpper(string(sp.Platform)), b))
		}
		parts = append(parts, strings.Join(lines, "\n"))
	}
	if r := p.PublicRecords; len(r.Relatives) > 0 || len(r.Locations) > 0 {
		parts = append(parts, fmt.Sprintf("Public records:\nRelatives: %s\nLocations: %s",
			strings.Join(r.Relatives, ", "), strings.Join(r.Locations, ", ")))
	}
	if len(p.Photos) > 0 {
		parts = append(parts, fmt.Sprintf("Photos: %d available", len(p.Photos)))
	}
	if len(p.RawSources) > 0 {
		parts = append(parts, fmt.Sprintf("Data sources: gathered from %d sources", len(p.RawSources)))
	}
	return strings.Join(parts, "\n\n")
}
