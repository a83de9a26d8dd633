package model

import "time"

// ChatRole is the speaker of a chat message.
type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatMessage is one turn of a conversation.
type ChatMessage struct {
	Role      ChatRole  `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Chat is the stored conversation about one person. ID is empty until the
// chat is first saved.
type Chat struct {
	ID        string        `json:"chatId"`
	PersonID  string        `json:"personId"`
	Messages  []ChatMessage `json:"messages"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// Add appends a message.
func (c *Chat) Add(role ChatRole, content string, at time.Time) {
	c.Messages = append(c.Messages, ChatMessage{Role: role, Content: content, Timestamp: at})
}
