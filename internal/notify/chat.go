package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/me/rtodash/pkg/model"
)

// ChatAPI sends a message to the support chatbot.
type ChatAPI interface {
	Chat(ctx context.Context, message string) (string, error)
}

const (
	defaultTranscriptLimit = 50
	chatGreeting           = "Hi! Ask me about reminders, your wallet or message delivery."
	chatFallback           = "Sorry, I couldn't reach support right now. Please try again in a moment."
)

// Chat is a bounded chatbot transcript for one agent.
type Chat struct {
	api    ChatAPI
	logger *slog.Logger
	limit  int
	now    func() time.Time

	mu         sync.Mutex
	transcript []model.ChatMessage
}

// NewChat starts a transcript holding at most limit messages.
func NewChat(api ChatAPI, logger *slog.Logger, limit int) *Chat {
	if limit <= 0 {
		limit = defaultTranscriptLimit
	}
	c := &Chat{
		api:    api,
		logger: logger.With("component", "chat"),
		limit:  limit,
		now:    time.Now,
	}
	c.appendMessage("bot", chatGreeting)
	return c
}

// Send posts text and appends both sides of the exchange. On failure a
// fallback reply is appended and the error returned.
func (c *Chat) Send(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("chat: message is empty")
	}
	c.appendMessage("user", text)

	reply, err := c.api.Chat(ctx, text)
	if err != nil {
		c.logger.Warn("chatbot request failed", "error", err)
		c.appendMessage("bot", chatFallback)
		return "", fmt.Errorf("chat: %w", err)
	}
	c.appendMessage("bot", reply)
	return reply, nil
}

// Transcript returns a copy of the conversation, oldest first.
func (c *Chat) Transcript() []model.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.ChatMessage(nil), c.transcript...)
}

// Reset clears the conversation back to the greeting.
func (c *Chat) Reset() {
	c.mu.Lock()
	c.transcript = nil
	c.mu.Unlock()
	c.appendMessage("bot", chatGreeting)
}

func (c *Chat) appendMessage(from, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transcript = append(c.transcript, model.ChatMessage{From: from, Text: text, At: c.now()})
	if over := len(c.transcript) - c.limit; over > 0 {
		c.transcript = c.transcript[over:]
	}
}
