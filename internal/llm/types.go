package llm

import (
	"log/slog"
	"time"
)

// LevelTrace is below Debug, used for wire-level payload logging.
const LevelTrace = slog.Level(-8)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is a role-tagged chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a provider-neutral completion request.
type Request struct {
	Model    string
	System   string
	Messages []Message

	// Temperature is passed through when non-nil so that 0 can be
	// requested explicitly.
	Temperature *float64
	MaxTokens   int
}

// Temp returns a Temperature value for a Request literal.
func Temp(t float64) *float64 { return &t }

// Response is the unified response from any provider. Text is untrusted
// and may be prose, JSON, or both.
type Response struct {
	Model        string
	Text         string
	InputTokens  int
	OutputTokens int
	Duration     time.Duration
}

const defaultMaxTokens = 1024
