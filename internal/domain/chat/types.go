// Package chat runs the message-handling control flow: authorization gate,
// session resolution, inactivity gate, context window, completion and reply
// delivery.
package chat

import (
	"context"

	"github.com/MDCYT/doctor-scum-whatsapp-bot/internal/domain/session"
)

// InboundMessage is the normalized shape every transport adapter must
// produce. The engine never sees transport-specific message variants.
type InboundMessage struct {
	ConversationID    string
	SenderID          string
	IsGroup           bool
	Text              string
	BotIdentifierHint string
	Mentions          []string
}

// Transport delivers outbound text to a conversation.
type Transport interface {
	Send(ctx context.Context, conversationID, text string) error
}

// ReplyRequest carries everything the completion service needs to generate
// an assistant reply.
type ReplyRequest struct {
	Persona     string
	Summary     string
	History     []session.Turn
	UserMessage string
	Temperature float32
}

// CompletionClient is the reply-generation half of the completion service.
// Summarization is the session.Summarizer interface; the OpenAI client
// implements both.
type CompletionClient interface {
	GenerateReply(ctx context.Context, req ReplyRequest) (string, error)
}

// Outcome classifies how a message was handled, for metrics and logging.
type Outcome string

const (
	OutcomeReply    Outcome = "reply"
	OutcomeCommand  Outcome = "command"
	OutcomeDenied   Outcome = "denied"
	OutcomeIgnored  Outcome = "ignored"
	OutcomeInactive Outcome = "inactive"
	OutcomeError    Outcome = "error"
)
