package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/MDCYT/doctor-scum-whatsapp-bot/internal/domain/chat"
	"github.com/MDCYT/doctor-scum-whatsapp-bot/internal/interfaces/httpserver/responses"
	"github.com/MDCYT/doctor-scum-whatsapp-bot/internal/metrics"
)

// genericFailureNotice replaces internal error detail in user-visible output.
const genericFailureNotice = "Ocurrió un error procesando tu mensaje. Intenta de nuevo."

// MessageHandler exposes the session engine over HTTP. The gateway that owns
// the real chat connection posts normalized messages here and delivers
// whatever comes back.
type MessageHandler struct {
	engine    *chat.Engine
	sequencer *chat.Sequencer
}

func NewMessageHandler(engine *chat.Engine, sequencer *chat.Sequencer) *MessageHandler {
	return &MessageHandler{engine: engine, sequencer: sequencer}
}

// extendedText covers the quoted/mention message shape some gateways send
// instead of a plain text field.
type extendedText struct {
	Text         string   `json:"text"`
	MentionedIDs []string `json:"mentioned_ids"`
}

type mediaPayload struct {
	Caption string `json:"caption"`
}

// inboundPayload accepts the loose wire shapes gateways produce. Exactly one
// of text, extended_text.text or media.caption is expected to carry content.
type inboundPayload struct {
	ConversationID string        `json:"conversation_id"`
	SenderID       string        `json:"sender_id"`
	IsGroup        bool          `json:"is_group"`
	Text           string        `json:"text"`
	ExtendedText   *extendedText `json:"extended_text"`
	Media          *mediaPayload `json:"media"`
	BotID          string        `json:"bot_id"`
	Mentions       []string      `json:"mentions"`
}

type outboundMessage struct {
	ConversationID string `json:"conversation_id"`
	Text           string `json:"text"`
}

type messageResponse struct {
	Outcome  string            `json:"outcome"`
	Messages []outboundMessage `json:"messages"`
}

// collector buffers outbound payloads for the HTTP response instead of
// pushing them anywhere.
type collector struct {
	mu       sync.Mutex
	messages []outboundMessage
}

func (c *collector) Send(_ context.Context, conversationID, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, outboundMessage{ConversationID: conversationID, Text: text})
	return nil
}

// HandleMessage processes one inbound chat message.
func (h *MessageHandler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		responses.Error(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var payload inboundPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		responses.Error(w, r, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	msg, err := normalize(&payload)
	if err != nil {
		responses.Error(w, r, http.StatusBadRequest, err.Error())
		return
	}

	out := &collector{}
	var outcome chat.Outcome
	handleErr := h.sequencer.Do(msg.ConversationID, func() error {
		var err error
		outcome, err = h.engine.HandleMessage(r.Context(), msg, out)
		return err
	})
	metrics.RecordMessage(string(outcome))

	if handleErr != nil {
		// Internal detail stays in the logs; the user gets one generic
		// notice.
		log.Ctx(r.Context()).Error().Err(handleErr).
			Str("conversation_id", msg.ConversationID).
			Msg("Message handling failed")
		_ = out.Send(r.Context(), msg.ConversationID, genericFailureNotice)
	}

	messages := out.messages
	if messages == nil {
		messages = []outboundMessage{}
	}
	responses.JSON(w, r, http.StatusOK, messageResponse{
		Outcome:  string(outcome),
		Messages: messages,
	})
}

// HandleHealth reports liveness.
func (h *MessageHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	responses.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// normalize collapses the loose payload into the single inbound shape the
// engine accepts. A DM without an explicit sender is sent by the conversation
// peer.
func normalize(p *inboundPayload) (chat.InboundMessage, error) {
	if strings.TrimSpace(p.ConversationID) == "" {
		return chat.InboundMessage{}, errors.New("conversation_id is required")
	}

	text := p.Text
	mentions := p.Mentions
	if text == "" && p.ExtendedText != nil {
		text = p.ExtendedText.Text
		if len(mentions) == 0 {
			mentions = p.ExtendedText.MentionedIDs
		}
	}
	if text == "" && p.Media != nil {
		text = p.Media.Caption
	}

	sender := strings.TrimSpace(p.SenderID)
	if sender == "" {
		if p.IsGroup {
			return chat.InboundMessage{}, errors.New("sender_id is required for group messages")
		}
		sender = p.ConversationID
	}

	return chat.InboundMessage{
		ConversationID:    p.ConversationID,
		SenderID:          sender,
		IsGroup:           p.IsGroup,
		Text:              text,
		BotIdentifierHint: p.BotID,
		Mentions:          mentions,
	}, nil
}
