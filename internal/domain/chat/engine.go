package chat

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/MDCYT/doctor-scum-whatsapp-bot/internal/domain/command"
	"github.com/MDCYT/doctor-scum-whatsapp-bot/internal/domain/identity"
	"github.com/MDCYT/doctor-scum-whatsapp-bot/internal/domain/session"
	"github.com/MDCYT/doctor-scum-whatsapp-bot/internal/domain/settings"
)

// Defaults are the fallbacks used when the settings store has no override.
type Defaults struct {
	Persona     string
	Temperature float64
}

// Engine holds session lifecycle, context window and authorization together
// and runs the per-message control flow. It owns state and eligibility, not
// content: replies come from the completion client, delivery from the
// transport.
type Engine struct {
	lifecycle  *session.LifecycleService
	window     *session.WindowManager
	resolver   *identity.Resolver
	bindings   identity.BindingRepository
	settings   settings.Store
	completion CompletionClient
	commands   *command.Registry
	defaults   Defaults

	now func() time.Time
}

// NewEngine wires the engine.
func NewEngine(
	lifecycle *session.LifecycleService,
	window *session.WindowManager,
	resolver *identity.Resolver,
	bindings identity.BindingRepository,
	store settings.Store,
	completion CompletionClient,
	commands *command.Registry,
	defaults Defaults,
) *Engine {
	return &Engine{
		lifecycle:  lifecycle,
		window:     window,
		resolver:   resolver,
		bindings:   bindings,
		settings:   store,
		completion: completion,
		commands:   commands,
		defaults:   defaults,
		now:        time.Now,
	}
}

// HandleMessage processes one normalized inbound message to completion,
// delivering every outbound payload through transport. Errors bubble to the
// caller uncaught; the transport boundary converts them into a single
// generic failure notice.
func (e *Engine) HandleMessage(ctx context.Context, msg InboundMessage, transport Transport) (Outcome, error) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return OutcomeIgnored, nil
	}

	if strings.HasPrefix(text, command.Prefix) {
		return e.handleCommand(ctx, msg, transport, strings.TrimPrefix(text, command.Prefix))
	}

	authorized, err := e.resolver.IsAuthorized(ctx, msg.SenderID, msg.ConversationID, msg.IsGroup)
	if err != nil {
		return OutcomeError, err
	}
	if !authorized {
		// Group denials are silent; DMs get an explicit notice.
		if !msg.IsGroup {
			if err := transport.Send(ctx, msg.ConversationID, "No estás autorizado. Usa ds.ayuda si crees que es un error."); err != nil {
				return OutcomeError, err
			}
		}
		return OutcomeDenied, nil
	}

	if msg.IsGroup {
		mentioned, err := e.botMentioned(ctx, msg)
		if err != nil {
			return OutcomeError, err
		}
		if !mentioned {
			return OutcomeIgnored, nil
		}
	}

	sess, err := e.lifecycle.FindActive(ctx, msg.ConversationID)
	if errors.Is(err, session.ErrNoActiveSession) {
		sess, err = e.lifecycle.CreateDefault(ctx, msg.ConversationID)
	}
	if err != nil {
		return OutcomeError, err
	}

	// Inactivity is a hard gate: the session closes and this message gets
	// a notice instead of a reply. The user reopens explicitly.
	if e.lifecycle.Expired(sess, e.now()) {
		if err := e.lifecycle.Close(ctx, sess.ID); err != nil {
			return OutcomeError, err
		}
		notice := fmt.Sprintf("La sesión '%s' está inactiva. Usa ds.usar-sesion %s para continuar o ds.nueva-sesion <nombre>.",
			sess.Name, sess.Name)
		if err := transport.Send(ctx, msg.ConversationID, notice); err != nil {
			return OutcomeError, err
		}
		return OutcomeInactive, nil
	}

	persona, temperature, err := e.generationSettings(ctx)
	if err != nil {
		return OutcomeError, err
	}

	history, err := e.window.LoadContext(ctx, sess)
	if err != nil {
		return OutcomeError, err
	}

	summary := ""
	if sess.Summary != nil {
		summary = *sess.Summary
	}
	reply, err := e.completion.GenerateReply(ctx, ReplyRequest{
		Persona:     persona,
		Summary:     summary,
		History:     history,
		UserMessage: text,
		Temperature: float32(temperature),
	})
	if err != nil {
		// No turn is appended for a failed exchange.
		return OutcomeError, fmt.Errorf("generate reply: %w", err)
	}

	if err := e.window.AppendExchange(ctx, sess.ID, text, reply); err != nil {
		return OutcomeError, err
	}

	if err := transport.Send(ctx, msg.ConversationID, reply); err != nil {
		return OutcomeError, err
	}

	log.Ctx(ctx).Debug().
		Str("conversation_id", msg.ConversationID).
		Str("session", sess.Name).
		Int("history", len(history)).
		Msg("Reply delivered")
	return OutcomeReply, nil
}

func (e *Engine) handleCommand(ctx context.Context, msg InboundMessage, transport Transport, rest string) (Outcome, error) {
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return OutcomeIgnored, nil
	}
	verb := strings.ToLower(fields[0])
	args := fields[1:]

	owner, err := e.resolver.IsOwner(ctx, msg.SenderID)
	if err != nil {
		return OutcomeError, err
	}

	cmd := &command.Context{
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		IsGroup:        msg.IsGroup,
		IsOwner:        owner,
		Reply: func(ctx context.Context, text string) error {
			return transport.Send(ctx, msg.ConversationID, text)
		},
	}

	if !owner && !e.commands.Open(verb) {
		authorized, err := e.resolver.IsAuthorized(ctx, msg.SenderID, msg.ConversationID, msg.IsGroup)
		if err != nil {
			return OutcomeError, err
		}
		if !authorized {
			if err := cmd.Reply(ctx, "No estás autorizado. Pide acceso a un administrador."); err != nil {
				return OutcomeError, err
			}
			return OutcomeDenied, nil
		}
	}

	if err := e.commands.Run(ctx, cmd, verb, args); err != nil {
		return OutcomeError, err
	}
	return OutcomeCommand, nil
}

// botMentioned checks the stored bot binding for the conversation, falling
// back to the transport's hint when no binding has been set up yet.
func (e *Engine) botMentioned(ctx context.Context, msg InboundMessage) (bool, error) {
	botID, err := e.bindings.BotIdentifier(ctx, msg.ConversationID)
	if err != nil {
		return false, fmt.Errorf("load bot binding: %w", err)
	}
	if botID == "" {
		botID = msg.BotIdentifierHint
	}
	return identity.MentionsIdentifier(msg.Mentions, botID), nil
}

func (e *Engine) generationSettings(ctx context.Context) (string, float64, error) {
	persona, err := e.settings.Get(ctx, settings.KeyPersona)
	if err != nil {
		return "", 0, fmt.Errorf("load persona: %w", err)
	}
	if persona == "" {
		persona = e.defaults.Persona
	}

	temperature := e.defaults.Temperature
	if raw, err := e.settings.Get(ctx, settings.KeyTemperature); err != nil {
		return "", 0, fmt.Errorf("load temperature: %w", err)
	} else if raw != "" {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil {
			temperature = parsed
		}
	}
	return persona, temperature, nil
}
