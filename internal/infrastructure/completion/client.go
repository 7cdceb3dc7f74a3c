// Package completion wraps the OpenAI chat API behind the engine's reply and
// summarization interfaces.
package completion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/MDCYT/doctor-scum-whatsapp-bot/internal/domain/chat"
	"github.com/MDCYT/doctor-scum-whatsapp-bot/internal/domain/session"
	"github.com/MDCYT/doctor-scum-whatsapp-bot/internal/metrics"
)

const (
	// summaryTemperature keeps summaries factual rather than creative.
	summaryTemperature = 0.3

	summarySystemPrompt = "Resume la siguiente conversación en español, en 3 a 5 frases. " +
		"Conserva los hechos, nombres y decisiones importantes; omite saludos y relleno."

	personaInstructions = "\n\nInstrucciones: responde siempre en español. " +
		"Si te preguntan por comandos, recuerda que usan el prefijo ds."
)

// Config holds the OpenAI client configuration.
type Config struct {
	APIKey              string
	BaseURL             string
	Model               string
	MaxResponseTokens   int
	SummaryTargetTokens int
}

// Client implements chat.CompletionClient and session.Summarizer on the
// OpenAI chat completions API.
type Client struct {
	api                 *openai.Client
	model               string
	maxResponseTokens   int
	summaryTargetTokens int
}

var (
	_ chat.CompletionClient = (*Client)(nil)
	_ session.Summarizer    = (*Client)(nil)
)

func NewClient(cfg Config) *Client {
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	return &Client{
		api:                 openai.NewClientWithConfig(apiCfg),
		model:               cfg.Model,
		maxResponseTokens:   cfg.MaxResponseTokens,
		summaryTargetTokens: cfg.SummaryTargetTokens,
	}
}

// GenerateReply builds the completion request from persona, stored summary,
// window history and the new user message, in that order.
func (c *Client) GenerateReply(ctx context.Context, req chat.ReplyRequest) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+3)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: req.Persona + personaInstructions,
	})
	if req.Summary != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: "Resumen de la conversación hasta ahora: " + req.Summary,
		})
	}
	for _, turn := range req.History {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    string(turn.Role),
			Content: turn.Content,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.UserMessage,
	})

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   c.maxResponseTokens,
	})
	metrics.RecordCompletion(time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	log.Ctx(ctx).Debug().
		Str("model", resp.Model).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Msg("Completion finished")
	return resp.Choices[0].Message.Content, nil
}

// Summarize condenses rendered conversation text for the context window.
func (c *Client) Summarize(ctx context.Context, text string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: summarySystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Temperature: summaryTemperature,
		MaxTokens:   c.summaryTargetTokens,
	})
	if err != nil {
		metrics.RecordSummarize("error")
		return "", fmt.Errorf("summarize: %w", err)
	}
	if len(resp.Choices) == 0 {
		metrics.RecordSummarize("error")
		return "", errors.New("summarize returned no choices")
	}
	metrics.RecordSummarize("success")
	return resp.Choices[0].Message.Content, nil
}
