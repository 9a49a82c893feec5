package service

import (
	"context"
	"fmt"
	"strings"

	"finadvisor/pkg/config"

	"github.com/Role1776/gigago"
	"go.uber.org/zap"
)

// Completer produces a bounded natural-language completion for a prompt.
// Implementations may fail; callers decide what failure means.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type LLMService struct {
	client *gigago.Client
	model  *gigago.GenerativeModel
	config *config.GigaChatConfig
	logger *zap.Logger
}

// systemInstruction fixes the advisor persona: responses match the locale of
// the input, stay concise and actionable, and include a savings estimate.
const systemInstruction = "Eres un asesor financiero experto que da consejos prácticos y motivacionales en español. " +
	"Tus respuestas son concisas, específicas y accionables. Responde en un solo párrafo e incluye una " +
	"estimación numérica de ahorro potencial."

func NewLLMService(cfg *config.GigaChatConfig, logger *zap.Logger) (*LLMService, error) {
	ctx := context.Background()

	opts := []gigago.Option{
		gigago.WithCustomScope(cfg.Scope),
	}
	if cfg.InsecureSkipVerify {
		opts = append(opts, gigago.WithCustomInsecureSkipVerify(true))
		logger.Warn("GigaChat TLS certificate verification is disabled")
	}

	client, err := gigago.NewClient(ctx, cfg.APIKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GigaChat client: %w", err)
	}

	model := client.GenerativeModel("GigaChat")
	model.SystemInstruction = systemInstruction
	// Fixed sampling temperature for a reproducible tone.
	model.Temperature = 0.7

	logger.Info("Using GigaChat model")

	return &LLMService{
		client: client,
		model:  model,
		config: cfg,
		logger: logger,
	}, nil
}

// Complete sends the prompt to GigaChat bounded by the configured timeout.
// An empty completion is an error so callers can fall back deterministically.
func (s *LLMService) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	messages := []gigago.Message{
		{Role: gigago.RoleUser, Content: prompt},
	}

	resp, err := s.model.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("failed to generate completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from LLM")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("empty response from LLM")
	}

	return content, nil
}

func (s *LLMService) Close() error {
	if s.client != nil {
		s.client.Close()
	}
	return nil
}
