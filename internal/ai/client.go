// Package ai generates weekly reflection reports through an OpenAI-compatible
// chat completion endpoint (OpenRouter by default).
package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"

	"github.com/Shkirskiy/Moody-Telegram-Bot/assets"
)

const (
	requestTimeout = 120 * time.Second
	temperature    = 0.7
	maxTokens      = 2000

	// minReportChars rejects degenerate completions.
	minReportChars = 50
)

// ErrInsufficientContent marks a completion that came back too short to be a
// usable report.
var ErrInsufficientContent = errors.New("generated report was too short or empty")

// Meta describes one generation attempt for failure bookkeeping.
type Meta struct {
	Model     string
	ErrorType string // empty on success
}

// Service talks to the chat completion API.
type Service struct {
	client openai.Client
	model  string
	log    *zap.Logger
}

// New builds a Service against the given OpenAI-compatible endpoint.
func New(apiKey, baseURL, model string, log *zap.Logger) *Service {
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(&http.Client{Timeout: requestTimeout}),
	)
	return &Service{
		client: client,
		model:  model,
		log:    log.Named("ai"),
	}
}

// Model returns the configured model identifier.
func (s *Service) Model() string { return s.model }

// Generate produces a weekly report from formatted week data and up to three
// previous report contents. On failure the Meta carries an error type for the
// retry bookkeeping.
func (s *Service) Generate(ctx context.Context, weekData string, previousReports []string) (string, Meta, error) {
	meta := Meta{Model: s.model}
	prompt := BuildPrompt(weekData, previousReports)

	s.log.Info("generating weekly report", zap.String("model", s.model), zap.Int("prompt_chars", len(prompt)))

	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(s.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(assets.WeeklyReportPrompt),
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(temperature),
		MaxTokens:   openai.Int(maxTokens),
	})
	if err != nil {
		meta.ErrorType = classifyError(err)
		s.log.Error("chat completion failed",
			zap.String("model", s.model),
			zap.String("error_type", meta.ErrorType),
			zap.Error(err))
		return "", meta, fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		meta.ErrorType = "api_error"
		return "", meta, errors.New("chat completion: no choices in response")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if len(content) < minReportChars {
		meta.ErrorType = "insufficient_content"
		s.log.Error("report too short", zap.String("model", s.model), zap.Int("chars", len(content)))
		return "", meta, ErrInsufficientContent
	}

	s.log.Info("weekly report generated",
		zap.String("model", s.model),
		zap.Int("report_chars", len(content)))
	return content, meta, nil
}

func classifyError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return "api_error"
	}
	return "unknown"
}
