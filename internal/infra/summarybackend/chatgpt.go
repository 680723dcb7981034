package summarybackend

import (
	"context"
	"log/slog"
	"time"

	"github.com/yanqian/review-digest/internal/domain/review"
	"github.com/yanqian/review-digest/internal/infra/llm/chatgpt"
	apperrors "github.com/yanqian/review-digest/pkg/errors"
)

// ChatClient is the slice of the chat API the adapter needs.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req chatgpt.ChatCompletionRequest) (chatgpt.ChatCompletionResponse, error)
}

// Config selects the model used for summaries.
type Config struct {
	Model       string
	Temperature float32
	MaxTokens   int
}

// ChatGPTSummarizer adapts the chat client to review.Summarizer.
type ChatGPTSummarizer struct {
	client ChatClient
	cfg    Config
	logger *slog.Logger
}

// NewChatGPTSummarizer constructs the adapter.
func NewChatGPTSummarizer(client ChatClient, cfg Config, logger *slog.Logger) *ChatGPTSummarizer {
	return &ChatGPTSummarizer{
		client: client,
		cfg:    cfg,
		logger: logger.With("component", "summarybackend.chatgpt"),
	}
}

// Summarize sends prompt as the system message and reviewText as the user
// message, returning the first choice's content unmodified. No choices
// yields "".
func (s *ChatGPTSummarizer) Summarize(ctx context.Context, prompt, reviewText string) (string, error) {
	start := time.Now()
	resp, err := s.client.CreateChatCompletion(ctx, chatgpt.ChatCompletionRequest{
		Model:       s.cfg.Model,
		Temperature: s.cfg.Temperature,
		MaxTokens:   s.cfg.MaxTokens,
		Messages: []chatgpt.Message{
			{Role: "system", Content: prompt},
			{Role: "user", Content: reviewText},
		},
	})
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeBackendUnavailable, "text generation backend request failed", err)
	}

	attrs := append([]any{"model", s.cfg.Model, "duration_ms", time.Since(start).Milliseconds()}, resp.Usage.LogAttrs()...)
	s.logger.Info("summary completion received", attrs...)

	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

var _ review.Summarizer = (*ChatGPTSummarizer)(nil)
