// Package llm wraps the generative-text backend behind the two operations the
// application needs: generating a question set for an interview and scoring a
// user's answer. The backend is an OpenAI-compatible chat API; its output is
// free text with no guaranteed schema, so everything that comes back goes
// through the defensive parsers in parse.go.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pavelanni/mockview/internal/llm/prompt"
	"github.com/pavelanni/mockview/internal/model"

	openai "github.com/sashabaranov/go-openai"
)

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api     *openai.Client
	model   string
	timeout time.Duration
}

// New creates a new LLM client. A zero timeout means completion calls are
// bounded only by the caller's context.
func New(baseURL, apiKey, modelName string, timeout time.Duration) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:     openai.NewClientWithConfig(config),
		model:   modelName,
		timeout: timeout,
	}
}

// Ping verifies the backend is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("LLM ping: %w", err)
	}
	return nil
}

// Complete sends a single prompt and returns the raw completion text.
// The configured timeout bounds the call; a hung backend surfaces as a
// context deadline error like any other API failure.
func (c *Client) Complete(ctx context.Context, promptText string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: promptText},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("LLM returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM response", "raw", raw)
	return raw, nil
}

// GenerateQuestions asks the model for a question set for the given role.
// An API failure is returned to the caller; a malformed reply is not — the
// parser silently degrades to an empty set so the session stays usable.
func (c *Client) GenerateQuestions(ctx context.Context, position, description, techStack string, experience int) ([]model.Question, error) {
	p := prompt.BuildGeneration(position, description, techStack, experience)
	raw, err := c.Complete(ctx, p)
	if err != nil {
		return nil, err
	}
	return ParseQuestionSet(raw), nil
}

// ScoreAnswer rates a user's answer against the reference answer. The
// returned Score is always usable: when the API call fails the fallback
// score is returned alongside the error so the caller can notify the user
// without losing the result.
func (c *Client) ScoreAnswer(ctx context.Context, question, referenceAnswer, userAnswer string) (Score, error) {
	p := prompt.BuildScoring(question, referenceAnswer, userAnswer)
	raw, err := c.Complete(ctx, p)
	if err != nil {
		return fallbackScore(), err
	}
	return ParseScore(raw), nil
}
