// Package ai talks to an OpenAI-compatible chat-completions endpoint
// (OpenRouter by default) for tone detection and smart replies.
package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/samber/lo"
	"github.com/sashabaranov/go-openai"

	"github.com/Bharath-S-J/Intent-Chat/config"
	"github.com/Bharath-S-J/Intent-Chat/pkg/models"
)

const maxReplies = 3

var (
	ErrEmptyInput      = errors.New("valid message is required")
	ErrUnexpectedTone  = errors.New("unexpected tone response")
	ErrEmptyCompletion = errors.New("empty completion")
)

const replySystemPrompt = "You are a friendly person replying to chat messages casually. " +
	"Keep responses short, human, and conversational, like something you'd actually say over text. " +
	"Avoid sounding robotic or overly formal."

var (
	toneLabel     = regexp.MustCompile(`\b(joy|sadness|anger|fear|surprise|neutral)\b`)
	replySplitter = regexp.MustCompile(`\n?\d+\.\s+`)
)

type Client struct {
	api    *openai.Client
	cfg    config.AIConfig
	logger *slog.Logger
}

func NewClient(cfg config.AIConfig, logger *slog.Logger) *Client {
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	apiCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	apiCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Client{
		api:    openai.NewClientWithConfig(apiCfg),
		cfg:    cfg,
		logger: logger,
	}
}

// DetectTone classifies text into one of models.Tones.
func (c *Client) DetectTone(ctx context.Context, text string) (models.Tone, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyInput
	}

	prompt := fmt.Sprintf("Classify the emotional tone of this message: %q. "+
		"Choose one from: joy, sadness, anger, fear, surprise, or neutral. "+
		"Respond only with the tone label.", text)

	content, err := c.complete(ctx, c.cfg.ToneTemperature,
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt},
	)
	if err != nil {
		return "", fmt.Errorf("detect tone: %w", err)
	}
	return ParseTone(content)
}

// SmartReplies suggests up to three casual replies to message.
func (c *Client) SmartReplies(ctx context.Context, message string) ([]string, error) {
	if strings.TrimSpace(message) == "" {
		return nil, ErrEmptyInput
	}

	prompt := fmt.Sprintf("Give 3 natural, casual replies someone might send in response to this message:\n%q\n"+
		"Each reply should be on a separate line starting with a number.", message)

	content, err := c.complete(ctx, c.cfg.ReplyTemperature,
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: replySystemPrompt},
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt},
	)
	if err != nil {
		return nil, fmt.Errorf("smart replies: %w", err)
	}
	return ParseReplies(content), nil
}

func (c *Client) complete(ctx context.Context, temperature float64, messages ...openai.ChatCompletionMessage) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		Temperature: float32(temperature),
	})
	if err != nil {
		c.logger.Warn("Completion request failed", "error", err, "model", c.cfg.Model)
		return "", fmt.Errorf("create completion: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}

// ParseTone extracts the first known label from a model answer.
func ParseTone(raw string) (models.Tone, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	match := toneLabel.FindStringSubmatch(normalized)
	if match == nil {
		return "", fmt.Errorf("%w: %q", ErrUnexpectedTone, normalized)
	}
	return models.Tone(match[1]), nil
}

// ParseReplies splits a numbered list into at most three trimmed replies.
func ParseReplies(raw string) []string {
	parts := lo.Map(replySplitter.Split(raw, -1), func(part string, _ int) string {
		return strings.Trim(strings.TrimSpace(part), `"' `)
	})
	replies := lo.Compact(parts)
	if len(replies) > maxReplies {
		replies = replies[:maxReplies]
	}
	return replies
}
