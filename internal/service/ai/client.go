package ai

import (
	"context"
	"errors"
	"strings"
	"time"

	"careerbot/internal/models"
	"careerbot/internal/service/prompt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
)

// Completer produces one reply for an assembled prompt.
type Completer interface {
	Complete(ctx context.Context, req prompt.Request) (string, error)
}

// Client sends prompts to an eino chat model.
type Client struct {
	provider  string
	chatModel model.BaseChatModel
	timeout   time.Duration
	logger    *zap.Logger
}

var _ Completer = (*Client)(nil)

func NewClient(provider string, chatModel model.BaseChatModel, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{provider: provider, chatModel: chatModel, timeout: timeout, logger: logger}
}

func (c *Client) Provider() string { return c.provider }

// Complete makes a single attempt. Every failure comes back as *ServiceError.
func (c *Client) Complete(ctx context.Context, req prompt.Request) (string, error) {
	if len(req.Messages) == 0 {
		return "", &ServiceError{Provider: c.provider, Cause: errors.New("no messages to send")}
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	opts := []model.Option{model.WithTemperature(req.Temperature)}
	if req.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(req.MaxTokens))
	}

	start := time.Now()
	resp, err := c.chatModel.Generate(ctx, convertMessages(req.Messages), opts...)
	if err != nil {
		c.logger.Warn("completion failed",
			zap.String("provider", c.provider),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", &ServiceError{Provider: c.provider, Cause: err}
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", &ServiceError{Provider: c.provider, Cause: errEmptyReply}
	}
	c.logger.Debug("completion done",
		zap.String("provider", c.provider),
		zap.Int("messages", len(req.Messages)),
		zap.Int("max_tokens", req.MaxTokens),
		zap.Duration("elapsed", time.Since(start)))
	return resp.Content, nil
}

func convertMessages(messages []models.ChatMessage) []*schema.Message {
	out := make([]*schema.Message, 0, len(messages))
	for _, msg := range messages {
		var role schema.RoleType
		switch msg.Role {
		case models.RoleAssistant:
			role = schema.Assistant
		case models.RoleSystem:
			role = schema.System
		default:
			role = schema.User
		}
		out = append(out, &schema.Message{Role: role, Content: msg.Content})
	}
	return out
}
