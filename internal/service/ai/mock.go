package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// MockChatModel answers without network access by echoing the last user message.
type MockChatModel struct{}

var _ model.BaseChatModel = (*MockChatModel)(nil)

func NewMockChatModel() *MockChatModel {
	return &MockChatModel{}
}

func (m *MockChatModel) Generate(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return schema.AssistantMessage(m.reply(input), nil), nil
}

func (m *MockChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (m *MockChatModel) reply(input []*schema.Message) string {
	var last string
	for i := len(input) - 1; i >= 0; i-- {
		if input[i].Role == schema.User {
			last = input[i].Content
			break
		}
	}
	last = strings.TrimSpace(last)
	if r := []rune(last); len(r) > 120 {
		last = string(r[:120]) + "..."
	}
	return fmt.Sprintf("[mock] %d messages received. Last question: %s", len(input), last)
}
