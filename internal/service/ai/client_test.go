package ai

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"careerbot/internal/config"
	"careerbot/internal/models"
	"careerbot/internal/service/prompt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recordingModel struct {
	reply string
	err   error
	block bool

	input []*schema.Message
	opts  *model.Options
}

func (m *recordingModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.input = input
	m.opts = model.GetCommonOptions(&model.Options{}, opts...)
	if m.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if m.err != nil {
		return nil, m.err
	}
	return schema.AssistantMessage(m.reply, nil), nil
}

func (m *recordingModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not used")
}

func sampleRequest() prompt.Request {
	return prompt.Request{
		Messages: []models.ChatMessage{
			{Role: models.RoleSystem, Content: "system"},
			{Role: models.RoleUser, Content: "earlier"},
			{Role: models.RoleAssistant, Content: "reply"},
			{Role: models.RoleUser, Content: "now"},
		},
		MaxTokens:   250,
		Temperature: 0.8,
	}
}

func TestCompleteSendsMessagesAndOptions(t *testing.T) {
	fake := &recordingModel{reply: "Consider data engineering."}
	client := NewClient("fake", fake, time.Second, nil)

	got, err := client.Complete(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, "Consider data engineering.", got)

	require.Len(t, fake.input, 4)
	assert.Equal(t, schema.System, fake.input[0].Role)
	assert.Equal(t, schema.Assistant, fake.input[2].Role)
	assert.Equal(t, "now", fake.input[3].Content)
	require.NotNil(t, fake.opts.MaxTokens)
	assert.Equal(t, 250, *fake.opts.MaxTokens)
	require.NotNil(t, fake.opts.Temperature)
	assert.Equal(t, float32(0.8), *fake.opts.Temperature)
}

func TestCompleteWrapsFailures(t *testing.T) {
	cases := map[string]*recordingModel{
		"provider error": {err: errors.New("401 unauthorized")},
		"empty reply":    {reply: "   "},
	}
	for name, fake := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewClient("fake", fake, time.Second, nil).Complete(context.Background(), sampleRequest())
			require.Error(t, err)
			var svcErr *ServiceError
			require.True(t, errors.As(err, &svcErr))
			assert.Equal(t, "fake", svcErr.Provider)
		})
	}
}

func TestCompleteHonoursTimeout(t *testing.T) {
	fake := &recordingModel{block: true}
	_, err := NewClient("fake", fake, 20*time.Millisecond, nil).Complete(context.Background(), sampleRequest())
	require.True(t, IsServiceError(err))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestCompleteRejectsEmptyRequest(t *testing.T) {
	_, err := NewClient("fake", &recordingModel{reply: "x"}, 0, nil).Complete(context.Background(), prompt.Request{})
	assert.True(t, IsServiceError(err))
}

func TestNewFromConfigMock(t *testing.T) {
	cfg := config.Default()
	client, err := NewFromConfig(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, ProviderMock, client.Provider())

	got, err := client.Complete(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "[mock]"))
	assert.Contains(t, got, "now")
}

func TestNewFromConfigEnvForcesMock(t *testing.T) {
	t.Setenv(EnvMode, ModeMock)
	cfg := config.Default()
	cfg.Completion.Provider = ProviderOpenAI
	client, err := NewFromConfig(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, ProviderMock, client.Provider())
}

func TestNewFromConfigRequiresKey(t *testing.T) {
	cfg := config.Default()
	cfg.Completion.Provider = ProviderClaude
	cfg.Providers = map[string]config.ProviderConfig{}
	_, err := NewFromConfig(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestNewFromConfigOpenAI(t *testing.T) {
	cfg := config.Default()
	cfg.Completion.Provider = ProviderOpenAI
	cfg.Providers = map[string]config.ProviderConfig{ProviderOpenAI: {APIKey: "test-key"}}
	client, err := NewFromConfig(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, client.Provider())
}

func TestNewFromConfigLogsReadyOnce(t *testing.T) {
	t.Setenv(EnvMode, "")
	for _, provider := range []string{ProviderMock, ProviderOpenAI} {
		core, logs := observer.New(zapcore.InfoLevel)
		cfg := config.Default()
		cfg.Completion.Provider = provider
		cfg.Providers = map[string]config.ProviderConfig{ProviderOpenAI: {APIKey: "test-key"}}

		_, err := NewFromConfig(context.Background(), cfg, zap.New(core))
		require.NoError(t, err)
		ready := logs.FilterMessage("completion provider ready").All()
		require.Len(t, ready, 1, provider)
		assert.Equal(t, provider, ready[0].ContextMap()["provider"])
	}
}
