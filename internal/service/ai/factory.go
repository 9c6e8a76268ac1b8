package ai

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"careerbot/internal/config"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	// EnvMode set to MOCK forces the offline chat model regardless of config.
	EnvMode  = "CAREERBOT_MODE"
	ModeMock = "MOCK"

	ProviderOpenAI = "openai"
	ProviderClaude = "claude"
	ProviderGemini = "gemini"
	ProviderMock   = "mock"

	defaultOpenAIBaseURL = "https://api.groq.com/openai/v1"
	defaultOpenAIModel   = "llama3-8b-8192"
	defaultClaudeModel   = "claude-3-5-haiku-latest"
	defaultGeminiModel   = "gemini-2.0-flash"
	claudeMaxTokens      = 1024
)

// NewFromConfig builds the completion client for cfg.Completion.Provider.
func NewFromConfig(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := time.Duration(cfg.BasicConfig.CompletionTimeoutSeconds) * time.Second

	provider := strings.ToLower(cfg.Completion.Provider)
	if os.Getenv(EnvMode) == ModeMock {
		logger.Info("mock mode forced by environment", zap.String("env", EnvMode))
		provider = ProviderMock
	}
	if provider == ProviderMock {
		logger.Info("completion provider ready", zap.String("provider", provider))
		return NewClient(ProviderMock, NewMockChatModel(), timeout, logger), nil
	}

	provCfg := cfg.Providers[provider]
	modelName := cfg.Completion.Model
	if modelName == "" {
		modelName = provCfg.Model
	}
	chatModel, err := newChatModel(ctx, provider, modelName, provCfg)
	if err != nil {
		return nil, err
	}
	logger.Info("completion provider ready", zap.String("provider", provider), zap.String("model", modelName))
	return NewClient(provider, chatModel, timeout, logger), nil
}

func newChatModel(ctx context.Context, provider, modelName string, provCfg config.ProviderConfig) (model.BaseChatModel, error) {
	if provCfg.APIKey == "" {
		return nil, fmt.Errorf("provider %s: api key not configured", provider)
	}
	switch provider {
	case ProviderOpenAI:
		baseURL := provCfg.BaseURL
		if baseURL == "" {
			baseURL = defaultOpenAIBaseURL
		}
		if modelName == "" {
			modelName = defaultOpenAIModel
		}
		return openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL: baseURL,
			Model:   modelName,
			APIKey:  provCfg.APIKey,
		})
	case ProviderGemini:
		if modelName == "" {
			modelName = defaultGeminiModel
		}
		client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: provCfg.APIKey})
		if err != nil {
			return nil, fmt.Errorf("gemini client: %w", err)
		}
		return gemini.NewChatModel(ctx, &gemini.Config{
			Client: client,
			Model:  modelName,
		})
	case ProviderClaude:
		if modelName == "" {
			modelName = defaultClaudeModel
		}
		var baseURL *string
		if provCfg.BaseURL != "" {
			baseURL = &provCfg.BaseURL
		}
		return claude.NewChatModel(ctx, &claude.Config{
			APIKey:    provCfg.APIKey,
			Model:     modelName,
			BaseURL:   baseURL,
			MaxTokens: claudeMaxTokens,
		})
	default:
		return nil, fmt.Errorf("invalid provider: %s", provider)
	}
}
