package agents

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cloudwego/eino-ext/components/model/deepseek"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/itzana/itzanago/config"
)

// ErrNoAPIKey means the configured provider has no key in the environment.
var ErrNoAPIKey = errors.New("no API key configured")

// NewChatModel builds the chat model for the configured provider.
func NewChatModel(ctx context.Context, cfg *config.Config, modelName string) (model.ToolCallingChatModel, error) {
	if cfg.APIKey() == "" {
		return nil, fmt.Errorf("%w for provider %s", ErrNoAPIKey, cfg.LLMProvider)
	}

	switch cfg.LLMProvider {
	case config.ProviderDeepSeek:
		cm, err := deepseek.NewChatModel(ctx, &deepseek.ChatModelConfig{
			APIKey:    cfg.DeepSeekAPIKey,
			Model:     modelName,
			BaseURL:   cfg.BackendURL,
			MaxTokens: cfg.MaxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("create deepseek model %s: %w", modelName, err)
		}
		return cm, nil
	default:
		maxTokens := cfg.MaxTokens
		cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL:   cfg.BackendURL,
			APIKey:    cfg.OpenAIAPIKey,
			Model:     modelName,
			MaxTokens: &maxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("create openai model %s: %w", modelName, err)
		}
		return cm, nil
	}
}

func ToolCallChecker(ctx context.Context, sr *schema.StreamReader[*schema.Message]) (bool, error) {
	defer sr.Close()
	for {
		msg, err := sr.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return false, nil
			}
			return false, err
		}
		if len(msg.ToolCalls) > 0 {
			return true, nil
		}
	}
}
