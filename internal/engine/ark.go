package engine

import (
	"context"
	"errors"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"

	"github.com/intelligentbasedhms/hms-gateway/internal/config"
	"github.com/intelligentbasedhms/hms-gateway/internal/knowledge"
)

// NewArkModel builds the Volcengine Ark chat model described by cfg.
func NewArkModel(ctx context.Context, cfg config.EngineConfig) (model.ChatModel, error) {
	if !cfg.UseArk() {
		return nil, errors.New("ark: ARK_API_KEY and ARK_MODEL are required")
	}

	var temperature *float32
	if cfg.ArkTemperature != nil {
		v := float32(*cfg.ArkTemperature)
		temperature = &v
	}
	var maxTokens *int
	if cfg.ArkMaxTokens != nil {
		v := *cfg.ArkMaxTokens
		maxTokens = &v
	}

	return ark.NewChatModel(ctx, &ark.ChatModelConfig{
		BaseURL:     cfg.ArkBaseURL,
		Region:      cfg.ArkRegion,
		APIKey:      cfg.ArkAPIKey,
		Model:       cfg.ArkModel,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
}

// NewChatModel returns the Ark model when credentials are configured and a
// LocalModel over kb otherwise.
func NewChatModel(ctx context.Context, cfg config.EngineConfig, kb knowledge.Index) (model.ChatModel, error) {
	if cfg.UseArk() {
		return NewArkModel(ctx, cfg)
	}
	return &LocalModel{Index: kb, Threshold: cfg.Threshold}, nil
}
