package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	appconfig "github.com/wolfman30/clinic-booking-assistant/internal/config"
	"github.com/wolfman30/clinic-booking-assistant/internal/conversation"
	"github.com/wolfman30/clinic-booking-assistant/internal/observability/metrics"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

const (
	providerBedrock = "bedrock"
	providerGemini  = "gemini"
)

// BuildLLMClient wires the configured provider as primary and, when the other
// provider is configured too, uses it as fallback. Each provider is
// instrumented separately. The returned func releases provider resources.
func BuildLLMClient(ctx context.Context, cfg *appconfig.Config, awsCfg aws.Config, am *metrics.AssistantMetrics, logger *logging.Logger) (conversation.LLMClient, func(), error) {
	if cfg == nil {
		return nil, func() {}, fmt.Errorf("bootstrap: missing config")
	}
	if logger == nil {
		logger = logging.Default()
	}

	var closers []func() error
	build := func(provider string) (conversation.LLMClient, error) {
		switch provider {
		case providerBedrock:
			client := conversation.NewBedrockLLMClient(bedrockruntime.NewFromConfig(awsCfg), cfg.BedrockModelID)
			return conversation.NewInstrumentedLLMClient(client, providerBedrock, am), nil
		case providerGemini:
			client, err := conversation.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
			if err != nil {
				return nil, err
			}
			closers = append(closers, client.Close)
			return conversation.NewInstrumentedLLMClient(client, providerGemini, am), nil
		default:
			return nil, fmt.Errorf("bootstrap: unsupported llm provider %q", provider)
		}
	}

	primary, err := build(cfg.LLMProvider)
	if err != nil {
		return nil, func() {}, err
	}

	var fallback conversation.LLMClient
	if name := fallbackProvider(cfg); name != "" {
		fallback, err = build(name)
		if err != nil {
			logger.Warn("fallback llm unavailable", "provider", name, "error", err)
			fallback = nil
		} else {
			logger.Info("fallback llm configured", "primary", cfg.LLMProvider, "fallback", name)
		}
	}

	cleanup := func() {
		for _, closeFn := range closers {
			_ = closeFn()
		}
	}
	return conversation.NewFallbackLLMClient(primary, fallback, logger), cleanup, nil
}

func fallbackProvider(cfg *appconfig.Config) string {
	switch cfg.LLMProvider {
	case providerBedrock:
		if strings.TrimSpace(cfg.GeminiAPIKey) != "" {
			return providerGemini
		}
	case providerGemini:
		if strings.TrimSpace(cfg.BedrockModelID) != "" {
			return providerBedrock
		}
	}
	return ""
}

// BuildRetrievalIndex returns an embedding-backed index when an embedding
// model is configured and a lexical index otherwise.
func BuildRetrievalIndex(ctx context.Context, cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) (conversation.Index, func(), error) {
	if logger == nil {
		logger = logging.Default()
	}
	switch {
	case cfg != nil && strings.TrimSpace(cfg.BedrockEmbeddingModelID) != "":
		embedder := conversation.NewBedrockEmbedder(bedrockruntime.NewFromConfig(awsCfg), cfg.BedrockEmbeddingModelID)
		logger.Info("retrieval uses bedrock embeddings", "model", cfg.BedrockEmbeddingModelID)
		return conversation.NewMemoryRAGStore(embedder, logger), func() {}, nil
	case cfg != nil && strings.TrimSpace(cfg.GeminiEmbeddingModel) != "" && strings.TrimSpace(cfg.GeminiAPIKey) != "":
		embedder, err := conversation.NewGeminiEmbedder(ctx, cfg.GeminiAPIKey, cfg.GeminiEmbeddingModel)
		if err != nil {
			return nil, func() {}, err
		}
		logger.Info("retrieval uses gemini embeddings", "model", cfg.GeminiEmbeddingModel)
		return conversation.NewMemoryRAGStore(embedder, logger), func() { _ = embedder.Close() }, nil
	default:
		logger.Info("no embedding model configured; retrieval uses keyword overlap")
		return conversation.NewLexicalRetriever(), func() {}, nil
	}
}
