package conversation

import (
	"context"
	"time"

	"github.com/wolfman30/clinic-booking-assistant/internal/observability/metrics"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

// FallbackLLMClient wraps a primary LLM client with a fallback provider.
// If the primary fails, the request is retried once on the fallback.
type FallbackLLMClient struct {
	primary  LLMClient
	fallback LLMClient
	logger   *logging.Logger
}

// NewFallbackLLMClient creates a new fallback-enabled LLM client.
// If fallback is nil, the client will only use the primary provider.
func NewFallbackLLMClient(primary, fallback LLMClient, logger *logging.Logger) *FallbackLLMClient {
	if primary == nil {
		panic("conversation: primary llm client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &FallbackLLMClient{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (c *FallbackLLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	resp, err := c.primary.Complete(ctx, req)
	if err == nil {
		return resp, nil
	}

	c.logger.Warn("primary LLM failed, attempting fallback",
		"error", err.Error(),
		"fallback_available", c.fallback != nil,
	)
	if c.fallback == nil {
		return LLMResponse{}, err
	}

	// The fallback provider has its own default model.
	req.Model = ""
	fallbackResp, fallbackErr := c.fallback.Complete(ctx, req)
	if fallbackErr != nil {
		c.logger.Error("fallback LLM also failed",
			"primary_error", err.Error(),
			"fallback_error", fallbackErr.Error(),
		)
		return LLMResponse{}, fallbackErr
	}

	c.logger.Info("fallback LLM succeeded after primary failure")
	return fallbackResp, nil
}

// InstrumentedLLMClient records completion latency per provider.
type InstrumentedLLMClient struct {
	inner    LLMClient
	provider string
	metrics  *metrics.AssistantMetrics
	now      func() time.Time
}

func NewInstrumentedLLMClient(inner LLMClient, provider string, am *metrics.AssistantMetrics) *InstrumentedLLMClient {
	if inner == nil {
		panic("conversation: llm client cannot be nil")
	}
	return &InstrumentedLLMClient{inner: inner, provider: provider, metrics: am, now: time.Now}
}

func (c *InstrumentedLLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	start := c.now()
	resp, err := c.inner.Complete(ctx, req)
	c.metrics.ObserveLLMLatency(c.provider, err, c.now().Sub(start))
	return resp, err
}
