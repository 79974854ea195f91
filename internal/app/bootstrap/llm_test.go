package bootstrap

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"

	appconfig "github.com/wolfman30/clinic-booking-assistant/internal/config"
	"github.com/wolfman30/clinic-booking-assistant/internal/conversation"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

func TestBuildLLMClientBedrock(t *testing.T) {
	cfg := &appconfig.Config{LLMProvider: "bedrock", BedrockModelID: "anthropic.claude-3-haiku"}
	client, cleanup, err := BuildLLMClient(context.Background(), cfg, aws.Config{Region: "us-east-1"}, nil, logging.New("error"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cleanup()
	if _, ok := client.(*conversation.FallbackLLMClient); !ok {
		t.Fatalf("expected fallback-wrapped client, got %T", client)
	}
}

func TestBuildLLMClientErrors(t *testing.T) {
	logger := logging.New("error")
	cases := []struct {
		name string
		cfg  *appconfig.Config
	}{
		{name: "nil config"},
		{name: "unknown provider", cfg: &appconfig.Config{LLMProvider: "openai"}},
		{name: "gemini without key", cfg: &appconfig.Config{LLMProvider: "gemini"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, cleanup, err := BuildLLMClient(context.Background(), tc.cfg, aws.Config{}, nil, logger)
			if err == nil {
				t.Fatalf("expected error")
			}
			if client != nil {
				t.Fatalf("expected nil client on error")
			}
			cleanup()
		})
	}
}

func TestFallbackProvider(t *testing.T) {
	cases := []struct {
		cfg  appconfig.Config
		want string
	}{
		{cfg: appconfig.Config{LLMProvider: "bedrock"}, want: ""},
		{cfg: appconfig.Config{LLMProvider: "bedrock", GeminiAPIKey: "key"}, want: "gemini"},
		{cfg: appconfig.Config{LLMProvider: "gemini", GeminiAPIKey: "key"}, want: ""},
		{cfg: appconfig.Config{LLMProvider: "gemini", BedrockModelID: "model"}, want: "bedrock"},
	}
	for _, tc := range cases {
		if got := fallbackProvider(&tc.cfg); got != tc.want {
			t.Fatalf("fallbackProvider(%+v) = %q, want %q", tc.cfg, got, tc.want)
		}
	}
}

func TestBuildRetrievalIndex(t *testing.T) {
	logger := logging.New("error")

	index, cleanup, err := BuildRetrievalIndex(context.Background(), &appconfig.Config{}, aws.Config{}, logger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cleanup()
	if _, ok := index.(*conversation.LexicalRetriever); !ok {
		t.Fatalf("expected lexical retriever, got %T", index)
	}

	cfg := &appconfig.Config{BedrockEmbeddingModelID: "amazon.titan-embed-text-v2:0"}
	index, cleanup, err = BuildRetrievalIndex(context.Background(), cfg, aws.Config{Region: "us-east-1"}, logger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cleanup()
	if _, ok := index.(*conversation.MemoryRAGStore); !ok {
		t.Fatalf("expected embedding store, got %T", index)
	}
}
