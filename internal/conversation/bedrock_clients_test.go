package conversation

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

type fakeConverseAPI struct {
	input *bedrockruntime.ConverseInput
	out   *bedrockruntime.ConverseOutput
	err   error
}

func (f *fakeConverseAPI) Converse(_ context.Context, params *bedrockruntime.ConverseInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	f.input = params
	return f.out, f.err
}

func textOutput(text string) *bedrockruntime.ConverseOutput {
	return &bedrockruntime.ConverseOutput{
		Output: &brtypes.ConverseOutputMemberMessage{Value: brtypes.Message{
			Role:    brtypes.ConversationRoleAssistant,
			Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: text}},
		}},
		StopReason: brtypes.StopReasonEndTurn,
		Usage: &brtypes.TokenUsage{
			InputTokens:  aws.Int32(12),
			OutputTokens: aws.Int32(5),
			TotalTokens:  aws.Int32(17),
		},
	}
}

func TestBedrockLLMClient_Complete(t *testing.T) {
	api := &fakeConverseAPI{out: textOutput("  Parking is free.  ")}
	client := NewBedrockLLMClient(api, "anthropic.claude-3-haiku")

	resp, err := client.Complete(context.Background(), LLMRequest{
		System: []string{"be strict", " "},
		Messages: []ChatMessage{
			{Role: ChatRoleSystem, Content: "extra rule"},
			{Role: ChatRoleUser, Content: "Is parking free?"},
		},
		MaxTokens:   256,
		Temperature: 0.3,
	})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if resp.Text != "Parking is free." {
		t.Fatalf("unexpected text %q", resp.Text)
	}
	if resp.Usage.TotalTokens != 17 || resp.StopReason != "end_turn" {
		t.Fatalf("unexpected usage/stop: %+v", resp)
	}

	if aws.ToString(api.input.ModelId) != "anthropic.claude-3-haiku" {
		t.Fatalf("expected default model, got %q", aws.ToString(api.input.ModelId))
	}
	if len(api.input.System) != 2 {
		t.Fatalf("expected 2 system blocks, got %d", len(api.input.System))
	}
	if len(api.input.Messages) != 1 || api.input.Messages[0].Role != brtypes.ConversationRoleUser {
		t.Fatalf("unexpected messages: %#v", api.input.Messages)
	}
	if aws.ToInt32(api.input.InferenceConfig.MaxTokens) != 256 {
		t.Fatalf("expected max tokens to be forwarded")
	}
}

func TestBedrockLLMClient_RequiresModelAndMessages(t *testing.T) {
	api := &fakeConverseAPI{out: textOutput("hi")}
	if _, err := NewBedrockLLMClient(api, "").Complete(context.Background(), LLMRequest{
		Messages: []ChatMessage{{Role: ChatRoleUser, Content: "hi"}},
	}); err == nil {
		t.Fatal("expected error without a model id")
	}
	if _, err := NewBedrockLLMClient(api, "m").Complete(context.Background(), LLMRequest{}); err == nil {
		t.Fatal("expected error without messages")
	}
	if _, err := NewBedrockLLMClient(api, "m").Complete(context.Background(), LLMRequest{
		Messages: []ChatMessage{{Role: "tool", Content: "x"}},
	}); err == nil {
		t.Fatal("expected error for unsupported role")
	}
}

func TestBedrockLLMClient_EmptyOutput(t *testing.T) {
	api := &fakeConverseAPI{out: textOutput("   ")}
	_, err := NewBedrockLLMClient(api, "m").Complete(context.Background(), LLMRequest{
		Messages: []ChatMessage{{Role: ChatRoleUser, Content: "hi"}},
	})
	if err == nil {
		t.Fatal("expected error for empty model output")
	}
}

type fakeInvokeAPI struct {
	inputs []string
}

func (f *fakeInvokeAPI) InvokeModel(_ context.Context, params *bedrockruntime.InvokeModelInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	var req struct {
		InputText string `json:"inputText"`
	}
	if err := json.Unmarshal(params.Body, &req); err != nil {
		return nil, err
	}
	f.inputs = append(f.inputs, req.InputText)
	body, _ := json.Marshal(map[string]any{"embedding": []float64{float64(len(req.InputText)), 1}})
	return &bedrockruntime.InvokeModelOutput{Body: body}, nil
}

func TestBedrockEmbedder_Embed(t *testing.T) {
	api := &fakeInvokeAPI{}
	embedder := NewBedrockEmbedder(api, "amazon.titan-embed-text-v2:0")

	vectors, err := embedder.Embed(context.Background(), []string{"abc", "hello"})
	if err != nil {
		t.Fatalf("Embed returned error: %v", err)
	}
	if len(vectors) != 2 || vectors[0][0] != 3 || vectors[1][0] != 5 {
		t.Fatalf("unexpected vectors: %#v", vectors)
	}
	if len(api.inputs) != 2 || api.inputs[1] != "hello" {
		t.Fatalf("unexpected inputs: %#v", api.inputs)
	}

	if _, err := NewBedrockEmbedder(api, "").Embed(context.Background(), []string{"x"}); err == nil {
		t.Fatal("expected error without a model id")
	}
}
