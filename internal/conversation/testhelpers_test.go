package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
)

type stubEmbedder struct {
	mu    sync.Mutex
	err   error
	calls int
}

// Embed maps each text onto a tiny keyword space so similarity is predictable.
func (s *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		t = strings.ToLower(t)
		out[i] = []float32{
			keywordWeight(t, "parking"),
			keywordWeight(t, "doctor"),
			keywordWeight(t, "insurance"),
			0.01,
		}
	}
	return out, nil
}

func keywordWeight(text, keyword string) float32 {
	return float32(strings.Count(text, keyword))
}

type stubLLM struct {
	mu       sync.Mutex
	requests []LLMRequest
	text     string
	err      error
}

func (s *stubLLM) Complete(_ context.Context, req LLMRequest) (LLMResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if s.err != nil {
		return LLMResponse{}, s.err
	}
	return LLMResponse{Text: s.text}, nil
}

var errBoom = errors.New("boom")
