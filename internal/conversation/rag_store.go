package conversation

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

// Chunk is one retrievable piece of an uploaded document.
type Chunk struct {
	Source string `json:"source"`
	Text   string `json:"text"`
}

// Index ranks chunks against a query.
type Index interface {
	Reindex(ctx context.Context, chunks []Chunk) error
	Search(ctx context.Context, query string, k int) ([]Chunk, error)
	Len() int
}

const embedBatchSize = 32

// MemoryRAGStore keeps embeddings in memory and ranks by cosine similarity.
type MemoryRAGStore struct {
	embedder Embedder
	logger   *logging.Logger

	mu   sync.RWMutex
	docs []ragDocument
}

type ragDocument struct {
	chunk     Chunk
	embedding []float32
}

// NewMemoryRAGStore creates an in-memory vector index.
func NewMemoryRAGStore(embedder Embedder, logger *logging.Logger) *MemoryRAGStore {
	if embedder == nil {
		panic("conversation: embedder cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &MemoryRAGStore{embedder: embedder, logger: logger}
}

// Reindex embeds chunks and replaces the whole index. On error the previous
// index is kept.
func (s *MemoryRAGStore) Reindex(ctx context.Context, chunks []Chunk) error {
	docs := make([]ragDocument, 0, len(chunks))
	for start := 0; start < len(chunks); start += embedBatchSize {
		end := min(start+embedBatchSize, len(chunks))
		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Text)
		}
		vectors, err := s.embedder.Embed(ctx, texts)
		if err != nil {
			return err
		}
		if len(vectors) != len(texts) {
			return errEmbeddingMismatch
		}
		for i, vec := range vectors {
			docs = append(docs, ragDocument{chunk: chunks[start+i], embedding: vec})
		}
	}

	s.mu.Lock()
	s.docs = docs
	s.mu.Unlock()
	s.logger.Info("retrieval index rebuilt", "chunks", len(docs))
	return nil
}

// Search returns the k chunks closest to query.
func (s *MemoryRAGStore) Search(ctx context.Context, query string, k int) ([]Chunk, error) {
	if s.Len() == 0 {
		return nil, nil
	}
	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, nil
	}
	queryVec := vectors[0]

	s.mu.RLock()
	results := make([]scoredChunk, 0, len(s.docs))
	for _, doc := range s.docs {
		results = append(results, scoredChunk{score: cosineSimilarity(queryVec, doc.embedding), chunk: doc.chunk})
	}
	s.mu.RUnlock()

	return topChunks(results, k), nil
}

// Len reports how many chunks are indexed.
func (s *MemoryRAGStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

type scoredChunk struct {
	score float64
	chunk Chunk
}

func topChunks(results []scoredChunk, k int) []Chunk {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})
	if k <= 0 || k > len(results) {
		k = len(results)
	}
	out := make([]Chunk, k)
	for i := 0; i < k; i++ {
		out[i] = results[i].chunk
	}
	return out
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot float64
	var normA float64
	var normB float64
	for i := range a {
		dot += float64(a[i] * b[i])
		normA += float64(a[i] * a[i])
		normB += float64(b[i] * b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// LexicalRetriever ranks chunks by how many distinct query terms they share.
// It is used when no embedding model is configured.
type LexicalRetriever struct {
	mu     sync.RWMutex
	chunks []Chunk
	terms  []map[string]struct{}
}

func NewLexicalRetriever() *LexicalRetriever {
	return &LexicalRetriever{}
}

func (l *LexicalRetriever) Reindex(_ context.Context, chunks []Chunk) error {
	terms := make([]map[string]struct{}, len(chunks))
	for i, c := range chunks {
		terms[i] = termSet(c.Text)
	}
	l.mu.Lock()
	l.chunks = append([]Chunk(nil), chunks...)
	l.terms = terms
	l.mu.Unlock()
	return nil
}

func (l *LexicalRetriever) Search(_ context.Context, query string, k int) ([]Chunk, error) {
	queryTerms := termSet(query)
	if len(queryTerms) == 0 {
		return nil, nil
	}

	l.mu.RLock()
	var results []scoredChunk
	for i, set := range l.terms {
		hits := 0
		for term := range queryTerms {
			if _, ok := set[term]; ok {
				hits++
			}
		}
		if hits > 0 {
			results = append(results, scoredChunk{score: float64(hits), chunk: l.chunks[i]})
		}
	}
	l.mu.RUnlock()

	if len(results) == 0 {
		return nil, nil
	}
	return topChunks(results, k), nil
}

func (l *LexicalRetriever) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.chunks)
}

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "are": {}, "for": {}, "you": {}, "your": {}, "what": {},
	"which": {}, "does": {}, "with": {}, "this": {}, "that": {}, "have": {}, "how": {},
	"can": {}, "there": {}, "any": {}, "about": {}, "tell": {}, "from": {},
}

func termSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		if len([]rune(w)) < 3 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		set[w] = struct{}{}
	}
	return set
}

const minQueryLength = 5

// Retriever builds the context passed to the model for document questions.
type Retriever struct {
	index  Index
	logger *logging.Logger
}

func NewRetriever(index Index, logger *logging.Logger) *Retriever {
	if index == nil {
		panic("conversation: retrieval index cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Retriever{index: index, logger: logger}
}

// Ready reports whether any document has been indexed.
func (r *Retriever) Ready() bool {
	return r.index.Len() > 0
}

// RetrieveContext returns the top k chunks joined by blank lines, or "" when
// nothing is indexed, the query is too short, or the search fails.
func (r *Retriever) RetrieveContext(ctx context.Context, query string, k int) string {
	if !r.Ready() {
		return ""
	}
	if len([]rune(strings.TrimSpace(query))) < minQueryLength {
		return ""
	}
	chunks, err := r.index.Search(ctx, query, k)
	if err != nil {
		r.logger.Warn("retrieval failed", "error", err)
		return ""
	}
	texts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		texts = append(texts, c.Text)
	}
	return strings.Join(texts, "\n\n")
}

// Reindex replaces the indexed chunks.
func (r *Retriever) Reindex(ctx context.Context, chunks []Chunk) error {
	return r.index.Reindex(ctx, chunks)
}
