package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"sync"

	"github.com/wolfman30/clinic-booking-assistant/internal/clinic"
	"github.com/wolfman30/clinic-booking-assistant/internal/conversation"
	"github.com/wolfman30/clinic-booking-assistant/internal/observability/metrics"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

// DirectoryCache persists the published clinic directory.
type DirectoryCache interface {
	Save(ctx context.Context, dir *clinic.Directory) error
	Clear(ctx context.Context) error
}

// Reindexer replaces the retrieval index.
type Reindexer interface {
	Reindex(ctx context.Context, chunks []conversation.Chunk) error
}

// RebuildResult summarizes one Rebuild call.
type RebuildResult struct {
	Changed   bool   `json:"changed"`
	Documents int    `json:"documents"`
	Skipped   int    `json:"skipped"`
	Clinics   int    `json:"clinics"`
	Chunks    int    `json:"chunks"`
	Version   uint64 `json:"directory_version"`
}

// RebuilderConfig holds the collaborators of a Rebuilder. Library, Extractor,
// Registry and Index are required.
type RebuilderConfig struct {
	Library   *Library
	Extractor TextExtractor
	Registry  *clinic.Registry
	Index     Reindexer
	Cache     DirectoryCache
	Knowledge conversation.KnowledgeRepository
	Chunker   conversation.Chunker
	Metrics   *metrics.AssistantMetrics
	Logger    *logging.Logger
}

// Rebuilder derives the clinic directory and retrieval index from the
// document library.
type Rebuilder struct {
	library   *Library
	extractor TextExtractor
	registry  *clinic.Registry
	index     Reindexer
	cache     DirectoryCache
	knowledge conversation.KnowledgeRepository
	chunker   conversation.Chunker
	metrics   *metrics.AssistantMetrics
	logger    *logging.Logger

	mu          sync.Mutex
	fingerprint string
	built       bool
}

func NewRebuilder(cfg RebuilderConfig) *Rebuilder {
	if cfg.Library == nil || cfg.Extractor == nil || cfg.Registry == nil || cfg.Index == nil {
		panic("ingest: rebuilder requires library, extractor, registry and index")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &Rebuilder{
		library:   cfg.Library,
		extractor: cfg.Extractor,
		registry:  cfg.Registry,
		index:     cfg.Index,
		cache:     cfg.Cache,
		knowledge: cfg.Knowledge,
		chunker:   cfg.Chunker,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
	}
}

// Rebuild re-reads the library when its contents changed since the last
// successful rebuild. The new directory is published only after the index has
// been rebuilt, so both always describe the same documents.
func (r *Rebuilder) Rebuild(ctx context.Context) (RebuildResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	docs, err := r.library.List()
	if err != nil {
		r.metrics.ObserveDirectoryRebuild("error")
		return RebuildResult{}, err
	}
	fp := fingerprint(docs)
	if r.built && fp == r.fingerprint {
		r.metrics.ObserveDirectoryRebuild("unchanged")
		return RebuildResult{
			Documents: len(docs),
			Clinics:   r.registry.Current().Len(),
			Version:   r.registry.Current().Version(),
		}, nil
	}

	result := RebuildResult{Changed: true, Documents: len(docs)}
	var records []clinic.Record
	var chunks []conversation.Chunk
	for _, doc := range docs {
		text, err := r.extractor.Extract(r.library.Path(doc.Name))
		if err != nil {
			r.logger.Warn("skipping unreadable document", "document", doc.Name, "error", err)
			result.Skipped++
			continue
		}
		records = append(records, ParseClinic(text, NameFromFile(doc.Name)))
		for _, piece := range r.chunker.Split(text) {
			chunks = append(chunks, conversation.Chunk{Source: doc.Name, Text: piece})
		}
	}

	if err := r.index.Reindex(ctx, chunks); err != nil {
		r.metrics.ObserveDirectoryRebuild("error")
		return RebuildResult{}, fmt.Errorf("ingest: rebuild retrieval index: %w", err)
	}
	dir := r.registry.Replace(records)
	r.persist(ctx, dir, chunks)

	r.fingerprint = fp
	r.built = true
	result.Clinics = dir.Len()
	result.Chunks = len(chunks)
	result.Version = dir.Version()

	outcome := "rebuilt"
	if dir.Empty() {
		outcome = "cleared"
	}
	r.metrics.ObserveDirectoryRebuild(outcome)
	r.logger.Info("clinic directory rebuilt",
		"documents", result.Documents,
		"skipped", result.Skipped,
		"clinics", result.Clinics,
		"chunks", result.Chunks,
		"directory_version", result.Version,
	)
	return result, nil
}

// persist writes the directory cache and knowledge chunks. Failures are
// logged; the in-memory state is already published.
func (r *Rebuilder) persist(ctx context.Context, dir *clinic.Directory, chunks []conversation.Chunk) {
	if r.cache != nil {
		var err error
		if dir.Empty() {
			err = r.cache.Clear(ctx)
		} else {
			err = r.cache.Save(ctx, dir)
		}
		if err != nil {
			r.logger.Warn("failed to persist clinic directory", "error", err)
		}
	}
	if r.knowledge != nil {
		if err := r.knowledge.ReplaceChunks(ctx, chunks); err != nil {
			r.logger.Warn("failed to persist knowledge chunks", "error", err)
		}
	}
}

func fingerprint(docs []Document) string {
	h := sha256.New()
	for _, d := range docs {
		h.Write([]byte(d.Name))
		h.Write([]byte{0})
		h.Write([]byte(strconv.FormatInt(d.Size, 10)))
		h.Write([]byte{0})
		h.Write([]byte(strconv.FormatInt(d.ModTime.UnixNano(), 10)))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
