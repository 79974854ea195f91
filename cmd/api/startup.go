package main

import (
	"context"

	"github.com/wolfman30/clinic-booking-assistant/internal/clinic"
	"github.com/wolfman30/clinic-booking-assistant/internal/conversation"
	"github.com/wolfman30/clinic-booking-assistant/internal/ingest"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

type documentRestorer interface {
	Restore(ctx context.Context, lib *ingest.Library) ([]string, error)
}

type documentBuilder interface {
	Rebuild(ctx context.Context) (ingest.RebuildResult, error)
}

type startup struct {
	library   *ingest.Library
	mirror    documentRestorer
	rebuilder documentBuilder
	store     *clinic.Store
	registry  *clinic.Registry
	knowledge conversation.KnowledgeRepository
	retriever *conversation.Retriever
	logger    *logging.Logger
}

// warmStart pulls mirrored documents into the upload directory and builds the
// directory and index from them. When the rebuild fails, the last published
// directory and chunks are restored from Redis instead.
func warmStart(ctx context.Context, s startup) {
	if restored, err := s.mirror.Restore(ctx, s.library); err != nil {
		s.logger.Warn("document mirror restore failed", "error", err)
	} else if len(restored) > 0 {
		s.logger.Info("documents restored from mirror", "count", len(restored))
	}

	result, err := s.rebuilder.Rebuild(ctx)
	if err == nil {
		s.logger.Info("document library loaded",
			"documents", result.Documents,
			"clinics", result.Clinics,
			"chunks", result.Chunks,
		)
		return
	}
	s.logger.Warn("document rebuild failed; restoring cached state", "error", err)

	if s.store != nil {
		snap, ok, err := s.store.Load(ctx)
		switch {
		case err != nil:
			s.logger.Warn("clinic directory cache unavailable", "error", err)
		case ok:
			dir := s.registry.Restore(snap)
			s.logger.Info("clinic directory restored from cache", "clinics", dir.Len(), "version", dir.Version())
		}
	}

	n, err := conversation.RestoreIndex(ctx, s.knowledge, s.retriever)
	if err != nil {
		s.logger.Warn("knowledge restore failed", "error", err)
		return
	}
	if n > 0 {
		s.logger.Info("retrieval index restored", "chunks", n)
	}
}
