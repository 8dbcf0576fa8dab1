// Package index implements index lifecycle operations.
package index

import (
	"context"
	"fmt"

	domidx "github.com/kailas-cloud/tensordex/internal/domain/index"
)

// Stats holds per-index counters.
type Stats struct {
	NumberOfDocuments int
	NumberOfVectors   int
}

// Service handles index CRUD and stats.
type Service struct {
	repo     Repository
	counter  DocumentCounter
	defaults domidx.Settings
}

// New creates an index service. defaults fill unset settings knobs on create,
// including the embedding model.
func New(repo Repository, counter DocumentCounter, defaults domidx.Settings) *Service {
	return &Service{repo: repo, counter: counter, defaults: defaults}
}

// Create validates settings against the configured defaults and stores a new
// index. Empty settings take the configured defaults wholesale; partial
// settings are filled knob by knob.
func (s *Service) Create(ctx context.Context, name string, settings domidx.Settings) (domidx.Index, error) {
	if settings == (domidx.Settings{}) {
		settings = s.defaults
	}
	if settings.Model.Name == "" {
		settings.Model = s.defaults.Model
	}
	idx, err := domidx.New(name, settings)
	if err != nil {
		return domidx.Index{}, fmt.Errorf("validate index: %w", err)
	}

	if err := s.repo.Create(ctx, idx); err != nil {
		return domidx.Index{}, fmt.Errorf("create index: %w", err)
	}

	return idx, nil
}

// Get retrieves an index by name.
func (s *Service) Get(ctx context.Context, name string) (domidx.Index, error) {
	idx, err := s.repo.Get(ctx, name)
	if err != nil {
		return domidx.Index{}, fmt.Errorf("get index: %w", err)
	}
	return idx, nil
}

// List returns all indexes.
func (s *Service) List(ctx context.Context) ([]domidx.Index, error) {
	indexes, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list indexes: %w", err)
	}
	return indexes, nil
}

// Delete removes an index with all its documents.
func (s *Service) Delete(ctx context.Context, name string) error {
	if err := s.repo.Delete(ctx, name); err != nil {
		return fmt.Errorf("delete index: %w", err)
	}
	return nil
}

// Stats returns document and vector counts for an index.
func (s *Service) Stats(ctx context.Context, name string) (Stats, error) {
	if _, err := s.repo.Get(ctx, name); err != nil {
		return Stats{}, fmt.Errorf("get index: %w", err)
	}
	docs, err := s.counter.Count(ctx, name)
	if err != nil {
		return Stats{}, fmt.Errorf("count documents: %w", err)
	}
	vectors, err := s.counter.VectorCount(ctx, name)
	if err != nil {
		return Stats{}, fmt.Errorf("count vectors: %w", err)
	}
	return Stats{NumberOfDocuments: docs, NumberOfVectors: vectors}, nil
}
