package tensordex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/tensordex/internal/domain"
	domidx "github.com/kailas-cloud/tensordex/internal/domain/index"
)

// IndexService manages indexes.
type IndexService struct {
	svc indexUseCase
	obs *observer
}

// Create creates a new index. Pass nil settings to use client defaults.
func (s *IndexService) Create(
	ctx context.Context, name string, settings *IndexSettings,
) (_ IndexInfo, err error) {
	start := time.Now()
	defer func() { s.obs.observe("index.create", start, err) }()

	idx, err := s.svc.Create(ctx, name, toInternalSettings(settings))
	if err != nil {
		return IndexInfo{}, fmt.Errorf("create index: %w", err)
	}
	return fromInternalIndex(idx), nil
}

// Ensure creates an index if it does not exist.
// If it already exists, returns its info.
func (s *IndexService) Ensure(
	ctx context.Context, name string, settings *IndexSettings,
) (_ IndexInfo, err error) {
	start := time.Now()
	defer func() { s.obs.observe("index.ensure", start, err) }()

	idx, err := s.svc.Create(ctx, name, toInternalSettings(settings))
	if err == nil {
		return fromInternalIndex(idx), nil
	}
	if !errors.Is(err, domain.ErrAlreadyExists) {
		return IndexInfo{}, fmt.Errorf("ensure index: %w", err)
	}

	existing, err := s.svc.Get(ctx, name)
	if err != nil {
		return IndexInfo{}, fmt.Errorf("ensure index: %w", err)
	}
	return fromInternalIndex(existing), nil
}

// Get retrieves index metadata by name.
func (s *IndexService) Get(ctx context.Context, name string) (_ IndexInfo, err error) {
	start := time.Now()
	defer func() { s.obs.observe("index.get", start, err) }()

	idx, err := s.svc.Get(ctx, name)
	if err != nil {
		return IndexInfo{}, fmt.Errorf("get index: %w", err)
	}
	return fromInternalIndex(idx), nil
}

// List returns all indexes.
func (s *IndexService) List(ctx context.Context) (_ []IndexInfo, err error) {
	start := time.Now()
	defer func() { s.obs.observe("index.list", start, err) }()

	indexes, err := s.svc.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list indexes: %w", err)
	}
	out := make([]IndexInfo, len(indexes))
	for i, idx := range indexes {
		out[i] = fromInternalIndex(idx)
	}
	return out, nil
}

// Delete removes an index with all its documents.
func (s *IndexService) Delete(ctx context.Context, name string) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("index.delete", start, err) }()

	if err = s.svc.Delete(ctx, name); err != nil {
		return fmt.Errorf("delete index: %w", err)
	}
	return nil
}

// Stats returns document and vector counts for an index.
func (s *IndexService) Stats(ctx context.Context, name string) (_ IndexStats, err error) {
	start := time.Now()
	defer func() { s.obs.observe("index.stats", start, err) }()

	stats, err := s.svc.Stats(ctx, name)
	if err != nil {
		return IndexStats{}, fmt.Errorf("index stats: %w", err)
	}
	return IndexStats{
		NumberOfDocuments: stats.NumberOfDocuments,
		NumberOfVectors:   stats.NumberOfVectors,
	}, nil
}

func toInternalSettings(s *IndexSettings) domidx.Settings {
	if s == nil {
		return domidx.Settings{}
	}
	return domidx.Settings{
		Model: domidx.Model{
			Name:        s.Model.Name,
			Dimensions:  s.Model.Dimensions,
			QueryPrefix: s.Model.QueryPrefix,
			ChunkPrefix: s.Model.ChunkPrefix,
		},
		DistanceMetric:      domidx.DistanceMetric(s.DistanceMetric),
		NormalizeEmbeddings: s.NormalizeEmbeddings,
		Hnsw: domidx.Hnsw{
			M:              s.HNSW.M,
			EfConstruction: s.HNSW.EfConstruction,
		},
		TextPreprocessing: domidx.TextPreprocessing{
			SplitLength:  s.TextPreprocessing.SplitLength,
			SplitOverlap: s.TextPreprocessing.SplitOverlap,
			SplitMethod:  domidx.SplitMethod(s.TextPreprocessing.SplitMethod),
		},
		FilterStringMaxLength: s.FilterStringMaxLength,
	}
}

func fromInternalIndex(idx domidx.Index) IndexInfo {
	st := idx.Settings()
	return IndexInfo{
		Name: idx.Name(),
		Settings: IndexSettings{
			Model: ModelSettings{
				Name:        st.Model.Name,
				Dimensions:  st.Model.Dimensions,
				QueryPrefix: st.Model.QueryPrefix,
				ChunkPrefix: st.Model.ChunkPrefix,
			},
			DistanceMetric:      string(st.DistanceMetric),
			NormalizeEmbeddings: st.NormalizeEmbeddings,
			HNSW: HNSWSettings{
				M:              st.Hnsw.M,
				EfConstruction: st.Hnsw.EfConstruction,
			},
			TextPreprocessing: TextPreprocessing{
				SplitLength:  st.TextPreprocessing.SplitLength,
				SplitOverlap: st.TextPreprocessing.SplitOverlap,
				SplitMethod:  string(st.TextPreprocessing.SplitMethod),
			},
			FilterStringMaxLength: st.FilterStringMaxLength,
		},
		CreatedAt: time.UnixMilli(idx.CreatedAt()).UTC(),
		UpdatedAt: time.UnixMilli(idx.UpdatedAt()).UTC(),
	}
}
