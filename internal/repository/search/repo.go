// Package search runs chunk-level retrieval against the FT index and maps
// engine distances back to similarity scores.
package search

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/tensordex/internal/db"
	"github.com/kailas-cloud/tensordex/internal/domain"
	domidx "github.com/kailas-cloud/tensordex/internal/domain/index"
	"github.com/kailas-cloud/tensordex/internal/domain/index/field"
	"github.com/kailas-cloud/tensordex/internal/domain/search/filter"
	"github.com/kailas-cloud/tensordex/internal/domain/search/result"
	repoidx "github.com/kailas-cloud/tensordex/internal/repository/index"
)

// store is the consumer interface for search (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchBM25(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
}

// Repo implements usecase/search.Repository.
type Repo struct {
	store store
	keys  repoidx.Keys
}

// New creates a search repository.
func New(s store, keys repoidx.Keys) *Repo {
	return &Repo{store: s, keys: keys}
}

var chunkReturnFields = []string{repoidx.AttrDocID, repoidx.AttrField, repoidx.AttrChunk}

// SearchTensor runs KNN over the chunk hashes of an index. Scores are
// similarities derived from the index distance metric.
func (r *Repo) SearchTensor(
	ctx context.Context, idx domidx.Index, vector []float32,
	filters filter.Expression, k, efRuntime int,
) ([]result.ChunkHit, error) {
	mapped, err := mapExpression(idx, filters)
	if err != nil {
		return nil, err
	}

	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.keys.Search(idx.Name()),
		VectorField:  repoidx.AttrVector,
		Filters:      mapped,
		Vector:       vector,
		K:            k,
		EfRuntime:    efRuntime,
		ReturnFields: chunkReturnFields,
	})
	if err != nil {
		return nil, fmt.Errorf("knn search: %w", err)
	}

	metric := idx.Settings().DistanceMetric
	hits := make([]result.ChunkHit, 0, len(res.Entries))
	for _, e := range res.Entries {
		hits = append(hits, result.ChunkHit{
			DocID: e.Fields[repoidx.AttrDocID],
			Field: e.Fields[repoidx.AttrField],
			Chunk: e.Fields[repoidx.AttrChunk],
			Score: similarity(metric, e.Score),
		})
	}
	return hits, nil
}

// SearchLexical runs BM25 over the lexical copies of the given fields.
// An empty field list searches every registered string and tensor field.
func (r *Repo) SearchLexical(
	ctx context.Context, idx domidx.Index, query string,
	searchable []string, filters filter.Expression, topK int,
) ([]result.ChunkHit, error) {
	attrs, err := lexicalAttrs(idx, searchable)
	if err != nil {
		return nil, err
	}
	if len(attrs) == 0 {
		// nothing lexically searchable has been registered yet
		return nil, nil
	}

	mapped, err := mapExpression(idx, filters)
	if err != nil {
		return nil, err
	}

	res, err := r.store.SearchBM25(ctx, &db.TextQuery{
		IndexName:    r.keys.Search(idx.Name()),
		Query:        query,
		Fields:       attrs,
		Filters:      mapped,
		TopK:         topK,
		ReturnFields: chunkReturnFields,
	})
	if err != nil {
		return nil, fmt.Errorf("bm25 search: %w", err)
	}

	hits := make([]result.ChunkHit, 0, len(res.Entries))
	for _, e := range res.Entries {
		hits = append(hits, result.ChunkHit{
			DocID: e.Fields[repoidx.AttrDocID],
			Field: e.Fields[repoidx.AttrField],
			Chunk: e.Fields[repoidx.AttrChunk],
			Score: e.Score,
		})
	}
	return hits, nil
}

// lexicalAttrs resolves searchable document fields to their lex_* attributes.
func lexicalAttrs(idx domidx.Index, searchable []string) ([]string, error) {
	if len(searchable) == 0 {
		var attrs []string
		for _, f := range idx.Fields() {
			if f.Type() == field.TypeString || f.Type() == field.TypeTensor {
				attrs = append(attrs, repoidx.LexicalAttr(f.Name()))
			}
		}
		return attrs, nil
	}

	attrs := make([]string, 0, len(searchable))
	for _, name := range searchable {
		f, ok := idx.FieldByName(name)
		if !ok {
			return nil, fmt.Errorf("%w: unknown searchable attribute %q", domain.ErrInvalidField, name)
		}
		if f.Type() != field.TypeString && f.Type() != field.TypeTensor {
			return nil, fmt.Errorf("%w: attribute %q is not searchable text", domain.ErrInvalidField, name)
		}
		attrs = append(attrs, repoidx.LexicalAttr(name))
	}
	return attrs, nil
}

// mapExpression rewrites filter conditions from document field names to their
// hash attributes, validating each against the registry.
func mapExpression(idx domidx.Index, expr filter.Expression) (filter.Expression, error) {
	return expr.Rewrite(func(c filter.Condition) (filter.Condition, error) {
		f, ok := idx.FieldByName(c.Key())
		if !ok {
			return filter.Condition{}, fmt.Errorf("%w: unknown filter field %q", domain.ErrInvalidField, c.Key())
		}
		switch {
		case c.IsMatch():
			switch f.Type() {
			case field.TypeString, field.TypeTensor, field.TypeStringArray, field.TypeBool:
				return c.WithKey(repoidx.FilterAttr(f.Name())), nil
			default:
				return filter.Condition{}, fmt.Errorf(
					"%w: field %q is numeric, use a range filter", domain.ErrInvalidField, c.Key())
			}
		case c.IsRange():
			if !f.IsNumeric() {
				return filter.Condition{}, fmt.Errorf(
					"%w: field %q is not numeric, range filters do not apply", domain.ErrInvalidField, c.Key())
			}
			return c.WithKey(repoidx.NumericAttr(f.Name())), nil
		default:
			return filter.Condition{}, fmt.Errorf("%w: empty filter condition", domain.ErrInvalidField)
		}
	})
}

// similarity converts an engine-reported distance to a similarity score.
func similarity(metric domidx.DistanceMetric, distance float64) float64 {
	switch metric {
	case domidx.DistanceEuclidean:
		return 1 / (1 + distance)
	case domidx.DistanceDotProduct:
		// the engine reports 1 - innerProduct
		return 1 - distance
	default:
		// cosine distance, clamped to [0,1]
		if d := 1 - distance; d > 0 {
			return d
		}
		return 0
	}
}
