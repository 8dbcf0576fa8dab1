package search

import (
	"context"

	"github.com/kailas-cloud/tensordex/internal/domain"
	domdoc "github.com/kailas-cloud/tensordex/internal/domain/document"
	domidx "github.com/kailas-cloud/tensordex/internal/domain/index"
	"github.com/kailas-cloud/tensordex/internal/domain/search/filter"
	"github.com/kailas-cloud/tensordex/internal/domain/search/result"
)

// Repository defines the chunk-level retrieval contract.
type Repository interface {
	SearchTensor(
		ctx context.Context, idx domidx.Index, vector []float32,
		filters filter.Expression, k, efRuntime int,
	) ([]result.ChunkHit, error)

	SearchLexical(
		ctx context.Context, idx domidx.Index, query string,
		searchable []string, filters filter.Expression, topK int,
	) ([]result.ChunkHit, error)
}

// IndexReader reads indexes for settings and the field registry.
type IndexReader interface {
	Get(ctx context.Context, name string) (domidx.Index, error)
}

// DocumentReader hydrates matched documents for the result page.
type DocumentReader interface {
	GetMulti(ctx context.Context, indexName string, ids []string) (map[string]domdoc.Document, error)
}

// Embedder vectorizes the query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
