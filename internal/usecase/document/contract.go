package document

import (
	"context"

	"github.com/kailas-cloud/tensordex/internal/domain"
	domdoc "github.com/kailas-cloud/tensordex/internal/domain/document"
	domidx "github.com/kailas-cloud/tensordex/internal/domain/index"
	"github.com/kailas-cloud/tensordex/internal/domain/index/field"
)

// Repository defines the storage contract for documents.
type Repository interface {
	Upsert(ctx context.Context, indexName string, settings domidx.Settings, doc *domdoc.Document) error
	Get(ctx context.Context, indexName, id string) (domdoc.Document, error)
	Delete(ctx context.Context, indexName, id string) error
	UpdateFields(
		ctx context.Context, indexName string, settings domidx.Settings,
		doc *domdoc.Document, hashCount int, removedFields []string,
	) error
	HashCount(ctx context.Context, indexName, id string) (int, error)
}

// IndexRegistry reads index metadata and grows the field registry as documents
// introduce new fields.
type IndexRegistry interface {
	Get(ctx context.Context, name string) (domidx.Index, error)
	RegisterFields(ctx context.Context, idx domidx.Index, incoming []field.Field) (domidx.Index, error)
}

// Embedder vectorizes chunk texts in batches.
type Embedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}
