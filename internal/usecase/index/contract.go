package index

import (
	"context"

	domidx "github.com/kailas-cloud/tensordex/internal/domain/index"
)

// Repository defines the storage contract for index metadata.
type Repository interface {
	Create(ctx context.Context, idx domidx.Index) error
	Get(ctx context.Context, name string) (domidx.Index, error)
	List(ctx context.Context) ([]domidx.Index, error)
	Delete(ctx context.Context, name string) error
}

// DocumentCounter reports document and vector counts for index stats.
type DocumentCounter interface {
	Count(ctx context.Context, indexName string) (int, error)
	VectorCount(ctx context.Context, indexName string) (int, error)
}
