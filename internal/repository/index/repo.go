// Package index persists index metadata and manages the per-index FT search
// schema, including on-the-fly schema growth for newly discovered fields.
package index

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/kailas-cloud/tensordex/internal/db"
	"github.com/kailas-cloud/tensordex/internal/domain"
	domidx "github.com/kailas-cloud/tensordex/internal/domain/index"
	"github.com/kailas-cloud/tensordex/internal/domain/index/field"
)

// store is the consumer interface for index metadata (ISP).
//
//nolint:interfacebloat // index repo needs hash + index management operations
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, key string) error
	DelMulti(ctx context.Context, keys []string) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	AlterIndex(ctx context.Context, name string, fields []db.IndexField) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Repo implements usecase/index.Repository.
type Repo struct {
	store store
	keys  Keys
}

// New creates an index repository.
func New(s store, keys Keys) *Repo {
	return &Repo{store: s, keys: keys}
}

// Keys exposes the key scheme so sibling repositories share one layout.
func (r *Repo) Keys() Keys { return r.keys }

// Create stores an index: HSET metadata then FT.CREATE the search schema.
// On FT.CREATE failure, rolls back the HSET via DEL.
func (r *Repo) Create(ctx context.Context, idx domidx.Index) error {
	name := idx.Name()

	metaKey := r.keys.Meta(name)
	exists, err := r.store.Exists(ctx, metaKey)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return domain.ErrAlreadyExists
	}

	// Prepare FT definition and hash data before writes
	def, err := buildSearchIndex(r.keys, idx)
	if err != nil {
		return fmt.Errorf("build search index: %w", err)
	}
	hashData, err := indexToHash(idx)
	if err != nil {
		return err
	}

	if err := r.store.HSet(ctx, metaKey, hashData); err != nil {
		return fmt.Errorf("hset index %s: %w", name, err)
	}

	// FT.CREATE — rollback HSET on error
	if err := r.store.CreateIndex(ctx, def); err != nil {
		cleanupErr := r.store.Del(ctx, metaKey)
		return errors.Join(err, cleanupErr)
	}

	return nil
}

// Get retrieves an index by name.
func (r *Repo) Get(ctx context.Context, name string) (domidx.Index, error) {
	m, err := r.store.HGetAll(ctx, r.keys.Meta(name))
	if err != nil {
		return domidx.Index{}, fmt.Errorf("hgetall index %s: %w", name, err)
	}
	if len(m) == 0 {
		return domidx.Index{}, domain.ErrNotFound
	}
	return indexFromHash(m)
}

// List returns all indexes sorted by creation time.
func (r *Repo) List(ctx context.Context) ([]domidx.Index, error) {
	keys, err := r.store.Scan(ctx, r.keys.MetaPattern())
	if err != nil {
		return nil, fmt.Errorf("scan indexes: %w", err)
	}
	if len(keys) == 0 {
		return []domidx.Index{}, nil
	}

	results, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("hgetall multi indexes: %w", err)
	}

	indexes := make([]domidx.Index, 0, len(results))
	for i, m := range results {
		if len(m) == 0 {
			continue
		}
		idx, err := indexFromHash(m)
		if err != nil {
			return nil, fmt.Errorf("parse index %s: %w", keys[i], err)
		}
		indexes = append(indexes, idx)
	}

	sort.Slice(indexes, func(i, j int) bool {
		return indexes[i].CreatedAt() < indexes[j].CreatedAt()
	})

	return indexes, nil
}

// RegisterFields merges newly discovered fields into the registry, extends the
// FT schema via FT.ALTER and persists the updated registry. Returns the merged
// index. A no-op when every field is already registered.
func (r *Repo) RegisterFields(
	ctx context.Context, idx domidx.Index, incoming []field.Field,
) (domidx.Index, error) {
	merged, added, err := idx.MergeFields(incoming)
	if err != nil {
		return domidx.Index{}, err
	}
	if len(added) == 0 {
		return idx, nil
	}

	attrs, err := attrsForFields(added)
	if err != nil {
		return domidx.Index{}, err
	}
	if err := r.store.AlterIndex(ctx, r.keys.Search(idx.Name()), attrs); err != nil {
		return domidx.Index{}, fmt.Errorf("alter index %s: %w", idx.Name(), err)
	}

	hashData, err := registryToHash(merged)
	if err != nil {
		return domidx.Index{}, err
	}
	if err := r.store.HSet(ctx, r.keys.Meta(idx.Name()), hashData); err != nil {
		return domidx.Index{}, fmt.Errorf("hset registry %s: %w", idx.Name(), err)
	}

	return merged, nil
}

// Delete removes an index: metadata, FT schema and every document and chunk
// key under the index prefix.
func (r *Repo) Delete(ctx context.Context, name string) error {
	metaKey := r.keys.Meta(name)

	metaBackup, err := r.store.HGetAll(ctx, metaKey)
	if err != nil {
		return fmt.Errorf("hgetall index %s: %w", name, err)
	}
	if len(metaBackup) == 0 {
		return domain.ErrNotFound
	}

	if err := r.store.Del(ctx, metaKey); err != nil {
		return fmt.Errorf("del index %s: %w", name, err)
	}

	// FT.DROPINDEX — rollback the metadata HSET on error
	if err := r.store.DropIndex(ctx, r.keys.Search(name)); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		cleanupErr := r.store.HSet(ctx, metaKey, metaBackup)
		return errors.Join(err, cleanupErr)
	}

	// best effort data cleanup; keys are unreachable once metadata is gone
	for _, pattern := range []string{r.keys.DocPattern(name), r.keys.ChunkPrefix(name) + "*"} {
		keys, err := r.store.Scan(ctx, pattern)
		if err != nil {
			return fmt.Errorf("scan %s: %w", pattern, err)
		}
		if err := r.store.DelMulti(ctx, keys); err != nil {
			return fmt.Errorf("del data %s: %w", name, err)
		}
	}

	return nil
}
