// Package document persists parent documents as JSON and mirrors their fields
// into per-chunk search hashes.
package document

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/tensordex/internal/db"
	"github.com/kailas-cloud/tensordex/internal/domain"
	domdoc "github.com/kailas-cloud/tensordex/internal/domain/document"
	domidx "github.com/kailas-cloud/tensordex/internal/domain/index"
	repoidx "github.com/kailas-cloud/tensordex/internal/repository/index"
)

// store is the consumer interface for documents (ISP).
//
//nolint:interfacebloat // document repo spans JSON parents and hash chunks
type store interface {
	JSONSet(ctx context.Context, key, path string, data []byte) error
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	JSONGetMulti(ctx context.Context, keys []string) ([][]byte, error)
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HDel(ctx context.Context, key string, fields ...string) error
	Del(ctx context.Context, key string) error
	DelMulti(ctx context.Context, keys []string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// Repo implements usecase/document.Repository.
type Repo struct {
	store store
	keys  repoidx.Keys
}

// New creates a document repository.
func New(s store, keys repoidx.Keys) *Repo {
	return &Repo{store: s, keys: keys}
}

// Upsert replaces a document: writes the new chunk hashes, the parent JSON,
// then deletes stale chunk hashes left over from a previous, longer version.
func (r *Repo) Upsert(
	ctx context.Context, indexName string, settings domidx.Settings, doc *domdoc.Document,
) error {
	oldHashes := 0
	if raw, err := r.store.JSONGet(ctx, r.keys.Doc(indexName, doc.ID())); err == nil {
		if _, count, err := docFromJSON(raw); err == nil {
			oldHashes = count
		}
	} else if !errors.Is(err, db.ErrKeyNotFound) {
		return fmt.Errorf("read document %s: %w", doc.ID(), err)
	}

	items := buildChunkItems(r.keys, indexName, doc, settings)
	parent, err := docToJSON(doc, int64(len(items)), time.Now().UnixMilli())
	if err != nil {
		return err
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("write chunks %s: %w", doc.ID(), err)
	}
	if err := r.store.JSONSet(ctx, r.keys.Doc(indexName, doc.ID()), "$", parent); err != nil {
		return fmt.Errorf("write document %s: %w", doc.ID(), err)
	}

	if oldHashes > len(items) {
		stale := make([]string, 0, oldHashes-len(items))
		for ordinal := len(items); ordinal < oldHashes; ordinal++ {
			stale = append(stale, r.keys.Chunk(indexName, doc.ID(), ordinal))
		}
		if err := r.store.DelMulti(ctx, stale); err != nil {
			return fmt.Errorf("delete stale chunks %s: %w", doc.ID(), err)
		}
	}

	return nil
}

// Get retrieves one document by ID.
func (r *Repo) Get(ctx context.Context, indexName, id string) (domdoc.Document, error) {
	raw, err := r.store.JSONGet(ctx, r.keys.Doc(indexName, id))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domdoc.Document{}, domain.ErrDocumentNotFound
		}
		return domdoc.Document{}, fmt.Errorf("read document %s: %w", id, err)
	}
	doc, _, err := docFromJSON(raw)
	return doc, err
}

// GetMulti retrieves several documents in one round-trip.
// Missing IDs are absent from the result map.
func (r *Repo) GetMulti(ctx context.Context, indexName string, ids []string) (map[string]domdoc.Document, error) {
	if len(ids) == 0 {
		return map[string]domdoc.Document{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.keys.Doc(indexName, id)
	}
	raws, err := r.store.JSONGetMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("read documents: %w", err)
	}
	out := make(map[string]domdoc.Document, len(ids))
	for i, raw := range raws {
		if raw == nil {
			continue
		}
		doc, _, err := docFromJSON(raw)
		if err != nil {
			return nil, fmt.Errorf("parse document %s: %w", ids[i], err)
		}
		out[ids[i]] = doc
	}
	return out, nil
}

// Delete removes a document and all its chunk hashes.
func (r *Repo) Delete(ctx context.Context, indexName, id string) error {
	raw, err := r.store.JSONGet(ctx, r.keys.Doc(indexName, id))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.ErrDocumentNotFound
		}
		return fmt.Errorf("read document %s: %w", id, err)
	}
	_, hashCount, err := docFromJSON(raw)
	if err != nil {
		return err
	}
	if hashCount < 1 {
		hashCount = 1
	}

	keys := make([]string, 0, hashCount+1)
	for ordinal := 0; ordinal < hashCount; ordinal++ {
		keys = append(keys, r.keys.Chunk(indexName, id, ordinal))
	}
	keys = append(keys, r.keys.Doc(indexName, id))

	if err := r.store.DelMulti(ctx, keys); err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	return nil
}

// UpdateFields rewrites the parent JSON and refreshes the flattened copies on
// every chunk hash of the document. Used for partial updates that do not touch
// tensor fields. removedFields lists document fields whose copies must be
// dropped from the hashes.
func (r *Repo) UpdateFields(
	ctx context.Context, indexName string, settings domidx.Settings,
	doc *domdoc.Document, hashCount int, removedFields []string,
) error {
	if hashCount < 1 {
		hashCount = 1
	}

	parent, err := docToJSON(doc, int64(hashCount), time.Now().UnixMilli())
	if err != nil {
		return err
	}
	if err := r.store.JSONSet(ctx, r.keys.Doc(indexName, doc.ID()), "$", parent); err != nil {
		return fmt.Errorf("write document %s: %w", doc.ID(), err)
	}

	copies := copyFields(doc, settings)
	var removedAttrs []string
	for _, name := range removedFields {
		removedAttrs = append(removedAttrs,
			repoidx.LexicalAttr(name), repoidx.FilterAttr(name), repoidx.NumericAttr(name))
	}

	items := make([]db.HashSetItem, 0, hashCount)
	for ordinal := 0; ordinal < hashCount; ordinal++ {
		key := r.keys.Chunk(indexName, doc.ID(), ordinal)
		items = append(items, db.HashSetItem{Key: key, Fields: copies})
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("update chunks %s: %w", doc.ID(), err)
	}
	for _, item := range items {
		if err := r.store.HDel(ctx, item.Key, removedAttrs...); err != nil {
			return fmt.Errorf("trim chunks %s: %w", doc.ID(), err)
		}
	}
	return nil
}

// HashCount returns the number of chunk hashes backing a document.
func (r *Repo) HashCount(ctx context.Context, indexName, id string) (int, error) {
	raw, err := r.store.JSONGet(ctx, r.keys.Doc(indexName, id))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, domain.ErrDocumentNotFound
		}
		return 0, fmt.Errorf("read document %s: %w", id, err)
	}
	_, count, err := docFromJSON(raw)
	return count, err
}

// Count returns the number of documents in an index.
func (r *Repo) Count(ctx context.Context, indexName string) (int, error) {
	keys, err := r.store.Scan(ctx, r.keys.DocPattern(indexName))
	if err != nil {
		return 0, fmt.Errorf("scan documents: %w", err)
	}
	return len(keys), nil
}

// VectorCount returns the number of stored chunk vectors in an index.
func (r *Repo) VectorCount(ctx context.Context, indexName string) (int, error) {
	query := fmt.Sprintf("@%s:{1}", repoidx.AttrHasVector)
	n, err := r.store.SearchCount(ctx, r.keys.Search(indexName), query)
	if err != nil {
		return 0, fmt.Errorf("count vectors: %w", err)
	}
	return n, nil
}
