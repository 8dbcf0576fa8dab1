package tensordex

import (
	"context"
	"fmt"
	"time"

	domdoc "github.com/kailas-cloud/tensordex/internal/domain/document"
	"github.com/kailas-cloud/tensordex/internal/domain/document/patch"
	documentuc "github.com/kailas-cloud/tensordex/internal/usecase/document"
)

// DocumentService manages documents within a single index.
type DocumentService struct {
	index string
	svc   documentUseCase
	obs   *observer
}

// Add upserts a batch of documents. Fields named in tensorFields are chunked
// and vectorized for semantic retrieval. Documents without an "_id" field get
// a generated UUID. Failures are reported per item.
func (s *DocumentService) Add(
	ctx context.Context, docs []map[string]any, tensorFields []string,
) (_ []ItemResult, err error) {
	start := time.Now()
	defer func() { s.obs.observe("document.add", start, err) }()

	results, err := s.svc.Add(ctx, s.index, docs, tensorFields)
	if err != nil {
		return nil, fmt.Errorf("add documents: %w", err)
	}
	return fromItemResults(results), nil
}

// Get retrieves a document by ID.
func (s *DocumentService) Get(ctx context.Context, id string) (_ Document, err error) {
	start := time.Now()
	defer func() { s.obs.observe("document.get", start, err) }()

	doc, err := s.svc.Get(ctx, s.index, id)
	if err != nil {
		return Document{}, fmt.Errorf("get document: %w", err)
	}
	return fromInternalDocument(doc, false), nil
}

// GetWithFacets retrieves a document by ID with its stored chunks and
// embeddings attached.
func (s *DocumentService) GetWithFacets(ctx context.Context, id string) (_ Document, err error) {
	start := time.Now()
	defer func() { s.obs.observe("document.get", start, err) }()

	doc, err := s.svc.Get(ctx, s.index, id)
	if err != nil {
		return Document{}, fmt.Errorf("get document: %w", err)
	}
	return fromInternalDocument(doc, true), nil
}

// DeleteBatch removes documents by IDs with per-item results.
func (s *DocumentService) DeleteBatch(
	ctx context.Context, ids []string,
) (_ []ItemResult, err error) {
	start := time.Now()
	defer func() { s.obs.observe("document.delete", start, err) }()

	results, err := s.svc.DeleteBatch(ctx, s.index, ids)
	if err != nil {
		return nil, fmt.Errorf("delete documents: %w", err)
	}
	return fromItemResults(results), nil
}

// PartialUpdate applies patches to existing documents. Only patched tensor
// fields are re-embedded; other fields are updated in place.
func (s *DocumentService) PartialUpdate(
	ctx context.Context, patches []DocumentPatch,
) (_ []ItemResult, err error) {
	start := time.Now()
	defer func() { s.obs.observe("document.patch", start, err) }()

	items := make([]patch.Patch, len(patches))
	for i, p := range patches {
		items[i], err = patch.New(p.ID, p.Fields)
		if err != nil {
			return nil, fmt.Errorf("patch %d: %w", i, err)
		}
	}
	results, err := s.svc.PartialUpdate(ctx, s.index, items)
	if err != nil {
		return nil, fmt.Errorf("patch documents: %w", err)
	}
	return fromItemResults(results), nil
}

// Embed vectorizes raw texts with the index model, applying the query or
// document prefix. Nothing is stored.
func (s *DocumentService) Embed(
	ctx context.Context, texts []string, content EmbedContent,
) (_ [][]float32, err error) {
	start := time.Now()
	defer func() { s.obs.observe("document.embed", start, err) }()

	kind := documentuc.ContentDocument
	if content == EmbedQuery {
		kind = documentuc.ContentQuery
	}
	vectors, err := s.svc.Embed(ctx, s.index, texts, kind)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	return vectors, nil
}

func fromInternalDocument(d domdoc.Document, withFacets bool) Document {
	out := Document{ID: d.ID(), Fields: d.Raw()}
	if !withFacets {
		return out
	}
	for _, name := range d.TensorFieldNames() {
		for _, c := range d.Tensors()[name] {
			out.TensorFacets = append(out.TensorFacets, TensorFacet{
				Field:     name,
				Chunk:     c.Text,
				Embedding: c.Vector,
			})
		}
	}
	return out
}

func fromItemResults(results []domdoc.ItemResult) []ItemResult {
	out := make([]ItemResult, len(results))
	for i, r := range results {
		out[i] = ItemResult{
			ID:  r.ID(),
			OK:  r.Status() == domdoc.StatusOK,
			Err: r.Err(),
		}
	}
	return out
}
