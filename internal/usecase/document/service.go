// Package document implements batch document ingestion with automatic
// chunking and vectorization, retrieval and partial updates.
package document

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/kailas-cloud/tensordex/internal/chunk"
	"github.com/kailas-cloud/tensordex/internal/domain"
	domdoc "github.com/kailas-cloud/tensordex/internal/domain/document"
	"github.com/kailas-cloud/tensordex/internal/domain/document/patch"
	domidx "github.com/kailas-cloud/tensordex/internal/domain/index"
	"github.com/kailas-cloud/tensordex/internal/domain/index/field"
)

// EmbedContent selects which model prefix is applied before vectorization.
type EmbedContent string

// Embed content kinds.
const (
	ContentQuery    EmbedContent = "query"
	ContentDocument EmbedContent = "document"
)

// DefaultMaxBatch is the default cap on documents per batch request.
const DefaultMaxBatch = 128

// Service handles document batches with automatic vectorization.
type Service struct {
	repo     Repository
	registry IndexRegistry
	embedder Embedder
	maxBatch int
}

// New creates a document service.
func New(repo Repository, registry IndexRegistry, embedder Embedder) *Service {
	return &Service{
		repo:     repo,
		registry: registry,
		embedder: embedder,
		maxBatch: DefaultMaxBatch,
	}
}

// WithMaxBatch configures the per-request batch cap.
func (s *Service) WithMaxBatch(n int) *Service {
	if n > 0 {
		s.maxBatch = n
	}
	return s
}

// Add upserts a batch of documents. Fields named in tensorFields are chunked
// and vectorized; newly seen fields are registered in the index schema.
// Failures are isolated per document, except quota and rate-limit errors
// which cascade to the rest of the batch.
func (s *Service) Add(
	ctx context.Context, indexName string, rawDocs []map[string]any, tensorFields []string,
) ([]domdoc.ItemResult, error) {
	if len(rawDocs) == 0 {
		return nil, fmt.Errorf("%w: empty document batch", domain.ErrInvalidField)
	}
	if len(rawDocs) > s.maxBatch {
		return nil, fmt.Errorf("%w: batch too large (max %d)", domain.ErrInvalidField, s.maxBatch)
	}

	idx, err := s.registry.Get(ctx, indexName)
	if err != nil {
		return nil, fmt.Errorf("get index: %w", err)
	}

	wanted := make(map[string]bool, len(tensorFields))
	for _, name := range tensorFields {
		wanted[name] = true
	}

	results := make([]domdoc.ItemResult, 0, len(rawDocs))
	for i, raw := range rawDocs {
		id, doc, err := s.buildDocument(ctx, idx.Settings(), raw, wanted)
		if err != nil {
			results = append(results, domdoc.NewError(id, err))
			if cascades(err) {
				for _, rest := range rawDocs[i+1:] {
					restID, _ := extractID(rest)
					results = append(results, domdoc.NewError(restID, err))
				}
				return results, nil
			}
			continue
		}

		idx, err = s.registry.RegisterFields(ctx, idx, doc.FieldsTyped())
		if err != nil {
			results = append(results, domdoc.NewError(id, fmt.Errorf("register fields: %w", err)))
			continue
		}

		if err := s.repo.Upsert(ctx, indexName, idx.Settings(), &doc); err != nil {
			results = append(results, domdoc.NewError(id, fmt.Errorf("upsert document: %w", err)))
			continue
		}
		results = append(results, domdoc.NewOK(id))
	}
	return results, nil
}

// Get retrieves one document by ID, with its tensor facets attached.
func (s *Service) Get(ctx context.Context, indexName, id string) (domdoc.Document, error) {
	if _, err := s.registry.Get(ctx, indexName); err != nil {
		return domdoc.Document{}, fmt.Errorf("get index: %w", err)
	}
	doc, err := s.repo.Get(ctx, indexName, id)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// DeleteBatch deletes documents by ID with per-item results.
func (s *Service) DeleteBatch(
	ctx context.Context, indexName string, ids []string,
) ([]domdoc.ItemResult, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: empty ID batch", domain.ErrInvalidField)
	}
	if len(ids) > s.maxBatch {
		return nil, fmt.Errorf("%w: batch too large (max %d)", domain.ErrInvalidField, s.maxBatch)
	}
	if _, err := s.registry.Get(ctx, indexName); err != nil {
		return nil, fmt.Errorf("get index: %w", err)
	}

	results := make([]domdoc.ItemResult, 0, len(ids))
	for _, id := range ids {
		if err := domdoc.ValidateID(id); err != nil {
			results = append(results, domdoc.NewError(id, err))
			continue
		}
		if err := s.repo.Delete(ctx, indexName, id); err != nil {
			results = append(results, domdoc.NewError(id, err))
			continue
		}
		results = append(results, domdoc.NewOK(id))
	}
	return results, nil
}

// PartialUpdate applies patches to existing documents. Non-tensor fields are
// updated in place on the stored chunk hashes; patching a tensor field's text
// re-chunks and re-embeds only that field.
func (s *Service) PartialUpdate(
	ctx context.Context, indexName string, patches []patch.Patch,
) ([]domdoc.ItemResult, error) {
	if len(patches) == 0 {
		return nil, fmt.Errorf("%w: empty patch batch", domain.ErrInvalidField)
	}
	if len(patches) > s.maxBatch {
		return nil, fmt.Errorf("%w: batch too large (max %d)", domain.ErrInvalidField, s.maxBatch)
	}

	idx, err := s.registry.Get(ctx, indexName)
	if err != nil {
		return nil, fmt.Errorf("get index: %w", err)
	}

	results := make([]domdoc.ItemResult, 0, len(patches))
	for i, p := range patches {
		if err := s.applyPatch(ctx, indexName, &idx, p); err != nil {
			results = append(results, domdoc.NewError(p.ID(), err))
			if cascades(err) {
				for _, rest := range patches[i+1:] {
					results = append(results, domdoc.NewError(rest.ID(), err))
				}
				return results, nil
			}
			continue
		}
		results = append(results, domdoc.NewOK(p.ID()))
	}
	return results, nil
}

// Embed vectorizes raw texts with the index model, applying the query or
// document prefix. Exposes the embedding pipeline without storing anything.
func (s *Service) Embed(
	ctx context.Context, indexName string, texts []string, content EmbedContent,
) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: no texts to embed", domain.ErrInvalidField)
	}
	if len(texts) > s.maxBatch {
		return nil, fmt.Errorf("%w: batch too large (max %d)", domain.ErrInvalidField, s.maxBatch)
	}

	idx, err := s.registry.Get(ctx, indexName)
	if err != nil {
		return nil, fmt.Errorf("get index: %w", err)
	}
	settings := idx.Settings()

	prefix := settings.Model.ChunkPrefix
	if content == ContentQuery {
		prefix = settings.Model.QueryPrefix
	}
	prefixed := make([]string, len(texts))
	for i, t := range texts {
		prefixed[i] = prefix + t
	}

	res, err := s.embedder.BatchEmbed(ctx, prefixed)
	if err != nil {
		return nil, fmt.Errorf("embed texts: %w", err)
	}
	domain.UsageFromContext(ctx).AddTokens(res.TotalTokens)

	for _, vec := range res.Embeddings {
		if settings.Model.Dimensions > 0 && len(vec) != settings.Model.Dimensions {
			return nil, fmt.Errorf(
				"vector dimension mismatch: got %d, want %d: %w",
				len(vec), settings.Model.Dimensions, domain.ErrVectorDimMismatch,
			)
		}
		if settings.NormalizeEmbeddings {
			domain.NormalizeL2(vec)
		}
	}
	return res.Embeddings, nil
}

// buildDocument parses a raw document and attaches vectorized tensors.
func (s *Service) buildDocument(
	ctx context.Context, settings domidx.Settings, raw map[string]any, wanted map[string]bool,
) (string, domdoc.Document, error) {
	id, err := extractID(raw)
	if err != nil {
		return id, domdoc.Document{}, err
	}
	if id == "" {
		id = uuid.NewString()
	}

	fields := make(map[string]any, len(raw))
	for k, v := range raw {
		if k == "_id" {
			continue
		}
		fields[k] = v
	}
	doc, err := domdoc.New(id, fields)
	if err != nil {
		return id, domdoc.Document{}, err
	}

	tensors, err := s.vectorize(ctx, settings, &doc, wanted)
	if err != nil {
		return id, domdoc.Document{}, err
	}
	doc, err = doc.WithTensors(tensors)
	if err != nil {
		return id, domdoc.Document{}, err
	}
	return id, doc, nil
}

// vectorize chunks the wanted string fields and embeds all chunks of the
// document in one provider call. Chunk texts are stored without the model
// prefix.
func (s *Service) vectorize(
	ctx context.Context, settings domidx.Settings, doc *domdoc.Document, wanted map[string]bool,
) (map[string][]domdoc.Chunk, error) {
	if len(wanted) == 0 {
		return nil, nil
	}
	for name := range wanted {
		if _, ok := doc.Strings()[name]; ok {
			continue
		}
		if _, ok := doc.Raw()[name]; ok {
			return nil, fmt.Errorf("%w: tensor field %q must be a string", domain.ErrInvalidField, name)
		}
	}

	names := make([]string, 0, len(wanted))
	for name := range doc.Strings() {
		if wanted[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	tensors := make(map[string][]domdoc.Chunk, len(names))
	var texts []string
	type span struct {
		field string
		n     int
	}
	var spans []span
	for _, name := range names {
		chunks := chunk.Split(doc.Strings()[name], settings.TextPreprocessing)
		if len(chunks) == 0 {
			continue
		}
		items := make([]domdoc.Chunk, len(chunks))
		for i, c := range chunks {
			items[i] = domdoc.Chunk{Text: c}
			texts = append(texts, settings.Model.ChunkPrefix+c)
		}
		tensors[name] = items
		spans = append(spans, span{field: name, n: len(chunks)})
	}
	if len(texts) == 0 {
		return nil, nil
	}

	res, err := s.embedder.BatchEmbed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("vectorize document: %w", err)
	}
	domain.UsageFromContext(ctx).AddTokens(res.TotalTokens)

	if len(res.Embeddings) != len(texts) {
		return nil, fmt.Errorf(
			"%w: provider returned %d vectors for %d chunks",
			domain.ErrEmbeddingProviderError, len(res.Embeddings), len(texts),
		)
	}

	pos := 0
	for _, sp := range spans {
		for i := 0; i < sp.n; i++ {
			vec := res.Embeddings[pos]
			pos++
			if settings.Model.Dimensions > 0 && len(vec) != settings.Model.Dimensions {
				return nil, fmt.Errorf(
					"vector dimension mismatch: got %d, want %d: %w",
					len(vec), settings.Model.Dimensions, domain.ErrVectorDimMismatch,
				)
			}
			if settings.NormalizeEmbeddings {
				domain.NormalizeL2(vec)
			}
			tensors[sp.field][i].Vector = vec
		}
	}
	return tensors, nil
}

// applyPatch merges a patch into the stored document. idx may grow when the
// patch introduces new fields.
func (s *Service) applyPatch(
	ctx context.Context, indexName string, idx *domidx.Index, p patch.Patch,
) error {
	existing, err := s.repo.Get(ctx, indexName, p.ID())
	if err != nil {
		return err
	}
	hashCount, err := s.repo.HashCount(ctx, indexName, p.ID())
	if err != nil {
		return err
	}

	merged := existing.Raw()
	var removed []string
	for name, value := range p.Fields() {
		if value == nil {
			if _, ok := merged[name]; ok {
				removed = append(removed, name)
			}
			delete(merged, name)
			continue
		}
		merged[name] = value
	}

	doc, err := domdoc.New(p.ID(), merged)
	if err != nil {
		return err
	}

	// re-embed only tensor fields whose text the patch replaced
	wanted := map[string]bool{}
	for name, value := range p.Fields() {
		if value == nil {
			continue
		}
		f, ok := idx.FieldByName(name)
		if !ok || f.Type() != field.TypeTensor {
			continue
		}
		if _, isStr := doc.Strings()[name]; isStr {
			wanted[name] = true
		}
	}
	retained := map[string][]domdoc.Chunk{}
	for name, chunks := range existing.Tensors() {
		if _, patched := p.Fields()[name]; patched {
			continue
		}
		if _, still := doc.Strings()[name]; still {
			retained[name] = chunks
		}
	}

	if len(wanted) > 0 {
		fresh, err := s.vectorize(ctx, idx.Settings(), &doc, wanted)
		if err != nil {
			return err
		}
		if fresh == nil {
			fresh = map[string][]domdoc.Chunk{}
		}
		for name, chunks := range retained {
			fresh[name] = chunks
		}
		doc, err = doc.WithTensors(fresh)
		if err != nil {
			return err
		}
		*idx, err = s.registry.RegisterFields(ctx, *idx, doc.FieldsTyped())
		if err != nil {
			return fmt.Errorf("register fields: %w", err)
		}
		if err := s.repo.Upsert(ctx, indexName, idx.Settings(), &doc); err != nil {
			return fmt.Errorf("upsert document: %w", err)
		}
		return nil
	}

	doc, err = doc.WithTensors(retained)
	if err != nil {
		return err
	}
	*idx, err = s.registry.RegisterFields(ctx, *idx, doc.FieldsTyped())
	if err != nil {
		return fmt.Errorf("register fields: %w", err)
	}
	if err := s.repo.UpdateFields(ctx, indexName, idx.Settings(), &doc, hashCount, removed); err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	return nil
}

// extractID pulls the optional _id field out of a raw document.
func extractID(raw map[string]any) (string, error) {
	v, ok := raw["_id"]
	if !ok {
		return "", nil
	}
	id, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: _id must be a string", domain.ErrInvalidField)
	}
	if err := domdoc.ValidateID(id); err != nil {
		return id, err
	}
	return id, nil
}

// cascades reports whether an error should fail the rest of the batch.
func cascades(err error) bool {
	return errors.Is(err, domain.ErrEmbeddingQuotaExceeded) || errors.Is(err, domain.ErrRateLimited)
}
