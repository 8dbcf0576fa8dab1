// Package search executes tensor, lexical and hybrid retrieval over chunked
// documents, grouping chunk hits into document results.
package search

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/kailas-cloud/tensordex/internal/domain"
	domidx "github.com/kailas-cloud/tensordex/internal/domain/index"
	"github.com/kailas-cloud/tensordex/internal/domain/search/method"
	"github.com/kailas-cloud/tensordex/internal/domain/search/request"
	"github.com/kailas-cloud/tensordex/internal/domain/search/result"
)

// Service handles search across tensor, lexical and hybrid methods.
type Service struct {
	repo    Repository
	indexes IndexReader
	docs    DocumentReader
	embed   Embedder
}

// New creates a search service.
func New(repo Repository, indexes IndexReader, docs DocumentReader, embed Embedder) *Service {
	return &Service{repo: repo, indexes: indexes, docs: docs, embed: embed}
}

// docHit is a document-level candidate after chunk grouping.
type docHit struct {
	id         string
	score      float64
	highlights map[string]string
}

// Search executes a search request and returns a hydrated result page.
func (s *Service) Search(
	ctx context.Context, indexName string, req *request.Request,
) (result.Page, error) {
	started := time.Now()

	idx, err := s.indexes.Get(ctx, indexName)
	if err != nil {
		return result.Page{}, fmt.Errorf("get index: %w", err)
	}

	var candidates []docHit
	switch req.Method() {
	case method.Tensor:
		candidates, err = s.searchTensor(ctx, idx, req)
	case method.Lexical:
		candidates, err = s.searchLexical(ctx, idx, req)
	case method.Hybrid:
		candidates, err = s.searchHybrid(ctx, idx, req)
	default:
		return result.Page{}, fmt.Errorf("unsupported search method: %s", req.Method())
	}
	if err != nil {
		return result.Page{}, err
	}

	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.id
	}
	docs, err := s.docs.GetMulti(ctx, indexName, ids)
	if err != nil {
		return result.Page{}, fmt.Errorf("hydrate documents: %w", err)
	}

	if !req.ScoreModifiers().IsEmpty() {
		applyModifiers(candidates, docs, req.ScoreModifiers())
	}

	start := req.Offset()
	if start > len(candidates) {
		start = len(candidates)
	}
	end := start + req.Limit()
	if end > len(candidates) {
		end = len(candidates)
	}

	hits := make([]result.Hit, 0, end-start)
	for _, c := range candidates[start:end] {
		var fields map[string]any
		if doc, ok := docs[c.id]; ok {
			fields = retrieveFields(doc.Raw(), req.AttributesToRetrieve())
		}
		hits = append(hits, result.NewHit(c.id, c.score, c.highlights, fields))
	}

	return result.NewPage(hits, req.Query(), req.Limit(), req.Offset(), time.Since(started).Milliseconds()), nil
}

// searchTensor embeds the query and runs KNN over chunk hashes.
func (s *Service) searchTensor(
	ctx context.Context, idx domidx.Index, req *request.Request,
) ([]docHit, error) {
	vector, err := s.embedQuery(ctx, idx, req.Query())
	if err != nil {
		return nil, err
	}

	efRuntime := req.EfSearch()
	if !req.Approximate() {
		// the engine has no exact-KNN toggle, widen the beam instead
		efRuntime = request.MaxEfSearch
	}

	chunks, err := s.repo.SearchTensor(ctx, idx, vector, req.Filters(), req.CandidateK(), efRuntime)
	if err != nil {
		return nil, err
	}
	return groupChunks(chunks), nil
}

// searchLexical runs BM25 over the lexical copies.
func (s *Service) searchLexical(
	ctx context.Context, idx domidx.Index, req *request.Request,
) ([]docHit, error) {
	chunks, err := s.repo.SearchLexical(
		ctx, idx, req.Query(), req.SearchableAttributes(), req.Filters(), req.CandidateK(),
	)
	if err != nil {
		return nil, err
	}
	return groupChunks(chunks), nil
}

// searchHybrid runs both retrievals and fuses the document rankings with
// weighted reciprocal rank fusion.
func (s *Service) searchHybrid(
	ctx context.Context, idx domidx.Index, req *request.Request,
) ([]docHit, error) {
	tensor, err := s.searchTensor(ctx, idx, req)
	if err != nil {
		return nil, err
	}
	lexical, err := s.searchLexical(ctx, idx, req)
	if err != nil {
		return nil, err
	}
	return fuseRRF(tensor, lexical, req.Ranking()), nil
}

// embedQuery vectorizes the query with the index model query prefix.
func (s *Service) embedQuery(ctx context.Context, idx domidx.Index, query string) ([]float32, error) {
	settings := idx.Settings()

	res, err := s.embed.Embed(ctx, settings.Model.QueryPrefix+query)
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}
	domain.UsageFromContext(ctx).AddTokens(res.TotalTokens)

	if settings.Model.Dimensions > 0 && len(res.Embedding) != settings.Model.Dimensions {
		return nil, fmt.Errorf(
			"vector dimension mismatch: got %d, want %d: %w",
			len(res.Embedding), settings.Model.Dimensions, domain.ErrVectorDimMismatch,
		)
	}
	if settings.NormalizeEmbeddings {
		domain.NormalizeL2(res.Embedding)
	}
	return res.Embedding, nil
}

// groupChunks collapses chunk hits into per-document candidates. The best
// scoring chunk sets the document score and becomes its highlight.
func groupChunks(chunks []result.ChunkHit) []docHit {
	best := make(map[string]int)
	hits := make([]docHit, 0, len(chunks))

	for _, c := range chunks {
		if c.DocID == "" {
			continue
		}
		i, seen := best[c.DocID]
		if !seen {
			hit := docHit{id: c.DocID, score: c.Score}
			if c.Field != "" && c.Chunk != "" {
				hit.highlights = map[string]string{c.Field: c.Chunk}
			}
			best[c.DocID] = len(hits)
			hits = append(hits, hit)
			continue
		}
		if c.Score > hits[i].score {
			hits[i].score = c.Score
			if c.Field != "" && c.Chunk != "" {
				hits[i].highlights = map[string]string{c.Field: c.Chunk}
			}
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	return hits
}

// retrieveFields filters document fields down to the requested attributes.
// Empty wanted returns all fields.
func retrieveFields(raw map[string]any, wanted []string) map[string]any {
	if len(wanted) == 0 {
		return raw
	}
	out := make(map[string]any, len(wanted))
	for _, name := range wanted {
		if v, ok := raw[name]; ok {
			out[name] = v
		}
	}
	return out
}
