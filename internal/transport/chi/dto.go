package chi

import (
	"encoding/json"
	"fmt"
	"time"

	domdoc "github.com/kailas-cloud/tensordex/internal/domain/document"
	domidx "github.com/kailas-cloud/tensordex/internal/domain/index"
	"github.com/kailas-cloud/tensordex/internal/domain/search/filter"
	"github.com/kailas-cloud/tensordex/internal/domain/search/method"
	"github.com/kailas-cloud/tensordex/internal/domain/search/modifiers"
	"github.com/kailas-cloud/tensordex/internal/domain/search/request"
	"github.com/kailas-cloud/tensordex/internal/domain/search/result"
)

// errorCode identifies an API error class for clients.
type errorCode string

// API error codes.
const (
	codeBadRequest             errorCode = "bad_request"
	codeValidationFailed       errorCode = "validation_failed"
	codeIndexNotFound          errorCode = "index_not_found"
	codeDocumentNotFound       errorCode = "document_not_found"
	codeIndexAlreadyExists     errorCode = "index_already_exists"
	codeVectorDimMismatch      errorCode = "vector_dim_mismatch"
	codeRateLimited            errorCode = "rate_limited"
	codeQuotaExceeded          errorCode = "embedding_quota_exceeded"
	codeEmbeddingProviderError errorCode = "embedding_provider_error"
	codeNotImplemented         errorCode = "not_implemented"
	codeInternalError          errorCode = "internal_error"
)

// errorResponse is the error body of every non-2xx reply.
type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

// indexResponse describes one index.
type indexResponse struct {
	IndexName string          `json:"indexName"`
	Settings  domidx.Settings `json:"settings"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// indexListResponse is the GET /indexes body.
type indexListResponse struct {
	Items []indexResponse `json:"items"`
}

// indexStatsResponse is the GET /indexes/{index}/stats body.
type indexStatsResponse struct {
	NumberOfDocuments int `json:"numberOfDocuments"`
	NumberOfVectors   int `json:"numberOfVectors"`
}

// addDocumentsRequest is the POST /indexes/{index}/documents body.
type addDocumentsRequest struct {
	Documents    []map[string]any `json:"documents"`
	TensorFields []string         `json:"tensorFields"`
}

// patchDocumentsRequest is the PATCH /indexes/{index}/documents body.
// Every document must carry _id; a null field value deletes the field.
type patchDocumentsRequest struct {
	Documents []map[string]any `json:"documents"`
}

// deleteDocumentsRequest is the POST /indexes/{index}/documents/delete-batch body.
type deleteDocumentsRequest struct {
	Ids []string `json:"ids"`
}

// batchItemResponse reports one document of a batch.
type batchItemResponse struct {
	ID     string         `json:"_id"`
	Status string         `json:"status"`
	Error  *errorResponse `json:"error,omitempty"`
}

// batchResponse is the per-item reply of batch document operations.
type batchResponse struct {
	Items            []batchItemResponse `json:"items"`
	Succeeded        int                 `json:"succeeded"`
	Failed           int                 `json:"failed"`
	ProcessingTimeMs int64               `json:"processingTimeMs"`
}

// tensorFacet is one chunk of a tensor field in a document response.
type tensorFacet struct {
	Field     string    `json:"_field"`
	Chunk     string    `json:"_chunk"`
	Embedding []float32 `json:"_embedding,omitempty"`
}

// searchRequest is the POST /indexes/{index}/search body.
type searchRequest struct {
	Q                    string            `json:"q"`
	SearchMethod         string            `json:"searchMethod"`
	Limit                *int              `json:"limit"`
	Offset               *int              `json:"offset"`
	Filter               *filterExpression `json:"filter"`
	SearchableAttributes []string          `json:"searchableAttributes"`
	AttributesToRetrieve []string          `json:"attributesToRetrieve"`
	EfSearch             *int              `json:"efSearch"`
	Approximate          *bool             `json:"approximate"`
	ScoreModifiers       *scoreModifiers   `json:"scoreModifiers"`
	RankingParams        *rankingParams    `json:"rankingParams"`
}

// filterExpression is a boolean combination of filter conditions.
type filterExpression struct {
	Must    []filterCondition `json:"must"`
	Should  []filterCondition `json:"should"`
	MustNot []filterCondition `json:"mustNot"`
}

// filterCondition matches a field against values or a numeric range.
type filterCondition struct {
	Key   string       `json:"key"`
	Match []string     `json:"match,omitempty"`
	Range *rangeFilter `json:"range,omitempty"`
}

// rangeFilter bounds a numeric field.
type rangeFilter struct {
	Gt  *float64 `json:"gt,omitempty"`
	Gte *float64 `json:"gte,omitempty"`
	Lt  *float64 `json:"lt,omitempty"`
	Lte *float64 `json:"lte,omitempty"`
}

// scoreModifiers reweights hit scores from numeric document fields.
type scoreModifiers struct {
	MultiplyScoreBy []scoreModifier `json:"multiplyScoreBy"`
	AddToScore      []scoreModifier `json:"addToScore"`
}

// scoreModifier is one field/weight pair.
type scoreModifier struct {
	FieldName string  `json:"fieldName"`
	Weight    float64 `json:"weight"`
}

// rankingParams tunes hybrid fusion. Pointers keep an explicit zero apart
// from an omitted knob: alpha 0 means lexical-only ranking.
type rankingParams struct {
	Alpha *float64 `json:"alpha"`
	RrfK  *int     `json:"rrfK"`
}

// searchResponse is the POST /indexes/{index}/search reply.
type searchResponse struct {
	Hits             []map[string]any `json:"hits"`
	Query            string           `json:"query"`
	Limit            int              `json:"limit"`
	Offset           int              `json:"offset"`
	ProcessingTimeMs int64            `json:"processingTimeMs"`
}

// embedRequest is the POST /indexes/{index}/embed body.
type embedRequest struct {
	Content     []string `json:"content"`
	ContentType string   `json:"contentType"`
}

// embedResponse carries raw embedding vectors.
type embedResponse struct {
	Embeddings       [][]float32 `json:"embeddings"`
	ProcessingTimeMs int64       `json:"processingTimeMs"`
}

func indexToResponse(idx domidx.Index) indexResponse {
	return indexResponse{
		IndexName: idx.Name(),
		Settings:  idx.Settings(),
		CreatedAt: time.UnixMilli(idx.CreatedAt()).UTC(),
		UpdatedAt: time.UnixMilli(idx.UpdatedAt()).UTC(),
	}
}

func batchToResponse(results []domdoc.ItemResult, elapsed time.Duration) batchResponse {
	resp := batchResponse{
		Items:            make([]batchItemResponse, len(results)),
		ProcessingTimeMs: elapsed.Milliseconds(),
	}
	for i, r := range results {
		item := batchItemResponse{ID: r.ID(), Status: string(r.Status())}
		if r.Err() != nil {
			item.Error = &errorResponse{
				Code:    batchErrorCode(r.Err()),
				Message: safeDomainMessage(r.Err()),
			}
			resp.Failed++
		} else {
			resp.Succeeded++
		}
		resp.Items[i] = item
	}
	return resp
}

func documentToResponse(doc *domdoc.Document, exposeFacets bool) map[string]any {
	out := doc.Raw()
	out["_id"] = doc.ID()
	if exposeFacets {
		facets := make([]tensorFacet, 0, doc.ChunkCount())
		for _, name := range doc.TensorFieldNames() {
			for _, c := range doc.Tensors()[name] {
				facets = append(facets, tensorFacet{Field: name, Chunk: c.Text, Embedding: c.Vector})
			}
		}
		out["_tensor_facets"] = facets
	}
	return out
}

func hitToResponse(h *result.Hit) map[string]any {
	out := make(map[string]any, len(h.Fields())+3)
	for k, v := range h.Fields() {
		out[k] = v
	}
	out["_id"] = h.ID()
	out["_score"] = h.Score()
	if len(h.Highlights()) > 0 {
		out["_highlights"] = h.Highlights()
	}
	return out
}

// normalizeJSON converts decoded JSON values to domain types: integral
// json.Number becomes int64, fractional float64. Maps and arrays recurse.
func normalizeJSON(v any) (any, error) {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, nil
		}
		f, err := t.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", t.String())
		}
		return f, nil
	case []any:
		out := make([]any, len(t))
		for i, el := range t {
			n, err := normalizeJSON(el)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, el := range t {
			n, err := normalizeJSON(el)
			if err != nil {
				return nil, err
			}
			out[k] = n
		}
		return out, nil
	default:
		return v, nil
	}
}

func normalizeDocuments(docs []map[string]any) ([]map[string]any, error) {
	out := make([]map[string]any, len(docs))
	for i, d := range docs {
		n, err := normalizeJSON(d)
		if err != nil {
			return nil, err
		}
		out[i] = n.(map[string]any)
	}
	return out, nil
}

func searchRequestFromDTO(req searchRequest) (request.Request, error) {
	filters, err := filtersFromDTO(req.Filter)
	if err != nil {
		return request.Request{}, fmt.Errorf("parse filters: %w", err)
	}

	mods, err := modifiersFromDTO(req.ScoreModifiers)
	if err != nil {
		return request.Request{}, fmt.Errorf("parse score modifiers: %w", err)
	}

	var ranking *request.Ranking
	if req.RankingParams != nil {
		rk := request.DefaultRanking()
		if req.RankingParams.Alpha != nil {
			rk.Alpha = *req.RankingParams.Alpha
		}
		if req.RankingParams.RrfK != nil {
			rk.RRFK = *req.RankingParams.RrfK
		}
		ranking = &rk
	}

	limit, offset := 0, 0
	if req.Limit != nil {
		limit = *req.Limit
	}
	if req.Offset != nil {
		offset = *req.Offset
	}

	r, err := request.New(
		req.Q, method.Method(req.SearchMethod), filters,
		limit, offset, req.EfSearch, req.Approximate,
		req.SearchableAttributes, req.AttributesToRetrieve,
		mods, ranking,
	)
	if err != nil {
		return request.Request{}, fmt.Errorf("build search request: %w", err)
	}
	return r, nil
}

func filtersFromDTO(f *filterExpression) (filter.Expression, error) {
	if f == nil {
		return filter.Expression{}, nil
	}

	must, err := conditionsFromDTO(f.Must)
	if err != nil {
		return filter.Expression{}, err
	}
	should, err := conditionsFromDTO(f.Should)
	if err != nil {
		return filter.Expression{}, err
	}
	mustNot, err := conditionsFromDTO(f.MustNot)
	if err != nil {
		return filter.Expression{}, err
	}

	expr, err := filter.NewExpression(must, should, mustNot)
	if err != nil {
		return filter.Expression{}, fmt.Errorf("new expression: %w", err)
	}
	return expr, nil
}

func conditionsFromDTO(cs []filterCondition) ([]filter.Condition, error) {
	if len(cs) == 0 {
		return nil, nil
	}
	out := make([]filter.Condition, 0, len(cs))
	for _, c := range cs {
		cond, err := conditionFromDTO(c)
		if err != nil {
			return nil, err
		}
		out = append(out, cond)
	}
	return out, nil
}

func conditionFromDTO(c filterCondition) (filter.Condition, error) {
	if len(c.Match) > 0 && c.Range != nil {
		return filter.Condition{},
			fmt.Errorf("filter condition for %q must have match or range, not both", c.Key)
	}
	if len(c.Match) > 0 {
		cond, err := filter.NewMatch(c.Key, c.Match...)
		if err != nil {
			return filter.Condition{}, fmt.Errorf("match filter: %w", err)
		}
		return cond, nil
	}
	if c.Range != nil {
		rf, err := filter.NewRangeFilter(c.Range.Gt, c.Range.Gte, c.Range.Lt, c.Range.Lte)
		if err != nil {
			return filter.Condition{}, fmt.Errorf("range filter: %w", err)
		}
		cond, err := filter.NewRange(c.Key, rf)
		if err != nil {
			return filter.Condition{}, fmt.Errorf("range condition: %w", err)
		}
		return cond, nil
	}
	return filter.Condition{}, fmt.Errorf("filter condition for %q must have match or range", c.Key)
}

func modifiersFromDTO(sm *scoreModifiers) (modifiers.Set, error) {
	if sm == nil {
		return modifiers.Set{}, nil
	}

	multiply, err := modifierListFromDTO(sm.MultiplyScoreBy)
	if err != nil {
		return modifiers.Set{}, err
	}
	add, err := modifierListFromDTO(sm.AddToScore)
	if err != nil {
		return modifiers.Set{}, err
	}

	set, err := modifiers.NewSet(multiply, add)
	if err != nil {
		return modifiers.Set{}, fmt.Errorf("new modifier set: %w", err)
	}
	return set, nil
}

func modifierListFromDTO(ms []scoreModifier) ([]modifiers.Modifier, error) {
	if len(ms) == 0 {
		return nil, nil
	}
	out := make([]modifiers.Modifier, 0, len(ms))
	for _, m := range ms {
		mod, err := modifiers.NewModifier(m.FieldName, m.Weight)
		if err != nil {
			return nil, fmt.Errorf("modifier %q: %w", m.FieldName, err)
		}
		out = append(out, mod)
	}
	return out, nil
}
