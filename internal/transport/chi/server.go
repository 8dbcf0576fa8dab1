// Package chi exposes the HTTP API: index management, document batches,
// search and embedding, plus health, metrics and usage endpoints.
package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tensordex/internal/domain"
	"github.com/kailas-cloud/tensordex/internal/domain/document/patch"
	domidx "github.com/kailas-cloud/tensordex/internal/domain/index"
	domusage "github.com/kailas-cloud/tensordex/internal/domain/usage"
	documentuc "github.com/kailas-cloud/tensordex/internal/usecase/document"
	healthuc "github.com/kailas-cloud/tensordex/internal/usecase/health"
	indexuc "github.com/kailas-cloud/tensordex/internal/usecase/index"
	searchuc "github.com/kailas-cloud/tensordex/internal/usecase/search"
	usageuc "github.com/kailas-cloud/tensordex/internal/usecase/usage"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server hand-maps HTTP routes onto the use case services.
type Server struct {
	indexes       *indexuc.Service
	documents     *documentuc.Service
	search        *searchuc.Service
	usage         *usageuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	indexes *indexuc.Service,
	documents *documentuc.Service,
	search *searchuc.Service,
	usage *usageuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		indexes:   indexes,
		documents: documents,
		search:    search,
		usage:     usage,
		health:    health,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeIndexNotFound),
		sentinelHandler(domain.ErrDocumentNotFound, http.StatusNotFound, codeDocumentNotFound),
		sentinelHandler(domain.ErrAlreadyExists, http.StatusConflict, codeIndexAlreadyExists),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadRequest, codeVectorDimMismatch),
		sentinelHandler(domain.ErrInvalidSettings, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrInvalidField, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, codeRateLimited),
		sentinelHandler(domain.ErrEmbeddingQuotaExceeded, http.StatusPaymentRequired, codeQuotaExceeded),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeEmbeddingProviderError),
		sentinelHandler(domain.ErrNotImplemented, http.StatusNotImplemented, codeNotImplemented),
	}
	return s
}

// Register mounts all API routes on the router.
func (s *Server) Register(r chi.Router) {
	r.Get("/health", s.healthCheck)
	r.Get("/metrics", s.metrics)
	r.Get("/usage", s.getUsage)

	r.Route("/indexes", func(r chi.Router) {
		r.Get("/", s.listIndexes)
		r.Route("/{index}", func(r chi.Router) {
			r.Post("/", s.createIndex)
			r.Delete("/", s.deleteIndex)
			r.Get("/settings", s.getIndexSettings)
			r.Get("/stats", s.getIndexStats)
			r.Post("/documents", s.addDocuments)
			r.Patch("/documents", s.patchDocuments)
			r.Get("/documents/{id}", s.getDocument)
			r.Post("/documents/delete-batch", s.deleteDocuments)
			r.Post("/search", s.searchDocuments)
			r.Post("/embed", s.embed)
		})
	})
}

// createIndex handles POST /indexes/{index}.
func (s *Server) createIndex(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "index")

	settings := domidx.Settings{}
	if r.ContentLength != 0 {
		// normalizeEmbeddings defaults to true, a plain bool cannot tell
		// "omitted" from "false"
		var req struct {
			domidx.Settings
			NormalizeEmbeddings *bool `json:"normalizeEmbeddings"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
			return
		}
		settings = req.Settings
		settings.NormalizeEmbeddings = req.NormalizeEmbeddings == nil || *req.NormalizeEmbeddings
	}

	idx, err := s.indexes.Create(r.Context(), name, settings)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, indexToResponse(idx))
}

// listIndexes handles GET /indexes.
func (s *Server) listIndexes(w http.ResponseWriter, r *http.Request) {
	indexes, err := s.indexes.List(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]indexResponse, len(indexes))
	for i, idx := range indexes {
		items[i] = indexToResponse(idx)
	}
	writeJSON(w, http.StatusOK, indexListResponse{Items: items})
}

// getIndexSettings handles GET /indexes/{index}/settings.
func (s *Server) getIndexSettings(w http.ResponseWriter, r *http.Request) {
	idx, err := s.indexes.Get(r.Context(), chi.URLParam(r, "index"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, idx.Settings())
}

// getIndexStats handles GET /indexes/{index}/stats.
func (s *Server) getIndexStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.indexes.Stats(r.Context(), chi.URLParam(r, "index"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, indexStatsResponse{
		NumberOfDocuments: stats.NumberOfDocuments,
		NumberOfVectors:   stats.NumberOfVectors,
	})
}

// deleteIndex handles DELETE /indexes/{index}.
func (s *Server) deleteIndex(w http.ResponseWriter, r *http.Request) {
	if err := s.indexes.Delete(r.Context(), chi.URLParam(r, "index")); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// addDocuments handles POST /indexes/{index}/documents.
func (s *Server) addDocuments(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	var req addDocumentsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	docs, err := normalizeDocuments(req.Documents)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	results, err := s.documents.Add(ctx, chi.URLParam(r, "index"), docs, req.TensorFields)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, batchToResponse(results, time.Since(started)))
}

// patchDocuments handles PATCH /indexes/{index}/documents.
func (s *Server) patchDocuments(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	var req patchDocumentsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	patches, err := patchesFromRequest(req.Documents)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	results, err := s.documents.PartialUpdate(ctx, chi.URLParam(r, "index"), patches)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, batchToResponse(results, time.Since(started)))
}

// getDocument handles GET /indexes/{index}/documents/{id}.
func (s *Server) getDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.documents.Get(r.Context(), chi.URLParam(r, "index"), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	exposeFacets, _ := strconv.ParseBool(r.URL.Query().Get("expose_facets"))
	writeJSON(w, http.StatusOK, documentToResponse(&doc, exposeFacets))
}

// deleteDocuments handles POST /indexes/{index}/documents/delete-batch.
func (s *Server) deleteDocuments(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	var req deleteDocumentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	results, err := s.documents.DeleteBatch(r.Context(), chi.URLParam(r, "index"), req.Ids)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, batchToResponse(results, time.Since(started)))
}

// searchDocuments handles POST /indexes/{index}/search.
func (s *Server) searchDocuments(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	searchReq, err := searchRequestFromDTO(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	page, err := s.search.Search(ctx, chi.URLParam(r, "index"), &searchReq)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	hits := page.Hits()
	items := make([]map[string]any, len(hits))
	for i := range hits {
		items[i] = hitToResponse(&hits[i])
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, searchResponse{
		Hits:             items,
		Query:            page.Query(),
		Limit:            page.Limit(),
		Offset:           page.Offset(),
		ProcessingTimeMs: page.ProcessingTimeMs(),
	})
}

// embed handles POST /indexes/{index}/embed.
func (s *Server) embed(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	var req embedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	content := documentuc.ContentQuery
	switch req.ContentType {
	case "", "query":
	case "document":
		content = documentuc.ContentDocument
	default:
		writeError(w, http.StatusBadRequest, codeValidationFailed,
			fmt.Sprintf("contentType must be query or document, got %q", req.ContentType))
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	embeddings, err := s.documents.Embed(ctx, chi.URLParam(r, "index"), req.Content, content)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, embedResponse{
		Embeddings:       embeddings,
		ProcessingTimeMs: time.Since(started).Milliseconds(),
	})
}

// getUsage handles GET /usage.
func (s *Server) getUsage(w http.ResponseWriter, r *http.Request) {
	period := domusage.PeriodMonth
	switch r.URL.Query().Get("period") {
	case "day":
		period = domusage.PeriodDay
	case "total":
		period = domusage.PeriodTotal
	}

	report := s.usage.GetReport(r.Context(), period)

	resp := map[string]any{
		"period": string(report.Period()),
		"usage": map[string]any{
			"embeddingRequests": report.Metrics().EmbeddingRequests(),
			"tokens":            report.Metrics().Tokens(),
		},
		"budget": map[string]any{
			"tokensLimit":     report.Budget().TokensLimit(),
			"tokensRemaining": report.Budget().TokensRemaining(),
			"isExhausted":     report.Budget().IsExhausted(),
		},
	}
	if report.PeriodStart() > 0 {
		resp["periodStartAt"] = time.UnixMilli(report.PeriodStart()).UTC()
		resp["periodEndAt"] = time.UnixMilli(report.PeriodEnd()).UTC()
	}

	writeJSON(w, http.StatusOK, resp)
}

// healthCheck handles GET /health.
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// metrics handles GET /metrics.
func (s *Server) metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// decodeJSON decodes a request body preserving the int/float distinction.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	return dec.Decode(v)
}

// patchesFromRequest builds patches out of raw patch documents.
func patchesFromRequest(docs []map[string]any) ([]patch.Patch, error) {
	patches := make([]patch.Patch, 0, len(docs))
	for _, raw := range docs {
		idVal, ok := raw["_id"]
		if !ok {
			return nil, errors.New("every patch document must carry _id")
		}
		id, ok := idVal.(string)
		if !ok {
			return nil, errors.New("_id must be a string")
		}

		fields := make(map[string]any, len(raw))
		for k, v := range raw {
			if k == "_id" {
				continue
			}
			n, err := normalizeJSON(v)
			if err != nil {
				return nil, err
			}
			fields[k] = n
		}

		p, err := patch.New(id, fields)
		if err != nil {
			return nil, fmt.Errorf("patch %q: %w", id, err)
		}
		patches = append(patches, p)
	}
	return patches, nil
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage != nil && usage.Used {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.TotalTokens))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a client-safe message without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrDocumentNotFound,
		domain.ErrAlreadyExists,
		domain.ErrInvalidSettings,
		domain.ErrInvalidField,
		domain.ErrVectorDimMismatch,
		domain.ErrRateLimited,
		domain.ErrEmbeddingQuotaExceeded,
		domain.ErrEmbeddingProviderError,
		domain.ErrNotImplemented,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			if errors.Is(s, domain.ErrInvalidField) || errors.Is(s, domain.ErrInvalidSettings) {
				// validation messages are built from client input, safe to return
				return err.Error()
			}
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}

func batchErrorCode(err error) errorCode {
	switch {
	case errors.Is(err, domain.ErrDocumentNotFound):
		return codeDocumentNotFound
	case errors.Is(err, domain.ErrVectorDimMismatch):
		return codeVectorDimMismatch
	case errors.Is(err, domain.ErrInvalidField):
		return codeValidationFailed
	case errors.Is(err, domain.ErrEmbeddingQuotaExceeded):
		return codeQuotaExceeded
	case errors.Is(err, domain.ErrEmbeddingProviderError):
		return codeEmbeddingProviderError
	case errors.Is(err, domain.ErrRateLimited):
		return codeRateLimited
	default:
		return codeInternalError
	}
}
