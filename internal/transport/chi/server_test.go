package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tensordex/internal/domain"
	domidx "github.com/kailas-cloud/tensordex/internal/domain/index"
	healthuc "github.com/kailas-cloud/tensordex/internal/usecase/health"
	indexuc "github.com/kailas-cloud/tensordex/internal/usecase/index"
)

type fakeIndexRepo struct {
	created  []domidx.Index
	getFn    func(name string) (domidx.Index, error)
	createFn func(idx domidx.Index) error
	deleted  []string
}

func (f *fakeIndexRepo) Create(_ context.Context, idx domidx.Index) error {
	if f.createFn != nil {
		return f.createFn(idx)
	}
	f.created = append(f.created, idx)
	return nil
}

func (f *fakeIndexRepo) Get(_ context.Context, name string) (domidx.Index, error) {
	if f.getFn != nil {
		return f.getFn(name)
	}
	return domidx.Index{}, domain.ErrNotFound
}

func (f *fakeIndexRepo) List(_ context.Context) ([]domidx.Index, error) {
	return nil, nil
}

func (f *fakeIndexRepo) Delete(_ context.Context, name string) error {
	f.deleted = append(f.deleted, name)
	return nil
}

type fakeCounter struct{}

func (fakeCounter) Count(_ context.Context, _ string) (int, error)       { return 0, nil }
func (fakeCounter) VectorCount(_ context.Context, _ string) (int, error) { return 0, nil }

type fakePinger struct{ err error }

func (f fakePinger) Ping(_ context.Context) error { return f.err }

func apiDefaults() domidx.Settings {
	s := domidx.DefaultSettings()
	s.Model = domidx.Model{Name: "default-model", Dimensions: 384}
	return s
}

func newTestRouter(repo *fakeIndexRepo, health *healthuc.Service) *chi.Mux {
	indexes := indexuc.New(repo, fakeCounter{}, apiDefaults())
	srv := NewServer(indexes, nil, nil, nil, health, zap.NewNop())
	r := chi.NewRouter()
	srv.Register(r)
	return r
}

func doRequest(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateIndexEndpoint(t *testing.T) {
	repo := &fakeIndexRepo{}
	router := newTestRouter(repo, nil)

	rec := doRequest(t, router, http.MethodPost, "/indexes/movies", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp indexResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.IndexName != "movies" {
		t.Errorf("unexpected index name: %s", resp.IndexName)
	}
	if resp.Settings.Model.Name != "default-model" {
		t.Errorf("defaults not applied: %+v", resp.Settings.Model)
	}
	if !resp.Settings.NormalizeEmbeddings {
		t.Error("normalizeEmbeddings must default to true")
	}
	if len(repo.created) != 1 {
		t.Errorf("index not stored: %v", repo.created)
	}
}

func TestCreateIndexEndpoint_NormalizeEmbeddingsFalse(t *testing.T) {
	repo := &fakeIndexRepo{}
	router := newTestRouter(repo, nil)

	rec := doRequest(t, router, http.MethodPost, "/indexes/movies",
		`{"normalizeEmbeddings": false, "distanceMetric": "euclidean"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp indexResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Settings.NormalizeEmbeddings {
		t.Error("explicit false must survive")
	}
	if resp.Settings.DistanceMetric != domidx.DistanceEuclidean {
		t.Errorf("explicit metric lost: %s", resp.Settings.DistanceMetric)
	}
}

func TestCreateIndexEndpoint_Conflict(t *testing.T) {
	repo := &fakeIndexRepo{createFn: func(_ domidx.Index) error {
		return domain.ErrAlreadyExists
	}}
	router := newTestRouter(repo, nil)

	rec := doRequest(t, router, http.MethodPost, "/indexes/movies", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}

	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Code != codeIndexAlreadyExists {
		t.Errorf("unexpected error code: %s", resp.Code)
	}
}

func TestCreateIndexEndpoint_InvalidName(t *testing.T) {
	router := newTestRouter(&fakeIndexRepo{}, nil)

	rec := doRequest(t, router, http.MethodPost, "/indexes/health", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("reserved name must be rejected, got %d", rec.Code)
	}
}

func TestGetIndexSettingsEndpoint_NotFound(t *testing.T) {
	router := newTestRouter(&fakeIndexRepo{}, nil)

	rec := doRequest(t, router, http.MethodGet, "/indexes/missing/settings", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Code != codeIndexNotFound {
		t.Errorf("unexpected error code: %s", resp.Code)
	}
}

func TestDeleteIndexEndpoint(t *testing.T) {
	repo := &fakeIndexRepo{}
	router := newTestRouter(repo, nil)

	rec := doRequest(t, router, http.MethodDelete, "/indexes/movies", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != "movies" {
		t.Errorf("index not deleted: %v", repo.deleted)
	}
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(&fakeIndexRepo{}, healthuc.New(fakePinger{}, nil))

	rec := doRequest(t, router, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Status string                          `json:"status"`
		Checks map[string]healthuc.CheckResult `json:"checks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != string(healthuc.Healthy) || resp.Checks["database"] != healthuc.CheckOK {
		t.Errorf("unexpected report: %+v", resp)
	}
}

func TestHealthEndpoint_Degraded(t *testing.T) {
	health := healthuc.New(fakePinger{err: errors.New("conn refused")}, nil)
	router := newTestRouter(&fakeIndexRepo{}, health)

	rec := doRequest(t, router, http.MethodGet, "/health", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}
