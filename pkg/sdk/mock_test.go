package tensordex

import (
	"context"

	domdoc "github.com/kailas-cloud/tensordex/internal/domain/document"
	"github.com/kailas-cloud/tensordex/internal/domain/document/patch"
	domidx "github.com/kailas-cloud/tensordex/internal/domain/index"
	"github.com/kailas-cloud/tensordex/internal/domain/search/request"
	"github.com/kailas-cloud/tensordex/internal/domain/search/result"
	documentuc "github.com/kailas-cloud/tensordex/internal/usecase/document"
	indexuc "github.com/kailas-cloud/tensordex/internal/usecase/index"
)

// --- indexUseCase mock ---

type mockIndexUC struct {
	createFn func(ctx context.Context, name string, settings domidx.Settings) (domidx.Index, error)
	getFn    func(ctx context.Context, name string) (domidx.Index, error)
	listFn   func(ctx context.Context) ([]domidx.Index, error)
	deleteFn func(ctx context.Context, name string) error
	statsFn  func(ctx context.Context, name string) (indexuc.Stats, error)
}

func (m *mockIndexUC) Create(ctx context.Context, name string, settings domidx.Settings) (domidx.Index, error) {
	return m.createFn(ctx, name, settings)
}

func (m *mockIndexUC) Get(ctx context.Context, name string) (domidx.Index, error) {
	return m.getFn(ctx, name)
}

func (m *mockIndexUC) List(ctx context.Context) ([]domidx.Index, error) {
	return m.listFn(ctx)
}

func (m *mockIndexUC) Delete(ctx context.Context, name string) error {
	return m.deleteFn(ctx, name)
}

func (m *mockIndexUC) Stats(ctx context.Context, name string) (indexuc.Stats, error) {
	return m.statsFn(ctx, name)
}

// --- documentUseCase mock ---

type mockDocumentUC struct {
	addFn    func(ctx context.Context, index string, docs []map[string]any, tensorFields []string) ([]domdoc.ItemResult, error)
	getFn    func(ctx context.Context, index, id string) (domdoc.Document, error)
	deleteFn func(ctx context.Context, index string, ids []string) ([]domdoc.ItemResult, error)
	patchFn  func(ctx context.Context, index string, patches []patch.Patch) ([]domdoc.ItemResult, error)
	embedFn  func(ctx context.Context, index string, texts []string, content documentuc.EmbedContent) ([][]float32, error)
}

func (m *mockDocumentUC) Add(
	ctx context.Context, index string, docs []map[string]any, tensorFields []string,
) ([]domdoc.ItemResult, error) {
	return m.addFn(ctx, index, docs, tensorFields)
}

func (m *mockDocumentUC) Get(ctx context.Context, index, id string) (domdoc.Document, error) {
	return m.getFn(ctx, index, id)
}

func (m *mockDocumentUC) DeleteBatch(
	ctx context.Context, index string, ids []string,
) ([]domdoc.ItemResult, error) {
	return m.deleteFn(ctx, index, ids)
}

func (m *mockDocumentUC) PartialUpdate(
	ctx context.Context, index string, patches []patch.Patch,
) ([]domdoc.ItemResult, error) {
	return m.patchFn(ctx, index, patches)
}

func (m *mockDocumentUC) Embed(
	ctx context.Context, index string, texts []string, content documentuc.EmbedContent,
) ([][]float32, error) {
	return m.embedFn(ctx, index, texts, content)
}

// --- searchUseCase mock ---

type mockSearchUC struct {
	searchFn func(ctx context.Context, index string, req *request.Request) (result.Page, error)
}

func (m *mockSearchUC) Search(
	ctx context.Context, index string, req *request.Request,
) (result.Page, error) {
	return m.searchFn(ctx, index, req)
}

// --- helpers ---

func testIndex(name string) domidx.Index {
	settings := domidx.DefaultSettings()
	settings.Model = domidx.Model{Name: "test-model", Dimensions: 4}
	return domidx.Reconstruct(name, settings, nil, 1, 1000, 2000)
}
