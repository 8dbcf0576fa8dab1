package tensordex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/tensordex/internal/db"
	dbRedis "github.com/kailas-cloud/tensordex/internal/db/redis"
	"github.com/kailas-cloud/tensordex/internal/domain"
	domdoc "github.com/kailas-cloud/tensordex/internal/domain/document"
	"github.com/kailas-cloud/tensordex/internal/domain/document/patch"
	domidx "github.com/kailas-cloud/tensordex/internal/domain/index"
	"github.com/kailas-cloud/tensordex/internal/domain/search/request"
	"github.com/kailas-cloud/tensordex/internal/domain/search/result"
	domusage "github.com/kailas-cloud/tensordex/internal/domain/usage"
	documentrepo "github.com/kailas-cloud/tensordex/internal/repository/document"
	indexrepo "github.com/kailas-cloud/tensordex/internal/repository/index"
	searchrepo "github.com/kailas-cloud/tensordex/internal/repository/search"
	documentuc "github.com/kailas-cloud/tensordex/internal/usecase/document"
	healthuc "github.com/kailas-cloud/tensordex/internal/usecase/health"
	indexuc "github.com/kailas-cloud/tensordex/internal/usecase/index"
	searchuc "github.com/kailas-cloud/tensordex/internal/usecase/search"
	usageuc "github.com/kailas-cloud/tensordex/internal/usecase/usage"
)

const defaultReadinessTimeout = 10 * time.Second

// Внутренние интерфейсы для подмены в тестах.
type indexUseCase interface {
	Create(ctx context.Context, name string, settings domidx.Settings) (domidx.Index, error)
	Get(ctx context.Context, name string) (domidx.Index, error)
	List(ctx context.Context) ([]domidx.Index, error)
	Delete(ctx context.Context, name string) error
	Stats(ctx context.Context, name string) (indexuc.Stats, error)
}

type documentUseCase interface {
	Add(ctx context.Context, index string, docs []map[string]any, tensorFields []string) ([]domdoc.ItemResult, error)
	Get(ctx context.Context, index, id string) (domdoc.Document, error)
	DeleteBatch(ctx context.Context, index string, ids []string) ([]domdoc.ItemResult, error)
	PartialUpdate(ctx context.Context, index string, patches []patch.Patch) ([]domdoc.ItemResult, error)
	Embed(ctx context.Context, index string, texts []string, content documentuc.EmbedContent) ([][]float32, error)
}

type searchUseCase interface {
	Search(ctx context.Context, index string, req *request.Request) (result.Page, error)
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

type usageUseCase interface {
	GetReport(ctx context.Context, period domusage.Period) domusage.Report
}

// Client is the tensordex SDK entry point.
type Client struct {
	store     db.Store
	idxSvc    indexUseCase
	docSvc    documentUseCase
	searchSvc searchUseCase
	healthSvc healthUseCase
	usageSvc  usageUseCase
	obs       *observer
}

// New creates a tensordex Client and connects to the database.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		keyPrefix: domain.KeyPrefix,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("tensordex: database address required (use WithRedis)")
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.addrs,
		Password: cfg.password,
	})
	if err != nil {
		return nil, fmt.Errorf("tensordex: create store: %w", err)
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("tensordex: database not ready: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		store.Close()
		return nil, err
	}
	return wireClient(store, cfg, obs), nil
}

func wireClient(store db.Store, cfg *clientConfig, obs *observer) *Client {
	keys := indexrepo.NewKeys(cfg.keyPrefix)
	idxRepo := indexrepo.New(store, keys)
	docRepo := documentrepo.New(store, keys)
	searchRepo := searchrepo.New(store, keys)

	// Embedder: noop если не задан (lexical работает, tensor вернёт ошибку)
	var domEmb *embedderAdapter
	if cfg.embedder != nil {
		domEmb = &embedderAdapter{inner: cfg.embedder}
	} else {
		domEmb = &embedderAdapter{inner: noopPublicEmbedder{}}
	}

	idxSvc := indexuc.New(idxRepo, docRepo, indexDefaults(cfg))
	docSvc := documentuc.New(docRepo, idxRepo, domEmb)
	if cfg.maxBatchSize > 0 {
		docSvc = docSvc.WithMaxBatch(cfg.maxBatchSize)
	}
	searchSvc := searchuc.New(searchRepo, idxRepo, docRepo, domEmb)

	healthSvc := healthuc.New(store, nil)
	usageSvc := usageuc.New(nil) // nil = unlimited mode (no budget tracking in SDK)

	return &Client{
		store:     store,
		idxSvc:    idxSvc,
		docSvc:    docSvc,
		searchSvc: searchSvc,
		healthSvc: healthSvc,
		usageSvc:  usageSvc,
		obs:       obs,
	}
}

// indexDefaults assembles the settings applied to newly created indexes.
func indexDefaults(cfg *clientConfig) domidx.Settings {
	defaults := domidx.DefaultSettings()
	defaults.Model.Name = cfg.modelName
	defaults.Model.Dimensions = cfg.modelDimensions
	defaults.Model.QueryPrefix = cfg.queryPrefix
	defaults.Model.ChunkPrefix = cfg.chunkPrefix
	if cfg.hnswM > 0 {
		defaults.Hnsw.M = cfg.hnswM
	}
	if cfg.hnswEFConstruct > 0 {
		defaults.Hnsw.EfConstruction = cfg.hnswEFConstruct
	}
	return defaults
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Indexes returns the index management service.
func (c *Client) Indexes() *IndexService {
	return &IndexService{svc: c.idxSvc, obs: c.obs}
}

// Documents returns the document service for a given index.
func (c *Client) Documents(index string) *DocumentService {
	return &DocumentService{index: index, svc: c.docSvc, obs: c.obs}
}

// Search returns the search service for a given index.
func (c *Client) Search(index string) *SearchService {
	return &SearchService{index: index, svc: c.searchSvc, obs: c.obs}
}

// noopPublicEmbedder rejects vectorization with a configuration hint.
type noopPublicEmbedder struct{}

func (noopPublicEmbedder) Embed(_ context.Context, _ string) (EmbeddingResult, error) {
	return EmbeddingResult{}, errors.New(
		"tensordex: embedder not configured (use WithEmbedder for tensor search)",
	)
}
