package tensordex

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	addrs     []string
	password  string
	keyPrefix string

	embedder Embedder

	modelName       string
	modelDimensions int
	queryPrefix     string
	chunkPrefix     string

	hnswM           int
	hnswEFConstruct int
	maxBatchSize    int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithRedis configures the client to connect to a Redis instance.
// The search and JSON modules must be loaded.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithKeyPrefix overrides the storage namespace prefix.
// Default: "tensordex:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithEmbedder sets the text embedding provider.
// Required for tensor and hybrid search; lexical-only indexes work without it.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithModel sets the default embedding model recorded in new index settings.
// Dimensions must match the vectors the configured Embedder produces.
func WithModel(name string, dimensions int) Option {
	return optionFunc(func(c *clientConfig) {
		c.modelName = name
		c.modelDimensions = dimensions
	})
}

// WithModelPrefixes sets instruction prefixes prepended to queries and
// document chunks before vectorization. Some embedding models are trained
// with asymmetric prefixes.
func WithModelPrefixes(queryPrefix, chunkPrefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.queryPrefix = queryPrefix
		c.chunkPrefix = chunkPrefix
	})
}

// WithHNSW configures default HNSW index parameters for new indexes.
// Defaults: M=16, EFConstruct=512.
func WithHNSW(m, efConstruct int) Option {
	return optionFunc(func(c *clientConfig) {
		c.hnswM = m
		c.hnswEFConstruct = efConstruct
	})
}

// WithMaxBatchSize sets the maximum number of items per batch operation.
// Default: 128.
func WithMaxBatchSize(size int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxBatchSize = size
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
