package db

import "github.com/kailas-cloud/tensordex/internal/domain/search/filter"

// KNNQuery is the input for vector similarity search. The driver returns the
// raw distance reported by the engine; metric-specific score mapping happens
// at the repository layer.
type KNNQuery struct {
	IndexName    string
	VectorField  string
	Filters      filter.Expression
	Vector       []float32
	K            int
	EfRuntime    int // 0 leaves the engine default
	ReturnFields []string
}

// TextQuery is the input for BM25 text search over one or more TEXT fields.
type TextQuery struct {
	IndexName    string
	Query        string
	Fields       []string // TEXT attributes to search; at least one required
	Filters      filter.Expression
	TopK         int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single hit from a search. For KNN queries Score is the raw
// distance, for BM25 queries the textual relevance score.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
