package tensordex

import "time"

// SearchMethod controls the retrieval strategy.
type SearchMethod string

// Search method constants.
const (
	MethodTensor  SearchMethod = "tensor"
	MethodLexical SearchMethod = "lexical"
	MethodHybrid  SearchMethod = "hybrid"
)

// ModelSettings describes the embedding model bound to an index.
type ModelSettings struct {
	Name        string
	Dimensions  int
	QueryPrefix string
	ChunkPrefix string
}

// HNSWSettings are the ANN graph construction parameters.
type HNSWSettings struct {
	M              int
	EfConstruction int
}

// TextPreprocessing controls how tensor field text is split into chunks.
type TextPreprocessing struct {
	SplitLength  int
	SplitOverlap int
	SplitMethod  string // "sentence", "word" or "character"
}

// IndexSettings configures a new index. Zero values are filled from
// client defaults on creation.
type IndexSettings struct {
	Model                 ModelSettings
	DistanceMetric        string // "cosine", "euclidean" or "dotproduct"
	NormalizeEmbeddings   bool
	HNSW                  HNSWSettings
	TextPreprocessing     TextPreprocessing
	FilterStringMaxLength int
}

// IndexInfo is index metadata.
type IndexInfo struct {
	Name      string
	Settings  IndexSettings
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IndexStats holds per-index counters.
type IndexStats struct {
	NumberOfDocuments int
	NumberOfVectors   int
}

// Document is a retrieved document. Fields holds the stored field values
// without the reserved "_id" key. TensorFacets is populated only when the
// document was fetched with facets.
type Document struct {
	ID           string
	Fields       map[string]any
	TensorFacets []TensorFacet
}

// TensorFacet is one stored chunk of a tensor field with its embedding.
type TensorFacet struct {
	Field     string
	Chunk     string
	Embedding []float32
}

// DocumentPatch is a partial update of one document.
// A nil value in Fields deletes that field.
type DocumentPatch struct {
	ID     string
	Fields map[string]any
}

// ItemResult is the outcome of one item in a batch operation.
type ItemResult struct {
	ID  string
	OK  bool
	Err error
}

// Hit is a single search hit.
type Hit struct {
	ID         string
	Score      float64
	Highlights map[string]string
	Fields     map[string]any
}

// SearchPage is an ordered page of search hits.
type SearchPage struct {
	Hits           []Hit
	Query          string
	Limit          int
	Offset         int
	ProcessingTime time.Duration
}

// SearchParams describes a search request. Only Query is required.
type SearchParams struct {
	Query  string
	Method SearchMethod // default: hybrid

	Limit  int // default: 10, max: 100
	Offset int

	// EfSearch overrides the HNSW beam width (tensor and hybrid only).
	EfSearch *int
	// Approximate false trades latency for recall by widening the beam
	// to its maximum.
	Approximate *bool

	Filter *FilterExpression

	// SearchableAttributes restricts lexical retrieval to these fields.
	SearchableAttributes []string
	// AttributesToRetrieve restricts which stored fields appear in hits.
	AttributesToRetrieve []string

	ScoreModifiers *ScoreModifiers

	// Alpha weights tensor vs lexical contributions in hybrid fusion
	// (0 = lexical only, 1 = tensor only). Nil takes the default 0.5.
	Alpha *float64
	// RRFK is the reciprocal rank fusion constant. Default: 60.
	RRFK int
}

// FilterExpression is a set of must/should/must_not filter conditions.
type FilterExpression struct {
	Must    []FilterCondition
	Should  []FilterCondition
	MustNot []FilterCondition
}

// FilterCondition is a single filter clause.
type FilterCondition struct {
	Key   string
	Match []string     // non-empty for exact match (OR across values)
	Range *RangeFilter // non-nil for numeric range
}

// RangeFilter defines numeric range boundaries.
type RangeFilter struct {
	GT  *float64
	GTE *float64
	LT  *float64
	LTE *float64
}

// ScoreModifiers rescales hit scores by numeric document fields:
// score*Π(value*weight) + Σ(value*weight).
type ScoreModifiers struct {
	MultiplyScoreBy []ScoreModifier
	AddToScore      []ScoreModifier
}

// ScoreModifier references one numeric field with a weight.
type ScoreModifier struct {
	Field  string
	Weight float64
}

// EmbedContent selects which model prefix is applied before vectorization.
type EmbedContent string

// Embed content kinds.
const (
	EmbedQuery    EmbedContent = "query"
	EmbedDocument EmbedContent = "document"
)
