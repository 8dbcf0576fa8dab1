package request

import (
	"fmt"

	"github.com/kailas-cloud/tensordex/internal/domain/search/filter"
	"github.com/kailas-cloud/tensordex/internal/domain/search/method"
	"github.com/kailas-cloud/tensordex/internal/domain/search/modifiers"
)

// Search parameter limits and defaults.
const (
	// MaxQueryLength is the maximum allowed search query length.
	MaxQueryLength  = 4096
	DefaultLimit    = 10
	MaxLimit        = 100
	MaxOffset       = 10000
	DefaultEfSearch = 2000
	MaxEfSearch     = 10000
	// DefaultAlpha weighs the tensor ranking in hybrid fusion.
	DefaultAlpha = 0.5
	// DefaultRRFK is the rank smoothing constant of reciprocal rank fusion.
	DefaultRRFK = 60
)

// Ranking holds hybrid fusion parameters. Alpha 0 ranks purely lexically,
// alpha 1 purely by tensor rank.
type Ranking struct {
	Alpha float64
	RRFK  int
}

// DefaultRanking returns the fusion parameters used when a request carries none.
func DefaultRanking() Ranking {
	return Ranking{Alpha: DefaultAlpha, RRFK: DefaultRRFK}
}

// Request is a validated search query.
type Request struct {
	query          string
	searchMethod   method.Method
	filters        filter.Expression
	limit          int
	offset         int
	efSearch       int
	approximate    bool
	searchable     []string
	retrievable    []string
	scoreModifiers modifiers.Set
	ranking        Ranking
}

// New validates and normalizes search parameters.
// Defaults: method=hybrid, limit=10, efSearch=2000, approximate=true.
// Nil efSearch/approximate/ranking pointers take defaults; a non-nil ranking
// is used as given, so an explicit alpha of 0 stays purely lexical.
func New(
	query string,
	m method.Method,
	filters filter.Expression,
	limit, offset int,
	efSearch *int,
	approximate *bool,
	searchable, retrievable []string,
	mods modifiers.Set,
	ranking *Ranking,
) (Request, error) {
	if query == "" {
		return Request{}, fmt.Errorf("query is required")
	}
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("query too long (max %d chars)", MaxQueryLength)
	}
	if m == "" {
		m = method.Hybrid
	}
	if !m.IsValid() {
		return Request{}, fmt.Errorf("invalid search method: %q", m)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		return Request{}, fmt.Errorf("limit too large (max %d)", MaxLimit)
	}
	if offset < 0 {
		return Request{}, fmt.Errorf("offset must not be negative")
	}
	if offset > MaxOffset {
		return Request{}, fmt.Errorf("offset too large (max %d)", MaxOffset)
	}

	ef := DefaultEfSearch
	if efSearch != nil {
		ef = *efSearch
		if ef <= 0 || ef > MaxEfSearch {
			return Request{}, fmt.Errorf("efSearch must be between 1 and %d", MaxEfSearch)
		}
	}
	approx := true
	if approximate != nil {
		approx = *approximate
	}

	rk := DefaultRanking()
	if ranking != nil {
		rk = *ranking
		if rk.Alpha < 0 || rk.Alpha > 1 {
			return Request{}, fmt.Errorf("alpha must be between 0 and 1")
		}
		if rk.RRFK == 0 {
			rk.RRFK = DefaultRRFK
		}
		if rk.RRFK < 1 {
			return Request{}, fmt.Errorf("rrfK must be positive")
		}
	}

	return Request{
		query:          query,
		searchMethod:   m,
		filters:        filters,
		limit:          limit,
		offset:         offset,
		efSearch:       ef,
		approximate:    approx,
		searchable:     searchable,
		retrievable:    retrievable,
		scoreModifiers: mods,
		ranking:        rk,
	}, nil
}

// Query returns the search query text.
func (r *Request) Query() string { return r.query }

// Method returns the retrieval strategy.
func (r *Request) Method() method.Method { return r.searchMethod }

// Filters returns the pre-filter expression.
func (r *Request) Filters() filter.Expression { return r.filters }

// Limit returns the maximum results to return.
func (r *Request) Limit() int { return r.limit }

// Offset returns the pagination offset.
func (r *Request) Offset() int { return r.offset }

// EfSearch returns the HNSW runtime beam width.
func (r *Request) EfSearch() int { return r.efSearch }

// Approximate reports whether ANN search is allowed (false forces exact KNN).
func (r *Request) Approximate() bool { return r.approximate }

// SearchableAttributes returns the fields lexical retrieval is restricted to.
// Empty means all registered text fields.
func (r *Request) SearchableAttributes() []string { return r.searchable }

// AttributesToRetrieve returns the fields to include in hits.
// Empty means all document fields.
func (r *Request) AttributesToRetrieve() []string { return r.retrievable }

// ScoreModifiers returns the score modifier set.
func (r *Request) ScoreModifiers() modifiers.Set { return r.scoreModifiers }

// Ranking returns the hybrid fusion parameters.
func (r *Request) Ranking() Ranking { return r.ranking }

// CandidateK returns how many chunk-level candidates each retrieval should
// fetch before grouping into documents.
func (r *Request) CandidateK() int {
	// over-fetch: multiple chunks of one document collapse into a single hit
	const chunkOverFetch = 3
	return (r.offset + r.limit) * chunkOverFetch
}
