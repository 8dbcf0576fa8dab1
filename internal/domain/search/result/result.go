package result

// ChunkHit is a chunk-level retrieval hit before document grouping.
type ChunkHit struct {
	DocID string
	Field string
	Chunk string
	Score float64
}

// Hit is a single search hit.
type Hit struct {
	id         string
	score      float64
	highlights map[string]string
	fields     map[string]any
}

// NewHit creates a search hit.
func NewHit(id string, score float64, highlights map[string]string, fields map[string]any) Hit {
	return Hit{id: id, score: score, highlights: highlights, fields: fields}
}

// ID returns the document identifier.
func (h *Hit) ID() string { return h.id }

// Score returns the relevance score.
func (h *Hit) Score() float64 { return h.score }

// Highlights returns the best-matching chunk per tensor field, if any.
func (h *Hit) Highlights() map[string]string { return h.highlights }

// Fields returns the retrieved document fields.
func (h *Hit) Fields() map[string]any { return h.fields }

// WithScore returns a copy of the hit with a different score.
func (h *Hit) WithScore(score float64) Hit {
	copied := *h
	copied.score = score
	return copied
}

// Page is an ordered page of search hits.
type Page struct {
	hits             []Hit
	query            string
	limit            int
	offset           int
	processingTimeMs int64
}

// NewPage creates a result page.
func NewPage(hits []Hit, query string, limit, offset int, processingTimeMs int64) Page {
	return Page{hits: hits, query: query, limit: limit, offset: offset, processingTimeMs: processingTimeMs}
}

// Hits returns the ordered hits.
func (p *Page) Hits() []Hit { return p.hits }

// Query returns the original query text.
func (p *Page) Query() string { return p.query }

// Limit returns the applied limit.
func (p *Page) Limit() int { return p.limit }

// Offset returns the applied offset.
func (p *Page) Offset() int { return p.offset }

// ProcessingTimeMs returns the server-side processing time.
func (p *Page) ProcessingTimeMs() int64 { return p.processingTimeMs }
