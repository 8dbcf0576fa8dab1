// Package method enumerates the supported retrieval strategies.
package method

// Method is the search strategy.
type Method string

// Search method constants.
const (
	// Tensor is ANN retrieval over chunk embeddings.
	Tensor Method = "tensor"
	// Lexical is BM25 retrieval over text fields.
	Lexical Method = "lexical"
	// Hybrid runs both retrievals and fuses them with weighted RRF.
	Hybrid Method = "hybrid"
)

// IsValid checks if the method is one of the supported values.
func (m Method) IsValid() bool {
	return m == Tensor || m == Lexical || m == Hybrid
}
