package index

import (
	"fmt"

	"github.com/kailas-cloud/tensordex/internal/domain"
)

// DistanceMetric selects how vector similarity is computed.
type DistanceMetric string

const (
	// DistanceCosine is angular distance on normalized vectors.
	DistanceCosine DistanceMetric = "cosine"
	// DistanceEuclidean is L2 distance.
	DistanceEuclidean DistanceMetric = "euclidean"
	// DistanceDotProduct is inner product similarity.
	DistanceDotProduct DistanceMetric = "dotproduct"
)

// SplitMethod selects the unit used when chunking tensor field text.
type SplitMethod string

const (
	// SplitCharacter chunks by characters.
	SplitCharacter SplitMethod = "character"
	// SplitWord chunks by whitespace-separated words.
	SplitWord SplitMethod = "word"
	// SplitSentence chunks by sentences.
	SplitSentence SplitMethod = "sentence"
)

// Model describes the embedding model an index vectorizes with.
type Model struct {
	Name       string `json:"name"`
	Dimensions int    `json:"dimensions"`
	// QueryPrefix is prepended to search queries before embedding.
	QueryPrefix string `json:"queryPrefix,omitempty"`
	// ChunkPrefix is prepended to document chunks before embedding.
	ChunkPrefix string `json:"chunkPrefix,omitempty"`
}

// Hnsw holds ANN graph build parameters.
type Hnsw struct {
	M              int `json:"m"`
	EfConstruction int `json:"efConstruction"`
}

// TextPreprocessing controls how tensor field text is split into chunks.
type TextPreprocessing struct {
	SplitLength  int         `json:"splitLength"`
	SplitOverlap int         `json:"splitOverlap"`
	SplitMethod  SplitMethod `json:"splitMethod"`
}

// Settings is the immutable configuration an index is created with.
type Settings struct {
	Model               Model             `json:"model"`
	DistanceMetric      DistanceMetric    `json:"distanceMetric"`
	NormalizeEmbeddings bool              `json:"normalizeEmbeddings"`
	Hnsw                Hnsw              `json:"hnsw"`
	TextPreprocessing   TextPreprocessing `json:"textPreprocessing"`
	// FilterStringMaxLength caps the length of string values that get a
	// filterable copy. Longer strings stay lexically searchable only.
	FilterStringMaxLength int `json:"filterStringMaxLength"`
}

// DefaultSettings returns index settings with every knob at its default.
// The model itself has no default and must come from configuration.
func DefaultSettings() Settings {
	return Settings{
		DistanceMetric:      DistanceCosine,
		NormalizeEmbeddings: true,
		Hnsw: Hnsw{
			M:              16,
			EfConstruction: 512,
		},
		TextPreprocessing: TextPreprocessing{
			SplitLength:  2,
			SplitOverlap: 0,
			SplitMethod:  SplitSentence,
		},
		FilterStringMaxLength: 50,
	}
}

// ApplyDefaults fills zero-valued knobs from DefaultSettings.
func (s *Settings) ApplyDefaults() {
	def := DefaultSettings()
	if s.DistanceMetric == "" {
		s.DistanceMetric = def.DistanceMetric
	}
	if s.Hnsw.M == 0 {
		s.Hnsw.M = def.Hnsw.M
	}
	if s.Hnsw.EfConstruction == 0 {
		s.Hnsw.EfConstruction = def.Hnsw.EfConstruction
	}
	if s.TextPreprocessing.SplitMethod == "" {
		s.TextPreprocessing.SplitMethod = def.TextPreprocessing.SplitMethod
	}
	if s.TextPreprocessing.SplitLength == 0 {
		s.TextPreprocessing.SplitLength = def.TextPreprocessing.SplitLength
	}
	if s.FilterStringMaxLength == 0 {
		s.FilterStringMaxLength = def.FilterStringMaxLength
	}
}

// Validate checks settings consistency.
func (s Settings) Validate() error {
	if s.Model.Name == "" {
		return fmt.Errorf("%w: model name is required", domain.ErrInvalidSettings)
	}
	if s.Model.Dimensions <= 0 {
		return fmt.Errorf("%w: model dimensions must be positive", domain.ErrInvalidSettings)
	}
	switch s.DistanceMetric {
	case DistanceCosine, DistanceEuclidean, DistanceDotProduct:
	default:
		return fmt.Errorf("%w: unknown distance metric %q", domain.ErrInvalidSettings, s.DistanceMetric)
	}
	if s.Hnsw.M <= 0 || s.Hnsw.EfConstruction <= 0 {
		return fmt.Errorf("%w: hnsw parameters must be positive", domain.ErrInvalidSettings)
	}
	switch s.TextPreprocessing.SplitMethod {
	case SplitCharacter, SplitWord, SplitSentence:
	default:
		return fmt.Errorf("%w: unknown split method %q", domain.ErrInvalidSettings, s.TextPreprocessing.SplitMethod)
	}
	if s.TextPreprocessing.SplitLength <= 0 {
		return fmt.Errorf("%w: splitLength must be positive", domain.ErrInvalidSettings)
	}
	if s.TextPreprocessing.SplitOverlap < 0 {
		return fmt.Errorf("%w: splitOverlap must not be negative", domain.ErrInvalidSettings)
	}
	if s.TextPreprocessing.SplitOverlap >= s.TextPreprocessing.SplitLength {
		return fmt.Errorf("%w: splitOverlap must be smaller than splitLength", domain.ErrInvalidSettings)
	}
	if s.FilterStringMaxLength < 0 {
		return fmt.Errorf("%w: filterStringMaxLength must not be negative", domain.ErrInvalidSettings)
	}
	return nil
}
