package index

import (
	"fmt"

	"github.com/kailas-cloud/tensordex/internal/db"
	domidx "github.com/kailas-cloud/tensordex/internal/domain/index"
	"github.com/kailas-cloud/tensordex/internal/domain/index/field"
)

// Internal hash attributes present on every chunk hash.
const (
	AttrDocID     = "__doc_id"
	AttrField     = "__field"
	AttrChunk     = "__chunk"
	AttrVector    = "__vector"
	AttrHasVector = "__has_vector"
)

// Attribute prefixes for flattened document field copies.
const (
	LexicalPrefix = "lex_"
	FilterPrefix  = "flt_"
	NumericPrefix = "num_"
)

// LexicalAttr returns the TEXT copy attribute of a document field.
func LexicalAttr(name string) string { return LexicalPrefix + name }

// FilterAttr returns the TAG copy attribute of a document field.
func FilterAttr(name string) string { return FilterPrefix + name }

// NumericAttr returns the NUMERIC copy attribute of a document field.
func NumericAttr(name string) string { return NumericPrefix + name }

// buildSearchIndex creates the base FT definition of an index: internal chunk
// attributes plus the HNSW vector field. Document field attributes are added
// later via FT.ALTER as the registry grows.
func buildSearchIndex(keys Keys, idx domidx.Index) (*db.IndexDefinition, error) {
	s := idx.Settings()

	metric, err := distanceMetric(s.DistanceMetric)
	if err != nil {
		return nil, err
	}

	def := &db.IndexDefinition{
		Name:        keys.Search(idx.Name()),
		StorageType: db.StorageHash,
		Prefixes:    []string{keys.ChunkPrefix(idx.Name())},
		Fields: []db.IndexField{
			{Name: AttrDocID, Type: db.IndexFieldTag},
			{Name: AttrField, Type: db.IndexFieldTag},
			{Name: AttrHasVector, Type: db.IndexFieldTag},
			{
				Name:              AttrVector,
				Type:              db.IndexFieldVector,
				VectorAlgo:        db.VectorHNSW,
				VectorDim:         s.Model.Dimensions,
				VectorDistance:    metric,
				VectorM:           s.Hnsw.M,
				VectorEFConstruct: s.Hnsw.EfConstruction,
			},
		},
	}

	fieldAttrs, err := attrsForFields(idx.Fields())
	if err != nil {
		return nil, err
	}
	def.Fields = append(def.Fields, fieldAttrs...)

	return def, nil
}

func distanceMetric(m domidx.DistanceMetric) (db.DistanceMetric, error) {
	switch m {
	case domidx.DistanceCosine:
		return db.DistanceCosine, nil
	case domidx.DistanceEuclidean:
		return db.DistanceL2, nil
	case domidx.DistanceDotProduct:
		return db.DistanceIP, nil
	default:
		return "", fmt.Errorf("unknown distance metric: %s", m)
	}
}

// attrsForFields maps registered document fields to their FT attributes.
func attrsForFields(fields []field.Field) ([]db.IndexField, error) {
	var out []db.IndexField
	for _, f := range fields {
		attrs, err := attrsForField(f)
		if err != nil {
			return nil, err
		}
		out = append(out, attrs...)
	}
	return out, nil
}

func attrsForField(f field.Field) ([]db.IndexField, error) {
	switch f.Type() {
	case field.TypeString, field.TypeTensor:
		// lexical copy plus a filterable copy for short values
		return []db.IndexField{
			{Name: LexicalAttr(f.Name()), Type: db.IndexFieldText},
			{Name: FilterAttr(f.Name()), Type: db.IndexFieldTag},
		}, nil
	case field.TypeStringArray:
		return []db.IndexField{
			{Name: FilterAttr(f.Name()), Type: db.IndexFieldTag, TagSeparator: ","},
		}, nil
	case field.TypeBool:
		return []db.IndexField{
			{Name: FilterAttr(f.Name()), Type: db.IndexFieldTag},
		}, nil
	case field.TypeInt, field.TypeFloat:
		return []db.IndexField{
			{Name: NumericAttr(f.Name()), Type: db.IndexFieldNumeric},
		}, nil
	default:
		return nil, fmt.Errorf("unknown field type: %s", f.Type())
	}
}
