package document

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kailas-cloud/tensordex/internal/db"
	domdoc "github.com/kailas-cloud/tensordex/internal/domain/document"
	domidx "github.com/kailas-cloud/tensordex/internal/domain/index"
	repoidx "github.com/kailas-cloud/tensordex/internal/repository/index"
)

// tensorJSON is the persisted form of one vectorized field.
type tensorJSON struct {
	Chunks     []string    `json:"chunks"`
	Embeddings [][]float32 `json:"embeddings"`
}

// docJSON is the parent document stored via JSON.SET.
type docJSON struct {
	ID           string                `json:"id"`
	Strings      map[string]string     `json:"strings,omitempty"`
	StringArrays map[string][]string   `json:"string_arrays,omitempty"`
	Ints         map[string]int64      `json:"ints,omitempty"`
	Floats       map[string]float64    `json:"floats,omitempty"`
	Bools        map[string]bool       `json:"bools,omitempty"`
	Tensors      map[string]tensorJSON `json:"tensors,omitempty"`
	// HashCount is the number of chunk hashes backing this document,
	// needed to delete them without scanning.
	HashCount int   `json:"hash_count"`
	UpdatedAt int64 `json:"updated_at"`
}

func docToJSON(doc *domdoc.Document, hashCount, updatedAt int64) ([]byte, error) {
	d := docJSON{
		ID:           doc.ID(),
		Strings:      doc.Strings(),
		StringArrays: doc.StringArrays(),
		Ints:         doc.Ints(),
		Floats:       doc.Floats(),
		Bools:        doc.Bools(),
		HashCount:    int(hashCount),
		UpdatedAt:    updatedAt,
	}
	if len(doc.Tensors()) > 0 {
		d.Tensors = make(map[string]tensorJSON, len(doc.Tensors()))
		for name, chunks := range doc.Tensors() {
			t := tensorJSON{
				Chunks:     make([]string, len(chunks)),
				Embeddings: make([][]float32, len(chunks)),
			}
			for i, c := range chunks {
				t.Chunks[i] = c.Text
				t.Embeddings[i] = c.Vector
			}
			d.Tensors[name] = t
		}
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshal document %s: %w", doc.ID(), err)
	}
	return raw, nil
}

func docFromJSON(raw []byte) (domdoc.Document, int, error) {
	var d docJSON
	if err := json.Unmarshal(raw, &d); err != nil {
		return domdoc.Document{}, 0, fmt.Errorf("unmarshal document: %w", err)
	}

	var tensors map[string][]domdoc.Chunk
	if len(d.Tensors) > 0 {
		tensors = make(map[string][]domdoc.Chunk, len(d.Tensors))
		for name, t := range d.Tensors {
			chunks := make([]domdoc.Chunk, len(t.Chunks))
			for i, text := range t.Chunks {
				chunks[i] = domdoc.Chunk{Text: text}
				if i < len(t.Embeddings) {
					chunks[i].Vector = t.Embeddings[i]
				}
			}
			tensors[name] = chunks
		}
	}

	doc := domdoc.Reconstruct(d.ID, d.Strings, d.StringArrays, d.Ints, d.Floats, d.Bools, tensors)
	return doc, d.HashCount, nil
}

// copyFields flattens document fields into their searchable hash attributes:
// lex_* TEXT copies, flt_* TAG copies and num_* NUMERIC copies.
func copyFields(doc *domdoc.Document, settings domidx.Settings) map[string]string {
	m := make(map[string]string)
	for name, v := range doc.Strings() {
		m[repoidx.LexicalAttr(name)] = v
		if len(v) <= settings.FilterStringMaxLength {
			m[repoidx.FilterAttr(name)] = v
		}
	}
	for name, arr := range doc.StringArrays() {
		m[repoidx.FilterAttr(name)] = strings.Join(arr, ",")
	}
	for name, v := range doc.Ints() {
		m[repoidx.NumericAttr(name)] = strconv.FormatInt(v, 10)
	}
	for name, v := range doc.Floats() {
		m[repoidx.NumericAttr(name)] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	for name, v := range doc.Bools() {
		m[repoidx.FilterAttr(name)] = strconv.FormatBool(v)
	}
	return m
}

// buildChunkItems produces one hash per chunk (or a single vectorless hash for
// documents without tensor fields). Every hash carries the flattened field
// copies so filters apply uniformly to tensor and lexical retrieval.
func buildChunkItems(
	keys repoidx.Keys, indexName string, doc *domdoc.Document, settings domidx.Settings,
) []db.HashSetItem {
	copies := copyFields(doc, settings)

	newItem := func(ordinal int) db.HashSetItem {
		fields := make(map[string]string, len(copies)+4)
		for k, v := range copies {
			fields[k] = v
		}
		fields[repoidx.AttrDocID] = doc.ID()
		return db.HashSetItem{Key: keys.Chunk(indexName, doc.ID(), ordinal), Fields: fields}
	}

	if doc.ChunkCount() == 0 {
		item := newItem(0)
		item.Fields[repoidx.AttrHasVector] = "0"
		return []db.HashSetItem{item}
	}

	var items []db.HashSetItem
	ordinal := 0
	for _, fieldName := range doc.TensorFieldNames() {
		for _, c := range doc.Tensors()[fieldName] {
			item := newItem(ordinal)
			item.Fields[repoidx.AttrField] = fieldName
			item.Fields[repoidx.AttrChunk] = c.Text
			item.Fields[repoidx.AttrVector] = vectorToBytes(c.Vector)
			item.Fields[repoidx.AttrHasVector] = "1"
			// the lexical copy of a tensor field is its chunk text, so BM25
			// scores chunks instead of repeating the full value per hash
			item.Fields[repoidx.LexicalAttr(fieldName)] = c.Text
			items = append(items, item)
			ordinal++
		}
	}
	return items
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
