package document

import (
	"strings"
	"testing"

	domdoc "github.com/kailas-cloud/tensordex/internal/domain/document"
	domidx "github.com/kailas-cloud/tensordex/internal/domain/index"
	repoidx "github.com/kailas-cloud/tensordex/internal/repository/index"
)

func testSettings() domidx.Settings {
	s := domidx.DefaultSettings()
	s.Model = domidx.Model{Name: "test-model", Dimensions: 2}
	return s
}

func testDoc(t *testing.T, id string) domdoc.Document {
	t.Helper()
	return domdoc.Reconstruct(id,
		map[string]string{"title": "Inception"},
		map[string][]string{"genres": {"sci-fi", "thriller"}},
		map[string]int64{"year": 2010},
		map[string]float64{"rating": 8.8},
		map[string]bool{"released": true},
		map[string][]domdoc.Chunk{
			"plot": {
				{Text: "A thief steals secrets.", Vector: []float32{1, 0}},
				{Text: "Dreams within dreams.", Vector: []float32{0, 1}},
			},
		},
	)
}

func TestDocJSONRoundTrip(t *testing.T) {
	doc := testDoc(t, "d1")

	raw, err := docToJSON(&doc, 2, 1234)
	if err != nil {
		t.Fatalf("to json: %v", err)
	}

	got, hashCount, err := docFromJSON(raw)
	if err != nil {
		t.Fatalf("from json: %v", err)
	}
	if got.ID() != "d1" || hashCount != 2 {
		t.Errorf("identity lost: %s / %d", got.ID(), hashCount)
	}
	if got.Strings()["title"] != "Inception" {
		t.Errorf("strings lost: %v", got.Strings())
	}
	if got.Ints()["year"] != 2010 || got.Floats()["rating"] != 8.8 {
		t.Errorf("numerics lost: %v %v", got.Ints(), got.Floats())
	}
	if !got.Bools()["released"] {
		t.Errorf("bools lost: %v", got.Bools())
	}
	if len(got.StringArrays()["genres"]) != 2 {
		t.Errorf("arrays lost: %v", got.StringArrays())
	}
	chunks := got.Tensors()["plot"]
	if len(chunks) != 2 {
		t.Fatalf("tensors lost: %v", got.Tensors())
	}
	if chunks[0].Text != "A thief steals secrets." {
		t.Errorf("chunk text lost: %q", chunks[0].Text)
	}
	if len(chunks[1].Vector) != 2 || chunks[1].Vector[1] != 1 {
		t.Errorf("chunk vector lost: %v", chunks[1].Vector)
	}
}

func TestDocFromJSON_Corrupt(t *testing.T) {
	if _, _, err := docFromJSON([]byte("{broken")); err == nil {
		t.Error("expected error for corrupt JSON")
	}
}

func TestCopyFields(t *testing.T) {
	doc := testDoc(t, "d1")

	m := copyFields(&doc, testSettings())

	if m[repoidx.LexicalAttr("title")] != "Inception" {
		t.Errorf("lexical copy missing: %v", m)
	}
	if m[repoidx.FilterAttr("title")] != "Inception" {
		t.Errorf("short string should get a filter copy: %v", m)
	}
	if m[repoidx.FilterAttr("genres")] != "sci-fi,thriller" {
		t.Errorf("array filter copy wrong: %q", m[repoidx.FilterAttr("genres")])
	}
	if m[repoidx.NumericAttr("year")] != "2010" {
		t.Errorf("int copy wrong: %q", m[repoidx.NumericAttr("year")])
	}
	if m[repoidx.NumericAttr("rating")] != "8.8" {
		t.Errorf("float copy wrong: %q", m[repoidx.NumericAttr("rating")])
	}
	if m[repoidx.FilterAttr("released")] != "true" {
		t.Errorf("bool copy wrong: %q", m[repoidx.FilterAttr("released")])
	}
}

func TestCopyFields_LongStringHasNoFilterCopy(t *testing.T) {
	long := strings.Repeat("x", 51)
	doc := domdoc.Reconstruct("d1",
		map[string]string{"synopsis": long}, nil, nil, nil, nil, nil)

	m := copyFields(&doc, testSettings())

	if m[repoidx.LexicalAttr("synopsis")] != long {
		t.Error("long string must stay lexically searchable")
	}
	if _, ok := m[repoidx.FilterAttr("synopsis")]; ok {
		t.Error("long string must not get a filter copy")
	}
}

func TestBuildChunkItems_WithTensors(t *testing.T) {
	keys := repoidx.NewKeys("tensordex:")
	doc := testDoc(t, "d1")

	items := buildChunkItems(keys, "movies", &doc, testSettings())
	if len(items) != 2 {
		t.Fatalf("expected one hash per chunk, got %d", len(items))
	}
	for i, item := range items {
		wantKey := keys.Chunk("movies", "d1", i)
		if item.Key != wantKey {
			t.Errorf("item %d: expected key %q, got %q", i, wantKey, item.Key)
		}
		if item.Fields[repoidx.AttrDocID] != "d1" {
			t.Errorf("item %d: doc id missing", i)
		}
		if item.Fields[repoidx.AttrField] != "plot" {
			t.Errorf("item %d: field name missing", i)
		}
		if item.Fields[repoidx.AttrHasVector] != "1" {
			t.Errorf("item %d: vector flag missing", i)
		}
		if item.Fields[repoidx.AttrVector] == "" {
			t.Errorf("item %d: vector bytes missing", i)
		}
		// the lexical copy of a tensor field is its chunk text
		if item.Fields[repoidx.LexicalAttr("plot")] != item.Fields[repoidx.AttrChunk] {
			t.Errorf("item %d: lexical copy should be the chunk text", i)
		}
		// flattened copies apply to every chunk hash
		if item.Fields[repoidx.NumericAttr("year")] != "2010" {
			t.Errorf("item %d: numeric copy missing", i)
		}
	}
	if items[0].Fields[repoidx.AttrChunk] != "A thief steals secrets." {
		t.Errorf("chunk order lost: %q", items[0].Fields[repoidx.AttrChunk])
	}
}

func TestBuildChunkItems_NoTensors(t *testing.T) {
	keys := repoidx.NewKeys("tensordex:")
	doc := domdoc.Reconstruct("d1",
		map[string]string{"title": "Plain"}, nil, nil, nil, nil, nil)

	items := buildChunkItems(keys, "movies", &doc, testSettings())
	if len(items) != 1 {
		t.Fatalf("expected a single vectorless hash, got %d", len(items))
	}
	item := items[0]
	if item.Key != keys.Chunk("movies", "d1", 0) {
		t.Errorf("unexpected key: %q", item.Key)
	}
	if item.Fields[repoidx.AttrHasVector] != "0" {
		t.Errorf("vectorless hash must carry __has_vector=0: %v", item.Fields)
	}
	if _, ok := item.Fields[repoidx.AttrVector]; ok {
		t.Error("vectorless hash must not carry vector bytes")
	}
	if item.Fields[repoidx.LexicalAttr("title")] != "Plain" {
		t.Errorf("field copies missing: %v", item.Fields)
	}
}

func TestVectorToBytes(t *testing.T) {
	got := vectorToBytes([]float32{1.0})
	// IEEE 754 little-endian encoding of 1.0f
	want := string([]byte{0x00, 0x00, 0x80, 0x3f})
	if got != want {
		t.Errorf("expected % x, got % x", want, got)
	}
	if len(vectorToBytes([]float32{1, 2, 3})) != 12 {
		t.Error("expected 4 bytes per dimension")
	}
}
