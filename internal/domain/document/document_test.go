package document

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/kailas-cloud/tensordex/internal/domain"
	"github.com/kailas-cloud/tensordex/internal/domain/index/field"
)

func TestValidateID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"simple", "doc1", false},
		{"uuid style", "a1b2c3d4-e5f6-7890-abcd-ef1234567890", false},
		{"with colons", "ns:doc:1", false},
		{"with dots", "v1.2.3", false},
		{"empty", "", true},
		{"too long", strings.Repeat("x", MaxIDLength+1), true},
		{"reserved", "delete-batch", true},
		{"spaces", "doc 1", true},
		{"slash", "a/b", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateID(tc.id)
			if tc.wantErr && !errors.Is(err, domain.ErrInvalidField) {
				t.Errorf("expected ErrInvalidField for %q, got %v", tc.id, err)
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error for %q: %v", tc.id, err)
			}
		})
	}
}

func TestNew_TypedFields(t *testing.T) {
	d, err := New("doc1", map[string]any{
		"title":  "hello",
		"year":   int64(1999),
		"count":  42,
		"rating": 8.5,
		"seen":   true,
		"tags":   []string{"a", "b"},
		"genres": []any{"drama", "comedy"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if d.Strings()["title"] != "hello" {
		t.Errorf("string field lost: %v", d.Strings())
	}
	if d.Ints()["year"] != 1999 || d.Ints()["count"] != 42 {
		t.Errorf("int fields lost: %v", d.Ints())
	}
	if d.Floats()["rating"] != 8.5 {
		t.Errorf("float field lost: %v", d.Floats())
	}
	if !d.Bools()["seen"] {
		t.Errorf("bool field lost: %v", d.Bools())
	}
	if !reflect.DeepEqual(d.StringArrays()["tags"], []string{"a", "b"}) {
		t.Errorf("array field lost: %v", d.StringArrays())
	}
	if !reflect.DeepEqual(d.StringArrays()["genres"], []string{"drama", "comedy"}) {
		t.Errorf("[]any array not converted: %v", d.StringArrays())
	}
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
	}{
		{"nested map", map[string]any{"meta": map[string]any{"a": 1}}},
		{"mixed array", map[string]any{"tags": []any{"a", 1}}},
		{"protected field", map[string]any{"_score": 1.0}},
		{"reserved prefix", map[string]any{"__internal": "x"}},
		{"oversized string", map[string]any{"body": strings.Repeat("a", MaxTextSize+1)}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New("doc1", tc.raw)
			if !errors.Is(err, domain.ErrInvalidField) {
				t.Errorf("expected ErrInvalidField, got %v", err)
			}
		})
	}
}

func TestNew_TooManyArrayElements(t *testing.T) {
	arr := make([]string, MaxArrayElements+1)
	_, err := New("doc1", map[string]any{"tags": arr})
	if !errors.Is(err, domain.ErrInvalidField) {
		t.Errorf("expected ErrInvalidField, got %v", err)
	}
}

func TestWithTensors(t *testing.T) {
	d, _ := New("doc1", map[string]any{"plot": "some text", "year": int64(2000)})

	chunks := map[string][]Chunk{
		"plot": {{Text: "some text", Vector: []float32{0.1, 0.2}}},
	}
	dt, err := d.WithTensors(chunks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dt.ChunkCount() != 1 {
		t.Errorf("expected 1 chunk, got %d", dt.ChunkCount())
	}
	if got := dt.TensorFieldNames(); !reflect.DeepEqual(got, []string{"plot"}) {
		t.Errorf("unexpected tensor fields: %v", got)
	}
	// original document has no tensors
	if d.ChunkCount() != 0 {
		t.Error("original document mutated")
	}
}

func TestWithTensors_NonStringField(t *testing.T) {
	d, _ := New("doc1", map[string]any{"year": int64(2000)})
	_, err := d.WithTensors(map[string][]Chunk{"year": {}})
	if !errors.Is(err, domain.ErrInvalidField) {
		t.Errorf("expected ErrInvalidField, got %v", err)
	}
}

func TestFieldsTyped(t *testing.T) {
	d, _ := New("doc1", map[string]any{
		"plot":  "long text",
		"title": "short",
		"year":  int64(2000),
		"tags":  []string{"a"},
	})
	d, _ = d.WithTensors(map[string][]Chunk{
		"plot": {{Text: "long text", Vector: []float32{1}}},
	})

	got := d.FieldsTyped()
	want := map[string]field.Type{
		"plot":  field.TypeTensor,
		"tags":  field.TypeStringArray,
		"title": field.TypeString,
		"year":  field.TypeInt,
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d fields, got %d: %v", len(want), len(got), got)
	}
	for _, f := range got {
		if want[f.Name()] != f.Type() {
			t.Errorf("field %s: expected %s, got %s", f.Name(), want[f.Name()], f.Type())
		}
	}
	// stable order
	for i := 1; i < len(got); i++ {
		if got[i-1].Name() >= got[i].Name() {
			t.Errorf("fields not sorted: %v", got)
		}
	}
}

func TestNumericValue(t *testing.T) {
	d, _ := New("doc1", map[string]any{"year": int64(2000), "rating": 8.5})

	if v, ok := d.NumericValue("year"); !ok || v != 2000 {
		t.Errorf("int field: got %v %v", v, ok)
	}
	if v, ok := d.NumericValue("rating"); !ok || v != 8.5 {
		t.Errorf("float field: got %v %v", v, ok)
	}
	if _, ok := d.NumericValue("missing"); ok {
		t.Error("expected miss")
	}
}

func TestRaw(t *testing.T) {
	d, _ := New("doc1", map[string]any{
		"title": "hello",
		"year":  int64(2000),
		"seen":  true,
	})
	raw := d.Raw()
	if raw["title"] != "hello" || raw["year"] != int64(2000) || raw["seen"] != true {
		t.Errorf("unexpected raw map: %v", raw)
	}
	if _, ok := raw["_id"]; ok {
		t.Error("raw map must not carry internal keys")
	}
}
