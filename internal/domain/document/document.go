// Package document holds the semi-structured document aggregate: an identifier,
// typed metadata fields and the chunked tensors derived from text fields.
package document

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/kailas-cloud/tensordex/internal/domain"
	"github.com/kailas-cloud/tensordex/internal/domain/index/field"
)

var (
	idRegex     = regexp.MustCompile(`^[a-zA-Z0-9._:-]+$`)
	reservedIDs = map[string]bool{"delete-batch": true}
)

const (
	// MaxIDLength bounds document identifier length.
	MaxIDLength = 256
	// MaxTextSize is the maximum size of a single string field in bytes.
	MaxTextSize = 163840 // 160KB
	// MaxArrayElements bounds string array fields.
	MaxArrayElements = 1000
)

// Chunk is one vectorized piece of a tensor field.
type Chunk struct {
	Text   string
	Vector []float32
}

// Document is the document aggregate (immutable value object).
type Document struct {
	id           string
	strings      map[string]string
	stringArrays map[string][]string
	ints         map[string]int64
	floats       map[string]float64
	bools        map[string]bool
	tensors      map[string][]Chunk
}

// ValidateID checks a document identifier against naming rules.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: document ID is required", domain.ErrInvalidField)
	}
	if len(id) > MaxIDLength {
		return fmt.Errorf("%w: document ID too long (max %d)", domain.ErrInvalidField, MaxIDLength)
	}
	if !idRegex.MatchString(id) {
		return fmt.Errorf(
			"%w: document ID must contain only letters, digits, dots, underscores, colons and hyphens",
			domain.ErrInvalidField,
		)
	}
	if reservedIDs[id] {
		return fmt.Errorf("%w: document ID %q is reserved", domain.ErrInvalidField, id)
	}
	return nil
}

// New validates and creates a Document from raw field values.
// Accepted value types: string, bool, int64, float64, []string.
func New(id string, raw map[string]any) (Document, error) {
	if err := ValidateID(id); err != nil {
		return Document{}, err
	}
	d := Document{
		id:           id,
		strings:      map[string]string{},
		stringArrays: map[string][]string{},
		ints:         map[string]int64{},
		floats:       map[string]float64{},
		bools:        map[string]bool{},
	}
	for name, value := range raw {
		if err := field.ValidateName(name); err != nil {
			return Document{}, err
		}
		switch v := value.(type) {
		case string:
			if len(v) > MaxTextSize {
				return Document{}, fmt.Errorf("%w: field %q too large (max %d bytes)", domain.ErrInvalidField, name, MaxTextSize)
			}
			d.strings[name] = v
		case bool:
			d.bools[name] = v
		case int:
			d.ints[name] = int64(v)
		case int64:
			d.ints[name] = v
		case float64:
			d.floats[name] = v
		case []string:
			if len(v) > MaxArrayElements {
				return Document{}, fmt.Errorf("%w: field %q has too many elements (max %d)", domain.ErrInvalidField, name, MaxArrayElements)
			}
			d.stringArrays[name] = append([]string(nil), v...)
		case []any:
			arr := make([]string, len(v))
			for i, el := range v {
				s, ok := el.(string)
				if !ok {
					return Document{}, fmt.Errorf("%w: field %q: arrays may contain only strings", domain.ErrInvalidField, name)
				}
				arr[i] = s
			}
			if len(arr) > MaxArrayElements {
				return Document{}, fmt.Errorf("%w: field %q has too many elements (max %d)", domain.ErrInvalidField, name, MaxArrayElements)
			}
			d.stringArrays[name] = arr
		default:
			return Document{}, fmt.Errorf("%w: field %q has unsupported type %T", domain.ErrInvalidField, name, value)
		}
	}
	return d, nil
}

// Reconstruct creates a Document without validation (storage hydration).
func Reconstruct(
	id string,
	strs map[string]string, arrays map[string][]string,
	ints map[string]int64, floats map[string]float64, bools map[string]bool,
	tensors map[string][]Chunk,
) Document {
	return Document{
		id: id, strings: strs, stringArrays: arrays,
		ints: ints, floats: floats, bools: bools, tensors: tensors,
	}
}

// ID returns the document identifier.
func (d *Document) ID() string { return d.id }

// Strings returns the string fields.
func (d *Document) Strings() map[string]string { return d.strings }

// StringArrays returns the string array fields.
func (d *Document) StringArrays() map[string][]string { return d.stringArrays }

// Ints returns the integer fields.
func (d *Document) Ints() map[string]int64 { return d.ints }

// Floats returns the float fields.
func (d *Document) Floats() map[string]float64 { return d.floats }

// Bools returns the boolean fields.
func (d *Document) Bools() map[string]bool { return d.bools }

// Tensors returns chunks per tensor field.
func (d *Document) Tensors() map[string][]Chunk { return d.tensors }

// TensorFieldNames returns the tensor field names in stable order.
func (d *Document) TensorFieldNames() []string {
	names := make([]string, 0, len(d.tensors))
	for name := range d.tensors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ChunkCount returns the total number of chunks across tensor fields.
func (d *Document) ChunkCount() int {
	n := 0
	for _, chunks := range d.tensors {
		n += len(chunks)
	}
	return n
}

// WithTensors returns a copy with tensors attached. Every tensor field must be
// an existing string field of the document.
func (d *Document) WithTensors(tensors map[string][]Chunk) (Document, error) {
	for name := range tensors {
		if _, ok := d.strings[name]; !ok {
			return Document{}, fmt.Errorf("%w: tensor field %q is not a string field of the document", domain.ErrInvalidField, name)
		}
	}
	copied := *d
	copied.tensors = tensors
	return copied, nil
}

// FieldsTyped derives the registry entries this document contributes.
// A string field that was vectorized is registered as tensor.
func (d *Document) FieldsTyped() []field.Field {
	var out []field.Field
	for name := range d.strings {
		t := field.TypeString
		if _, ok := d.tensors[name]; ok {
			t = field.TypeTensor
		}
		out = append(out, field.Reconstruct(name, t))
	}
	for name := range d.stringArrays {
		out = append(out, field.Reconstruct(name, field.TypeStringArray))
	}
	for name := range d.ints {
		out = append(out, field.Reconstruct(name, field.TypeInt))
	}
	for name := range d.floats {
		out = append(out, field.Reconstruct(name, field.TypeFloat))
	}
	for name := range d.bools {
		out = append(out, field.Reconstruct(name, field.TypeBool))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// NumericValue returns a numeric field value as float64 (int fields included).
func (d *Document) NumericValue(name string) (float64, bool) {
	if v, ok := d.floats[name]; ok {
		return v, true
	}
	if v, ok := d.ints[name]; ok {
		return float64(v), true
	}
	return 0, false
}

// Raw returns the client-facing field map without internal keys.
func (d *Document) Raw() map[string]any {
	out := make(map[string]any)
	for k, v := range d.strings {
		out[k] = v
	}
	for k, v := range d.stringArrays {
		out[k] = v
	}
	for k, v := range d.ints {
		out[k] = v
	}
	for k, v := range d.floats {
		out[k] = v
	}
	for k, v := range d.bools {
		out[k] = v
	}
	return out
}
