// Package field defines the typed fields a semi-structured index discovers
// from its documents.
package field

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kailas-cloud/tensordex/internal/domain"
)

// Type is the discovered type of a document field.
type Type string

const (
	// TypeString is a text field, lexically searchable and (when short enough) filterable.
	TypeString Type = "string"
	// TypeStringArray is an array of strings, filterable per element.
	TypeStringArray Type = "string_array"
	// TypeInt is a 64-bit integer field.
	TypeInt Type = "int"
	// TypeFloat is a 64-bit float field.
	TypeFloat Type = "float"
	// TypeBool is a boolean field.
	TypeBool Type = "bool"
	// TypeTensor is a text field that has been chunked and vectorized.
	TypeTensor Type = "tensor"
)

// MaxNameLength bounds field name length.
const MaxNameLength = 100

// ReservedPrefix marks internal hash attributes; user fields must not use it.
const ReservedPrefix = "__"

var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// protectedNames are response-level keys that documents may never define.
var protectedNames = map[string]bool{
	"_id":            true,
	"_score":         true,
	"_highlights":    true,
	"_found":         true,
	"_tensor_facets": true,
}

// Field is an immutable (name, type) pair in the index registry.
type Field struct {
	name  string
	ftype Type
}

// New creates a validated field.
func New(name string, ftype Type) (Field, error) {
	if err := ValidateName(name); err != nil {
		return Field{}, err
	}
	switch ftype {
	case TypeString, TypeStringArray, TypeInt, TypeFloat, TypeBool, TypeTensor:
	default:
		return Field{}, fmt.Errorf("%w: unknown field type %q", domain.ErrInvalidField, ftype)
	}
	return Field{name: name, ftype: ftype}, nil
}

// Reconstruct creates a field from storage without validation.
func Reconstruct(name string, ftype Type) Field {
	return Field{name: name, ftype: ftype}
}

// Name returns the field name.
func (f Field) Name() string { return f.name }

// Type returns the field type.
func (f Field) Type() Type { return f.ftype }

// IsNumeric reports whether the field participates in range filters and score modifiers.
func (f Field) IsNumeric() bool { return f.ftype == TypeInt || f.ftype == TypeFloat }

// ValidateName checks a document field name against naming rules.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: field name is empty", domain.ErrInvalidField)
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("%w: field name %q exceeds %d characters", domain.ErrInvalidField, name, MaxNameLength)
	}
	if strings.HasPrefix(name, ReservedPrefix) {
		return fmt.Errorf("%w: field name %q uses reserved prefix %q", domain.ErrInvalidField, name, ReservedPrefix)
	}
	if protectedNames[name] {
		return fmt.Errorf("%w: field name %q is protected", domain.ErrInvalidField, name)
	}
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("%w: field name %q contains invalid characters", domain.ErrInvalidField, name)
	}
	return nil
}
