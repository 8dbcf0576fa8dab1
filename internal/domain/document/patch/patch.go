// Package patch models partial document updates.
package patch

import (
	"fmt"

	"github.com/kailas-cloud/tensordex/internal/domain"
	"github.com/kailas-cloud/tensordex/internal/domain/document"
	"github.com/kailas-cloud/tensordex/internal/domain/index/field"
)

// Patch is a partial update of one document: field name to new value.
// A nil value deletes the field. Values follow document typing rules.
type Patch struct {
	id     string
	fields map[string]any
}

// New validates and creates a Patch. At least one field must be provided.
func New(id string, fields map[string]any) (Patch, error) {
	if err := document.ValidateID(id); err != nil {
		return Patch{}, err
	}
	if len(fields) == 0 {
		return Patch{}, fmt.Errorf("%w: at least one field must be provided", domain.ErrInvalidField)
	}
	for name, value := range fields {
		if err := field.ValidateName(name); err != nil {
			return Patch{}, err
		}
		switch v := value.(type) {
		case nil, bool, int, int64, float64:
		case string:
			if len(v) > document.MaxTextSize {
				return Patch{}, fmt.Errorf("%w: field %q too large (max %d bytes)", domain.ErrInvalidField, name, document.MaxTextSize)
			}
		case []string:
		case []any:
			for _, el := range v {
				if _, ok := el.(string); !ok {
					return Patch{}, fmt.Errorf("%w: field %q: arrays may contain only strings", domain.ErrInvalidField, name)
				}
			}
		default:
			return Patch{}, fmt.Errorf("%w: field %q has unsupported type %T", domain.ErrInvalidField, name, value)
		}
	}
	return Patch{id: id, fields: fields}, nil
}

// ID returns the target document identifier.
func (p Patch) ID() string { return p.id }

// Fields returns the field updates (nil value = delete).
func (p Patch) Fields() map[string]any { return p.fields }
