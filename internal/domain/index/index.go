// Package index holds the semi-structured index aggregate: creation settings
// plus the field registry that grows as documents introduce new fields.
package index

import (
	"fmt"
	"regexp"
	"time"

	"github.com/kailas-cloud/tensordex/internal/domain"
	"github.com/kailas-cloud/tensordex/internal/domain/index/field"
)

var nameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]*$`)

// reservedNames collide with API routes and are not allowed as index names.
var reservedNames = map[string]bool{
	"health":  true,
	"metrics": true,
	"usage":   true,
	"indexes": true,
}

// MaxNameLength bounds index name length.
const MaxNameLength = 64

// MaxFields bounds the registry size of a single index.
const MaxFields = 256

// Index is the semi-structured index aggregate (immutable value object).
type Index struct {
	name      string
	settings  Settings
	fields    []field.Field
	revision  int
	createdAt int64
	updatedAt int64
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: index name is required", domain.ErrInvalidSettings)
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("%w: index name too long (max %d)", domain.ErrInvalidSettings, MaxNameLength)
	}
	if reservedNames[name] {
		return fmt.Errorf("%w: index name %q is reserved", domain.ErrInvalidSettings, name)
	}
	if !nameRegex.MatchString(name) {
		return fmt.Errorf(
			"%w: index name must start with a letter and contain only letters, digits, underscores and hyphens",
			domain.ErrInvalidSettings,
		)
	}
	return nil
}

// New validates and creates an Index with an empty field registry.
func New(name string, settings Settings) (Index, error) {
	if err := validateName(name); err != nil {
		return Index{}, err
	}
	settings.ApplyDefaults()
	if err := settings.Validate(); err != nil {
		return Index{}, err
	}
	now := time.Now().UnixMilli()
	return Index{
		name:      name,
		settings:  settings,
		revision:  1,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// Reconstruct creates an Index without validation (storage hydration).
func Reconstruct(
	name string, settings Settings, fields []field.Field,
	revision int, createdAt, updatedAt int64,
) Index {
	return Index{
		name:      name,
		settings:  settings,
		fields:    fields,
		revision:  revision,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

// Name returns the index name.
func (i Index) Name() string { return i.name }

// Settings returns the creation settings.
func (i Index) Settings() Settings { return i.settings }

// Fields returns the discovered field registry.
func (i Index) Fields() []field.Field { return i.fields }

// Revision returns the optimistic concurrency version of the registry.
func (i Index) Revision() int { return i.revision }

// CreatedAt returns the creation timestamp (unix millis).
func (i Index) CreatedAt() int64 { return i.createdAt }

// UpdatedAt returns the last registry change timestamp (unix millis).
func (i Index) UpdatedAt() int64 { return i.updatedAt }

// FieldByName looks up a registered field by name.
func (i Index) FieldByName(name string) (field.Field, bool) {
	for _, f := range i.fields {
		if f.Name() == name {
			return f, true
		}
	}
	return field.Field{}, false
}

// HasField checks if a field with the given name and type is registered.
func (i Index) HasField(name string, ft field.Type) bool {
	f, ok := i.FieldByName(name)
	return ok && f.Type() == ft
}

// MergeFields returns a copy of the index with the given fields added to the
// registry and the list of fields that were actually new. A field already
// registered under the same name must keep its type; int widens to float.
// The registry never shrinks.
func (i Index) MergeFields(incoming []field.Field) (Index, []field.Field, error) {
	merged := i
	var added []field.Field
	for _, nf := range incoming {
		existing, ok := merged.FieldByName(nf.Name())
		if !ok {
			merged.fields = append(append([]field.Field(nil), merged.fields...), nf)
			added = append(added, nf)
			continue
		}
		if existing.Type() == nf.Type() {
			continue
		}
		// int -> float widening is the only tolerated drift.
		if existing.Type() == field.TypeInt && nf.Type() == field.TypeFloat {
			continue
		}
		if existing.Type() == field.TypeFloat && nf.Type() == field.TypeInt {
			continue
		}
		return Index{}, nil, fmt.Errorf(
			"%w: field %q is already registered as %s, got %s",
			domain.ErrInvalidField, nf.Name(), existing.Type(), nf.Type(),
		)
	}
	if len(merged.fields) > MaxFields {
		return Index{}, nil, fmt.Errorf("%w: too many fields (max %d)", domain.ErrInvalidField, MaxFields)
	}
	if len(added) > 0 {
		merged.revision = i.revision + 1
		merged.updatedAt = time.Now().UnixMilli()
	}
	return merged, added, nil
}
