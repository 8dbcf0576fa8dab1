// Package modifiers models score modifiers: numeric document fields that
// scale or shift the relevance score of a hit.
package modifiers

import "fmt"

// MaxModifiers bounds each modifier list.
const MaxModifiers = 32

// Modifier references one numeric field and its weight.
type Modifier struct {
	fieldName string
	weight    float64
}

// NewModifier validates and creates a Modifier. A zero weight defaults to 1.
func NewModifier(fieldName string, weight float64) (Modifier, error) {
	if fieldName == "" {
		return Modifier{}, fmt.Errorf("score modifier field name is required")
	}
	if weight == 0 {
		weight = 1
	}
	return Modifier{fieldName: fieldName, weight: weight}, nil
}

// FieldName returns the numeric field the modifier reads.
func (m Modifier) FieldName() string { return m.fieldName }

// Weight returns the modifier weight.
func (m Modifier) Weight() float64 { return m.weight }

// Set combines multiplicative and additive modifiers.
// Final score = score * Π(value*weight) + Σ(value*weight); fields absent from
// a document contribute nothing.
type Set struct {
	multiplyScoreBy []Modifier
	addToScore      []Modifier
}

// NewSet validates and creates a modifier Set.
func NewSet(multiply, add []Modifier) (Set, error) {
	if len(multiply) > MaxModifiers {
		return Set{}, fmt.Errorf("too many multiply_score_by modifiers (max %d)", MaxModifiers)
	}
	if len(add) > MaxModifiers {
		return Set{}, fmt.Errorf("too many add_to_score modifiers (max %d)", MaxModifiers)
	}
	return Set{multiplyScoreBy: multiply, addToScore: add}, nil
}

// MultiplyScoreBy returns the multiplicative modifiers.
func (s Set) MultiplyScoreBy() []Modifier { return s.multiplyScoreBy }

// AddToScore returns the additive modifiers.
func (s Set) AddToScore() []Modifier { return s.addToScore }

// IsEmpty reports whether the set has no modifiers.
func (s Set) IsEmpty() bool {
	return len(s.multiplyScoreBy) == 0 && len(s.addToScore) == 0
}

// FieldNames returns every field referenced by the set.
func (s Set) FieldNames() []string {
	var names []string
	for _, m := range s.multiplyScoreBy {
		names = append(names, m.fieldName)
	}
	for _, m := range s.addToScore {
		names = append(names, m.fieldName)
	}
	return names
}
