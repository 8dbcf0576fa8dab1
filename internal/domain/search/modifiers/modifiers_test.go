package modifiers

import (
	"reflect"
	"testing"
)

func TestNewModifier(t *testing.T) {
	m, err := NewModifier("rating", 2.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.FieldName() != "rating" || m.Weight() != 2.5 {
		t.Errorf("unexpected modifier: %s %v", m.FieldName(), m.Weight())
	}
}

func TestNewModifier_ZeroWeightDefaultsToOne(t *testing.T) {
	m, err := NewModifier("rating", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Weight() != 1 {
		t.Errorf("expected weight 1, got %v", m.Weight())
	}
}

func TestNewModifier_EmptyField(t *testing.T) {
	if _, err := NewModifier("", 1); err == nil {
		t.Error("expected error")
	}
}

func TestNewSet_Limits(t *testing.T) {
	mods := make([]Modifier, MaxModifiers+1)
	for i := range mods {
		mods[i], _ = NewModifier("f", 1)
	}
	if _, err := NewSet(mods, nil); err == nil {
		t.Error("expected error for oversized multiply list")
	}
	if _, err := NewSet(nil, mods); err == nil {
		t.Error("expected error for oversized add list")
	}
}

func TestSet_FieldNames(t *testing.T) {
	m1, _ := NewModifier("popularity", 1)
	m2, _ := NewModifier("boost", 2)
	s, err := NewSet([]Modifier{m1}, []Modifier{m2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.IsEmpty() {
		t.Error("set with modifiers should not be empty")
	}
	want := []string{"popularity", "boost"}
	if got := s.FieldNames(); !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestSet_Empty(t *testing.T) {
	if !(Set{}).IsEmpty() {
		t.Error("zero set should be empty")
	}
}
