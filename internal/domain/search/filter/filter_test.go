package filter

import (
	"fmt"
	"reflect"
	"testing"
)

func mustMatch(t *testing.T, key string, values ...string) Condition {
	t.Helper()
	c, err := NewMatch(key, values...)
	if err != nil {
		t.Fatalf("NewMatch(%q): %v", key, err)
	}
	return c
}

func TestNewMatch(t *testing.T) {
	c := mustMatch(t, "color", "red", "blue")
	if !c.IsMatch() || c.IsRange() {
		t.Error("expected match condition")
	}
	if c.Key() != "color" {
		t.Errorf("unexpected key: %s", c.Key())
	}
	if !reflect.DeepEqual(c.Matches(), []string{"red", "blue"}) {
		t.Errorf("unexpected matches: %v", c.Matches())
	}
}

func TestNewMatch_Errors(t *testing.T) {
	if _, err := NewMatch("", "v"); err == nil {
		t.Error("expected error for empty key")
	}
	if _, err := NewMatch("key"); err == nil {
		t.Error("expected error for no values")
	}
	if _, err := NewMatch("key", ""); err == nil {
		t.Error("expected error for empty value")
	}
}

func TestNewRange(t *testing.T) {
	gte := 10.0
	r, err := NewRangeFilter(nil, &gte, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c, err := NewRange("price", r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.IsRange() || c.IsMatch() {
		t.Error("expected range condition")
	}
	if c.Range().GTE() == nil || *c.Range().GTE() != 10.0 {
		t.Errorf("unexpected range: %+v", c.Range())
	}
}

func TestNewRangeFilter_Errors(t *testing.T) {
	v := 1.0
	if _, err := NewRangeFilter(nil, nil, nil, nil); err == nil {
		t.Error("expected error for no boundaries")
	}
	if _, err := NewRangeFilter(&v, &v, nil, nil); err == nil {
		t.Error("expected error for gt+gte")
	}
	if _, err := NewRangeFilter(nil, nil, &v, &v); err == nil {
		t.Error("expected error for lt+lte")
	}
}

func TestNewExpression_GroupLimit(t *testing.T) {
	conds := make([]Condition, MaxConditionsPerGroup+1)
	for i := range conds {
		conds[i] = mustMatch(t, fmt.Sprintf("k%d", i), "v")
	}

	if _, err := NewExpression(conds, nil, nil); err == nil {
		t.Error("expected error for oversized must group")
	}
	if _, err := NewExpression(nil, conds, nil); err == nil {
		t.Error("expected error for oversized should group")
	}
	if _, err := NewExpression(nil, nil, conds); err == nil {
		t.Error("expected error for oversized must_not group")
	}
}

func TestExpression_IsEmpty(t *testing.T) {
	if !(Expression{}).IsEmpty() {
		t.Error("zero expression should be empty")
	}
	e, _ := NewExpression([]Condition{mustMatch(t, "k", "v")}, nil, nil)
	if e.IsEmpty() {
		t.Error("expression with conditions should not be empty")
	}
}

func TestExpression_Keys(t *testing.T) {
	e, _ := NewExpression(
		[]Condition{mustMatch(t, "a", "v")},
		[]Condition{mustMatch(t, "b", "v")},
		[]Condition{mustMatch(t, "c", "v")},
	)
	want := []string{"a", "b", "c"}
	if got := e.Keys(); !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestExpression_Rewrite(t *testing.T) {
	e, _ := NewExpression(
		[]Condition{mustMatch(t, "a", "v")},
		nil,
		[]Condition{mustMatch(t, "b", "v")},
	)

	rewritten, err := e.Rewrite(func(c Condition) (Condition, error) {
		return c.WithKey("$." + c.Key()), nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rewritten.Must()[0].Key() != "$.a" || rewritten.MustNot()[0].Key() != "$.b" {
		t.Errorf("keys not rewritten: %v", rewritten.Keys())
	}
	// original untouched
	if e.Must()[0].Key() != "a" {
		t.Error("original expression mutated")
	}
}

func TestExpression_RewriteError(t *testing.T) {
	e, _ := NewExpression([]Condition{mustMatch(t, "a", "v")}, nil, nil)
	_, err := e.Rewrite(func(c Condition) (Condition, error) {
		return Condition{}, fmt.Errorf("unknown field %q", c.Key())
	})
	if err == nil {
		t.Fatal("expected error")
	}
}
