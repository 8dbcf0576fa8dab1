package request

import (
	"strings"
	"testing"

	"github.com/kailas-cloud/tensordex/internal/domain/search/filter"
	"github.com/kailas-cloud/tensordex/internal/domain/search/method"
	"github.com/kailas-cloud/tensordex/internal/domain/search/modifiers"
)

func newRequest(t *testing.T, query string, m method.Method) Request {
	t.Helper()
	r, err := New(query, m, filter.Expression{}, 0, 0, nil, nil, nil, nil, modifiers.Set{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return r
}

func TestNew_Defaults(t *testing.T) {
	r := newRequest(t, "hello", "")

	if r.Method() != method.Hybrid {
		t.Errorf("expected hybrid default, got %s", r.Method())
	}
	if r.Limit() != DefaultLimit {
		t.Errorf("expected limit %d, got %d", DefaultLimit, r.Limit())
	}
	if r.EfSearch() != DefaultEfSearch {
		t.Errorf("expected efSearch %d, got %d", DefaultEfSearch, r.EfSearch())
	}
	if !r.Approximate() {
		t.Error("expected approximate true by default")
	}
	if r.Ranking().Alpha != DefaultAlpha {
		t.Errorf("expected alpha %v, got %v", DefaultAlpha, r.Ranking().Alpha)
	}
	if r.Ranking().RRFK != DefaultRRFK {
		t.Errorf("expected rrfK %d, got %d", DefaultRRFK, r.Ranking().RRFK)
	}
}

func TestNew_ExplicitValues(t *testing.T) {
	ef := 500
	approx := false
	r, err := New(
		"hello", method.Tensor, filter.Expression{},
		25, 50, &ef, &approx,
		[]string{"title"}, []string{"title", "year"},
		modifiers.Set{}, &Ranking{Alpha: 0.8, RRFK: 10},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Limit() != 25 || r.Offset() != 50 {
		t.Errorf("pagination lost: %d/%d", r.Limit(), r.Offset())
	}
	if r.EfSearch() != 500 {
		t.Errorf("efSearch lost: %d", r.EfSearch())
	}
	if r.Approximate() {
		t.Error("approximate=false lost")
	}
	if len(r.SearchableAttributes()) != 1 || len(r.AttributesToRetrieve()) != 2 {
		t.Error("attribute lists lost")
	}
	if r.Ranking().Alpha != 0.8 || r.Ranking().RRFK != 10 {
		t.Errorf("ranking lost: %+v", r.Ranking())
	}
}

func TestNew_ExplicitAlphaBoundsKept(t *testing.T) {
	// alpha 0 is a valid value meaning lexical-only ranking, it must not be
	// mistaken for "unset" and rewritten to the default
	lexOnly, err := New("q", "", filter.Expression{}, 0, 0, nil, nil, nil, nil,
		modifiers.Set{}, &Ranking{Alpha: 0, RRFK: 60})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lexOnly.Ranking().Alpha != 0 {
		t.Errorf("explicit alpha=0 rewritten to %v", lexOnly.Ranking().Alpha)
	}

	tensorOnly, err := New("q", "", filter.Expression{}, 0, 0, nil, nil, nil, nil,
		modifiers.Set{}, &Ranking{Alpha: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tensorOnly.Ranking().Alpha != 1 {
		t.Errorf("explicit alpha=1 lost: %v", tensorOnly.Ranking().Alpha)
	}
	if tensorOnly.Ranking().RRFK != DefaultRRFK {
		t.Errorf("omitted rrfK must take the default, got %d", tensorOnly.Ranking().RRFK)
	}
}

func TestNew_Validation(t *testing.T) {
	ef0 := 0
	efBig := MaxEfSearch + 1
	tests := []struct {
		name string
		fn   func() (Request, error)
	}{
		{"empty query", func() (Request, error) {
			return New("", "", filter.Expression{}, 0, 0, nil, nil, nil, nil, modifiers.Set{}, nil)
		}},
		{"query too long", func() (Request, error) {
			return New(strings.Repeat("q", MaxQueryLength+1), "", filter.Expression{}, 0, 0, nil, nil, nil, nil, modifiers.Set{}, nil)
		}},
		{"bad method", func() (Request, error) {
			return New("q", "semantic", filter.Expression{}, 0, 0, nil, nil, nil, nil, modifiers.Set{}, nil)
		}},
		{"limit too large", func() (Request, error) {
			return New("q", "", filter.Expression{}, MaxLimit+1, 0, nil, nil, nil, nil, modifiers.Set{}, nil)
		}},
		{"negative offset", func() (Request, error) {
			return New("q", "", filter.Expression{}, 0, -1, nil, nil, nil, nil, modifiers.Set{}, nil)
		}},
		{"offset too large", func() (Request, error) {
			return New("q", "", filter.Expression{}, 0, MaxOffset+1, nil, nil, nil, nil, modifiers.Set{}, nil)
		}},
		{"efSearch zero", func() (Request, error) {
			return New("q", "", filter.Expression{}, 0, 0, &ef0, nil, nil, nil, modifiers.Set{}, nil)
		}},
		{"efSearch too large", func() (Request, error) {
			return New("q", "", filter.Expression{}, 0, 0, &efBig, nil, nil, nil, modifiers.Set{}, nil)
		}},
		{"alpha out of range", func() (Request, error) {
			return New("q", "", filter.Expression{}, 0, 0, nil, nil, nil, nil, modifiers.Set{}, &Ranking{Alpha: 1.5})
		}},
		{"negative alpha", func() (Request, error) {
			return New("q", "", filter.Expression{}, 0, 0, nil, nil, nil, nil, modifiers.Set{}, &Ranking{Alpha: -0.1})
		}},
		{"negative rrfK", func() (Request, error) {
			return New("q", "", filter.Expression{}, 0, 0, nil, nil, nil, nil, modifiers.Set{}, &Ranking{RRFK: -5})
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := tc.fn(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestCandidateK(t *testing.T) {
	r, err := New("q", "", filter.Expression{}, 10, 20, nil, nil, nil, nil, modifiers.Set{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// (offset + limit) * 3
	if got := r.CandidateK(); got != 90 {
		t.Errorf("expected 90, got %d", got)
	}
}
