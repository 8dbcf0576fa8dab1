package tensordex

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/tensordex/internal/domain/search/filter"
	"github.com/kailas-cloud/tensordex/internal/domain/search/method"
	"github.com/kailas-cloud/tensordex/internal/domain/search/modifiers"
	"github.com/kailas-cloud/tensordex/internal/domain/search/request"
	"github.com/kailas-cloud/tensordex/internal/domain/search/result"
)

// SearchService executes searches against a single index.
type SearchService struct {
	index string
	svc   searchUseCase
	obs   *observer
}

// Do executes a search request.
func (s *SearchService) Do(ctx context.Context, params SearchParams) (_ SearchPage, err error) {
	start := time.Now()
	defer func() { s.obs.observe("search", start, err) }()

	req, err := toInternalRequest(params)
	if err != nil {
		return SearchPage{}, fmt.Errorf("search: %w", err)
	}

	page, err := s.svc.Search(ctx, s.index, &req)
	if err != nil {
		return SearchPage{}, fmt.Errorf("search: %w", err)
	}
	return fromInternalPage(page), nil
}

func toInternalRequest(params SearchParams) (request.Request, error) {
	filters, err := toInternalFilter(params.Filter)
	if err != nil {
		return request.Request{}, err
	}
	mods, err := toInternalModifiers(params.ScoreModifiers)
	if err != nil {
		return request.Request{}, err
	}
	var ranking *request.Ranking
	if params.Alpha != nil || params.RRFK != 0 {
		rk := request.DefaultRanking()
		if params.Alpha != nil {
			rk.Alpha = *params.Alpha
		}
		if params.RRFK != 0 {
			rk.RRFK = params.RRFK
		}
		ranking = &rk
	}
	return request.New(
		params.Query,
		method.Method(params.Method),
		filters,
		params.Limit,
		params.Offset,
		params.EfSearch,
		params.Approximate,
		params.SearchableAttributes,
		params.AttributesToRetrieve,
		mods,
		ranking,
	)
}

func toInternalFilter(expr *FilterExpression) (filter.Expression, error) {
	if expr == nil {
		return filter.Expression{}, nil
	}
	must, err := toInternalConditions(expr.Must)
	if err != nil {
		return filter.Expression{}, err
	}
	should, err := toInternalConditions(expr.Should)
	if err != nil {
		return filter.Expression{}, err
	}
	mustNot, err := toInternalConditions(expr.MustNot)
	if err != nil {
		return filter.Expression{}, err
	}
	return filter.NewExpression(must, should, mustNot)
}

func toInternalConditions(conds []FilterCondition) ([]filter.Condition, error) {
	out := make([]filter.Condition, len(conds))
	for i, c := range conds {
		var err error
		if c.Range != nil {
			var r filter.Range
			r, err = filter.NewRangeFilter(c.Range.GT, c.Range.GTE, c.Range.LT, c.Range.LTE)
			if err == nil {
				out[i], err = filter.NewRange(c.Key, r)
			}
		} else {
			out[i], err = filter.NewMatch(c.Key, c.Match...)
		}
		if err != nil {
			return nil, fmt.Errorf("filter %q: %w", c.Key, err)
		}
	}
	return out, nil
}

func toInternalModifiers(mods *ScoreModifiers) (modifiers.Set, error) {
	if mods == nil {
		return modifiers.Set{}, nil
	}
	multiply, err := toInternalModifierList(mods.MultiplyScoreBy)
	if err != nil {
		return modifiers.Set{}, err
	}
	add, err := toInternalModifierList(mods.AddToScore)
	if err != nil {
		return modifiers.Set{}, err
	}
	return modifiers.NewSet(multiply, add)
}

func toInternalModifierList(mods []ScoreModifier) ([]modifiers.Modifier, error) {
	out := make([]modifiers.Modifier, len(mods))
	for i, m := range mods {
		var err error
		out[i], err = modifiers.NewModifier(m.Field, m.Weight)
		if err != nil {
			return nil, fmt.Errorf("modifier %q: %w", m.Field, err)
		}
	}
	return out, nil
}

func fromInternalPage(page result.Page) SearchPage {
	hits := make([]Hit, len(page.Hits()))
	for i := range page.Hits() {
		h := &page.Hits()[i]
		hits[i] = Hit{
			ID:         h.ID(),
			Score:      h.Score(),
			Highlights: h.Highlights(),
			Fields:     h.Fields(),
		}
	}
	return SearchPage{
		Hits:           hits,
		Query:          page.Query(),
		Limit:          page.Limit(),
		Offset:         page.Offset(),
		ProcessingTime: time.Duration(page.ProcessingTimeMs()) * time.Millisecond,
	}
}
