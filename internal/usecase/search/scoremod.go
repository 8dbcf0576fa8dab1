package search

import (
	"sort"

	domdoc "github.com/kailas-cloud/tensordex/internal/domain/document"
	"github.com/kailas-cloud/tensordex/internal/domain/search/modifiers"
)

// applyModifiers reweights candidate scores from numeric document fields:
//
//	final = score * Π(value*weight) + Σ(value*weight)
//
// Documents missing a modifier field skip that modifier. Candidates are
// re-sorted in place.
func applyModifiers(candidates []docHit, docs map[string]domdoc.Document, mods modifiers.Set) {
	for i := range candidates {
		doc, ok := docs[candidates[i].id]
		if !ok {
			continue
		}

		multiplier := 1.0
		applied := false
		for _, m := range mods.MultiplyScoreBy() {
			if v, ok := doc.NumericValue(m.FieldName()); ok {
				multiplier *= v * m.Weight()
				applied = true
			}
		}

		addend := 0.0
		for _, m := range mods.AddToScore() {
			if v, ok := doc.NumericValue(m.FieldName()); ok {
				addend += v * m.Weight()
			}
		}

		score := candidates[i].score
		if applied {
			score *= multiplier
		}
		candidates[i].score = score + addend
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
}
