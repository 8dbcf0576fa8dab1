package search

import (
	"sort"

	"github.com/kailas-cloud/tensordex/internal/domain/search/request"
)

// fuseRRF merges the tensor and lexical document rankings via weighted
// Reciprocal Rank Fusion:
//
//	score(d) = alpha/(k + rank_tensor(d)) + (1-alpha)/(k + rank_lexical(d))
//
// Ranks are 1-based; a missing ranking contributes nothing. Highlights from
// the tensor ranking win when a document appears in both.
func fuseRRF(tensor, lexical []docHit, ranking request.Ranking) []docHit {
	k := float64(ranking.RRFK)
	merged := make(map[string]int)
	fused := make([]docHit, 0, len(tensor)+len(lexical))

	for rank, h := range tensor {
		fused = append(fused, docHit{
			id:         h.id,
			score:      ranking.Alpha / (k + float64(rank+1)),
			highlights: h.highlights,
		})
		merged[h.id] = len(fused) - 1
	}

	for rank, h := range lexical {
		s := (1 - ranking.Alpha) / (k + float64(rank+1))
		if i, ok := merged[h.id]; ok {
			fused[i].score += s
			if fused[i].highlights == nil {
				fused[i].highlights = h.highlights
			}
			continue
		}
		fused = append(fused, docHit{id: h.id, score: s, highlights: h.highlights})
	}

	sort.SliceStable(fused, func(i, j int) bool { return fused[i].score > fused[j].score })
	return fused
}
