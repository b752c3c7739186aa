package memory

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/memoraio/memora/internal/models"
)

// Cosine returns the cosine similarity of two vectors, or 0 when
// either has zero magnitude or lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	af := make([]float64, len(a))
	bf := make([]float64, len(b))
	for i := range a {
		af[i] = float64(a[i])
		bf[i] = float64(b[i])
	}

	na := floats.Norm(af, 2)
	nb := floats.Norm(bf, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(af, bf) / (na * nb)
}

// rankTurns scores candidate turns against the query embedding and
// returns up to limit turns at or above threshold, most similar first.
// Ties fall back to recency. A stored embedding whose length differs
// from the query is reported as ErrDimensionMismatch, never scored as 0.
func rankTurns(turns []models.ShortTermMemory, query []float32, threshold float64, limit int) ([]models.ScoredTurn, error) {
	scored := make([]models.ScoredTurn, 0, len(turns))
	for _, turn := range turns {
		if len(turn.Embedding) != len(query) {
			return nil, fmt.Errorf("%w: turn %s has %d, query has %d",
				ErrDimensionMismatch, models.MustRecordIDString(turn.ID), len(turn.Embedding), len(query))
		}
		sim := Cosine(turn.Embedding, query)
		if sim < threshold {
			continue
		}
		scored = append(scored, models.ScoredTurn{Turn: turn, Similarity: sim})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Similarity != scored[j].Similarity {
			return scored[i].Similarity > scored[j].Similarity
		}
		return scored[i].Turn.Created.After(scored[j].Turn.Created)
	})

	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}
