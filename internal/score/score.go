// Package score computes the weighted walkability score from
// per-category POI counts.
package score

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/urbanmetric/walkability-cli/internal/category"
)

// Grade bands for the composite score.
const (
	GradeExcellent = "excellent"
	GradeGood      = "good"
	GradeFair      = "fair"
	GradePoor      = "poor"
)

// CategoryScore is the per-category diagnostic record. RawScore is
// always clamped to [0,100] even though the surplus bonus arithmetic
// can exceed 100 before capping.
type CategoryScore struct {
	Category      string  `json:"category"`
	Count         int     `json:"count"`
	MinCount      int     `json:"min_count"`
	RawScore      float64 `json:"raw_score"`
	Weight        float64 `json:"weight"`
	WeightedScore float64 `json:"weighted_score"`
}

// Scorecard is the composite result.
type Scorecard struct {
	// TotalScore is the weighted mean of raw scores, 0-100.
	TotalScore float64 `json:"total_score"`
	// Categories holds one record per scored category, in the requested
	// order.
	Categories []CategoryScore `json:"category_scores"`
	// TotalPOIs is the sum of counts across scored categories.
	TotalPOIs int `json:"total_poi_count"`
	// TotalWeight is the unmodified weight sum, reported for
	// transparency.
	TotalWeight float64 `json:"total_weight"`
}

// Raw computes the 0-100 score for a single category. Reaching minCount
// earns the full baseline of 100 plus a surplus bonus of 10 points per
// unit over the minimum (bonus capped at 50, overall capped at 100);
// below the minimum the score scales linearly up to 70% at
// minCount - 1. The jump at the threshold is intentional: crossing the
// minimum is rewarded discontinuously.
func Raw(count, minCount int) (float64, error) {
	if minCount <= 0 {
		return 0, eris.Errorf("score: min_count must be positive, got %d", minCount)
	}
	if count < 0 {
		return 0, eris.Errorf("score: negative count %d", count)
	}

	switch {
	case count == 0:
		return 0, nil
	case count >= minCount:
		raw := 100.0 + min(50.0, float64(count-minCount)*10.0)
		return min(100.0, raw), nil
	default:
		return float64(count) / float64(minCount) * 70.0, nil
	}
}

// Compute builds the scorecard for the given per-category counts. Only
// requested categories present in the registry contribute; unknown
// names are skipped with a diagnostic, and a name repeated in requested
// is scored once. The function is pure and total for well-formed input;
// a non-positive min_count in the registry is a contract violation and
// surfaces as an error.
func Compute(counts map[string]int, requested []string, reg *category.Registry) (*Scorecard, error) {
	card := &Scorecard{Categories: make([]CategoryScore, 0, len(requested))}

	var weightedSum float64
	seen := make(map[string]bool, len(requested))
	for _, name := range requested {
		if seen[name] {
			continue
		}
		seen[name] = true

		cfg, err := reg.Lookup(name)
		if err != nil {
			zap.L().Debug("scoring skips unknown category", zap.String("category", name))
			continue
		}

		count := counts[name]
		raw, err := Raw(count, cfg.MinCount)
		if err != nil {
			return nil, err
		}

		card.Categories = append(card.Categories, CategoryScore{
			Category:      name,
			Count:         count,
			MinCount:      cfg.MinCount,
			RawScore:      raw,
			Weight:        cfg.Weight,
			WeightedScore: raw * cfg.Weight,
		})
		weightedSum += raw * cfg.Weight
		card.TotalWeight += cfg.Weight
		card.TotalPOIs += count
	}

	if card.TotalWeight > 0 {
		card.TotalScore = weightedSum / card.TotalWeight
	}
	return card, nil
}

// Grade maps a composite score to its verdict band.
func Grade(total float64) string {
	switch {
	case total >= 80:
		return GradeExcellent
	case total >= 60:
		return GradeGood
	case total >= 40:
		return GradeFair
	default:
		return GradePoor
	}
}
