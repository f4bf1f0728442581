package service

import (
	"math"
	"sort"

	"github.com/Dan9191/spending-insights/internal/models"
	"github.com/shopspring/decimal"
)

// minStdDev replaces a zero standard deviation so z-scores stay finite
const minStdDev = 1e-9

// detectAnomalies flags high-spend outliers per category.
// Variance is the population variance; a category with one record always scores zero.
func detectAnomalies(byCategory map[string][]models.Spending, threshold float64, limit int) []models.Anomaly {
	// Categories are visited in order of first appearance so equal scores keep insertion order.
	categories := make([]string, 0, len(byCategory))
	for c, items := range byCategory {
		if len(items) > 0 {
			categories = append(categories, c)
		}
	}
	sort.Slice(categories, func(i, j int) bool {
		return byCategory[categories[i]][0].ID < byCategory[categories[j]][0].ID
	})

	type scored struct {
		spending models.Spending
		z        float64
	}
	var flagged []scored

	for _, c := range categories {
		items := byCategory[c]
		n := decimal.NewFromInt(int64(len(items)))

		sum := decimal.Zero
		for _, it := range items {
			sum = sum.Add(it.Amount)
		}
		mean := sum.Div(n)

		sq := decimal.Zero
		for _, it := range items {
			d := it.Amount.Sub(mean)
			sq = sq.Add(d.Mul(d))
		}
		sd := math.Sqrt(sq.Div(n).InexactFloat64())
		if sd == 0 {
			sd = minStdDev
		}

		for _, it := range items {
			z := it.Amount.Sub(mean).InexactFloat64() / sd
			if z >= threshold {
				flagged = append(flagged, scored{spending: it, z: z})
			}
		}
	}

	sort.SliceStable(flagged, func(i, j int) bool { return flagged[i].z > flagged[j].z })
	if len(flagged) > limit {
		flagged = flagged[:limit]
	}

	out := make([]models.Anomaly, len(flagged))
	for i, f := range flagged {
		out[i] = models.Anomaly{
			ID:          f.spending.ID,
			Date:        f.spending.Date,
			Description: f.spending.Description,
			Category:    f.spending.Category,
			Spending:    f.spending.Amount.InexactFloat64(),
			ZScore:      round2(decimal.NewFromFloat(f.z)),
		}
	}
	return out
}
