// Package nps implements Net Promoter Score arithmetic: classification,
// aggregation, monthly trends and dimensional breakdowns. Everything here
// is a pure function over a slice of responses.
package nps

import (
	"math"
	"sort"
	"time"

	"github.com/voicetel/freescout-nps/internal/models"
)

// Classify maps a 0-10 score to its NPS band: 9-10 promoter, 7-8 passive,
// 0-6 detractor.
func Classify(score int) models.Classification {
	if score >= 9 {
		return models.Promoter
	}
	if score >= 7 {
		return models.Passive
	}
	return models.Detractor
}

// Calculate aggregates responses into an NPS result. An empty input yields
// an all-zero result rather than a division error.
func Calculate(responses []models.Response) models.NPSResult {
	result := models.NPSResult{Total: len(responses)}

	for _, r := range responses {
		switch Classify(r.Score) {
		case models.Promoter:
			result.Promoters++
		case models.Passive:
			result.Passives++
		default:
			result.Detractors++
		}
	}

	if result.Total == 0 {
		return result
	}

	result.PromoterPct = round1(float64(result.Promoters) / float64(result.Total) * 100)
	result.PassivePct = round1(float64(result.Passives) / float64(result.Total) * 100)
	result.DetractorPct = round1(float64(result.Detractors) / float64(result.Total) * 100)
	result.Score = int(math.Round(result.PromoterPct - result.DetractorPct))

	return result
}

// Trend buckets responses into the last months calendar months relative to
// now and scores each month, ordered oldest to newest. A response belongs
// to a month when its created_at string falls inside the month's
// [start, endT23:59:59Z] range.
func Trend(responses []models.Response, months int, now time.Time) []models.TrendPoint {
	if months <= 0 {
		return nil
	}

	now = now.UTC()
	trend := make([]models.TrendPoint, 0, months)

	for i := months - 1; i >= 0; i-- {
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -i, 0)
		monthEnd := monthStart.AddDate(0, 1, -1)

		from := monthStart.Format("2006-01-02")
		to := monthEnd.Format("2006-01-02") + "T23:59:59Z"

		var bucket []models.Response
		for _, r := range responses {
			if r.CreatedAt >= from && r.CreatedAt <= to {
				bucket = append(bucket, r)
			}
		}

		trend = append(trend, models.TrendPoint{
			Month:     from,
			Label:     monthStart.Format("Jan 2006"),
			NPSResult: Calculate(bucket),
		})
	}

	return trend
}

// Breakdown dimensions.
const (
	ByAgent    = "agent"
	ByTeam     = "team"
	ByCategory = "category"
)

// BreakdownBy groups responses by the given dimension and scores each
// group, sorted by NPS score descending. Responses without a value for the
// dimension bucket into "unassigned" (agent/team) or "uncategorized".
func BreakdownBy(responses []models.Response, dimension string) []models.BreakdownRow {
	groups := make(map[string][]models.Response)
	var order []string

	for _, r := range responses {
		key := breakdownKey(r, dimension)
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], r)
	}

	rows := make([]models.BreakdownRow, 0, len(order))
	for _, key := range order {
		rows = append(rows, models.BreakdownRow{
			Key:       key,
			NPSResult: Calculate(groups[key]),
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Score > rows[j].Score
	})

	return rows
}

func breakdownKey(r models.Response, dimension string) string {
	switch dimension {
	case ByTeam:
		if r.TeamID == "" {
			return "unassigned"
		}
		return r.TeamID
	case ByCategory:
		if r.Category == "" {
			return "uncategorized"
		}
		return r.Category
	default:
		if r.AgentID == "" {
			return "unassigned"
		}
		return r.AgentID
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
