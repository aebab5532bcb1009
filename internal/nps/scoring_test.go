package nps

import (
	"testing"
	"time"

	"github.com/voicetel/freescout-nps/internal/models"
)

func TestClassifyBands(t *testing.T) {
	tests := []struct {
		score int
		want  models.Classification
	}{
		{0, models.Detractor},
		{6, models.Detractor},
		{7, models.Passive},
		{8, models.Passive},
		{9, models.Promoter},
		{10, models.Promoter},
	}

	for _, tt := range tests {
		if got := Classify(tt.score); got != tt.want {
			t.Errorf("Classify(%d) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func responsesWithScores(scores ...int) []models.Response {
	rs := make([]models.Response, len(scores))
	for i, s := range scores {
		rs[i] = models.Response{ID: "r", Score: s}
	}
	return rs
}

func TestCalculateEmpty(t *testing.T) {
	got := Calculate(nil)
	want := models.NPSResult{}
	if got != want {
		t.Errorf("Calculate(nil) = %+v, want all zeros", got)
	}
}

func TestCalculate(t *testing.T) {
	tests := []struct {
		name      string
		scores    []int
		wantScore int
		wantProm  int
		wantPass  int
		wantDet   int
	}{
		{"all promoters", []int{9, 10, 10}, 100, 3, 0, 0},
		{"all detractors", []int{0, 3, 6}, -100, 0, 0, 3},
		{"mixed", []int{10, 9, 8, 7, 0}, 20, 2, 2, 1},
		{"single passive", []int{7}, 0, 0, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Calculate(responsesWithScores(tt.scores...))
			if got.Score != tt.wantScore {
				t.Errorf("Score = %d, want %d", got.Score, tt.wantScore)
			}
			if got.Promoters != tt.wantProm || got.Passives != tt.wantPass || got.Detractors != tt.wantDet {
				t.Errorf("counts = %d/%d/%d, want %d/%d/%d",
					got.Promoters, got.Passives, got.Detractors,
					tt.wantProm, tt.wantPass, tt.wantDet)
			}
			if got.Promoters+got.Passives+got.Detractors != got.Total {
				t.Errorf("counts do not sum to total %d", got.Total)
			}
			if got.Score < -100 || got.Score > 100 {
				t.Errorf("Score %d outside [-100,100]", got.Score)
			}
		})
	}
}

func TestCalculateRounding(t *testing.T) {
	// 1 promoter, 2 others: 33.3% promoters.
	got := Calculate(responsesWithScores(10, 8, 8))
	if got.PromoterPct != 33.3 {
		t.Errorf("PromoterPct = %v, want 33.3", got.PromoterPct)
	}
	if got.PassivePct != 66.7 {
		t.Errorf("PassivePct = %v, want 66.7", got.PassivePct)
	}
	// round(33.3 - 0) = 33
	if got.Score != 33 {
		t.Errorf("Score = %d, want 33", got.Score)
	}
}

func TestTrendBuckets(t *testing.T) {
	now := time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

	rs := []models.Response{
		{ID: "a", Score: 10, CreatedAt: "2026-03-01T08:00:00Z"},
		{ID: "b", Score: 0, CreatedAt: "2026-02-10T08:00:00Z"},
		// Last day of a month still belongs to that month.
		{ID: "c", Score: 10, CreatedAt: "2026-01-31T23:00:00Z"},
		// Outside the 3-month window.
		{ID: "d", Score: 10, CreatedAt: "2025-11-01T08:00:00Z"},
	}

	trend := Trend(rs, 3, now)
	if len(trend) != 3 {
		t.Fatalf("got %d points, want 3", len(trend))
	}

	if trend[0].Month != "2026-01-01" || trend[0].Label != "Jan 2026" {
		t.Errorf("first point = %s/%s, want 2026-01-01/Jan 2026", trend[0].Month, trend[0].Label)
	}
	if trend[2].Month != "2026-03-01" {
		t.Errorf("last point = %s, want 2026-03-01", trend[2].Month)
	}

	if trend[0].Total != 1 || trend[0].Score != 100 {
		t.Errorf("Jan = total %d score %d, want 1/100", trend[0].Total, trend[0].Score)
	}
	if trend[1].Total != 1 || trend[1].Score != -100 {
		t.Errorf("Feb = total %d score %d, want 1/-100", trend[1].Total, trend[1].Score)
	}
	if trend[2].Total != 1 || trend[2].Score != 100 {
		t.Errorf("Mar = total %d score %d, want 1/100", trend[2].Total, trend[2].Score)
	}
}

func TestTrendEmptyMonths(t *testing.T) {
	now := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)

	trend := Trend(nil, 2, now)
	if len(trend) != 2 {
		t.Fatalf("got %d points, want 2", len(trend))
	}
	for _, p := range trend {
		if p.Total != 0 || p.Score != 0 {
			t.Errorf("month %s not zero: %+v", p.Month, p.NPSResult)
		}
	}
}

func TestBreakdownBy(t *testing.T) {
	rs := []models.Response{
		{ID: "a", Score: 10, AgentID: "alice", TeamID: "support", Category: "billing"},
		{ID: "b", Score: 0, AgentID: "bob", TeamID: "support"},
		{ID: "c", Score: 10, AgentID: "alice", TeamID: "", Category: "billing"},
		{ID: "d", Score: 7, AgentID: "", Category: ""},
	}

	rows := BreakdownBy(rs, ByAgent)
	if len(rows) != 3 {
		t.Fatalf("got %d agent rows, want 3", len(rows))
	}
	// Highest score first.
	if rows[0].Key != "alice" || rows[0].Score != 100 {
		t.Errorf("top row = %s/%d, want alice/100", rows[0].Key, rows[0].Score)
	}
	if rows[len(rows)-1].Key != "bob" {
		t.Errorf("bottom row = %s, want bob", rows[len(rows)-1].Key)
	}

	var sawUnassigned bool
	for _, row := range rows {
		if row.Key == "unassigned" {
			sawUnassigned = true
		}
	}
	if !sawUnassigned {
		t.Error("missing unassigned bucket for empty agent id")
	}

	catRows := BreakdownBy(rs, ByCategory)
	var sawUncategorized bool
	for _, row := range catRows {
		if row.Key == "uncategorized" {
			sawUncategorized = true
		}
	}
	if !sawUncategorized {
		t.Error("missing uncategorized bucket for empty category")
	}
}
