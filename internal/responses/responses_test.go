package responses

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/voicetel/freescout-nps/internal/models"
	"github.com/voicetel/freescout-nps/internal/storage"
)

func fixedClock(ts string) func() time.Time {
	t, err := time.Parse(models.TimeFormat, ts)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return t }
}

func TestSaveAssignsIDAndTimestamp(t *testing.T) {
	svc := NewServiceAt(storage.NewMemoryResponses(), fixedClock("2026-05-01T10:00:00Z"))

	saved, err := svc.Save(models.Response{ContactID: "c1", Score: 9})
	if err != nil {
		t.Fatal(err)
	}

	if !strings.HasPrefix(saved.ID, "nps_") {
		t.Errorf("ID = %q, want nps_ prefix", saved.ID)
	}
	if saved.CreatedAt != "2026-05-01T10:00:00Z" {
		t.Errorf("CreatedAt = %q", saved.CreatedAt)
	}
}

func TestSaveClampsScore(t *testing.T) {
	svc := NewService(storage.NewMemoryResponses())

	tests := []struct {
		in, want int
	}{
		{-3, 0},
		{0, 0},
		{10, 10},
		{15, 10},
	}

	for _, tt := range tests {
		saved, err := svc.Save(models.Response{ContactID: "c1", Score: tt.in})
		if err != nil {
			t.Fatal(err)
		}
		if saved.Score != tt.want {
			t.Errorf("Save score %d = %d, want %d", tt.in, saved.Score, tt.want)
		}
	}
}

func TestResaveKeepsIdentity(t *testing.T) {
	store := storage.NewMemoryResponses()
	svc := NewServiceAt(store, fixedClock("2026-05-01T10:00:00Z"))

	first, err := svc.Save(models.Response{ContactID: "c1", Score: 5})
	if err != nil {
		t.Fatal(err)
	}

	// Re-save with the same id at a "later" time: id and created_at stay.
	later := NewServiceAt(store, fixedClock("2026-06-01T10:00:00Z"))
	first.Comment = "updated"
	second, err := later.Save(first)
	if err != nil {
		t.Fatal(err)
	}

	if second.ID != first.ID {
		t.Errorf("ID changed on re-save: %q -> %q", first.ID, second.ID)
	}
	if second.CreatedAt != "2026-05-01T10:00:00Z" {
		t.Errorf("CreatedAt changed on re-save: %q", second.CreatedAt)
	}

	all, err := svc.Query(models.ResponseFilter{ContactID: "c1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Fatalf("re-save duplicated record: %d records", len(all))
	}
	if all[0].Comment != "updated" {
		t.Errorf("Comment = %q, want updated", all[0].Comment)
	}
}

func TestQueryRoundTrip(t *testing.T) {
	svc := NewServiceAt(storage.NewMemoryResponses(), fixedClock("2026-05-01T10:00:00Z"))

	in := models.Response{
		ContactID:        "c1",
		TicketID:         "t1",
		Score:            8,
		Comment:          "fine",
		FollowUpResponse: "details",
		AgentID:          "a1",
		TeamID:           "team1",
		Category:         "billing",
	}
	saved, err := svc.Save(in)
	if err != nil {
		t.Fatal(err)
	}

	got, err := svc.Query(models.ResponseFilter{ContactID: "c1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}
	if got[0] != saved {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got[0], saved)
	}
}

func seedHistory(t *testing.T, svc *Service) {
	t.Helper()
	records := []models.Response{
		{ID: "r1", ContactID: "c1", TicketID: "t1", AgentID: "a1", Category: "billing", CreatedAt: "2026-01-10T08:00:00Z", Score: 9},
		{ID: "r2", ContactID: "c2", TicketID: "t2", AgentID: "a2", Category: "tech", CreatedAt: "2026-02-10T08:00:00Z", Score: 3},
		{ID: "r3", ContactID: "c1", TicketID: "t3", AgentID: "a1", Category: "tech", CreatedAt: "2026-03-10T08:00:00Z", Score: 7},
		{ID: "r4", ContactID: "c3", TicketID: "t4", AgentID: "a3", Category: "billing", CreatedAt: "2026-03-10T08:00:00Z", Score: 10},
	}
	for _, r := range records {
		if _, err := svc.Save(r); err != nil {
			t.Fatal(err)
		}
	}
}

func TestQueryOrderingAndTies(t *testing.T) {
	svc := NewService(storage.NewMemoryResponses())
	seedHistory(t, svc)

	got, err := svc.Query(models.ResponseFilter{})
	if err != nil {
		t.Fatal(err)
	}

	wantOrder := []string{"r3", "r4", "r2", "r1"} // newest first, tie keeps storage order
	if len(got) != len(wantOrder) {
		t.Fatalf("got %d records, want %d", len(got), len(wantOrder))
	}
	for i, id := range wantOrder {
		if got[i].ID != id {
			t.Errorf("position %d = %s, want %s", i, got[i].ID, id)
		}
	}
}

func TestQueryFilters(t *testing.T) {
	svc := NewService(storage.NewMemoryResponses())
	seedHistory(t, svc)

	tests := []struct {
		name   string
		filter models.ResponseFilter
		want   []string
	}{
		{"by contact", models.ResponseFilter{ContactID: "c1"}, []string{"r3", "r1"}},
		{"by agent and category", models.ResponseFilter{AgentID: "a1", Category: "tech"}, []string{"r3"}},
		{"date range", models.ResponseFilter{DateFrom: "2026-02-01", DateTo: "2026-03-10"}, []string{"r3", "r4", "r2"}},
		{"date to excludes later", models.ResponseFilter{DateTo: "2026-02-28"}, []string{"r2", "r1"}},
		{"offset and limit", models.ResponseFilter{Offset: 1, Limit: 2}, []string{"r4", "r2"}},
		{"offset beyond end", models.ResponseFilter{Offset: 10}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Query(tt.filter)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d records, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("position %d = %s, want %s", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestForContact(t *testing.T) {
	svc := NewService(storage.NewMemoryResponses())
	seedHistory(t, svc)

	got, err := svc.ForContact("c1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "r3" {
		t.Errorf("ForContact(c1) = %v", got)
	}
}

func TestLatestForTicket(t *testing.T) {
	svc := NewService(storage.NewMemoryResponses())
	seedHistory(t, svc)

	got, err := svc.LatestForTicket("t4")
	if err != nil {
		t.Fatal(err)
	}
	if got.Score != 10 {
		t.Errorf("score = %d, want 10", got.Score)
	}

	_, err = svc.LatestForTicket("missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
