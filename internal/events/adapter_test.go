package events

import (
	"testing"
	"time"

	"github.com/voicetel/freescout-nps/internal/logging"
	"github.com/voicetel/freescout-nps/internal/models"
	"github.com/voicetel/freescout-nps/internal/responses"
	"github.com/voicetel/freescout-nps/internal/settings"
	"github.com/voicetel/freescout-nps/internal/storage"
	"github.com/voicetel/freescout-nps/internal/survey"
)

type adapterFixture struct {
	adapter   *Adapter
	queue     *survey.Queue
	surveys   *storage.MemorySurveys
	responses *responses.Service
	now       time.Time
}

func newAdapterFixture(t *testing.T, settingsJSON string) *adapterFixture {
	t.Helper()

	f := &adapterFixture{
		surveys: storage.NewMemorySurveys(),
		now:     time.Date(2026, time.June, 1, 9, 0, 0, 0, time.UTC),
	}

	cfg := settings.NewService(storage.NewMemorySettings())
	if settingsJSON != "" {
		if _, err := cfg.Save([]byte(settingsJSON)); err != nil {
			t.Fatalf("seeding settings: %v", err)
		}
	}

	clock := func() time.Time { return f.now }
	f.responses = responses.NewServiceAt(storage.NewMemoryResponses(), clock)

	f.queue = survey.NewQueue(survey.Options{
		Settings:  cfg,
		Responses: f.responses,
		Surveys:   f.surveys,
		Now:       clock,
	})
	f.adapter = NewAdapter(cfg, f.queue, logging.NewLogger("text", false, nil))
	return f
}

func (f *adapterFixture) surveyCount(t *testing.T) int {
	t.Helper()
	all, err := f.surveys.All()
	if err != nil {
		t.Fatal(err)
	}
	return len(all)
}

func resolvedTicket(contactID string) models.ResolvedTicket {
	return models.ResolvedTicket{
		ID:         "T1",
		ContactID:  contactID,
		AssigneeID: "a1",
		TeamID:     "team1",
		Category:   "billing",
	}
}

func TestTicketResolvedQueuesSurvey(t *testing.T) {
	f := newAdapterFixture(t, `{"trigger_delay_hours": 24}`)

	f.adapter.TicketResolved(resolvedTicket("C1"))

	all, err := f.surveys.All()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Fatalf("got %d surveys, want 1", len(all))
	}

	sv := all[0]
	if sv.ContactID != "C1" || sv.TicketID != "T1" {
		t.Errorf("survey = %+v", sv)
	}
	if sv.AgentID != "a1" || sv.TeamID != "team1" || sv.Category != "billing" {
		t.Errorf("ticket context not carried: %+v", sv)
	}
	if sv.SendAt != "2026-06-02T09:00:00Z" {
		t.Errorf("SendAt = %s", sv.SendAt)
	}
}

func TestTicketResolvedNormalizesIdentifiers(t *testing.T) {
	f := newAdapterFixture(t, "")

	f.adapter.TicketResolved(models.ResolvedTicket{
		ID:          "T2",
		RequesterID: "C9",
		AgentID:     "a7",
	})

	all, _ := f.surveys.All()
	if len(all) != 1 {
		t.Fatalf("got %d surveys, want 1", len(all))
	}
	if all[0].ContactID != "C9" {
		t.Errorf("ContactID = %s, want requester fallback", all[0].ContactID)
	}
	if all[0].AgentID != "a7" {
		t.Errorf("AgentID = %s, want agent fallback", all[0].AgentID)
	}
}

func TestTicketResolvedGuards(t *testing.T) {
	tests := []struct {
		name     string
		settings string
		ticket   models.ResolvedTicket
	}{
		{"disabled", `{"enabled": false}`, resolvedTicket("C1")},
		{"no contact", "", models.ResolvedTicket{ID: "T1"}},
		{"no ticket id", "", models.ResolvedTicket{ContactID: "C1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAdapterFixture(t, tt.settings)
			f.adapter.TicketResolved(tt.ticket)
			if n := f.surveyCount(t); n != 0 {
				t.Errorf("queued %d surveys, want 0", n)
			}
		})
	}
}

func TestTicketResolvedThrottled(t *testing.T) {
	f := newAdapterFixture(t, `{"frequency_limit_days": 90}`)

	_, err := f.responses.Save(models.Response{ContactID: "C1", Score: 8})
	if err != nil {
		t.Fatal(err)
	}

	f.adapter.TicketResolved(resolvedTicket("C1"))
	if n := f.surveyCount(t); n != 0 {
		t.Errorf("queued %d surveys for throttled contact, want 0", n)
	}
}

// A second resolved ticket for a contact with a survey already pending
// must not enqueue another.
func TestTicketResolvedDedupsPending(t *testing.T) {
	f := newAdapterFixture(t, "")

	f.adapter.TicketResolved(resolvedTicket("C1"))
	f.adapter.TicketResolved(resolvedTicket("C1"))

	if n := f.surveyCount(t); n != 1 {
		t.Errorf("got %d surveys, want 1", n)
	}
}

func TestSweepTick(t *testing.T) {
	f := newAdapterFixture(t, `{"trigger_delay_hours": 0}`)

	f.adapter.TicketResolved(resolvedTicket("C1"))

	// SweepTick uses wall time; the survey is due immediately.
	processed := f.adapter.SweepTick()
	if len(processed) != 1 {
		t.Fatalf("processed %d surveys, want 1", len(processed))
	}
	if processed[0].Status != models.StatusSent {
		t.Errorf("status = %s, want sent", processed[0].Status)
	}
}
