package responses

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/voicetel/freescout-nps/internal/models"
	"github.com/voicetel/freescout-nps/internal/storage"
)

// Service is the response log: an append-only set of completed survey
// responses with upsert-by-id replacement.
type Service struct {
	store storage.ResponseStore
	now   func() time.Time
}

func NewService(store storage.ResponseStore) *Service {
	return &Service{store: store, now: time.Now}
}

// NewServiceAt creates a Service with an injected clock, for tests.
func NewServiceAt(store storage.ResponseStore, now func() time.Time) *Service {
	return &Service{store: store, now: now}
}

// Save persists a response. A record without an ID gets a fresh one and is
// stamped with the current time; a record with an existing ID replaces the
// stored record in place, keeping its original position. The score is
// clamped to 0-10 — out-of-range input is corrected, never rejected.
func (s *Service) Save(r models.Response) (models.Response, error) {
	if r.ID == "" {
		r.ID = "nps_" + uuid.NewString()
		r.CreatedAt = models.Timestamp(s.now())
	}

	r.Score = clampScore(r.Score)

	if err := s.store.Save(r); err != nil {
		return models.Response{}, fmt.Errorf("failed to save response: %w", err)
	}

	return r, nil
}

// Query returns responses matching the filter, newest first.
func (s *Service) Query(f models.ResponseFilter) ([]models.Response, error) {
	return s.store.Query(f)
}

// ForContact returns the contact's full NPS history, newest first.
func (s *Service) ForContact(contactID string) ([]models.Response, error) {
	return s.Query(models.ResponseFilter{ContactID: contactID})
}

// LatestForTicket returns the most recent response for a ticket, or
// storage.ErrNotFound when there is none. Backs the ticket-list NPS column.
func (s *Service) LatestForTicket(ticketID string) (models.Response, error) {
	rs, err := s.Query(models.ResponseFilter{TicketID: ticketID, Limit: 1})
	if err != nil {
		return models.Response{}, err
	}
	if len(rs) == 0 {
		return models.Response{}, storage.ErrNotFound
	}
	return rs[0], nil
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 10 {
		return 10
	}
	return score
}
