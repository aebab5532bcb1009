package storage

import (
	"errors"

	"github.com/voicetel/freescout-nps/internal/models"
)

// ErrNotFound is returned by lookups that match nothing.
var ErrNotFound = errors.New("storage: record not found")

// SettingsStore persists the single survey configuration document as raw
// JSON. LoadRaw returns nil when nothing has been saved yet; the settings
// service falls back to defaults in that case.
type SettingsStore interface {
	LoadRaw() ([]byte, error)
	SaveRaw(data []byte) error
}

// ResponseStore persists completed survey responses. Save upserts by ID
// (the caller assigns IDs). Query returns results ordered by created_at
// descending with byte-wise string comparison, ties broken by the order
// records were first stored.
type ResponseStore interface {
	Save(r models.Response) error
	Query(f models.ResponseFilter) ([]models.Response, error)
}

// SurveyStore persists pending surveys.
type SurveyStore interface {
	All() ([]models.PendingSurvey, error)
	Append(s models.PendingSurvey) error
	// FindByToken returns ErrNotFound when no survey carries the token.
	FindByToken(token string) (models.PendingSurvey, error)
	// HasPending reports whether the contact has any survey in the
	// pending state.
	HasPending(contactID string) (bool, error)
	// Update replaces the survey with the same ID.
	Update(s models.PendingSurvey) error
	// UpdateBatch applies all updates as one write, so a sweep persists
	// its transitions exactly once.
	UpdateBatch(surveys []models.PendingSurvey) error
}

// matches reports whether r satisfies every constraint in f, ignoring
// pagination. Shared by the in-memory store and tests.
func matches(r models.Response, f models.ResponseFilter) bool {
	if f.ContactID != "" && r.ContactID != f.ContactID {
		return false
	}
	if f.TicketID != "" && r.TicketID != f.TicketID {
		return false
	}
	if f.AgentID != "" && r.AgentID != f.AgentID {
		return false
	}
	if f.TeamID != "" && r.TeamID != f.TeamID {
		return false
	}
	if f.Category != "" && r.Category != f.Category {
		return false
	}
	if f.DateFrom != "" && r.CreatedAt < f.DateFrom {
		return false
	}
	if f.DateTo != "" && r.CreatedAt > f.DateTo+"T23:59:59Z" {
		return false
	}
	return true
}

// paginate applies offset/limit to an already filtered, sorted slice.
func paginate(rs []models.Response, offset, limit int) []models.Response {
	if offset > 0 {
		if offset >= len(rs) {
			return nil
		}
		rs = rs[offset:]
	}
	if limit > 0 && limit < len(rs) {
		rs = rs[:limit]
	}
	return rs
}
