package models

import "time"

// TimeFormat is the timestamp layout used everywhere survey data is
// persisted. Timestamps are stored as UTC strings and compared
// lexicographically, which works because the layout is ISO-8601.
const TimeFormat = "2006-01-02T15:04:05Z"

// Timestamp formats t as a persisted survey timestamp.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

// Branding holds the visual identity applied to survey emails and the
// public survey page.
type Branding struct {
	PrimaryColor string `json:"primary_color"`
	LogoURL      string `json:"logo_url"`
}

// Settings is the survey configuration record. It is persisted as a single
// nested JSON document so the dashboard UI can read it as-is.
type Settings struct {
	Question           string   `json:"question"`
	FollowUpQuestion   string   `json:"follow_up_question"`
	TriggerDelayHours  int      `json:"trigger_delay_hours"`
	FrequencyLimitDays int      `json:"frequency_limit_days"`
	Branding           Branding `json:"branding"`
	Enabled            bool     `json:"enabled"`
}

// Response is a completed NPS survey response. Records are immutable once
// created: ID and CreatedAt are assigned on first save and never change,
// even when the record is replaced by ID.
type Response struct {
	ID               string `json:"id"`
	ContactID        string `json:"contact_id"`
	TicketID         string `json:"ticket_id"`
	Score            int    `json:"score"`
	Comment          string `json:"comment"`
	FollowUpResponse string `json:"follow_up_response"`
	AgentID          string `json:"agent_id"`
	TeamID           string `json:"team_id"`
	Category         string `json:"category"`
	CreatedAt        string `json:"created_at"`
}

// SurveyStatus is the closed state set of a pending survey.
type SurveyStatus string

const (
	StatusPending   SurveyStatus = "pending"
	StatusSent      SurveyStatus = "sent"
	StatusSkipped   SurveyStatus = "skipped"
	StatusFailed    SurveyStatus = "failed"
	StatusCompleted SurveyStatus = "completed"
)

// Terminal reports whether s is a state no sweep will revisit. Every state
// other than pending is terminal for the sweep; completed is terminal for
// submission as well.
func (s SurveyStatus) Terminal() bool {
	return s != StatusPending
}

// PendingSurvey is a queued survey working its way through the delivery
// state machine. Token is the sole credential for the public submission
// endpoint and stays valid after sent/skipped/failed.
type PendingSurvey struct {
	ID        string       `json:"id"`
	ContactID string       `json:"contact_id"`
	TicketID  string       `json:"ticket_id"`
	AgentID   string       `json:"agent_id"`
	TeamID    string       `json:"team_id"`
	Category  string       `json:"category"`
	Status    SurveyStatus `json:"status"`
	QueuedAt  string       `json:"queued_at"`
	SendAt    string       `json:"send_at"`
	SentAt    *string      `json:"sent_at"`
	Token     string       `json:"token"`
}

// ResponseFilter is a conjunction of optional constraints for querying
// responses. Empty string fields are unconstrained. DateFrom/DateTo are
// calendar days (YYYY-MM-DD); DateTo is inclusive through end of day.
type ResponseFilter struct {
	ContactID string
	TicketID  string
	AgentID   string
	TeamID    string
	Category  string
	DateFrom  string
	DateTo    string
	Offset    int
	Limit     int
}

// Classification is an NPS score band.
type Classification string

const (
	Promoter  Classification = "promoter"
	Passive   Classification = "passive"
	Detractor Classification = "detractor"
)

// NPSResult is the aggregate outcome of scoring a set of responses.
// Percentages are rounded to one decimal; Score is PromoterPct minus
// DetractorPct rounded to the nearest integer.
type NPSResult struct {
	Score        int     `json:"score"`
	Total        int     `json:"total"`
	Promoters    int     `json:"promoters"`
	Passives     int     `json:"passives"`
	Detractors   int     `json:"detractors"`
	PromoterPct  float64 `json:"promoter_pct"`
	PassivePct   float64 `json:"passive_pct"`
	DetractorPct float64 `json:"detractor_pct"`
}

// TrendPoint is one calendar month of NPS history.
type TrendPoint struct {
	Month string `json:"month"` // first day of the month, YYYY-MM-DD
	Label string `json:"label"` // e.g. "Jan 2026"
	NPSResult
}

// BreakdownRow is the NPS result for one value of a grouping dimension
// (agent, team or category).
type BreakdownRow struct {
	Key string `json:"key"`
	NPSResult
}

// ResolvedTicket is the payload of a ticket.resolved event from the host
// helpdesk. ContactID falls back to RequesterID, AssigneeID falls back to
// AgentID; the adapter normalizes both.
type ResolvedTicket struct {
	ID          string `json:"id"`
	ContactID   string `json:"contact_id"`
	RequesterID string `json:"requester_id"`
	AssigneeID  string `json:"assignee_id"`
	AgentID     string `json:"agent_id"`
	TeamID      string `json:"team_id"`
	Category    string `json:"category"`
}

// Contact returns the normalized contact identifier.
func (t ResolvedTicket) Contact() string {
	if t.ContactID != "" {
		return t.ContactID
	}
	return t.RequesterID
}

// Agent returns the normalized agent identifier.
func (t ResolvedTicket) Agent() string {
	if t.AssigneeID != "" {
		return t.AssigneeID
	}
	return t.AgentID
}

// SweepStats summarizes one sweep run for logging and the cron exit report.
type SweepStats struct {
	Checked  int
	Sent     int
	Skipped  int
	Failed   int
	Duration time.Duration
}
