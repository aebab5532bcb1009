package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/voicetel/freescout-nps/internal/models"
	"github.com/voicetel/freescout-nps/internal/nps"
	"github.com/voicetel/freescout-nps/internal/storage"
)

func handleGetSettings(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, deps.Settings.Load())
	}
}

func handleSaveSettings(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
		defer r.Body.Close()

		body, err := io.ReadAll(r.Body)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "failed to read body: %v", err)
			return
		}

		merged, err := deps.Settings.Save(body)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}

		writeJSON(w, http.StatusOK, merged)
	}
}

// filterFromQuery builds a response filter from the shared query
// parameters used by the reporting endpoints.
func filterFromQuery(r *http.Request) models.ResponseFilter {
	q := r.URL.Query()
	f := models.ResponseFilter{
		ContactID: q.Get("contact_id"),
		TicketID:  q.Get("ticket_id"),
		AgentID:   q.Get("agent_id"),
		TeamID:    q.Get("team_id"),
		Category:  q.Get("category"),
		DateFrom:  q.Get("date_from"),
		DateTo:    q.Get("date_to"),
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil && v > 0 {
		f.Offset = v
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		f.Limit = v
	}
	return f
}

func handleListResponses(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rs, err := deps.Responses.Query(filterFromQuery(r))
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "query failed: %v", err)
			return
		}
		if rs == nil {
			rs = []models.Response{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"responses": rs})
	}
}

func handleSummary(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f := filterFromQuery(r)
		f.Offset, f.Limit = 0, 0
		rs, err := deps.Responses.Query(f)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "query failed: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, nps.Calculate(rs))
	}
}

func handleTrend(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		months := 6
		if v, err := strconv.Atoi(r.URL.Query().Get("months")); err == nil && v > 0 {
			months = v
		}

		f := filterFromQuery(r)
		f.Offset, f.Limit = 0, 0
		f.DateFrom, f.DateTo = "", "" // the month windows do the date bucketing
		rs, err := deps.Responses.Query(f)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "query failed: %v", err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"trend": nps.Trend(rs, months, time.Now()),
		})
	}
}

func handleBreakdown(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dimension := chi.URLParam(r, "dimension")
		switch dimension {
		case nps.ByAgent, nps.ByTeam, nps.ByCategory:
		default:
			httpError(w, http.StatusBadRequest, "invalid_request_error",
				"unknown dimension %q: want agent, team or category", dimension)
			return
		}

		f := filterFromQuery(r)
		f.Offset, f.Limit = 0, 0
		rs, err := deps.Responses.Query(f)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "query failed: %v", err)
			return
		}

		rows := nps.BreakdownBy(rs, dimension)
		if rows == nil {
			rows = []models.BreakdownRow{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"breakdown": rows})
	}
}

// handleContactHistory backs the contact sidebar: the contact's ten most
// recent responses plus their personal NPS.
func handleContactHistory(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		contactID := chi.URLParam(r, "id")

		history, err := deps.Responses.ForContact(contactID)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "query failed: %v", err)
			return
		}

		recent := history
		if len(recent) > 10 {
			recent = recent[:10]
		}
		if recent == nil {
			recent = []models.Response{}
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"responses": recent,
			"nps":       nps.Calculate(history),
		})
	}
}

// handleTicketScore backs the ticket-list NPS column: the latest score for
// a ticket, or null when the ticket never produced a response.
func handleTicketScore(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := deps.Responses.LatestForTicket(chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) {
			writeJSON(w, http.StatusOK, map[string]any{"score": nil})
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "query failed: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"score": resp.Score})
	}
}

// handleDashboard assembles the NPS widget: current overall score, the
// previous month for comparison and a coarse trend direction.
func handleDashboard(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg := deps.Settings.Load()

		all, err := deps.Responses.Query(models.ResponseFilter{})
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "query failed: %v", err)
			return
		}

		current := nps.Calculate(all)
		trend := nps.Trend(all, 2, time.Now())

		previousScore := 0
		if len(trend) > 0 {
			previousScore = trend[0].Score
		}

		direction := "stable"
		switch {
		case current.Score > previousScore+2:
			direction = "up"
		case current.Score < previousScore-2:
			direction = "down"
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"score":          current.Score,
			"total":          current.Total,
			"promoters":      current.Promoters,
			"passives":       current.Passives,
			"detractors":     current.Detractors,
			"promoter_pct":   current.PromoterPct,
			"passive_pct":    current.PassivePct,
			"detractor_pct":  current.DetractorPct,
			"trend":          direction,
			"previous_score": previousScore,
			"enabled":        cfg.Enabled,
		})
	}
}

// handleTicketResolved is the inbound event webhook. It always answers
// 202: whether a survey was queued is the adapter's business, and the
// host's pipeline must never see a failure.
func handleTicketResolved(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
		defer r.Body.Close()

		var ticket models.ResolvedTicket
		if err := decodeJSON(r, &ticket); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid ticket payload: %v", err)
			return
		}

		deps.Adapter.TicketResolved(ticket)
		writeJSON(w, http.StatusAccepted, map[string]any{"accepted": true})
	}
}

func handleSweep(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		processed := deps.Adapter.SweepTick()
		if processed == nil {
			processed = []models.PendingSurvey{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"processed": processed})
	}
}
