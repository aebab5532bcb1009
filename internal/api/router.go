// Package api exposes the HTTP surface: the public, token-authenticated
// survey endpoints and the bearer-authenticated admin API the dashboard
// consumes.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/voicetel/freescout-nps/internal/events"
	"github.com/voicetel/freescout-nps/internal/logging"
	"github.com/voicetel/freescout-nps/internal/responses"
	"github.com/voicetel/freescout-nps/internal/settings"
	"github.com/voicetel/freescout-nps/internal/survey"
)

const maxBodySize = 1 << 20 // 1MB

type Deps struct {
	Settings  *settings.Service
	Responses *responses.Service
	Queue     *survey.Queue
	Adapter   *events.Adapter
	Token     string
	Logger    *logging.Logger
}

// NewHandler builds the full router. Survey endpoints are public — the
// token in the path is the credential. Everything under /api/nps requires
// the admin bearer token.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/nps/survey/{token}", handleSurveyPage(deps))
	r.Post("/nps/survey/{token}", handleSurveySubmit(deps))

	r.Route("/api/nps", func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Get("/settings", handleGetSettings(deps))
		r.Put("/settings", handleSaveSettings(deps))

		r.Get("/responses", handleListResponses(deps))
		r.Get("/summary", handleSummary(deps))
		r.Get("/trend", handleTrend(deps))
		r.Get("/breakdown/{dimension}", handleBreakdown(deps))
		r.Get("/contacts/{id}/history", handleContactHistory(deps))
		r.Get("/tickets/{id}/score", handleTicketScore(deps))
		r.Get("/dashboard", handleDashboard(deps))

		r.Post("/events/ticket-resolved", handleTicketResolved(deps))
		r.Post("/sweep", handleSweep(deps))
	})

	return r
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
