package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/voicetel/freescout-nps/internal/nps"
	"github.com/voicetel/freescout-nps/internal/survey"
)

// SubmitRequest is the public submission body. Score outside 0-10 is
// clamped downstream, never rejected.
type SubmitRequest struct {
	Score            int    `json:"score"`
	Comment          string `json:"comment"`
	FollowUpResponse string `json:"follow_up_response"`
}

// handleSurveyPage serves the data the survey form needs: the questions
// and branding for a valid token. Unknown and already-completed tokens get
// the same 404 so completion state can't be probed.
func handleSurveyPage(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := chi.URLParam(r, "token")

		if _, err := deps.Queue.FindByToken(token); err != nil {
			surveyNotFound(w, err, deps)
			return
		}

		cfg := deps.Settings.Load()

		// A score in the query string comes from an email button; the
		// form pre-selects it.
		prefill := -1
		if raw := r.URL.Query().Get("score"); raw != "" {
			if v, err := strconv.Atoi(raw); err == nil {
				prefill = v
			}
		}

		resp := map[string]any{
			"question":           cfg.Question,
			"follow_up_question": cfg.FollowUpQuestion,
			"branding":           cfg.Branding,
		}
		if prefill >= 0 {
			resp["prefill_score"] = prefill
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func handleSurveySubmit(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := chi.URLParam(r, "token")

		r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
		defer r.Body.Close()

		var req SubmitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		saved, err := deps.Queue.Submit(token, req.Score, req.Comment, req.FollowUpResponse)
		if err != nil {
			surveyNotFound(w, err, deps)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"id":       saved.ID,
			"score":    saved.Score,
			"category": nps.Classify(saved.Score),
		})
	}
}

// surveyNotFound maps every submission failure to one uniform response.
func surveyNotFound(w http.ResponseWriter, err error, deps Deps) {
	if !errors.Is(err, survey.ErrSurveyNotFound) {
		deps.Logger.LogError("survey lookup failed", err)
		httpError(w, http.StatusInternalServerError, "api_error", "internal error")
		return
	}
	httpError(w, http.StatusNotFound, "invalid_survey", "survey not found")
}
