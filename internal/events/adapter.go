// Package events translates host-platform events into survey queue
// operations. Nothing here returns an error to the caller: a failure
// degrades to "no survey queued/sent" so the host's ticket-resolution and
// cron pipelines are never disrupted.
package events

import (
	"time"

	"github.com/voicetel/freescout-nps/internal/logging"
	"github.com/voicetel/freescout-nps/internal/models"
	"github.com/voicetel/freescout-nps/internal/settings"
	"github.com/voicetel/freescout-nps/internal/survey"
)

type Adapter struct {
	settings *settings.Service
	queue    *survey.Queue
	log      *logging.Logger
}

func NewAdapter(cfg *settings.Service, queue *survey.Queue, log *logging.Logger) *Adapter {
	return &Adapter{settings: cfg, queue: queue, log: log}
}

// TicketResolved handles a ticket.resolved event. The guards live here,
// not in the queue: global kill switch, required identifiers, frequency
// throttle, then the one-pending-survey-per-contact rule. Only when all
// pass is a survey enqueued.
func (a *Adapter) TicketResolved(ticket models.ResolvedTicket) {
	cfg := a.settings.Load()
	if !cfg.Enabled {
		return
	}

	contactID := ticket.Contact()
	if contactID == "" || ticket.ID == "" {
		return
	}

	allowed, err := a.queue.CanSend(contactID)
	if err != nil {
		a.log.LogError("throttle check failed", err, "contact_id", contactID, "ticket_id", ticket.ID)
		return
	}
	if !allowed {
		a.log.Info("survey throttled", "contact_id", contactID, "ticket_id", ticket.ID)
		return
	}

	pending, err := a.queue.HasPending(contactID)
	if err != nil {
		a.log.LogError("pending check failed", err, "contact_id", contactID, "ticket_id", ticket.ID)
		return
	}
	if pending {
		return
	}

	sv, err := a.queue.Enqueue(contactID, ticket.ID, ticket.Agent(), ticket.TeamID, ticket.Category)
	if err != nil {
		a.log.LogError("failed to queue survey", err, "contact_id", contactID, "ticket_id", ticket.ID)
		return
	}

	a.log.Info("survey queued",
		"contact_id", contactID,
		"ticket_id", ticket.ID,
		"send_at", sv.SendAt,
	)
}

// SweepTick handles the periodic cron tick: process the queue once and
// return the surveys whose status changed, for operator visibility.
func (a *Adapter) SweepTick() []models.PendingSurvey {
	processed, err := a.queue.Sweep(time.Now())
	if err != nil {
		a.log.LogError("sweep failed", err)
		return nil
	}
	return processed
}
