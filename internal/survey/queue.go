// Package survey implements the pending-survey state machine: enqueue on
// ticket resolution, throttle, sweep due surveys into a terminal delivery
// state, and complete them on public submission.
package survey

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voicetel/freescout-nps/internal/logging"
	"github.com/voicetel/freescout-nps/internal/models"
	"github.com/voicetel/freescout-nps/internal/nps"
	"github.com/voicetel/freescout-nps/internal/responses"
	"github.com/voicetel/freescout-nps/internal/settings"
	"github.com/voicetel/freescout-nps/internal/storage"
)

// ErrSurveyNotFound is the uniform submission failure: unknown token and
// already-completed survey are indistinguishable to callers, so a token
// can't be probed for completion state.
var ErrSurveyNotFound = errors.New("survey not found")

const emailSubject = "We'd love your feedback"

// Transport sends a survey email. The queue treats a nil transport as
// "always delivered" so environments without email wired up still move
// surveys through the state machine.
type Transport interface {
	SendEmail(to, subject, body string) error
}

// Broadcaster pushes best-effort events to the host platform.
type Broadcaster interface {
	Broadcast(channel, event string, payload map[string]interface{})
}

// ContactResolver turns a contact id into a deliverable email address.
type ContactResolver interface {
	EmailForContact(contactID string) (string, error)
}

// Queue owns the pending-survey collection. All mutating operations
// serialize on one mutex: the stores follow a read-modify-write pattern
// that is not safe under concurrent writers, and a sweep must see the
// state left by any submit that beat it to the lock.
type Queue struct {
	mu sync.Mutex

	settings  *settings.Service
	responses *responses.Service
	surveys   storage.SurveyStore

	transport   Transport
	broadcaster Broadcaster
	resolver    ContactResolver

	baseURL string
	dryRun  bool
	log     *logging.Logger
	now     func() time.Time
}

type Options struct {
	Settings  *settings.Service
	Responses *responses.Service
	Surveys   storage.SurveyStore

	Transport   Transport       // nil: delivery treated as success
	Broadcaster Broadcaster     // nil: broadcasts dropped
	Resolver    ContactResolver // nil: contact id used as address

	BaseURL string
	DryRun  bool // report due surveys without sending or transitioning
	Logger  *logging.Logger
	Now     func() time.Time // nil: time.Now
}

func NewQueue(opts Options) *Queue {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = logging.NewLogger("text", false, nil)
	}
	return &Queue{
		settings:    opts.Settings,
		responses:   opts.Responses,
		surveys:     opts.Surveys,
		transport:   opts.Transport,
		broadcaster: opts.Broadcaster,
		resolver:    opts.Resolver,
		baseURL:     opts.BaseURL,
		dryRun:      opts.DryRun,
		log:         log,
		now:         now,
	}
}

// CanSend reports whether the contact is eligible for a new survey under
// the frequency limit. With no limit configured it is always true. A
// contact with no response history is eligible unless a survey is already
// pending for them. A response with an unparseable timestamp never blocks.
func (q *Queue) CanSend(contactID string) (bool, error) {
	cfg := q.settings.Load()
	if cfg.FrequencyLimitDays <= 0 {
		return true, nil
	}

	history, err := q.responses.ForContact(contactID)
	if err != nil {
		return false, err
	}

	if len(history) == 0 {
		pending, err := q.surveys.HasPending(contactID)
		if err != nil {
			return false, err
		}
		return !pending, nil
	}

	return q.outsideFrequencyWindow(history[0], cfg.FrequencyLimitDays), nil
}

func (q *Queue) outsideFrequencyWindow(last models.Response, limitDays int) bool {
	lastAt, err := time.Parse(models.TimeFormat, last.CreatedAt)
	if err != nil {
		return true
	}

	daysSince := q.now().UTC().Sub(lastAt).Hours() / 24
	return daysSince >= float64(limitDays)
}

// HasPending reports whether the contact has a survey in the pending state.
func (q *Queue) HasPending(contactID string) (bool, error) {
	return q.surveys.HasPending(contactID)
}

// Enqueue schedules a survey for the contact after the configured delay.
// It performs no eligibility checks itself — CanSend/HasPending are the
// caller's responsibility. Guard and write are split deliberately so the
// event adapter owns the policy.
func (q *Queue) Enqueue(contactID, ticketID, agentID, teamID, category string) (models.PendingSurvey, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	cfg := q.settings.Load()
	delay := cfg.TriggerDelayHours
	if delay < 0 {
		delay = 0
	}

	now := q.now().UTC()
	sv := models.PendingSurvey{
		ID:        "srv_" + uuid.NewString(),
		ContactID: contactID,
		TicketID:  ticketID,
		AgentID:   agentID,
		TeamID:    teamID,
		Category:  category,
		Status:    models.StatusPending,
		QueuedAt:  models.Timestamp(now),
		SendAt:    models.Timestamp(now.Add(time.Duration(delay) * time.Hour)),
		Token:     newToken(),
	}

	if err := q.surveys.Append(sv); err != nil {
		return models.PendingSurvey{}, fmt.Errorf("failed to queue survey: %w", err)
	}

	return sv, nil
}

// Sweep processes every pending survey that is due at now: throttled
// contacts are skipped, the rest go out through the transport and land in
// sent or failed. Surveys not yet due stay untouched. The run is a no-op
// when the kill switch is off. All transitions persist as one batch;
// the returned slice is exactly the surveys whose status changed.
func (q *Queue) Sweep(now time.Time) ([]models.PendingSurvey, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	cfg := q.settings.Load()
	if !cfg.Enabled {
		return nil, nil
	}

	all, err := q.surveys.All()
	if err != nil {
		return nil, fmt.Errorf("failed to read survey queue: %w", err)
	}

	nowStr := models.Timestamp(now)
	var processed []models.PendingSurvey

	for _, sv := range all {
		if sv.Status != models.StatusPending {
			continue
		}

		sendAt, err := time.Parse(models.TimeFormat, sv.SendAt)
		if err != nil || sendAt.After(now.UTC()) {
			continue // not yet due
		}

		if q.dryRun {
			q.log.Info("dry run: survey due",
				"survey_id", sv.ID, "contact_id", sv.ContactID, "send_at", sv.SendAt)
			continue
		}

		allowed, err := q.recheckThrottle(sv, cfg)
		if err != nil {
			q.log.LogError("throttle recheck failed", err, "survey_id", sv.ID)
			continue
		}

		if !allowed {
			sv.Status = models.StatusSkipped
			processed = append(processed, sv)
			continue
		}

		if q.deliver(sv, cfg) {
			sv.Status = models.StatusSent
			sentAt := nowStr
			sv.SentAt = &sentAt
		} else {
			sv.Status = models.StatusFailed
		}

		processed = append(processed, sv)
	}

	if err := q.surveys.UpdateBatch(processed); err != nil {
		return nil, fmt.Errorf("failed to persist sweep results: %w", err)
	}

	return processed, nil
}

// recheckThrottle re-evaluates the frequency limit for a due survey. The
// pending-survey guard from CanSend is deliberately absent here: the
// survey being swept is itself pending and must not block its own send.
func (q *Queue) recheckThrottle(sv models.PendingSurvey, cfg models.Settings) (bool, error) {
	if cfg.FrequencyLimitDays <= 0 {
		return true, nil
	}

	history, err := q.responses.ForContact(sv.ContactID)
	if err != nil {
		return false, err
	}
	if len(history) == 0 {
		return true, nil
	}

	return q.outsideFrequencyWindow(history[0], cfg.FrequencyLimitDays), nil
}

// deliver sends the survey email, returning true on success. Transport
// absence degrades to success so the state machine keeps moving.
func (q *Queue) deliver(sv models.PendingSurvey, cfg models.Settings) bool {
	if q.transport == nil {
		return true
	}

	to := sv.ContactID
	if q.resolver != nil {
		email, err := q.resolver.EmailForContact(sv.ContactID)
		if err != nil {
			q.log.Warn("contact resolution failed, using contact id",
				"contact_id", sv.ContactID, "error", err.Error())
		} else {
			to = email
		}
	}

	body := BuildEmailBody(cfg, SurveyURL(q.baseURL, sv.Token))
	if err := q.transport.SendEmail(to, emailSubject, body); err != nil {
		q.log.LogError("survey delivery failed", err,
			"survey_id", sv.ID, "contact_id", sv.ContactID)
		return false
	}

	return true
}

// Submit completes the survey identified by token and appends a response
// carrying the survey's ticket context. Unknown tokens and already
// completed surveys fail identically. A survey that was swept into sent,
// skipped or failed can still be completed — its token outlives the sweep.
func (q *Queue) Submit(token string, score int, comment, followUp string) (models.Response, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	sv, err := q.surveys.FindByToken(token)
	if errors.Is(err, storage.ErrNotFound) {
		return models.Response{}, ErrSurveyNotFound
	}
	if err != nil {
		return models.Response{}, err
	}

	if sv.Status == models.StatusCompleted {
		return models.Response{}, ErrSurveyNotFound
	}

	saved, err := q.responses.Save(models.Response{
		ContactID:        sv.ContactID,
		TicketID:         sv.TicketID,
		Score:            score,
		Comment:          comment,
		FollowUpResponse: followUp,
		AgentID:          sv.AgentID,
		TeamID:           sv.TeamID,
		Category:         sv.Category,
	})
	if err != nil {
		return models.Response{}, err
	}

	sv.Status = models.StatusCompleted
	if err := q.surveys.Update(sv); err != nil {
		return models.Response{}, fmt.Errorf("failed to complete survey: %w", err)
	}

	if q.broadcaster != nil {
		q.broadcaster.Broadcast("admin", "nps.response_received", map[string]interface{}{
			"response_id": saved.ID,
			"contact_id":  saved.ContactID,
			"ticket_id":   saved.TicketID,
			"score":       saved.Score,
			"category":    string(nps.Classify(saved.Score)),
			"timestamp":   saved.CreatedAt,
		})
	}

	return saved, nil
}

// FindByToken exposes survey lookup for the public survey page. The same
// uniform not-found rule applies: completed surveys are invisible.
func (q *Queue) FindByToken(token string) (models.PendingSurvey, error) {
	sv, err := q.surveys.FindByToken(token)
	if errors.Is(err, storage.ErrNotFound) {
		return models.PendingSurvey{}, ErrSurveyNotFound
	}
	if err != nil {
		return models.PendingSurvey{}, err
	}
	if sv.Status == models.StatusCompleted {
		return models.PendingSurvey{}, ErrSurveyNotFound
	}
	return sv, nil
}

// newToken returns 16 random bytes hex-encoded: 32 characters, the sole
// credential for a public submission.
func newToken() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms.
		panic(err)
	}
	return hex.EncodeToString(buf)
}
