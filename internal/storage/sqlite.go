package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/voicetel/freescout-nps/internal/models"
)

type DB struct {
	*sql.DB
}

// Open opens (or creates) the SQLite database at dbPath. Pass ":memory:"
// for an in-memory database.
func Open(dbPath string) (*DB, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if dir != "." && dir != "/" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// Single connection: every mutation is a read-modify-write cycle and
	// must be serialized at the storage layer.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	return &DB{db}, nil
}

// InitSchema creates the three survey collections. Safe to run repeatedly.
func InitSchema(db *DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		data TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS responses (
		id TEXT PRIMARY KEY,
		contact_id TEXT NOT NULL DEFAULT '',
		ticket_id TEXT NOT NULL DEFAULT '',
		score INTEGER NOT NULL DEFAULT 0,
		comment TEXT NOT NULL DEFAULT '',
		follow_up_response TEXT NOT NULL DEFAULT '',
		agent_id TEXT NOT NULL DEFAULT '',
		team_id TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_responses_contact ON responses(contact_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_responses_created ON responses(created_at);

	CREATE TABLE IF NOT EXISTS pending_surveys (
		id TEXT PRIMARY KEY,
		contact_id TEXT NOT NULL DEFAULT '',
		ticket_id TEXT NOT NULL DEFAULT '',
		agent_id TEXT NOT NULL DEFAULT '',
		team_id TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		queued_at TEXT NOT NULL DEFAULT '',
		send_at TEXT NOT NULL DEFAULT '',
		sent_at TEXT DEFAULT NULL,
		token TEXT NOT NULL UNIQUE
	);

	CREATE INDEX IF NOT EXISTS idx_surveys_due ON pending_surveys(status, send_at);
	CREATE INDEX IF NOT EXISTS idx_surveys_contact ON pending_surveys(contact_id, status);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// SQLiteSettings stores the settings document as a single-row JSON blob.
type SQLiteSettings struct {
	db *DB
}

func NewSQLiteSettings(db *DB) *SQLiteSettings {
	return &SQLiteSettings{db: db}
}

func (s *SQLiteSettings) LoadRaw() ([]byte, error) {
	var data string
	err := s.db.QueryRow("SELECT data FROM settings WHERE id = 1").Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(data), nil
}

func (s *SQLiteSettings) SaveRaw(data []byte) error {
	_, err := s.db.Exec(`
		INSERT INTO settings (id, data) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data
	`, string(data))
	return err
}

// SQLiteResponses is the durable response store.
type SQLiteResponses struct {
	db *DB
}

func NewSQLiteResponses(db *DB) *SQLiteResponses {
	return &SQLiteResponses{db: db}
}

func (s *SQLiteResponses) Save(r models.Response) error {
	// Upsert keeps the original rowid, so storage order survives re-saves.
	_, err := s.db.Exec(`
		INSERT INTO responses (
			id, contact_id, ticket_id, score, comment,
			follow_up_response, agent_id, team_id, category, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			contact_id = excluded.contact_id,
			ticket_id = excluded.ticket_id,
			score = excluded.score,
			comment = excluded.comment,
			follow_up_response = excluded.follow_up_response,
			agent_id = excluded.agent_id,
			team_id = excluded.team_id,
			category = excluded.category,
			created_at = excluded.created_at
	`,
		r.ID, r.ContactID, r.TicketID, r.Score, r.Comment,
		r.FollowUpResponse, r.AgentID, r.TeamID, r.Category, r.CreatedAt,
	)
	return err
}

func (s *SQLiteResponses) Query(f models.ResponseFilter) ([]models.Response, error) {
	var (
		conds []string
		args  []interface{}
	)

	add := func(cond string, arg interface{}) {
		conds = append(conds, cond)
		args = append(args, arg)
	}

	if f.ContactID != "" {
		add("contact_id = ?", f.ContactID)
	}
	if f.TicketID != "" {
		add("ticket_id = ?", f.TicketID)
	}
	if f.AgentID != "" {
		add("agent_id = ?", f.AgentID)
	}
	if f.TeamID != "" {
		add("team_id = ?", f.TeamID)
	}
	if f.Category != "" {
		add("category = ?", f.Category)
	}
	if f.DateFrom != "" {
		add("created_at >= ?", f.DateFrom)
	}
	if f.DateTo != "" {
		// Inclusive through end of the given calendar day.
		add("created_at <= ?", f.DateTo+"T23:59:59Z")
	}

	query := `
		SELECT id, contact_id, ticket_id, score, comment,
			follow_up_response, agent_id, team_id, category, created_at
		FROM responses
	`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	// TEXT comparison on created_at matches the lexicographic contract;
	// rowid preserves first-stored order for ties.
	query += " ORDER BY created_at DESC, rowid ASC"

	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
		if f.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, f.Offset)
		}
	} else if f.Offset > 0 {
		query += " LIMIT -1 OFFSET ?"
		args = append(args, f.Offset)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("response query failed: %w", err)
	}
	defer rows.Close()

	var out []models.Response
	for rows.Next() {
		var r models.Response
		err := rows.Scan(
			&r.ID, &r.ContactID, &r.TicketID, &r.Score, &r.Comment,
			&r.FollowUpResponse, &r.AgentID, &r.TeamID, &r.Category, &r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("response scan failed: %w", err)
		}
		out = append(out, r)
	}

	return out, rows.Err()
}

// SQLiteSurveys is the durable pending-survey store.
type SQLiteSurveys struct {
	db *DB
}

func NewSQLiteSurveys(db *DB) *SQLiteSurveys {
	return &SQLiteSurveys{db: db}
}

const surveyColumns = `id, contact_id, ticket_id, agent_id, team_id, category,
	status, queued_at, send_at, sent_at, token`

func (s *SQLiteSurveys) All() ([]models.PendingSurvey, error) {
	rows, err := s.db.Query("SELECT " + surveyColumns + " FROM pending_surveys ORDER BY rowid ASC")
	if err != nil {
		return nil, fmt.Errorf("survey query failed: %w", err)
	}
	defer rows.Close()

	var out []models.PendingSurvey
	for rows.Next() {
		sv, err := scanSurvey(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sv)
	}

	return out, rows.Err()
}

func (s *SQLiteSurveys) Append(sv models.PendingSurvey) error {
	_, err := s.db.Exec(`
		INSERT INTO pending_surveys (`+surveyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		sv.ID, sv.ContactID, sv.TicketID, sv.AgentID, sv.TeamID, sv.Category,
		string(sv.Status), sv.QueuedAt, sv.SendAt, nullable(sv.SentAt), sv.Token,
	)
	return err
}

func (s *SQLiteSurveys) FindByToken(token string) (models.PendingSurvey, error) {
	row := s.db.QueryRow("SELECT "+surveyColumns+" FROM pending_surveys WHERE token = ?", token)
	sv, err := scanSurvey(row)
	if err == sql.ErrNoRows {
		return models.PendingSurvey{}, ErrNotFound
	}
	if err != nil {
		return models.PendingSurvey{}, err
	}
	return sv, nil
}

func (s *SQLiteSurveys) HasPending(contactID string) (bool, error) {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM pending_surveys
		WHERE contact_id = ? AND status = 'pending'
	`, contactID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *SQLiteSurveys) Update(sv models.PendingSurvey) error {
	res, err := s.db.Exec(`
		UPDATE pending_surveys SET
			contact_id = ?, ticket_id = ?, agent_id = ?, team_id = ?,
			category = ?, status = ?, queued_at = ?, send_at = ?,
			sent_at = ?, token = ?
		WHERE id = ?
	`,
		sv.ContactID, sv.TicketID, sv.AgentID, sv.TeamID,
		sv.Category, string(sv.Status), sv.QueuedAt, sv.SendAt,
		nullable(sv.SentAt), sv.Token, sv.ID,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteSurveys) UpdateBatch(surveys []models.PendingSurvey) error {
	if len(surveys) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}

	for _, sv := range surveys {
		_, err := tx.Exec(`
			UPDATE pending_surveys SET status = ?, sent_at = ? WHERE id = ?
		`, string(sv.Status), nullable(sv.SentAt), sv.ID)
		if err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSurvey(row rowScanner) (models.PendingSurvey, error) {
	var (
		sv     models.PendingSurvey
		status string
		sentAt sql.NullString
	)
	err := row.Scan(
		&sv.ID, &sv.ContactID, &sv.TicketID, &sv.AgentID, &sv.TeamID,
		&sv.Category, &status, &sv.QueuedAt, &sv.SendAt, &sentAt, &sv.Token,
	)
	if err != nil {
		return models.PendingSurvey{}, err
	}
	sv.Status = models.SurveyStatus(status)
	if sentAt.Valid {
		sv.SentAt = &sentAt.String
	}
	return sv, nil
}

func nullable(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
