package storage

import (
	"fmt"
	"log/slog"
	"time"
)

// sqliteTimeExpr renders "now" plus a bound modifier (e.g. "-90 days") in
// the same layout the timestamp columns use, so string comparison is valid.
const sqliteTimeExpr = "strftime('%Y-%m-%dT%H:%M:%SZ', 'now', ?)"

// CleanupOldSurveys removes surveys that reached a terminal state more than
// retentionDays ago. Pending surveys and the response log are never touched;
// responses are the analytics corpus.
func CleanupOldSurveys(db *DB, retentionDays int) error {
	if retentionDays <= 0 {
		retentionDays = 90
	}
	modifier := fmt.Sprintf("-%d days", retentionDays)

	result, err := db.Exec(`
		DELETE FROM pending_surveys
		WHERE status != 'pending'
		AND COALESCE(sent_at, send_at) < `+sqliteTimeExpr,
		modifier,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err == nil && rowsAffected > 0 {
		slog.Info("cleaned up old surveys", "removed", rowsAffected, "retention_days", retentionDays)
	}

	return nil
}

// Vacuum reclaims disk space after cleanup.
func Vacuum(db *DB) error {
	start := time.Now()

	if _, err := db.Exec("VACUUM"); err != nil {
		return err
	}

	slog.Info("database vacuum completed", "duration", time.Since(start).String())
	return nil
}

// Stats describes the current state of the survey collections for the
// operator stats report.
type Stats struct {
	TotalSurveys    int
	ByStatus        map[string]int
	SentLast24h     int
	PendingBacklog  int
	TotalResponses  int
	ResponsesLast30 int
	AverageScore    float64
}

// CollectStats gathers queue and response statistics.
func CollectStats(db *DB) (*Stats, error) {
	stats := &Stats{ByStatus: make(map[string]int)}

	if err := db.QueryRow("SELECT COUNT(*) FROM pending_surveys").Scan(&stats.TotalSurveys); err != nil {
		return nil, err
	}

	rows, err := db.Query("SELECT status, COUNT(*) FROM pending_surveys GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats.ByStatus[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = db.QueryRow(`
		SELECT COUNT(*) FROM pending_surveys
		WHERE sent_at IS NOT NULL AND sent_at > `+sqliteTimeExpr,
		"-24 hours",
	).Scan(&stats.SentLast24h)
	if err != nil {
		return nil, err
	}

	stats.PendingBacklog = stats.ByStatus["pending"]

	if err := db.QueryRow("SELECT COUNT(*) FROM responses").Scan(&stats.TotalResponses); err != nil {
		return nil, err
	}

	err = db.QueryRow(`
		SELECT COUNT(*), COALESCE(AVG(score), 0) FROM responses
		WHERE created_at > `+sqliteTimeExpr,
		"-30 days",
	).Scan(&stats.ResponsesLast30, &stats.AverageScore)
	if err != nil {
		return nil, err
	}

	return stats, nil
}
