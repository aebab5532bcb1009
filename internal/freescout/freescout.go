// Package freescout resolves contact identifiers against a FreeScout
// database. Identity resolution is optional: without a DSN the survey
// queue hands the raw contact id to the email transport and lets the
// platform resolve it.
package freescout

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

type Resolver struct {
	db *sql.DB
}

// Connect opens a read-only connection pool to the FreeScout database.
func Connect(dsn string, timeout time.Duration) (*Resolver, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &Resolver{db: db}, nil
}

func (r *Resolver) Close() error {
	return r.db.Close()
}

// EmailForContact returns the primary email address on file for a customer
// id. FreeScout keeps addresses in the emails table, lowest id first.
func (r *Resolver) EmailForContact(contactID string) (string, error) {
	query := `
		SELECT e.email
		FROM emails e
		WHERE e.customer_id = ?
		ORDER BY e.id ASC
		LIMIT 1
	`

	var email string
	err := r.db.QueryRow(query, contactID).Scan(&email)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("no email on file for contact %s", contactID)
	}
	if err != nil {
		return "", fmt.Errorf("email lookup failed: %w", err)
	}

	return email, nil
}
