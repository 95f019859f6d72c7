package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ShortlistStatus tracks where an application stands.
type ShortlistStatus string

const (
	ShortlistSaved     ShortlistStatus = "saved"
	ShortlistApplied   ShortlistStatus = "applied"
	ShortlistInterview ShortlistStatus = "interview"
	ShortlistOffer     ShortlistStatus = "offer"
	ShortlistRejected  ShortlistStatus = "rejected"
)

func validShortlistStatus(s string) bool {
	switch ShortlistStatus(s) {
	case ShortlistSaved, ShortlistApplied, ShortlistInterview, ShortlistOffer, ShortlistRejected:
		return true
	}
	return false
}

// ShortlistEntry is one saved job.
type ShortlistEntry struct {
	ID        int64           `json:"id"`
	Title     string          `json:"title"`
	Company   string          `json:"company"`
	URL       string          `json:"url,omitempty"`
	Status    ShortlistStatus `json:"status"`
	Notes     string          `json:"notes,omitempty"`
	Location  string          `json:"location,omitempty"`
	VisaNote  string          `json:"visaNote,omitempty"`
	CreatedAt string          `json:"createdAt"`
	UpdatedAt string          `json:"updatedAt"`
}

// ShortlistAddInput is the payload for saving a job.
type ShortlistAddInput struct {
	Title    string `json:"title"`
	Company  string `json:"company"`
	URL      string `json:"url,omitempty"`
	Status   string `json:"status,omitempty"`
	Notes    string `json:"notes,omitempty"`
	Location string `json:"location,omitempty"`
	VisaNote string `json:"visaNote,omitempty"`
}

// Shortlist is a local saved-jobs store backed by SQLite. It lives
// beside the main database so students keep their list even when the
// listings database is unavailable.
type Shortlist struct {
	db *sql.DB
}

// OpenShortlist opens (or creates) the shortlist database at path.
func OpenShortlist(path string) (*Shortlist, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("shortlist: mkdir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("shortlist: open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS shortlist (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		title      TEXT NOT NULL,
		company    TEXT NOT NULL,
		url        TEXT,
		status     TEXT NOT NULL DEFAULT 'saved',
		notes      TEXT,
		location   TEXT,
		visa_note  TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("shortlist: init schema: %w", err)
	}
	return &Shortlist{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Shortlist) Close() error {
	return s.db.Close()
}

// Add saves a job. Status defaults to "saved".
func (s *Shortlist) Add(ctx context.Context, input ShortlistAddInput) (*ShortlistEntry, error) {
	if input.Title == "" || input.Company == "" {
		return nil, errors.New("shortlist: title and company are required")
	}

	status := strings.ToLower(strings.TrimSpace(input.Status))
	if status == "" {
		status = string(ShortlistSaved)
	}
	if !validShortlistStatus(status) {
		return nil, fmt.Errorf("shortlist: invalid status %q (valid: saved, applied, interview, offer, rejected)", status)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO shortlist (title, company, url, status, notes, location, visa_note, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		input.Title, input.Company, input.URL, status, input.Notes, input.Location, input.VisaNote, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("shortlist: insert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("shortlist: last id: %w", err)
	}

	return &ShortlistEntry{
		ID:        id,
		Title:     input.Title,
		Company:   input.Company,
		URL:       input.URL,
		Status:    ShortlistStatus(status),
		Notes:     input.Notes,
		Location:  input.Location,
		VisaNote:  input.VisaNote,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// List returns entries, optionally filtered by status, newest first.
func (s *Shortlist) List(ctx context.Context, status string, limit int) ([]ShortlistEntry, error) {
	if status != "" && !validShortlistStatus(status) {
		return nil, fmt.Errorf("shortlist: invalid status %q", status)
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}

	query := `SELECT id, title, company, url, status, notes, location, visa_note, created_at, updated_at
		FROM shortlist`
	var args []any
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}
	query += " ORDER BY updated_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("shortlist: list: %w", err)
	}
	defer rows.Close()

	var out []ShortlistEntry
	for rows.Next() {
		var e ShortlistEntry
		var url, notes, location, visaNote sql.NullString
		if err := rows.Scan(&e.ID, &e.Title, &e.Company, &url, &e.Status, &notes, &location, &visaNote, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("shortlist: scan: %w", err)
		}
		e.URL = url.String
		e.Notes = notes.String
		e.Location = location.String
		e.VisaNote = visaNote.String
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("shortlist: iterate: %w", err)
	}
	if out == nil {
		out = []ShortlistEntry{}
	}
	return out, nil
}

// Update changes status and/or notes for one entry.
func (s *Shortlist) Update(ctx context.Context, id int64, status, notes string) (*ShortlistEntry, error) {
	if status == "" && notes == "" {
		return nil, errors.New("shortlist: nothing to update")
	}
	if status != "" && !validShortlistStatus(status) {
		return nil, fmt.Errorf("shortlist: invalid status %q", status)
	}

	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC().Format(time.RFC3339)}
	if status != "" {
		sets = append(sets, "status = ?")
		args = append(args, status)
	}
	if notes != "" {
		sets = append(sets, "notes = ?")
		args = append(args, notes)
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx, "UPDATE shortlist SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return nil, fmt.Errorf("shortlist: update: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("shortlist: rows affected: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("shortlist: entry %d not found", id)
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, company, url, status, notes, location, visa_note, created_at, updated_at
		FROM shortlist WHERE id = ?`, id)
	var e ShortlistEntry
	var url, noteCol, location, visaNote sql.NullString
	if err := row.Scan(&e.ID, &e.Title, &e.Company, &url, &e.Status, &noteCol, &location, &visaNote, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, fmt.Errorf("shortlist: reload: %w", err)
	}
	e.URL = url.String
	e.Notes = noteCol.String
	e.Location = location.String
	e.VisaNote = visaNote.String
	return &e, nil
}
