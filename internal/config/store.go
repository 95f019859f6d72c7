package config

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SettingRow is one persisted setting. value_text carries non-secret
// values; value_encrypted carries secret tokens. A legacy row may hold
// a plaintext secret in value_text (see resolver warnings).
type SettingRow struct {
	Key            Key
	ValueText      *string
	ValueEncrypted *string
	ValueType      Type
	IsSecret       bool
	UpdatedAt      time.Time
	UpdatedBy      string
}

// AuditAction classifies one audit entry.
type AuditAction string

const (
	AuditCreate AuditAction = "create"
	AuditUpdate AuditAction = "update"
	AuditDelete AuditAction = "delete"
)

// AuditEntry is one immutable configuration-change record. Values are
// stored redacted; secret plaintext never reaches this struct.
type AuditEntry struct {
	ID        int64
	Key       string
	Action    AuditAction
	OldValue  *string
	NewValue  *string
	ChangedAt time.Time
	ChangedBy string
}

// Store is the persistence boundary for settings and their audit trail.
// All methods take the caller's context; none retry.
type Store interface {
	// TablesExist probes whether both the settings and audit tables are
	// resolvable schema objects.
	TablesExist(ctx context.Context) (bool, error)
	// Load returns the stored rows for the given keys (missing keys are
	// simply absent from the result).
	Load(ctx context.Context, keys []Key) ([]SettingRow, error)
	// Upsert inserts or replaces the row for row.Key.
	Upsert(ctx context.Context, row SettingRow) error
	// InsertIfAbsent inserts the row only when no row for the key
	// exists yet. Reports whether a row was written.
	InsertIfAbsent(ctx context.Context, row SettingRow) (bool, error)
	// AppendAudit appends one audit entry.
	AppendAudit(ctx context.Context, entry AuditEntry) error
	// RecentAudit returns the newest entries, most recent first.
	RecentAudit(ctx context.Context, limit int) ([]AuditEntry, error)
}

// PGStore implements Store on a pgx connection pool.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore wraps an existing pool. The pool stays owned by the caller.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) TablesExist(ctx context.Context) (bool, error) {
	var settings, audit *string
	err := s.pool.QueryRow(ctx, `
		SELECT
			to_regclass('public.app_settings')::text,
			to_regclass('public.app_settings_audit')::text
	`).Scan(&settings, &audit)
	if err != nil {
		return false, fmt.Errorf("probe settings tables: %w", err)
	}
	return settings != nil && audit != nil, nil
}

func (s *PGStore) Load(ctx context.Context, keys []Key) ([]SettingRow, error) {
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = string(k)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT key, value_text, value_encrypted, value_type, is_secret, updated_at, updated_by
		FROM app_settings
		WHERE key = ANY($1)
	`, names)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	defer rows.Close()

	var out []SettingRow
	for rows.Next() {
		var r SettingRow
		var key, valueType string
		if err := rows.Scan(&key, &r.ValueText, &r.ValueEncrypted, &valueType, &r.IsSecret, &r.UpdatedAt, &r.UpdatedBy); err != nil {
			return nil, fmt.Errorf("scan setting row: %w", err)
		}
		r.Key = Key(key)
		r.ValueType = Type(valueType)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate setting rows: %w", err)
	}
	return out, nil
}

func (s *PGStore) Upsert(ctx context.Context, row SettingRow) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO app_settings (key, value_text, value_encrypted, value_type, is_secret, updated_at, updated_by)
		VALUES ($1, $2, $3, $4, $5, NOW(), $6)
		ON CONFLICT (key) DO UPDATE SET
			value_text = EXCLUDED.value_text,
			value_encrypted = EXCLUDED.value_encrypted,
			value_type = EXCLUDED.value_type,
			is_secret = EXCLUDED.is_secret,
			updated_at = NOW(),
			updated_by = EXCLUDED.updated_by
	`, string(row.Key), row.ValueText, row.ValueEncrypted, string(row.ValueType), row.IsSecret, row.UpdatedBy)
	if err != nil {
		return fmt.Errorf("upsert setting %s: %w", row.Key, err)
	}
	return nil
}

func (s *PGStore) InsertIfAbsent(ctx context.Context, row SettingRow) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO app_settings (key, value_text, value_encrypted, value_type, is_secret, updated_at, updated_by)
		VALUES ($1, $2, $3, $4, $5, NOW(), $6)
		ON CONFLICT (key) DO NOTHING
	`, string(row.Key), row.ValueText, row.ValueEncrypted, string(row.ValueType), row.IsSecret, row.UpdatedBy)
	if err != nil {
		return false, fmt.Errorf("seed setting %s: %w", row.Key, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PGStore) AppendAudit(ctx context.Context, entry AuditEntry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO app_settings_audit (setting_key, action, old_value_redacted, new_value_redacted, changed_at, changed_by)
		VALUES ($1, $2, $3, $4, NOW(), $5)
	`, entry.Key, string(entry.Action), entry.OldValue, entry.NewValue, entry.ChangedBy)
	if err != nil {
		return fmt.Errorf("append audit for %s: %w", entry.Key, err)
	}
	return nil
}

func (s *PGStore) RecentAudit(ctx context.Context, limit int) ([]AuditEntry, error) {
	if limit < 1 {
		limit = 1
	}
	if limit > 100 {
		limit = 100
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, setting_key, action, old_value_redacted, new_value_redacted, changed_at, changed_by
		FROM app_settings_audit
		ORDER BY changed_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("load audit: %w", err)
	}
	defer rows.Close()

	var out []AuditEntry
	for rows.Next() {
		var e AuditEntry
		var action string
		if err := rows.Scan(&e.ID, &e.Key, &action, &e.OldValue, &e.NewValue, &e.ChangedAt, &e.ChangedBy); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		e.Action = AuditAction(action)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit rows: %w", err)
	}
	return out, nil
}

// ConnectPool creates a pgx pool for the settings and jobs storage.
// Schema is assumed externally migrated; only connectivity is verified.
func ConnectPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, "SET search_path TO public")
		return err
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}
