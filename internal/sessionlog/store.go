// internal/sessionlog/store.go
//
// SQL audit log of browser sessions.
//
// Context
// -------
// One row per session: who opened it, on which app, when it ended, and
// why.  When a session_destroyed callback fails the error text is kept in
// teardown_error so operators can find sessions whose cleanup did not
// finish.  Store implements session.Journal.
//
// Schema
// ------
//
//	CREATE TABLE session_log (
//	  session_id     VARCHAR(64)  NOT NULL PRIMARY KEY,
//	  app            VARCHAR(255) NOT NULL,
//	  browser        VARCHAR(64)  NOT NULL DEFAULT '',
//	  os             VARCHAR(64)  NOT NULL DEFAULT '',
//	  device         VARCHAR(16)  NOT NULL DEFAULT '',
//	  ip             VARCHAR(45)  NOT NULL DEFAULT '',
//	  opened_at      DATETIME(6)  NOT NULL,
//	  closed_at      DATETIME(6)  NULL,
//	  reason         VARCHAR(16)  NULL,
//	  teardown_error TEXT         NULL
//	)
//
// Notes
// -----
//   - Writes are best effort.  A missing table is logged once and turns
//     the store into a no-op instead of failing every session.
package sessionlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yanizio/widgetkit/internal/database"
	"github.com/yanizio/widgetkit/internal/lifecycle"
)

const schemaDDL = `CREATE TABLE IF NOT EXISTS session_log (
  session_id     VARCHAR(64)  NOT NULL PRIMARY KEY,
  app            VARCHAR(255) NOT NULL,
  browser        VARCHAR(64)  NOT NULL DEFAULT '',
  os             VARCHAR(64)  NOT NULL DEFAULT '',
  device         VARCHAR(16)  NOT NULL DEFAULT '',
  ip             VARCHAR(45)  NOT NULL DEFAULT '',
  opened_at      DATETIME(6)  NOT NULL,
  closed_at      DATETIME(6)  NULL,
  reason         VARCHAR(16)  NULL,
  teardown_error TEXT         NULL
)`

// Record is one session_log row.
type Record struct {
	SessionID     string         `db:"session_id"`
	App           string         `db:"app"`
	Browser       string         `db:"browser"`
	OS            string         `db:"os"`
	Device        string         `db:"device"`
	IP            string         `db:"ip"`
	OpenedAt      time.Time      `db:"opened_at"`
	ClosedAt      sql.NullTime   `db:"closed_at"`
	Reason        sql.NullString `db:"reason"`
	TeardownError sql.NullString `db:"teardown_error"`
}

// MarshalJSON flattens the nullable columns.
func (r Record) MarshalJSON() ([]byte, error) {
	type view struct {
		SessionID     string     `json:"session_id"`
		App           string     `json:"app"`
		Browser       string     `json:"browser,omitempty"`
		OS            string     `json:"os,omitempty"`
		Device        string     `json:"device,omitempty"`
		IP            string     `json:"ip,omitempty"`
		OpenedAt      time.Time  `json:"opened_at"`
		ClosedAt      *time.Time `json:"closed_at,omitempty"`
		Reason        string     `json:"reason,omitempty"`
		TeardownError string     `json:"teardown_error,omitempty"`
	}
	v := view{
		SessionID:     r.SessionID,
		App:           r.App,
		Browser:       r.Browser,
		OS:            r.OS,
		Device:        r.Device,
		IP:            r.IP,
		OpenedAt:      r.OpenedAt,
		Reason:        r.Reason.String,
		TeardownError: r.TeardownError.String,
	}
	if r.ClosedAt.Valid {
		v.ClosedAt = &r.ClosedAt.Time
	}
	return json.Marshal(v)
}

// Store writes session_log rows.
type Store struct {
	db       *sqlx.DB
	now      func() time.Time
	disabled atomic.Bool
}

// New wraps db.
func New(db *sqlx.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Migrate creates the table when missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("migrate session_log: %w", err)
	}
	return nil
}

// Opened inserts the row for a new session.
func (s *Store) Opened(ctx context.Context, sc *lifecycle.SessionContext, appPath string) error {
	if s.disabled.Load() {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO session_log (session_id, app, browser, os, device, ip, opened_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sc.ID, appPath, sc.Client.Browser, sc.Client.OS, sc.Client.Device, sc.Client.IP, sc.Opened)
	return s.check("insert", err)
}

// Closed stamps the end of a session.  teardownErr may be nil.
func (s *Store) Closed(ctx context.Context, id, reason string, teardownErr error) error {
	if s.disabled.Load() {
		return nil
	}
	var msg sql.NullString
	if teardownErr != nil {
		msg = sql.NullString{String: teardownErr.Error(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE session_log SET closed_at = ?, reason = ?, teardown_error = ? WHERE session_id = ?`,
		s.now(), reason, msg, id)
	return s.check("update", err)
}

// Recent returns the latest sessions, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []Record
	err := s.db.SelectContext(ctx, &out,
		`SELECT session_id, app, browser, os, device, ip, opened_at, closed_at, reason, teardown_error FROM session_log ORDER BY opened_at DESC LIMIT ?`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("select session_log: %w", err)
	}
	return out, nil
}

func (s *Store) check(op string, err error) error {
	if err == nil {
		return nil
	}
	if database.IsUnknownTable(err) {
		if s.disabled.CompareAndSwap(false, true) {
			zap.L().Warn("session_log table missing; session journal disabled", zap.Error(err))
		}
		return nil
	}
	return fmt.Errorf("session_log %s: %w", op, err)
}
