// internal/sessionlog/store_test.go
//
// Unit-tests for the session journal using sqlmock.
//
// Run: go test ./internal/sessionlog -v

package sessionlog

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/yanizio/widgetkit/internal/lifecycle"
	"github.com/yanizio/widgetkit/internal/schema"
	"github.com/yanizio/widgetkit/internal/session"
	"github.com/yanizio/widgetkit/internal/ua"
)

var _ session.Journal = (*Store)(nil)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(sqlx.NewDb(db, "sqlmock")), mock
}

func TestOpenedInsertsRow(t *testing.T) {
	store, mock := newMock(t)
	doc := lifecycle.NewDocument(schema.New())
	sc := lifecycle.NewSessionContext("s1", doc, ua.Info{
		Browser: "Chrome", OS: "Linux", Device: "Desktop", IP: "10.1.1.1",
	})

	mock.ExpectExec(regexp.QuoteMeta(
		`INSERT INTO session_log (session_id, app, browser, os, device, ip, opened_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)).
		WithArgs("s1", "/buttons", "Chrome", "Linux", "Desktop", "10.1.1.1", sc.Opened).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.Opened(context.Background(), sc, "/buttons"); err != nil {
		t.Fatalf("Opened: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestClosedRecordsTeardownError(t *testing.T) {
	store, mock := newMock(t)
	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return at }

	q := regexp.QuoteMeta(`UPDATE session_log SET closed_at = ?, reason = ?, teardown_error = ? WHERE session_id = ?`)
	mock.ExpectExec(q).
		WithArgs(at, "idle", nil, "s1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).
		WithArgs(at, "closed", "cleanup failed", "s2").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ctx := context.Background()
	if err := store.Closed(ctx, "s1", "idle", nil); err != nil {
		t.Fatalf("Closed s1: %v", err)
	}
	if err := store.Closed(ctx, "s2", "closed", errors.New("cleanup failed")); err != nil {
		t.Fatalf("Closed s2: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestMissingTableDisablesStore(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectExec("UPDATE session_log").
		WillReturnError(errors.New("Error 1146 (42S02): Table 'wk.session_log' doesn't exist"))

	ctx := context.Background()
	if err := store.Closed(ctx, "s1", "closed", nil); err != nil {
		t.Fatalf("missing table should be swallowed: %v", err)
	}
	// No further statements are issued once disabled.
	if err := store.Closed(ctx, "s2", "closed", nil); err != nil {
		t.Fatalf("disabled store: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestOtherErrorsPropagate(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectExec("UPDATE session_log").WillReturnError(errors.New("connection reset"))

	err := store.Closed(context.Background(), "s1", "closed", nil)
	if err == nil || !strings.Contains(err.Error(), "connection reset") {
		t.Fatalf("want connection reset, got %v", err)
	}
}

func TestRecent(t *testing.T) {
	store, mock := newMock(t)
	opened := time.Date(2026, 5, 1, 11, 0, 0, 0, time.UTC)
	closed := opened.Add(time.Hour)

	cols := []string{"session_id", "app", "browser", "os", "device", "ip", "opened_at", "closed_at", "reason", "teardown_error"}
	mock.ExpectQuery(regexp.QuoteMeta(`FROM session_log ORDER BY opened_at DESC LIMIT ?`)).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("s2", "/buttons", "Firefox", "Linux", "Desktop", "10.0.0.2", opened, nil, nil, nil).
			AddRow("s1", "/buttons", "Chrome", "macOS", "Desktop", "10.0.0.1", opened, closed, "idle", "boom"))

	recs, err := store.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	if recs[0].ClosedAt.Valid {
		t.Error("open session has closed_at")
	}
	if recs[1].Reason.String != "idle" {
		t.Errorf("reason = %q, want idle", recs[1].Reason.String)
	}

	data, err := json.Marshal(recs[1])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var view map[string]any
	if err := json.Unmarshal(data, &view); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if view["teardown_error"] != "boom" {
		t.Errorf("teardown_error = %v", view["teardown_error"])
	}
	if _, ok := view["closed_at"]; !ok {
		t.Error("closed session missing closed_at")
	}

	data, err = json.Marshal(recs[0])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), "closed_at") {
		t.Errorf("open session JSON carries closed_at: %s", data)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestMigrate(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS session_log")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}
