// internal/database/database_test.go
//
// Unit-tests for pool defaults and driver error classification.
//
// Run: go test ./internal/database -v

package database

import (
	"errors"
	"testing"
	"time"
)

func TestPoolDefaults(t *testing.T) {
	p := Pool{MaxOpen: 3}.withDefaults()
	if p.MaxOpen != 3 {
		t.Fatalf("MaxOpen overridden: got %d", p.MaxOpen)
	}
	if p.MaxIdle != DefaultPool.MaxIdle {
		t.Errorf("MaxIdle = %d, want %d", p.MaxIdle, DefaultPool.MaxIdle)
	}
	if p.MaxLifetime != 30*time.Minute {
		t.Errorf("MaxLifetime = %v, want 30m", p.MaxLifetime)
	}
	if p.PingTimeout != DefaultPool.PingTimeout {
		t.Errorf("PingTimeout = %v, want %v", p.PingTimeout, DefaultPool.PingTimeout)
	}
}

func TestIsUnknownTable(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{errors.New("Error 1146 (42S02): Table 'wk.session_log' doesn't exist"), true},
		{errors.New(`pq: relation "session_log" does not exist (SQLSTATE 42P01)`), true},
		{errors.New("connection refused"), false},
		{nil, false},
	}
	for _, c := range cases {
		if got := IsUnknownTable(c.err); got != c.want {
			t.Errorf("IsUnknownTable(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestOpenRejectsBadDSN(t *testing.T) {
	if _, err := OpenWithOptions("not a dsn", Pool{PingTimeout: time.Second}); err == nil {
		t.Fatal("expected error for malformed DSN")
	}
}
