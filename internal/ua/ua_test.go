// internal/ua/ua_test.go
//
// Unit-tests for user-agent parsing and client IP extraction.
//
// Run: go test ./internal/ua -v

package ua

import (
	"net/http/httptest"
	"testing"

	surfer "github.com/avct/uasurfer"
)

const chromeMac = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36"

func TestParse(t *testing.T) {
	info := Parse(chromeMac)
	if info.Browser != "Chrome" || info.Version != "125" {
		t.Fatalf("browser = %q %q, want Chrome 125", info.Browser, info.Version)
	}
	if info.Device != "Desktop" {
		t.Errorf("device = %q, want Desktop", info.Device)
	}
	if info.IsBot {
		t.Error("Chrome flagged as bot")
	}
	if info.Raw != chromeMac {
		t.Errorf("raw UA not preserved: %q", info.Raw)
	}
}

func TestFromRequestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/buttons/ws", nil)
	r.RemoteAddr = "10.0.0.9:5555"
	if ip := FromRequest(r).IP; ip != "10.0.0.9" {
		t.Fatalf("remote addr: got %q", ip)
	}

	r.Header.Set("X-Real-Ip", "192.0.2.7")
	if ip := FromRequest(r).IP; ip != "192.0.2.7" {
		t.Fatalf("X-Real-Ip: got %q", ip)
	}

	r.Header.Set("X-Forwarded-For", "garbage, 203.0.113.5, 10.0.0.1")
	if ip := FromRequest(r).IP; ip != "203.0.113.5" {
		t.Fatalf("X-Forwarded-For: got %q", ip)
	}
}

func TestVersionToString(t *testing.T) {
	cases := []struct {
		v    surfer.Version
		want string
	}{
		{surfer.Version{}, ""},
		{surfer.Version{Major: 17}, "17"},
		{surfer.Version{Major: 17, Minor: 3}, "17.3"},
		{surfer.Version{Major: 17, Minor: 3, Patch: 1}, "17.3.1"},
	}
	for _, c := range cases {
		if got := versionToString(c.v); got != c.want {
			t.Errorf("versionToString(%+v) = %q, want %q", c.v, got, c.want)
		}
	}
}
