// internal/ua/ua.go
//
// Client metadata for browser sessions.
//
// This wrapper isolates the third-party `github.com/avct/uasurfer` API so
// the rest of the codebase never sees its enums or structs.  The session
// server fills an Info from the websocket upgrade request and hands it to
// the SessionContext, where session_destroyed callbacks can read it.
package ua

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"

	surfer "github.com/avct/uasurfer"
)

// Info carries the client attributes recorded per session.
//
// Device is one of "Desktop", "Mobile", "Tablet", or "Other".
type Info struct {
	Browser   string `json:"browser"`
	Version   string `json:"version"`
	OS        string `json:"os"`
	OSVersion string `json:"os_version"`
	Device    string `json:"device"`
	IsBot     bool   `json:"is_bot"`
	IP        string `json:"ip"`
	Raw       string `json:"-"`
}

// Parse converts a raw User-Agent header into an Info.
func Parse(raw string) Info {
	u := surfer.Parse(raw)

	info := Info{
		Browser:   u.Browser.Name.StringTrimPrefix(),
		Version:   versionToString(u.Browser.Version),
		OS:        u.OS.Name.StringTrimPrefix(),
		OSVersion: versionToString(u.OS.Version),
		IsBot:     u.IsBot(),
		Raw:       raw,
	}

	switch u.DeviceType {
	case surfer.DeviceComputer:
		info.Device = "Desktop"
	case surfer.DeviceTablet:
		info.Device = "Tablet"
	case surfer.DevicePhone, surfer.DeviceWearable:
		info.Device = "Mobile"
	default:
		info.Device = "Other"
	}
	return info
}

// FromRequest parses the User-Agent and client address of r.  The
// left-most X-Forwarded-For entry wins over X-Real-Ip, which wins over
// RemoteAddr.
func FromRequest(r *http.Request) Info {
	info := Parse(r.UserAgent())
	info.IP = clientIP(r)
	return info
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for _, part := range strings.Split(xff, ",") {
			if ip := net.ParseIP(strings.TrimSpace(part)); ip != nil {
				return ip.String()
			}
		}
	}
	if xrip := r.Header.Get("X-Real-Ip"); xrip != "" {
		if ip := net.ParseIP(strings.TrimSpace(xrip)); ip != nil {
			return ip.String()
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// versionToString renders a version in dotted form while trimming trailing
// zeros, e.g. 17.0.0 → "17", 17.3.0 → "17.3", 17.3.1 → "17.3.1".
func versionToString(v surfer.Version) string {
	if v.Major == 0 && v.Minor == 0 && v.Patch == 0 {
		return ""
	}
	if v.Patch != 0 {
		return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	}
	if v.Minor != 0 {
		return fmt.Sprintf("%d.%d", v.Major, v.Minor)
	}
	return strconv.Itoa(int(v.Major))
}
