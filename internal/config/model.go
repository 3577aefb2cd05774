// internal/config/model.go
//
// Typed configuration model for widgetkit.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   - optional `.env`                             dotenv values,
//   - `conf/global.yaml`                          primary static file,
//   - `WIDGETKIT_`-prefixed environment overrides highest precedence.
//
// Any value whose string begins with the prefix `vault:` is resolved
// through the secrets client *before* unmarshalling, so the model never
// stores Vault URIs, only plain strings.
//
// Validation happens immediately after unmarshal; the app fails fast if
// required fields are missing.
//
// Notes
// -----
//   - Struct tags use `koanf:"..."`, not `yaml:"..."`.  Koanf ignores `yaml`
//     tags unless configured otherwise.
//   - Durations accept Go syntax ("90s", "30m").
//   - The `Paths` block is filled at runtime; YAML must not try to set it.
package config

import (
	"fmt"
	"time"
)

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr     string        `koanf:"listen_addr"     validate:"required,hostname_port"`
	ReadTimeout    time.Duration `koanf:"read_timeout"    validate:"gte=0"`
	WriteTimeout   time.Duration `koanf:"write_timeout"   validate:"gte=0"`
	IdleTimeout    time.Duration `koanf:"idle_timeout"    validate:"gte=0"`
	AllowedOrigins []string      `koanf:"allowed_origins" validate:"dive,url"`
}

//
// Session section
//

// Session tunes the live session manager and the websocket transport.
type Session struct {
	IdleTTL          time.Duration `koanf:"idle_ttl"           validate:"gte=0"`
	MaxSessions      int           `koanf:"max_sessions"       validate:"gte=-1"`
	EvictInterval    time.Duration `koanf:"evict_interval"     validate:"gte=0"`
	KeepOnDisconnect bool          `koanf:"keep_on_disconnect"`
	SendBuffer       int           `koanf:"send_buffer"        validate:"gte=0"`
	ReadLimit        int64         `koanf:"read_limit"         validate:"gte=0"`
}

//
// Remote section
//

// Remote configures the optional NATS mirror of remote invocations.  An
// empty NATSURL disables it.
type Remote struct {
	NATSURL       string `koanf:"nats_url"       validate:"omitempty,nats_url"`
	SubjectPrefix string `koanf:"subject_prefix" validate:"required_with=NATSURL"`
}

//
// Database section
//

// Database holds the session journal DSN and secrets.  An empty DSN
// disables the journal.
//
// The DSN is a fmt template with one %s for the password, kept in YAML so
// operators can tweak host, port, or flags without touching Vault.  The
// password is normally a `vault:` reference resolved at load time.
type Database struct {
	DSN      string `koanf:"dsn"      validate:"omitempty,dsn_template"`
	Password string `koanf:"password" validate:"required_with=DSN"`
	MaxOpen  int    `koanf:"max_open" validate:"gte=0"`
	MaxIdle  int    `koanf:"max_idle" validate:"gte=0"`
	Migrate  bool   `koanf:"migrate"`
}

//
// Log section
//

// Log selects the minimum level and the log directory (relative to root).
type Log struct {
	Level string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
	Dir   string `koanf:"dir"`
}

//
// Widgets section
//

// Widgets points at a directory of YAML type declarations applied after
// the built-in catalog.  Relative paths are resolved against root.
type Widgets struct {
	Dir string `koanf:"dir"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime, never set in YAML or env.  The loader
// discovers `Root` (repo root or WIDGETKIT_ROOT override) so later code
// can build absolute file paths.
type Paths struct {
	Root string // WIDGETKIT_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP     HTTP     `koanf:"http"`
	Session  Session  `koanf:"session"`
	Remote   Remote   `koanf:"remote"`
	Database Database `koanf:"database"`
	Log      Log      `koanf:"log"`
	Widgets  Widgets  `koanf:"widgets"`
	Paths    Paths    `koanf:"-"` // not loaded from config files
}

// DatabaseDSN returns the DSN with the password filled in, or "" when the
// journal is disabled.
func (c *Config) DatabaseDSN() string {
	if c.Database.DSN == "" {
		return ""
	}
	return fmt.Sprintf(c.Database.DSN, c.Database.Password)
}
