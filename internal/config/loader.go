// internal/config/loader.go
//
// Configuration loader and hot-reloader.
//
/*
Context
--------
`Load()` builds one immutable `Config` struct from three layers (highest
precedence last):

  1. Optional `.env` file at `<root>/conf/.env`.
  2. `conf/global.yaml`.
  3. Environment variables prefixed `WIDGETKIT_`, where `__` maps to "."
     (e.g., `WIDGETKIT_HTTP__LISTEN_ADDR → http.listen_addr`).

String values starting with `vault:` are then swapped for the secret they
name, using the resolver passed with WithSecrets.  After merging, the tree
is unmarshalled into strongly-typed structs, defaulted, validated, enriched
with the runtime root path, and cached in an `atomic.Pointer` for
lock-free reads.  `Reload()` calls `Load()` again with the same options and
swaps the pointer.

Instrumentation
---------------
  - DEBUG spans for root discovery, YAML read, env overlay.
  - ERROR spans for YAML parse, env overlay, secrets, unmarshal, and
    validation failures.
  - INFO span for the final "config loaded" with key highlights.
  - Logs use the global sugared logger (`zap.S()`) so early boot issues
    surface even before the file logger is installed.
*/
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"
)

const (
	envPrefix = "WIDGETKIT_"
	refPrefix = "vault:"
)

var (
	current  atomic.Pointer[Config]
	lastOpts atomic.Pointer[[]Option]
)

// Resolver turns a `vault:` reference into its secret value.
type Resolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

type options struct {
	root    string
	secrets Resolver
	timeout time.Duration
}

// Option tunes Load.
type Option func(*options)

// WithRoot skips root discovery.
func WithRoot(dir string) Option { return func(o *options) { o.root = dir } }

// WithSecrets resolves `vault:` references through r.
func WithSecrets(r Resolver) Option { return func(o *options) { o.secrets = r } }

/*──────────────────────────── root discovery ───────────────────────────────*/

// rootDir resolves WIDGETKIT_ROOT or climbs directories until
// conf/global.yaml is found.  Falls back to executable heuristic for
// production layout.
func rootDir() string {
	if r := os.Getenv(envPrefix + "ROOT"); r != "" {
		return r
	}

	wd, _ := os.Getwd()
	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "conf", "global.yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir { // reached filesystem root
			break
		}
		dir = parent
	}

	exe, _ := os.Executable()
	if filepath.Base(filepath.Dir(exe)) == "bin" {
		return filepath.Dir(filepath.Dir(exe))
	}
	return wd
}

/*─────────────────────────────── loader ───────────────────────────────────*/

// Load reads .env, YAML, env overrides, resolves secrets, validates, and
// caches Config.
func Load(opts ...Option) (*Config, error) {
	o := options{timeout: 10 * time.Second}
	for _, fn := range opts {
		fn(&o)
	}
	root := o.root
	if root == "" {
		root = rootDir()
	}
	zap.S().Debugw("config root resolved", "root", root)

	// .env (optional, no error if missing)
	_ = godotenv.Load(filepath.Join(root, "conf", ".env"))

	k := koanf.New(".")

	yamlPath := filepath.Join(root, "conf", "global.yaml")
	if err := k.Load(file.Provider(yamlPath), yaml.Parser()); err != nil {
		zap.S().Errorw("config yaml load failed", "file", yamlPath, "err", err)
		return nil, fmt.Errorf("config yaml %s: %w", yamlPath, err)
	}
	zap.S().Debugw("config yaml loaded", "file", yamlPath)

	// Env overrides: WIDGETKIT_HTTP__LISTEN_ADDR → http.listen_addr
	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		zap.S().Errorw("config env overlay failed", "err", err)
		return nil, fmt.Errorf("config env: %w", err)
	}

	if err := resolveSecrets(k, o); err != nil {
		zap.S().Errorw("config secrets failed", "err", err)
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		zap.S().Errorw("config unmarshal failed", "err", err)
		return nil, fmt.Errorf("config unmarshal: %w", err)
	}

	cfg.Paths.Root = root
	cfg.applyDefaults()
	if err := validateStruct(&cfg); err != nil {
		zap.S().Errorw("config validation failed", "err", err)
		return nil, fmt.Errorf("config validate: %w", err)
	}

	current.Store(&cfg)
	lastOpts.Store(&opts)
	zap.S().Infow("config loaded",
		"listen_addr", cfg.HTTP.ListenAddr,
		"journal", cfg.Database.DSN != "",
		"nats", cfg.Remote.NATSURL != "",
		"root", cfg.Paths.Root,
	)
	return &cfg, nil
}

// envKey maps WIDGETKIT_SESSION__IDLE_TTL to session.idle_ttl.
func envKey(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	return strings.ToLower(strings.ReplaceAll(s, "__", "."))
}

// resolveSecrets swaps every `vault:` string for its secret, in key order.
func resolveSecrets(k *koanf.Koanf, o options) error {
	var refs []string
	for key, val := range k.All() {
		if s, ok := val.(string); ok && strings.HasPrefix(s, refPrefix) {
			refs = append(refs, key)
		}
	}
	if len(refs) == 0 {
		return nil
	}
	if o.secrets == nil {
		return fmt.Errorf("config: %s is a vault reference but no secrets client is configured", refs[0])
	}
	sort.Strings(refs)

	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()
	for _, key := range refs {
		val, err := o.secrets.Resolve(ctx, k.String(key))
		if err != nil {
			return fmt.Errorf("config %s: %w", key, err)
		}
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("config %s: %w", key, err)
		}
		zap.S().Debugw("config secret resolved", "key", key)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.HTTP.ListenAddr == "" {
		c.HTTP.ListenAddr = ":8080"
	}
	if c.Remote.NATSURL != "" && c.Remote.SubjectPrefix == "" {
		c.Remote.SubjectPrefix = "widgetkit"
	}
	if c.Log.Dir == "" {
		c.Log.Dir = "logs"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Widgets.Dir != "" && !filepath.IsAbs(c.Widgets.Dir) {
		c.Widgets.Dir = filepath.Join(c.Paths.Root, c.Widgets.Dir)
	}
	if !filepath.IsAbs(c.Log.Dir) {
		c.Log.Dir = filepath.Join(c.Paths.Root, c.Log.Dir)
	}
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

// Get returns the last loaded Config, or nil before the first Load.
func Get() *Config { return current.Load() }

// Reload loads again with the options of the last successful Load.
func Reload() error {
	var opts []Option
	if p := lastOpts.Load(); p != nil {
		opts = *p
	}
	_, err := Load(opts...)
	return err
}
