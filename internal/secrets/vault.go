// internal/secrets/vault.go
//
// Vault client wrapper for widgetkit.
//
// Context
// -------
//   - Provides a concurrency-safe client around the HashiCorp Vault Go SDK.
//   - Adds background token renewal, simple KV-v2 helpers, and per-key caching.
//   - Resolves `vault:<mount>/<path>#<key>` references found in
//     configuration, so the database password never sits in YAML.
//
// Public workflow
// ---------------
//  1. cli, err := secrets.New(ctx)                  // during boot.
//  2. pw,  err := cli.GetKV(ctx, path, key, ttl)    // anywhere in the app.
//  3. v,   err := cli.Resolve(ctx, "vault:kv/widgetkit/db#password")
package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	vault "github.com/hashicorp/vault/api"
	"go.uber.org/zap"
)

// RefPrefix marks a configuration value as a Vault reference.
const RefPrefix = "vault:"

// DefaultTTL is how long Resolve caches a secret.
const DefaultTTL = 5 * time.Minute

// ErrBadRef is returned for a malformed vault: reference.
var ErrBadRef = errors.New("malformed vault reference")

//
// SECTION 1.  Public facade
//

// Client is safe for concurrent use.  Create once at startup.  Zero value
// is invalid.
type Client struct {
	api *vault.Client

	cacheMu sync.RWMutex
	cache   map[string]cached // canonical path#key → value + expiry.
}

type cached struct {
	val string
	exp time.Time
}

// New constructs a Vault client and starts a background token-renewal loop
// that stops with ctx.
//
// Environment expectations
// ------------------------
//   - VAULT_ADDR   scheme and host of the Vault server.
//   - VAULT_TOKEN  initial token (falls back to ~/.vault-token).
func New(ctx context.Context) (*Client, error) {
	cfg := vault.DefaultConfig()
	if err := cfg.ReadEnvironment(); err != nil {
		return nil, fmt.Errorf("vault env cfg: %w", err)
	}

	apiCli, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault api: %w", err)
	}
	if tok := os.Getenv("VAULT_TOKEN"); tok != "" {
		apiCli.SetToken(tok)
	}

	c := wrap(apiCli)
	go c.renewLoop(ctx)
	return c, nil
}

func wrap(apiCli *vault.Client) *Client {
	return &Client{api: apiCli, cache: make(map[string]cached)}
}

// GetKV fetches a single key from a KV-v2 secret.  If ttl > 0 the result is
// cached for that duration.  Subsequent callers within the TTL receive the
// cached copy.
func (c *Client) GetKV(ctx context.Context, secretPath, key string, ttl time.Duration) (string, error) {
	if secretPath == "" || key == "" {
		return "", errors.New("secret path and key must be non-empty")
	}

	canonical := secretPath + "#" + key

	if ttl > 0 {
		c.cacheMu.RLock()
		if cv, ok := c.cache[canonical]; ok && time.Now().Before(cv.exp) {
			c.cacheMu.RUnlock()
			return cv.val, nil
		}
		c.cacheMu.RUnlock()
	}

	mount, rel := splitMount(secretPath)
	sec, err := c.api.KVv2(mount).Get(ctx, rel)
	if err != nil {
		return "", fmt.Errorf("vault get %s: %w", secretPath, err)
	}

	raw, ok := sec.Data[key]
	if !ok {
		return "", fmt.Errorf("key %q not found in secret %q", key, secretPath)
	}

	sval, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("value at %s#%s is not a string", secretPath, key)
	}

	if ttl > 0 {
		c.cacheMu.Lock()
		c.cache[canonical] = cached{val: sval, exp: time.Now().Add(ttl)}
		c.cacheMu.Unlock()
	}

	return sval, nil
}

// Resolve returns the secret named by ref, which must be
// `vault:<mount>/<path>#<key>`.
func (c *Client) Resolve(ctx context.Context, ref string) (string, error) {
	path, key, err := ParseRef(ref)
	if err != nil {
		return "", err
	}
	return c.GetKV(ctx, path, key, DefaultTTL)
}

// IsRef reports whether s is a vault: reference.
func IsRef(s string) bool { return strings.HasPrefix(s, RefPrefix) }

// ParseRef splits `vault:<mount>/<path>#<key>` into path and key.
func ParseRef(ref string) (path, key string, err error) {
	if !IsRef(ref) {
		return "", "", fmt.Errorf("%w: %q lacks %q", ErrBadRef, ref, RefPrefix)
	}
	body := strings.TrimPrefix(ref, RefPrefix)
	path, key, ok := strings.Cut(body, "#")
	if !ok || key == "" || !strings.Contains(strings.Trim(path, "/"), "/") {
		return "", "", fmt.Errorf("%w: %q", ErrBadRef, ref)
	}
	return strings.Trim(path, "/"), key, nil
}

//
// SECTION 2.  Background token renewal
//

func (c *Client) renewLoop(ctx context.Context) {
	log := zap.S().With("component", "vault")
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		// Probe the current token.
		sec, err := c.api.Auth().Token().RenewSelfWithContext(ctx, 0)
		if err != nil {
			log.Warnw("token renew self failed", "err", err)
			backoff(ctx, 30*time.Second)
			continue
		}

		if sec == nil || sec.Auth == nil || !sec.Auth.Renewable {
			log.Infow("token is not renewable, sleeping 1h")
			backoff(ctx, time.Hour)
			continue
		}

		watcher, err := c.api.NewLifetimeWatcher(&vault.LifetimeWatcherInput{
			Secret: sec,
		})
		if err != nil {
			log.Warnw("lifetime watcher init", "err", err)
			backoff(ctx, 30*time.Second)
			continue
		}

		if !c.watch(ctx, watcher, log) {
			return
		}
		backoff(ctx, 15*time.Second)
	}
}

// watch runs one watcher until it stops.  It returns false when ctx ends.
func (c *Client) watch(ctx context.Context, w *vault.LifetimeWatcher, log *zap.SugaredLogger) bool {
	go w.Start()
	defer w.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case err := <-w.DoneCh():
			if err != nil {
				log.Warnw("token renewal stopped", "err", err)
			}
			return true
		case ev := <-w.RenewCh():
			if ev != nil && ev.Secret != nil && ev.Secret.Auth != nil {
				log.Infow("token renewed", "ttl_seconds", ev.Secret.Auth.LeaseDuration)
			}
		}
	}
}

//
// SECTION 3.  Helpers
//

func splitMount(p string) (mount, rel string) {
	if p == "" {
		return "", ""
	}
	parts := strings.SplitN(p, "/", 2)
	mount = parts[0]
	if len(parts) == 2 {
		rel = parts[1]
	}
	return
}

func backoff(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
