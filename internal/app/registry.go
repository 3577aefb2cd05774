// internal/app/registry.go
//
// A super-light registry: applications call Register(path, builder) in an
// init() function.  The session server looks up the exact URL path (no
// wildcards) and, if found, calls the builder once per new session to
// populate that session's Document.
//
// Builder signature:
//
//	func(doc *lifecycle.Document) error
//
// A builder creates models with doc.Create, binds callbacks on them, and
// may add session_destroyed hooks with doc.OnSessionDestroyed.  Returning
// an error aborts the session before it is attached.
package app

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/yanizio/widgetkit/internal/lifecycle"
)

// Builder is what applications register.
type Builder func(doc *lifecycle.Document) error

var (
	mu       sync.RWMutex
	registry = map[string]Builder{}
)

// Register is called from application init() functions.  path is
// normalized to a leading slash without a trailing one.
func Register(path string, b Builder) {
	if b == nil {
		panic(fmt.Sprintf("app: nil builder for %q", path))
	}
	mu.Lock()
	registry[Normalize(path)] = b
	mu.Unlock()
}

// Lookup returns the builder for an exact path or nil.
func Lookup(path string) Builder {
	mu.RLock()
	defer mu.RUnlock()
	return registry[Normalize(path)]
}

// Paths lists registered paths in lexical order.
func Paths() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(registry))
	for p := range registry {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Normalize maps "buttons", "/buttons/" and "/buttons" to "/buttons".
func Normalize(path string) string {
	return "/" + strings.Trim(path, "/")
}
