// Package monitor keeps a registry of watched targets, re-checks them on an
// interval and raises up/down alerts.
package monitor

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/webwatch/webwatch/internal/validate"
)

var (
	ErrInvalidURL = errors.New("invalid url")
	ErrExists     = errors.New("target already registered")
	ErrNotFound   = errors.New("target not registered")
)

// Entry is one watched target.
type Entry struct {
	URL     string    `json:"url"`
	AddedAt time.Time `json:"added_at"`
}

// Registry is the mutable set of targets the watcher re-checks. Adds are
// gated by the URL validator and normalized before storage, so every stored
// key is a checkable URL.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Add validates and registers raw. The normalized form is returned in the
// entry; re-adding an existing target is ErrExists.
func (r *Registry) Add(raw string) (Entry, error) {
	norm := validate.Normalize(strings.TrimSpace(raw))
	if !validate.IsValidURL(norm) {
		return Entry{}, fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[norm]; ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrExists, norm)
	}
	e := Entry{URL: norm, AddedAt: time.Now().UTC()}
	r.entries[norm] = e
	return e, nil
}

func (r *Registry) Remove(url string) error {
	norm := validate.Normalize(strings.TrimSpace(url))
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[norm]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, norm)
	}
	delete(r.entries, norm)
	return nil
}

// All returns the entries sorted by URL for stable listings.
func (r *Registry) All() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out
}

// URLs returns the registered target URLs sorted by URL.
func (r *Registry) URLs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.entries))
	for url := range r.entries {
		out = append(out, url)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
