// Package storage remembers which backend chat sessions this console has opened.
package storage

import (
	"fmt"
	"strings"
	"time"
)

// Store tracks session ids and which one is current.
type Store interface {
	Close() error
	// Remember records id as known and makes it the current session.
	Remember(id string) error
	// Forget drops id, clearing the current pointer if it referenced id.
	Forget(id string) error
	// Current returns the current session id, if one is live.
	Current() (string, bool, error)
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	SessionTTL      time.Duration
	CleanupInterval time.Duration
}

const (
	defaultSessionTTL      = 24 * time.Hour
	defaultCleanupInterval = time.Hour
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = defaultSessionTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopStore struct{}

func (noopStore) Close() error                   { return nil }
func (noopStore) Remember(string) error          { return nil }
func (noopStore) Forget(string) error            { return nil }
func (noopStore) Current() (string, bool, error) { return "", false, nil }
