package storage

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	sessionBucket    = "sessions"
	metaBucket       = "meta"
	currentKey       = "current"
	expiryValueBytes = 8
)

// boltStore implements a Store backed by BoltDB.
type boltStore struct {
	db              *bolt.DB
	cleanupMu       sync.Mutex
	lastCleanup     atomic.Int64
	sessionTTL      time.Duration
	cleanupInterval time.Duration
	now             func() time.Time
}

// openBolt initializes a BoltDB-backed Store.
func openBolt(path string, opts Options) (Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{sessionBucket, metaBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init buckets: %w", err)
	}

	store := &boltStore{
		db:              db,
		sessionTTL:      opts.SessionTTL,
		cleanupInterval: opts.CleanupInterval,
		now:             time.Now,
	}
	store.lastCleanup.Store(store.now().Unix())
	return store, nil
}

// Close closes the BoltDB store.
func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// Remember stores id with a fresh expiry and marks it current.
func (b *boltStore) Remember(id string) error {
	if b == nil || b.db == nil {
		return nil
	}
	if id == "" {
		return fmt.Errorf("session id is empty")
	}

	now := b.now()
	if err := b.maybeCleanupExpired(now); err != nil {
		return err
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		sessions, meta, err := buckets(tx)
		if err != nil {
			return err
		}
		buf := make([]byte, expiryValueBytes)
		binary.BigEndian.PutUint64(buf, uint64(now.Add(b.sessionTTL).Unix()))
		if err := sessions.Put([]byte(id), buf); err != nil {
			return err
		}
		return meta.Put([]byte(currentKey), []byte(id))
	})
}

// Forget removes id and clears the current pointer when it matches.
func (b *boltStore) Forget(id string) error {
	if b == nil || b.db == nil || id == "" {
		return nil
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		sessions, meta, err := buckets(tx)
		if err != nil {
			return err
		}
		if err := sessions.Delete([]byte(id)); err != nil {
			return err
		}
		if string(meta.Get([]byte(currentKey))) == id {
			return meta.Delete([]byte(currentKey))
		}
		return nil
	})
}

// Current returns the current session if it has not expired. Expired entries
// are removed on read.
func (b *boltStore) Current() (string, bool, error) {
	if b == nil || b.db == nil {
		return "", false, nil
	}

	now := b.now()
	if err := b.maybeCleanupExpired(now); err != nil {
		return "", false, err
	}

	var (
		id   string
		live bool
	)
	err := b.db.Update(func(tx *bolt.Tx) error {
		sessions, meta, err := buckets(tx)
		if err != nil {
			return err
		}

		cur := meta.Get([]byte(currentKey))
		if cur == nil {
			return nil
		}

		expiry, ok := decodeExpiry(sessions.Get(cur))
		if !ok || !expiry.After(now) {
			if err := sessions.Delete(cur); err != nil {
				return err
			}
			return meta.Delete([]byte(currentKey))
		}

		id = string(cur)
		live = true
		return nil
	})
	if err != nil {
		return "", false, err
	}
	return id, live, nil
}

func buckets(tx *bolt.Tx) (*bolt.Bucket, *bolt.Bucket, error) {
	sessions := tx.Bucket([]byte(sessionBucket))
	meta := tx.Bucket([]byte(metaBucket))
	if sessions == nil || meta == nil {
		return nil, nil, fmt.Errorf("session buckets missing")
	}
	return sessions, meta, nil
}

// maybeCleanupExpired removes expired sessions on a fixed cadence to avoid unbounded growth.
func (b *boltStore) maybeCleanupExpired(now time.Time) error {
	last := time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	b.cleanupMu.Lock()
	defer b.cleanupMu.Unlock()

	last = time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		sessions, _, err := buckets(tx)
		if err != nil {
			return err
		}

		cursor := sessions.Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			expiry, ok := decodeExpiry(v)
			if !ok || !expiry.After(now) {
				if err := cursor.Delete(); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err == nil {
		b.lastCleanup.Store(now.Unix())
	}
	return err
}

// decodeExpiry decodes the expiry time from the stored byte slice.
func decodeExpiry(value []byte) (time.Time, bool) {
	if len(value) != expiryValueBytes {
		return time.Time{}, false
	}
	unix := int64(binary.BigEndian.Uint64(value))
	if unix <= 0 {
		return time.Time{}, false
	}
	return time.Unix(unix, 0), true
}
