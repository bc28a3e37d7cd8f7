// Package session keeps each user's uploaded table in memory and memoizes the
// cleaning pass per file content.
package session

import (
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/minio/highwayhash"
	"golang.org/x/sync/singleflight"

	"datastory/domain/table"
	"datastory/internal/cleaning"
	"datastory/internal/errors"
)

// hashKey salts content hashes. The key is fixed so identical uploads hash
// identically across sessions and restarts.
var hashKey = []byte("datastory-content-hash-key-00001")

// Session holds one user's uploaded dataset.
type Session struct {
	ID          string
	Filename    string
	ContentHash string
	Raw         *table.Table
	UploadedAt  time.Time
}

// Store is a concurrency-safe in-memory session registry. Cleaning results
// are cached per content hash, so re-uploading the same file or re-filtering
// never re-runs the cleaning pipeline.
type Store struct {
	cleaner *cleaning.Cleaner

	mu       sync.RWMutex
	sessions map[string]*Session
	cleaned  map[string]*table.Table

	group singleflight.Group
}

// NewStore creates an empty session store.
func NewStore(cleaner *cleaning.Cleaner) *Store {
	return &Store{
		cleaner:  cleaner,
		sessions: make(map[string]*Session),
		cleaned:  make(map[string]*table.Table),
	}
}

// HashContent computes the keyed content hash of an upload.
func HashContent(r io.Reader) (string, error) {
	h, err := highwayhash.New(hashKey)
	if err != nil {
		return "", fmt.Errorf("failed to create hash: %w", err)
	}
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Put registers a new upload and returns its session. Any previous table
// held under the same session ID is replaced wholesale.
func (s *Store) Put(filename, contentHash string, raw *table.Table) *Session {
	sess := &Session{
		ID:          uuid.New().String(),
		Filename:    filename,
		ContentHash: contentHash,
		Raw:         raw,
		UploadedAt:  time.Now(),
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	log.Printf("[Session] registered %s (%s, %d rows)", sess.ID, filename, raw.NumRows())
	return sess
}

// Replace swaps the dataset behind an existing session. The old content's
// cleaned table is evicted once no session references its hash.
func (s *Store) Replace(id, filename, contentHash string, raw *table.Table) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, errors.NotFound("session")
	}
	oldHash := sess.ContentHash
	sess.Filename = filename
	sess.ContentHash = contentHash
	sess.Raw = raw
	sess.UploadedAt = time.Now()

	if oldHash != contentHash {
		s.evictIfUnreferenced(oldHash)
	}
	return sess, nil
}

// evictIfUnreferenced drops a cleaned-table cache entry no live session uses.
// Callers must hold the write lock.
func (s *Store) evictIfUnreferenced(hash string) {
	for _, sess := range s.sessions {
		if sess.ContentHash == hash {
			return
		}
	}
	delete(s.cleaned, hash)
}

// Get looks up a session by ID.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, errors.NotFound("session")
	}
	return sess, nil
}

// Delete removes a session. The cleaned-table cache entry stays until no
// session references its hash.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return
	}
	delete(s.sessions, id)
	s.evictIfUnreferenced(sess.ContentHash)
}

// Cleaned returns the cleaned table for a session, running the cleaning
// pipeline at most once per distinct file content even under concurrent
// requests.
func (s *Store) Cleaned(id string) (*table.Table, error) {
	sess, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	cached, ok := s.cleaned[sess.ContentHash]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	v, err, _ := s.group.Do(sess.ContentHash, func() (interface{}, error) {
		start := time.Now()
		cleaned := s.cleaner.Clean(sess.Raw)
		log.Printf("[Session] cleaned %s in %s", sess.Filename, time.Since(start))

		s.mu.Lock()
		s.cleaned[sess.ContentHash] = cleaned
		s.mu.Unlock()
		return cleaned, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*table.Table), nil
}

// Count reports how many sessions are live.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
