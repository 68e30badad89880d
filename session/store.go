// Package session keeps one dataset per viewer session
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/subtlepseudonym/forcelog"
)

const DefaultTTL = 2 * time.Hour

var (
	ErrNotFound  = errors.New("session not found")
	ErrNoDataset = errors.New("no dataset loaded")
	ErrSelection = errors.New("invalid selection")
)

// Session is a snapshot of a viewer session. Dataset is shared and must not
// be modified.
type Session struct {
	ID       string
	Dataset  *forcelog.Dataset
	Table    string
	Head     int
	LastSeen time.Time
}

// Store holds the sessions of a viewer process. Each session owns its
// dataset; a new upload replaces only that session's dataset.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

func NewStore(ttl time.Duration, logger *slog.Logger) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
		logger:   logger.With(slog.String("component", "session_store")),
	}
}

// Create starts a new empty session
func (s *Store) Create() Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := &Session{
		ID:       uuid.NewString(),
		LastSeen: s.now(),
	}
	s.sessions[sess.ID] = sess
	s.logger.Debug("session created", slog.String("session_id", sess.ID))

	return *sess
}

// Get returns the session and marks it as seen
func (s *Store) Get(id string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	sess.LastSeen = s.now()

	return *sess, nil
}

// Dataset returns the dataset of the session or ErrNoDataset
func (s *Store) Dataset(id string) (*forcelog.Dataset, error) {
	sess, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if sess.Dataset == nil {
		return nil, ErrNoDataset
	}
	return sess.Dataset, nil
}

// Replace installs ds as the session dataset and resets the selection to the
// first table and head of ds
func (s *Store) Replace(id string, ds *forcelog.Dataset) (Session, error) {
	if ds == nil {
		return Session{}, ErrNoDataset
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}

	sess.Dataset = ds
	sess.Table, sess.Head = "", 0
	if tables := ds.Tables(); len(tables) > 0 {
		sess.Table = tables[0]
		if heads := ds.Heads(sess.Table); len(heads) > 0 {
			sess.Head = heads[0]
		}
	}
	sess.LastSeen = s.now()

	s.logger.Info("dataset replaced",
		slog.String("session_id", id),
		slog.String("name", ds.Name),
		slog.Int("rows", len(ds.Rows)),
	)

	return *sess, nil
}

// Select changes the table and head selection. A zero head selects the first
// head of table.
func (s *Store) Select(id, table string, head int) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	if sess.Dataset == nil {
		return Session{}, ErrNoDataset
	}
	if !sess.Dataset.HasTable(table) {
		return Session{}, fmt.Errorf("%w: table %q", ErrSelection, table)
	}

	if head == 0 {
		if heads := sess.Dataset.Heads(table); len(heads) > 0 {
			head = heads[0]
		}
	}
	if !sess.Dataset.HasHead(table, head) {
		return Session{}, fmt.Errorf("%w: head %d of table %q", ErrSelection, head, table)
	}

	sess.Table = table
	sess.Head = head
	sess.LastSeen = s.now()

	return *sess, nil
}

func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Sweep removes sessions idle for longer than the store TTL and returns the
// number removed
func (s *Store) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.LastSeen) > s.ttl {
			delete(s.sessions, id)
			removed += 1
		}
	}
	if removed > 0 {
		s.logger.Info("sessions expired", slog.Int("removed", removed))
	}

	return removed
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
