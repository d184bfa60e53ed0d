package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	wayfarercontext "wayfarer/internal/context"
	"wayfarer/internal/logger"
	"wayfarer/internal/testutils"
	"wayfarer/pkg/traveltypes"

	"github.com/charmbracelet/log"
)

// SnapshotKey is the storage key of the persisted session store.
const SnapshotKey = "wayfarer/state"

// SessionIDLayout formats session ids from their creation time.
const SessionIDLayout = "1/2/2006, 3:04:05 PM"

// SessionStoreService owns every conversation session and the active pointer.
// Reads are served from memory; every mutation runs on the writer queue and
// is followed by a write-through persist of the whole snapshot.
type SessionStoreService struct {
	initialized bool
	ctx         *wayfarercontext.TravelContext
	kv          traveltypes.KV
	queue       *QueueService
	now         func() time.Time
	logger      *log.Logger

	mu             sync.RWMutex
	sessions       []*traveltypes.Session
	activeID       string
	lastPersistErr error
}

// NewSessionStoreService creates a store persisting to kv. Mutations go
// through queue, which must be initialized before the store is used.
func NewSessionStoreService(ctx *wayfarercontext.TravelContext, kv traveltypes.KV, queue *QueueService) *SessionStoreService {
	return &SessionStoreService{
		ctx:   ctx,
		kv:    kv,
		queue: queue,
		now:   func() time.Time { return testutils.GetCurrentTime(ctx) },
	}
}

// Name returns the service name "session_store" for registration.
func (s *SessionStoreService) Name() string {
	return "session_store"
}

// Initialize prepares the service; Load must be called to restore state.
func (s *SessionStoreService) Initialize() error {
	if s.kv == nil {
		return fmt.Errorf("session store requires a storage backend")
	}
	if s.queue == nil {
		return fmt.Errorf("session store requires a queue")
	}
	s.logger = logger.NewStyledLogger("Sessions")
	s.initialized = true
	return nil
}

// SetClock overrides the time source used for new session ids.
func (s *SessionStoreService) SetClock(now func() time.Time) {
	s.now = now
}

// Load restores the persisted snapshot. A missing or unreadable snapshot
// starts an empty store. Either way the store ends with a valid active session.
func (s *SessionStoreService) Load(ctx context.Context) error {
	if !s.initialized {
		return fmt.Errorf("session store service not initialized")
	}
	return s.queue.Submit(ctx, func() error {
		snapshot := s.readSnapshot(ctx)

		sessions := make([]*traveltypes.Session, 0, len(snapshot.AllSessions))
		seen := make(map[string]bool, len(snapshot.AllSessions))
		for _, session := range snapshot.AllSessions {
			if session == nil || session.ID == "" || seen[session.ID] {
				continue
			}
			seen[session.ID] = true
			sessions = append(sessions, session)
		}

		activeID := snapshot.ActiveSessionID
		repaired := false
		switch {
		case activeID == "":
			fresh := s.freshSession(sessions)
			sessions = append(sessions, fresh)
			activeID = fresh.ID
			repaired = true
		case !seen[activeID]:
			sessions = append(sessions, s.newSession(activeID))
			repaired = true
		}

		s.commit(sessions, activeID)
		s.logger.Info("Session store loaded", "sessions", len(sessions), "session", activeID)
		if repaired {
			s.persist(ctx)
		}
		return nil
	})
}

func (s *SessionStoreService) readSnapshot(ctx context.Context) traveltypes.StoreSnapshot {
	var snapshot traveltypes.StoreSnapshot
	data, err := s.kv.Get(ctx, SnapshotKey)
	if errors.Is(err, traveltypes.ErrNotFound) {
		return snapshot
	}
	if err != nil {
		s.logger.Warn("Could not read stored sessions, starting empty", "error", err)
		return snapshot
	}
	if err := json.Unmarshal(data, &snapshot); err != nil {
		s.logger.Warn("Stored sessions are corrupt, starting empty", "error", err)
		return traveltypes.StoreSnapshot{}
	}
	return snapshot
}

// Create adds a new empty session and makes it active.
func (s *SessionStoreService) Create(ctx context.Context) (*traveltypes.Session, error) {
	var created *traveltypes.Session
	err := s.mutate(ctx, func(sessions []*traveltypes.Session, activeID string) ([]*traveltypes.Session, string, error) {
		created = s.freshSession(sessions)
		logger.SessionOperation("create", created.ID)
		return append(sessions, created), created.ID, nil
	})
	if err != nil {
		return nil, err
	}
	return created.Clone(), nil
}

// SetActive makes id the active session, creating it if it does not exist.
func (s *SessionStoreService) SetActive(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("session id cannot be empty")
	}
	return s.mutate(ctx, func(sessions []*traveltypes.Session, activeID string) ([]*traveltypes.Session, string, error) {
		if indexOf(sessions, id) < 0 {
			logger.SessionOperation("create-on-activate", id)
			sessions = append(sessions, s.newSession(id))
		}
		return sessions, id, nil
	})
}

// Rename moves the turns of oldID to newID, keeping its list position. An
// existing newID session is overwritten. The active pointer follows the rename.
func (s *SessionStoreService) Rename(ctx context.Context, oldID, newID string) error {
	newID = strings.TrimSpace(newID)
	if newID == "" {
		return fmt.Errorf("session id cannot be empty")
	}
	return s.mutate(ctx, func(sessions []*traveltypes.Session, activeID string) ([]*traveltypes.Session, string, error) {
		pos := indexOf(sessions, oldID)
		if pos < 0 {
			return nil, "", fmt.Errorf("%w: %s", traveltypes.ErrSessionNotFound, oldID)
		}
		if oldID == newID {
			return sessions, activeID, nil
		}

		renamed := sessions[pos].Clone()
		renamed.ID = newID

		out := make([]*traveltypes.Session, 0, len(sessions))
		for i, session := range sessions {
			switch {
			case i == pos:
				out = append(out, renamed)
			case session.ID == newID:
				s.logger.Warn("Rename overwrites an existing session", "session", newID, "turns", len(session.Turns))
			default:
				out = append(out, session)
			}
		}

		if activeID == oldID {
			activeID = newID
		}
		logger.SessionOperation("rename", oldID+" -> "+newID)
		return out, activeID, nil
	})
}

// Delete removes a session. Deleting the active session activates the first
// remaining one, or a freshly created session when none remain.
func (s *SessionStoreService) Delete(ctx context.Context, id string) error {
	return s.mutate(ctx, func(sessions []*traveltypes.Session, activeID string) ([]*traveltypes.Session, string, error) {
		pos := indexOf(sessions, id)
		if pos < 0 {
			return nil, "", fmt.Errorf("%w: %s", traveltypes.ErrSessionNotFound, id)
		}

		out := make([]*traveltypes.Session, 0, len(sessions))
		out = append(out, sessions[:pos]...)
		out = append(out, sessions[pos+1:]...)

		if activeID == id {
			if len(out) > 0 {
				activeID = out[0].ID
			} else {
				fresh := s.freshSession(out)
				out = append(out, fresh)
				activeID = fresh.ID
			}
		}
		logger.SessionOperation("delete", id)
		return out, activeID, nil
	})
}

// Replace swaps the turns of session id for turns in one step. An unknown id
// is created at the end of the list without becoming active.
func (s *SessionStoreService) Replace(ctx context.Context, id string, turns []traveltypes.Turn) error {
	return s.mutate(ctx, func(sessions []*traveltypes.Session, activeID string) ([]*traveltypes.Session, string, error) {
		return replaceTurns(sessions, id, func([]traveltypes.Turn) []traveltypes.Turn {
			return append([]traveltypes.Turn(nil), turns...)
		}, s.newSession), activeID, nil
	})
}

// Append adds turns to the end of session id as one atomic replace. Appends
// to a session that no longer exists recreate it.
func (s *SessionStoreService) Append(ctx context.Context, id string, turns ...traveltypes.Turn) error {
	if len(turns) == 0 {
		return nil
	}
	return s.mutate(ctx, func(sessions []*traveltypes.Session, activeID string) ([]*traveltypes.Session, string, error) {
		return replaceTurns(sessions, id, func(current []traveltypes.Turn) []traveltypes.Turn {
			for _, turn := range turns {
				current = AppendTurn(current, turn)
			}
			return current
		}, s.newSession), activeID, nil
	})
}

func replaceTurns(
	sessions []*traveltypes.Session,
	id string,
	update func([]traveltypes.Turn) []traveltypes.Turn,
	newSession func(string) *traveltypes.Session,
) []*traveltypes.Session {
	out := make([]*traveltypes.Session, len(sessions))
	copy(out, sessions)

	pos := indexOf(out, id)
	if pos < 0 {
		logger.SessionOperation("create-on-append", id)
		out = append(out, newSession(id))
		pos = len(out) - 1
	}
	updated := out[pos].Clone()
	updated.Turns = update(updated.Turns)
	out[pos] = updated
	return out
}

// mutate runs fn on the writer queue against the current state, commits the
// result and persists it. Persist failures are kept in memory and logged.
func (s *SessionStoreService) mutate(
	ctx context.Context,
	fn func(sessions []*traveltypes.Session, activeID string) ([]*traveltypes.Session, string, error),
) error {
	if !s.initialized {
		return fmt.Errorf("session store service not initialized")
	}
	return s.queue.Submit(ctx, func() error {
		s.mu.RLock()
		current := make([]*traveltypes.Session, len(s.sessions))
		copy(current, s.sessions)
		activeID := s.activeID
		s.mu.RUnlock()

		sessions, nextActive, err := fn(current, activeID)
		if err != nil {
			return err
		}
		s.commit(sessions, nextActive)
		s.persist(ctx)
		return nil
	})
}

func (s *SessionStoreService) commit(sessions []*traveltypes.Session, activeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = sessions
	s.activeID = activeID
}

// persist writes the whole snapshot. It only runs on the writer queue, so
// writes land in mutation order.
func (s *SessionStoreService) persist(ctx context.Context) {
	snapshot := s.Snapshot()
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err == nil {
		err = s.kv.Put(context.WithoutCancel(ctx), SnapshotKey, data)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.lastPersistErr = fmt.Errorf("%w: persist sessions: %v", traveltypes.ErrStorage, err)
		s.logger.Warn("Session changes kept in memory only", "error", err)
		return
	}
	s.lastPersistErr = nil
}

// LastPersistError returns the error of the most recent persist, or nil when
// the stored snapshot matches memory.
func (s *SessionStoreService) LastPersistError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastPersistErr
}

// Sessions returns copies of every session in insertion order.
func (s *SessionStoreService) Sessions() []*traveltypes.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*traveltypes.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, session.Clone())
	}
	return out
}

// ActiveID returns the id of the active session.
func (s *SessionStoreService) ActiveID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID
}

// Active returns a copy of the active session.
func (s *SessionStoreService) Active() (*traveltypes.Session, error) {
	return s.Get(s.ActiveID())
}

// Get returns a copy of session id.
func (s *SessionStoreService) Get(id string) (*traveltypes.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if pos := indexOf(s.sessions, id); pos >= 0 {
		return s.sessions[pos].Clone(), nil
	}
	return nil, fmt.Errorf("%w: %s", traveltypes.ErrSessionNotFound, id)
}

// Snapshot returns the persisted form of the current state.
func (s *SessionStoreService) Snapshot() traveltypes.StoreSnapshot {
	return traveltypes.StoreSnapshot{
		AllSessions:     s.Sessions(),
		ActiveSessionID: s.ActiveID(),
	}
}

func (s *SessionStoreService) newSession(id string) *traveltypes.Session {
	return &traveltypes.Session{
		ID:        id,
		Turns:     []traveltypes.Turn{},
		CreatedAt: s.now(),
	}
}

// freshSession creates a session whose id is its creation time. A short
// suffix keeps the id unique when two sessions share the same second.
func (s *SessionStoreService) freshSession(sessions []*traveltypes.Session) *traveltypes.Session {
	session := s.newSession("")
	label := session.CreatedAt.Format(SessionIDLayout)
	id := label
	for indexOf(sessions, id) >= 0 {
		id = fmt.Sprintf("%s (%s)", label, testutils.GenerateUUID(s.ctx)[:8])
	}
	session.ID = id
	return session
}

func indexOf(sessions []*traveltypes.Session, id string) int {
	for i, session := range sessions {
		if session.ID == id {
			return i
		}
	}
	return -1
}
