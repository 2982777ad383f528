// Package session implements the Session Manager (spec.md §4.J):
// start/end lifecycle, active-session lookup, and unit-count
// bookkeeping. Grounded on GoKitt's thin service-wrapping-store
// pattern (pkg/chat/service.go's ChatService), generalized from
// chat-thread lifecycle to conversation-session lifecycle.
package session

import (
	"github.com/ashishact/ramble/internal/ids"
	"github.com/ashishact/ramble/internal/store"
)

// Manager owns session lifecycle. At most one session is active
// (EndedAt == nil) at a time (spec.md §3).
type Manager struct {
	store *store.Store
}

// New constructs a Manager bound to s.
func New(s *store.Store) *Manager {
	return &Manager{store: s}
}

// Initialize loads the current active session, if any, without
// creating one. The Kernel decides whether to auto-start a session on
// first processText (spec.md §9 Open Question #4, resolved: explicit
// start only, no implicit auto-start).
func (m *Manager) Initialize() (*store.Session, error) {
	sess, err := m.store.GetActiveSession()
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// StartSession ends any existing active session, then creates and
// returns a new one.
func (m *Manager) StartSession(now int64) (*store.Session, error) {
	if active, err := m.store.GetActiveSession(); err != nil {
		return nil, err
	} else if active != nil {
		if _, err := m.EndSession(active.ID, now); err != nil {
			return nil, err
		}
	}

	sess := &store.Session{
		ID:        ids.New(),
		StartedAt: now,
		UnitCount: 0,
	}
	if err := m.store.CreateSession(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// EndSession closes the given session, recording endedAt.
func (m *Manager) EndSession(id string, now int64) (*store.Session, error) {
	sess, err := m.store.GetSession(id)
	if err != nil {
		return nil, err
	}
	sess.EndedAt = &now
	if err := m.store.UpdateSession(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// GetActiveSession returns the current active session, or nil if none.
func (m *Manager) GetActiveSession() (*store.Session, error) {
	return m.store.GetActiveSession()
}

// IncrementUnitCount bumps unitCount on sessionID. CreateUnit already
// increments sessions.unit_count at the Store layer, so the Kernel does
// not call this; it is exposed for callers that create units outside
// that path (e.g. import/restore) and need to keep the count consistent
// by hand.
func (m *Manager) IncrementUnitCount(sessionID string) error {
	sess, err := m.store.GetSession(sessionID)
	if err != nil {
		return err
	}
	sess.UnitCount++
	return m.store.UpdateSession(sess)
}
