// Package calls owns call sessions and their lifecycle.
package calls

import (
	"fmt"
	"sort"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/mossy-p/call-signaling/internal/models"
)

// Resolver finds the live connection of a user
type Resolver interface {
	ResolveByUser(userID string) (string, bool)
}

// Session pairs a caller and a callee for one call attempt
type Session struct {
	ID         string
	CallerID   string
	CalleeID   string
	CallerName string
	// Connection ids snapshotted at initiate time.
	CallerConn string
	CalleeConn string
	State      State
	CreatedAt  time.Time
}

// Connection returns the snapshotted connection for role
func (s Session) Connection(r Role) string {
	if r == RoleCaller {
		return s.CallerConn
	}
	return s.CalleeConn
}

// RoleOf reports which side userID is on
func (s Session) RoleOf(userID string) (Role, bool) {
	switch userID {
	case s.CallerID:
		return RoleCaller, true
	case s.CalleeID:
		return RoleCallee, true
	}
	return 0, false
}

// Manager is the session table. Like the registry it is owned by a single
// event loop and does no locking.
type Manager struct {
	parties  Resolver
	clock    clock.Clock
	sessions map[string]*Session
}

// NewManager creates a Manager resolving parties through r
func NewManager(r Resolver, clk clock.Clock) *Manager {
	if clk == nil {
		clk = clock.New()
	}
	return &Manager{
		parties:  r,
		clock:    clk,
		sessions: make(map[string]*Session),
	}
}

// Initiate creates a pending session. It fails with ErrUserOffline, creating
// nothing, when the callee has no live connection.
func (m *Manager) Initiate(callID, callerID, calleeID, callerConn, callerName string) (Session, []Notice, error) {
	if _, ok := m.sessions[callID]; ok {
		return Session{}, nil, fmt.Errorf("initiate %q: %w", callID, ErrCallExists)
	}
	calleeConn, ok := m.parties.ResolveByUser(calleeID)
	if !ok {
		return Session{}, nil, fmt.Errorf("initiate %q to %q: %w", callID, calleeID, ErrUserOffline)
	}

	s := &Session{
		ID:         callID,
		CallerID:   callerID,
		CalleeID:   calleeID,
		CallerName: callerName,
		CallerConn: callerConn,
		CalleeConn: calleeConn,
		State:      StatePending,
		CreatedAt:  m.clock.Now(),
	}
	m.sessions[callID] = s
	return *s, []Notice{{To: RoleCallee, Type: models.EventIncomingCall}}, nil
}

// Accept moves the session to active
func (m *Manager) Accept(callID string) (Session, []Notice, error) {
	return m.apply(callID, ActionAccept)
}

// Reject removes the session unconditionally
func (m *Manager) Reject(callID string) (Session, []Notice, error) {
	return m.apply(callID, ActionReject)
}

// End removes the session if present. Ending an absent call is not an error;
// ok is false and nothing is returned.
func (m *Manager) End(callID string) (s Session, notices []Notice, ok bool) {
	s, notices, err := m.apply(callID, ActionEnd)
	if err != nil {
		return Session{}, nil, false
	}
	return s, notices, true
}

// DropParty removes the session because userID went away. The returned
// notices address the other party only.
func (m *Manager) DropParty(callID, userID string) (Session, []Notice, error) {
	s, ok := m.sessions[callID]
	if !ok {
		return Session{}, nil, fmt.Errorf("drop %q: %w", callID, ErrCallNotFound)
	}
	role, ok := s.RoleOf(userID)
	if !ok {
		return Session{}, nil, fmt.Errorf("drop %q: %q is not a party", callID, userID)
	}
	action := ActionCallerDisconnect
	if role == RoleCallee {
		action = ActionCalleeDisconnect
	}
	return m.apply(callID, action)
}

func (m *Manager) apply(callID string, action Action) (Session, []Notice, error) {
	from := StateRemoved
	s, ok := m.sessions[callID]
	if ok {
		from = s.State
	}
	next, notices, err := Transition(from, action)
	if err != nil {
		return Session{}, nil, fmt.Errorf("%s %q: %w", action, callID, err)
	}

	if next == StateRemoved {
		delete(m.sessions, callID)
	}
	s.State = next
	return *s, notices, nil
}

// Get is a read-only lookup
func (m *Manager) Get(callID string) (Session, bool) {
	s, ok := m.sessions[callID]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// Exists reports whether callID is a live session
func (m *Manager) Exists(callID string) bool {
	_, ok := m.sessions[callID]
	return ok
}

// ForUser lists the ids of sessions where userID is caller or callee,
// ordered by creation time.
func (m *Manager) ForUser(userID string) []string {
	var found []*Session
	for _, s := range m.sessions {
		if s.CallerID == userID || s.CalleeID == userID {
			found = append(found, s)
		}
	}
	sort.Slice(found, func(i, j int) bool {
		if found[i].CreatedAt.Equal(found[j].CreatedAt) {
			return found[i].ID < found[j].ID
		}
		return found[i].CreatedAt.Before(found[j].CreatedAt)
	})
	ids := make([]string, len(found))
	for i, s := range found {
		ids[i] = s.ID
	}
	return ids
}

// Len returns the number of live sessions
func (m *Manager) Len() int {
	return len(m.sessions)
}

// CounterpartConnection is the routing rule shared by every relay: a message
// from the caller's connection goes to the callee, anything else goes to the
// caller.
func CounterpartConnection(s Session, fromConn string) string {
	if fromConn == s.CallerConn {
		return s.CalleeConn
	}
	return s.CallerConn
}
