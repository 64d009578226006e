// Package registry maps party identities to their single live connection.
//
// A Registry is not safe for concurrent use; it is owned by the signaling
// hub's event loop.
package registry

import "sort"

// Registry is the bidirectional userId <-> connectionId mapping
type Registry struct {
	byUser map[string]string
	byConn map[string]string
}

// New creates an empty registry
func New() *Registry {
	return &Registry{
		byUser: make(map[string]string),
		byConn: make(map[string]string),
	}
}

// Register installs userID -> connID. If userID already maps to a different
// connection, that mapping is removed in both directions and its id returned
// so the caller can notify the evicted side.
func (r *Registry) Register(userID, connID string) (evicted string) {
	if old, ok := r.byUser[userID]; ok {
		if old == connID {
			return ""
		}
		delete(r.byConn, old)
		evicted = old
	}
	// A connection belongs to one user only.
	if prevUser, ok := r.byConn[connID]; ok && prevUser != userID {
		delete(r.byUser, prevUser)
	}
	r.byUser[userID] = connID
	r.byConn[connID] = userID
	return evicted
}

// ResolveByUser returns the live connection for userID
func (r *Registry) ResolveByUser(userID string) (string, bool) {
	connID, ok := r.byUser[userID]
	return connID, ok
}

// ResolveByConnection returns the user registered on connID
func (r *Registry) ResolveByConnection(connID string) (string, bool) {
	userID, ok := r.byConn[connID]
	return userID, ok
}

// Remove deletes connID and its user mapping. No-op if absent.
func (r *Registry) Remove(connID string) {
	userID, ok := r.byConn[connID]
	if !ok {
		return
	}
	delete(r.byConn, connID)
	if r.byUser[userID] == connID {
		delete(r.byUser, userID)
	}
}

// SnapshotUserIDs lists online users, sorted for stable output
func (r *Registry) SnapshotUserIDs() []string {
	ids := make([]string, 0, len(r.byUser))
	for id := range r.byUser {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of registered connections
func (r *Registry) Len() int {
	return len(r.byConn)
}
