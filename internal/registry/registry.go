// Package registry implements the Session Registry (spec.md §4.G,§3): an
// insertion-ordered collection of sessions, owned exclusively by the
// supervisor loop (no locking — there is only ever one owner).
package registry

import "github.com/sedwards2009/ptymuxd/internal/ptysession"

// Registry holds live sessions in creation order with a monotonically
// increasing id counter that never reuses an id within a process lifetime.
// Grounded directly on ptyserver2.py's flat pty_list + pty_counter globals,
// turned into supervisor-owned fields per spec.md §9.
type Registry struct {
	sessions []*ptysession.Session
	nextID   int
}

// New returns an empty registry; the first session created through it gets
// id 1.
func New() *Registry {
	return &Registry{nextID: 1}
}

// NextID returns the id to use for the next session and advances the
// counter. The dispatcher calls it once per create, before constructing the
// session, so an id taken by a create whose spawn fails is never used.
func (r *Registry) NextID() int {
	id := r.nextID
	r.nextID++
	return id
}

// Insert appends s to the registry, preserving creation order.
func (r *Registry) Insert(s *ptysession.Session) {
	r.sessions = append(r.sessions, s)
}

// Get finds the session with the given id. Lookup is O(n); per spec.md
// §4.G the expected session count is small (typical <= 32).
func (r *Registry) Get(id int) (*ptysession.Session, bool) {
	for _, s := range r.sessions {
		if s.ID == id {
			return s, true
		}
	}
	return nil, false
}

// All returns the sessions in creation order. The caller must not retain
// the slice across a mutating call (Insert/Remove may reallocate it).
func (r *Registry) All() []*ptysession.Session {
	return r.sessions
}

// Remove deletes the session with the given id, if present, preserving the
// relative order of the rest.
func (r *Registry) Remove(id int) {
	for i, s := range r.sessions {
		if s.ID == id {
			r.sessions = append(r.sessions[:i], r.sessions[i+1:]...)
			return
		}
	}
}

// Len reports how many sessions are currently registered.
func (r *Registry) Len() int {
	return len(r.sessions)
}
