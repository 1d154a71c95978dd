// SPDX-License-Identifier: BSD-2-Clause
// Copyright (C) 2024 Emir Aganovic

package nosip

import (
	"sync"
)

// deferredEntry is a session awaiting reclamation: the Reaper frees it once
// now - destroyedAt passes the grace window (spec §4.6).
type deferredEntry struct {
	session     *Session
	destroyedAt int64
}

// SessionRegistry tracks live sessions by handle and sessions pending
// reclamation, both under one mutex (spec §3: "a single registry mutex
// covers both the live map and the deferred list").
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	deferred []deferredEntry
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]*Session),
	}
}

// Add registers a newly created session under handle. It replaces a
// previous entry without reclaiming it, mirroring janus_nosip_create_session
// which never refuses a handle already present in the host's session table.
func (r *SessionRegistry) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.Handle] = s
}

func (r *SessionRegistry) Get(handle string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[handle]
	return s, ok
}

// Remove drops handle from the live map and queues the session for deferred
// reclamation, stamped with destroyedAt (Unix nanoseconds).
func (r *SessionRegistry) Remove(handle string, destroyedAt int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[handle]
	if !ok {
		return
	}
	delete(r.sessions, handle)
	s.MarkDestroyed(destroyedAt)
	r.deferred = append(r.deferred, deferredEntry{session: s, destroyedAt: destroyedAt})
}

// ReclaimDue pops every deferred session whose grace window has elapsed as
// of now (Unix nanoseconds) and returns them for release by the caller.
func (r *SessionRegistry) ReclaimDue(now int64, grace int64) []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	var due []*Session
	kept := r.deferred[:0]
	for _, e := range r.deferred {
		if now-e.destroyedAt >= grace {
			due = append(due, e.session)
		} else {
			kept = append(kept, e)
		}
	}
	r.deferred = kept
	return due
}

// Len reports the number of live (non-deferred) sessions.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Handles returns a snapshot of all live handles, for diagnostics.
func (r *SessionRegistry) Handles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.sessions))
	for h := range r.sessions {
		out = append(out, h)
	}
	return out
}
