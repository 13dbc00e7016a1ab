package app

import (
	"context"
	"sync"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/rs/zerolog/log"
)

type sessionEntry struct {
	Signal      core.SignalConnection
	ClientToken string
	Cancel      context.CancelFunc

	RoomCode   domain.RoomCode
	Session    core.MemberSession
	authorized map[domain.RoomCode]struct{}
}

// SessionEntry is a copy of what the registry knows about a connection.
type SessionEntry struct {
	Signal      core.SignalConnection
	ClientToken string
	RoomCode    domain.RoomCode
	Session     core.MemberSession
}

// Registry binds live connections to their current room. It is the only
// place a session's room binding changes, which keeps teardown exactly-once.
type Registry struct {
	mu       sync.RWMutex
	sessions map[core.SessionID]*sessionEntry
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[core.SessionID]*sessionEntry),
	}
}

func (r *Registry) BindSignal(sid core.SessionID, signal core.SignalConnection, clientToken string, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sid] = &sessionEntry{
		Signal:      signal,
		ClientToken: clientToken,
		Cancel:      cancel,
		authorized:  make(map[domain.RoomCode]struct{}),
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("bound signal")
}

func (r *Registry) Get(sid core.SessionID) (SessionEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sid]
	if !ok {
		return SessionEntry{}, false
	}
	return e.snapshot(), true
}

// Unbind forgets the session and hands back its last state. Only the first
// call for a given sid reports ok.
func (r *Registry) Unbind(sid core.SessionID) (SessionEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return SessionEntry{}, false
	}
	delete(r.sessions, sid)
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("unbind session")
	return e.snapshot(), true
}

func (r *Registry) RoomOf(sid core.SessionID) (domain.RoomCode, core.MemberSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.sessions[sid]
	if !ok || entry.RoomCode == "" {
		return "", nil, false
	}
	return entry.RoomCode, entry.Session, true
}

func (r *Registry) UpdateRoom(sid core.SessionID, code domain.RoomCode, sess core.MemberSession) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.sessions[sid]
	if !ok {
		return false
	}
	entry.RoomCode = code
	entry.Session = sess
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("room", string(code)).Msg("updated room")
	return true
}

// TakeRoom clears the session's room binding and returns what it was.
func (r *Registry) TakeRoom(sid core.SessionID) (domain.RoomCode, core.MemberSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.sessions[sid]
	if !ok || entry.RoomCode == "" {
		return "", nil, false
	}
	code, sess := entry.RoomCode, entry.Session
	entry.RoomCode = ""
	entry.Session = nil
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("room", string(code)).Msg("removed room association")
	return code, sess, true
}

// Authorize records that sid passed the meeting password check for code.
func (r *Registry) Authorize(sid core.SessionID, code domain.RoomCode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.sessions[sid]; ok {
		entry.authorized[code] = struct{}{}
	}
}

func (r *Registry) IsAuthorized(sid core.SessionID, code domain.RoomCode) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.sessions[sid]
	if !ok {
		return false
	}
	_, ok = entry.authorized[code]
	return ok
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) Cancel(sid core.SessionID) bool {
	r.mu.RLock()
	e, ok := r.sessions[sid]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("canceled session")
	return true
}

func (e *sessionEntry) snapshot() SessionEntry {
	return SessionEntry{
		Signal:      e.Signal,
		ClientToken: e.ClientToken,
		RoomCode:    e.RoomCode,
		Session:     e.Session,
	}
}
