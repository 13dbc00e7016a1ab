package core

import (
	"sync"

	"github.com/dkeye/Meet/internal/domain"
	"github.com/rs/zerolog/log"
)

// roomImpl is a threadsafe in-memory room.
// It never closes adapter-owned resources.
type roomImpl struct {
	code    domain.RoomCode
	mu      sync.RWMutex
	members map[domain.UserID]MemberSession
}

func NewRoomService(code domain.RoomCode) RoomService {
	return &roomImpl{
		code:    code,
		members: make(map[domain.UserID]MemberSession),
	}
}

func (r *roomImpl) Code() domain.RoomCode { return r.code }

func (r *roomImpl) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

func (r *roomImpl) Upsert(ms MemberSession) bool {
	u := ms.Meta().User.ID
	r.mu.Lock()
	defer r.mu.Unlock()
	_, replaced := r.members[u]
	r.members[u] = ms
	log.Info().Str("module", "core.room").Str("room", string(r.code)).Str("user", string(u)).Bool("replaced", replaced).Msg("member added")
	return replaced
}

func (r *roomImpl) Remove(id domain.UserID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[id]; !ok {
		return false
	}
	delete(r.members, id)
	log.Info().Str("module", "core.room").Str("room", string(r.code)).Str("user", string(id)).Msg("member removed")
	return true
}

func (r *roomImpl) Lookup(id domain.UserID) (MemberSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ms, ok := r.members[id]
	return ms, ok
}

func (r *roomImpl) Broadcast(exclude domain.UserID, data Frame) PublishResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := PublishResult{}
	for id, m := range r.members {
		if id == exclude {
			continue
		}
		if err := m.Signal().TrySend(data); err != nil {
			res.Dropped = append(res.Dropped, m)
			continue
		}
		res.SendTo++
	}
	log.Debug().Str("module", "core.room").Str("room", string(r.code)).Str("exclude", string(exclude)).Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}

func (r *roomImpl) MembersSnapshot() []MemberDTO {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]MemberDTO, 0, len(r.members))
	for _, ms := range r.members {
		m := ms.Meta()
		out = append(out, MemberDTO{
			UserID:      m.User.ID,
			DisplayName: m.User.DisplayName,
			IsHost:      m.IsHost,
			JoinedAt:    m.JoinedAt,
		})
	}
	return out
}
