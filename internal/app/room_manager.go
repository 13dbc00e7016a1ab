package app

import (
	"sort"
	"sync"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/rs/zerolog/log"
)

// RoomManagerImpl is the in-memory room registry. A single mutex serializes
// every membership mutation, so room creation and eviction cannot race a
// concurrent join. Reads go through the per-room RWMutex.
type RoomManagerImpl struct {
	mu    sync.RWMutex
	rooms map[domain.RoomCode]core.RoomService
}

func NewRoomManager() *RoomManagerImpl {
	return &RoomManagerImpl{rooms: make(map[domain.RoomCode]core.RoomService)}
}

var _ core.RoomRegistry = (*RoomManagerImpl)(nil)

func (f *RoomManagerImpl) Join(code domain.RoomCode, ms core.MemberSession, capacity int) (core.JoinResult, error) {
	id := ms.Meta().User.ID

	f.mu.Lock()
	defer f.mu.Unlock()

	room, ok := f.rooms[code]
	if !ok {
		room = core.NewRoomService(code)
	}
	count := room.MemberCount()
	if _, present := room.Lookup(id); !present && capacity > 0 && count >= capacity {
		log.Info().Str("module", "app.rooms").Str("room", string(code)).Int("capacity", capacity).Msg("join rejected, room full")
		return core.JoinResult{}, core.ErrRoomFull
	}
	if !ok {
		f.rooms[code] = room
		log.Info().Str("module", "app.rooms").Str("room", string(code)).Msg("room created")
	}
	room.Upsert(ms)
	return core.JoinResult{
		Members: room.MembersSnapshot(),
		IsFirst: count == 0,
		Count:   room.MemberCount(),
	}, nil
}

func (f *RoomManagerImpl) Leave(code domain.RoomCode, id domain.UserID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	room, ok := f.rooms[code]
	if !ok {
		return 0
	}
	room.Remove(id)
	remaining := room.MemberCount()
	if remaining == 0 {
		delete(f.rooms, code)
		log.Info().Str("module", "app.rooms").Str("room", string(code)).Msg("room deleted (empty)")
	}
	return remaining
}

func (f *RoomManagerImpl) Lookup(code domain.RoomCode, id domain.UserID) (core.MemberSession, bool) {
	room, ok := f.Room(code)
	if !ok {
		return nil, false
	}
	return room.Lookup(id)
}

func (f *RoomManagerImpl) Size(code domain.RoomCode) int {
	room, ok := f.Room(code)
	if !ok {
		return 0
	}
	return room.MemberCount()
}

// WhileEmpty runs fn under the registry write lock if code has no members.
func (f *RoomManagerImpl) WhileEmpty(code domain.RoomCode, fn func()) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if room, ok := f.rooms[code]; ok && room.MemberCount() > 0 {
		return false
	}
	fn()
	return true
}

func (f *RoomManagerImpl) Room(code domain.RoomCode) (core.RoomService, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	room, ok := f.rooms[code]
	return room, ok
}

func (f *RoomManagerImpl) List() []core.RoomInfo {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]core.RoomInfo, 0, len(f.rooms))
	for code, r := range f.rooms {
		out = append(out, core.RoomInfo{Code: code, MemberCount: r.MemberCount()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
