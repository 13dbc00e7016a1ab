package app

import (
	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/rs/zerolog/log"
)

// Router delivers events to room members. It holds no state of its own;
// every decision is made against the registry at send time.
type Router struct {
	Rooms core.RoomRegistry
}

func NewRouter(rooms core.RoomRegistry) *Router {
	return &Router{Rooms: rooms}
}

// Send encodes ev and queues it on one connection.
func (rt *Router) Send(conn core.SignalConnection, ev core.Event) error {
	f, err := core.Encode(ev)
	if err != nil {
		log.Error().Err(err).Str("module", "app.router").Str("event", ev.EventType()).Msg("encode")
		return err
	}
	return conn.TrySend(f)
}

// Forward delivers ev to target only. A target that is not in the room is
// silently skipped and reported as false.
func (rt *Router) Forward(code domain.RoomCode, from, target domain.UserID, ev core.Event) bool {
	ms, ok := rt.Rooms.Lookup(code, target)
	if !ok {
		log.Debug().Str("module", "app.router").Str("room", string(code)).Str("from", string(from)).Str("target", string(target)).Str("event", ev.EventType()).Msg("target gone, dropped")
		return false
	}
	if err := rt.Send(ms.Signal(), ev); err != nil {
		log.Warn().Err(err).Str("module", "app.router").Str("room", string(code)).Str("target", string(target)).Msg("forward failed")
		return false
	}
	log.Debug().Str("module", "app.router").Str("room", string(code)).Str("from", string(from)).Str("target", string(target)).Str("event", ev.EventType()).Msg("forwarded")
	return true
}

// Broadcast delivers ev to every member except exclude. Pass an empty
// exclude to reach the whole room.
func (rt *Router) Broadcast(code domain.RoomCode, exclude domain.UserID, ev core.Event) core.PublishResult {
	room, ok := rt.Rooms.Room(code)
	if !ok {
		return core.PublishResult{}
	}
	f, err := core.Encode(ev)
	if err != nil {
		log.Error().Err(err).Str("module", "app.router").Str("event", ev.EventType()).Msg("encode")
		return core.PublishResult{}
	}
	return room.Broadcast(exclude, f)
}

// BroadcastCount sends the room's live size, read at send time, to all of
// its members.
func (rt *Router) BroadcastCount(code domain.RoomCode) core.PublishResult {
	return rt.Broadcast(code, "", core.MemberCount(rt.Rooms.Size(code)))
}
