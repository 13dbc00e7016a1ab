package orch

import (
	"time"

	"github.com/dkeye/Meet/internal/app"
	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/rs/zerolog/log"
)

// Limits caps free-text input coming from clients.
type Limits struct {
	ChatMaxLen int
	NameMaxLen int
}

func DefaultLimits() Limits {
	return Limits{ChatMaxLen: 500, NameMaxLen: domain.DefaultMaxDisplayName}
}

// Orchestrator is the session layer: it turns client requests into
// registry mutations and routed events.
type Orchestrator struct {
	Registry *app.Registry
	Rooms    core.RoomRegistry
	Meetings *app.MeetingStore
	Router   *app.Router
	Policy   app.Policy
	Limits   Limits
	Now      func() time.Time
}

func New(reg *app.Registry, rooms core.RoomRegistry, meetings *app.MeetingStore, policy app.Policy, limits Limits) *Orchestrator {
	return &Orchestrator{
		Registry: reg,
		Rooms:    rooms,
		Meetings: meetings,
		Router:   app.NewRouter(rooms),
		Policy:   policy,
		Limits:   limits,
		Now:      time.Now,
	}
}

func (o *Orchestrator) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

// reply sends ev back to the requesting session only.
func (o *Orchestrator) reply(sid core.SessionID, ev core.Event) {
	entry, ok := o.Registry.Get(sid)
	if !ok {
		return
	}
	if err := o.Router.Send(entry.Signal, ev); err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("sid", string(sid)).Str("event", ev.EventType()).Msg("reply dropped")
	}
}

func (o *Orchestrator) replyError(sid core.SessionID, msg string) {
	o.reply(sid, core.ErrorEvent{Message: msg})
}

// broadcast fans ev out to the room and applies the backpressure policy to
// anyone who could not keep up.
func (o *Orchestrator) broadcast(code domain.RoomCode, exclude domain.UserID, ev core.Event) {
	o.handleDropped(code, o.Router.Broadcast(code, exclude, ev))
}

func (o *Orchestrator) broadcastCount(code domain.RoomCode) {
	o.handleDropped(code, o.Router.BroadcastCount(code))
}

func (o *Orchestrator) handleDropped(code domain.RoomCode, res core.PublishResult) {
	if o.Policy == nil || len(res.Dropped) == 0 {
		return
	}
	room, ok := o.Rooms.Room(code)
	if !ok {
		return
	}
	for _, slow := range res.Dropped {
		switch o.Policy.OnBackPressure(room, slow) {
		case app.KickMember:
			sid := core.SessionID(slow.Meta().User.ID)
			log.Warn().Str("module", "orch").Str("room", string(code)).Str("sid", string(sid)).Msg("slow consumer kicked")
			if !o.Registry.Cancel(sid) {
				slow.Signal().Close()
			}
		case app.NoAction:
		}
	}
}
