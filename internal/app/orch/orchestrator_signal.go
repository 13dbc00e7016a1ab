package orch

import (
	"github.com/goccy/go-json"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/rs/zerolog/log"
)

// SignalKind selects which negotiation message a relay carries.
type SignalKind int

const (
	SignalOffer SignalKind = iota
	SignalAnswer
	SignalCandidate
)

func (k SignalKind) String() string {
	switch k {
	case SignalOffer:
		return core.EventOffer
	case SignalAnswer:
		return core.EventAnswer
	case SignalCandidate:
		return core.EventICECandidate
	default:
		return "unknown"
	}
}

// Relay forwards a negotiation payload to one member of the sender's room.
// Sessions outside a room and unknown targets are dropped without a reply.
func (o *Orchestrator) Relay(sid core.SessionID, kind SignalKind, target domain.UserID, payload json.RawMessage) {
	code, _, ok := o.Registry.RoomOf(sid)
	if !ok {
		log.Debug().Str("module", "orch").Str("sid", string(sid)).Str("kind", kind.String()).Msg("relay outside room, dropped")
		return
	}
	from := sid.UserID()

	var ev core.Event
	switch kind {
	case SignalOffer:
		ev = core.Offer{Offer: payload, FromID: from}
	case SignalAnswer:
		ev = core.Answer{Answer: payload, FromID: from}
	case SignalCandidate:
		ev = core.ICECandidate{Candidate: payload, FromID: from}
	default:
		return
	}
	o.Router.Forward(code, from, target, ev)
}

// Chat sanitizes message and broadcasts it to the rest of the sender's room.
// Nothing is sent when the message is empty after sanitizing.
func (o *Orchestrator) Chat(sid core.SessionID, message string) {
	code, ms, ok := o.Registry.RoomOf(sid)
	if !ok {
		return
	}
	text := domain.SanitizeText(message, o.Limits.ChatMaxLen)
	if text == "" {
		return
	}
	o.broadcast(code, sid.UserID(), core.ChatMessage{
		Message:   text,
		Sender:    ms.Meta().User.DisplayName,
		SenderID:  sid.UserID(),
		Timestamp: o.now(),
	})
}

// MediaState tells the room that the sender toggled audio or video.
func (o *Orchestrator) MediaState(sid core.SessionID, state json.RawMessage) {
	code, _, ok := o.Registry.RoomOf(sid)
	if !ok {
		return
	}
	o.broadcast(code, sid.UserID(), core.UserMediaState{UserID: sid.UserID(), MediaState: state})
}

func (o *Orchestrator) ScreenShare(sid core.SessionID, started bool) {
	code, _, ok := o.Registry.RoomOf(sid)
	if !ok {
		return
	}
	uid := sid.UserID()
	if started {
		o.broadcast(code, uid, core.ScreenShareStarted{UserID: uid})
		return
	}
	o.broadcast(code, uid, core.ScreenShareStopped{UserID: uid})
}

func (o *Orchestrator) Ping(sid core.SessionID) {
	o.reply(sid, core.Pong{})
}
