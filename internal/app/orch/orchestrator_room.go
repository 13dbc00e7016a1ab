package orch

import (
	"errors"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/rs/zerolog/log"
)

const (
	msgRoomRequired       = "Room ID is required"
	msgInvalidCredentials = "Invalid meeting code or password"
)

type JoinRoomRequest struct {
	RoomID      string
	IsHost      bool
	DisplayName string
	Password    string
}

// JoinRoom admits sid into a room. A session already in another room leaves
// it first; re-joining the same room is an upsert.
func (o *Orchestrator) JoinRoom(sid core.SessionID, req JoinRoomRequest) {
	entry, ok := o.Registry.Get(sid)
	if !ok {
		return
	}
	code, err := domain.ParseRoomCode(req.RoomID)
	if err != nil {
		o.replyError(sid, msgRoomRequired)
		return
	}

	capacity := 0
	if m, ok := o.Meetings.Get(code); ok {
		if m.PasswordProtected && !o.Registry.IsAuthorized(sid, code) && !m.CheckPassword(req.Password) {
			log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", string(code)).Msg("join-room rejected, bad credentials")
			o.replyError(sid, msgInvalidCredentials)
			return
		}
		capacity = m.MaxParticipants
	}

	if prev, _, ok := o.Registry.RoomOf(sid); ok && prev != code {
		o.LeaveRoom(sid)
	}

	uid := sid.UserID()
	user := domain.NewUser(uid, req.DisplayName, o.Limits.NameMaxLen)
	meta := domain.NewMember(user, req.IsHost, o.now())
	ms := core.NewMemberSession(meta, entry.Signal)

	res, err := o.Rooms.Join(code, ms, capacity)
	if errors.Is(err, core.ErrRoomFull) {
		o.reply(sid, core.RoomFull{})
		return
	}
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Str("sid", string(sid)).Str("room", string(code)).Msg("join failed")
		o.replyError(sid, "Unable to join room")
		return
	}
	o.Registry.UpdateRoom(sid, code, ms)
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", string(code)).Str("name", user.DisplayName).Bool("first", res.IsFirst).Msg("joined room")

	shouldCreateOffer := !res.IsFirst
	o.reply(sid, core.RoomJoined{
		RoomID:            code,
		UserID:            uid,
		DisplayName:       user.DisplayName,
		ShouldCreateOffer: shouldCreateOffer,
		JoinedAt:          meta.JoinedAt,
	})
	o.reply(sid, othersThan(uid, res.Members))
	o.broadcast(code, uid, core.UserJoined{
		UserID:            uid,
		UserInfo:          core.UserInfo{Name: user.DisplayName},
		ShouldCreateOffer: shouldCreateOffer,
		JoinedAt:          meta.JoinedAt,
	})
	o.broadcastCount(code)
}

// LeaveRoom is the explicit leave-room request. The connection stays open.
func (o *Orchestrator) LeaveRoom(sid core.SessionID) {
	code, ms, ok := o.Registry.TakeRoom(sid)
	if !ok {
		return
	}
	o.leave(sid, code, ms)
}

// OnDisconnect tears the session down. It is safe to call more than once;
// only the first call does anything.
func (o *Orchestrator) OnDisconnect(sid core.SessionID) {
	entry, ok := o.Registry.Unbind(sid)
	if !ok {
		return
	}
	if entry.RoomCode != "" {
		o.leave(sid, entry.RoomCode, entry.Session)
	}
	log.Info().Str("module", "orch").Str("sid", string(sid)).Msg("session closed")
}

// leave removes the member and tells the rest of the room. Meeting metadata
// is left alone here even when the room empties; the sweeper owns eviction.
func (o *Orchestrator) leave(sid core.SessionID, code domain.RoomCode, ms core.MemberSession) {
	uid := sid.UserID()
	remaining := o.Rooms.Leave(code, uid)

	name := ""
	if ms != nil {
		name = ms.Meta().User.DisplayName
	}
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", string(code)).Int("remaining", remaining).Msg("left room")
	if remaining == 0 {
		return
	}
	o.broadcast(code, uid, core.UserLeft{UserID: uid, DisplayName: name, LeftAt: o.now()})
	o.broadcastCount(code)
}

// othersThan is the member list a joiner receives: everyone already present.
func othersThan(uid domain.UserID, members []core.MemberDTO) core.RoomMembers {
	out := make(core.RoomMembers, 0, len(members))
	for _, m := range members {
		if m.UserID != uid {
			out = append(out, m)
		}
	}
	return out
}
