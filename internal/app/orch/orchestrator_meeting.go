package orch

import (
	"errors"

	"github.com/dkeye/Meet/internal/app"
	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/rs/zerolog/log"
)

// CreateMeeting provisions a meeting and authorizes its creator for it.
func (o *Orchestrator) CreateMeeting(sid core.SessionID, in domain.MeetingInput) {
	entry, ok := o.Registry.Get(sid)
	if !ok {
		return
	}
	creator := entry.ClientToken
	if creator == "" {
		creator = string(sid)
	}

	m, err := o.Meetings.Create(in, creator, o.Rooms, o.now())
	switch {
	case errors.Is(err, domain.ErrTitleEmpty):
		o.replyError(sid, "Meeting title is required")
		return
	case errors.Is(err, domain.ErrPasswordRequired):
		o.replyError(sid, "Password is required for a protected meeting")
		return
	case errors.Is(err, app.ErrCodeSpaceExhausted):
		log.Error().Err(err).Str("module", "orch").Str("sid", string(sid)).Msg("create meeting")
		o.replyError(sid, "Unable to create meeting, try again")
		return
	case err != nil:
		o.replyError(sid, "Invalid meeting details")
		return
	}

	o.Registry.Authorize(sid, m.Code)
	o.reply(sid, core.MeetingCreated{RoomID: m.Code, MeetingData: m.Info()})
}

// JoinMeeting checks credentials and capacity without admitting anyone; the
// client follows up with join-room. A code with no meeting behind it is an
// ad-hoc room and is always accepted.
func (o *Orchestrator) JoinMeeting(sid core.SessionID, roomID, password string) {
	if _, ok := o.Registry.Get(sid); !ok {
		return
	}
	code, err := domain.ParseRoomCode(roomID)
	if err != nil {
		o.replyError(sid, msgRoomRequired)
		return
	}

	m, err := o.Meetings.Authenticate(code, password)
	switch {
	case errors.Is(err, app.ErrMeetingNotFound):
		o.reply(sid, core.MeetingJoined{RoomID: code})
		return
	case errors.Is(err, app.ErrInvalidCredentials):
		log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", string(code)).Msg("join-meeting rejected, bad credentials")
		o.replyError(sid, msgInvalidCredentials)
		return
	case err != nil:
		o.replyError(sid, msgInvalidCredentials)
		return
	}
	// A member of the room already holds a seat.
	current, _, inRoom := o.Registry.RoomOf(sid)
	if !(inRoom && current == code) && o.Rooms.Size(code) >= m.MaxParticipants {
		o.reply(sid, core.RoomFull{})
		return
	}
	o.Registry.Authorize(sid, code)
	o.reply(sid, core.MeetingJoined{RoomID: code})
}
