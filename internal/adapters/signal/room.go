package signal

import (
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/app/orch"
	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
)

func (ctl *SignalWSController) handleCreateMeeting(
	sid core.SessionID,
	conn *WsSignalConn,
	data json.RawMessage,
) {
	var in domain.MeetingInput
	if !ctl.decode(sid, conn, evCreateMeeting, data, &in) {
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("create meeting")
	ctl.Orch.CreateMeeting(sid, in)
}

func (ctl *SignalWSController) handleJoinMeeting(
	sid core.SessionID,
	conn *WsSignalConn,
	data json.RawMessage,
) {
	var p joinMeetingPayload
	if !ctl.decode(sid, conn, evJoinMeeting, data, &p) {
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room", p.RoomID).Msg("join meeting")
	ctl.Orch.JoinMeeting(sid, p.RoomID, p.Password)
}

func (ctl *SignalWSController) handleJoinRoom(
	sid core.SessionID,
	conn *WsSignalConn,
	data json.RawMessage,
) {
	var p joinRoomPayload
	if !ctl.decode(sid, conn, evJoinRoom, data, &p) {
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room", p.RoomID).Msg("join")
	ctl.Orch.JoinRoom(sid, orch.JoinRoomRequest{
		RoomID:      p.RoomID,
		IsHost:      p.IsHost,
		DisplayName: p.UserInfo.Name,
		Password:    p.Password,
	})
}

// handleLeaveRoom leaves the current room; the connection stays open.
func (ctl *SignalWSController) handleLeaveRoom(sid core.SessionID) {
	log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("leave")
	ctl.Orch.LeaveRoom(sid)
}
