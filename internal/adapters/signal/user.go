package signal

import (
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/core"
)

func (ctl *SignalWSController) handleChat(
	sid core.SessionID,
	conn *WsSignalConn,
	data json.RawMessage,
) {
	var p chatPayload
	if !ctl.decode(sid, conn, evChatMessage, data, &p) {
		return
	}
	if !ctl.limiter.Allow(sid.UserID()) {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("chat rate limited")
		ctl.sendError(conn, msgRateLimited)
		return
	}
	ctl.Orch.Chat(sid, p.Message)
}

func (ctl *SignalWSController) handleMediaState(
	sid core.SessionID,
	conn *WsSignalConn,
	data json.RawMessage,
) {
	var p mediaStatePayload
	if !ctl.decode(sid, conn, evMediaStateChange, data, &p) {
		return
	}
	if len(p.MediaState) == 0 {
		ctl.sendError(conn, msgBadPayload)
		return
	}
	ctl.Orch.MediaState(sid, p.MediaState)
}

func (ctl *SignalWSController) handleScreenShare(sid core.SessionID, started bool) {
	log.Info().Str("module", "signal").Str("sid", string(sid)).Bool("started", started).Msg("screen share")
	ctl.Orch.ScreenShare(sid, started)
}
