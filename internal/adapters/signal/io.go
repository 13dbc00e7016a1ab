package signal

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/panics"

	"github.com/dkeye/Meet/internal/core"
)

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
				time.Now().Add(ctl.opts.WriteWait))
			return
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.opts.WriteWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctl.opts.WriteWait)); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump ping")
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, cancel context.CancelFunc, sid core.SessionID, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump closing")
		ctl.Orch.OnDisconnect(sid)
		ctl.limiter.Forget(sid.UserID())
		cancel()
		c.Close()
	}()

	c.conn.SetReadLimit(ctl.opts.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))
	})

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("readPump read error")
				}
				return
			}
			_ = c.conn.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))

			var pc panics.Catcher
			pc.Try(func() { ctl.handleSignal(sid, c, data) })
			if r := pc.Recovered(); r != nil {
				log.Error().Err(r.AsError()).Str("module", "signal").Str("sid", string(sid)).Msg("handler panic, closing session")
				return
			}
		}
	}
}

type inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (ctl *SignalWSController) handleSignal(sid core.SessionID, c *WsSignalConn, data []byte) {
	var env inbound
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad json")
		ctl.sendError(c, msgBadPayload)
		return
	}

	switch env.Type {
	case evCreateMeeting:
		ctl.handleCreateMeeting(sid, c, env.Data)
	case evJoinMeeting:
		ctl.handleJoinMeeting(sid, c, env.Data)
	case evJoinRoom:
		ctl.handleJoinRoom(sid, c, env.Data)
	case evLeaveRoom:
		ctl.handleLeaveRoom(sid)
	case evOffer:
		ctl.handleOffer(sid, c, env.Data)
	case evAnswer:
		ctl.handleAnswer(sid, c, env.Data)
	case evICECandidate:
		ctl.handleCandidate(sid, c, env.Data)
	case evChatMessage:
		ctl.handleChat(sid, c, env.Data)
	case evMediaStateChange:
		ctl.handleMediaState(sid, c, env.Data)
	case evScreenShareStart:
		ctl.handleScreenShare(sid, true)
	case evScreenShareStop:
		ctl.handleScreenShare(sid, false)
	case evPing:
		ctl.handlePing(sid)
	default:
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Str("type", env.Type).Msg("unknown signal")
	}
}

// decode unmarshals a required payload, answering the sender on failure.
func (ctl *SignalWSController) decode(sid core.SessionID, c *WsSignalConn, kind string, data json.RawMessage, v any) bool {
	if len(data) == 0 {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Str("type", kind).Msg("missing payload")
		ctl.sendError(c, msgBadPayload)
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Str("type", kind).Msg("bad payload")
		ctl.sendError(c, msgBadPayload)
		return false
	}
	return true
}
