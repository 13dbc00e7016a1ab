package signal

import (
	"github.com/goccy/go-json"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/app/orch"
	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
)

// The server never applies descriptions or candidates. They are decoded only
// to reject garbage early, then relayed byte for byte.

func (ctl *SignalWSController) handleOffer(
	sid core.SessionID,
	conn *WsSignalConn,
	data json.RawMessage,
) {
	var p offerPayload
	if !ctl.decode(sid, conn, evOffer, data, &p) {
		return
	}
	if !validDescription(p.Offer, webrtc.SDPTypeOffer) {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("bad offer payload")
		ctl.sendError(conn, msgBadPayload)
		return
	}
	ctl.relay(sid, orch.SignalOffer, p.TargetID, p.Offer)
}

func (ctl *SignalWSController) handleAnswer(
	sid core.SessionID,
	conn *WsSignalConn,
	data json.RawMessage,
) {
	var p answerPayload
	if !ctl.decode(sid, conn, evAnswer, data, &p) {
		return
	}
	if !validDescription(p.Answer, webrtc.SDPTypeAnswer, webrtc.SDPTypePranswer) {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("bad answer payload")
		ctl.sendError(conn, msgBadPayload)
		return
	}
	ctl.relay(sid, orch.SignalAnswer, p.TargetID, p.Answer)
}

func (ctl *SignalWSController) handleCandidate(
	sid core.SessionID,
	conn *WsSignalConn,
	data json.RawMessage,
) {
	var p candidatePayload
	if !ctl.decode(sid, conn, evICECandidate, data, &p) {
		return
	}
	if len(p.Candidate) > 0 {
		var cand webrtc.ICECandidateInit
		if err := json.Unmarshal(p.Candidate, &cand); err != nil {
			log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad candidate payload")
			ctl.sendError(conn, msgBadPayload)
			return
		}
	}
	ctl.relay(sid, orch.SignalCandidate, p.TargetID, p.Candidate)
}

func (ctl *SignalWSController) relay(sid core.SessionID, kind orch.SignalKind, target domain.UserID, payload json.RawMessage) {
	if target == "" {
		log.Debug().Str("module", "signal").Str("sid", string(sid)).Str("kind", kind.String()).Msg("relay without target")
		return
	}
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	ctl.Orch.Relay(sid, kind, target, payload)
}

// validDescription accepts a session description whose type is unset or one
// of allowed. Anything that is not a JSON object is rejected.
func validDescription(raw json.RawMessage, allowed ...webrtc.SDPType) bool {
	if len(raw) == 0 || string(raw) == "null" {
		return false
	}
	var desc webrtc.SessionDescription
	if err := json.Unmarshal(raw, &desc); err != nil {
		return false
	}
	if desc.Type == webrtc.SDPTypeUnknown {
		return true
	}
	for _, t := range allowed {
		if desc.Type == t {
			return true
		}
	}
	return false
}
