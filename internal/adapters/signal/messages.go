package signal

import (
	"github.com/goccy/go-json"

	"github.com/dkeye/Meet/internal/domain"
)

// Inbound event names.
const (
	evCreateMeeting    = "create-meeting"
	evJoinMeeting      = "join-meeting"
	evJoinRoom         = "join-room"
	evLeaveRoom        = "leave-room"
	evOffer            = "offer"
	evAnswer           = "answer"
	evICECandidate     = "ice-candidate"
	evChatMessage      = "chat-message"
	evMediaStateChange = "media-state-change"
	evScreenShareStart = "screen-share-start"
	evScreenShareStop  = "screen-share-stop"
	evPing             = "ping"
)

const (
	msgBadPayload  = "Invalid payload"
	msgRateLimited = "You are sending messages too fast"
)

type joinMeetingPayload struct {
	RoomID   string `json:"roomId"`
	Password string `json:"password,omitempty"`
}

type joinRoomPayload struct {
	RoomID   string `json:"roomId"`
	IsHost   bool   `json:"isHost"`
	Password string `json:"password,omitempty"`
	UserInfo struct {
		Name string `json:"name"`
	} `json:"userInfo"`
}

type offerPayload struct {
	RoomID   string          `json:"roomId"`
	TargetID domain.UserID   `json:"targetId"`
	Offer    json.RawMessage `json:"offer"`
}

type answerPayload struct {
	RoomID   string          `json:"roomId"`
	TargetID domain.UserID   `json:"targetId"`
	Answer   json.RawMessage `json:"answer"`
}

type candidatePayload struct {
	RoomID    string          `json:"roomId"`
	TargetID  domain.UserID   `json:"targetId"`
	Candidate json.RawMessage `json:"candidate"`
}

type chatPayload struct {
	RoomID  string `json:"roomId"`
	Message string `json:"message"`
}

type mediaStatePayload struct {
	RoomID     string          `json:"roomId"`
	MediaState json.RawMessage `json:"mediaState"`
}
