package core

import (
	"bytes"
	"errors"
	"time"

	"github.com/goccy/go-json"

	"github.com/dkeye/Meet/internal/domain"
)

// Outbound event names.
const (
	EventMeetingCreated   = "meeting-created"
	EventMeetingJoined    = "meeting-joined"
	EventRoomFull         = "room-full"
	EventError            = "error"
	EventRoomJoined       = "room-joined"
	EventUserJoined       = "user-joined"
	EventUserLeft         = "user-left"
	EventRoomMembers      = "room-members"
	EventMemberCount      = "member-count"
	EventOffer            = "offer"
	EventAnswer           = "answer"
	EventICECandidate     = "ice-candidate"
	EventChatMessage      = "chat-message"
	EventUserMediaState   = "user-media-state"
	EventScreenShareStart = "user-screen-share-start"
	EventScreenShareStop  = "user-screen-share-stop"
	EventPong             = "pong"
)

// Event is one outbound message kind. The set of implementations below is
// closed; every value sent to a client is one of them.
type Event interface {
	EventType() string
}

type envelope struct {
	Type string `json:"type"`
	Data Event  `json:"data"`
}

var ErrInvalidPayload = errors.New("relayed payload is not valid JSON")

var nullJSON = json.RawMessage("null")

// relayed events carry a client payload that must reach the peer exactly as
// it was sent, so it is spliced into the envelope instead of re-encoded.
type relayed interface {
	Event
	relayKey() string
	relayPayload() json.RawMessage
	relayFrom() domain.UserID
}

// Encode wraps ev into the {"type","data"} envelope. HTML characters are not
// escaped.
func Encode(ev Event) (Frame, error) {
	if r, ok := ev.(relayed); ok {
		return encodeRelayed(r)
	}
	return marshal(envelope{Type: ev.EventType(), Data: ev})
}

func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func encodeRelayed(r relayed) (Frame, error) {
	payload := r.relayPayload()
	if len(payload) == 0 {
		payload = nullJSON
	}
	if !json.Valid(payload) {
		return nil, ErrInvalidPayload
	}
	typ, err := marshal(r.EventType())
	if err != nil {
		return nil, err
	}
	key, err := marshal(r.relayKey())
	if err != nil {
		return nil, err
	}
	from, err := marshal(string(r.relayFrom()))
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 0, len(payload)+len(typ)+len(key)+len(from)+32)
	buf = append(buf, `{"type":`...)
	buf = append(buf, typ...)
	buf = append(buf, `,"data":{`...)
	buf = append(buf, key...)
	buf = append(buf, ':')
	buf = append(buf, payload...)
	buf = append(buf, `,"fromId":`...)
	buf = append(buf, from...)
	buf = append(buf, `}}`...)
	return buf, nil
}

type MeetingCreated struct {
	RoomID      domain.RoomCode    `json:"roomId"`
	MeetingData domain.MeetingInfo `json:"meetingData"`
}

type MeetingJoined struct {
	RoomID domain.RoomCode `json:"roomId"`
}

type RoomFull struct{}

type ErrorEvent struct {
	Message string `json:"message"`
}

type RoomJoined struct {
	RoomID            domain.RoomCode `json:"roomId"`
	UserID            domain.UserID   `json:"userId"`
	DisplayName       string          `json:"displayName"`
	ShouldCreateOffer bool            `json:"shouldCreateOffer"`
	JoinedAt          time.Time       `json:"joinedAt"`
}

type UserInfo struct {
	Name string `json:"name"`
}

type UserJoined struct {
	UserID            domain.UserID `json:"userId"`
	UserInfo          UserInfo      `json:"userInfo"`
	ShouldCreateOffer bool          `json:"shouldCreateOffer"`
	JoinedAt          time.Time     `json:"joinedAt"`
}

type UserLeft struct {
	UserID      domain.UserID `json:"userId"`
	DisplayName string        `json:"displayName,omitempty"`
	LeftAt      time.Time     `json:"leftAt"`
}

type RoomMembers []MemberDTO

type MemberCount int

// Offer, Answer and ICECandidate carry the client payload untouched; see
// encodeRelayed.
type Offer struct {
	Offer  json.RawMessage `json:"offer"`
	FromID domain.UserID   `json:"fromId"`
}

type Answer struct {
	Answer json.RawMessage `json:"answer"`
	FromID domain.UserID   `json:"fromId"`
}

type ICECandidate struct {
	Candidate json.RawMessage `json:"candidate"`
	FromID    domain.UserID   `json:"fromId"`
}

func (e Offer) relayKey() string                     { return "offer" }
func (e Offer) relayPayload() json.RawMessage        { return e.Offer }
func (e Offer) relayFrom() domain.UserID             { return e.FromID }
func (e Answer) relayKey() string                    { return "answer" }
func (e Answer) relayPayload() json.RawMessage       { return e.Answer }
func (e Answer) relayFrom() domain.UserID            { return e.FromID }
func (e ICECandidate) relayKey() string              { return "candidate" }
func (e ICECandidate) relayPayload() json.RawMessage { return e.Candidate }
func (e ICECandidate) relayFrom() domain.UserID      { return e.FromID }

type ChatMessage struct {
	Message   string        `json:"message"`
	Sender    string        `json:"sender"`
	SenderID  domain.UserID `json:"senderId"`
	Timestamp time.Time     `json:"timestamp"`
}

type UserMediaState struct {
	UserID     domain.UserID   `json:"userId"`
	MediaState json.RawMessage `json:"mediaState"`
}

type ScreenShareStarted struct {
	UserID domain.UserID `json:"userId"`
}

type ScreenShareStopped struct {
	UserID domain.UserID `json:"userId"`
}

type Pong struct{}

func (MeetingCreated) EventType() string     { return EventMeetingCreated }
func (MeetingJoined) EventType() string      { return EventMeetingJoined }
func (RoomFull) EventType() string           { return EventRoomFull }
func (ErrorEvent) EventType() string         { return EventError }
func (RoomJoined) EventType() string         { return EventRoomJoined }
func (UserJoined) EventType() string         { return EventUserJoined }
func (UserLeft) EventType() string           { return EventUserLeft }
func (RoomMembers) EventType() string        { return EventRoomMembers }
func (MemberCount) EventType() string        { return EventMemberCount }
func (Offer) EventType() string              { return EventOffer }
func (Answer) EventType() string             { return EventAnswer }
func (ICECandidate) EventType() string       { return EventICECandidate }
func (ChatMessage) EventType() string        { return EventChatMessage }
func (UserMediaState) EventType() string     { return EventUserMediaState }
func (ScreenShareStarted) EventType() string { return EventScreenShareStart }
func (ScreenShareStopped) EventType() string { return EventScreenShareStop }
func (Pong) EventType() string               { return EventPong }
