package orch

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/dkeye/Meet/internal/app"
	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
)

type captureSignal struct {
	mu     sync.Mutex
	frames []core.Frame
	full   bool
}

func (c *captureSignal) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.full {
		return errors.New("queue full")
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *captureSignal) Close() {}

func (c *captureSignal) raw() []core.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]core.Frame(nil), c.frames...)
}

func (c *captureSignal) setFull(v bool) {
	c.mu.Lock()
	c.full = v
	c.mu.Unlock()
}

func (c *captureSignal) reset() {
	c.mu.Lock()
	c.frames = nil
	c.mu.Unlock()
}

type received struct {
	Type string
	Data json.RawMessage
}

func (c *captureSignal) events(t *testing.T) []received {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]received, 0, len(c.frames))
	for _, f := range c.frames {
		var env struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(f, &env); err != nil {
			t.Fatalf("Unmarshal(%s): %v", f, err)
		}
		out = append(out, received{Type: env.Type, Data: env.Data})
	}
	return out
}

func (c *captureSignal) types(t *testing.T) []string {
	t.Helper()
	var out []string
	for _, ev := range c.events(t) {
		out = append(out, ev.Type)
	}
	return out
}

// last decodes the data of the most recent event of type typ into v.
func (c *captureSignal) last(t *testing.T, typ string, v any) bool {
	t.Helper()
	evs := c.events(t)
	for i := len(evs) - 1; i >= 0; i-- {
		if evs[i].Type != typ {
			continue
		}
		if err := json.Unmarshal(evs[i].Data, v); err != nil {
			t.Fatalf("Unmarshal %s data %s: %v", typ, evs[i].Data, err)
		}
		return true
	}
	return false
}

func (c *captureSignal) count(t *testing.T, typ string) int {
	t.Helper()
	n := 0
	for _, ev := range c.events(t) {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

type harness struct {
	o     *Orchestrator
	rooms *app.RoomManagerImpl
	sigs  map[core.SessionID]*captureSignal
	kicks map[core.SessionID]int
	mu    sync.Mutex
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	rooms := app.NewRoomManager()
	o := New(app.NewRegistry(), rooms, app.NewMeetingStore(time.Hour), app.SimplePolicy{}, DefaultLimits())
	o.Now = func() time.Time { return time.Unix(1700000000, 0) }
	return &harness{
		o:     o,
		rooms: rooms,
		sigs:  make(map[core.SessionID]*captureSignal),
		kicks: make(map[core.SessionID]int),
	}
}

func (h *harness) connect(sid core.SessionID) *captureSignal {
	sig := &captureSignal{}
	h.sigs[sid] = sig
	h.o.Registry.BindSignal(sid, sig, "", func() {
		h.mu.Lock()
		h.kicks[sid]++
		h.mu.Unlock()
	})
	return sig
}

func (h *harness) join(sid core.SessionID, room, name string) *captureSignal {
	sig, ok := h.sigs[sid]
	if !ok {
		sig = h.connect(sid)
	}
	h.o.JoinRoom(sid, JoinRoomRequest{RoomID: room, DisplayName: name})
	return sig
}

func (h *harness) createMeeting(t *testing.T, sid core.SessionID, in domain.MeetingInput) domain.RoomCode {
	t.Helper()
	sig, ok := h.sigs[sid]
	if !ok {
		sig = h.connect(sid)
	}
	h.o.CreateMeeting(sid, in)
	var created core.MeetingCreated
	if !sig.last(t, core.EventMeetingCreated, &created) {
		t.Fatalf("no meeting-created, got %v", sig.types(t))
	}
	return created.RoomID
}

func TestJoinRoom_FirstMemberDoesNotOffer(t *testing.T) {
	h := newHarness(t)
	a := h.join("a", " abc123 ", "A")
	b := h.join("b", "ABC123", "B")

	var ja, jb core.RoomJoined
	if !a.last(t, core.EventRoomJoined, &ja) || !b.last(t, core.EventRoomJoined, &jb) {
		t.Fatalf("missing room-joined: a=%v b=%v", a.types(t), b.types(t))
	}
	if ja.ShouldCreateOffer {
		t.Fatalf("first member told to create offer")
	}
	if !jb.ShouldCreateOffer {
		t.Fatalf("second member not told to create offer")
	}
	if ja.RoomID != "ABC123" {
		t.Fatalf("room code = %q, want ABC123", ja.RoomID)
	}

	var uj core.UserJoined
	if !a.last(t, core.EventUserJoined, &uj) {
		t.Fatalf("a did not see user-joined: %v", a.types(t))
	}
	if uj.UserID != "b" || uj.UserInfo.Name != "B" || !uj.ShouldCreateOffer {
		t.Fatalf("user-joined = %+v", uj)
	}
	if b.count(t, core.EventUserJoined) != 0 {
		t.Fatalf("joiner received its own user-joined")
	}

	var members []core.MemberDTO
	if !b.last(t, core.EventRoomMembers, &members) || len(members) != 1 || members[0].UserID != "a" {
		t.Fatalf("room-members for b = %+v", members)
	}
	if !a.last(t, core.EventRoomMembers, &members) || len(members) != 0 {
		t.Fatalf("room-members for first joiner = %+v", members)
	}
}

func TestJoinRoom_MemberCountTracksRegistry(t *testing.T) {
	h := newHarness(t)
	a := h.join("a", "R", "A")
	h.join("b", "R", "B")
	h.join("c", "R", "C")

	var n int
	if !a.last(t, core.EventMemberCount, &n) || n != 3 {
		t.Fatalf("member-count after three joins = %d", n)
	}
	h.o.LeaveRoom("c")
	if !a.last(t, core.EventMemberCount, &n) || n != h.rooms.Size("R") {
		t.Fatalf("member-count after leave = %d, registry size %d", n, h.rooms.Size("R"))
	}
	h.o.OnDisconnect("b")
	if !a.last(t, core.EventMemberCount, &n) || n != 1 {
		t.Fatalf("member-count after disconnect = %d, want 1", n)
	}
}

func TestJoinRoom_EmptyCodeRejected(t *testing.T) {
	h := newHarness(t)
	a := h.join("a", "   ", "A")

	var e core.ErrorEvent
	if !a.last(t, core.EventError, &e) || e.Message != msgRoomRequired {
		t.Fatalf("error = %+v, events %v", e, a.types(t))
	}
	if len(h.rooms.List()) != 0 {
		t.Fatalf("a room was created for an empty code")
	}
}

func TestJoinRoom_CapacityScenario(t *testing.T) {
	h := newHarness(t)
	code := h.createMeeting(t, "host", domain.MeetingInput{Title: "Standup", MaxParticipants: 2})

	a := h.join("a", string(code), "A")
	var n int
	if !a.last(t, core.EventMemberCount, &n) || n != 1 {
		t.Fatalf("count after A = %d", n)
	}
	h.join("b", string(code), "B")
	if !a.last(t, core.EventMemberCount, &n) || n != 2 {
		t.Fatalf("count after B = %d", n)
	}
	c := h.join("c", string(code), "C")
	if c.count(t, core.EventRoomFull) != 1 {
		t.Fatalf("C events = %v, want room-full", c.types(t))
	}
	if c.count(t, core.EventRoomJoined) != 0 {
		t.Fatalf("C was admitted")
	}
	if got := h.rooms.Size(code); got != 2 {
		t.Fatalf("size = %d, want 2", got)
	}
	if _, _, ok := h.o.Registry.RoomOf("c"); ok {
		t.Fatalf("rejected session bound to room")
	}
}

func TestJoinMeeting_FullRoom(t *testing.T) {
	h := newHarness(t)
	code := h.createMeeting(t, "host", domain.MeetingInput{Title: "1:1", MaxParticipants: 1})
	h.join("a", string(code), "A")

	b := h.connect("b")
	h.o.JoinMeeting("b", string(code), "")
	if b.count(t, core.EventRoomFull) != 1 {
		t.Fatalf("b events = %v, want room-full", b.types(t))
	}
}

func TestJoinMeeting_MemberOfFullRoomIsAdmitted(t *testing.T) {
	h := newHarness(t)
	code := h.createMeeting(t, "host", domain.MeetingInput{Title: "1:1", MaxParticipants: 1})
	a := h.join("a", string(code), "A")

	a.reset()
	h.o.JoinMeeting("a", string(code), "")
	var mj core.MeetingJoined
	if !a.last(t, core.EventMeetingJoined, &mj) || mj.RoomID != code {
		t.Fatalf("a events = %v, want meeting-joined", a.types(t))
	}
	if a.count(t, core.EventRoomFull) != 0 {
		t.Fatalf("member of the room told it is full")
	}
}

func TestJoinMeeting_UnknownCodeIsAdHoc(t *testing.T) {
	h := newHarness(t)
	a := h.connect("a")
	h.o.JoinMeeting("a", "lobby", "")

	var mj core.MeetingJoined
	if !a.last(t, core.EventMeetingJoined, &mj) || mj.RoomID != "LOBBY" {
		t.Fatalf("meeting-joined = %+v, events %v", mj, a.types(t))
	}
}

func TestPasswordProtectedMeeting(t *testing.T) {
	h := newHarness(t)
	code := h.createMeeting(t, "host", domain.MeetingInput{Title: "Board", RequirePassword: true, Password: "pw"})

	// Creator is already authorized.
	host := h.join("host", string(code), "Host")
	if host.count(t, core.EventRoomJoined) != 1 {
		t.Fatalf("creator not admitted: %v", host.types(t))
	}

	a := h.join("a", string(code), "A")
	var e core.ErrorEvent
	if !a.last(t, core.EventError, &e) || e.Message != msgInvalidCredentials {
		t.Fatalf("join-room without password: %v", a.types(t))
	}

	a.reset()
	h.o.JoinMeeting("a", string(code), "nope")
	if !a.last(t, core.EventError, &e) || e.Message != msgInvalidCredentials {
		t.Fatalf("join-meeting wrong password: %v", a.types(t))
	}
	h.o.JoinMeeting("a", string(code), "pw")
	if a.count(t, core.EventMeetingJoined) != 1 {
		t.Fatalf("join-meeting right password: %v", a.types(t))
	}
	h.join("a", string(code), "A")
	if a.count(t, core.EventRoomJoined) != 1 {
		t.Fatalf("authorized session not admitted: %v", a.types(t))
	}

	b := h.connect("b")
	h.o.JoinRoom("b", JoinRoomRequest{RoomID: string(code), DisplayName: "B", Password: "pw"})
	if b.count(t, core.EventRoomJoined) != 1 {
		t.Fatalf("join-room with password: %v", b.types(t))
	}
}

func TestCreateMeeting_EmptyTitle(t *testing.T) {
	h := newHarness(t)
	a := h.connect("a")
	h.o.CreateMeeting("a", domain.MeetingInput{Title: "<b></b>  "})

	if a.count(t, core.EventError) != 1 {
		t.Fatalf("events = %v, want error", a.types(t))
	}
	if h.o.Meetings.Len() != 0 {
		t.Fatalf("meeting stored despite empty title")
	}
}

func TestLeave_MeetingOutlivesEmptyRoom(t *testing.T) {
	h := newHarness(t)
	code := h.createMeeting(t, "host", domain.MeetingInput{Title: "Retro"})
	h.join("a", string(code), "A")
	h.o.OnDisconnect("a")

	if h.rooms.Size(code) != 0 {
		t.Fatalf("room still has members")
	}
	if _, ok := h.o.Meetings.Get(code); !ok {
		t.Fatalf("meeting removed on immediate leave path")
	}
}

func TestJoinRoom_SwitchLeavesPreviousRoom(t *testing.T) {
	h := newHarness(t)
	h.join("a", "R1", "A")
	b := h.join("b", "R1", "B")
	h.join("a", "R2", "A")

	var left core.UserLeft
	if !b.last(t, core.EventUserLeft, &left) || left.UserID != "a" || left.DisplayName != "A" {
		t.Fatalf("b did not see a leave: %+v %v", left, b.types(t))
	}
	if h.rooms.Size("R1") != 1 || h.rooms.Size("R2") != 1 {
		t.Fatalf("sizes R1=%d R2=%d", h.rooms.Size("R1"), h.rooms.Size("R2"))
	}
	if code, _, _ := h.o.Registry.RoomOf("a"); code != "R2" {
		t.Fatalf("a bound to %q, want R2", code)
	}
}

func TestOnDisconnect_Idempotent(t *testing.T) {
	h := newHarness(t)
	h.join("a", "R", "A")
	b := h.join("b", "R", "B")

	h.o.OnDisconnect("a")
	h.o.OnDisconnect("a")
	h.o.LeaveRoom("a")

	if got := b.count(t, core.EventUserLeft); got != 1 {
		t.Fatalf("user-left delivered %d times, want 1", got)
	}
	if h.o.Registry.Count() != 1 {
		t.Fatalf("registry count = %d, want 1", h.o.Registry.Count())
	}
}

func TestRelay_VerbatimWithFromID(t *testing.T) {
	h := newHarness(t)
	a := h.join("a", "R", "A")
	b := h.join("b", "R", "B")
	c := h.join("c", "R", "C")
	b.reset()
	c.reset()

	payload := `{ "type": "offer", "sdp": "v=0 o=- 42 2 IN IP4 127.0.0.1 a=x<y>&z" }`
	h.o.Relay("a", SignalOffer, "b", json.RawMessage(payload))

	frames := b.raw()
	if len(frames) != 1 {
		t.Fatalf("b got %d frames, want 1", len(frames))
	}
	want := `"offer":` + payload + `,"fromId":"a"`
	if !strings.Contains(string(frames[0]), want) {
		t.Fatalf("frame = %s, want it to contain %s", frames[0], want)
	}
	if len(c.events(t)) != 0 || a.count(t, core.EventOffer) != 0 {
		t.Fatalf("offer leaked to non-target")
	}
}

func TestRelay_UnknownTargetAndOutsideRoom(t *testing.T) {
	h := newHarness(t)
	a := h.join("a", "R", "A")
	a.reset()

	h.o.Relay("a", SignalCandidate, "ghost", json.RawMessage(`{"candidate":"x"}`))
	if len(a.events(t)) != 0 {
		t.Fatalf("sender got %v for unknown target", a.types(t))
	}

	lone := h.connect("lone")
	h.o.Relay("lone", SignalAnswer, "a", json.RawMessage(`{}`))
	h.o.Chat("lone", "hello")
	if len(a.events(t)) != 0 || len(lone.events(t)) != 0 {
		t.Fatalf("session outside a room reached someone")
	}
}

func TestChat_SanitizedBroadcast(t *testing.T) {
	h := newHarness(t)
	a := h.join("a", "ABC123", "A")
	b := h.join("b", "ABC123", "B")
	a.reset()
	b.reset()

	h.o.Chat("a", "<script>x</script> hi")

	var msg core.ChatMessage
	if !b.last(t, core.EventChatMessage, &msg) {
		t.Fatalf("b events = %v", b.types(t))
	}
	if msg.Message != "hi" || msg.Sender != "A" || msg.SenderID != "a" {
		t.Fatalf("chat = %+v", msg)
	}
	if a.count(t, core.EventChatMessage) != 0 {
		t.Fatalf("sender received own chat")
	}
}

func TestChat_EmptyDroppedLongTruncated(t *testing.T) {
	h := newHarness(t)
	h.o.Limits.ChatMaxLen = 5
	h.join("a", "R", "A")
	b := h.join("b", "R", "B")
	b.reset()

	h.o.Chat("a", "  <i></i>  ")
	if len(b.events(t)) != 0 {
		t.Fatalf("empty chat was broadcast: %v", b.types(t))
	}
	h.o.Chat("a", "abcdefgh")
	var msg core.ChatMessage
	if !b.last(t, core.EventChatMessage, &msg) || msg.Message != "abcde" {
		t.Fatalf("chat = %+v", msg)
	}
}

func TestBroadcast_SlowConsumerKicked(t *testing.T) {
	h := newHarness(t)
	h.join("a", "R", "A")
	b := h.join("b", "R", "B")
	b.setFull(true)

	h.o.Chat("a", "hello")

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.kicks["b"] != 1 {
		t.Fatalf("kicks = %v, want b kicked once", h.kicks)
	}
	if h.kicks["a"] != 0 {
		t.Fatalf("sender was kicked")
	}
}

func TestConcurrentJoins_ExactlyOneFirst(t *testing.T) {
	for i := 0; i < 50; i++ {
		h := newHarness(t)
		a := h.connect("a")
		b := h.connect("b")

		var wg sync.WaitGroup
		wg.Add(2)
		go func() { defer wg.Done(); h.o.JoinRoom("a", JoinRoomRequest{RoomID: "R", DisplayName: "A"}) }()
		go func() { defer wg.Done(); h.o.JoinRoom("b", JoinRoomRequest{RoomID: "R", DisplayName: "B"}) }()
		wg.Wait()

		var ja, jb core.RoomJoined
		a.last(t, core.EventRoomJoined, &ja)
		b.last(t, core.EventRoomJoined, &jb)
		if ja.ShouldCreateOffer == jb.ShouldCreateOffer {
			t.Fatalf("iteration %d: shouldCreateOffer a=%v b=%v", i, ja.ShouldCreateOffer, jb.ShouldCreateOffer)
		}
	}
}

func TestMediaAndScreenShare(t *testing.T) {
	h := newHarness(t)
	h.join("a", "R", "A")
	b := h.join("b", "R", "B")
	b.reset()

	h.o.MediaState("a", json.RawMessage(`{"audio":false,"video":true}`))
	h.o.ScreenShare("a", true)
	h.o.ScreenShare("a", false)

	want := []string{core.EventUserMediaState, core.EventScreenShareStart, core.EventScreenShareStop}
	got := b.types(t)
	if len(got) != len(want) {
		t.Fatalf("b events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("b events = %v, want %v", got, want)
		}
	}
}
