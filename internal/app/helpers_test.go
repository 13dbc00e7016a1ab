package app

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

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

func member(id string, sig core.SignalConnection) core.MemberSession {
	u := domain.NewUser(domain.UserID(id), id, 50)
	return core.NewMemberSession(domain.NewMember(u, false, time.Unix(1700000000, 0)), sig)
}

type staticSizer map[domain.RoomCode]int

func (s staticSizer) Size(code domain.RoomCode) int { return s[code] }

func (s staticSizer) WhileEmpty(code domain.RoomCode, fn func()) bool {
	if s[code] > 0 {
		return false
	}
	fn()
	return true
}

// lateJoinGuard reports an empty room on Size but a member by the time the
// registry lock is held, as when a join lands between the two.
type lateJoinGuard struct{}

func (lateJoinGuard) Size(domain.RoomCode) int                { return 0 }
func (lateJoinGuard) WhileEmpty(domain.RoomCode, func()) bool { return false }
