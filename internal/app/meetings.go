package app

import (
	"crypto/rand"
	"errors"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/dkeye/Meet/internal/domain"
	"github.com/rs/zerolog/log"
)

const (
	roomCodeAlphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	roomCodeLength      = 6
	roomCodeMaxAttempts = 16

	DefaultMeetingTTL = time.Hour
)

var (
	ErrMeetingNotFound    = errors.New("meeting not found")
	ErrInvalidCredentials = errors.New("invalid meeting code or password")
	ErrCodeSpaceExhausted = errors.New("could not allocate a unique room code")
)

// RoomSizer is the slice of the room registry the meeting store needs.
type RoomSizer interface {
	Size(code domain.RoomCode) int
}

// RoomGuard lets eviction run while the registry cannot admit anyone to the
// room. WhileEmpty calls fn and reports true only if the room has no members;
// no join can interleave with fn.
type RoomGuard interface {
	RoomSizer
	WhileEmpty(code domain.RoomCode, fn func()) bool
}

// MeetingStore keeps pre-provisioned meeting metadata. It is independent of
// live membership: a meeting exists before anyone joins and may outlive an
// empty room until the sweeper evicts it.
type MeetingStore struct {
	ttl time.Duration

	mu       sync.RWMutex
	meetings map[domain.RoomCode]*domain.Meeting
}

func NewMeetingStore(ttl time.Duration) *MeetingStore {
	if ttl <= 0 {
		ttl = DefaultMeetingTTL
	}
	return &MeetingStore{
		ttl:      ttl,
		meetings: make(map[domain.RoomCode]*domain.Meeting),
	}
}

func (s *MeetingStore) TTL() time.Duration { return s.ttl }

// Create validates in, allocates a code unused by both meetings and live
// rooms, and stores the meeting.
func (s *MeetingStore) Create(in domain.MeetingInput, creatorID string, rooms RoomSizer, now time.Time) (*domain.Meeting, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for attempt := 0; attempt < roomCodeMaxAttempts; attempt++ {
		code, err := generateRoomCode()
		if err != nil {
			return nil, err
		}
		if _, taken := s.meetings[code]; taken {
			continue
		}
		if rooms != nil && rooms.Size(code) > 0 {
			continue
		}
		m := domain.NewMeeting(code, in, creatorID, now)
		s.meetings[code] = m
		log.Info().Str("module", "app.meetings").Str("room", string(code)).Str("title", m.Title).Int("max", m.MaxParticipants).Bool("protected", m.PasswordProtected).Msg("meeting created")
		return m, nil
	}
	return nil, ErrCodeSpaceExhausted
}

func (s *MeetingStore) Get(code domain.RoomCode) (*domain.Meeting, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.meetings[code]
	return m, ok
}

// Authenticate returns the meeting for code if password opens it.
func (s *MeetingStore) Authenticate(code domain.RoomCode, password string) (*domain.Meeting, error) {
	m, ok := s.Get(code)
	if !ok {
		return nil, ErrMeetingNotFound
	}
	if !m.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}
	return m, nil
}

func (s *MeetingStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.meetings)
}

// List returns every meeting ordered by creation time.
func (s *MeetingStore) List() []*domain.Meeting {
	s.mu.RLock()
	out := make([]*domain.Meeting, 0, len(s.meetings))
	for _, m := range s.meetings {
		out = append(out, m)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Code < out[j].Code
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// EvictStale deletes meetings older than the TTL whose room is absent or
// empty. The emptiness check and the delete happen under the registry lock,
// so a member joining mid-sweep either keeps the meeting or finds it gone.
// Lock order is store then registry.
func (s *MeetingStore) EvictStale(now time.Time, rooms RoomGuard) []domain.RoomCode {
	s.mu.Lock()
	defer s.mu.Unlock()
	var evicted []domain.RoomCode
	for code, m := range s.meetings {
		if now.Sub(m.CreatedAt) <= s.ttl {
			continue
		}
		drop := func() { delete(s.meetings, code) }
		if rooms == nil {
			drop()
		} else if !rooms.WhileEmpty(code, drop) {
			continue
		}
		evicted = append(evicted, code)
		log.Info().Str("module", "app.meetings").Str("room", string(code)).Dur("age", now.Sub(m.CreatedAt)).Msg("stale meeting evicted")
	}
	return evicted
}

func generateRoomCode() (domain.RoomCode, error) {
	buf := make([]byte, roomCodeLength)
	max := big.NewInt(int64(len(roomCodeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = roomCodeAlphabet[n.Int64()]
	}
	return domain.RoomCode(buf), nil
}
