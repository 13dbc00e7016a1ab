package core

import (
	"errors"
	"time"

	"github.com/dkeye/Meet/internal/domain"
)

var ErrRoomFull = errors.New("room full")

// PublishResult reports delivery stats/backpressure to orchestrator.
type PublishResult struct {
	SendTo  int
	Dropped []MemberSession
}

// MemberDTO is a read-only view for APIs (no transport fields).
type MemberDTO struct {
	UserID      domain.UserID `json:"userId"`
	DisplayName string        `json:"displayName"`
	IsHost      bool          `json:"isHost,omitempty"`
	JoinedAt    time.Time     `json:"joinedAt"`
}

// RoomService is the core-facing API of a room.
// It owns the membership set but never touches transport resources.
type RoomService interface {
	Code() domain.RoomCode
	MemberCount() int
	MembersSnapshot() []MemberDTO

	// Upsert inserts or replaces the member keyed by its user id and
	// reports whether an entry was replaced.
	Upsert(ms MemberSession) bool
	Remove(id domain.UserID) bool
	Lookup(id domain.UserID) (MemberSession, bool)
	Broadcast(exclude domain.UserID, data Frame) PublishResult
}

type RoomInfo struct {
	Code        domain.RoomCode `json:"roomId"`
	MemberCount int             `json:"memberCount"`
}

// JoinResult is what the joining session learns from RoomRegistry.Join.
type JoinResult struct {
	Members []MemberDTO
	// IsFirst is true when the room was empty before this join.
	IsFirst bool
	Count   int
}

// RoomRegistry maps room codes to live rooms. A room exists only while it
// has at least one member.
type RoomRegistry interface {
	// Join upserts ms into the room, creating it if absent. A positive
	// capacity is enforced atomically with the insert; ErrRoomFull is
	// returned if a new member would exceed it.
	Join(code domain.RoomCode, ms MemberSession, capacity int) (JoinResult, error)
	// Leave removes the member and drops the room once empty. Unknown
	// code/id pairs are a no-op. It returns the remaining member count.
	Leave(code domain.RoomCode, id domain.UserID) int
	Lookup(code domain.RoomCode, id domain.UserID) (MemberSession, bool)
	Size(code domain.RoomCode) int
	Room(code domain.RoomCode) (RoomService, bool)
	List() []RoomInfo
}
