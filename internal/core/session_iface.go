package core

import "github.com/dkeye/Meet/internal/domain"

// SessionID identifies one live connection. It doubles as the member's
// domain.UserID once the connection joins a room.
type SessionID string

func (s SessionID) UserID() domain.UserID { return domain.UserID(s) }

// MemberSession binds domain.Member and its transport endpoint.
// This is what a room stores and fans out to.
type MemberSession interface {
	Meta() *domain.Member
	Signal() SignalConnection
}
