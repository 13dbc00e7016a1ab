package domain

import "time"

// Member represents user's participation meta for a room.
// No transport or lifecycle logic here.
type Member struct {
	User     *User
	IsHost   bool
	JoinedAt time.Time
}

// NewMember avoids raw literals in adapters and keeps construction obvious.
func NewMember(user *User, isHost bool, joinedAt time.Time) *Member {
	return &Member{User: user, IsHost: isHost, JoinedAt: joinedAt}
}
