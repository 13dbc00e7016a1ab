// Package domain contains entities without transport, just meta-data
package domain

import (
	"github.com/google/uuid"
)

const (
	DefaultDisplayName    = "Participant"
	DefaultMaxDisplayName = 50
)

type UserID string

// NewUserID returns a fresh server-assigned id for one connection.
func NewUserID() UserID {
	return UserID(uuid.NewString())
}

type User struct {
	ID          UserID `json:"userId"`
	DisplayName string `json:"displayName"`
}

// NewUser sanitizes displayName and falls back to DefaultDisplayName when
// nothing printable is left.
func NewUser(id UserID, displayName string, maxLen int) *User {
	u := &User{ID: id}
	u.SetDisplayName(displayName, maxLen)
	return u
}

func (u *User) SetDisplayName(raw string, maxLen int) {
	if maxLen <= 0 {
		maxLen = DefaultMaxDisplayName
	}
	name := SanitizeText(raw, maxLen)
	if name == "" {
		name = DefaultDisplayName
	}
	u.DisplayName = name
}
