package domain

import (
	"errors"
	"strings"
)

const MaxRoomCodeLen = 64

var (
	ErrRoomCodeEmpty   = errors.New("room code empty")
	ErrRoomCodeTooLong = errors.New("room code too long")
)

// RoomCode is the case-insensitive room identifier, stored upper-cased.
type RoomCode string

func ParseRoomCode(raw string) (RoomCode, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if code == "" {
		return "", ErrRoomCodeEmpty
	}
	if len(code) > MaxRoomCodeLen {
		return "", ErrRoomCodeTooLong
	}
	return RoomCode(code), nil
}
