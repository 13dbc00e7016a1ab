package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	MaxTitleLen       = 100
	MaxDescriptionLen = 500
	MaxLanguageLen    = 16
	MaxPasswordLen    = 64
	MaxScheduleLen    = 32

	DefaultMaxParticipants = 10
	MaxParticipantsLimit   = 100
	DefaultDurationMinutes = 60
)

var (
	ErrTitleEmpty       = errors.New("meeting title is required")
	ErrPasswordRequired = errors.New("password is required for a protected meeting")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// MeetingInput is what a client submits with create-meeting.
type MeetingInput struct {
	Title           string `json:"title" validate:"required"`
	Description     string `json:"description"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	Duration        int    `json:"duration" validate:"min=1,max=1440"`
	Language        string `json:"language"`
	RequirePassword bool   `json:"requirePassword"`
	Password        string `json:"password" validate:"required_if=RequirePassword true"`
	MaxParticipants int    `json:"maxParticipants" validate:"min=1,max=100"`
}

// Normalize sanitizes every free-text field and applies defaults and caps.
func (in MeetingInput) Normalize() MeetingInput {
	out := MeetingInput{
		Title:           SanitizeText(in.Title, MaxTitleLen),
		Description:     SanitizeText(in.Description, MaxDescriptionLen),
		Date:            SanitizeText(in.Date, MaxScheduleLen),
		Time:            SanitizeText(in.Time, MaxScheduleLen),
		Duration:        in.Duration,
		Language:        SanitizeText(in.Language, MaxLanguageLen),
		RequirePassword: in.RequirePassword,
		MaxParticipants: in.MaxParticipants,
	}
	if out.RequirePassword {
		out.Password = SanitizeText(in.Password, MaxPasswordLen)
	}
	if out.Duration <= 0 {
		out.Duration = DefaultDurationMinutes
	}
	if out.MaxParticipants <= 0 {
		out.MaxParticipants = DefaultMaxParticipants
	}
	if out.MaxParticipants > MaxParticipantsLimit {
		out.MaxParticipants = MaxParticipantsLimit
	}
	return out
}

// Validate runs struct validation on an already normalized input.
func (in MeetingInput) Validate() error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	switch fe.Field() {
	case "Title":
		return ErrTitleEmpty
	case "Password":
		return ErrPasswordRequired
	default:
		return fmt.Errorf("invalid %s: failed %q", fe.Field(), fe.Tag())
	}
}

// Meeting is pre-provisioned configuration for a room. The live participant
// set is never stored here; the room registry is authoritative for it.
type Meeting struct {
	Code              RoomCode
	Title             string
	Description       string
	Date              string
	Time              string
	DurationMinutes   int
	Language          string
	PasswordProtected bool
	Password          string
	MaxParticipants   int
	CreatorID         string
	CreatedAt         time.Time
}

func NewMeeting(code RoomCode, in MeetingInput, creatorID string, now time.Time) *Meeting {
	return &Meeting{
		Code:              code,
		Title:             in.Title,
		Description:       in.Description,
		Date:              in.Date,
		Time:              in.Time,
		DurationMinutes:   in.Duration,
		Language:          in.Language,
		PasswordProtected: in.RequirePassword,
		Password:          in.Password,
		MaxParticipants:   in.MaxParticipants,
		CreatorID:         creatorID,
		CreatedAt:         now,
	}
}

// CheckPassword is plain equality, no hashing and no attempt limiting.
func (m *Meeting) CheckPassword(password string) bool {
	if !m.PasswordProtected {
		return true
	}
	return password == m.Password
}

// MeetingInfo is the public view of a Meeting (no password).
type MeetingInfo struct {
	ID                RoomCode  `json:"id"`
	Title             string    `json:"title"`
	Description       string    `json:"description,omitempty"`
	Date              string    `json:"date,omitempty"`
	Time              string    `json:"time,omitempty"`
	Duration          int       `json:"duration"`
	Language          string    `json:"language,omitempty"`
	PasswordProtected bool      `json:"passwordProtected"`
	MaxParticipants   int       `json:"maxParticipants"`
	CreatedAt         time.Time `json:"createdAt"`
}

func (m *Meeting) Info() MeetingInfo {
	return MeetingInfo{
		ID:                m.Code,
		Title:             m.Title,
		Description:       m.Description,
		Date:              m.Date,
		Time:              m.Time,
		Duration:          m.DurationMinutes,
		Language:          m.Language,
		PasswordProtected: m.PasswordProtected,
		MaxParticipants:   m.MaxParticipants,
		CreatedAt:         m.CreatedAt,
	}
}
