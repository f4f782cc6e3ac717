// Package profiles stores consumer, advisor and firm admin profiles.
package profiles

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/wolfman30/advisor-match/internal/identity"
)

var (
	ErrNotFound       = errors.New("profile not found")
	ErrInvalidProfile = errors.New("invalid profile")
)

// Profile is a signed-in user's public record.
type Profile struct {
	ID          string            `json:"id"`
	Type        identity.UserType `json:"user_type"`
	Name        string            `json:"name"`
	Email       string            `json:"email"`
	FirmID      string            `json:"firm_id,omitempty"`
	Headline    string            `json:"headline,omitempty"`
	Timezone    string            `json:"timezone,omitempty"`
	ChatEnabled bool              `json:"chat_enabled"`
	Complete    bool              `json:"complete"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// UpdateRequest is the body of PUT /me/profile.
type UpdateRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Headline    string `json:"headline"`
	Timezone    string `json:"timezone"`
	ChatEnabled *bool  `json:"chat_enabled"`
}

// Apply validates the request and merges it into p for the given identity.
func (r UpdateRequest) Apply(p Profile, who identity.Identity) (Profile, error) {
	p.ID = who.UserID
	p.Type = who.Type
	if who.FirmID != "" {
		p.FirmID = who.FirmID
	}
	p.Name = strings.TrimSpace(r.Name)
	p.Email = strings.ToLower(strings.TrimSpace(r.Email))
	p.Headline = strings.TrimSpace(r.Headline)
	if tz := strings.TrimSpace(r.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return p, fmt.Errorf("%w: unknown timezone %q", ErrInvalidProfile, tz)
		}
		p.Timezone = tz
	}
	if p.Email != "" {
		if _, err := mail.ParseAddress(p.Email); err != nil {
			return p, fmt.Errorf("%w: email address is not valid", ErrInvalidProfile)
		}
	}
	if r.ChatEnabled != nil {
		p.ChatEnabled = *r.ChatEnabled
	} else if p.CreatedAt.IsZero() {
		p.ChatEnabled = true
	}
	p.Complete = p.Name != "" && p.Email != ""
	return p, nil
}

// DisplayName falls back to a generic label when the name is blank.
func (p Profile) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	if p.Type == identity.Advisor {
		return "your advisor"
	}
	return "a client"
}
