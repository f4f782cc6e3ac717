// Package identity carries the authenticated user through request contexts.
package identity

import (
	"context"
	"strings"
)

// UserType is the role a signed-in user plays.
type UserType string

const (
	Consumer  UserType = "consumer"
	Advisor   UserType = "advisor"
	FirmAdmin UserType = "firm_admin"
)

// ParseUserType normalises a claim value; ok is false for unknown roles.
func ParseUserType(s string) (UserType, bool) {
	switch UserType(strings.ToLower(strings.TrimSpace(s))) {
	case Consumer:
		return Consumer, true
	case Advisor:
		return Advisor, true
	case FirmAdmin:
		return FirmAdmin, true
	}
	return "", false
}

// Identity is the caller as established by the auth layer.
type Identity struct {
	UserID string
	Type   UserType
	FirmID string
}

func (id Identity) IsConsumer() bool  { return id.Type == Consumer }
func (id Identity) IsAdvisor() bool   { return id.Type == Advisor }
func (id Identity) IsFirmAdmin() bool { return id.Type == FirmAdmin }

type ctxKey string

const identityKey ctxKey = "advisormatch.identity"

// WithIdentity stores the identity in context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// FromContext extracts the identity if present.
func FromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok && id.UserID != ""
}
