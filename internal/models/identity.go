package models

import (
	"strings"

	"github.com/google/uuid"
)

// Role gates what an identity may persist.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
	RoleGuest Role = "guest"
)

// NormalizeRole maps unknown or empty roles to RoleUser.
func NormalizeRole(role string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(role))) {
	case RoleAdmin:
		return RoleAdmin
	case RoleGuest:
		return RoleGuest
	default:
		return RoleUser
	}
}

// Identity is the active actor of a session. Avatar is either an emoji glyph
// or an embedded image payload (data URI).
type Identity struct {
	Username    string `json:"username" bson:"username"`
	DisplayName string `json:"displayName" bson:"display_name"`
	Avatar      string `json:"avatar,omitempty" bson:"avatar,omitempty"`
	Role        Role   `json:"role" bson:"role"`
}

// IsZero reports whether no identity is set.
func (i Identity) IsZero() bool {
	return i.Username == ""
}

// HasImageAvatar reports whether the avatar is an embedded image payload.
func (i Identity) HasImageAvatar() bool {
	return strings.HasPrefix(i.Avatar, "data:image/")
}

// NewUsername generates an opaque username at signup time.
func NewUsername() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "u_" + id[:12]
}
