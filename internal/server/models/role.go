// Package models defines server-side data models persisted in the database
// and returned by the HTTP API.
package models

import (
	"fmt"

	"github.com/dmitrijs2005/resourcehub/internal/common"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	default:
		return false
	}
}

// ParseRole converts s into a Role. An empty string yields RoleUser.
func ParseRole(s string) (Role, error) {
	if s == "" {
		return RoleUser, nil
	}
	r := Role(s)
	if !r.Valid() {
		return "", common.Errorf(common.ErrorValidation, "Invalid role")
	}
	return r, nil
}

func (r Role) String() string { return string(r) }

// Identity is the decoded token payload attached to a request.
type Identity struct {
	UserID string
	Role   Role
}

// IsAdmin reports whether the identity holds the admin role.
func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// CanModify reports whether the identity may modify a resource owned by ownerID.
func (i Identity) CanModify(ownerID string) bool {
	return i.UserID == ownerID || i.IsAdmin()
}

func (i Identity) String() string { return fmt.Sprintf("%s(%s)", i.UserID, i.Role) }
