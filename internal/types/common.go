package types

import "github.com/gofrs/uuid"

// HTTP Header Constants
const (
	HeaderAuthorization = "Authorization"
	HeaderRequestID     = "X-Request-ID"
)

// Authentication Constants
const (
	BearerPrefix = "Bearer "
	UserCtxName  = "user"
)

// Common Values
const (
	UserRole  = "user"
	AdminRole = "admin"
)

// UserContext is the authenticated principal a request acts on behalf of
type UserContext struct {
	UserID      uuid.UUID `json:"uid"`
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName"`
	SystemRole  string    `json:"role"`
	CreatedDate int64     `json:"createdDate"`
}

// Authenticated reports whether the principal carries a user id
func (u *UserContext) Authenticated() bool {
	return u != nil && u.UserID != uuid.Nil
}

// IsAdmin reports whether the principal holds the admin role
func (u *UserContext) IsAdmin() bool {
	return u != nil && u.SystemRole == AdminRole
}
