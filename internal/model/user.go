// Package model defines the data structures used throughout the application.
package model

import "time"

// Theme preferences accepted by PATCH /api/auth/preferences.
const (
	ThemeLight  = "light"
	ThemeDark   = "dark"
	ThemeSystem = "system"
)

// User represents a registered user account.
//
// Google is the identity provider, so the external identifier is the Google
// account's "sub"/id string. We still generate our own internal xid so primary
// keys are not tied to a third party's numbering scheme.
//
// ActiveGroupID is nil until the user has a group to operate in. It has no
// foreign key: the group service checks membership before every write.
type User struct {
	ID              string    `json:"id"               db:"id"`
	GoogleID        string    `json:"-"                db:"google_id"`
	Email           string    `json:"email"            db:"email"`
	Name            string    `json:"name"             db:"name"`
	AvatarURL       string    `json:"avatar_url"       db:"avatar_url"`
	ThemePreference string    `json:"theme_preference" db:"theme_preference"`
	ActiveGroupID   *string   `json:"active_group_id"  db:"active_group_id"`
	CreatedAt       time.Time `json:"created_at"       db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"       db:"updated_at"`
}

// HasActiveGroup reports whether the active group pointer is set.
func (u *User) HasActiveGroup() bool {
	return u.ActiveGroupID != nil && *u.ActiveGroupID != ""
}

// ValidTheme reports whether theme is one of the accepted preferences.
func ValidTheme(theme string) bool {
	switch theme {
	case ThemeLight, ThemeDark, ThemeSystem:
		return true
	}
	return false
}
