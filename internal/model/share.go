package model

import "time"

// ShareLink is a public token granting read access to a single menu item.
// A nil ExpiresAt never expires.
type ShareLink struct {
	ID         string     `json:"id"`
	MenuItemID string     `json:"menu_item_id"`
	Token      string     `json:"share_token"`
	CreatedBy  *string    `json:"created_by"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  *time.Time `json:"expires_at"`
	ViewCount  int        `json:"view_count"`
	ShareURL   string     `json:"share_url,omitempty"`
}

// Expired reports whether the link is past its expiry at now.
func (l *ShareLink) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && !now.Before(*l.ExpiresAt)
}
