package models

import "time"

// UserProfile describes a tenant's provider connection as shown to callers.
// Connected status is derived from refresh-token presence in the stored
// credential record; it is never stored as a separate flag.
type UserProfile struct {
	UserID         string     `json:"user_id"`
	EmailAddress   string     `json:"email_address,omitempty"`
	GmailConnected bool       `json:"gmail_connected"`
	ConnectedAt    *time.Time `json:"connected_at,omitempty"`
}
