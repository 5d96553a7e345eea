package credentials

import (
	"time"
)

// Provider names as stored in credential records.
const (
	ProviderGmail = "gmail"
)

// Record is one tenant's stored credential set for one provider. At most one
// record exists per (SubjectID, Provider).
//
// Connected status is defined by RefreshToken presence alone: a record with
// an access token but no refresh token is disconnected.
type Record struct {
	SubjectID       string    `json:"subject_id"`
	Provider        string    `json:"provider"`
	AccessToken     string    `json:"access_token,omitempty"`
	RefreshToken    string    `json:"refresh_token,omitempty"`
	ExpiresAt       time.Time `json:"expires_at,omitempty"`
	AccountIdentity string    `json:"account_identity,omitempty"`
	ConnectedAt     time.Time `json:"connected_at,omitempty"`
	UpdatedAt       time.Time `json:"updated_at,omitempty"`
}

// Connected reports whether the record holds a usable long-lived grant.
func (r *Record) Connected() bool {
	return r.RefreshToken != ""
}

// TokenValid reports whether the access token can be used without a refresh.
func (r *Record) TokenValid(now time.Time) bool {
	return r.AccessToken != "" && now.Before(r.ExpiresAt)
}

// merge folds an incoming record into the existing one. The identity provider
// omits refresh_token on re-exchanges without a consent prompt; the stored
// refresh token must survive that.
func merge(existing, incoming *Record) *Record {
	out := *incoming

	if out.RefreshToken == "" {
		out.RefreshToken = existing.RefreshToken
	}
	if out.AccountIdentity == "" {
		out.AccountIdentity = existing.AccountIdentity
	}
	if existing.ConnectedAt.IsZero() {
		if out.ConnectedAt.IsZero() {
			out.ConnectedAt = time.Now().UTC()
		}
	} else {
		out.ConnectedAt = existing.ConnectedAt
	}

	return &out
}
