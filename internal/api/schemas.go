package api

import (
	"mailgate/internal/validation"
	"mailgate/pkg/models"

	"github.com/google/uuid"
)

// SendRequest is the wire form of an email send. Provider is only honored on
// the single-tenant endpoint; multi-tenant sends always go through the
// requesting user's Gmail grant.
type SendRequest struct {
	Provider string   `json:"provider,omitempty"`
	From     string   `json:"from,omitempty"`
	To       []string `json:"to"`
	CC       []string `json:"cc,omitempty"`
	BCC      []string `json:"bcc,omitempty"`
	Subject  string   `json:"subject"`
	Body     string   `json:"body"`
	HTML     bool     `json:"html,omitempty"`
}

// Validate rejects malformed requests before any backend is touched.
func (r *SendRequest) Validate() error {
	if err := validation.ValidateEmailList(r.To); err != nil {
		return err
	}
	if err := validation.ValidateOptionalEmailList(r.CC); err != nil {
		return err
	}
	if err := validation.ValidateOptionalEmailList(r.BCC); err != nil {
		return err
	}
	if r.From != "" {
		if err := validation.ValidateEmail(r.From); err != nil {
			return err
		}
	}
	if err := validation.ValidateSubject(r.Subject); err != nil {
		return err
	}
	return validation.ValidateBody(r.Body)
}

// Message converts the request into the normalized internal envelope.
func (r *SendRequest) Message(userID string) *models.Message {
	return &models.Message{
		ID:      uuid.New().String(),
		From:    r.From,
		To:      r.To,
		CC:      r.CC,
		BCC:     r.BCC,
		Subject: r.Subject,
		Body:    r.Body,
		HTML:    r.HTML,
		UserID:  userID,
	}
}

type AuthorizeRequest struct {
	UserID      string   `json:"user_id"`
	RedirectURI string   `json:"redirect_uri,omitempty"`
	Scopes      []string `json:"scopes,omitempty"`
}

type AuthorizeResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	State            string `json:"state"`
}

// CallbackRequest is the POST bridge for frontends that receive the
// authorization code themselves (popup/postmessage flows).
type CallbackRequest struct {
	Code        string `json:"code"`
	State       string `json:"state"`
	RedirectURI string `json:"redirect_uri,omitempty"`
}

type CallbackResponse struct {
	Status       string `json:"status"`
	UserID       string `json:"user_id"`
	EmailAddress string `json:"email_address,omitempty"`
}

type DisconnectResponse struct {
	Status string `json:"status"`
	UserID string `json:"user_id"`
}

type ProvidersResponse struct {
	Available []string `json:"available"`
	Preferred string   `json:"preferred"`
}

type errorResponse struct {
	Error string `json:"error"`
}
