package provider

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/oauth2"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"mailgate/internal/config"
	"mailgate/internal/credentials"
	"mailgate/internal/token"
	"mailgate/pkg/models"
)

// GmailBackend sends through the Gmail API. Messages carrying a UserID use
// that tenant's stored grant; messages without one use the shared refresh
// token from configuration. Both paths obtain their access token from the
// refresher at send time.
type GmailBackend struct {
	cfg       config.OAuthConfig
	refresher *token.Refresher
}

func NewGmailBackend(cfg config.OAuthConfig, refresher *token.Refresher) *GmailBackend {
	return &GmailBackend{cfg: cfg, refresher: refresher}
}

func (b *GmailBackend) Name() string {
	return ProviderGmailAPI
}

// IsStaticallyConfigured checks the single-tenant credential set. Multi-tenant
// sends bypass this check: their dynamic validity is per-subject.
func (b *GmailBackend) IsStaticallyConfigured() bool {
	return b.cfg.ClientID != "" && b.cfg.ClientSecret != "" && b.cfg.RefreshToken != ""
}

func (b *GmailBackend) Send(ctx context.Context, msg *models.Message) *models.SendResult {
	accessToken, err := b.accessToken(ctx, msg)
	if err != nil {
		kind := models.ErrorKindSend
		if token.IsNotConnected(err) {
			kind = models.ErrorKindNotConnected
		}
		return b.failed(err.Error(), kind)
	}

	raw, err := buildRawMessage(msg)
	if err != nil {
		return b.failed(err.Error(), models.ErrorKindSend)
	}

	svc, err := b.service(ctx, accessToken)
	if err != nil {
		return b.failed(fmt.Sprintf("failed to create Gmail service: %v", err), models.ErrorKindSend)
	}

	start := time.Now()
	result, err := svc.Users.Messages.Send("me", &gmail.Message{Raw: raw}).Context(ctx).Do()
	if err != nil {
		if googleErr, ok := err.(*googleapi.Error); ok {
			log.Printf("Gmail API error (took %v): Code=%d, Message=%s", time.Since(start), googleErr.Code, googleErr.Message)
			return b.failed(fmt.Sprintf("Gmail API error (code %d): %s", googleErr.Code, googleErr.Message), models.ErrorKindSend)
		}
		return b.failed(fmt.Sprintf("failed to send email via Gmail: %v", err), models.ErrorKindSend)
	}

	log.Printf("Gmail send successful to %v (took %v, Gmail ID: %s)", msg.To, time.Since(start), result.Id)

	return &models.SendResult{
		Status:    models.SendStatusSuccess,
		Provider:  ProviderGmailAPI,
		MessageID: result.Id,
		Timestamp: time.Now().UTC(),
	}
}

func (b *GmailBackend) accessToken(ctx context.Context, msg *models.Message) (string, error) {
	if msg.UserID != "" {
		return b.refresher.ValidAccessToken(ctx, msg.UserID, credentials.ProviderGmail)
	}
	return b.refresher.StaticAccessToken(ctx)
}

func (b *GmailBackend) service(ctx context.Context, accessToken string) (*gmail.Service, error) {
	opts := []option.ClientOption{
		option.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})),
	}
	if b.cfg.APIBaseURL != "" {
		opts = append(opts, option.WithEndpoint(b.cfg.APIBaseURL))
	}
	return gmail.NewService(ctx, opts...)
}

func (b *GmailBackend) failed(errText, kind string) *models.SendResult {
	return &models.SendResult{
		Status:    models.SendStatusFailed,
		Provider:  ProviderGmailAPI,
		Error:     errText,
		ErrorKind: kind,
		Timestamp: time.Now().UTC(),
	}
}

// buildRawMessage renders the envelope as a base64url-encoded MIME message,
// the wire format the Gmail API expects.
func buildRawMessage(msg *models.Message) (string, error) {
	mime, err := buildMIME(msg)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString([]byte(mime)), nil
}

// buildMIME renders the normalized envelope as an RFC 5322 message.
func buildMIME(msg *models.Message) (string, error) {
	if msg.Body == "" {
		return "", fmt.Errorf("message must contain body content")
	}

	var sb strings.Builder

	if msg.From != "" {
		sb.WriteString(fmt.Sprintf("From: %s\r\n", msg.From))
	}
	sb.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(msg.To, ", ")))
	if len(msg.CC) > 0 {
		sb.WriteString(fmt.Sprintf("Cc: %s\r\n", strings.Join(msg.CC, ", ")))
	}
	if len(msg.BCC) > 0 {
		sb.WriteString(fmt.Sprintf("Bcc: %s\r\n", strings.Join(msg.BCC, ", ")))
	}
	sb.WriteString(fmt.Sprintf("Subject: %s\r\n", msg.Subject))

	if msg.HTML {
		sb.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	} else {
		sb.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	}
	sb.WriteString("\r\n")
	sb.WriteString(msg.Body)

	return sb.String(), nil
}
