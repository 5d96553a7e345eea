package provider

import (
	"context"
	"fmt"

	"mailgate/pkg/models"
)

// Backend is the contract every send backend implements.
//
// Send never returns an error: every failure is folded into the SendResult
// so callers can present partial-batch outcomes uniformly.
// IsStaticallyConfigured checks only the static tier (credentials and hosts
// present in configuration); whether a token is currently valid is resolved
// lazily at send time by the token refresher.
type Backend interface {
	Name() string
	Send(ctx context.Context, msg *models.Message) *models.SendResult
	IsStaticallyConfigured() bool
}

// Provider names accepted in send requests.
const (
	ProviderGmailAPI = "gmail_api"
	ProviderGmail    = "gmail" // legacy alias for gmail_api
	ProviderSMTP     = "smtp"
	ProviderAuto     = "auto"
)

// NotConfiguredError reports an explicitly requested backend whose static
// configuration is incomplete.
type NotConfiguredError struct {
	Provider string
}

func (e *NotConfiguredError) Error() string {
	return fmt.Sprintf("provider %s is not configured", e.Provider)
}

// Resolved carries the selection outcome. Substituted is set when the caller
// asked for the Gmail API backend but received SMTP because the Gmail API
// was unconfigured (the documented legacy fallback).
type Resolved struct {
	Backend     Backend
	Substituted bool
}
