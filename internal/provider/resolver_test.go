package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"mailgate/pkg/models"
)

type fakeBackend struct {
	name       string
	configured bool
	sends      int
}

func (f *fakeBackend) Name() string                 { return f.name }
func (f *fakeBackend) IsStaticallyConfigured() bool { return f.configured }

func (f *fakeBackend) Send(ctx context.Context, msg *models.Message) *models.SendResult {
	f.sends++
	return &models.SendResult{
		Status:    models.SendStatusSuccess,
		Provider:  f.name,
		Timestamp: time.Now().UTC(),
	}
}

func newTestResolver(gmailConfigured, smtpConfigured bool) (*Resolver, *fakeBackend, *fakeBackend) {
	gmail := &fakeBackend{name: ProviderGmailAPI, configured: gmailConfigured}
	smtp := &fakeBackend{name: ProviderSMTP, configured: smtpConfigured}
	return NewResolver(gmail, smtp, nil), gmail, smtp
}

func TestResolveExplicitGmail(t *testing.T) {
	r, gmail, _ := newTestResolver(true, true)

	resolved, err := r.Resolve(ProviderGmailAPI)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if resolved.Backend != gmail {
		t.Errorf("Expected gmail backend, got %s", resolved.Backend.Name())
	}
	if resolved.Substituted {
		t.Error("Configured gmail must not be marked substituted")
	}
}

func TestResolveGmailAliasName(t *testing.T) {
	r, gmail, _ := newTestResolver(true, true)

	resolved, err := r.Resolve(ProviderGmail)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if resolved.Backend != gmail {
		t.Errorf("Expected gmail backend for legacy alias, got %s", resolved.Backend.Name())
	}
}

func TestResolveUnconfiguredGmailSubstitutesSMTP(t *testing.T) {
	r, _, smtp := newTestResolver(false, true)

	resolved, err := r.Resolve(ProviderGmailAPI)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if resolved.Backend != smtp {
		t.Errorf("Expected SMTP substitution, got %s", resolved.Backend.Name())
	}
	if !resolved.Substituted {
		t.Error("Substitution must be reported")
	}
}

func TestResolveUnconfiguredSMTPFails(t *testing.T) {
	r, _, _ := newTestResolver(true, false)

	_, err := r.Resolve(ProviderSMTP)
	var ncErr *NotConfiguredError
	if !errors.As(err, &ncErr) {
		t.Fatalf("Expected NotConfiguredError, got %v", err)
	}
	if ncErr.Provider != ProviderSMTP {
		t.Errorf("Expected smtp in error, got %s", ncErr.Provider)
	}
}

func TestResolveUnknownProvider(t *testing.T) {
	r, _, _ := newTestResolver(true, true)

	if _, err := r.Resolve("carrier-pigeon"); err == nil {
		t.Error("Expected error for unknown provider")
	}
}

func TestResolveAutoPrefersGmail(t *testing.T) {
	r, gmail, _ := newTestResolver(true, true)

	resolved, err := r.Resolve(ProviderAuto)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if resolved.Backend != gmail {
		t.Errorf("Default priority must prefer gmail, got %s", resolved.Backend.Name())
	}
}

func TestResolveAutoFallsThroughToSMTP(t *testing.T) {
	r, _, smtp := newTestResolver(false, true)

	resolved, err := r.Resolve("")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if resolved.Backend != smtp {
		t.Errorf("Expected SMTP when gmail unconfigured, got %s", resolved.Backend.Name())
	}
}

func TestResolveAutoLastResortIsSMTP(t *testing.T) {
	r, _, smtp := newTestResolver(false, false)

	resolved, err := r.Resolve(ProviderAuto)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if resolved.Backend != smtp {
		t.Errorf("Expected SMTP as last resort, got %s", resolved.Backend.Name())
	}
}

func TestResolveCustomPriority(t *testing.T) {
	gmail := &fakeBackend{name: ProviderGmailAPI, configured: true}
	smtp := &fakeBackend{name: ProviderSMTP, configured: true}
	r := NewResolver(gmail, smtp, []string{ProviderSMTP, ProviderGmailAPI})

	resolved, err := r.Resolve(ProviderAuto)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if resolved.Backend != smtp {
		t.Errorf("Custom priority must prefer smtp, got %s", resolved.Backend.Name())
	}
}

func TestListAvailable(t *testing.T) {
	r, _, _ := newTestResolver(true, false)

	available := r.ListAvailable()
	if len(available) != 1 || available[0] != ProviderGmailAPI {
		t.Errorf("Expected [gmail_api], got %v", available)
	}
}
