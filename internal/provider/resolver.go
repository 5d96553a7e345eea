package provider

import (
	"fmt"
	"log"
)

// Resolver selects the concrete send backend for a request. It checks only
// static configuration; token validity is the refresher's concern.
type Resolver struct {
	gmail    Backend
	smtp     Backend
	priority []string
}

// NewResolver builds a resolver over the two concrete backends. priority
// orders "auto" resolution; it defaults to [gmail_api, smtp].
func NewResolver(gmail, smtp Backend, priority []string) *Resolver {
	if len(priority) == 0 {
		priority = []string{ProviderGmailAPI, ProviderSMTP}
	}
	return &Resolver{gmail: gmail, smtp: smtp, priority: priority}
}

// Resolve picks a backend for the requested provider name.
//
// An explicit request for an unconfigured backend fails with
// NotConfiguredError — with one deliberate exception: a request for the
// Gmail API backend falls back to SMTP when the Gmail API is unconfigured.
// Existing integrations depend on that substitution, so it is kept, logged,
// and reported through Resolved.Substituted rather than hidden.
func (r *Resolver) Resolve(requested string) (*Resolved, error) {
	switch requested {
	case "", ProviderAuto:
		return r.resolveAuto(), nil

	case ProviderGmailAPI, ProviderGmail:
		if r.gmail.IsStaticallyConfigured() {
			return &Resolved{Backend: r.gmail}, nil
		}
		log.Printf("Gmail API not configured, falling back to SMTP")
		return &Resolved{Backend: r.smtp, Substituted: true}, nil

	case ProviderSMTP:
		if !r.smtp.IsStaticallyConfigured() {
			return nil, &NotConfiguredError{Provider: ProviderSMTP}
		}
		return &Resolved{Backend: r.smtp}, nil

	default:
		return nil, fmt.Errorf("unknown provider type: %s", requested)
	}
}

// resolveAuto walks the priority list and returns the first statically
// configured backend. When nothing qualifies it returns SMTP anyway so the
// caller gets a uniform failed send result instead of a resolution error.
func (r *Resolver) resolveAuto() *Resolved {
	for _, name := range r.priority {
		b := r.byName(name)
		if b != nil && b.IsStaticallyConfigured() {
			return &Resolved{Backend: b}
		}
		log.Printf("Provider %s not available, trying next option", name)
	}

	log.Printf("No email providers configured, returning basic SMTP backend")
	return &Resolved{Backend: r.smtp}
}

// ListAvailable returns every backend whose static configuration check
// passes. Diagnostics only; the send path never calls this.
func (r *Resolver) ListAvailable() []string {
	available := make([]string, 0, 2)
	if r.gmail.IsStaticallyConfigured() {
		available = append(available, ProviderGmailAPI)
	}
	if r.smtp.IsStaticallyConfigured() {
		available = append(available, ProviderSMTP)
	}
	return available
}

func (r *Resolver) byName(name string) Backend {
	switch name {
	case ProviderGmailAPI, ProviderGmail:
		return r.gmail
	case ProviderSMTP:
		return r.smtp
	}
	return nil
}
