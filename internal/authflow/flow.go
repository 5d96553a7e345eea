package authflow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"mailgate/internal/config"
	"mailgate/internal/credentials"
)

// expiryMargin is subtracted from provider-reported expiry to tolerate clock
// skew and in-flight request latency.
const expiryMargin = time.Minute

// ExchangeError reports a rejected authorization-code exchange. 4xx responses
// (bad code, redirect mismatch) are not retryable; only transient network
// causes are.
type ExchangeError struct {
	StatusCode int
	Err        error
}

func (e *ExchangeError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("authorization code exchange rejected (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("authorization code exchange failed: %v", e.Err)
}

func (e *ExchangeError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the exchange may succeed on retry.
func (e *ExchangeError) Retryable() bool {
	return e.StatusCode < 400 || e.StatusCode >= 500
}

// Controller drives the authorization-code flow: it builds authorization
// URLs, exchanges callback codes for tokens, resolves the authenticated
// account's identity, and persists the resulting credential record.
type Controller struct {
	cfg   config.OAuthConfig
	store *credentials.Store
}

func NewController(cfg config.OAuthConfig, store *credentials.Store) *Controller {
	return &Controller{cfg: cfg, store: store}
}

// AuthorizationURL builds the identity provider's authorization endpoint URL.
// access_type=offline and prompt=consent are mandatory: without them Google
// withholds the refresh token. The state parameter carries the subject ID for
// callback correlation only; it is attacker-visible and grants nothing.
func (c *Controller) AuthorizationURL(subjectID, redirectURI string, scopes []string) (string, error) {
	if c.cfg.ClientID == "" {
		return "", fmt.Errorf("gmail OAuth client ID is not configured")
	}
	if redirectURI == "" {
		redirectURI = c.cfg.RedirectURI
	}
	if len(scopes) == 0 {
		scopes = c.cfg.Scopes
	}

	params := url.Values{}
	params.Set("client_id", c.cfg.ClientID)
	params.Set("redirect_uri", redirectURI)
	params.Set("response_type", "code")
	params.Set("scope", strings.Join(scopes, " "))
	params.Set("access_type", "offline")
	params.Set("prompt", "consent")
	params.Set("state", subjectID)

	log.Printf("Generated OAuth URL for subject: %s", subjectID)
	return c.cfg.AuthURL + "?" + params.Encode(), nil
}

// CompleteAuthorization exchanges the callback code for tokens, resolves the
// account identity, and persists the merged credential record. The
// redirectURI must equal the one used to build the authorization URL.
//
// When the identity lookup fails after a successful exchange, the tokens are
// persisted anyway with an empty account identity so the grant is not lost;
// the identity is backfilled on the next exchange.
func (c *Controller) CompleteAuthorization(ctx context.Context, code, subjectID, redirectURI string) (*credentials.Record, error) {
	if redirectURI == "" {
		redirectURI = c.cfg.RedirectURI
	}

	oc := c.oauthConfig(redirectURI)

	tok, err := oc.Exchange(ctx, code)
	if err != nil {
		return nil, wrapExchangeError(err)
	}

	identity, err := c.lookupIdentity(ctx, tok.AccessToken)
	if err != nil {
		log.Printf("Identity lookup failed for subject %s after token exchange, persisting tokens without identity: %v", subjectID, err)
		identity = ""
	}

	rec := &credentials.Record{
		SubjectID:       subjectID,
		Provider:        credentials.ProviderGmail,
		AccessToken:     tok.AccessToken,
		RefreshToken:    tok.RefreshToken,
		ExpiresAt:       tok.Expiry.Add(-expiryMargin),
		AccountIdentity: identity,
	}

	saved, err := c.store.SaveMerged(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("failed to persist credentials for subject %s: %w", subjectID, err)
	}

	log.Printf("OAuth tokens stored for subject %s: %s", subjectID, saved.AccountIdentity)
	return saved, nil
}

func (c *Controller) oauthConfig(redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
		RedirectURL:  redirectURI,
		Scopes:       c.cfg.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  c.cfg.AuthURL,
			TokenURL: c.cfg.TokenURL,
		},
	}
}

// lookupIdentity resolves the authenticated account's email address via the
// Gmail profile endpoint.
func (c *Controller) lookupIdentity(ctx context.Context, accessToken string) (string, error) {
	opts := []option.ClientOption{
		option.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})),
	}
	if c.cfg.APIBaseURL != "" {
		opts = append(opts, option.WithEndpoint(c.cfg.APIBaseURL))
	}

	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to create Gmail service: %w", err)
	}

	profile, err := svc.Users.GetProfile("me").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to fetch Gmail profile: %w", err)
	}

	return profile.EmailAddress, nil
}

func wrapExchangeError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		return &ExchangeError{StatusCode: re.Response.StatusCode, Err: err}
	}
	return &ExchangeError{Err: err}
}
