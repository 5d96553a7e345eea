package token

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"mailgate/internal/config"
	"mailgate/internal/credentials"
)

// expiryMargin is subtracted from provider-reported expiry to tolerate clock
// skew and in-flight request latency.
const expiryMargin = time.Minute

// staticSubject keys the cache entry for the shared single-tenant grant.
const staticSubject = "static"

// NotConnectedError means there is no usable refresh token for the subject.
// The remedy is re-running the authorization flow, not retrying.
type NotConnectedError struct {
	SubjectID string
	Provider  string
	Reason    string
}

func (e *NotConnectedError) Error() string {
	return fmt.Sprintf("%s account not connected for subject %q: %s", e.Provider, e.SubjectID, e.Reason)
}

// IsNotConnected reports whether err signals a missing or revoked grant.
func IsNotConnected(err error) bool {
	var nc *NotConnectedError
	return errors.As(err, &nc)
}

// Refresher hands out valid access tokens, refreshing expired ones through
// the refresh-token grant. Concurrent refreshes for the same subject are
// allowed to race; each resulting token is independently usable.
type Refresher struct {
	cfg   config.OAuthConfig
	store *credentials.Store
	cache Cache
}

func NewRefresher(cfg config.OAuthConfig, store *credentials.Store, cache Cache) *Refresher {
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &Refresher{cfg: cfg, store: store, cache: cache}
}

// ValidAccessToken returns an access token for the subject that is guaranteed
// unexpired at call time. The happy path (cached, unexpired token) performs
// no network or store I/O.
func (r *Refresher) ValidAccessToken(ctx context.Context, subjectID, provider string) (string, error) {
	key := cacheKey(subjectID, provider)
	now := time.Now()

	if tok, ok := r.cache.Get(ctx, key); ok && now.Before(tok.ExpiresAt) {
		return tok.Value, nil
	}

	rec, err := r.store.Get(ctx, subjectID, provider)
	if err != nil {
		if errors.Is(err, credentials.ErrNotFound) {
			return "", &NotConnectedError{SubjectID: subjectID, Provider: provider, Reason: "no credentials on file"}
		}
		return "", err
	}

	if rec.TokenValid(now) {
		r.cachePut(ctx, key, rec.AccessToken, rec.ExpiresAt)
		return rec.AccessToken, nil
	}

	if !rec.Connected() {
		return "", &NotConnectedError{SubjectID: subjectID, Provider: provider, Reason: "no refresh token on file"}
	}

	newTok, err := r.refreshGrant(ctx, rec.RefreshToken)
	if err != nil {
		if isPermanentRefreshError(err) {
			// The stored record stays intact; the user must reauthorize.
			return "", &NotConnectedError{SubjectID: subjectID, Provider: provider, Reason: "refresh token rejected by identity provider, reauthorization required"}
		}
		return "", fmt.Errorf("token refresh failed for %s/%s: %w", subjectID, provider, err)
	}

	expiresAt := newTok.Expiry.Add(-expiryMargin)
	rec.AccessToken = newTok.AccessToken
	rec.ExpiresAt = expiresAt
	if newTok.RefreshToken != "" && newTok.RefreshToken != rec.RefreshToken {
		log.Printf("Rotating refresh token for subject %s", subjectID)
		rec.RefreshToken = newTok.RefreshToken
	}

	if err := r.store.Save(ctx, rec); err != nil {
		// The minted token is still valid; losing the write-back only costs
		// a redundant refresh later.
		log.Printf("Failed to persist refreshed token for %s/%s: %v", subjectID, provider, err)
	}

	r.cachePut(ctx, key, newTok.AccessToken, expiresAt)
	return newTok.AccessToken, nil
}

// StaticAccessToken returns a valid access token minted from the shared
// refresh token in configuration. Used by the single-tenant Gmail path.
func (r *Refresher) StaticAccessToken(ctx context.Context) (string, error) {
	if r.cfg.RefreshToken == "" {
		return "", &NotConnectedError{SubjectID: staticSubject, Provider: credentials.ProviderGmail, Reason: "no shared refresh token configured"}
	}

	key := cacheKey(staticSubject, credentials.ProviderGmail)
	if tok, ok := r.cache.Get(ctx, key); ok && time.Now().Before(tok.ExpiresAt) {
		return tok.Value, nil
	}

	newTok, err := r.refreshGrant(ctx, r.cfg.RefreshToken)
	if err != nil {
		if isPermanentRefreshError(err) {
			return "", &NotConnectedError{SubjectID: staticSubject, Provider: credentials.ProviderGmail, Reason: "shared refresh token rejected by identity provider"}
		}
		return "", fmt.Errorf("token refresh failed: %w", err)
	}

	expiresAt := newTok.Expiry.Add(-expiryMargin)
	r.cachePut(ctx, key, newTok.AccessToken, expiresAt)
	return newTok.AccessToken, nil
}

// Invalidate drops the cached token for a subject, e.g. on disconnect.
func (r *Refresher) Invalidate(ctx context.Context, subjectID, provider string) {
	r.cache.Delete(ctx, cacheKey(subjectID, provider))
}

func (r *Refresher) refreshGrant(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	oc := &oauth2.Config{
		ClientID:     r.cfg.ClientID,
		ClientSecret: r.cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  r.cfg.AuthURL,
			TokenURL: r.cfg.TokenURL,
		},
	}

	ts := oc.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	return ts.Token()
}

func (r *Refresher) cachePut(ctx context.Context, key, value string, expiresAt time.Time) {
	r.cache.Put(ctx, key, Token{Value: value, ExpiresAt: expiresAt}, time.Until(expiresAt))
}

func cacheKey(subjectID, provider string) string {
	return subjectID + "/" + provider
}

// isPermanentRefreshError distinguishes revoked/expired grants (reauthorize)
// from transient failures (retry later).
func isPermanentRefreshError(err error) bool {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		if re.Response.StatusCode == 400 || re.Response.StatusCode == 401 {
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"invalid_grant", "invalid_client", "unauthorized_client", "revoked"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
