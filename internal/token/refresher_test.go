package token

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"mailgate/internal/config"
	"mailgate/internal/credentials"
	"mailgate/internal/secrets"
)

// fakeTokenEndpoint counts refresh-grant calls and serves canned responses.
type fakeTokenEndpoint struct {
	calls       int64
	accessToken string
	statusCode  int
	errorBody   string
}

func (f *fakeTokenEndpoint) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&f.calls, 1)
		w.Header().Set("Content-Type", "application/json")

		if f.statusCode != 0 && f.statusCode != http.StatusOK {
			w.WriteHeader(f.statusCode)
			fmt.Fprint(w, f.errorBody)
			return
		}

		fmt.Fprintf(w, `{"access_token":"%s","token_type":"Bearer","expires_in":3600}`, f.accessToken)
	}
}

func (f *fakeTokenEndpoint) callCount() int64 {
	return atomic.LoadInt64(&f.calls)
}

func newTestRefresher(t *testing.T, endpoint *fakeTokenEndpoint, refreshToken string) (*Refresher, *credentials.Store) {
	t.Helper()

	srv := httptest.NewServer(endpoint.handler())
	t.Cleanup(srv.Close)

	cfg := config.OAuthConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		AuthURL:      srv.URL + "/auth",
		TokenURL:     srv.URL + "/token",
		RefreshToken: refreshToken,
	}

	store := credentials.NewStore(secrets.NewMemoryStore())
	return NewRefresher(cfg, store, nil), store
}

func TestValidStoredTokenPerformsNoNetworkIO(t *testing.T) {
	endpoint := &fakeTokenEndpoint{accessToken: "should-not-be-minted"}
	refresher, store := newTestRefresher(t, endpoint, "")
	ctx := context.Background()

	rec := &credentials.Record{
		SubjectID:    "u1",
		Provider:     credentials.ProviderGmail,
		AccessToken:  "at1",
		RefreshToken: "rt1",
		ExpiresAt:    time.Now().Add(time.Hour),
	}
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		got, err := refresher.ValidAccessToken(ctx, "u1", credentials.ProviderGmail)
		if err != nil {
			t.Fatalf("ValidAccessToken failed: %v", err)
		}
		if got != "at1" {
			t.Errorf("Expected at1, got %s", got)
		}
	}

	if endpoint.callCount() != 0 {
		t.Errorf("Expected zero token endpoint calls, got %d", endpoint.callCount())
	}
}

func TestMissingRecordIsNotConnected(t *testing.T) {
	endpoint := &fakeTokenEndpoint{}
	refresher, _ := newTestRefresher(t, endpoint, "")

	_, err := refresher.ValidAccessToken(context.Background(), "nobody", credentials.ProviderGmail)
	if !IsNotConnected(err) {
		t.Fatalf("Expected NotConnectedError, got %v", err)
	}
	if endpoint.callCount() != 0 {
		t.Errorf("Missing record must not hit the token endpoint, got %d calls", endpoint.callCount())
	}
}

func TestMissingRefreshTokenIsNotConnected(t *testing.T) {
	endpoint := &fakeTokenEndpoint{}
	refresher, store := newTestRefresher(t, endpoint, "")
	ctx := context.Background()

	rec := &credentials.Record{
		SubjectID:   "u1",
		Provider:    credentials.ProviderGmail,
		AccessToken: "at1",
		ExpiresAt:   time.Now().Add(-time.Minute),
	}
	store.Save(ctx, rec)

	_, err := refresher.ValidAccessToken(ctx, "u1", credentials.ProviderGmail)
	if !IsNotConnected(err) {
		t.Fatalf("Expected NotConnectedError, got %v", err)
	}
	if endpoint.callCount() != 0 {
		t.Errorf("Expected zero token endpoint calls, got %d", endpoint.callCount())
	}
}

func TestExpiredTokenIsRefreshedExactlyOnce(t *testing.T) {
	endpoint := &fakeTokenEndpoint{accessToken: "at2"}
	refresher, store := newTestRefresher(t, endpoint, "")
	ctx := context.Background()

	rec := &credentials.Record{
		SubjectID:    "u1",
		Provider:     credentials.ProviderGmail,
		AccessToken:  "at1",
		RefreshToken: "rt1",
		ExpiresAt:    time.Now().Add(-time.Minute),
	}
	store.Save(ctx, rec)

	got, err := refresher.ValidAccessToken(ctx, "u1", credentials.ProviderGmail)
	if err != nil {
		t.Fatalf("ValidAccessToken failed: %v", err)
	}
	if got != "at2" {
		t.Errorf("Expected refreshed token at2, got %s", got)
	}

	// Second call must come from cache.
	got, err = refresher.ValidAccessToken(ctx, "u1", credentials.ProviderGmail)
	if err != nil {
		t.Fatalf("Second ValidAccessToken failed: %v", err)
	}
	if got != "at2" {
		t.Errorf("Expected cached token at2, got %s", got)
	}
	if endpoint.callCount() != 1 {
		t.Errorf("Expected exactly one refresh, got %d", endpoint.callCount())
	}

	stored, err := store.Get(ctx, "u1", credentials.ProviderGmail)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if stored.AccessToken != "at2" {
		t.Errorf("Refreshed token not persisted, record holds %s", stored.AccessToken)
	}
	if stored.RefreshToken != "rt1" {
		t.Errorf("Refresh token must survive a refresh, got %q", stored.RefreshToken)
	}
}

func TestRevokedRefreshTokenLeavesRecordIntact(t *testing.T) {
	endpoint := &fakeTokenEndpoint{statusCode: http.StatusBadRequest, errorBody: `{"error":"invalid_grant"}`}
	refresher, store := newTestRefresher(t, endpoint, "")
	ctx := context.Background()

	rec := &credentials.Record{
		SubjectID:    "u1",
		Provider:     credentials.ProviderGmail,
		AccessToken:  "at1",
		RefreshToken: "rt1",
		ExpiresAt:    time.Now().Add(-time.Minute),
	}
	store.Save(ctx, rec)

	_, err := refresher.ValidAccessToken(ctx, "u1", credentials.ProviderGmail)
	if !IsNotConnected(err) {
		t.Fatalf("Expected NotConnectedError for revoked grant, got %v", err)
	}

	stored, err := store.Get(ctx, "u1", credentials.ProviderGmail)
	if err != nil {
		t.Fatalf("Record must still exist after rejected refresh: %v", err)
	}
	if stored.RefreshToken != "rt1" {
		t.Errorf("Rejected refresh must not mutate the record, got %q", stored.RefreshToken)
	}
}

func TestStaticAccessToken(t *testing.T) {
	endpoint := &fakeTokenEndpoint{accessToken: "shared-at"}
	refresher, _ := newTestRefresher(t, endpoint, "shared-rt")
	ctx := context.Background()

	got, err := refresher.StaticAccessToken(ctx)
	if err != nil {
		t.Fatalf("StaticAccessToken failed: %v", err)
	}
	if got != "shared-at" {
		t.Errorf("Expected shared-at, got %s", got)
	}

	// Cached on the second call.
	if _, err := refresher.StaticAccessToken(ctx); err != nil {
		t.Fatalf("Second StaticAccessToken failed: %v", err)
	}
	if endpoint.callCount() != 1 {
		t.Errorf("Expected exactly one mint, got %d", endpoint.callCount())
	}
}

func TestStaticAccessTokenWithoutConfiguredGrant(t *testing.T) {
	endpoint := &fakeTokenEndpoint{}
	refresher, _ := newTestRefresher(t, endpoint, "")

	_, err := refresher.StaticAccessToken(context.Background())
	if !IsNotConnected(err) {
		t.Fatalf("Expected NotConnectedError, got %v", err)
	}
}

func TestInvalidateDropsCachedToken(t *testing.T) {
	endpoint := &fakeTokenEndpoint{accessToken: "at2"}
	refresher, store := newTestRefresher(t, endpoint, "")
	ctx := context.Background()

	rec := &credentials.Record{
		SubjectID:    "u1",
		Provider:     credentials.ProviderGmail,
		AccessToken:  "at1",
		RefreshToken: "rt1",
		ExpiresAt:    time.Now().Add(-time.Minute),
	}
	store.Save(ctx, rec)

	if _, err := refresher.ValidAccessToken(ctx, "u1", credentials.ProviderGmail); err != nil {
		t.Fatalf("ValidAccessToken failed: %v", err)
	}

	refresher.Invalidate(ctx, "u1", credentials.ProviderGmail)
	store.Delete(ctx, "u1", credentials.ProviderGmail)

	if _, err := refresher.ValidAccessToken(ctx, "u1", credentials.ProviderGmail); !IsNotConnected(err) {
		t.Errorf("Expected NotConnectedError after invalidate and delete, got %v", err)
	}
}
