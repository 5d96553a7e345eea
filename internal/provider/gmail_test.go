package provider

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mailgate/internal/config"
	"mailgate/internal/credentials"
	"mailgate/internal/secrets"
	"mailgate/internal/token"
	"mailgate/pkg/models"
)

func testMessage(userID string) *models.Message {
	return &models.Message{
		ID:      "m1",
		From:    "sender@example.com",
		To:      []string{"rcpt@example.com"},
		Subject: "Hello",
		Body:    "body text",
		UserID:  userID,
	}
}

func TestBuildMIMEHeaders(t *testing.T) {
	msg := &models.Message{
		From:    "sender@example.com",
		To:      []string{"a@example.com", "b@example.com"},
		CC:      []string{"c@example.com"},
		Subject: "Subject line",
		Body:    "the body",
	}

	mime, err := buildMIME(msg)
	if err != nil {
		t.Fatalf("buildMIME failed: %v", err)
	}

	for _, want := range []string{
		"From: sender@example.com\r\n",
		"To: a@example.com, b@example.com\r\n",
		"Cc: c@example.com\r\n",
		"Subject: Subject line\r\n",
		"Content-Type: text/plain; charset=UTF-8\r\n",
		"\r\n\r\nthe body",
	} {
		if !strings.Contains(mime, want) {
			t.Errorf("MIME missing %q:\n%s", want, mime)
		}
	}
}

func TestBuildMIMEHTMLContentType(t *testing.T) {
	msg := &models.Message{To: []string{"a@example.com"}, Body: "<p>hi</p>", HTML: true}

	mime, err := buildMIME(msg)
	if err != nil {
		t.Fatalf("buildMIME failed: %v", err)
	}
	if !strings.Contains(mime, "Content-Type: text/html; charset=UTF-8\r\n") {
		t.Errorf("Expected HTML content type:\n%s", mime)
	}
}

func TestBuildMIMERequiresBody(t *testing.T) {
	if _, err := buildMIME(&models.Message{To: []string{"a@example.com"}}); err == nil {
		t.Error("Expected error for empty body")
	}
}

func TestBuildRawMessageIsBase64URL(t *testing.T) {
	raw, err := buildRawMessage(testMessage(""))
	if err != nil {
		t.Fatalf("buildRawMessage failed: %v", err)
	}

	decoded, err := base64.URLEncoding.DecodeString(raw)
	if err != nil {
		t.Fatalf("Raw message is not base64url: %v", err)
	}
	if !strings.Contains(string(decoded), "Subject: Hello") {
		t.Errorf("Decoded message missing subject:\n%s", decoded)
	}
}

func newGmailTestBackend(t *testing.T, apiBaseURL string) (*GmailBackend, *credentials.Store) {
	t.Helper()

	cfg := config.OAuthConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		APIBaseURL:   apiBaseURL,
	}
	store := credentials.NewStore(secrets.NewMemoryStore())
	refresher := token.NewRefresher(cfg, store, nil)
	return NewGmailBackend(cfg, refresher), store
}

func seedValidGrant(t *testing.T, store *credentials.Store, userID string) {
	t.Helper()
	rec := &credentials.Record{
		SubjectID:    userID,
		Provider:     credentials.ProviderGmail,
		AccessToken:  "at1",
		RefreshToken: "rt1",
		ExpiresAt:    time.Now().Add(time.Hour),
	}
	if err := store.Save(context.Background(), rec); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}
}

func TestGmailSendSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"gmail-msg-1"}`)
	}))
	defer srv.Close()

	backend, store := newGmailTestBackend(t, srv.URL+"/")
	seedValidGrant(t, store, "u1")

	res := backend.Send(context.Background(), testMessage("u1"))
	if !res.Succeeded() {
		t.Fatalf("Expected success, got %s: %s", res.Status, res.Error)
	}
	if res.MessageID != "gmail-msg-1" {
		t.Errorf("Expected provider message ID, got %q", res.MessageID)
	}
	if res.Provider != ProviderGmailAPI {
		t.Errorf("Expected provider gmail_api, got %s", res.Provider)
	}
}

func TestGmailSendAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error":{"code":403,"message":"rate limit exceeded"}}`)
	}))
	defer srv.Close()

	backend, store := newGmailTestBackend(t, srv.URL+"/")
	seedValidGrant(t, store, "u1")

	res := backend.Send(context.Background(), testMessage("u1"))
	if res.Succeeded() {
		t.Fatal("Expected failure")
	}
	if res.ErrorKind != models.ErrorKindSend {
		t.Errorf("Expected send error kind, got %s", res.ErrorKind)
	}
	if !strings.Contains(res.Error, "403") {
		t.Errorf("Expected status code in error, got %q", res.Error)
	}
}

func TestGmailSendNotConnected(t *testing.T) {
	backend, _ := newGmailTestBackend(t, "")

	res := backend.Send(context.Background(), testMessage("stranger"))
	if res.Succeeded() {
		t.Fatal("Expected failure for unknown user")
	}
	if res.ErrorKind != models.ErrorKindNotConnected {
		t.Errorf("Expected not_connected error kind, got %s", res.ErrorKind)
	}
}

func TestGmailSendEmptyBodyFailsBeforeNetwork(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	backend, store := newGmailTestBackend(t, srv.URL+"/")
	seedValidGrant(t, store, "u1")

	msg := testMessage("u1")
	msg.Body = ""
	res := backend.Send(context.Background(), msg)
	if res.Succeeded() {
		t.Fatal("Expected failure for empty body")
	}
	if called {
		t.Error("Empty body must fail before the API is called")
	}
}

func TestGmailIsStaticallyConfigured(t *testing.T) {
	cfg := config.OAuthConfig{ClientID: "id", ClientSecret: "secret"}
	backend := NewGmailBackend(cfg, nil)
	if backend.IsStaticallyConfigured() {
		t.Error("Missing shared refresh token must not count as configured")
	}

	cfg.RefreshToken = "rt"
	backend = NewGmailBackend(cfg, nil)
	if !backend.IsStaticallyConfigured() {
		t.Error("Full static credential set must count as configured")
	}
}
