package defender

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestClientSecretCredential(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/oauth2/v2.0/token") {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.PostForm.Get("grant_type") != "client_credentials" {
			t.Errorf("grant_type = %q", r.PostForm.Get("grant_type"))
		}
		if r.PostForm.Get("client_secret") != "s3cret" {
			t.Errorf("client_secret = %q", r.PostForm.Get("client_secret"))
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "issued-token",
			"expires_in":   3600,
		})
	}))
	defer server.Close()

	cred := &ClientSecretCredential{
		TenantID:   "tenant-1",
		ClientID:   "client-1",
		Secret:     "s3cret",
		AuthBase:   server.URL,
		HTTPClient: server.Client(),
	}
	session, err := cred.Token(context.Background())
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if session.AccessToken != "issued-token" {
		t.Errorf("token = %q", session.AccessToken)
	}
	if !session.Valid() {
		t.Error("fresh session reported invalid")
	}
}

func TestClientSecretCredentialRejectsIncompleteConfig(t *testing.T) {
	cred := &ClientSecretCredential{TenantID: "t", ClientID: "c"}
	if _, err := cred.Token(context.Background()); err == nil {
		t.Fatal("expected error for missing secret")
	}
}

func TestClientSecretCredentialAuthorityError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error":             "invalid_client",
			"error_description": "AADSTS7000215: Invalid client secret provided.",
		})
	}))
	defer server.Close()

	cred := &ClientSecretCredential{
		TenantID: "t", ClientID: "c", Secret: "wrong",
		AuthBase: server.URL, HTTPClient: server.Client(),
	}
	_, err := cred.Token(context.Background())
	if err == nil || !strings.Contains(err.Error(), "invalid_client") {
		t.Errorf("error = %v", err)
	}
}

func TestDeviceCodeCredential(t *testing.T) {
	polls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/devicecode"):
			_ = json.NewEncoder(w).Encode(map[string]any{
				"device_code":      "dev-code",
				"user_code":        "ABCD-1234",
				"verification_uri": "https://microsoft.com/devicelogin",
				"interval":         0,
				"expires_in":       900,
			})
		case strings.HasSuffix(r.URL.Path, "/token"):
			polls++
			if polls < 2 {
				w.WriteHeader(http.StatusBadRequest)
				_ = json.NewEncoder(w).Encode(map[string]any{"error": "authorization_pending"})
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "user-token", "expires_in": 3600})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	var prompt bytes.Buffer
	cred := &DeviceCodeCredential{
		TenantID:     "t",
		ClientID:     "c",
		Prompt:       &prompt,
		AuthBase:     server.URL,
		PollInterval: time.Millisecond,
		HTTPClient:   server.Client(),
	}
	session, err := cred.Token(context.Background())
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if session.AccessToken != "user-token" {
		t.Errorf("token = %q", session.AccessToken)
	}
	if !strings.Contains(prompt.String(), "ABCD-1234") {
		t.Errorf("user code not shown to the user: %q", prompt.String())
	}
	if polls < 2 {
		t.Errorf("expected at least one pending poll, got %d", polls)
	}
}

func TestDeviceCodeCredentialHonorsCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/devicecode") {
			_ = json.NewEncoder(w).Encode(map[string]any{"device_code": "d", "user_code": "X", "expires_in": 900})
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "authorization_pending"})
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	cred := &DeviceCodeCredential{
		TenantID: "t", ClientID: "c",
		AuthBase: server.URL, PollInterval: 10 * time.Millisecond,
		HTTPClient: server.Client(),
	}
	_, err := cred.Token(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want context deadline", err)
	}
}

func TestCertificateCredentialNotImplemented(t *testing.T) {
	cred := &CertificateCredential{TenantID: "t", ClientID: "c", CertificatePath: "/tmp/cert.pem"}
	_, err := cred.Token(context.Background())
	if !errors.Is(err, ErrNotImplemented) {
		t.Errorf("error = %v, want ErrNotImplemented", err)
	}
}

func TestSessionValid(t *testing.T) {
	if (&Session{AccessToken: "x", ExpiresAt: time.Now().Add(-time.Minute)}).Valid() {
		t.Error("expired session reported valid")
	}
	if (&Session{AccessToken: "", ExpiresAt: time.Now().Add(time.Hour)}).Valid() {
		t.Error("empty token reported valid")
	}
	var nilSession *Session
	if nilSession.Valid() {
		t.Error("nil session reported valid")
	}
}
