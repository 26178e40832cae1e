package defender

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNotImplemented marks credential variants this build cannot
// establish. Callers get a clear failure instead of a silent no-op.
var ErrNotImplemented = errors.New("not implemented")

// DefaultAuthBase is the token authority endpoint.
const DefaultAuthBase = "https://login.microsoftonline.com"

// DefaultScope is the resource scope requested for hunting tokens.
const DefaultScope = "https://api.security.microsoft.com/.default"

// Session is the opaque capability produced by a credential: a bearer
// token plus its expiry. The token itself is never logged.
type Session struct {
	AccessToken string
	ExpiresAt   time.Time
}

// Valid reports whether the session can still authenticate a request,
// with a small safety margin before the real expiry.
func (s *Session) Valid() bool {
	return s != nil && s.AccessToken != "" && time.Now().Add(30*time.Second).Before(s.ExpiresAt)
}

// Credential establishes an authenticated Session with the backend
// tenant. Variants cover the supported authentication modes; an
// unsupported variant fails with ErrNotImplemented.
type Credential interface {
	Token(ctx context.Context) (*Session, error)
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	Error       string `json:"error"`
	ErrorDesc   string `json:"error_description"`
}

// ClientSecretCredential authenticates a service principal with a
// client secret via the OAuth2 client_credentials grant. The secret is
// injected from configuration (environment or secret store), loaded
// once at startup, and must never appear in source or logs.
type ClientSecretCredential struct {
	TenantID string
	ClientID string
	Secret   string

	AuthBase   string // defaults to DefaultAuthBase
	Scope      string // defaults to DefaultScope
	HTTPClient *http.Client
}

// Token implements Credential.
func (c *ClientSecretCredential) Token(ctx context.Context) (*Session, error) {
	if c.TenantID == "" || c.ClientID == "" || c.Secret == "" {
		return nil, errors.New("client secret credential: tenant id, client id and secret are all required")
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.ClientID},
		"client_secret": {c.Secret},
		"scope":         {orDefault(c.Scope, DefaultScope)},
	}
	return requestToken(ctx, httpClientOr(c.HTTPClient), tokenURL(c.AuthBase, c.TenantID), form)
}

// DeviceCodeCredential authenticates an interactive user via the OAuth2
// device-code flow: it prints a verification code to Prompt and polls
// the authority until the user completes sign-in in a browser.
type DeviceCodeCredential struct {
	TenantID string
	ClientID string

	Prompt       io.Writer // where the user code instructions are printed
	AuthBase     string
	Scope        string
	PollInterval time.Duration // defaults to the authority-suggested interval
	HTTPClient   *http.Client
}

type deviceCodeResponse struct {
	DeviceCode      string `json:"device_code"`
	UserCode        string `json:"user_code"`
	VerificationURI string `json:"verification_uri"`
	Message         string `json:"message"`
	Interval        int    `json:"interval"`
	ExpiresIn       int    `json:"expires_in"`
}

// Token implements Credential.
func (d *DeviceCodeCredential) Token(ctx context.Context) (*Session, error) {
	if d.TenantID == "" || d.ClientID == "" {
		return nil, errors.New("device code credential: tenant id and client id are required")
	}
	client := httpClientOr(d.HTTPClient)
	base := orDefault(d.AuthBase, DefaultAuthBase)
	scope := orDefault(d.Scope, DefaultScope)

	// Step 1: request a device code.
	form := url.Values{"client_id": {d.ClientID}, "scope": {scope}}
	u := fmt.Sprintf("%s/%s/oauth2/v2.0/devicecode", strings.TrimSuffix(base, "/"), d.TenantID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("device code request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("device code request: %w", err)
	}
	var dc deviceCodeResponse
	err = json.NewDecoder(resp.Body).Decode(&dc)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("decode device code: %w", err)
	}
	if dc.DeviceCode == "" {
		return nil, errors.New("authority returned no device code")
	}

	if d.Prompt != nil {
		if dc.Message != "" {
			fmt.Fprintln(d.Prompt, dc.Message)
		} else {
			fmt.Fprintf(d.Prompt, "To sign in, open %s and enter the code %s\n", dc.VerificationURI, dc.UserCode)
		}
	}

	// Step 2: poll for the token until sign-in completes.
	interval := d.PollInterval
	if interval == 0 {
		interval = time.Duration(dc.Interval) * time.Second
		if interval == 0 {
			interval = 5 * time.Second
		}
	}
	deadline := time.Now().Add(time.Duration(dc.ExpiresIn) * time.Second)

	pollForm := url.Values{
		"grant_type":  {"urn:ietf:params:oauth:grant-type:device_code"},
		"client_id":   {d.ClientID},
		"device_code": {dc.DeviceCode},
	}
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
		if dc.ExpiresIn > 0 && time.Now().After(deadline) {
			return nil, errors.New("device code expired before sign-in completed")
		}

		session, err := requestToken(ctx, client, tokenURL(base, d.TenantID), pollForm)
		if err == nil {
			return session, nil
		}
		if strings.Contains(err.Error(), "authorization_pending") || strings.Contains(err.Error(), "slow_down") {
			continue
		}
		return nil, err
	}
}

// CertificateCredential would authenticate a service principal with a
// client certificate. The flow is not wired up yet.
type CertificateCredential struct {
	TenantID        string
	ClientID        string
	CertificatePath string
}

// Token implements Credential.
func (c *CertificateCredential) Token(context.Context) (*Session, error) {
	return nil, fmt.Errorf("service principal certificate authentication: %w", ErrNotImplemented)
}

func tokenURL(base, tenant string) string {
	return fmt.Sprintf("%s/%s/oauth2/v2.0/token", strings.TrimSuffix(orDefault(base, DefaultAuthBase), "/"), tenant)
}

func requestToken(ctx context.Context, client *http.Client, u string, form url.Values) (*Session, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		if tr.Error != "" {
			return nil, fmt.Errorf("token request failed: %s: %s", tr.Error, tr.ErrorDesc)
		}
		return nil, fmt.Errorf("token request failed: %s", resp.Status)
	}
	return &Session{
		AccessToken: tr.AccessToken,
		ExpiresAt:   time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second),
	}, nil
}

func httpClientOr(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return http.DefaultClient
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}
