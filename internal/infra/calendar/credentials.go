package calendar

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"politikk-moter/internal/resilience/retry"
)

const (
	// Scope grants read and write access to calendars.
	Scope = "https://www.googleapis.com/auth/calendar"

	defaultTokenURI = "https://oauth2.googleapis.com/token"
	assertionTTL    = time.Hour
	// tokens are refreshed this long before they expire
	expiryMargin = time.Minute
)

// ServiceAccount is the subset of a Google service-account key file used for
// the JWT bearer grant.
type ServiceAccount struct {
	Type         string `json:"type"`
	ClientEmail  string `json:"client_email"`
	PrivateKeyID string `json:"private_key_id"`
	PrivateKey   string `json:"private_key"`
	TokenURI     string `json:"token_uri"`
}

// ParseServiceAccount decodes a key file and checks the fields the grant
// needs.
func ParseServiceAccount(raw []byte) (*ServiceAccount, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, ErrCredentialsMissing
	}
	var sa ServiceAccount
	if err := json.Unmarshal(raw, &sa); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	if sa.ClientEmail == "" || sa.PrivateKey == "" {
		return nil, fmt.Errorf("%w: client_email and private_key are required", ErrInvalidCredentials)
	}
	if sa.TokenURI == "" {
		sa.TokenURI = defaultTokenURI
	}
	return &sa, nil
}

type token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// tokenSource exchanges signed assertions for access tokens and caches the
// token until shortly before it expires.
type tokenSource struct {
	account *ServiceAccount
	key     *rsa.PrivateKey
	client  *http.Client
	now     func() time.Time

	mu      sync.Mutex
	access  string
	expires time.Time
}

func newTokenSource(sa *ServiceAccount, client *http.Client, now func() time.Time) (*tokenSource, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(sa.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	return &tokenSource{account: sa, key: key, client: client, now: now}, nil
}

// Token returns a cached token or fetches a new one.
func (ts *tokenSource) Token(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.access != "" && ts.now().Before(ts.expires.Add(-expiryMargin)) {
		return ts.access, nil
	}

	var tok *token
	err := retry.WithBackoff(ctx, retry.CalendarConfig(), func() error {
		var err error
		tok, err = ts.exchange(ctx)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("fetch access token: %w", err)
	}

	ts.access = tok.AccessToken
	ts.expires = ts.now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return ts.access, nil
}

func (ts *tokenSource) assertion() (string, error) {
	now := ts.now()
	claims := jwt.MapClaims{
		"iss":   ts.account.ClientEmail,
		"scope": Scope,
		"aud":   ts.account.TokenURI,
		"iat":   now.Unix(),
		"exp":   now.Add(assertionTTL).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if ts.account.PrivateKeyID != "" {
		t.Header["kid"] = ts.account.PrivateKeyID
	}
	return t.SignedString(ts.key)
}

func (ts *tokenSource) exchange(ctx context.Context) (*token, error) {
	signed, err := ts.assertion()
	if err != nil {
		return nil, fmt.Errorf("sign assertion: %w", err)
	}
	form := url.Values{
		"grant_type": {"urn:ietf:params:oauth:grant-type:jwt-bearer"},
		"assertion":  {signed},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.account.TokenURI, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ts.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if resp.StatusCode != http.StatusOK {
		return nil, &retry.HTTPError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	var tok token
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("token response without access_token")
	}
	if tok.ExpiresIn <= 0 {
		tok.ExpiresIn = 3600
	}
	return &tok, nil
}
