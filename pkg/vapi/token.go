package vapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mockmate/go-mockmate/internal/httpc"
)

// DefaultTokenTTL is how long minted session tokens stay valid.
const DefaultTokenTTL = time.Hour

// TokenRequest is the token endpoint request body.
type TokenRequest struct {
	UserID string `json:"userId"`
}

// TokenResponse is the token endpoint response body.
type TokenResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token,omitempty"`
	Error   string `json:"error,omitempty"`
}

// TokenIssuer mints short-lived session tokens scoped to a single user.
// Tokens are signed with the org's private key so browsers and other
// untrusted callers never see it.
type TokenIssuer struct {
	privateKey string
	orgID      string
	ttl        time.Duration
	now        func() time.Time
}

// NewTokenIssuer creates an issuer for the given org credentials.
func NewTokenIssuer(privateKey, orgID string) *TokenIssuer {
	return &TokenIssuer{
		privateKey: privateKey,
		orgID:      orgID,
		ttl:        DefaultTokenTTL,
		now:        time.Now,
	}
}

// SetTTL overrides the token lifetime.
func (i *TokenIssuer) SetTTL(ttl time.Duration) {
	if ttl > 0 {
		i.ttl = ttl
	}
}

// TTL returns the token lifetime.
func (i *TokenIssuer) TTL() time.Duration {
	return i.ttl
}

// Issue mints a session token for the given user.
func (i *TokenIssuer) Issue(userID string) (string, error) {
	if i.privateKey == "" {
		return "", ErrMissingPrivateKey
	}
	if userID == "" {
		return "", ErrMissingUserID
	}

	now := i.now()
	claims := jwt.MapClaims{
		"orgId": i.orgID,
		"sub":   userID,
		"iat":   now.Unix(),
		"exp":   now.Add(i.ttl).Unix(),
		"tag":   "public",
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(i.privateKey))
	if err != nil {
		return "", fmt.Errorf("vapi: sign token: %w", err)
	}

	return signed, nil
}

// TokenSource obtains a session token for a user from a backend token
// endpoint. Every failure path falls back to the statically configured
// public key so callers can always start a call.
type TokenSource struct {
	endpoint   string
	publicKey  string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewTokenSource creates a token source. endpoint may be empty, in
// which case the public key is used directly.
func NewTokenSource(endpoint, publicKey string, logger *slog.Logger) *TokenSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenSource{
		endpoint:   endpoint,
		publicKey:  publicKey,
		httpClient: httpc.NewClient(10 * time.Second),
		logger:     logger.With("component", "vapi.token"),
	}
}

// Token returns a session token for the user. It never fails the
// caller; when the endpoint is unreachable or rejects the request, the
// public key is returned instead.
func (s *TokenSource) Token(ctx context.Context, userID string) string {
	if s.endpoint == "" {
		return s.publicKey
	}

	body, err := json.Marshal(TokenRequest{UserID: userID})
	if err != nil {
		s.logger.Warn("marshal token request failed", "error", err)
		return s.publicKey
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		s.logger.Warn("build token request failed", "error", err)
		return s.publicKey
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Warn("token fetch failed, using public key", "error", err)
		return s.publicKey
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.logger.Warn("token fetch failed, using public key", "status", resp.StatusCode)
		return s.publicKey
	}

	var tr TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		s.logger.Warn("decode token response failed, using public key", "error", err)
		return s.publicKey
	}

	if !tr.Success || tr.Token == "" {
		s.logger.Warn("token endpoint returned no token, using public key")
		return s.publicKey
	}

	return tr.Token
}
