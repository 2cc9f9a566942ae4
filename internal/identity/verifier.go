package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spec-kit/incident-service/internal/config"
)

var (
	// ErrNotFound means the email is not registered for the requested role.
	ErrNotFound = errors.New("identity: not found")
	// ErrVerification covers every other failure of the identity service.
	ErrVerification = errors.New("identity: verification failed")
	// ErrRejected means the identity service refused the forwarded token. It
	// also matches ErrVerification.
	ErrRejected = fmt.Errorf("%w: token rejected", ErrVerification)
)

// Role selects which registry the identity service searches.
type Role string

const (
	RoleClient Role = "cliente"
	RoleAgent  Role = "agente"
)

// Verifier resolves a caller email to a client or agent id.
type Verifier interface {
	VerifyClient(ctx context.Context, email, token string) (int64, error)
	VerifyAgent(ctx context.Context, email, token string) (int64, error)
}

// HTTPVerifier talks to the identity service over HTTP.
type HTTPVerifier struct {
	baseURL string
	client  *http.Client
}

// NewHTTPVerifier builds a verifier from configuration.
func NewHTTPVerifier(cfg config.IdentityConfig) *HTTPVerifier {
	return &HTTPVerifier{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout()},
	}
}

func (v *HTTPVerifier) VerifyClient(ctx context.Context, email, token string) (int64, error) {
	return v.lookup(ctx, RoleClient, email, token)
}

func (v *HTTPVerifier) VerifyAgent(ctx context.Context, email, token string) (int64, error) {
	return v.lookup(ctx, RoleAgent, email, token)
}

type lookupRequest struct {
	Email string `json:"email"`
}

type lookupResponse struct {
	ID int64 `json:"id"`
}

func (v *HTTPVerifier) lookup(ctx context.Context, role Role, email, token string) (int64, error) {
	body, err := json.Marshal(lookupRequest{Email: email})
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrVerification, err)
	}

	url := fmt.Sprintf("%s/%s/email", v.baseURL, role)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrVerification, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrVerification, role, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return 0, fmt.Errorf("%w: %s %s", ErrNotFound, role, email)
	case http.StatusUnauthorized, http.StatusForbidden:
		return 0, fmt.Errorf("%w: %s returned %d", ErrRejected, role, resp.StatusCode)
	default:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return 0, fmt.Errorf("%w: %s returned %d: %s", ErrVerification, role, resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var out lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("%w: decode %s response: %w", ErrVerification, role, err)
	}
	return out.ID, nil
}
