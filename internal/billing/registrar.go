package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"cloud.google.com/go/civil"

	"github.com/spec-kit/incident-service/internal/config"
)

// ErrNotConfigured is returned when no billing endpoint is set.
var ErrNotConfigured = errors.New("billing: endpoint not configured")

// Charge is a billable incident.
type Charge struct {
	TrackingCode string     `json:"radicado_incidente"`
	Cost         float64    `json:"costo"`
	IncidentDate civil.Date `json:"fecha_incidente"`
	ClientID     int64      `json:"cliente_id"`
}

// Registrar registers billable incidents with the billing service.
type Registrar interface {
	Register(ctx context.Context, charge Charge) (map[string]any, error)
}

// HTTPRegistrar posts charges to the billing service.
type HTTPRegistrar struct {
	url    string
	client *http.Client
}

// NewHTTPRegistrar builds a registrar from configuration.
func NewHTTPRegistrar(cfg config.BillingConfig) *HTTPRegistrar {
	return &HTTPRegistrar{
		url:    cfg.URL,
		client: &http.Client{Timeout: cfg.Timeout()},
	}
}

// Register sends charge and returns the decoded acknowledgment. Any status
// other than 200 is an error carrying the response body.
func (r *HTTPRegistrar) Register(ctx context.Context, charge Charge) (map[string]any, error) {
	if r.url == "" {
		return nil, ErrNotConfigured
	}
	body, err := json.Marshal(charge)
	if err != nil {
		return nil, fmt.Errorf("billing: encode charge: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("billing: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("billing: register %s: %w", charge.TrackingCode, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("billing: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("billing: register %s: status %d: %s", charge.TrackingCode, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	ack := map[string]any{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return ack, nil
	}
	if err := json.Unmarshal(raw, &ack); err != nil {
		return nil, fmt.Errorf("billing: decode response: %w", err)
	}
	return ack, nil
}
