package billing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/incident-service/internal/config"
)

func TestRegisterPostsCharge(t *testing.T) {
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		_, _ = w.Write([]byte(`{"id": 44, "estado": "registrado"}`))
	}))
	t.Cleanup(srv.Close)

	registrar := NewHTTPRegistrar(config.BillingConfig{URL: srv.URL, TimeoutSeconds: 2})
	ack, err := registrar.Register(context.Background(), Charge{
		TrackingCode: "Ab12Cd34",
		Cost:         12.5,
		IncidentDate: civil.Date{Year: 2024, Month: time.June, Day: 3},
		ClientID:     8,
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"id": float64(44), "estado": "registrado"}, ack)
	assert.Equal(t, map[string]any{
		"radicado_incidente": "Ab12Cd34",
		"costo":              12.5,
		"fecha_incidente":    "2024-06-03",
		"cliente_id":         float64(8),
	}, received)
}

func TestRegisterRejectsNonOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("duplicate charge"))
	}))
	t.Cleanup(srv.Close)

	registrar := NewHTTPRegistrar(config.BillingConfig{URL: srv.URL})
	_, err := registrar.Register(context.Background(), Charge{TrackingCode: "Ab12Cd34"})
	assert.ErrorContains(t, err, "status 201: duplicate charge")
}

func TestRegisterRequiresEndpoint(t *testing.T) {
	_, err := NewHTTPRegistrar(config.BillingConfig{}).Register(context.Background(), Charge{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}
