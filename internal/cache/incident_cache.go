package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spec-kit/incident-service/internal/domain"
)

const (
	incidentKeyPrefix = "incident:"
	trackingKeyPrefix = "incident:tracking:"
)

// IncidentKey is the cache key of an incident snapshot by internal id.
func IncidentKey(id int64) string {
	return incidentKeyPrefix + strconv.FormatInt(id, 10)
}

// TrackingKey is the cache key of an incident snapshot by tracking code.
func TrackingKey(code string) string {
	return trackingKeyPrefix + code
}

// HitRecorder observes cache lookups.
type HitRecorder interface {
	RecordCache(hit bool)
}

// IncidentCache stores JSON snapshots of incidents on top of a Backend.
type IncidentCache struct {
	backend Backend
	metrics HitRecorder
}

// NewIncidentCache builds the cache; metrics may be nil.
func NewIncidentCache(backend Backend, metrics HitRecorder) *IncidentCache {
	return &IncidentCache{backend: backend, metrics: metrics}
}

// GetByID returns the cached snapshot for id, or ErrCacheMiss.
func (c *IncidentCache) GetByID(ctx context.Context, id int64) (*domain.Incident, error) {
	return c.get(ctx, IncidentKey(id))
}

// GetByTrackingCode returns the cached snapshot for code, or ErrCacheMiss.
func (c *IncidentCache) GetByTrackingCode(ctx context.Context, code string) (*domain.Incident, error) {
	return c.get(ctx, TrackingKey(code))
}

// SetByID stores incident under its id key. The tracking key is left alone and
// only filled on a tracking-code read.
func (c *IncidentCache) SetByID(ctx context.Context, incident *domain.Incident) error {
	return c.set(ctx, IncidentKey(incident.ID), incident)
}

// SetByTrackingCode stores incident under its tracking key.
func (c *IncidentCache) SetByTrackingCode(ctx context.Context, incident *domain.Incident) error {
	return c.set(ctx, TrackingKey(incident.TrackingCode), incident)
}

func (c *IncidentCache) get(ctx context.Context, key string) (*domain.Incident, error) {
	raw, err := c.backend.Get(ctx, key)
	if c.metrics != nil {
		c.metrics.RecordCache(err == nil)
	}
	if err != nil {
		return nil, err
	}
	var incident domain.Incident
	if err := json.Unmarshal(raw, &incident); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return &incident, nil
}

func (c *IncidentCache) set(ctx context.Context, key string, incident *domain.Incident) error {
	raw, err := json.Marshal(incident)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return c.backend.Set(ctx, key, raw)
}
