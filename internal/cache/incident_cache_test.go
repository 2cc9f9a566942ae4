package cache

import (
	"context"
	"encoding/json"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/incident-service/internal/domain"
)

type hitCounter struct {
	hits, misses int
}

func (h *hitCounter) RecordCache(hit bool) {
	if hit {
		h.hits++
		return
	}
	h.misses++
}

func newTestCache(t *testing.T) (*IncidentCache, *miniredis.Miniredis, *hitCounter) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	counter := &hitCounter{}
	return NewIncidentCache(NewRedisBackend(client), counter), srv, counter
}

func sampleIncident() *domain.Incident {
	closed := civil.Date{Year: 2024, Month: 3, Day: 2}
	solution := "restarted router"
	ident := "CC1001"
	return &domain.Incident{
		ID:                 5,
		Description:        "No connection",
		Category:           domain.CategoryFunctioning,
		Priority:           domain.PriorityMedium,
		Channel:            domain.ChannelEmail,
		ClientID:           9,
		UserIdentification: &ident,
		State:              domain.IncidentStateClosed,
		CreationDate:       civil.Date{Year: 2024, Month: 3, Day: 1},
		ClosureDate:        &closed,
		Solution:           &solution,
		TrackingCode:       "Ab3dE6gH",
	}
}

func TestIncidentCacheRoundTrip(t *testing.T) {
	c, srv, counter := newTestCache(t)
	ctx := context.Background()
	incident := sampleIncident()

	_, err := c.GetByID(ctx, incident.ID)
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.SetByID(ctx, incident))

	got, err := c.GetByID(ctx, incident.ID)
	require.NoError(t, err)
	assert.Equal(t, incident, got)
	assert.Equal(t, 1, counter.hits)
	assert.Equal(t, 1, counter.misses)

	raw, err := srv.Get("incident:5")
	require.NoError(t, err)
	var snapshot map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &snapshot))
	assert.Equal(t, "2024-03-01", snapshot["creation_date"])
	assert.Equal(t, "2024-03-02", snapshot["closure_date"])
	assert.Equal(t, "Ab3dE6gH", snapshot["tracking_code"])

	assert.Zero(t, srv.TTL("incident:5"), "entries must not expire")
}

func TestIncidentCacheWriteLeavesTrackingKey(t *testing.T) {
	c, srv, _ := newTestCache(t)
	ctx := context.Background()
	incident := sampleIncident()

	require.NoError(t, c.SetByID(ctx, incident))
	assert.False(t, srv.Exists(TrackingKey(incident.TrackingCode)))

	_, err := c.GetByTrackingCode(ctx, incident.TrackingCode)
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.SetByTrackingCode(ctx, incident))
	got, err := c.GetByTrackingCode(ctx, incident.TrackingCode)
	require.NoError(t, err)
	assert.Equal(t, incident, got)
	assert.True(t, srv.Exists("incident:tracking:Ab3dE6gH"))
}

func TestIncidentCacheErrors(t *testing.T) {
	c, srv, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, srv.Set("incident:7", "{not json"))
	_, err := c.GetByID(ctx, 7)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)

	srv.Close()
	_, err = c.GetByID(ctx, 8)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
	assert.Error(t, c.SetByID(ctx, sampleIncident()))
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "incident:42", IncidentKey(42))
	assert.Equal(t, "incident:tracking:XYZ", TrackingKey("XYZ"))
}
