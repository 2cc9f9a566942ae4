package audit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/incident-service/internal/domain"
)

type memoryLogs struct {
	entries []domain.IncidentLog
	err     error
}

func (m *memoryLogs) Insert(_ context.Context, log *domain.IncidentLog) error {
	if m.err != nil {
		return m.err
	}
	log.ID = int64(len(m.entries) + 1)
	log.ChangedAt = time.Now()
	m.entries = append(m.entries, *log)
	return nil
}

func (m *memoryLogs) ListByIncident(_ context.Context, incidentID int64) ([]domain.IncidentLog, error) {
	var out []domain.IncidentLog
	for _, e := range m.entries {
		if e.IncidentID == incidentID {
			out = append(out, e)
		}
	}
	return out, m.err
}

func TestRecordStoresSnapshot(t *testing.T) {
	logs := &memoryLogs{}
	recorder := NewRecorder(logs, nil)
	incident := &domain.Incident{
		ID:           9,
		Description:  "card declined",
		Category:     domain.CategoryComplaint,
		Priority:     domain.PriorityLow,
		Channel:      domain.ChannelCall,
		ClientID:     2,
		State:        domain.IncidentStateOpen,
		CreationDate: civil.Date{Year: 2024, Month: time.May, Day: 1},
		TrackingCode: "ZZ11yy22",
	}

	require.NoError(t, recorder.Record(context.Background(), incident, domain.OriginPostman))

	entries, err := recorder.List(context.Background(), 9)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.OriginPostman, entries[0].Origin)

	var snapshot domain.Incident
	require.NoError(t, json.Unmarshal(entries[0].Snapshot, &snapshot))
	assert.Equal(t, *incident, snapshot)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(entries[0].Snapshot, &raw))
	assert.Equal(t, "2024-05-01", raw["creation_date"])
	assert.Nil(t, raw["closure_date"])
}

func TestRecordDefaultsOrigin(t *testing.T) {
	logs := &memoryLogs{}
	require.NoError(t, NewRecorder(logs, logs).Record(context.Background(), &domain.Incident{ID: 1}, ""))
	assert.Equal(t, domain.OriginOther, logs.entries[0].Origin)
}

func TestRecordSurfacesFailures(t *testing.T) {
	recorder := NewRecorder(&memoryLogs{err: errors.New("insert failed")}, nil)
	assert.EqualError(t, recorder.Record(context.Background(), &domain.Incident{ID: 1}, domain.OriginOther), "insert failed")
	assert.Error(t, recorder.Record(context.Background(), &domain.Incident{}, domain.OriginOther))
}

func TestClassifyOrigin(t *testing.T) {
	cases := map[string]string{
		"PostmanRuntime/7.36.0": domain.OriginPostman,
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36": domain.OriginFrontend,
		"curl/8.4.0": domain.OriginOther,
		"":           domain.OriginOther,
	}
	for ua, want := range cases {
		assert.Equal(t, want, ClassifyOrigin(ua), ua)
	}
}
