package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spec-kit/incident-service/internal/domain"
	"github.com/spec-kit/incident-service/internal/repository"
)

// Recorder appends incident snapshots to the audit trail. Writes go to the
// primary store and reads to the replica.
type Recorder struct {
	writer repository.IncidentLogRepository
	reader repository.IncidentLogRepository
}

// NewRecorder builds a recorder. A nil reader falls back to writer.
func NewRecorder(writer, reader repository.IncidentLogRepository) *Recorder {
	if reader == nil {
		reader = writer
	}
	return &Recorder{writer: writer, reader: reader}
}

// Record stores the full current state of incident tagged with origin.
func (r *Recorder) Record(ctx context.Context, incident *domain.Incident, origin string) error {
	if incident == nil || incident.ID == 0 {
		return errors.New("audit: incident has no id")
	}
	snapshot, err := json.Marshal(incident)
	if err != nil {
		return fmt.Errorf("audit: encode snapshot: %w", err)
	}
	if origin == "" {
		origin = domain.OriginOther
	}
	return r.writer.Insert(ctx, &domain.IncidentLog{
		IncidentID: incident.ID,
		Snapshot:   snapshot,
		Origin:     origin,
	})
}

// List returns the audit trail of an incident, oldest first.
func (r *Recorder) List(ctx context.Context, incidentID int64) ([]domain.IncidentLog, error) {
	return r.reader.ListByIncident(ctx, incidentID)
}

// ClassifyOrigin maps a User-Agent header to a coarse change origin.
func ClassifyOrigin(userAgent string) string {
	switch {
	case strings.Contains(userAgent, "PostmanRuntime"):
		return domain.OriginPostman
	case strings.Contains(userAgent, "Mozilla"):
		return domain.OriginFrontend
	default:
		return domain.OriginOther
	}
}
