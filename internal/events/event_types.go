package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/incident-service/internal/domain"
)

// Operation tags a change event.
type Operation string

const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
)

// Payload keys shared with downstream consumers.
const (
	KeyOperation  = "operation"
	KeyEventID    = "event_id"
	KeyOccurredAt = "occurred_at"
)

// IncidentPayload builds the change message for incident: every snapshot
// field plus the operation tag, an event id and the emission time.
func IncidentPayload(op Operation, incident *domain.Incident, occurredAt time.Time) map[string]any {
	return map[string]any{
		KeyOperation:          string(op),
		KeyEventID:            uuid.New(),
		KeyOccurredAt:         occurredAt,
		"id":                  incident.ID,
		"description":         incident.Description,
		"category":            string(incident.Category),
		"priority":            string(incident.Priority),
		"channel":             string(incident.Channel),
		"client_id":           incident.ClientID,
		"user_identification": incident.UserIdentification,
		"state":               string(incident.State),
		"creation_date":       incident.CreationDate,
		"closure_date":        incident.ClosureDate,
		"solution":            incident.Solution,
		"tracking_code":       incident.TrackingCode,
	}
}
