package domain

import (
	"encoding/json"
	"time"
)

// Change origins derived from the caller's User-Agent.
const (
	OriginPostman  = "Postman"
	OriginFrontend = "Frontend"
	OriginOther    = "Other"
)

// IncidentLog is an immutable audit trail entry holding a full incident snapshot.
type IncidentLog struct {
	ID         int64           `json:"id"`
	IncidentID int64           `json:"incident_id"`
	Snapshot   json.RawMessage `json:"snapshot"`
	ChangedAt  time.Time       `json:"changed_at"`
	Origin     string          `json:"origin"`
}
