package dto

import (
	"cloud.google.com/go/civil"

	"github.com/spec-kit/incident-service/internal/domain"
)

// CreateIncidentRequest payload. A supplied id is ignored.
type CreateIncidentRequest struct {
	ID                 *int64                  `json:"id"`
	Description        string                  `json:"description"`
	Category           domain.IncidentCategory `json:"category"`
	Priority           domain.IncidentPriority `json:"priority"`
	Channel            domain.IncidentChannel  `json:"channel"`
	ClientID           int64                   `json:"client_id"`
	UserIdentification *string                 `json:"user_identification"`
	State              domain.IncidentState    `json:"state"`
	CreationDate       *civil.Date             `json:"creation_date"`
	ClosureDate        *civil.Date             `json:"closure_date"`
	Solution           *string                 `json:"solution"`
	TrackingCode       string                  `json:"tracking_code"`
}

// ToDomain converts the payload into an incident draft.
func (r CreateIncidentRequest) ToDomain() domain.Incident {
	incident := domain.Incident{
		Description:        r.Description,
		Category:           r.Category,
		Priority:           r.Priority,
		Channel:            r.Channel,
		ClientID:           r.ClientID,
		UserIdentification: r.UserIdentification,
		State:              r.State,
		ClosureDate:        r.ClosureDate,
		Solution:           r.Solution,
		TrackingCode:       r.TrackingCode,
	}
	if r.CreationDate != nil {
		incident.CreationDate = *r.CreationDate
	}
	return incident
}

// ResolveIncidentRequest payload.
type ResolveIncidentRequest struct {
	Solution string `json:"solution"`
}

// BillIncidentRequest payload.
type BillIncidentRequest struct {
	Cost float64 `json:"cost"`
}

// CreateCommonProblemRequest payload.
type CreateCommonProblemRequest struct {
	Description string                  `json:"description"`
	Category    domain.IncidentCategory `json:"category"`
	Solution    string                  `json:"solution"`
	ClientID    int64                   `json:"client_id"`
}

// ToDomain converts the payload into a knowledge-base entry.
func (r CreateCommonProblemRequest) ToDomain() domain.CommonProblem {
	return domain.CommonProblem{
		Description: r.Description,
		Category:    r.Category,
		Solution:    r.Solution,
		ClientID:    r.ClientID,
	}
}
