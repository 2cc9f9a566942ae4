package domain

import "cloud.google.com/go/civil"

// IncidentState enumerates lifecycle states for incidents.
type IncidentState string

const (
	IncidentStateOpen      IncidentState = "open"
	IncidentStateClosed    IncidentState = "closed"
	IncidentStateEscalated IncidentState = "escalated"
)

// IncidentCategory classifies the reported problem.
type IncidentCategory string

const (
	CategoryAccess      IncidentCategory = "access"
	CategoryFunctioning IncidentCategory = "functioning"
	CategoryComplaint   IncidentCategory = "complaint"
	CategoryWithdrawal  IncidentCategory = "withdrawal"
)

// IncidentPriority enumerates urgency.
type IncidentPriority string

const (
	PriorityHigh   IncidentPriority = "high"
	PriorityMedium IncidentPriority = "medium"
	PriorityLow    IncidentPriority = "low"
)

// IncidentChannel is the medium the incident was reported through.
type IncidentChannel string

const (
	ChannelCall        IncidentChannel = "call"
	ChannelEmail       IncidentChannel = "email"
	ChannelApplication IncidentChannel = "application"
)

// MaxUserIdentificationLength bounds Incident.UserIdentification.
const MaxUserIdentificationLength = 15

// Categories lists the accepted categories in display order.
var Categories = []IncidentCategory{CategoryAccess, CategoryFunctioning, CategoryComplaint, CategoryWithdrawal}

// Priorities lists the accepted priorities in display order.
var Priorities = []IncidentPriority{PriorityHigh, PriorityMedium, PriorityLow}

// Channels lists the accepted channels in display order.
var Channels = []IncidentChannel{ChannelCall, ChannelEmail, ChannelApplication}

// IncidentStates lists every incident state.
var IncidentStates = []IncidentState{IncidentStateOpen, IncidentStateClosed, IncidentStateEscalated}

// Incident is the aggregate for customer-reported issues. Its JSON form is the
// snapshot stored in the cache and in the audit log.
type Incident struct {
	ID                 int64            `json:"id"`
	Description        string           `json:"description"`
	Category           IncidentCategory `json:"category"`
	Priority           IncidentPriority `json:"priority"`
	Channel            IncidentChannel  `json:"channel"`
	ClientID           int64            `json:"client_id"`
	UserIdentification *string          `json:"user_identification"`
	State              IncidentState    `json:"state"`
	CreationDate       civil.Date       `json:"creation_date"`
	ClosureDate        *civil.Date      `json:"closure_date"`
	Solution           *string          `json:"solution"`
	TrackingCode       string           `json:"tracking_code"`
}

// Valid reports whether c is a known category.
func (c IncidentCategory) Valid() bool {
	for _, candidate := range Categories {
		if c == candidate {
			return true
		}
	}
	return false
}

// Valid reports whether p is a known priority.
func (p IncidentPriority) Valid() bool {
	for _, candidate := range Priorities {
		if p == candidate {
			return true
		}
	}
	return false
}

// Valid reports whether c is a known channel.
func (c IncidentChannel) Valid() bool {
	for _, candidate := range Channels {
		if c == candidate {
			return true
		}
	}
	return false
}

// Valid reports whether s is a known state.
func (s IncidentState) Valid() bool {
	for _, candidate := range IncidentStates {
		if s == candidate {
			return true
		}
	}
	return false
}

var allowedTransitions = map[IncidentState][]IncidentState{
	IncidentStateOpen:      {IncidentStateClosed, IncidentStateEscalated},
	IncidentStateEscalated: {IncidentStateClosed},
	IncidentStateClosed:    {},
}

// CanTransition reports whether an incident may move from current to next.
func CanTransition(current, next IncidentState) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}
