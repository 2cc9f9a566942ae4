package domain

// CommonProblem is a knowledge-base entry owned by a client.
type CommonProblem struct {
	ID          int64            `json:"id"`
	Description string           `json:"description"`
	Category    IncidentCategory `json:"category"`
	Solution    string           `json:"solution"`
	ClientID    int64            `json:"client_id"`
}
