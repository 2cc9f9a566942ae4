package events

import (
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/incident-service/internal/domain"
)

func TestEncodeNormalizesTemporalAndIdentifierValues(t *testing.T) {
	at := time.Date(2024, 3, 9, 14, 30, 0, 0, time.UTC)
	id := uuid.MustParse("2f1c5f9e-8a61-4d55-9a4c-3c2b0cbbd5a1")
	var nilDate *civil.Date

	data, err := Encode(map[string]any{
		"at":     at,
		"day":    civil.Date{Year: 2024, Month: time.March, Day: 9},
		"none":   nilDate,
		"id":     id,
		"nested": map[string]any{"at": at},
		"list":   []any{civil.Date{Year: 2024, Month: time.January, Day: 2}},
		"plain":  7,
	})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "2024-03-09T14:30:00Z", decoded["at"])
	assert.Equal(t, "2024-03-09", decoded["day"])
	assert.Nil(t, decoded["none"])
	assert.Equal(t, id.String(), decoded["id"])
	assert.Equal(t, map[string]any{"at": "2024-03-09T14:30:00Z"}, decoded["nested"])
	assert.Equal(t, []any{"2024-01-02"}, decoded["list"])
	assert.Equal(t, float64(7), decoded["plain"])
}

func TestEncodeRejectsUnsupportedValues(t *testing.T) {
	_, err := Encode(map[string]any{"ch": make(chan int)})
	assert.Error(t, err)
}

func TestIncidentPayload(t *testing.T) {
	solution := "reset password"
	closed := civil.Date{Year: 2024, Month: time.March, Day: 10}
	incident := &domain.Incident{
		ID:           12,
		Description:  "cannot log in",
		Category:     domain.CategoryAccess,
		Priority:     domain.PriorityHigh,
		Channel:      domain.ChannelEmail,
		ClientID:     4,
		State:        domain.IncidentStateClosed,
		CreationDate: civil.Date{Year: 2024, Month: time.March, Day: 9},
		ClosureDate:  &closed,
		Solution:     &solution,
		TrackingCode: "AbC123xY",
	}

	payload := IncidentPayload(OperationUpdate, incident, time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC))
	data, err := Encode(payload)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "update", decoded[KeyOperation])
	assert.Equal(t, "2024-03-10T08:00:00Z", decoded[KeyOccurredAt])
	assert.Equal(t, float64(12), decoded["id"])
	assert.Equal(t, "closed", decoded["state"])
	assert.Equal(t, "2024-03-09", decoded["creation_date"])
	assert.Equal(t, "2024-03-10", decoded["closure_date"])
	assert.Equal(t, "reset password", decoded["solution"])
	assert.Nil(t, decoded["user_identification"])
	assert.Equal(t, "AbC123xY", decoded["tracking_code"])

	_, err = uuid.Parse(decoded[KeyEventID].(string))
	assert.NoError(t, err)
}
