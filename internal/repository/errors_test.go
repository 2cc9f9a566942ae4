package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestWrap(t *testing.T) {
	assert.NoError(t, wrap("noop", nil))
	assert.ErrorIs(t, wrap("get incident", pgx.ErrNoRows), ErrNotFound)
	assert.ErrorIs(t, wrap("get incident", fmt.Errorf("scan: %w", pgx.ErrNoRows)), ErrNotFound)

	cause := errors.New("connection reset")
	err := wrap("create incident", cause)
	var persistErr *PersistenceError
	assert.ErrorAs(t, err, &persistErr)
	assert.Equal(t, "create incident", persistErr.Op)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "create incident: connection reset", err.Error())
}

func TestIsUniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: trackingCodeConstraint})
	assert.True(t, isUniqueViolation(err, trackingCodeConstraint))
	assert.False(t, isUniqueViolation(err, "other_key"))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503", ConstraintName: trackingCodeConstraint}, trackingCodeConstraint))
	assert.False(t, isUniqueViolation(errors.New("plain"), trackingCodeConstraint))
}
