package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/incident-service/internal/domain"
	"github.com/spec-kit/incident-service/internal/trackingcode"
)

const (
	trackingCodeConstraint = "incidents_tracking_code_key"
	// maxCodeAttempts bounds regeneration when a generated code collides.
	maxCodeAttempts = 3

	incidentColumns = `id, description, category, priority, channel, client_id, user_identification,
               state, creation_date, closure_date, solution, tracking_code`
)

// IncidentFilter narrows incident listings.
type IncidentFilter struct {
	ClientID *int64
}

// IncidentRepository encapsulates incident persistence.
type IncidentRepository interface {
	Insert(ctx context.Context, incident *domain.Incident) (*domain.Incident, error)
	GetByID(ctx context.Context, id int64) (*domain.Incident, error)
	GetByTrackingCode(ctx context.Context, code string) (*domain.Incident, error)
	List(ctx context.Context, filter IncidentFilter) ([]domain.Incident, error)
	UpdateResolution(ctx context.Context, incident *domain.Incident, solution string, closedOn civil.Date) (*domain.Incident, error)
	UpdateState(ctx context.Context, incident *domain.Incident, state domain.IncidentState) (*domain.Incident, error)
}

type incidentRepository struct {
	pool  *pgxpool.Pool
	codes trackingcode.Generator
}

// NewIncidentRepository instantiates a repository over one pool. The primary
// and the replica each get their own instance.
func NewIncidentRepository(pool *pgxpool.Pool, codes trackingcode.Generator) IncidentRepository {
	return &incidentRepository{pool: pool, codes: codes}
}

// Insert persists a new incident, generating its tracking code when absent.
// The caller's value is not modified.
func (r *incidentRepository) Insert(ctx context.Context, incident *domain.Incident) (*domain.Incident, error) {
	const query = `
        INSERT INTO incidents (description, category, priority, channel, client_id, user_identification,
                               state, creation_date, closure_date, solution, tracking_code)
        VALUES ($1,$2,$3,$4,$5,$6,COALESCE(NULLIF($7::text, ''), 'open'),COALESCE($8::date, CURRENT_DATE),$9,$10,$11)
        RETURNING ` + incidentColumns

	generated := strings.TrimSpace(incident.TrackingCode) == ""
	for attempt := 1; ; attempt++ {
		code := incident.TrackingCode
		if generated {
			var err error
			if code, err = r.codes.Generate(); err != nil {
				return nil, wrap("create incident", fmt.Errorf("generate tracking code: %w", err))
			}
		}

		var created *domain.Incident
		err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
			row := tx.QueryRow(ctx, query,
				incident.Description,
				incident.Category,
				incident.Priority,
				incident.Channel,
				incident.ClientID,
				incident.UserIdentification,
				incident.State,
				toPgDate(&incident.CreationDate),
				toPgDate(incident.ClosureDate),
				incident.Solution,
				code,
			)
			var err error
			created, err = scanIncident(row)
			return err
		})
		if err == nil {
			return created, nil
		}
		if isUniqueViolation(err, trackingCodeConstraint) {
			if !generated {
				return nil, wrap("create incident", fmt.Errorf("%w: %w", ErrDuplicateTrackingCode, err))
			}
			if attempt < maxCodeAttempts {
				continue
			}
			return nil, wrap("create incident", fmt.Errorf("no free tracking code after %d attempts: %w", maxCodeAttempts, err))
		}
		return nil, wrap("create incident", err)
	}
}

func (r *incidentRepository) GetByID(ctx context.Context, id int64) (*domain.Incident, error) {
	const query = `SELECT ` + incidentColumns + ` FROM incidents WHERE id=$1`
	incident, err := scanIncident(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, wrap("get incident", err)
	}
	return incident, nil
}

func (r *incidentRepository) GetByTrackingCode(ctx context.Context, code string) (*domain.Incident, error) {
	const query = `SELECT ` + incidentColumns + ` FROM incidents WHERE tracking_code=$1`
	incident, err := scanIncident(r.pool.QueryRow(ctx, query, code))
	if err != nil {
		return nil, wrap("get incident by tracking code", err)
	}
	return incident, nil
}

// List returns incidents matching filter. Rows come back ordered by id, which
// is not guaranteed to match insertion order.
func (r *incidentRepository) List(ctx context.Context, filter IncidentFilter) ([]domain.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents`
	args := []any{}
	if filter.ClientID != nil {
		args = append(args, *filter.ClientID)
		query += fmt.Sprintf(" WHERE client_id=$%d", len(args))
	}
	query += " ORDER BY id"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, wrap("list incidents", err)
	}
	defer rows.Close()

	result := []domain.Incident{}
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, wrap("list incidents", err)
		}
		result = append(result, *incident)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list incidents", err)
	}
	return result, nil
}

// UpdateResolution closes the incident with the given solution and closure date.
func (r *incidentRepository) UpdateResolution(ctx context.Context, incident *domain.Incident, solution string, closedOn civil.Date) (*domain.Incident, error) {
	const query = `
        UPDATE incidents SET solution=$1, state=$2, closure_date=$3
        WHERE id=$4
        RETURNING ` + incidentColumns

	var updated *domain.Incident
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		updated, err = scanIncident(tx.QueryRow(ctx, query, solution, domain.IncidentStateClosed, toPgDate(&closedOn), incident.ID))
		return err
	})
	if err != nil {
		return nil, wrap("resolve incident", err)
	}
	return updated, nil
}

// UpdateState moves the incident to state without touching other fields.
func (r *incidentRepository) UpdateState(ctx context.Context, incident *domain.Incident, state domain.IncidentState) (*domain.Incident, error) {
	const query = `
        UPDATE incidents SET state=$1
        WHERE id=$2
        RETURNING ` + incidentColumns

	var updated *domain.Incident
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		updated, err = scanIncident(tx.QueryRow(ctx, query, state, incident.ID))
		return err
	})
	if err != nil {
		return nil, wrap("update incident state", err)
	}
	return updated, nil
}

func scanIncident(row pgx.Row) (*domain.Incident, error) {
	var (
		incident     domain.Incident
		creationDate pgtype.Date
		closureDate  pgtype.Date
	)
	if err := row.Scan(
		&incident.ID,
		&incident.Description,
		&incident.Category,
		&incident.Priority,
		&incident.Channel,
		&incident.ClientID,
		&incident.UserIdentification,
		&incident.State,
		&creationDate,
		&closureDate,
		&incident.Solution,
		&incident.TrackingCode,
	); err != nil {
		return nil, err
	}
	if d := fromPgDate(creationDate); d != nil {
		incident.CreationDate = *d
	}
	incident.ClosureDate = fromPgDate(closureDate)
	return &incident, nil
}

func toPgDate(d *civil.Date) pgtype.Date {
	if d == nil || *d == (civil.Date{}) {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: d.In(time.UTC), Valid: true}
}

func fromPgDate(d pgtype.Date) *civil.Date {
	if !d.Valid {
		return nil
	}
	date := civil.DateOf(d.Time)
	return &date
}
