package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/incident-service/internal/domain"
)

// IncidentLogRepository stores audit entries. Entries are never updated or deleted.
type IncidentLogRepository interface {
	Insert(ctx context.Context, log *domain.IncidentLog) error
	ListByIncident(ctx context.Context, incidentID int64) ([]domain.IncidentLog, error)
}

type incidentLogRepository struct {
	pool *pgxpool.Pool
}

// NewIncidentLogRepository builds repository.
func NewIncidentLogRepository(pool *pgxpool.Pool) IncidentLogRepository {
	return &incidentLogRepository{pool: pool}
}

func (r *incidentLogRepository) Insert(ctx context.Context, log *domain.IncidentLog) error {
	const query = `
        INSERT INTO incident_logs (incident_id, snapshot, origin)
        VALUES ($1,$2,$3)
        RETURNING id, changed_at`
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, query,
			log.IncidentID,
			string(log.Snapshot),
			log.Origin,
		).Scan(&log.ID, &log.ChangedAt)
	})
	return wrap("record incident log", err)
}

func (r *incidentLogRepository) ListByIncident(ctx context.Context, incidentID int64) ([]domain.IncidentLog, error) {
	const query = `
        SELECT id, incident_id, snapshot, changed_at, origin
        FROM incident_logs WHERE incident_id=$1 ORDER BY changed_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, incidentID)
	if err != nil {
		return nil, wrap("list incident logs", err)
	}
	defer rows.Close()

	result := []domain.IncidentLog{}
	for rows.Next() {
		var (
			entry    domain.IncidentLog
			snapshot []byte
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.IncidentID,
			&snapshot,
			&entry.ChangedAt,
			&entry.Origin,
		); err != nil {
			return nil, wrap("list incident logs", err)
		}
		entry.Snapshot = snapshot
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list incident logs", err)
	}
	return result, nil
}
