package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/incident-service/internal/domain"
)

// CommonProblemFilter narrows knowledge-base listings.
type CommonProblemFilter struct {
	ClientID *int64
}

// CommonProblemRepository persists knowledge-base entries.
type CommonProblemRepository interface {
	Insert(ctx context.Context, problem *domain.CommonProblem) error
	List(ctx context.Context, filter CommonProblemFilter) ([]domain.CommonProblem, error)
}

type commonProblemRepository struct {
	pool *pgxpool.Pool
}

// NewCommonProblemRepository instantiates repository.
func NewCommonProblemRepository(pool *pgxpool.Pool) CommonProblemRepository {
	return &commonProblemRepository{pool: pool}
}

func (r *commonProblemRepository) Insert(ctx context.Context, problem *domain.CommonProblem) error {
	const query = `
        INSERT INTO common_problems (description, category, solution, client_id)
        VALUES ($1,$2,$3,$4)
        RETURNING id`
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, query,
			problem.Description,
			problem.Category,
			problem.Solution,
			problem.ClientID,
		).Scan(&problem.ID)
	})
	return wrap("create common problem", err)
}

func (r *commonProblemRepository) List(ctx context.Context, filter CommonProblemFilter) ([]domain.CommonProblem, error) {
	query := `SELECT id, description, category, solution, client_id FROM common_problems`
	args := []any{}
	if filter.ClientID != nil {
		args = append(args, *filter.ClientID)
		query += fmt.Sprintf(" WHERE client_id=$%d", len(args))
	}
	query += " ORDER BY id"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, wrap("list common problems", err)
	}
	defer rows.Close()

	result := []domain.CommonProblem{}
	for rows.Next() {
		var problem domain.CommonProblem
		if err := rows.Scan(
			&problem.ID,
			&problem.Description,
			&problem.Category,
			&problem.Solution,
			&problem.ClientID,
		); err != nil {
			return nil, wrap("list common problems", err)
		}
		result = append(result, problem)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list common problems", err)
	}
	return result, nil
}
