package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/incident-service/internal/domain"
	"github.com/spec-kit/incident-service/internal/repository"
	"github.com/spec-kit/incident-service/pkg/util/errorutil"
)

// CommonProblemService manages the knowledge base of recurring problems.
type CommonProblemService struct {
	primary repository.CommonProblemRepository
	replica repository.CommonProblemRepository
	logger  *zap.Logger
}

// CommonProblemDependencies bundles repositories for the service.
type CommonProblemDependencies struct {
	Primary repository.CommonProblemRepository
	Replica repository.CommonProblemRepository
	Logger  *zap.Logger
}

// NewCommonProblemService constructs the service.
func NewCommonProblemService(deps CommonProblemDependencies) *CommonProblemService {
	replica := deps.Replica
	if replica == nil {
		replica = deps.Primary
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommonProblemService{primary: deps.Primary, replica: replica, logger: logger}
}

// Register stores a new knowledge-base entry.
func (s *CommonProblemService) Register(ctx context.Context, input domain.CommonProblem) (*domain.CommonProblem, error) {
	input.ID = 0
	input.Description = strings.TrimSpace(input.Description)
	input.Solution = strings.TrimSpace(input.Solution)

	details := map[string]any{}
	if input.Description == "" {
		details["description"] = "required"
	}
	if input.Solution == "" {
		details["solution"] = "required"
	}
	if !input.Category.Valid() {
		details["category"] = domain.Categories
	}
	if input.ClientID <= 0 {
		details["client_id"] = "must be positive"
	}
	if len(details) > 0 {
		return nil, errorutil.NewValidationError("invalid common problem", details)
	}

	if err := s.primary.Insert(ctx, &input); err != nil {
		s.logger.Error("create common problem failed", zap.Error(err))
		return nil, errorutil.NewDependencyFailure(depDatabase, err)
	}
	return &input, nil
}

// List returns knowledge-base entries, optionally only those of one client.
func (s *CommonProblemService) List(ctx context.Context, clientID *int64) ([]domain.CommonProblem, error) {
	items, err := s.replica.List(ctx, repository.CommonProblemFilter{ClientID: clientID})
	if err != nil {
		s.logger.Error("list common problems failed", zap.Error(err))
		return nil, errorutil.NewDependencyFailure(depDatabase, err)
	}
	return items, nil
}
