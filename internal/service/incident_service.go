package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"go.uber.org/zap"

	"github.com/spec-kit/incident-service/internal/billing"
	"github.com/spec-kit/incident-service/internal/cache"
	"github.com/spec-kit/incident-service/internal/domain"
	"github.com/spec-kit/incident-service/internal/events"
	"github.com/spec-kit/incident-service/internal/identity"
	"github.com/spec-kit/incident-service/internal/repository"
	"github.com/spec-kit/incident-service/pkg/util/errorutil"
)

// Dependency names reported in DEPENDENCY_FAILURE errors.
const (
	depDatabase = "database"
	depCache    = "cache"
	depBroker   = "event broker"
	depAudit    = "audit log"
	depIdentity = "identity service"
	depBilling  = "billing service"
)

// AuditTrail records and lists incident snapshots.
type AuditTrail interface {
	Record(ctx context.Context, incident *domain.Incident, origin string) error
	List(ctx context.Context, incidentID int64) ([]domain.IncidentLog, error)
}

// IncidentService orchestrates the incident pipeline: primary store, cache,
// event publication and audit trail.
type IncidentService struct {
	primary   repository.IncidentRepository
	replica   repository.IncidentRepository
	cache     *cache.IncidentCache
	publisher events.Publisher
	topics    []string
	audit     AuditTrail
	identity  identity.Verifier
	billing   billing.Registrar
	logger    *zap.Logger
	now       func() time.Time
	location  *time.Location
}

// IncidentDependencies bundles collaborators for the incident service.
type IncidentDependencies struct {
	Primary   repository.IncidentRepository
	Replica   repository.IncidentRepository
	Cache     *cache.IncidentCache
	Publisher events.Publisher
	// Topics receive every change event, primary topic first.
	Topics   []string
	Audit    AuditTrail
	Identity identity.Verifier
	Billing  billing.Registrar
	Logger   *zap.Logger
	Now      func() time.Time
	Location *time.Location
}

// FieldValues lists the accepted enum values of an incident.
type FieldValues struct {
	Categories []domain.IncidentCategory `json:"category"`
	Priorities []domain.IncidentPriority `json:"priority"`
	Channels   []domain.IncidentChannel  `json:"channel"`
	States     []domain.IncidentState    `json:"state"`
}

// NewIncidentService constructs the service. A nil replica reads from the
// primary.
func NewIncidentService(deps IncidentDependencies) *IncidentService {
	replica := deps.Replica
	if replica == nil {
		replica = deps.Primary
	}
	publisher := deps.Publisher
	if publisher == nil {
		publisher = events.DisabledPublisher{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	location := deps.Location
	if location == nil {
		location = time.Local
	}
	return &IncidentService{
		primary:   deps.Primary,
		replica:   replica,
		cache:     deps.Cache,
		publisher: publisher,
		topics:    deps.Topics,
		audit:     deps.Audit,
		identity:  deps.Identity,
		billing:   deps.Billing,
		logger:    logger,
		now:       now,
		location:  location,
	}
}

// Create persists a new incident and propagates it. Any id on input is
// discarded. Nothing is cached, published or logged when the insert fails.
func (s *IncidentService) Create(ctx context.Context, input domain.Incident, origin string) (*domain.Incident, error) {
	input.ID = 0
	if err := s.validateNew(&input); err != nil {
		return nil, err
	}

	created, err := s.primary.Insert(ctx, &input)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateTrackingCode) {
			return nil, errorutil.NewConflict("tracking code already in use", map[string]any{"tracking_code": input.TrackingCode})
		}
		return nil, s.dependencyFailure(depDatabase, "create incident", err)
	}

	if err := s.propagate(ctx, created, events.OperationCreate, origin, true); err != nil {
		return nil, err
	}
	return created, nil
}

// GetByID reads an incident through the cache, falling back to the replica.
func (s *IncidentService) GetByID(ctx context.Context, id int64) (*domain.Incident, error) {
	return s.readThrough(ctx,
		func(ctx context.Context) (*domain.Incident, error) { return s.cache.GetByID(ctx, id) },
		func(ctx context.Context) (*domain.Incident, error) { return s.replica.GetByID(ctx, id) },
		s.cache.SetByID,
		map[string]any{"id": id},
	)
}

// GetByTrackingCode reads an incident through the tracking-code cache key.
func (s *IncidentService) GetByTrackingCode(ctx context.Context, code string) (*domain.Incident, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, errorutil.NewValidationError("tracking code is required", nil)
	}
	return s.readThrough(ctx,
		func(ctx context.Context) (*domain.Incident, error) { return s.cache.GetByTrackingCode(ctx, code) },
		func(ctx context.Context) (*domain.Incident, error) { return s.replica.GetByTrackingCode(ctx, code) },
		s.cache.SetByTrackingCode,
		map[string]any{"tracking_code": code},
	)
}

// List returns the incidents visible to caller: its own when it is a client,
// all of them when it is an agent.
func (s *IncidentService) List(ctx context.Context, caller domain.Identity) ([]domain.Incident, error) {
	scope, err := s.ResolveScope(ctx, caller)
	if err != nil {
		return nil, err
	}

	filter := repository.IncidentFilter{}
	if scope.Kind == domain.ScopeClient {
		filter.ClientID = &scope.ClientID
	}
	items, err := s.replica.List(ctx, filter)
	if err != nil {
		return nil, s.dependencyFailure(depDatabase, "list incidents", err)
	}
	return items, nil
}

// ResolveScope asks the identity service whether caller is a client, then
// whether it is an agent.
func (s *IncidentService) ResolveScope(ctx context.Context, caller domain.Identity) (domain.Scope, error) {
	if s.identity == nil {
		return domain.Scope{}, errorutil.NewInternalError(errors.New("identity verifier not configured"))
	}

	clientID, err := s.identity.VerifyClient(ctx, caller.Email, caller.Token)
	if err == nil {
		return domain.Scope{Kind: domain.ScopeClient, ClientID: clientID}, nil
	}
	if !errors.Is(err, identity.ErrNotFound) {
		return domain.Scope{}, s.identityFailure(err)
	}

	agentID, err := s.identity.VerifyAgent(ctx, caller.Email, caller.Token)
	if err == nil {
		return domain.Scope{Kind: domain.ScopeAgent, AgentID: agentID}, nil
	}
	if errors.Is(err, identity.ErrNotFound) {
		return domain.Scope{}, errorutil.NewInternalError(fmt.Errorf("%s is neither a client nor an agent", caller.Email))
	}
	return domain.Scope{}, s.identityFailure(err)
}

// Resolve closes an open or escalated incident with solution.
func (s *IncidentService) Resolve(ctx context.Context, id int64, solution, origin string) (*domain.Incident, error) {
	solution = strings.TrimSpace(solution)
	if solution == "" {
		return nil, errorutil.NewValidationError("solution is required", nil)
	}

	current, err := s.loadForUpdate(ctx, id, domain.IncidentStateClosed)
	if err != nil {
		return nil, err
	}

	closedOn := civil.DateOf(s.now().In(s.location))
	updated, err := s.primary.UpdateResolution(ctx, current, solution, closedOn)
	if err != nil {
		return nil, s.mapWriteError("resolve incident", id, err)
	}

	if err := s.propagate(ctx, updated, events.OperationUpdate, origin, true); err != nil {
		return nil, err
	}
	return updated, nil
}

// Escalate moves an open incident to escalated. No audit entry is written.
func (s *IncidentService) Escalate(ctx context.Context, id int64) (*domain.Incident, error) {
	current, err := s.loadForUpdate(ctx, id, domain.IncidentStateEscalated)
	if err != nil {
		return nil, err
	}

	updated, err := s.primary.UpdateState(ctx, current, domain.IncidentStateEscalated)
	if err != nil {
		return nil, s.mapWriteError("escalate incident", id, err)
	}

	if err := s.propagate(ctx, updated, events.OperationUpdate, "", false); err != nil {
		return nil, err
	}
	return updated, nil
}

// ListLogs returns the audit trail of an incident, oldest first.
func (s *IncidentService) ListLogs(ctx context.Context, id int64) ([]domain.IncidentLog, error) {
	logs, err := s.audit.List(ctx, id)
	if err != nil {
		return nil, s.dependencyFailure(depAudit, "list incident logs", err)
	}
	return logs, nil
}

// Bill registers the incident with the billing service.
func (s *IncidentService) Bill(ctx context.Context, id int64, cost float64) (map[string]any, error) {
	if cost < 0 {
		return nil, errorutil.NewValidationError("cost must not be negative", map[string]any{"cost": cost})
	}
	if s.billing == nil {
		return nil, errorutil.NewInternalError(errors.New("billing registrar not configured"))
	}

	incident, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	ack, err := s.billing.Register(ctx, billing.Charge{
		TrackingCode: incident.TrackingCode,
		Cost:         cost,
		IncidentDate: incident.CreationDate,
		ClientID:     incident.ClientID,
	})
	if err != nil {
		return nil, s.dependencyFailure(depBilling, "bill incident", err)
	}
	return ack, nil
}

// Fields lists the accepted enum values.
func (s *IncidentService) Fields() FieldValues {
	return FieldValues{
		Categories: domain.Categories,
		Priorities: domain.Priorities,
		Channels:   domain.Channels,
		States:     domain.IncidentStates,
	}
}

func (s *IncidentService) validateNew(input *domain.Incident) error {
	input.Description = strings.TrimSpace(input.Description)
	input.TrackingCode = strings.TrimSpace(input.TrackingCode)

	details := map[string]any{}
	if input.Description == "" {
		details["description"] = "required"
	}
	if !input.Category.Valid() {
		details["category"] = domain.Categories
	}
	if !input.Priority.Valid() {
		details["priority"] = domain.Priorities
	}
	if !input.Channel.Valid() {
		details["channel"] = domain.Channels
	}
	if input.ClientID <= 0 {
		details["client_id"] = "must be positive"
	}
	if input.UserIdentification != nil && len([]rune(*input.UserIdentification)) > domain.MaxUserIdentificationLength {
		details["user_identification"] = fmt.Sprintf("at most %d characters", domain.MaxUserIdentificationLength)
	}
	if input.State != "" && input.State != domain.IncidentStateOpen {
		details["state"] = "new incidents must be open"
	}
	if input.ClosureDate != nil || input.Solution != nil {
		details["solution"] = "set only when the incident is resolved"
	}
	if len(details) > 0 {
		return errorutil.NewValidationError("invalid incident", details)
	}

	input.State = domain.IncidentStateOpen
	if input.CreationDate == (civil.Date{}) {
		input.CreationDate = civil.DateOf(s.now().In(s.location))
	}
	return nil
}

// loadForUpdate reads the incident from the primary and checks that it may
// move to next.
func (s *IncidentService) loadForUpdate(ctx context.Context, id int64, next domain.IncidentState) (*domain.Incident, error) {
	current, err := s.primary.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapWriteError("load incident", id, err)
	}
	if !domain.CanTransition(current.State, next) {
		return nil, errorutil.NewValidationError(
			fmt.Sprintf("incident cannot move from %s to %s", current.State, next),
			map[string]any{"id": id, "state": current.State},
		)
	}
	return current, nil
}

// propagate runs the post-commit steps in order. The first failure stops the
// remaining steps; the committed row stays as is.
func (s *IncidentService) propagate(ctx context.Context, incident *domain.Incident, op events.Operation, origin string, record bool) error {
	if err := s.cache.SetByID(ctx, incident); err != nil {
		return s.dependencyFailure(depCache, "cache incident", err, zap.Int64("incident_id", incident.ID))
	}

	payload := events.IncidentPayload(op, incident, s.now())
	for _, topic := range s.topics {
		if _, err := s.publisher.Publish(ctx, payload, topic); err != nil {
			return s.dependencyFailure(depBroker, "publish incident event", err,
				zap.Int64("incident_id", incident.ID), zap.String("topic", topic))
		}
	}

	if !record {
		return nil
	}
	if err := s.audit.Record(ctx, incident, origin); err != nil {
		return s.dependencyFailure(depAudit, "record incident log", err, zap.Int64("incident_id", incident.ID))
	}
	return nil
}

func (s *IncidentService) readThrough(
	ctx context.Context,
	lookup func(context.Context) (*domain.Incident, error),
	load func(context.Context) (*domain.Incident, error),
	store func(context.Context, *domain.Incident) error,
	details map[string]any,
) (*domain.Incident, error) {
	cached, err := lookup(ctx)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		return nil, s.dependencyFailure(depCache, "read cached incident", err)
	}

	incident, err := load(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errorutil.NewNotFound("incident", details)
	}
	if err != nil {
		return nil, s.dependencyFailure(depDatabase, "read incident", err)
	}

	if err := store(ctx, incident); err != nil {
		return nil, s.dependencyFailure(depCache, "cache incident", err, zap.Int64("incident_id", incident.ID))
	}
	return incident, nil
}

func (s *IncidentService) mapWriteError(op string, id int64, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return errorutil.NewNotFound("incident", map[string]any{"id": id})
	}
	return s.dependencyFailure(depDatabase, op, err, zap.Int64("incident_id", id))
}

func (s *IncidentService) identityFailure(err error) error {
	if errors.Is(err, identity.ErrRejected) {
		return errorutil.NewForbidden("identity verification rejected the caller")
	}
	return s.dependencyFailure(depIdentity, "verify identity", err)
}

func (s *IncidentService) dependencyFailure(dependency, op string, err error, fields ...zap.Field) error {
	s.logger.Error(op+" failed", append(fields, zap.String("dependency", dependency), zap.Error(err))...)
	return errorutil.NewDependencyFailure(dependency, err)
}
