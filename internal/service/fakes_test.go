package service

import (
	"context"
	"sort"
	"sync"

	"cloud.google.com/go/civil"

	"github.com/spec-kit/incident-service/internal/billing"
	"github.com/spec-kit/incident-service/internal/cache"
	"github.com/spec-kit/incident-service/internal/domain"
	"github.com/spec-kit/incident-service/internal/identity"
	"github.com/spec-kit/incident-service/internal/repository"
	"github.com/spec-kit/incident-service/internal/trackingcode"
)

type memoryIncidents struct {
	mu     sync.Mutex
	rows   map[int64]domain.Incident
	nextID int64
	codes  trackingcode.Generator

	insertErr error
	readErr   error
	updateErr error

	getByIDCalls       int
	getByTrackingCalls int
}

func newMemoryIncidents() *memoryIncidents {
	return &memoryIncidents{rows: map[int64]domain.Incident{}, codes: trackingcode.NewGenerator()}
}

func (m *memoryIncidents) Insert(_ context.Context, incident *domain.Incident) (*domain.Incident, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return nil, m.insertErr
	}
	row := *incident
	if row.TrackingCode == "" {
		code, err := m.codes.Generate()
		if err != nil {
			return nil, err
		}
		row.TrackingCode = code
	}
	for _, existing := range m.rows {
		if existing.TrackingCode == row.TrackingCode {
			return nil, repository.ErrDuplicateTrackingCode
		}
	}
	m.nextID++
	row.ID = m.nextID
	m.rows[row.ID] = row
	return &row, nil
}

// seed stores row as if written out of band.
func (m *memoryIncidents) seed(row domain.Incident) domain.Incident {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	row.ID = m.nextID
	m.rows[row.ID] = row
	return row
}

func (m *memoryIncidents) GetByID(_ context.Context, id int64) (*domain.Incident, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getByIDCalls++
	if m.readErr != nil {
		return nil, m.readErr
	}
	row, ok := m.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &row, nil
}

func (m *memoryIncidents) GetByTrackingCode(_ context.Context, code string) (*domain.Incident, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getByTrackingCalls++
	if m.readErr != nil {
		return nil, m.readErr
	}
	for _, row := range m.rows {
		if row.TrackingCode == code {
			found := row
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memoryIncidents) List(_ context.Context, filter repository.IncidentFilter) ([]domain.Incident, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	out := []domain.Incident{}
	for _, row := range m.rows {
		if filter.ClientID != nil && row.ClientID != *filter.ClientID {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryIncidents) UpdateResolution(_ context.Context, incident *domain.Incident, solution string, closedOn civil.Date) (*domain.Incident, error) {
	return m.update(incident.ID, func(row *domain.Incident) {
		row.Solution = &solution
		row.State = domain.IncidentStateClosed
		row.ClosureDate = &closedOn
	})
}

func (m *memoryIncidents) UpdateState(_ context.Context, incident *domain.Incident, state domain.IncidentState) (*domain.Incident, error) {
	return m.update(incident.ID, func(row *domain.Incident) {
		row.State = state
	})
}

func (m *memoryIncidents) update(id int64, apply func(*domain.Incident)) (*domain.Incident, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	row, ok := m.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	apply(&row)
	m.rows[id] = row
	return &row, nil
}

func (m *memoryIncidents) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

type memoryBackend struct {
	mu     sync.Mutex
	values map[string][]byte
	getErr error
	setErr error
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{values: map[string][]byte{}}
}

func (b *memoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.getErr != nil {
		return nil, b.getErr
	}
	v, ok := b.values[key]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return v, nil
}

func (b *memoryBackend) Set(_ context.Context, key string, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.setErr != nil {
		return b.setErr
	}
	b.values[key] = value
	return nil
}

func (b *memoryBackend) has(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.values[key]
	return ok
}

func (b *memoryBackend) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.values)
}

type publishedMessage struct {
	topic   string
	payload map[string]any
}

type recordingPublisher struct {
	mu       sync.Mutex
	messages []publishedMessage
	err      error
}

func (p *recordingPublisher) Publish(_ context.Context, payload map[string]any, topic string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	p.messages = append(p.messages, publishedMessage{topic: topic, payload: payload})
	return "msg", nil
}

type memoryLogs struct {
	mu      sync.Mutex
	entries []domain.IncidentLog
	err     error
}

func (m *memoryLogs) Insert(_ context.Context, log *domain.IncidentLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	log.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, *log)
	return nil
}

func (m *memoryLogs) ListByIncident(_ context.Context, incidentID int64) ([]domain.IncidentLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := []domain.IncidentLog{}
	for _, e := range m.entries {
		if e.IncidentID == incidentID {
			out = append(out, e)
		}
	}
	return out, nil
}

type stubVerifier struct {
	clients   map[string]int64
	agents    map[string]int64
	clientErr error
	agentErr  error
}

func (v stubVerifier) VerifyClient(_ context.Context, email, _ string) (int64, error) {
	if v.clientErr != nil {
		return 0, v.clientErr
	}
	if id, ok := v.clients[email]; ok {
		return id, nil
	}
	return 0, identity.ErrNotFound
}

func (v stubVerifier) VerifyAgent(_ context.Context, email, _ string) (int64, error) {
	if v.agentErr != nil {
		return 0, v.agentErr
	}
	if id, ok := v.agents[email]; ok {
		return id, nil
	}
	return 0, identity.ErrNotFound
}

type stubRegistrar struct {
	charges []billing.Charge
	err     error
}

func (r *stubRegistrar) Register(_ context.Context, charge billing.Charge) (map[string]any, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.charges = append(r.charges, charge)
	return map[string]any{"status": "ok"}, nil
}

type memoryCommonProblems struct {
	rows []domain.CommonProblem
	err  error
}

func (m *memoryCommonProblems) Insert(_ context.Context, problem *domain.CommonProblem) error {
	if m.err != nil {
		return m.err
	}
	problem.ID = int64(len(m.rows) + 1)
	m.rows = append(m.rows, *problem)
	return nil
}

func (m *memoryCommonProblems) List(_ context.Context, filter repository.CommonProblemFilter) ([]domain.CommonProblem, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := []domain.CommonProblem{}
	for _, row := range m.rows {
		if filter.ClientID != nil && row.ClientID != *filter.ClientID {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}
