package services

import (
	"context"
	"sync"

	"github.com/dwelora/api/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock implementation of repository.UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) ListVerifiedAgents(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockUserRepository) SetVerificationStatus(ctx context.Context, id uuid.UUID, status models.VerificationStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

// MockPropertyRepository is a mock implementation of repository.PropertyRepository.
type MockPropertyRepository struct {
	mock.Mock
}

func (m *MockPropertyRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Property, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Property), args.Error(1)
}

func (m *MockPropertyRepository) Create(ctx context.Context, property *models.Property) error {
	args := m.Called(ctx, property)
	return args.Error(0)
}

func (m *MockPropertyRepository) ListByActor(ctx context.Context, actorID uuid.UUID) ([]models.Property, error) {
	args := m.Called(ctx, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Property), args.Error(1)
}

func (m *MockPropertyRepository) ListUnassigned(ctx context.Context) ([]models.Property, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Property), args.Error(1)
}

func (m *MockPropertyRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.PropertyStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockPropertyRepository) SetAgent(ctx context.Context, id, agentID uuid.UUID) error {
	args := m.Called(ctx, id, agentID)
	return args.Error(0)
}

func (m *MockPropertyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockLeadRepository is a mock implementation of repository.LeadRepository.
type MockLeadRepository struct {
	mock.Mock
}

func (m *MockLeadRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.AgentLead, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AgentLead), args.Error(1)
}

func (m *MockLeadRepository) CreateBatch(ctx context.Context, leads []models.AgentLead) error {
	args := m.Called(ctx, leads)
	return args.Error(0)
}

func (m *MockLeadRepository) ListByAgent(ctx context.Context, agentID uuid.UUID) ([]models.AgentLead, error) {
	args := m.Called(ctx, agentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AgentLead), args.Error(1)
}

func (m *MockLeadRepository) ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]models.AgentLead, error) {
	args := m.Called(ctx, propertyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AgentLead), args.Error(1)
}

func (m *MockLeadRepository) Claim(ctx context.Context, id, agentID uuid.UUID) (bool, error) {
	args := m.Called(ctx, id, agentID)
	return args.Bool(0), args.Error(1)
}

func (m *MockLeadRepository) DeleteByProperty(ctx context.Context, propertyID uuid.UUID) error {
	args := m.Called(ctx, propertyID)
	return args.Error(0)
}

// MockViewingRepository is a mock implementation of repository.ViewingRepository.
type MockViewingRepository struct {
	mock.Mock
}

func (m *MockViewingRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ViewingRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ViewingRequest), args.Error(1)
}

func (m *MockViewingRepository) Create(ctx context.Context, request *models.ViewingRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

func (m *MockViewingRepository) Update(ctx context.Context, request *models.ViewingRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

func (m *MockViewingRepository) ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]models.ViewingRequest, error) {
	args := m.Called(ctx, propertyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ViewingRequest), args.Error(1)
}

func (m *MockViewingRepository) ListOpenByBuyer(ctx context.Context, propertyID, buyerID uuid.UUID) ([]models.ViewingRequest, error) {
	args := m.Called(ctx, propertyID, buyerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ViewingRequest), args.Error(1)
}

func (m *MockViewingRepository) HasPending(ctx context.Context, propertyID uuid.UUID) (bool, error) {
	args := m.Called(ctx, propertyID)
	return args.Bool(0), args.Error(1)
}

// MockAgreementRepository is a mock implementation of repository.AgreementRepository.
type MockAgreementRepository struct {
	mock.Mock
}

func (m *MockAgreementRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Agreement, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Agreement), args.Error(1)
}

func (m *MockAgreementRepository) Create(ctx context.Context, agreement *models.Agreement) error {
	args := m.Called(ctx, agreement)
	return args.Error(0)
}

func (m *MockAgreementRepository) Update(ctx context.Context, agreement *models.Agreement) error {
	args := m.Called(ctx, agreement)
	return args.Error(0)
}

func (m *MockAgreementRepository) FindCurrent(ctx context.Context, propertyID uuid.UUID, agreementType models.AgreementType) (*models.Agreement, error) {
	args := m.Called(ctx, propertyID, agreementType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Agreement), args.Error(1)
}

func (m *MockAgreementRepository) FindGlobalBRBC(ctx context.Context, buyerID, agentID uuid.UUID) (*models.Agreement, error) {
	args := m.Called(ctx, buyerID, agentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Agreement), args.Error(1)
}

func (m *MockAgreementRepository) FindReferralByAgent(ctx context.Context, agentID uuid.UUID) (*models.Agreement, error) {
	args := m.Called(ctx, agentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Agreement), args.Error(1)
}

func (m *MockAgreementRepository) ListByActor(ctx context.Context, actorID uuid.UUID) ([]models.Agreement, error) {
	args := m.Called(ctx, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Agreement), args.Error(1)
}

// fakeRecorder captures ledger writes without a database.
type fakeRecorder struct {
	mu      sync.Mutex
	entries []recordedActivity
}

type recordedActivity struct {
	PropertyID uuid.UUID
	ActorID    uuid.UUID
	Activity   string
}

func (r *fakeRecorder) Record(propertyID, actorID uuid.UUID, activity string, detail map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, recordedActivity{
		PropertyID: propertyID,
		ActorID:    actorID,
		Activity:   activity,
	})
}

func (r *fakeRecorder) activities() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		names = append(names, e.Activity)
	}
	return names
}

// fakeBroadcaster captures hub events without websockets.
type fakeBroadcaster struct {
	mu     sync.Mutex
	events []models.Event
}

func (b *fakeBroadcaster) Broadcast(event models.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *fakeBroadcaster) captured() []models.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.Event, len(b.events))
	copy(out, b.events)
	return out
}

// MockRanker is a mock implementation of AgentRanker.
type MockRanker struct {
	mock.Mock
}

func (m *MockRanker) Rank(ctx context.Context, property *models.Property, agents []models.User) ([]models.User, error) {
	args := m.Called(ctx, property, agents)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}
