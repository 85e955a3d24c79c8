package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dwelora/api/internal/logger"
	"github.com/dwelora/api/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memLeadStore is an in-memory lead repository whose Claim mirrors the SQL
// conditional update: under one lock it checks ownership, availability, and
// that no sibling lead for the property is already claimed, then flips the
// status. That makes it safe to race real goroutines through the service.
type memLeadStore struct {
	mu    sync.Mutex
	leads map[uuid.UUID]*models.AgentLead
}

func newMemLeadStore(leads ...models.AgentLead) *memLeadStore {
	s := &memLeadStore{leads: make(map[uuid.UUID]*models.AgentLead)}
	for i := range leads {
		lead := leads[i]
		s.leads[lead.ID] = &lead
	}
	return s
}

func (s *memLeadStore) GetByID(_ context.Context, id uuid.UUID) (*models.AgentLead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.leads[id]
	if !ok {
		return nil, nil
	}
	snapshot := *lead
	return &snapshot, nil
}

func (s *memLeadStore) CreateBatch(_ context.Context, leads []models.AgentLead) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range leads {
		lead := leads[i]
		s.leads[lead.ID] = &lead
	}
	return nil
}

func (s *memLeadStore) ListByAgent(_ context.Context, agentID uuid.UUID) ([]models.AgentLead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.AgentLead{}
	for _, lead := range s.leads {
		if lead.AgentID == agentID {
			out = append(out, *lead)
		}
	}
	return out, nil
}

func (s *memLeadStore) ListByProperty(_ context.Context, propertyID uuid.UUID) ([]models.AgentLead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.AgentLead{}
	for _, lead := range s.leads {
		if lead.PropertyID == propertyID {
			out = append(out, *lead)
		}
	}
	return out, nil
}

func (s *memLeadStore) Claim(_ context.Context, id, agentID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.leads[id]
	if !ok || lead.AgentID != agentID || lead.Status != models.LeadAvailable {
		return false, nil
	}
	for _, other := range s.leads {
		if other.ID != id && other.PropertyID == lead.PropertyID && other.Status == models.LeadClaimed {
			return false, nil
		}
	}
	lead.Status = models.LeadClaimed
	return true, nil
}

func (s *memLeadStore) DeleteByProperty(_ context.Context, propertyID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, lead := range s.leads {
		if lead.PropertyID == propertyID {
			delete(s.leads, id)
		}
	}
	return nil
}

// memPropertyStore is the matching in-memory property repository.
type memPropertyStore struct {
	mu         sync.Mutex
	properties map[uuid.UUID]*models.Property
}

func newMemPropertyStore(properties ...models.Property) *memPropertyStore {
	s := &memPropertyStore{properties: make(map[uuid.UUID]*models.Property)}
	for i := range properties {
		property := properties[i]
		s.properties[property.ID] = &property
	}
	return s
}

func (s *memPropertyStore) GetByID(_ context.Context, id uuid.UUID) (*models.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	property, ok := s.properties[id]
	if !ok {
		return nil, nil
	}
	snapshot := *property
	return &snapshot, nil
}

func (s *memPropertyStore) Create(_ context.Context, property *models.Property) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := *property
	s.properties[property.ID] = &snapshot
	return nil
}

func (s *memPropertyStore) ListByActor(_ context.Context, actorID uuid.UUID) ([]models.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Property{}
	for _, property := range s.properties {
		if property.CreatedBy == actorID ||
			(property.SellerID != nil && *property.SellerID == actorID) ||
			(property.AgentID != nil && *property.AgentID == actorID) {
			out = append(out, *property)
		}
	}
	return out, nil
}

func (s *memPropertyStore) ListUnassigned(_ context.Context) ([]models.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Property{}
	for _, property := range s.properties {
		if property.AgentID == nil {
			out = append(out, *property)
		}
	}
	return out, nil
}

func (s *memPropertyStore) UpdateStatus(_ context.Context, id uuid.UUID, status models.PropertyStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if property, ok := s.properties[id]; ok {
		property.Status = status
	}
	return nil
}

func (s *memPropertyStore) SetAgent(_ context.Context, id, agentID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if property, ok := s.properties[id]; ok {
		property.AgentID = &agentID
	}
	return nil
}

func (s *memPropertyStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.properties, id)
	return nil
}

func TestClaimLead_ConcurrentClaimsSingleWinner(t *testing.T) {
	// Arrange: one available lead, many simultaneous claims by its agent.
	const claimers = 16

	agent := verifiedAgent("CA")
	property := models.Property{
		ID:        uuid.New(),
		State:     "CA",
		Status:    models.PropertyActive,
		CreatedBy: uuid.New(),
	}
	lead := models.AgentLead{
		ID:         uuid.New(),
		PropertyID: property.ID,
		AgentID:    agent.ID,
		Status:     models.LeadAvailable,
	}

	leads := newMemLeadStore(lead)
	properties := newMemPropertyStore(property)
	service := NewLeadService(leads, properties, new(MockUserRepository), nil,
		&fakeRecorder{}, &fakeBroadcaster{}, logger.New("test"))

	ctx := context.Background()
	results := make(chan error, claimers)
	release := make(chan struct{})

	// Act: hold every goroutine at the line, then release them together.
	var wg sync.WaitGroup
	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-release
			_, err := service.ClaimLead(ctx, &agent, lead.ID)
			results <- err
		}()
	}
	close(release)
	wg.Wait()
	close(results)

	// Assert: exactly one winner, everyone else sees a state conflict.
	wins, conflicts := 0, 0
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrStateConflict):
			conflicts++
		default:
			t.Fatalf("unexpected claim error: %v", err)
		}
	}
	assert.Equal(t, 1, wins, "exactly one concurrent claim may win")
	assert.Equal(t, claimers-1, conflicts)

	stored, err := properties.GetByID(ctx, property.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.AgentID)
	assert.Equal(t, agent.ID, *stored.AgentID, "the winner is the property's agent")

	final, err := leads.GetByID(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LeadClaimed, final.Status)
}

func TestClaimLead_ConcurrentAgentsOnSiblingLeads(t *testing.T) {
	// Arrange: two agents race through their own leads for one property.
	// At most one lead per property may end up claimed.
	agentA := verifiedAgent("CA")
	agentB := verifiedAgent("CA")
	property := models.Property{
		ID:        uuid.New(),
		State:     "CA",
		Status:    models.PropertyActive,
		CreatedBy: uuid.New(),
	}
	leadA := models.AgentLead{
		ID:         uuid.New(),
		PropertyID: property.ID,
		AgentID:    agentA.ID,
		Status:     models.LeadAvailable,
	}
	leadB := models.AgentLead{
		ID:         uuid.New(),
		PropertyID: property.ID,
		AgentID:    agentB.ID,
		Status:     models.LeadAvailable,
		Rank:       1,
	}

	leads := newMemLeadStore(leadA, leadB)
	properties := newMemPropertyStore(property)
	service := NewLeadService(leads, properties, new(MockUserRepository), nil,
		&fakeRecorder{}, &fakeBroadcaster{}, logger.New("test"))

	ctx := context.Background()
	results := make(chan error, 2)
	release := make(chan struct{})

	// Act
	var wg sync.WaitGroup
	for _, attempt := range []struct {
		actor *models.User
		lead  uuid.UUID
	}{{&agentA, leadA.ID}, {&agentB, leadB.ID}} {
		wg.Add(1)
		go func(actor *models.User, leadID uuid.UUID) {
			defer wg.Done()
			<-release
			_, err := service.ClaimLead(ctx, actor, leadID)
			results <- err
		}(attempt.actor, attempt.lead)
	}
	close(release)
	wg.Wait()
	close(results)

	// Assert
	wins := 0
	for err := range results {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, ErrStateConflict)
		}
	}
	assert.Equal(t, 1, wins, "sibling leads admit a single claim per property")

	claimed := 0
	remaining, err := leads.ListByProperty(ctx, property.ID)
	require.NoError(t, err)
	for _, l := range remaining {
		if l.Status == models.LeadClaimed {
			claimed++
		}
	}
	assert.Equal(t, 1, claimed)
}
