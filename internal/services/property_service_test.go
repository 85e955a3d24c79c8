package services

import (
	"context"
	"errors"
	"testing"

	"github.com/dwelora/api/internal/external"
	"github.com/dwelora/api/internal/logger"
	"github.com/dwelora/api/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockExtractor is a mock implementation of external.Extractor.
type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(ctx context.Context, input string) (external.PropertyDetails, error) {
	args := m.Called(ctx, input)
	return args.Get(0).(external.PropertyDetails), args.Error(1)
}

type propertyFixture struct {
	service     PropertyService
	properties  *MockPropertyRepository
	leadRepo    *MockLeadRepository
	users       *MockUserRepository
	leads       LeadService
	extractor   *MockExtractor
	recorder    *fakeRecorder
	broadcaster *fakeBroadcaster
}

func newPropertyFixture(extractor *MockExtractor) *propertyFixture {
	f := &propertyFixture{
		properties:  new(MockPropertyRepository),
		leadRepo:    new(MockLeadRepository),
		users:       new(MockUserRepository),
		extractor:   extractor,
		recorder:    &fakeRecorder{},
		broadcaster: &fakeBroadcaster{},
	}
	log := logger.New("test")
	f.leads = NewLeadService(f.leadRepo, f.properties, f.users, nil, f.recorder, f.broadcaster, log)
	var ext external.Extractor
	if extractor != nil {
		ext = extractor
	}
	f.service = NewPropertyService(f.properties, f.leadRepo, f.users, f.leads, ext, f.recorder, f.broadcaster, log)
	return f
}

func TestCreateProperty_ForbiddenForAgent(t *testing.T) {
	// Arrange
	f := newPropertyFixture(nil)
	agent := &models.User{ID: uuid.New(), Role: models.RoleAgent}

	// Act
	property, err := f.service.Create(context.Background(), agent, CreatePropertyInput{Street: "12 Oak St"})

	// Assert
	assert.Nil(t, property)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestCreateProperty_RequiresAddressOrRawInput(t *testing.T) {
	// Arrange
	f := newPropertyFixture(nil)
	buyer := &models.User{ID: uuid.New(), Role: models.RoleBuyer}

	// Act
	property, err := f.service.Create(context.Background(), buyer, CreatePropertyInput{})

	// Assert
	assert.Nil(t, property)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCreateProperty_ExtractorFillsMissingFields(t *testing.T) {
	// Arrange
	extractor := new(MockExtractor)
	f := newPropertyFixture(extractor)
	ctx := context.Background()
	buyer := &models.User{ID: uuid.New(), Role: models.RoleBuyer}

	extractor.On("Extract", ctx, "12 Oak St, Davis CA 95616").Return(external.PropertyDetails{
		Street: "12 Oak St",
		City:   "Davis",
		State:  "CA",
		Zip:    "95616",
	}, nil)
	f.properties.On("Create", ctx, mock.MatchedBy(func(p *models.Property) bool {
		return p.Street == "12 Oak St" && p.City == "Davis" && p.State == "CA" && p.Zip == "95616" &&
			p.Status == models.PropertyActive && p.CreatedBy == buyer.ID
	})).Return(nil)
	f.users.On("ListVerifiedAgents", ctx).Return([]models.User{}, nil)

	// Act
	property, err := f.service.Create(ctx, buyer, CreatePropertyInput{RawInput: "12 Oak St, Davis CA 95616"})

	// Assert
	require.NoError(t, err)
	require.NotNil(t, property)
	assert.Equal(t, "Davis", property.City)
	assert.Nil(t, property.AgentID, "no agent available leaves the property unmatched, not failed")
	f.properties.AssertExpectations(t)
}

func TestCreateProperty_ExtractorFailureDegrades(t *testing.T) {
	// Arrange
	extractor := new(MockExtractor)
	f := newPropertyFixture(extractor)
	ctx := context.Background()
	buyer := &models.User{ID: uuid.New(), Role: models.RoleBuyer}

	extractor.On("Extract", ctx, mock.Anything).Return(external.PropertyDetails{}, errors.New("parser down"))
	f.properties.On("Create", ctx, mock.AnythingOfType("*models.Property")).Return(nil)
	f.users.On("ListVerifiedAgents", ctx).Return([]models.User{}, nil)

	// Act: the explicit street is enough; the extractor failure is logged
	// and ignored.
	property, err := f.service.Create(ctx, buyer, CreatePropertyInput{Street: "12 Oak St", State: "CA"})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "12 Oak St", property.Street)
}

func TestCreateProperty_SeedsLeads(t *testing.T) {
	// Arrange
	f := newPropertyFixture(nil)
	ctx := context.Background()
	buyer := &models.User{ID: uuid.New(), Role: models.RoleBuyer}
	agent := verifiedAgent("CA")

	f.properties.On("Create", ctx, mock.AnythingOfType("*models.Property")).Return(nil)
	f.users.On("ListVerifiedAgents", ctx).Return([]models.User{agent}, nil)
	f.leadRepo.On("CreateBatch", ctx, mock.AnythingOfType("[]models.AgentLead")).Return(nil)
	f.properties.On("SetAgent", ctx, mock.Anything, agent.ID).Return(nil)

	// Act
	property, err := f.service.Create(ctx, buyer, CreatePropertyInput{Street: "12 Oak St", State: "CA"})

	// Assert
	require.NoError(t, err)
	require.NotNil(t, property.AgentID)
	assert.Equal(t, agent.ID, *property.AgentID)
	assert.Contains(t, f.recorder.activities(), "property_created")
	assert.Contains(t, f.recorder.activities(), "agent_assigned")
}

func TestGetProperty_StrangerForbidden(t *testing.T) {
	// Arrange
	f := newPropertyFixture(nil)
	ctx := context.Background()
	property := &models.Property{ID: uuid.New(), CreatedBy: uuid.New()}
	stranger := &models.User{ID: uuid.New(), Role: models.RoleBuyer}

	f.properties.On("GetByID", ctx, property.ID).Return(property, nil)

	// Act
	got, err := f.service.Get(ctx, stranger, property.ID)

	// Assert
	assert.Nil(t, got)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestReassignAgent_RejectsUnverifiedAgent(t *testing.T) {
	// Arrange
	f := newPropertyFixture(nil)
	ctx := context.Background()
	buyer := &models.User{ID: uuid.New(), Role: models.RoleBuyer}
	property := &models.Property{ID: uuid.New(), CreatedBy: buyer.ID}
	unverified := &models.User{ID: uuid.New(), Role: models.RoleAgent, VerificationStatus: models.VerificationPending}

	f.properties.On("GetByID", ctx, property.ID).Return(property, nil)
	f.users.On("GetByID", ctx, unverified.ID).Return(unverified, nil)

	// Act
	got, err := f.service.ReassignAgent(ctx, buyer, property.ID, unverified.ID)

	// Assert
	assert.Nil(t, got)
	assert.ErrorIs(t, err, ErrInvalidInput)
	f.properties.AssertNotCalled(t, "SetAgent")
}

func TestDeleteProperty_RefusedWhileAgentAssigned(t *testing.T) {
	// Arrange
	f := newPropertyFixture(nil)
	ctx := context.Background()
	buyer := &models.User{ID: uuid.New(), Role: models.RoleBuyer}
	agentID := uuid.New()
	property := &models.Property{ID: uuid.New(), CreatedBy: buyer.ID, AgentID: &agentID}

	f.properties.On("GetByID", ctx, property.ID).Return(property, nil)

	// Act
	err := f.service.Delete(ctx, buyer, property.ID)

	// Assert
	assert.ErrorIs(t, err, ErrStateConflict)
	f.properties.AssertNotCalled(t, "Delete")
}

func TestDeleteProperty_RemovesLeadsFirst(t *testing.T) {
	// Arrange
	f := newPropertyFixture(nil)
	ctx := context.Background()
	buyer := &models.User{ID: uuid.New(), Role: models.RoleBuyer}
	property := &models.Property{ID: uuid.New(), CreatedBy: buyer.ID}

	f.properties.On("GetByID", ctx, property.ID).Return(property, nil)
	f.leadRepo.On("DeleteByProperty", ctx, property.ID).Return(nil)
	f.properties.On("Delete", ctx, property.ID).Return(nil)

	// Act
	err := f.service.Delete(ctx, buyer, property.ID)

	// Assert
	require.NoError(t, err)
	f.leadRepo.AssertExpectations(t)
	f.properties.AssertExpectations(t)
}
