package services

import (
	"context"
	"fmt"

	"github.com/dwelora/api/internal/authz"
	"github.com/dwelora/api/internal/external"
	"github.com/dwelora/api/internal/logger"
	"github.com/dwelora/api/internal/models"
	"github.com/dwelora/api/internal/repository"
	"github.com/google/uuid"
)

// CreatePropertyInput is the buyer's new property submission. RawInput may
// be an address, listing URL, or other free-form text handed to the
// structured extractor; explicit fields win over extracted ones.
type CreatePropertyInput struct {
	Street   string
	City     string
	State    string
	Zip      string
	RawInput string
	SellerID *uuid.UUID
}

// PropertyService manages the property records all workflow machines
// operate on.
type PropertyService interface {
	// Create makes a new property for the buyer, fills missing address
	// fields from the extractor best-effort, and seeds agent leads. Lead
	// seeding failures never fail creation: an unmatched property still
	// exists with no agent.
	Create(ctx context.Context, actor *models.User, input CreatePropertyInput) (*models.Property, error)

	// Get returns a property visible to the actor.
	Get(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Property, error)

	// ListForActor returns properties the actor is a party to.
	ListForActor(ctx context.Context, actor *models.User) ([]models.Property, error)

	// UpdateStatus sets the listing status.
	UpdateStatus(ctx context.Context, actor *models.User, id uuid.UUID, status models.PropertyStatus) (*models.Property, error)

	// ReassignAgent replaces the assigned agent. Only an explicit buyer
	// choice or admin override may do this.
	ReassignAgent(ctx context.Context, actor *models.User, id, agentID uuid.UUID) (*models.Property, error)

	// Delete removes a property and its leads. Refused while an agent is
	// assigned.
	Delete(ctx context.Context, actor *models.User, id uuid.UUID) error
}

// propertyService is the concrete implementation of PropertyService.
type propertyService struct {
	properties repository.PropertyRepository
	leadRepo   repository.LeadRepository
	users      repository.UserRepository
	leads      LeadService
	extractor  external.Extractor
	ledger     Recorder
	events     Broadcaster
	log        *logger.Logger
}

// NewPropertyService creates a new instance of PropertyService. extractor
// may be nil, in which case only explicit fields are used.
func NewPropertyService(
	properties repository.PropertyRepository,
	leadRepo repository.LeadRepository,
	users repository.UserRepository,
	leads LeadService,
	extractor external.Extractor,
	ledger Recorder,
	events Broadcaster,
	log *logger.Logger,
) PropertyService {
	return &propertyService{
		properties: properties,
		leadRepo:   leadRepo,
		users:      users,
		leads:      leads,
		extractor:  extractor,
		ledger:     ledger,
		events:     events,
		log:        log,
	}
}

// propertyOwnership names the parties that own a property record.
func propertyOwnership(property *models.Property) authz.Ownership {
	ownership := authz.Ownership{models.RoleBuyer: property.CreatedBy}
	if property.SellerID != nil {
		ownership[models.RoleSeller] = *property.SellerID
	}
	if property.AgentID != nil {
		ownership[models.RoleAgent] = *property.AgentID
	}
	return ownership
}

func (s *propertyService) Create(ctx context.Context, actor *models.User, input CreatePropertyInput) (*models.Property, error) {
	if !authz.Allowed(authz.ActionCreateProperty, actor.Role) {
		return nil, ErrForbidden
	}
	if input.Street == "" && input.RawInput == "" {
		return nil, fmt.Errorf("an address or raw input is required: %w", ErrInvalidInput)
	}

	// Structured extraction is best-effort: an empty result is fine, and a
	// failing extractor never fails creation.
	if s.extractor != nil && (input.Street == "" || input.City == "" || input.State == "" || input.Zip == "") {
		raw := input.RawInput
		if raw == "" {
			raw = input.Street
		}
		details, err := s.extractor.Extract(ctx, raw)
		if err != nil {
			s.log.Warn("Property extraction failed", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			if input.Street == "" {
				input.Street = details.Street
			}
			if input.City == "" {
				input.City = details.City
			}
			if input.State == "" {
				input.State = details.State
			}
			if input.Zip == "" {
				input.Zip = details.Zip
			}
		}
	}
	if input.Street == "" {
		return nil, fmt.Errorf("could not determine a street address: %w", ErrInvalidInput)
	}

	property := &models.Property{
		ID:        uuid.New(),
		Street:    input.Street,
		City:      input.City,
		State:     input.State,
		Zip:       input.Zip,
		Status:    models.PropertyActive,
		CreatedBy: actor.ID,
		SellerID:  input.SellerID,
	}
	if err := s.properties.Create(ctx, property); err != nil {
		return nil, fmt.Errorf("failed to create property: %w", err)
	}

	s.log.Info("Property created", map[string]interface{}{
		"property_id": property.ID.String(),
		"created_by":  actor.ID.String(),
	})
	s.ledger.Record(property.ID, actor.ID, "property_created", nil)

	// Lead seeding is best-effort; a property with no matched agent is
	// still a valid property.
	if err := s.leads.SeedLeads(ctx, property); err != nil {
		s.log.Error("Failed to seed leads for new property", err, map[string]interface{}{
			"property_id": property.ID.String(),
		})
	}

	s.events.Broadcast(models.Event{
		Recipients: []uuid.UUID{actor.ID},
		Kind:       models.EventPropertyUpdate,
		Payload: models.EventPayload{
			PropertyID: &property.ID,
			Action:     "property_created",
			Message:    "Your property has been created",
		},
	})
	return property, nil
}

func (s *propertyService) Get(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Property, error) {
	property, err := s.properties.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load property: %w", err)
	}
	if property == nil {
		return nil, ErrNotFound
	}
	if !authz.CanAccess(actor.Role, actor.ID, propertyOwnership(property)) {
		return nil, ErrForbidden
	}
	return property, nil
}

func (s *propertyService) ListForActor(ctx context.Context, actor *models.User) ([]models.Property, error) {
	properties, err := s.properties.ListByActor(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	return properties, nil
}

func (s *propertyService) UpdateStatus(ctx context.Context, actor *models.User, id uuid.UUID, status models.PropertyStatus) (*models.Property, error) {
	switch status {
	case models.PropertyActive, models.PropertyPending, models.PropertySold, models.PropertyWithdrawn:
	default:
		return nil, fmt.Errorf("status %q is not valid: %w", status, ErrInvalidInput)
	}
	if !authz.Allowed(authz.ActionUpdateProperty, actor.Role) {
		return nil, ErrForbidden
	}

	property, err := s.properties.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load property: %w", err)
	}
	if property == nil {
		return nil, ErrNotFound
	}
	if !authz.CanAccess(actor.Role, actor.ID, propertyOwnership(property)) {
		return nil, ErrForbidden
	}

	if err := s.properties.UpdateStatus(ctx, id, status); err != nil {
		return nil, fmt.Errorf("failed to update property status: %w", err)
	}
	property.Status = status

	s.ledger.Record(id, actor.ID, "property_status_changed", map[string]interface{}{
		"status": string(status),
	})
	s.events.Broadcast(models.Event{
		Recipients: ownershipRecipients(property),
		Kind:       models.EventPropertyUpdate,
		Payload: models.EventPayload{
			PropertyID: &property.ID,
			Action:     "property_status_changed",
			Message:    "The property status changed to " + string(status),
		},
	})
	return property, nil
}

func (s *propertyService) ReassignAgent(ctx context.Context, actor *models.User, id, agentID uuid.UUID) (*models.Property, error) {
	if !authz.Allowed(authz.ActionReassignAgent, actor.Role) {
		return nil, ErrForbidden
	}

	property, err := s.properties.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load property: %w", err)
	}
	if property == nil {
		return nil, ErrNotFound
	}
	// Reassignment is the buyer's explicit choice or an admin override.
	if !authz.CanAccess(actor.Role, actor.ID, authz.Ownership{models.RoleBuyer: property.CreatedBy}) {
		return nil, ErrForbidden
	}

	agent, err := s.users.GetByID(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load agent: %w", err)
	}
	if agent == nil {
		return nil, ErrNotFound
	}
	if !agent.IsVerifiedAgent() {
		return nil, fmt.Errorf("user %s is not a verified agent: %w", agentID, ErrInvalidInput)
	}

	if err := s.properties.SetAgent(ctx, id, agentID); err != nil {
		return nil, fmt.Errorf("failed to reassign agent: %w", err)
	}
	property.AgentID = &agentID

	s.ledger.Record(id, actor.ID, "agent_reassigned", map[string]interface{}{
		"agent_id": agentID.String(),
	})
	s.events.Broadcast(models.Event{
		Recipients: ownershipRecipients(property),
		Kind:       models.EventPropertyUpdate,
		Payload: models.EventPayload{
			PropertyID: &property.ID,
			Action:     "agent_reassigned",
			Message:    "The property's agent was reassigned",
		},
	})
	return property, nil
}

func (s *propertyService) Delete(ctx context.Context, actor *models.User, id uuid.UUID) error {
	if !authz.Allowed(authz.ActionDeleteProperty, actor.Role) {
		return ErrForbidden
	}

	property, err := s.properties.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load property: %w", err)
	}
	if property == nil {
		return ErrNotFound
	}
	if !authz.CanAccess(actor.Role, actor.ID, authz.Ownership{models.RoleBuyer: property.CreatedBy}) {
		return ErrForbidden
	}
	if property.AgentID != nil {
		return fmt.Errorf("property %s has an assigned agent and cannot be deleted: %w", id, ErrStateConflict)
	}

	// Leads live and die with their property.
	if err := s.leadRepo.DeleteByProperty(ctx, id); err != nil {
		return fmt.Errorf("failed to delete property leads: %w", err)
	}
	if err := s.properties.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete property: %w", err)
	}

	s.log.Info("Property deleted", map[string]interface{}{
		"property_id": id.String(),
		"actor_id":    actor.ID.String(),
	})
	return nil
}

// ownershipRecipients collects the user ids of every party on a property.
func ownershipRecipients(property *models.Property) []uuid.UUID {
	recipients := []uuid.UUID{property.CreatedBy}
	if property.SellerID != nil {
		recipients = append(recipients, *property.SellerID)
	}
	if property.AgentID != nil {
		recipients = append(recipients, *property.AgentID)
	}
	return recipients
}
