package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dwelora/api/internal/authz"
	"github.com/dwelora/api/internal/logger"
	"github.com/dwelora/api/internal/models"
	"github.com/dwelora/api/internal/repository"
	"github.com/google/uuid"
)

// ApprovalSlot names one of the two independent agent sign-off slots on a
// viewing request.
type ApprovalSlot string

const (
	SlotSellerAgent ApprovalSlot = "seller_agent"
	SlotBuyerAgent  ApprovalSlot = "buyer_agent"
)

// CreateViewingInput is the buyer's request for a visit.
type CreateViewingInput struct {
	PropertyID     uuid.UUID
	RequestedStart time.Time
	RequestedEnd   time.Time
	BuyerAgentID   *uuid.UUID
	// Override supersedes the buyer's prior non-terminal requests for the
	// property by cancelling them with an annotation.
	Override bool
}

// ViewingService is the booking lifecycle for requested visits, with two
// independent agent-approval sub-states.
type ViewingService interface {
	// Create validates preconditions (property status, representation,
	// BRBC gate) and creates a pending request. Returns *RequiresBRBCError
	// when the buyer lacks a signed representation agreement with the
	// property's assigned agent.
	Create(ctx context.Context, actor *models.User, input CreateViewingInput) (*models.ViewingRequest, error)

	// Decide moves the top-level status to accepted, rejected, rescheduled,
	// or completed. Only the property's seller, its agents, or an admin may
	// decide. The confirmed window is required for accepted/rescheduled.
	Decide(ctx context.Context, actor *models.User, id uuid.UUID, target models.ViewingStatus, confirmedStart, confirmedEnd *time.Time) (*models.ViewingRequest, error)

	// Approve records an independent approval or rejection in one of the two
	// agent slots, with a provenance tag naming the surface it came from.
	// The top-level status is not derived from these flags.
	Approve(ctx context.Context, actor *models.User, id uuid.UUID, slot ApprovalSlot, decision models.ApprovalStatus, source string) (*models.ViewingRequest, error)

	// Cancel marks a non-terminal request cancelled. Buyer-initiated only
	// (admin may override). The record is preserved.
	Cancel(ctx context.Context, actor *models.User, id uuid.UUID, reason string) (*models.ViewingRequest, error)

	// ListForProperty returns the property's viewing requests for a party to
	// the transaction.
	ListForProperty(ctx context.Context, actor *models.User, propertyID uuid.UUID) ([]models.ViewingRequest, error)
}

// viewingService is the concrete implementation of ViewingService.
type viewingService struct {
	viewings   repository.ViewingRepository
	properties repository.PropertyRepository
	agreements repository.AgreementRepository
	ledger     Recorder
	events     Broadcaster
	log        *logger.Logger
}

// NewViewingService creates a new instance of ViewingService.
func NewViewingService(
	viewings repository.ViewingRepository,
	properties repository.PropertyRepository,
	agreements repository.AgreementRepository,
	ledger Recorder,
	events Broadcaster,
	log *logger.Logger,
) ViewingService {
	return &viewingService{
		viewings:   viewings,
		properties: properties,
		agreements: agreements,
		ledger:     ledger,
		events:     events,
		log:        log,
	}
}

func (s *viewingService) Create(ctx context.Context, actor *models.User, input CreateViewingInput) (*models.ViewingRequest, error) {
	if !authz.Allowed(authz.ActionRequestViewing, actor.Role) {
		return nil, ErrForbidden
	}
	if !input.RequestedEnd.After(input.RequestedStart) {
		return nil, fmt.Errorf("requested window must end after it starts: %w", ErrInvalidInput)
	}

	property, err := s.properties.GetByID(ctx, input.PropertyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load property: %w", err)
	}
	if property == nil {
		return nil, ErrNotFound
	}
	if !property.AcceptsViewings() {
		return nil, fmt.Errorf("property %s is not open for viewings: %w", property.ID, ErrStateConflict)
	}
	if property.SellerID == nil && property.AgentID == nil {
		return nil, fmt.Errorf("property %s has no seller or agent to receive the request: %w", property.ID, ErrStateConflict)
	}

	// BRBC gate: a buyer may only book through an assigned agent they hold a
	// signed global representation agreement with.
	if property.AgentID != nil {
		brbc, err := s.agreements.FindGlobalBRBC(ctx, actor.ID, *property.AgentID)
		if err != nil {
			return nil, fmt.Errorf("failed to check representation agreement: %w", err)
		}
		if brbc == nil || !brbc.GrantsViewingAccess() {
			return nil, &RequiresBRBCError{AgentID: *property.AgentID}
		}
	}

	// Multiple simultaneous requests are permitted; an explicit override
	// supersedes prior open requests instead of deleting them.
	if input.Override {
		open, err := s.viewings.ListOpenByBuyer(ctx, input.PropertyID, actor.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list open requests: %w", err)
		}
		for i := range open {
			prior := open[i]
			prior.Status = models.ViewingCancelled
			note := "superseded by a newer request"
			prior.Note = &note
			if err := s.viewings.Update(ctx, &prior); err != nil {
				return nil, fmt.Errorf("failed to supersede request %s: %w", prior.ID, err)
			}
		}
	}

	request := &models.ViewingRequest{
		ID:                  uuid.New(),
		PropertyID:          property.ID,
		BuyerID:             actor.ID,
		BuyerAgentID:        input.BuyerAgentID,
		SellerAgentID:       property.AgentID,
		RequestedStart:      input.RequestedStart,
		RequestedEnd:        input.RequestedEnd,
		Status:              models.ViewingPending,
		SellerAgentApproval: models.ApprovalPending,
		BuyerAgentApproval:  models.ApprovalPending,
	}
	if err := s.viewings.Create(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to create viewing request: %w", err)
	}

	s.log.Info("Viewing requested", map[string]interface{}{
		"viewing_id":  request.ID.String(),
		"property_id": property.ID.String(),
		"buyer_id":    actor.ID.String(),
	})

	s.ledger.Record(property.ID, actor.ID, "viewing_requested", map[string]interface{}{
		"viewing_id": request.ID.String(),
		"override":   input.Override,
	})
	s.notifyParties(property, request, "viewing_requested", "A viewing has been requested")
	return request, nil
}

func (s *viewingService) Decide(ctx context.Context, actor *models.User, id uuid.UUID, target models.ViewingStatus, confirmedStart, confirmedEnd *time.Time) (*models.ViewingRequest, error) {
	switch target {
	case models.ViewingAccepted, models.ViewingRejected, models.ViewingRescheduled, models.ViewingCompleted:
	default:
		return nil, fmt.Errorf("status %q is not a valid decision: %w", target, ErrInvalidInput)
	}
	if !authz.Allowed(authz.ActionDecideViewing, actor.Role) {
		return nil, ErrForbidden
	}

	request, property, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if !authz.CanAccess(actor.Role, actor.ID, s.decisionOwnership(property, request)) {
		return nil, ErrForbidden
	}
	if !models.CanTransition(request.Status, target) {
		return nil, fmt.Errorf("cannot move viewing from %q to %q: %w", request.Status, target, ErrStateConflict)
	}

	if target == models.ViewingAccepted || target == models.ViewingRescheduled {
		if confirmedStart == nil || confirmedEnd == nil {
			return nil, fmt.Errorf("a confirmed window is required for %q: %w", target, ErrInvalidInput)
		}
		if !confirmedEnd.After(*confirmedStart) {
			return nil, fmt.Errorf("confirmed window must end after it starts: %w", ErrInvalidInput)
		}
		request.ConfirmedStart = confirmedStart
		request.ConfirmedEnd = confirmedEnd
	}
	request.Status = target

	if err := s.viewings.Update(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to update viewing request: %w", err)
	}

	s.log.Info("Viewing decided", map[string]interface{}{
		"viewing_id": id.String(),
		"status":     string(target),
		"actor_id":   actor.ID.String(),
	})

	s.ledger.Record(request.PropertyID, actor.ID, "viewing_"+string(target), map[string]interface{}{
		"viewing_id": id.String(),
	})
	s.notifyParties(property, request, "viewing_"+string(target), "A viewing request was "+string(target))
	return request, nil
}

func (s *viewingService) Approve(ctx context.Context, actor *models.User, id uuid.UUID, slot ApprovalSlot, decision models.ApprovalStatus, source string) (*models.ViewingRequest, error) {
	if decision != models.ApprovalApproved && decision != models.ApprovalRejected {
		return nil, fmt.Errorf("decision %q is not valid: %w", decision, ErrInvalidInput)
	}
	if !authz.Allowed(authz.ActionApproveViewing, actor.Role) {
		return nil, ErrForbidden
	}

	request, property, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.Status.IsTerminal() {
		return nil, fmt.Errorf("viewing %s is %s: %w", id, request.Status, ErrStateConflict)
	}

	// Each slot is written only by the specific party authorized for it.
	switch slot {
	case SlotSellerAgent:
		ownership := authz.Ownership{}
		if property.AgentID != nil {
			ownership[models.RoleAgent] = *property.AgentID
		} else if request.SellerAgentID != nil {
			ownership[models.RoleAgent] = *request.SellerAgentID
		}
		if !authz.CanAccess(actor.Role, actor.ID, ownership) {
			return nil, ErrForbidden
		}
		if request.SellerAgentApproval != models.ApprovalPending {
			return nil, fmt.Errorf("seller-agent approval already %s: %w", request.SellerAgentApproval, ErrStateConflict)
		}
		request.SellerAgentApproval = decision
		request.SellerAgentApprovalSource = &source
	case SlotBuyerAgent:
		ownership := authz.Ownership{}
		if request.BuyerAgentID != nil {
			ownership[models.RoleAgent] = *request.BuyerAgentID
		}
		if !authz.CanAccess(actor.Role, actor.ID, ownership) {
			return nil, ErrForbidden
		}
		if request.BuyerAgentApproval != models.ApprovalPending {
			return nil, fmt.Errorf("buyer-agent approval already %s: %w", request.BuyerAgentApproval, ErrStateConflict)
		}
		request.BuyerAgentApproval = decision
		request.BuyerAgentApprovalSource = &source
	default:
		return nil, fmt.Errorf("unknown approval slot %q: %w", slot, ErrInvalidInput)
	}

	if err := s.viewings.Update(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to update viewing approval: %w", err)
	}

	s.ledger.Record(request.PropertyID, actor.ID, "viewing_approval", map[string]interface{}{
		"viewing_id": id.String(),
		"slot":       string(slot),
		"decision":   string(decision),
		"source":     source,
	})
	s.notifyParties(property, request, "viewing_approval", "An agent recorded a viewing decision")
	return request, nil
}

func (s *viewingService) Cancel(ctx context.Context, actor *models.User, id uuid.UUID, reason string) (*models.ViewingRequest, error) {
	if !authz.Allowed(authz.ActionCancelViewing, actor.Role) {
		return nil, ErrForbidden
	}

	request, property, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.CanAccess(actor.Role, actor.ID, authz.Ownership{models.RoleBuyer: request.BuyerID}) {
		return nil, ErrForbidden
	}
	if !models.CanTransition(request.Status, models.ViewingCancelled) {
		return nil, fmt.Errorf("cannot cancel viewing in status %q: %w", request.Status, ErrStateConflict)
	}

	request.Status = models.ViewingCancelled
	if reason != "" {
		request.Note = &reason
	}
	if err := s.viewings.Update(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to cancel viewing request: %w", err)
	}

	s.ledger.Record(request.PropertyID, actor.ID, "viewing_cancelled", map[string]interface{}{
		"viewing_id": id.String(),
		"reason":     reason,
	})
	s.notifyParties(property, request, "viewing_cancelled", "A viewing request was cancelled")
	return request, nil
}

func (s *viewingService) ListForProperty(ctx context.Context, actor *models.User, propertyID uuid.UUID) ([]models.ViewingRequest, error) {
	property, err := s.properties.GetByID(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load property: %w", err)
	}
	if property == nil {
		return nil, ErrNotFound
	}
	if !authz.CanAccess(actor.Role, actor.ID, propertyOwnership(property)) {
		return nil, ErrForbidden
	}

	requests, err := s.viewings.ListByProperty(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list viewing requests: %w", err)
	}
	return requests, nil
}

// load fetches a viewing request together with its property.
func (s *viewingService) load(ctx context.Context, id uuid.UUID) (*models.ViewingRequest, *models.Property, error) {
	request, err := s.viewings.GetByID(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load viewing request: %w", err)
	}
	if request == nil {
		return nil, nil, ErrNotFound
	}
	property, err := s.properties.GetByID(ctx, request.PropertyID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load property: %w", err)
	}
	if property == nil {
		return nil, nil, ErrNotFound
	}
	return request, property, nil
}

// decisionOwnership names the parties who may decide a request's top-level
// status: the property's seller and the agents on either side.
func (s *viewingService) decisionOwnership(property *models.Property, request *models.ViewingRequest) authz.Ownership {
	ownership := authz.Ownership{}
	if property.SellerID != nil {
		ownership[models.RoleSeller] = *property.SellerID
	}
	if property.AgentID != nil {
		ownership[models.RoleAgent] = *property.AgentID
	} else if request.SellerAgentID != nil {
		ownership[models.RoleAgent] = *request.SellerAgentID
	}
	return ownership
}

// notifyParties broadcasts a change to every party with a stake in the
// request. The hub deduplicates recipients.
func (s *viewingService) notifyParties(property *models.Property, request *models.ViewingRequest, action, message string) {
	recipients := []uuid.UUID{request.BuyerID}
	if request.BuyerAgentID != nil {
		recipients = append(recipients, *request.BuyerAgentID)
	}
	if request.SellerAgentID != nil {
		recipients = append(recipients, *request.SellerAgentID)
	}
	if property.SellerID != nil {
		recipients = append(recipients, *property.SellerID)
	}
	if property.AgentID != nil {
		recipients = append(recipients, *property.AgentID)
	}

	s.events.Broadcast(models.Event{
		Recipients: recipients,
		Kind:       models.EventPropertyUpdate,
		Payload: models.EventPayload{
			PropertyID:       &request.PropertyID,
			ViewingRequestID: &request.ID,
			Action:           action,
			Message:          message,
		},
	})
}
