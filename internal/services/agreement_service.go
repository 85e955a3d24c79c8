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

// SignResult carries the committed agreement plus any document
// materialization failure. A render failure never rolls back the signature:
// legal consent must not be lost because a PDF could not be produced.
type SignResult struct {
	Agreement *models.Agreement
	// RenderErr is non-nil when materialization failed after the signature
	// was committed. The caller may retry rendering later.
	RenderErr error
}

// AgreementService is the signature lifecycle for legal document instances.
// Four document kinds share one record shape with different legal
// semantics.
type AgreementService interface {
	// SignDisclosure records a signature on the property's agency
	// disclosure, creating the agreement on the first signature. The slot
	// written is determined by the actor's role, and the status machine
	// follows the sequential buyer -> agent -> seller flow. Completion is
	// suppressed while the property has a pending viewing request.
	SignDisclosure(ctx context.Context, actor *models.User, propertyID uuid.UUID, signature string, editedDocument []byte) (*SignResult, error)

	// CreateStandard originates a buyer-representation agreement. Agent or
	// admin only.
	CreateStandard(ctx context.Context, actor *models.User, propertyID uuid.UUID) (*models.Agreement, error)

	// SignStandard records a signature on a standard agreement: a buyer
	// signature moves it to signed_buyer; the agent (or admin)
	// countersignature completes it.
	SignStandard(ctx context.Context, actor *models.User, agreementID uuid.UUID, signature string) (*SignResult, error)

	// SignGlobalBRBC signs the buyer/agent global representation agreement.
	// A buyer originates it (signed_by_buyer); the agent countersigns it to
	// completed. At most one completed BRBC exists per pair: a repeat
	// creation attempt returns *BRBCCompletedError carrying the existing
	// agreement's identity.
	SignGlobalBRBC(ctx context.Context, actor *models.User, counterpartyID uuid.UUID, signature string) (*SignResult, error)

	// CreateReferral records the agent-only referral agreement, completed at
	// creation. Idempotent: a repeat submission returns the existing record.
	CreateReferral(ctx context.Context, actor *models.User, signature string) (*SignResult, error)

	// OverrideStatus lets an admin set an agreement's status directly.
	OverrideStatus(ctx context.Context, actor *models.User, agreementID uuid.UUID, status models.AgreementStatus) (*models.Agreement, error)

	// Get returns an agreement visible to the actor.
	Get(ctx context.Context, actor *models.User, agreementID uuid.UUID) (*models.Agreement, error)

	// ListForActor returns the actor's agreements, newest first.
	ListForActor(ctx context.Context, actor *models.User) ([]models.Agreement, error)
}

// agreementService is the concrete implementation of AgreementService.
type agreementService struct {
	agreements repository.AgreementRepository
	properties repository.PropertyRepository
	viewings   repository.ViewingRepository
	renderer   external.Renderer
	blobs      external.BlobStore
	ledger     Recorder
	events     Broadcaster
	log        *logger.Logger
}

// NewAgreementService creates a new instance of AgreementService. renderer
// and blobs may be nil, in which case documents are not materialized.
func NewAgreementService(
	agreements repository.AgreementRepository,
	properties repository.PropertyRepository,
	viewings repository.ViewingRepository,
	renderer external.Renderer,
	blobs external.BlobStore,
	ledger Recorder,
	events Broadcaster,
	log *logger.Logger,
) AgreementService {
	return &agreementService{
		agreements: agreements,
		properties: properties,
		viewings:   viewings,
		renderer:   renderer,
		blobs:      blobs,
		ledger:     ledger,
		events:     events,
		log:        log,
	}
}

func (s *agreementService) SignDisclosure(ctx context.Context, actor *models.User, propertyID uuid.UUID, signature string, editedDocument []byte) (*SignResult, error) {
	if !authz.Allowed(authz.ActionSignDisclosure, actor.Role) {
		return nil, ErrForbidden
	}
	if signature == "" {
		return nil, fmt.Errorf("signature data is required: %w", ErrInvalidInput)
	}

	property, err := s.properties.GetByID(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load property: %w", err)
	}
	if property == nil {
		return nil, ErrNotFound
	}
	if property.AgentID == nil {
		return nil, fmt.Errorf("property %s has no assigned agent for the disclosure: %w", propertyID, ErrStateConflict)
	}

	agreement, err := s.agreements.FindCurrent(ctx, propertyID, models.AgreementAgencyDisclosure)
	if err != nil {
		return nil, fmt.Errorf("failed to load disclosure: %w", err)
	}
	created := false
	if agreement == nil {
		buyerID := property.CreatedBy
		agreement = &models.Agreement{
			ID:         uuid.New(),
			Type:       models.AgreementAgencyDisclosure,
			PropertyID: &propertyID,
			BuyerID:    &buyerID,
			AgentID:    *property.AgentID,
			Status:     models.AgreementDraft,
		}
		created = true
	}
	if agreement.Status == models.AgreementCompleted {
		return nil, fmt.Errorf("disclosure %s is already completed: %w", agreement.ID, ErrStateConflict)
	}

	// Only the party owning the signature slot may write it.
	switch actor.Role {
	case models.RoleBuyer:
		if agreement.BuyerID == nil || *agreement.BuyerID != actor.ID {
			return nil, ErrForbidden
		}
		agreement.BuyerSignature = &signature
		// A buyer signature always forces signed_by_buyer.
		agreement.Status = models.AgreementSignedByBuyer
	case models.RoleAgent:
		if agreement.AgentID != actor.ID {
			return nil, ErrForbidden
		}
		agreement.AgentSignature = &signature
		if agreement.HasBuyerSignature() {
			// Buyer already signed: the document awaits seller review, not
			// auto-completion.
			agreement.Status = models.AgreementPendingReview
		} else {
			agreement.Status = models.AgreementPendingBuyer
		}
	case models.RoleSeller:
		if property.SellerID == nil || *property.SellerID != actor.ID {
			return nil, ErrForbidden
		}
		agreement.SellerSignature = &signature
		agreement.Status = models.AgreementSignedBySeller
		if agreement.HasBuyerSignature() && agreement.HasAgentSignature() {
			pendingViewing, err := s.viewings.HasPending(ctx, propertyID)
			if err != nil {
				// Conservative: without a definitive answer, hold at
				// signed_by_seller rather than prematurely completing.
				s.log.Error("Failed to check pending viewings, holding completion", err, map[string]interface{}{
					"property_id": propertyID.String(),
				})
			} else if !pendingViewing {
				agreement.Status = models.AgreementCompleted
			}
		}
	default:
		return nil, ErrForbidden
	}

	if len(editedDocument) > 0 {
		agreement.EditedDocument = editedDocument
	}

	if created {
		err = s.agreements.Create(ctx, agreement)
	} else {
		err = s.agreements.Update(ctx, agreement)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to persist disclosure: %w", err)
	}

	s.log.Info("Disclosure signed", map[string]interface{}{
		"agreement_id": agreement.ID.String(),
		"property_id":  propertyID.String(),
		"role":         string(actor.Role),
		"status":       string(agreement.Status),
	})
	s.ledger.Record(propertyID, actor.ID, "disclosure_signed", map[string]interface{}{
		"agreement_id": agreement.ID.String(),
		"status":       string(agreement.Status),
	})
	s.notifyAgreement(property, agreement, "disclosure_signed")

	return &SignResult{Agreement: agreement, RenderErr: s.materialize(ctx, agreement)}, nil
}

func (s *agreementService) CreateStandard(ctx context.Context, actor *models.User, propertyID uuid.UUID) (*models.Agreement, error) {
	if !authz.Allowed(authz.ActionCreateStandard, actor.Role) {
		return nil, ErrForbidden
	}

	property, err := s.properties.GetByID(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load property: %w", err)
	}
	if property == nil {
		return nil, ErrNotFound
	}
	if actor.Role == models.RoleAgent && (property.AgentID == nil || *property.AgentID != actor.ID) {
		return nil, ErrForbidden
	}

	agentID := actor.ID
	if property.AgentID != nil {
		agentID = *property.AgentID
	}
	buyerID := property.CreatedBy
	agreement := &models.Agreement{
		ID:         uuid.New(),
		Type:       models.AgreementStandard,
		PropertyID: &propertyID,
		BuyerID:    &buyerID,
		AgentID:    agentID,
		Status:     models.AgreementPendingBuyer,
	}
	if err := s.agreements.Create(ctx, agreement); err != nil {
		return nil, fmt.Errorf("failed to create standard agreement: %w", err)
	}

	s.ledger.Record(propertyID, actor.ID, "agreement_created", map[string]interface{}{
		"agreement_id": agreement.ID.String(),
		"type":         string(agreement.Type),
	})
	s.notifyAgreement(property, agreement, "agreement_created")
	return agreement, nil
}

func (s *agreementService) SignStandard(ctx context.Context, actor *models.User, agreementID uuid.UUID, signature string) (*SignResult, error) {
	if signature == "" {
		return nil, fmt.Errorf("signature data is required: %w", ErrInvalidInput)
	}

	agreement, err := s.agreements.GetByID(ctx, agreementID)
	if err != nil {
		return nil, fmt.Errorf("failed to load agreement: %w", err)
	}
	if agreement == nil || agreement.Type != models.AgreementStandard {
		return nil, ErrNotFound
	}
	if agreement.Status == models.AgreementCompleted {
		return nil, fmt.Errorf("agreement %s is already completed: %w", agreementID, ErrStateConflict)
	}

	switch actor.Role {
	case models.RoleBuyer:
		if agreement.BuyerID == nil || *agreement.BuyerID != actor.ID {
			return nil, ErrForbidden
		}
		agreement.BuyerSignature = &signature
		agreement.Status = models.AgreementSignedBuyer
	case models.RoleAgent, models.RoleAdmin:
		if actor.Role == models.RoleAgent && agreement.AgentID != actor.ID {
			return nil, ErrForbidden
		}
		// The countersignature completes the agreement only once the buyer
		// has signed.
		if agreement.Status != models.AgreementSignedBuyer {
			return nil, fmt.Errorf("agreement %s awaits the buyer signature: %w", agreementID, ErrStateConflict)
		}
		agreement.AgentSignature = &signature
		agreement.Status = models.AgreementCompleted
	default:
		return nil, ErrForbidden
	}

	if err := s.agreements.Update(ctx, agreement); err != nil {
		return nil, fmt.Errorf("failed to persist agreement: %w", err)
	}

	s.recordAgreement(ctx, actor, agreement, "agreement_signed")
	return &SignResult{Agreement: agreement, RenderErr: s.materialize(ctx, agreement)}, nil
}

func (s *agreementService) SignGlobalBRBC(ctx context.Context, actor *models.User, counterpartyID uuid.UUID, signature string) (*SignResult, error) {
	if !authz.Allowed(authz.ActionSignBRBC, actor.Role) {
		return nil, ErrForbidden
	}
	if signature == "" {
		return nil, fmt.Errorf("signature data is required: %w", ErrInvalidInput)
	}

	switch actor.Role {
	case models.RoleBuyer:
		return s.buyerSignBRBC(ctx, actor, counterpartyID, signature)
	case models.RoleAgent:
		return s.agentCountersignBRBC(ctx, actor, counterpartyID, signature)
	default:
		return nil, ErrForbidden
	}
}

// buyerSignBRBC creates or signs the buyer's global representation
// agreement with the given agent.
func (s *agreementService) buyerSignBRBC(ctx context.Context, actor *models.User, agentID uuid.UUID, signature string) (*SignResult, error) {
	existing, err := s.agreements.FindGlobalBRBC(ctx, actor.ID, agentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load representation agreement: %w", err)
	}
	if existing != nil && existing.Status == models.AgreementCompleted {
		// Uniqueness invariant: one completed BRBC per pair. Hand back the
		// existing identity instead of creating a duplicate.
		return nil, &BRBCCompletedError{AgreementID: existing.ID}
	}

	agreement := existing
	if agreement == nil {
		buyerID := actor.ID
		agreement = &models.Agreement{
			ID:      uuid.New(),
			Type:    models.AgreementGlobalBRBC,
			BuyerID: &buyerID,
			AgentID: agentID,
			Status:  models.AgreementSignedByBuyer,
		}
		agreement.BuyerSignature = &signature
		if err := s.agreements.Create(ctx, agreement); err != nil {
			return nil, fmt.Errorf("failed to create representation agreement: %w", err)
		}
	} else {
		agreement.BuyerSignature = &signature
		agreement.Status = models.AgreementSignedByBuyer
		if err := s.agreements.Update(ctx, agreement); err != nil {
			return nil, fmt.Errorf("failed to persist representation agreement: %w", err)
		}
	}

	s.recordAgreement(ctx, actor, agreement, "brbc_signed")
	return &SignResult{Agreement: agreement, RenderErr: s.materialize(ctx, agreement)}, nil
}

// agentCountersignBRBC completes a buyer-signed BRBC.
func (s *agreementService) agentCountersignBRBC(ctx context.Context, actor *models.User, buyerID uuid.UUID, signature string) (*SignResult, error) {
	agentID := actor.ID
	agreement, err := s.agreements.FindGlobalBRBC(ctx, buyerID, agentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load representation agreement: %w", err)
	}
	if agreement == nil {
		return nil, ErrNotFound
	}
	if agreement.Status != models.AgreementSignedByBuyer {
		return nil, fmt.Errorf("representation agreement %s is %s: %w", agreement.ID, agreement.Status, ErrStateConflict)
	}

	agreement.AgentSignature = &signature
	agreement.Status = models.AgreementCompleted
	if err := s.agreements.Update(ctx, agreement); err != nil {
		return nil, fmt.Errorf("failed to persist representation agreement: %w", err)
	}

	s.recordAgreement(ctx, actor, agreement, "brbc_completed")
	return &SignResult{Agreement: agreement, RenderErr: s.materialize(ctx, agreement)}, nil
}

func (s *agreementService) CreateReferral(ctx context.Context, actor *models.User, signature string) (*SignResult, error) {
	if !authz.Allowed(authz.ActionCreateReferral, actor.Role) {
		return nil, ErrForbidden
	}
	if signature == "" {
		return nil, fmt.Errorf("signature data is required: %w", ErrInvalidInput)
	}

	existing, err := s.agreements.FindReferralByAgent(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load referral agreement: %w", err)
	}
	if existing != nil {
		// Idempotent: a repeat submission returns the existing record.
		return &SignResult{Agreement: existing}, nil
	}

	agreement := &models.Agreement{
		ID:             uuid.New(),
		Type:           models.AgreementAgentReferral,
		AgentID:        actor.ID,
		Status:         models.AgreementCompleted,
		AgentSignature: &signature,
	}
	if err := s.agreements.Create(ctx, agreement); err != nil {
		return nil, fmt.Errorf("failed to create referral agreement: %w", err)
	}

	s.recordAgreement(ctx, actor, agreement, "referral_signed")
	return &SignResult{Agreement: agreement, RenderErr: s.materialize(ctx, agreement)}, nil
}

func (s *agreementService) OverrideStatus(ctx context.Context, actor *models.User, agreementID uuid.UUID, status models.AgreementStatus) (*models.Agreement, error) {
	if actor.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}

	agreement, err := s.agreements.GetByID(ctx, agreementID)
	if err != nil {
		return nil, fmt.Errorf("failed to load agreement: %w", err)
	}
	if agreement == nil {
		return nil, ErrNotFound
	}

	agreement.Status = status
	if err := s.agreements.Update(ctx, agreement); err != nil {
		return nil, fmt.Errorf("failed to persist agreement: %w", err)
	}

	s.recordAgreement(ctx, actor, agreement, "agreement_status_overridden")
	return agreement, nil
}

func (s *agreementService) Get(ctx context.Context, actor *models.User, agreementID uuid.UUID) (*models.Agreement, error) {
	agreement, err := s.agreements.GetByID(ctx, agreementID)
	if err != nil {
		return nil, fmt.Errorf("failed to load agreement: %w", err)
	}
	if agreement == nil {
		return nil, ErrNotFound
	}

	ownership := authz.Ownership{models.RoleAgent: agreement.AgentID}
	if agreement.BuyerID != nil {
		ownership[models.RoleBuyer] = *agreement.BuyerID
	}
	if !authz.CanAccess(actor.Role, actor.ID, ownership) && !s.isSellerParty(ctx, actor, agreement) {
		return nil, ErrForbidden
	}
	return agreement, nil
}

func (s *agreementService) ListForActor(ctx context.Context, actor *models.User) ([]models.Agreement, error) {
	agreements, err := s.agreements.ListByActor(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list agreements: %w", err)
	}
	return agreements, nil
}

// isSellerParty reports whether the actor is the seller on the agreement's
// property.
func (s *agreementService) isSellerParty(ctx context.Context, actor *models.User, agreement *models.Agreement) bool {
	if actor.Role != models.RoleSeller || agreement.PropertyID == nil {
		return false
	}
	property, err := s.properties.GetByID(ctx, *agreement.PropertyID)
	if err != nil || property == nil {
		return false
	}
	return property.SellerID != nil && *property.SellerID == actor.ID
}

// recordAgreement writes the ledger entry and fans out notifications for a
// property-scoped agreement change. Agent-level agreements (no property)
// notify the direct parties only.
func (s *agreementService) recordAgreement(ctx context.Context, actor *models.User, agreement *models.Agreement, action string) {
	if agreement.PropertyID != nil {
		s.ledger.Record(*agreement.PropertyID, actor.ID, action, map[string]interface{}{
			"agreement_id": agreement.ID.String(),
			"type":         string(agreement.Type),
			"status":       string(agreement.Status),
		})
		if property, err := s.properties.GetByID(ctx, *agreement.PropertyID); err == nil && property != nil {
			s.notifyAgreement(property, agreement, action)
			return
		}
	}

	recipients := []uuid.UUID{agreement.AgentID}
	if agreement.BuyerID != nil {
		recipients = append(recipients, *agreement.BuyerID)
	}
	s.events.Broadcast(models.Event{
		Recipients: recipients,
		Kind:       models.EventNotification,
		Payload: models.EventPayload{
			AgreementID: &agreement.ID,
			Action:      action,
			Message:     "An agreement was updated",
		},
	})
}

// notifyAgreement broadcasts an agreement change to all transaction parties.
func (s *agreementService) notifyAgreement(property *models.Property, agreement *models.Agreement, action string) {
	recipients := []uuid.UUID{property.CreatedBy, agreement.AgentID}
	if agreement.BuyerID != nil {
		recipients = append(recipients, *agreement.BuyerID)
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
			PropertyID:  agreement.PropertyID,
			AgreementID: &agreement.ID,
			Action:      action,
			Message:     "An agreement was updated",
		},
	})
}

// materialize renders the agreement's current field and signature state
// into durable bytes. Failures are returned, not raised: the signature is
// already committed and must not be lost.
func (s *agreementService) materialize(ctx context.Context, agreement *models.Agreement) error {
	if s.renderer == nil || s.blobs == nil {
		return nil
	}

	fields := map[string]string{
		"agreement_id": agreement.ID.String(),
		"status":       string(agreement.Status),
		"agent_id":     agreement.AgentID.String(),
	}
	if agreement.BuyerID != nil {
		fields["buyer_id"] = agreement.BuyerID.String()
	}
	if agreement.PropertyID != nil {
		fields["property_id"] = agreement.PropertyID.String()
	}

	document, err := s.renderer.Fill(ctx, agreement.Type, fields, agreement.EditedDocument)
	if err != nil {
		return fmt.Errorf("failed to render agreement %s: %w", agreement.ID, ErrExternalService)
	}

	slots := []struct {
		name      string
		signature *string
	}{
		{"buyer", agreement.BuyerSignature},
		{"agent", agreement.AgentSignature},
		{"seller", agreement.SellerSignature},
	}
	for _, slot := range slots {
		if slot.signature == nil {
			continue
		}
		document, err = s.renderer.OverlaySignature(ctx, document, []byte(*slot.signature), slot.name)
		if err != nil {
			return fmt.Errorf("failed to overlay %s signature on agreement %s: %w", slot.name, agreement.ID, ErrExternalService)
		}
	}

	ref, err := s.blobs.Save(ctx, document)
	if err != nil {
		return fmt.Errorf("failed to store rendered agreement %s: %w", agreement.ID, ErrExternalService)
	}

	agreement.DocumentRef = &ref
	if err := s.agreements.Update(ctx, agreement); err != nil {
		return fmt.Errorf("failed to save document reference for agreement %s: %w", agreement.ID, err)
	}

	s.log.Info("Agreement materialized", map[string]interface{}{
		"agreement_id": agreement.ID.String(),
		"document_ref": ref,
	})
	return nil
}
