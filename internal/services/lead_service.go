package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/dwelora/api/internal/authz"
	"github.com/dwelora/api/internal/logger"
	"github.com/dwelora/api/internal/models"
	"github.com/dwelora/api/internal/repository"
	"github.com/google/uuid"
)

// Maximum number of lead candidates seeded per property.
const maxLeadCandidates = 3

// LeadService matches properties to candidate agents and resolves claim
// races for available leads.
type LeadService interface {
	// MatchAgents returns up to three candidate agents for a property.
	// Verified, non-blocked agents only; agents in the property's state are
	// preferred. Returns an empty slice when no agent exists; callers must
	// tolerate "no agent available" without failing.
	MatchAgents(ctx context.Context, property *models.Property) ([]models.User, error)

	// SeedLeads matches agents and creates leads for a property that has no
	// assigned agent. The first candidate is claimed and becomes the
	// property's agent immediately; the rest stay available as backups.
	// A no-op when the property already has an agent.
	SeedLeads(ctx context.Context, property *models.Property) error

	// ClaimLead lets an agent claim an available lead. Exactly one of any
	// set of concurrent claims on the same lead succeeds; the rest get
	// ErrStateConflict. On success the property's agent is set if not
	// already equal.
	ClaimLead(ctx context.Context, actor *models.User, leadID uuid.UUID) (*models.AgentLead, error)

	// ListLeadsForAgent returns the leads offered to an agent.
	ListLeadsForAgent(ctx context.Context, actor *models.User, agentID uuid.UUID) ([]models.AgentLead, error)

	// ReseedUnassigned re-runs matching for every property with no assigned
	// agent. Returns the number of properties that received leads.
	ReseedUnassigned(ctx context.Context) (int, error)
}

// leadService is the concrete implementation of LeadService.
type leadService struct {
	leads      repository.LeadRepository
	properties repository.PropertyRepository
	users      repository.UserRepository
	ranker     AgentRanker
	ledger     Recorder
	events     Broadcaster
	log        *logger.Logger
}

// NewLeadService creates a new instance of LeadService. ranker may be nil,
// in which case candidates keep their matching order.
func NewLeadService(
	leads repository.LeadRepository,
	properties repository.PropertyRepository,
	users repository.UserRepository,
	ranker AgentRanker,
	ledger Recorder,
	events Broadcaster,
	log *logger.Logger,
) LeadService {
	return &leadService{
		leads:      leads,
		properties: properties,
		users:      users,
		ranker:     ranker,
		ledger:     ledger,
		events:     events,
		log:        log,
	}
}

func (s *leadService) MatchAgents(ctx context.Context, property *models.Property) ([]models.User, error) {
	agents, err := s.users.ListVerifiedAgents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidate agents: %w", err)
	}
	if len(agents) == 0 {
		return []models.User{}, nil
	}

	// Same-state agents first, case-insensitive.
	var sameState, others []models.User
	for _, agent := range agents {
		if agent.State != nil && strings.EqualFold(*agent.State, property.State) {
			sameState = append(sameState, agent)
		} else {
			others = append(others, agent)
		}
	}

	// The expertise re-ranker is best-effort and must never block
	// allocation: on failure the matching order stands.
	if len(sameState) >= maxLeadCandidates && s.ranker != nil {
		ranked, err := s.ranker.Rank(ctx, property, sameState)
		if err != nil {
			s.log.Warn("Agent re-ranking failed, keeping match order", map[string]interface{}{
				"property_id": property.ID.String(),
				"error":       err.Error(),
			})
		} else if len(ranked) == len(sameState) {
			sameState = ranked
		}
	}

	candidates := append(sameState, others...)
	if len(candidates) > maxLeadCandidates {
		candidates = candidates[:maxLeadCandidates]
	}
	return candidates, nil
}

func (s *leadService) SeedLeads(ctx context.Context, property *models.Property) error {
	// An agent, once assigned, is never silently overwritten by the
	// allocator. Reassignment is an explicit buyer or admin action.
	if property.AgentID != nil {
		return nil
	}

	candidates, err := s.MatchAgents(ctx, property)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		s.log.Info("No agent available for property", map[string]interface{}{
			"property_id": property.ID.String(),
		})
		return nil
	}

	leads := make([]models.AgentLead, 0, len(candidates))
	for i, candidate := range candidates {
		status := models.LeadAvailable
		if i == 0 {
			// The first candidate is assigned immediately so every property
			// gets an agent as soon as one exists.
			status = models.LeadClaimed
		}
		leads = append(leads, models.AgentLead{
			ID:         uuid.New(),
			PropertyID: property.ID,
			AgentID:    candidate.ID,
			Status:     status,
			Rank:       i,
		})
	}

	if err := s.leads.CreateBatch(ctx, leads); err != nil {
		return fmt.Errorf("failed to seed leads for property %s: %w", property.ID, err)
	}

	assigned := candidates[0].ID
	if err := s.properties.SetAgent(ctx, property.ID, assigned); err != nil {
		return fmt.Errorf("failed to assign agent %s to property %s: %w", assigned, property.ID, err)
	}
	property.AgentID = &assigned

	s.log.Info("Leads seeded", map[string]interface{}{
		"property_id": property.ID.String(),
		"agent_id":    assigned.String(),
		"candidates":  len(candidates),
	})

	s.ledger.Record(property.ID, assigned, "agent_assigned", map[string]interface{}{
		"agent_id":   assigned.String(),
		"candidates": len(candidates),
	})
	s.events.Broadcast(models.Event{
		Recipients: []uuid.UUID{property.CreatedBy, assigned},
		Kind:       models.EventPropertyUpdate,
		Payload: models.EventPayload{
			PropertyID: &property.ID,
			Action:     "agent_assigned",
			Message:    "An agent has been assigned to your property",
		},
	})
	return nil
}

func (s *leadService) ClaimLead(ctx context.Context, actor *models.User, leadID uuid.UUID) (*models.AgentLead, error) {
	if !authz.Allowed(authz.ActionClaimLead, actor.Role) {
		return nil, ErrForbidden
	}

	lead, err := s.leads.GetByID(ctx, leadID)
	if err != nil {
		return nil, fmt.Errorf("failed to load lead: %w", err)
	}
	if lead == nil {
		return nil, ErrNotFound
	}

	// A claim on a foreign or already-claimed lead is a conflict, never a
	// silent success. The repository CAS is authoritative; this check only
	// produces a cheaper answer for the common case.
	if lead.AgentID != actor.ID || lead.Status != models.LeadAvailable {
		return nil, fmt.Errorf("lead %s is not claimable by agent %s: %w", leadID, actor.ID, ErrStateConflict)
	}

	claimed, err := s.leads.Claim(ctx, leadID, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to claim lead: %w", err)
	}
	if !claimed {
		// Lost the race.
		return nil, fmt.Errorf("lead %s was claimed concurrently: %w", leadID, ErrStateConflict)
	}

	property, err := s.properties.GetByID(ctx, lead.PropertyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load property for claimed lead: %w", err)
	}
	if property != nil && (property.AgentID == nil || *property.AgentID != actor.ID) {
		if err := s.properties.SetAgent(ctx, lead.PropertyID, actor.ID); err != nil {
			return nil, fmt.Errorf("failed to assign agent after claim: %w", err)
		}
	}

	lead.Status = models.LeadClaimed

	s.log.Info("Lead claimed", map[string]interface{}{
		"lead_id":     leadID.String(),
		"property_id": lead.PropertyID.String(),
		"agent_id":    actor.ID.String(),
	})

	s.ledger.Record(lead.PropertyID, actor.ID, "lead_claimed", map[string]interface{}{
		"lead_id": leadID.String(),
	})
	recipients := []uuid.UUID{actor.ID}
	if property != nil {
		recipients = append(recipients, property.CreatedBy)
	}
	s.events.Broadcast(models.Event{
		Recipients: recipients,
		Kind:       models.EventPropertyUpdate,
		Payload: models.EventPayload{
			PropertyID: &lead.PropertyID,
			Action:     "lead_claimed",
			Message:    "An agent has claimed the lead for your property",
		},
	})
	return lead, nil
}

func (s *leadService) ListLeadsForAgent(ctx context.Context, actor *models.User, agentID uuid.UUID) ([]models.AgentLead, error) {
	if actor.Role != models.RoleAdmin && actor.ID != agentID {
		return nil, ErrForbidden
	}

	leads, err := s.leads.ListByAgent(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	return leads, nil
}

func (s *leadService) ReseedUnassigned(ctx context.Context) (int, error) {
	properties, err := s.properties.ListUnassigned(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list unassigned properties: %w", err)
	}

	seeded := 0
	for i := range properties {
		property := properties[i]
		if err := s.SeedLeads(ctx, &property); err != nil {
			// One failing property must not starve the rest.
			s.log.Error("Failed to reseed leads", err, map[string]interface{}{
				"property_id": property.ID.String(),
			})
			continue
		}
		if property.AgentID != nil {
			seeded++
		}
	}
	return seeded, nil
}
