// Package authz centralizes the permission checks that gate every mutating
// workflow action. The gate is a pure predicate over resource ownership; it
// never returns an error, and callers translate a denial into a forbidden
// outcome.
package authz

import (
	"github.com/dwelora/api/internal/models"
	"github.com/google/uuid"
)

// Ownership names the parties that own a resource, keyed by the role under
// which they own it. A resource exposes only the roles that apply to it
// (e.g. a property has buyer, seller, and agent owners).
type Ownership map[models.Role]uuid.UUID

// CanAccess reports whether an actor may act on a resource with the given
// ownership. Admins are always allowed; otherwise the actor must be the
// owner registered for their own role.
func CanAccess(role models.Role, actorID uuid.UUID, ownership Ownership) bool {
	if role == models.RoleAdmin {
		return true
	}
	owner, ok := ownership[role]
	return ok && owner == actorID
}

// Action names a workflow operation for capability checks.
type Action string

const (
	ActionCreateProperty  Action = "property.create"
	ActionUpdateProperty  Action = "property.update"
	ActionReassignAgent   Action = "property.reassign_agent"
	ActionDeleteProperty  Action = "property.delete"
	ActionClaimLead       Action = "lead.claim"
	ActionRequestViewing  Action = "viewing.request"
	ActionDecideViewing   Action = "viewing.decide"
	ActionApproveViewing  Action = "viewing.approve"
	ActionCancelViewing   Action = "viewing.cancel"
	ActionSignDisclosure  Action = "agreement.sign_disclosure"
	ActionCreateStandard  Action = "agreement.create_standard"
	ActionSignBRBC        Action = "agreement.sign_brbc"
	ActionCreateReferral  Action = "agreement.create_referral"
)

// capabilities declares which roles may attempt each action. Ownership is
// still checked separately; this table only rules out roles that can never
// perform the action.
var capabilities = map[Action][]models.Role{
	ActionCreateProperty: {models.RoleBuyer, models.RoleAdmin},
	ActionUpdateProperty: {models.RoleBuyer, models.RoleSeller, models.RoleAgent, models.RoleAdmin},
	ActionReassignAgent:  {models.RoleBuyer, models.RoleAdmin},
	ActionDeleteProperty: {models.RoleBuyer, models.RoleAdmin},
	ActionClaimLead:      {models.RoleAgent},
	ActionRequestViewing: {models.RoleBuyer},
	ActionDecideViewing:  {models.RoleSeller, models.RoleAgent, models.RoleAdmin},
	ActionApproveViewing: {models.RoleAgent, models.RoleAdmin},
	ActionCancelViewing:  {models.RoleBuyer, models.RoleAdmin},
	ActionSignDisclosure: {models.RoleBuyer, models.RoleSeller, models.RoleAgent, models.RoleAdmin},
	ActionCreateStandard: {models.RoleAgent, models.RoleAdmin},
	// Representation signatures are personal: the buyer signs, the named
	// agent countersigns. An admin has no signature slot of their own.
	ActionSignBRBC:       {models.RoleBuyer, models.RoleAgent},
	ActionCreateReferral: {models.RoleAgent},
}

// Allowed reports whether a role may attempt the named action at all.
func Allowed(action Action, role models.Role) bool {
	for _, r := range capabilities[action] {
		if r == role {
			return true
		}
	}
	return false
}
