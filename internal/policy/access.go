// Package policy decides whether an actor may perform an action on a resource.
// Roles, resources and rules are fixed; anything not allowed below is denied.
package policy

import (
	"review-catalog/internal/data/entity"

	"github.com/google/uuid"
)

type Resource string

const (
	ResourceCategory Resource = "category"
	ResourceGenre    Resource = "genre"
	ResourceTitle    Resource = "title"
	ResourceReview   Resource = "review"
	ResourceComment  Resource = "comment"
	ResourceUser     Resource = "user"
)

type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

type Decision bool

const (
	Allow Decision = true
	Deny  Decision = false
)

// Actor is the caller as resolved from its bearer token. The zero value is anonymous.
type Actor struct {
	ID   uuid.UUID
	Role entity.Role
}

func Anonymous() Actor {
	return Actor{Role: entity.RoleAnonymous}
}

func (a Actor) IsAnonymous() bool {
	return a.Role == entity.RoleAnonymous || a.Role == "" || a.ID == uuid.Nil
}

// Owns reports whether owner refers to the actor. A nil owner is never owned.
func (a Actor) Owns(owner *uuid.UUID) bool {
	return owner != nil && !a.IsAnonymous() && *owner == a.ID
}

func (r Resource) isCatalog() bool {
	return r == ResourceCategory || r == ResourceGenre || r == ResourceTitle
}

func (r Resource) isDiscussion() bool {
	return r == ResourceReview || r == ResourceComment
}

// Decide evaluates the role rules in precedence order. owner is the author of
// a review/comment or the id of a user record; nil when the action has no
// existing target (create, list).
func Decide(actor Actor, resource Resource, action Action, owner *uuid.UUID) Decision {
	role := actor.Role
	if actor.IsAnonymous() {
		role = entity.RoleAnonymous
	}

	switch role {
	case entity.RoleAdmin:
		return Allow

	case entity.RoleModerator:
		switch {
		case resource.isDiscussion():
			return Allow
		case resource.isCatalog():
			return Decision(action == ActionRead)
		case resource == ResourceUser:
			return Decision(isSelfService(action) && actor.Owns(owner))
		}
		return Deny

	case entity.RoleUser:
		switch {
		case resource.isDiscussion():
			switch action {
			case ActionRead, ActionCreate:
				return Allow
			case ActionUpdate, ActionDelete:
				return Decision(actor.Owns(owner))
			}
			return Deny
		case resource.isCatalog():
			return Decision(action == ActionRead)
		case resource == ResourceUser:
			return Decision(isSelfService(action) && actor.Owns(owner))
		}
		return Deny

	case entity.RoleAnonymous:
		return Decision(action == ActionRead && (resource.isCatalog() || resource.isDiscussion()))
	}

	return Deny
}

func isSelfService(action Action) bool {
	return action == ActionRead || action == ActionUpdate
}

// CanChangeRole reports whether the actor may set the role of a user record.
// Other actors have a submitted role dropped rather than rejected.
func CanChangeRole(actor Actor) bool {
	return !actor.IsAnonymous() && actor.Role.IsAdmin()
}
