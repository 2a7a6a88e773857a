package policy

import (
	"context"

	"github.com/haventeam/haven/internal/model"
)

// MembershipIndex is the slice of the team index the resolver consults for
// the team grant rule.
type MembershipIndex interface {
	IsMember(ctx context.Context, principalID, teamID string) (bool, error)
}

// Decision is the outcome of a policy resolution. Grants carries the full
// union of granted actions so callers can make follow-up checks without
// re-resolving.
type Decision struct {
	Allowed bool
	Grants  ActionSet
}

// Resolver computes decisions for (principal, item, action) triples.
type Resolver struct {
	index MembershipIndex
}

func NewResolver(index MembershipIndex) *Resolver {
	return &Resolver{index: index}
}

// Resolve evaluates every applicable grant rule and unions the results; the
// requested action is allowed when any rule grants it (superset wins, never
// first-match). Local rules are evaluated before the team rule so a store
// outage cannot block owners and collaborators; when the team lookup is
// needed and fails, the error propagates and callers must deny.
func (r *Resolver) Resolve(ctx context.Context, principal model.Principal, it *model.Item, action Action) (Decision, error) {
	grants := r.localGrants(principal, it)
	if grants.Allows(action) {
		return Decision{Allowed: true, Grants: grants}, nil
	}

	if it.TeamID != nil {
		ok, err := r.index.IsMember(ctx, principal.ID, *it.TeamID)
		if err != nil {
			return Decision{}, err
		}
		if ok {
			grants |= setRead
			if RulesFor(it.Kind).TeamWrite {
				grants |= setWrite | setComment
			}
		}
	}

	return Decision{Allowed: grants.Allows(action), Grants: grants}, nil
}

// localGrants unions the rules that need no I/O: owner, collaborator, share
// and public visibility.
func (r *Resolver) localGrants(principal model.Principal, it *model.Item) ActionSet {
	rules := RulesFor(it.Kind)
	var grants ActionSet

	if it.CreatedBy != "" && it.CreatedBy == principal.ID {
		grants |= ownerActions
	}
	for _, c := range it.Collaborators {
		if c.UserID != principal.ID {
			continue
		}
		if tier, ok := rules.Roles[c.Role]; ok {
			grants |= tier.Actions()
		}
	}
	for _, s := range it.SharedWith {
		if s.UserID != principal.ID {
			continue
		}
		if set, ok := rules.Permissions[s.Permission]; ok {
			grants |= set
		}
	}
	if it.Visibility == model.VisibilityPublic {
		grants |= setRead
	}
	return grants
}
