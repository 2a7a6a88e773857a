// Package teams resolves user-to-team relationships used by the access
// policy's team scoping rule.
package teams

import (
	"context"
	"errors"
	"fmt"

	"github.com/haventeam/haven/internal/model"
	"github.com/haventeam/haven/internal/store"
)

// Index answers membership questions against the team store. It holds no
// cache; repeated calls within one policy resolution are idempotent and
// side-effect-free. Store failures surface as ErrUnavailable so callers deny
// by default instead of granting on partial information.
type Index struct {
	teams store.Teams
}

func NewIndex(teams store.Teams) *Index {
	return &Index{teams: teams}
}

// IsMember reports whether the principal belongs to the team, either as its
// owner or through an entry in the members list. A missing team is simply a
// non-membership, not an error.
func (ix *Index) IsMember(ctx context.Context, principalID, teamID string) (bool, error) {
	t, err := ix.teams.Get(ctx, teamID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("team lookup failed: %w: %w", model.ErrUnavailable, err)
	}
	if t.OwnerID == principalID {
		return true, nil
	}
	for _, m := range t.Members {
		if m.UserID == principalID {
			return true, nil
		}
	}
	return false, nil
}

// TeamsOf returns the ids of every team the principal owns or is a member of.
func (ix *Index) TeamsOf(ctx context.Context, principalID string) ([]string, error) {
	ts, err := ix.teams.ListByUser(ctx, principalID)
	if err != nil {
		return nil, fmt.Errorf("team listing failed: %w: %w", model.ErrUnavailable, err)
	}
	ids := make([]string, 0, len(ts))
	for _, t := range ts {
		ids = append(ids, t.TeamID)
	}
	return ids, nil
}
