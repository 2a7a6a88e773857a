package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/haventeam/haven/internal/classify"
	"github.com/haventeam/haven/internal/model"
	"github.com/haventeam/haven/internal/store"
)

// TeamService manages teams and their membership. Owner and admin members may
// change the roster; any member may remove themselves. Denials surface as
// ErrNotFound so outsiders cannot probe which teams exist.
type TeamService struct {
	store store.Store
	log   zerolog.Logger
}

func NewTeamService(s store.Store, log zerolog.Logger) *TeamService {
	return &TeamService{store: s, log: log}
}

// TeamPatch is a partial update to a team.
type TeamPatch struct {
	BaseVersion *int64 `json:"baseVersion,omitempty"`

	Name           *string             `json:"name,omitempty"`
	Members        *[]model.TeamMember `json:"members,omitempty"`
	InvitedMembers *[]string           `json:"invitedMembers,omitempty"`
}

func (s *TeamService) Create(ctx context.Context, actor model.Principal, name string) (*model.Team, error) {
	if name == "" {
		return nil, fmt.Errorf("name is required: %w", model.ErrValidation)
	}
	t := &model.Team{
		TeamID:  uuid.New().String(),
		Name:    name,
		OwnerID: actor.ID,
	}
	created, err := s.store.Teams().Create(ctx, t)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("team_id", created.TeamID).Str("owner", actor.ID).Msg("team created")
	return created, nil
}

// Get returns the team when the actor belongs to it, ErrNotFound otherwise.
func (s *TeamService) Get(ctx context.Context, actor model.Principal, teamID string) (*model.Team, error) {
	t, err := s.store.Teams().Get(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if !canView(t, actor.ID) {
		return nil, model.ErrNotFound
	}
	return t, nil
}

func (s *TeamService) List(ctx context.Context, actor model.Principal) ([]*model.Team, error) {
	return s.store.Teams().ListByUser(ctx, actor.ID)
}

// Update applies the patch and persists the team together with the membership
// events it implies (invites, a member leaving). Roster changes need the
// owner or an admin member; the one exception is a member removing only
// themselves, which any member may do.
func (s *TeamService) Update(ctx context.Context, actor model.Principal, teamID string, p *TeamPatch) (*model.Team, error) {
	before, err := s.store.Teams().Get(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if !canView(before, actor.ID) {
		return nil, model.ErrNotFound
	}

	after := *before
	after.Members = append([]model.TeamMember(nil), before.Members...)
	after.InvitedMembers = append([]string(nil), before.InvitedMembers...)
	if p.Name != nil {
		after.Name = *p.Name
	}
	if p.Members != nil {
		after.Members = *p.Members
	}
	if p.InvitedMembers != nil {
		after.InvitedMembers = *p.InvitedMembers
	}

	if !canAdminister(before, actor.ID) && !isSelfLeave(before, &after, actor.ID, p) {
		return nil, model.ErrNotFound
	}

	events := classify.TeamChanges(before, &after, actor)
	baseVersion := before.Version
	if p.BaseVersion != nil {
		baseVersion = *p.BaseVersion
	}
	updated, err := s.store.Teams().Update(ctx, &after, baseVersion, events)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("team_id", teamID).Str("actor", actor.ID).
		Int64("version", updated.Version).Int("events", len(events)).Msg("team updated")
	return updated, nil
}

// Delete removes the team. Owner only.
func (s *TeamService) Delete(ctx context.Context, actor model.Principal, teamID string) error {
	t, err := s.store.Teams().Get(ctx, teamID)
	if err != nil {
		return err
	}
	if !canView(t, actor.ID) {
		return model.ErrNotFound
	}
	if t.OwnerID != actor.ID {
		return model.ErrNotFound
	}
	if err := s.store.Teams().Delete(ctx, teamID); err != nil {
		return err
	}
	s.log.Info().Str("team_id", teamID).Str("actor", actor.ID).Msg("team deleted")
	return nil
}

func canView(t *model.Team, userID string) bool {
	if t.OwnerID == userID {
		return true
	}
	for _, m := range t.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

func canAdminister(t *model.Team, userID string) bool {
	if t.OwnerID == userID {
		return true
	}
	for _, m := range t.Members {
		if m.UserID == userID && m.Role == model.TeamRoleAdmin {
			return true
		}
	}
	return false
}

// isSelfLeave reports whether the patch does nothing except drop the actor
// from the member roster.
func isSelfLeave(before, after *model.Team, actorID string, p *TeamPatch) bool {
	if p.Name != nil || p.InvitedMembers != nil || p.Members == nil {
		return false
	}
	if !memberOf(before.Members, actorID) || memberOf(after.Members, actorID) {
		return false
	}
	// Nobody else may be touched.
	if len(after.Members) != len(before.Members)-1 {
		return false
	}
	kept := map[string]string{}
	for _, m := range after.Members {
		kept[m.UserID] = m.Role
	}
	for _, m := range before.Members {
		if m.UserID == actorID {
			continue
		}
		if role, ok := kept[m.UserID]; !ok || role != m.Role {
			return false
		}
	}
	return true
}

func memberOf(members []model.TeamMember, userID string) bool {
	for _, m := range members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}
