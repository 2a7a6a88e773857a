package services

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/haventeam/haven/internal/model"
	"github.com/haventeam/haven/internal/store/storetest"
)

var (
	owner  = model.Principal{ID: "alice", DisplayName: "Alice"}
	member = model.Principal{ID: "bob", DisplayName: "Bob"}
)

func newTeamService(t *testing.T) (*TeamService, *storetest.MemStore) {
	t.Helper()
	st := storetest.NewMemStore()
	return NewTeamService(st, zerolog.Nop()), st
}

func createTeamWithMember(t *testing.T, svc *TeamService) *model.Team {
	t.Helper()
	team, err := svc.Create(context.Background(), owner, "Platform")
	require.NoError(t, err)

	members := []model.TeamMember{{UserID: "bob", Role: model.TeamRoleMember}}
	team, err = svc.Update(context.Background(), owner, team.TeamID, &TeamPatch{Members: &members})
	require.NoError(t, err)
	return team
}

func TestCreateRequiresName(t *testing.T) {
	svc, _ := newTeamService(t)
	_, err := svc.Create(context.Background(), owner, "")
	require.ErrorIs(t, err, model.ErrValidation)
}

func TestGetHiddenFromOutsiders(t *testing.T) {
	svc, _ := newTeamService(t)
	team := createTeamWithMember(t, svc)

	_, err := svc.Get(context.Background(), model.Principal{ID: "mallory"}, team.TeamID)
	require.ErrorIs(t, err, model.ErrNotFound)

	got, err := svc.Get(context.Background(), member, team.TeamID)
	require.NoError(t, err)
	require.Equal(t, team.TeamID, got.TeamID)
}

func TestInviteEmitsEvent(t *testing.T) {
	svc, st := newTeamService(t)
	team := createTeamWithMember(t, svc)
	st.Outbox = nil

	invited := []string{"carol"}
	_, err := svc.Update(context.Background(), owner, team.TeamID, &TeamPatch{InvitedMembers: &invited})
	require.NoError(t, err)

	require.Len(t, st.Outbox, 1)
	require.Equal(t, model.EventTeamInvite, st.Outbox[0].Type)
	require.Equal(t, []string{"carol"}, st.Outbox[0].Recipients)
}

func TestMemberCannotRewriteRoster(t *testing.T) {
	svc, _ := newTeamService(t)
	team := createTeamWithMember(t, svc)

	grab := []model.TeamMember{{UserID: "bob", Role: model.TeamRoleAdmin}}
	_, err := svc.Update(context.Background(), member, team.TeamID, &TeamPatch{Members: &grab})
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestSelfLeaveAllowedAndNotifiesOwner(t *testing.T) {
	svc, st := newTeamService(t)
	team := createTeamWithMember(t, svc)
	st.Outbox = nil

	empty := []model.TeamMember{}
	updated, err := svc.Update(context.Background(), member, team.TeamID, &TeamPatch{Members: &empty})
	require.NoError(t, err)
	require.Empty(t, updated.Members)

	require.Len(t, st.Outbox, 1)
	require.Equal(t, model.EventTeamLeave, st.Outbox[0].Type)
	require.Equal(t, []string{"alice"}, st.Outbox[0].Recipients)
}

func TestAdminMayRewriteRoster(t *testing.T) {
	svc, _ := newTeamService(t)
	team := createTeamWithMember(t, svc)

	promoted := []model.TeamMember{{UserID: "bob", Role: model.TeamRoleAdmin}}
	_, err := svc.Update(context.Background(), owner, team.TeamID, &TeamPatch{Members: &promoted})
	require.NoError(t, err)

	extended := []model.TeamMember{
		{UserID: "bob", Role: model.TeamRoleAdmin},
		{UserID: "carol", Role: model.TeamRoleMember},
	}
	_, err = svc.Update(context.Background(), member, team.TeamID, &TeamPatch{Members: &extended})
	require.NoError(t, err, "admins manage the roster")
}

func TestUpdateStaleVersionConflicts(t *testing.T) {
	svc, _ := newTeamService(t)
	team := createTeamWithMember(t, svc)

	name := "Platform Eng"
	_, err := svc.Update(context.Background(), owner, team.TeamID, &TeamPatch{Name: &name})
	require.NoError(t, err)

	stale := team.Version
	name2 := "Core Platform"
	_, err = svc.Update(context.Background(), owner, team.TeamID, &TeamPatch{BaseVersion: &stale, Name: &name2})
	require.ErrorIs(t, err, model.ErrConflict)
}

func TestDeleteOwnerOnly(t *testing.T) {
	svc, _ := newTeamService(t)
	team := createTeamWithMember(t, svc)

	require.ErrorIs(t, svc.Delete(context.Background(), member, team.TeamID), model.ErrNotFound)
	require.NoError(t, svc.Delete(context.Background(), owner, team.TeamID))
}
