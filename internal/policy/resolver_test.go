package policy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/haventeam/haven/internal/model"
)

type stubIndex struct {
	members map[string]map[string]bool // teamID -> userID -> member
	err     error
	calls   int
}

func (s *stubIndex) IsMember(_ context.Context, principalID, teamID string) (bool, error) {
	s.calls++
	if s.err != nil {
		return false, s.err
	}
	return s.members[teamID][principalID], nil
}

func item(kind model.Kind, owner string, mut ...func(*model.Item)) *model.Item {
	it := &model.Item{
		ItemID:     "item-1",
		Kind:       kind,
		CreatedBy:  owner,
		Visibility: model.VisibilityPrivate,
	}
	for _, m := range mut {
		m(it)
	}
	return it
}

func TestResolveOwnerGetsEverything(t *testing.T) {
	r := NewResolver(&stubIndex{})
	alice := model.Principal{ID: "alice"}
	it := item(model.KindNote, "alice")

	for _, action := range []Action{ActionRead, ActionWrite, ActionComment, ActionDelete, ActionManage} {
		d, err := r.Resolve(context.Background(), alice, it, action)
		require.NoError(t, err)
		require.True(t, d.Allowed, "owner should hold %s", action)
	}
}

func TestResolveStrangerDenied(t *testing.T) {
	r := NewResolver(&stubIndex{})
	d, err := r.Resolve(context.Background(), model.Principal{ID: "mallory"}, item(model.KindNote, "alice"), ActionRead)
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Zero(t, d.Grants)
}

func TestResolveCollaboratorTiers(t *testing.T) {
	r := NewResolver(&stubIndex{})
	bob := model.Principal{ID: "bob"}

	cases := []struct {
		role      string
		canWrite  bool
		canDelete bool
		canManage bool
	}{
		{"viewer", false, false, false},
		{"editor", true, false, false},
		{"admin", true, true, false},
	}
	for _, tc := range cases {
		t.Run(tc.role, func(t *testing.T) {
			it := item(model.KindNote, "alice", func(i *model.Item) {
				i.Collaborators = []model.Collaborator{{UserID: "bob", Role: tc.role}}
			})
			read, err := r.Resolve(context.Background(), bob, it, ActionRead)
			require.NoError(t, err)
			require.True(t, read.Allowed)
			require.Equal(t, tc.canWrite, read.Grants.Allows(ActionWrite))
			require.Equal(t, tc.canDelete, read.Grants.Allows(ActionDelete))
			require.Equal(t, tc.canManage, read.Grants.Allows(ActionManage))
		})
	}
}

func TestResolveGoalRoleVocabulary(t *testing.T) {
	r := NewResolver(&stubIndex{})
	bob := model.Principal{ID: "bob"}
	it := item(model.KindGoal, "alice", func(i *model.Item) {
		i.Collaborators = []model.Collaborator{{UserID: "bob", Role: "contributor"}}
	})
	d, err := r.Resolve(context.Background(), bob, it, ActionWrite)
	require.NoError(t, err)
	require.True(t, d.Allowed)
	require.False(t, d.Grants.Allows(ActionDelete))

	// "editor" is not part of the goal vocabulary and grants nothing.
	it.Collaborators[0].Role = "editor"
	d, err = r.Resolve(context.Background(), bob, it, ActionRead)
	require.NoError(t, err)
	require.False(t, d.Allowed)
}

func TestResolveSharePermissions(t *testing.T) {
	r := NewResolver(&stubIndex{})
	carol := model.Principal{ID: "carol"}

	cases := []struct {
		perm       string
		canComment bool
		canWrite   bool
	}{
		{"read", false, false},
		{"comment", true, false},
		{"edit", true, true},
	}
	for _, tc := range cases {
		t.Run(tc.perm, func(t *testing.T) {
			it := item(model.KindGoal, "alice", func(i *model.Item) {
				i.SharedWith = []model.Share{{UserID: "carol", Permission: tc.perm}}
			})
			d, err := r.Resolve(context.Background(), carol, it, ActionRead)
			require.NoError(t, err)
			require.True(t, d.Allowed)
			require.Equal(t, tc.canComment, d.Grants.Allows(ActionComment))
			require.Equal(t, tc.canWrite, d.Grants.Allows(ActionWrite))
		})
	}
}

func TestResolveUnionOfGrants(t *testing.T) {
	// A read-only collaborator who also holds an edit share gets the union:
	// the stronger grant wins, not the first rule that matches.
	r := NewResolver(&stubIndex{})
	bob := model.Principal{ID: "bob"}
	it := item(model.KindNote, "alice", func(i *model.Item) {
		i.Collaborators = []model.Collaborator{{UserID: "bob", Role: "viewer"}}
		i.SharedWith = []model.Share{{UserID: "bob", Permission: "edit"}}
	})
	d, err := r.Resolve(context.Background(), bob, it, ActionWrite)
	require.NoError(t, err)
	require.True(t, d.Allowed)
}

func TestResolvePublicVisibilityReadOnly(t *testing.T) {
	r := NewResolver(&stubIndex{})
	anyone := model.Principal{ID: "anyone"}
	it := item(model.KindResource, "alice", func(i *model.Item) {
		i.Visibility = model.VisibilityPublic
	})

	read, err := r.Resolve(context.Background(), anyone, it, ActionRead)
	require.NoError(t, err)
	require.True(t, read.Allowed)

	write, err := r.Resolve(context.Background(), anyone, it, ActionWrite)
	require.NoError(t, err)
	require.False(t, write.Allowed)
}

func TestResolveTeamMembership(t *testing.T) {
	teamID := "team-1"
	idx := &stubIndex{members: map[string]map[string]bool{teamID: {"bob": true}}}
	r := NewResolver(idx)
	bob := model.Principal{ID: "bob"}

	note := item(model.KindNote, "alice", func(i *model.Item) { i.TeamID = &teamID })
	d, err := r.Resolve(context.Background(), bob, note, ActionRead)
	require.NoError(t, err)
	require.True(t, d.Allowed)
	require.False(t, d.Grants.Allows(ActionWrite), "team read does not extend to note writes")

	todo := item(model.KindTodo, "alice", func(i *model.Item) { i.TeamID = &teamID })
	d, err = r.Resolve(context.Background(), bob, todo, ActionWrite)
	require.NoError(t, err)
	require.True(t, d.Allowed, "todos are team-writable")
}

func TestResolveTeamLookupSkippedWhenLocalGrantSuffices(t *testing.T) {
	teamID := "team-1"
	idx := &stubIndex{err: errors.New("store down")}
	r := NewResolver(idx)

	it := item(model.KindNote, "alice", func(i *model.Item) { i.TeamID = &teamID })
	d, err := r.Resolve(context.Background(), model.Principal{ID: "alice"}, it, ActionWrite)
	require.NoError(t, err)
	require.True(t, d.Allowed)
	require.Zero(t, idx.calls, "owner grant must not consult the team index")
}

func TestResolveTeamLookupFailurePropagates(t *testing.T) {
	teamID := "team-1"
	r := NewResolver(&stubIndex{err: errors.New("store down")})

	it := item(model.KindNote, "alice", func(i *model.Item) { i.TeamID = &teamID })
	_, err := r.Resolve(context.Background(), model.Principal{ID: "bob"}, it, ActionRead)
	require.Error(t, err)
}

func TestWriteSubsumesComment(t *testing.T) {
	var s ActionSet = setWrite
	require.True(t, s.Allows(ActionComment))
	require.False(t, s.Allows(ActionRead))
}
