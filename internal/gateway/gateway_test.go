package gateway

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/haventeam/haven/internal/model"
	"github.com/haventeam/haven/internal/store"
	"github.com/haventeam/haven/internal/store/storetest"
	"github.com/haventeam/haven/internal/teams"
)

var (
	alice = model.Principal{ID: "alice", DisplayName: "Alice"}
	bob   = model.Principal{ID: "bob", DisplayName: "Bob"}
)

func newGateway(t *testing.T) (*Gateway, *storetest.MemStore) {
	t.Helper()
	st := storetest.NewMemStore()
	return New(st, teams.NewIndex(st.Teams()), zerolog.Nop()), st
}

func mustCreate(t *testing.T, g *Gateway, actor model.Principal, in CreateInput) *model.Item {
	t.Helper()
	it, err := g.Create(context.Background(), actor, in)
	require.NoError(t, err)
	return it
}

func strptr(s string) *string { return &s }

func TestCreateValidation(t *testing.T) {
	g, _ := newGateway(t)

	_, err := g.Create(context.Background(), alice, CreateInput{Kind: "journal", Title: "x"})
	require.ErrorIs(t, err, model.ErrValidation)

	_, err = g.Create(context.Background(), alice, CreateInput{Kind: model.KindNote})
	require.ErrorIs(t, err, model.ErrValidation)
}

func TestCreateDefaultsPrivate(t *testing.T) {
	g, _ := newGateway(t)
	it := mustCreate(t, g, alice, CreateInput{Kind: model.KindNote, Title: "Plan"})
	require.Equal(t, model.VisibilityPrivate, it.Visibility)
	require.Equal(t, "alice", it.CreatedBy)
	require.EqualValues(t, 1, it.Version)
}

func TestCreateWithShareEmitsEvent(t *testing.T) {
	g, st := newGateway(t)
	mustCreate(t, g, alice, CreateInput{
		Kind:       model.KindGoal,
		Title:      "Launch",
		SharedWith: []model.Share{{UserID: "bob", Permission: "read"}},
	})
	require.Len(t, st.Outbox, 1)
	require.Equal(t, model.EventGoalShared, st.Outbox[0].Type)
	require.Equal(t, []string{"bob"}, st.Outbox[0].Recipients)
}

func TestGetDenyLooksLikeMissing(t *testing.T) {
	g, _ := newGateway(t)
	it := mustCreate(t, g, alice, CreateInput{Kind: model.KindNote, Title: "Private"})

	_, err := g.Get(context.Background(), bob, model.KindNote, it.ItemID)
	require.ErrorIs(t, err, model.ErrNotFound)

	_, err = g.Get(context.Background(), bob, model.KindNote, "00000000-0000-0000-0000-000000000000")
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestGetPublicItem(t *testing.T) {
	g, _ := newGateway(t)
	it := mustCreate(t, g, alice, CreateInput{Kind: model.KindResource, Title: "Handbook", Visibility: model.VisibilityPublic})

	got, err := g.Get(context.Background(), bob, model.KindResource, it.ItemID)
	require.NoError(t, err)
	require.Equal(t, it.ItemID, got.ItemID)
}

func TestMutateStaleVersionConflicts(t *testing.T) {
	g, _ := newGateway(t)
	it := mustCreate(t, g, alice, CreateInput{Kind: model.KindNote, Title: "Plan"})

	_, _, err := g.Mutate(context.Background(), alice, model.KindNote, it.ItemID, &Patch{Title: strptr("Plan v2")})
	require.NoError(t, err)

	// Second writer still holding version 1 must get a conflict, not a
	// silent lost update.
	stale := it.Version
	_, _, err = g.Mutate(context.Background(), alice, model.KindNote, it.ItemID, &Patch{
		BaseVersion: &stale,
		Title:       strptr("Plan v3"),
	})
	require.ErrorIs(t, err, model.ErrConflict)
}

func TestMutateDeniedForViewer(t *testing.T) {
	g, _ := newGateway(t)
	it := mustCreate(t, g, alice, CreateInput{
		Kind:          model.KindNote,
		Title:         "Plan",
		Collaborators: []model.Collaborator{{UserID: "bob", Role: "viewer"}},
	})

	_, _, err := g.Mutate(context.Background(), bob, model.KindNote, it.ItemID, &Patch{Title: strptr("hijacked")})
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestCommentOnlyPatchNeedsOnlyCommentGrant(t *testing.T) {
	g, st := newGateway(t)
	it := mustCreate(t, g, alice, CreateInput{
		Kind:       model.KindNote,
		Title:      "Plan",
		SharedWith: []model.Share{{UserID: "bob", Permission: "comment"}},
	})
	st.Outbox = nil

	updated, _, err := g.Mutate(context.Background(), bob, model.KindNote, it.ItemID, &Patch{
		AddComment: &CommentInput{Body: "looks good"},
	})
	require.NoError(t, err)
	require.Len(t, updated.Comments, 1)
	require.Equal(t, "bob", updated.Comments[0].AuthorID)

	// The same share does not unlock content edits.
	_, _, err = g.Mutate(context.Background(), bob, model.KindNote, it.ItemID, &Patch{Title: strptr("nope")})
	require.ErrorIs(t, err, model.ErrNotFound)

	// Creator hears about the comment.
	require.Len(t, st.Outbox, 1)
	require.Equal(t, model.EventCommentAdded, st.Outbox[0].Type)
	require.Equal(t, []string{"alice"}, st.Outbox[0].Recipients)
}

func TestACLChangesRequireOwnership(t *testing.T) {
	g, _ := newGateway(t)
	it := mustCreate(t, g, alice, CreateInput{
		Kind:          model.KindNote,
		Title:         "Plan",
		Collaborators: []model.Collaborator{{UserID: "bob", Role: "admin"}},
	})

	// Even an admin collaborator cannot rewrite the collaborator list.
	grab := []model.Collaborator{{UserID: "bob", Role: "admin"}, {UserID: "eve", Role: "admin"}}
	_, _, err := g.Mutate(context.Background(), bob, model.KindNote, it.ItemID, &Patch{Collaborators: &grab})
	require.ErrorIs(t, err, model.ErrNotFound)

	// The owner can.
	_, _, err = g.Mutate(context.Background(), alice, model.KindNote, it.ItemID, &Patch{Collaborators: &grab})
	require.NoError(t, err)
}

func TestShareChangesRequireOwnership(t *testing.T) {
	g, _ := newGateway(t)
	it := mustCreate(t, g, alice, CreateInput{
		Kind:          model.KindNote,
		Title:         "Plan",
		Collaborators: []model.Collaborator{{UserID: "bob", Role: "editor"}},
		SharedWith:    []model.Share{{UserID: "carol", Permission: "read"}, {UserID: "dave", Permission: "edit"}},
	})

	// An editor collaborator may change content but not the share list.
	grab := []model.Share{{UserID: "eve", Permission: "edit"}}
	_, _, err := g.Mutate(context.Background(), bob, model.KindNote, it.ItemID, &Patch{SharedWith: &grab})
	require.ErrorIs(t, err, model.ErrNotFound)

	// Neither may an edit-share grantee.
	dave := model.Principal{ID: "dave", DisplayName: "Dave"}
	_, _, err = g.Mutate(context.Background(), dave, model.KindNote, it.ItemID, &Patch{SharedWith: &grab})
	require.ErrorIs(t, err, model.ErrNotFound)

	// Existing shares survive the denied attempts.
	got, err := g.Get(context.Background(), alice, model.KindNote, it.ItemID)
	require.NoError(t, err)
	require.Equal(t, []model.Share{{UserID: "carol", Permission: "read"}, {UserID: "dave", Permission: "edit"}}, got.SharedWith)

	// The owner can re-share.
	updated, _, err := g.Mutate(context.Background(), alice, model.KindNote, it.ItemID, &Patch{SharedWith: &grab})
	require.NoError(t, err)
	require.Equal(t, grab, updated.SharedWith)
}

func TestTeamMemberTodoWrite(t *testing.T) {
	g, st := newGateway(t)
	team, err := st.Teams().Create(context.Background(), &model.Team{
		TeamID:  "11111111-1111-1111-1111-111111111111",
		Name:    "Platform",
		OwnerID: "alice",
		Members: []model.TeamMember{{UserID: "bob", Role: model.TeamRoleMember}},
	})
	require.NoError(t, err)

	todo := mustCreate(t, g, alice, CreateInput{Kind: model.KindTodo, Title: "Ship it", TeamID: &team.TeamID})
	note := mustCreate(t, g, alice, CreateInput{Kind: model.KindNote, Title: "Minutes", TeamID: &team.TeamID})

	_, _, err = g.Mutate(context.Background(), bob, model.KindTodo, todo.ItemID, &Patch{Status: strptr("in_progress")})
	require.NoError(t, err, "team members may edit team todos")

	_, err = g.Get(context.Background(), bob, model.KindNote, note.ItemID)
	require.NoError(t, err, "team members may read team notes")

	_, _, err = g.Mutate(context.Background(), bob, model.KindNote, note.ItemID, &Patch{Title: strptr("edited")})
	require.ErrorIs(t, err, model.ErrNotFound, "team membership grants no note writes")
}

func TestAssignmentFlowEmitsEvents(t *testing.T) {
	g, st := newGateway(t)
	todo := mustCreate(t, g, alice, CreateInput{Kind: model.KindTodo, Title: "Review PR", Watchers: []string{"carol"}})
	st.Outbox = nil

	_, events, err := g.Mutate(context.Background(), alice, model.KindTodo, todo.ItemID, &Patch{Assignee: strptr("bob")})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, model.EventTaskAssigned, events[0].Type)

	_, events, err = g.Mutate(context.Background(), alice, model.KindTodo, todo.ItemID, &Patch{Status: strptr(model.TodoStatusDone)})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, model.EventTaskCompleted, events[0].Type)
	require.Equal(t, []string{"carol"}, events[0].Recipients)

	// Both mutations persisted their events with the write.
	require.Len(t, st.Outbox, 2)
}

func TestDeleteRequiresDeleteGrant(t *testing.T) {
	g, _ := newGateway(t)
	it := mustCreate(t, g, alice, CreateInput{
		Kind:          model.KindNote,
		Title:         "Plan",
		Collaborators: []model.Collaborator{{UserID: "bob", Role: "editor"}},
	})

	err := g.Delete(context.Background(), bob, model.KindNote, it.ItemID)
	require.ErrorIs(t, err, model.ErrNotFound, "editors cannot delete")

	require.NoError(t, g.Delete(context.Background(), alice, model.KindNote, it.ItemID))
	_, err = g.Get(context.Background(), alice, model.KindNote, it.ItemID)
	require.ErrorIs(t, err, model.ErrNotFound)
}

// failingTeams simulates a membership store outage.
type failingTeams struct{}

func (failingTeams) Create(context.Context, *model.Team) (*model.Team, error) {
	return nil, errors.New("down")
}
func (failingTeams) Get(context.Context, string) (*model.Team, error) {
	return nil, errors.New("down")
}
func (failingTeams) ListByUser(context.Context, string) ([]*model.Team, error) {
	return nil, errors.New("down")
}
func (failingTeams) Update(context.Context, *model.Team, int64, []model.Event) (*model.Team, error) {
	return nil, errors.New("down")
}
func (failingTeams) Delete(context.Context, string) error { return errors.New("down") }

var _ store.Teams = failingTeams{}

func TestMembershipOutageDeniesByDefault(t *testing.T) {
	st := storetest.NewMemStore()
	g := New(st, teams.NewIndex(failingTeams{}), zerolog.Nop())

	teamID := "11111111-1111-1111-1111-111111111111"
	it := mustCreate(t, g, alice, CreateInput{Kind: model.KindTodo, Title: "Ship it", TeamID: &teamID})

	// The owner is unaffected: local grants never touch the index.
	_, err := g.Get(context.Background(), alice, model.KindTodo, it.ItemID)
	require.NoError(t, err)

	// A would-be team member is denied, indistinguishable from missing.
	_, err = g.Get(context.Background(), bob, model.KindTodo, it.ItemID)
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestListVisibleScopes(t *testing.T) {
	g, st := newGateway(t)
	team, err := st.Teams().Create(context.Background(), &model.Team{
		TeamID:  "22222222-2222-2222-2222-222222222222",
		Name:    "Design",
		OwnerID: "alice",
		Members: []model.TeamMember{{UserID: "bob", Role: model.TeamRoleMember}},
	})
	require.NoError(t, err)

	mustCreate(t, g, alice, CreateInput{Kind: model.KindNote, Title: "Private"})
	mustCreate(t, g, alice, CreateInput{Kind: model.KindNote, Title: "Public", Visibility: model.VisibilityPublic})
	mustCreate(t, g, alice, CreateInput{Kind: model.KindNote, Title: "Team", TeamID: &team.TeamID})
	mustCreate(t, g, alice, CreateInput{Kind: model.KindNote, Title: "Shared", SharedWith: []model.Share{{UserID: "bob", Permission: "read"}}})

	items, page, err := g.List(context.Background(), bob, model.ListItemsRequest{Kind: model.KindNote})
	require.NoError(t, err)
	require.Equal(t, 3, page.Total)

	titles := map[string]bool{}
	for _, it := range items {
		titles[it.Title] = true
	}
	require.False(t, titles["Private"])
}
