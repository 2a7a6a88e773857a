package gateway

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/haventeam/haven/internal/model"
)

func TestPatchApplyDoesNotMutateBefore(t *testing.T) {
	before := &model.Item{
		ItemID:    "item-1",
		Kind:      model.KindNote,
		CreatedBy: "alice",
		Title:     "Original",
		Tags:      []string{"a"},
	}
	tags := []string{"a", "b"}
	p := &Patch{Title: strptr("Changed"), Tags: &tags}

	after := p.apply(before, alice, time.Now().UTC())
	require.Equal(t, "Original", before.Title)
	require.Equal(t, []string{"a"}, before.Tags)
	require.Equal(t, "Changed", after.Title)
}

func TestPatchClearTeam(t *testing.T) {
	teamID := "team-1"
	before := &model.Item{ItemID: "item-1", Kind: model.KindNote, TeamID: &teamID}

	empty := ""
	after := (&Patch{TeamID: &empty}).apply(before, alice, time.Now().UTC())
	require.Nil(t, after.TeamID)
}

func TestPatchStampsNewlyDoneMilestones(t *testing.T) {
	before := &model.Item{
		ItemID: "item-1",
		Kind:   model.KindGoal,
		Milestones: []model.Milestone{
			{MilestoneID: "m1", Title: "Draft"},
			{MilestoneID: "m2", Title: "Review", Done: true},
		},
	}
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	next := []model.Milestone{
		{MilestoneID: "m1", Title: "Draft", Done: true},
		{MilestoneID: "m2", Title: "Review", Done: true},
	}
	after := (&Patch{Milestones: &next}).apply(before, alice, now)

	require.NotNil(t, after.Milestones[0].DoneAt)
	require.Equal(t, now, *after.Milestones[0].DoneAt)
	require.Nil(t, after.Milestones[1].DoneAt, "already-done milestone keeps its stamp")
}

func TestPatchAssignsMilestoneIDs(t *testing.T) {
	before := &model.Item{ItemID: "item-1", Kind: model.KindGoal}
	next := []model.Milestone{{Title: "Draft"}}
	after := (&Patch{Milestones: &next}).apply(before, alice, time.Now().UTC())
	require.NotEmpty(t, after.Milestones[0].MilestoneID)
}

func TestChangesACLDetection(t *testing.T) {
	collabs := []model.Collaborator{{UserID: "bob", Role: "viewer"}}
	shares := []model.Share{{UserID: "bob", Permission: "read"}}
	vis := model.VisibilityPublic

	require.True(t, (&Patch{Collaborators: &collabs}).changesACL())
	require.True(t, (&Patch{SharedWith: &shares}).changesACL())
	require.True(t, (&Patch{Visibility: &vis}).changesACL())
	require.True(t, (&Patch{TeamID: strptr("team-1")}).changesACL())
	require.False(t, (&Patch{Title: strptr("x"), Status: strptr("done")}).changesACL())
}

func TestCommentOnlyDetection(t *testing.T) {
	require.True(t, (&Patch{AddComment: &CommentInput{Body: "hi"}}).commentOnly())
	require.False(t, (&Patch{AddComment: &CommentInput{Body: "hi"}, Title: strptr("x")}).commentOnly())
	require.False(t, (&Patch{}).commentOnly())
}
