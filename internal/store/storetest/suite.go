package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/haventeam/haven/internal/model"
	"github.com/haventeam/haven/internal/store"
)

// Run exercises a minimal compliance suite against a store.Store
// implementation. Implementations should provide a clean, isolated store and
// return it from makeStore.
func Run(t *testing.T, makeStore func(t *testing.T) store.Store) {
	t.Helper()

	s := makeStore(t)
	ctx := context.Background()

	owner := "u-" + uuid.New().String()
	member := "u-" + uuid.New().String()
	outsider := "u-" + uuid.New().String()

	// Teams
	team, err := s.Teams().Create(ctx, &model.Team{
		Name:    "compliance-team",
		OwnerID: owner,
		Members: []model.TeamMember{{UserID: member, Role: model.TeamRoleMember}},
	})
	if err != nil {
		t.Fatalf("CreateTeam: %v", err)
	}
	if team.TeamID == "" || team.Version != 1 {
		t.Fatalf("CreateTeam: bad team %+v", team)
	}
	if got, err := s.Teams().Get(ctx, team.TeamID); err != nil || got.Name != "compliance-team" {
		t.Fatalf("GetTeam: got=%v err=%v", got, err)
	}
	if lst, err := s.Teams().ListByUser(ctx, member); err != nil || len(lst) != 1 {
		t.Fatalf("ListByUser(member): n=%d err=%v", len(lst), err)
	}
	if lst, err := s.Teams().ListByUser(ctx, outsider); err != nil || len(lst) != 0 {
		t.Fatalf("ListByUser(outsider): n=%d err=%v", len(lst), err)
	}

	// Items: create with an event, verify version and visibility.
	it, err := s.Items().Create(ctx, &model.Item{
		Kind:       model.KindNote,
		CreatedBy:  owner,
		Visibility: model.VisibilityPrivate,
		TeamID:     &team.TeamID,
		Title:      "compliance note",
		Tags:       []string{"alpha"},
	}, []model.Event{{Type: model.EventNoteShared, ItemType: "note", ActorID: owner}})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if it.ItemID == "" || it.Version != 1 {
		t.Fatalf("CreateItem: bad item %+v", it)
	}

	if got, err := s.Items().Get(ctx, model.KindNote, it.ItemID); err != nil || got.Title != "compliance note" {
		t.Fatalf("GetItem: got=%v err=%v", got, err)
	}
	if _, err := s.Items().Get(ctx, model.KindNote, uuid.New().String()); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("GetItem(missing): want ErrNotFound, got %v", err)
	}

	// Owner sees the item; a team member sees it through the team grant;
	// an outsider does not.
	if lst, total, err := s.Items().ListVisible(ctx, owner, nil, model.ListItemsRequest{Kind: model.KindNote}); err != nil || total != 1 || len(lst) != 1 {
		t.Fatalf("ListVisible(owner): n=%d total=%d err=%v", len(lst), total, err)
	}
	if _, total, err := s.Items().ListVisible(ctx, member, []string{team.TeamID}, model.ListItemsRequest{Kind: model.KindNote}); err != nil || total != 1 {
		t.Fatalf("ListVisible(member): total=%d err=%v", total, err)
	}
	if _, total, err := s.Items().ListVisible(ctx, outsider, nil, model.ListItemsRequest{Kind: model.KindNote}); err != nil || total != 0 {
		t.Fatalf("ListVisible(outsider): total=%d err=%v", total, err)
	}

	// Tag filter.
	tag := "alpha"
	if _, total, err := s.Items().ListVisible(ctx, owner, nil, model.ListItemsRequest{Kind: model.KindNote, Tag: &tag}); err != nil || total != 1 {
		t.Fatalf("ListVisible(tag): total=%d err=%v", total, err)
	}
	missing := "beta"
	if _, total, err := s.Items().ListVisible(ctx, owner, nil, model.ListItemsRequest{Kind: model.KindNote, Tag: &missing}); err != nil || total != 0 {
		t.Fatalf("ListVisible(missing tag): total=%d err=%v", total, err)
	}

	// Update with matching base version succeeds and bumps version.
	it.Title = "renamed"
	updated, err := s.Items().Update(ctx, it, 1, nil)
	if err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}
	if updated.Version != 2 || updated.Title != "renamed" {
		t.Fatalf("UpdateItem: bad result %+v", updated)
	}

	// Stale base version must fail with ErrConflict, not overwrite.
	it.Title = "lost update"
	if _, err := s.Items().Update(ctx, it, 1, nil); !errors.Is(err, model.ErrConflict) {
		t.Fatalf("UpdateItem(stale): want ErrConflict, got %v", err)
	}
	if got, _ := s.Items().Get(ctx, model.KindNote, it.ItemID); got.Title != "renamed" {
		t.Fatalf("stale update leaked: %q", got.Title)
	}

	// Team update with CAS.
	team.InvitedMembers = append(team.InvitedMembers, outsider)
	team2, err := s.Teams().Update(ctx, team, 1, []model.Event{{Type: model.EventTeamInvite, ActorID: owner, Recipients: []string{outsider}}})
	if err != nil {
		t.Fatalf("UpdateTeam: %v", err)
	}
	if team2.Version != 2 {
		t.Fatalf("UpdateTeam: version=%d", team2.Version)
	}
	if _, err := s.Teams().Update(ctx, team, 1, nil); !errors.Is(err, model.ErrConflict) {
		t.Fatalf("UpdateTeam(stale): want ErrConflict, got %v", err)
	}

	// Notifications: batch create, recipient scoping, mark read, delete.
	batch := []*model.Notification{
		{Recipient: member, Type: model.EventNoteShared, Title: "shared", Message: "m1",
			Data: model.NotificationData{ItemType: "note", ItemID: it.ItemID, ActorID: owner}},
		{Recipient: member, Type: model.EventCommentAdded, Title: "comment", Message: "m2",
			Data: model.NotificationData{ItemType: "note", ItemID: it.ItemID, ActorID: owner}},
		{Recipient: outsider, Type: model.EventNoteShared, Title: "shared", Message: "m3",
			Data: model.NotificationData{ItemType: "note", ItemID: it.ItemID, ActorID: owner}},
	}
	created, err := s.Notifications().CreateBatch(ctx, batch)
	if err != nil || len(created) != 3 {
		t.Fatalf("CreateBatch: n=%d err=%v", len(created), err)
	}

	if n, err := s.Notifications().CountUnread(ctx, member); err != nil || n != 2 {
		t.Fatalf("CountUnread(member): n=%d err=%v", n, err)
	}
	if lst, total, err := s.Notifications().List(ctx, model.ListNotificationsRequest{Recipient: member}); err != nil || total != 2 || len(lst) != 2 {
		t.Fatalf("ListNotifications(member): n=%d total=%d err=%v", len(lst), total, err)
	}

	// MarkRead(all) touches only the recipient's records.
	if n, err := s.Notifications().MarkRead(ctx, member, nil, true, time.Now().UTC()); err != nil || n != 2 {
		t.Fatalf("MarkRead(all): n=%d err=%v", n, err)
	}
	if n, _ := s.Notifications().CountUnread(ctx, member); n != 0 {
		t.Fatalf("CountUnread after MarkRead: %d", n)
	}
	if n, _ := s.Notifications().CountUnread(ctx, outsider); n != 1 {
		t.Fatalf("other recipient's unread touched: %d", n)
	}

	// Delete by id is recipient-scoped: member cannot delete outsider's record.
	outsiderID := created[2].NotificationID
	if n, err := s.Notifications().Delete(ctx, member, []string{outsiderID}, false); err != nil || n != 0 {
		t.Fatalf("cross-recipient delete: n=%d err=%v", n, err)
	}
	if n, err := s.Notifications().Delete(ctx, outsider, nil, true); err != nil || n != 1 {
		t.Fatalf("Delete(all): n=%d err=%v", n, err)
	}

	// Item delete.
	if err := s.Items().Delete(ctx, model.KindNote, it.ItemID); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}
	if err := s.Items().Delete(ctx, model.KindNote, it.ItemID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("DeleteItem(missing): want ErrNotFound, got %v", err)
	}
	if err := s.Teams().Delete(ctx, team.TeamID); err != nil {
		t.Fatalf("DeleteTeam: %v", err)
	}
}
