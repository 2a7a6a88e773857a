// Package storetest provides an in-memory store.Store used by unit tests and
// a compliance suite that any store implementation must pass.
package storetest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/haventeam/haven/internal/model"
	"github.com/haventeam/haven/internal/store"
)

// MemStore is a mutex-guarded in-memory store.Store. Events passed to Create
// and Update are captured in Outbox in commit order so tests can assert the
// transactional-outbox contract without a database.
type MemStore struct {
	mu            sync.Mutex
	items         map[string]*model.Item // key kind/id
	teams         map[string]*model.Team
	notifications map[string]*model.Notification
	Outbox        []model.Event

	// FailWrites forces mutation methods to return ErrUnavailable.
	FailWrites bool
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		items:         map[string]*model.Item{},
		teams:         map[string]*model.Team{},
		notifications: map[string]*model.Notification{},
	}
}

func (m *MemStore) Items() store.Items                 { return (*memItems)(m) }
func (m *MemStore) Teams() store.Teams                 { return (*memTeams)(m) }
func (m *MemStore) Notifications() store.Notifications { return (*memNotifications)(m) }

func itemKey(kind model.Kind, id string) string { return string(kind) + "/" + id }

func copyItem(it *model.Item) *model.Item {
	cp := *it
	cp.Collaborators = append([]model.Collaborator(nil), it.Collaborators...)
	cp.SharedWith = append([]model.Share(nil), it.SharedWith...)
	cp.Tags = append([]string(nil), it.Tags...)
	cp.Comments = append([]model.Comment(nil), it.Comments...)
	cp.Watchers = append([]string(nil), it.Watchers...)
	cp.Milestones = append([]model.Milestone(nil), it.Milestones...)
	return &cp
}

func copyTeam(t *model.Team) *model.Team {
	cp := *t
	cp.Members = append([]model.TeamMember(nil), t.Members...)
	cp.InvitedMembers = append([]string(nil), t.InvitedMembers...)
	return &cp
}

// --- Items ---

type memItems MemStore

func (m *memItems) Create(ctx context.Context, it *model.Item, events []model.Event) (*model.Item, error) {
	s := (*MemStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites {
		return nil, model.ErrUnavailable
	}
	cp := copyItem(it)
	if cp.ItemID == "" {
		cp.ItemID = uuid.New().String()
	}
	if _, ok := s.items[itemKey(cp.Kind, cp.ItemID)]; ok {
		return nil, model.ErrConflict
	}
	cp.Version = 1
	cp.CreationTime = time.Now().UTC()
	cp.UpdateTime = cp.CreationTime
	s.items[itemKey(cp.Kind, cp.ItemID)] = cp
	s.Outbox = append(s.Outbox, events...)
	return copyItem(cp), nil
}

func (m *memItems) Get(ctx context.Context, kind model.Kind, itemID string) (*model.Item, error) {
	s := (*MemStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[itemKey(kind, itemID)]
	if !ok {
		return nil, model.ErrNotFound
	}
	return copyItem(it), nil
}

func visibleTo(it *model.Item, principalID string, teamIDs []string) bool {
	if it.CreatedBy == principalID {
		return true
	}
	for _, c := range it.Collaborators {
		if c.UserID == principalID {
			return true
		}
	}
	for _, sh := range it.SharedWith {
		if sh.UserID == principalID {
			return true
		}
	}
	if it.Visibility == model.VisibilityPublic {
		return true
	}
	if it.TeamID != nil {
		for _, id := range teamIDs {
			if id == *it.TeamID {
				return true
			}
		}
	}
	return false
}

func (m *memItems) ListVisible(ctx context.Context, principalID string, teamIDs []string, req model.ListItemsRequest) ([]*model.Item, int, error) {
	s := (*MemStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*model.Item
	for _, it := range s.items {
		if it.Kind != req.Kind || !visibleTo(it, principalID, teamIDs) {
			continue
		}
		if req.TeamID != nil && (it.TeamID == nil || *it.TeamID != *req.TeamID) {
			continue
		}
		if req.Tag != nil && !containsString(it.Tags, *req.Tag) {
			continue
		}
		matched = append(matched, it)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreationTime.Equal(matched[j].CreationTime) {
			return matched[i].ItemID < matched[j].ItemID
		}
		return matched[i].CreationTime.After(matched[j].CreationTime)
	})

	total := len(matched)
	limit := req.Limit
	if limit <= 0 {
		limit = 20
	}
	start := 0
	if req.Page > 1 {
		start = (req.Page - 1) * limit
	}
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	out := make([]*model.Item, 0, end-start)
	for _, it := range matched[start:end] {
		out = append(out, copyItem(it))
	}
	return out, total, nil
}

func (m *memItems) Update(ctx context.Context, it *model.Item, baseVersion int64, events []model.Event) (*model.Item, error) {
	s := (*MemStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites {
		return nil, model.ErrUnavailable
	}
	cur, ok := s.items[itemKey(it.Kind, it.ItemID)]
	if !ok {
		return nil, model.ErrNotFound
	}
	if cur.Version != baseVersion {
		return nil, fmt.Errorf("stale version %d (current %d): %w", baseVersion, cur.Version, model.ErrConflict)
	}
	cp := copyItem(it)
	cp.CreatedBy = cur.CreatedBy
	cp.CreationTime = cur.CreationTime
	cp.Version = cur.Version + 1
	cp.UpdateTime = time.Now().UTC()
	s.items[itemKey(cp.Kind, cp.ItemID)] = cp
	s.Outbox = append(s.Outbox, events...)
	return copyItem(cp), nil
}

func (m *memItems) Delete(ctx context.Context, kind model.Kind, itemID string) error {
	s := (*MemStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[itemKey(kind, itemID)]; !ok {
		return model.ErrNotFound
	}
	delete(s.items, itemKey(kind, itemID))
	return nil
}

// --- Teams ---

type memTeams MemStore

func (m *memTeams) Create(ctx context.Context, t *model.Team) (*model.Team, error) {
	s := (*MemStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites {
		return nil, model.ErrUnavailable
	}
	cp := copyTeam(t)
	if cp.TeamID == "" {
		cp.TeamID = uuid.New().String()
	}
	if _, ok := s.teams[cp.TeamID]; ok {
		return nil, model.ErrConflict
	}
	cp.Version = 1
	cp.CreationTime = time.Now().UTC()
	cp.UpdateTime = cp.CreationTime
	s.teams[cp.TeamID] = cp
	return copyTeam(cp), nil
}

func (m *memTeams) Get(ctx context.Context, teamID string) (*model.Team, error) {
	s := (*MemStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites {
		return nil, model.ErrUnavailable
	}
	t, ok := s.teams[teamID]
	if !ok {
		return nil, model.ErrNotFound
	}
	return copyTeam(t), nil
}

func (m *memTeams) ListByUser(ctx context.Context, userID string) ([]*model.Team, error) {
	s := (*MemStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites {
		return nil, model.ErrUnavailable
	}
	var out []*model.Team
	for _, t := range s.teams {
		if t.OwnerID == userID {
			out = append(out, copyTeam(t))
			continue
		}
		for _, mb := range t.Members {
			if mb.UserID == userID {
				out = append(out, copyTeam(t))
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TeamID < out[j].TeamID })
	return out, nil
}

func (m *memTeams) Update(ctx context.Context, t *model.Team, baseVersion int64, events []model.Event) (*model.Team, error) {
	s := (*MemStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites {
		return nil, model.ErrUnavailable
	}
	cur, ok := s.teams[t.TeamID]
	if !ok {
		return nil, model.ErrNotFound
	}
	if cur.Version != baseVersion {
		return nil, fmt.Errorf("stale version %d (current %d): %w", baseVersion, cur.Version, model.ErrConflict)
	}
	cp := copyTeam(t)
	cp.OwnerID = cur.OwnerID
	cp.CreationTime = cur.CreationTime
	cp.Version = cur.Version + 1
	cp.UpdateTime = time.Now().UTC()
	s.teams[cp.TeamID] = cp
	s.Outbox = append(s.Outbox, events...)
	return copyTeam(cp), nil
}

func (m *memTeams) Delete(ctx context.Context, teamID string) error {
	s := (*MemStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[teamID]; !ok {
		return model.ErrNotFound
	}
	delete(s.teams, teamID)
	return nil
}

// --- Notifications ---

type memNotifications MemStore

func (m *memNotifications) CreateBatch(ctx context.Context, ns []*model.Notification) ([]*model.Notification, error) {
	s := (*MemStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites {
		return nil, model.ErrUnavailable
	}
	out := make([]*model.Notification, 0, len(ns))
	for _, n := range ns {
		cp := *n
		if cp.NotificationID == "" {
			cp.NotificationID = uuid.New().String()
		}
		cp.CreationTime = time.Now().UTC()
		s.notifications[cp.NotificationID] = &cp
		c2 := cp
		out = append(out, &c2)
	}
	return out, nil
}

func (m *memNotifications) List(ctx context.Context, req model.ListNotificationsRequest) ([]*model.Notification, int, error) {
	s := (*MemStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*model.Notification
	for _, n := range s.notifications {
		if n.Recipient != req.Recipient {
			continue
		}
		if req.UnreadOnly && n.IsRead {
			continue
		}
		matched = append(matched, n)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreationTime.Equal(matched[j].CreationTime) {
			return matched[i].NotificationID < matched[j].NotificationID
		}
		return matched[i].CreationTime.After(matched[j].CreationTime)
	})

	total := len(matched)
	limit := req.Limit
	if limit <= 0 {
		limit = 20
	}
	start := 0
	if req.Page > 1 {
		start = (req.Page - 1) * limit
	}
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	out := make([]*model.Notification, 0, end-start)
	for _, n := range matched[start:end] {
		cp := *n
		out = append(out, &cp)
	}
	return out, total, nil
}

func (m *memNotifications) CountUnread(ctx context.Context, recipient string) (int, error) {
	s := (*MemStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, n := range s.notifications {
		if n.Recipient == recipient && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (m *memNotifications) MarkRead(ctx context.Context, recipient string, ids []string, all bool, at time.Time) (int, error) {
	s := (*MemStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, n := range s.notifications {
		if n.Recipient != recipient || n.IsRead {
			continue
		}
		if !all && !containsString(ids, n.NotificationID) {
			continue
		}
		n.IsRead = true
		t := at
		n.ReadAt = &t
		count++
	}
	return count, nil
}

func (m *memNotifications) Delete(ctx context.Context, recipient string, ids []string, all bool) (int, error) {
	s := (*MemStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for id, n := range s.notifications {
		if n.Recipient != recipient {
			continue
		}
		if !all && !containsString(ids, id) {
			continue
		}
		delete(s.notifications, id)
		count++
	}
	return count, nil
}

func containsString(xs []string, want string) bool {
	for _, x := range xs {
		if x == want {
			return true
		}
	}
	return false
}
