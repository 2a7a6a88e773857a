// Package gateway enforces access policy in front of every item mutation,
// diffs before/after state, and persists the mutation together with its
// classified events in one transaction.
package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/haventeam/haven/internal/classify"
	"github.com/haventeam/haven/internal/model"
	"github.com/haventeam/haven/internal/policy"
	"github.com/haventeam/haven/internal/store"
	"github.com/haventeam/haven/internal/teams"
)

// Gateway is the single entry point for reading and mutating items. Policy
// denials are reported as ErrNotFound so callers cannot distinguish a
// forbidden item from a missing one.
type Gateway struct {
	store    store.Store
	resolver *policy.Resolver
	index    *teams.Index
	log      zerolog.Logger
	now      func() time.Time
}

func New(s store.Store, index *teams.Index, log zerolog.Logger) *Gateway {
	return &Gateway{
		store:    s,
		resolver: policy.NewResolver(index),
		index:    index,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateInput is the caller-supplied state for a new item.
type CreateInput struct {
	Kind          model.Kind
	Title         string
	Description   *string
	Tags          []string
	TeamID        *string
	Visibility    model.Visibility
	Collaborators []model.Collaborator
	SharedWith    []model.Share
	Assignee      *string
	Status        *string
	Watchers      []string
	DueDate       *time.Time
	Milestones    []model.Milestone
	URL           *string
}

// Create persists a new item owned by the actor. Shares and assignments
// present at creation classify exactly like later additions, so sharing a
// goal at creation time already notifies the grantees.
func (g *Gateway) Create(ctx context.Context, actor model.Principal, in CreateInput) (*model.Item, error) {
	if !in.Kind.Valid() {
		return nil, fmt.Errorf("unknown kind %q: %w", in.Kind, model.ErrValidation)
	}
	if in.Title == "" {
		return nil, fmt.Errorf("title is required: %w", model.ErrValidation)
	}
	visibility := in.Visibility
	if visibility == "" {
		visibility = model.VisibilityPrivate
	}

	it := &model.Item{
		ItemID:        uuid.New().String(),
		Kind:          in.Kind,
		CreatedBy:     actor.ID,
		TeamID:        in.TeamID,
		Visibility:    visibility,
		Collaborators: in.Collaborators,
		SharedWith:    in.SharedWith,
		Title:         in.Title,
		Description:   in.Description,
		Tags:          in.Tags,
		Assignee:      in.Assignee,
		Status:        in.Status,
		Watchers:      in.Watchers,
		DueDate:       in.DueDate,
		Milestones:    in.Milestones,
		URL:           in.URL,
	}
	events := classify.Changes(nil, it, actor)
	created, err := g.store.Items().Create(ctx, it, events)
	if err != nil {
		return nil, err
	}
	g.log.Info().Str("kind", string(in.Kind)).Str("item_id", created.ItemID).
		Str("actor", actor.ID).Int("events", len(events)).Msg("item created")
	return created, nil
}

// Get returns the item when the actor may read it, ErrNotFound otherwise.
func (g *Gateway) Get(ctx context.Context, actor model.Principal, kind model.Kind, itemID string) (*model.Item, error) {
	it, err := g.store.Items().Get(ctx, kind, itemID)
	if err != nil {
		return nil, err
	}
	decision, err := g.resolver.Resolve(ctx, actor, it, policy.ActionRead)
	if err != nil {
		// Membership store failure: deny rather than guess.
		g.log.Warn().Err(err).Str("item_id", itemID).Msg("policy resolution degraded, denying")
		return nil, model.ErrNotFound
	}
	if !decision.Allowed {
		return nil, model.ErrNotFound
	}
	return it, nil
}

// List returns the page of items visible to the actor plus pagination info.
// Visibility is pushed into the store as one disjunctive predicate mirroring
// the resolver's read rules.
func (g *Gateway) List(ctx context.Context, actor model.Principal, req model.ListItemsRequest) ([]*model.Item, model.Pagination, error) {
	teamIDs, err := g.index.TeamsOf(ctx, actor.ID)
	if err != nil {
		return nil, model.Pagination{}, err
	}
	items, total, err := g.store.Items().ListVisible(ctx, actor.ID, teamIDs, req)
	if err != nil {
		return nil, model.Pagination{}, err
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 20
	}
	page := req.Page
	if page <= 0 {
		page = 1
	}
	pages := (total + limit - 1) / limit
	return items, model.Pagination{Page: page, Limit: limit, Total: total, Pages: pages}, nil
}

// Mutate applies a patch behind a policy check. The required action depends
// on the patch: a pure comment append needs only the comment grant, changes
// to access-control fields need manage, everything else needs write. On
// allow, the patched item and its classified events are persisted in one
// transaction; the events are returned for observability only.
func (g *Gateway) Mutate(ctx context.Context, actor model.Principal, kind model.Kind, itemID string, p *Patch) (*model.Item, []model.Event, error) {
	before, err := g.store.Items().Get(ctx, kind, itemID)
	if err != nil {
		return nil, nil, err
	}

	action := policy.ActionWrite
	if p.commentOnly() {
		action = policy.ActionComment
	}
	decision, err := g.resolver.Resolve(ctx, actor, before, action)
	if err != nil {
		g.log.Warn().Err(err).Str("item_id", itemID).Msg("policy resolution degraded, denying")
		return nil, nil, model.ErrNotFound
	}
	if !decision.Allowed {
		return nil, nil, model.ErrNotFound
	}
	if p.changesACL() && !decision.Grants.Allows(policy.ActionManage) {
		return nil, nil, model.ErrNotFound
	}

	now := g.now()
	after := p.apply(before, actor, now)
	events := classify.Changes(before, after, actor)

	baseVersion := before.Version
	if p.BaseVersion != nil {
		baseVersion = *p.BaseVersion
	}
	updated, err := g.store.Items().Update(ctx, after, baseVersion, events)
	if err != nil {
		return nil, nil, err
	}
	g.log.Info().Str("kind", string(kind)).Str("item_id", itemID).Str("actor", actor.ID).
		Int64("version", updated.Version).Int("events", len(events)).Msg("item mutated")
	return updated, events, nil
}

// Delete removes the item when the actor holds the delete grant; denial is
// ErrNotFound like every other policy failure.
func (g *Gateway) Delete(ctx context.Context, actor model.Principal, kind model.Kind, itemID string) error {
	it, err := g.store.Items().Get(ctx, kind, itemID)
	if err != nil {
		return err
	}
	decision, err := g.resolver.Resolve(ctx, actor, it, policy.ActionDelete)
	if err != nil {
		g.log.Warn().Err(err).Str("item_id", itemID).Msg("policy resolution degraded, denying")
		return model.ErrNotFound
	}
	if !decision.Allowed {
		return model.ErrNotFound
	}
	if err := g.store.Items().Delete(ctx, kind, itemID); err != nil {
		return err
	}
	g.log.Info().Str("kind", string(kind)).Str("item_id", itemID).Str("actor", actor.ID).Msg("item deleted")
	return nil
}
