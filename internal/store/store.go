package store

import (
	"context"
	"time"

	"github.com/haventeam/haven/internal/model"
)

// Store exposes persistence operations required by the gateway, the fan-out
// engine and the HTTP services. Implementations live under
// internal/store/<driver>/ (e.g., postgres) plus the in-memory test store.
type Store interface {
	Items() Items
	Teams() Teams
	Notifications() Notifications
}

// Items persists the polymorphic resource documents. Create and Update accept
// the domain events classified from the mutation; implementations must write
// the item and its events atomically (transactional outbox) so a committed
// mutation can never lose its fan-out.
type Items interface {
	Create(ctx context.Context, it *model.Item, events []model.Event) (*model.Item, error)
	Get(ctx context.Context, kind model.Kind, itemID string) (*model.Item, error)
	// ListVisible returns the page of items the principal may read, applying
	// the union of grant rules (owner, collaborator, share, team, public) as
	// a single disjunctive predicate, plus the total match count.
	ListVisible(ctx context.Context, principalID string, teamIDs []string, req model.ListItemsRequest) ([]*model.Item, int, error)
	// Update persists it only when baseVersion matches the stored version;
	// a stale base fails with model.ErrConflict.
	Update(ctx context.Context, it *model.Item, baseVersion int64, events []model.Event) (*model.Item, error)
	Delete(ctx context.Context, kind model.Kind, itemID string) error
}

// Teams persists team documents. Update carries classified team events under
// the same atomicity contract as Items.Update.
type Teams interface {
	Create(ctx context.Context, t *model.Team) (*model.Team, error)
	Get(ctx context.Context, teamID string) (*model.Team, error)
	ListByUser(ctx context.Context, userID string) ([]*model.Team, error)
	Update(ctx context.Context, t *model.Team, baseVersion int64, events []model.Event) (*model.Team, error)
	Delete(ctx context.Context, teamID string) error
}

// Notifications persists per-recipient notification records. All read-side
// operations are recipient-scoped; a recipient can never observe or mutate
// another user's records.
type Notifications interface {
	CreateBatch(ctx context.Context, ns []*model.Notification) ([]*model.Notification, error)
	List(ctx context.Context, req model.ListNotificationsRequest) ([]*model.Notification, int, error)
	CountUnread(ctx context.Context, recipient string) (int, error)
	// MarkRead sets is_read on the recipient's unread records, either all of
	// them or the given ids, stamping readAt. Returns the number updated.
	MarkRead(ctx context.Context, recipient string, ids []string, all bool, at time.Time) (int, error)
	// Delete removes the recipient's records, either all or the given ids.
	Delete(ctx context.Context, recipient string, ids []string, all bool) (int, error)
}
