// Package services holds the application services sitting between the HTTP
// handlers and the store.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/haventeam/haven/internal/model"
	"github.com/haventeam/haven/internal/store"
)

// NotificationService exposes the recipient-scoped notification operations.
// Every call is implicitly filtered by recipient: a principal can never see,
// mark, or delete anybody else's records.
type NotificationService struct {
	store store.Store
	now   func() time.Time
}

func NewNotificationService(s store.Store) *NotificationService {
	return &NotificationService{store: s, now: func() time.Time { return time.Now().UTC() }}
}

// NotificationPage is the result of a list call: one page plus the unread
// counter clients poll for badges.
type NotificationPage struct {
	Notifications []*model.Notification `json:"notifications"`
	UnreadCount   int                   `json:"unreadCount"`
	Pagination    model.Pagination      `json:"pagination"`
}

func (s *NotificationService) List(ctx context.Context, recipient string, unreadOnly bool, page, limit int) (*NotificationPage, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	ns, total, err := s.store.Notifications().List(ctx, model.ListNotificationsRequest{
		Recipient:  recipient,
		UnreadOnly: unreadOnly,
		Page:       page,
		Limit:      limit,
	})
	if err != nil {
		return nil, err
	}
	unread, err := s.store.Notifications().CountUnread(ctx, recipient)
	if err != nil {
		return nil, err
	}
	return &NotificationPage{
		Notifications: ns,
		UnreadCount:   unread,
		Pagination: model.Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: (total + limit - 1) / limit,
		},
	}, nil
}

// MarkRead flips the unread flag on the given ids, or on everything unread
// when all is set. Exactly one of ids/all must be supplied. Returns the
// remaining unread count so clients can refresh badges without a second call.
func (s *NotificationService) MarkRead(ctx context.Context, recipient string, ids []string, all bool) (int, error) {
	if err := validateSelection(ids, all); err != nil {
		return 0, err
	}
	if _, err := s.store.Notifications().MarkRead(ctx, recipient, ids, all, s.now()); err != nil {
		return 0, err
	}
	return s.store.Notifications().CountUnread(ctx, recipient)
}

// Delete removes the given ids, or every record of the recipient when all is
// set. Returns the number removed.
func (s *NotificationService) Delete(ctx context.Context, recipient string, ids []string, all bool) (int, error) {
	if err := validateSelection(ids, all); err != nil {
		return 0, err
	}
	return s.store.Notifications().Delete(ctx, recipient, ids, all)
}

func validateSelection(ids []string, all bool) error {
	if all && len(ids) > 0 {
		return fmt.Errorf("ids and all are mutually exclusive: %w", model.ErrValidation)
	}
	if !all && len(ids) == 0 {
		return fmt.Errorf("either ids or all is required: %w", model.ErrValidation)
	}
	return nil
}
