// Package fanout resolves events into persisted per-recipient notification
// records.
package fanout

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/haventeam/haven/internal/model"
	"github.com/haventeam/haven/internal/store"
)

// Engine builds and batch-inserts notification records for classified events.
// It is invoked by the notifier worker draining the outbox, so a failed
// dispatch is retried there and can never affect the already-committed
// resource mutation.
type Engine struct {
	notifications store.Notifications
	log           zerolog.Logger
}

func NewEngine(n store.Notifications, log zerolog.Logger) *Engine {
	return &Engine{notifications: n, log: log}
}

// Dispatch resolves the recipient set of each event, drops the actor
// unconditionally even if a rule left them in, dedupes by recipient id, and
// persists one record per remaining recipient in a single batch.
func (e *Engine) Dispatch(ctx context.Context, events []model.Event) ([]*model.Notification, error) {
	var records []*model.Notification
	for _, ev := range events {
		seen := map[string]bool{}
		for _, recipient := range ev.Recipients {
			if recipient == "" || recipient == ev.ActorID || seen[recipient] {
				continue
			}
			seen[recipient] = true
			records = append(records, &model.Notification{
				Recipient: recipient,
				Type:      ev.Type,
				Title:     ev.Title,
				Message:   ev.Message,
				Data: model.NotificationData{
					ItemType: ev.ItemType,
					ItemID:   ev.ItemID,
					ActorID:  ev.ActorID,
					Metadata: ev.Metadata,
				},
			})
		}
	}
	if len(records) == 0 {
		return nil, nil
	}

	created, err := e.notifications.CreateBatch(ctx, records)
	if err != nil {
		e.log.Error().Err(err).Int("records", len(records)).Msg("notification batch insert failed")
		return nil, err
	}
	e.log.Debug().Int("events", len(events)).Int("records", len(created)).Msg("notifications dispatched")
	return created, nil
}
