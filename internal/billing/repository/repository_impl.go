package repository

import (
	"context"

	"github.com/loomsite/loomsite/internal/billing/domain"
	"github.com/loomsite/loomsite/pkg/db"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func Provide(conn *gorm.DB) domain.Repository {
	return &repo{db: conn}
}

// InsertEvent persists one webhook event. The unique index on
// (provider, provider_event_id) makes replays surface as ErrDuplicateEvent.
func (r *repo) InsertEvent(ctx context.Context, event *domain.BillingEvent) error {
	err := r.db.WithContext(ctx).Exec(
		`INSERT INTO billing_events (
			id, tenant_id, provider, provider_event_id, event_type, plan_key, payload, received_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.TenantID,
		event.Provider,
		event.ProviderEventID,
		event.EventType,
		event.PlanKey,
		event.Payload,
		event.ReceivedAt,
	).Error
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.ErrDuplicateEvent
		}
		return err
	}
	return nil
}
