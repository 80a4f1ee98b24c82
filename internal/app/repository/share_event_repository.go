package repository

import (
	"context"

	"github.com/sifan077/PowerDrive/internal/app/model"
	"gorm.io/gorm"
)

// ShareEventRepository defines the data access contract for share audit events.
type ShareEventRepository interface {
	Create(ctx context.Context, event *model.ShareEvent) error
	ListByLinkID(ctx context.Context, linkID uint64) ([]model.ShareEvent, error)
}

type shareEventRepository struct {
	db *gorm.DB
}

// NewShareEventRepository returns a GORM-backed ShareEventRepository.
func NewShareEventRepository(db *gorm.DB) ShareEventRepository {
	return &shareEventRepository{db: db}
}

// Create is idempotent on the event id so redelivered messages are harmless.
func (r *shareEventRepository) Create(ctx context.Context, event *model.ShareEvent) error {
	return r.db.WithContext(ctx).
		Where(model.ShareEvent{ID: event.ID}).
		FirstOrCreate(event).Error
}

func (r *shareEventRepository) ListByLinkID(ctx context.Context, linkID uint64) ([]model.ShareEvent, error) {
	var events []model.ShareEvent
	if err := r.db.WithContext(ctx).
		Where("link_id = ?", linkID).
		Order("timestamp ASC").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
