package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"giftshop-bot/internal/model"
)

// EventFilter narrows an audit log listing.
type EventFilter struct {
	PlatformID *int64
	Limit      int
	Offset     int
}

// EventRepository appends and reads the audit log. Rows are never updated.
type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Append(ctx context.Context, event *model.LogEvent) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// List returns events newest first.
func (r *EventRepository) List(ctx context.Context, filter EventFilter) ([]model.LogEvent, error) {
	var events []model.LogEvent
	q := r.db.WithContext(ctx).Order("id DESC")
	if filter.PlatformID != nil {
		q = q.Where("platform_id = ?", *filter.PlatformID)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	if err := q.Find(&events).Error; err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}
