package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"giftshop-bot/internal/model"
)

// UserRepository handles the user directory and subscription columns.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Upsert creates the user or refreshes its handle in a single statement.
func (r *UserRepository) Upsert(ctx context.Context, platformID int64, handle string) error {
	user := model.User{PlatformID: platformID, Handle: handle}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "platform_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"handle", "updated_at"}),
	}).Create(&user).Error
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// Ensure creates the user when missing and leaves an existing row untouched.
func (r *UserRepository) Ensure(ctx context.Context, platformID int64) error {
	user := model.User{PlatformID: platformID}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "platform_id"}},
		DoNothing: true,
	}).Create(&user).Error
	if err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}
	return nil
}

func (r *UserRepository) FindByPlatformID(ctx context.Context, platformID int64) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("platform_id = ?", platformID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByHandle matches the stored handle case-insensitively.
func (r *UserRepository) FindByHandle(ctx context.Context, handle string) (*model.User, error) {
	handle = strings.ToLower(strings.TrimSpace(handle))
	if handle == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var user model.User
	if err := r.db.WithContext(ctx).Where("LOWER(handle) = ?", handle).Order("updated_at DESC").First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// List returns users newest id first. A non-positive limit returns everything after offset.
func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]model.User, error) {
	var users []model.User
	q := r.db.WithContext(ctx).Order("platform_id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	if err := q.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// ListBroadcastTargets returns ids of every user without a ban row.
func (r *UserRepository) ListBroadcastTargets(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("NOT EXISTS (SELECT 1 FROM bans b WHERE b.platform_id = users.platform_id)").
		Order("platform_id ASC").
		Pluck("platform_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list broadcast targets: %w", err)
	}
	return ids, nil
}

// ListExpiring returns non-banned subscribers whose subscription ends in (from, to].
func (r *UserRepository) ListExpiring(ctx context.Context, from, to time.Time) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).
		Where("is_subscribed = ? AND subscription_until IS NOT NULL AND subscription_until > ? AND subscription_until <= ?", true, from.UTC(), to.UTC()).
		Where("NOT EXISTS (SELECT 1 FROM bans b WHERE b.platform_id = users.platform_id)").
		Order("subscription_until ASC").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("list expiring: %w", err)
	}
	return users, nil
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.User{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// CountValidSubscribers counts users whose subscription is valid at now.
func (r *UserRepository) CountValidSubscribers(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("is_subscribed = ? AND (subscription_until IS NULL OR subscription_until > ?)", true, now.UTC()).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count subscribers: %w", err)
	}
	return n, nil
}

// ExtendSubscription adds d to max(now, current expiry) and returns the new expiry.
// The user row is created when missing. Times are stored in UTC so that SQLite
// text comparisons stay ordered.
func (r *UserRepository) ExtendSubscription(ctx context.Context, platformID int64, d time.Duration, now time.Time) (time.Time, error) {
	var until time.Time
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "platform_id"}},
			DoNothing: true,
		}).Create(&model.User{PlatformID: platformID}).Error; err != nil {
			return fmt.Errorf("ensure user: %w", err)
		}

		q := tx
		if tx.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var user model.User
		if err := q.Where("platform_id = ?", platformID).First(&user).Error; err != nil {
			return fmt.Errorf("load user: %w", err)
		}

		base := now.UTC()
		if user.SubscriptionUntil != nil && user.SubscriptionUntil.After(base) {
			base = user.SubscriptionUntil.UTC()
		}
		until = base.Add(d)

		if err := tx.Model(&model.User{}).Where("platform_id = ?", platformID).Updates(map[string]interface{}{
			"is_subscribed":      true,
			"subscription_until": until,
		}).Error; err != nil {
			return fmt.Errorf("update subscription: %w", err)
		}
		return nil
	})
	if err != nil {
		return time.Time{}, err
	}
	return until, nil
}

// Revoke clears the subscription regardless of its state. Unknown users are a no-op.
func (r *UserRepository) Revoke(ctx context.Context, platformID int64) error {
	err := r.db.WithContext(ctx).Model(&model.User{}).Where("platform_id = ?", platformID).Updates(map[string]interface{}{
		"is_subscribed":      false,
		"subscription_until": nil,
	}).Error
	if err != nil {
		return fmt.Errorf("revoke subscription: %w", err)
	}
	return nil
}

// IsNotFound reports whether err is a missing-row error from this package.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
