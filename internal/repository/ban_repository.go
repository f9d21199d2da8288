package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"giftshop-bot/internal/model"
)

// BanRepository manages the ban list.
type BanRepository struct {
	db *gorm.DB
}

func NewBanRepository(db *gorm.DB) *BanRepository {
	return &BanRepository{db: db}
}

// Ban inserts the ban or replaces reason and timestamp of an existing one.
func (r *BanRepository) Ban(ctx context.Context, platformID int64, reason string, at time.Time) error {
	ban := model.Ban{PlatformID: platformID, Reason: reason, BannedAt: at.UTC()}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "platform_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"reason", "banned_at"}),
	}).Create(&ban).Error
	if err != nil {
		return fmt.Errorf("ban user: %w", err)
	}
	return nil
}

// Unban deletes the ban row and reports whether one existed.
func (r *BanRepository) Unban(ctx context.Context, platformID int64) (bool, error) {
	res := r.db.WithContext(ctx).Where("platform_id = ?", platformID).Delete(&model.Ban{})
	if res.Error != nil {
		return false, fmt.Errorf("unban user: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *BanRepository) IsBanned(ctx context.Context, platformID int64) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.Ban{}).Where("platform_id = ?", platformID).Count(&n).Error; err != nil {
		return false, fmt.Errorf("check ban: %w", err)
	}
	return n > 0, nil
}

func (r *BanRepository) Find(ctx context.Context, platformID int64) (*model.Ban, error) {
	var ban model.Ban
	if err := r.db.WithContext(ctx).Where("platform_id = ?", platformID).First(&ban).Error; err != nil {
		return nil, err
	}
	return &ban, nil
}

func (r *BanRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.Ban{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count bans: %w", err)
	}
	return n, nil
}
