package repository

import (
	"context"

	"gorm.io/gorm"

	"giftshop-bot/internal/model"
)

// GiftRepository reads the storefront catalog.
type GiftRepository struct {
	db *gorm.DB
}

func NewGiftRepository(db *gorm.DB) *GiftRepository {
	return &GiftRepository{db: db}
}

func (r *GiftRepository) FindByID(ctx context.Context, id uint) (*model.Gift, error) {
	var gift model.Gift
	if err := r.db.WithContext(ctx).First(&gift, id).Error; err != nil {
		return nil, err
	}
	return &gift, nil
}
