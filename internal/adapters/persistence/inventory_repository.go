package persistence

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// GormInventoryRepository implements persisted bag storage using GORM
type GormInventoryRepository struct {
	db *gorm.DB
}

// NewGormInventoryRepository creates a new GORM inventory repository
func NewGormInventoryRepository(db *gorm.DB) *GormInventoryRepository {
	return &GormInventoryRepository{db: db}
}

// UpsertSlot writes one (player, page, slot) row. The item reference is the
// catalogue primary key, not the game item id.
func (r *GormInventoryRepository) UpsertSlot(ctx context.Context, playerID, itemID uint, page, slot, quantity int) error {
	var model InventoryItemModel
	result := r.db.WithContext(ctx).
		Where("player_id = ? AND page = ? AND slot = ?", playerID, page, slot).
		First(&model)

	if result.Error == gorm.ErrRecordNotFound {
		model = InventoryItemModel{
			PlayerID:  playerID,
			ItemID:    itemID,
			Page:      page,
			Slot:      slot,
			Quantity:  quantity,
			UpdatedAt: time.Now(),
		}
		if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
			return fmt.Errorf("failed to create inventory slot: %w", err)
		}
		return nil
	}
	if result.Error != nil {
		return fmt.Errorf("failed to find inventory slot: %w", result.Error)
	}

	updates := map[string]interface{}{
		"item_id":    itemID,
		"quantity":   quantity,
		"updated_at": time.Now(),
	}
	if err := r.db.WithContext(ctx).Model(&model).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update inventory slot: %w", err)
	}
	return nil
}

// DeleteSlot removes one (player, page, slot) row. Deleting an absent slot is
// not an error.
func (r *GormInventoryRepository) DeleteSlot(ctx context.Context, playerID uint, page, slot int) error {
	result := r.db.WithContext(ctx).
		Where("player_id = ? AND page = ? AND slot = ?", playerID, page, slot).
		Delete(&InventoryItemModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete inventory slot: %w", result.Error)
	}
	return nil
}

// LoadForPlayer retrieves the persisted bag for a player with items preloaded
func (r *GormInventoryRepository) LoadForPlayer(ctx context.Context, playerID uint) ([]InventoryItemModel, error) {
	var models []InventoryItemModel
	result := r.db.WithContext(ctx).
		Preload("Item").
		Where("player_id = ?", playerID).
		Order("page, slot").
		Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to load inventory: %w", result.Error)
	}
	return models, nil
}
