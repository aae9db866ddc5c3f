package persistence

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// GormItemRepository implements item catalogue storage using GORM
type GormItemRepository struct {
	db *gorm.DB
}

// NewGormItemRepository creates a new GORM item repository
func NewGormItemRepository(db *gorm.DB) *GormItemRepository {
	return &GormItemRepository{db: db}
}

// FindByItemID retrieves an item by its game id
func (r *GormItemRepository) FindByItemID(ctx context.Context, itemID int) (*ItemModel, error) {
	var model ItemModel
	result := r.db.WithContext(ctx).Where("item_id = ?", itemID).First(&model)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("item not found: %d", itemID)
		}
		return nil, fmt.Errorf("failed to find item: %w", result.Error)
	}
	return &model, nil
}

// GetOrCreate returns the catalogue row for a game item id, creating it with
// the given metadata on first sight. Existing rows keep their stored values.
func (r *GormItemRepository) GetOrCreate(ctx context.Context, itemID int, name, category string) (*ItemModel, error) {
	var model ItemModel
	result := r.db.WithContext(ctx).Where("item_id = ?", itemID).First(&model)
	if result.Error == gorm.ErrRecordNotFound {
		model = ItemModel{ItemID: itemID, UpdatedAt: time.Now()}
		if name != "" {
			model.Name = &name
		}
		if category != "" {
			model.Category = &category
		}
		if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
			return nil, fmt.Errorf("failed to create item: %w", err)
		}
		return &model, nil
	}
	if result.Error != nil {
		return nil, fmt.Errorf("failed to find item: %w", result.Error)
	}
	return &model, nil
}

// UpsertPrice creates or updates the catalogue row for a game item id with a
// fresh price. Used by price book refreshes.
func (r *GormItemRepository) UpsertPrice(ctx context.Context, itemID int, name, category string, price float64) (*ItemModel, error) {
	model, err := r.GetOrCreate(ctx, itemID, name, category)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"price":      price,
		"updated_at": time.Now(),
	}
	if name != "" && (model.Name == nil || *model.Name == "") {
		updates["name"] = name
	}
	if category != "" && (model.Category == nil || *model.Category == "") {
		updates["category"] = category
	}

	if err := r.db.WithContext(ctx).Model(model).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update item price: %w", err)
	}
	return model, nil
}

// Update applies an administrative edit to an item
func (r *GormItemRepository) Update(ctx context.Context, itemID int, updates map[string]interface{}) (*ItemModel, error) {
	model, err := r.FindByItemID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	updates["updated_at"] = time.Now()
	if err := r.db.WithContext(ctx).Model(model).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update item: %w", err)
	}
	return model, nil
}

// Delete removes an item from the catalogue
func (r *GormItemRepository) Delete(ctx context.Context, itemID int) error {
	result := r.db.WithContext(ctx).Where("item_id = ?", itemID).Delete(&ItemModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete item: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("item not found: %d", itemID)
	}
	return nil
}

// List retrieves items with pagination, newest updates first
func (r *GormItemRepository) List(ctx context.Context, limit, offset int) ([]ItemModel, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&ItemModel{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count items: %w", err)
	}

	var models []ItemModel
	query := r.db.WithContext(ctx).Order("updated_at desc")
	if limit > 0 {
		query = query.Limit(limit).Offset(offset)
	}
	if err := query.Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list items: %w", err)
	}
	return models, total, nil
}

// LoadPrices returns the current item_id -> price map from the catalogue.
// Used to hydrate the price book without re-reading the source file.
func (r *GormItemRepository) LoadPrices(ctx context.Context) (map[int]float64, error) {
	var models []ItemModel
	if err := r.db.WithContext(ctx).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to load item prices: %w", err)
	}

	prices := make(map[int]float64, len(models))
	for _, model := range models {
		prices[model.ItemID] = model.Price
	}
	return prices, nil
}
