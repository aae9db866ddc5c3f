package persistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// GormMapCompletionRepository implements map run storage using GORM
type GormMapCompletionRepository struct {
	db *gorm.DB
}

// NewGormMapCompletionRepository creates a new GORM map completion repository
func NewGormMapCompletionRepository(db *gorm.DB) *GormMapCompletionRepository {
	return &GormMapCompletionRepository{db: db}
}

// Create inserts one finished run
func (r *GormMapCompletionRepository) Create(ctx context.Context, model *MapCompletionModel) error {
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to create map completion: %w", err)
	}
	return nil
}

// AddItem inserts one per-item delta row for a run
func (r *GormMapCompletionRepository) AddItem(ctx context.Context, model *MapCompletionItemModel) error {
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to create map completion item: %w", err)
	}
	return nil
}

// FindByID retrieves one run with its items and affixes preloaded
func (r *GormMapCompletionRepository) FindByID(ctx context.Context, id uint) (*MapCompletionModel, error) {
	var model MapCompletionModel
	result := r.db.WithContext(ctx).First(&model, id)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("map completion not found: %d", id)
		}
		return nil, fmt.Errorf("failed to find map completion: %w", result.Error)
	}
	return &model, nil
}

// Items retrieves the per-item rows of one run with catalogue items preloaded
func (r *GormMapCompletionRepository) Items(ctx context.Context, completionID uint) ([]MapCompletionItemModel, error) {
	var models []MapCompletionItemModel
	result := r.db.WithContext(ctx).
		Preload("Item").
		Where("map_completion_id = ?", completionID).
		Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to load map completion items: %w", result.Error)
	}
	return models, nil
}

// Affixes retrieves the affixes linked to one run
func (r *GormMapCompletionRepository) Affixes(ctx context.Context, completionID uint) ([]AffixModel, error) {
	var models []AffixModel
	result := r.db.WithContext(ctx).
		Joins("JOIN map_affixes ON map_affixes.affix_id = affixes.id").
		Where("map_affixes.map_completion_id = ?", completionID).
		Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to load map completion affixes: %w", result.Error)
	}
	return models, nil
}

// BestDuration returns the fastest previous run of a map for a player, or
// zero when this is the first.
func (r *GormMapCompletionRepository) BestDuration(ctx context.Context, playerID uint, mapID int) (float64, error) {
	var best float64
	result := r.db.WithContext(ctx).Model(&MapCompletionModel{}).
		Where("player_id = ? AND map_id = ?", playerID, mapID).
		Select("COALESCE(MIN(duration), 0)").
		Scan(&best)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to query best duration: %w", result.Error)
	}
	return best, nil
}

// Update applies a partial edit to a run
func (r *GormMapCompletionRepository) Update(ctx context.Context, id uint, updates map[string]interface{}) (*MapCompletionModel, error) {
	model, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(model).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update map completion: %w", err)
	}
	return model, nil
}

// Delete removes a run and its dependent rows
func (r *GormMapCompletionRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("map_completion_id = ?", id).Delete(&MapCompletionItemModel{}).Error; err != nil {
			return fmt.Errorf("failed to delete map completion items: %w", err)
		}
		if err := tx.Where("map_completion_id = ?", id).Delete(&MapAffixModel{}).Error; err != nil {
			return fmt.Errorf("failed to delete map affix links: %w", err)
		}
		result := tx.Delete(&MapCompletionModel{}, id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete map completion: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("map completion not found: %d", id)
		}
		return nil
	})
}

// List retrieves runs with pagination, newest first, optionally scoped to a
// session.
func (r *GormMapCompletionRepository) List(ctx context.Context, sessionID *uint, limit, offset int) ([]MapCompletionModel, int64, error) {
	query := r.db.WithContext(ctx).Model(&MapCompletionModel{})
	if sessionID != nil {
		query = query.Where("session_id = ?", *sessionID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count map completions: %w", err)
	}

	var models []MapCompletionModel
	listQuery := query.Order("completed_at desc")
	if limit > 0 {
		listQuery = listQuery.Limit(limit).Offset(offset)
	}
	if err := listQuery.Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list map completions: %w", err)
	}
	return models, total, nil
}
