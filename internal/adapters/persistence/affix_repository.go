package persistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// GormAffixRepository implements affix storage using GORM
type GormAffixRepository struct {
	db *gorm.DB
}

// NewGormAffixRepository creates a new GORM affix repository
func NewGormAffixRepository(db *gorm.DB) *GormAffixRepository {
	return &GormAffixRepository{db: db}
}

// Upsert returns the affix row for a game affix id, creating it on first
// sight. An existing row keeps its description.
func (r *GormAffixRepository) Upsert(ctx context.Context, affixID int, description string) (*AffixModel, error) {
	var model AffixModel
	result := r.db.WithContext(ctx).Where("affix_id = ?", affixID).First(&model)
	if result.Error == gorm.ErrRecordNotFound {
		model = AffixModel{AffixID: affixID}
		if description != "" {
			model.Description = &description
		}
		if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
			return nil, fmt.Errorf("failed to create affix: %w", err)
		}
		return &model, nil
	}
	if result.Error != nil {
		return nil, fmt.Errorf("failed to find affix: %w", result.Error)
	}
	return &model, nil
}

// Link attaches an affix to a map completion. Linking twice is a no-op.
func (r *GormAffixRepository) Link(ctx context.Context, completionID, affixDBID uint) error {
	var existing MapAffixModel
	result := r.db.WithContext(ctx).
		Where("map_completion_id = ? AND affix_id = ?", completionID, affixDBID).
		First(&existing)
	if result.Error == nil {
		return nil
	}
	if result.Error != gorm.ErrRecordNotFound {
		return fmt.Errorf("failed to check affix link: %w", result.Error)
	}

	link := MapAffixModel{MapCompletionID: completionID, AffixID: affixDBID}
	if err := r.db.WithContext(ctx).Create(&link).Error; err != nil {
		return fmt.Errorf("failed to link affix: %w", err)
	}
	return nil
}
