package persistence

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// GormPriceRevisionRepository implements price revision audit storage
type GormPriceRevisionRepository struct {
	db *gorm.DB
}

// NewGormPriceRevisionRepository creates a new GORM price revision repository
func NewGormPriceRevisionRepository(db *gorm.DB) *GormPriceRevisionRepository {
	return &GormPriceRevisionRepository{db: db}
}

// Record writes one refresh audit row
func (r *GormPriceRevisionRepository) Record(ctx context.Context, source string, itemCount int) error {
	model := PriceRevisionModel{
		Timestamp: time.Now(),
		Source:    source,
		ItemCount: itemCount,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("failed to record price revision: %w", err)
	}
	return nil
}

// LatestBySource returns the most recent revision from one source, or nil
// when the source has never been used.
func (r *GormPriceRevisionRepository) LatestBySource(ctx context.Context, source string) (*PriceRevisionModel, error) {
	var model PriceRevisionModel
	result := r.db.WithContext(ctx).
		Where("source = ?", source).
		Order("timestamp desc").
		First(&model)
	if result.Error == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if result.Error != nil {
		return nil, fmt.Errorf("failed to find price revision: %w", result.Error)
	}
	return &model, nil
}
