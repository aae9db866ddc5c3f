package persistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// GormMarketTransactionRepository implements market transaction storage
type GormMarketTransactionRepository struct {
	db *gorm.DB
}

// NewGormMarketTransactionRepository creates a new GORM market transaction repository
func NewGormMarketTransactionRepository(db *gorm.DB) *GormMarketTransactionRepository {
	return &GormMarketTransactionRepository{db: db}
}

// Create inserts one settled transaction
func (r *GormMarketTransactionRepository) Create(ctx context.Context, model *MarketTransactionModel) error {
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to create market transaction: %w", err)
	}
	return nil
}

// FindByID retrieves one transaction with its item preloaded
func (r *GormMarketTransactionRepository) FindByID(ctx context.Context, id uint) (*MarketTransactionModel, error) {
	var model MarketTransactionModel
	result := r.db.WithContext(ctx).Preload("Item").First(&model, id)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("market transaction not found: %d", id)
		}
		return nil, fmt.Errorf("failed to find market transaction: %w", result.Error)
	}
	return &model, nil
}

// List retrieves transactions with pagination, newest first, optionally
// scoped to a session.
func (r *GormMarketTransactionRepository) List(ctx context.Context, sessionID *uint, limit, offset int) ([]MarketTransactionModel, int64, error) {
	query := r.db.WithContext(ctx).Model(&MarketTransactionModel{})
	if sessionID != nil {
		query = query.Where("session_id = ?", *sessionID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count market transactions: %w", err)
	}

	var models []MarketTransactionModel
	listQuery := query.Preload("Item").Order("timestamp desc")
	if limit > 0 {
		listQuery = listQuery.Limit(limit).Offset(offset)
	}
	if err := listQuery.Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list market transactions: %w", err)
	}
	return models, total, nil
}
