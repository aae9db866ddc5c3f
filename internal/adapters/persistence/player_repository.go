package persistence

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// GormPlayerRepository implements player storage using GORM
type GormPlayerRepository struct {
	db *gorm.DB
}

// NewGormPlayerRepository creates a new GORM player repository
func NewGormPlayerRepository(db *gorm.DB) *GormPlayerRepository {
	return &GormPlayerRepository{db: db}
}

// FindByName retrieves a player by character name
func (r *GormPlayerRepository) FindByName(ctx context.Context, name string) (*PlayerModel, error) {
	var model PlayerModel
	result := r.db.WithContext(ctx).Where("name = ?", name).First(&model)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("player not found: %s", name)
		}
		return nil, fmt.Errorf("failed to find player: %w", result.Error)
	}
	return &model, nil
}

// GetOrCreate returns the player with the given name, creating the row on
// first sight and stamping last_seen either way.
func (r *GormPlayerRepository) GetOrCreate(ctx context.Context, name string) (*PlayerModel, error) {
	var model PlayerModel
	result := r.db.WithContext(ctx).Where("name = ?", name).First(&model)
	if result.Error == gorm.ErrRecordNotFound {
		model = PlayerModel{
			Name:      name,
			Level:     1,
			LastSeen:  time.Now(),
			CreatedAt: time.Now(),
		}
		if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
			return nil, fmt.Errorf("failed to create player: %w", err)
		}
		return &model, nil
	}
	if result.Error != nil {
		return nil, fmt.Errorf("failed to find player: %w", result.Error)
	}

	model.LastSeen = time.Now()
	if err := r.db.WithContext(ctx).Model(&model).Update("last_seen", model.LastSeen).Error; err != nil {
		return nil, fmt.Errorf("failed to update player: %w", err)
	}
	return &model, nil
}

// UpdateExperience stores the latest level and experience for a player
func (r *GormPlayerRepository) UpdateExperience(ctx context.Context, playerID uint, level, experience int) error {
	result := r.db.WithContext(ctx).Model(&PlayerModel{}).
		Where("id = ?", playerID).
		Updates(map[string]interface{}{
			"level":      level,
			"experience": experience,
			"last_seen":  time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update player experience: %w", result.Error)
	}
	return nil
}

// ListAll retrieves all players
func (r *GormPlayerRepository) ListAll(ctx context.Context) ([]PlayerModel, error) {
	var models []PlayerModel
	if err := r.db.WithContext(ctx).Order("name").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	return models, nil
}
