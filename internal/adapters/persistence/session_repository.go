package persistence

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// GormSessionRepository implements session storage using GORM
type GormSessionRepository struct {
	db *gorm.DB
}

// NewGormSessionRepository creates a new GORM session repository
func NewGormSessionRepository(db *gorm.DB) *GormSessionRepository {
	return &GormSessionRepository{db: db}
}

// Create starts a new session row
func (r *GormSessionRepository) Create(ctx context.Context, model *SessionModel) error {
	if model.StartedAt.IsZero() {
		model.StartedAt = time.Now()
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// FindByID retrieves one session
func (r *GormSessionRepository) FindByID(ctx context.Context, id uint) (*SessionModel, error) {
	var model SessionModel
	result := r.db.WithContext(ctx).First(&model, id)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("session not found: %d", id)
		}
		return nil, fmt.Errorf("failed to find session: %w", result.Error)
	}
	return &model, nil
}

// FindActive returns all sessions still flagged active, oldest first.
// Normally zero or one; more than one means a past crash left strays behind.
func (r *GormSessionRepository) FindActive(ctx context.Context) ([]SessionModel, error) {
	var models []SessionModel
	result := r.db.WithContext(ctx).
		Where("is_active = ? AND ended_at IS NULL", true).
		Order("started_at").
		Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to find active sessions: %w", result.Error)
	}
	return models, nil
}

// FindActiveForPlayer returns the most recent active session for a player
// name, or nil when none exists.
func (r *GormSessionRepository) FindActiveForPlayer(ctx context.Context, playerName string) (*SessionModel, error) {
	var model SessionModel
	result := r.db.WithContext(ctx).
		Where("is_active = ? AND player_name = ?", true, playerName).
		Order("started_at desc").
		First(&model)
	if result.Error == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if result.Error != nil {
		return nil, fmt.Errorf("failed to find active session: %w", result.Error)
	}
	return &model, nil
}

// Save persists the full session row
func (r *GormSessionRepository) Save(ctx context.Context, model *SessionModel) error {
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Close ends a session: clears the active flag and stamps ended_at in one
// update so the two can never disagree.
func (r *GormSessionRepository) Close(ctx context.Context, id uint, endedAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&SessionModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_active": false,
			"ended_at":  endedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to close session: %w", result.Error)
	}
	return nil
}

// Update applies a partial edit to a session
func (r *GormSessionRepository) Update(ctx context.Context, id uint, updates map[string]interface{}) (*SessionModel, error) {
	model, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(model).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}
	return model, nil
}

// List retrieves sessions with pagination, newest first
func (r *GormSessionRepository) List(ctx context.Context, limit, offset int) ([]SessionModel, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&SessionModel{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count sessions: %w", err)
	}

	var models []SessionModel
	query := r.db.WithContext(ctx).Order("started_at desc")
	if limit > 0 {
		query = query.Limit(limit).Offset(offset)
	}
	if err := query.Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list sessions: %w", err)
	}
	return models, total, nil
}
