package psql

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/Taverna-Hub/Projeto-AVD/internal/domain/entity"
)

// GormOutcomeRepo persists run outcomes as a sync audit log.
type GormOutcomeRepo struct {
	DB *gorm.DB
}

func NewGormOutcomeRepo(db *gorm.DB) *GormOutcomeRepo {
	return &GormOutcomeRepo{DB: db}
}

func (r *GormOutcomeRepo) SaveOutcome(ctx context.Context, outcome *entity.RunOutcome) error {
	return r.DB.WithContext(ctx).Create(outcome).Error
}

// RecentOutcomes returns the newest outcomes, newest first.
func (r *GormOutcomeRepo) RecentOutcomes(ctx context.Context, limit int) ([]entity.RunOutcome, error) {
	if limit <= 0 {
		limit = 50
	}

	var outcomes []entity.RunOutcome
	err := r.DB.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&outcomes).Error
	if err != nil {
		return nil, fmt.Errorf("list outcomes: %w", err)
	}
	return outcomes, nil
}
