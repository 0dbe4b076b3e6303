package analysis

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/DigitumDei/WellnessWingman-sub001/entities"
)

type (
	AnalysisRepository interface {
		Add(ctx context.Context, analysis *entities.EntryAnalysis) error
		GetLatestForEntry(ctx context.Context, entryID uuid.UUID) (*entities.EntryAnalysis, error)
		ListForEntry(ctx context.Context, entryID uuid.UUID) ([]*entities.EntryAnalysis, error)
		DeleteForEntry(ctx context.Context, entryID uuid.UUID) error
	}

	analysisRepository struct {
		db *gorm.DB
	}
)

func NewAnalysisRepository(db *gorm.DB) AnalysisRepository {
	return &analysisRepository{db: db}
}

func (r *analysisRepository) Add(ctx context.Context, analysis *entities.EntryAnalysis) error {
	if analysis.ID == uuid.Nil {
		analysis.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(analysis).Error
}

// GetLatestForEntry returns gorm.ErrRecordNotFound when the entry has never
// been analysed.
func (r *analysisRepository) GetLatestForEntry(ctx context.Context, entryID uuid.UUID) (*entities.EntryAnalysis, error) {
	var analysis entities.EntryAnalysis
	err := r.db.WithContext(ctx).
		Where("entry_id = ?", entryID).
		Order("captured_at desc").
		Order("created_at desc").
		First(&analysis).Error
	if err != nil {
		return nil, err
	}
	return &analysis, nil
}

func (r *analysisRepository) ListForEntry(ctx context.Context, entryID uuid.UUID) ([]*entities.EntryAnalysis, error) {
	var analyses []*entities.EntryAnalysis
	if err := r.db.WithContext(ctx).Where("entry_id = ?", entryID).Order("captured_at desc").Find(&analyses).Error; err != nil {
		return nil, err
	}
	return analyses, nil
}

func (r *analysisRepository) DeleteForEntry(ctx context.Context, entryID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("entry_id = ?", entryID).Delete(&entities.EntryAnalysis{}).Error
}
