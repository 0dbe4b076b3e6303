package capture

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/DigitumDei/WellnessWingman-sub001/entities"
)

type (
	// Store is the single-slot staging register for a photo capture in progress.
	Store interface {
		Save(ctx context.Context, capture *entities.PendingCapture) error
		Get(ctx context.Context) (*entities.PendingCapture, error)
		Clear(ctx context.Context) error
		// ClearIfCurrent clears the slot only while it still holds originalPath.
		ClearIfCurrent(ctx context.Context, originalPath string) error
	}

	captureStore struct {
		db *gorm.DB
	}
)

func NewCaptureStore(db *gorm.DB) Store {
	return &captureStore{db: db}
}

// Save replaces whatever capture is staged. Last writer wins.
func (s *captureStore) Save(ctx context.Context, capture *entities.PendingCapture) error {
	if capture == nil {
		return errors.New("pending capture is nil")
	}
	capture.ID = entities.PendingCaptureSlot
	capture.CapturedAt = capture.CapturedAt.UTC()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(capture).Error; err != nil {
			return fmt.Errorf("save pending capture: %w", err)
		}
		return nil
	})
}

// Get returns nil, nil when nothing is staged.
func (s *captureStore) Get(ctx context.Context) (*entities.PendingCapture, error) {
	var capture entities.PendingCapture
	if err := s.db.WithContext(ctx).Where("id = ?", entities.PendingCaptureSlot).First(&capture).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &capture, nil
}

func (s *captureStore) Clear(ctx context.Context) error {
	return s.db.WithContext(ctx).Where("id = ?", entities.PendingCaptureSlot).Delete(&entities.PendingCapture{}).Error
}

func (s *captureStore) ClearIfCurrent(ctx context.Context, originalPath string) error {
	return s.db.WithContext(ctx).
		Where("id = ? AND original_relative_path = ?", entities.PendingCaptureSlot, originalPath).
		Delete(&entities.PendingCapture{}).Error
}
