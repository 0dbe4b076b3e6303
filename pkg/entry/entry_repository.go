package entry

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/DigitumDei/WellnessWingman-sub001/entities"
)

type (
	EntryRepository interface {
		Add(ctx context.Context, entry *entities.TrackedEntry) error
		Update(ctx context.Context, entry *entities.TrackedEntry) error
		// UpdateStatus writes only the status and entry type columns.
		UpdateStatus(ctx context.Context, entry *entities.TrackedEntry) error
		// UpdatePayload writes only the payload columns.
		UpdatePayload(ctx context.Context, entry *entities.TrackedEntry) error
		GetByID(ctx context.Context, id uuid.UUID) (*entities.TrackedEntry, error)
		Delete(ctx context.Context, id uuid.UUID) error
		ListByStatus(ctx context.Context, status entities.ProcessingStatus) ([]*entities.TrackedEntry, error)
		ListAll(ctx context.Context) ([]*entities.TrackedEntry, error)
		// ListCapturedBetween returns entries with from <= captured_at < to (UTC).
		ListCapturedBetween(ctx context.Context, from, to time.Time) ([]*entities.TrackedEntry, error)
	}

	entryRepository struct {
		db *gorm.DB
	}
)

func NewEntryRepository(db *gorm.DB) EntryRepository {
	return &entryRepository{db: db}
}

func (r *entryRepository) Add(ctx context.Context, entry *entities.TrackedEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CapturedAt = entry.CapturedAt.UTC()
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *entryRepository) Update(ctx context.Context, entry *entities.TrackedEntry) error {
	entry.CapturedAt = entry.CapturedAt.UTC()
	return r.db.WithContext(ctx).Save(entry).Error
}

func (r *entryRepository) UpdateStatus(ctx context.Context, entry *entities.TrackedEntry) error {
	return r.updateColumns(ctx, entry.ID, map[string]interface{}{
		"processing_status": entry.Status,
		"entry_type":        entry.EntryType,
	})
}

func (r *entryRepository) UpdatePayload(ctx context.Context, entry *entities.TrackedEntry) error {
	return r.updateColumns(ctx, entry.ID, map[string]interface{}{
		"payload":                entry.Payload,
		"payload_schema_version": entry.PayloadSchemaVersion,
	})
}

// updateColumns returns gorm.ErrRecordNotFound when the row is gone.
func (r *entryRepository) updateColumns(ctx context.Context, id uuid.UUID, columns map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&entities.TrackedEntry{}).Where("id = ?", id).Updates(columns)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// GetByID returns gorm.ErrRecordNotFound for an unknown id.
func (r *entryRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.TrackedEntry, error) {
	var entry entities.TrackedEntry
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *entryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entities.TrackedEntry{}).Error
}

func (r *entryRepository) ListByStatus(ctx context.Context, status entities.ProcessingStatus) ([]*entities.TrackedEntry, error) {
	var entries []*entities.TrackedEntry
	if err := r.db.WithContext(ctx).
		Where("processing_status = ?", status).
		Order("captured_at asc").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *entryRepository) ListAll(ctx context.Context) ([]*entities.TrackedEntry, error) {
	var entries []*entities.TrackedEntry
	if err := r.db.WithContext(ctx).Order("captured_at desc").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *entryRepository) ListCapturedBetween(ctx context.Context, from, to time.Time) ([]*entities.TrackedEntry, error) {
	var entries []*entities.TrackedEntry
	if err := r.db.WithContext(ctx).
		Where("captured_at >= ? AND captured_at < ?", from.UTC(), to.UTC()).
		Order("captured_at asc").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
