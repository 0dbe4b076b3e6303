package capture

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/DigitumDei/WellnessWingman-sub001/entities"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "capture.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&entities.PendingCapture{}))
	return db
}

func strPtr(s string) *string { return &s }

func TestCaptureStore_EmptyGetReturnsNil(t *testing.T) {
	store := NewCaptureStore(openTestDB(t))

	got, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCaptureStore_SaveOverwritesSlot(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	store := NewCaptureStore(db)

	first := &entities.PendingCapture{
		OriginalRelativePath: "captures/a.jpg",
		CapturedAt:           time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.Save(ctx, first))

	second := &entities.PendingCapture{
		OriginalRelativePath: "captures/b.jpg",
		PreviewRelativePath:  "captures/b_preview.jpg",
		CapturedAt:           time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
		TimeZoneID:           strPtr("Europe/Amsterdam"),
	}
	require.NoError(t, store.Save(ctx, second))

	var count int64
	require.NoError(t, db.Model(&entities.PendingCapture{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	got, err := store.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, entities.PendingCaptureSlot, got.ID)
	assert.Equal(t, "captures/b.jpg", got.OriginalRelativePath)
	assert.Equal(t, "captures/b_preview.jpg", got.PreviewRelativePath)
	require.NotNil(t, got.TimeZoneID)
	assert.Equal(t, "Europe/Amsterdam", *got.TimeZoneID)
	assert.True(t, got.CapturedAt.Equal(second.CapturedAt))
}

func TestCaptureStore_ClearIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewCaptureStore(openTestDB(t))

	require.NoError(t, store.Clear(ctx))
	require.NoError(t, store.Save(ctx, &entities.PendingCapture{OriginalRelativePath: "x.jpg", CapturedAt: time.Now()}))
	require.NoError(t, store.Clear(ctx))
	require.NoError(t, store.Clear(ctx))

	got, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCaptureStore_ConcurrentSavesKeepOneRow(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	store := NewCaptureStore(db)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, store.Save(ctx, &entities.PendingCapture{
				OriginalRelativePath: filepath.Join("captures", string(rune('a'+i))+".jpg"),
				CapturedAt:           time.Now(),
			}))
		}(i)
	}
	wg.Wait()

	var count int64
	require.NoError(t, db.Model(&entities.PendingCapture{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestCaptureStore_ClearIfCurrent(t *testing.T) {
	store := NewCaptureStore(openTestDB(t))
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, &entities.PendingCapture{OriginalRelativePath: "entries/b.jpg", CapturedAt: time.Now()}))

	require.NoError(t, store.ClearIfCurrent(ctx, "entries/a.jpg"))
	got, err := store.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "entries/b.jpg", got.OriginalRelativePath)

	require.NoError(t, store.ClearIfCurrent(ctx, "entries/b.jpg"))
	got, err = store.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}
