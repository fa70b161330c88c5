package snapshot

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"primerjalnik/server/config"
	"primerjalnik/server/internal/models"
)

func newTestWriter(t *testing.T) *Writer {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	assert.NoError(t, err)

	cfg := &config.Config{}
	cfg.Snapshot.MaxRetries = 1
	cfg.Snapshot.RetryDelay = 1

	queue := NewListingQueue(4, nil)
	w, err := NewWriter(db, queue, cfg, nil)
	assert.NoError(t, err)
	return w
}

func intPtr(v int) *int { return &v }

func TestWriteBatch_PersistsListings(t *testing.T) {
	w := newTestWriter(t)

	batch := []models.Vehicle{
		{ID: "1", Category: models.CategoryCar, Make: "Toyota", Model: "Corolla", PriceEUR: intPtr(10000)},
		{ID: "2", Category: models.CategoryCar, Make: "Audi", Model: "A4"},
	}
	assert.NoError(t, w.writeBatch(batch))

	var count int64
	assert.NoError(t, w.db.Model(&Row{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestWriteBatch_UpsertsByID(t *testing.T) {
	w := newTestWriter(t)

	assert.NoError(t, w.writeBatch([]models.Vehicle{
		{ID: "1", Category: models.CategoryCar, Make: "Toyota", Model: "Corolla", PriceEUR: intPtr(10000)},
	}))
	assert.NoError(t, w.writeBatch([]models.Vehicle{
		{ID: "1", Category: models.CategoryCar, Make: "Toyota", Model: "Corolla", PriceEUR: intPtr(9500)},
	}))

	var count int64
	assert.NoError(t, w.db.Model(&Row{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	var row Row
	assert.NoError(t, w.db.First(&row, "id = ?", "1").Error)
	assert.Equal(t, 9500, *row.PriceEUR)
}

func TestWriteBatch_SkipsListingsWithoutID(t *testing.T) {
	w := newTestWriter(t)

	assert.NoError(t, w.writeBatch([]models.Vehicle{
		{Make: "Toyota", Model: "Corolla"},
		{ID: "1", Make: "Audi", Model: "A4"},
	}))

	var count int64
	assert.NoError(t, w.db.Model(&Row{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestWriteBatch_EmptyBatchIsNoOp(t *testing.T) {
	w := newTestWriter(t)

	assert.NoError(t, w.writeBatch(nil))

	var count int64
	assert.NoError(t, w.db.Model(&Row{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestNewest_ReturnsMostRecentFirst(t *testing.T) {
	w := newTestWriter(t)

	now := time.Now()
	rows := []Row{
		{ID: "old", Make: "Toyota", FetchedAt: now.Add(-2 * time.Hour)},
		{ID: "newest", Make: "Audi", FetchedAt: now},
		{ID: "middle", Make: "BMW", FetchedAt: now.Add(-1 * time.Hour)},
	}
	assert.NoError(t, w.db.Create(&rows).Error)

	listings, err := w.Newest(context.Background(), 2)

	assert.NoError(t, err)
	assert.Len(t, listings, 2)
	assert.Equal(t, "newest", listings[0].ID)
	assert.Equal(t, "middle", listings[1].ID)
}

func TestNewest_RoundTripsOptionalFields(t *testing.T) {
	w := newTestWriter(t)

	assert.NoError(t, w.writeBatch([]models.Vehicle{
		{ID: "1", Category: models.CategoryCar, Make: "Toyota", Model: "Corolla", PriceEUR: intPtr(10000), Mileage: intPtr(50000)},
		{ID: "2", Category: models.CategoryMotorcycle, Make: "Yamaha", Model: "MT-07"},
	}))

	listings, err := w.Newest(context.Background(), 10)
	assert.NoError(t, err)
	assert.Len(t, listings, 2)

	byID := make(map[string]models.Vehicle, 2)
	for _, v := range listings {
		byID[v.ID] = v
	}

	assert.Equal(t, 10000, *byID["1"].PriceEUR)
	assert.Equal(t, 50000, *byID["1"].Mileage)
	assert.Equal(t, models.CategoryCar, byID["1"].Category)
	assert.Nil(t, byID["2"].PriceEUR)
	assert.Equal(t, models.CategoryMotorcycle, byID["2"].Category)
}

func TestPrune_RemovesOnlyExpiredRows(t *testing.T) {
	w := newTestWriter(t)

	now := time.Now()
	rows := []Row{
		{ID: "stale", FetchedAt: now.Add(-48 * time.Hour)},
		{ID: "fresh", FetchedAt: now.Add(-1 * time.Hour)},
	}
	assert.NoError(t, w.db.Create(&rows).Error)

	removed, err := w.Prune(context.Background(), 24*time.Hour)

	assert.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	var remaining []Row
	assert.NoError(t, w.db.Find(&remaining).Error)
	assert.Len(t, remaining, 1)
	assert.Equal(t, "fresh", remaining[0].ID)
}

func TestWriter_DrainsQueue(t *testing.T) {
	w := newTestWriter(t)
	w.Start()
	defer w.Stop()
	defer w.queue.Close()

	assert.NoError(t, w.queue.Push([]models.Vehicle{{ID: "1", Make: "Toyota"}}))

	assert.Eventually(t, func() bool {
		var count int64
		if err := w.db.Model(&Row{}).Count(&count).Error; err != nil {
			return false
		}
		return count == 1
	}, 2*time.Second, 20*time.Millisecond)
}
