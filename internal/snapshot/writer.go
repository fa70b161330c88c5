package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"primerjalnik/server/config"
	"primerjalnik/server/internal/models"
)

// Row is one persisted listing snapshot. Snapshots are what the
// recommendation backfill means by "most-recent listings": every listing the
// service has fetched lately, newest first.
type Row struct {
	ID                string `gorm:"primaryKey;column:id"`
	Category          string `gorm:"index"`
	Make              string
	Model             string
	PriceEUR          *int
	FirstRegistration *int
	Mileage           *int
	FuelType          string
	Gearbox           string
	EngineKW          *int
	ImageURL          string
	Link              string
	FetchedAt         time.Time `gorm:"index"`
}

func (Row) TableName() string { return "listing_snapshots" }

// Writer drains the listing queue into the snapshot table with retry logic.
type Writer struct {
	db     *gorm.DB
	logger *logrus.Logger
	config *config.Config
	queue  *ListingQueue
	ctx    context.Context
	cancel context.CancelFunc
}

func NewWriter(db *gorm.DB, queue *ListingQueue, cfg *config.Config, logger *logrus.Logger) (*Writer, error) {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	if err := db.AutoMigrate(&Row{}); err != nil {
		return nil, fmt.Errorf("failed to migrate snapshot table: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Writer{
		db:     db,
		queue:  queue,
		config: cfg,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Start subscribes the writer to the queue and begins dispatching. Each
// configured writer drains the queue concurrently.
func (w *Writer) Start() {
	w.queue.Subscribe(func(batch []models.Vehicle) error {
		return w.writeBatch(batch)
	})

	workers := w.config.Snapshot.WriterCount
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		w.queue.Start()
	}
}

// Stop cancels any in-flight retry waits.
func (w *Writer) Stop() {
	w.cancel()
}

// writeBatch upserts one batch with transaction and retry logic.
func (w *Writer) writeBatch(batch []models.Vehicle) error {
	rows := make([]Row, 0, len(batch))
	now := time.Now()
	for _, v := range batch {
		if v.ID == "" {
			continue
		}
		rows = append(rows, toRow(v, now))
	}
	if len(rows) == 0 {
		return nil
	}

	var err error
	for attempt := 0; attempt <= w.config.Snapshot.MaxRetries; attempt++ {
		if attempt > 0 {
			w.logger.Infof("Retrying snapshot write, attempt %d of %d", attempt, w.config.Snapshot.MaxRetries)
			select {
			case <-w.ctx.Done():
				return w.ctx.Err()
			case <-time.After(time.Duration(w.config.Snapshot.RetryDelay) * time.Second):
			}
		}

		err = w.db.Transaction(func(tx *gorm.DB) error {
			return tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				UpdateAll: true,
			}).Create(&rows).Error
		})
		if err == nil {
			w.logger.Infof("Persisted snapshot batch of %d listings", len(rows))
			return nil
		}

		w.logger.Errorf("Snapshot write failed: %v", err)
	}

	return fmt.Errorf("failed to write snapshot batch after %d attempts: %w", w.config.Snapshot.MaxRetries, err)
}

// Newest returns the most recently fetched snapshots, newest first.
func (w *Writer) Newest(ctx context.Context, limit int) ([]models.Vehicle, error) {
	var rows []Row
	err := w.db.WithContext(ctx).
		Order("fetched_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	listings := make([]models.Vehicle, 0, len(rows))
	for _, r := range rows {
		listings = append(listings, r.toVehicle())
	}
	return listings, nil
}

// Prune deletes snapshots older than the retention window and returns how
// many rows were removed.
func (w *Writer) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	result := w.db.WithContext(ctx).Where("fetched_at < ?", cutoff).Delete(&Row{})
	return result.RowsAffected, result.Error
}

func toRow(v models.Vehicle, fetchedAt time.Time) Row {
	return Row{
		ID:                v.ID,
		Category:          string(v.Category),
		Make:              v.Make,
		Model:             v.Model,
		PriceEUR:          v.PriceEUR,
		FirstRegistration: v.FirstRegistration,
		Mileage:           v.Mileage,
		FuelType:          v.FuelType,
		Gearbox:           v.Gearbox,
		EngineKW:          v.EngineKW,
		ImageURL:          v.ImageURL,
		Link:              v.Link,
		FetchedAt:         fetchedAt,
	}
}

func (r Row) toVehicle() models.Vehicle {
	return models.Vehicle{
		ID:                r.ID,
		Category:          models.Category(r.Category),
		Make:              r.Make,
		Model:             r.Model,
		PriceEUR:          r.PriceEUR,
		FirstRegistration: r.FirstRegistration,
		Mileage:           r.Mileage,
		FuelType:          r.FuelType,
		Gearbox:           r.Gearbox,
		EngineKW:          r.EngineKW,
		ImageURL:          r.ImageURL,
		Link:              r.Link,
	}
}
