package store

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// Entry is one persisted key/value pair. Values are JSON documents; the key
// namespace carries the ownership (e.g. "watchlist-<userId>").
type Entry struct {
	Key       string `gorm:"primaryKey;column:key"`
	Value     string `gorm:"column:value"`
	UpdatedAt time.Time
}

func (Entry) TableName() string { return "local_entries" }

// Local is the per-origin persisted state of the application: watchlist
// snapshots and the transient search handoff live here.
type Local struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func Open(path string, logger *logrus.Logger) (*Local, error) {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, err
	}

	return &Local{db: db, logger: logger}, nil
}

// DB exposes the underlying handle for components that keep their own tables
// in the same database file.
func (l *Local) DB() *gorm.DB {
	return l.db
}

// Get returns the raw value under key and whether the key exists.
func (l *Local) Get(key string) (string, bool, error) {
	var entry Entry
	err := l.db.First(&entry, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return entry.Value, true, nil
}

// Set writes the value under key, replacing any previous value.
func (l *Local) Set(key, value string) error {
	entry := Entry{Key: key, Value: value, UpdatedAt: time.Now()}
	return l.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		UpdateAll: true,
	}).Create(&entry).Error
}

// Delete removes the key. Deleting a missing key is not an error.
func (l *Local) Delete(key string) error {
	return l.db.Delete(&Entry{}, "key = ?", key).Error
}

// GetJSON decodes the value under key into out. Returns false when the key
// does not exist.
func (l *Local) GetJSON(key string, out interface{}) (bool, error) {
	raw, ok, err := l.Get(key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON encodes v and stores it under key.
func (l *Local) SetJSON(key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return l.Set(key, string(data))
}
