package datastore

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/somnetics/apnea-go/internal/errors"
	"github.com/somnetics/apnea-go/internal/logging"
)

// SQLiteStore persists sessions and events in a local SQLite file.
type SQLiteStore struct {
	path  string
	debug bool
	db    *gorm.DB
	log   *slog.Logger
}

// Open creates the database file (and parent directory) if needed and runs
// schema migration.
func (s *SQLiteStore) Open() error {
	s.log = logging.ForService("datastore")

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.New(err).
				Component("datastore").
				Category(errors.CategoryFileIO).
				FileContext(s.path, 0).
				Build()
		}
	}

	level := logger.Silent
	if s.debug {
		level = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(s.path), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("path", s.path).
			Build()
	}

	s.db = db
	if err := performAutoMigration(db); err != nil {
		return err
	}

	s.log.Info("event store opened", "path", s.path)
	return nil
}

// Close releases the underlying connection.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CreateSession records the start of a monitoring run.
func (s *SQLiteStore) CreateSession(session *Session) error {
	if err := s.db.Create(session).Error; err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "create_session").
			Build()
	}
	return nil
}

// CloseSession stamps the end time on a session.
func (s *SQLiteStore) CloseSession(id string, endedAt time.Time) error {
	result := s.db.Model(&Session{}).Where("id = ?", id).Update("ended_at", endedAt)
	if result.Error != nil {
		return errors.New(result.Error).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "close_session").
			Build()
	}
	return nil
}

// SaveEvent inserts one detection event.
func (s *SQLiteStore) SaveEvent(record *EventRecord) error {
	if err := s.db.Create(record).Error; err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "save_event").
			Build()
	}
	return nil
}

// SessionEvents returns all events of a session in timestamp order.
func (s *SQLiteStore) SessionEvents(sessionID string) ([]EventRecord, error) {
	var records []EventRecord
	err := s.db.Where("session_id = ?", sessionID).
		Order("timestamp asc").
		Find(&records).Error
	if err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "session_events").
			Build()
	}
	return records, nil
}
