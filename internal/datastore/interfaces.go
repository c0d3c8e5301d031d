// Package datastore persists detection sessions and their events.
package datastore

import (
	"time"

	"gorm.io/gorm"

	"github.com/somnetics/apnea-go/internal/conf"
	"github.com/somnetics/apnea-go/internal/detection"
	"github.com/somnetics/apnea-go/internal/errors"
)

// Session is one monitoring run, from Start to Stop.
type Session struct {
	ID        string `gorm:"primaryKey"`
	Source    string
	StartedAt time.Time `gorm:"index"`
	EndedAt   time.Time
}

// EventRecord is a persisted detection event. Only non-neutral events are
// stored; the live engine keeps its own short in-memory history.
type EventRecord struct {
	ID             uint   `gorm:"primaryKey;autoIncrement"`
	SessionID      string `gorm:"index"`
	Timestamp      time.Time
	IsApnea        bool
	Confidence     float64
	DurationMs     int64
	Pattern        string
	Severity       string
	Snoring        bool
	Gasping        bool
	MatchedPattern string
	MatchScore     float64
}

// Interface abstracts the event store for testing and future backends.
type Interface interface {
	Open() error
	Close() error
	CreateSession(session *Session) error
	CloseSession(id string, endedAt time.Time) error
	SaveEvent(record *EventRecord) error
	SessionEvents(sessionID string) ([]EventRecord, error)
}

// NewRecord converts a live detection event into its persisted form.
func NewRecord(sessionID string, e *detection.Event) *EventRecord {
	return &EventRecord{
		SessionID:      sessionID,
		Timestamp:      e.Timestamp,
		IsApnea:        e.IsApnea,
		Confidence:     e.Confidence,
		DurationMs:     e.Duration.Milliseconds(),
		Pattern:        string(e.Pattern),
		Severity:       string(e.Severity),
		Snoring:        e.Sounds.Snoring,
		Gasping:        e.Sounds.Gasping,
		MatchedPattern: e.MatchedPattern,
		MatchScore:     e.MatchScore,
	}
}

// New creates the store configured in settings, or nil when persistence is
// disabled.
func New(settings *conf.Settings) (Interface, error) {
	if !settings.Output.SQLite.Enabled {
		return nil, nil
	}
	if settings.Output.SQLite.Path == "" {
		return nil, errors.Newf("sqlite output enabled but no path configured").
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return &SQLiteStore{path: settings.Output.SQLite.Path, debug: settings.Debug}, nil
}

// performAutoMigration creates or upgrades the schema.
func performAutoMigration(db *gorm.DB) error {
	if err := db.AutoMigrate(&Session{}, &EventRecord{}); err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "auto_migrate").
			Build()
	}
	return nil
}
