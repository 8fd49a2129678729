// Package storage persists sessions and search history in Postgres via gorm.
package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ErrNotFound is returned when no row matches the lookup.
var ErrNotFound = errors.New("storage: not found")

// Store wraps the gorm DB handle.
type Store struct {
	db *gorm.DB
}

// Open connects to Postgres and migrates the session and history tables.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("storage: open: %w", err)
	}

	if err := db.AutoMigrate(&Session{}, &History{}); err != nil {
		return nil, fmt.Errorf("storage: migrate: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CreateSession persists a new session row.
func (s *Store) CreateSession(ctx context.Context, sess *Session) error {
	return s.db.WithContext(ctx).Create(sess).Error
}

// GetSession returns the session with the given identifier, or ErrNotFound.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	var sess Session
	err := s.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&sess).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// AddHistory appends a search record for a session.
func (s *Store) AddHistory(ctx context.Context, rec *History) error {
	return s.db.WithContext(ctx).Create(rec).Error
}

// GetHistory returns all records for a session in primary-key order.
// ErrNotFound is returned when the session has no records.
func (s *Store) GetHistory(ctx context.Context, sessionID string) ([]History, error) {
	var recs []History
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id").
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, ErrNotFound
	}
	return recs, nil
}
