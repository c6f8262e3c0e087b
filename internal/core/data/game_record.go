package data

import (
	"time"

	"gorm.io/gorm"
)

// GameRecord is the stored outcome of one completed game: which engine was
// played, how long the history grew, and the final scoring payloads as
// they went out on the wire.
type GameRecord struct {
	ID        uint   `gorm:"primaryKey"`
	Engine    string `gorm:"not null"`
	States    int
	Winners   string
	Points    string
	StartedAt time.Time
	EndedAt   time.Time
}

// CreateGameRecord persists the outcome of a finished game.
func CreateGameRecord(db *gorm.DB, record *GameRecord) error {
	return db.Create(record).Error
}

// FindRecentGameRecords returns the most recently finished games, newest
// first.
func FindRecentGameRecords(db *gorm.DB, limit int) ([]GameRecord, error) {
	var records []GameRecord
	err := db.Order("ended_at desc").Limit(limit).Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Store adapts the package's record functions to the narrow interfaces the
// session and status endpoint consume.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) RecordGame(record *GameRecord) error {
	return CreateGameRecord(s.db, record)
}

func (s *Store) RecentGames(limit int) ([]GameRecord, error) {
	return FindRecentGameRecords(s.db, limit)
}
