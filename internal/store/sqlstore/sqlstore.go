// Package sqlstore persists sessions and credentials in postgres through gorm.
package sqlstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/DoyleJ11/bluffparty/internal/game"
	"github.com/DoyleJ11/bluffparty/internal/store"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SessionRecord holds one room's session as a JSON document.
type SessionRecord struct {
	Room      string `gorm:"primaryKey;size:16"`
	Data      []byte `gorm:"type:jsonb;not null"`
	UpdatedAt time.Time
}

type CredentialRecord struct {
	Profile   string `gorm:"primaryKey;size:64"`
	PlayerID  string `gorm:"not null"`
	RoomCode  string `gorm:"size:16;not null"`
	Name      string
	Avatar    string
	IsHost    bool
	UpdatedAt time.Time
}

type Store struct {
	db *gorm.DB
}

// Open connects to dsn and migrates both tables.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return New(db)
}

// New wraps an existing connection.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&SessionRecord{}, &CredentialRecord{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) SaveSession(ctx context.Context, room string, sess game.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", room, err)
	}
	rec := SessionRecord{Room: room, Data: data}
	if err := s.db.WithContext(ctx).Save(&rec).Error; err != nil {
		return fmt.Errorf("save session %s: %w", room, err)
	}
	return nil
}

func (s *Store) LoadSession(ctx context.Context, room string) (game.Session, error) {
	var rec SessionRecord
	err := s.db.WithContext(ctx).First(&rec, "room = ?", room).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return game.Session{}, fmt.Errorf("session %s: %w", room, store.ErrNotFound)
	}
	if err != nil {
		return game.Session{}, fmt.Errorf("load session %s: %w", room, err)
	}
	var sess game.Session
	if err := json.Unmarshal(rec.Data, &sess); err != nil {
		return game.Session{}, fmt.Errorf("decode session %s: %w", room, err)
	}
	return sess, nil
}

func (s *Store) SaveCredentials(ctx context.Context, profile string, c store.Credentials) error {
	rec := CredentialRecord{
		Profile:  profile,
		PlayerID: c.PlayerID,
		RoomCode: c.RoomCode,
		Name:     c.Name,
		Avatar:   c.Avatar,
		IsHost:   c.IsHost,
	}
	if err := s.db.WithContext(ctx).Save(&rec).Error; err != nil {
		return fmt.Errorf("save credentials %s: %w", profile, err)
	}
	return nil
}

func (s *Store) LoadCredentials(ctx context.Context, profile string) (store.Credentials, error) {
	var rec CredentialRecord
	err := s.db.WithContext(ctx).First(&rec, "profile = ?", profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.Credentials{}, fmt.Errorf("credentials %s: %w", profile, store.ErrNotFound)
	}
	if err != nil {
		return store.Credentials{}, fmt.Errorf("load credentials %s: %w", profile, err)
	}
	return store.Credentials{
		PlayerID: rec.PlayerID,
		RoomCode: rec.RoomCode,
		Name:     rec.Name,
		Avatar:   rec.Avatar,
		IsHost:   rec.IsHost,
	}, nil
}

func (s *Store) ClearCredentials(ctx context.Context, profile string) error {
	err := s.db.WithContext(ctx).Delete(&CredentialRecord{}, "profile = ?", profile).Error
	if err != nil {
		return fmt.Errorf("clear credentials %s: %w", profile, err)
	}
	return nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var _ store.Store = (*Store)(nil)
