package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/jmoiron/sqlx"
	migrate "github.com/rubenv/sql-migrate"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/iamwavecut/subwarden/resources"
)

type sqliteClient struct {
	db    *sqlx.DB
	mutex sync.RWMutex
}

func NewSQLiteClient(ctx context.Context, dir, name string) (*sqliteClient, error) {
	dbx, err := sqlx.Open("sqlite", filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	dbx.SetMaxOpenConns(1)

	migrationsSource := &migrate.EmbedFileSystemMigrationSource{
		FileSystem: resources.FS,
		Root:       "migrations",
	}
	n, err := migrate.ExecContext(ctx, dbx.DB, "sqlite3", migrationsSource, migrate.Up)
	if err != nil {
		return nil, fmt.Errorf("migrate up: %w", err)
	}
	if n > 0 {
		log.Infof("applied %d migrations", n)
	}

	return &sqliteClient{db: dbx}, nil
}

func (s *sqliteClient) Close() error {
	return s.db.Close()
}

func (s *sqliteClient) GetChatLanguage(ctx context.Context, chatID int64) (string, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var language string
	err := s.db.GetContext(ctx, &language, `SELECT language FROM chat_languages WHERE chat_id = ?`, chatID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("get chat language: %w", err)
	}
	return language, nil
}

func (s *sqliteClient) SetChatLanguage(ctx context.Context, chatID int64, language string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	query := `
		INSERT INTO chat_languages (chat_id, language)
		VALUES (?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET
		language = excluded.language
	`
	_, err := s.db.ExecContext(ctx, query, chatID, language)
	return err
}

func (s *sqliteClient) GetSelectedGroup(ctx context.Context, ownerID int64) (int64, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var groupID int64
	err := s.db.GetContext(ctx, &groupID, `SELECT group_id FROM owner_selected_group WHERE owner_id = ?`, ownerID)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("get selected group: %w", err)
	}
	return groupID, nil
}

func (s *sqliteClient) SetSelectedGroup(ctx context.Context, ownerID, groupID int64) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	query := `
		INSERT INTO owner_selected_group (owner_id, group_id)
		VALUES (?, ?)
		ON CONFLICT(owner_id) DO UPDATE SET
		group_id = excluded.group_id
	`
	_, err := s.db.ExecContext(ctx, query, ownerID, groupID)
	return err
}
