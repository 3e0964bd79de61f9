package sqlite

import (
	"context"
	"database/sql"

	"github.com/iamwavecut/subwarden/internal/db"
)

func (s *sqliteClient) UpsertGroup(ctx context.Context, group *db.Group) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	query := `
		INSERT INTO groups (id, title, username, added_at, auto_delete_seconds)
		VALUES (:id, :title, :username, :added_at, :auto_delete_seconds)
		ON CONFLICT(id) DO UPDATE SET
		title = excluded.title,
		username = excluded.username
	`
	_, err := s.db.NamedExecContext(ctx, query, group)
	return err
}

func (s *sqliteClient) GetGroup(ctx context.Context, groupID int64) (*db.Group, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var group db.Group
	err := s.db.GetContext(ctx, &group, `SELECT * FROM groups WHERE id = ?`, groupID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, db.ErrNotFound
		}
		return nil, err
	}
	return &group, nil
}

func (s *sqliteClient) GetGroups(ctx context.Context) ([]*db.Group, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var groups []*db.Group
	err := s.db.SelectContext(ctx, &groups, `SELECT * FROM groups ORDER BY added_at DESC`)
	return groups, err
}

func (s *sqliteClient) SetGroupAutoDelete(ctx context.Context, groupID int64, seconds int) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	_, err := s.db.ExecContext(ctx, `UPDATE groups SET auto_delete_seconds = ? WHERE id = ?`, seconds, groupID)
	return err
}
