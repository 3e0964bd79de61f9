package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/iamwavecut/subwarden/internal/db"
)

func (s *sqliteClient) GetMuteRecord(ctx context.Context, userID, groupID int64) (*db.MuteRecord, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var record db.MuteRecord
	err := s.db.GetContext(ctx, &record, `
		SELECT * FROM mute_records
		WHERE user_id = ? AND group_id = ?
	`, userID, groupID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (s *sqliteClient) UpsertMuteRecord(ctx context.Context, record *db.MuteRecord) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	query := `
		INSERT INTO mute_records (user_id, group_id, username, violations, muted_at, mute_end)
		VALUES (:user_id, :group_id, :username, :violations, :muted_at, :mute_end)
		ON CONFLICT(user_id, group_id) DO UPDATE SET
		username = excluded.username,
		violations = excluded.violations,
		muted_at = excluded.muted_at,
		mute_end = excluded.mute_end
	`
	_, err := s.db.NamedExecContext(ctx, query, record)
	return err
}

func (s *sqliteClient) DeleteMuteRecord(ctx context.Context, userID, groupID int64) (int64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	result, err := s.db.ExecContext(ctx, `
		DELETE FROM mute_records
		WHERE user_id = ? AND group_id = ?
	`, userID, groupID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (s *sqliteClient) ExpiredMuteRecords(ctx context.Context, now time.Time) ([]*db.MuteRecord, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var records []*db.MuteRecord
	err := s.db.SelectContext(ctx, &records, `
		SELECT * FROM mute_records
		WHERE mute_end IS NOT NULL AND mute_end <= ?
	`, now)
	return records, err
}

func (s *sqliteClient) ActiveMuteRecords(ctx context.Context, groupID int64, now time.Time) ([]*db.MuteRecord, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var records []*db.MuteRecord
	err := s.db.SelectContext(ctx, &records, `
		SELECT * FROM mute_records
		WHERE group_id = ? AND mute_end IS NOT NULL AND mute_end > ?
		ORDER BY mute_end ASC
	`, groupID, now)
	return records, err
}

func (s *sqliteClient) MuteRecordsForGroup(ctx context.Context, groupID int64) ([]*db.MuteRecord, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var records []*db.MuteRecord
	err := s.db.SelectContext(ctx, &records, `
		SELECT * FROM mute_records
		WHERE group_id = ?
	`, groupID)
	return records, err
}

func (s *sqliteClient) DeleteMuteRecordsForGroup(ctx context.Context, groupID int64) (int64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	result, err := s.db.ExecContext(ctx, `DELETE FROM mute_records WHERE group_id = ?`, groupID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
