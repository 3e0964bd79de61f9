package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/iamwavecut/subwarden/internal/db"
)

func (s *sqliteClient) AddVIPGrant(ctx context.Context, grant *db.VIPGrant) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	query := `
		INSERT INTO vip_grants (user_id, username, tier, scope, group_id, start_at, end_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query,
		grant.UserID,
		grant.Username,
		grant.Tier,
		grant.Scope,
		grant.GroupID,
		grant.StartAt,
		grant.EndAt,
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	grant.ID = id
	return nil
}

// GetActiveVIPGrant returns the strongest grant covering the user in the
// group, global or local, or db.ErrNotFound.
func (s *sqliteClient) GetActiveVIPGrant(ctx context.Context, userID, groupID int64, now time.Time) (*db.VIPGrant, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var grant db.VIPGrant
	err := s.db.GetContext(ctx, &grant, `
		SELECT * FROM vip_grants
		WHERE user_id = ? AND (scope = 'global' OR group_id = ?)
		AND (end_at IS NULL OR end_at > ?)
		ORDER BY CASE tier WHEN 'VIP_PLUS' THEN 0 ELSE 1 END
		LIMIT 1
	`, userID, groupID, now)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, db.ErrNotFound
		}
		return nil, err
	}
	return &grant, nil
}

func (s *sqliteClient) HasActiveVIPGrant(ctx context.Context, userID, groupID int64, scope string, now time.Time) (bool, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var count int
	err := s.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM vip_grants
		WHERE user_id = ? AND scope = ?
		AND (? = 'global' OR group_id = ?)
		AND (end_at IS NULL OR end_at > ?)
	`, userID, scope, scope, groupID, now)
	return count > 0, err
}

func (s *sqliteClient) CountActiveLocalVIPGroups(ctx context.Context, userID int64, tier string, now time.Time) (int, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var count int
	err := s.db.GetContext(ctx, &count, `
		SELECT COUNT(DISTINCT group_id) FROM vip_grants
		WHERE user_id = ? AND tier = ? AND scope = 'local'
		AND (end_at IS NULL OR end_at > ?)
	`, userID, tier, now)
	return count, err
}

func (s *sqliteClient) ActiveVIPGrantsForGroup(ctx context.Context, groupID int64, now time.Time) ([]*db.VIPGrant, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var grants []*db.VIPGrant
	err := s.db.SelectContext(ctx, &grants, `
		SELECT * FROM vip_grants
		WHERE (group_id = ? OR scope = 'global')
		AND (end_at IS NULL OR end_at > ?)
		ORDER BY start_at ASC
	`, groupID, now)
	return grants, err
}

func (s *sqliteClient) DeleteVIPGrantsByUsername(ctx context.Context, username, tier string) (int64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	result, err := s.db.ExecContext(ctx, `DELETE FROM vip_grants WHERE username = ? AND tier = ?`, username, tier)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (s *sqliteClient) DeleteAllVIPGrants(ctx context.Context, tier string) (int64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	result, err := s.db.ExecContext(ctx, `DELETE FROM vip_grants WHERE tier = ?`, tier)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (s *sqliteClient) DeleteExpiredVIPGrants(ctx context.Context, now time.Time) (int64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	result, err := s.db.ExecContext(ctx, `DELETE FROM vip_grants WHERE end_at IS NOT NULL AND end_at <= ?`, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
