package sqlite

import (
	"context"
	"time"

	"github.com/iamwavecut/subwarden/internal/db"
)

func (s *sqliteClient) AddChannelRequirement(ctx context.Context, req *db.ChannelRequirement) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	query := `
		INSERT INTO channel_requirements (group_id, channel, added_at, check_until, active)
		VALUES (?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, req.GroupID, req.Channel, req.AddedAt, req.CheckUntil, req.Active)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	req.ID = id
	return nil
}

func (s *sqliteClient) ActiveChannelRequirements(ctx context.Context, groupID int64, now time.Time) ([]*db.ChannelRequirement, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var reqs []*db.ChannelRequirement
	err := s.db.SelectContext(ctx, &reqs, `
		SELECT * FROM channel_requirements
		WHERE group_id = ? AND active = 1
		AND (check_until IS NULL OR check_until > ?)
		ORDER BY added_at ASC
	`, groupID, now)
	return reqs, err
}

func (s *sqliteClient) CountActiveChannelRequirements(ctx context.Context, groupID int64) (int, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var count int
	err := s.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM channel_requirements
		WHERE group_id = ? AND active = 1
	`, groupID)
	return count, err
}

func (s *sqliteClient) SetChannelCheckUntil(ctx context.Context, groupID int64, channel string, until time.Time) (int64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	result, err := s.db.ExecContext(ctx, `
		UPDATE channel_requirements SET check_until = ?
		WHERE group_id = ? AND channel = ? AND active = 1
	`, until, groupID, channel)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (s *sqliteClient) SetUnboundedChannelsCheckUntil(ctx context.Context, groupID int64, until time.Time) (int64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	result, err := s.db.ExecContext(ctx, `
		UPDATE channel_requirements SET check_until = ?
		WHERE group_id = ? AND active = 1 AND check_until IS NULL
	`, until, groupID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (s *sqliteClient) DeactivateChannel(ctx context.Context, groupID int64, channel string) (int64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	result, err := s.db.ExecContext(ctx, `
		UPDATE channel_requirements SET active = 0
		WHERE group_id = ? AND channel = ? AND active = 1
	`, groupID, channel)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (s *sqliteClient) DeactivateAllChannels(ctx context.Context, groupID int64) (int64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	result, err := s.db.ExecContext(ctx, `
		UPDATE channel_requirements SET active = 0
		WHERE group_id = ? AND active = 1
	`, groupID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (s *sqliteClient) ExpiredChannelRequirements(ctx context.Context, now time.Time) ([]*db.ExpiredChannelRequirement, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var reqs []*db.ExpiredChannelRequirement
	err := s.db.SelectContext(ctx, &reqs, `
		SELECT c.*, g.title AS group_title
		FROM channel_requirements c
		JOIN groups g ON c.group_id = g.id
		WHERE c.check_until IS NOT NULL AND c.check_until <= ? AND c.active = 1
	`, now)
	return reqs, err
}

func (s *sqliteClient) DeactivateChannelRequirement(ctx context.Context, id int64) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	_, err := s.db.ExecContext(ctx, `UPDATE channel_requirements SET active = 0 WHERE id = ?`, id)
	return err
}
