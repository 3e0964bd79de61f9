package db

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

type Client interface {
	Close() error

	// Groups.
	UpsertGroup(ctx context.Context, group *Group) error
	GetGroup(ctx context.Context, groupID int64) (*Group, error)
	GetGroups(ctx context.Context) ([]*Group, error)
	SetGroupAutoDelete(ctx context.Context, groupID int64, seconds int) error

	// Channel requirements.
	AddChannelRequirement(ctx context.Context, req *ChannelRequirement) error
	ActiveChannelRequirements(ctx context.Context, groupID int64, now time.Time) ([]*ChannelRequirement, error)
	CountActiveChannelRequirements(ctx context.Context, groupID int64) (int, error)
	SetChannelCheckUntil(ctx context.Context, groupID int64, channel string, until time.Time) (int64, error)
	SetUnboundedChannelsCheckUntil(ctx context.Context, groupID int64, until time.Time) (int64, error)
	DeactivateChannel(ctx context.Context, groupID int64, channel string) (int64, error)
	DeactivateAllChannels(ctx context.Context, groupID int64) (int64, error)
	ExpiredChannelRequirements(ctx context.Context, now time.Time) ([]*ExpiredChannelRequirement, error)
	DeactivateChannelRequirement(ctx context.Context, id int64) error

	// VIP grants.
	AddVIPGrant(ctx context.Context, grant *VIPGrant) error
	GetActiveVIPGrant(ctx context.Context, userID, groupID int64, now time.Time) (*VIPGrant, error)
	HasActiveVIPGrant(ctx context.Context, userID, groupID int64, scope string, now time.Time) (bool, error)
	CountActiveLocalVIPGroups(ctx context.Context, userID int64, tier string, now time.Time) (int, error)
	ActiveVIPGrantsForGroup(ctx context.Context, groupID int64, now time.Time) ([]*VIPGrant, error)
	DeleteVIPGrantsByUsername(ctx context.Context, username, tier string) (int64, error)
	DeleteAllVIPGrants(ctx context.Context, tier string) (int64, error)
	DeleteExpiredVIPGrants(ctx context.Context, now time.Time) (int64, error)

	// Mute records.
	GetMuteRecord(ctx context.Context, userID, groupID int64) (*MuteRecord, error)
	UpsertMuteRecord(ctx context.Context, record *MuteRecord) error
	DeleteMuteRecord(ctx context.Context, userID, groupID int64) (int64, error)
	ExpiredMuteRecords(ctx context.Context, now time.Time) ([]*MuteRecord, error)
	ActiveMuteRecords(ctx context.Context, groupID int64, now time.Time) ([]*MuteRecord, error)
	MuteRecordsForGroup(ctx context.Context, groupID int64) ([]*MuteRecord, error)
	DeleteMuteRecordsForGroup(ctx context.Context, groupID int64) (int64, error)

	// Chat language preferences.
	GetChatLanguage(ctx context.Context, chatID int64) (string, error)
	SetChatLanguage(ctx context.Context, chatID int64, language string) error

	// Owner working set.
	GetSelectedGroup(ctx context.Context, ownerID int64) (int64, error)
	SetSelectedGroup(ctx context.Context, ownerID, groupID int64) error
}
