package db

import "time"

type (
	// Group is a chat the bot moderates. Created on first sight, never
	// hard-deleted.
	Group struct {
		ID                int64     `db:"id"`
		Title             string    `db:"title"`
		Username          string    `db:"username"`
		AddedAt           time.Time `db:"added_at"`
		AutoDeleteSeconds int       `db:"auto_delete_seconds"`
	}

	// ChannelRequirement is a channel members of a group must be
	// subscribed to. A nil CheckUntil means the check is indefinite.
	ChannelRequirement struct {
		ID         int64      `db:"id"`
		GroupID    int64      `db:"group_id"`
		Channel    string     `db:"channel"`
		AddedAt    time.Time  `db:"added_at"`
		CheckUntil *time.Time `db:"check_until"`
		Active     bool       `db:"active"`
	}

	// ExpiredChannelRequirement joins a requirement past its check window
	// with its group title for the owner notification.
	ExpiredChannelRequirement struct {
		ChannelRequirement
		GroupTitle string `db:"group_title"`
	}

	// VIPGrant is a time-bounded entitlement. A nil EndAt means the grant
	// is indefinite. GroupID is zero for global grants.
	VIPGrant struct {
		ID       int64      `db:"id"`
		UserID   int64      `db:"user_id"`
		Username string     `db:"username"`
		Tier     string     `db:"tier"`
		Scope    string     `db:"scope"`
		GroupID  int64      `db:"group_id"`
		StartAt  time.Time  `db:"start_at"`
		EndAt    *time.Time `db:"end_at"`
	}

	// MuteRecord tracks the violation counter and the current mute window
	// of a (user, group) pair. A record at level 1 carries no mute.
	MuteRecord struct {
		UserID     int64      `db:"user_id"`
		GroupID    int64      `db:"group_id"`
		Username   string     `db:"username"`
		Violations int        `db:"violations"`
		MutedAt    time.Time  `db:"muted_at"`
		MuteEnd    *time.Time `db:"mute_end"`
	}
)

const (
	TierVIP     = "VIP"
	TierVIPPlus = "VIP_PLUS"

	ScopeLocal  = "local"
	ScopeGlobal = "global"
)

// Active reports whether the grant is in force at the given instant.
func (g *VIPGrant) Active(now time.Time) bool {
	return g.EndAt == nil || g.EndAt.After(now)
}
