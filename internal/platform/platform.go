// Package platform abstracts the chat platform operations the moderation
// engine depends on. All calls are fallible network I/O.
package platform

import (
	"context"
	"time"
)

type MemberStatus string

const (
	StatusCreator       MemberStatus = "creator"
	StatusAdministrator MemberStatus = "administrator"
	StatusMember        MemberStatus = "member"
	StatusRestricted    MemberStatus = "restricted"
	StatusLeft          MemberStatus = "left"
	StatusKicked        MemberStatus = "kicked"
)

// Subscribed reports whether the status counts as channel membership.
func (s MemberStatus) Subscribed() bool {
	switch s {
	case StatusMember, StatusAdministrator, StatusCreator:
		return true
	}
	return false
}

// Admin reports whether the status grants group administration rights.
func (s MemberStatus) Admin() bool {
	return s == StatusAdministrator || s == StatusCreator
}

type Button struct {
	Text         string
	URL          string
	CallbackData string
}

type SendOptions struct {
	ReplyToMessageID int
	// Buttons are rendered one per row.
	Buttons []Button
}

type Permissions struct {
	CanSendMessages       bool
	CanSendMedia          bool
	CanSendPolls          bool
	CanSendOther          bool
	CanAddWebPagePreviews bool
}

func NoPermissions() Permissions {
	return Permissions{}
}

func FullPermissions() Permissions {
	return Permissions{
		CanSendMessages:       true,
		CanSendMedia:          true,
		CanSendPolls:          true,
		CanSendOther:          true,
		CanAddWebPagePreviews: true,
	}
}

type ChatRef struct {
	ID       int64
	Title    string
	Username string
}

type Client interface {
	SendMessage(ctx context.Context, chatID int64, text string, opts *SendOptions) (messageID int, err error)
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	// RestrictMember applies the permission set until the given instant.
	// A zero until lifts the restriction permanently.
	RestrictMember(ctx context.Context, chatID, userID int64, permissions Permissions, until time.Time) error
	GetChatMember(ctx context.Context, chatID, userID int64) (MemberStatus, error)
	ResolveHandle(ctx context.Context, handle string) (ChatRef, error)
}
