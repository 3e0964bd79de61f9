package handlers

import (
	"context"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/iamwavecut/tool"
	log "github.com/sirupsen/logrus"

	botsrv "github.com/iamwavecut/subwarden/internal/bot"
	"github.com/iamwavecut/subwarden/internal/config"
	"github.com/iamwavecut/subwarden/internal/db"
	"github.com/iamwavecut/subwarden/internal/i18n"
)

// Membership records groups the bot joins and tells the owner about them.
type Membership struct {
	s       botsrv.Service
	ownerID int64
	botID   int64
}

func NewMembership(s botsrv.Service, ownerID, botID int64) *Membership {
	return &Membership{s: s, ownerID: ownerID, botID: botID}
}

func (h *Membership) Handle(ctx context.Context, u *api.Update, chat *api.Chat, _ *api.User) (bool, error) {
	if u.MyChatMember == nil || chat == nil {
		return true, nil
	}
	member := u.MyChatMember
	if member.NewChatMember.User == nil || member.NewChatMember.User.ID != h.botID {
		return true, nil
	}
	if !(chat.IsGroup() || chat.IsSuperGroup()) {
		return true, nil
	}

	entry := h.getLogEntry().WithField("group_id", chat.ID)
	switch member.NewChatMember.Status {
	case "member", "administrator":
	default:
		return true, nil
	}

	if err := h.s.GetDB().UpsertGroup(ctx, &db.Group{
		ID:                chat.ID,
		Title:             chat.Title,
		Username:          chat.UserName,
		AddedAt:           time.Now(),
		AutoDeleteSeconds: int(config.Get().AutoDeleteDefault.Seconds()),
	}); err != nil {
		entry.WithError(err).Error("cant record group")
		return false, nil
	}

	lang := h.s.GetLanguage(ctx, h.ownerID)
	text := tool.ExecTemplate(i18n.Get("Bot added to a new group: {{ .title }} ({{ .id }})", lang), map[string]any{
		"title": chat.Title,
		"id":    chat.ID,
	})
	if _, err := h.s.GetBot().SendMessage(ctx, h.ownerID, text, nil); err != nil {
		entry.WithError(err).Warn("cant notify owner")
	}
	return false, nil
}

func (h *Membership) getLogEntry() *log.Entry {
	return log.WithField("context", "membership")
}
