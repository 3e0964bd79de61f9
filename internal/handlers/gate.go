// Package handlers wires platform updates into the moderation engine and
// the command surfaces.
package handlers

import (
	"context"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	botsrv "github.com/iamwavecut/subwarden/internal/bot"
	"github.com/iamwavecut/subwarden/internal/moderation"
)

// Gate feeds group messages through the subscription enforcer. It sits
// first in the handler chain so removed messages never reach the command
// handlers.
type Gate struct {
	s        botsrv.Service
	enforcer *moderation.Enforcer
}

func NewGate(s botsrv.Service, enforcer *moderation.Enforcer) *Gate {
	return &Gate{s: s, enforcer: enforcer}
}

func (g *Gate) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (bool, error) {
	if u.Message == nil || chat == nil || user == nil || user.IsBot {
		return true, nil
	}
	m := u.Message

	msg := moderation.Message{
		MessageID:     m.MessageID,
		GroupID:       chat.ID,
		GroupTitle:    chat.Title,
		GroupUsername: chat.UserName,
		UserID:        user.ID,
		Username:      user.UserName,
		FirstName:     user.FirstName,
		IsGroupChat:   chat.IsGroup() || chat.IsSuperGroup(),
		Text:          m.Text,
		IsCommand:     m.IsCommand(),
		Command:       m.Command(),
	}

	proceed, err := g.enforcer.OnMessage(ctx, msg)
	if err != nil {
		g.getLogEntry().WithError(err).Error("enforcement failed")
		return true, nil
	}
	return proceed, nil
}

func (g *Gate) getLogEntry() *log.Entry {
	return log.WithField("context", "gate")
}
