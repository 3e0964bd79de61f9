package handlers

import (
	"context"
	"strings"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	botsrv "github.com/iamwavecut/subwarden/internal/bot"
	"github.com/iamwavecut/subwarden/internal/i18n"
	"github.com/iamwavecut/subwarden/internal/moderation"
	"github.com/iamwavecut/subwarden/internal/platform"
)

// Public answers the commands available to everyone and the VIP info
// callback button.
type Public struct {
	s   botsrv.Service
	vip *moderation.VIPService
}

func NewPublic(s botsrv.Service, vip *moderation.VIPService) *Public {
	return &Public{s: s, vip: vip}
}

func (p *Public) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (bool, error) {
	if chat == nil || user == nil {
		return true, nil
	}
	if u.CallbackQuery != nil && u.CallbackQuery.Data == moderation.VIPInfoCallback {
		return false, p.sendVIPInfo(ctx, chat.ID, user.ID)
	}
	if u.Message == nil || !u.Message.IsCommand() {
		return true, nil
	}

	lang := p.s.GetLanguage(ctx, chat.ID)
	switch u.Message.Command() {
	case "start", "help":
		return false, p.reply(ctx, chat.ID,
			i18n.Get("Hello! I am a moderation bot. I verify channel subscriptions and remove messages from members who are not subscribed.", lang))
	case "vip_info":
		return false, p.sendVIPInfo(ctx, chat.ID, user.ID)
	case "language", "lang":
		return false, p.setLanguage(ctx, chat.ID, u.Message.CommandArguments(), lang)
	}
	return true, nil
}

func (p *Public) sendVIPInfo(ctx context.Context, chatID, userID int64) error {
	lang := p.s.GetLanguage(ctx, chatID)
	return p.reply(ctx, chatID, p.vip.StatusText(ctx, userID, chatID, lang))
}

// setLanguage stores the chat language. Unknown languages fall back to
// the key echo, which is english.
func (p *Public) setLanguage(ctx context.Context, chatID int64, args, lang string) error {
	requested := strings.ToLower(strings.TrimSpace(args))
	if requested == "" {
		for _, known := range i18n.GetLanguagesList() {
			if err := p.reply(ctx, chatID, known); err != nil {
				return err
			}
		}
		return nil
	}
	if err := p.s.GetDB().SetChatLanguage(ctx, chatID, requested); err != nil {
		p.getLogEntry().WithError(err).Error("cant set chat language")
		return nil
	}
	return p.reply(ctx, chatID, i18n.Get("Language changed", requested))
}

func (p *Public) reply(ctx context.Context, chatID int64, text string) error {
	_, err := p.s.GetBot().SendMessage(ctx, chatID, text, &platform.SendOptions{})
	return err
}

func (p *Public) getLogEntry() *log.Entry {
	return log.WithField("context", "public")
}
