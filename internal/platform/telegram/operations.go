// Package telegram implements platform.Client over the Telegram Bot API.
package telegram

import (
	"context"
	"strings"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"

	"github.com/iamwavecut/subwarden/internal/platform"
)

type Operations struct {
	bot *api.BotAPI
}

func NewOperations(bot *api.BotAPI) *Operations {
	return &Operations{bot: bot}
}

func (o *Operations) SendMessage(ctx context.Context, chatID int64, text string, opts *platform.SendOptions) (int, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}

	msg := api.NewMessage(chatID, text)
	if opts != nil {
		if opts.ReplyToMessageID != 0 {
			msg.ReplyParameters = api.ReplyParameters{MessageID: opts.ReplyToMessageID}
		}
		if len(opts.Buttons) > 0 {
			rows := make([][]api.InlineKeyboardButton, 0, len(opts.Buttons))
			for _, button := range opts.Buttons {
				var b api.InlineKeyboardButton
				switch {
				case button.URL != "":
					b = api.NewInlineKeyboardButtonURL(button.Text, button.URL)
				default:
					b = api.NewInlineKeyboardButtonData(button.Text, button.CallbackData)
				}
				rows = append(rows, api.NewInlineKeyboardRow(b))
			}
			msg.ReplyMarkup = api.NewInlineKeyboardMarkup(rows...)
		}
	}

	sent, err := o.bot.Send(msg)
	if err != nil {
		return 0, errors.WithMessage(err, "cant send message")
	}
	return sent.MessageID, nil
}

func (o *Operations) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if _, err := o.bot.Request(api.NewDeleteMessage(chatID, messageID)); err != nil {
		return errors.WithMessage(err, "cant delete message")
	}
	return nil
}

func (o *Operations) RestrictMember(ctx context.Context, chatID, userID int64, permissions platform.Permissions, until time.Time) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	var untilUnix int64
	if !until.IsZero() {
		untilUnix = until.Unix()
	}
	config := api.RestrictChatMemberConfig{
		ChatMemberConfig: api.ChatMemberConfig{
			ChatConfig: api.ChatConfig{ChatID: chatID},
			UserID:     userID,
		},
		UntilDate: untilUnix,
		Permissions: &api.ChatPermissions{
			CanSendMessages:       permissions.CanSendMessages,
			CanSendAudios:         permissions.CanSendMedia,
			CanSendDocuments:      permissions.CanSendMedia,
			CanSendPhotos:         permissions.CanSendMedia,
			CanSendVideos:         permissions.CanSendMedia,
			CanSendVideoNotes:     permissions.CanSendMedia,
			CanSendVoiceNotes:     permissions.CanSendMedia,
			CanSendPolls:          permissions.CanSendPolls,
			CanSendOtherMessages:  permissions.CanSendOther,
			CanAddWebPagePreviews: permissions.CanAddWebPagePreviews,
		},
	}
	if _, err := o.bot.Request(config); err != nil {
		return errors.WithMessage(err, "cant restrict member")
	}
	return nil
}

func (o *Operations) GetChatMember(ctx context.Context, chatID, userID int64) (platform.MemberStatus, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	member, err := o.bot.GetChatMember(api.GetChatMemberConfig{
		ChatConfigWithUser: api.ChatConfigWithUser{
			ChatConfig: api.ChatConfig{ChatID: chatID},
			UserID:     userID,
		},
	})
	if err != nil {
		return "", errors.WithMessage(err, "cant get chat member")
	}
	return platform.MemberStatus(member.Status), nil
}

func (o *Operations) ResolveHandle(ctx context.Context, handle string) (platform.ChatRef, error) {
	select {
	case <-ctx.Done():
		return platform.ChatRef{}, ctx.Err()
	default:
	}

	if !strings.HasPrefix(handle, "@") {
		handle = "@" + handle
	}
	chat, err := o.bot.GetChat(api.ChatInfoConfig{
		ChatConfig: api.ChatConfig{SuperGroupUsername: handle},
	})
	if err != nil {
		return platform.ChatRef{}, errors.WithMessage(err, "cant resolve handle")
	}
	return platform.ChatRef{ID: chat.ID, Title: chat.Title, Username: chat.UserName}, nil
}
