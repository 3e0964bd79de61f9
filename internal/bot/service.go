package bot

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/subwarden/internal/config"
	"github.com/iamwavecut/subwarden/internal/db"
	"github.com/iamwavecut/subwarden/internal/platform"
)

type ServiceBot interface {
	GetBot() platform.Client
}

type ServiceDB interface {
	GetDB() db.Client
}

type ServiceLanguage interface {
	GetLanguage(ctx context.Context, chatID int64) string
}

type Service interface {
	ServiceBot
	ServiceDB
	ServiceLanguage
}

type service struct {
	bot platform.Client
	db  db.Client
}

func NewService(bot platform.Client, db db.Client) *service {
	return &service{
		bot: bot,
		db:  db,
	}
}

func (s *service) GetBot() platform.Client {
	return s.bot
}

func (s *service) GetDB() db.Client {
	return s.db
}

// GetLanguage resolves the chat language, installing the configured
// default on first lookup.
func (s *service) GetLanguage(ctx context.Context, chatID int64) string {
	fallback := config.Get().DefaultLanguage
	language, err := s.db.GetChatLanguage(ctx, chatID)
	if err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("cant get chat language")
		return fallback
	}
	if language == "" {
		if err := s.db.SetChatLanguage(ctx, chatID, fallback); err != nil {
			log.WithError(err).WithField("chat_id", chatID).Error("cant set default chat language")
		}
		return fallback
	}
	return language
}
