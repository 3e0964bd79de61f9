package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/subwarden/internal/bot"
	"github.com/iamwavecut/subwarden/internal/config"
	"github.com/iamwavecut/subwarden/internal/db/sqlite"
	"github.com/iamwavecut/subwarden/internal/handlers"
	"github.com/iamwavecut/subwarden/internal/infra"
	"github.com/iamwavecut/subwarden/internal/lifecycle"
	"github.com/iamwavecut/subwarden/internal/moderation"
	"github.com/iamwavecut/subwarden/internal/observability"
	"github.com/iamwavecut/subwarden/internal/platform/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatalln("cant load config")
	}
	log.SetFormatter(&config.SwFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.Level(cfg.LogLevel))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	observability.Init(cfg.MetricsAddr)

	botAPI, err := api.NewBotAPI(cfg.TelegramAPIToken)
	if err != nil {
		log.WithError(err).Errorln("cant initialize bot api")
		time.Sleep(1 * time.Second)
		log.Fatalln("exiting")
	}
	if log.Level(cfg.LogLevel) == log.TraceLevel {
		botAPI.Debug = true
	}
	defer botAPI.StopReceivingUpdates()

	dbClient, err := sqlite.NewSQLiteClient(ctx, filepath.Dir(cfg.DBPath), filepath.Base(cfg.DBPath))
	if err != nil {
		log.WithError(err).Fatalln("cant initialize database")
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			log.WithError(err).Errorln("cant close database")
		}
	}()

	platformClient := telegram.NewOperations(botAPI)
	service := bot.NewService(platformClient, dbClient)

	vip := moderation.NewVIPService(dbClient)
	exemption := moderation.NewExemptionResolver(cfg.OwnerID, platformClient, dbClient)
	escalator := moderation.NewEscalator(platformClient, dbClient, vip, service)
	enforcer := moderation.NewEnforcer(platformClient, dbClient, exemption, escalator, service)
	sweeper := moderation.NewSweeper(platformClient, dbClient, cfg.OwnerID, cfg.SweepInterval, service)

	runtime := lifecycle.NewRuntime(sweeper)
	if err := runtime.Start(ctx); err != nil {
		log.WithError(err).Fatalln("cant start background components")
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		if err := runtime.Stop(stopCtx); err != nil {
			log.WithError(err).Errorln("cant stop background components")
		}
	}()

	updateProcessor := bot.NewUpdateProcessor(service,
		handlers.NewMembership(service, cfg.OwnerID, botAPI.Self.ID),
		handlers.NewGate(service, enforcer),
		handlers.NewOwner(service, cfg.OwnerID, vip),
		handlers.NewPublic(service, vip),
	)

	updateConfig := api.NewUpdate(0)
	updateConfig.Timeout = 60

	infra.GoRecoverable(-1, "updates", func() {
		updateChan, errorChan := bot.GetUpdatesChans(ctx, botAPI, updateConfig)
		for {
			select {
			case err := <-errorChan:
				log.WithError(err).Fatalln("bot api get updates error")
			case update := <-updateChan:
				if err := updateProcessor.Process(ctx, &update); err != nil {
					log.WithError(err).Errorln("cant process update")
				}
			case <-ctx.Done():
				log.Infoln("no more updates")
				return
			}
		}
	})
}
