package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sethvargo/go-envconfig"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	TelegramAPIToken string        `env:"TOKEN,required"`
	OwnerID          int64         `env:"OWNER_ID,required"`
	DefaultLanguage  string        `env:"LANG,default=ru"`
	LogLevel         int           `env:"LOG_LEVEL,default=4"`
	DBPath           string        `env:"DB_PATH,default=bot.db"`
	MetricsAddr      string        `env:"METRICS_ADDR,default=:2112"`
	SweepInterval    time.Duration `env:"SWEEP_INTERVAL,default=60s"`

	MaxChannelsPerGroup int           `env:"MAX_CHANNELS_PER_GROUP,default=3"`
	AutoDeleteDefault   time.Duration `env:"AUTO_DELETE_DEFAULT,default=30s"`
	AutoDeleteMin       time.Duration `env:"AUTO_DELETE_MIN,default=15s"`
	AutoDeleteMax       time.Duration `env:"AUTO_DELETE_MAX,default=10m"`
}

var (
	once         sync.Once
	globalConfig = &Config{}
	globalErr    error
)

func Load() (Config, error) {
	once.Do(func() {
		cfg := &Config{}
		envcfg := envconfig.Config{
			Lookuper: envconfig.PrefixLookuper("SW_", envconfig.OsLookuper()),
			Target:   cfg,
		}
		if err := envconfig.ProcessWith(context.Background(), &envcfg); err != nil {
			globalErr = fmt.Errorf("process env config: %w", err)
			return
		}
		log.Traceln("loaded config")
		globalConfig = cfg
	})
	return *globalConfig, globalErr
}

func Get() Config {
	cfg, err := Load()
	if err != nil {
		log.WithField("error", err.Error()).Error("cant load config")
	}
	return cfg
}
