package moderation

import (
	"context"
	"sync"
	"time"

	"github.com/iamwavecut/tool"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/subwarden/internal/db"
	"github.com/iamwavecut/subwarden/internal/i18n"
	"github.com/iamwavecut/subwarden/internal/infra"
	"github.com/iamwavecut/subwarden/internal/observability"
	"github.com/iamwavecut/subwarden/internal/platform"
)

type sweeperStore interface {
	ExpiredChannelRequirements(ctx context.Context, now time.Time) ([]*db.ExpiredChannelRequirement, error)
	DeactivateChannelRequirement(ctx context.Context, id int64) error
	DeleteExpiredVIPGrants(ctx context.Context, now time.Time) (int64, error)
	ExpiredMuteRecords(ctx context.Context, now time.Time) ([]*db.MuteRecord, error)
	DeleteMuteRecord(ctx context.Context, userID, groupID int64) (int64, error)
}

// Sweeper periodically retires expired state: channel check windows, VIP
// grants and mutes. The three passes are independent, a failure in one
// never blocks the others.
type Sweeper struct {
	bot      platform.Client
	store    sweeperStore
	ownerID  int64
	interval time.Duration
	lang     languageResolver

	runMutex  sync.Mutex
	started   bool
	runCancel context.CancelFunc
	workersWg sync.WaitGroup
}

func NewSweeper(bot platform.Client, store sweeperStore, ownerID int64, interval time.Duration, lang languageResolver) *Sweeper {
	return &Sweeper{
		bot:      bot,
		store:    store,
		ownerID:  ownerID,
		interval: interval,
		lang:     lang,
	}
}

func (s *Sweeper) Start(ctx context.Context) error {
	s.runMutex.Lock()
	defer s.runMutex.Unlock()
	if s.started {
		return errors.New("sweeper already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.runCancel = cancel
	s.started = true

	s.workersWg.Add(1)
	go func() {
		defer s.workersWg.Done()
		infra.GoRecoverable(-1, "sweeper", func() {
			s.run(runCtx)
		})
	}()
	return nil
}

func (s *Sweeper) Stop(ctx context.Context) error {
	s.runMutex.Lock()
	defer s.runMutex.Unlock()
	if !s.started {
		return nil
	}
	s.runCancel()

	done := make(chan struct{})
	go func() {
		s.workersWg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	s.started = false
	return nil
}

func (s *Sweeper) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one iteration of all three passes.
func (s *Sweeper) Sweep(ctx context.Context) {
	now := time.Now()
	s.sweepChannels(ctx, now)
	s.sweepVIPGrants(ctx, now)
	s.sweepMutes(ctx, now)
}

// sweepChannels deactivates requirements past their check window and
// tells the owner which ones were retired.
func (s *Sweeper) sweepChannels(ctx context.Context, now time.Time) {
	defer observability.TimeSweepPass("channels")()
	entry := log.WithField("context", "sweeper").WithField("pass", "channels")

	expired, err := s.store.ExpiredChannelRequirements(ctx, now)
	if err != nil {
		entry.WithError(err).Error("cant list expired channel requirements")
		return
	}
	for _, req := range expired {
		if err := s.store.DeactivateChannelRequirement(ctx, req.ID); err != nil {
			entry.WithError(err).WithField("id", req.ID).Error("cant deactivate requirement")
			continue
		}
		observability.RecordSwept("channel_requirement", 1)

		until := ""
		if req.CheckUntil != nil {
			until = req.CheckUntil.Format("02.01.2006 15:04")
		}
		lang := s.lang.GetLanguage(ctx, s.ownerID)
		text := tool.ExecTemplate(
			i18n.Get("Channel check window expired. Channel: {{ .channel }}, group: {{ .group }}, ended: {{ .until }}", lang),
			map[string]any{
				"channel": req.Channel,
				"group":   req.GroupTitle,
				"until":   until,
			},
		)
		if _, err := s.bot.SendMessage(ctx, s.ownerID, text, nil); err != nil {
			entry.WithError(err).Warn("cant notify owner")
		}
	}
}

func (s *Sweeper) sweepVIPGrants(ctx context.Context, now time.Time) {
	defer observability.TimeSweepPass("vip_grants")()

	deleted, err := s.store.DeleteExpiredVIPGrants(ctx, now)
	if err != nil {
		log.WithField("context", "sweeper").WithField("pass", "vip_grants").WithError(err).Error("cant delete expired grants")
		return
	}
	if deleted > 0 {
		observability.RecordSwept("vip_grant", int(deleted))
	}
}

// sweepMutes lifts expired restrictions. The record goes away even when
// the platform call fails, Telegram drops the restriction on its own at
// the stored deadline anyway.
func (s *Sweeper) sweepMutes(ctx context.Context, now time.Time) {
	defer observability.TimeSweepPass("mutes")()
	entry := log.WithField("context", "sweeper").WithField("pass", "mutes")

	expired, err := s.store.ExpiredMuteRecords(ctx, now)
	if err != nil {
		entry.WithError(err).Error("cant list expired mutes")
		return
	}
	for _, record := range expired {
		if err := s.bot.RestrictMember(ctx, record.GroupID, record.UserID, platform.FullPermissions(), time.Time{}); err != nil {
			entry.WithError(err).
				WithField("user_id", record.UserID).
				WithField("group_id", record.GroupID).
				Warn("cant lift restriction")
		}
		if _, err := s.store.DeleteMuteRecord(ctx, record.UserID, record.GroupID); err != nil {
			entry.WithError(err).WithField("user_id", record.UserID).Error("cant delete mute record")
			continue
		}
		observability.RecordSwept("mute", 1)
	}
}
