package moderation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/iamwavecut/tool"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/subwarden/internal/config"
	"github.com/iamwavecut/subwarden/internal/db"
	"github.com/iamwavecut/subwarden/internal/i18n"
	"github.com/iamwavecut/subwarden/internal/observability"
	"github.com/iamwavecut/subwarden/internal/platform"
)

type escalatorStore interface {
	GetMuteRecord(ctx context.Context, userID, groupID int64) (*db.MuteRecord, error)
	UpsertMuteRecord(ctx context.Context, record *db.MuteRecord) error
}

type languageResolver interface {
	GetLanguage(ctx context.Context, chatID int64) string
}

// Escalator advances the per-user per-group violation counter and applies
// the matching sanction. Level 1 is a warning, higher levels mute with
// growing durations, the counter never exceeds the ladder top.
type Escalator struct {
	bot   platform.Client
	store escalatorStore
	vip   *VIPService
	lang  languageResolver
}

func NewEscalator(bot platform.Client, store escalatorStore, vip *VIPService, lang languageResolver) *Escalator {
	return &Escalator{
		bot:   bot,
		store: store,
		vip:   vip,
		lang:  lang,
	}
}

// OnViolation handles one disqualified action by the user. The offending
// message is removed, the counter advances and the sanction for the new
// level is applied. Mute-immune users are left alone entirely: their
// counter does not move, their message stays, and handled is false.
func (e *Escalator) OnViolation(ctx context.Context, msg Message) (bool, error) {
	entry := log.WithField("context", "escalator").
		WithField("user_id", msg.UserID).
		WithField("group_id", msg.GroupID)

	if e.vip.HasMuteImmunity(ctx, msg.UserID, msg.GroupID) {
		entry.Debug("user is mute immune, skipping")
		return false, nil
	}

	// A record read failure abandons the event. Escalating on a guessed
	// counter would reset repeat offenders to a plain warning.
	record, err := e.store.GetMuteRecord(ctx, msg.UserID, msg.GroupID)
	if err != nil {
		return false, errors.WithMessage(err, "cant load mute record")
	}

	if msg.MessageID != 0 {
		if err := e.bot.DeleteMessage(ctx, msg.GroupID, msg.MessageID); err != nil {
			entry.WithError(err).Warn("cant delete offending message")
		}
	}

	level := 1
	if record != nil {
		level = record.Violations + 1
	}
	if level > config.MaxViolationLevel {
		level = config.MaxViolationLevel
	}
	row := config.LadderLevel(level)
	observability.RecordViolation(strconv.Itoa(level))

	now := time.Now()
	updated := &db.MuteRecord{
		UserID:     msg.UserID,
		GroupID:    msg.GroupID,
		Username:   msg.Username,
		Violations: level,
		MutedAt:    now,
	}

	lang := e.lang.GetLanguage(ctx, msg.GroupID)
	if row.Action == config.ActionWarning {
		if err := e.store.UpsertMuteRecord(ctx, updated); err != nil {
			return true, err
		}
		e.notify(ctx, msg.GroupID, tool.ExecTemplate(
			i18n.Get("{{ .username }}, commands are only available to administrators! This is a warning, you will be muted on repeat.", lang),
			map[string]any{"username": msg.DisplayName()},
		))
		return true, nil
	}

	muteEnd := now.Add(row.MuteDuration)
	updated.MuteEnd = &muteEnd

	// Restriction failures do not stop the bookkeeping. The record is the
	// source of truth, the sweeper will not try to lift what was never
	// applied beyond a harmless extra unrestrict.
	if err := e.bot.RestrictMember(ctx, msg.GroupID, msg.UserID, platform.NoPermissions(), muteEnd); err != nil {
		entry.WithError(err).WithField("level", level).Error("cant restrict member")
	}
	if err := e.store.UpsertMuteRecord(ctx, updated); err != nil {
		return true, err
	}

	e.notify(ctx, msg.GroupID, tool.ExecTemplate(
		i18n.Get("{{ .username }}, you have been muted for {{ .time }} for using commands not as intended!", lang),
		map[string]any{
			"username": msg.DisplayName(),
			"time":     FormatMuteDuration(row.MuteDuration, lang),
		},
	))
	return true, nil
}

func (e *Escalator) notify(ctx context.Context, groupID int64, text string) {
	if _, err := e.bot.SendMessage(ctx, groupID, text, nil); err != nil {
		log.WithField("context", "escalator").WithError(err).Warn("cant send notice")
	}
}

// FormatMuteDuration renders a duration the way notices show it, as whole
// hours and minutes, or minutes alone for sub-hour mutes.
func FormatMuteDuration(d time.Duration, lang string) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	if hours > 0 {
		return tool.ExecTemplate(i18n.Get("{{ .hours }}h {{ .minutes }}m", lang), map[string]any{
			"hours":   fmt.Sprint(hours),
			"minutes": fmt.Sprint(minutes),
		})
	}
	return tool.ExecTemplate(i18n.Get("{{ .minutes }}m", lang), map[string]any{
		"minutes": fmt.Sprint(minutes),
	})
}
