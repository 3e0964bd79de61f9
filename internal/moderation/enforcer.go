package moderation

import (
	"context"
	"strings"
	"time"

	"github.com/iamwavecut/tool"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/subwarden/internal/config"
	"github.com/iamwavecut/subwarden/internal/db"
	"github.com/iamwavecut/subwarden/internal/i18n"
	"github.com/iamwavecut/subwarden/internal/observability"
	"github.com/iamwavecut/subwarden/internal/platform"
)

// VIPInfoCallback marks the inline button that shows tier details.
const VIPInfoCallback = "vip_info"

// publicCommands are usable by anyone; every other slash command in a
// group counts as a disqualified action.
var publicCommands = map[string]struct{}{
	"start":    {},
	"help":     {},
	"vip_info": {},
	"language": {},
	"lang":     {},
}

type enforcerStore interface {
	UpsertGroup(ctx context.Context, group *db.Group) error
	GetGroup(ctx context.Context, groupID int64) (*db.Group, error)
	ActiveChannelRequirements(ctx context.Context, groupID int64, now time.Time) ([]*db.ChannelRequirement, error)
}

// Enforcer gates group messages on channel subscriptions and routes
// restricted command use to the escalation ladder.
type Enforcer struct {
	bot       platform.Client
	store     enforcerStore
	exemption *ExemptionResolver
	escalator *Escalator
	lang      languageResolver
}

func NewEnforcer(bot platform.Client, store enforcerStore, exemption *ExemptionResolver, escalator *Escalator, lang languageResolver) *Enforcer {
	return &Enforcer{
		bot:       bot,
		store:     store,
		exemption: exemption,
		escalator: escalator,
		lang:      lang,
	}
}

// OnMessage applies the moderation policy to one group message. It returns
// false when the message was removed and processing should stop.
func (e *Enforcer) OnMessage(ctx context.Context, msg Message) (bool, error) {
	if !msg.IsGroupChat {
		return true, nil
	}
	entry := log.WithField("context", "enforcer").
		WithField("user_id", msg.UserID).
		WithField("group_id", msg.GroupID)

	group, err := e.ensureGroup(ctx, msg)
	if err != nil {
		entry.WithError(err).Error("cant ensure group")
	}

	if msg.IsCommand {
		if _, public := publicCommands[strings.ToLower(msg.Command)]; !public {
			// Commands belong to the owner alone. Neither an admin role nor
			// a VIP grant covers them.
			if e.exemption.IsOwner(msg.UserID) {
				return true, nil
			}
			handled, err := e.escalator.OnViolation(ctx, msg)
			return !handled, err
		}
		return true, nil
	}

	if e.exemption.IsExempt(ctx, msg.UserID, msg.GroupID) {
		observability.RecordCheck("exempt")
		return true, nil
	}

	requirements, err := e.store.ActiveChannelRequirements(ctx, msg.GroupID, time.Now())
	if err != nil {
		entry.WithError(err).Error("cant load channel requirements")
		return true, nil
	}
	if len(requirements) == 0 {
		return true, nil
	}

	var missing []*db.ChannelRequirement
	for _, req := range requirements {
		if !e.subscribed(ctx, req.Channel, msg.UserID) {
			missing = append(missing, req)
		}
	}
	if len(missing) == 0 {
		observability.RecordCheck("pass")
		return true, nil
	}
	observability.RecordCheck("fail")

	if err := e.bot.DeleteMessage(ctx, msg.GroupID, msg.MessageID); err != nil {
		entry.WithError(err).Warn("cant delete unsubscribed message")
	}
	e.sendWarning(ctx, group, msg, missing)
	return false, nil
}

// ensureGroup records the group on first sight so owner commands can
// reference it. Title changes are picked up on the way.
func (e *Enforcer) ensureGroup(ctx context.Context, msg Message) (*db.Group, error) {
	if err := e.store.UpsertGroup(ctx, &db.Group{
		ID:                msg.GroupID,
		Title:             msg.GroupTitle,
		Username:          msg.GroupUsername,
		AddedAt:           time.Now(),
		AutoDeleteSeconds: int(config.Get().AutoDeleteDefault.Seconds()),
	}); err != nil {
		return nil, err
	}
	return e.store.GetGroup(ctx, msg.GroupID)
}

// subscribed checks one channel membership. Resolution or lookup failures
// count as not subscribed.
func (e *Enforcer) subscribed(ctx context.Context, channel string, userID int64) bool {
	entry := log.WithField("context", "enforcer").WithField("channel", channel)

	ref, err := e.bot.ResolveHandle(ctx, channel)
	if err != nil {
		entry.WithError(err).Warn("cant resolve channel")
		return false
	}
	status, err := e.bot.GetChatMember(ctx, ref.ID, userID)
	if err != nil {
		entry.WithError(err).Warn("cant fetch channel membership")
		return false
	}
	return status.Subscribed()
}

func (e *Enforcer) sendWarning(ctx context.Context, group *db.Group, msg Message, missing []*db.ChannelRequirement) {
	lang := e.lang.GetLanguage(ctx, msg.GroupID)

	channels := make([]string, 0, len(missing))
	buttons := make([]platform.Button, 0, len(missing)+1)
	for _, req := range missing {
		channels = append(channels, req.Channel)
		buttons = append(buttons, platform.Button{
			Text: tool.ExecTemplate(i18n.Get("Subscribe to {{ .channel }}", lang), map[string]any{
				"channel": req.Channel,
			}),
			URL: "https://t.me/" + strings.TrimPrefix(req.Channel, "@"),
		})
	}
	buttons = append(buttons, platform.Button{
		Text:         i18n.Get("VIP subscription", lang),
		CallbackData: VIPInfoCallback,
	})

	text := tool.ExecTemplate(
		i18n.Get("{{ .username }}, you are not subscribed to channels: {{ .channels }}. Subscribe to write in the chat!", lang),
		map[string]any{
			"username": msg.DisplayName(),
			"channels": strings.Join(channels, ", "),
		},
	)
	warningID, err := e.bot.SendMessage(ctx, msg.GroupID, text, &platform.SendOptions{
		ReplyToMessageID: msg.MessageID,
		Buttons:          buttons,
	})
	if err != nil {
		log.WithField("context", "enforcer").WithError(err).Warn("cant send warning")
		return
	}

	// An interval of zero disables the cleanup for the group.
	if group == nil || group.AutoDeleteSeconds <= 0 {
		return
	}
	e.scheduleDelete(msg.GroupID, warningID, time.Duration(group.AutoDeleteSeconds)*time.Second)
}

// scheduleDelete removes the warning after the group's auto-delete delay.
// The timer outlives the update that created it on purpose.
func (e *Enforcer) scheduleDelete(groupID int64, messageID int, delay time.Duration) {
	time.AfterFunc(delay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.bot.DeleteMessage(ctx, groupID, messageID); err != nil {
			log.WithField("context", "enforcer").WithError(err).Debug("cant auto-delete warning")
		}
	})
}
