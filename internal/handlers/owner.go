package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	botsrv "github.com/iamwavecut/subwarden/internal/bot"
	"github.com/iamwavecut/subwarden/internal/config"
	"github.com/iamwavecut/subwarden/internal/db"
	"github.com/iamwavecut/subwarden/internal/moderation"
	"github.com/iamwavecut/subwarden/internal/platform"
	"github.com/iamwavecut/subwarden/internal/utils/timeparse"
)

// Owner is the private-chat administration surface. Only the configured
// owner talks to it, everyone else passes through untouched.
type Owner struct {
	s       botsrv.Service
	ownerID int64
	vip     *moderation.VIPService
}

func NewOwner(s botsrv.Service, ownerID int64, vip *moderation.VIPService) *Owner {
	return &Owner{s: s, ownerID: ownerID, vip: vip}
}

func (o *Owner) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (bool, error) {
	if chat == nil || user == nil || u.Message == nil || !u.Message.IsCommand() {
		return true, nil
	}
	if user.ID != o.ownerID || !chat.IsPrivate() {
		return true, nil
	}

	m := u.Message
	args := strings.TrimSpace(m.CommandArguments())
	entry := o.getLogEntry().WithField("command", m.Command())
	entry.Trace("owner command")

	var reply string
	var err error
	switch m.Command() {
	case "group":
		reply, err = o.selectGroup(ctx, args)
	case "group_list":
		reply, err = o.listGroups(ctx)
	case "add_one":
		reply, err = o.addChannels(ctx, []string{args}, nil)
	case "add_channels":
		reply, err = o.addChannels(ctx, strings.Fields(args), nil)
	case "add_time":
		reply, err = o.addChannelWindow(ctx, args)
	case "auto_del":
		reply, err = o.setAutoDelete(ctx, args)
	case "del_one":
		reply, err = o.deleteChannel(ctx, args)
	case "del_all":
		reply, err = o.deleteAllChannels(ctx)
	case "status":
		reply, err = o.groupStatus(ctx)
	case "add_VIP":
		reply, err = o.grantGlobal(ctx, args, db.TierVIP, nil)
	case "ad_VIP_PLUS":
		reply, err = o.grantGlobal(ctx, args, db.TierVIPPlus, nil)
	case "add_VIP_local":
		reply, err = o.grantLocal(ctx, args)
	case "add_VIP_time":
		reply, err = o.grantTimed(ctx, args)
	case "del_VIP":
		reply, err = o.revoke(ctx, args, db.TierVIP)
	case "del_VIPPLUS":
		reply, err = o.revoke(ctx, args, db.TierVIPPlus)
	case "del_all_VIP":
		reply, err = o.revokeAll(ctx, db.TierVIP)
	case "del_all_VIPPLUS":
		reply, err = o.revokeAll(ctx, db.TierVIPPlus)
	case "mute_status":
		reply, err = o.muteStatus(ctx)
	case "off_mute":
		reply, err = o.unmute(ctx, args)
	case "del_all_mute":
		reply, err = o.unmuteAll(ctx)
	default:
		return true, nil
	}
	if err != nil {
		entry.WithError(err).Error("owner command failed")
		reply = "Error: " + err.Error()
	}
	if reply != "" {
		if _, err := o.s.GetBot().SendMessage(ctx, chat.ID, reply, &platform.SendOptions{ReplyToMessageID: m.MessageID}); err != nil {
			entry.WithError(err).Warn("cant reply to owner")
		}
	}
	return false, nil
}

// selectedGroup loads the owner's working group.
func (o *Owner) selectedGroup(ctx context.Context) (*db.Group, error) {
	groupID, err := o.s.GetDB().GetSelectedGroup(ctx, o.ownerID)
	if err != nil {
		return nil, err
	}
	if groupID == 0 {
		return nil, errors.New("no group selected, use /group <id>")
	}
	return o.s.GetDB().GetGroup(ctx, groupID)
}

func (o *Owner) selectGroup(ctx context.Context, args string) (string, error) {
	groupID, err := strconv.ParseInt(args, 10, 64)
	if err != nil {
		return "Usage: /group <id>", nil
	}
	group, err := o.s.GetDB().GetGroup(ctx, groupID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return "Unknown group, see /group_list", nil
		}
		return "", err
	}
	if err := o.s.GetDB().SetSelectedGroup(ctx, o.ownerID, groupID); err != nil {
		return "", err
	}
	return fmt.Sprintf("Working group: %s (%d)", group.Title, group.ID), nil
}

func (o *Owner) listGroups(ctx context.Context) (string, error) {
	groups, err := o.s.GetDB().GetGroups(ctx)
	if err != nil {
		return "", err
	}
	if len(groups) == 0 {
		return "No groups yet", nil
	}
	lines := make([]string, 0, len(groups))
	for _, group := range groups {
		lines = append(lines, fmt.Sprintf("%d — %s", group.ID, group.Title))
	}
	return strings.Join(lines, "\n"), nil
}

// addChannels registers channel requirements in the working group,
// honoring the per-group cap.
func (o *Owner) addChannels(ctx context.Context, handles []string, until *time.Time) (string, error) {
	group, err := o.selectedGroup(ctx)
	if err != nil {
		return "", err
	}

	var added []string
	for _, handle := range handles {
		handle = strings.TrimSpace(handle)
		if handle == "" {
			continue
		}
		if !strings.HasPrefix(handle, "@") {
			handle = "@" + handle
		}

		count, err := o.s.GetDB().CountActiveChannelRequirements(ctx, group.ID)
		if err != nil {
			return "", err
		}
		if count >= config.Get().MaxChannelsPerGroup {
			return fmt.Sprintf("Channel limit reached (%d), added: %s", config.Get().MaxChannelsPerGroup, strings.Join(added, ", ")), nil
		}

		if err := o.s.GetDB().AddChannelRequirement(ctx, &db.ChannelRequirement{
			GroupID:    group.ID,
			Channel:    handle,
			AddedAt:    time.Now(),
			CheckUntil: until,
			Active:     true,
		}); err != nil {
			return "", err
		}
		added = append(added, handle)
	}
	if len(added) == 0 {
		return "Usage: /add_channels @channel1 @channel2", nil
	}
	return "Added: " + strings.Join(added, ", "), nil
}

// addChannelWindow sets a check window. A bare duration like 6h bounds
// every currently unbounded channel of the group; the explicit range form
// targets one channel, registering it when it is not tracked yet.
func (o *Owner) addChannelWindow(ctx context.Context, args string) (string, error) {
	group, err := o.selectedGroup(ctx)
	if err != nil {
		return "", err
	}
	if until, ok := timeparse.ParseDeadline(args, time.Now()); ok {
		updated, err := o.s.GetDB().SetUnboundedChannelsCheckUntil(ctx, group.ID, until)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Check window set until %s for %d channels", timeparse.FormatDateTime(until), updated), nil
	}

	channel, _, end, ok := timeparse.ParseChannelRange(args)
	if !ok {
		return "Usage: /add_time <6h|1d> or /add_time @channel 02.01.2006 15:04 до 02.01.2006 15:04", nil
	}

	updated, err := o.s.GetDB().SetChannelCheckUntil(ctx, group.ID, channel, end)
	if err != nil {
		return "", err
	}
	if updated == 0 {
		return o.addChannels(ctx, []string{channel}, &end)
	}
	return fmt.Sprintf("Check window for %s set until %s", channel, timeparse.FormatDateTime(end)), nil
}

func (o *Owner) setAutoDelete(ctx context.Context, args string) (string, error) {
	group, err := o.selectedGroup(ctx)
	if err != nil {
		return "", err
	}
	seconds, err := strconv.Atoi(args)
	if err != nil {
		return "Usage: /auto_del <seconds>", nil
	}
	cfg := config.Get()
	minSec, maxSec := int(cfg.AutoDeleteMin.Seconds()), int(cfg.AutoDeleteMax.Seconds())
	if seconds < minSec {
		seconds = minSec
	}
	if seconds > maxSec {
		seconds = maxSec
	}
	if err := o.s.GetDB().SetGroupAutoDelete(ctx, group.ID, seconds); err != nil {
		return "", err
	}
	return fmt.Sprintf("Warnings are deleted after %d seconds", seconds), nil
}

func (o *Owner) deleteChannel(ctx context.Context, args string) (string, error) {
	group, err := o.selectedGroup(ctx)
	if err != nil {
		return "", err
	}
	handle := strings.TrimSpace(args)
	if handle == "" {
		return "Usage: /del_one @channel", nil
	}
	if !strings.HasPrefix(handle, "@") {
		handle = "@" + handle
	}
	deleted, err := o.s.GetDB().DeactivateChannel(ctx, group.ID, handle)
	if err != nil {
		return "", err
	}
	if deleted == 0 {
		return "Channel is not tracked", nil
	}
	return "Removed: " + handle, nil
}

func (o *Owner) deleteAllChannels(ctx context.Context) (string, error) {
	group, err := o.selectedGroup(ctx)
	if err != nil {
		return "", err
	}
	deleted, err := o.s.GetDB().DeactivateAllChannels(ctx, group.ID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Removed %d channels", deleted), nil
}

func (o *Owner) groupStatus(ctx context.Context) (string, error) {
	group, err := o.selectedGroup(ctx)
	if err != nil {
		return "", err
	}
	now := time.Now()

	requirements, err := o.s.GetDB().ActiveChannelRequirements(ctx, group.ID, now)
	if err != nil {
		return "", err
	}
	vips, err := o.s.GetDB().ActiveVIPGrantsForGroup(ctx, group.ID, now)
	if err != nil {
		return "", err
	}
	mutes, err := o.s.GetDB().ActiveMuteRecords(ctx, group.ID, now)
	if err != nil {
		return "", err
	}

	lines := []string{
		fmt.Sprintf("%s (%d)", group.Title, group.ID),
		fmt.Sprintf("Auto-delete: %ds", group.AutoDeleteSeconds),
		fmt.Sprintf("Channels (%d/%d):", len(requirements), config.Get().MaxChannelsPerGroup),
	}
	for _, req := range requirements {
		line := "  " + req.Channel
		if req.CheckUntil != nil {
			line += " until " + timeparse.FormatDateTime(*req.CheckUntil)
		}
		lines = append(lines, line)
	}
	lines = append(lines, fmt.Sprintf("Active VIP grants: %d", len(vips)))
	lines = append(lines, fmt.Sprintf("Active mutes: %d", len(mutes)))
	return strings.Join(lines, "\n"), nil
}

// parseUserRef reads "<user_id> [@username]" from command arguments.
func parseUserRef(args string) (int64, string, []string, bool) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return 0, "", nil, false
	}
	userID, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0, "", nil, false
	}
	username := ""
	rest := fields[1:]
	if len(rest) > 0 && strings.HasPrefix(rest[0], "@") {
		username = rest[0]
		rest = rest[1:]
	}
	return userID, username, rest, true
}

func (o *Owner) grantGlobal(ctx context.Context, args, tier string, endAt *time.Time) (string, error) {
	userID, username, _, ok := parseUserRef(args)
	if !ok {
		return "Usage: /add_VIP <user_id> [@username]", nil
	}
	if err := o.vip.GrantGlobal(ctx, userID, username, tier, endAt); err != nil {
		return "", err
	}
	suffix := "permanent"
	if endAt != nil {
		suffix = "until " + timeparse.FormatDateTime(*endAt)
	}
	return fmt.Sprintf("%s granted to %d, %s", tier, userID, suffix), nil
}

func (o *Owner) grantLocal(ctx context.Context, args string) (string, error) {
	group, err := o.selectedGroup(ctx)
	if err != nil {
		return "", err
	}
	userID, username, _, ok := parseUserRef(args)
	if !ok {
		return "Usage: /add_VIP_local <user_id> [@username]", nil
	}
	if err := o.vip.GrantLocal(ctx, userID, username, db.TierVIP, group.ID, nil); err != nil {
		if errors.Is(err, moderation.ErrGroupLimit) {
			return "User is at the VIP group limit", nil
		}
		return "", err
	}
	return fmt.Sprintf("VIP granted to %d in %s", userID, group.Title), nil
}

func (o *Owner) grantTimed(ctx context.Context, args string) (string, error) {
	userID, username, rest, ok := parseUserRef(args)
	if !ok || len(rest) == 0 {
		return "Usage: /add_VIP_time <user_id> [@username] <duration, e.g. 30d>", nil
	}
	endAt, ok := timeparse.ParseDeadline(rest[0], time.Now())
	if !ok {
		return "Bad duration, use forms like 12h or 30d", nil
	}
	return o.grantGlobal(ctx, fmt.Sprintf("%d %s", userID, username), db.TierVIP, &endAt)
}

func (o *Owner) revoke(ctx context.Context, args, tier string) (string, error) {
	username := strings.TrimSpace(args)
	if username == "" {
		return "Usage: /del_VIP @username", nil
	}
	deleted, err := o.vip.Revoke(ctx, username, tier)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Revoked %d %s grants", deleted, tier), nil
}

func (o *Owner) revokeAll(ctx context.Context, tier string) (string, error) {
	deleted, err := o.vip.RevokeAll(ctx, tier)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Revoked %d %s grants", deleted, tier), nil
}

func (o *Owner) muteStatus(ctx context.Context) (string, error) {
	group, err := o.selectedGroup(ctx)
	if err != nil {
		return "", err
	}
	records, err := o.s.GetDB().MuteRecordsForGroup(ctx, group.ID)
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return "No violation records", nil
	}
	lines := make([]string, 0, len(records))
	for _, record := range records {
		line := fmt.Sprintf("%d (%s): level %d", record.UserID, record.Username, record.Violations)
		if record.MuteEnd != nil {
			line += ", muted until " + timeparse.FormatDateTime(*record.MuteEnd)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), nil
}

// unmute lifts the restriction and clears the violation history of one
// user in the working group.
func (o *Owner) unmute(ctx context.Context, args string) (string, error) {
	group, err := o.selectedGroup(ctx)
	if err != nil {
		return "", err
	}
	userID, err := strconv.ParseInt(strings.TrimSpace(args), 10, 64)
	if err != nil {
		return "Usage: /off_mute <user_id>", nil
	}

	if err := o.s.GetBot().RestrictMember(ctx, group.ID, userID, platform.FullPermissions(), time.Time{}); err != nil {
		o.getLogEntry().WithError(err).Warn("cant lift restriction")
	}
	deleted, err := o.s.GetDB().DeleteMuteRecord(ctx, userID, group.ID)
	if err != nil {
		return "", err
	}
	if deleted == 0 {
		return "No record for that user", nil
	}
	return fmt.Sprintf("Unmuted %d", userID), nil
}

func (o *Owner) unmuteAll(ctx context.Context) (string, error) {
	group, err := o.selectedGroup(ctx)
	if err != nil {
		return "", err
	}
	records, err := o.s.GetDB().MuteRecordsForGroup(ctx, group.ID)
	if err != nil {
		return "", err
	}
	for _, record := range records {
		if record.MuteEnd == nil {
			continue
		}
		if err := o.s.GetBot().RestrictMember(ctx, group.ID, record.UserID, platform.FullPermissions(), time.Time{}); err != nil {
			o.getLogEntry().WithError(err).WithField("user_id", record.UserID).Warn("cant lift restriction")
		}
	}
	deleted, err := o.s.GetDB().DeleteMuteRecordsForGroup(ctx, group.ID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Cleared %d records", deleted), nil
}

func (o *Owner) getLogEntry() *log.Entry {
	return log.WithField("context", "owner")
}
