package moderation

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/iamwavecut/subwarden/internal/db"
	"github.com/iamwavecut/subwarden/internal/platform"
)

func newTestSweeper(bot *fakePlatform, store *fakeStore) *Sweeper {
	return NewSweeper(bot, store, testOwnerID, time.Minute, fixedLanguage("en"))
}

func TestSweeperChannelWindows(t *testing.T) {
	t.Parallel()

	bot := newFakePlatform()
	store := newFakeStore()
	store.groups[testGroupID] = &db.Group{ID: testGroupID, Title: "Chatty"}
	past := time.Now().Add(-time.Hour)
	store.addRequirement(testGroupID, "@ended", &past)
	store.addRequirement(testGroupID, "@forever", nil)

	sweeper := newTestSweeper(bot, store)
	sweeper.Sweep(context.Background())

	active, _ := store.ActiveChannelRequirements(context.Background(), testGroupID, time.Now())
	if len(active) != 1 || active[0].Channel != "@forever" {
		t.Errorf("active requirements after sweep: %+v", active)
	}

	texts := bot.sentTexts()
	if len(texts) != 1 {
		t.Fatalf("owner notified %d times, want 1", len(texts))
	}
	if !strings.Contains(texts[0], "@ended") || !strings.Contains(texts[0], "Chatty") {
		t.Errorf("notification lacks channel or group: %q", texts[0])
	}
	if bot.sent[0].chatID != testOwnerID {
		t.Errorf("notification went to %d, want owner", bot.sent[0].chatID)
	}

	// A second pass finds nothing.
	sweeper.Sweep(context.Background())
	if len(bot.sentTexts()) != 1 {
		t.Error("sweep is not idempotent for channel windows")
	}
}

func TestSweeperExpiredVIPGrants(t *testing.T) {
	t.Parallel()

	bot := newFakePlatform()
	store := newFakeStore()
	past := time.Now().Add(-time.Minute)
	store.grants = append(store.grants,
		&db.VIPGrant{UserID: 1, Tier: db.TierVIP, Scope: db.ScopeGlobal, StartAt: past.Add(-time.Hour), EndAt: &past},
		&db.VIPGrant{UserID: 2, Tier: db.TierVIP, Scope: db.ScopeGlobal, StartAt: past},
	)

	newTestSweeper(bot, store).Sweep(context.Background())

	if len(store.grants) != 1 || store.grants[0].UserID != 2 {
		t.Errorf("grants after sweep: %+v", store.grants)
	}
}

func TestSweeperExpiredMutes(t *testing.T) {
	t.Parallel()

	bot := newFakePlatform()
	store := newFakeStore()
	past := time.Now().Add(-time.Minute)
	future := time.Now().Add(time.Hour)
	store.mutes[muteKey(1, testGroupID)] = &db.MuteRecord{
		UserID: 1, GroupID: testGroupID, Violations: 2, MutedAt: past.Add(-time.Hour), MuteEnd: &past,
	}
	store.mutes[muteKey(2, testGroupID)] = &db.MuteRecord{
		UserID: 2, GroupID: testGroupID, Violations: 3, MutedAt: past, MuteEnd: &future,
	}

	newTestSweeper(bot, store).Sweep(context.Background())

	if record, _ := store.GetMuteRecord(context.Background(), 1, testGroupID); record != nil {
		t.Errorf("expired mute record survived: %+v", record)
	}
	if record, _ := store.GetMuteRecord(context.Background(), 2, testGroupID); record == nil {
		t.Error("active mute record swept")
	}

	if len(bot.restricted) != 1 {
		t.Fatalf("restrictions lifted: %d, want 1", len(bot.restricted))
	}
	lift := bot.restricted[0]
	if lift.userID != 1 || lift.perms != platform.FullPermissions() || !lift.until.IsZero() {
		t.Errorf("unexpected lift call: %+v", lift)
	}
}

func TestSweeperStartStop(t *testing.T) {
	t.Parallel()

	sweeper := newTestSweeper(newFakePlatform(), newFakeStore())
	ctx := context.Background()
	if err := sweeper.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := sweeper.Start(ctx); err == nil {
		t.Error("double start accepted")
	}
	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sweeper.Stop(stopCtx); err != nil {
		t.Fatal(err)
	}
	if err := sweeper.Stop(stopCtx); err != nil {
		t.Errorf("second stop errored: %v", err)
	}
}
