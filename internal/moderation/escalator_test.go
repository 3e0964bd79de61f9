package moderation

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/iamwavecut/subwarden/internal/db"
)

func newTestEscalator(bot *fakePlatform, store *fakeStore) *Escalator {
	return NewEscalator(bot, store, NewVIPService(store), fixedLanguage("ru"))
}

func TestEscalatorLadder(t *testing.T) {
	t.Parallel()

	steps := []struct {
		wantLevel int
		wantMute  time.Duration
	}{
		{wantLevel: 1, wantMute: 0},
		{wantLevel: 2, wantMute: 600 * time.Second},
		{wantLevel: 3, wantMute: 3600 * time.Second},
		{wantLevel: 4, wantMute: 86400 * time.Second},
		{wantLevel: 4, wantMute: 86400 * time.Second},
	}

	bot := newFakePlatform()
	store := newFakeStore()
	escalator := newTestEscalator(bot, store)
	msg := Message{MessageID: 7, GroupID: -100, UserID: 42, Username: "offender", IsGroupChat: true}

	for i, step := range steps {
		before := time.Now()
		handled, err := escalator.OnViolation(context.Background(), msg)
		if err != nil {
			t.Fatalf("step %d: %v", i+1, err)
		}
		if !handled {
			t.Fatalf("step %d: violation not handled", i+1)
		}
		record, err := store.GetMuteRecord(context.Background(), msg.UserID, msg.GroupID)
		if err != nil {
			t.Fatalf("step %d: %v", i+1, err)
		}
		if record == nil {
			t.Fatalf("step %d: no mute record", i+1)
		}
		if record.Violations != step.wantLevel {
			t.Errorf("step %d: violations = %d, want %d", i+1, record.Violations, step.wantLevel)
		}
		if step.wantMute == 0 {
			if record.MuteEnd != nil {
				t.Errorf("step %d: unexpected mute end %v", i+1, record.MuteEnd)
			}
			continue
		}
		if record.MuteEnd == nil {
			t.Fatalf("step %d: missing mute end", i+1)
		}
		got := record.MuteEnd.Sub(before)
		if got < step.wantMute || got > step.wantMute+5*time.Second {
			t.Errorf("step %d: mute window = %v, want about %v", i+1, got, step.wantMute)
		}
	}

	// One restriction per muted step, none for the warning.
	if len(bot.restricted) != 4 {
		t.Errorf("restrictions = %d, want 4", len(bot.restricted))
	}
	if len(bot.deleted) != len(steps) {
		t.Errorf("deleted messages = %d, want %d", len(bot.deleted), len(steps))
	}
}

func TestEscalatorMuteImmunity(t *testing.T) {
	t.Parallel()

	bot := newFakePlatform()
	store := newFakeStore()
	store.grants = append(store.grants, &db.VIPGrant{
		UserID: 42, Username: "vip", Tier: db.TierVIPPlus, Scope: db.ScopeGlobal, StartAt: time.Now(),
	})
	escalator := newTestEscalator(bot, store)

	msg := Message{MessageID: 7, GroupID: -100, UserID: 42, IsGroupChat: true}
	handled, err := escalator.OnViolation(context.Background(), msg)
	if err != nil {
		t.Fatal(err)
	}
	if handled {
		t.Error("immune user reported handled")
	}

	record, _ := store.GetMuteRecord(context.Background(), 42, -100)
	if record != nil {
		t.Errorf("counter moved for immune user: %+v", record)
	}
	if len(bot.deleted) != 0 {
		t.Errorf("message deleted for immune user")
	}
	if len(bot.restricted) != 0 {
		t.Errorf("immune user restricted")
	}
}

func TestEscalatorPlainVIPNotImmune(t *testing.T) {
	t.Parallel()

	bot := newFakePlatform()
	store := newFakeStore()
	store.grants = append(store.grants, &db.VIPGrant{
		UserID: 42, Username: "vip", Tier: db.TierVIP, Scope: db.ScopeGlobal, StartAt: time.Now(),
	})
	escalator := newTestEscalator(bot, store)

	msg := Message{MessageID: 7, GroupID: -100, UserID: 42, IsGroupChat: true}
	if _, err := escalator.OnViolation(context.Background(), msg); err != nil {
		t.Fatal(err)
	}

	record, _ := store.GetMuteRecord(context.Background(), 42, -100)
	if record == nil || record.Violations != 1 {
		t.Errorf("expected level 1 warning record, got %+v", record)
	}
}

func TestEscalatorStoreReadFailureSurfaces(t *testing.T) {
	t.Parallel()

	bot := newFakePlatform()
	store := newFakeStore()
	store.mutes[muteKey(42, -100)] = &db.MuteRecord{
		UserID: 42, GroupID: -100, Violations: 3, MutedAt: time.Now(),
	}
	store.muteErr = errors.New("db locked")
	escalator := newTestEscalator(bot, store)

	msg := Message{MessageID: 7, GroupID: -100, UserID: 42, IsGroupChat: true}
	handled, err := escalator.OnViolation(context.Background(), msg)
	if err == nil {
		t.Fatal("store failure swallowed")
	}
	if handled {
		t.Error("failed escalation reported handled")
	}

	// The event is abandoned whole: no deletion, no sanction, and the
	// existing counter is left as it was.
	if len(bot.deleted) != 0 || len(bot.restricted) != 0 || len(bot.sent) != 0 {
		t.Errorf("side effects despite store failure: deleted=%d restricted=%d sent=%d",
			len(bot.deleted), len(bot.restricted), len(bot.sent))
	}
	if record := store.mutes[muteKey(42, -100)]; record.Violations != 3 {
		t.Errorf("violation counter moved to %d", record.Violations)
	}
}

func TestFormatMuteDuration(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		d    time.Duration
		lang string
		want string
	}{
		{600 * time.Second, "ru", "10м"},
		{3600 * time.Second, "ru", "1ч 0м"},
		{86400 * time.Second, "ru", "24ч 0м"},
		{90 * time.Minute, "ru", "1ч 30м"},
		{600 * time.Second, "en", "10m"},
		{86400 * time.Second, "en", "24h 0m"},
	} {
		if got := FormatMuteDuration(tc.d, tc.lang); got != tc.want {
			t.Errorf("FormatMuteDuration(%v, %q) = %q, want %q", tc.d, tc.lang, got, tc.want)
		}
	}
}

func TestEscalatorWarningMentionsUser(t *testing.T) {
	t.Parallel()

	bot := newFakePlatform()
	store := newFakeStore()
	escalator := newTestEscalator(bot, store)

	msg := Message{MessageID: 7, GroupID: -100, UserID: 42, Username: "offender", IsGroupChat: true}
	if _, err := escalator.OnViolation(context.Background(), msg); err != nil {
		t.Fatal(err)
	}

	texts := bot.sentTexts()
	if len(texts) != 1 {
		t.Fatalf("sent %d messages, want 1", len(texts))
	}
	if !strings.Contains(texts[0], "@offender") {
		t.Errorf("warning does not mention the user: %q", texts[0])
	}
}
