package moderation

import (
	"context"
	"strings"
	"time"

	"github.com/iamwavecut/tool"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/subwarden/internal/config"
	"github.com/iamwavecut/subwarden/internal/db"
	"github.com/iamwavecut/subwarden/internal/i18n"
)

var ErrGroupLimit = errors.New("vip group limit reached")

type vipStore interface {
	AddVIPGrant(ctx context.Context, grant *db.VIPGrant) error
	GetActiveVIPGrant(ctx context.Context, userID, groupID int64, now time.Time) (*db.VIPGrant, error)
	HasActiveVIPGrant(ctx context.Context, userID, groupID int64, scope string, now time.Time) (bool, error)
	CountActiveLocalVIPGroups(ctx context.Context, userID int64, tier string, now time.Time) (int, error)
	DeleteVIPGrantsByUsername(ctx context.Context, username, tier string) (int64, error)
	DeleteAllVIPGrants(ctx context.Context, tier string) (int64, error)
}

// VIPService manages entitlement grants and answers feature questions for
// the rest of the engine.
type VIPService struct {
	store vipStore
}

func NewVIPService(store vipStore) *VIPService {
	return &VIPService{store: store}
}

// CanGrantLocal reports whether the user is below the tier's quota of
// distinct groups with local grants. Count errors fail closed.
func (s *VIPService) CanGrantLocal(ctx context.Context, userID int64, tier string) bool {
	count, err := s.store.CountActiveLocalVIPGroups(ctx, userID, tier, time.Now())
	if err != nil {
		log.WithField("context", "vip").WithField("user_id", userID).WithError(err).Warn("cant count vip groups")
		return false
	}
	return count < config.FeaturesForTier(tier).MaxGroups
}

// GrantLocal creates a group-scoped grant after checking the tier's group
// quota. Returns ErrGroupLimit when the user already holds grants in the
// maximum number of distinct groups for the tier. A group the user is
// already granted in never counts against the quota again.
func (s *VIPService) GrantLocal(ctx context.Context, userID int64, username, tier string, groupID int64, endAt *time.Time) error {
	now := time.Now()

	held, err := s.store.HasActiveVIPGrant(ctx, userID, groupID, db.ScopeLocal, now)
	if err != nil {
		return errors.WithMessage(err, "cant check existing grant")
	}
	if !held && !s.CanGrantLocal(ctx, userID, tier) {
		return ErrGroupLimit
	}

	return s.store.AddVIPGrant(ctx, &db.VIPGrant{
		UserID:   userID,
		Username: strings.TrimPrefix(username, "@"),
		Tier:     tier,
		Scope:    db.ScopeLocal,
		GroupID:  groupID,
		StartAt:  now,
		EndAt:    endAt,
	})
}

// GrantGlobal creates a grant valid in every group. Global grants have no
// group quota.
func (s *VIPService) GrantGlobal(ctx context.Context, userID int64, username, tier string, endAt *time.Time) error {
	return s.store.AddVIPGrant(ctx, &db.VIPGrant{
		UserID:   userID,
		Username: strings.TrimPrefix(username, "@"),
		Tier:     tier,
		Scope:    db.ScopeGlobal,
		StartAt:  time.Now(),
		EndAt:    endAt,
	})
}

// Revoke removes all grants of the tier held under the username. Returns
// the number of removed grants.
func (s *VIPService) Revoke(ctx context.Context, username, tier string) (int64, error) {
	return s.store.DeleteVIPGrantsByUsername(ctx, strings.TrimPrefix(username, "@"), tier)
}

// RevokeAll removes every grant of the tier across all users.
func (s *VIPService) RevokeAll(ctx context.Context, tier string) (int64, error) {
	return s.store.DeleteAllVIPGrants(ctx, tier)
}

// FeaturesFor resolves the strongest active grant covering the group and
// returns its feature set. No grant yields the empty feature set.
func (s *VIPService) FeaturesFor(ctx context.Context, userID, groupID int64) config.TierFeatures {
	grant, err := s.store.GetActiveVIPGrant(ctx, userID, groupID, time.Now())
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			log.WithField("context", "vip").WithField("user_id", userID).WithError(err).Warn("cant resolve grant")
		}
		return config.TierFeatures{}
	}
	return config.FeaturesForTier(grant.Tier)
}

// HasMuteImmunity reports whether the user's tier shields them from the
// escalation ladder in this group.
func (s *VIPService) HasMuteImmunity(ctx context.Context, userID, groupID int64) bool {
	return s.FeaturesFor(ctx, userID, groupID).MuteImmune
}

// StatusText renders the user-facing VIP status summary: the tier mark,
// its feature list and the validity bound.
func (s *VIPService) StatusText(ctx context.Context, userID, groupID int64, lang string) string {
	grant, err := s.store.GetActiveVIPGrant(ctx, userID, groupID, time.Now())
	if err != nil {
		return i18n.Get("No active VIP subscription", lang)
	}
	features := config.FeaturesForTier(grant.Tier)

	lines := []string{
		tool.ExecTemplate(i18n.Get("{{ .mark }} status active. Available features:", lang), map[string]any{
			"mark": features.ProfileMark,
		}),
	}
	if features.SubscriptionFree {
		lines = append(lines, "• "+i18n.Get("Subscription-free access", lang))
	}
	if features.MaxGroups > 0 {
		lines = append(lines, "• "+tool.ExecTemplate(i18n.Get("Access to {{ .count }} groups simultaneously", lang), map[string]any{
			"count": features.MaxGroups,
		}))
	}
	if features.MuteImmune {
		lines = append(lines, "• "+i18n.Get("Immunity to mutes", lang))
	}
	if features.AntifloodImmune {
		lines = append(lines, "• "+i18n.Get("Anti-flood protection", lang))
	}
	if features.MediaUnlimited {
		lines = append(lines, "• "+i18n.Get("Unlimited media files", lang))
	}
	if features.Stats {
		lines = append(lines, "• "+i18n.Get("Statistics access", lang))
	}
	if features.CustomCommands {
		lines = append(lines, "• "+i18n.Get("Custom commands", lang))
	}

	if grant.EndAt != nil {
		lines = append(lines, tool.ExecTemplate(i18n.Get("until {{ .date }}", lang), map[string]any{
			"date": grant.EndAt.Format("02.01.2006 15:04"),
		}))
	} else {
		lines = append(lines, i18n.Get("permanent", lang))
	}
	return strings.Join(lines, "\n")
}
