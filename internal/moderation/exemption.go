package moderation

import (
	"context"
	"time"

	"github.com/iamwavecut/subwarden/internal/db"
	"github.com/iamwavecut/subwarden/internal/platform"
	log "github.com/sirupsen/logrus"
)

type exemptionStore interface {
	HasActiveVIPGrant(ctx context.Context, userID, groupID int64, scope string, now time.Time) (bool, error)
}

// ExemptionResolver decides whether a user is exempt from subscription
// gating in a group. Checks are ordered cheapest first; any lookup error
// fails closed, the user is treated as not exempt.
type ExemptionResolver struct {
	ownerID int64
	bot     platform.Client
	store   exemptionStore
}

func NewExemptionResolver(ownerID int64, bot platform.Client, store exemptionStore) *ExemptionResolver {
	return &ExemptionResolver{
		ownerID: ownerID,
		bot:     bot,
		store:   store,
	}
}

// IsOwner reports whether the user is the configured bot owner.
func (r *ExemptionResolver) IsOwner(userID int64) bool {
	return userID == r.ownerID
}

// IsPrivileged reports whether the user is the owner or holds an admin
// role in the group. VIP grants carry no privilege.
func (r *ExemptionResolver) IsPrivileged(ctx context.Context, userID, groupID int64) bool {
	if r.IsOwner(userID) {
		return true
	}
	status, err := r.bot.GetChatMember(ctx, groupID, userID)
	if err != nil {
		log.WithField("context", "exemption").
			WithField("user_id", userID).
			WithField("group_id", groupID).
			WithError(err).Warn("cant fetch member status")
		return false
	}
	return status.Admin()
}

// IsExempt checks owner, admin role, then VIP grants in scope order.
func (r *ExemptionResolver) IsExempt(ctx context.Context, userID, groupID int64) bool {
	entry := log.WithField("context", "exemption").WithField("user_id", userID).WithField("group_id", groupID)

	if r.IsPrivileged(ctx, userID, groupID) {
		return true
	}

	now := time.Now()
	global, err := r.store.HasActiveVIPGrant(ctx, userID, groupID, db.ScopeGlobal, now)
	if err != nil {
		entry.WithError(err).Warn("cant check global vip grant")
	} else if global {
		return true
	}

	local, err := r.store.HasActiveVIPGrant(ctx, userID, groupID, db.ScopeLocal, now)
	if err != nil {
		entry.WithError(err).Warn("cant check local vip grant")
	} else if local {
		return true
	}

	return false
}
