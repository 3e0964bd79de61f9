package config

import "time"

// Violation severity is capped: a user at the top level stays there.
const MaxViolationLevel = 4

type ViolationAction string

const (
	ActionWarning ViolationAction = "warning"
	ActionMute    ViolationAction = "mute"
)

type ViolationLevel struct {
	Action       ViolationAction
	MuteDuration time.Duration
}

var violationLadder = map[int]ViolationLevel{
	1: {Action: ActionWarning},
	2: {Action: ActionMute, MuteDuration: 600 * time.Second},
	3: {Action: ActionMute, MuteDuration: 3600 * time.Second},
	4: {Action: ActionMute, MuteDuration: 86400 * time.Second},
}

// LadderLevel returns the escalation row for a severity level. Levels
// outside the ladder resolve to the top row.
func LadderLevel(level int) ViolationLevel {
	if row, ok := violationLadder[level]; ok {
		return row
	}
	return violationLadder[MaxViolationLevel]
}

type TierFeatures struct {
	SubscriptionFree bool
	MaxGroups        int
	Contests         bool
	AntifloodImmune  bool
	MuteImmune       bool
	MediaUnlimited   bool
	Stats            bool
	CustomCommands   bool
	ProfileMark      string
}

var tierFeatures = map[string]TierFeatures{
	"VIP": {
		SubscriptionFree: true,
		MaxGroups:        1,
		Contests:         true,
		ProfileMark:      "VIP",
	},
	"VIP_PLUS": {
		SubscriptionFree: true,
		MaxGroups:        3,
		Contests:         true,
		AntifloodImmune:  true,
		MuteImmune:       true,
		MediaUnlimited:   true,
		Stats:            true,
		CustomCommands:   true,
		ProfileMark:      "VIP_PLUS",
	},
}

// FeaturesForTier returns the feature set of a VIP tier. Unknown tiers get
// an empty feature set.
func FeaturesForTier(tier string) TierFeatures {
	return tierFeatures[tier]
}
