// Package moderation contains the enforcement engine: subscription
// gating, VIP entitlements and the repeat-offender escalation ladder.
package moderation

// Message is the normalized inbound event the engine works with. The
// transport layer fills it from the raw platform update.
type Message struct {
	MessageID     int
	GroupID       int64
	GroupTitle    string
	GroupUsername string
	UserID        int64
	Username      string
	FirstName     string
	IsGroupChat   bool
	Text          string
	IsCommand     bool
	Command       string
}

// DisplayName returns what we call the user in notices.
func (m Message) DisplayName() string {
	if m.Username != "" {
		return "@" + m.Username
	}
	if m.FirstName != "" {
		return m.FirstName
	}
	return "user"
}
