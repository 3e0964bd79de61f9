package moderation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/iamwavecut/subwarden/internal/db"
	"github.com/iamwavecut/subwarden/internal/platform"
)

type sentMessage struct {
	chatID  int64
	text    string
	replyTo int
	buttons []platform.Button
}

type restriction struct {
	chatID int64
	userID int64
	perms  platform.Permissions
	until  time.Time
}

// fakePlatform records outgoing calls and answers membership lookups from
// scripted maps.
type fakePlatform struct {
	mu sync.Mutex

	sent       []sentMessage
	deleted    [][2]int64 // chatID, messageID
	restricted []restriction

	memberStatus map[string]platform.MemberStatus // "chatID:userID"
	memberErr    map[string]error
	handles      map[string]platform.ChatRef
	handleErr    map[string]error
	sendErr      error
	nextMsgID    int
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		memberStatus: map[string]platform.MemberStatus{},
		memberErr:    map[string]error{},
		handles:      map[string]platform.ChatRef{},
		handleErr:    map[string]error{},
		nextMsgID:    100,
	}
}

func statusKey(chatID, userID int64) string {
	return fmt.Sprintf("%d:%d", chatID, userID)
}

func (f *fakePlatform) SendMessage(_ context.Context, chatID int64, text string, opts *platform.SendOptions) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return 0, f.sendErr
	}
	msg := sentMessage{chatID: chatID, text: text}
	if opts != nil {
		msg.replyTo = opts.ReplyToMessageID
		msg.buttons = opts.Buttons
	}
	f.sent = append(f.sent, msg)
	f.nextMsgID++
	return f.nextMsgID, nil
}

func (f *fakePlatform) DeleteMessage(_ context.Context, chatID int64, messageID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, [2]int64{chatID, int64(messageID)})
	return nil
}

func (f *fakePlatform) RestrictMember(_ context.Context, chatID, userID int64, permissions platform.Permissions, until time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.restricted = append(f.restricted, restriction{chatID: chatID, userID: userID, perms: permissions, until: until})
	return nil
}

func (f *fakePlatform) GetChatMember(_ context.Context, chatID, userID int64) (platform.MemberStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := statusKey(chatID, userID)
	if err, ok := f.memberErr[key]; ok {
		return "", err
	}
	if status, ok := f.memberStatus[key]; ok {
		return status, nil
	}
	return platform.StatusLeft, nil
}

func (f *fakePlatform) ResolveHandle(_ context.Context, handle string) (platform.ChatRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.handleErr[handle]; ok {
		return platform.ChatRef{}, err
	}
	if ref, ok := f.handles[handle]; ok {
		return ref, nil
	}
	return platform.ChatRef{}, db.ErrNotFound
}

func (f *fakePlatform) setMember(chatID, userID int64, status platform.MemberStatus) {
	f.memberStatus[statusKey(chatID, userID)] = status
}

func (f *fakePlatform) sentTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	texts := make([]string, 0, len(f.sent))
	for _, m := range f.sent {
		texts = append(texts, m.text)
	}
	return texts
}

// fakeStore is an in-memory stand-in for the persistence layer, covering
// every narrow store interface the engine consumes.
type fakeStore struct {
	mu sync.Mutex

	groups       map[int64]*db.Group
	requirements []*db.ChannelRequirement
	grants       []*db.VIPGrant
	mutes        map[string]*db.MuteRecord // "userID:groupID"

	grantErr error
	muteErr  error
	nextID   int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		groups: map[int64]*db.Group{},
		mutes:  map[string]*db.MuteRecord{},
	}
}

func (s *fakeStore) UpsertGroup(_ context.Context, group *db.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.groups[group.ID]; ok {
		existing.Title = group.Title
		existing.Username = group.Username
		return nil
	}
	copied := *group
	s.groups[group.ID] = &copied
	return nil
}

func (s *fakeStore) GetGroup(_ context.Context, groupID int64) (*db.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	group, ok := s.groups[groupID]
	if !ok {
		return nil, db.ErrNotFound
	}
	copied := *group
	return &copied, nil
}

func (s *fakeStore) ActiveChannelRequirements(_ context.Context, groupID int64, now time.Time) ([]*db.ChannelRequirement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var active []*db.ChannelRequirement
	for _, req := range s.requirements {
		if req.GroupID != groupID || !req.Active {
			continue
		}
		if req.CheckUntil != nil && !req.CheckUntil.After(now) {
			continue
		}
		active = append(active, req)
	}
	return active, nil
}

func (s *fakeStore) AddVIPGrant(_ context.Context, grant *db.VIPGrant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.grantErr != nil {
		return s.grantErr
	}
	s.nextID++
	copied := *grant
	copied.ID = s.nextID
	s.grants = append(s.grants, &copied)
	return nil
}

func (s *fakeStore) activeGrants(userID, groupID int64, now time.Time) []*db.VIPGrant {
	var matched []*db.VIPGrant
	for _, g := range s.grants {
		if g.UserID != userID || !g.Active(now) {
			continue
		}
		if g.Scope == db.ScopeLocal && g.GroupID != groupID {
			continue
		}
		matched = append(matched, g)
	}
	return matched
}

func (s *fakeStore) GetActiveVIPGrant(_ context.Context, userID, groupID int64, now time.Time) (*db.VIPGrant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.grantErr != nil {
		return nil, s.grantErr
	}
	matched := s.activeGrants(userID, groupID, now)
	if len(matched) == 0 {
		return nil, db.ErrNotFound
	}
	best := matched[0]
	for _, g := range matched[1:] {
		if g.Tier == db.TierVIPPlus && best.Tier != db.TierVIPPlus {
			best = g
		}
	}
	return best, nil
}

func (s *fakeStore) HasActiveVIPGrant(_ context.Context, userID, groupID int64, scope string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.grantErr != nil {
		return false, s.grantErr
	}
	for _, g := range s.activeGrants(userID, groupID, now) {
		if g.Scope == scope {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) CountActiveLocalVIPGroups(_ context.Context, userID int64, tier string, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[int64]struct{}{}
	for _, g := range s.grants {
		if g.UserID == userID && g.Tier == tier && g.Scope == db.ScopeLocal && g.Active(now) {
			seen[g.GroupID] = struct{}{}
		}
	}
	return len(seen), nil
}

func (s *fakeStore) DeleteVIPGrantsByUsername(_ context.Context, username, tier string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []*db.VIPGrant
	var deleted int64
	for _, g := range s.grants {
		if g.Username == username && g.Tier == tier {
			deleted++
			continue
		}
		kept = append(kept, g)
	}
	s.grants = kept
	return deleted, nil
}

func (s *fakeStore) DeleteAllVIPGrants(_ context.Context, tier string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []*db.VIPGrant
	var deleted int64
	for _, g := range s.grants {
		if g.Tier == tier {
			deleted++
			continue
		}
		kept = append(kept, g)
	}
	s.grants = kept
	return deleted, nil
}

func (s *fakeStore) DeleteExpiredVIPGrants(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []*db.VIPGrant
	var deleted int64
	for _, g := range s.grants {
		if !g.Active(now) {
			deleted++
			continue
		}
		kept = append(kept, g)
	}
	s.grants = kept
	return deleted, nil
}

func muteKey(userID, groupID int64) string {
	return fmt.Sprintf("%d:%d", userID, groupID)
}

func (s *fakeStore) GetMuteRecord(_ context.Context, userID, groupID int64) (*db.MuteRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.muteErr != nil {
		return nil, s.muteErr
	}
	record, ok := s.mutes[muteKey(userID, groupID)]
	if !ok {
		return nil, nil
	}
	copied := *record
	return &copied, nil
}

func (s *fakeStore) UpsertMuteRecord(_ context.Context, record *db.MuteRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.muteErr != nil {
		return s.muteErr
	}
	copied := *record
	s.mutes[muteKey(record.UserID, record.GroupID)] = &copied
	return nil
}

func (s *fakeStore) DeleteMuteRecord(_ context.Context, userID, groupID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.mutes[muteKey(userID, groupID)]; !ok {
		return 0, nil
	}
	delete(s.mutes, muteKey(userID, groupID))
	return 1, nil
}

func (s *fakeStore) ExpiredMuteRecords(_ context.Context, now time.Time) ([]*db.MuteRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var expired []*db.MuteRecord
	for _, record := range s.mutes {
		if record.MuteEnd != nil && !record.MuteEnd.After(now) {
			copied := *record
			expired = append(expired, &copied)
		}
	}
	return expired, nil
}

func (s *fakeStore) ExpiredChannelRequirements(_ context.Context, now time.Time) ([]*db.ExpiredChannelRequirement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var expired []*db.ExpiredChannelRequirement
	for _, req := range s.requirements {
		if !req.Active || req.CheckUntil == nil || req.CheckUntil.After(now) {
			continue
		}
		title := ""
		if group, ok := s.groups[req.GroupID]; ok {
			title = group.Title
		}
		expired = append(expired, &db.ExpiredChannelRequirement{ChannelRequirement: *req, GroupTitle: title})
	}
	return expired, nil
}

func (s *fakeStore) DeactivateChannelRequirement(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, req := range s.requirements {
		if req.ID == id {
			req.Active = false
			return nil
		}
	}
	return db.ErrNotFound
}

func (s *fakeStore) addRequirement(groupID int64, channel string, until *time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.requirements = append(s.requirements, &db.ChannelRequirement{
		ID:         s.nextID,
		GroupID:    groupID,
		Channel:    channel,
		AddedAt:    time.Now(),
		CheckUntil: until,
		Active:     true,
	})
}

// fixedLanguage satisfies the language resolver without a database.
type fixedLanguage string

func (l fixedLanguage) GetLanguage(context.Context, int64) string {
	return string(l)
}
