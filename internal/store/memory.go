package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// Memory is an in-memory Store used by tests and dry runs. Semantics mirror
// the Postgres implementation: upserts are keyed by natural key and never
// drop an assigned Discord id.
type Memory struct {
	mu         sync.Mutex
	channels   map[string]Channel
	categories map[string]Category
	users      map[string]User
	messages   map[string]Message // key: channelSlackID + "\x00" + slackTS
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		channels:   map[string]Channel{},
		categories: map[string]Category{},
		users:      map[string]User{},
		messages:   map[string]Message{},
	}
}

var _ Store = (*Memory)(nil)

func (m *Memory) UpsertChannels(_ context.Context, channels []Channel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	for _, ch := range channels {
		ch.SlackID = strings.TrimSpace(ch.SlackID)
		existing, ok := m.channels[ch.SlackID]
		if ok {
			ch.CreatedAt = existing.CreatedAt
			if ch.DiscordID == "" {
				ch.DiscordID = existing.DiscordID
			}
		} else {
			ch.CreatedAt = now
		}
		ch.UpdatedAt = now
		m.channels[ch.SlackID] = ch
	}
	return nil
}

func (m *Memory) ListChannels(_ context.Context) ([]Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Channel, 0, len(m.channels))
	for _, ch := range m.channels {
		out = append(out, ch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) GetChannelBySlackID(_ context.Context, slackID string) (Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.channels[strings.TrimSpace(slackID)]
	if !ok {
		return Channel{}, ErrChannelNotFound
	}
	return ch, nil
}

func (m *Memory) SetChannelDiscordID(_ context.Context, slackID, discordID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.channels[slackID]
	if !ok {
		return ErrChannelNotFound
	}
	ch.DiscordID = discordID
	ch.UpdatedAt = time.Now().UTC()
	m.channels[slackID] = ch
	return nil
}

func (m *Memory) ClearChannelDiscordID(_ context.Context, slackID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.channels[slackID]
	if !ok {
		return ErrChannelNotFound
	}
	ch.DiscordID = ""
	ch.UpdatedAt = time.Now().UTC()
	m.channels[slackID] = ch
	return nil
}

func (m *Memory) UpsertCategory(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	if existing, ok := m.categories[name]; ok {
		existing.UpdatedAt = now
		m.categories[name] = existing
		return nil
	}
	m.categories[name] = Category{Name: name, CreatedAt: now, UpdatedAt: now}
	return nil
}

func (m *Memory) ListCategories(_ context.Context) ([]Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Category, 0, len(m.categories))
	for _, c := range m.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) GetCategory(_ context.Context, name string) (Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.categories[name]
	if !ok {
		return Category{}, ErrCategoryNotFound
	}
	return c, nil
}

func (m *Memory) SetCategoryDiscordID(_ context.Context, name, discordID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.categories[name]
	if !ok {
		return ErrCategoryNotFound
	}
	c.DiscordID = discordID
	c.UpdatedAt = time.Now().UTC()
	m.categories[name] = c
	return nil
}

func (m *Memory) ClearCategoryDiscordID(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.categories[name]
	if !ok {
		return ErrCategoryNotFound
	}
	c.DiscordID = ""
	c.UpdatedAt = time.Now().UTC()
	m.categories[name] = c
	return nil
}

func (m *Memory) UpsertUsers(_ context.Context, users []User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	for _, u := range users {
		u.SlackID = strings.TrimSpace(u.SlackID)
		if existing, ok := m.users[u.SlackID]; ok {
			u.CreatedAt = existing.CreatedAt
		} else {
			u.CreatedAt = now
		}
		u.UpdatedAt = now
		m.users[u.SlackID] = u
	}
	return nil
}

func (m *Memory) GetUserBySlackID(_ context.Context, slackID string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[strings.TrimSpace(slackID)]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (m *Memory) GetUserByBotAppID(_ context.Context, botAppID string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	botAppID = strings.TrimSpace(botAppID)
	if botAppID == "" {
		return User{}, ErrUserNotFound
	}
	for _, u := range m.users {
		if u.BotAppID == botAppID {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (m *Memory) UpsertMessages(_ context.Context, messages []Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	for _, msg := range messages {
		key := msg.ChannelSlackID + "\x00" + msg.SlackTS
		existing, ok := m.messages[key]
		if ok {
			msg.CreatedAt = existing.CreatedAt
			if msg.DiscordID == "" {
				msg.DiscordID = existing.DiscordID
			}
		} else {
			msg.CreatedAt = now
		}
		msg.UpdatedAt = now
		m.messages[key] = msg
	}
	return nil
}

func (m *Memory) ListMessages(_ context.Context, channelSlackID, afterTS string, limit int) ([]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Message
	for _, msg := range m.messages {
		if msg.ChannelSlackID != channelSlackID {
			continue
		}
		if afterTS != "" && msg.SlackTS <= afterTS {
			continue
		}
		out = append(out, msg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SlackTS < out[j].SlackTS })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) SetMessageDiscordID(_ context.Context, channelSlackID, slackTS, discordID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := channelSlackID + "\x00" + slackTS
	msg, ok := m.messages[key]
	if !ok {
		return ErrMessageNotFound
	}
	msg.DiscordID = discordID
	msg.UpdatedAt = time.Now().UTC()
	m.messages[key] = msg
	return nil
}

func (m *Memory) ClearMessageDiscordID(_ context.Context, channelSlackID, slackTS string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := channelSlackID + "\x00" + slackTS
	msg, ok := m.messages[key]
	if !ok {
		return ErrMessageNotFound
	}
	msg.DiscordID = ""
	msg.UpdatedAt = time.Now().UTC()
	m.messages[key] = msg
	return nil
}
