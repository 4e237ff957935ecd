// Package store holds the durable correlation model linking Slack-side
// identities to their Discord-side counterparts.
package store

import (
	"context"
	"errors"
	"time"
)

// Category names are a fixed set: regular channels go under the default
// category and archived channels under the archive category.
const (
	CategoryDefault = "default"
	CategoryArchive = "archive"
)

// User kinds.
const (
	UserKindActive      = "active"
	UserKindDeactivated = "deactivated"
	UserKindBot         = "bot"
)

var (
	ErrChannelNotFound  = errors.New("channel not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrMessageNotFound  = errors.New("message not found")
)

// Channel correlates a Slack channel with its deployed Discord channel.
// DiscordID is empty until deployed and cleared again on destroy; the record
// itself survives a destroy so the channel can be re-deployed.
type Channel struct {
	SlackID   string
	Name      string
	Topic     string
	Archived  bool
	Pins      []string
	Category  string
	DiscordID string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Category correlates one of the fixed category names with a Discord
// category channel.
type Category struct {
	Name      string
	DiscordID string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// User correlates a Slack user or bot with a stable identity record.
// Users are never destroyed; identity is reused across re-deployments.
type User struct {
	SlackID     string
	BotAppID    string
	DisplayName string
	Color       string
	AvatarURL   string
	Kind        string
	Deleted     bool
	IsBot       bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Attachment is a serialized descriptor of an uploaded Slack file.
type Attachment struct {
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// Message is the migrated form of one Slack message, keyed by
// (ChannelSlackID, SlackTS). Author fields are denormalized at migration
// time so deployment needs no joins.
type Message struct {
	ChannelSlackID string
	SlackTS        string
	Content        string
	Attachments    []Attachment
	Pinned         bool
	AuthorSlackID  string
	AuthorName     string
	AuthorKind     string
	AuthorColor    string
	AuthorAvatar   string
	DiscordID      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Store is the correlation store contract. Every write is an idempotent
// upsert keyed by the record's natural key, so re-running a migration step
// with unchanged input leaves the store equivalent. Updates never overwrite
// an assigned Discord id with an empty one; only the explicit Clear
// operations do that.
type Store interface {
	UpsertChannels(ctx context.Context, channels []Channel) error
	ListChannels(ctx context.Context) ([]Channel, error)
	GetChannelBySlackID(ctx context.Context, slackID string) (Channel, error)
	SetChannelDiscordID(ctx context.Context, slackID, discordID string) error
	ClearChannelDiscordID(ctx context.Context, slackID string) error

	UpsertCategory(ctx context.Context, name string) error
	ListCategories(ctx context.Context) ([]Category, error)
	GetCategory(ctx context.Context, name string) (Category, error)
	SetCategoryDiscordID(ctx context.Context, name, discordID string) error
	ClearCategoryDiscordID(ctx context.Context, name string) error

	UpsertUsers(ctx context.Context, users []User) error
	GetUserBySlackID(ctx context.Context, slackID string) (User, error)
	GetUserByBotAppID(ctx context.Context, botAppID string) (User, error)

	UpsertMessages(ctx context.Context, messages []Message) error
	// ListMessages returns up to limit messages of a channel with
	// SlackTS strictly greater than afterTS, ordered by ascending SlackTS.
	// Pass afterTS "" to start from the beginning.
	ListMessages(ctx context.Context, channelSlackID, afterTS string, limit int) ([]Message, error)
	SetMessageDiscordID(ctx context.Context, channelSlackID, slackTS, discordID string) error
	ClearMessageDiscordID(ctx context.Context, channelSlackID, slackTS string) error
}
