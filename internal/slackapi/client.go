// Package slackapi wraps the Slack Web API calls used as a directory
// fallback when an author is absent from the export's user dump.
package slackapi

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/slack-go/slack"
)

// Profile is the normalized subset of a Slack user or bot profile the
// resolver needs.
type Profile struct {
	ID          string
	DisplayName string
	AvatarURL   string
	Color       string
	BotAppID    string
	Deleted     bool
	IsBot       bool
}

// Client calls the Slack Web API.
type Client struct {
	api    *slack.Client
	logger *slog.Logger
}

// NewClient creates a Slack directory client for the given token.
func NewClient(log *slog.Logger, token string) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		api:    slack.New(token),
		logger: log.With(slog.String("service", "slackapi")),
	}
}

// GetUserProfile fetches a human user's profile by id.
func (c *Client) GetUserProfile(ctx context.Context, id string) (Profile, error) {
	user, err := c.api.GetUserInfoContext(ctx, id)
	if err != nil {
		return Profile{}, fmt.Errorf("users.info %s: %w", id, err)
	}
	displayName := user.Profile.DisplayName
	if displayName == "" {
		displayName = user.RealName
	}
	if displayName == "" {
		displayName = user.Name
	}
	return Profile{
		ID:          user.ID,
		DisplayName: displayName,
		AvatarURL:   user.Profile.Image192,
		Color:       user.Color,
		Deleted:     user.Deleted,
		IsBot:       user.IsBot,
	}, nil
}

// GetBotProfile fetches a bot's profile by its per-workspace bot id.
func (c *Client) GetBotProfile(ctx context.Context, id string) (Profile, error) {
	bot, err := c.api.GetBotInfoContext(ctx, slack.GetBotInfoParameters{Bot: id})
	if err != nil {
		return Profile{}, fmt.Errorf("bots.info %s: %w", id, err)
	}
	return Profile{
		ID:          bot.ID,
		DisplayName: bot.Name,
		AvatarURL:   bot.Icons.Image72,
		BotAppID:    bot.AppID,
		Deleted:     bot.Deleted,
		IsBot:       true,
	}, nil
}
