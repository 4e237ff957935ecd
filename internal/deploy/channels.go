// Package deploy creates the Discord-side counterparts of migrated records
// and writes destination ids back into the correlation store.
package deploy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/slackcord/slackcord/internal/migrate"
	"github.com/slackcord/slackcord/internal/store"
)

// Destination is the slice of the Discord API the deployers call. The
// concrete client wraps every call in the shared retry and rate-limit
// policy.
type Destination interface {
	BoostCount(ctx context.Context) (int, error)
	CreateCategory(ctx context.Context, name string) (string, error)
	CreateChannel(ctx context.Context, name, topic, categoryID string) (string, error)
	SendMessage(ctx context.Context, channelID, content string, files []store.Attachment) (string, error)
	PinMessage(ctx context.Context, channelID, messageID string) error
}

// ChannelStore is the store slice the channel deployer needs.
type ChannelStore interface {
	ListCategories(ctx context.Context) ([]store.Category, error)
	SetCategoryDiscordID(ctx context.Context, name, discordID string) error
	ListChannels(ctx context.Context) ([]store.Channel, error)
	SetChannelDiscordID(ctx context.Context, slackID, discordID string) error
}

// Channels deploys categories and channels.
type Channels struct {
	store           ChannelStore
	dest            Destination
	logger          *slog.Logger
	includeArchived bool
}

// NewChannels creates the category/channel deployer. When includeArchived is
// false, archived channels stay undeployed.
func NewChannels(log *slog.Logger, channelStore ChannelStore, dest Destination, includeArchived bool) *Channels {
	if log == nil {
		log = slog.Default()
	}
	return &Channels{
		store:           channelStore,
		dest:            dest,
		logger:          log.With(slog.String("service", "deploy/channels")),
		includeArchived: includeArchived,
	}
}

// Run deploys the two fixed categories and every channel without a
// destination id. Records already carrying a destination id are skipped, so
// re-running after a partial failure only deploys what is missing.
func (s *Channels) Run(ctx context.Context) (*migrate.Report, error) {
	report := migrate.NewReport()

	categoryIDs, err := s.deployCategories(ctx, report)
	if err != nil {
		return report, err
	}

	channels, err := s.store.ListChannels(ctx)
	if err != nil {
		return report, err
	}
	for _, ch := range channels {
		if ch.DiscordID != "" {
			s.logger.Debug("channel already deployed",
				slog.String("channel", ch.Name), slog.String("discord_id", ch.DiscordID))
			continue
		}
		if ch.Archived && !s.includeArchived {
			continue
		}
		categoryID, ok := categoryIDs[ch.Category]
		if !ok {
			report.Fail(ch.SlackID, fmt.Errorf("category %q has no destination id", ch.Category))
			continue
		}
		discordID, err := s.dest.CreateChannel(ctx, ch.Name, ch.Topic, categoryID)
		if err != nil {
			report.Fail(ch.SlackID, err)
			continue
		}
		if err := s.store.SetChannelDiscordID(ctx, ch.SlackID, discordID); err != nil {
			return report, fmt.Errorf("record channel id %s: %w", ch.SlackID, err)
		}
		report.Success()
		s.logger.Info("channel deployed",
			slog.String("channel", ch.Name), slog.String("discord_id", discordID))
	}
	return report, nil
}

func (s *Channels) deployCategories(ctx context.Context, report *migrate.Report) (map[string]string, error) {
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]string, len(categories))
	for _, cat := range categories {
		if cat.DiscordID != "" {
			ids[cat.Name] = cat.DiscordID
			continue
		}
		discordID, err := s.dest.CreateCategory(ctx, cat.Name)
		if err != nil {
			report.Fail("category "+cat.Name, err)
			continue
		}
		if err := s.store.SetCategoryDiscordID(ctx, cat.Name, discordID); err != nil {
			return nil, fmt.Errorf("record category id %s: %w", cat.Name, err)
		}
		ids[cat.Name] = discordID
		report.Success()
		s.logger.Info("category deployed",
			slog.String("category", cat.Name), slog.String("discord_id", discordID))
	}
	return ids, nil
}
