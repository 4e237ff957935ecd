// Package destroy removes deployed Discord entities and clears their ids in
// the correlation store, returning records to a re-deployable state.
package destroy

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/slackcord/slackcord/internal/migrate"
	"github.com/slackcord/slackcord/internal/store"
)

const pageSize = 100

const channelConcurrency = 4

// Destination is the slice of the Discord API the destroyers call. The
// concrete client treats a missing target as success, so deletes are safe to
// repeat.
type Destination interface {
	DeleteChannel(ctx context.Context, channelID string) error
	DeleteMessage(ctx context.Context, channelID, messageID string) error
}

// ChannelStore is the store slice the channel destroyer needs.
type ChannelStore interface {
	ListChannels(ctx context.Context) ([]store.Channel, error)
	ClearChannelDiscordID(ctx context.Context, slackID string) error
	ListCategories(ctx context.Context) ([]store.Category, error)
	ClearCategoryDiscordID(ctx context.Context, name string) error
}

// Channels tears down deployed channels and categories. Channels go first so
// a failure never leaves a channel without its category.
type Channels struct {
	store  ChannelStore
	dest   Destination
	logger *slog.Logger
}

func NewChannels(log *slog.Logger, channelStore ChannelStore, dest Destination) *Channels {
	if log == nil {
		log = slog.Default()
	}
	return &Channels{
		store:  channelStore,
		dest:   dest,
		logger: log.With(slog.String("service", "destroy/channels")),
	}
}

// Run deletes every deployed channel, then both categories. Records without
// a destination id are skipped, so a repeated destroy is a no-op.
func (s *Channels) Run(ctx context.Context) (*migrate.Report, error) {
	report := migrate.NewReport()

	channels, err := s.store.ListChannels(ctx)
	if err != nil {
		return report, err
	}
	for _, ch := range channels {
		if ch.DiscordID == "" {
			continue
		}
		if err := s.dest.DeleteChannel(ctx, ch.DiscordID); err != nil {
			report.Fail(ch.SlackID, err)
			continue
		}
		if err := s.store.ClearChannelDiscordID(ctx, ch.SlackID); err != nil {
			return report, fmt.Errorf("clear channel id %s: %w", ch.SlackID, err)
		}
		report.Success()
		s.logger.Info("channel destroyed", slog.String("channel", ch.Name))
	}

	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return report, err
	}
	for _, cat := range categories {
		if cat.DiscordID == "" {
			continue
		}
		if err := s.dest.DeleteChannel(ctx, cat.DiscordID); err != nil {
			report.Fail("category "+cat.Name, err)
			continue
		}
		if err := s.store.ClearCategoryDiscordID(ctx, cat.Name); err != nil {
			return report, fmt.Errorf("clear category id %s: %w", cat.Name, err)
		}
		report.Success()
		s.logger.Info("category destroyed", slog.String("category", cat.Name))
	}
	return report, nil
}

// MessageStore is the store slice the message destroyer needs.
type MessageStore interface {
	ListChannels(ctx context.Context) ([]store.Channel, error)
	ListMessages(ctx context.Context, channelSlackID, afterTS string, limit int) ([]store.Message, error)
	ClearMessageDiscordID(ctx context.Context, channelSlackID, slackTS string) error
}

// Messages deletes deployed messages channel by channel.
type Messages struct {
	store  MessageStore
	dest   Destination
	logger *slog.Logger
}

func NewMessages(log *slog.Logger, messageStore MessageStore, dest Destination) *Messages {
	if log == nil {
		log = slog.Default()
	}
	return &Messages{
		store:  messageStore,
		dest:   dest,
		logger: log.With(slog.String("service", "destroy/messages")),
	}
}

// Run deletes every deployed message of every deployed channel and clears
// the recorded ids. A failed delete is reported and does not stop the rest
// of the channel.
func (s *Messages) Run(ctx context.Context) (*migrate.Report, error) {
	channels, err := s.store.ListChannels(ctx)
	if err != nil {
		return nil, err
	}

	report := migrate.NewReport()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(channelConcurrency)
	for _, ch := range channels {
		if ch.DiscordID == "" {
			continue
		}
		g.Go(func() error {
			return s.destroyChannel(gctx, ch, report)
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}
	return report, nil
}

func (s *Messages) destroyChannel(ctx context.Context, ch store.Channel, report *migrate.Report) error {
	afterTS := ""
	for {
		page, err := s.store.ListMessages(ctx, ch.SlackID, afterTS, pageSize)
		if err != nil {
			return fmt.Errorf("list messages %s: %w", ch.SlackID, err)
		}
		if len(page) == 0 {
			return nil
		}
		for _, msg := range page {
			afterTS = msg.SlackTS
			if msg.DiscordID == "" {
				continue
			}
			if err := s.dest.DeleteMessage(ctx, ch.DiscordID, msg.DiscordID); err != nil {
				report.Fail(ch.SlackID+"/"+msg.SlackTS, err)
				continue
			}
			if err := s.store.ClearMessageDiscordID(ctx, msg.ChannelSlackID, msg.SlackTS); err != nil {
				return fmt.Errorf("clear message id: %w", err)
			}
			report.Success()
		}
		if len(page) < pageSize {
			return nil
		}
	}
}
