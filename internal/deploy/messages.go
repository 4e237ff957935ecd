package deploy

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/slackcord/slackcord/internal/logger"
	"github.com/slackcord/slackcord/internal/migrate"
	"github.com/slackcord/slackcord/internal/store"
)

// pageSize bounds how many message records one store round-trip returns.
const pageSize = 100

// channelConcurrency bounds how many channels deploy in parallel. Within a
// channel sends stay strictly sequential so Discord displays messages in
// their original order.
const channelConcurrency = 4

// MessageStore is the store slice the message deployer needs.
type MessageStore interface {
	ListChannels(ctx context.Context) ([]store.Channel, error)
	ListMessages(ctx context.Context, channelSlackID, afterTS string, limit int) ([]store.Message, error)
	UpsertMessages(ctx context.Context, messages []store.Message) error
	SetMessageDiscordID(ctx context.Context, channelSlackID, slackTS, discordID string) error
}

// Messages deploys migrated messages into their deployed channels.
type Messages struct {
	store     MessageStore
	dest      Destination
	logger    *slog.Logger
	separator bool
}

// NewMessages creates the message deployer. When separator is set, each
// primary send is prefixed with a horizontal rule so dense history stays
// readable.
func NewMessages(log *slog.Logger, messageStore MessageStore, dest Destination, separator bool) *Messages {
	if log == nil {
		log = slog.Default()
	}
	return &Messages{
		store:     messageStore,
		dest:      dest,
		logger:    log.With(slog.String("service", "deploy/messages")),
		separator: separator,
	}
}

// Run deploys every undeployed message of every deployed channel. Channels
// run concurrently; inside a channel messages are sent one at a time in
// ascending timestamp order. A failed send is reported and does not stop the
// rest of the channel.
func (s *Messages) Run(ctx context.Context) (*migrate.Report, error) {
	boosts, err := s.dest.BoostCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("query boost count: %w", err)
	}
	ceiling := AttachmentCeiling(boosts)
	s.logger.Debug("attachment ceiling resolved",
		slog.Int("boosts", boosts), slog.Int64("ceiling", ceiling))

	channels, err := s.store.ListChannels(ctx)
	if err != nil {
		return nil, err
	}

	report := migrate.NewReport()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(channelConcurrency)
	for _, ch := range channels {
		if ch.DiscordID == "" {
			s.logger.Debug("channel not deployed, skipping messages",
				slog.String("channel", ch.Name))
			continue
		}
		g.Go(func() error {
			cctx := logger.WithContext(gctx, s.logger.With(slog.String("channel", ch.Name)))
			return s.deployChannel(cctx, ch, ceiling, report)
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}
	return report, nil
}

func (s *Messages) deployChannel(ctx context.Context, ch store.Channel, ceiling int64, report *migrate.Report) error {
	// Keys of follow-up records created during this run. A page fetched
	// before the follow-up was written still carries it without a
	// destination id, so the stale copy must not be sent again.
	created := make(map[string]bool)

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
			if msg.DiscordID != "" || created[msg.SlackTS] {
				continue
			}
			if err := s.deployMessage(ctx, ch, msg, ceiling, created); err != nil {
				report.Fail(ch.SlackID+"/"+msg.SlackTS, err)
				continue
			}
			report.Success()
		}
		if len(page) < pageSize {
			return nil
		}
	}
}

// deployMessage sends one migrated message: the rendered content first, then
// one follow-up carrying the attachments. Each successful send is recorded
// before the next one happens, so a crash mid-message leaves only already
// recorded sends behind.
func (s *Messages) deployMessage(ctx context.Context, ch store.Channel, msg store.Message, ceiling int64, created map[string]bool) error {
	chunks := splitContent(renderContent(msg, s.separator))

	primaryID, err := s.dest.SendMessage(ctx, ch.DiscordID, chunks[0], nil)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	if err := s.store.SetMessageDiscordID(ctx, msg.ChannelSlackID, msg.SlackTS, primaryID); err != nil {
		return fmt.Errorf("record message id: %w", err)
	}

	followUps := make([]followUp, 0, len(chunks))
	for _, chunk := range chunks[1:] {
		followUps = append(followUps, followUp{content: chunk})
	}
	if fu, ok := attachmentFollowUp(msg.Attachments, ceiling); ok {
		followUps = append(followUps, fu)
	}
	for i, fu := range followUps {
		id, err := s.dest.SendMessage(ctx, ch.DiscordID, fu.content, fu.files)
		if err != nil {
			return fmt.Errorf("send follow-up: %w", err)
		}
		ts, err := store.OffsetTS(msg.SlackTS, int64(i+1))
		if err != nil {
			return fmt.Errorf("follow-up timestamp: %w", err)
		}
		record := msg
		record.SlackTS = ts
		record.Content = fu.content
		record.Attachments = nil
		record.Pinned = false
		record.DiscordID = id
		if err := s.store.UpsertMessages(ctx, []store.Message{record}); err != nil {
			return fmt.Errorf("record follow-up: %w", err)
		}
		created[ts] = true
	}

	if msg.Pinned {
		if err := s.dest.PinMessage(ctx, ch.DiscordID, primaryID); err != nil {
			// Pinning is cosmetic; the message itself made it across.
			logger.FromContext(ctx).Warn("pin failed",
				slog.String("ts", msg.SlackTS),
				slog.String("error", err.Error()))
		}
	}
	return nil
}

type followUp struct {
	content string
	files   []store.Attachment
}

// attachmentFollowUp partitions attachments against the upload ceiling:
// files under it are re-uploaded, the rest are listed as URLs in the same
// send.
func attachmentFollowUp(attachments []store.Attachment, ceiling int64) (followUp, bool) {
	if len(attachments) == 0 {
		return followUp{}, false
	}
	var fu followUp
	var oversized []store.Attachment
	for _, att := range attachments {
		if att.Size <= ceiling {
			fu.files = append(fu.files, att)
		} else {
			oversized = append(oversized, att)
		}
	}
	if len(oversized) > 0 {
		fu.content = renderOversized(oversized)
	}
	return fu, true
}
