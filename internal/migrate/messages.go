package migrate

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/slackcord/slackcord/internal/export"
	"github.com/slackcord/slackcord/internal/logger"
	"github.com/slackcord/slackcord/internal/markup"
	"github.com/slackcord/slackcord/internal/resolver"
	"github.com/slackcord/slackcord/internal/store"
)

const defaultMigrateConcurrency = 4

// MessageStore is the store slice the message migrator needs.
type MessageStore interface {
	ListChannels(ctx context.Context) ([]store.Channel, error)
	UpsertMessages(ctx context.Context, messages []store.Message) error
}

// Authors resolves message author references.
type Authors interface {
	Resolve(ctx context.Context, ref resolver.Ref) (store.User, error)
	MentionName(ctx context.Context) func(id string) (string, error)
}

// Messages parses the per-day message files of every migrated channel,
// resolves authorship, transforms content, and upserts Message records.
type Messages struct {
	store       MessageStore
	authors     Authors
	logger      *slog.Logger
	concurrency int
}

// NewMessages creates the message migrator.
func NewMessages(log *slog.Logger, messageStore MessageStore, authors Authors) *Messages {
	if log == nil {
		log = slog.Default()
	}
	return &Messages{
		store:       messageStore,
		authors:     authors,
		logger:      log.With(slog.String("service", "migrate/messages")),
		concurrency: defaultMigrateConcurrency,
	}
}

// Run migrates messages for every channel in the store. Channels and the
// day files within a channel fan out concurrently; there is no ordering
// requirement at this stage because every write is keyed by (channel, ts).
//
// Failure policy: a malformed or unresolvable message fails alone and is
// recorded in the report; an unreadable or corrupt day file aborts that
// channel's migration.
func (s *Messages) Run(ctx context.Context, dir string) (*Report, error) {
	channels, err := s.store.ListChannels(ctx)
	if err != nil {
		return nil, err
	}

	report := NewReport()
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, ch := range channels {
		g.Go(func() error {
			cctx := logger.WithContext(ctx, s.logger.With(slog.String("channel", ch.Name)))
			if err := s.migrateChannel(cctx, dir, ch, report); err != nil {
				report.Fail("channel "+ch.SlackID, err)
				s.logger.Error("channel migration aborted",
					slog.String("channel", ch.Name), slog.Any("error", err))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}

	s.logger.Info("messages migrated",
		slog.Int("migrated", report.Succeeded()),
		slog.Int("failed", len(report.Failures())))
	return report, nil
}

func (s *Messages) migrateChannel(ctx context.Context, dir string, ch store.Channel, report *Report) error {
	files, err := export.MessageFiles(dir, ch.Name)
	if err != nil {
		return err
	}

	pinned := make(map[string]struct{}, len(ch.Pins))
	for _, ts := range ch.Pins {
		pinned[ts] = struct{}{}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, file := range files {
		g.Go(func() error {
			return s.migrateFile(ctx, ch, file, pinned, report)
		})
	}
	return g.Wait()
}

func (s *Messages) migrateFile(ctx context.Context, ch store.Channel, path string, pinned map[string]struct{}, report *Report) error {
	entries, err := export.ReadMessages(path)
	if err != nil {
		// Structural error: fatal for the whole channel.
		return err
	}

	mentionName := s.authors.MentionName(ctx)
	var batch []store.Message
	for _, entry := range entries {
		record, err := s.toMessageRecord(ctx, ch, entry, pinned, mentionName)
		if err != nil {
			report.Fail(fmt.Sprintf("%s/%s ts=%s", ch.Name, filepath.Base(path), rawTS(entry)), err)
			continue
		}
		batch = append(batch, record)
	}

	if len(batch) > 0 {
		if err := s.store.UpsertMessages(ctx, batch); err != nil {
			return fmt.Errorf("upsert %s: %w", filepath.Base(path), err)
		}
	}
	for range batch {
		report.Success()
	}
	logger.FromContext(ctx).Debug("day file migrated",
		slog.String("file", filepath.Base(path)), slog.Int("messages", len(batch)))
	return nil
}

func (s *Messages) toMessageRecord(ctx context.Context, ch store.Channel, entry export.RawMessage, pinned map[string]struct{}, mentionName func(string) (string, error)) (store.Message, error) {
	if entry.Type == nil {
		return store.Message{}, &export.MissingFieldError{Entity: "message", Field: "type"}
	}
	if entry.TS == nil {
		return store.Message{}, &export.MissingFieldError{Entity: "message", Field: "ts"}
	}
	ts, err := store.NormalizeTS(*entry.TS)
	if err != nil {
		return store.Message{}, err
	}
	if entry.Text == nil {
		return store.Message{}, &export.MissingFieldError{Entity: "message", SourceID: ts, Field: "text"}
	}

	author, err := s.authors.Resolve(ctx, resolver.Ref{UserID: entry.User, BotID: entry.BotID})
	if err != nil {
		return store.Message{}, err
	}

	content, err := markup.Transform(*entry.Text, mentionName)
	if err != nil {
		return store.Message{}, err
	}

	attachments := make([]store.Attachment, 0, len(entry.Files))
	for i, file := range entry.Files {
		if file.URL == nil || *file.URL == "" {
			return store.Message{}, &export.MissingFieldError{
				Entity: "attachment", SourceID: fmt.Sprintf("%s[%d]", ts, i), Field: "url_private"}
		}
		if file.Size == nil {
			return store.Message{}, &export.MissingFieldError{
				Entity: "attachment", SourceID: fmt.Sprintf("%s[%d]", ts, i), Field: "size"}
		}
		attachments = append(attachments, store.Attachment{URL: *file.URL, Size: *file.Size})
	}

	_, isPinned := pinned[ts]
	return store.Message{
		ChannelSlackID: ch.SlackID,
		SlackTS:        ts,
		Content:        content,
		Attachments:    attachments,
		Pinned:         isPinned,
		AuthorSlackID:  author.SlackID,
		AuthorName:     author.DisplayName,
		AuthorKind:     author.Kind,
		AuthorColor:    author.Color,
		AuthorAvatar:   author.AvatarURL,
	}, nil
}

func rawTS(entry export.RawMessage) string {
	if entry.TS != nil {
		return *entry.TS
	}
	return "<none>"
}
