package migrate

import (
	"context"
	"log/slog"
	"strings"

	"github.com/slackcord/slackcord/internal/export"
	"github.com/slackcord/slackcord/internal/store"
)

// ChannelStore is the store slice the channel migrator writes through.
type ChannelStore interface {
	UpsertChannels(ctx context.Context, channels []store.Channel) error
	UpsertCategory(ctx context.Context, name string) error
}

// Channels converts raw channel export entries into correlation records.
type Channels struct {
	store  ChannelStore
	logger *slog.Logger
}

// NewChannels creates the channel migrator.
func NewChannels(log *slog.Logger, channelStore ChannelStore) *Channels {
	if log == nil {
		log = slog.Default()
	}
	return &Channels{
		store:  channelStore,
		logger: log.With(slog.String("service", "migrate/channels")),
	}
}

// Run reads channels.json from the export directory and upserts one record
// per valid entry. A record missing a required field fails alone; the rest
// of the collection is still migrated.
func (s *Channels) Run(ctx context.Context, dir string) (*Report, error) {
	raw, err := export.ReadChannels(dir)
	if err != nil {
		return nil, err
	}

	report := NewReport()
	var records []store.Channel
	for _, entry := range raw {
		record, err := toChannelRecord(entry)
		if err != nil {
			report.Fail(sourceID(entry), err)
			continue
		}
		records = append(records, record)
	}

	// Both categories exist before any channel references one.
	for _, name := range []string{store.CategoryDefault, store.CategoryArchive} {
		if err := s.store.UpsertCategory(ctx, name); err != nil {
			return report, err
		}
	}
	if len(records) > 0 {
		if err := s.store.UpsertChannels(ctx, records); err != nil {
			return report, err
		}
	}
	for range records {
		report.Success()
	}

	s.logger.Info("channels migrated",
		slog.Int("migrated", report.Succeeded()),
		slog.Int("failed", len(report.Failures())))
	return report, nil
}

func toChannelRecord(entry export.RawChannel) (store.Channel, error) {
	id := ""
	if entry.ID != nil {
		id = strings.TrimSpace(*entry.ID)
	}
	if id == "" {
		return store.Channel{}, &export.MissingFieldError{Entity: "channel", Field: "id"}
	}
	if entry.Name == nil || strings.TrimSpace(*entry.Name) == "" {
		return store.Channel{}, &export.MissingFieldError{Entity: "channel", SourceID: id, Field: "name"}
	}
	if entry.Topic == nil {
		return store.Channel{}, &export.MissingFieldError{Entity: "channel", SourceID: id, Field: "topic"}
	}
	if entry.Archived == nil {
		return store.Channel{}, &export.MissingFieldError{Entity: "channel", SourceID: id, Field: "is_archived"}
	}

	pins := make([]string, 0, len(entry.Pins))
	for _, pin := range entry.Pins {
		if ts, err := store.NormalizeTS(pin.ID); err == nil {
			pins = append(pins, ts)
		}
	}

	category := store.CategoryDefault
	if *entry.Archived {
		category = store.CategoryArchive
	}

	return store.Channel{
		SlackID:  id,
		Name:     strings.TrimSpace(*entry.Name),
		Topic:    entry.Topic.Value,
		Archived: *entry.Archived,
		Pins:     pins,
		Category: category,
	}, nil
}

func sourceID(entry export.RawChannel) string {
	if entry.ID != nil {
		return *entry.ID
	}
	return "<unknown>"
}
