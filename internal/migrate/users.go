package migrate

import (
	"context"
	"log/slog"
	"strings"

	"github.com/slackcord/slackcord/internal/export"
	"github.com/slackcord/slackcord/internal/store"
)

// UserStore is the store slice the user migrator writes through.
type UserStore interface {
	UpsertUsers(ctx context.Context, users []store.User) error
}

// Users converts the export's user directory dump into identity records.
// Identity records persist across destroys, so re-running this is a pure
// refresh.
type Users struct {
	store  UserStore
	logger *slog.Logger
}

// NewUsers creates the user migrator.
func NewUsers(log *slog.Logger, userStore UserStore) *Users {
	if log == nil {
		log = slog.Default()
	}
	return &Users{
		store:  userStore,
		logger: log.With(slog.String("service", "migrate/users")),
	}
}

// Run reads users.json and upserts one User record per valid entry.
func (s *Users) Run(ctx context.Context, dir string) (*Report, error) {
	raw, err := export.ReadUsers(dir)
	if err != nil {
		return nil, err
	}

	report := NewReport()
	var records []store.User
	for _, entry := range raw {
		record, err := toUserRecord(entry)
		if err != nil {
			report.Fail(entry.ID, err)
			continue
		}
		records = append(records, record)
	}

	if len(records) > 0 {
		if err := s.store.UpsertUsers(ctx, records); err != nil {
			return report, err
		}
	}
	for range records {
		report.Success()
	}

	s.logger.Info("users migrated",
		slog.Int("migrated", report.Succeeded()),
		slog.Int("failed", len(report.Failures())))
	return report, nil
}

func toUserRecord(entry export.RawUser) (store.User, error) {
	id := strings.TrimSpace(entry.ID)
	if id == "" {
		return store.User{}, &export.MissingFieldError{Entity: "user", Field: "id"}
	}
	name := entry.DisplayName()
	if name == "" {
		return store.User{}, &export.MissingFieldError{Entity: "user", SourceID: id, Field: "display_name"}
	}

	kind := store.UserKindActive
	switch {
	case entry.IsBot:
		kind = store.UserKindBot
	case entry.Deleted:
		kind = store.UserKindDeactivated
	}

	return store.User{
		SlackID:     id,
		BotAppID:    strings.TrimSpace(entry.Profile.APIAppID),
		DisplayName: name,
		Color:       entry.Color,
		AvatarURL:   entry.Profile.Image,
		Kind:        kind,
		Deleted:     entry.Deleted,
		IsBot:       entry.IsBot,
	}, nil
}
