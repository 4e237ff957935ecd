// Package resolver resolves message authors to stable identity records,
// using the correlation store as a cache and the Slack directory API as
// fallback.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/slackcord/slackcord/internal/db"
	"github.com/slackcord/slackcord/internal/slackapi"
	"github.com/slackcord/slackcord/internal/store"
)

var (
	// ErrNoAuthor means the message carried neither a user id nor a bot id.
	ErrNoAuthor = errors.New("message has no author reference")
	// ErrIncompleteProfile means the directory returned a profile missing a
	// required field; the caller aborts that message instead of guessing.
	ErrIncompleteProfile = errors.New("profile is missing required fields")
)

// Directory is the Slack-side profile lookup the resolver falls back to on a
// store miss.
type Directory interface {
	GetUserProfile(ctx context.Context, id string) (slackapi.Profile, error)
	GetBotProfile(ctx context.Context, id string) (slackapi.Profile, error)
}

// UserStore is the slice of the correlation store the resolver needs.
type UserStore interface {
	GetUserBySlackID(ctx context.Context, slackID string) (store.User, error)
	GetUserByBotAppID(ctx context.Context, botAppID string) (store.User, error)
	UpsertUsers(ctx context.Context, users []store.User) error
}

// Ref is an author reference taken from a raw message: a human user id or a
// per-channel bot id.
type Ref struct {
	UserID string
	BotID  string
}

// Service resolves author references.
type Service struct {
	store     UserStore
	directory Directory
	logger    *slog.Logger
}

// NewService creates an author resolver backed by the given store and
// directory.
func NewService(log *slog.Logger, userStore UserStore, directory Directory) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:     userStore,
		directory: directory,
		logger:    log.With(slog.String("service", "resolver")),
	}
}

// Resolve returns the identity record for ref, creating it on a cache miss.
// Bot references are deduplicated by bot app id: several per-channel bot ids
// can belong to one logical app, and resolving any of them must converge on
// a single User record.
func (s *Service) Resolve(ctx context.Context, ref Ref) (store.User, error) {
	id := strings.TrimSpace(ref.UserID)
	isBot := false
	if id == "" {
		id = strings.TrimSpace(ref.BotID)
		isBot = true
	}
	if id == "" {
		return store.User{}, ErrNoAuthor
	}

	cached, err := s.store.GetUserBySlackID(ctx, id)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, store.ErrUserNotFound) {
		return store.User{}, err
	}

	var profile slackapi.Profile
	if isBot {
		profile, err = s.directory.GetBotProfile(ctx, id)
	} else {
		profile, err = s.directory.GetUserProfile(ctx, id)
	}
	if err != nil {
		return store.User{}, err
	}

	if isBot && profile.BotAppID != "" {
		existing, err := s.store.GetUserByBotAppID(ctx, profile.BotAppID)
		if err == nil {
			s.logger.Debug("bot id mapped to existing app identity",
				slog.String("bot_id", id), slog.String("bot_app_id", profile.BotAppID))
			return existing, nil
		}
		if !errors.Is(err, store.ErrUserNotFound) {
			return store.User{}, err
		}
	}

	if profile.ID == "" || profile.DisplayName == "" || profile.AvatarURL == "" {
		return store.User{}, fmt.Errorf("author %s: %w", id, ErrIncompleteProfile)
	}

	user := store.User{
		SlackID:     profile.ID,
		BotAppID:    profile.BotAppID,
		DisplayName: profile.DisplayName,
		Color:       profile.Color,
		AvatarURL:   profile.AvatarURL,
		Kind:        userKind(profile),
		Deleted:     profile.Deleted,
		IsBot:       profile.IsBot,
	}
	if err := s.store.UpsertUsers(ctx, []store.User{user}); err != nil {
		// Concurrent resolves of two bot ids for the same app can race
		// past the lookup above; the bot app id index rejects the loser,
		// which then adopts the winner's record.
		if db.IsUniqueViolation(err) && user.BotAppID != "" {
			existing, lookupErr := s.store.GetUserByBotAppID(ctx, user.BotAppID)
			if lookupErr == nil {
				return existing, nil
			}
		}
		return store.User{}, fmt.Errorf("cache resolved author %s: %w", id, err)
	}
	s.logger.Info("resolved author via directory",
		slog.String("slack_id", profile.ID), slog.Bool("bot", profile.IsBot))
	return user, nil
}

// MentionName resolves a user id for mention rewriting; it returns the
// display name only.
func (s *Service) MentionName(ctx context.Context) func(id string) (string, error) {
	return func(id string) (string, error) {
		user, err := s.Resolve(ctx, Ref{UserID: id})
		if err != nil {
			return "", err
		}
		return user.DisplayName, nil
	}
}

func userKind(p slackapi.Profile) string {
	switch {
	case p.IsBot:
		return store.UserKindBot
	case p.Deleted:
		return store.UserKindDeactivated
	default:
		return store.UserKindActive
	}
}
