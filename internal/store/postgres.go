package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/slackcord/slackcord/internal/db"
)

// Postgres is the durable Store implementation. Batch upserts run in a single
// transaction so a partial failure leaves no half-written batch behind.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgres creates a Postgres-backed correlation store.
func NewPostgres(log *slog.Logger, pool *pgxpool.Pool) *Postgres {
	if log == nil {
		log = slog.Default()
	}
	return &Postgres{
		pool:   pool,
		logger: log.With(slog.String("service", "store")),
	}
}

var _ Store = (*Postgres)(nil)

const upsertChannelSQL = `
INSERT INTO channels (slack_id, name, topic, archived, pins, category, discord_id)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (slack_id) DO UPDATE SET
    name = EXCLUDED.name,
    topic = EXCLUDED.topic,
    archived = EXCLUDED.archived,
    pins = EXCLUDED.pins,
    category = EXCLUDED.category,
    discord_id = COALESCE(EXCLUDED.discord_id, channels.discord_id),
    updated_at = now()`

func (s *Postgres) UpsertChannels(ctx context.Context, channels []Channel) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		for _, ch := range channels {
			slackID := strings.TrimSpace(ch.SlackID)
			if slackID == "" {
				return fmt.Errorf("channel slack id is required")
			}
			pins := ch.Pins
			if pins == nil {
				pins = []string{}
			}
			category := ch.Category
			if category == "" {
				category = CategoryDefault
			}
			if _, err := tx.Exec(ctx, upsertChannelSQL,
				slackID, ch.Name, ch.Topic, ch.Archived, pins, category, db.ToPgText(ch.DiscordID),
			); err != nil {
				return fmt.Errorf("upsert channel %s: %w", slackID, err)
			}
		}
		return nil
	})
}

const selectChannelSQL = `
SELECT slack_id, name, topic, archived, pins, category, discord_id, created_at, updated_at
FROM channels`

func (s *Postgres) ListChannels(ctx context.Context) ([]Channel, error) {
	rows, err := s.pool.Query(ctx, selectChannelSQL+" ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Channel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

func (s *Postgres) GetChannelBySlackID(ctx context.Context, slackID string) (Channel, error) {
	row := s.pool.QueryRow(ctx, selectChannelSQL+" WHERE slack_id = $1", strings.TrimSpace(slackID))
	ch, err := scanChannel(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Channel{}, ErrChannelNotFound
		}
		return Channel{}, err
	}
	return ch, nil
}

func (s *Postgres) SetChannelDiscordID(ctx context.Context, slackID, discordID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE channels SET discord_id = $2, updated_at = now() WHERE slack_id = $1`,
		slackID, db.ToPgText(discordID))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrChannelNotFound
	}
	return nil
}

func (s *Postgres) ClearChannelDiscordID(ctx context.Context, slackID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE channels SET discord_id = NULL, updated_at = now() WHERE slack_id = $1`,
		slackID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrChannelNotFound
	}
	return nil
}

func (s *Postgres) UpsertCategory(ctx context.Context, name string) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO categories (name)
VALUES ($1)
ON CONFLICT (name) DO UPDATE SET updated_at = now()`, name)
	return err
}

func (s *Postgres) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := s.pool.Query(ctx, `
SELECT name, discord_id, created_at, updated_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Postgres) GetCategory(ctx context.Context, name string) (Category, error) {
	row := s.pool.QueryRow(ctx, `
SELECT name, discord_id, created_at, updated_at FROM categories WHERE name = $1`, name)
	c, err := scanCategory(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Category{}, ErrCategoryNotFound
		}
		return Category{}, err
	}
	return c, nil
}

func (s *Postgres) SetCategoryDiscordID(ctx context.Context, name, discordID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE categories SET discord_id = $2, updated_at = now() WHERE name = $1`,
		name, db.ToPgText(discordID))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

func (s *Postgres) ClearCategoryDiscordID(ctx context.Context, name string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE categories SET discord_id = NULL, updated_at = now() WHERE name = $1`,
		name)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

const upsertUserSQL = `
INSERT INTO users (slack_id, bot_app_id, display_name, color, avatar_url, kind, deleted, is_bot)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (slack_id) DO UPDATE SET
    bot_app_id = EXCLUDED.bot_app_id,
    display_name = EXCLUDED.display_name,
    color = EXCLUDED.color,
    avatar_url = EXCLUDED.avatar_url,
    kind = EXCLUDED.kind,
    deleted = EXCLUDED.deleted,
    is_bot = EXCLUDED.is_bot,
    updated_at = now()`

func (s *Postgres) UpsertUsers(ctx context.Context, users []User) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		for _, u := range users {
			slackID := strings.TrimSpace(u.SlackID)
			if slackID == "" {
				return fmt.Errorf("user slack id is required")
			}
			if _, err := tx.Exec(ctx, upsertUserSQL,
				slackID, db.ToPgText(u.BotAppID), u.DisplayName, u.Color,
				u.AvatarURL, u.Kind, u.Deleted, u.IsBot,
			); err != nil {
				return fmt.Errorf("upsert user %s: %w", slackID, err)
			}
		}
		return nil
	})
}

const selectUserSQL = `
SELECT slack_id, bot_app_id, display_name, color, avatar_url, kind, deleted, is_bot, created_at, updated_at
FROM users`

func (s *Postgres) GetUserBySlackID(ctx context.Context, slackID string) (User, error) {
	row := s.pool.QueryRow(ctx, selectUserSQL+" WHERE slack_id = $1", strings.TrimSpace(slackID))
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}
	return u, nil
}

func (s *Postgres) GetUserByBotAppID(ctx context.Context, botAppID string) (User, error) {
	botAppID = strings.TrimSpace(botAppID)
	if botAppID == "" {
		return User{}, ErrUserNotFound
	}
	row := s.pool.QueryRow(ctx, selectUserSQL+" WHERE bot_app_id = $1", botAppID)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}
	return u, nil
}

const upsertMessageSQL = `
INSERT INTO messages (channel_slack_id, slack_ts, content, attachments, pinned,
    author_slack_id, author_name, author_kind, author_color, author_avatar, discord_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (channel_slack_id, slack_ts) DO UPDATE SET
    content = EXCLUDED.content,
    attachments = EXCLUDED.attachments,
    pinned = EXCLUDED.pinned,
    author_slack_id = EXCLUDED.author_slack_id,
    author_name = EXCLUDED.author_name,
    author_kind = EXCLUDED.author_kind,
    author_color = EXCLUDED.author_color,
    author_avatar = EXCLUDED.author_avatar,
    discord_id = COALESCE(EXCLUDED.discord_id, messages.discord_id),
    updated_at = now()`

func (s *Postgres) UpsertMessages(ctx context.Context, messages []Message) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		for _, msg := range messages {
			if msg.ChannelSlackID == "" || msg.SlackTS == "" {
				return fmt.Errorf("message key (channel, ts) is required")
			}
			attachments := msg.Attachments
			if attachments == nil {
				attachments = []Attachment{}
			}
			payload, err := json.Marshal(attachments)
			if err != nil {
				return fmt.Errorf("marshal attachments: %w", err)
			}
			if _, err := tx.Exec(ctx, upsertMessageSQL,
				msg.ChannelSlackID, msg.SlackTS, msg.Content, payload, msg.Pinned,
				msg.AuthorSlackID, msg.AuthorName, msg.AuthorKind,
				msg.AuthorColor, msg.AuthorAvatar, db.ToPgText(msg.DiscordID),
			); err != nil {
				return fmt.Errorf("upsert message %s/%s: %w", msg.ChannelSlackID, msg.SlackTS, err)
			}
		}
		return nil
	})
}

const selectMessageSQL = `
SELECT channel_slack_id, slack_ts, content, attachments, pinned,
    author_slack_id, author_name, author_kind, author_color, author_avatar,
    discord_id, created_at, updated_at
FROM messages`

func (s *Postgres) ListMessages(ctx context.Context, channelSlackID, afterTS string, limit int) ([]Message, error) {
	rows, err := s.pool.Query(ctx, selectMessageSQL+`
WHERE channel_slack_id = $1 AND slack_ts > $2
ORDER BY slack_ts ASC
LIMIT $3`, channelSlackID, afterTS, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

func (s *Postgres) SetMessageDiscordID(ctx context.Context, channelSlackID, slackTS, discordID string) error {
	tag, err := s.pool.Exec(ctx, `
UPDATE messages SET discord_id = $3, updated_at = now()
WHERE channel_slack_id = $1 AND slack_ts = $2`,
		channelSlackID, slackTS, db.ToPgText(discordID))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrMessageNotFound
	}
	return nil
}

func (s *Postgres) ClearMessageDiscordID(ctx context.Context, channelSlackID, slackTS string) error {
	tag, err := s.pool.Exec(ctx, `
UPDATE messages SET discord_id = NULL, updated_at = now()
WHERE channel_slack_id = $1 AND slack_ts = $2`,
		channelSlackID, slackTS)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrMessageNotFound
	}
	return nil
}

func (s *Postgres) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChannel(row rowScanner) (Channel, error) {
	var (
		ch        Channel
		discordID pgtype.Text
		created   pgtype.Timestamptz
		updated   pgtype.Timestamptz
	)
	if err := row.Scan(&ch.SlackID, &ch.Name, &ch.Topic, &ch.Archived, &ch.Pins,
		&ch.Category, &discordID, &created, &updated); err != nil {
		return Channel{}, err
	}
	ch.DiscordID = db.TextToString(discordID)
	ch.CreatedAt = db.TimeFromPg(created)
	ch.UpdatedAt = db.TimeFromPg(updated)
	return ch, nil
}

func scanCategory(row rowScanner) (Category, error) {
	var (
		c         Category
		discordID pgtype.Text
		created   pgtype.Timestamptz
		updated   pgtype.Timestamptz
	)
	if err := row.Scan(&c.Name, &discordID, &created, &updated); err != nil {
		return Category{}, err
	}
	c.DiscordID = db.TextToString(discordID)
	c.CreatedAt = db.TimeFromPg(created)
	c.UpdatedAt = db.TimeFromPg(updated)
	return c, nil
}

func scanUser(row rowScanner) (User, error) {
	var (
		u        User
		botAppID pgtype.Text
		created  pgtype.Timestamptz
		updated  pgtype.Timestamptz
	)
	if err := row.Scan(&u.SlackID, &botAppID, &u.DisplayName, &u.Color,
		&u.AvatarURL, &u.Kind, &u.Deleted, &u.IsBot, &created, &updated); err != nil {
		return User{}, err
	}
	u.BotAppID = db.TextToString(botAppID)
	u.CreatedAt = db.TimeFromPg(created)
	u.UpdatedAt = db.TimeFromPg(updated)
	return u, nil
}

func scanMessage(row rowScanner) (Message, error) {
	var (
		msg       Message
		payload   []byte
		discordID pgtype.Text
		created   pgtype.Timestamptz
		updated   pgtype.Timestamptz
	)
	if err := row.Scan(&msg.ChannelSlackID, &msg.SlackTS, &msg.Content, &payload,
		&msg.Pinned, &msg.AuthorSlackID, &msg.AuthorName, &msg.AuthorKind,
		&msg.AuthorColor, &msg.AuthorAvatar, &discordID, &created, &updated); err != nil {
		return Message{}, err
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &msg.Attachments); err != nil {
			return Message{}, fmt.Errorf("unmarshal attachments: %w", err)
		}
	}
	msg.DiscordID = db.TextToString(discordID)
	msg.CreatedAt = db.TimeFromPg(created)
	msg.UpdatedAt = db.TimeFromPg(updated)
	return msg, nil
}
