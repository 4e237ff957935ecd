// Package discord wraps the destination platform API. Every call runs behind
// a shared rate limiter and a bounded retry policy (see retry.go).
package discord

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"

	"github.com/slackcord/slackcord/internal/store"
)

// Discord enforces a guild-wide request budget, so one limiter is shared
// across all concurrent channel deployments.
const (
	requestsPerSecond = 20
	requestBurst      = 5
)

// Client is the destination API client bound to one guild.
type Client struct {
	session  *discordgo.Session
	guildID  string
	limiter  *rate.Limiter
	http     *http.Client
	logger   *slog.Logger
	maxTries uint
}

// NewClient creates a Discord client for the given bot token and guild.
func NewClient(log *slog.Logger, token, guildID string) (*Client, error) {
	if log == nil {
		log = slog.Default()
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	return &Client{
		session:  session,
		guildID:  guildID,
		limiter:  rate.NewLimiter(rate.Limit(requestsPerSecond), requestBurst),
		http:     &http.Client{Timeout: 2 * time.Minute},
		logger:   log.With(slog.String("service", "discord")),
		maxTries: defaultMaxTries,
	}, nil
}

// BoostCount returns the guild's current boost (premium subscription) count.
func (c *Client) BoostCount(ctx context.Context) (int, error) {
	guild, err := call(ctx, c, func() (*discordgo.Guild, error) {
		return c.session.Guild(c.guildID, discordgo.WithContext(ctx))
	})
	if err != nil {
		return 0, fmt.Errorf("fetch guild %s: %w", c.guildID, err)
	}
	return guild.PremiumSubscriptionCount, nil
}

// CreateCategory creates a category channel and returns its id.
func (c *Client) CreateCategory(ctx context.Context, name string) (string, error) {
	created, err := call(ctx, c, func() (*discordgo.Channel, error) {
		return c.session.GuildChannelCreateComplex(c.guildID, discordgo.GuildChannelCreateData{
			Name: name,
			Type: discordgo.ChannelTypeGuildCategory,
		}, discordgo.WithContext(ctx))
	})
	if err != nil {
		return "", fmt.Errorf("create category %s: %w", name, err)
	}
	return created.ID, nil
}

// CreateChannel creates a text channel under the given category and returns
// its id.
func (c *Client) CreateChannel(ctx context.Context, name, topic, categoryID string) (string, error) {
	created, err := call(ctx, c, func() (*discordgo.Channel, error) {
		return c.session.GuildChannelCreateComplex(c.guildID, discordgo.GuildChannelCreateData{
			Name:     name,
			Type:     discordgo.ChannelTypeGuildText,
			Topic:    topic,
			ParentID: categoryID,
		}, discordgo.WithContext(ctx))
	})
	if err != nil {
		return "", fmt.Errorf("create channel %s: %w", name, err)
	}
	return created.ID, nil
}

// DeleteChannel deletes a channel or category. A channel that is already
// gone is success, not an error.
func (c *Client) DeleteChannel(ctx context.Context, channelID string) error {
	_, err := call(ctx, c, func() (*discordgo.Channel, error) {
		return c.session.ChannelDelete(channelID, discordgo.WithContext(ctx))
	})
	if err != nil {
		if IsNotFound(err) {
			c.logger.Debug("channel already absent", slog.String("channel", channelID))
			return nil
		}
		return fmt.Errorf("delete channel %s: %w", channelID, err)
	}
	return nil
}

// SendMessage sends one message, uploading the given attachments as files,
// and returns the created message id. Attachment bodies are buffered up
// front so every retry attempt re-sends complete files instead of whatever a
// failed attempt left in a drained reader.
func (c *Client) SendMessage(ctx context.Context, channelID, content string, files []store.Attachment) (string, error) {
	uploads := make([]upload, 0, len(files))
	for _, att := range files {
		data, err := c.download(ctx, att.URL)
		if err != nil {
			return "", err
		}
		uploads = append(uploads, upload{name: fileName(att.URL), data: data})
	}

	created, err := call(ctx, c, func() (*discordgo.Message, error) {
		send := &discordgo.MessageSend{
			Content: content,
			Files:   uploadFiles(uploads),
		}
		return c.session.ChannelMessageSendComplex(channelID, send, discordgo.WithContext(ctx))
	})
	if err != nil {
		return "", fmt.Errorf("send message to %s: %w", channelID, err)
	}
	return created.ID, nil
}

// upload is a fully buffered attachment body.
type upload struct {
	name string
	data []byte
}

// uploadFiles builds fresh readers over the buffered bodies. Called once per
// send attempt.
func uploadFiles(uploads []upload) []*discordgo.File {
	files := make([]*discordgo.File, 0, len(uploads))
	for _, u := range uploads {
		files = append(files, &discordgo.File{
			Name:   u.name,
			Reader: bytes.NewReader(u.data),
		})
	}
	return files
}

// DeleteMessage deletes one message; already-gone is success.
func (c *Client) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	_, err := call(ctx, c, func() (struct{}, error) {
		return struct{}{}, c.session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx))
	})
	if err != nil {
		if IsNotFound(err) {
			c.logger.Debug("message already absent",
				slog.String("channel", channelID), slog.String("message", messageID))
			return nil
		}
		return fmt.Errorf("delete message %s/%s: %w", channelID, messageID, err)
	}
	return nil
}

// PinMessage pins a sent message in its channel.
func (c *Client) PinMessage(ctx context.Context, channelID, messageID string) error {
	_, err := call(ctx, c, func() (struct{}, error) {
		return struct{}{}, c.session.ChannelMessagePin(channelID, messageID, discordgo.WithContext(ctx))
	})
	if err != nil {
		return fmt.Errorf("pin message %s/%s: %w", channelID, messageID, err)
	}
	return nil
}

func (c *Client) download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("attachment request %s: %w", rawURL, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download attachment %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download attachment %s: status %d", rawURL, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("download attachment %s: %w", rawURL, err)
	}
	return data, nil
}

func fileName(rawURL string) string {
	if parsed, err := url.Parse(rawURL); err == nil {
		if base := path.Base(parsed.Path); base != "." && base != "/" {
			return base
		}
	}
	return "attachment"
}
