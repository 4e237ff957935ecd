package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/cenkalti/backoff/v5"
)

// ErrNotFound marks a destination entity that no longer exists. Deletes treat
// it as success; it is never retried.
var ErrNotFound = errors.New("discord: not found")

const defaultMaxTries = 5

// call wraps one destination API call in the shared cross-cutting policy:
// wait on the global rate limiter, then retry transient failures with
// exponential backoff up to a bounded attempt count. Not-found and other
// non-transient errors are terminal on the first attempt.
func call[T any](ctx context.Context, c *Client, op func() (T, error)) (T, error) {
	var zero T
	if err := c.limiter.Wait(ctx); err != nil {
		return zero, err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 10 * time.Second

	return backoff.Retry(ctx, func() (T, error) {
		v, err := op()
		if err == nil {
			return v, nil
		}
		if isNotFound(err) {
			return zero, backoff.Permanent(fmt.Errorf("%w: %v", ErrNotFound, err))
		}
		if !isTransient(err) {
			return zero, backoff.Permanent(err)
		}
		return zero, err
	}, backoff.WithBackOff(bo), backoff.WithMaxTries(c.maxTries))
}

// IsNotFound reports whether err is a "target already absent" condition.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func isNotFound(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return false
	}
	if restErr.Message != nil {
		switch restErr.Message.Code {
		case discordgo.ErrCodeUnknownChannel, discordgo.ErrCodeUnknownMessage, discordgo.ErrCodeUnknownGuild:
			return true
		}
	}
	return restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound
}

// isTransient classifies rate limits, server-side errors, and transport
// failures as retryable. Anything the API rejected outright (4xx) stays
// terminal.
func isTransient(err error) bool {
	var rateErr *discordgo.RateLimitError
	if errors.As(err, &rateErr) {
		return true
	}
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) {
		return restErr.Response != nil && restErr.Response.StatusCode >= 500
	}
	// No REST response at all: network-level failure.
	return true
}
