package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"testing"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"
)

func restError(status, code int) *discordgo.RESTError {
	return &discordgo.RESTError{
		Response: &http.Response{StatusCode: status},
		Message:  &discordgo.APIErrorMessage{Code: code},
	}
}

func TestIsNotFoundClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "unknown channel", err: restError(http.StatusNotFound, discordgo.ErrCodeUnknownChannel), want: true},
		{name: "unknown message", err: restError(http.StatusNotFound, discordgo.ErrCodeUnknownMessage), want: true},
		{name: "plain 404", err: restError(http.StatusNotFound, 0), want: true},
		{name: "permission denied", err: restError(http.StatusForbidden, 50013), want: false},
		{name: "server error", err: restError(http.StatusInternalServerError, 0), want: false},
		{name: "network error", err: errors.New("connection reset"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isNotFound(tt.err); got != tt.want {
				t.Errorf("isNotFound = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsTransientClassification(t *testing.T) {
	rateLimited := &discordgo.RateLimitError{
		RateLimit: &discordgo.RateLimit{TooManyRequests: &discordgo.TooManyRequests{}},
	}

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "rate limited", err: rateLimited, want: true},
		{name: "server error", err: restError(http.StatusBadGateway, 0), want: true},
		{name: "network error", err: errors.New("connection reset"), want: true},
		{name: "bad request", err: restError(http.StatusBadRequest, 50035), want: false},
		{name: "permission denied", err: restError(http.StatusForbidden, 50013), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isTransient(tt.err); got != tt.want {
				t.Errorf("isTransient = %v, want %v", got, tt.want)
			}
		})
	}
}

func testClient() *Client {
	return &Client{
		limiter:  rate.NewLimiter(rate.Inf, 1),
		logger:   slog.Default(),
		maxTries: 3,
	}
}

func TestCallRetriesTransientErrors(t *testing.T) {
	c := testClient()

	attempts := 0
	got, err := call(context.Background(), c, func() (string, error) {
		attempts++
		if attempts < 3 {
			return "", restError(http.StatusBadGateway, 0)
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if got != "ok" || attempts != 3 {
		t.Errorf("got %q after %d attempts", got, attempts)
	}
}

func TestCallStopsAtMaxTries(t *testing.T) {
	c := testClient()

	attempts := 0
	_, err := call(context.Background(), c, func() (string, error) {
		attempts++
		return "", restError(http.StatusBadGateway, 0)
	})
	if err == nil {
		t.Fatal("expected exhausted retries to fail")
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestCallNotFoundIsTerminal(t *testing.T) {
	c := testClient()

	attempts := 0
	_, err := call(context.Background(), c, func() (string, error) {
		attempts++
		return "", restError(http.StatusNotFound, discordgo.ErrCodeUnknownChannel)
	})
	if !IsNotFound(err) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("not-found was retried: %d attempts", attempts)
	}
}

func TestCallPermanentErrorNotRetried(t *testing.T) {
	c := testClient()

	attempts := 0
	_, err := call(context.Background(), c, func() (string, error) {
		attempts++
		return "", restError(http.StatusForbidden, 50013)
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if IsNotFound(err) {
		t.Fatal("403 is not a not-found condition")
	}
	if attempts != 1 {
		t.Errorf("permanent error was retried: %d attempts", attempts)
	}
}

func TestFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "https://files.example.com/T1/F1/photo.png", want: "photo.png"},
		{in: "https://files.example.com/", want: "attachment"},
		{in: "://bad", want: "attachment"},
	}
	for _, tt := range tests {
		if got := fileName(tt.in); got != tt.want {
			t.Errorf("fileName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRetryBackoffIsBounded(t *testing.T) {
	// Exhausting retries must not take unbounded time even with growth.
	c := testClient()
	c.maxTries = 2

	_, err := call(context.Background(), c, func() (int, error) {
		return 0, fmt.Errorf("dial tcp: connection refused")
	})
	if err == nil {
		t.Fatal("expected failure")
	}
}
