package migrate

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/slackcord/slackcord/internal/resolver"
	"github.com/slackcord/slackcord/internal/store"
)

type fakeAuthors struct {
	users map[string]store.User
}

func (a *fakeAuthors) Resolve(_ context.Context, ref resolver.Ref) (store.User, error) {
	id := ref.UserID
	if id == "" {
		id = ref.BotID
	}
	if id == "" {
		return store.User{}, resolver.ErrNoAuthor
	}
	u, ok := a.users[id]
	if !ok {
		return store.User{}, errors.New("unknown author " + id)
	}
	return u, nil
}

func (a *fakeAuthors) MentionName(ctx context.Context) func(string) (string, error) {
	return func(id string) (string, error) {
		u, err := a.Resolve(ctx, resolver.Ref{UserID: id})
		if err != nil {
			return "", err
		}
		return u.DisplayName, nil
	}
}

func testAuthors() *fakeAuthors {
	return &fakeAuthors{users: map[string]store.User{
		"U1": {SlackID: "U1", DisplayName: "alice", Kind: store.UserKindActive, Color: "9f69e7", AvatarURL: "http://a"},
		"B1": {SlackID: "B1", DisplayName: "deploybot", Kind: store.UserKindBot, IsBot: true, AvatarURL: "http://b"},
	}}
}

func seedChannel(t *testing.T, mem *store.Memory, ch store.Channel) {
	t.Helper()
	if err := mem.UpsertChannels(context.Background(), []store.Channel{ch}); err != nil {
		t.Fatal(err)
	}
}

func TestMessagesRun(t *testing.T) {
	dir := t.TempDir()
	writeExportFile(t, dir, "general/2021-01-01.json", `[
		{"type": "message", "text": "hi <@U1>", "ts": "1609459200.000100", "user": "U1",
		 "files": [{"url_private": "http://x/f.png", "size": 2048}]},
		{"type": "message", "subtype": "bot_message", "text": "build *done*",
		 "ts": "1609459201.000200", "bot_id": "B1"}
	]`)
	writeExportFile(t, dir, "general/2021-01-02.json", `[
		{"type": "message", "text": "day two", "ts": "1609545600.000100", "user": "U1"}
	]`)

	ctx := context.Background()
	mem := store.NewMemory()
	seedChannel(t, mem, store.Channel{
		SlackID: "C1", Name: "general",
		Pins: []string{"1609459200.000100"},
	})

	report, err := NewMessages(slog.Default(), mem, testAuthors()).Run(ctx, dir)
	if err != nil {
		t.Fatal(err)
	}
	if !report.Ok() {
		t.Fatalf("failures: %+v", report.Failures())
	}
	if report.Succeeded() != 3 {
		t.Errorf("succeeded = %d, want 3", report.Succeeded())
	}

	msgs, err := mem.ListMessages(ctx, "C1", "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 3 {
		t.Fatalf("messages = %d, want 3", len(msgs))
	}

	first := msgs[0]
	if first.Content != "hi @alice" {
		t.Errorf("content = %q", first.Content)
	}
	if !first.Pinned {
		t.Error("first message should be pinned")
	}
	if len(first.Attachments) != 1 || first.Attachments[0].Size != 2048 {
		t.Errorf("attachments = %+v", first.Attachments)
	}
	if first.AuthorName != "alice" || first.AuthorKind != store.UserKindActive {
		t.Errorf("author = %+v", first)
	}

	second := msgs[1]
	if second.Content != "build **done**" {
		t.Errorf("bot content = %q", second.Content)
	}
	if second.AuthorKind != store.UserKindBot {
		t.Errorf("bot author kind = %q", second.AuthorKind)
	}
}

func TestMessagesRunPerMessageFailures(t *testing.T) {
	dir := t.TempDir()
	writeExportFile(t, dir, "general/2021-01-01.json", `[
		{"type": "message", "text": "ok", "ts": "1609459200.000100", "user": "U1"},
		{"type": "message", "text": "no author", "ts": "1609459201.000100"},
		{"type": "message", "text": "bad attachment", "ts": "1609459202.000100", "user": "U1",
		 "files": [{"url_private": "http://x/f.png"}]},
		{"type": "message", "ts": "1609459203.000100", "user": "U1"}
	]`)

	ctx := context.Background()
	mem := store.NewMemory()
	seedChannel(t, mem, store.Channel{SlackID: "C1", Name: "general"})

	report, err := NewMessages(slog.Default(), mem, testAuthors()).Run(ctx, dir)
	if err != nil {
		t.Fatal(err)
	}

	if report.Succeeded() != 1 {
		t.Errorf("succeeded = %d, want 1", report.Succeeded())
	}
	if len(report.Failures()) != 3 {
		t.Fatalf("failures = %+v, want 3", report.Failures())
	}

	// The one good message still landed.
	msgs, err := mem.ListMessages(ctx, "C1", "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].Content != "ok" {
		t.Errorf("messages = %+v", msgs)
	}
}

func TestMessagesRunCorruptFileAbortsChannel(t *testing.T) {
	dir := t.TempDir()
	writeExportFile(t, dir, "general/2021-01-01.json", `[{`)
	writeExportFile(t, dir, "random/2021-01-01.json", `[
		{"type": "message", "text": "fine", "ts": "1609459200.000100", "user": "U1"}
	]`)

	ctx := context.Background()
	mem := store.NewMemory()
	seedChannel(t, mem, store.Channel{SlackID: "C1", Name: "general"})
	seedChannel(t, mem, store.Channel{SlackID: "C2", Name: "random"})

	report, err := NewMessages(slog.Default(), mem, testAuthors()).Run(ctx, dir)
	if err != nil {
		t.Fatal(err)
	}

	var sawChannelFailure bool
	for _, f := range report.Failures() {
		if strings.Contains(f.Unit, "C1") {
			sawChannelFailure = true
		}
	}
	if !sawChannelFailure {
		t.Errorf("expected a channel-level failure for C1: %+v", report.Failures())
	}

	// The healthy channel migrated regardless.
	msgs, err := mem.ListMessages(ctx, "C2", "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Errorf("random channel messages = %d, want 1", len(msgs))
	}
}

func TestMessagesRunIdempotent(t *testing.T) {
	dir := t.TempDir()
	writeExportFile(t, dir, "general/2021-01-01.json", `[
		{"type": "message", "text": "hi", "ts": "1609459200.000100", "user": "U1"}
	]`)

	ctx := context.Background()
	mem := store.NewMemory()
	seedChannel(t, mem, store.Channel{SlackID: "C1", Name: "general"})
	svc := NewMessages(slog.Default(), mem, testAuthors())

	if _, err := svc.Run(ctx, dir); err != nil {
		t.Fatal(err)
	}
	if err := mem.SetMessageDiscordID(ctx, "C1", "1609459200.000100", "M1"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Run(ctx, dir); err != nil {
		t.Fatal(err)
	}

	msgs, err := mem.ListMessages(ctx, "C1", "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Fatalf("messages = %d, want 1", len(msgs))
	}
	if msgs[0].DiscordID != "M1" {
		t.Errorf("re-migration dropped the deployed id: %q", msgs[0].DiscordID)
	}
}
