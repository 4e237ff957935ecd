package destroy

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/slackcord/slackcord/internal/store"
)

type fakeDest struct {
	mu       sync.Mutex
	deleted  []string
	failOn   map[string]error
}

func newFakeDest() *fakeDest {
	return &fakeDest{failOn: map[string]error{}}
}

func (d *fakeDest) DeleteChannel(ctx context.Context, channelID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.failOn[channelID]; err != nil {
		return err
	}
	d.deleted = append(d.deleted, "channel:"+channelID)
	return nil
}

func (d *fakeDest) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.failOn[messageID]; err != nil {
		return err
	}
	d.deleted = append(d.deleted, "message:"+messageID)
	return nil
}

func (d *fakeDest) deletedLog() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.deleted))
	copy(out, d.deleted)
	return out
}

func seedDeployed(t *testing.T, mem *store.Memory) {
	t.Helper()
	ctx := context.Background()
	for _, name := range []string{store.CategoryDefault, store.CategoryArchive} {
		if err := mem.UpsertCategory(ctx, name); err != nil {
			t.Fatal(err)
		}
	}
	if err := mem.SetCategoryDiscordID(ctx, store.CategoryDefault, "cat-1"); err != nil {
		t.Fatal(err)
	}
	err := mem.UpsertChannels(ctx, []store.Channel{
		{SlackID: "C1", Name: "general", Category: store.CategoryDefault, DiscordID: "chan-1"},
		{SlackID: "C2", Name: "pending", Category: store.CategoryDefault},
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestChannelsRunDeletesAndClears(t *testing.T) {
	mem := store.NewMemory()
	seedDeployed(t, mem)
	dest := newFakeDest()

	report, err := NewChannels(nil, mem, dest).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.Ok() {
		t.Fatalf("unexpected failures: %v", report.Failures())
	}
	if report.Succeeded() != 2 {
		t.Fatalf("succeeded = %d, want channel + category", report.Succeeded())
	}

	ch, err := mem.GetChannelBySlackID(context.Background(), "C1")
	if err != nil {
		t.Fatal(err)
	}
	if ch.DiscordID != "" {
		t.Fatalf("channel id not cleared: %q", ch.DiscordID)
	}
	cat, err := mem.GetCategory(context.Background(), store.CategoryDefault)
	if err != nil {
		t.Fatal(err)
	}
	if cat.DiscordID != "" {
		t.Fatalf("category id not cleared: %q", cat.DiscordID)
	}
	// Channel before category, so the category outlives its channels.
	log := dest.deletedLog()
	if len(log) != 2 || log[0] != "channel:chan-1" || log[1] != "channel:cat-1" {
		t.Fatalf("delete order = %v", log)
	}
}

func TestChannelsRunIsIdempotent(t *testing.T) {
	mem := store.NewMemory()
	seedDeployed(t, mem)
	dest := newFakeDest()
	svc := NewChannels(nil, mem, dest)

	if _, err := svc.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	report, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if report.Succeeded() != 0 {
		t.Fatalf("second run destroyed %d entities", report.Succeeded())
	}
	if got := len(dest.deletedLog()); got != 2 {
		t.Fatalf("delete log has %d entries after two runs, want 2", got)
	}
}

func TestChannelsRunKeepsIDOnDeleteFailure(t *testing.T) {
	mem := store.NewMemory()
	seedDeployed(t, mem)
	dest := newFakeDest()
	boom := errors.New("boom")
	dest.failOn["chan-1"] = boom

	report, err := NewChannels(nil, mem, dest).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	fails := report.Failures()
	if len(fails) != 1 || fails[0].Unit != "C1" || !errors.Is(fails[0].Err, boom) {
		t.Fatalf("failures = %v", fails)
	}
	ch, err := mem.GetChannelBySlackID(context.Background(), "C1")
	if err != nil {
		t.Fatal(err)
	}
	if ch.DiscordID != "chan-1" {
		t.Fatalf("failed delete cleared the id: %q", ch.DiscordID)
	}
}

func TestMessagesRunDeletesAndClears(t *testing.T) {
	mem := store.NewMemory()
	seedDeployed(t, mem)
	ctx := context.Background()
	err := mem.UpsertMessages(ctx, []store.Message{
		{ChannelSlackID: "C1", SlackTS: "1700000001.000000", Content: "a", DiscordID: "msg-1"},
		{ChannelSlackID: "C1", SlackTS: "1700000001.000001", Content: "a files", DiscordID: "msg-2"},
		{ChannelSlackID: "C1", SlackTS: "1700000002.000000", Content: "never deployed"},
	})
	if err != nil {
		t.Fatal(err)
	}
	dest := newFakeDest()

	report, err := NewMessages(nil, mem, dest).Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.Ok() {
		t.Fatalf("unexpected failures: %v", report.Failures())
	}
	if report.Succeeded() != 2 {
		t.Fatalf("succeeded = %d, want 2", report.Succeeded())
	}
	msgs, err := mem.ListMessages(ctx, "C1", "", 10)
	if err != nil {
		t.Fatal(err)
	}
	for _, msg := range msgs {
		if msg.DiscordID != "" {
			t.Fatalf("message %s still deployed", msg.SlackTS)
		}
	}
}

func TestMessagesRunContinuesAfterDeleteFailure(t *testing.T) {
	mem := store.NewMemory()
	seedDeployed(t, mem)
	ctx := context.Background()
	err := mem.UpsertMessages(ctx, []store.Message{
		{ChannelSlackID: "C1", SlackTS: "1700000001.000000", Content: "a", DiscordID: "msg-1"},
		{ChannelSlackID: "C1", SlackTS: "1700000002.000000", Content: "b", DiscordID: "msg-2"},
	})
	if err != nil {
		t.Fatal(err)
	}
	dest := newFakeDest()
	dest.failOn["msg-1"] = errors.New("boom")

	report, err := NewMessages(nil, mem, dest).Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Succeeded() != 1 {
		t.Fatalf("succeeded = %d, want 1", report.Succeeded())
	}
	fails := report.Failures()
	if len(fails) != 1 || fails[0].Unit != "C1/1700000001.000000" {
		t.Fatalf("failures = %v", fails)
	}
	// The failed message keeps its id for the next destroy attempt.
	msgs, err := mem.ListMessages(ctx, "C1", "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if msgs[0].DiscordID != "msg-1" {
		t.Fatalf("failed delete cleared the id: %q", msgs[0].DiscordID)
	}
	if msgs[1].DiscordID != "" {
		t.Fatal("later message not cleared")
	}
}
