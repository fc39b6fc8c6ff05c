package channel

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"rentbot/internal/model"
	"rentbot/internal/storage"
)

type mockReader struct {
	messages map[int64][]RawMessage
	err      error
	// reads records the (channel, cursor) of every call.
	reads [][2]int64
}

func (m *mockReader) ReadAfter(_ context.Context, channelID, afterMessageID int64) ([]RawMessage, error) {
	m.reads = append(m.reads, [2]int64{channelID, afterMessageID})
	if m.err != nil {
		return nil, m.err
	}
	var out []RawMessage
	for _, msg := range m.messages[channelID] {
		if msg.MessageID > afterMessageID {
			out = append(out, msg)
		}
	}
	return out, nil
}

type stubClassifier struct {
	result Classification
	err    error
}

func (s stubClassifier) Classify(_ context.Context, _ string) (Classification, error) {
	return s.result, s.err
}

func newTestPoller(t *testing.T, channels []int64, reader Reader, classifier Classifier) (*Poller, *storage.SQLite) {
	t.Helper()
	store, err := storage.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewPoller(channels, reader, classifier, store, log), store
}

func offerMessage(channelID, messageID int64) RawMessage {
	return RawMessage{
		ChannelID: channelID,
		MessageID: messageID,
		Text:      "Сдаю комнату на подселение",
		Date:      time.Now().UTC(),
	}
}

func TestPollNextRoundRobin(t *testing.T) {
	reader := &mockReader{messages: map[int64][]RawMessage{}}
	poller, _ := newTestPoller(t, []int64{-1, -2, -3}, reader, stubClassifier{})

	for i := 0; i < 4; i++ {
		if _, err := poller.PollNext(context.Background()); err != nil {
			t.Fatalf("poll: %v", err)
		}
	}

	var visited []int64
	for _, r := range reader.reads {
		visited = append(visited, r[0])
	}
	want := []int64{-1, -2, -3, -1}
	if diff := cmp.Diff(want, visited); diff != "" {
		t.Errorf("visit order mismatch (-want +got):\n%s", diff)
	}
}

func TestPollNextIngestsOffers(t *testing.T) {
	reader := &mockReader{messages: map[int64][]RawMessage{
		-1: {offerMessage(-1, 10), offerMessage(-1, 11)},
	}}
	classifier := stubClassifier{result: Classification{
		IsOffer: true, MonthlyPrice: 70_000, PreferredGender: model.PreferGirl, City: "алматы",
	}}
	poller, store := newTestPoller(t, []int64{-1}, reader, classifier)

	ingested, err := poller.PollNext(context.Background())
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if len(ingested) != 2 {
		t.Fatalf("ingested %d offers, want 2", len(ingested))
	}
	for _, offer := range ingested {
		if offer.ID == 0 {
			t.Error("ingested offer missing storage ID")
		}
		if offer.City != "алматы" || offer.MonthlyPrice != 70_000 {
			t.Errorf("classification not applied: %+v", offer)
		}
	}

	stored, err := store.ListRoomShares(context.Background(), "алматы")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stored) != 2 {
		t.Errorf("stored %d offers, want 2", len(stored))
	}
}

func TestPollNextUsesCursor(t *testing.T) {
	reader := &mockReader{messages: map[int64][]RawMessage{
		-1: {offerMessage(-1, 5), offerMessage(-1, 9)},
	}}
	poller, store := newTestPoller(t, []int64{-1}, reader, stubClassifier{result: Classification{IsOffer: true}})

	// Message 5 was ingested on a previous run.
	prev := model.RoomShare{ChannelID: -1, MessageID: 5}
	if _, err := store.InsertRoomShare(context.Background(), &prev); err != nil {
		t.Fatalf("seed: %v", err)
	}

	ingested, err := poller.PollNext(context.Background())
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if len(reader.reads) != 1 || reader.reads[0][1] != 5 {
		t.Fatalf("reader called with cursor %v, want 5", reader.reads)
	}
	if len(ingested) != 1 || ingested[0].MessageID != 9 {
		t.Fatalf("ingested %v, want only message 9", ingested)
	}
}

func TestPollNextSkipsAdminBoilerplate(t *testing.T) {
	reader := &mockReader{messages: map[int64][]RawMessage{
		-1: {{ChannelID: -1, MessageID: 1, Text: "Уважаемые подписчики! Читайте правила."}},
	}}
	poller, _ := newTestPoller(t, []int64{-1}, reader, stubClassifier{result: Classification{IsOffer: true}})

	ingested, err := poller.PollNext(context.Background())
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if len(ingested) != 0 {
		t.Errorf("admin post was ingested: %v", ingested)
	}
}

func TestPollNextContentDedup(t *testing.T) {
	reader := &mockReader{messages: map[int64][]RawMessage{
		// The same offer reposted to a second channel.
		-2: {offerMessage(-2, 3)},
	}}
	classifier := stubClassifier{result: Classification{
		IsOffer: true, MonthlyPrice: 70_000, Contact: "@x", Location: "мкр Самал",
	}}
	poller, store := newTestPoller(t, []int64{-2}, reader, classifier)

	orig := model.RoomShare{
		ChannelID: -1, MessageID: 50,
		MonthlyPrice: 70_000, Contact: "@x", Location: "мкр Самал",
		CreatedAt: time.Now().UTC().Add(-5 * 24 * time.Hour),
	}
	if _, err := store.InsertRoomShare(context.Background(), &orig); err != nil {
		t.Fatalf("seed: %v", err)
	}

	ingested, err := poller.PollNext(context.Background())
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if len(ingested) != 0 {
		t.Errorf("reposted offer was ingested: %v", ingested)
	}
}

func TestPollNextClassifierErrorSkipsPost(t *testing.T) {
	reader := &mockReader{messages: map[int64][]RawMessage{
		-1: {offerMessage(-1, 1)},
	}}
	poller, _ := newTestPoller(t, []int64{-1}, reader, stubClassifier{err: errors.New("model unavailable")})

	ingested, err := poller.PollNext(context.Background())
	if err != nil {
		t.Fatalf("a single failed post must not fail the poll: %v", err)
	}
	if len(ingested) != 0 {
		t.Errorf("ingested %v despite classifier failure", ingested)
	}
}

func TestPollNextReaderError(t *testing.T) {
	reader := &mockReader{err: errors.New("flood wait")}
	poller, _ := newTestPoller(t, []int64{-1, -2}, reader, stubClassifier{})

	if _, err := poller.PollNext(context.Background()); err == nil {
		t.Fatal("expected reader error")
	}
	// The rotation still advances past the broken channel.
	reader.err = nil
	if _, err := poller.PollNext(context.Background()); err != nil {
		t.Fatalf("second poll: %v", err)
	}
	if reader.reads[1][0] != -2 {
		t.Errorf("second poll visited %d, want -2", reader.reads[1][0])
	}
}

func TestPollNextNoChannels(t *testing.T) {
	poller, _ := newTestPoller(t, nil, &mockReader{}, stubClassifier{})
	ingested, err := poller.PollNext(context.Background())
	if err != nil || ingested != nil {
		t.Errorf("PollNext() = (%v, %v), want (nil, nil)", ingested, err)
	}
}
