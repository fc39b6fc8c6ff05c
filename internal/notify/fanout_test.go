package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"rentbot/internal/model"
	"rentbot/internal/storage"
)

// --- mocks ---

type sentMsg struct {
	ChatID int64
	Msg    Message
}

type mockSink struct {
	sent []sentMsg
	// failAfter, when >= 0, fails every Deliver past that many calls.
	failAfter int
	failWith  error
	calls     int
}

func newMockSink() *mockSink {
	return &mockSink{failAfter: -1}
}

func (m *mockSink) Deliver(_ context.Context, chatID int64, msg Message) error {
	m.calls++
	if m.failAfter >= 0 && m.calls > m.failAfter {
		return m.failWith
	}
	m.sent = append(m.sent, sentMsg{ChatID: chatID, Msg: msg})
	return nil
}

// --- helpers ---

func newTestFanout(t *testing.T, users, communities Sink, maxLen int) (*Fanout, storage.Storage) {
	t.Helper()
	store, err := storage.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	names := map[int64]string{-100123: "almaty_rent"}
	return New(users, communities, store, names, maxLen, log), store
}

func activeUser(t *testing.T, store storage.Storage, id int64) model.Recipient {
	t.Helper()
	if err := store.UpsertUser(context.Background(), &model.User{ID: id, IsActive: true}); err != nil {
		t.Fatalf("upsert user: %v", err)
	}
	return model.Recipient{Kind: model.KindUser, ID: id}
}

func testApartments(n int) []model.Apartment {
	out := make([]model.Apartment, n)
	for i := range out {
		out[i] = model.Apartment{
			ID:    int64(i + 1),
			URL:   fmt.Sprintf("https://krisha.kz/a/show/%d", i+1),
			City:  "алматы",
			Price: 150_000,
			Rooms: 2,
		}
	}
	return out
}

// --- tests ---

func TestNotifyApartmentsSingleWithPhotos(t *testing.T) {
	sink := newMockSink()
	fanout, store := newTestFanout(t, sink, newMockSink(), 3500)
	user := activeUser(t, store, 1)

	a := testApartments(1)[0]
	a.PhotoURLs = []string{"https://img/1.jpg"}

	delivered, err := fanout.NotifyApartments(context.Background(), user, []model.Apartment{a})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if diff := cmp.Diff([]int64{a.ID}, delivered); diff != "" {
		t.Errorf("delivered mismatch (-want +got):\n%s", diff)
	}
	if len(sink.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sink.sent))
	}
	if len(sink.sent[0].Msg.PhotoURLs) != 1 {
		t.Error("single-listing message should carry its photos")
	}
	if !strings.Contains(sink.sent[0].Msg.Text, a.URL) {
		t.Error("message should contain the listing URL")
	}
}

func TestNotifyApartmentsMultiChunks(t *testing.T) {
	sink := newMockSink()
	fanout, store := newTestFanout(t, sink, newMockSink(), 200)
	user := activeUser(t, store, 1)

	listings := testApartments(6)
	for i := range listings {
		listings[i].PhotoURLs = []string{"https://img/x.jpg"}
	}

	delivered, err := fanout.NotifyApartments(context.Background(), user, listings)
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(delivered) != len(listings) {
		t.Errorf("delivered %d ids, want %d", len(delivered), len(listings))
	}
	if len(sink.sent) < 2 {
		t.Fatalf("expected chunked delivery, got %d messages", len(sink.sent))
	}
	for i, s := range sink.sent {
		if len(s.Msg.PhotoURLs) != 0 {
			t.Errorf("chunk %d carries photos; multi-listing messages are text only", i)
		}
	}
}

func TestNotifyApartmentsPartialFailure(t *testing.T) {
	sink := newMockSink()
	sink.failAfter = 1
	sink.failWith = errors.New("network down")
	fanout, store := newTestFanout(t, sink, newMockSink(), 200)
	user := activeUser(t, store, 1)

	delivered, err := fanout.NotifyApartments(context.Background(), user, testApartments(6))
	if err == nil {
		t.Fatal("expected delivery error")
	}
	// Only the first chunk's listings may be reported as delivered.
	if len(delivered) == 0 || len(delivered) >= 6 {
		t.Errorf("delivered %d ids after partial failure, want some but not all", len(delivered))
	}
}

func TestNotifySkipsInactiveUser(t *testing.T) {
	sink := newMockSink()
	fanout, store := newTestFanout(t, sink, newMockSink(), 3500)
	user := activeUser(t, store, 1)
	if err := store.SetUserActive(context.Background(), user.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	delivered, err := fanout.NotifyApartments(context.Background(), user, testApartments(2))
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if delivered != nil {
		t.Errorf("delivered = %v, want nil for inactive user", delivered)
	}
	if len(sink.sent) != 0 {
		t.Errorf("sent %d messages to an inactive user", len(sink.sent))
	}
}

func TestNotifyTerminalFailureDeactivatesUser(t *testing.T) {
	sink := newMockSink()
	sink.failAfter = 0
	sink.failWith = fmt.Errorf("%w: blocked", ErrRecipientGone)
	fanout, store := newTestFanout(t, sink, newMockSink(), 3500)
	user := activeUser(t, store, 1)

	_, err := fanout.NotifyApartments(context.Background(), user, testApartments(1))
	if err == nil {
		t.Fatal("expected delivery error")
	}

	active, err := store.IsUserActive(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("is active: %v", err)
	}
	if active {
		t.Error("user should be deactivated after a terminal delivery failure")
	}
}

func TestNotifyCommunityUsesCommunitySink(t *testing.T) {
	users := newMockSink()
	communities := newMockSink()
	fanout, _ := newTestFanout(t, users, communities, 3500)
	community := model.Recipient{Kind: model.KindCommunity, ID: -100500}

	delivered, err := fanout.NotifyApartments(context.Background(), community, testApartments(1))
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(delivered) != 1 {
		t.Errorf("delivered %d ids, want 1", len(delivered))
	}
	if len(users.sent) != 0 || len(communities.sent) != 1 {
		t.Errorf("users=%d communities=%d messages, want 0/1", len(users.sent), len(communities.sent))
	}
}

func TestNotifyRoomSharesLinksChannel(t *testing.T) {
	sink := newMockSink()
	fanout, store := newTestFanout(t, sink, newMockSink(), 3500)
	user := activeUser(t, store, 1)

	r := model.RoomShare{
		ID:              5,
		ChannelID:       -100123,
		MessageID:       77,
		MonthlyPrice:    70_000,
		PreferredGender: model.PreferGirl,
		City:            "алматы",
	}
	delivered, err := fanout.NotifyRoomShares(context.Background(), user, []model.RoomShare{r})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if diff := cmp.Diff([]int64{5}, delivered); diff != "" {
		t.Errorf("delivered mismatch (-want +got):\n%s", diff)
	}
	if want := "https://t.me/almaty_rent/77"; !strings.Contains(sink.sent[0].Msg.Text, want) {
		t.Errorf("message missing channel link %s:\n%s", want, sink.sent[0].Msg.Text)
	}
}

func TestNotifyEmptyIsNoop(t *testing.T) {
	sink := newMockSink()
	fanout, store := newTestFanout(t, sink, newMockSink(), 3500)
	user := activeUser(t, store, 1)

	delivered, err := fanout.NotifyApartments(context.Background(), user, nil)
	if err != nil || delivered != nil {
		t.Errorf("empty notify = (%v, %v), want (nil, nil)", delivered, err)
	}
	if sink.calls != 0 {
		t.Error("no sink calls expected for empty input")
	}
}
