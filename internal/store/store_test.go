package store

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/matheus3301/resort/internal/chat"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, _, err := OpenMigrated(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func at(minute int) time.Time {
	return time.Date(2025, 3, 1, 10, minute, 0, 0, time.UTC)
}

func msg(id string, sender chat.Sender, text string, minute int) chat.Message {
	return chat.Message{ID: id, Sender: sender, Text: text, Timestamp: at(minute)}
}

func sampleConversations() []chat.Conversation {
	return []chat.Conversation{
		{
			ID: "chat-old", CustomerID: "cust-1", ResortID: "r1", ResortName: "Coral Cove", CreatedAt: at(0),
			Messages: []chat.Message{
				msg("m1", chat.SenderOwner, "welcome", 1),
				msg("m2", chat.SenderCustomer, "thanks", 2),
			},
		},
		{
			ID: "chat-new", CustomerID: "cust-1", ResortID: "r2", ResortName: "Palm Bay", CreatedAt: at(0),
			Messages: []chat.Message{
				msg("m3", chat.SenderCustomer, "hi", 10),
				msg("m4", chat.SenderOwner, "hello", 11),
				msg("m5", chat.SenderOwner, "room ready", 12),
			},
		},
		{ID: "chat-empty", CustomerID: "cust-1", ResortID: "r3", ResortName: "Sand Dune", CreatedAt: at(5)},
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := testDB(t)

	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed {
		t.Error("second Migrate() should report Changed=false")
	}
	if result.From != 1 || result.Version != 1 {
		t.Errorf("from = %d version = %d, want 1 and 1", result.From, result.Version)
	}
}

func TestMigrateFreshDatabase(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "fresh.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if !result.Changed || result.From != 0 || result.Version != 1 {
		t.Errorf("result = %+v, want 0 -> 1 changed", result)
	}
}

func TestMigrateRefusesDirtyDatabase(t *testing.T) {
	db := testDB(t)
	if _, err := db.Exec(`UPDATE schema_migrations SET dirty = 1`); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err == nil {
		t.Fatal("Migrate() on a dirty database should fail")
	}
}

func TestMigrateSchemaHasRequiredColumns(t *testing.T) {
	db := testDB(t)

	requiredOps := []struct {
		desc  string
		query string
		args  []any
	}{
		{"insert conversation", "INSERT INTO conversations (id, user_id, resort_name, unread_count, last_message_at, last_message_preview) VALUES (?, ?, ?, ?, ?, ?)", []any{"c1", "u1", "Palm Bay", 2, 1000, "hi"}},
		{"insert message", "INSERT INTO messages (conversation_id, msg_id, sender, body, timestamp) VALUES (?, ?, ?, ?, ?)", []any{"c1", "m1", "owner", "hello", 1000}},
		{"queue favorite", "INSERT INTO favorite_outbox (op_id, resort_id, action) VALUES (?, ?, ?)", []any{"op", "r1", "add"}},
		{"set sync state", "INSERT INTO sync_state (key, value) VALUES (?, ?)", []any{"k", "v"}},
	}
	for _, op := range requiredOps {
		t.Run(op.desc, func(t *testing.T) {
			if _, err := db.Exec(op.query, op.args...); err != nil {
				t.Fatalf("%s failed: %v", op.desc, err)
			}
		})
	}

	if _, err := db.Exec("INSERT INTO favorite_outbox (op_id, resort_id, action) VALUES ('x', 'r', 'toggle')"); err == nil {
		t.Error("favorite_outbox accepted an unknown action")
	}
}

func TestReplaceAndListConversations(t *testing.T) {
	db := testDB(t)

	if err := db.ReplaceConversations("cust-1", chat.SenderOwner, sampleConversations()); err != nil {
		t.Fatalf("ReplaceConversations() error: %v", err)
	}

	convs, err := db.ListConversations("cust-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(convs) != 3 {
		t.Fatalf("got %d conversations, want 3", len(convs))
	}

	wantOrder := []string{"chat-new", "chat-empty", "chat-old"}
	for i, id := range wantOrder {
		if convs[i].ID != id {
			t.Errorf("convs[%d] = %s, want %s", i, convs[i].ID, id)
		}
	}

	newest := convs[0]
	if newest.UnreadCount != 2 || newest.LastMessagePreview != "room ready" || newest.ResortName != "Palm Bay" || newest.LastSender != "owner" {
		t.Errorf("chat-new = %+v", newest)
	}
	if convs[1].LastMessagePreview != "No messages yet" || convs[1].UnreadCount != 0 {
		t.Errorf("chat-empty = %+v", convs[1])
	}
	if convs[2].UnreadCount != 0 {
		t.Errorf("chat-old unread = %d, want 0", convs[2].UnreadCount)
	}

	total, err := db.UnreadTotal("cust-1")
	if err != nil || total != 2 {
		t.Errorf("UnreadTotal() = %d, %v; want 2", total, err)
	}
	if n, _ := db.MessageCount(); n != 5 {
		t.Errorf("MessageCount() = %d, want 5", n)
	}
}

func TestReplaceConversationsDropsMissing(t *testing.T) {
	db := testDB(t)
	if err := db.ReplaceConversations("cust-1", chat.SenderOwner, sampleConversations()); err != nil {
		t.Fatal(err)
	}
	if err := db.ReplaceConversations("cust-1", chat.SenderOwner, sampleConversations()[:1]); err != nil {
		t.Fatal(err)
	}

	if n, _ := db.ConversationCount("cust-1"); n != 1 {
		t.Errorf("ConversationCount() = %d, want 1", n)
	}
	if n, _ := db.MessageCount(); n != 2 {
		t.Errorf("MessageCount() = %d, want 2 after cascade", n)
	}
}

func TestReplaceConversationsScopedToUser(t *testing.T) {
	db := testDB(t)
	if err := db.ReplaceConversations("cust-1", chat.SenderOwner, sampleConversations()); err != nil {
		t.Fatal(err)
	}
	other := []chat.Conversation{{ID: "chat-x", CustomerID: "cust-2", CreatedAt: at(0)}}
	if err := db.ReplaceConversations("cust-2", chat.SenderOwner, other); err != nil {
		t.Fatal(err)
	}
	if n, _ := db.ConversationCount("cust-1"); n != 3 {
		t.Errorf("cust-1 conversations = %d, want 3", n)
	}
}

func TestAppendLiveMessage(t *testing.T) {
	db := testDB(t)
	if err := db.ReplaceConversations("cust-1", chat.SenderOwner, sampleConversations()); err != nil {
		t.Fatal(err)
	}

	live := chat.LiveMessage{ConversationID: "chat-old", ID: "m6", Sender: chat.SenderOwner, Text: "pool is open", Timestamp: at(30)}
	inserted, err := db.AppendLiveMessage("cust-1", chat.SenderOwner, live)
	if err != nil || !inserted {
		t.Fatalf("AppendLiveMessage() = %v, %v", inserted, err)
	}
	// Redelivery is a no-op.
	if inserted, err := db.AppendLiveMessage("cust-1", chat.SenderOwner, live); err != nil || inserted {
		t.Errorf("duplicate AppendLiveMessage() = %v, %v", inserted, err)
	}

	c, err := db.GetConversation("chat-old")
	if err != nil || c == nil {
		t.Fatalf("GetConversation() = %v, %v", c, err)
	}
	// [owner, customer, owner]: both owner messages count.
	if c.UnreadCount != 2 || c.LastMessagePreview != "pool is open" || c.LastMessageAt != at(30).UnixMilli() {
		t.Errorf("chat-old = %+v", c)
	}

	reply := chat.LiveMessage{ConversationID: "chat-old", ID: "m7", Sender: chat.SenderCustomer, Text: "great", Timestamp: at(31)}
	if _, err := db.AppendLiveMessage("cust-1", chat.SenderOwner, reply); err != nil {
		t.Fatal(err)
	}
	c, _ = db.GetConversation("chat-old")
	if c.UnreadCount != 0 {
		t.Errorf("unread after customer reply = %d, want 0", c.UnreadCount)
	}
}

func TestPreviewKeepsRunesWhole(t *testing.T) {
	db := testDB(t)
	text := strings.Repeat("a", 99) + "é see you"
	convs := []chat.Conversation{{
		ID: "chat-long", CustomerID: "cust-1", ResortID: "r1", CreatedAt: at(0),
		Messages: []chat.Message{msg("m1", chat.SenderOwner, text, 1)},
	}}
	if err := db.ReplaceConversations("cust-1", chat.SenderOwner, convs); err != nil {
		t.Fatal(err)
	}
	live := chat.LiveMessage{ConversationID: "chat-long", ID: "m2", Sender: chat.SenderOwner, Text: strings.Repeat("b", 98) + "😀!", Timestamp: at(2)}
	if _, err := db.AppendLiveMessage("cust-1", chat.SenderOwner, live); err != nil {
		t.Fatal(err)
	}

	listed, err := db.ListConversations("cust-1")
	if err != nil || len(listed) != 1 {
		t.Fatalf("ListConversations() = %d, %v", len(listed), err)
	}
	got := listed[0].LastMessagePreview
	if !utf8.ValidString(got) {
		t.Fatalf("preview is not valid UTF-8: %q", got)
	}
	if want := strings.Repeat("b", 98); got != want {
		t.Errorf("preview = %q, want %q", got, want)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{strings.Repeat("a", 99) + "é", 100, strings.Repeat("a", 99)},
		{"aé", 3, "aé"},
		{"日本", 4, "日"},
		{"日本", 2, ""},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestAppendLiveMessageCreatesConversation(t *testing.T) {
	db := testDB(t)
	live := chat.LiveMessage{ConversationID: "chat-fresh", ID: "m1", Sender: chat.SenderOwner, Text: "hello", Timestamp: at(1)}
	if _, err := db.AppendLiveMessage("cust-1", chat.SenderOwner, live); err != nil {
		t.Fatal(err)
	}
	c, err := db.GetConversation("chat-fresh")
	if err != nil || c == nil {
		t.Fatalf("GetConversation() = %v, %v", c, err)
	}
	if c.UserID != "cust-1" || c.UnreadCount != 1 {
		t.Errorf("chat-fresh = %+v", c)
	}
}

func TestListMessages(t *testing.T) {
	db := testDB(t)
	if err := db.ReplaceConversations("cust-1", chat.SenderOwner, sampleConversations()); err != nil {
		t.Fatal(err)
	}

	msgs, err := db.ListMessages("chat-new", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 || msgs[0].MsgID != "m4" || msgs[1].MsgID != "m5" {
		t.Errorf("ListMessages(limit 2) = %+v", msgs)
	}

	all, err := db.ListMessages("chat-new", 0)
	if err != nil || len(all) != 3 {
		t.Errorf("ListMessages(default) = %d messages, %v", len(all), err)
	}
}

func TestGetConversationMissing(t *testing.T) {
	db := testDB(t)
	c, err := db.GetConversation("nope")
	if err != nil || c != nil {
		t.Errorf("GetConversation(missing) = %v, %v", c, err)
	}
}

func TestFavoriteOutboxLifecycle(t *testing.T) {
	db := testDB(t)

	if err := db.QueueFavorite("op-1", "r1", FavoriteAdd); err != nil {
		t.Fatal(err)
	}
	if err := db.QueueFavorite("op-2", "r2", FavoriteRemove); err != nil {
		t.Fatal(err)
	}
	if err := db.QueueFavorite("op-3", "r3", "toggle"); err == nil {
		t.Error("QueueFavorite accepted an unknown action")
	}

	pending, err := db.PendingFavorites()
	if err != nil || len(pending) != 2 || pending[0].OpID != "op-1" {
		t.Fatalf("PendingFavorites() = %+v, %v", pending, err)
	}

	if err := db.MarkFavoriteSending("op-1"); err != nil {
		t.Fatal(err)
	}
	if err := db.MarkFavoriteSent("op-1"); err != nil {
		t.Fatal(err)
	}
	if err := db.MarkFavoriteFailed("op-2", "404"); err != nil {
		t.Fatal(err)
	}

	pending, _ = db.PendingFavorites()
	if len(pending) != 0 {
		t.Errorf("pending after processing = %d, want 0", len(pending))
	}
	op, err := db.GetFavoriteOp("op-2")
	if err != nil || op == nil || op.Status != StatusFailed || op.ErrorMessage != "404" {
		t.Errorf("GetFavoriteOp(op-2) = %+v, %v", op, err)
	}
	if op, _ := db.GetFavoriteOp("missing"); op != nil {
		t.Errorf("GetFavoriteOp(missing) = %+v", op)
	}
}

func TestRequeueSendingFavorites(t *testing.T) {
	db := testDB(t)
	if err := db.QueueFavorite("op-1", "r1", FavoriteAdd); err != nil {
		t.Fatal(err)
	}
	if err := db.MarkFavoriteSending("op-1"); err != nil {
		t.Fatal(err)
	}

	n, err := db.RequeueSendingFavorites()
	if err != nil || n != 1 {
		t.Fatalf("RequeueSendingFavorites() = %d, %v", n, err)
	}
	pending, _ := db.PendingFavorites()
	if len(pending) != 1 || pending[0].Status != StatusQueued {
		t.Errorf("pending = %+v", pending)
	}
}
