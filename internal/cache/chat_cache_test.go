package cache

import (
	"context"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/gitdev-app/backend/internal/models"
)

func testMessage(chatID, from, to primitive.ObjectID, content string) *models.ChatMessage {
	now := time.Now()
	return &models.ChatMessage{
		ID:     primitive.NewObjectID(),
		ChatID: chatID,
		From:   from,
		To:     to,
		Body: models.MessageBody{
			Type:    models.MessageTypeText,
			Content: content,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func seedThread(t *testing.T, cc *ChatCache, from, to primitive.ObjectID) primitive.ObjectID {
	t.Helper()
	ctx := context.Background()
	chatID := primitive.NewObjectID()
	if err := cc.AddChatList(ctx, from.Hex(), to.Hex(), chatID.Hex()); err != nil {
		t.Fatalf("add chat list: %v", err)
	}
	if err := cc.AddChatList(ctx, to.Hex(), from.Hex(), chatID.Hex()); err != nil {
		t.Fatalf("add chat list: %v", err)
	}
	return chatID
}

func TestChatCacheAddChatListDedupes(t *testing.T) {
	client, _ := testClient(t)
	cc := NewChatCache(client)
	ctx := context.Background()

	from := primitive.NewObjectID()
	to := primitive.NewObjectID()
	chatID := seedThread(t, cc, from, to)

	// A second conversation with the same partner is ignored.
	if err := cc.AddChatList(ctx, from.Hex(), to.Hex(), primitive.NewObjectID().Hex()); err != nil {
		t.Fatalf("add chat list: %v", err)
	}

	if err := cc.SaveMessage(ctx, chatID.Hex(), testMessage(chatID, from, to, "hey")); err != nil {
		t.Fatalf("save message: %v", err)
	}

	dms, err := cc.GetUserDMs(ctx, from.Hex())
	if err != nil {
		t.Fatalf("get dms: %v", err)
	}
	if len(dms) != 1 {
		t.Fatalf("dms = %d, want 1", len(dms))
	}
	if dms[0].Body.Content != "hey" {
		t.Errorf("unexpected last message %q", dms[0].Body.Content)
	}
}

func TestChatCacheMessagesAndRead(t *testing.T) {
	client, _ := testClient(t)
	cc := NewChatCache(client)
	ctx := context.Background()

	from := primitive.NewObjectID()
	to := primitive.NewObjectID()
	chatID := seedThread(t, cc, from, to)

	for _, content := range []string{"one", "two", "three"} {
		if err := cc.SaveMessage(ctx, chatID.Hex(), testMessage(chatID, from, to, content)); err != nil {
			t.Fatalf("save message: %v", err)
		}
	}

	messages, err := cc.GetMessages(ctx, from.Hex(), to.Hex())
	if err != nil {
		t.Fatalf("get messages: %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("messages = %d, want 3", len(messages))
	}
	if messages[0].Body.Content != "one" || messages[2].Body.Content != "three" {
		t.Errorf("unexpected ordering")
	}

	last, err := cc.ReadMessages(ctx, from.Hex(), to.Hex())
	if err != nil {
		t.Fatalf("read messages: %v", err)
	}
	if last == nil || !last.IsRead {
		t.Fatalf("expected last read message")
	}

	messages, err = cc.GetMessages(ctx, from.Hex(), to.Hex())
	if err != nil {
		t.Fatalf("get messages: %v", err)
	}
	for _, msg := range messages {
		if !msg.IsRead {
			t.Errorf("message %q still unread", msg.Body.Content)
		}
	}
}

func TestChatCacheDeleteMessage(t *testing.T) {
	client, _ := testClient(t)
	cc := NewChatCache(client)
	ctx := context.Background()

	from := primitive.NewObjectID()
	to := primitive.NewObjectID()
	chatID := seedThread(t, cc, from, to)

	msg := testMessage(chatID, from, to, "oops")
	if err := cc.SaveMessage(ctx, chatID.Hex(), msg); err != nil {
		t.Fatalf("save message: %v", err)
	}

	updated, err := cc.DeleteMessage(ctx, from.Hex(), to.Hex(), msg.ID.Hex(), models.DeletionForMe)
	if err != nil {
		t.Fatalf("delete message: %v", err)
	}
	if updated == nil || !updated.DeletedForMe || updated.DeletedForEveryone {
		t.Fatalf("expected forMe flag only, got %+v", updated)
	}

	updated, err = cc.DeleteMessage(ctx, from.Hex(), to.Hex(), msg.ID.Hex(), models.DeletionForEveryone)
	if err != nil {
		t.Fatalf("delete message: %v", err)
	}
	if updated == nil || !updated.DeletedForEveryone {
		t.Fatalf("expected forEveryone flag, got %+v", updated)
	}
}

func TestChatCacheReactToMessage(t *testing.T) {
	client, _ := testClient(t)
	cc := NewChatCache(client)
	ctx := context.Background()

	from := primitive.NewObjectID()
	to := primitive.NewObjectID()
	chatID := seedThread(t, cc, from, to)

	msg := testMessage(chatID, from, to, "react to me")
	if err := cc.SaveMessage(ctx, chatID.Hex(), msg); err != nil {
		t.Fatalf("save message: %v", err)
	}

	updated, err := cc.ReactToMessage(ctx, from.Hex(), to.Hex(), msg.ID.Hex(), "🔥")
	if err != nil {
		t.Fatalf("react: %v", err)
	}
	if len(updated.Reactions) != 1 || updated.Reactions[0].Reaction != "🔥" {
		t.Fatalf("expected one reaction, got %+v", updated.Reactions)
	}

	// Different emoji swaps in place.
	updated, err = cc.ReactToMessage(ctx, from.Hex(), to.Hex(), msg.ID.Hex(), "👀")
	if err != nil {
		t.Fatalf("react: %v", err)
	}
	if len(updated.Reactions) != 1 || updated.Reactions[0].Reaction != "👀" {
		t.Fatalf("expected swapped reaction, got %+v", updated.Reactions)
	}

	// Same emoji toggles off.
	updated, err = cc.ReactToMessage(ctx, from.Hex(), to.Hex(), msg.ID.Hex(), "👀")
	if err != nil {
		t.Fatalf("react: %v", err)
	}
	if len(updated.Reactions) != 0 {
		t.Fatalf("expected reaction removed, got %+v", updated.Reactions)
	}
}

func TestChatCacheRoster(t *testing.T) {
	client, _ := testClient(t)
	cc := NewChatCache(client)
	ctx := context.Background()

	pair := ChatUsers{From: primitive.NewObjectID().Hex(), To: primitive.NewObjectID().Hex()}

	roster, err := cc.AddChatUsers(ctx, pair)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(roster) != 1 {
		t.Fatalf("roster = %d, want 1", len(roster))
	}

	// Duplicate pair is ignored.
	roster, err = cc.AddChatUsers(ctx, pair)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(roster) != 1 {
		t.Fatalf("roster after dup = %d, want 1", len(roster))
	}

	roster, err = cc.RemoveChatUsers(ctx, pair)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(roster) != 0 {
		t.Fatalf("roster after remove = %d, want 0", len(roster))
	}
}
