package cache

import (
	"context"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/gitdev-app/backend/internal/apperr"
	"github.com/gitdev-app/backend/internal/models"
)

func testReaction(postID, userID primitive.ObjectID, kind string) *models.Reaction {
	now := time.Now()
	return &models.Reaction{
		ID:        primitive.NewObjectID(),
		PostID:    postID,
		UserID:    userID,
		Kind:      kind,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func postReactionCount(t *testing.T, pc *PostCache, postID, kind string) int {
	t.Helper()
	post, err := pc.Get(context.Background(), postID)
	if err != nil {
		t.Fatalf("get post: %v", err)
	}
	if post == nil {
		t.Fatalf("expected cached post")
	}
	return post.Reactions[kind]
}

func TestReactionCacheSaveAndSwap(t *testing.T) {
	client, _ := testClient(t)
	pc := NewPostCache(client)
	rc := NewReactionCache(client)
	ctx := context.Background()

	post := testPost(primitive.NewObjectID())
	if err := pc.Save(ctx, 1, post); err != nil {
		t.Fatalf("save post: %v", err)
	}

	postID := post.ID
	user := primitive.NewObjectID()

	if err := rc.Save(ctx, testReaction(postID, user, "upvote")); err != nil {
		t.Fatalf("save reaction: %v", err)
	}
	if n := postReactionCount(t, pc, postID.Hex(), "upvote"); n != 1 {
		t.Errorf("upvote = %d, want 1", n)
	}

	// Same kind again is a no-op.
	if err := rc.Save(ctx, testReaction(postID, user, "upvote")); err != nil {
		t.Fatalf("save reaction: %v", err)
	}
	if n := postReactionCount(t, pc, postID.Hex(), "upvote"); n != 1 {
		t.Errorf("upvote after repeat = %d, want 1", n)
	}

	// Different kind swaps the counters.
	if err := rc.Save(ctx, testReaction(postID, user, "rocket")); err != nil {
		t.Fatalf("save reaction: %v", err)
	}
	if n := postReactionCount(t, pc, postID.Hex(), "upvote"); n != 0 {
		t.Errorf("upvote after swap = %d, want 0", n)
	}
	if n := postReactionCount(t, pc, postID.Hex(), "rocket"); n != 1 {
		t.Errorf("rocket after swap = %d, want 1", n)
	}

	stored, err := rc.GetByUser(ctx, postID.Hex(), user.Hex())
	if err != nil {
		t.Fatalf("get by user: %v", err)
	}
	if stored == nil || stored.Kind != "rocket" {
		t.Fatalf("expected stored rocket reaction")
	}
}

func TestReactionCacheDelete(t *testing.T) {
	client, _ := testClient(t)
	pc := NewPostCache(client)
	rc := NewReactionCache(client)
	ctx := context.Background()

	post := testPost(primitive.NewObjectID())
	if err := pc.Save(ctx, 1, post); err != nil {
		t.Fatalf("save post: %v", err)
	}
	user := primitive.NewObjectID()

	// Deleting with nothing stored is a not-found.
	err := rc.Delete(ctx, post.ID.Hex(), user.Hex(), "upvote")
	if apiErr, ok := apperr.As(err); !ok || apiErr.Name != "ReactionNotFound" {
		t.Fatalf("expected ReactionNotFound, got %v", err)
	}

	if err := rc.Save(ctx, testReaction(post.ID, user, "love")); err != nil {
		t.Fatalf("save reaction: %v", err)
	}

	// Deleting a different kind than the stored one is a mismatch.
	err = rc.Delete(ctx, post.ID.Hex(), user.Hex(), "upvote")
	if apiErr, ok := apperr.As(err); !ok || apiErr.Name != "ReactionTypeMismatch" {
		t.Fatalf("expected ReactionTypeMismatch, got %v", err)
	}

	if err := rc.Delete(ctx, post.ID.Hex(), user.Hex(), "love"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n := postReactionCount(t, pc, post.ID.Hex(), "love"); n != 0 {
		t.Errorf("love after delete = %d, want 0", n)
	}

	stored, err := rc.GetByUser(ctx, post.ID.Hex(), user.Hex())
	if err != nil {
		t.Fatalf("get by user: %v", err)
	}
	if stored != nil {
		t.Fatalf("expected reaction gone")
	}
}

func TestReactionCacheGetAllByUser(t *testing.T) {
	client, _ := testClient(t)
	rc := NewReactionCache(client)
	ctx := context.Background()

	user := primitive.NewObjectID()
	postA := primitive.NewObjectID()
	postB := primitive.NewObjectID()

	if err := rc.Save(ctx, testReaction(postA, user, "smile")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := rc.Save(ctx, testReaction(postB, user, "eyes")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := rc.Save(ctx, testReaction(postA, primitive.NewObjectID(), "smile")); err != nil {
		t.Fatalf("save: %v", err)
	}

	reactions, err := rc.GetAllByUser(ctx, user.Hex())
	if err != nil {
		t.Fatalf("get all by user: %v", err)
	}
	if len(reactions) != 2 {
		t.Fatalf("len = %d, want 2", len(reactions))
	}
}
