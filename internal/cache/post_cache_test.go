package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/gitdev-app/backend/internal/models"
)

func testClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return New(rdb, zerolog.Nop()), s
}

func testPost(userID primitive.ObjectID) *models.Post {
	now := time.Now()
	return &models.Post{
		ID:              primitive.NewObjectID(),
		UserID:          userID,
		Title:           "intro",
		Content:         "hello",
		Tags:            []string{"go"},
		Privacy:         models.PrivacyPublic,
		CommentsEnabled: true,
		Reactions:       models.NewReactionCounts(),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func TestPageRange(t *testing.T) {
	cases := []struct {
		page       int
		skip       int64
		limit      int64
		start, end int64
	}{
		{1, 0, 10, 0, 10},
		{2, 10, 20, 11, 20},
		{3, 20, 30, 21, 30},
		{0, 0, 10, 0, 10},
	}
	for _, tc := range cases {
		skip, limit, r := PageRange(tc.page, 10)
		if skip != tc.skip || limit != tc.limit {
			t.Errorf("page %d: skip/limit = %d/%d, want %d/%d", tc.page, skip, limit, tc.skip, tc.limit)
		}
		if r.Start != tc.start || r.End != tc.end {
			t.Errorf("page %d: range = %d..%d, want %d..%d", tc.page, r.Start, r.End, tc.start, tc.end)
		}
	}
}

func TestPostCacheSaveAndGet(t *testing.T) {
	client, _ := testClient(t)
	pc := NewPostCache(client)
	ctx := context.Background()

	post := testPost(primitive.NewObjectID())
	if err := pc.Save(ctx, 1, post); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := pc.Get(ctx, post.ID.Hex())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatalf("expected cached post")
	}
	if got.Title != "intro" || got.Content != "hello" {
		t.Errorf("unexpected fields: %q %q", got.Title, got.Content)
	}
	if got.Reactions["upvote"] != 0 {
		t.Errorf("expected zeroed reaction counters")
	}

	count, err := pc.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestPostCacheSaveBumpsAuthorCounter(t *testing.T) {
	client, s := testClient(t)
	pc := NewPostCache(client)
	ctx := context.Background()

	author := primitive.NewObjectID()
	if err := pc.Save(ctx, 1, testPost(author)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := pc.Save(ctx, 1, testPost(author)); err != nil {
		t.Fatalf("save: %v", err)
	}

	got := s.HGet("users:"+author.Hex(), "postsCount")
	if got != "2" {
		t.Errorf("postsCount = %q, want 2", got)
	}
}

func TestPostCacheGetRange(t *testing.T) {
	client, _ := testClient(t)
	pc := NewPostCache(client)
	ctx := context.Background()

	author := primitive.NewObjectID()
	for i := 0; i < 15; i++ {
		if err := pc.Save(ctx, int64(i), testPost(author)); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	_, _, r := PageRange(1, 10)
	page1, err := pc.GetRange(ctx, r)
	if err != nil {
		t.Fatalf("get range: %v", err)
	}
	if len(page1) != 11 {
		t.Errorf("page 1 size = %d, want 11", len(page1))
	}

	_, _, r = PageRange(2, 10)
	page2, err := pc.GetRange(ctx, r)
	if err != nil {
		t.Fatalf("get range: %v", err)
	}
	if len(page2) != 4 {
		t.Errorf("page 2 size = %d, want 4", len(page2))
	}
}

func TestPostCacheDelete(t *testing.T) {
	client, s := testClient(t)
	pc := NewPostCache(client)
	ctx := context.Background()

	post := testPost(primitive.NewObjectID())
	if err := pc.Save(ctx, 1, post); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := pc.Delete(ctx, post.ID.Hex(), post.UserID.Hex()); err != nil {
		t.Fatalf("delete: %v", err)
	}

	got, err := pc.Get(ctx, post.ID.Hex())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected miss after delete")
	}
	if s.HGet("users:"+post.UserID.Hex(), "postsCount") != "0" {
		t.Errorf("expected postsCount back to 0")
	}
}

func TestPostCacheUpdate(t *testing.T) {
	client, _ := testClient(t)
	pc := NewPostCache(client)
	ctx := context.Background()

	post := testPost(primitive.NewObjectID())
	if err := pc.Save(ctx, 1, post); err != nil {
		t.Fatalf("save: %v", err)
	}

	post.Title = "edited"
	updated, err := pc.Update(ctx, post.ID.Hex(), post)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "edited" {
		t.Errorf("title = %q, want edited", updated.Title)
	}
	if updated.UpdatedAt.IsZero() {
		t.Errorf("expected updatedAt stamp")
	}
}
