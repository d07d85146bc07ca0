package cache

import (
	"context"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestFollowCacheFollowOnce(t *testing.T) {
	client, s := testClient(t)
	fc := NewFollowCache(client)
	ctx := context.Background()

	follower := primitive.NewObjectID().Hex()
	following := primitive.NewObjectID().Hex()

	if err := fc.Follow(ctx, follower, following); err != nil {
		t.Fatalf("follow: %v", err)
	}
	// Repeating the same pair must not double-count.
	if err := fc.Follow(ctx, follower, following); err != nil {
		t.Fatalf("follow: %v", err)
	}

	if got := s.HGet("users:"+follower, "followingCount"); got != "1" {
		t.Errorf("followingCount = %q, want 1", got)
	}
	if got := s.HGet("users:"+following, "followersCount"); got != "1" {
		t.Errorf("followersCount = %q, want 1", got)
	}
}

func TestFollowCacheUnfollow(t *testing.T) {
	client, s := testClient(t)
	fc := NewFollowCache(client)
	ctx := context.Background()

	follower := primitive.NewObjectID().Hex()
	following := primitive.NewObjectID().Hex()

	if err := fc.Follow(ctx, follower, following); err != nil {
		t.Fatalf("follow: %v", err)
	}
	if err := fc.Unfollow(ctx, follower, following); err != nil {
		t.Fatalf("unfollow: %v", err)
	}
	// Unfollowing a missing edge is a no-op, counters stay put.
	if err := fc.Unfollow(ctx, follower, following); err != nil {
		t.Fatalf("unfollow: %v", err)
	}

	if got := s.HGet("users:"+follower, "followingCount"); got != "0" {
		t.Errorf("followingCount = %q, want 0", got)
	}
	if got := s.HGet("users:"+following, "followersCount"); got != "0" {
		t.Errorf("followersCount = %q, want 0", got)
	}
}

func TestFollowCacheGetRange(t *testing.T) {
	client, _ := testClient(t)
	fc := NewFollowCache(client)
	uc := NewUserCache(client)
	ctx := context.Background()

	target := primitive.NewObjectID().Hex()
	follower := primitive.NewObjectID()

	if err := uc.Save(ctx, "users", follower.Hex(), 1, map[string]any{
		"_id":    follower,
		"avatar": "https://cdn/a.png",
	}); err != nil {
		t.Fatalf("save user: %v", err)
	}
	if err := fc.Follow(ctx, follower.Hex(), target); err != nil {
		t.Fatalf("follow: %v", err)
	}

	_, _, r := PageRange(1, 10)
	refs, err := fc.GetRange(ctx, "followers:"+target, r)
	if err != nil {
		t.Fatalf("get range: %v", err)
	}
	if len(refs) != 1 {
		t.Fatalf("len = %d, want 1", len(refs))
	}
	if refs[0].ID != follower || refs[0].Avatar != "https://cdn/a.png" {
		t.Errorf("unexpected ref: %+v", refs[0])
	}
}
