package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/gitdev-app/backend/internal/cache"
	"github.com/gitdev-app/backend/internal/models"
	"github.com/gitdev-app/backend/internal/queue"
	"github.com/gitdev-app/backend/internal/repositories"
)

type stubReactionRepo struct {
	repositories.ReactionRepository
}

func newReactionHandler(env *testEnv) (*ReactionHandler, *cache.PostCache) {
	pc := cache.NewPostCache(env.client)
	h := NewReactionHandler(cache.NewReactionCache(env.client), &stubReactionRepo{}, env.lookup, env.hub, env.jobs, zerolog.Nop())
	return h, pc
}

func seedCachedPost(t *testing.T, env *testEnv, pc *cache.PostCache) *models.Post {
	t.Helper()
	post := &models.Post{
		ID:        primitive.NewObjectID(),
		UserID:    env.userID,
		Title:     "react here",
		Content:   "body",
		Reactions: models.NewReactionCounts(),
	}
	if err := pc.Save(context.Background(), 1, post); err != nil {
		t.Fatalf("seed post: %v", err)
	}
	return post
}

func TestCreateReaction(t *testing.T) {
	env := newTestEnv(t)
	h, pc := newReactionHandler(env)
	post := seedCachedPost(t, env, pc)

	c, rec := env.request(t, http.MethodPost, "/reactions",
		`{"postId":"`+post.ID.Hex()+`","type":"upvote"}`)
	if err := h.CreateReaction(c); err != nil {
		t.Fatalf("create reaction: %v", err)
	}
	requireStatus(t, rec, http.StatusCreated)

	if len(env.jobs.jobs) != 1 || env.jobs.jobs[0].Name != queue.JobReactionCreate {
		t.Fatalf("unexpected jobs %+v", env.jobs.jobs)
	}
	reaction, _ := env.jobs.jobs[0].Payload.(*models.Reaction)
	if reaction.ID.IsZero() || reaction.Kind != "upvote" {
		t.Errorf("unexpected reaction %+v", reaction)
	}

	cached, err := pc.Get(context.Background(), post.ID.Hex())
	if err != nil {
		t.Fatalf("cache get: %v", err)
	}
	if cached.Reactions["upvote"] != 1 {
		t.Errorf("upvote = %d, want 1", cached.Reactions["upvote"])
	}
}

func TestCreateReactionRejectsUnknownKind(t *testing.T) {
	env := newTestEnv(t)
	h, pc := newReactionHandler(env)
	post := seedCachedPost(t, env, pc)

	c, _ := env.request(t, http.MethodPost, "/reactions",
		`{"postId":"`+post.ID.Hex()+`","type":"meh"}`)
	if err := h.CreateReaction(c); err == nil {
		t.Fatalf("expected validation error")
	}
	if len(env.jobs.jobs) != 0 {
		t.Fatalf("nothing should be enqueued")
	}
}

func TestDeleteReactionMismatch(t *testing.T) {
	env := newTestEnv(t)
	h, pc := newReactionHandler(env)
	post := seedCachedPost(t, env, pc)

	c, _ := env.request(t, http.MethodPost, "/reactions",
		`{"postId":"`+post.ID.Hex()+`","type":"love"}`)
	if err := h.CreateReaction(c); err != nil {
		t.Fatalf("create reaction: %v", err)
	}

	c, _ = env.request(t, http.MethodDelete, "/reactions/"+post.ID.Hex()+"/upvote", "")
	c.SetParamNames("postId", "kind")
	c.SetParamValues(post.ID.Hex(), "upvote")

	err := h.DeleteReaction(c)
	apiErr := requireAPIError(t, err, http.StatusBadRequest)
	if apiErr.Name != "ReactionTypeMismatch" {
		t.Errorf("name = %q", apiErr.Name)
	}
}

func TestDeleteReaction(t *testing.T) {
	env := newTestEnv(t)
	h, pc := newReactionHandler(env)
	post := seedCachedPost(t, env, pc)

	c, _ := env.request(t, http.MethodPost, "/reactions",
		`{"postId":"`+post.ID.Hex()+`","type":"love"}`)
	if err := h.CreateReaction(c); err != nil {
		t.Fatalf("create reaction: %v", err)
	}

	c, rec := env.request(t, http.MethodDelete, "/reactions/"+post.ID.Hex()+"/love", "")
	c.SetParamNames("postId", "kind")
	c.SetParamValues(post.ID.Hex(), "love")

	if err := h.DeleteReaction(c); err != nil {
		t.Fatalf("delete reaction: %v", err)
	}
	requireStatus(t, rec, http.StatusOK)

	if len(env.jobs.jobs) != 2 || env.jobs.jobs[1].Name != queue.JobReactionDelete {
		t.Fatalf("unexpected jobs %+v", env.jobs.jobs)
	}
	job, _ := env.jobs.jobs[1].Payload.(queue.ReactionDeleteJob)
	if job.Kind != "love" || job.PostID != post.ID.Hex() {
		t.Errorf("unexpected job %+v", job)
	}

	cached, err := pc.Get(context.Background(), post.ID.Hex())
	if err != nil {
		t.Fatalf("cache get: %v", err)
	}
	if cached.Reactions["love"] != 0 {
		t.Errorf("love = %d, want 0", cached.Reactions["love"])
	}
}

func TestGetPostReactions(t *testing.T) {
	env := newTestEnv(t)
	h, pc := newReactionHandler(env)
	post := seedCachedPost(t, env, pc)

	c, _ := env.request(t, http.MethodPost, "/reactions",
		`{"postId":"`+post.ID.Hex()+`","type":"rocket"}`)
	if err := h.CreateReaction(c); err != nil {
		t.Fatalf("create reaction: %v", err)
	}

	c, rec := env.request(t, http.MethodGet, "/reactions/"+post.ID.Hex(), "")
	c.SetParamNames("postId")
	c.SetParamValues(post.ID.Hex())

	if err := h.GetPostReactions(c); err != nil {
		t.Fatalf("get reactions: %v", err)
	}
	requireStatus(t, rec, http.StatusOK)

	resp := decodeResponse(t, rec)
	data, _ := resp.Data.(map[string]any)
	if total, _ := data["total"].(float64); total != 1 {
		t.Errorf("total = %v, want 1", data["total"])
	}
	reactions, _ := data["reactions"].([]any)
	first, _ := reactions[0].(map[string]any)
	user, _ := first["user"].(map[string]any)
	if user["username"] != "alice" {
		t.Errorf("user not joined: %v", first["user"])
	}
}
