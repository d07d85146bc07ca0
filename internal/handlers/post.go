package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/gitdev-app/backend/internal/apperr"
	"github.com/gitdev-app/backend/internal/cache"
	"github.com/gitdev-app/backend/internal/models"
	"github.com/gitdev-app/backend/internal/queue"
	"github.com/gitdev-app/backend/internal/realtime"
	"github.com/gitdev-app/backend/internal/repositories"
)

// PostPageSize is the feed page size.
const PostPageSize = 10

// PostHandler serves the post endpoints. Writes land in the cache
// projection first, then the realtime event goes out, then exactly one job
// is enqueued for the authoritative store. The response is sent only after
// the enqueue succeeds; the cache is not rolled back if it fails.
type PostHandler struct {
	cache  *cache.PostCache
	posts  repositories.PostRepository
	lookup *repositories.UserLookup
	hub    Broadcaster
	jobs   Enqueuer
	log    zerolog.Logger
}

// NewPostHandler creates a new PostHandler.
func NewPostHandler(postCache *cache.PostCache, posts repositories.PostRepository, lookup *repositories.UserLookup, hub Broadcaster, jobs Enqueuer, log zerolog.Logger) *PostHandler {
	return &PostHandler{
		cache:  postCache,
		posts:  posts,
		lookup: lookup,
		hub:    hub,
		jobs:   jobs,
		log:    log.With().Str("component", "posts").Logger(),
	}
}

// RegisterRoutes registers post endpoints.
func (h *PostHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/posts", h.CreatePost)
	g.GET("/posts/:postId", h.GetPost)
	g.GET("/posts/page/:page", h.GetPosts)
	g.PUT("/posts/:postId", h.UpdatePost)
	g.DELETE("/posts/:postId", h.DeletePost)
}

// CreatePost creates a post.
func (h *PostHandler) CreatePost(c echo.Context) error {
	user := currentUser(c)

	var req models.CreatePostRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	now := time.Now()
	post := &models.Post{
		ID:              primitive.NewObjectID(),
		UserID:          user.ObjectID(),
		Title:           req.Title,
		Content:         req.Content,
		Tags:            req.Tags,
		Privacy:         req.Privacy,
		CommentsEnabled: true,
		Reactions:       models.NewReactionCounts(),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if post.Privacy == "" {
		post.Privacy = models.PrivacyPublic
	}
	if req.CommentsEnabled != nil {
		post.CommentsEnabled = *req.CommentsEnabled
	}

	if err := h.cache.Save(c.Request().Context(), user.RedisID, post); err != nil {
		return err
	}

	post.User = h.lookup.Ref(c.Request().Context(), post.UserID)
	h.hub.Emit(realtime.NamespacePosts, "new-post", post)

	if err := h.jobs.Enqueue(c.Request().Context(), queue.JobPostCreate, post); err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "post created successfully", post)
}

// GetPost fetches one post, cache first.
func (h *PostHandler) GetPost(c echo.Context) error {
	postID := c.Param("postId")

	post, err := h.cache.Get(c.Request().Context(), postID)
	if err != nil {
		return err
	}
	if post == nil {
		post, err = h.posts.GetPostByID(c.Request().Context(), postID)
		if err != nil {
			return err
		}
	}

	post.User = h.lookup.Ref(c.Request().Context(), post.UserID)
	return respond(c, http.StatusOK, "post fetched successfully", post)
}

// GetPosts serves a feed page from the cache window, falling back to the
// authoritative store on a miss.
func (h *PostHandler) GetPosts(c echo.Context) error {
	page, err := strconv.Atoi(c.Param("page"))
	if err != nil {
		return apperr.Validation("invalid page number")
	}

	skip, limit, r := cache.PageRange(page, PostPageSize)
	ctx := c.Request().Context()

	var total int64
	posts, err := h.cache.GetRange(ctx, r)
	if err != nil {
		return err
	}
	if len(posts) > 0 {
		total, err = h.cache.Count(ctx)
	} else {
		posts, err = h.posts.GetPosts(ctx, skip, limit)
		if err != nil {
			return err
		}
		total, err = h.posts.CountPosts(ctx)
	}
	if err != nil {
		return err
	}

	for i := range posts {
		posts[i].User = h.lookup.Ref(ctx, posts[i].UserID)
	}

	return respond(c, http.StatusOK, "posts fetched successfully", echo.Map{
		"posts": posts,
		"total": total,
	})
}

// UpdatePost edits a post owned by the caller.
func (h *PostHandler) UpdatePost(c echo.Context) error {
	postID := c.Param("postId")

	var req models.UpdatePostRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	post, err := h.ownedPost(c, postID)
	if err != nil {
		return err
	}

	if req.Title != "" {
		post.Title = req.Title
	}
	if req.Content != "" {
		post.Content = req.Content
	}
	if req.Tags != nil {
		post.Tags = req.Tags
	}
	if req.Privacy != "" {
		post.Privacy = req.Privacy
	}
	if req.CommentsEnabled != nil {
		post.CommentsEnabled = *req.CommentsEnabled
	}

	updated, err := h.cache.Update(ctx, postID, post)
	if err != nil {
		return err
	}
	updated.User = h.lookup.Ref(ctx, updated.UserID)
	h.hub.Emit(realtime.NamespacePosts, "update-post", updated)

	if err := h.jobs.Enqueue(ctx, queue.JobPostUpdate, updated); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "post updated successfully", updated)
}

// DeletePost removes a post owned by the caller.
func (h *PostHandler) DeletePost(c echo.Context) error {
	user := currentUser(c)
	postID := c.Param("postId")
	ctx := c.Request().Context()

	post, err := h.ownedPost(c, postID)
	if err != nil {
		return err
	}

	if err := h.cache.Delete(ctx, postID, user.UserID); err != nil {
		return err
	}
	h.hub.Emit(realtime.NamespacePosts, "delete-post", echo.Map{"postId": postID})

	if err := h.jobs.Enqueue(ctx, queue.JobPostDelete, post); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "post deleted successfully", nil)
}

// ownedPost loads a post (cache first) and verifies the caller owns it.
func (h *PostHandler) ownedPost(c echo.Context, postID string) (*models.Post, error) {
	ctx := c.Request().Context()
	post, err := h.cache.Get(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		post, err = h.posts.GetPostByID(ctx, postID)
		if err != nil {
			return nil, err
		}
	}
	if post.UserID != currentUser(c).ObjectID() {
		return nil, apperr.Forbidden("you do not own this post")
	}
	return post, nil
}
