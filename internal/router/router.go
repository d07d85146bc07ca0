package router

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/gitdev-app/backend/internal/cache"
	"github.com/gitdev-app/backend/internal/handlers"
	"github.com/gitdev-app/backend/internal/middleware"
	"github.com/gitdev-app/backend/internal/realtime"
	"github.com/gitdev-app/backend/internal/repositories"
	"github.com/gitdev-app/backend/pkg/config"
	"github.com/gitdev-app/backend/pkg/firebase"
)

// Deps bundles everything the HTTP surface needs. The queue and hub are
// taken through the handler-level interfaces so tests can swap them out.
type Deps struct {
	Cfg      *config.Config
	Firebase *firebase.App
	Hub      *realtime.Hub

	UserCache     *cache.UserCache
	PostCache     *cache.PostCache
	FollowCache   *cache.FollowCache
	ReactionCache *cache.ReactionCache
	ChatCache     *cache.ChatCache

	Auth          repositories.AuthRepository
	Users         repositories.UserRepository
	Posts         repositories.PostRepository
	Follows       repositories.FollowRepository
	Reactions     repositories.ReactionRepository
	Comments      repositories.CommentRepository
	Chats         repositories.ChatRepository
	Notifications repositories.NotificationRepository
	Lookup        *repositories.UserLookup

	PostJobs     handlers.Enqueuer
	FollowJobs   handlers.Enqueuer
	ReactionJobs handlers.Enqueuer
	CommentJobs  handlers.Enqueuer
	ChatJobs     handlers.Enqueuer
	EmailJobs    handlers.Enqueuer

	Log zerolog.Logger
}

// SetupMiddleware configures global Echo middleware.
func SetupMiddleware(e *echo.Echo, cfg *config.Config, log zerolog.Logger) {
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORSWithConfig(echoMiddleware.CORSConfig{
		AllowOrigins:     []string{cfg.ClientURL},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowCredentials: true,
	}))
	e.Use(echoMiddleware.RequestLoggerWithConfig(echoMiddleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v echoMiddleware.RequestLoggerValues) error {
			log.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Msg("request")
			return nil
		},
	}))
}

// SetupRoutes wires every handler onto the Echo instance.
func SetupRoutes(e *echo.Echo, d Deps) {
	e.GET("/health", handlers.HealthCheck)

	authGroup := e.Group("/api/v1")
	authHandler := handlers.NewAuthHandler(d.Auth, d.Users, d.UserCache, d.Firebase, d.EmailJobs, d.Cfg, d.Log)
	authHandler.RegisterRoutes(authGroup)

	api := e.Group("/api/v1")
	api.Use(middleware.JWTAuthMiddleware(d.Cfg.JWTAccessSecret))

	handlers.NewUserHandler(d.UserCache, d.Users, d.Auth, d.Hub, d.Log).RegisterRoutes(api)
	handlers.NewPostHandler(d.PostCache, d.Posts, d.Lookup, d.Hub, d.PostJobs, d.Log).RegisterRoutes(api)
	handlers.NewFollowHandler(d.FollowCache, d.Follows, d.Users, d.Lookup, d.Hub, d.FollowJobs, d.Log).RegisterRoutes(api)
	handlers.NewReactionHandler(d.ReactionCache, d.Reactions, d.Lookup, d.Hub, d.ReactionJobs, d.Log).RegisterRoutes(api)
	handlers.NewCommentHandler(d.Comments, d.Posts, d.Lookup, d.Hub, d.CommentJobs, d.Log).RegisterRoutes(api)
	handlers.NewChatHandler(d.ChatCache, d.Chats, d.Lookup, d.Hub, d.ChatJobs, d.Log).RegisterRoutes(api)
	handlers.NewNotificationHandler(d.Notifications, d.Lookup, d.Hub, d.Log).RegisterRoutes(api)

	ws := realtime.NewHandler(d.Hub, d.Log)
	api.GET("/ws/:namespace", ws.Serve)
}
