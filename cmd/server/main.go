package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/gitdev-app/backend/internal/apperr"
	"github.com/gitdev-app/backend/internal/cache"
	"github.com/gitdev-app/backend/internal/handlers"
	"github.com/gitdev-app/backend/internal/mail"
	"github.com/gitdev-app/backend/internal/notifications"
	"github.com/gitdev-app/backend/internal/queue"
	"github.com/gitdev-app/backend/internal/realtime"
	"github.com/gitdev-app/backend/internal/repositories"
	"github.com/gitdev-app/backend/internal/router"
	"github.com/gitdev-app/backend/internal/workers"
	"github.com/gitdev-app/backend/pkg/config"
	"github.com/gitdev-app/backend/pkg/firebase"
)

func main() {
	cfg := config.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if !cfg.IsProduction() {
		log = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	db, err := config.InitDB(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize databases")
	}
	defer db.CloseDB()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Message queue, optionally on an embedded JetStream server.
	natsURL := cfg.NatsURL
	if cfg.NatsEmbedded {
		embedded, err := queue.StartEmbeddedServer(cfg.NatsStoreDir)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to start embedded NATS server")
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			embedded.Shutdown(shutdownCtx)
		}()
		natsURL = embedded.ClientURL()
	}
	mq, err := queue.NewNats(queue.DefaultConfig(), natsURL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to NATS")
	}
	defer mq.Close()

	// Caches and realtime hub share one Redis connection.
	cacheClient := cache.New(db.Redis, log)
	userCache := cache.NewUserCache(cacheClient)
	postCache := cache.NewPostCache(cacheClient)
	followCache := cache.NewFollowCache(cacheClient)
	reactionCache := cache.NewReactionCache(cacheClient)
	chatCache := cache.NewChatCache(cacheClient)
	hub := realtime.NewHub(db.Redis, log)

	// Stores.
	mongoDB := db.Mongo.Database(cfg.MongoDatabase)
	authRepo, err := repositories.NewPostgresAuthRepository(db.Postgres)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to migrate auth store")
	}
	userRepo := repositories.NewMongoUserRepository(mongoDB)
	postRepo := repositories.NewMongoPostRepository(mongoDB, userRepo)
	followRepo := repositories.NewMongoFollowRepository(mongoDB, userRepo)
	reactionRepo := repositories.NewMongoReactionRepository(mongoDB)
	commentRepo := repositories.NewMongoCommentRepository(mongoDB, postRepo)
	chatRepo := repositories.NewMongoChatRepository(mongoDB)
	notificationRepo := repositories.NewMongoNotificationRepository(mongoDB)
	if err := notificationRepo.EnsureTTLIndex(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure notification TTL index")
	}
	lookup := repositories.NewUserLookup(userCache, userRepo, authRepo, log)

	// Email and notification fan-out.
	smtpPort, err := strconv.Atoi(cfg.SMTPPort)
	if err != nil {
		log.Fatal().Str("port", cfg.SMTPPort).Msg("invalid SMTP port")
	}
	sender := mail.NewSMTPSender(cfg.SMTPHost, smtpPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom, log)
	notifier := notifications.NewNotifier(notificationRepo, userRepo, authRepo, hub, mq.Queue(queue.QueueEmails), cfg.ClientURL, log)

	// Background consumers.
	w := workers.New(postRepo, followRepo, reactionRepo, commentRepo, chatRepo, lookup, notifier, log)
	if err := w.Register(mq, sender); err != nil {
		log.Fatal().Err(err).Msg("failed to register queue consumers")
	}
	go func() {
		if err := mq.Run(ctx); err != nil {
			log.Error().Err(err).Msg("queue router stopped")
		}
	}()
	<-mq.Running()

	// Social sign-in is optional.
	var firebaseApp *firebase.App
	if cfg.FirebaseCredentialsPath != "" {
		firebaseApp, err = firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize Firebase")
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = handlers.NewRequestValidator()
	e.HTTPErrorHandler = apperr.HTTPErrorHandler(cfg.IsProduction(), log)

	router.SetupMiddleware(e, cfg, log)
	router.SetupRoutes(e, router.Deps{
		Cfg:           cfg,
		Firebase:      firebaseApp,
		Hub:           hub,
		UserCache:     userCache,
		PostCache:     postCache,
		FollowCache:   followCache,
		ReactionCache: reactionCache,
		ChatCache:     chatCache,
		Auth:          authRepo,
		Users:         userRepo,
		Posts:         postRepo,
		Follows:       followRepo,
		Reactions:     reactionRepo,
		Comments:      commentRepo,
		Chats:         chatRepo,
		Notifications: notificationRepo,
		Lookup:        lookup,
		PostJobs:      mq.Queue(queue.QueuePosts),
		FollowJobs:    mq.Queue(queue.QueueFollows),
		ReactionJobs:  mq.Queue(queue.QueueReactions),
		CommentJobs:   mq.Queue(queue.QueueComments),
		ChatJobs:      mq.Queue(queue.QueueChats),
		EmailJobs:     mq.Queue(queue.QueueEmails),
		Log:           log,
	})

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()
	log.Info().Str("port", cfg.Port).Msg("server started")

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
}
