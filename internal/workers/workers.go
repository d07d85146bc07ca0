// Package workers consumes the background job queues and applies each job
// to the authoritative stores, firing notification fan-out where an action
// concerns another user.
package workers

import (
	"github.com/rs/zerolog"

	"github.com/gitdev-app/backend/internal/notifications"
	"github.com/gitdev-app/backend/internal/queue"
	"github.com/gitdev-app/backend/internal/repositories"
)

// Workers bundles every job consumer and its dependencies.
type Workers struct {
	posts     repositories.PostRepository
	follows   repositories.FollowRepository
	reactions repositories.ReactionRepository
	comments  repositories.CommentRepository
	chats     repositories.ChatRepository
	lookup    *repositories.UserLookup
	notifier  *notifications.Notifier
	log       zerolog.Logger
}

func New(
	posts repositories.PostRepository,
	follows repositories.FollowRepository,
	reactions repositories.ReactionRepository,
	comments repositories.CommentRepository,
	chats repositories.ChatRepository,
	lookup *repositories.UserLookup,
	notifier *notifications.Notifier,
	log zerolog.Logger,
) *Workers {
	return &Workers{
		posts:     posts,
		follows:   follows,
		reactions: reactions,
		comments:  comments,
		chats:     chats,
		lookup:    lookup,
		notifier:  notifier,
		log:       log.With().Str("component", "workers").Logger(),
	}
}

// Register attaches every consumer to its queue. Call before mq.Run.
func (w *Workers) Register(mq *queue.MQ, sender EmailSender) error {
	registrations := []struct {
		queue    string
		handlers map[string]queue.HandlerFunc
	}{
		{queue.QueuePosts, w.postHandlers()},
		{queue.QueueFollows, w.followHandlers()},
		{queue.QueueReactions, w.reactionHandlers()},
		{queue.QueueComments, w.commentHandlers()},
		{queue.QueueChats, w.chatHandlers()},
		{queue.QueueEmails, emailHandlers(sender, w.log)},
	}
	for _, r := range registrations {
		if err := mq.Process(r.queue, r.handlers); err != nil {
			return err
		}
	}
	return nil
}
