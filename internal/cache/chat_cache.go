package cache

import (
	"context"
	"encoding/json"

	"github.com/gitdev-app/backend/internal/apperr"
	"github.com/gitdev-app/backend/internal/models"
)

// dmEntry links a conversation partner to its thread id inside a user's
// "dms:{userId}" list.
type dmEntry struct {
	To     string `json:"to"`
	ChatID string `json:"chatId"`
}

// ChatUsers is an open-conversation roster entry.
type ChatUsers struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// ChatCache keeps chat read models: per-user DM lists, per-thread message
// lists and the shared open-conversation roster. Message mutations (read
// marks, soft deletes, reactions) edit list entries in place.
type ChatCache struct {
	c *Client
}

func NewChatCache(c *Client) *ChatCache { return &ChatCache{c: c} }

// AddChatList links the thread into from's DM list unless a conversation
// with the same partner is already listed.
func (cc *ChatCache) AddChatList(ctx context.Context, from, to, chatID string) error {
	entries, err := cc.dmEntries(ctx, from)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.To == to {
			return nil
		}
	}

	raw, _ := json.Marshal(dmEntry{To: to, ChatID: chatID})
	if err := cc.c.rdb.LPush(ctx, "dms:"+from, string(raw)).Err(); err != nil {
		cc.c.log.Error().Err(err).Msg("failed creating chat list in cache")
		return apperr.Redis()
	}
	return nil
}

// SaveMessage appends the message to the thread's list.
func (cc *ChatCache) SaveMessage(ctx context.Context, chatID string, msg *models.ChatMessage) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return apperr.Redis()
	}
	if err := cc.c.rdb.RPush(ctx, "messages:"+chatID, string(raw)).Err(); err != nil {
		cc.c.log.Error().Err(err).Msg("failed saving message in cache")
		return apperr.Redis()
	}
	return nil
}

// AddChatUsers appends a roster entry unless the (from, to) pair already
// exists, and returns the full roster.
func (cc *ChatCache) AddChatUsers(ctx context.Context, users ChatUsers) ([]ChatUsers, error) {
	roster, err := cc.chatUsers(ctx)
	if err != nil {
		return nil, err
	}
	for _, entry := range roster {
		if entry == users {
			return roster, nil
		}
	}

	raw, _ := json.Marshal(users)
	if err := cc.c.rdb.RPush(ctx, "chatUsers", string(raw)).Err(); err != nil {
		cc.c.log.Error().Err(err).Msg("failed adding chat users in cache")
		return nil, apperr.Redis()
	}
	return append(roster, users), nil
}

// RemoveChatUsers removes a roster entry and returns the remaining roster.
func (cc *ChatCache) RemoveChatUsers(ctx context.Context, users ChatUsers) ([]ChatUsers, error) {
	roster, err := cc.chatUsers(ctx)
	if err != nil {
		return nil, err
	}
	for i, entry := range roster {
		if entry == users {
			raw, _ := json.Marshal(users)
			if err := cc.c.rdb.LRem(ctx, "chatUsers", 0, string(raw)).Err(); err != nil {
				cc.c.log.Error().Err(err).Msg("failed removing chat users in cache")
				return nil, apperr.Redis()
			}
			return append(roster[:i], roster[i+1:]...), nil
		}
	}
	return roster, nil
}

// GetUserDMs returns the most recent message of each thread in the user's
// DM list.
func (cc *ChatCache) GetUserDMs(ctx context.Context, userID string) ([]models.ChatMessage, error) {
	entries, err := cc.dmEntries(ctx, userID)
	if err != nil {
		return nil, err
	}

	var messages []models.ChatMessage
	for _, entry := range entries {
		raw, err := cc.c.rdb.LIndex(ctx, "messages:"+entry.ChatID, -1).Result()
		if err != nil {
			continue
		}
		var msg models.ChatMessage
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// GetMessages returns the full message list of the thread between from and
// to, or nil when no thread is cached.
func (cc *ChatCache) GetMessages(ctx context.Context, from, to string) ([]models.ChatMessage, error) {
	chatID, err := cc.threadID(ctx, from, to)
	if err != nil || chatID == "" {
		return nil, err
	}

	raw, err := cc.c.rdb.LRange(ctx, "messages:"+chatID, 0, -1).Result()
	if err != nil {
		cc.c.log.Error().Err(err).Msg("failed getting messages in cache")
		return nil, apperr.Redis()
	}

	messages := make([]models.ChatMessage, 0, len(raw))
	for _, item := range raw {
		var msg models.ChatMessage
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// DeleteMessage flags the message in place. "forEveryone" implies "forMe".
// Returns the updated message, or nil when the message is not cached.
func (cc *ChatCache) DeleteMessage(ctx context.Context, from, to, messageID, deletionType string) (*models.ChatMessage, error) {
	return cc.updateMessage(ctx, from, to, func(msg *models.ChatMessage) bool {
		if msg.ID.Hex() != messageID {
			return false
		}
		msg.DeletedForMe = true
		if deletionType == models.DeletionForEveryone {
			msg.DeletedForEveryone = true
		}
		return true
	})
}

// ReadMessages marks every unread message in the thread as read and returns
// the last message touched, or nil when nothing was unread.
func (cc *ChatCache) ReadMessages(ctx context.Context, from, to string) (*models.ChatMessage, error) {
	chatID, err := cc.threadID(ctx, from, to)
	if err != nil || chatID == "" {
		return nil, err
	}

	raw, err := cc.c.rdb.LRange(ctx, "messages:"+chatID, 0, -1).Result()
	if err != nil {
		return nil, apperr.Redis()
	}

	var last *models.ChatMessage
	for i, item := range raw {
		var msg models.ChatMessage
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			continue
		}
		if msg.IsRead {
			continue
		}
		msg.IsRead = true
		updated, _ := json.Marshal(&msg)
		if err := cc.c.rdb.LSet(ctx, "messages:"+chatID, int64(i), string(updated)).Err(); err != nil {
			return nil, apperr.Redis()
		}
		last = &msg
	}
	return last, nil
}

// ReactToMessage toggles or swaps the user's emoji on a cached message and
// returns the updated message, or nil when the message is not cached.
func (cc *ChatCache) ReactToMessage(ctx context.Context, from, to, messageID, reaction string) (*models.ChatMessage, error) {
	fromID, err := parseObjectID(from)
	if err != nil {
		return nil, err
	}

	return cc.updateMessage(ctx, from, to, func(msg *models.ChatMessage) bool {
		if msg.ID.Hex() != messageID {
			return false
		}
		for i, r := range msg.Reactions {
			if r.From == fromID {
				if r.Reaction == reaction {
					msg.Reactions = append(msg.Reactions[:i], msg.Reactions[i+1:]...)
				} else {
					msg.Reactions[i].Reaction = reaction
				}
				return true
			}
		}
		msg.Reactions = append(msg.Reactions, models.MessageReaction{From: fromID, Reaction: reaction})
		return true
	})
}

func (cc *ChatCache) updateMessage(ctx context.Context, from, to string, mutate func(*models.ChatMessage) bool) (*models.ChatMessage, error) {
	chatID, err := cc.threadID(ctx, from, to)
	if err != nil || chatID == "" {
		return nil, err
	}

	raw, err := cc.c.rdb.LRange(ctx, "messages:"+chatID, 0, -1).Result()
	if err != nil {
		cc.c.log.Error().Err(err).Msg("failed reading messages in cache")
		return nil, apperr.Redis()
	}

	for i, item := range raw {
		var msg models.ChatMessage
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			continue
		}
		if !mutate(&msg) {
			continue
		}
		updated, _ := json.Marshal(&msg)
		if err := cc.c.rdb.LSet(ctx, "messages:"+chatID, int64(i), string(updated)).Err(); err != nil {
			return nil, apperr.Redis()
		}
		return &msg, nil
	}
	return nil, nil
}

func (cc *ChatCache) threadID(ctx context.Context, from, to string) (string, error) {
	entries, err := cc.dmEntries(ctx, from)
	if err != nil {
		return "", err
	}
	for _, entry := range entries {
		if entry.To == to {
			return entry.ChatID, nil
		}
	}
	return "", nil
}

func (cc *ChatCache) dmEntries(ctx context.Context, userID string) ([]dmEntry, error) {
	raw, err := cc.c.rdb.LRange(ctx, "dms:"+userID, 0, -1).Result()
	if err != nil {
		cc.c.log.Error().Err(err).Msg("failed reading dm list in cache")
		return nil, apperr.Redis()
	}

	entries := make([]dmEntry, 0, len(raw))
	for _, item := range raw {
		var entry dmEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (cc *ChatCache) chatUsers(ctx context.Context) ([]ChatUsers, error) {
	raw, err := cc.c.rdb.LRange(ctx, "chatUsers", 0, -1).Result()
	if err != nil {
		cc.c.log.Error().Err(err).Msg("failed reading chat roster in cache")
		return nil, apperr.Redis()
	}

	roster := make([]ChatUsers, 0, len(raw))
	for _, item := range raw {
		var entry ChatUsers
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			continue
		}
		roster = append(roster, entry)
	}
	return roster, nil
}
