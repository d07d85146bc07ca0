package queue

// Queue names. Each entity family drains through its own queue so a slow
// consumer never stalls the others.
const (
	QueuePosts     = "posts"
	QueueFollows   = "follows"
	QueueReactions = "reactions"
	QueueComments  = "comments"
	QueueChats     = "chats"
	QueueEmails    = "emails"
)

// Job names, one per durable write.
const (
	JobPostCreate = "post-create"
	JobPostUpdate = "post-update"
	JobPostDelete = "post-delete"

	JobFollowCreate = "follow-create"
	JobFollowDelete = "follow-delete"

	JobReactionCreate = "reaction-create"
	JobReactionDelete = "reaction-delete"

	JobCommentCreate = "comment-create"
	JobCommentUpdate = "comment-update"
	JobCommentDelete = "comment-delete"
	JobCommentVote   = "comment-vote"

	JobChatMessageSave   = "chat-message-save"
	JobChatMessageDelete = "chat-message-delete"
	JobChatMessageRead   = "chat-message-read"
	JobChatMessageReact  = "chat-message-react"

	JobEmailSend = "email-send"
)
