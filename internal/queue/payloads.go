package queue

// Job payloads shared by producers (handlers) and consumers (workers).
// Entity documents (posts, comments, reactions, messages) travel as their
// model type; the payloads here cover the remaining jobs.

// FollowJob carries one follow edge, ids in hex.
type FollowJob struct {
	Follower  string `json:"follower"`
	Following string `json:"following"`
}

// ReactionDeleteJob identifies the reaction to remove.
type ReactionDeleteJob struct {
	PostID string `json:"postId"`
	UserID string `json:"userId"`
	Kind   string `json:"type"`
}

// CommentUpdateJob carries an edited comment body.
type CommentUpdateJob struct {
	CommentID string `json:"commentId"`
	Content   string `json:"content"`
}

// CommentVoteJob carries one vote action.
type CommentVoteJob struct {
	CommentID string `json:"commentId"`
	UserID    string `json:"userId"`
	Value     int    `json:"value"`
}

// ChatDeleteJob identifies a message soft-delete.
type ChatDeleteJob struct {
	MessageID    string `json:"messageId"`
	DeletionType string `json:"deletionType"`
}

// ChatReadJob marks a conversation read.
type ChatReadJob struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// ChatReactJob carries a message reaction toggle.
type ChatReactJob struct {
	MessageID string `json:"messageId"`
	From      string `json:"from"`
	Reaction  string `json:"reaction"`
}
