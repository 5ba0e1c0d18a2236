package models

// PostAuthor is the public author information attached to posts and comments.
type PostAuthor struct {
	UserID    string  `json:"userId"`
	Username  string  `json:"username"`
	AvatarURL *string `json:"avatarUrl"`
}

// SpeciesPrediction is the top classifier result attached to a species post.
type SpeciesPrediction struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Comment is a comment on a post.
type Comment struct {
	ID        string     `json:"id"`
	PostID    string     `json:"postId"`
	Author    PostAuthor `json:"author"`
	Content   string     `json:"content"`
	CreatedAt Timestamp  `json:"createdAt"`
}

// Post is a feed entry.
type Post struct {
	ID        string             `json:"id"`
	Type      string             `json:"type"`
	Author    PostAuthor         `json:"author"`
	ImageURL  string             `json:"imageUrl"`
	Caption   string             `json:"caption"`
	Species   *SpeciesPrediction `json:"species,omitempty"`
	LikeCount int                `json:"likeCount"`
	LikedByMe bool               `json:"likedByMe"`
	Comments  []Comment          `json:"comments"`
	CreatedAt Timestamp          `json:"createdAt"`
}

// Feed is the community feed.
type Feed struct {
	Items []Post            `json:"items"`
	Meta  PagedResponseMeta `json:"meta"`
}

// CreatePostRequest is the request body for creating a post. Predictions is
// the raw classifier output; only its top entry is kept.
type CreatePostRequest struct {
	Type        string              `json:"type"`
	ImageURL    string              `json:"imageUrl"`
	Caption     string              `json:"caption"`
	Predictions []SpeciesPrediction `json:"predictions,omitempty"`
}

// CreateCommentRequest is the request body for commenting on a post.
type CreateCommentRequest struct {
	Content string `json:"content"`
}

// LikeResult reports the like state after a like or unlike.
type LikeResult struct {
	PostID    string `json:"postId"`
	Liked     bool   `json:"liked"`
	LikeCount int    `json:"likeCount"`
}
