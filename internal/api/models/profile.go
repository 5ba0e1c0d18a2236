package models

// Profile is a user's public profile.
type Profile struct {
	UserID      string    `json:"userId"`
	Username    *string   `json:"username"`
	AvatarURL   *string   `json:"avatarUrl"`
	DisplayName string    `json:"displayName"`
	CreatedAt   Timestamp `json:"createdAt"`
	UpdatedAt   Timestamp `json:"updatedAt"`
}

// ProfileInput is the request body for updating the caller's profile.
type ProfileInput struct {
	Username  *string `json:"username,omitempty"`
	AvatarURL *string `json:"avatarUrl,omitempty"`
}

// Me summarizes the authenticated user.
type Me struct {
	UserID         string  `json:"userId"`
	Email          string  `json:"email,omitempty"`
	Profile        Profile `json:"profile"`
	SavedCount     int     `json:"savedCount"`
	CompletedCount int     `json:"completedCount"`
}
