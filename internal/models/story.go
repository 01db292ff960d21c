package models

import "time"

// StoryTTL is how long a story stays live.
const StoryTTL = 24 * time.Hour

// Reply is a private message to a story's author.
type Reply struct {
	ID        string    `json:"id"`
	FromID    string    `json:"fromId"`
	FromName  string    `json:"fromName"`
	Message   string    `json:"message"`
	CreatedAt Timestamp `json:"createdAt"`
}

// Story is an ephemeral media post.
type Story struct {
	ID           string    `json:"id"`
	AuthorID     string    `json:"authorId"`
	AuthorName   string    `json:"authorName"`
	AuthorAvatar string    `json:"authorAvatar,omitempty"`
	Media        string    `json:"media"`
	Caption      string    `json:"caption,omitempty"`
	CreatedAt    Timestamp `json:"createdAt"`
	Likes        []string  `json:"likes"`
	Replies      []Reply   `json:"replies"`
}

// LiveAt reports whether the story is still within its TTL at now. A story
// without a usable creation time is never live.
func (s Story) LiveAt(now time.Time) bool {
	if s.CreatedAt.IsZero() {
		return false
	}
	return now.Sub(s.CreatedAt.Time) < StoryTTL
}

// ExpiresAt returns the instant the story stops being live.
func (s Story) ExpiresAt() time.Time {
	return s.CreatedAt.Add(StoryTTL)
}

// LikedBy reports whether userID is in the like set.
func (s Story) LikedBy(userID string) bool {
	return ContainsID(s.Likes, userID)
}

// Clone returns a deep copy so callers cannot mutate store state.
func (s Story) Clone() Story {
	s.Likes = append([]string{}, s.Likes...)
	s.Replies = append([]Reply{}, s.Replies...)
	return s
}
