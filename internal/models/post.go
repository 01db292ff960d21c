package models

// Origin distinguishes curated seed posts from user-authored ones.
type Origin string

const (
	OriginSeed Origin = "seed"
	OriginUser Origin = "user"
)

// Comment is a flat comment record. ParentID is empty for top-level
// comments and holds the parent comment ID for replies.
type Comment struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	AuthorName string    `json:"authorName"`
	Body       string    `json:"body"`
	CreatedAt  Timestamp `json:"createdAt"`
	ParentID   string    `json:"parentId,omitempty"`
}

// ExplorePost is an image post in the explore feed.
type ExplorePost struct {
	ID           string    `json:"id"`
	AuthorID     string    `json:"authorId"`
	AuthorName   string    `json:"authorName"`
	AuthorAvatar string    `json:"authorAvatar,omitempty"`
	Image        string    `json:"image"`
	Caption      string    `json:"caption"`
	Likes        []string  `json:"likes"`
	Comments     []Comment `json:"comments"`
	CreatedAt    Timestamp `json:"createdAt"`
	Origin       Origin    `json:"origin"`
}

// LikedBy reports whether userID is in the like set.
func (p ExplorePost) LikedBy(userID string) bool {
	return ContainsID(p.Likes, userID)
}

// Clone returns a deep copy so callers cannot mutate store state.
func (p ExplorePost) Clone() ExplorePost {
	p.Likes = append([]string{}, p.Likes...)
	p.Comments = append([]Comment{}, p.Comments...)
	return p
}
