package social

import (
	"context"
	"strings"
	"sync"
	"time"

	"revayat/internal/models"
	"revayat/internal/observability"
	"revayat/internal/remote"
	"revayat/internal/storage"
)

// CreatePostInput is the payload of PostStore.CreatePost.
type CreatePostInput struct {
	AuthorID     string
	AuthorName   string
	AuthorAvatar string
	Image        string
	Caption      string
}

// UpdatePostInput edits a post. An empty Image keeps the current one.
type UpdatePostInput struct {
	PostID   string
	AuthorID string
	Caption  string
	Image    string
}

// DeletePostInput identifies a post and the account deleting it.
type DeletePostInput struct {
	PostID   string
	AuthorID string
}

// LikeInput identifies a post and the liking account.
type LikeInput struct {
	PostID string
	UserID string
}

// CommentInput is the payload of PostStore.AddComment. ParentID is empty for
// a top-level comment.
type CommentInput struct {
	PostID     string
	UserID     string
	AuthorName string
	Body       string
	ParentID   string
}

// PostStore owns the explore feed: user posts first (newest first) followed
// by the curated seed posts.
type PostStore struct {
	mu    sync.RWMutex
	posts []models.ExplorePost

	kv    storage.KeyValue
	clock func() time.Time
	ids   func() string
	seed  func(now time.Time) []models.ExplorePost
	log   *observability.StoreLogger
	sync  *syncLoop[models.ExplorePost]
}

// NewPostStore loads persisted user posts and merges the seed posts.
func NewPostStore(ctx context.Context, opts Options) *PostStore {
	opts = opts.withDefaults()
	s := &PostStore{
		kv:    opts.Storage,
		clock: opts.Clock,
		ids:   opts.IDs,
		seed:  opts.SeedPosts,
		log:   observability.NewStoreLogger("explore", opts.Logger),
	}
	var rs remote.RemoteSync[models.ExplorePost]
	var images remote.ImageUploader
	if opts.Remote != nil {
		rs, images = opts.Remote.Explore, opts.Remote.Images
	}
	s.sync = newSyncLoop("explore", rs, images, opts.Logger)

	var stored []models.ExplorePost
	if !loadOrDefault(ctx, s.kv, s.log, storage.KeyExplorePosts, &stored) {
		stored = nil
	}
	s.posts = s.mergeSeed(userPosts(stored))
	s.materializePendingLocked()
	return s
}

// userPosts drops seed posts and tags the rest as user posts.
func userPosts(posts []models.ExplorePost) []models.ExplorePost {
	out := make([]models.ExplorePost, 0, len(posts))
	for _, p := range posts {
		if p.Origin == models.OriginSeed {
			continue
		}
		p.Origin = models.OriginUser
		if p.Likes == nil {
			p.Likes = []string{}
		}
		if p.Comments == nil {
			p.Comments = []models.Comment{}
		}
		out = append(out, p)
	}
	return out
}

// mergeSeed appends every seed post whose ID is not taken by a user post.
func (s *PostStore) mergeSeed(user []models.ExplorePost) []models.ExplorePost {
	taken := make(map[string]bool, len(user))
	for _, p := range user {
		taken[p.ID] = true
	}
	merged := user
	for _, p := range s.seed(s.clock()) {
		if !taken[p.ID] {
			merged = append(merged, p)
		}
	}
	return merged
}

// Start launches the initial remote fetch. A successful fetch replaces the
// user posts.
func (s *PostStore) Start() {
	s.sync.start(s.applyRemote, s.userSnapshot, false)
}

func (s *PostStore) applyRemote(ctx context.Context, items []models.ExplorePost) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts = s.mergeSeed(userPosts(items))
	persist(ctx, s.kv, s.log, storage.KeyExplorePosts, s.userPostsLocked())
	s.materializePendingLocked()
}

func (s *PostStore) userSnapshot() []models.ExplorePost {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userPostsLocked()
}

func (s *PostStore) userPostsLocked() []models.ExplorePost {
	out := make([]models.ExplorePost, 0, len(s.posts))
	for _, p := range s.posts {
		if p.Origin == models.OriginUser {
			out = append(out, p.Clone())
		}
	}
	return out
}

func (s *PostStore) materializePendingLocked() {
	for _, p := range s.posts {
		if p.Origin == models.OriginUser && remote.IsInlineImage(p.Image) {
			s.sync.materialize(p.ID, p.Image, s.applyHostedImage)
		}
	}
}

// applyHostedImage swaps the inline image for its hosted URL unless the post
// was edited in the meantime.
func (s *PostStore) applyHostedImage(ctx context.Context, id, inline, hosted string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 || s.posts[i].Image != inline {
		return
	}
	s.posts[i].Image = hosted
	s.commitLocked(ctx)
	s.log.LogMutation(ctx, "materialize_image", map[string]interface{}{"post_id": id})
}

// commitLocked persists user posts, pushes them and uploads inline images.
func (s *PostStore) commitLocked(ctx context.Context) {
	user := s.userPostsLocked()
	persist(ctx, s.kv, s.log, storage.KeyExplorePosts, user)
	s.sync.push(user)
	s.materializePendingLocked()
}

// RemoteReady reports whether local changes are being pushed.
func (s *PostStore) RemoteReady() bool { return s.sync.Ready() }

// Wait blocks until pending background sync has finished.
func (s *PostStore) Wait() { s.sync.Wait() }

// Close stops background sync.
func (s *PostStore) Close() { s.sync.Close() }

// Posts returns the feed.
func (s *PostStore) Posts() []models.ExplorePost {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ExplorePost, len(s.posts))
	for i, p := range s.posts {
		out[i] = p.Clone()
	}
	return out
}

// Post looks up a post by ID.
func (s *PostStore) Post(id string) (models.ExplorePost, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexLocked(id)
	if i < 0 {
		return models.ExplorePost{}, false
	}
	return s.posts[i].Clone(), true
}

// PostsByAuthor returns the posts written by authorID.
func (s *PostStore) PostsByAuthor(authorID string) []models.ExplorePost {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ExplorePost
	for _, p := range s.posts {
		if p.AuthorID == authorID {
			out = append(out, p.Clone())
		}
	}
	return out
}

// Thread returns the comments of a post grouped by parent.
func (s *PostStore) Thread(postID string) (map[string][]models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexLocked(postID)
	if i < 0 {
		return nil, models.NewNotFoundError(resourcePost)
	}
	return GroupByParent(s.posts[i].Comments), nil
}

func (s *PostStore) indexLocked(id string) int {
	for i, p := range s.posts {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (s *PostStore) reject(ctx context.Context, op string, err *models.AppError) error {
	s.log.LogRejected(ctx, op, err)
	return err
}

// CreatePost prepends a new user post.
func (s *PostStore) CreatePost(ctx context.Context, in CreatePostInput) (models.ExplorePost, error) {
	caption := strings.TrimSpace(in.Caption)
	switch {
	case in.AuthorID == "":
		return models.ExplorePost{}, s.reject(ctx, "create", models.NewUnauthenticatedError(msgCreateUnauth))
	case strings.TrimSpace(in.Image) == "":
		return models.ExplorePost{}, s.reject(ctx, "create", models.NewError(models.CodeMissingImage, msgMissingImage))
	case caption == "":
		return models.ExplorePost{}, s.reject(ctx, "create", models.NewError(models.CodeMissingCaption, msgMissingCaption))
	}

	post := models.ExplorePost{
		ID:           s.ids(),
		AuthorID:     in.AuthorID,
		AuthorName:   in.AuthorName,
		AuthorAvatar: in.AuthorAvatar,
		Image:        in.Image,
		Caption:      caption,
		Likes:        []string{},
		Comments:     []models.Comment{},
		CreatedAt:    models.NewTimestamp(s.clock()),
		Origin:       models.OriginUser,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts = append([]models.ExplorePost{post}, s.posts...)
	s.commitLocked(ctx)
	s.log.LogMutation(ctx, "create", map[string]interface{}{"post_id": post.ID})
	return post.Clone(), nil
}

// authorizeLocked finds a post and checks that authorID wrote it.
func (s *PostStore) authorizeLocked(postID, authorID string) (int, *models.AppError) {
	i := s.indexLocked(postID)
	if i < 0 {
		return -1, models.NewNotFoundError(resourcePost)
	}
	if authorID == "" || s.posts[i].AuthorID != authorID {
		return -1, models.NewForbiddenError(msgPostForbidden)
	}
	return i, nil
}

// UpdatePost edits the caption and optionally the image of a post.
func (s *PostStore) UpdatePost(ctx context.Context, in UpdatePostInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, appErr := s.authorizeLocked(in.PostID, in.AuthorID)
	if appErr != nil {
		return s.reject(ctx, "update", appErr)
	}
	caption := strings.TrimSpace(in.Caption)
	if caption == "" {
		return s.reject(ctx, "update", models.NewError(models.CodeMissingCaption, msgMissingCaption))
	}

	s.posts[i].Caption = caption
	if strings.TrimSpace(in.Image) != "" {
		s.posts[i].Image = in.Image
	}
	s.commitLocked(ctx)
	s.log.LogMutation(ctx, "update", map[string]interface{}{"post_id": in.PostID})
	return nil
}

// DeletePost removes a post together with its comments.
func (s *PostStore) DeletePost(ctx context.Context, in DeletePostInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, appErr := s.authorizeLocked(in.PostID, in.AuthorID)
	if appErr != nil {
		return s.reject(ctx, "delete", appErr)
	}
	next := make([]models.ExplorePost, 0, len(s.posts)-1)
	next = append(next, s.posts[:i]...)
	s.posts = append(next, s.posts[i+1:]...)
	s.commitLocked(ctx)
	s.log.LogMutation(ctx, "delete", map[string]interface{}{"post_id": in.PostID})
	return nil
}

// ToggleLike flips the like of UserID on a post and returns the new state.
func (s *PostStore) ToggleLike(ctx context.Context, in LikeInput) (bool, error) {
	if in.UserID == "" {
		return false, s.reject(ctx, "like", models.NewUnauthenticatedError(msgLikeUnauth))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(in.PostID)
	if i < 0 {
		return false, s.reject(ctx, "like", models.NewNotFoundError(resourcePost))
	}
	likes, liked := models.ToggleID(s.posts[i].Likes, in.UserID)
	s.posts[i].Likes = likes
	s.commitLocked(ctx)
	s.log.LogMutation(ctx, "like", map[string]interface{}{"post_id": in.PostID, "liked": liked})
	return liked, nil
}

// AddComment appends a comment to a post.
func (s *PostStore) AddComment(ctx context.Context, in CommentInput) (models.Comment, error) {
	if in.UserID == "" {
		return models.Comment{}, s.reject(ctx, "comment", models.NewUnauthenticatedError(msgCommentUnauth))
	}
	body := strings.TrimSpace(in.Body)
	if body == "" {
		return models.Comment{}, s.reject(ctx, "comment", models.NewError(models.CodeEmptyBody, msgEmptyComment))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(in.PostID)
	if i < 0 {
		return models.Comment{}, s.reject(ctx, "comment", models.NewNotFoundError(resourcePost))
	}
	comment := models.Comment{
		ID:         s.ids(),
		UserID:     in.UserID,
		AuthorName: in.AuthorName,
		Body:       body,
		CreatedAt:  models.NewTimestamp(s.clock()),
		ParentID:   in.ParentID,
	}
	comments := make([]models.Comment, 0, len(s.posts[i].Comments)+1)
	comments = append(comments, s.posts[i].Comments...)
	s.posts[i].Comments = append(comments, comment)
	s.commitLocked(ctx)
	s.log.LogMutation(ctx, "comment", map[string]interface{}{"post_id": in.PostID, "comment_id": comment.ID})
	return comment, nil
}
