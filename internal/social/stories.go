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

// AddStoryInput is the payload of StoryStore.AddStory.
type AddStoryInput struct {
	AuthorID     string
	AuthorName   string
	AuthorAvatar string
	Media        string
	Caption      string
}

// UpdateStoryInput is a partial story edit. Nil fields keep their value.
type UpdateStoryInput struct {
	UserID  string
	Media   *string
	Caption *string
}

// ReplyInput is a private reply to a story author.
type ReplyInput struct {
	UserID   string
	UserName string
	Message  string
}

// StoryStore owns the ephemeral stories. Stories older than
// models.StoryTTL are never returned, persisted or pushed.
type StoryStore struct {
	mu      sync.RWMutex
	stories []models.Story

	kv    storage.KeyValue
	clock func() time.Time
	ids   func() string
	log   *observability.StoreLogger
	sync  *syncLoop[models.Story]
}

// NewStoryStore loads persisted stories, dropping expired ones.
func NewStoryStore(ctx context.Context, opts Options) *StoryStore {
	opts = opts.withDefaults()
	s := &StoryStore{
		kv:    opts.Storage,
		clock: opts.Clock,
		ids:   opts.IDs,
		log:   observability.NewStoreLogger("stories", opts.Logger),
	}
	var rs remote.RemoteSync[models.Story]
	var images remote.ImageUploader
	if opts.Remote != nil {
		rs, images = opts.Remote.Stories, opts.Remote.Images
	}
	s.sync = newSyncLoop("stories", rs, images, opts.Logger)

	var stored []models.Story
	if !loadOrDefault(ctx, s.kv, s.log, storage.KeyStories, &stored) {
		stored = nil
	}
	s.stories = normalizeStories(stored)
	if live := pruneStories(s.stories, s.clock()); len(live) != len(s.stories) {
		s.stories = live
		persist(ctx, s.kv, s.log, storage.KeyStories, s.stories)
	}
	s.materializePendingLocked()
	return s
}

func normalizeStories(stories []models.Story) []models.Story {
	out := make([]models.Story, len(stories))
	for i, st := range stories {
		if st.Likes == nil {
			st.Likes = []string{}
		}
		if st.Replies == nil {
			st.Replies = []models.Reply{}
		}
		out[i] = st
	}
	return out
}

// pruneStories returns the stories still live at now.
func pruneStories(stories []models.Story, now time.Time) []models.Story {
	live := make([]models.Story, 0, len(stories))
	for _, st := range stories {
		if st.LiveAt(now) {
			live = append(live, st)
		}
	}
	return live
}

// Start launches the initial remote fetch. Pushes are enabled once the fetch
// settles, whether or not it succeeded.
func (s *StoryStore) Start() {
	s.sync.start(s.applyRemote, s.liveSnapshot, true)
}

func (s *StoryStore) applyRemote(ctx context.Context, items []models.Story) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock()
	for i := range items {
		if items[i].CreatedAt.IsZero() {
			items[i].CreatedAt = models.NewTimestamp(now)
		}
	}
	s.stories = pruneStories(normalizeStories(items), now)
	persist(ctx, s.kv, s.log, storage.KeyStories, s.stories)
	s.materializePendingLocked()
}

func (s *StoryStore) liveSnapshot() []models.Story {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneStories(pruneStories(s.stories, s.clock()))
}

func cloneStories(stories []models.Story) []models.Story {
	out := make([]models.Story, len(stories))
	for i, st := range stories {
		out[i] = st.Clone()
	}
	return out
}

func (s *StoryStore) materializePendingLocked() {
	for _, st := range s.stories {
		if remote.IsInlineImage(st.Media) {
			s.sync.materialize(st.ID, st.Media, s.applyHostedMedia)
		}
	}
}

func (s *StoryStore) applyHostedMedia(ctx context.Context, id, inline, hosted string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 || s.stories[i].Media != inline {
		return
	}
	s.stories[i].Media = hosted
	s.commitLocked(ctx)
	s.log.LogMutation(ctx, "materialize_media", map[string]interface{}{"story_id": id})
}

// commitLocked prunes, persists and pushes the live stories.
func (s *StoryStore) commitLocked(ctx context.Context) {
	s.stories = pruneStories(s.stories, s.clock())
	persist(ctx, s.kv, s.log, storage.KeyStories, s.stories)
	s.sync.push(cloneStories(s.stories))
	s.materializePendingLocked()
}

// RemoteReady reports whether local changes are being pushed.
func (s *StoryStore) RemoteReady() bool { return s.sync.Ready() }

// Wait blocks until pending background sync has finished.
func (s *StoryStore) Wait() { s.sync.Wait() }

// Close stops background sync.
func (s *StoryStore) Close() { s.sync.Close() }

// Prune drops expired stories and persists the result when anything was
// removed. It returns the number of stories removed.
func (s *StoryStore) Prune(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	live := pruneStories(s.stories, s.clock())
	removed := len(s.stories) - len(live)
	if removed == 0 {
		return 0
	}
	s.stories = live
	s.commitLocked(ctx)
	s.log.LogMutation(ctx, "prune", map[string]interface{}{"removed": removed})
	return removed
}

// Stories returns the live stories, newest first.
func (s *StoryStore) Stories() []models.Story {
	return s.liveSnapshot()
}

// Story looks up a live story.
func (s *StoryStore) Story(id string) (models.Story, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.liveIndexLocked(id)
	if i < 0 {
		return models.Story{}, false
	}
	return s.stories[i].Clone(), true
}

// StoriesByAuthor returns the live stories of authorID.
func (s *StoryStore) StoriesByAuthor(authorID string) []models.Story {
	var out []models.Story
	for _, st := range s.liveSnapshot() {
		if st.AuthorID == authorID {
			out = append(out, st)
		}
	}
	return out
}

// Replies returns the replies of a story. Only the author may read them.
func (s *StoryStore) Replies(storyID, viewerID string) ([]models.Reply, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.liveIndexLocked(storyID)
	if i < 0 {
		return nil, models.NewNotFoundError(resourceStory)
	}
	if viewerID == "" || s.stories[i].AuthorID != viewerID {
		return nil, models.NewForbiddenError(msgRepliesForbidden)
	}
	return append([]models.Reply{}, s.stories[i].Replies...), nil
}

func (s *StoryStore) indexLocked(id string) int {
	for i, st := range s.stories {
		if st.ID == id {
			return i
		}
	}
	return -1
}

// liveIndexLocked is indexLocked restricted to live stories.
func (s *StoryStore) liveIndexLocked(id string) int {
	i := s.indexLocked(id)
	if i < 0 || !s.stories[i].LiveAt(s.clock()) {
		return -1
	}
	return i
}

func (s *StoryStore) reject(ctx context.Context, op string, err *models.AppError) error {
	s.log.LogRejected(ctx, op, err)
	return err
}

// AddStory prepends a new story.
func (s *StoryStore) AddStory(ctx context.Context, in AddStoryInput) (models.Story, error) {
	if in.AuthorID == "" {
		return models.Story{}, s.reject(ctx, "add", models.NewUnauthenticatedError(msgCreateUnauth))
	}
	if strings.TrimSpace(in.Media) == "" {
		return models.Story{}, s.reject(ctx, "add", models.NewError(models.CodeMissingMedia, msgMissingMedia))
	}

	story := models.Story{
		ID:           s.ids(),
		AuthorID:     in.AuthorID,
		AuthorName:   in.AuthorName,
		AuthorAvatar: in.AuthorAvatar,
		Media:        in.Media,
		Caption:      strings.TrimSpace(in.Caption),
		CreatedAt:    models.NewTimestamp(s.clock()),
		Likes:        []string{},
		Replies:      []models.Reply{},
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stories = append([]models.Story{story}, s.stories...)
	s.commitLocked(ctx)
	s.log.LogMutation(ctx, "add", map[string]interface{}{"story_id": story.ID})
	return story.Clone(), nil
}

func (s *StoryStore) authorizeLocked(storyID, userID string) (int, *models.AppError) {
	i := s.liveIndexLocked(storyID)
	if i < 0 {
		return -1, models.NewNotFoundError(resourceStory)
	}
	if userID == "" || s.stories[i].AuthorID != userID {
		return -1, models.NewForbiddenError(msgStoryForbidden)
	}
	return i, nil
}

// UpdateStory applies a partial edit.
func (s *StoryStore) UpdateStory(ctx context.Context, storyID string, in UpdateStoryInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, appErr := s.authorizeLocked(storyID, in.UserID)
	if appErr != nil {
		return s.reject(ctx, "update", appErr)
	}
	if in.Media != nil && strings.TrimSpace(*in.Media) != "" {
		s.stories[i].Media = *in.Media
	}
	if in.Caption != nil {
		s.stories[i].Caption = strings.TrimSpace(*in.Caption)
	}
	s.commitLocked(ctx)
	s.log.LogMutation(ctx, "update", map[string]interface{}{"story_id": storyID})
	return nil
}

// DeleteStory removes a story.
func (s *StoryStore) DeleteStory(ctx context.Context, storyID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, appErr := s.authorizeLocked(storyID, userID)
	if appErr != nil {
		return s.reject(ctx, "delete", appErr)
	}
	next := make([]models.Story, 0, len(s.stories)-1)
	next = append(next, s.stories[:i]...)
	s.stories = append(next, s.stories[i+1:]...)
	s.commitLocked(ctx)
	s.log.LogMutation(ctx, "delete", map[string]interface{}{"story_id": storyID})
	return nil
}

// ToggleStoryLike flips the like of userID and returns the new state.
func (s *StoryStore) ToggleStoryLike(ctx context.Context, storyID, userID string) (bool, error) {
	if userID == "" {
		return false, s.reject(ctx, "like", models.NewUnauthenticatedError(msgLikeUnauth))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.liveIndexLocked(storyID)
	if i < 0 {
		return false, s.reject(ctx, "like", models.NewNotFoundError(resourceStory))
	}
	likes, liked := models.ToggleID(s.stories[i].Likes, userID)
	s.stories[i].Likes = likes
	s.commitLocked(ctx)
	s.log.LogMutation(ctx, "like", map[string]interface{}{"story_id": storyID, "liked": liked})
	return liked, nil
}

// SendStoryReply appends a private reply to a story.
func (s *StoryStore) SendStoryReply(ctx context.Context, storyID string, in ReplyInput) (models.Reply, error) {
	if in.UserID == "" {
		return models.Reply{}, s.reject(ctx, "reply", models.NewUnauthenticatedError(msgReplyUnauth))
	}
	message := strings.TrimSpace(in.Message)
	if message == "" {
		return models.Reply{}, s.reject(ctx, "reply", models.NewError(models.CodeEmptyMessage, msgEmptyReply))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.liveIndexLocked(storyID)
	if i < 0 {
		return models.Reply{}, s.reject(ctx, "reply", models.NewNotFoundError(resourceStory))
	}
	reply := models.Reply{
		ID:        s.ids(),
		FromID:    in.UserID,
		FromName:  in.UserName,
		Message:   message,
		CreatedAt: models.NewTimestamp(s.clock()),
	}
	replies := make([]models.Reply, 0, len(s.stories[i].Replies)+1)
	replies = append(replies, s.stories[i].Replies...)
	s.stories[i].Replies = append(replies, reply)
	s.commitLocked(ctx)
	s.log.LogMutation(ctx, "reply", map[string]interface{}{"story_id": storyID, "reply_id": reply.ID})
	return reply, nil
}
