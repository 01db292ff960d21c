package social

import (
	"context"
	"sort"
	"sync"

	"revayat/internal/models"
	"revayat/internal/observability"
	"revayat/internal/storage"
)

// FollowStore is the directed follow graph: follower -> followed accounts.
type FollowStore struct {
	mu    sync.RWMutex
	graph models.IDSetMap

	identity Identity
	kv       storage.KeyValue
	log      *observability.StoreLogger
}

// NewFollowStore loads the follow graph from local storage.
func NewFollowStore(ctx context.Context, identity Identity, opts Options) *FollowStore {
	opts = opts.withDefaults()
	s := &FollowStore{
		graph:    models.IDSetMap{},
		identity: identity,
		kv:       opts.Storage,
		log:      observability.NewStoreLogger("follows", opts.Logger),
	}
	var stored models.IDSetMap
	if loadOrDefault(ctx, s.kv, s.log, storage.KeyFollowMap, &stored) && stored != nil {
		s.graph = stored
	}
	return s
}

func (s *FollowStore) viewer() string {
	if s.identity == nil {
		return ""
	}
	acc, ok := s.identity.CurrentUser()
	if !ok {
		return ""
	}
	return acc.ID
}

// ToggleFollow flips whether the signed-in account follows targetID and
// returns the new state.
func (s *FollowStore) ToggleFollow(ctx context.Context, targetID string) (bool, error) {
	viewer := s.viewer()
	if viewer == "" {
		err := models.NewUnauthenticatedError(msgFollowUnauth)
		s.log.LogRejected(ctx, "toggle", err)
		return false, err
	}
	if viewer == targetID {
		err := models.NewError(models.CodeSelfFollow, msgSelfFollow)
		s.log.LogRejected(ctx, "toggle", err)
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next, following := models.ToggleID(s.graph[viewer], targetID)
	s.graph[viewer] = next
	persist(ctx, s.kv, s.log, storage.KeyFollowMap, s.graph)
	s.log.LogMutation(observability.WithSessionUser(ctx, viewer), "toggle", map[string]interface{}{
		"target_id": targetID,
		"following": following,
	})
	return following, nil
}

// IsFollowing reports whether the signed-in account follows targetID.
func (s *FollowStore) IsFollowing(targetID string) bool {
	viewer := s.viewer()
	if viewer == "" {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.ContainsID(s.graph[viewer], targetID)
}

// FollowingIDs returns the accounts the signed-in account follows.
func (s *FollowStore) FollowingIDs() []string {
	viewer := s.viewer()
	if viewer == "" {
		return []string{}
	}
	return s.Following(viewer)
}

// Following returns the accounts userID follows, in follow order.
func (s *FollowStore) Following(userID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.graph[userID]...)
}

// Followers returns the accounts following userID, sorted. It scans the
// whole graph.
func (s *FollowStore) Followers(userID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	followers := []string{}
	for follower, followed := range s.graph {
		if models.ContainsID(followed, userID) {
			followers = append(followers, follower)
		}
	}
	sort.Strings(followers)
	return followers
}
