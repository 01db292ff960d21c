package social

import (
	"context"
	"sync"

	"revayat/internal/models"
	"revayat/internal/observability"
	"revayat/internal/storage"
)

// SaveStore keeps each account's saved content IDs. IDs may outlive the
// content they point to; use SavedExisting to filter them.
type SaveStore struct {
	mu     sync.RWMutex
	saved  models.IDSetMap
	prompt bool

	identity Identity
	kv       storage.KeyValue
	log      *observability.StoreLogger
}

// NewSaveStore loads saved content from local storage.
func NewSaveStore(ctx context.Context, identity Identity, opts Options) *SaveStore {
	opts = opts.withDefaults()
	s := &SaveStore{
		saved:    models.IDSetMap{},
		identity: identity,
		kv:       opts.Storage,
		log:      observability.NewStoreLogger("saves", opts.Logger),
	}
	var stored models.IDSetMap
	if loadOrDefault(ctx, s.kv, s.log, storage.KeySavedContent, &stored) && stored != nil {
		s.saved = stored
	}
	return s
}

func (s *SaveStore) viewer() string {
	if s.identity == nil {
		return ""
	}
	acc, ok := s.identity.CurrentUser()
	if !ok {
		return ""
	}
	return acc.ID
}

// ToggleSave flips whether contentID is saved for the signed-in account.
// Without a session it raises the sign-in prompt and fails.
func (s *SaveStore) ToggleSave(ctx context.Context, contentID string) (bool, error) {
	viewer := s.viewer()

	s.mu.Lock()
	defer s.mu.Unlock()

	if viewer == "" {
		s.prompt = true
		err := models.NewUnauthenticatedError(msgSaveUnauth)
		s.log.LogRejected(ctx, "toggle", err)
		return false, err
	}
	next, saved := models.ToggleID(s.saved[viewer], contentID)
	s.saved[viewer] = next
	persist(ctx, s.kv, s.log, storage.KeySavedContent, s.saved)
	s.log.LogMutation(observability.WithSessionUser(ctx, viewer), "toggle", map[string]interface{}{
		"content_id": contentID,
		"saved":      saved,
	})
	return saved, nil
}

// IsSaved reports whether contentID is saved by the signed-in account.
func (s *SaveStore) IsSaved(contentID string) bool {
	viewer := s.viewer()
	if viewer == "" {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.ContainsID(s.saved[viewer], contentID)
}

// SavedIDs returns the signed-in account's saved IDs in save order.
func (s *SaveStore) SavedIDs() []string {
	viewer := s.viewer()
	if viewer == "" {
		return []string{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.saved[viewer]...)
}

// SavedExisting returns the saved IDs for which exists reports true.
func (s *SaveStore) SavedExisting(exists func(id string) bool) []string {
	ids := s.SavedIDs()
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if exists(id) {
			out = append(out, id)
		}
	}
	return out
}

// SignInPromptOpen reports whether the UI should show the sign-in prompt.
func (s *SaveStore) SignInPromptOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prompt
}

// OpenSignInPrompt raises the sign-in prompt.
func (s *SaveStore) OpenSignInPrompt() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompt = true
}

// CloseSignInPrompt dismisses the sign-in prompt.
func (s *SaveStore) CloseSignInPrompt() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompt = false
}
