package social

import "context"

// Session wires every store for one client session.
type Session struct {
	Accounts *AccountStore
	Posts    *PostStore
	Stories  *StoryStore
	Follows  *FollowStore
	Saves    *SaveStore
}

// NewSession loads every store from opts.Storage. Remote sync does not start
// until Start is called.
func NewSession(ctx context.Context, opts Options) *Session {
	opts = opts.withDefaults()
	accounts := NewAccountStore(ctx, opts)
	return &Session{
		Accounts: accounts,
		Posts:    NewPostStore(ctx, opts),
		Stories:  NewStoryStore(ctx, opts),
		Follows:  NewFollowStore(ctx, accounts, opts),
		Saves:    NewSaveStore(ctx, accounts, opts),
	}
}

// Start launches the initial remote fetch of every synced store.
func (s *Session) Start() {
	s.Accounts.Start()
	s.Posts.Start()
	s.Stories.Start()
}

// Wait blocks until all background sync work started so far has finished.
func (s *Session) Wait() {
	s.Accounts.Wait()
	s.Posts.Wait()
	s.Stories.Wait()
}

// Close cancels background sync and waits for it to stop.
func (s *Session) Close() {
	s.Accounts.Close()
	s.Posts.Close()
	s.Stories.Close()
}
