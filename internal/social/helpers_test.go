package social

import (
	"context"
	"testing"
	"time"

	"revayat/internal/models"
	"revayat/internal/observability"
	"revayat/internal/remote"
	"revayat/internal/storage"
	"revayat/internal/testutil"

	"github.com/stretchr/testify/require"
)

var testEpoch = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

type harness struct {
	kv       *storage.MemoryStore
	clock    *testutil.Clock
	accounts *testutil.CollectionStub[models.Account]
	explore  *testutil.CollectionStub[models.ExplorePost]
	stories  *testutil.CollectionStub[models.Story]
	images   *testutil.UploaderStub
}

func newHarness() *harness {
	return &harness{
		kv:       storage.NewMemoryStore(),
		clock:    testutil.NewClock(testEpoch),
		accounts: testutil.NewCollectionStub[models.Account](),
		explore:  testutil.NewCollectionStub[models.ExplorePost](),
		stories:  testutil.NewCollectionStub[models.Story](),
		images:   &testutil.UploaderStub{},
	}
}

func testSeed(now time.Time) []models.ExplorePost {
	return []models.ExplorePost{
		{ID: "seed-1", AuthorID: "revayat-seed", AuthorName: "روایت تصویری", Image: "/images/1.jpg", Caption: "قاب منتخب «یک»", Likes: []string{}, Comments: []models.Comment{}, CreatedAt: models.NewTimestamp(now), Origin: models.OriginSeed},
		{ID: "seed-2", AuthorID: "revayat-seed", AuthorName: "روایت تصویری", Image: "/images/2.jpg", Caption: "قاب منتخب «دو»", Likes: []string{}, Comments: []models.Comment{}, CreatedAt: models.NewTimestamp(now.Add(-24 * time.Hour)), Origin: models.OriginSeed},
	}
}

// options returns local-only options.
func (h *harness) options() Options {
	return Options{
		Storage:   h.kv,
		Clock:     h.clock.Now,
		IDs:       testutil.SequentialIDs("id"),
		Logger:    observability.Discard(),
		SeedPosts: testSeed,
	}
}

// remoteOptions returns options wired to the in-memory remote stubs.
func (h *harness) remoteOptions() Options {
	opts := h.options()
	opts.Remote = &remote.Gateway{
		Accounts: h.accounts,
		Explore:  h.explore,
		Stories:  h.stories,
		Images:   h.images,
	}
	return opts
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, models.ErrorCode(err), "unexpected error: %v", err)
}

func mustRegister(t *testing.T, s *AccountStore, username, phone string) models.Account {
	t.Helper()
	acc, err := s.Register(context.Background(), RegisterInput{
		Username: username,
		FullName: username + " test",
		Phone:    phone,
		Password: "secret",
		Gender:   models.GenderFemale,
	})
	require.NoError(t, err)
	return acc
}

func countPrimaryAdmins(accounts []models.Account) int {
	n := 0
	for _, acc := range accounts {
		if IsPrimaryAdmin(acc) {
			n++
		}
	}
	return n
}
