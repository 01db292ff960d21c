package social

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"revayat/internal/models"
	"revayat/internal/observability"
	"revayat/internal/remote"
	"revayat/internal/storage"
)

// The primary admin account. It is always present and can be neither deleted
// nor demoted.
const (
	PrimaryAdminID    = "revayat-admin"
	PrimaryAdminPhone = "09055430140"
)

// PrimaryAdmin returns a fresh copy of the primary admin account.
func PrimaryAdmin() models.Account {
	return models.Account{
		ID:        PrimaryAdminID,
		Username:  "ادمین روایت",
		FullName:  "حساب مدیر روایت",
		Phone:     PrimaryAdminPhone,
		Password:  "Yousefking",
		Gender:    models.GenderMale,
		Role:      models.RoleAdmin,
		CreatedAt: models.NewTimestamp(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
	}
}

// IsPrimaryAdmin reports whether acc is the protected admin account.
func IsPrimaryAdmin(acc models.Account) bool {
	return models.NormalizePhone(acc.Phone) == PrimaryAdminPhone
}

// ensureAdmin keeps exactly one account with the primary admin phone. The
// first such account is forced to the admin role and later ones are dropped;
// the built-in admin is appended when none exists.
func ensureAdmin(accounts []models.Account) []models.Account {
	out := make([]models.Account, 0, len(accounts)+1)
	found := false
	for _, acc := range accounts {
		if IsPrimaryAdmin(acc) {
			if found {
				continue
			}
			found = true
			acc.Role = models.RoleAdmin
		}
		out = append(out, acc)
	}
	if !found {
		out = append(out, PrimaryAdmin())
	}
	return out
}

// normalizeRoles maps every role other than admin to user.
func normalizeRoles(accounts []models.Account) []models.Account {
	out := make([]models.Account, len(accounts))
	for i, acc := range accounts {
		if acc.Role != models.RoleAdmin {
			acc.Role = models.RoleUser
		}
		out[i] = acc
	}
	return out
}

// RegisterInput is the payload of AccountStore.Register.
type RegisterInput struct {
	Username string
	FullName string
	Phone    string
	Password string
	Gender   models.Gender
}

// AccountStore owns the account collection and the active session.
type AccountStore struct {
	mu       sync.RWMutex
	accounts []models.Account
	activeID string

	kv    storage.KeyValue
	clock func() time.Time
	ids   func() string
	log   *observability.StoreLogger
	sync  *syncLoop[models.Account]
}

// NewAccountStore loads accounts and the active session from local storage.
func NewAccountStore(ctx context.Context, opts Options) *AccountStore {
	opts = opts.withDefaults()
	s := &AccountStore{
		kv:    opts.Storage,
		clock: opts.Clock,
		ids:   opts.IDs,
		log:   observability.NewStoreLogger("accounts", opts.Logger),
	}
	var rs remote.RemoteSync[models.Account]
	if opts.Remote != nil {
		rs = opts.Remote.Accounts
	}
	s.sync = newSyncLoop[models.Account]("accounts", rs, nil, opts.Logger)

	var stored []models.Account
	if !loadOrDefault(ctx, s.kv, s.log, storage.KeyAccounts, &stored) {
		stored = nil
	}
	s.accounts = ensureAdmin(normalizeRoles(stored))

	raw, err := s.kv.Get(ctx, storage.KeyActiveAccount)
	switch {
	case err == nil:
		s.activeID = strings.TrimSpace(string(raw))
	case !errors.Is(err, storage.ErrNotFound):
		s.log.LogLoadFallback(ctx, storage.KeyActiveAccount, err)
	}
	return s
}

// Start launches the initial remote fetch. A successful fetch replaces the
// local collection.
func (s *AccountStore) Start() {
	s.sync.start(s.applyRemote, s.Accounts, false)
}

func (s *AccountStore) applyRemote(ctx context.Context, items []models.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = ensureAdmin(normalizeRoles(items))
	persist(ctx, s.kv, s.log, storage.KeyAccounts, s.accounts)
}

// RemoteReady reports whether local changes are being pushed.
func (s *AccountStore) RemoteReady() bool {
	return s.sync.Ready()
}

// Wait blocks until pending background sync has finished.
func (s *AccountStore) Wait() { s.sync.Wait() }

// Close stops background sync. Results arriving afterwards are discarded.
func (s *AccountStore) Close() { s.sync.Close() }

// Accounts returns a copy of the collection.
func (s *AccountStore) Accounts() []models.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Account{}, s.accounts...)
}

// Account looks up an account by ID.
func (s *AccountStore) Account(id string) (models.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findLocked(id)
}

// CurrentUser returns the signed-in account.
func (s *AccountStore) CurrentUser() (models.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.activeID == "" {
		return models.Account{}, false
	}
	return s.findLocked(s.activeID)
}

func (s *AccountStore) findLocked(id string) (models.Account, bool) {
	for _, acc := range s.accounts {
		if acc.ID == id {
			return acc, true
		}
	}
	return models.Account{}, false
}

func (s *AccountStore) indexLocked(id string) int {
	for i, acc := range s.accounts {
		if acc.ID == id {
			return i
		}
	}
	return -1
}

// commitLocked re-derives the collection, persists it and schedules a push.
func (s *AccountStore) commitLocked(ctx context.Context) {
	s.accounts = ensureAdmin(s.accounts)
	persist(ctx, s.kv, s.log, storage.KeyAccounts, s.accounts)
	s.sync.push(append([]models.Account{}, s.accounts...))
}

func (s *AccountStore) setActiveLocked(ctx context.Context, id string) {
	s.activeID = id
	var err error
	if id == "" {
		err = s.kv.Delete(ctx, storage.KeyActiveAccount)
	} else {
		err = s.kv.Set(ctx, storage.KeyActiveAccount, []byte(id))
	}
	if err != nil {
		s.log.LogPersistError(ctx, storage.KeyActiveAccount, err)
	}
}

func (s *AccountStore) reject(ctx context.Context, op string, err *models.AppError) error {
	s.log.LogRejected(ctx, op, err)
	return err
}

// Register creates a user account and signs it in.
func (s *AccountStore) Register(ctx context.Context, in RegisterInput) (models.Account, error) {
	phone := models.NormalizePhone(in.Phone)
	if phone == "" {
		return models.Account{}, s.reject(ctx, "register", models.NewError(models.CodeMissingPhone, msgMissingPhone))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	username := models.NormalizeUsername(in.Username)
	for _, acc := range s.accounts {
		if models.NormalizePhone(acc.Phone) == phone {
			return models.Account{}, s.reject(ctx, "register", models.NewError(models.CodeDuplicatePhone, msgDuplicatePhone))
		}
	}
	for _, acc := range s.accounts {
		if models.NormalizeUsername(acc.Username) == username {
			return models.Account{}, s.reject(ctx, "register", models.NewError(models.CodeDuplicateUsername, msgDuplicateUsername))
		}
	}

	gender := in.Gender
	if gender != models.GenderMale {
		gender = models.GenderFemale
	}
	acc := models.Account{
		ID:        s.ids(),
		Username:  strings.TrimSpace(in.Username),
		FullName:  strings.TrimSpace(in.FullName),
		Phone:     phone,
		Password:  in.Password,
		Gender:    gender,
		Role:      models.RoleUser,
		CreatedAt: models.NewTimestamp(s.clock()),
	}
	s.accounts = append(s.accounts, acc)
	s.commitLocked(ctx)
	s.setActiveLocked(ctx, acc.ID)
	s.log.LogMutation(ctx, "register", map[string]interface{}{"account_id": acc.ID})
	return acc, nil
}

// Login signs in the account matching phone and password.
func (s *AccountStore) Login(ctx context.Context, phone, password string) (models.Account, error) {
	phone = models.NormalizePhone(phone)

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, acc := range s.accounts {
		if models.NormalizePhone(acc.Phone) != phone {
			continue
		}
		if acc.Password != password {
			break
		}
		s.setActiveLocked(ctx, acc.ID)
		s.log.LogMutation(observability.WithSessionUser(ctx, acc.ID), "login", nil)
		return acc, nil
	}
	return models.Account{}, s.reject(ctx, "login", models.NewError(models.CodeInvalidCredentials, msgInvalidCredentials))
}

// Logout clears the active session.
func (s *AccountStore) Logout(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setActiveLocked(ctx, "")
	s.log.LogMutation(ctx, "logout", nil)
}

// DeleteAccount removes an account. The primary admin is protected.
func (s *AccountStore) DeleteAccount(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return s.reject(ctx, "delete", models.NewNotFoundError(resourceAccount))
	}
	if IsPrimaryAdmin(s.accounts[i]) {
		return s.reject(ctx, "delete", models.NewError(models.CodeProtectedAdmin, msgProtectedDelete))
	}

	next := make([]models.Account, 0, len(s.accounts)-1)
	next = append(next, s.accounts[:i]...)
	s.accounts = append(next, s.accounts[i+1:]...)
	s.commitLocked(ctx)
	if s.activeID == id {
		s.setActiveLocked(ctx, "")
	}
	s.log.LogMutation(ctx, "delete", map[string]interface{}{"account_id": id})
	return nil
}

// PromoteToAdmin grants the admin role.
func (s *AccountStore) PromoteToAdmin(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return s.reject(ctx, "promote", models.NewNotFoundError(resourceAccount))
	}
	if s.accounts[i].IsAdmin() {
		return s.reject(ctx, "promote", models.NewError(models.CodeAlreadyAdmin, msgAlreadyAdmin))
	}
	s.accounts[i].Role = models.RoleAdmin
	s.commitLocked(ctx)
	s.log.LogMutation(ctx, "promote", map[string]interface{}{"account_id": id})
	return nil
}

// DemoteFromAdmin revokes the admin role. The primary admin is protected.
func (s *AccountStore) DemoteFromAdmin(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return s.reject(ctx, "demote", models.NewNotFoundError(resourceAccount))
	}
	if IsPrimaryAdmin(s.accounts[i]) {
		return s.reject(ctx, "demote", models.NewError(models.CodeProtectedAdmin, msgProtectedDemote))
	}
	if !s.accounts[i].IsAdmin() {
		return s.reject(ctx, "demote", models.NewError(models.CodeNotAdmin, msgNotAdmin))
	}
	s.accounts[i].Role = models.RoleUser
	s.commitLocked(ctx)
	s.log.LogMutation(ctx, "demote", map[string]interface{}{"account_id": id})
	return nil
}
