package service

import (
	"context"
	"testing"

	"github.com/aussiebroadwan/userdir/internal/userdir/directory"
	"github.com/aussiebroadwan/userdir/internal/userdir/domain"
	"github.com/aussiebroadwan/userdir/internal/userdir/store"
	"github.com/aussiebroadwan/userdir/internal/userdir/store/drivers/sqldb"
	"github.com/aussiebroadwan/userdir/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

// stubDirectory implements directory.Directory in memory and records how
// often each operation was invoked, so tests can prove the staff bypass
// never touches the directory.
type stubDirectory struct {
	users map[string]string // uid -> password

	unavailable bool

	verifyCalls int
	listCalls   int
	countCalls  int
}

func (d *stubDirectory) VerifyPassword(_ context.Context, uid, password string) (bool, error) {
	d.verifyCalls++
	if d.unavailable {
		return false, directory.ErrUnavailable
	}
	pw, ok := d.users[uid]
	return ok && pw == password, nil
}

func (d *stubDirectory) ListUsers(_ context.Context, uidPattern string) ([]domain.Account, error) {
	d.listCalls++
	if d.unavailable {
		return nil, directory.ErrUnavailable
	}

	var out []domain.Account
	for uid := range d.users {
		if uidPattern == directory.MatchAll || uid == uidPattern {
			out = append(out, domain.FromDirectory(uid))
		}
	}
	return out, nil
}

func (d *stubDirectory) CountUsers(ctx context.Context, uidPattern string) (int, error) {
	d.countCalls++
	if d.unavailable {
		return 0, directory.ErrUnavailable
	}
	users, err := d.ListUsers(ctx, uidPattern)
	d.listCalls-- // internal reuse, not a delegated list
	return len(users), err
}

func newLocalService(t *testing.T) *AccountService {
	t.Helper()

	st, err := sqldb.NewStore("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.EnsureSchema(context.Background()))

	return &AccountService{Store: st}
}

func newDelegatedService(t *testing.T, dir *stubDirectory) *AccountService {
	t.Helper()

	svc := newLocalService(t)
	svc.Directory = dir
	return svc
}

// seedLocal inserts a row directly through the store, bypassing the façade's
// directory-mode Add suppression.
func seedLocal(t *testing.T, svc *AccountService, email, password string, isStaff bool) int64 {
	t.Helper()

	hash, err := cryptox.HashPassword(password)
	require.NoError(t, err)

	id, err := svc.Store.Accounts().Create(context.Background(), domain.Account{
		Email:        email,
		PasswordHash: hash,
		IsStaff:      isStaff,
		IsActive:     true,
		CreatedAt:    1700000000,
	})
	require.NoError(t, err)
	return id
}

func TestAddThenValidate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc := newLocalService(t)

	id, err := svc.Add(ctx, "user@example.com", "correct horse", false, true)
	require.NoError(t, err)
	require.NotZero(t, id)

	require.NoError(t, svc.Validate(ctx, "user@example.com", "correct horse"))
	require.ErrorIs(t, svc.Validate(ctx, "user@example.com", "battery staple"), ErrInvalidCredentials)
	require.ErrorIs(t, svc.Validate(ctx, "other@example.com", "correct horse"), ErrInvalidCredentials)
}

func TestAddDuplicateConflicts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc := newLocalService(t)

	_, err := svc.Add(ctx, "dup@example.com", "pw", false, true)
	require.NoError(t, err)

	_, err = svc.Add(ctx, "dup@example.com", "pw2", false, true)
	require.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestRemoveThenGet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc := newLocalService(t)

	_, err := svc.Add(ctx, "bye@example.com", "pw", false, true)
	require.NoError(t, err)

	require.NoError(t, svc.Remove(ctx, "bye@example.com"))

	_, err = svc.Get(ctx, "bye@example.com")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestGetScrubsPasswordHash(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc := newLocalService(t)
	id, err := svc.Add(ctx, "safe@example.com", "pw", false, true)
	require.NoError(t, err)

	acct, err := svc.Get(ctx, "safe@example.com")
	require.NoError(t, err)
	require.Empty(t, acct.PasswordHash)

	acct, err = svc.GetByID(ctx, id)
	require.NoError(t, err)
	require.Empty(t, acct.PasswordHash)
}

func TestUpdatePreservesEmailAndCreatedAt(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc := newLocalService(t)
	id, err := svc.Add(ctx, "mut@example.com", "original", false, true)
	require.NoError(t, err)

	before, err := svc.Store.Accounts().GetByID(ctx, id)
	require.NoError(t, err)

	require.NoError(t, svc.Update(ctx, id, "rotated", true, false))

	after, err := svc.Store.Accounts().GetByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, before.Email, after.Email)
	require.Equal(t, before.CreatedAt, after.CreatedAt)
	require.NotEqual(t, before.PasswordHash, after.PasswordHash)
	require.True(t, after.IsStaff)
	require.False(t, after.IsActive)

	require.NoError(t, svc.Validate(ctx, "mut@example.com", "rotated"))
	require.ErrorIs(t, svc.Validate(ctx, "mut@example.com", "original"), ErrInvalidCredentials)
}

func TestListSentinelAndPages(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc := newLocalService(t)
	for _, e := range []string{"l1@x", "l2@x", "l3@x"} {
		_, err := svc.Add(ctx, e, "pw", false, true)
		require.NoError(t, err)
	}

	all, err := svc.List(ctx, -1, -1)
	require.NoError(t, err)
	n, err := svc.Count(ctx)
	require.NoError(t, err)
	require.EqualValues(t, n, len(all))

	page, err := svc.List(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
}

func TestDelegatedStaffBypassesDirectory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	dir := &stubDirectory{users: map[string]string{"user@x": "userpw"}}
	svc := newDelegatedService(t, dir)
	seedLocal(t, svc, "admin@x", "adminpw", true)

	require.NoError(t, svc.Validate(ctx, "admin@x", "adminpw"))
	require.Zero(t, dir.verifyCalls, "staff validation must not touch the directory")

	acct, err := svc.Get(ctx, "admin@x")
	require.NoError(t, err)
	require.True(t, acct.IsStaff)
	require.Zero(t, dir.listCalls, "staff lookup must not touch the directory")
}

func TestDelegatedStaffWrongPasswordFallsThrough(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	dir := &stubDirectory{users: map[string]string{"admin@x": "dirpw"}}
	svc := newDelegatedService(t, dir)
	seedLocal(t, svc, "admin@x", "adminpw", true)

	// No local match for this password, so the directory is consulted
	// and may still accept the credential.
	require.NoError(t, svc.Validate(ctx, "admin@x", "dirpw"))
	require.Equal(t, 1, dir.verifyCalls)
}

func TestDelegatedNonStaffValidatesAgainstDirectory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	dir := &stubDirectory{users: map[string]string{"user@x": "userpw"}}
	svc := newDelegatedService(t, dir)

	// A non-staff local row is not authoritative even on a password match.
	seedLocal(t, svc, "user@x", "userpw", false)

	require.NoError(t, svc.Validate(ctx, "user@x", "userpw"))
	require.Equal(t, 1, dir.verifyCalls)

	require.ErrorIs(t, svc.Validate(ctx, "user@x", "wrong"), ErrInvalidCredentials)
}

func TestDelegatedGetFromDirectory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	dir := &stubDirectory{users: map[string]string{"user@x": "userpw"}}
	svc := newDelegatedService(t, dir)

	acct, err := svc.Get(ctx, "user@x")
	require.NoError(t, err)
	require.Equal(t, "user@x", acct.Email)
	require.Zero(t, acct.ID)
	require.False(t, acct.IsStaff)
	require.True(t, acct.IsActive)
	require.Zero(t, acct.CreatedAt)

	_, err = svc.Get(ctx, "missing@x")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestDelegatedGetByIDAlwaysNotFound(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	dir := &stubDirectory{users: map[string]string{}}
	svc := newDelegatedService(t, dir)
	id := seedLocal(t, svc, "admin@x", "adminpw", true)

	_, err := svc.GetByID(ctx, id)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestDelegatedAddRemoveAreNoOps(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	dir := &stubDirectory{users: map[string]string{}}
	svc := newDelegatedService(t, dir)

	id, err := svc.Add(ctx, "new@x", "pw", false, true)
	require.NoError(t, err)
	require.Zero(t, id)

	// Nothing was written locally.
	n, err := svc.Store.Accounts().Count(ctx)
	require.NoError(t, err)
	require.Zero(t, n)

	require.NoError(t, svc.Remove(ctx, "whatever@x"))
}

func TestDelegatedListAndCount(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	dir := &stubDirectory{users: map[string]string{"a@x": "1", "b@x": "2", "c@x": "3"}}
	svc := newDelegatedService(t, dir)
	seedLocal(t, svc, "admin@x", "adminpw", true)

	// Pagination arguments are ignored; the directory answers with the
	// full population.
	all, err := svc.List(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, 1, dir.listCalls)

	n, err := svc.Count(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 3, n)
	require.Equal(t, 1, dir.countCalls)
}

func TestDelegatedUpdateOnlyWritesStaff(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	dir := &stubDirectory{users: map[string]string{}}
	svc := newDelegatedService(t, dir)
	id := seedLocal(t, svc, "admin@x", "adminpw", true)

	before, err := svc.Store.Accounts().GetByID(ctx, id)
	require.NoError(t, err)

	// Non-staff update under delegation is suppressed.
	require.NoError(t, svc.Update(ctx, id, "newpw", false, true))
	unchanged, err := svc.Store.Accounts().GetByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, before.PasswordHash, unchanged.PasswordHash)

	// Staff update goes through.
	require.NoError(t, svc.Update(ctx, id, "newpw", true, true))
	changed, err := svc.Store.Accounts().GetByID(ctx, id)
	require.NoError(t, err)
	require.NotEqual(t, before.PasswordHash, changed.PasswordHash)
}

func TestDirectoryOutagePresentsAsInvalidCredentials(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	dir := &stubDirectory{users: map[string]string{"user@x": "pw"}, unavailable: true}
	svc := newDelegatedService(t, dir)

	// Callers cannot distinguish an outage from a bad password.
	require.ErrorIs(t, svc.Validate(ctx, "user@x", "pw"), ErrInvalidCredentials)

	// Lookup failures do surface the unavailability to internal callers.
	_, err := svc.Get(ctx, "user@x")
	require.ErrorIs(t, err, directory.ErrUnavailable)
}

func TestValidateLegacyDigest(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc := newLocalService(t)

	// Simulate a row imported from the legacy scheme.
	_, err := svc.Store.Accounts().Create(ctx, domain.Account{
		Email:        "legacy@example.com",
		PasswordHash: cryptox.LegacyHashPassword("oldpw"),
		IsActive:     true,
		CreatedAt:    1500000000,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Validate(ctx, "legacy@example.com", "oldpw"))
	require.ErrorIs(t, svc.Validate(ctx, "legacy@example.com", "newpw"), ErrInvalidCredentials)
}
