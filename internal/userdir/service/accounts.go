package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/userdir/internal/userdir/directory"
	"github.com/aussiebroadwan/userdir/internal/userdir/domain"
	"github.com/aussiebroadwan/userdir/internal/userdir/store"
	"github.com/aussiebroadwan/userdir/pkg/cryptox"
	"github.com/aussiebroadwan/userdir/pkg/slogx"
)

// ErrInvalidCredentials is the single caller-visible authentication failure.
// Unknown email, wrong password and unreachable directory all collapse into
// it; the distinguishing cause goes to the logs only, so callers cannot be
// used to enumerate accounts.
var ErrInvalidCredentials = errors.New("invalid_credentials")

// AccountService is the façade in front of the local account store and the
// optional external directory. The routing rule it enforces: a local staff
// account always short-circuits the directory; every other account is
// directory-authoritative whenever a directory is configured.
type AccountService struct {
	Store store.Store

	// Directory is nil when no directory host is configured; a non-nil
	// value activates delegation for every operation below.
	Directory directory.Directory
}

func (s *AccountService) delegated() bool { return s.Directory != nil }

// Add provisions a local account. Under directory delegation the directory
// is authoritative for account existence, so Add is a documented no-op that
// reports the zero id.
func (s *AccountService) Add(ctx context.Context, email, password string, isStaff, isActive bool) (int64, error) {
	if s.delegated() {
		return 0, nil
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return 0, err
	}

	return s.Store.Accounts().Create(ctx, domain.Account{
		Email:        email,
		PasswordHash: hash,
		IsStaff:      isStaff,
		IsActive:     isActive,
		CreatedAt:    time.Now().Unix(),
	})
}

// Remove deletes a local account. A no-op under directory delegation, and a
// no-op success for an unknown email.
func (s *AccountService) Remove(ctx context.Context, email string) error {
	if s.delegated() {
		return nil
	}
	return s.Store.Accounts().Delete(ctx, email)
}

// Validate authenticates email+password. Local staff accounts are verified
// against the local store and never reach the directory; everyone else is
// delegated when a directory is configured.
func (s *AccountService) Validate(ctx context.Context, email, password string) error {
	l := slogx.FromContext(ctx)

	acct, err := s.Store.Accounts().GetByEmail(ctx, email)
	switch {
	case err == nil:
		localOK := cryptox.VerifyPassword(password, acct.PasswordHash) == nil
		if localOK && (acct.IsStaff || !s.delegated()) {
			return nil
		}
		if !s.delegated() {
			l.Debug("local credential mismatch", "email", email)
			return ErrInvalidCredentials
		}
		// Non-staff local rows are not authoritative; fall through.
	case errors.Is(err, store.ErrNotFound):
		if !s.delegated() {
			l.Debug("unknown account", "email", email)
			return ErrInvalidCredentials
		}
	default:
		return err
	}

	ok, err := s.Directory.VerifyPassword(ctx, email, password)
	if err != nil {
		l.Warn("directory verification failed", "email", email, "err", err)
		return ErrInvalidCredentials
	}
	if !ok {
		l.Debug("directory rejected credentials", "email", email)
		return ErrInvalidCredentials
	}
	return nil
}

// Get fetches one account by email. Under delegation, local staff win;
// otherwise the first matching directory entry is returned and any further
// matches are discarded.
func (s *AccountService) Get(ctx context.Context, email string) (domain.Account, error) {
	acct, err := s.Store.Accounts().GetByEmail(ctx, email)
	if err == nil && (acct.IsStaff || !s.delegated()) {
		return scrub(acct), nil
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return domain.Account{}, err
	}
	if !s.delegated() {
		return domain.Account{}, store.ErrNotFound
	}

	users, err := s.Directory.ListUsers(ctx, email)
	if err != nil {
		return domain.Account{}, fmt.Errorf("lookup %q: %w", email, err)
	}
	if len(users) == 0 {
		return domain.Account{}, store.ErrNotFound
	}
	return users[0], nil
}

// GetByID fetches one account by surrogate key. Directory entries carry no
// stable local id, so the delegated form is unconditionally NotFound.
func (s *AccountService) GetByID(ctx context.Context, id int64) (domain.Account, error) {
	if s.delegated() {
		return domain.Account{}, store.ErrNotFound
	}
	acct, err := s.Store.Accounts().GetByID(ctx, id)
	if err != nil {
		return domain.Account{}, err
	}
	return scrub(acct), nil
}

// List pages through accounts, or every directory entry under delegation.
// The (-1, -1) sentinel means all rows.
func (s *AccountService) List(ctx context.Context, start, limit int) ([]domain.Account, error) {
	if s.delegated() {
		return s.Directory.ListUsers(ctx, directory.MatchAll)
	}

	accounts, err := s.Store.Accounts().List(ctx, start, limit)
	if err != nil {
		return nil, err
	}
	for i := range accounts {
		accounts[i] = scrub(accounts[i])
	}
	return accounts, nil
}

// Count returns the account population of whichever backend is authoritative.
func (s *AccountService) Count(ctx context.Context) (int64, error) {
	if s.delegated() {
		n, err := s.Directory.CountUsers(ctx, directory.MatchAll)
		return int64(n), err
	}
	return s.Store.Accounts().Count(ctx)
}

// Update re-hashes the password and overwrites the mutable flags for the row
// with the given id. Directory-sourced regular users are not locally mutable:
// under delegation only staff rows are written.
func (s *AccountService) Update(ctx context.Context, id int64, password string, isStaff, isActive bool) error {
	if s.delegated() && !isStaff {
		return nil
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return err
	}
	return s.Store.Accounts().UpdateCredentials(ctx, id, hash, isStaff, isActive)
}

// scrub strips the stored credential before an account leaves the service.
func scrub(a domain.Account) domain.Account {
	a.PasswordHash = ""
	return a
}
