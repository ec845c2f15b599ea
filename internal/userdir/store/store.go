package store

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/userdir/internal/userdir/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqldb over
// sqlite/mysql/postgres) implement this. Sub-repositories are exposed as
// methods to keep concerns tidy and testable.
type Store interface {
	Accounts() Accounts
	Bindings() Bindings

	// EnsureSchema creates the accounts and bindings tables if absent.
	// It is safe to call on every startup; a failure is fatal to the
	// service and must abort initialization.
	EnsureSchema(ctx context.Context) error

	// Close releases the underlying database handle.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

type Accounts interface {
	// Create inserts a new account and returns its assigned id.
	// Returns ErrAlreadyExists if the email is already taken; uniqueness
	// is enforced by the database constraint, not by a pre-check.
	Create(ctx context.Context, a domain.Account) (int64, error)

	// Delete removes the account with the given email. Deleting an email
	// that does not exist is a no-op success.
	Delete(ctx context.Context, email string) error

	// GetByEmail returns the single account with the given email.
	GetByEmail(ctx context.Context, email string) (domain.Account, error)

	// GetByID returns the account with the given surrogate key.
	GetByID(ctx context.Context, id int64) (domain.Account, error)

	// List returns accounts in storage order using offset pagination.
	// The sentinel pair (-1, -1) returns every row.
	List(ctx context.Context, start, limit int) ([]domain.Account, error)

	// Count returns the total number of accounts.
	Count(ctx context.Context) (int64, error)

	// UpdateCredentials overwrites password_hash, is_staff and is_active
	// for the row with the given id. Email and created_at are never
	// modified after creation.
	UpdateCredentials(ctx context.Context, id int64, hash string, isStaff, isActive bool) error
}

type Bindings interface {
	// Bind associates a peer with an email. A peer already bound to a
	// different email is re-bound (the old row is replaced).
	Bind(ctx context.Context, email, peerID string) error

	// EmailByPeer returns the email a peer is bound to.
	EmailByPeer(ctx context.Context, peerID string) (string, error)

	// PeersByEmail returns every peer bound to an email.
	PeersByEmail(ctx context.Context, email string) ([]string, error)

	// Unbind removes a peer's binding. Unbinding an unknown peer is a
	// no-op success.
	Unbind(ctx context.Context, peerID string) error
}
