// Package directory delegates account lookups and password checks to an
// external LDAP directory. It is only consulted when a directory host is
// configured; the account service decides per operation whether the local
// store or the directory is authoritative.
package directory

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/userdir/internal/userdir/domain"
)

// MatchAll is the uid pattern meaning "every entry".
const MatchAll = "*"

// DefaultLoginAttr is the directory attribute used as the login key when the
// config does not name one.
const DefaultLoginAttr = "mail"

// ErrUnavailable reports that the directory could not be reached or refused
// the service bind. It is distinct from "no matching entry" so callers can
// tell an outage from an unknown user.
var ErrUnavailable = errors.New("directory: unavailable")

// Config holds the process-wide directory settings, read once at startup and
// immutable afterwards. A non-empty Host is the single switch that activates
// directory delegation.
type Config struct {
	Host      string // LDAP URL (ldap://host:port or ldaps://...); empty disables delegation
	Base      string // search base DN
	UserDN    string // service bind DN; empty means anonymous bind
	Password  string // service bind secret
	LoginAttr string // attribute matched against account emails; defaults to "mail"
	Timeout   time.Duration
}

// Enabled reports whether directory delegation is active.
func (c Config) Enabled() bool { return c.Host != "" }

// Attr returns the configured login attribute or the default.
func (c Config) Attr() string {
	if c.LoginAttr == "" {
		return DefaultLoginAttr
	}
	return c.LoginAttr
}

// Directory is the minimal bind/search surface the account service needs.
// Implementations open a fresh connection per call; there is no shared
// directory handle to race on.
type Directory interface {
	// VerifyPassword checks uid's password by searching for the entry and
	// re-binding with its DN. A missing entry or rejected bind returns
	// (false, nil); a transport or service-bind failure returns an error
	// wrapping ErrUnavailable.
	VerifyPassword(ctx context.Context, uid, password string) (bool, error)

	// ListUsers returns one account per entry whose login attribute
	// matches uidPattern (a literal value, or MatchAll). Entry order is
	// whatever the server returns.
	ListUsers(ctx context.Context, uidPattern string) ([]domain.Account, error)

	// CountUsers returns the number of entries matching uidPattern.
	CountUsers(ctx context.Context, uidPattern string) (int, error)
}
