package directory

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/aussiebroadwan/userdir/internal/userdir/domain"
	"github.com/go-ldap/ldap/v3"
)

const defaultTimeout = 10 * time.Second

// LDAPDirectory implements Directory against a real LDAP server using a
// fresh dial+bind per call. Directory traffic here is low-volume admin and
// login traffic, so connection pooling is not worth its complexity.
type LDAPDirectory struct {
	cfg Config
}

// NewLDAP builds a directory client from cfg. It does not dial; every
// operation establishes and tears down its own connection.
func NewLDAP(cfg Config) *LDAPDirectory {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &LDAPDirectory{cfg: cfg}
}

// connect dials the server, upgrades to TLS when the server allows it, and
// performs the service bind (anonymous when no UserDN is configured).
func (d *LDAPDirectory) connect(ctx context.Context) (*ldap.Conn, error) {
	dialer := &net.Dialer{Timeout: d.cfg.Timeout}
	conn, err := ldap.DialURL(d.cfg.Host, ldap.DialWithDialer(dialer))
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrUnavailable, d.cfg.Host, err)
	}
	conn.SetTimeout(d.cfg.Timeout)

	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < d.cfg.Timeout {
			conn.SetTimeout(remaining)
		}
	}

	// Opportunistic TLS; plaintext servers just refuse the upgrade.
	if err := conn.StartTLS(&tls.Config{InsecureSkipVerify: true}); err != nil { // #nosec G402
		slog.Debug("ldap starttls not available", "err", err)
	}

	if d.cfg.UserDN != "" {
		if err := conn.Bind(d.cfg.UserDN, d.cfg.Password); err != nil {
			conn.Close()
			return nil, fmt.Errorf("%w: service bind: %v", ErrUnavailable, err)
		}
	}

	return conn, nil
}

func (d *LDAPDirectory) search(conn *ldap.Conn, uidPattern string, attrs []string) (*ldap.SearchResult, error) {
	pattern := uidPattern
	if pattern != MatchAll {
		pattern = ldap.EscapeFilter(pattern)
	}

	req := ldap.NewSearchRequest(
		d.cfg.Base,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 0, 0, false,
		fmt.Sprintf("(%s=%s)", d.cfg.Attr(), pattern),
		attrs,
		nil,
	)

	res, err := conn.Search(req)
	if err != nil {
		return nil, fmt.Errorf("%w: search %q: %v", ErrUnavailable, req.Filter, err)
	}
	return res, nil
}

func (d *LDAPDirectory) VerifyPassword(ctx context.Context, uid, password string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	conn, err := d.connect(ctx)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	// First locate the entry's DN via the login attribute.
	res, err := d.search(conn, uid, []string{"dn"})
	if err != nil {
		return false, err
	}
	if len(res.Entries) == 0 {
		return false, nil
	}

	// Then prove the password by binding as that DN.
	if err := conn.Bind(res.Entries[0].DN, password); err != nil {
		if ldap.IsErrorWithCode(err, ldap.LDAPResultInvalidCredentials) {
			return false, nil
		}
		return false, fmt.Errorf("%w: user bind: %v", ErrUnavailable, err)
	}
	return true, nil
}

func (d *LDAPDirectory) ListUsers(ctx context.Context, uidPattern string) ([]domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	conn, err := d.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	res, err := d.search(conn, uidPattern, []string{d.cfg.Attr()})
	if err != nil {
		return nil, err
	}

	accounts := make([]domain.Account, 0, len(res.Entries))
	for _, entry := range res.Entries {
		// Only the queried login attribute populates the account; an
		// entry without it cannot be addressed as a user and is skipped.
		email := entry.GetAttributeValue(d.cfg.Attr())
		if email == "" {
			slog.Warn("ldap entry missing login attribute", "dn", entry.DN, "attr", d.cfg.Attr())
			continue
		}
		accounts = append(accounts, domain.FromDirectory(email))
	}
	return accounts, nil
}

func (d *LDAPDirectory) CountUsers(ctx context.Context, uidPattern string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	conn, err := d.connect(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	res, err := d.search(conn, uidPattern, []string{d.cfg.Attr()})
	if err != nil {
		return 0, err
	}
	return len(res.Entries), nil
}
