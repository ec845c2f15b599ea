package sqldb

import (
	"context"
	"database/sql"
	"strings"
)

type bindingsRepo struct {
	db *sql.DB
	d  dialect
}

func (r *bindingsRepo) Bind(ctx context.Context, email, peerID string) error {
	_, err := r.db.ExecContext(ctx, r.d.Rebind(r.d.BindingUpsert()), email, peerID)
	return err
}

func (r *bindingsRepo) EmailByPeer(ctx context.Context, peerID string) (string, error) {
	var email string
	err := r.db.QueryRowContext(ctx,
		r.d.Rebind(`SELECT email FROM bindings WHERE peer_id = ?`), peerID).Scan(&email)
	if err != nil {
		return "", mapNotFound(err)
	}
	// CHAR(41) columns come back space-padded on some engines.
	return strings.TrimSpace(email), nil
}

func (r *bindingsRepo) PeersByEmail(ctx context.Context, email string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		r.d.Rebind(`SELECT peer_id FROM bindings WHERE email = ?`), email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var peers []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		peers = append(peers, strings.TrimSpace(p))
	}
	return peers, rows.Err()
}

func (r *bindingsRepo) Unbind(ctx context.Context, peerID string) error {
	_, err := r.db.ExecContext(ctx,
		r.d.Rebind(`DELETE FROM bindings WHERE peer_id = ?`), peerID)
	return err
}
