package sqldb

import (
	"context"
	"database/sql"

	"github.com/aussiebroadwan/userdir/internal/userdir/domain"
	"github.com/aussiebroadwan/userdir/internal/userdir/store"
)

type accountsRepo struct {
	db *sql.DB
	d  dialect
}

const accountColumns = `id, email, password_hash, is_staff, is_active, created_at`

func (r *accountsRepo) Create(ctx context.Context, a domain.Account) (int64, error) {
	const insert = `INSERT INTO accounts (email, password_hash, is_staff, is_active, created_at)
		VALUES (?, ?, ?, ?, ?)`

	if r.d.InsertReturnsID() {
		q := r.d.Rebind(insert + ` RETURNING id`)
		var id int64
		err := r.db.QueryRowContext(ctx, q, a.Email, a.PasswordHash, a.IsStaff, a.IsActive, a.CreatedAt).Scan(&id)
		if err != nil {
			return 0, mapDuplicate(r.d, err)
		}
		return id, nil
	}

	res, err := r.db.ExecContext(ctx, r.d.Rebind(insert),
		a.Email, a.PasswordHash, a.IsStaff, a.IsActive, a.CreatedAt)
	if err != nil {
		return 0, mapDuplicate(r.d, err)
	}
	return res.LastInsertId()
}

func (r *accountsRepo) Delete(ctx context.Context, email string) error {
	// Deleting an absent email is a no-op success, so the affected row
	// count is not inspected.
	_, err := r.db.ExecContext(ctx, r.d.Rebind(`DELETE FROM accounts WHERE email = ?`), email)
	return err
}

func (r *accountsRepo) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		r.d.Rebind(`SELECT `+accountColumns+` FROM accounts WHERE email = ?`), email)
	return scanAccount(row)
}

func (r *accountsRepo) GetByID(ctx context.Context, id int64) (domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		r.d.Rebind(`SELECT `+accountColumns+` FROM accounts WHERE id = ?`), id)
	return scanAccount(row)
}

func (r *accountsRepo) List(ctx context.Context, start, limit int) ([]domain.Account, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if start == -1 && limit == -1 {
		rows, err = r.db.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts`)
	} else {
		rows, err = r.db.QueryContext(ctx,
			r.d.Rebind(`SELECT `+accountColumns+` FROM accounts LIMIT ? OFFSET ?`), limit, start)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Account
	for rows.Next() {
		var a domain.Account
		if err := rows.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.IsStaff, &a.IsActive, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *accountsRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&n)
	return n, err
}

func (r *accountsRepo) UpdateCredentials(ctx context.Context, id int64, hash string, isStaff, isActive bool) error {
	res, err := r.db.ExecContext(ctx,
		r.d.Rebind(`UPDATE accounts SET password_hash = ?, is_staff = ?, is_active = ? WHERE id = ?`),
		hash, isStaff, isActive, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func scanAccount(row *sql.Row) (domain.Account, error) {
	var a domain.Account
	err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.IsStaff, &a.IsActive, &a.CreatedAt)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}
	return a, nil
}

func mapDuplicate(d dialect, err error) error {
	if d.IsDuplicate(err) {
		return store.ErrAlreadyExists
	}
	return err
}
