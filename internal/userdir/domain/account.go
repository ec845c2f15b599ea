package domain

// Account is a user record. Accounts normally live in the local accounts
// table; when directory delegation is active, accounts sourced from the
// directory carry no local row and report the zero ID.
type Account struct {
	ID           int64
	Email        string
	PasswordHash string // argon2 encoded, or legacy 40-hex sha1, empty for directory accounts
	IsStaff      bool
	IsActive     bool
	CreatedAt    int64 // unix seconds, set once at creation
}

// IsLocal reports whether the account is backed by a local row.
// Directory-sourced accounts have no surrogate key.
func (a Account) IsLocal() bool { return a.ID != 0 }

// FromDirectory builds the account shape for a directory entry. Only the
// email is known; everything else takes the documented defaults.
func FromDirectory(email string) Account {
	return Account{
		Email:    email,
		IsActive: true,
	}
}
