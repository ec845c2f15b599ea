package cryptox

import (
	"crypto/rand"
	"crypto/sha1" // #nosec G505 - legacy digest verification only, never used for new hashes
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// Configuration for Argon2id hashing.
const (
	memory      = 19 * 1024 // Memory usage in KiB (19 MiB)
	iterations  = 2         // Iteration count
	parallelism = 1         // Number of threads
	keyLength   = 32        // Length of the generated hash
	saltLength  = 16        // Length of the salt
)

// legacyDigestLength is the hex length of the old unsalted SHA-1 scheme.
// Rows imported from pre-migration installs still carry it.
const legacyDigestLength = 40

// ErrMismatch reports a credential that does not verify against its stored
// hash. Callers must not distinguish it from a missing account.
var ErrMismatch = errors.New("cryptox: password does not match")

// HashPassword generates a PHC-format Argon2id hash string including salt and
// parameters. The result is self-contained: any node sharing the database can
// verify it, no process-local secret is involved.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	hash := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, keyLength)

	b64Salt := base64.RawStdEncoding.EncodeToString(salt)
	b64Hash := base64.RawStdEncoding.EncodeToString(hash)

	// Return PHC-style encoded string
	return fmt.Sprintf(
		"$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		memory,
		iterations,
		parallelism,
		b64Salt,
		b64Hash,
	), nil
}

// VerifyPassword compares a plaintext password against a stored hash. PHC
// Argon2id strings and legacy 40-hex SHA-1 digests are both accepted; an
// empty stored hash never verifies (directory-only accounts hold no local
// credential).
func VerifyPassword(password, encodedHash string) error {
	if encodedHash == "" {
		return ErrMismatch
	}
	if len(encodedHash) == legacyDigestLength && encodedHash[0] != '$' {
		return verifyLegacy(password, encodedHash)
	}
	return verifyArgon2(password, encodedHash)
}

// LegacyHashPassword computes the old unsalted single-pass SHA-1 hex digest.
// It exists for migration tooling and tests; new hashes always come from
// HashPassword.
func LegacyHashPassword(password string) string {
	sum := sha1.Sum([]byte(password)) // #nosec G401
	return hex.EncodeToString(sum[:])
}

func verifyLegacy(password, digest string) error {
	computed := LegacyHashPassword(password)
	if subtle.ConstantTimeCompare([]byte(computed), []byte(digest)) == 1 {
		return nil
	}
	return ErrMismatch
}

func verifyArgon2(password, encodedHash string) error {
	// Parse PHC format: $argon2id$v=19$m=X,t=Y,p=Z$salt$hash
	parts := make([]string, 0, 6)
	start := 0
	for i := range len(encodedHash) {
		if encodedHash[i] == '$' {
			parts = append(parts, encodedHash[start:i])
			start = i + 1
		}
	}
	parts = append(parts, encodedHash[start:]) // Add last part

	// Validate structure: ["", "argon2id", "v=19", "m=X,t=Y,p=Z", "salt", "hash"]
	if len(parts) != 6 {
		return errors.New("invalid hash format: expected 6 parts")
	}
	if parts[1] != "argon2id" {
		return errors.New("invalid hash format: not argon2id")
	}
	if parts[2] != "v=19" {
		return errors.New("invalid hash format: wrong version")
	}

	// Parse parameters from parts[3]
	var mem, iters uint32
	var par uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &iters, &par); err != nil {
		return fmt.Errorf("invalid hash format: failed to parse parameters: %w", err)
	}

	// Decode salt and hash
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return fmt.Errorf("invalid hash format: failed to decode salt: %w", err)
	}
	expectedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return fmt.Errorf("invalid hash format: failed to decode hash: %w", err)
	}

	computed := argon2.IDKey(
		[]byte(password),
		salt,
		iters,
		mem,
		par,
		uint32(len(expectedHash)), // #nosec G115 - If this overflows we have bigger problems
	)

	if subtle.ConstantTimeCompare(computed, expectedHash) == 1 {
		return nil
	}
	return ErrMismatch
}
