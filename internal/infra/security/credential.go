package security

import (
	"crypto/subtle"
	"strings"

	"github.com/IDSS123a/kvs-scuba-maldivi-sub001/internal/core/domain"
)

// Credential is the closed set of credential variants an account may hold.
// Verification matches exhaustively on the variant so that an unknown or
// migrated-badly format surfaces as a detectable error instead of a silent
// "PIN doesn't work".
type Credential interface {
	// Match reports whether the candidate PIN matches this credential.
	Match(pin string) (bool, error)
}

// DerivedCredential wraps a self-describing derived-key hash (Argon2id
// structured or legacy salt:hash format).
type DerivedCredential struct {
	Encoded string
}

// Match recomputes the derivation using the parameters embedded in the hash.
func (c DerivedCredential) Match(pin string) (bool, error) {
	return VerifyPin(pin, c.Encoded)
}

// PlaintextCredential wraps the legacy pin_code column. New issuance never
// writes this form; it is recognized only for accounts that predate hashing.
type PlaintextCredential struct {
	Pin string
}

// Match performs a constant-time equality check against the stored PIN.
func (c PlaintextCredential) Match(pin string) (bool, error) {
	if c.Pin == "" || pin == "" {
		return false, nil
	}
	return subtle.ConstantTimeCompare([]byte(c.Pin), []byte(pin)) == 1, nil
}

// CredentialFor resolves the credential variant for an account, preferring the
// derived hash over the legacy plaintext column. Returns ErrUnsupportedCredential
// when the stored hash belongs to a foreign family, and (nil, nil) when the
// account holds no credential at all.
func CredentialFor(account domain.Account) (Credential, error) {
	if account.PinHash != nil && strings.TrimSpace(*account.PinHash) != "" {
		encoded := strings.TrimSpace(*account.PinHash)
		if isForeignFamily(encoded) {
			return nil, ErrUnsupportedCredential
		}
		return DerivedCredential{Encoded: encoded}, nil
	}

	if account.PinCode != nil && strings.TrimSpace(*account.PinCode) != "" {
		return PlaintextCredential{Pin: strings.TrimSpace(*account.PinCode)}, nil
	}

	return nil, nil
}
