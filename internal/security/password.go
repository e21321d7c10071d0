package security

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordTooLong is returned by Hash for inputs bcrypt cannot represent.
var ErrPasswordTooLong = bcrypt.ErrPasswordTooLong

// DefaultCost is the bcrypt work factor for new and changed credentials.
const DefaultCost = 12

type Hasher struct {
	cost      int
	dummyHash []byte
}

// NewHasher hashes a random secret once so that lookups for unknown users
// still pay for a full bcrypt comparison at the same cost.
func NewHasher(cost int) (*Hasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range", cost)
	}

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate dummy secret: %w", err)
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte(hex.EncodeToString(secret)), cost)
	if err != nil {
		return nil, fmt.Errorf("generate dummy hash: %w", err)
	}

	return &Hasher{cost: cost, dummyHash: dummy}, nil
}

// Hash hashes a plain text password with bcrypt.
func (h *Hasher) Hash(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)

	if err != nil {
		return "", err
	}

	return string(hash), nil
}

func (h *Hasher) Verify(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// VerifyOrDummy compares against hash when present, otherwise against the
// dummy hash, and reports false in that case regardless of the outcome.
func (h *Hasher) VerifyOrDummy(plain string, hash *string) bool {
	if hash == nil {
		_ = bcrypt.CompareHashAndPassword(h.dummyHash, []byte(plain))
		return false
	}

	return h.Verify(plain, *hash)
}
