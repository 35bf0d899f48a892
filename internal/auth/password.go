package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/scrypt"
	"golang.org/x/sync/semaphore"

	"github.com/spec-kit/triage-service/internal/config"
)

// HashParams are the scrypt cost parameters and output sizes.
type HashParams struct {
	N       int
	R       int
	P       int
	KeyLen  int
	SaltLen int
}

// DefaultHashParams match the parameters used for existing stored credentials.
var DefaultHashParams = HashParams{N: 16384, R: 8, P: 1, KeyLen: 64, SaltLen: 16}

// HashParamsFromConfig applies configured cost values over the defaults.
func HashParamsFromConfig(cfg config.AuthConfig) HashParams {
	params := DefaultHashParams
	if cfg.ScryptN > 1 {
		params.N = cfg.ScryptN
	}
	if cfg.ScryptR > 0 {
		params.R = cfg.ScryptR
	}
	if cfg.ScryptP > 0 {
		params.P = cfg.ScryptP
	}
	return params
}

// Hasher derives and checks salted scrypt hashes. At most `concurrency`
// derivations run at once; callers beyond that wait on their context.
type Hasher struct {
	params HashParams
	sem    *semaphore.Weighted
}

// NewHasher builds a hasher.
func NewHasher(params HashParams, concurrency int) *Hasher {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Hasher{params: params, sem: semaphore.NewWeighted(int64(concurrency))}
}

// Hash derives a key for secret under a fresh random salt. Both results are hex encoded.
func (h *Hasher) Hash(ctx context.Context, secret string) (key, salt string, err error) {
	raw := make([]byte, h.params.SaltLen)
	if _, err := rand.Read(raw); err != nil {
		return "", "", fmt.Errorf("generating salt: %w", err)
	}
	salt = hex.EncodeToString(raw)

	derived, err := h.derive(ctx, secret, salt, h.params.KeyLen)
	if err != nil {
		return "", "", err
	}
	return hex.EncodeToString(derived), salt, nil
}

// Compare recomputes the key for candidate under salt and compares it to the
// stored key in constant time.
func (h *Hasher) Compare(ctx context.Context, candidate, key, salt string) (bool, error) {
	stored, err := hex.DecodeString(key)
	if err != nil {
		return false, fmt.Errorf("decoding stored key: %w", err)
	}
	if len(stored) == 0 {
		return false, fmt.Errorf("empty stored key")
	}

	derived, err := h.derive(ctx, candidate, salt, len(stored))
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(derived, stored) == 1, nil
}

// The hex salt string itself is the scrypt salt.
func (h *Hasher) derive(ctx context.Context, secret, salt string, keyLen int) ([]byte, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer h.sem.Release(1)

	derived, err := scrypt.Key([]byte(secret), []byte(salt), h.params.N, h.params.R, h.params.P, keyLen)
	if err != nil {
		return nil, fmt.Errorf("deriving key: %w", err)
	}
	return derived, nil
}
