package service

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/auth"
	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/repository"
)

// CredentialService stores and verifies hashed secrets. Failures are
// reported as booleans so that callers never see storage details.
type CredentialService struct {
	hasher *auth.Hasher
	creds  repository.CredentialRepository
	logger *zap.Logger

	dummyOnce sync.Once
	dummyKey  string
	dummySalt string
}

// NewCredentialService builds the service.
func NewCredentialService(hasher *auth.Hasher, creds repository.CredentialRepository, logger *zap.Logger) *CredentialService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CredentialService{hasher: hasher, creds: creds, logger: logger}
}

// Create hashes secret and persists it for userID. False means the
// credential was not established.
func (s *CredentialService) Create(ctx context.Context, userID, credType, secret string) bool {
	cred, err := s.Derive(ctx, credType, secret)
	if err != nil {
		s.logger.Error("credential hashing failed", zap.String("user_id", userID), zap.Error(err))
		return false
	}
	return s.Persist(ctx, s.creds, userID, cred)
}

// Derive hashes secret with a fresh salt without touching storage.
func (s *CredentialService) Derive(ctx context.Context, credType, secret string) (*domain.Credential, error) {
	key, salt, err := s.hasher.Hash(ctx, secret)
	if err != nil {
		return nil, err
	}
	return &domain.Credential{Type: credType, Key: key, Salt: salt}, nil
}

// Persist writes a derived credential through repo, which may be bound to
// a transaction.
func (s *CredentialService) Persist(ctx context.Context, repo repository.CredentialRepository, userID string, cred *domain.Credential) bool {
	cred.UserID = userID
	if err := repo.Create(ctx, cred); err != nil {
		s.logger.Error("credential persistence failed",
			zap.String("user_id", userID),
			zap.String("type", cred.Type),
			zap.Error(err))
		return false
	}
	return true
}

// Verify checks candidate against the newest stored credential. It
// returns false when none exists or on any error.
func (s *CredentialService) Verify(ctx context.Context, userID, credType, candidate string) bool {
	cred, err := s.creds.FindLatest(ctx, userID, credType)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			s.logger.Error("credential lookup failed", zap.String("user_id", userID), zap.Error(err))
		}
		s.Burn(ctx, candidate)
		return false
	}

	ok, err := s.hasher.Compare(ctx, candidate, cred.Key, cred.Salt)
	if err != nil {
		s.logger.Error("credential comparison failed", zap.String("user_id", userID), zap.Error(err))
		return false
	}
	return ok
}

// Burn spends one hash computation against a fixed credential so that a
// miss costs about as much as a real comparison.
func (s *CredentialService) Burn(ctx context.Context, candidate string) {
	s.dummyOnce.Do(func() {
		key, salt, err := s.hasher.Hash(context.Background(), "dummy-credential")
		if err != nil {
			s.logger.Warn("dummy credential unavailable", zap.Error(err))
			return
		}
		s.dummyKey, s.dummySalt = key, salt
	})
	if s.dummyKey == "" {
		return
	}
	_, _ = s.hasher.Compare(ctx, candidate, s.dummyKey, s.dummySalt)
}
