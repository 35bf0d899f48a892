package repository

import (
	"context"

	"github.com/spec-kit/triage-service/internal/domain"
)

// CredentialRepository persists hashed secrets.
type CredentialRepository interface {
	Create(ctx context.Context, cred *domain.Credential) error
	// FindLatest returns the newest non-expired credential of the given type.
	FindLatest(ctx context.Context, userID, credType string) (*domain.Credential, error)
}

type credentialRepository struct {
	db DBTX
}

// NewCredentialRepository returns a Postgres-backed implementation.
func NewCredentialRepository(db DBTX) CredentialRepository {
	return &credentialRepository{db: db}
}

func (r *credentialRepository) Create(ctx context.Context, cred *domain.Credential) error {
	const query = `
        INSERT INTO credentials (user_id, type, key, salt, expired_at)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at`

	return r.db.QueryRow(ctx, query,
		cred.UserID,
		cred.Type,
		cred.Key,
		cred.Salt,
		cred.ExpiredAt,
	).Scan(&cred.ID, &cred.CreatedAt)
}

func (r *credentialRepository) FindLatest(ctx context.Context, userID, credType string) (*domain.Credential, error) {
	const query = `
        SELECT id, user_id, type, key, salt, created_at, expired_at
        FROM credentials
        WHERE user_id=$1 AND type=$2 AND (expired_at IS NULL OR expired_at > NOW())
        ORDER BY created_at DESC
        LIMIT 1`

	var cred domain.Credential
	if err := r.db.QueryRow(ctx, query, userID, credType).Scan(
		&cred.ID,
		&cred.UserID,
		&cred.Type,
		&cred.Key,
		&cred.Salt,
		&cred.CreatedAt,
		&cred.ExpiredAt,
	); err != nil {
		return nil, err
	}
	return &cred, nil
}
