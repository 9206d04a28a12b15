package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kofiasare/makola/internal/domain/identity"
)

var _ identity.CredentialRepository = (*CredentialRepository)(nil)

// CredentialRepository implements identity.CredentialRepository backed by
// PostgreSQL. Only active credentials resolve; revoked keys behave the same
// as unknown ones.
type CredentialRepository struct {
	pool *pgxpool.Pool
}

// NewCredentialRepository returns a CredentialRepository that uses the given pool.
func NewCredentialRepository(pool *pgxpool.Pool) *CredentialRepository {
	return &CredentialRepository{pool: pool}
}

// FindByKeyHash returns the credential whose key hash matches, or
// identity.ErrUnknownCredential.
func (r *CredentialRepository) FindByKeyHash(ctx context.Context, hash string) (*identity.Credential, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT actor_id, role, name, key_hash, active
		 FROM actors WHERE key_hash = $1 AND active`, hash)

	var c identity.Credential
	err := row.Scan(&c.ActorID, &c.Role, &c.Name, &c.KeyHash, &c.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrUnknownCredential
		}
		return nil, fmt.Errorf("finding credential: %w", err)
	}
	return &c, nil
}
