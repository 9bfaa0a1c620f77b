package sqlite

import (
	"context"

	"github.com/aussiebroadwan/sessiongate/internal/auth/domain"
)

type identitiesRepo struct {
	db dbtx
}

func (r *identitiesRepo) GetIdentity(ctx context.Context, provider, subject string) (domain.Identity, error) {
	var id domain.Identity
	err := r.db.QueryRowContext(ctx, getIdentitySQL, provider, subject).
		Scan(&id.Provider, &id.Subject, &id.UserID, &id.CreatedAt)
	if err != nil {
		return domain.Identity{}, mapNotFound(err)
	}
	return id, nil
}

func (r *identitiesRepo) LinkIdentity(ctx context.Context, id domain.Identity) error {
	_, err := r.db.ExecContext(ctx, linkIdentitySQL, id.Provider, id.Subject, id.UserID, id.CreatedAt.UTC())
	return mapConstraint(err)
}
