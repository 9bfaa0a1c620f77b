package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/sessiongate/internal/auth/domain"
	"github.com/aussiebroadwan/sessiongate/internal/auth/store"
)

type usersRepo struct {
	db dbtx
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, getUserByIDSQL, id))
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, getUserByEmailSQL, email))
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) GetUserByPhone(ctx context.Context, phone string) (domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, getUserByPhoneSQL, phone))
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx, createUserSQL,
		u.ID,
		u.Email,
		mapStringNull(u.PhoneNumber),
		u.FullName,
		u.PasswordHash,
		u.IsActive,
		u.IsSuperuser,
		mapOptionalTime(u.LastLoginAt),
		u.LastLoginIP,
		u.CreatedAt.UTC(),
		u.UpdatedAt.UTC(),
	)
	return mapConstraint(err)
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID, hash string) error {
	return expectOneRow(r.db.ExecContext(ctx, updatePasswordHashSQL, hash, time.Now().UTC(), userID))
}

func (r *usersRepo) RecordLogin(ctx context.Context, userID string, at time.Time, ip string) error {
	return expectOneRow(r.db.ExecContext(ctx, recordLoginSQL, at.UTC(), ip, time.Now().UTC(), userID))
}

func (r *usersRepo) IsEmpty(ctx context.Context) (bool, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, countUsersSQL).Scan(&count); err != nil {
		return false, err
	}
	return count == 0, nil
}

type execResult interface {
	RowsAffected() (int64, error)
}

func expectOneRow(res execResult, err error) error {
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
