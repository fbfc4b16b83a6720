package user

import (
	"context"
	"errors"
	"time"
	c "usermanager/internal/core/domain/common"
	e "usermanager/internal/core/domain/errors"
	"usermanager/internal/core/domain/user"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
)

const PG_UNIQUE_CONSTRAINT_ERR_CODE = "23505"

const (
	USERNAME_CONSTRAINT_NAME = "user_username_idx"
	EMAIL_CONSTRAINT_NAME    = "user_email_idx"
)

const selectUser = `
SELECT
	id, username, email, password_hash, enabled, locked, roles, is_super_admin,
	confirmation_token, password_requested_at, created_at, updated_at
FROM "user"
`

// DBTX is satisfied by both a pool and a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type PgxUserRepository struct {
	db          DBTX
	idGenerator user.IDGenerator
}

func NewPgxRepository(db DBTX, idGenerator user.IDGenerator) *PgxUserRepository {
	if db == nil {
		panic(e.NewNilArgumentError("db"))
	}
	if idGenerator == nil {
		panic(e.NewNilArgumentError("idGenerator"))
	}
	return &PgxUserRepository{db: db, idGenerator: idGenerator}
}

func (r *PgxUserRepository) Create(ctx context.Context, input user.CreateUserInput) (u user.User, err error) {
	roles := input.Roles
	if roles == nil {
		roles = user.Roles{}
	}
	u = user.User{
		ID:           r.idGenerator.GenerateUserID(),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: input.PasswordHash,
		Enabled:      input.Enabled,
		Roles:        roles.Clone(),
		IsSuperAdmin: input.IsSuperAdmin,
		CreatedAt:    input.CreatedAt.UTC(),
		UpdatedAt:    input.CreatedAt.UTC(),
	}
	if err := u.Validate(); err != nil {
		return u, err
	}

	_, err = r.db.Exec(
		ctx,
		`
		INSERT INTO "user" (
			id, username, email, password_hash, enabled, locked, roles, is_super_admin,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`,
		string(u.ID),
		string(u.Username),
		string(u.Email),
		string(u.PasswordHash),
		u.Enabled,
		u.Locked,
		u.Roles.Strings(),
		u.IsSuperAdmin,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		return user.User{}, decodeError("create", err)
	}
	return u, nil
}

func (r *PgxUserRepository) GetByID(ctx context.Context, id user.ID) (u user.User, err error) {
	return r.getOne(ctx, "get by id", selectUser+`WHERE id = $1`, string(id))
}

func (r *PgxUserRepository) GetByUsername(ctx context.Context, username user.Username) (u user.User, err error) {
	return r.getOne(ctx, "get by username", selectUser+`WHERE username = $1`, string(username))
}

func (r *PgxUserRepository) GetByEmail(ctx context.Context, email c.Email) (u user.User, err error) {
	return r.getOne(ctx, "get by email", selectUser+`WHERE email = $1`, string(email))
}

func (r *PgxUserRepository) GetByConfirmationToken(
	ctx context.Context,
	token user.PasswordResetToken,
) (u user.User, err error) {
	if token == "" {
		return u, user.ErrUserDoesNotExist
	}
	return r.getOne(ctx, "get by confirmation token", selectUser+`WHERE confirmation_token = $1`, string(token))
}

func (r *PgxUserRepository) GetByIDWithLock(ctx context.Context, id user.ID) (u user.User, err error) {
	return r.getOne(ctx, "get by id with lock", selectUser+`WHERE id = $1 FOR UPDATE`, string(id))
}

func (r *PgxUserRepository) Save(ctx context.Context, u user.User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	tag, err := r.db.Exec(
		ctx,
		`
		UPDATE "user" SET
			username = $2,
			email = $3,
			password_hash = $4,
			enabled = $5,
			locked = $6,
			roles = $7,
			is_super_admin = $8,
			confirmation_token = $9,
			password_requested_at = $10,
			updated_at = $11
		WHERE id = $1
		`,
		string(u.ID),
		string(u.Username),
		string(u.Email),
		string(u.PasswordHash),
		u.Enabled,
		u.Locked,
		u.Roles.Strings(),
		u.IsSuperAdmin,
		encodeToken(u.ConfirmationToken),
		encodeOptionalTime(u.PasswordRequestedAt),
		u.UpdatedAt.UTC(),
	)
	if err != nil {
		return decodeError("save", err)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrUserDoesNotExist
	}
	return nil
}

func (r *PgxUserRepository) getOne(ctx context.Context, op string, query string, arg string) (u user.User, err error) {
	var (
		id                  string
		username            string
		email               string
		passwordHash        string
		roles               []string
		confirmationToken   *string
		passwordRequestedAt *time.Time
	)
	err = r.db.QueryRow(ctx, query, arg).Scan(
		&id,
		&username,
		&email,
		&passwordHash,
		&u.Enabled,
		&u.Locked,
		&roles,
		&u.IsSuperAdmin,
		&confirmationToken,
		&passwordRequestedAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return user.User{}, user.ErrUserDoesNotExist
	}
	if err != nil {
		return user.User{}, decodeError(op, err)
	}

	u.ID = user.ID(id)
	u.Username = user.Username(username)
	u.Email = c.Email(email)
	u.PasswordHash = user.PasswordHash(passwordHash)
	u.Roles = user.RolesFromStrings(roles)
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	if confirmationToken != nil {
		u.ConfirmationToken = c.Some(user.PasswordResetToken(*confirmationToken))
	}
	if passwordRequestedAt != nil {
		u.PasswordRequestedAt = c.Some(passwordRequestedAt.UTC())
	}
	if err := u.Validate(); err != nil {
		return user.User{}, user.NewStorageError(op, err)
	}
	return u, nil
}

func encodeToken(token c.Optional[user.PasswordResetToken]) *string {
	if !token.IsPresent {
		return nil
	}
	value := string(token.Value)
	return &value
}

func encodeOptionalTime(at c.Optional[time.Time]) *time.Time {
	if !at.IsPresent {
		return nil
	}
	value := at.Value.UTC()
	return &value
}

func decodeError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == PG_UNIQUE_CONSTRAINT_ERR_CODE {
		switch pgErr.ConstraintName {
		case USERNAME_CONSTRAINT_NAME:
			return user.ErrUsernameAlreadyExists
		case EMAIL_CONSTRAINT_NAME:
			return user.ErrEmailAlreadyExists
		}
	}
	return user.WrapStorageError(op, err)
}
