package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"
	c "usermanager/internal/core/domain/common"
	e "usermanager/internal/core/domain/errors"
	"usermanager/internal/core/domain/user"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const selectUser = `
SELECT
	id, username, email, password_hash, enabled, locked, roles, is_super_admin,
	confirmation_token, password_requested_at, created_at, updated_at
FROM users
`

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type UserRepository struct {
	db          DBTX
	idGenerator user.IDGenerator
}

func NewUserRepository(db DBTX, idGenerator user.IDGenerator) *UserRepository {
	if db == nil {
		panic(e.NewNilArgumentError("db"))
	}
	if idGenerator == nil {
		panic(e.NewNilArgumentError("idGenerator"))
	}
	return &UserRepository{db: db, idGenerator: idGenerator}
}

func (r *UserRepository) Create(ctx context.Context, input user.CreateUserInput) (u user.User, err error) {
	u = user.User{
		ID:           r.idGenerator.GenerateUserID(),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: input.PasswordHash,
		Enabled:      input.Enabled,
		Roles:        input.Roles.Clone(),
		IsSuperAdmin: input.IsSuperAdmin,
		CreatedAt:    input.CreatedAt.UTC(),
		UpdatedAt:    input.CreatedAt.UTC(),
	}
	if err := u.Validate(); err != nil {
		return u, err
	}
	roles, err := encodeRoles(u.Roles)
	if err != nil {
		return user.User{}, user.NewStorageError("create", err)
	}

	_, err = r.db.ExecContext(
		ctx,
		`
		INSERT INTO users (
			id, username, email, password_hash, enabled, locked, roles, is_super_admin,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
		string(u.ID),
		string(u.Username),
		string(u.Email),
		string(u.PasswordHash),
		u.Enabled,
		u.Locked,
		roles,
		u.IsSuperAdmin,
		u.CreatedAt.UnixNano(),
		u.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return user.User{}, decodeError("create", err)
	}
	return u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id user.ID) (user.User, error) {
	return r.getOne(ctx, "get by id", selectUser+`WHERE id = ?`, string(id))
}

func (r *UserRepository) GetByUsername(ctx context.Context, username user.Username) (user.User, error) {
	return r.getOne(ctx, "get by username", selectUser+`WHERE username = ?`, string(username))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email c.Email) (user.User, error) {
	return r.getOne(ctx, "get by email", selectUser+`WHERE email = ?`, string(email))
}

func (r *UserRepository) GetByConfirmationToken(
	ctx context.Context,
	token user.PasswordResetToken,
) (u user.User, err error) {
	if token == "" {
		return u, user.ErrUserDoesNotExist
	}
	return r.getOne(ctx, "get by confirmation token", selectUser+`WHERE confirmation_token = ?`, string(token))
}

// GetByIDWithLock relies on the write lock held by the unit of work.
func (r *UserRepository) GetByIDWithLock(ctx context.Context, id user.ID) (user.User, error) {
	return r.getOne(ctx, "get by id with lock", selectUser+`WHERE id = ?`, string(id))
}

func (r *UserRepository) Save(ctx context.Context, u user.User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	roles, err := encodeRoles(u.Roles)
	if err != nil {
		return user.NewStorageError("save", err)
	}
	var token sql.NullString
	if u.ConfirmationToken.IsPresent {
		token = sql.NullString{String: string(u.ConfirmationToken.Value), Valid: true}
	}
	var requestedAt sql.NullInt64
	if u.PasswordRequestedAt.IsPresent {
		requestedAt = sql.NullInt64{Int64: u.PasswordRequestedAt.Value.UnixNano(), Valid: true}
	}

	result, err := r.db.ExecContext(
		ctx,
		`
		UPDATE users SET
			username = ?,
			email = ?,
			password_hash = ?,
			enabled = ?,
			locked = ?,
			roles = ?,
			is_super_admin = ?,
			confirmation_token = ?,
			password_requested_at = ?,
			updated_at = ?
		WHERE id = ?
		`,
		string(u.Username),
		string(u.Email),
		string(u.PasswordHash),
		u.Enabled,
		u.Locked,
		roles,
		u.IsSuperAdmin,
		token,
		requestedAt,
		u.UpdatedAt.UnixNano(),
		string(u.ID),
	)
	if err != nil {
		return decodeError("save", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return user.NewStorageError("save", err)
	}
	if affected == 0 {
		return user.ErrUserDoesNotExist
	}
	return nil
}

func (r *UserRepository) getOne(ctx context.Context, op string, query string, arg string) (u user.User, err error) {
	var (
		id                  string
		username            string
		email               string
		passwordHash        string
		roles               string
		confirmationToken   sql.NullString
		passwordRequestedAt sql.NullInt64
		createdAt           int64
		updatedAt           int64
	)
	err = r.db.QueryRowContext(ctx, query, arg).Scan(
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
		&createdAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return user.User{}, user.ErrUserDoesNotExist
	}
	if err != nil {
		return user.User{}, decodeError(op, err)
	}

	u.ID = user.ID(id)
	u.Username = user.Username(username)
	u.Email = c.Email(email)
	u.PasswordHash = user.PasswordHash(passwordHash)
	u.Roles, err = decodeRoles(roles)
	if err != nil {
		return user.User{}, user.NewStorageError(op, err)
	}
	u.CreatedAt = decodeTime(createdAt)
	u.UpdatedAt = decodeTime(updatedAt)
	if confirmationToken.Valid {
		u.ConfirmationToken = c.Some(user.PasswordResetToken(confirmationToken.String))
	}
	if passwordRequestedAt.Valid {
		u.PasswordRequestedAt = c.Some(decodeTime(passwordRequestedAt.Int64))
	}
	if err := u.Validate(); err != nil {
		return user.User{}, user.NewStorageError(op, err)
	}
	return u, nil
}

func encodeRoles(roles user.Roles) (string, error) {
	raw := roles.Strings()
	b, err := json.Marshal(raw)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeRoles(raw string) (user.Roles, error) {
	var roles []string
	if err := json.Unmarshal([]byte(raw), &roles); err != nil {
		return nil, err
	}
	return user.RolesFromStrings(roles), nil
}

func decodeTime(nanos int64) time.Time {
	return time.Unix(0, nanos).UTC()
}

func decodeError(op string, err error) error {
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) && liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		switch msg := liteErr.Error(); {
		case strings.Contains(msg, "users.username"):
			return user.ErrUsernameAlreadyExists
		case strings.Contains(msg, "users.email"):
			return user.ErrEmailAlreadyExists
		}
	}
	return user.WrapStorageError(op, err)
}
