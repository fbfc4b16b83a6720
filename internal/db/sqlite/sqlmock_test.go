package sqlite

import (
	"context"
	"errors"
	"testing"
	"usermanager/internal/core/domain/user"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

var errDisk = errors.New("disk I/O error")

func TestQueryFailureIsStorageError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectQuery("SELECT").WithArgs("alice").WillReturnError(errDisk)
	repo := NewUserRepository(db, user.NewFakeIDGenerator())

	_, err = repo.GetByUsername(context.Background(), "alice")

	require.True(t, errors.Is(err, user.ErrStorage))
	require.True(t, errors.Is(err, errDisk))
	var storageErr *user.StorageError
	require.True(t, errors.As(err, &storageErr))
	require.Equal(t, "get by username", storageErr.Op)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCorruptedRolesAreStorageError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	rows := sqlmock.NewRows([]string{
		"id", "username", "email", "password_hash", "enabled", "locked", "roles", "is_super_admin",
		"confirmation_token", "password_requested_at", "created_at", "updated_at",
	}).AddRow("user-1", "alice", "alice@example.com", "hash", 1, 0, "not json", 0, nil, nil, 0, 0)
	mock.ExpectQuery("SELECT").WithArgs("user-1").WillReturnRows(rows)
	repo := NewUserRepository(db, user.NewFakeIDGenerator())

	_, err = repo.GetByID(context.Background(), "user-1")

	require.True(t, errors.Is(err, user.ErrStorage))
}

func TestSaveFailureIsStorageError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectExec("UPDATE users").WillReturnError(errDisk)
	repo := NewUserRepository(db, user.NewFakeIDGenerator())

	err = repo.Save(context.Background(), user.User{ID: "user-1", Username: "alice", Email: "alice@example.com"})

	require.True(t, errors.Is(err, user.ErrStorage))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBeginFailureReleasesWriteLock(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectBegin().WillReturnError(errDisk)
	mock.ExpectBegin()
	mock.ExpectRollback()
	unitOfWork := NewUnitOfWork(db, user.NewFakeIDGenerator())
	ctx := context.Background()

	_, err = unitOfWork.Begin(ctx)
	require.True(t, errors.Is(err, user.ErrStorage))

	uow, err := unitOfWork.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, uow.Rollback(ctx))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitFailureIsStorageError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errDisk)
	unitOfWork := NewUnitOfWork(db, user.NewFakeIDGenerator())
	ctx := context.Background()

	uow, err := unitOfWork.Begin(ctx)
	require.NoError(t, err)
	err = uow.Commit(ctx)
	require.True(t, errors.Is(err, user.ErrStorage))
	require.NoError(t, uow.Rollback(ctx))
	require.NoError(t, mock.ExpectationsWereMet())
}
