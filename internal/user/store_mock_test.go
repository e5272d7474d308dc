package user_test

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"agriapp/internal/apperr"
	"agriapp/internal/auth"
	"agriapp/internal/user"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockStore(t *testing.T) (*user.GormStore, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	conn, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("gorm.Open error: %v", err)
	}
	return user.NewGormStore(conn), mock
}

func TestRegister_StoreFailureIsInternal(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "users"`)).
		WillReturnError(errors.New("connection reset by peer"))

	svc := user.NewService(store, user.NewBcryptHasher(bcrypt.MinCost), auth.NewManager("s", 0))
	_, err := svc.Register(context.Background(), user.RegisterInput{Username: "amara", Email: "a@x.com", Password: "pw1"})

	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	assert.NotContains(t, apperr.MessageOf(err), "connection reset", "driver errors must not leak to clients")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_FollowIgnoresDuplicates(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(`INSERT INTO "follows" .* ON CONFLICT DO NOTHING`).
		WithArgs("a", "b", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.Follow(context.Background(), "a", "b"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_DeleteRollsBackOnFailure(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "follows"`)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "users"`)).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := store.Delete(context.Background(), "a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delete user")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_UpdateUnknownUser(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "users" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Update(context.Background(), &user.User{ID: "missing", Username: "ghost", Email: "g@x.com", Role: user.RoleUser})
	assert.ErrorIs(t, err, user.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func uniqueViolation() error {
	return &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint \"idx_users_username\""}
}

func TestGormStore_UpdateUniqueViolationIsDuplicate(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "users" SET`)).WillReturnError(uniqueViolation())

	err := store.Update(context.Background(), &user.User{ID: "u-1", Username: "kofi", Email: "a@x.com", Role: user.RoleUser})
	assert.ErrorIs(t, err, user.ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateUser_PostgresUniqueViolationIsConflict(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE id = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "password_hash", "role", "badges"}).
			AddRow("u-1", "amara", "a@x.com", "h", "user", "[]"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "follows"`)).
		WillReturnRows(sqlmock.NewRows([]string{"follower_id", "followee_id", "created_at"}))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE username = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE email = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "users" SET`)).WillReturnError(uniqueViolation())

	svc := user.NewService(store, user.NewBcryptHasher(bcrypt.MinCost), auth.NewManager("s", 0))
	_, err := svc.UpdateUser(context.Background(), "u-1", user.UpdateInput{Username: "kofi", Email: "a@x.com"})

	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
