package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apilogin/auth-api/internal/core/domain"
	"github.com/apilogin/auth-api/internal/core/ports"
)

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	t.Cleanup(mock.Close)
	return NewStore(mock), mock
}

func userRow(code *string, expires *time.Time) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"user_id", "username", "password", "email", "role_id",
		"reset_token", "reset_expires", "created_at", "updated_at",
	}).AddRow("u-1", "alice", "$2a$10$hash", "alice@x.com", int64(2), code, expires, testNow, testNow)
}

func TestStore_FindConflicts(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("alice", "alice@x.com").
		WillReturnRows(pgxmock.NewRows([]string{"username", "email"}).AddRow(false, true))

	usernameTaken, emailTaken, err := store.FindConflicts(context.Background(), "alice", "alice@x.com")
	require.NoError(t, err)
	assert.False(t, usernameTaken)
	assert.True(t, emailTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_CreateUser(t *testing.T) {
	user := &domain.User{
		ID: "u-1", Username: "alice", Email: "alice@x.com", PasswordHash: "hash",
		RoleID: 2, CreatedAt: testNow, UpdatedAt: testNow,
	}

	tests := []struct {
		name    string
		err     error
		wantErr error
	}{
		{name: "inserted"},
		{
			name:    "username constraint",
			err:     &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_username_key"},
			wantErr: domain.ErrUsernameTaken,
		},
		{
			name:    "email constraint",
			err:     &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_email_key"},
			wantErr: domain.ErrEmailTaken,
		},
		{
			name:    "role foreign key",
			err:     &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation, ConstraintName: "users_role_id_fkey"},
			wantErr: domain.ErrRoleNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newMockStore(t)

			exp := mock.ExpectExec(`INSERT INTO users`).
				WithArgs("u-1", "alice", "hash", "alice@x.com", int64(2), testNow, testNow)
			if tt.err != nil {
				exp.WillReturnError(tt.err)
			} else {
				exp.WillReturnResult(pgxmock.NewResult("INSERT", 1))
			}

			err := store.CreateUser(context.Background(), user)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStore_CreateUser_UnmappedError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("connection reset"))

	err := store.CreateUser(context.Background(), &domain.User{ID: "u-1"})
	require.Error(t, err)
	assert.Equal(t, domain.KindUnexpected, domain.KindOf(err))
	assert.Contains(t, err.Error(), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_FindByUsername(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE username =`).
		WithArgs("alice").
		WillReturnRows(userRow(nil, nil))

	u, err := store.FindByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "u-1", u.ID)
	assert.Equal(t, int64(2), u.RoleID)
	assert.Nil(t, u.ResetToken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_FindByResetToken(t *testing.T) {
	store, mock := newMockStore(t)
	code := "123456"
	expires := testNow.Add(5 * time.Minute)

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE reset_token =`).
		WithArgs(code).
		WillReturnRows(userRow(&code, &expires))

	u, err := store.FindByResetToken(context.Background(), code)
	require.NoError(t, err)
	require.NotNil(t, u.ResetToken)
	assert.Equal(t, code, *u.ResetToken)
	assert.False(t, u.ResetExpired(testNow))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_FindByEmail_NotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE email =`).
		WithArgs("ghost@x.com").
		WillReturnRows(pgxmock.NewRows([]string{
			"user_id", "username", "password", "email", "role_id",
			"reset_token", "reset_expires", "created_at", "updated_at",
		}))

	_, err := store.FindByEmail(context.Background(), "ghost@x.com")
	require.ErrorIs(t, err, domain.ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_UpdatePassword(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		wantErr  error
	}{
		{name: "updated", affected: 1},
		{name: "row vanished", affected: 0, wantErr: domain.ErrUserNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newMockStore(t)

			mock.ExpectExec(`UPDATE users SET password`).
				WithArgs("u-1", "hash", testNow).
				WillReturnResult(pgxmock.NewResult("UPDATE", tt.affected))

			err := store.UpdatePassword(context.Background(), "u-1", "hash", testNow)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStore_SetResetToken_Collision(t *testing.T) {
	store, mock := newMockStore(t)
	expires := testNow.Add(5 * time.Minute)

	mock.ExpectExec(`UPDATE users SET reset_token`).
		WithArgs("u-1", "123456", expires, testNow).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_reset_token_key"})

	err := store.SetResetToken(context.Background(), "u-1", "123456", expires, testNow)
	require.ErrorIs(t, err, ports.ErrResetTokenTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ConsumeResetToken(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{name: "consumed", affected: 1, want: true},
		{name: "already used", affected: 0, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newMockStore(t)

			mock.ExpectExec(`UPDATE users\s+SET password = (.+) reset_token = NULL`).
				WithArgs("u-1", "123456", "hash", testNow).
				WillReturnResult(pgxmock.NewResult("UPDATE", tt.affected))

			got, err := store.ConsumeResetToken(context.Background(), "u-1", "123456", "hash", testNow)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStore_DeleteUser_Idempotent(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`DELETE FROM users`).
		WithArgs("missing").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, store.DeleteUser(context.Background(), "missing"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_DeleteUser_MalformedID(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`DELETE FROM users`).
		WithArgs("abc").
		WillReturnError(&pgconn.PgError{Code: pgerrcode.InvalidTextRepresentation})

	require.NoError(t, store.DeleteUser(context.Background(), "abc"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_AssignRole_MalformedID(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE users SET role_id`).
		WithArgs("abc", int64(2), testNow).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.InvalidTextRepresentation})

	require.NoError(t, store.AssignRole(context.Background(), "abc", 2, testNow))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_DeleteUser_UnmappedError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`DELETE FROM users`).
		WithArgs("u-1").
		WillReturnError(&pgconn.PgError{Code: pgerrcode.QueryCanceled})

	err := store.DeleteUser(context.Background(), "u-1")
	require.Error(t, err)
	assert.Equal(t, domain.KindUnexpected, domain.KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_AssignRole_UnknownRole(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE users SET role_id`).
		WithArgs("u-1", int64(99), testNow).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.ForeignKeyViolation})

	err := store.AssignRole(context.Background(), "u-1", 99, testNow)
	require.ErrorIs(t, err, domain.ErrRoleNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ListUsers(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`(?s)SELECT (.+) FROM users u\s+JOIN roles r`).
		WillReturnRows(pgxmock.NewRows([]string{"user_id", "username", "email", "role_name", "created_at", "updated_at"}).
			AddRow("u-1", "alice", "alice@x.com", "User", testNow, testNow).
			AddRow("u-2", "root", "root@x.com", "Administrator", testNow, testNow))

	users, err := store.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "Administrator", users[1].RoleName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ListUsers_Empty(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`(?s)SELECT (.+) FROM users u`).
		WillReturnRows(pgxmock.NewRows([]string{"user_id", "username", "email", "role_name", "created_at", "updated_at"}))

	users, err := store.ListUsers(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)
}

func TestStore_FindRoleByName(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT role_id, role_name FROM roles`).
		WithArgs("Administrator").
		WillReturnRows(pgxmock.NewRows([]string{"role_id", "role_name"}).AddRow(int64(1), "Administrator"))
	mock.ExpectQuery(`SELECT role_id, role_name FROM roles`).
		WithArgs("Ghost").
		WillReturnRows(pgxmock.NewRows([]string{"role_id", "role_name"}))

	role, err := store.FindRoleByName(context.Background(), "Administrator")
	require.NoError(t, err)
	assert.Equal(t, int64(1), role.ID)

	_, err = store.FindRoleByName(context.Background(), "Ghost")
	require.ErrorIs(t, err, domain.ErrRoleNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_WithTx_Commit(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM users`).
		WithArgs("u-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	err := store.WithTx(context.Background(), func(ctx context.Context, repo ports.UserRepository) error {
		return repo.DeleteUser(ctx, "u-1")
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_WithTx_RollbackOnError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := store.WithTx(context.Background(), func(context.Context, ports.UserRepository) error {
		return domain.ErrUsernameTaken
	})
	require.ErrorIs(t, err, domain.ErrUsernameTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_WithTx_RollbackOnPanic(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.Panics(t, func() {
		_ = store.WithTx(context.Background(), func(context.Context, ports.UserRepository) error {
			panic("boom")
		})
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_WithTx_BeginFails(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin().WillReturnError(errors.New("pool exhausted"))

	called := false
	err := store.WithTx(context.Background(), func(context.Context, ports.UserRepository) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, called)
	assert.NoError(t, mock.ExpectationsWereMet())
}
