package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/apilogin/auth-api/internal/core/domain"
	"github.com/apilogin/auth-api/internal/core/ports"
)

// querier is the statement surface shared by *pgxpool.Pool, pgx.Tx and pgxmock.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type beginner interface {
	querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

const userColumns = `user_id, username, password, email, role_id, reset_token, reset_expires, created_at, updated_at`

// Store implements ports.CredentialStore.
type Store struct {
	*repo
	db beginner
}

func NewStore(db beginner) *Store {
	return &Store{repo: &repo{q: db}, db: db}
}

// WithTx runs fn against a transaction. Any error or panic from fn rolls it back.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, repo ports.UserRepository) error) (err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(ctx, &repo{q: tx}); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type repo struct {
	q querier
}

func (r *repo) FindConflicts(ctx context.Context, username, email string) (bool, bool, error) {
	var usernameTaken, emailTaken bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE username = $1),
		        EXISTS (SELECT 1 FROM users WHERE email = $2)`,
		username, email,
	).Scan(&usernameTaken, &emailTaken)
	if err != nil {
		return false, false, fmt.Errorf("find conflicts: %w", err)
	}
	return usernameTaken, emailTaken, nil
}

func (r *repo) CreateUser(ctx context.Context, u *domain.User) error {
	_, err := r.q.Exec(ctx,
		`INSERT INTO users (user_id, username, password, email, role_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Username, u.PasswordHash, u.Email, u.RoleID, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if mapped := mapConstraint(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *repo) findOne(ctx context.Context, where string, arg any) (*domain.User, error) {
	var u domain.User
	err := r.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+where+` = $1`, arg).Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.Email, &u.RoleID,
		&u.ResetToken, &u.ResetExpires, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user by %s: %w", where, err)
	}
	return &u, nil
}

func (r *repo) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, "username", username)
}

func (r *repo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, "email", email)
}

func (r *repo) FindByResetToken(ctx context.Context, code string) (*domain.User, error) {
	return r.findOne(ctx, "reset_token", code)
}

func (r *repo) UpdatePassword(ctx context.Context, userID, hash string, at time.Time) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE users SET password = $2, updated_at = $3 WHERE user_id = $1`,
		userID, hash, at,
	)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *repo) SetResetToken(ctx context.Context, userID, code string, expires, at time.Time) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE users SET reset_token = $2, reset_expires = $3, updated_at = $4 WHERE user_id = $1`,
		userID, code, expires, at,
	)
	if err != nil {
		if mapped := mapConstraint(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("set reset token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *repo) ClearResetToken(ctx context.Context, userID string, at time.Time) error {
	_, err := r.q.Exec(ctx,
		`UPDATE users SET reset_token = NULL, reset_expires = NULL, updated_at = $2 WHERE user_id = $1`,
		userID, at,
	)
	if err != nil {
		return fmt.Errorf("clear reset token: %w", err)
	}
	return nil
}

// ConsumeResetToken sets the password only while code is still the user's live
// code. It reports false when another caller consumed or replaced it first.
func (r *repo) ConsumeResetToken(ctx context.Context, userID, code, hash string, at time.Time) (bool, error) {
	tag, err := r.q.Exec(ctx,
		`UPDATE users
		    SET password = $3, reset_token = NULL, reset_expires = NULL, updated_at = $4
		  WHERE user_id = $1 AND reset_token = $2 AND reset_expires > $4`,
		userID, code, hash, at,
	)
	if err != nil {
		return false, fmt.Errorf("consume reset token: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// DeleteUser treats an id that is not a UUID as a user that does not exist.
func (r *repo) DeleteUser(ctx context.Context, userID string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM users WHERE user_id = $1`, userID); err != nil {
		if isMalformedID(err) {
			return nil
		}
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

func (r *repo) AssignRole(ctx context.Context, userID string, roleID int64, at time.Time) error {
	_, err := r.q.Exec(ctx,
		`UPDATE users SET role_id = $2, updated_at = $3 WHERE user_id = $1`,
		userID, roleID, at,
	)
	if err != nil {
		if isMalformedID(err) {
			return nil
		}
		if mapped := mapConstraint(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("assign role: %w", err)
	}
	return nil
}

func (r *repo) ListUsers(ctx context.Context) ([]domain.UserSummary, error) {
	rows, err := r.q.Query(ctx,
		`SELECT u.user_id, u.username, u.email, r.role_name, u.created_at, u.updated_at
		   FROM users u
		   JOIN roles r ON r.role_id = u.role_id
		  ORDER BY u.created_at, u.user_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]domain.UserSummary, 0)
	for rows.Next() {
		var s domain.UserSummary
		if err := rows.Scan(&s.ID, &s.Username, &s.Email, &s.RoleName, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan user row: %w", err)
		}
		users = append(users, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

func (r *repo) FindRoleByName(ctx context.Context, name string) (*domain.Role, error) {
	var role domain.Role
	err := r.q.QueryRow(ctx,
		`SELECT role_id, role_name FROM roles WHERE role_name = $1`, name,
	).Scan(&role.ID, &role.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrRoleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find role: %w", err)
	}
	return &role, nil
}

// mapConstraint translates constraint violations into domain errors, or returns nil.
func mapConstraint(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return nil
	}
	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		switch pgErr.ConstraintName {
		case "users_username_key":
			return domain.ErrUsernameTaken
		case "users_email_key":
			return domain.ErrEmailTaken
		case "users_reset_token_key":
			return ports.ErrResetTokenTaken
		}
	case pgerrcode.ForeignKeyViolation:
		return domain.ErrRoleNotFound
	}
	return nil
}

// isMalformedID reports whether err is PostgreSQL rejecting a non-UUID user_id.
func isMalformedID(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.InvalidTextRepresentation
}
