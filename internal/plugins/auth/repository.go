package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/eventboard/eventboard/internal/apperror"
)

// mysqlDuplicateEntry is the MariaDB/MySQL error number for a unique key
// violation.
const mysqlDuplicateEntry = 1062

// UserRepository defines the data access contract for user operations.
// All SQL lives in the concrete implementation -- no SQL leaks out.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id int64) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	AdminExists(ctx context.Context) (bool, error)

	// Password reset.
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error
	SetResetToken(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error
	ClearResetToken(ctx context.Context, userID int64) error
	FindByResetToken(ctx context.Context, tokenHash string) (*User, error)
	ResetPassword(ctx context.Context, userID int64, tokenHash, passwordHash string) error
}

// userRepository implements UserRepository with hand-written MariaDB queries.
type userRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new user repository backed by the given DB pool.
func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, email, password_hash, is_admin, otp_secret,
	reset_token_hash, reset_token_expires_at, created_at, updated_at`

// Create inserts a new user row and sets user.ID from the auto-increment
// key. A duplicate email surfaces as a Conflict.
func (r *userRepository) Create(ctx context.Context, user *User) error {
	query := `INSERT INTO users (email, password_hash, is_admin, otp_secret, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		user.Email,
		user.PasswordHash,
		user.IsAdmin,
		user.OTPSecret,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntry(err) {
			return apperror.NewConflict("an account with this email already exists")
		}
		return fmt.Errorf("inserting user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading user id: %w", err)
	}
	user.ID = id
	return nil
}

// FindByID retrieves a user by id.
// Returns apperror.NotFound if no user exists with this ID.
func (r *userRepository) FindByID(ctx context.Context, id int64) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, wrapLookup(err, "querying user by id")
	}
	return user, nil
}

// FindByEmail retrieves a user by their email address.
// Returns apperror.NotFound if no user exists with this email.
func (r *userRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ?`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		return nil, wrapLookup(err, "querying user by email")
	}
	return user, nil
}

// EmailExists returns true if a user with the given email already exists.
// Used during registration to check for duplicates before hashing the password.
func (r *userRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE email = ?)`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking email existence: %w", err)
	}
	return exists, nil
}

// AdminExists reports whether any account holds the admin flag.
func (r *userRepository) AdminExists(ctx context.Context) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE is_admin = TRUE)`).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking admin existence: %w", err)
	}
	return exists, nil
}

// --- Password Reset ---

// UpdatePassword sets a new password hash for a user.
func (r *userRepository) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	query := `UPDATE users SET password_hash = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, passwordHash, userID)
	if err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	return requireRow(result, "user not found")
}

// SetResetToken stores the hash of a freshly issued reset token, replacing
// any outstanding one. Plaintext tokens are never stored.
func (r *userRepository) SetResetToken(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error {
	query := `UPDATE users SET reset_token_hash = ?, reset_token_expires_at = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, tokenHash, expiresAt, userID)
	if err != nil {
		return fmt.Errorf("storing reset token: %w", err)
	}
	return requireRow(result, "user not found")
}

// ClearResetToken drops any outstanding reset token for the user.
func (r *userRepository) ClearResetToken(ctx context.Context, userID int64) error {
	query := `UPDATE users SET reset_token_hash = NULL, reset_token_expires_at = NULL WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("clearing reset token: %w", err)
	}
	return nil
}

// FindByResetToken looks up the user holding tokenHash.
// Returns apperror.NotFound if no user holds it.
func (r *userRepository) FindByResetToken(ctx context.Context, tokenHash string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE reset_token_hash = ?`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, tokenHash))
	if err != nil {
		return nil, wrapLookup(err, "querying user by reset token")
	}
	return user, nil
}

// ResetPassword stores the new hash and consumes the token in one statement.
// The token hash is part of the WHERE clause so two concurrent resets with
// the same token cannot both succeed.
func (r *userRepository) ResetPassword(ctx context.Context, userID int64, tokenHash, passwordHash string) error {
	query := `UPDATE users
	          SET password_hash = ?, reset_token_hash = NULL, reset_token_expires_at = NULL,
	              updated_at = UTC_TIMESTAMP()
	          WHERE id = ? AND reset_token_hash = ?`
	result, err := r.db.ExecContext(ctx, query, passwordHash, userID, tokenHash)
	if err != nil {
		return fmt.Errorf("resetting password: %w", err)
	}
	return requireRow(result, "Invalid reset token")
}

// --- Helpers ---

func scanUser(row *sql.Row) (*User, error) {
	u := &User{}
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.IsAdmin,
		&u.OTPSecret,
		&u.ResetTokenHash,
		&u.ResetTokenExpiresAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func wrapLookup(err error, action string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperror.NewNotFound("User not found")
	}
	return fmt.Errorf("%s: %w", action, err)
}

func requireRow(result sql.Result, notFound string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if n == 0 {
		return apperror.NewNotFound(notFound)
	}
	return nil
}

func isDuplicateEntry(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry
}
