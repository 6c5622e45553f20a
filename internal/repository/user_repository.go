package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/hr-records-api/internal/utils"
)

// User mirrors the 'users' table. EmployeeID is the optional link to an
// employee profile; an employee may exist with no user, and a user may exist
// with no employee until their profile is completed.
type User struct {
	ID              string
	Email           string
	PasswordHash    string
	Role            string
	EmployeeID      sql.NullString
	EmailVerifiedAt sql.NullTime
	FirstTimeLogin  bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,email,password_hash,role,employee_id,email_verified_at,first_time_login,created_at,updated_at"

// Create inserts a user and returns its generated ID. employeeID may be
// empty when the account has no profile yet.
func (r *UserRepo) Create(ctx context.Context, email, password, role, employeeID string, cost int) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	var empID any
	if employeeID != "" {
		empID = employeeID
	}
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO users (id, email, password_hash, role, employee_id, first_time_login) VALUES (?,?,?,?,?,?)",
		id, email, hash, role, empID, true)
	if err != nil {
		if isDuplicate(err, "email") {
			return "", ErrEmailExists
		}
		return "", err
	}
	return id, nil
}

// LinkEmployee attaches an employee profile to an existing user account.
// sql.ErrNoRows when the user does not exist.
func (r *UserRepo) LinkEmployee(ctx context.Context, userID, employeeID string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET employee_id=? WHERE id=?", employeeID, userID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		if _, err := r.GetByID(ctx, userID); err != nil {
			return err
		}
	}
	return nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.scanOne(ctx, "SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (User, error) {
	return r.scanOne(ctx, "SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
}

func (r *UserRepo) scanOne(ctx context.Context, query string, arg any) (User, error) {
	var u User
	err := r.DB.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.EmployeeID,
		&u.EmailVerifiedAt, &u.FirstTimeLogin, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}
