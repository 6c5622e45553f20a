package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepoGetByEmailNormalizes(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM users WHERE email=").
		WithArgs("admin@example.com").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "email", "password_hash", "role", "employee_id",
			"email_verified_at", "first_time_login", "created_at", "updated_at",
		}).AddRow("user-1", "admin@example.com", "$2a$10$hash", "admin", "emp-1", nil, false, now, now))

	repo := NewUserRepo(db)
	u, err := repo.GetByEmail(context.Background(), "  Admin@Example.COM ")
	require.NoError(t, err)
	assert.Equal(t, "user-1", u.ID)
	assert.Equal(t, "admin", u.Role)
	assert.True(t, u.EmployeeID.Valid)
	assert.False(t, u.EmailVerifiedAt.Valid)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepoLinkEmployee(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE users SET employee_id=").
		WithArgs("emp-1", "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewUserRepo(db)
	require.NoError(t, repo.LinkEmployee(context.Background(), "user-1", "emp-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepoCreateDuplicateEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry 'admin@example.com' for key 'users.uq_users_email'"))

	repo := NewUserRepo(db)
	_, err = repo.Create(context.Background(), "admin@example.com", "password", "admin", "", 4)
	assert.ErrorIs(t, err, ErrEmailExists)
	require.NoError(t, mock.ExpectationsWereMet())
}
