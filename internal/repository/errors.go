// Package repository defines sentinel errors shared across repositories.
// Handlers use these to map database failures onto HTTP responses without
// inspecting driver error strings themselves.
package repository

import (
	"errors"
	"strings"
)

// ErrEmailExists is returned when a users.email unique constraint fires.
var ErrEmailExists = errors.New("email already exists")

// ErrPersonalEmailExists is returned when employees.personal_email collides.
// Handlers translate this into a 422 field error.
var ErrPersonalEmailExists = errors.New("personal email already in use")

// ErrEmployeeNoExists is returned when employees.employee_no collides.
var ErrEmployeeNoExists = errors.New("employee number already in use")

// ErrEmployeeHasUser is returned when a delete is blocked because a user
// account still references the employee. Handlers translate this into a
// 422 response; the row is left untouched.
var ErrEmployeeHasUser = errors.New("employee has an associated user account")

// isDuplicate reports whether err is a MySQL duplicate-entry error (1062),
// optionally scoped to a key name appearing in the message.
func isDuplicate(err error, key string) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	if !strings.Contains(msg, "1062") {
		return false
	}
	return key == "" || strings.Contains(msg, key)
}
