package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Employee mirrors the 'employees' table. Optional columns are pointers so
// the record marshals with explicit nulls. DATE columns are carried as
// "YYYY-MM-DD" strings.
type Employee struct {
	ID                           string    `json:"id"`
	FirstName                    string    `json:"first_name"`
	MiddleName                   *string   `json:"middle_name"`
	LastName                     string    `json:"last_name"`
	PersonalEmail                string    `json:"personal_email"`
	EmployeeNo                   *string   `json:"employee_no"`
	DateOfBirth                  *string   `json:"date_of_birth"`
	DateHired                    *string   `json:"date_hired"`
	PhoneNumber                  *string   `json:"phone_number"`
	Address                      *string   `json:"address"`
	City                         *string   `json:"city"`
	State                        *string   `json:"state"`
	ZipCode                      *string   `json:"zip_code"`
	Country                      *string   `json:"country"`
	Gender                       *string   `json:"gender"`
	Nationality                  *string   `json:"nationality"`
	MaritalStatus                *string   `json:"marital_status"`
	EmergencyContactName         *string   `json:"emergency_contact_name"`
	EmergencyContactPhone        *string   `json:"emergency_contact_phone"`
	EmergencyContactRelationship *string   `json:"emergency_contact_relationship"`
	HeightCM                     *float64  `json:"height_cm"`
	WeightKG                     *float64  `json:"weight_kg"`
	CreatedAt                    time.Time `json:"created_at"`
	UpdatedAt                    time.Time `json:"updated_at"`
}

// EmployeeSearchQuery defines filters & pagination for the employee index.
type EmployeeSearchQuery struct {
	Search   string // substring over first/last name, personal email, employee number
	Gender   string // exact match when set
	Page     int
	PageSize int
}

type EmployeeRepo struct{ DB *sql.DB }

func NewEmployeeRepo(db *sql.DB) *EmployeeRepo { return &EmployeeRepo{DB: db} }

const employeeColumns = `id, first_name, middle_name, last_name, personal_email, employee_no,
		date_of_birth, date_hired, phone_number, address, city, state, zip_code, country,
		gender, nationality, marital_status, emergency_contact_name, emergency_contact_phone,
		emergency_contact_relationship, height_cm, weight_kg, created_at, updated_at`

// Create inserts an employee and fills in its generated ID.
func (r *EmployeeRepo) Create(ctx context.Context, e *Employee) error {
	e.ID = uuid.NewString()
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO employees (id, first_name, middle_name, last_name, personal_email, employee_no,
			date_of_birth, date_hired, phone_number, address, city, state, zip_code, country,
			gender, nationality, marital_status, emergency_contact_name, emergency_contact_phone,
			emergency_contact_relationship, height_cm, weight_kg)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		e.ID, e.FirstName, e.MiddleName, e.LastName, e.PersonalEmail, e.EmployeeNo,
		e.DateOfBirth, e.DateHired, e.PhoneNumber, e.Address, e.City, e.State, e.ZipCode, e.Country,
		e.Gender, e.Nationality, e.MaritalStatus, e.EmergencyContactName, e.EmergencyContactPhone,
		e.EmergencyContactRelationship, e.HeightCM, e.WeightKG)
	return mapEmployeeDuplicate(err)
}

// GetByID fetches a single employee; sql.ErrNoRows when absent.
func (r *EmployeeRepo) GetByID(ctx context.Context, id string) (Employee, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+employeeColumns+" FROM employees WHERE id=? LIMIT 1", id)
	return scanEmployee(row)
}

// Update writes the full record back. sql.ErrNoRows when the id is gone.
func (r *EmployeeRepo) Update(ctx context.Context, e *Employee) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE employees SET first_name=?, middle_name=?, last_name=?, personal_email=?, employee_no=?,
			date_of_birth=?, date_hired=?, phone_number=?, address=?, city=?, state=?, zip_code=?, country=?,
			gender=?, nationality=?, marital_status=?, emergency_contact_name=?, emergency_contact_phone=?,
			emergency_contact_relationship=?, height_cm=?, weight_kg=?
		WHERE id=?`,
		e.FirstName, e.MiddleName, e.LastName, e.PersonalEmail, e.EmployeeNo,
		e.DateOfBirth, e.DateHired, e.PhoneNumber, e.Address, e.City, e.State, e.ZipCode, e.Country,
		e.Gender, e.Nationality, e.MaritalStatus, e.EmergencyContactName, e.EmergencyContactPhone,
		e.EmergencyContactRelationship, e.HeightCM, e.WeightKG, e.ID)
	if err != nil {
		return mapEmployeeDuplicate(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Either gone or a no-op update; distinguish so a deleted row 404s.
		if _, err := r.GetByID(ctx, e.ID); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes an employee. The delete is refused with ErrEmployeeHasUser
// when a user account still references the row; this rule lives here rather
// than in the schema so the API can report it as a conflict instead of a
// foreign key failure.
func (r *EmployeeRepo) Delete(ctx context.Context, id string) error {
	var users int
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE employee_id=?", id).Scan(&users); err != nil {
		return err
	}
	if users > 0 {
		return ErrEmployeeHasUser
	}
	res, err := r.DB.ExecContext(ctx, "DELETE FROM employees WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Search returns a page of employees plus the total match count.
func (r *EmployeeRepo) Search(ctx context.Context, q EmployeeSearchQuery) ([]Employee, int64, error) {
	where := []string{}
	args := []any{}

	if q.Search != "" {
		like := "%" + strings.ToLower(q.Search) + "%"
		where = append(where,
			"(LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(personal_email) LIKE ? OR LOWER(employee_no) LIKE ?)")
		args = append(args, like, like, like, like)
	}
	if q.Gender != "" {
		where = append(where, "gender = ?")
		args = append(args, q.Gender)
	}

	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	var total int64
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM employees WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := q.PageSize
	offset := (q.Page - 1) * q.PageSize
	argsData := append(append([]any{}, args...), limit, offset)

	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+employeeColumns+" FROM employees WHERE "+cond+
			" ORDER BY last_name, first_name LIMIT ? OFFSET ?", argsData...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]Employee, 0, limit)
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func mapEmployeeDuplicate(err error) error {
	switch {
	case err == nil:
		return nil
	case isDuplicate(err, "personal_email"):
		return ErrPersonalEmailExists
	case isDuplicate(err, "employee_no"):
		return ErrEmployeeNoExists
	}
	return err
}

type rowScanner interface{ Scan(dest ...any) error }

func scanEmployee(row rowScanner) (Employee, error) {
	var (
		e        Employee
		dob, doh sql.NullTime
	)
	err := row.Scan(
		&e.ID, &e.FirstName, &e.MiddleName, &e.LastName, &e.PersonalEmail, &e.EmployeeNo,
		&dob, &doh, &e.PhoneNumber, &e.Address, &e.City, &e.State, &e.ZipCode, &e.Country,
		&e.Gender, &e.Nationality, &e.MaritalStatus, &e.EmergencyContactName, &e.EmergencyContactPhone,
		&e.EmergencyContactRelationship, &e.HeightCM, &e.WeightKG, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return Employee{}, err
	}
	if dob.Valid {
		s := dob.Time.Format("2006-01-02")
		e.DateOfBirth = &s
	}
	if doh.Valid {
		s := doh.Time.Format("2006-01-02")
		e.DateHired = &s
	}
	return e, nil
}
