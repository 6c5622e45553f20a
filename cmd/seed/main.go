// Seed inserts the baseline accounts: admin, manager and employee users
// (password "password"), each linked to an employee profile. Safe to rerun;
// existing rows are matched by email and left in place.
package main

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/iliyamo/hr-records-api/internal/config"
	"github.com/iliyamo/hr-records-api/internal/database"
	"github.com/iliyamo/hr-records-api/internal/repository"
	"github.com/iliyamo/hr-records-api/internal/utils"
)

type seedAccount struct {
	email          string
	role           string
	firstTimeLogin bool

	firstName  string
	middleName string
	lastName   string
	employeeNo string
	birthDate  string
	hiredDate  string
	phone      string
	gender     string
}

var accounts = []seedAccount{
	{
		email: "admin@example.com", role: "admin", firstTimeLogin: false,
		firstName: "John", middleName: "Admin", lastName: "Doe",
		employeeNo: "ADM001", birthDate: "1985-01-15", hiredDate: "2020-01-01",
		phone: "+1-555-0101", gender: "male",
	},
	{
		email: "manager@example.com", role: "manager", firstTimeLogin: false,
		firstName: "Jane", middleName: "Manager", lastName: "Smith",
		employeeNo: "MGR001", birthDate: "1988-03-22", hiredDate: "2021-06-15",
		phone: "+1-555-0102", gender: "female",
	},
	{
		email: "employee@example.com", role: "employee", firstTimeLogin: true,
		firstName: "Bob", middleName: "Regular", lastName: "Johnson",
		employeeNo: "EMP001", birthDate: "1992-07-10", hiredDate: "2022-09-01",
		phone: "+1-555-0103", gender: "male",
	},
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, a := range accounts {
		empID, err := ensureEmployee(ctx, db, a)
		if err != nil {
			log.Fatalf("seed employee %s: %v", a.email, err)
		}
		if err := ensureUser(ctx, db, a, empID, cfg.BcryptCost); err != nil {
			log.Fatalf("seed user %s: %v", a.email, err)
		}
		log.Printf("seeded %s (%s)", a.email, a.role)
	}
}

func ensureEmployee(ctx context.Context, db *sql.DB, a seedAccount) (string, error) {
	var id string
	err := db.QueryRowContext(ctx,
		"SELECT id FROM employees WHERE personal_email=?", a.email).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return "", err
	}
	id = uuid.NewString()
	_, err = db.ExecContext(ctx,
		`INSERT INTO employees (id, first_name, middle_name, last_name, personal_email, employee_no,
			date_of_birth, date_hired, phone_number, gender)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		id, a.firstName, a.middleName, a.lastName, a.email, a.employeeNo,
		a.birthDate, a.hiredDate, a.phone, a.gender)
	return id, err
}

func ensureUser(ctx context.Context, db *sql.DB, a seedAccount, employeeID string, cost int) error {
	var (
		id  string
		emp sql.NullString
	)
	err := db.QueryRowContext(ctx, "SELECT id, employee_id FROM users WHERE email=?", a.email).Scan(&id, &emp)
	if err == nil {
		if !emp.Valid {
			// Rerun after a partial seed: attach the profile to the account.
			return repository.NewUserRepo(db).LinkEmployee(ctx, id, employeeID)
		}
		return nil
	}
	if err != sql.ErrNoRows {
		return err
	}
	hash, err := utils.HashPassword("password", cost)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx,
		"INSERT INTO users (id, email, password_hash, role, employee_id, first_time_login) VALUES (?,?,?,?,?,?)",
		uuid.NewString(), a.email, hash, a.role, employeeID, a.firstTimeLogin)
	return err
}
