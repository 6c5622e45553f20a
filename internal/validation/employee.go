// Package validation checks request payloads field by field and reports
// every violation at once, as a map of field name to messages.
package validation

import (
	"net/mail"
	"strconv"
	"time"

	"github.com/iliyamo/hr-records-api/internal/repository"
)

// Errors collects field-level validation messages.
type Errors map[string][]string

func (e Errors) Add(field, msg string) { e[field] = append(e[field], msg) }

// Any reports whether at least one violation was recorded.
func (e Errors) Any() bool { return len(e) > 0 }

// EmployeeInput is the request shape for creating or updating an employee.
// Every field is a pointer so updates can be partial: nil means "not sent".
type EmployeeInput struct {
	FirstName                    *string  `json:"first_name"`
	MiddleName                   *string  `json:"middle_name"`
	LastName                     *string  `json:"last_name"`
	PersonalEmail                *string  `json:"personal_email"`
	EmployeeNo                   *string  `json:"employee_no"`
	DateOfBirth                  *string  `json:"date_of_birth"`
	DateHired                    *string  `json:"date_hired"`
	PhoneNumber                  *string  `json:"phone_number"`
	Address                      *string  `json:"address"`
	City                         *string  `json:"city"`
	State                        *string  `json:"state"`
	ZipCode                      *string  `json:"zip_code"`
	Country                      *string  `json:"country"`
	Gender                       *string  `json:"gender"`
	Nationality                  *string  `json:"nationality"`
	MaritalStatus                *string  `json:"marital_status"`
	EmergencyContactName         *string  `json:"emergency_contact_name"`
	EmergencyContactPhone        *string  `json:"emergency_contact_phone"`
	EmergencyContactRelationship *string  `json:"emergency_contact_relationship"`
	HeightCM                     *float64 `json:"height_cm"`
	WeightKG                     *float64 `json:"weight_kg"`
}

// ValidateEmployee checks in against the employee field rules. With
// partial=false (create) the required fields must be present; with
// partial=true (update) absent fields are skipped but present fields must
// still satisfy their rules.
func ValidateEmployee(in *EmployeeInput, partial bool) Errors {
	errs := Errors{}

	requiredStr(errs, "first_name", in.FirstName, partial)
	maxLen(errs, "first_name", in.FirstName, 255)
	maxLen(errs, "middle_name", in.MiddleName, 255)
	requiredStr(errs, "last_name", in.LastName, partial)
	maxLen(errs, "last_name", in.LastName, 255)

	requiredStr(errs, "personal_email", in.PersonalEmail, partial)
	if in.PersonalEmail != nil && *in.PersonalEmail != "" {
		if _, err := mail.ParseAddress(*in.PersonalEmail); err != nil {
			errs.Add("personal_email", "must be a valid email address")
		}
	}
	maxLen(errs, "employee_no", in.EmployeeNo, 255)

	if in.DateOfBirth != nil {
		if d, ok := parseDate(errs, "date_of_birth", *in.DateOfBirth); ok {
			today := time.Now().UTC().Truncate(24 * time.Hour)
			if !d.Before(today) {
				errs.Add("date_of_birth", "must be before today")
			}
		}
	}
	if in.DateHired != nil {
		parseDate(errs, "date_hired", *in.DateHired)
	}

	maxLen(errs, "phone_number", in.PhoneNumber, 20)
	maxLen(errs, "city", in.City, 255)
	maxLen(errs, "state", in.State, 255)
	maxLen(errs, "zip_code", in.ZipCode, 10)
	maxLen(errs, "country", in.Country, 255)

	if in.Gender != nil {
		switch *in.Gender {
		case "male", "female", "other":
		default:
			errs.Add("gender", "must be one of: male, female, other")
		}
	}

	maxLen(errs, "nationality", in.Nationality, 255)
	maxLen(errs, "marital_status", in.MaritalStatus, 255)
	maxLen(errs, "emergency_contact_name", in.EmergencyContactName, 255)
	maxLen(errs, "emergency_contact_phone", in.EmergencyContactPhone, 20)
	maxLen(errs, "emergency_contact_relationship", in.EmergencyContactRelationship, 255)

	numRange(errs, "height_cm", in.HeightCM, 50, 250)
	numRange(errs, "weight_kg", in.WeightKG, 20, 300)

	return errs
}

// Apply copies every field that was sent onto the record. Call only after
// ValidateEmployee came back clean.
func (in *EmployeeInput) Apply(e *repository.Employee) {
	if in.FirstName != nil {
		e.FirstName = *in.FirstName
	}
	if in.MiddleName != nil {
		e.MiddleName = in.MiddleName
	}
	if in.LastName != nil {
		e.LastName = *in.LastName
	}
	if in.PersonalEmail != nil {
		e.PersonalEmail = *in.PersonalEmail
	}
	if in.EmployeeNo != nil {
		e.EmployeeNo = in.EmployeeNo
	}
	if in.DateOfBirth != nil {
		e.DateOfBirth = in.DateOfBirth
	}
	if in.DateHired != nil {
		e.DateHired = in.DateHired
	}
	if in.PhoneNumber != nil {
		e.PhoneNumber = in.PhoneNumber
	}
	if in.Address != nil {
		e.Address = in.Address
	}
	if in.City != nil {
		e.City = in.City
	}
	if in.State != nil {
		e.State = in.State
	}
	if in.ZipCode != nil {
		e.ZipCode = in.ZipCode
	}
	if in.Country != nil {
		e.Country = in.Country
	}
	if in.Gender != nil {
		e.Gender = in.Gender
	}
	if in.Nationality != nil {
		e.Nationality = in.Nationality
	}
	if in.MaritalStatus != nil {
		e.MaritalStatus = in.MaritalStatus
	}
	if in.EmergencyContactName != nil {
		e.EmergencyContactName = in.EmergencyContactName
	}
	if in.EmergencyContactPhone != nil {
		e.EmergencyContactPhone = in.EmergencyContactPhone
	}
	if in.EmergencyContactRelationship != nil {
		e.EmergencyContactRelationship = in.EmergencyContactRelationship
	}
	if in.HeightCM != nil {
		e.HeightCM = in.HeightCM
	}
	if in.WeightKG != nil {
		e.WeightKG = in.WeightKG
	}
}

func requiredStr(errs Errors, field string, v *string, partial bool) {
	if v == nil {
		if !partial {
			errs.Add(field, "is required")
		}
		return
	}
	if *v == "" {
		errs.Add(field, "is required")
	}
}

func maxLen(errs Errors, field string, v *string, n int) {
	if v != nil && len(*v) > n {
		errs.Add(field, "may not be greater than "+strconv.Itoa(n)+" characters")
	}
}

func numRange(errs Errors, field string, v *float64, lo, hi float64) {
	if v == nil {
		return
	}
	if *v < lo || *v > hi {
		errs.Add(field, "must be between "+
			strconv.FormatFloat(lo, 'f', -1, 64)+" and "+
			strconv.FormatFloat(hi, 'f', -1, 64))
	}
}

func parseDate(errs Errors, field, s string) (time.Time, bool) {
	d, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		errs.Add(field, "must be a valid date (YYYY-MM-DD)")
		return time.Time{}, false
	}
	return d, true
}
