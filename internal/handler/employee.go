package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/hr-records-api/internal/middleware"
	"github.com/iliyamo/hr-records-api/internal/queue"
	"github.com/iliyamo/hr-records-api/internal/repository"
	"github.com/iliyamo/hr-records-api/internal/validation"
)

const (
	defaultPerPage = 15
	maxPerPage     = 100
)

// EmployeeStore is the employee directory surface the handlers need.
type EmployeeStore interface {
	Create(ctx context.Context, e *repository.Employee) error
	GetByID(ctx context.Context, id string) (repository.Employee, error)
	Update(ctx context.Context, e *repository.Employee) error
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, q repository.EmployeeSearchQuery) ([]repository.Employee, int64, error)
}

// AuditFunc publishes an employee change event. Failures are logged, never
// surfaced: the write has already committed.
type AuditFunc func(ctx context.Context, ev queue.EmployeeChangedEvent) error

// EmployeeHandler serves the employee CRUD endpoints.
type EmployeeHandler struct {
	Employees EmployeeStore
	Audit     AuditFunc
	Log       zerolog.Logger
}

func NewEmployeeHandler(store EmployeeStore, audit AuditFunc, log zerolog.Logger) *EmployeeHandler {
	return &EmployeeHandler{Employees: store, Audit: audit, Log: log}
}

// Index lists employees with substring search, gender filter and
// pagination. GET /v1/employees?search=&gender=&per_page=&page=
func (h *EmployeeHandler) Index(c echo.Context) error {
	q := repository.EmployeeSearchQuery{
		Search:   c.QueryParam("search"),
		Gender:   c.QueryParam("gender"),
		Page:     1,
		PageSize: defaultPerPage,
	}
	if v, err := strconv.Atoi(c.QueryParam("page")); err == nil && v > 0 {
		q.Page = v
	}
	if v, err := strconv.Atoi(c.QueryParam("per_page")); err == nil && v > 0 {
		q.PageSize = v
		if q.PageSize > maxPerPage {
			q.PageSize = maxPerPage
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	items, total, err := h.Employees.Search(ctx, q)
	if err != nil {
		h.Log.Error().Err(err).Str("user_id", middleware.UserID(c)).Msg("employee index failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "An error occurred while retrieving employees."})
	}

	lastPage := int((total + int64(q.PageSize) - 1) / int64(q.PageSize))
	if lastPage < 1 {
		lastPage = 1
	}
	return c.JSON(http.StatusOK, echo.Map{
		"data": echo.Map{
			"data":         items,
			"total":        total,
			"per_page":     q.PageSize,
			"current_page": q.Page,
			"last_page":    lastPage,
		},
		"message": "Employees retrieved successfully.",
	})
}

// Store creates an employee. POST /v1/employees
func (h *EmployeeHandler) Store(c echo.Context) error {
	var in validation.EmployeeInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid request body."})
	}
	if errs := validation.ValidateEmployee(&in, false); errs.Any() {
		return validationFailed(c, errs)
	}

	var e repository.Employee
	in.Apply(&e)

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Employees.Create(ctx, &e); err != nil {
		if errs, ok := uniquenessErrors(err); ok {
			return validationFailed(c, errs)
		}
		h.Log.Error().Err(err).Str("user_id", middleware.UserID(c)).Msg("employee create failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "An error occurred while creating the employee."})
	}

	h.Log.Info().Str("employee_id", e.ID).Str("created_by", middleware.UserID(c)).Msg("employee created")
	h.publishAudit(c, "created", &e)
	return c.JSON(http.StatusCreated, echo.Map{
		"data":    e,
		"message": "Employee created successfully.",
	})
}

// Show returns a single employee. GET /v1/employees/:id
func (h *EmployeeHandler) Show(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	e, err := h.Employees.GetByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "Employee not found."})
		}
		h.Log.Error().Err(err).Str("employee_id", c.Param("id")).Msg("employee show failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "An error occurred while retrieving the employee."})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"data":    e,
		"message": "Employee retrieved successfully.",
	})
}

// Update applies a partial update. PUT /v1/employees/:id
func (h *EmployeeHandler) Update(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	e, err := h.Employees.GetByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "Employee not found."})
		}
		h.Log.Error().Err(err).Str("employee_id", c.Param("id")).Msg("employee load failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "An error occurred while updating the employee."})
	}

	var in validation.EmployeeInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid request body."})
	}
	if errs := validation.ValidateEmployee(&in, true); errs.Any() {
		return validationFailed(c, errs)
	}
	in.Apply(&e)

	if err := h.Employees.Update(ctx, &e); err != nil {
		if errs, ok := uniquenessErrors(err); ok {
			return validationFailed(c, errs)
		}
		h.Log.Error().Err(err).Str("employee_id", e.ID).Str("user_id", middleware.UserID(c)).Msg("employee update failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "An error occurred while updating the employee."})
	}

	h.Log.Info().Str("employee_id", e.ID).Str("updated_by", middleware.UserID(c)).Msg("employee updated")
	h.publishAudit(c, "updated", &e)
	return c.JSON(http.StatusOK, echo.Map{
		"data":    e,
		"message": "Employee updated successfully.",
	})
}

// Destroy deletes an employee unless a user account references it.
// DELETE /v1/employees/:id
func (h *EmployeeHandler) Destroy(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	e, err := h.Employees.GetByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "Employee not found."})
		}
		h.Log.Error().Err(err).Str("employee_id", c.Param("id")).Msg("employee load failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "An error occurred while deleting the employee."})
	}

	if err := h.Employees.Delete(ctx, e.ID); err != nil {
		switch {
		case errors.Is(err, repository.ErrEmployeeHasUser):
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{"message": "Cannot delete employee with associated user account."})
		case errors.Is(err, sql.ErrNoRows):
			return c.JSON(http.StatusNotFound, echo.Map{"message": "Employee not found."})
		}
		h.Log.Error().Err(err).Str("employee_id", e.ID).Str("user_id", middleware.UserID(c)).Msg("employee delete failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "An error occurred while deleting the employee."})
	}

	h.Log.Info().Str("employee_id", e.ID).Str("deleted_by", middleware.UserID(c)).Msg("employee deleted")
	h.publishAudit(c, "deleted", &e)
	return c.JSON(http.StatusOK, echo.Map{"message": "Employee deleted successfully."})
}

func (h *EmployeeHandler) publishAudit(c echo.Context, action string, e *repository.Employee) {
	if h.Audit == nil {
		return
	}
	no := ""
	if e.EmployeeNo != nil {
		no = *e.EmployeeNo
	}
	ev := queue.EmployeeChangedEvent{
		EmployeeID:    e.ID,
		Action:        action,
		PersonalEmail: e.PersonalEmail,
		EmployeeNo:    no,
		ActorID:       middleware.UserID(c),
		OccurredAt:    time.Now().UTC().Format(time.RFC3339),
	}
	if err := h.Audit(c.Request().Context(), ev); err != nil {
		h.Log.Warn().Err(err).Str("employee_id", e.ID).Msg("audit publish failed")
	}
}

func uniquenessErrors(err error) (validation.Errors, bool) {
	errs := validation.Errors{}
	switch {
	case errors.Is(err, repository.ErrPersonalEmailExists):
		errs.Add("personal_email", "This email address is already in use.")
	case errors.Is(err, repository.ErrEmployeeNoExists):
		errs.Add("employee_no", "This employee number is already in use.")
	default:
		return nil, false
	}
	return errs, true
}
