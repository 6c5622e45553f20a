// Package router wires handlers, middleware and rate limits onto routes.
package router

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iliyamo/hr-records-api/internal/auth"
	"github.com/iliyamo/hr-records-api/internal/config"
	"github.com/iliyamo/hr-records-api/internal/handler"
	"github.com/iliyamo/hr-records-api/internal/metrics"
	"github.com/iliyamo/hr-records-api/internal/middleware"
)

// Deps carries everything the routes need, injected from main.
type Deps struct {
	Auth      *handler.AuthHandler
	Employees *handler.EmployeeHandler
	Issuer    *auth.Issuer
	Redis     *redis.Client
	Log       zerolog.Logger
}

// Register sets up all routes. Credential endpoints get per-IP rate limits
// (login 5/min, refresh 10/min by default); everything under /v1 except
// login and refresh requires a valid access token, and employee writes are
// additionally restricted to the admin and manager roles.
func Register(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	jwtAuth := middleware.JWTAuth(d.Issuer, d.Log)
	loginLimit := middleware.RateLimit(d.Redis, config.LoadRateLimit("login", 5, 12*time.Second), d.Log)
	refreshLimit := middleware.RateLimit(d.Redis, config.LoadRateLimit("refresh", 10, 6*time.Second), d.Log)

	g := e.Group("/v1/auth")
	g.POST("/login", d.Auth.Login, loginLimit)
	g.POST("/refresh", d.Auth.Refresh, refreshLimit)
	g.GET("/me", d.Auth.Me, jwtAuth)
	g.POST("/logout", d.Auth.Logout, jwtAuth)

	emp := e.Group("/v1/employees", jwtAuth)
	emp.GET("", d.Employees.Index)
	emp.GET("/:id", d.Employees.Show)

	staff := middleware.RequireRole("admin", "manager")
	emp.POST("", d.Employees.Store, staff)
	emp.PUT("/:id", d.Employees.Update, staff)
	emp.DELETE("/:id", d.Employees.Destroy, staff)
}
