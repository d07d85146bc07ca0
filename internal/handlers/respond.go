// Package handlers contains the Echo controllers. Write endpoints follow
// one path: validate, write the cache projection, emit the realtime event,
// enqueue exactly one background job, respond.
package handlers

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/gitdev-app/backend/internal/middleware"
	"github.com/gitdev-app/backend/internal/models"
)

// Response is the envelope every endpoint returns.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func respond(c echo.Context, status int, message string, data any) error {
	return c.JSON(status, Response{Success: true, Message: message, Data: data})
}

// Enqueuer is the slice of a queue the handlers depend on.
type Enqueuer interface {
	Enqueue(ctx context.Context, jobName string, payload any) error
}

// Broadcaster is the slice of the realtime hub the handlers depend on.
type Broadcaster interface {
	Emit(namespace, event string, payload any)
	EmitToUser(namespace, userID, event string, payload any)
}

// RequestValidator adapts go-playground/validator to Echo's Validator
// interface.
type RequestValidator struct {
	validate *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	return &RequestValidator{validate: validator.New()}
}

func (v *RequestValidator) Validate(i any) error {
	return v.validate.Struct(i)
}

func currentUser(c echo.Context) *models.JwtCustomClaims {
	return middleware.CurrentUser(c)
}
