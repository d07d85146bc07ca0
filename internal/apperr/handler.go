package apperr

import (
	"net/http"
	"runtime/debug"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// errorBody is the structured failure envelope. Stack is populated only
// outside production.
type errorBody struct {
	Success bool   `json:"success"`
	Name    string `json:"name"`
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

// HTTPErrorHandler renders ApiError, validator and Echo errors as
// {success:false, name, message}. Unknown errors become a 500 with the
// detail kept in the log, not the response.
func HTTPErrorHandler(production bool, log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		body := errorBody{Name: "InternalServerError", Message: "something went wrong"}
		status := http.StatusInternalServerError

		switch e := err.(type) {
		case *ApiError:
			status = e.Status
			body.Name = e.Name
			body.Message = e.Message
		case validator.ValidationErrors:
			status = http.StatusBadRequest
			body.Name = "ValidationError"
			body.Message = e.Error()
		case *echo.HTTPError:
			status = e.Code
			body.Name = http.StatusText(e.Code)
			if msg, ok := e.Message.(string); ok {
				body.Message = msg
			}
		}

		if status >= http.StatusInternalServerError {
			log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
			if !production {
				body.Stack = string(debug.Stack())
			}
		}

		if jsonErr := c.JSON(status, body); jsonErr != nil {
			log.Error().Err(jsonErr).Msg("failed writing error response")
		}
	}
}
