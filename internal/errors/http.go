package errors

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// HTTPErrorResponse represents the structure of error responses sent to clients
type HTTPErrorResponse struct {
	Error   ErrorInfo              `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// ErrorInfo contains the core error information
type ErrorInfo struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	Hint    string    `json:"hint,omitempty"`
}

// ToHTTPError converts a KeepwarmError to an Echo HTTP error
func ToHTTPError(err error) error {
	if ke, ok := As(err); ok {
		details := ke.Details
		if ke.Cause != nil {
			if details != "" {
				details += ": "
			}
			details += ke.Cause.Error()
		}
		return echo.NewHTTPError(ke.GetHTTPStatus(), HTTPErrorResponse{
			Error: ErrorInfo{
				Code:    ke.Code,
				Message: ke.Message,
				Details: details,
				Hint:    ke.Hint,
			},
			Context: ke.Context,
		})
	}

	return echo.NewHTTPError(http.StatusInternalServerError, HTTPErrorResponse{
		Error: ErrorInfo{
			Code:    ErrInternal,
			Message: "Internal server error",
			Details: err.Error(),
		},
	})
}

// HandleError is a helper function for consistent error handling in HTTP handlers
func HandleError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	return ToHTTPError(err)
}

// BadRequest creates a 400 Bad Request error
func BadRequest(message, details string) error {
	return echo.NewHTTPError(http.StatusBadRequest, HTTPErrorResponse{
		Error: ErrorInfo{
			Code:    ErrInvalidInput,
			Message: message,
			Details: details,
		},
	})
}
