package server

import (
	"net/http"

	"keepwarm/internal/errors"
	"keepwarm/internal/logger"

	"github.com/labstack/echo/v4"
)

// ErrorHandler renders every error as an errors.HTTPErrorResponse body
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	var body interface{}

	he, ok := err.(*echo.HTTPError)
	if !ok {
		he, _ = errors.ToHTTPError(err).(*echo.HTTPError)
	}
	if he != nil {
		code = he.Code
		switch msg := he.Message.(type) {
		case errors.HTTPErrorResponse:
			body = msg
		case string:
			body = errors.HTTPErrorResponse{Error: errors.ErrorInfo{Code: codeForStatus(code), Message: msg}}
		}
	}
	if body == nil {
		body = errors.HTTPErrorResponse{Error: errors.ErrorInfo{Code: errors.ErrInternal, Message: http.StatusText(code)}}
	}

	if code >= http.StatusInternalServerError {
		logger.GetLogger(c).WithError(err).Error("Request error")
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, body)
}

func codeForStatus(status int) errors.ErrorCode {
	switch status {
	case http.StatusNotFound:
		return errors.ErrNotFound
	case http.StatusBadRequest, http.StatusMethodNotAllowed:
		return errors.ErrInvalidInput
	default:
		return errors.ErrInternal
	}
}
