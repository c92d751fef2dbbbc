package server

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"keepwarm/internal/constants"
	"keepwarm/internal/errors"
	"keepwarm/internal/lifecycle"

	"github.com/labstack/echo/v4"
)

// handleGetInstanceLogs godoc
// @Summary Get instance logs
// @Description Returns the last lines of an instance's container logs
// @Tags instances
// @Produce json
// @Param name path string true "Instance name"
// @Param tail query int false "Number of lines to retrieve" default(100)
// @Success 200 {object} LogsResponse
// @Failure 400 {object} errors.HTTPErrorResponse
// @Failure 404 {object} errors.HTTPErrorResponse
// @Router /instances/{name}/logs [get]
func (s *Server) handleGetInstanceLogs(c echo.Context) error {
	name := c.Param("name")

	tail, err := parseTail(c.QueryParam("tail"))
	if err != nil {
		return errors.HandleError(c, err)
	}

	var buf bytes.Buffer
	if err := s.manager.Logs(c.Request().Context(), name, lifecycle.LogsOptions{Tail: tail}, &buf); err != nil {
		return errors.HandleError(c, err)
	}

	lines := []string{}
	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}

	return c.JSON(http.StatusOK, LogsResponse{Name: name, Tail: tail, Lines: lines})
}

// parseTail reads a tail query value; empty means the default
func parseTail(raw string) (int, error) {
	if raw == "" {
		return constants.DefaultLogTailLines, nil
	}
	tail, err := strconv.Atoi(raw)
	if err != nil || tail < 0 {
		return 0, errors.InvalidInput("tail", "must be a non-negative integer")
	}
	return tail, nil
}
