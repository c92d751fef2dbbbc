package server

import (
	"net/http"
	"time"

	"keepwarm/internal/db"
	"keepwarm/internal/errors"
	"keepwarm/internal/lifecycle"
	"keepwarm/internal/validation"

	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"
)

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.echo.GET("/swagger/*", echoSwagger.WrapHandler)
	s.echo.GET("/health", s.handleHealth)

	api := s.echo.Group("/api")

	instances := api.Group("/instances")
	instances.GET("", s.handleListInstances)
	instances.POST("", s.handleStartInstance)
	instances.GET("/:name", s.handleGetInstance)
	instances.DELETE("/:name", s.handleStopInstance)
	instances.GET("/:name/logs", s.handleGetInstanceLogs)
	instances.GET("/:name/logs/ws", s.handleFollowInstanceLogs)

	api.GET("/history", s.handleListHistory)
}

// handleHealth godoc
// @Summary Health check
// @Description Reports server uptime, the selected runtime and history database health
// @Tags system
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health [get]
func (s *Server) handleHealth(c echo.Context) error {
	resp := HealthResponse{
		Status:  "healthy",
		Uptime:  time.Since(s.startTime).Round(time.Second).String(),
		Runtime: s.runtime,
	}

	if s.database != nil {
		ctx := c.Request().Context()
		if err := s.database.HealthCheck(ctx); err != nil {
			resp.Status = "degraded"
			resp.Database = "unhealthy"
			return c.JSON(http.StatusServiceUnavailable, resp)
		}
		resp.Database = "healthy"
		if info, err := s.database.GetCurrentVersion(ctx); err == nil {
			resp.SchemaVersion = info.Version
		}
	}

	return c.JSON(http.StatusOK, resp)
}

// handleListInstances godoc
// @Summary List instances
// @Description Lists every recorded instance with a fresh liveness check
// @Tags instances
// @Produce json
// @Success 200 {object} InstancesResponse
// @Failure 500 {object} errors.HTTPErrorResponse
// @Router /instances [get]
func (s *Server) handleListInstances(c echo.Context) error {
	infos, err := s.manager.List(c.Request().Context())
	if err != nil {
		return errors.HandleError(c, err)
	}
	return c.JSON(http.StatusOK, InstancesResponse{Instances: infos, Total: len(infos)})
}

// handleStartInstance godoc
// @Summary Start an instance
// @Description Starts a named worker; without a port the port is discovered from the worker's logs
// @Tags instances
// @Accept json
// @Produce json
// @Param request body StartInstanceRequest true "Instance to start"
// @Success 201 {object} StartInstanceResponse
// @Failure 400 {object} errors.HTTPErrorResponse
// @Failure 409 {object} errors.HTTPErrorResponse
// @Failure 504 {object} errors.HTTPErrorResponse
// @Router /instances [post]
func (s *Server) handleStartInstance(c echo.Context) error {
	var req StartInstanceRequest
	if err := c.Bind(&req); err != nil {
		return errors.BadRequest("Invalid request body", err.Error())
	}
	if err := validation.InstanceName(req.Name); err != nil {
		return errors.HandleError(c, err)
	}

	result, err := s.manager.Start(c.Request().Context(), req.Name, lifecycle.StartOptions{
		Port:          req.Port,
		Model:         req.Model,
		LogLevel:      req.LogLevel,
		AuxConfigPath: req.AuxConfigPath,
		SkipDeps:      req.SkipDeps,
	})
	if err != nil {
		return errors.HandleError(c, err)
	}

	return c.JSON(http.StatusCreated, StartInstanceResponse{
		Instance:   result.Record,
		Discovered: result.Discovered,
	})
}

// handleGetInstance godoc
// @Summary Get instance status
// @Tags instances
// @Produce json
// @Param name path string true "Instance name"
// @Success 200 {object} lifecycle.InstanceInfo
// @Failure 404 {object} errors.HTTPErrorResponse
// @Router /instances/{name} [get]
func (s *Server) handleGetInstance(c echo.Context) error {
	info, err := s.manager.Status(c.Request().Context(), c.Param("name"))
	if err != nil {
		return errors.HandleError(c, err)
	}
	return c.JSON(http.StatusOK, info)
}

// handleStopInstance godoc
// @Summary Stop an instance
// @Description Stops the instance's container and deletes its record
// @Tags instances
// @Produce json
// @Param name path string true "Instance name"
// @Success 200 {object} StopInstanceResponse
// @Failure 404 {object} errors.HTTPErrorResponse
// @Failure 500 {object} errors.HTTPErrorResponse
// @Router /instances/{name} [delete]
func (s *Server) handleStopInstance(c echo.Context) error {
	name := c.Param("name")
	rec, err := s.manager.Stop(c.Request().Context(), name)
	if err != nil {
		return errors.HandleError(c, err)
	}
	return c.JSON(http.StatusOK, StopInstanceResponse{
		Name:            name,
		ContainerHandle: rec.ContainerHandle,
		Message:         "Instance stopped",
	})
}

// handleListHistory godoc
// @Summary List lifecycle history
// @Tags history
// @Produce json
// @Param instance query string false "Instance name"
// @Param page query int false "Page" default(1)
// @Param page_size query int false "Page size" default(20)
// @Success 200 {object} db.PaginatedResponse[db.Event]
// @Failure 400 {object} errors.HTTPErrorResponse
// @Failure 503 {object} errors.HTTPErrorResponse
// @Router /history [get]
func (s *Server) handleListHistory(c echo.Context) error {
	if s.history == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, errors.HTTPErrorResponse{
			Error: errors.ErrorInfo{
				Code:    errors.ErrDatabase,
				Message: "History is disabled",
				Hint:    "set [history] enabled = true in config.toml",
			},
		})
	}

	filter := db.HistoryFilter{
		InstanceName:      c.QueryParam("instance"),
		PaginationOptions: db.DefaultPaginationOptions(),
	}
	if err := echo.QueryParamsBinder(c).
		Int("page", &filter.Page).
		Int("page_size", &filter.PageSize).
		BindError(); err != nil {
		return errors.BadRequest("Invalid pagination", err.Error())
	}

	events, total, err := s.history.List(c.Request().Context(), filter)
	if err != nil {
		return errors.HandleError(c, err)
	}
	return c.JSON(http.StatusOK, db.NewPaginatedResponse(events, filter.PaginationOptions, total))
}
