package server

import (
	"context"
	"net/http"
	"net/url"
	"sync"

	"keepwarm/internal/errors"
	"keepwarm/internal/lifecycle"
	"keepwarm/internal/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// WebSocket upgrader configuration
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")

		// CLI tools send no origin
		if origin == "" {
			return true
		}

		if isLoopbackOrigin(origin) {
			return true
		}

		logger.WithFields(logger.Fields{
			"origin": origin,
			"remote": r.RemoteAddr,
		}).Warn("WebSocket connection rejected - invalid origin")

		return false
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// isLoopbackOrigin reports whether origin is an http(s) URL on a loopback host
func isLoopbackOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

// wsLogWriter sends each write as one log frame
type wsLogWriter struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func (w *wsLogWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.ws.WriteJSON(LogMessage{Type: "log", Data: string(p)}); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *wsLogWriter) sendError(msg string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.ws.WriteJSON(LogMessage{Type: "error", Data: msg})
}

// handleFollowInstanceLogs godoc
// @Summary Follow instance logs
// @Description Streams an instance's logs over a WebSocket until either side closes
// @Tags instances,websocket
// @Param name path string true "Instance name"
// @Param tail query int false "Lines of history to send first" default(100)
// @Success 101 {string} string "Switching Protocols"
// @Failure 404 {object} errors.HTTPErrorResponse
// @Router /instances/{name}/logs/ws [get]
func (s *Server) handleFollowInstanceLogs(c echo.Context) error {
	name := c.Param("name")

	tail, err := parseTail(c.QueryParam("tail"))
	if err != nil {
		return errors.HandleError(c, err)
	}

	// Resolve the instance before upgrading so a missing one is a plain 404
	if _, err := s.manager.Status(c.Request().Context(), name); err != nil {
		return errors.HandleError(c, err)
	}

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.GetLogger(c).WithError(err).Error("Failed to upgrade WebSocket connection")
		return nil
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	// The client only ever closes; reading surfaces that as an error
	go func() {
		defer cancel()
		for {
			if _, _, err := ws.NextReader(); err != nil {
				return
			}
		}
	}()

	writer := &wsLogWriter{ws: ws}
	logger.GetLogger(c).WithField("instance", name).Info("Following instance logs")

	err = s.manager.Logs(ctx, name, lifecycle.LogsOptions{Tail: tail, Follow: true}, writer)
	if err != nil && ctx.Err() == nil {
		writer.sendError(err.Error())
	}

	writer.mu.Lock()
	_ = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	writer.mu.Unlock()
	return nil
}
