// Package apiserver provides an optional HTTP+WebSocket debug surface that
// mirrors the process manager's event bus for external dashboards.
package apiserver

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rung-dev/rung/internal/httpmw"
	"github.com/rung-dev/rung/internal/logging"
	"github.com/rung-dev/rung/internal/manager"
	"go.uber.org/zap"
)

// Manager is the subset of *manager.Manager the debug server depends on.
type Manager interface {
	GetAllStates() map[string]manager.ProcessState
	GetProcessNames() []string
	On(manager.Listener) func()
	RestartAll(cols, rows int)
}

// Server is the HTTP+WebSocket debug server for one manager instance.
type Server struct {
	mgr    Manager
	logger *logging.Logger
	router *gin.Engine

	upgrader websocket.Upgrader
}

// New creates a debug server wrapping mgr.
func New(mgr Manager, log *logging.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		mgr:    mgr,
		logger: log.WithFields(zap.String("component", "apiserver")),
		router: gin.New(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	s.router.Use(httpmw.RequestLogger(s.logger, "rung-debug"))
	s.router.Use(httpmw.OtelTracing("rung-debug"))
	s.setupRoutes()
	return s
}

// Router returns the HTTP handler, for use with http.Server or httptest.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api")
	{
		api.GET("/processes", s.handleProcesses)
		api.GET("/events", s.handleEventsWS)
		api.POST("/restart", s.handleRestartAll)
	}
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleProcesses(c *gin.Context) {
	c.JSON(http.StatusOK, s.mgr.GetAllStates())
}

// handleRestartAll restarts every currently-alive process (spec.md §4.8
// restartAll). cols/rows size the PTYs new runners attach to; both default
// to 80x24 when omitted, matching cmd/rung's no-terminal fallback.
func (s *Server) handleRestartAll(c *gin.Context) {
	cols := intQuery(c, "cols", 80)
	rows := intQuery(c, "rows", 24)
	s.mgr.RestartAll(cols, rows)
	c.JSON(http.StatusAccepted, gin.H{"status": "restarting"})
}

func intQuery(c *gin.Context, key string, fallback int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return fallback
	}
	return v
}

// wireEvent is the JSON wire shape for a manager.Event.
type wireEvent struct {
	Kind   manager.EventKind `json:"kind"`
	Name   string            `json:"name"`
	Status string            `json:"status,omitempty"`
	Output string            `json:"output,omitempty"`
	Code   *int              `json:"code,omitempty"`
	RunID  string            `json:"runId"`
}

func toWireEvent(ev manager.Event) wireEvent {
	w := wireEvent{Kind: ev.Kind, Name: ev.Name, Code: ev.Code, RunID: ev.RunID}
	if ev.Kind == manager.EventStatus {
		w.Status = string(ev.Status)
	}
	if ev.Kind == manager.EventOutput {
		w.Output = string(ev.Output)
	}
	return w
}

// handleEventsWS upgrades the connection and streams every subsequent manager
// event as a JSON text message, until the client disconnects.
func (s *Server) handleEventsWS(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	var writeMu sync.Mutex
	closed := make(chan struct{})

	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	off := s.mgr.On(func(ev manager.Event) {
		select {
		case <-closed:
			return
		default:
		}
		payload, err := json.Marshal(toWireEvent(ev))
		if err != nil {
			return
		}
		writeMu.Lock()
		_ = conn.WriteMessage(websocket.TextMessage, payload)
		writeMu.Unlock()
	})
	defer off()

	<-closed
}
