// Package panel serves the HTTP control surface: start/stop/restart the
// assistant loop, edit the persona prompt and environment, and stream
// live events over a websocket.
package panel

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/aria-voice/aria/pkg/assistant"
)

// Controller is the assistant surface the panel drives.
type Controller interface {
	Start(ctx context.Context)
	Stop()
	Running() bool
	State() assistant.State
	Events() *assistant.Events
}

// Server is the control panel HTTP server.
type Server struct {
	ctrl       Controller
	promptPath string
	envPath    string
	logger     *slog.Logger
	upgrader   websocket.Upgrader
}

// NewServer creates a panel over the given controller. promptPath and
// envPath locate the persona file and the .env file the panel may edit.
func NewServer(ctrl Controller, promptPath, envPath string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		ctrl:       ctrl,
		promptPath: promptPath,
		envPath:    envPath,
		logger:     logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Router builds the gin engine with all panel routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/status", s.handleStatus)
	r.POST("/start", s.handleStart)
	r.POST("/stop", s.handleStop)
	r.POST("/restart", s.handleRestart)
	r.GET("/prompt", s.handleGetPrompt)
	r.POST("/prompt", s.handleSetPrompt)
	r.POST("/env", s.handleSetEnv)
	r.GET("/ws", s.handleEvents)
	return r
}

// Run serves the panel until the listener fails.
func (s *Server) Run(addr string) error {
	return s.Router().Run(addr)
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"running": s.ctrl.Running(),
		"state":   s.ctrl.State().String(),
	})
}

func (s *Server) handleStart(c *gin.Context) {
	s.ctrl.Start(context.Background())
	c.JSON(http.StatusOK, gin.H{"running": true})
}

func (s *Server) handleStop(c *gin.Context) {
	s.ctrl.Stop()
	c.JSON(http.StatusOK, gin.H{"running": false})
}

func (s *Server) handleRestart(c *gin.Context) {
	s.ctrl.Stop()
	s.ctrl.Start(context.Background())
	c.JSON(http.StatusOK, gin.H{"running": true})
}

func (s *Server) handleGetPrompt(c *gin.Context) {
	data, err := os.ReadFile(s.promptPath)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "prompt file not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"prompt": string(data)})
}

func (s *Server) handleSetPrompt(c *gin.Context) {
	var req struct {
		Prompt string `json:"prompt" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := os.WriteFile(s.promptPath, []byte(req.Prompt), 0o644); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	// The new persona takes effect on the next turn; no restart needed.
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleSetEnv(c *gin.Context) {
	var req map[string]string
	if err := c.ShouldBindJSON(&req); err != nil || len(req) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "expected a non-empty object of key/value pairs"})
		return
	}
	for key, value := range req {
		os.Setenv(key, value)
	}
	if s.envPath != "" {
		if err := updateEnvFile(s.envPath, req); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "note": "restart the assistant to apply transport changes"})
}

// handleEvents upgrades to a websocket and streams assistant events as
// JSON until the client disconnects.
func (s *Server) handleEvents(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	events, cancel := s.ctrl.Events().Subscribe()
	defer cancel()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case ev := <-events:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
	}
}

// updateEnvFile rewrites KEY=VALUE lines in place, appending keys that
// are not present yet. Comments and unrelated lines are preserved.
func updateEnvFile(path string, updates map[string]string) error {
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	remaining := make(map[string]string, len(updates))
	for k, v := range updates {
		remaining[k] = v
	}

	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			out = append(out, line)
			continue
		}
		key, _, ok := strings.Cut(trimmed, "=")
		key = strings.TrimSpace(key)
		if ok {
			if value, hit := remaining[key]; hit {
				out = append(out, key+"="+value)
				delete(remaining, key)
				continue
			}
		}
		out = append(out, line)
	}
	for key, value := range remaining {
		out = append(out, key+"="+value)
	}

	content := strings.TrimRight(strings.Join(out, "\n"), "\n") + "\n"
	return os.WriteFile(path, []byte(content), 0o644)
}
