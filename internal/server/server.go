// Package server exposes the chat widget over HTTP and WebSocket. Every
// socket gets its own conversation, disposed when the socket closes.
package server

import (
	"context"
	"embed"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/arin/gallery-chat/internal/chat"
)

//go:embed static
var staticFiles embed.FS

const (
	defaultReadTimeout    = 60 * time.Second
	defaultWriteTimeout   = 10 * time.Second
	defaultMaxMessageSize = 8 * 1024
)

// Options configures a Server.
type Options struct {
	// NewSource returns the completion source for a new conversation.
	// Returning nil opens the conversation with the setup notice.
	NewSource func() chat.Source
	// OnTurn receives the report of every finished turn on every socket.
	OnTurn func(chat.TurnReport)
	Logger zerolog.Logger

	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	PingInterval   time.Duration
	MaxMessageSize int64
}

// Server serves the widget page, a health check and the /ws endpoint.
type Server struct {
	echo     *echo.Echo
	opts     Options
	logger   zerolog.Logger
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	conns map[string]*connection
}

// New creates a server with its routes registered.
func New(opts Options) *Server {
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = defaultReadTimeout
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	if opts.PingInterval <= 0 || opts.PingInterval >= opts.ReadTimeout {
		opts.PingInterval = opts.ReadTimeout * 9 / 10
	}
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = defaultMaxMessageSize
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:   e,
		opts:   opts,
		logger: opts.Logger.With().Str("component", "widget-server").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The widget is embedded on other origins.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conns: make(map[string]*connection),
	}

	e.Use(middleware.Recover())
	e.Use(requestLogger(s.logger))

	page, _ := fs.Sub(staticFiles, "static")
	e.GET("/", echo.WrapHandler(http.FileServer(http.FS(page))))
	e.GET("/healthz", s.handleHealth)
	e.GET("/ws", s.HandleWebSocket)

	return s
}

// Handler returns the router, for use with httptest.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.logger.Info().Str("addr", addr).Msg("widget server listening")
	return s.echo.Start(addr)
}

// Shutdown stops accepting connections and disposes every open conversation.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.echo.Shutdown(ctx)

	s.mu.RLock()
	open := make([]*connection, 0, len(s.conns))
	for _, c := range s.conns {
		open = append(open, c)
	}
	s.mu.RUnlock()
	for _, c := range open {
		c.close()
	}
	return err
}

// ConnectionCount returns the number of open sockets.
func (s *Server) ConnectionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"connections": s.ConnectionCount(),
	})
}

// HandleWebSocket upgrades the request and starts the connection pumps.
func (s *Server) HandleWebSocket(c echo.Context) error {
	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return nil
	}

	conn := s.newConnection(ws)
	s.register(conn)

	go conn.writePump()
	go conn.readPump()
	return nil
}

func (s *Server) register(c *connection) {
	s.mu.Lock()
	s.conns[c.id] = c
	s.mu.Unlock()
	c.logger.Debug().Msg("connection registered")
}

func (s *Server) unregister(c *connection) {
	s.mu.Lock()
	delete(s.conns, c.id)
	s.mu.Unlock()
	c.logger.Debug().Msg("connection unregistered")
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			event := log.Debug()
			if status >= 400 {
				event = log.Warn()
			}
			if status >= 500 {
				event = log.Error()
			}
			event.
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Int("status", status).
				Dur("latency", time.Since(start)).
				Str("client_ip", c.RealIP()).
				Msg("request completed")
			return nil
		}
	}
}
