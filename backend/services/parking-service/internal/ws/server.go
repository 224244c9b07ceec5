package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Identify resolves the authenticated user of a request.
type Identify func(r *http.Request) (int64, bool)

// Server upgrades HTTP connections to notification sockets.
type Server struct {
	hub          *Hub
	identify     Identify
	logger       *zap.Logger
	writeTimeout time.Duration
	upgrader     websocket.Upgrader
}

// NewServer builds ws server.
func NewServer(hub *Hub, identify Identify, writeTimeout time.Duration, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		hub:          hub,
		identify:     identify,
		logger:       logger,
		writeTimeout: writeTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// HandleWS is the HTTP handler for /api/notifications/ws.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.identify(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	connection := NewConnection(userID, conn, s.writeTimeout, s.logger, func(c *Connection) {
		s.hub.Unregister(c)
		cancel()
	})
	s.hub.Register(connection)

	go connection.Start(ctx)
	s.logger.Info("notification socket connected", zap.Int64("user_id", userID))
}
