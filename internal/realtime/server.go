package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/healthythako/booking-service/internal/model"
	"github.com/healthythako/booking-service/pkg/logger"
)

type TokenParser interface {
	Parse(token string) (*model.Session, error)
}

type BacklogSource interface {
	Backlog(ctx context.Context, userID uuid.UUID, since time.Time) ([]*model.Notification, error)
}

type Server struct {
	hub      *Hub
	auth     TokenParser
	backlog  BacklogSource
	upgrader websocket.Upgrader
	engine   *gin.Engine
}

// NewServer builds the websocket endpoint. An empty allowedOrigins accepts
// any origin; the bearer token is the real gate.
func NewServer(hub *Hub, auth TokenParser, backlog BacklogSource, allowedOrigins []string, ginMode string) *Server {
	gin.SetMode(ginMode)
	s := &Server{
		hub:     hub,
		auth:    auth,
		backlog: backlog,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ws/notifications", s.serveNotifications)
	s.engine = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) serveNotifications(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
	}
	session, err := s.auth.Parse(token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "code": "unauthenticated"})
		return
	}

	var since time.Time
	if raw := c.Query("since"); raw != "" {
		since, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "since must be RFC3339", "code": "invalid"})
			return
		}
	}

	log := logger.With("user_id", session.UserID, "remote", c.ClientIP())
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the error response.
		log.Warn("websocket upgrade failed", "error", err)
		return
	}
	log.Debug("websocket connected", "replay", !since.IsZero())

	client := NewClient(s.hub, conn, session.UserID)
	s.hub.Register(client)

	go client.WritePump()
	if !since.IsZero() {
		s.replay(c.Request.Context(), client, since)
	}
	client.ReadPump()
}

// replay queues unread notifications created after since. Live events that
// arrive meanwhile may duplicate one of these; clients dedupe by
// notification_id.
func (s *Server) replay(ctx context.Context, client *Client, since time.Time) {
	items, err := s.backlog.Backlog(ctx, client.userID, since)
	if err != nil {
		logger.Error("notification backlog failed", "user_id", client.userID, "error", err)
		return
	}
	for _, n := range items {
		payload, err := json.Marshal(n.Event())
		if err != nil {
			continue
		}
		if !client.Enqueue(payload) {
			logger.Warn("backlog truncated, client full or dropped", "user_id", client.userID, "total", len(items))
			return
		}
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			set[strings.ToLower(o)] = struct{}{}
		}
	}
	return func(r *http.Request) bool {
		if len(set) == 0 {
			return true
		}
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		_, ok := set[strings.ToLower(u.Scheme+"://"+u.Host)]
		return ok
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if c.Request.URL.Path == "/health" {
			return
		}
		logger.Info("realtime_request",
			"status", c.Writer.Status(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"latency", time.Since(start).String(),
			"ip", c.ClientIP(),
		)
	}
}
