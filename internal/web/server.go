package web

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/ineffablesam/cf-ai-meetmate/internal/core"
	"github.com/ineffablesam/cf-ai-meetmate/internal/notify"
	"github.com/ineffablesam/cf-ai-meetmate/internal/session"
)

// SessionService is the lifecycle surface the handlers drive.
// Implementations: session.Controller.
type SessionService interface {
	Create(name, ownerID string) (*core.Session, error)
	Complete(ctx context.Context, sessionID, rawAsset string) (*core.PipelineResult, error)
	Cancel(sessionID string) error
	GetState() session.State
}

// SessionReader is the query surface the handlers read from.
// Implementations: storage.Store.
type SessionReader interface {
	GetSession(id string) (*core.Session, error)
	ListSessions(ownerID string) ([]*core.Session, error)
	StatusHistory(sessionID string) ([]*core.StatusEvent, error)
}

// Server is the MeetMate web server
type Server struct {
	sessions    SessionService
	reader      SessionReader
	transcriber core.Transcriber
	notifier    *notify.Notifier
	router      *gin.Engine
}

// NewServer creates a new web server
func NewServer(sessions SessionService, reader SessionReader, transcriber core.Transcriber, notifier *notify.Notifier) *Server {
	router := gin.Default()

	s := &Server{
		sessions:    sessions,
		reader:      reader,
		transcriber: transcriber,
		notifier:    notifier,
		router:      router,
	}
	s.registerRoutes(router)

	return s
}

func (s *Server) registerRoutes(router *gin.Engine) {
	router.GET("/", s.handleHome)
	router.GET("/healthz", s.handleHealth)

	api := router.Group("/api")
	{
		api.GET("/state", s.handleState)
		api.POST("/sessions", s.handleCreateSession)
		api.POST("/sessions/:id/chunk", s.handleUploadChunk)
		api.POST("/sessions/:id/complete", s.handleCompleteSession)
		api.POST("/sessions/:id/cancel", s.handleCancelSession)
		api.GET("/sessions", s.handleListSessions)
		api.GET("/sessions/:id", s.handleGetSession)
		api.POST("/notifications/email", s.handleEmailNotification)
	}
}

// Run starts the web server
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}
