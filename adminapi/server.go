// Package adminapi exposes the store's CRUD surface over HTTP for the
// admin web UI: questions, attempt limits, group admins and answer
// statistics, all scoped by group id.
package adminapi

import (
	"net/http"

	"quiz-gatekeeper/config"
	"quiz-gatekeeper/engine"
	"quiz-gatekeeper/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	console *engine.Console
	token   string
}

func New(store engine.Store, cfg *config.Config) *Server {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	return &Server{
		console: engine.NewConsole(store, cfg),
		token:   cfg.AdminAPIToken,
	}
}

func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	api := router.Group("/api")
	if s.token != "" {
		api.Use(s.requireToken)
	}

	api.GET("/groups", s.listGroups)
	api.GET("/groups/:id/questions", s.listQuestions)
	api.POST("/groups/:id/questions", s.addQuestion)
	api.DELETE("/questions/:qid", s.deleteQuestion)
	api.GET("/groups/:id/attempts", s.getAttempts)
	api.PUT("/groups/:id/attempts", s.setAttempts)
	api.GET("/groups/:id/admins", s.listAdmins)
	api.POST("/groups/:id/admins", s.addAdmin)
	api.GET("/groups/:id/stats", s.getStats)

	return router
}

func (s *Server) Run(addr string) error {
	logger.Log.Info("Admin API listening", zap.String("addr", addr))
	return s.Router().Run(addr)
}

func (s *Server) requireToken(c *gin.Context) {
	if c.GetHeader("Authorization") != "Bearer "+s.token {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Next()
}
