package adminapi

import (
	"errors"
	"net/http"
	"strconv"

	"quiz-gatekeeper/engine"
	"quiz-gatekeeper/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func internalError(c *gin.Context, msg string, err error) {
	logger.Log.Error(msg, zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func (s *Server) listGroups(c *gin.Context) {
	groups, err := s.console.GroupsInfo(c.Request.Context())
	if err != nil {
		internalError(c, "Error listing groups", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

func (s *Server) listQuestions(c *gin.Context) {
	chatID, ok := pathID(c, "id")
	if !ok {
		return
	}

	questions, err := s.console.Questions(c.Request.Context(), chatID)
	if err != nil {
		internalError(c, "Error listing questions", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"questions": questions})
}

func (s *Server) addQuestion(c *gin.Context) {
	chatID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var body struct {
		Question string `json:"question" binding:"required"`
		Answer   string `json:"answer" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	question, err := s.console.AddQuestion(c.Request.Context(), chatID, body.Question, body.Answer)
	if errors.Is(err, engine.ErrEmptyQuestion) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		internalError(c, "Error adding question", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"question": question})
}

func (s *Server) deleteQuestion(c *gin.Context) {
	qid, ok := pathID(c, "qid")
	if !ok {
		return
	}

	if err := s.console.DeleteQuestion(c.Request.Context(), qid); err != nil {
		internalError(c, "Error deleting question", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (s *Server) getAttempts(c *gin.Context) {
	chatID, ok := pathID(c, "id")
	if !ok {
		return
	}

	attempts, err := s.console.MaxAttempts(c.Request.Context(), chatID)
	if err != nil {
		internalError(c, "Error loading attempts", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"max_attempts": attempts})
}

func (s *Server) setAttempts(c *gin.Context) {
	chatID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var body struct {
		MaxAttempts int `json:"max_attempts" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := s.console.SetMaxAttempts(c.Request.Context(), chatID, body.MaxAttempts)
	if errors.Is(err, engine.ErrAttemptsOutOfRange) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		internalError(c, "Error saving attempts", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"max_attempts": body.MaxAttempts})
}

func (s *Server) listAdmins(c *gin.Context) {
	chatID, ok := pathID(c, "id")
	if !ok {
		return
	}

	admins, err := s.console.Admins(c.Request.Context(), chatID)
	if err != nil {
		internalError(c, "Error listing admins", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"admins": admins})
}

func (s *Server) addAdmin(c *gin.Context) {
	chatID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var body struct {
		UserID int64 `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.console.AddAdmin(c.Request.Context(), chatID, body.UserID); err != nil {
		internalError(c, "Error adding admin", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"added": true})
}

func (s *Server) getStats(c *gin.Context) {
	chatID, ok := pathID(c, "id")
	if !ok {
		return
	}

	stats, err := s.console.Stats(c.Request.Context(), chatID)
	if err != nil {
		internalError(c, "Error loading stats", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
