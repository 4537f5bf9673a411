package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator"
	"github.com/google/uuid"

	"github.com/servimatch/go-servi/models"
)

const sessionHeader = "X-Session-Id"

type loginRequest struct {
	UserId      string             `json:"userId" binding:"required"`
	Role        models.SessionRole `json:"role" binding:"required"`
	DisplayName string             `json:"displayName"`
}

func (s *Server) login(c *gin.Context) {
	var body loginRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	session := &models.Session{
		Id:          uuid.New().String(),
		UserId:      body.UserId,
		Role:        body.Role,
		DisplayName: body.DisplayName,
		CreatedAt:   time.Now(),
	}
	if err := s.sessions.Save(c.Request.Context(), session); err != nil {
		s.logger.Errorf("api: error saving session for user %s: %v", body.UserId, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create session"})
		return
	}
	c.JSON(http.StatusCreated, session)
}

func (s *Server) logout(c *gin.Context) {
	sessionId := c.GetHeader(sessionHeader)
	if len(sessionId) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing session header"})
		return
	}
	if err := s.sessions.Delete(c.Request.Context(), sessionId); err != nil {
		s.logger.Errorf("api: error deleting session %s: %v", sessionId, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete session"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) sessionAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionId := c.GetHeader(sessionHeader)
		if len(sessionId) == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing session header"})
			return
		}
		session, err := s.sessions.Get(c.Request.Context(), sessionId)
		if err != nil {
			s.logger.Errorf("api: error loading session %s: %v", sessionId, err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "could not load session"})
			return
		}
		if session == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown session"})
			return
		}
		c.Set("session", session)
		c.Next()
	}
}

func (s *Server) requireRole(role models.SessionRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := c.MustGet("session").(*models.Session)
		if session.Role != role && session.Role != models.SessionRole_Admin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
			return
		}
		c.Next()
	}
}

func (s *Server) listRequests(c *gin.Context) {
	requests := s.cache.List(c.Param("scope"))
	views := make([]gin.H, len(requests))
	for idx, request := range requests {
		views[idx] = requestView(request)
	}
	c.JSON(http.StatusOK, views)
}

func (s *Server) scopeHistory(c *gin.Context) {
	records, err := s.history.GetScopeTransitions(c.Request.Context(), c.Param("scope"), models.DbLoadLimit)
	if err != nil {
		s.logger.Errorf("api: error loading history for scope %s: %v", c.Param("scope"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load history"})
		return
	}
	c.JSON(http.StatusOK, records)
}

func (s *Server) accept(c *gin.Context) {
	s.mutate(c, s.lifecycle.Accept(c.Request.Context(), c.Param("scope"), c.Param("id")))
}

func (s *Server) reject(c *gin.Context) {
	s.mutate(c, s.lifecycle.Reject(c.Request.Context(), c.Param("scope"), c.Param("id")))
}

func (s *Server) complete(c *gin.Context) {
	s.mutate(c, s.lifecycle.Complete(c.Request.Context(), c.Param("scope"), c.Param("id")))
}

func (s *Server) schedule(c *gin.Context) {
	var appt models.Appointment
	if err := c.ShouldBindJSON(&appt); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	summary, err := s.lifecycle.Schedule(c.Request.Context(), c.Param("id"), appt)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

type ratingRequest struct {
	Stars      int      `json:"stars" binding:"required"`
	Review     string   `json:"review"`
	PhotoPaths []string `json:"photoPaths"`
}

func (s *Server) rate(c *gin.Context) {
	var body ratingRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.mutate(c, s.lifecycle.Rate(c.Request.Context(), c.Param("scope"), c.Param("id"), body.Stars, body.Review, body.PhotoPaths))
}

func (s *Server) mutate(c *gin.Context, err error) {
	if err != nil {
		s.writeError(c, err)
		return
	}
	request, found := s.cache.Get(c.Param("id"))
	if !found {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, requestView(request))
}

// writeError maps domain errors onto HTTP statuses. Validation errors are the
// caller's fault; anything unrecognized comes out of the backend call path and is
// reported as a bad gateway.
func (s *Server) writeError(c *gin.Context, err error) {
	transitionErr := new(models.TransitionError)
	rejectedErr := new(models.BackendRejectedError)
	validationErrs := validator.ValidationErrors{}
	switch {
	case errors.Is(err, models.ErrRequestNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrTransitionInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrAlreadyRated):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &transitionErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrBackendTimeout):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})
	case errors.As(err, &rejectedErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	case errors.As(err, &validationErrs):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	}
}

// requestView is the wire shape handed to UI surfaces: internal status plus its
// presentation tuple, so screens never re-derive colors or icons.
func requestView(request models.ServiceRequest) gin.H {
	presentation := models.PresentationFor(request.Status)
	view := gin.H{
		"id":          request.Id,
		"clientId":    request.ClientId,
		"providerId":  request.ProviderId,
		"description": request.Description,
		"category":    request.Category,
		"price":       request.Price,
		"date":        request.Date,
		"time":        request.Time,
		"location":    request.Location,
		"urgent":      request.Urgent,
		"status":      request.Status.String(),
		"statusLabel": presentation.Label,
		"colorToken":  presentation.ColorToken,
		"iconKind":    presentation.IconKind,
	}
	if len(request.LastError) > 0 {
		view["lastError"] = request.LastError
	}
	if request.Rating != nil {
		view["rating"] = request.Rating
	}
	return view
}
