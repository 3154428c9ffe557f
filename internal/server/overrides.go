package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type overrideRequest struct {
	Subject string `json:"subject"`
}

// GrantOverride lets a user or role edit locked orders.
func (s *Server) GrantOverride(c *gin.Context) {
	var req overrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if err := s.authzSvc.GrantOverride(c.Request.Context(), req.Subject); err != nil {
		AbortWithError(c, err)
		return
	}

	if a, ok := currentActor(c); ok {
		s.log.Info("override granted via api", zap.String("actor_id", a.ID), zap.String("subject", req.Subject))
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"subject": req.Subject, "granted": true}})
}

func (s *Server) RevokeOverride(c *gin.Context) {
	var req overrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if err := s.authzSvc.RevokeOverride(c.Request.Context(), req.Subject); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"subject": req.Subject, "granted": false}})
}
