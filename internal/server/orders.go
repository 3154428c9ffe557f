package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	orderdomain "github.com/smallbiznis/orderdesk/internal/order/domain"
)

func (s *Server) GetOrderByID(c *gin.Context) {
	order, err := s.orderSvc.Load(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": newOrderView(order)})
}

func (s *Server) ListOrderLines(c *gin.Context) {
	id, ok := orderIDParam(c)
	if !ok {
		return
	}

	records, err := s.orderSvc.ListLines(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": records})
}

func (s *Server) ListStockMovements(c *gin.Context) {
	id, ok := orderIDParam(c)
	if !ok {
		return
	}

	movements, err := s.orderSvc.ListMovements(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": movements})
}

// RebuildOrderMirror re-derives the line and stock mirrors from the stored header.
func (s *Server) RebuildOrderMirror(c *gin.Context) {
	id, ok := orderIDParam(c)
	if !ok {
		return
	}
	if err := s.orderSvc.RebuildMirror(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	order, err := s.orderSvc.Load(c.Request.Context(), id.String())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": newOrderView(order)})
}

func orderIDParam(c *gin.Context) (snowflake.ID, bool) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil || id <= 0 {
		AbortWithError(c, orderdomain.ErrNotFound)
		return 0, false
	}
	return id, true
}
