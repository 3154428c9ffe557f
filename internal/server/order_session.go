package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/orderdesk/internal/actor"
	clientdomain "github.com/smallbiznis/orderdesk/internal/clientdirectory/domain"
	"github.com/smallbiznis/orderdesk/internal/document"
	orderdomain "github.com/smallbiznis/orderdesk/internal/order/domain"
	orderservice "github.com/smallbiznis/orderdesk/internal/order/service"
	"github.com/smallbiznis/orderdesk/internal/pricing"
)

type openSessionRequest struct {
	OrderID string `json:"order_id"`
}

type selectClientRequest struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type addLineRequest struct {
	ProductID   string `json:"product_id"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

type shippingRequest struct {
	Method *string `json:"method"`
	Cost   *string `json:"cost"`
}

type addressRequest struct {
	PostalCode   string `json:"postal_code"`
	Street       string `json:"street"`
	Number       string `json:"number"`
	Complement   string `json:"complement"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
}

// OpenOrderSession starts editing a new order, or a stored one when order_id is set.
func (s *Server) OpenOrderSession(c *gin.Context) {
	a, ok := currentActor(c)
	if !ok {
		return
	}

	var req openSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	var (
		sess *orderservice.Session
		err  error
	)
	if orderID := strings.TrimSpace(req.OrderID); orderID != "" {
		sess, err = s.sessions.Resume(c.Request.Context(), a, orderID)
	} else {
		sess, err = s.sessions.Open(a)
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": newSessionView(sess, sess.Snapshot())})
}

func (s *Server) GetOrderSession(c *gin.Context) {
	sess, _, ok := s.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": newSessionView(sess, sess.Snapshot())})
}

func (s *Server) DiscardOrderSession(c *gin.Context) {
	a, ok := currentActor(c)
	if !ok {
		return
	}
	if err := s.sessions.Discard(strings.TrimSpace(c.Param("id")), a); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) SelectSessionClient(c *gin.Context) {
	sess, a, ok := s.session(c)
	if !ok {
		return
	}

	var req selectClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	clientType := clientdomain.ClientType(strings.ToLower(strings.TrimSpace(req.Type)))
	entry, err := s.clientSvc.Get(c.Request.Context(), clientType, req.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	order, err := sess.SelectClient(c.Request.Context(), a, orderdomain.ClientRef{
		ID:   entry.ID,
		Type: entry.Type,
		Name: entry.Name,
	})
	s.respond(c, sess, order, err)
}

// AddSessionLine adds a catalog line when product_id is set, otherwise a manual line.
func (s *Server) AddSessionLine(c *gin.Context) {
	sess, a, ok := s.session(c)
	if !ok {
		return
	}

	var req addLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	ctx := c.Request.Context()
	if productID := strings.TrimSpace(req.ProductID); productID != "" {
		product, err := s.catalogSvc.Get(ctx, productID)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		order, err := sess.AddCatalogLine(ctx, a, *product, req.Quantity)
		s.respond(c, sess, order, err)
		return
	}

	price, err := decimal.NewFromString(strings.TrimSpace(req.UnitPrice))
	if err != nil {
		AbortWithError(c, newValidationError("unit_price", "invalid_price", "invalid unit price"))
		return
	}
	order, err := sess.AddManualLine(ctx, a, req.Description, req.Quantity, price)
	s.respond(c, sess, order, err)
}

func (s *Server) RemoveSessionLine(c *gin.Context) {
	sess, a, ok := s.session(c)
	if !ok {
		return
	}
	order, err := sess.RemoveLine(c.Request.Context(), a, c.Param("lineId"))
	s.respond(c, sess, order, err)
}

func (s *Server) SetSessionLineQuantity(c *gin.Context) {
	sess, a, ok := s.session(c)
	if !ok {
		return
	}

	var req quantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	order, err := sess.SetQuantity(c.Request.Context(), a, c.Param("lineId"), req.Quantity)
	s.respond(c, sess, order, err)
}

func (s *Server) IncrementSessionLine(c *gin.Context) {
	sess, a, ok := s.session(c)
	if !ok {
		return
	}
	order, err := sess.Increment(c.Request.Context(), a, c.Param("lineId"))
	s.respond(c, sess, order, err)
}

func (s *Server) DecrementSessionLine(c *gin.Context) {
	sess, a, ok := s.session(c)
	if !ok {
		return
	}
	order, err := sess.Decrement(c.Request.Context(), a, c.Param("lineId"))
	s.respond(c, sess, order, err)
}

func (s *Server) ChangeSessionTier(c *gin.Context) {
	sess, a, ok := s.session(c)
	if !ok {
		return
	}

	var req struct {
		Tier string `json:"tier"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	tier, err := pricing.ParseTier(req.Tier)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	order, err := sess.ChangeTier(c.Request.Context(), a, tier)
	s.respond(c, sess, order, err)
}

// SetSessionShipping sets the method and, optionally, a manual cost that
// holds until the next automatic freight estimate.
func (s *Server) SetSessionShipping(c *gin.Context) {
	sess, a, ok := s.session(c)
	if !ok {
		return
	}

	var req shippingRequest
	if err := c.ShouldBindJSON(&req); err != nil || (req.Method == nil && req.Cost == nil) {
		AbortWithError(c, invalidRequestError())
		return
	}

	var cost *decimal.Decimal
	if req.Cost != nil {
		parsed, err := decimal.NewFromString(strings.TrimSpace(*req.Cost))
		if err != nil {
			AbortWithError(c, newValidationError("cost", "invalid_price", "invalid shipping cost"))
			return
		}
		cost = &parsed
	}

	order, err := sess.SetShipping(c.Request.Context(), a, req.Method, cost)
	s.respond(c, sess, order, err)
}

func (s *Server) SetSessionPostalCode(c *gin.Context) {
	sess, a, ok := s.session(c)
	if !ok {
		return
	}

	var req struct {
		PostalCode string `json:"postal_code"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	order, err := sess.SetPostalCode(c.Request.Context(), a, req.PostalCode)
	s.respond(c, sess, order, err)
}

func (s *Server) SetSessionAddress(c *gin.Context) {
	sess, a, ok := s.session(c)
	if !ok {
		return
	}

	var req addressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	order, err := sess.SetAddress(c.Request.Context(), a, orderdomain.Address{
		PostalCode:   req.PostalCode,
		Street:       strings.TrimSpace(req.Street),
		Number:       strings.TrimSpace(req.Number),
		Complement:   strings.TrimSpace(req.Complement),
		Neighborhood: strings.TrimSpace(req.Neighborhood),
		City:         strings.TrimSpace(req.City),
		State:        strings.ToUpper(strings.TrimSpace(req.State)),
	})
	s.respond(c, sess, order, err)
}

func (s *Server) ApplySessionDiscount(c *gin.Context) {
	sess, a, ok := s.session(c)
	if !ok {
		return
	}

	var req struct {
		Code string `json:"code"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	order, err := sess.ApplyDiscountCode(c.Request.Context(), a, req.Code)
	s.respond(c, sess, order, err)
}

func (s *Server) ClearSessionDiscount(c *gin.Context) {
	sess, a, ok := s.session(c)
	if !ok {
		return
	}
	order, err := sess.ClearDiscount(c.Request.Context(), a)
	s.respond(c, sess, order, err)
}

func (s *Server) SetSessionChannel(c *gin.Context) {
	sess, a, ok := s.session(c)
	if !ok {
		return
	}

	var req struct {
		Channel string `json:"channel"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	order, err := sess.SetChannel(c.Request.Context(), a, req.Channel)
	s.respond(c, sess, order, err)
}

func (s *Server) TransitionSessionStatus(c *gin.Context) {
	sess, a, ok := s.session(c)
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	status, err := orderdomain.ParseStatus(req.Status)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	order, err := sess.TransitionTo(c.Request.Context(), a, status)
	s.respond(c, sess, order, err)
}

func (s *Server) SaveOrderSession(c *gin.Context) {
	sess, a, ok := s.session(c)
	if !ok {
		return
	}
	order, err := sess.Save(c.Request.Context(), a)
	s.respond(c, sess, order, err)
}

// ExportSessionDocument renders the current state of the session, locked or not.
func (s *Server) ExportSessionDocument(c *gin.Context) {
	sess, _, ok := s.session(c)
	if !ok {
		return
	}

	branding := s.commerce.Get().Branding
	doc, err := s.exporter.Render(c.Request.Context(), sess.Snapshot(), document.Branding{
		SiteName: branding.SiteName,
		Address:  branding.Address,
		Phone:    branding.Phone,
		Email:    branding.Email,
		LogoPath: branding.LogoPath,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+doc.FileName+`"`)
	c.Data(http.StatusOK, doc.ContentType, doc.Bytes)
}

func (s *Server) session(c *gin.Context) (*orderservice.Session, actor.Actor, bool) {
	a, ok := currentActor(c)
	if !ok {
		return nil, actor.Actor{}, false
	}
	sess, err := s.sessions.Get(strings.TrimSpace(c.Param("id")), a)
	if err != nil {
		AbortWithError(c, err)
		return nil, actor.Actor{}, false
	}
	return sess, a, true
}

func (s *Server) respond(c *gin.Context, sess *orderservice.Session, order orderdomain.Order, err error) {
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": newSessionView(sess, order)})
}
