package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/orderdesk/internal/authorization"
	catalogdomain "github.com/smallbiznis/orderdesk/internal/catalog/domain"
	catalogrepo "github.com/smallbiznis/orderdesk/internal/catalog/repository"
	catalogservice "github.com/smallbiznis/orderdesk/internal/catalog/service"
	clientdomain "github.com/smallbiznis/orderdesk/internal/clientdirectory/domain"
	clientrepo "github.com/smallbiznis/orderdesk/internal/clientdirectory/repository"
	clientservice "github.com/smallbiznis/orderdesk/internal/clientdirectory/service"
	"github.com/smallbiznis/orderdesk/internal/clock"
	"github.com/smallbiznis/orderdesk/internal/config"
	"github.com/smallbiznis/orderdesk/internal/document"
	"github.com/smallbiznis/orderdesk/internal/lockpolicy"
	orderdomain "github.com/smallbiznis/orderdesk/internal/order/domain"
	orderrepo "github.com/smallbiznis/orderdesk/internal/order/repository"
	orderservice "github.com/smallbiznis/orderdesk/internal/order/service"
	"github.com/smallbiznis/orderdesk/pkg/db/dbtest"
	"go.uber.org/zap"
)

type testServer struct {
	engine  *gin.Engine
	product catalogdomain.Product
	client  clientdomain.Prospect
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error errorPayload    `json:"error"`
}

type sessionBody struct {
	ID    string `json:"id"`
	Order struct {
		ID       string `json:"id"`
		Number   string `json:"number"`
		Status   string `json:"status"`
		Locked   bool   `json:"locked"`
		Subtotal string `json:"subtotal"`
		Total    string `json:"total"`
		Shipping string `json:"shipping_method"`
		Lines    []struct {
			ID       string `json:"id"`
			Quantity int    `json:"quantity"`
		} `json:"lines"`
	} `json:"order"`
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := dbtest.Open(t,
		&catalogdomain.Product{},
		&clientdomain.Prospect{},
		&clientdomain.Partner{},
		&orderdomain.OrderRecord{},
		&orderdomain.OrderLineRecord{},
		&orderdomain.StockMovement{},
	)
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	product := catalogdomain.Product{
		ID:            node.Generate(),
		Name:          "Gear Pump",
		Kind:          catalogdomain.KindProduct,
		WeightKg:      decimal.RequireFromString("1.0"),
		PriceStandard: decimal.RequireFromString("120.00"),
		PricePartner:  decimal.RequireFromString("100.00"),
		Active:        true,
	}
	client := clientdomain.Prospect{ID: node.Generate(), Name: "Oficina Beta"}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	if err := db.Create(&client).Error; err != nil {
		t.Fatalf("seed client: %v", err)
	}

	log := zap.NewNop()
	enforcer, err := authorization.NewMemoryEnforcer()
	if err != nil {
		t.Fatalf("enforcer: %v", err)
	}
	authz := authorization.NewService(authorization.Params{Log: log, Enforcer: enforcer})
	policy := lockpolicy.New(lockpolicy.Params{Log: log, Overrides: authz})
	fakeClock := clock.NewFakeClock(time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC))

	orderSvc := orderservice.New(orderservice.Params{
		DB:     db,
		Log:    log,
		GenID:  node,
		Repo:   orderrepo.Provide(),
		Policy: policy,
		Clock:  fakeClock,
	})
	commerce, err := config.NewStaticCommerceConfigHolder(config.DefaultCommerceConfig())
	if err != nil {
		t.Fatalf("commerce config: %v", err)
	}

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	NewServer(ServerParams{
		Gin:        engine,
		Log:        log,
		CatalogSvc: catalogservice.New(catalogservice.Params{DB: db, Log: log, Repo: catalogrepo.Provide()}),
		ClientSvc:  clientservice.New(clientservice.Params{DB: db, Log: log, Repo: clientrepo.Provide()}),
		OrderSvc:   orderSvc,
		Sessions: orderservice.NewSessionStore(orderservice.StoreParams{
			Log:      log,
			Service:  orderSvc,
			Policy:   policy,
			Clock:    fakeClock,
			Commerce: commerce,
		}),
		Exporter: document.NewExporter(log),
		Commerce: commerce,
		AuthzSvc: authz,
	})

	return &testServer{engine: engine, product: product, client: client}
}

func (ts *testServer) do(t *testing.T, method, path, actorID, roles string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if actorID != "" {
		req.Header.Set(HeaderActorID, actorID)
	}
	if roles != "" {
		req.Header.Set(HeaderActorRoles, roles)
	}
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return env
}

func decodeSession(t *testing.T, rec *httptest.ResponseRecorder) sessionBody {
	t.Helper()
	var body sessionBody
	if err := json.Unmarshal(decode(t, rec).Data, &body); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	return body
}

func (ts *testServer) openFilledSession(t *testing.T, actorID, roles string) sessionBody {
	t.Helper()

	rec := ts.do(t, http.MethodPost, "/api/order-sessions", actorID, roles, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 on open, got %d: %s", rec.Code, rec.Body.String())
	}
	sess := decodeSession(t, rec)
	base := "/api/order-sessions/" + sess.ID

	rec = ts.do(t, http.MethodPut, base+"/client", actorID, roles, gin.H{"type": "prospect", "id": ts.client.ID.String()})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on client select, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = ts.do(t, http.MethodPost, base+"/lines", actorID, roles, gin.H{"product_id": ts.product.ID.String(), "quantity": 2})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on add line, got %d: %s", rec.Code, rec.Body.String())
	}
	return decodeSession(t, rec)
}

func TestOrderSession_ComposeAndSave(t *testing.T) {
	ts := newTestServer(t)

	sess := ts.openFilledSession(t, "42", "sales")
	if sess.Order.Subtotal != "240.00" {
		t.Fatalf("expected subtotal 240.00, got %s", sess.Order.Subtotal)
	}
	if len(sess.Order.Lines) != 1 || sess.Order.Lines[0].Quantity != 2 {
		t.Fatalf("unexpected lines: %+v", sess.Order.Lines)
	}

	rec := ts.do(t, http.MethodPost, "/api/order-sessions/"+sess.ID+"/save", "42", "sales", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on save, got %d: %s", rec.Code, rec.Body.String())
	}
	saved := decodeSession(t, rec)
	if saved.Order.ID == "" {
		t.Fatalf("expected saved order id")
	}

	rec = ts.do(t, http.MethodGet, "/api/orders/"+saved.Order.ID, "42", "sales", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on order load, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(t, http.MethodGet, "/api/orders/"+saved.Order.ID+"/lines", "42", "sales", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on lines, got %d: %s", rec.Code, rec.Body.String())
	}
	var lines []orderdomain.OrderLineRecord
	if err := json.Unmarshal(decode(t, rec).Data, &lines); err != nil {
		t.Fatalf("decode lines: %v", err)
	}
	if len(lines) != 1 || lines[0].Quantity != 2 {
		t.Fatalf("unexpected mirrored lines: %+v", lines)
	}
}

func TestOrderSession_LockedOrder(t *testing.T) {
	ts := newTestServer(t)

	sess := ts.openFilledSession(t, "42", "sales")
	base := "/api/order-sessions/" + sess.ID

	rec := ts.do(t, http.MethodPut, base+"/status", "42", "sales", gin.H{"status": "paid"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on transition, got %d: %s", rec.Code, rec.Body.String())
	}
	if !decodeSession(t, rec).Order.Locked {
		t.Fatalf("expected paid order to be locked")
	}
	rec = ts.do(t, http.MethodPost, base+"/save", "42", "sales", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on save, got %d: %s", rec.Code, rec.Body.String())
	}

	lineID := sess.Order.Lines[0].ID
	rec = ts.do(t, http.MethodPut, base+"/lines/"+lineID+"/quantity", "42", "sales", gin.H{"quantity": 5})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for locked order, got %d: %s", rec.Code, rec.Body.String())
	}
	if env := decode(t, rec); env.Error.Type != "permission_denied" {
		t.Fatalf("expected permission_denied, got %q", env.Error.Type)
	}
}

func TestOrderSession_Ownership(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/order-sessions", "", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without actor, got %d", rec.Code)
	}

	sess := ts.openFilledSession(t, "42", "sales")
	rec = ts.do(t, http.MethodGet, "/api/order-sessions/"+sess.ID, "77", "sales", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for another actor's session, got %d", rec.Code)
	}

	rec = ts.do(t, http.MethodDelete, "/api/order-sessions/"+sess.ID, "42", "sales", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 on discard, got %d", rec.Code)
	}
	rec = ts.do(t, http.MethodGet, "/api/order-sessions/"+sess.ID, "42", "sales", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after discard, got %d", rec.Code)
	}
}

func TestOrderSession_ValidationErrors(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/order-sessions", "42", "sales", nil)
	sess := decodeSession(t, rec)
	base := "/api/order-sessions/" + sess.ID

	rec = ts.do(t, http.MethodPost, base+"/save", "42", "sales", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing client, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(t, http.MethodPut, base+"/tier", "42", "sales", gin.H{"tier": "wholesale"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown tier, got %d", rec.Code)
	}

	rec = ts.do(t, http.MethodPost, base+"/lines", "42", "sales", gin.H{"description": "Setup", "unit_price": "abc"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad price, got %d", rec.Code)
	}
}

func TestOrderSession_ShippingRejectsNegativeCostAtomically(t *testing.T) {
	ts := newTestServer(t)

	sess := ts.openFilledSession(t, "42", "sales")
	base := "/api/order-sessions/" + sess.ID

	rec := ts.do(t, http.MethodPut, base+"/shipping", "42", "sales", gin.H{"method": "sedex", "cost": "-5.00"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative cost, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(t, http.MethodGet, base, "42", "sales", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on get, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := decodeSession(t, rec).Order.Shipping; got != sess.Order.Shipping {
		t.Fatalf("expected shipping method %q to be kept, got %q", sess.Order.Shipping, got)
	}

	rec = ts.do(t, http.MethodPut, base+"/shipping", "42", "sales", gin.H{"method": "sedex", "cost": "12.00"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on shipping, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := decodeSession(t, rec).Order.Shipping; got != "sedex" {
		t.Fatalf("expected sedex, got %q", got)
	}
}

func TestOrderSession_ExportDocument(t *testing.T) {
	ts := newTestServer(t)

	sess := ts.openFilledSession(t, "42", "sales")
	rec := ts.do(t, http.MethodGet, "/api/order-sessions/"+sess.ID+"/document", "42", "sales", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on export, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != document.ContentTypePDF {
		t.Fatalf("expected pdf content type, got %q", ct)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
		t.Fatalf("expected pdf body")
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, sess.Order.Number) {
		t.Fatalf("expected order number in file name, got %q", cd)
	}
}

func TestOverrides_RequireAdministrator(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/overrides", "42", "sales", gin.H{"subject": "user:42"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for sales role, got %d", rec.Code)
	}

	rec = ts.do(t, http.MethodPost, "/api/overrides", "1", "owner", gin.H{"subject": "42"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bare subject, got %d", rec.Code)
	}

	rec = ts.do(t, http.MethodPost, "/api/overrides", "1", "owner", gin.H{"subject": "user:42"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on grant, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestOverrides_GrantUnlocksEdits(t *testing.T) {
	ts := newTestServer(t)

	sess := ts.openFilledSession(t, "42", "sales")
	base := "/api/order-sessions/" + sess.ID
	ts.do(t, http.MethodPut, base+"/status", "42", "sales", gin.H{"status": "paid"})

	rec := ts.do(t, http.MethodPost, base+"/lines/"+sess.Order.Lines[0].ID+"/increment", "42", "sales", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 before grant, got %d", rec.Code)
	}

	rec = ts.do(t, http.MethodPost, "/api/overrides", "1", "owner", gin.H{"subject": "user:42"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on grant, got %d", rec.Code)
	}

	rec = ts.do(t, http.MethodPost, base+"/lines/"+sess.Order.Lines[0].ID+"/increment", "42", "sales", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 after grant, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := decodeSession(t, rec).Order.Lines[0].Quantity; got != 3 {
		t.Fatalf("expected quantity 3, got %d", got)
	}
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/nope", "", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
