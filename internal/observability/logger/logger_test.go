package logger

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/orderdesk/internal/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestWithContext_AddsRequestAndActor(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	base := zap.New(core)

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = actor.WithActor(ctx, actor.Actor{ID: "42"})
	WithContext(ctx, base).Info("hello")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "42", fields["actor_id"])
}

func TestGinMiddleware_PropagatesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)

	router := gin.New()
	router.Use(GinMiddleware(MiddlewareConfig{Base: zap.New(core)}))
	router.GET("/api/order-sessions/:id", func(c *gin.Context) {
		assert.Equal(t, "abc", RequestIDFromContext(c.Request.Context()))
		c.Status(http.StatusNoContent)
	})
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/api/order-sessions/s-1", nil)
	req.Header.Set("X-Request-Id", "abc")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "abc", rec.Header().Get("X-Request-Id"))
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0].ContextMap()
	assert.Equal(t, "/api/order-sessions/:id", entry["route"])
	assert.Equal(t, "s-1", entry["session_id"])

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
	assert.Equal(t, 1, logs.Len(), "probes log at debug")
}

func TestGormLogger_Trace(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := NewGormLogger(zap.New(core), DefaultGormLoggerConfig())

	l.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "SELECT 1", 1
	}, nil)
	assert.Equal(t, 0, logs.Len(), "fast queries are not logged at warn level")

	l.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "  insert into orders values (1)", 1
	}, errors.New("boom"))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "INSERT", logs.All()[0].ContextMap()["operation"])

	silent := l.LogMode(gormlogger.Silent)
	silent.Trace(context.Background(), time.Now(), func() (string, int64) { return "DELETE FROM x", 0 }, errors.New("x"))
	assert.Equal(t, 1, logs.Len())
}

func TestOperationFromSQL(t *testing.T) {
	assert.Equal(t, "SELECT", operationFromSQL("WITH t AS (SELECT 1) SELECT * FROM t"))
	assert.Equal(t, "UPDATE", operationFromSQL("update orders set total = 1"))
	assert.Equal(t, "UNKNOWN", operationFromSQL(""))
}

func TestTableFromSQL(t *testing.T) {
	assert.Equal(t, "orders", tableFromSQL(`INSERT INTO "orders" (id) VALUES (1)`))
	assert.Equal(t, "order_lines", tableFromSQL("DELETE FROM order_lines WHERE order_id = 1"))
	assert.Equal(t, "stock_movements", tableFromSQL("UPDATE stock_movements SET quantity = 2"))
	assert.Equal(t, "products", tableFromSQL("SELECT id FROM (SELECT * FROM products) p"))
	assert.Equal(t, "", tableFromSQL("SELECT 1"))
}
