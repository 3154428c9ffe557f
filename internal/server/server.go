package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/orderdesk/internal/authorization"
	"github.com/smallbiznis/orderdesk/internal/catalog"
	catalogdomain "github.com/smallbiznis/orderdesk/internal/catalog/domain"
	"github.com/smallbiznis/orderdesk/internal/clientdirectory"
	clientdomain "github.com/smallbiznis/orderdesk/internal/clientdirectory/domain"
	"github.com/smallbiznis/orderdesk/internal/config"
	"github.com/smallbiznis/orderdesk/internal/document"
	"github.com/smallbiznis/orderdesk/internal/lockpolicy"
	"github.com/smallbiznis/orderdesk/internal/observability"
	obslogger "github.com/smallbiznis/orderdesk/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/orderdesk/internal/observability/metrics"
	obstracing "github.com/smallbiznis/orderdesk/internal/observability/tracing"
	"github.com/smallbiznis/orderdesk/internal/order"
	orderdomain "github.com/smallbiznis/orderdesk/internal/order/domain"
	orderservice "github.com/smallbiznis/orderdesk/internal/order/service"
	"github.com/smallbiznis/orderdesk/internal/postalcode"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	authorization.Module,
	lockpolicy.Module,
	catalog.Module,
	clientdirectory.Module,
	postalcode.Module,
	order.Module,
	document.Module,
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

type EngineParams struct {
	fx.In

	ObsCfg   observability.Config
	Log      *zap.Logger
	Metrics  *obsmetrics.Metrics  `optional:"true"`
	Registry *prometheus.Registry `optional:"true"`
}

func NewEngine(p EngineParams) *gin.Engine {
	if !p.ObsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Base:            p.Log.Named("http"),
		Debug:           p.ObsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(p.Metrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if p.Registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{Registry: p.Registry})))
	}

	return r
}

func registerGin(p EngineParams) *gin.Engine {
	return NewEngine(p)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	log        *zap.Logger
	catalogSvc catalogdomain.Service
	clientSvc  clientdomain.Service
	orderSvc   orderdomain.Service
	sessions   *orderservice.SessionStore
	exporter   *document.Exporter
	commerce   *config.CommerceConfigHolder
	authzSvc   authorization.Service
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	Log        *zap.Logger
	CatalogSvc catalogdomain.Service
	ClientSvc  clientdomain.Service
	OrderSvc   orderdomain.Service
	Sessions   *orderservice.SessionStore
	Exporter   *document.Exporter
	Commerce   *config.CommerceConfigHolder
	AuthzSvc   authorization.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		log:        p.Log.Named("http.server"),
		catalogSvc: p.CatalogSvc,
		clientSvc:  p.ClientSvc,
		orderSvc:   p.OrderSvc,
		sessions:   p.Sessions,
		exporter:   p.Exporter,
		commerce:   p.Commerce,
		authzSvc:   p.AuthzSvc,
	}

	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", ActorRequired())

	// -------- Catalog --------
	api.GET("/products", s.ListProducts)
	api.GET("/products/:id", s.GetProductByID)

	// -------- Client directory --------
	api.GET("/clients", s.SearchClients)

	// -------- Orders --------
	api.GET("/orders/:id", s.GetOrderByID)
	api.GET("/orders/:id/lines", s.ListOrderLines)
	api.GET("/orders/:id/stock-movements", s.ListStockMovements)
	api.POST("/orders/:id/rebuild-mirror", RequireRole(authorization.AdministratorRoles...), s.RebuildOrderMirror)

	// -------- Order editing sessions --------
	sessions := api.Group("/order-sessions")
	sessions.POST("", s.OpenOrderSession)
	sessions.GET("/:id", s.GetOrderSession)
	sessions.DELETE("/:id", s.DiscardOrderSession)
	sessions.PUT("/:id/client", s.SelectSessionClient)
	sessions.POST("/:id/lines", s.AddSessionLine)
	sessions.DELETE("/:id/lines/:lineId", s.RemoveSessionLine)
	sessions.PUT("/:id/lines/:lineId/quantity", s.SetSessionLineQuantity)
	sessions.POST("/:id/lines/:lineId/increment", s.IncrementSessionLine)
	sessions.POST("/:id/lines/:lineId/decrement", s.DecrementSessionLine)
	sessions.PUT("/:id/tier", s.ChangeSessionTier)
	sessions.PUT("/:id/shipping", s.SetSessionShipping)
	sessions.PUT("/:id/postal-code", s.SetSessionPostalCode)
	sessions.PUT("/:id/address", s.SetSessionAddress)
	sessions.PUT("/:id/discount", s.ApplySessionDiscount)
	sessions.DELETE("/:id/discount", s.ClearSessionDiscount)
	sessions.PUT("/:id/channel", s.SetSessionChannel)
	sessions.PUT("/:id/status", s.TransitionSessionStatus)
	sessions.POST("/:id/save", s.SaveOrderSession)
	sessions.GET("/:id/document", s.ExportSessionDocument)

	// -------- Override grants --------
	overrides := api.Group("/overrides", RequireRole(authorization.AdministratorRoles...))
	overrides.POST("", s.GrantOverride)
	overrides.DELETE("", s.RevokeOverride)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
