// Package router assembles the gin engine: middleware chain, API version
// prefix and the per-domain route groups.
package router

import (
	"net/http"

	"github.com/erp/backoffice/internal/infrastructure/logger"
	"github.com/erp/backoffice/internal/interfaces/http/handler"
	"github.com/erp/backoffice/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// RouteRegistrar mounts its routes on the versioned API group
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router groups registrars under /api/<version>
type Router struct {
	engine     *gin.Engine
	apiVersion string
	registrars []RouteRegistrar
}

// RouterOption configures a Router
type RouterOption func(*Router)

// WithAPIVersion overrides the default "v1" prefix
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// NewRouter creates a Router on engine
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{engine: engine, apiVersion: "v1"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a registrar; routes are mounted by Setup
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

// Setup mounts every registered group
func (r *Router) Setup() {
	api := r.engine.Group("/api/" + r.apiVersion)
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
}

type routeDefinition struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

// DomainGroup collects the routes of one bounded context under a prefix
type DomainGroup struct {
	name       string
	prefix     string
	routes     []routeDefinition
	subgroups  []*DomainGroup
	middleware []gin.HandlerFunc
}

// NewDomainGroup creates an empty group
func NewDomainGroup(name, prefix string) *DomainGroup {
	return &DomainGroup{name: name, prefix: prefix}
}

// Use adds middleware applied to the group's routes and subgroups
func (dg *DomainGroup) Use(middleware ...gin.HandlerFunc) *DomainGroup {
	dg.middleware = append(dg.middleware, middleware...)
	return dg
}

func (dg *DomainGroup) handle(method, path string, handlers []gin.HandlerFunc) *DomainGroup {
	dg.routes = append(dg.routes, routeDefinition{method: method, path: path, handlers: handlers})
	return dg
}

// GET registers a GET route
func (dg *DomainGroup) GET(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodGet, path, handlers)
}

// POST registers a POST route
func (dg *DomainGroup) POST(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodPost, path, handlers)
}

// PATCH registers a PATCH route
func (dg *DomainGroup) PATCH(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodPatch, path, handlers)
}

// DELETE registers a DELETE route
func (dg *DomainGroup) DELETE(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodDelete, path, handlers)
}

// Group creates a nested group
func (dg *DomainGroup) Group(name, prefix string) *DomainGroup {
	subgroup := NewDomainGroup(name, prefix)
	dg.subgroups = append(dg.subgroups, subgroup)
	return subgroup
}

// RegisterRoutes implements RouteRegistrar
func (dg *DomainGroup) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group(dg.prefix)
	if len(dg.middleware) > 0 {
		group.Use(dg.middleware...)
	}
	for _, route := range dg.routes {
		group.Handle(route.method, route.path, route.handlers...)
	}
	for _, subgroup := range dg.subgroups {
		subgroup.RegisterRoutes(group)
	}
}

// Name returns the group name
func (dg *DomainGroup) Name() string {
	return dg.name
}

// Prefix returns the group path prefix
func (dg *DomainGroup) Prefix() string {
	return dg.prefix
}

// Handlers bundles the HTTP handlers served by the API
type Handlers struct {
	Transfers   *handler.TransferHandler
	Adjustments *handler.AdjustmentHandler
	Alerts      *handler.StockAlertHandler
	System      *handler.SystemHandler
}

// StockRoutes builds the /stock group. reconcileLimit guards the manual
// reconcile trigger and may be nil.
func StockRoutes(h Handlers, reconcileLimit *middleware.RateLimiter) *DomainGroup {
	stock := NewDomainGroup("stock", "/stock")

	transfers := stock.Group("transfers", "/transfers")
	transfers.GET("", h.Transfers.List)
	transfers.POST("", h.Transfers.Create)
	transfers.GET("/by-code/:code", h.Transfers.GetByReferenceCode)
	transfers.POST("/items/:item_id/receive", h.Transfers.ReceiveItem)
	transfers.GET("/:id", h.Transfers.GetByID)
	transfers.POST("/:id/status", h.Transfers.ChangeStatus)
	transfers.DELETE("/:id", h.Transfers.Delete)

	adjustments := stock.Group("adjustments", "/adjustments")
	adjustments.GET("", h.Adjustments.List)
	adjustments.POST("", h.Adjustments.Create)
	adjustments.GET("/by-code/:code", h.Adjustments.GetByReferenceCode)
	adjustments.POST("/items/:item_id/decision", h.Adjustments.DecideItem)
	adjustments.GET("/:id", h.Adjustments.GetByID)
	adjustments.POST("/:id/cancel", h.Adjustments.Cancel)

	alerts := stock.Group("alerts", "/alerts")
	alerts.GET("", h.Alerts.List)
	alerts.POST("", h.Alerts.RegisterThreshold)
	if reconcileLimit != nil {
		alerts.POST("/reconcile", middleware.RateLimit(reconcileLimit), h.Alerts.Reconcile)
	} else {
		alerts.POST("/reconcile", h.Alerts.Reconcile)
	}
	alerts.GET("/:id", h.Alerts.GetByID)
	alerts.PATCH("/:id", h.Alerts.Update)

	return stock
}

// EngineConfig holds the HTTP-facing settings of NewEngine
type EngineConfig struct {
	ServiceName      string
	TracingEnabled   bool
	ProfilingEnabled bool
	MaxBodyBytes     int64
	AllowOrigins     []string
	TrustedProxies   []string
	TriggerRateLimit int
	// Meter records HTTP metrics when non-nil
	Meter metric.Meter
}

// NewEngine builds the gin engine with the full middleware chain and all routes
func NewEngine(cfg EngineConfig, h Handlers, log *zap.Logger) (*gin.Engine, error) {
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}
	engine.HandleMethodNotAllowed = true

	probes := []string{"/health"}
	engine.Use(
		logger.Recovery(log),
		middleware.RequestID(),
		middleware.Actor(),
		logger.GinMiddleware(log),
		middleware.CORS(cfg.AllowOrigins...),
		middleware.Tracing(middleware.TracingConfig{
			ServiceName: cfg.ServiceName,
			Enabled:     cfg.TracingEnabled,
			SkipPaths:   probes,
		}),
		middleware.SpanErrorMarker(),
		middleware.HTTPMetrics(cfg.Meter),
		middleware.Profiling(cfg.ProfilingEnabled, probes...),
		middleware.BodyLimit(cfg.MaxBodyBytes),
	)

	engine.GET("/health", h.System.Health)

	var reconcileLimit *middleware.RateLimiter
	if cfg.TriggerRateLimit > 0 {
		reconcileLimit = middleware.NewRateLimiter(cfg.TriggerRateLimit)
	}

	system := NewDomainGroup("system", "/system")
	system.GET("/info", h.System.GetSystemInfo)

	NewRouter(engine).
		Register(system).
		Register(StockRoutes(h, reconcileLimit)).
		Setup()

	return engine, nil
}
