package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"

	"vendfleet/internal/domain/operator"
	"vendfleet/internal/handler/api"
	"vendfleet/internal/handler/middleware"
	"vendfleet/internal/pkg/config"
)

type route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
	Mw      []gin.HandlerFunc
}

type Handlers struct {
	Auth    *api.AuthHandler
	Machine *api.MachineHandler
	Refill  *api.RefillHandler
	Device  *api.DeviceHandler
	Alert   *api.AlertHandler
	Push    *api.PushHandler
}

func NewRouter(
	engine *gin.Engine,
	cfg config.Config,
	handlers Handlers,
	authMiddleware *middleware.AuthMiddleware,
	deviceMiddleware *middleware.DeviceKeyMiddleware,
	cache *gocache.Cache,
) {
	setupMiddleware(engine, cfg)
	setupRoutes(engine, cfg, handlers, authMiddleware, deviceMiddleware, cache)
}

func setupMiddleware(engine *gin.Engine, cfg config.Config) {
	// Recovery must be first (outermost) to catch panics from all other middleware
	engine.Use(middleware.CustomRecovery())
	engine.Use(middleware.NewCORSMiddleware(cfg.CORS))
	engine.Use(middleware.NewLogger(cfg.Log).LoggingMiddleware())
	engine.Use(middleware.ErrorHandler())
}

func setupRoutes(
	engine *gin.Engine,
	cfg config.Config,
	h Handlers,
	authMiddleware *middleware.AuthMiddleware,
	deviceMiddleware *middleware.DeviceKeyMiddleware,
	cache *gocache.Cache,
) {
	engine.GET("/health", healthCheck)

	apiGroup := engine.Group("/api")
	{
		auth := apiGroup.Group("/auth")
		{
			addRoutes(auth, []route{
				{Method: http.MethodPost, Path: "/login", Handler: h.Auth.Login},
			})

			authRequired := auth.Group("")
			authRequired.Use(authMiddleware.RequireAuth())
			addRoutes(authRequired, []route{
				{Method: http.MethodPost, Path: "/operators", Handler: h.Auth.Register,
					Mw: []gin.HandlerFunc{authMiddleware.RequireRoleAtLeast(operator.RoleAdmin)}},
			})
		}

		machines := apiGroup.Group("/machines")
		machines.Use(authMiddleware.RequireAuth())
		{
			snapshotCache := middleware.CacheResponse(cache, cfg.Machine.SnapshotCacheTTL)
			addRoutes(machines, []route{
				{Method: http.MethodGet, Path: "", Handler: h.Machine.List},
				{Method: http.MethodPost, Path: "", Handler: h.Machine.Create,
					Mw: []gin.HandlerFunc{authMiddleware.RequireRoleAtLeast(operator.RoleAdmin)}},
				{Method: http.MethodGet, Path: "/:id", Handler: h.Machine.GetSnapshot,
					Mw: []gin.HandlerFunc{snapshotCache}},
				{Method: http.MethodDelete, Path: "/:id", Handler: h.Machine.Delete,
					Mw: []gin.HandlerFunc{authMiddleware.RequireRoleAtLeast(operator.RoleAdmin)}},
				{Method: http.MethodPost, Path: "/:id/pair", Handler: h.Machine.PairDevice,
					Mw: []gin.HandlerFunc{authMiddleware.RequireRoleAtLeast(operator.RoleAdmin)}},
				{Method: http.MethodPatch, Path: "/:id/active", Handler: h.Machine.SetActive,
					Mw: []gin.HandlerFunc{authMiddleware.RequireRoleAtLeast(operator.RoleAdmin)}},
				{Method: http.MethodPatch, Path: "/:id/manager", Handler: h.Machine.AssignManager,
					Mw: []gin.HandlerFunc{authMiddleware.RequireRoleAtLeast(operator.RoleAdmin)}},
				{Method: http.MethodGet, Path: "/:id/refills", Handler: h.Machine.RefillLogs},
				{Method: http.MethodGet, Path: "/:id/sales", Handler: h.Machine.Sales},
				{Method: http.MethodGet, Path: "/:id/sales/summary", Handler: h.Machine.SalesSummary},
				{Method: http.MethodPost, Path: "/:id/refill/start", Handler: h.Refill.Start,
					Mw: []gin.HandlerFunc{authMiddleware.RequireRoleAtLeast(operator.RoleManager)}},
				{Method: http.MethodPost, Path: "/:id/refill/finish", Handler: h.Refill.Finish,
					Mw: []gin.HandlerFunc{authMiddleware.RequireRoleAtLeast(operator.RoleManager)}},
				{Method: http.MethodPost, Path: "/:id/refill/force-release", Handler: h.Refill.ForceRelease,
					Mw: []gin.HandlerFunc{authMiddleware.RequireRoleAtLeast(operator.RoleAdmin)}},
			})
		}

		sessions := apiGroup.Group("/sessions")
		sessions.Use(authMiddleware.RequireAuth())
		{
			addRoutes(sessions, []route{
				{Method: http.MethodGet, Path: "/stale", Handler: h.Refill.ListStaleSessions,
					Mw: []gin.HandlerFunc{authMiddleware.RequireRoleAtLeast(operator.RoleAdmin)}},
			})
		}

		alerts := apiGroup.Group("/alerts")
		alerts.Use(authMiddleware.RequireAuth())
		{
			addRoutes(alerts, []route{
				{Method: http.MethodGet, Path: "", Handler: h.Alert.List},
				{Method: http.MethodPost, Path: "/:id/resolve", Handler: h.Alert.Resolve,
					Mw: []gin.HandlerFunc{authMiddleware.RequireRoleAtLeast(operator.RoleManager)}},
			})
		}

		push := apiGroup.Group("/push")
		{
			addRoutes(push, []route{
				{Method: http.MethodGet, Path: "/vapid-key", Handler: h.Push.VAPIDKey},
			})

			pushAuth := push.Group("")
			pushAuth.Use(authMiddleware.RequireAuth())
			addRoutes(pushAuth, []route{
				{Method: http.MethodPost, Path: "/subscriptions", Handler: h.Push.Subscribe},
				{Method: http.MethodDelete, Path: "/subscriptions", Handler: h.Push.Unsubscribe},
			})
		}

		devices := apiGroup.Group("/device")
		devices.Use(deviceMiddleware.RequireDevice())
		{
			addRoutes(devices, []route{
				{Method: http.MethodPost, Path: "/telemetry", Handler: h.Device.ReportTelemetry},
				{Method: http.MethodPost, Path: "/sales", Handler: h.Device.RecordSale},
			})
		}
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Service is healthy",
	})
}

func addRoutes(g *gin.RouterGroup, rs []route) {
	for _, r := range rs {
		h := r.Handler
		if len(r.Mw) > 0 {
			h = chainHandlers(append(r.Mw, r.Handler)...)
		}
		switch r.Method {
		case http.MethodGet:
			g.GET(r.Path, h)
		case http.MethodPost:
			g.POST(r.Path, h)
		case http.MethodPut:
			g.PUT(r.Path, h)
		case http.MethodPatch:
			g.PATCH(r.Path, h)
		case http.MethodDelete:
			g.DELETE(r.Path, h)
		default:
			g.Any(r.Path, h)
		}
	}
}

func chainHandlers(hs ...gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, h := range hs {
			h(c)
			if c.IsAborted() {
				return
			}
		}
	}
}
