package http

import (
	"log/slog"
	"net/http"

	"github.com/geocoder89/todohub/internal/auth"
	"github.com/geocoder89/todohub/internal/cache"
	"github.com/geocoder89/todohub/internal/config"
	"github.com/geocoder89/todohub/internal/http/handlers"
	"github.com/geocoder89/todohub/internal/http/middlewares"
	"github.com/geocoder89/todohub/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Deps are the collaborators the router wires into handlers. Lists, Prom,
// Gatherer and Google are optional.
type Deps struct {
	Todos    handlers.TodosStore
	Users    handlers.UsersStore
	Sessions handlers.RefreshTokenStore
	Lists    cache.TodoLists
	JWT      *auth.Manager

	Prom     *observability.Prom
	Gatherer prometheus.Gatherer

	// nil when Google sign-in is not configured
	Google handlers.GoogleAuthProvider

	Checks map[string]handlers.PingFunc
}

func NewRouter(log *slog.Logger, cfg config.Config, deps Deps) *gin.Engine {
	if cfg.Env != "dev" && cfg.Env != "test" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(otelgin.Middleware(cfg.ServiceName))
	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.RequestLogger(log))
	r.Use(middlewares.SecurityHeaders(cfg.Env))
	r.Use(middlewares.MaxBodyBytes(cfg.MaxBodyBytes))
	r.Use(middlewares.RequireJSON())

	// health
	h := handlers.NewHealthHandler(deps.Checks)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	r.GET("/docs", handlers.SwaggerUI)
	r.GET("/docs/openapi.yaml", handlers.OpenAPISpec)

	// wire up handlers
	authMiddleware := middlewares.NewAuthMiddleware(deps.JWT)
	authHandler := handlers.NewAuthHandler(deps.Users, deps.JWT, deps.Sessions, cfg)
	todosHandler := handlers.NewTodosHandler(deps.Todos, deps.Lists, deps.Prom, cfg.Location())

	authLimiter := middlewares.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateWindow)
	writeLimiter := middlewares.NewRateLimiter(cfg.WriteRateLimit, cfg.WriteRateWindow)
	limitWrites := writeLimiter.RateLimiterMiddleware(middlewares.KeyByUserOrIP)

	authGroup := r.Group("/api/auth")
	{
		authGroup.POST("/register", authLimiter.RateLimiterMiddleware(middlewares.KeyByIP), authHandler.Register)
		authGroup.POST("/login", authLimiter.RateLimiterMiddleware(middlewares.KeyByIP), authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/logout", authHandler.Logout)
		authGroup.GET("/session", authMiddleware.RequireAuth(), authHandler.Session)

		if deps.Google != nil {
			google := handlers.NewGoogleAuthHandler(deps.Google, authHandler)
			authGroup.GET("/google/login", google.Login)
			authGroup.GET("/google/callback", google.Callback)
		}
	}

	todos := r.Group("/api/todos")
	todos.Use(authMiddleware.RequireAuth())
	{
		todos.GET("", todosHandler.List)
		todos.POST("", limitWrites, todosHandler.Create)
		todos.GET("/overview", todosHandler.Overview)
		todos.PUT("/:id", limitWrites, todosHandler.Update)
		todos.PATCH("/:id", limitWrites, todosHandler.Update)
		todos.DELETE("/:id", limitWrites, todosHandler.Delete)
	}

	return r
}

// NewHandler wraps the engine with CORS. Credentials are allowed so the
// frontend can send the session cookies.
func NewHandler(engine *gin.Engine, cfg config.Config) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "If-None-Match", "X-Request-Id"},
		ExposedHeaders:   []string{"ETag", "X-Request-Id", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           600,
	})

	return c.Handler(engine)
}
