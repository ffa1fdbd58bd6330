package http

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mrlokans/library/internal/auth"
	"github.com/mrlokans/library/internal/config"
)

// APIPrefix is the root of every versioned endpoint.
const APIPrefix = "/api/v1"

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	InitValidator()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(RequestLogger(log))
	router.Use(corsMiddleware(cfg.CORSAllowedOrigins))
	router.Use(auth.SecurityHeadersMiddleware())

	if cfg.AuthMiddleware != nil {
		router.Use(cfg.AuthMiddleware.Handler())
	} else {
		router.Use(auth.NewMiddleware(config.Auth{Mode: config.AuthModeNone}).Handler())
	}

	checks := map[string]HealthCheck{}
	if cfg.Database != nil {
		checks["database"] = cfg.Database.Ping
	}
	health := NewHealthController(cfg.Version, checks)
	router.GET("/healthz", health.Live)
	router.GET("/health", health.Status)

	api := router.Group(APIPrefix)

	users := NewUsersController(cfg.Users, cfg.Eligibility)
	api.GET("/users", users.List)
	api.POST("/users", users.Create)
	api.GET("/users/:id", users.Get)
	api.PATCH("/users/:id", users.Update)
	api.DELETE("/users/:id", users.Delete)
	api.GET("/users/:id/loans", users.Loans)
	api.GET("/users/:id/books", users.Books)
	api.GET("/users/:id/can-borrow", users.CanBorrow)

	books := NewBooksController(cfg.Books, cfg.Enricher, cfg.Thumbnails)
	api.GET("/books", books.List)
	api.POST("/books", books.Create)
	api.POST("/books/isbn", books.CreateFromISBN)
	api.GET("/books/isbn/:isbn/info", books.LookupISBN)
	api.GET("/books/:id", books.Get)
	api.PATCH("/books/:id", books.Update)
	api.DELETE("/books/:id", books.Delete)
	api.PATCH("/books/:id/status", books.SetStatus)
	if cfg.Enricher != nil {
		api.POST("/books/:id/enrich", books.Enrich)
	}
	if cfg.Thumbnails != nil {
		api.GET("/books/:id/thumbnail", books.Thumbnail)
	}

	loans := NewLoansController(cfg.Loans)
	api.GET("/loans", loans.List)
	api.GET("/loans/overdue", loans.Overdue)
	api.POST("/loans", loans.Lend)
	api.GET("/loans/:id", loans.Get)
	api.PATCH("/loans/:id/return", loans.Return)
	api.DELETE("/loans/:id", loans.Delete)

	// Task management endpoints
	if cfg.Tasks != nil {
		tasksController := NewTasksController(cfg.Tasks)
		api.GET("/tasks/types", tasksController.ListTaskTypes)
		api.GET("/tasks/:id", tasksController.GetTaskStatus)
		api.POST("/tasks/:type/run", tasksController.RunTask)
	}

	if cfg.Audit != nil {
		auditController := NewAuditController(cfg.Audit)
		api.GET("/audit", auditController.GetAuditEvents)
	}

	return router
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", auth.ActingUserHeader, RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}
