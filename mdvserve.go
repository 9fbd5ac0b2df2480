// Package mdvserve is the content API for a small personal site. Posts are
// JSON files in a GitHub repository; this server is the only holder of the
// GitHub token and proxies all reads and authenticated writes through the
// Contents API, driving the editor's create/update/rename/delete workflow.
package mdvserve

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ambigenius/mdvserve/analytics"
	"github.com/ambigenius/mdvserve/contents"
)

// App wires together the contents client, cache, workflow handlers,
// middleware, and the analytics sidecar.
type App struct {
	Config Config
	Echo   *echo.Echo
	Client *contents.Client
	Cache  *PostCache

	loginLimiter   *LoginLimiter
	analyticsStore *analytics.Store
}

// New creates an mdvserve App with the given configuration.
func New(cfg Config) *App {
	cfg.setDefaults()
	return &App{
		Config: cfg,
		Echo:   echo.New(),
	}
}

// Start initializes the client, cache, limiter, analytics, middleware, and
// routes, then runs the server until it is shut down.
func (a *App) Start() error {
	if a.Config.AdminPassword == "" {
		return fmt.Errorf("mdvserve: AdminPassword is required")
	}
	if a.Config.SessionSecret == "" {
		return fmt.Errorf("mdvserve: SessionSecret is required")
	}

	a.Client = contents.NewClient(a.Config.Owner, a.Config.Repo, a.Config.Token)
	if !a.Client.HasToken() {
		log.Printf("mdvserve: no GitHub token configured; write routes will fail until one is set")
	}

	a.Cache = NewPostCache(a.Client, a.Config.PostCacheTTL)
	a.loginLimiter = NewLoginLimiter(5, time.Minute)

	if a.Config.AnalyticsEnabled {
		store, err := analytics.NewStore(a.Config.AnalyticsDatabasePath)
		if err != nil {
			return fmt.Errorf("mdvserve: init analytics: %w", err)
		}
		a.analyticsStore = store
		if err := analytics.InitSalt(store); err != nil {
			return fmt.Errorf("mdvserve: init analytics salt: %w", err)
		}
	}

	a.setupMiddleware()
	a.setupRoutes()

	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.GET("/robots.txt", a.handleRobots)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)

	// Read surface
	e.GET("/api/list", a.handleList)
	e.GET("/api/file", a.handleFile)
	e.GET("/api/about", a.handleAbout)
	e.GET("/api/posts", a.handlePosts)

	// Auth
	e.POST("/api/admin/login", a.handleAdminLogin)
	e.POST("/api/admin/logout", handleAdminLogout)

	// Write surface, admin session required
	admin := e.Group("", requireAdmin)
	admin.POST("/api/commit", a.handleCommit)
	admin.DELETE("/api/commit", a.handleCommitDelete)
	admin.POST("/api/posts", a.handlePostCreate)
	admin.PUT("/api/posts", a.handlePostUpdate)
	admin.DELETE("/api/posts", a.handlePostDelete)

	if a.analyticsStore != nil {
		handler := analytics.NewHandler(a.analyticsStore)
		e.POST("/api/analytics/visit", handler.Collect)
		admin.GET("/api/admin/analytics", handler.Stats)
	}
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.analyticsStore != nil {
		return a.analyticsStore.Close()
	}
	return nil
}
