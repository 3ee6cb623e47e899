package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"safr-server/auth"
	"safr-server/cache"
	"safr-server/confs"
	"safr-server/db"
	"safr-server/handlers"
	httpHandler "safr-server/handlers/http"
	"safr-server/logging"
	"safr-server/metrics"
	"safr-server/repositories"
	"safr-server/services"
	"safr-server/usecases"
	"safr-server/ws"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const (
	cityCacheTTL     = 5 * time.Minute
	cityCacheMaxSize = 1000
	shutdownTimeout  = 10 * time.Second
)

type Server struct {
	app     *gin.Engine
	db      db.Database
	cfg     *confs.Config
	manager *ws.Manager
}

// NewServer wires repositories, use cases and handlers onto a gin engine.
func NewServer(cfg *confs.Config, database db.Database) (*Server, error) {
	issuer, err := auth.NewIssuer(cfg.Auth.SecretKey, time.Duration(cfg.Auth.AccessTokenExpireMinutes)*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("failed to create token issuer: %w", err)
	}

	s := &Server{
		app:     gin.New(),
		db:      database,
		cfg:     cfg,
		manager: ws.NewManager(),
	}
	s.manager.OnChange(func(total int) { metrics.WSConnections.Set(float64(total)) })
	httpHandler.ConfigureValidator()

	// Setup middleware
	s.app.Use(gin.Recovery(), logging.GinMiddleware(), metrics.GinMiddleware())

	config := cors.DefaultConfig()
	if origins := cfg.Server.Origins(); origins != nil {
		config.AllowOrigins = origins
	} else {
		config.AllowAllOrigins = true
	}
	config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	s.app.Use(cors.New(config))

	// Initialize repositories
	userRepo := repositories.NewUserPgRepository(database)
	cityRepo := repositories.NewCityPgRepository(database)
	rankingRepo := repositories.NewRankingPgRepository(database)

	// Initialize use cases
	cityCache := cache.NewCityCache(cityCacheTTL, cityCacheMaxSize)
	credentials := usecases.NewCredentialStore(database, userRepo, issuer, cfg.Auth.BcryptCost)
	cityUseCase := usecases.NewCityUseCase(cityRepo, cityCache)
	rankingUseCase := usecases.NewRankingUseCase(database, rankingRepo, cityUseCase)
	rankingUseCase.SetNotifier(services.NewRankingFeed(s.manager))

	// Initialize handlers
	tokenHandler := httpHandler.NewTokenHandler(credentials)
	userHandler := httpHandler.NewUserHandler(credentials)
	cityHandler := httpHandler.NewCityHandler(cityUseCase)
	rankingHandler := httpHandler.NewRankingHandler(rankingUseCase)
	wsHandler := handlers.NewWSHandler(s.manager, credentials)
	cacheHandler := handlers.NewCacheHandler(cityCache)

	requireAuth := httpHandler.RequireAuth(credentials)

	s.app.GET("/health", s.health)
	s.app.GET("/metrics", metrics.Handler())

	s.app.POST("/token", tokenHandler.IssueToken)

	users := s.app.Group("/users")
	{
		users.POST("/", userHandler.Register)
		users.GET("/me", requireAuth, userHandler.Me)
	}

	cities := s.app.Group("/cities")
	{
		cities.GET("/", cityHandler.ListCities)
		cities.GET("/:city_id", cityHandler.GetCity)
	}

	rankings := s.app.Group("/rankings", requireAuth)
	{
		rankings.GET("/me", rankingHandler.ListMyRankings)
		rankings.PUT("/cities/:city_id", rankingHandler.PutRanking)
		rankings.GET("/cities/:city_id", rankingHandler.GetRanking)
		rankings.DELETE("/cities/:city_id", rankingHandler.DeleteRanking)
	}

	// Cache management endpoints
	cacheGroup := s.app.Group("/cache", requireAuth)
	{
		cacheGroup.GET("/stats", cacheHandler.GetCacheStats)
		cacheGroup.DELETE("", cacheHandler.ClearCache)
	}

	s.app.GET("/ws/rankings", wsHandler.HandleRankingFeed)
	s.app.GET("/ws/stats", requireAuth, wsHandler.GetFeedStats)

	return s, nil
}

// Router exposes the engine, mainly for httptest.
func (s *Server) Router() *gin.Engine {
	return s.app
}

func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := s.db.Ping(ctx); err != nil {
		logging.Warn().Err(err).Msg("health check: database unreachable")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Address,
		Handler:           s.app,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logging.Info().Msg("shutting down server")
	s.manager.CloseAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
