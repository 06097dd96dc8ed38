package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"bookhub/internal/auth"
	"bookhub/internal/catalog"
	"bookhub/internal/chat"
	"bookhub/internal/feed"
	"bookhub/internal/history"
	"bookhub/internal/lending"
	"bookhub/internal/reviews"
	"bookhub/pkg/database"
	"bookhub/pkg/utils"
)

func main() {
	cfg := database.DefaultConfig()
	db := database.MustOpen(cfg)
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	srvCfg := utils.LoadServerConfig()

	router := gin.Default()

	// Optional: avoid "trusted all proxies" warning
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	// Start the TCP lending feed first (so you notice binding errors early)
	hub := feed.NewHub()
	router.GET("/ws", feed.WSHandler(hub))
	tcpSrv := feed.NewServer(srvCfg.FeedAddr, hub)

	// Book discussion rooms
	chatHub := chat.NewHub(0)
	router.GET("/ws/discuss/:id", chat.WSHandler(chatHub))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": cfg.Path})
	})

	router.GET("/ready", func(c *gin.Context) {
		stats := hub.Stats()
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":      "not_ready",
				"db_error":    err.Error(),
				"tcp_clients": stats.TCPClients,
				"ws_clients":  stats.WSClients,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":      "ready",
			"db":          "ok",
			"tcp_clients": stats.TCPClients,
			"ws_clients":  stats.WSClients,
		})
	})

	router.GET("/debug", func(c *gin.Context) {
		stats := hub.Stats()
		c.JSON(http.StatusOK, gin.H{
			"db":          cfg.Path,
			"tcp_clients": stats.TCPClients,
			"ws_clients":  stats.WSClients,
		})
	})

	// Auth
	authCfg := utils.LoadAuthConfig()
	tokenSvc := auth.TokenService{
		Secret:   []byte(authCfg.JWTSecret),
		Issuer:   authCfg.JWTIssuer,
		Duration: authCfg.JWTDuration,
	}
	authRepo := auth.NewRepo(db)
	authHandler := auth.NewHandler(authRepo, tokenSvc)
	authHandler.RegisterRoutes(router.Group("/auth"))

	// Catalog (public reads, admin create)
	reviewsRepo := reviews.NewRepo(db)
	catalogRepo := catalog.NewRepo(db)
	catalogHandler := catalog.NewHandler(catalogRepo, reviewsRepo)

	publicBooks := router.Group("/books")
	catalogHandler.RegisterPublicRoutes(publicBooks)
	publicBooks.GET("/:id/discussion", chat.HistoryHandler(chatHub))

	reviewsHandler := reviews.NewHandler(reviewsRepo, hub)
	reviewsHandler.RegisterPublicRoutes(publicBooks)

	adminBooks := router.Group("/books")
	adminBooks.Use(auth.AuthMiddleware(tokenSvc, authRepo), auth.RequireAdmin())
	catalogHandler.RegisterAdminRoutes(adminBooks)

	// Lending + reviews (authenticated)
	protectedBooks := router.Group("/books")
	protectedBooks.Use(auth.AuthMiddleware(tokenSvc, authRepo))

	lendingRepo := lending.NewRepo(db)
	lendingHandler := lending.NewHandler(lendingRepo, catalogRepo, hub)
	lendingHandler.RegisterBookRoutes(protectedBooks)
	reviewsHandler.RegisterProtectedRoutes(protectedBooks)

	users := router.Group("/users")
	users.Use(auth.AuthMiddleware(tokenSvc, authRepo))
	lendingHandler.RegisterUserRoutes(users)

	historyHandler := history.NewHandler(history.NewRepo(db))
	historyHandler.RegisterRoutes(users)

	httpSrv := &http.Server{
		Addr:    srvCfg.HTTPAddr,
		Handler: router,
	}

	errCh := make(chan error, 2)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := tcpSrv.Run(); err != nil {
			errCh <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("HTTP API server listening on %s", srvCfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("shutdown signal received: %s", sig)
	case err := <-errCh:
		log.Printf("server error: %v", err)
	}

	log.Println("shutting down servers")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown error: %v", err)
	}
	if err := tcpSrv.Close(); err != nil {
		log.Printf("tcp shutdown error: %v", err)
	}

	wg.Wait()
	log.Println("servers stopped")
}
