package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/appleboy/graceful"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/99-66/simple-auth-jwt/internal/auth"
	"github.com/99-66/simple-auth-jwt/internal/config"
	"github.com/99-66/simple-auth-jwt/internal/crypto"
	"github.com/99-66/simple-auth-jwt/internal/handlers"
	"github.com/99-66/simple-auth-jwt/internal/metrics"
	"github.com/99-66/simple-auth-jwt/internal/middleware"
	"github.com/99-66/simple-auth-jwt/internal/services"
	"github.com/99-66/simple-auth-jwt/internal/store"
	"github.com/99-66/simple-auth-jwt/internal/token"
	"github.com/99-66/simple-auth-jwt/internal/version"
)

func main() {
	// Define flags
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Usage = printUsage
	flag.Parse()

	// Show version and exit if requested
	if *showVersion {
		version.PrintVersion()
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	switch args[0] {
	case "server":
		runServer()
	case "createuser":
		if len(args) != 3 {
			fmt.Println("Usage: simple-auth-jwt createuser EMAIL PASSWORD")
			os.Exit(1)
		}
		runCreateUser(args[1], args[2])
	default:
		fmt.Printf("Unknown command: %s\n\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf("Usage: %s [OPTIONS] COMMAND\n\n", os.Args[0])
	fmt.Println("JWT authentication/session server")
	fmt.Println("\nCommands:")
	fmt.Println("  server                     Start the auth server")
	fmt.Println("  createuser EMAIL PASSWORD  Register a user account")
	fmt.Println("\nOptions:")
	fmt.Println("  -v, --version    Show version information")
	fmt.Println("  -h, --help       Show this help message")
}

// application holds the initialized component graph.
type application struct {
	cfg            *config.Config
	db             *store.Store
	recorder       metrics.Recorder
	verifier       *token.Verifier
	sessionService *services.SessionService
	userService    *services.UserService
	redisClient    *redis.Client
}

func initApplication(cfg *config.Config) (*application, error) {
	db, err := store.New(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	cipher, err := crypto.NewCipher(cfg.AESSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}
	digest := crypto.NewDigest(cfg.HMACSecret)

	recorder := metrics.Init(cfg.MetricsEnabled)
	if cfg.MetricsEnabled {
		log.Println("Prometheus metrics initialized")
	} else {
		log.Println("Metrics disabled (using noop implementation)")
	}

	issuer := token.NewIssuer(cfg)
	verifier := token.NewVerifier(cfg)
	provider := auth.NewLocalProvider()

	app := &application{
		cfg:            cfg,
		db:             db,
		recorder:       recorder,
		verifier:       verifier,
		sessionService: services.NewSessionService(db, cfg, issuer, cipher, digest, provider),
		userService:    services.NewUserService(db, cfg, cipher, digest),
	}

	if cfg.EnableRateLimit && cfg.RateLimitStore == config.RateLimitStoreRedis {
		app.redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := app.redisClient.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.RedisAddr, err)
		}
	}

	return app, nil
}

func runServer() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	app, err := initApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	router := setupRouter(app)

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	m := graceful.NewManager()

	m.AddRunningJob(func(ctx context.Context) error {
		log.Printf("Starting server on %s", cfg.ServerAddr)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Failed to start server: %v", err)
			}
		}()
		<-ctx.Done()
		return nil
	})

	// Periodically drop token records whose refresh tokens have expired.
	m.AddRunningJob(func(ctx context.Context) error {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if deleted, err := app.db.DeleteExpiredTokenRecords(); err != nil {
					log.Printf("Failed to cleanup expired token records: %v", err)
				} else if deleted > 0 {
					log.Printf("Cleaned up %d expired token records", deleted)
				}
			case <-ctx.Done():
				return nil
			}
		}
	})

	m.AddShutdownJob(func() error {
		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server forced to shutdown: %v", err)
			return err
		}

		log.Println("Server exited")
		return nil
	})

	if app.redisClient != nil {
		m.AddShutdownJob(func() error {
			log.Println("Closing Redis connection...")
			return app.redisClient.Close()
		})
	}

	<-m.Done()
}

func setupRouter(app *application) *gin.Engine {
	cfg := app.cfg

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RecordMetrics(app.recorder))
	r.Use(gin.Logger(), gin.Recovery())

	limiters := setupRateLimiters(app)

	authHandler := handlers.NewAuthHandler(app.sessionService, app.verifier, cfg, app.recorder)
	userHandler := handlers.NewUserHandler(app.userService)

	v1 := r.Group("/v1")
	{
		authGroup := v1.Group("/auth")
		authGroup.POST("/api/login", limiters.login, authHandler.APILogin)
		authGroup.POST("/web/login", limiters.login, authHandler.WebLogin)
		authGroup.POST("/api/logout", authHandler.APILogout)
		authGroup.POST("/web/logout", authHandler.WebLogout)
		authGroup.POST("/api/token/refresh", limiters.refresh, authHandler.APIRefresh)
		authGroup.POST("/web/token/refresh", limiters.refresh, authHandler.WebRefresh)

		users := v1.Group("/users")
		users.Use(middleware.RequireAuth(app.verifier, app.recorder))
		users.GET("/me", userHandler.Me)
	}

	r.GET("/healthz", func(c *gin.Context) {
		if err := app.db.Health(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if cfg.MetricsEnabled {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	return r
}

type rateLimiters struct {
	login   gin.HandlerFunc
	refresh gin.HandlerFunc
}

func setupRateLimiters(app *application) rateLimiters {
	noOp := func(c *gin.Context) { c.Next() }
	if !app.cfg.EnableRateLimit {
		return rateLimiters{login: noOp, refresh: noOp}
	}

	storeType := middleware.RateLimitStoreType(app.cfg.RateLimitStore)
	createLimiter := func(requestsPerMinute int, endpoint string) gin.HandlerFunc {
		limiter, err := middleware.NewRateLimiter(middleware.RateLimitConfig{
			RequestsPerMinute: requestsPerMinute,
			StoreType:         storeType,
			RedisClient:       app.redisClient,
			CleanupInterval:   10 * time.Minute,
		})
		if err != nil {
			log.Fatalf("Failed to create rate limiter for %s: %v", endpoint, err)
		}
		return limiter
	}

	log.Printf("Rate limiting enabled (store: %s)", app.cfg.RateLimitStore)
	return rateLimiters{
		login:   createLimiter(app.cfg.LoginRateLimit, "login"),
		refresh: createLimiter(app.cfg.RefreshRateLimit, "token/refresh"),
	}
}

func runCreateUser(email, password string) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	app, err := initApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	user, err := app.userService.Register(context.Background(), email, password)
	if err != nil {
		log.Fatalf("Failed to create user: %v", err)
	}

	fmt.Printf("Created user id=%d\n", user.ID)
}
