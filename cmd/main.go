package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	"github.com/fraudwatch/fraud-monitor/internal/facades"
	"github.com/fraudwatch/fraud-monitor/internal/handlers"
	appjwt "github.com/fraudwatch/fraud-monitor/internal/jwt"
	"github.com/fraudwatch/fraud-monitor/internal/logger"
	"github.com/fraudwatch/fraud-monitor/internal/middlewares"
	"github.com/fraudwatch/fraud-monitor/internal/models"
	"github.com/fraudwatch/fraud-monitor/internal/repositories"
	"github.com/fraudwatch/fraud-monitor/internal/services"

	_ "github.com/jackc/pgx/v5/stdlib"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Build info variables, set via ldflags at build time.
var (
	buildVersion = "N/A" // Version of the service
	buildDate    = "N/A" // Build date
	buildCommit  = "N/A" // Git commit hash
)

// @title fraud-monitor API
// @version 1.0.0
// @description Fraud-monitoring service: transaction submission with rule evaluation, session reconciliation with a hosted identity provider, user and rule administration
// @host localhost:8080
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	printBuildInfo()
	configPath := parseFlags()

	appHost, appPort, logLevel,
		pgHost, pgPort, pgUser, pgPassword, pgDB,
		pgMaxOpenConns, pgMaxIdleConns,
		redisHost, redisPort, redisDB, redisPassword,
		kafkaBrokers, kafkaTopic,
		idpURL, idpAPIKey,
		jwtSecret, jwtExp,
		syncWatchdogSecond, ruleCacheTTLSecond,
		err := parseConfig(configPath)
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}

	if err := run(context.Background(),
		appHost, appPort, logLevel,
		pgHost, pgPort, pgUser, pgPassword, pgDB,
		pgMaxOpenConns, pgMaxIdleConns,
		redisHost, redisPort, redisDB, redisPassword,
		kafkaBrokers, kafkaTopic,
		idpURL, idpAPIKey,
		jwtSecret, jwtExp,
		syncWatchdogSecond, ruleCacheTTLSecond,
	); err != nil {
		log.Fatalf("application stopped with error: %v", err)
	}
}

// printBuildInfo prints the build version, commit hash, and build date.
func printBuildInfo() {
	fmt.Printf("Version: %s\nCommit: %s\nBuild: %s\n", buildVersion, buildCommit, buildDate)
}

// parseFlags parses command-line flags and returns the config file path.
func parseFlags() string {
	c := flag.String("c", "config.env", "Path to configuration file")
	flag.Parse()
	return *c
}

// parseConfig loads environment variables from a file and returns all
// application, database, Redis, Kafka, identity-provider, JWT and sync
// configuration.
func parseConfig(path string) (
	appHost, appPort, logLevel string,
	pgHost string, pgPort int, pgUser, pgPassword, pgDB string,
	pgMaxOpenConns, pgMaxIdleConns int,
	redisHost string, redisPort, redisDB int, redisPassword string,
	kafkaBrokers, kafkaTopic string,
	idpURL, idpAPIKey string,
	jwtSecretKey string, jwtExpSecond int,
	syncWatchdogSecond, ruleCacheTTLSecond int,
	err error,
) {
	_ = godotenv.Load(path)

	getEnv := func(key, defaultValue string) string {
		if val, ok := os.LookupEnv(key); ok && val != "" {
			return val
		}
		return defaultValue
	}

	// Application config
	appHost = getEnv("APP_HOST", "localhost")
	appPort = getEnv("APP_PORT", "8080")
	logLevel = getEnv("APP_LOG_LEVEL", "info")

	// PostgreSQL config
	pgHost = getEnv("POSTGRES_HOST", "localhost")
	pgUser = getEnv("POSTGRES_USER", "user")
	pgPassword = getEnv("POSTGRES_PASSWORD", "password")
	pgDB = getEnv("POSTGRES_DB", "fraudmonitor")
	if pgPort, err = strconv.Atoi(getEnv("POSTGRES_PORT", "5432")); err != nil {
		return
	}
	if pgMaxOpenConns, err = strconv.Atoi(getEnv("POSTGRES_MAX_OPEN_CONNS", "16")); err != nil {
		return
	}
	if pgMaxIdleConns, err = strconv.Atoi(getEnv("POSTGRES_MAX_IDLE_CONNS", "8")); err != nil {
		return
	}

	// Redis config
	redisHost = getEnv("REDIS_HOST", "localhost")
	if redisPort, err = strconv.Atoi(getEnv("REDIS_PORT", "6379")); err != nil {
		return
	}
	if redisDB, err = strconv.Atoi(getEnv("REDIS_DB", "0")); err != nil {
		return
	}
	redisPassword = getEnv("REDIS_PASSWORD", "")

	// Kafka config
	kafkaBrokers = getEnv("KAFKA_BROKERS", "localhost:9092")
	kafkaTopic = getEnv("KAFKA_TOPIC", "fraud-alerts")

	// Identity provider config
	idpURL = getEnv("IDP_URL", "http://localhost:9000")
	idpAPIKey = getEnv("IDP_API_KEY", "")

	// JWT config
	jwtSecretKey = getEnv("JWT_SECRET_KEY", "my_super_secret_key")
	if jwtExpSecond, err = strconv.Atoi(getEnv("JWT_EXP_SECOND", "3600")); err != nil {
		return
	}

	// Sync config
	if syncWatchdogSecond, err = strconv.Atoi(getEnv("SYNC_WATCHDOG_SECOND", "8")); err != nil {
		return
	}
	if ruleCacheTTLSecond, err = strconv.Atoi(getEnv("RULE_CACHE_TTL_SECOND", "30")); err != nil {
		return
	}

	return
}

// run initializes the logger, database, Redis, Kafka writer, identity
// facade and HTTP server. It sets up routes, applies middleware, and
// handles graceful shutdown.
func run(ctx context.Context,
	appHost, appPort, logLevel string,
	pgHost string, pgPort int, pgUser, pgPassword, pgDB string,
	pgMaxOpenConns, pgMaxIdleConns int,
	redisHost string, redisPort, redisDB int, redisPassword string,
	kafkaBrokers, kafkaTopic string,
	idpURL, idpAPIKey string,
	jwtSecretKey string, jwtExpSecond int,
	syncWatchdogSecond, ruleCacheTTLSecond int,
) error {
	// Initialize logger
	if err := logger.Initialize(logLevel); err != nil {
		fmt.Println("failed to initialize logger:", err)
		return err
	}
	defer logger.Sync()
	logger.Log.Infof("Logger initialized with level %s", logLevel)

	// Connect to PostgreSQL
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		pgUser, pgPassword, pgHost, pgPort, pgDB)
	logger.Log.Infof("Connecting to PostgreSQL at %s:%d/%s", pgHost, pgPort, pgDB)

	db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
	if err != nil {
		logger.Log.Fatal("PostgreSQL connection error:", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(pgMaxOpenConns)
	db.SetMaxIdleConns(pgMaxIdleConns)
	if err := db.PingContext(ctx); err != nil {
		logger.Log.Fatal("PostgreSQL ping failed:", err)
	}

	// Connect to Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", redisHost, redisPort),
		Password: redisPassword,
		DB:       redisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Log.Fatal("Redis connection error:", err)
	}
	defer rdb.Close()

	// Kafka writer for fraud alerts
	kafkaWriter := &kafka.Writer{
		Addr:     kafka.TCP(strings.Split(kafkaBrokers, ",")...),
		Topic:    kafkaTopic,
		Balancer: &kafka.LeastBytes{},
	}
	defer kafkaWriter.Close()

	// Identity provider facade
	identity := facades.NewIdentityFacade(&http.Client{Timeout: 10 * time.Second}, idpURL, idpAPIKey)

	// JWT service
	jwtSvc := appjwt.New(jwtSecretKey, time.Duration(jwtExpSecond)*time.Second)

	// Repositories
	userReadRepo := repositories.NewUserReadRepository(db)
	userWriteRepo := repositories.NewUserWriteRepository(db, middlewares.GetTxFromContext)
	txnReadRepo := repositories.NewTransactionReadRepository(db)
	txnWriteRepo := repositories.NewTransactionWriteRepository(db, middlewares.GetTxFromContext)
	ruleReadRepo := repositories.NewRuleReadRepository(db)
	ruleWriteRepo := repositories.NewRuleWriteRepository(db)
	auditReadRepo := repositories.NewAuditReadRepository(db)
	auditWriteRepo := repositories.NewAuditWriteRepository(db)
	ruleCache := repositories.NewRuleCacheRepository(rdb, time.Duration(ruleCacheTTLSecond)*time.Second)
	sessionStore := repositories.NewSessionStateRepository(rdb, 30*time.Minute)

	// Services
	ruleEngine := services.NewRuleEngine(ruleReadRepo, ruleCache)
	authService := services.NewAuthService(userReadRepo, userWriteRepo, jwtSvc)
	syncService := services.NewSyncService(sessionStore, userReadRepo, userWriteRepo, identity, jwtSvc, auditWriteRepo,
		time.Duration(syncWatchdogSecond)*time.Second)
	txnService := services.NewTransactionService(ruleEngine, txnWriteRepo, txnReadRepo, userReadRepo, auditWriteRepo, kafkaWriter)
	transferService := services.NewTransferService(userReadRepo, userWriteRepo, auditWriteRepo)
	userAdminService := services.NewUserAdminService(userReadRepo, userWriteRepo, sessionStore, auditWriteRepo)
	ruleAdminService := services.NewRuleAdminService(ruleReadRepo, ruleWriteRepo, ruleCache, auditWriteRepo)

	// Setup router
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middlewares.LoggingMiddleware(logger.Log))

	authMiddleware := middlewares.AuthMiddleware(jwtSvc)
	staffOnly := middlewares.RequireRole(models.RoleEmployee, models.RoleAdmin)
	adminOnly := middlewares.RequireRole(models.RoleAdmin)

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/register", handlers.NewRegisterHandler(authService))
		r.Post("/login", handlers.NewLoginHandler(authService))
		r.Post("/auth/signin", handlers.NewSignInHandler(syncService))
		r.Post("/auth/callback", handlers.NewCallbackHandler(syncService))
		r.Get("/auth/attempts/{id}", handlers.NewAttemptStateHandler(syncService))
		r.Delete("/auth/attempts/{id}", handlers.NewCancelAttemptHandler(syncService))

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)

			r.Get("/balance", handlers.NewBalanceHandler(transferService))
			r.With(middlewares.TxMiddleware(db)).Post("/transfer", handlers.NewTransferHandler(transferService))

			r.Post("/transactions", handlers.NewCreateTransactionHandler(txnService))
			r.Get("/transactions", handlers.NewListTransactionsHandler(txnService))
			r.Get("/transactions/{id}", handlers.NewGetTransactionHandler(txnService))
			r.With(staffOnly).Put("/transactions/{id}", handlers.NewReviewTransactionHandler(txnService, userReadRepo))

			r.With(staffOnly).Get("/audit-logs", handlers.NewListAuditLogsHandler(auditReadRepo))
			r.With(staffOnly).Get("/fraud-rules", handlers.NewListRulesHandler(ruleAdminService))

			r.Group(func(r chi.Router) {
				r.Use(adminOnly)

				r.Post("/fraud-rules", handlers.NewCreateRuleHandler(ruleAdminService, userReadRepo))
				r.Delete("/fraud-rules/{id}", handlers.NewDeleteRuleHandler(ruleAdminService, userReadRepo))

				r.Get("/users", handlers.NewListUsersHandler(userAdminService))
				r.Get("/users/by-email/{email}", handlers.NewGetUserByEmailHandler(userAdminService))
				r.Post("/users", handlers.NewCreateUserHandler(userAdminService, userReadRepo))
				r.Put("/users/{id}", handlers.NewUpdateUserHandler(userAdminService, userReadRepo))
			})
		})
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL(fmt.Sprintf("http://%s:%s/swagger/doc.json", appHost, appPort)),
	))

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%s", appHost, appPort),
		Handler: r,
	}

	// Graceful shutdown
	errChan := make(chan error, 1)
	ctxShutdown, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	go func() {
		logger.Log.Infof("HTTP server listening on %s:%s", appHost, appPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	select {
	case <-ctxShutdown.Done():
		logger.Log.Info("Shutdown signal received, stopping HTTP server...")
	case serveErr := <-errChan:
		return serveErr
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Errorw("HTTP server shutdown error", "error", err)
	}

	logger.Log.Info("HTTP server stopped gracefully")
	return nil
}
