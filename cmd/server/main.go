// @title Internship Hub API
// @version 1.0
// @description Announcement and notification service API documentation.
// @BasePath /
// @schemes http https
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
	migrate "github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"internship-hub/internal/api"
	"internship-hub/internal/api/middleware"
	"internship-hub/internal/audience"
	"internship-hub/internal/model"
	"internship-hub/internal/repository"
	"internship-hub/internal/repository/postgres"
	"internship-hub/internal/scheduler"
	schedulerjobs "internship-hub/internal/scheduler/jobs"
	"internship-hub/internal/service"
	"internship-hub/pkg/clock"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "healthcheck":
			os.Exit(runHealthcheck())
		case "migrate":
			if err := runMigrateCommand(os.Args[2:]); err != nil {
				// #nosec G705 -- CLI output only; control characters are stripped.
				fmt.Fprintln(os.Stderr, sanitizeCLIError(err))
				os.Exit(1)
			}
			return
		case "create-user":
			if err := runCreateUserCommand(os.Args[2:]); err != nil {
				// #nosec G705 -- CLI output only; control characters are stripped.
				fmt.Fprintln(os.Stderr, sanitizeCLIError(err))
				os.Exit(1)
			}
			return
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		panic(fmt.Errorf("load config: %w", err))
	}

	logger, err := newLogger(cfg)
	if err != nil {
		panic(fmt.Errorf("init logger: %w", err))
	}
	defer logger.Sync() //nolint:errcheck

	isDebugMode := strings.EqualFold(cfg.App.Env, "development")
	if !isDebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	if strings.TrimSpace(cfg.JWT.PublicKey) != "" {
		publicKey, keyErr := jwt.ParseRSAPublicKeyFromPEM([]byte(cfg.JWT.PublicKey))
		if keyErr != nil {
			logger.Fatal("parse jwt public key failed", zap.Error(keyErr))
		}
		middleware.ConfigureJWT(publicKey, cfg.JWT.Issuer)
	} else {
		logger.Warn("jwt.public_key not configured, falling back to INTERNSHIP_JWT_PUBLIC_KEY")
	}

	dbPool, err := newDBPool(context.Background(), cfg)
	if err != nil {
		logger.Fatal("init database pool failed", zap.Error(err))
	}
	defer dbPool.Close()

	loc, err := time.LoadLocation(cfg.App.Timezone)
	if err != nil {
		logger.Fatal("load timezone failed", zap.String("timezone", cfg.App.Timezone), zap.Error(err))
	}
	clk := clock.New(loc)

	announcementRepo := postgres.NewAnnouncementRepository(dbPool)
	notificationRepo := postgres.NewNotificationRepository(dbPool)
	reminderRepo := postgres.NewReminderRepository(dbPool)
	userRepo := postgres.NewUserRepository(dbPool)
	auditRepo := postgres.NewAuditRepository(dbPool)

	resolver := audience.NewResolver(userRepo, logger)
	fanoutSvc := service.NewFanoutService(notificationRepo, clk, logger)
	reconcileSvc := service.NewReconcileService(
		announcementRepo,
		notificationRepo,
		reminderRepo,
		resolver,
		fanoutSvc,
		clk,
		service.ReconcileOptions{
			DeferredAudience: cfg.Announcement.DeferredAudience,
			ReminderWindow:   cfg.Announcement.ReminderWindow,
		},
		logger,
	)
	announcementSvc := service.NewAnnouncementService(
		announcementRepo,
		auditRepo,
		resolver,
		fanoutSvc,
		reconcileSvc,
		clk,
		service.AnnouncementOptions{ScanOnRead: cfg.Announcement.ScanOnRead},
		logger,
	)
	notificationSvc := service.NewNotificationService(notificationRepo, logger)
	auditSvc := service.NewAuditService(auditRepo, logger)

	cronRunner := scheduler.NewScheduler(scheduler.Deps{
		ReconcileJob:  schedulerjobs.NewReconcileJob(reconcileSvc, logger),
		ReconcileSpec: cfg.Scheduler.ReconcileSpec,
	}, logger)
	cronRunner.Start()
	defer func() {
		stopCtx := cronRunner.Stop()
		select {
		case <-stopCtx.Done():
		case <-time.After(2 * time.Second):
		}
	}()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(buildCORSMiddleware(cfg))
	router.Use(middleware.RequestLogger(logger))

	healthHandler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	readyHandler := func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.Database.PingTimeout)
		defer cancel()

		if err := dbPool.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not_ready",
				"error":  "database unavailable",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}

	router.GET("/health", healthHandler)
	router.GET("/health/ready", readyHandler)
	router.GET("/api/v1/health", healthHandler)
	router.GET("/api/v1/health/ready", readyHandler)

	internalMetrics := router.Group("/internal")
	internalMetrics.Use(middleware.InternalTokenAuth(cfg.Security.InternalToken))
	internalMetrics.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if isDebugMode && cfg.Debug.PprofEnabled {
		registerPprofRoutes(router)
		logger.Info("pprof endpoint enabled", zap.String("path", "/debug/pprof/"))
	}

	api.RegisterV1Routes(router, api.V1Services{
		Announcements: announcementSvc,
		Notifications: notificationSvc,
		Audit:         auditSvc,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	logger.Info("server started",
		zap.String("addr", srv.Addr),
		zap.String("timezone", loc.String()),
		zap.String("deferred_audience", cfg.Announcement.DeferredAudience),
		zap.Bool("scan_on_read", cfg.Announcement.ScanOnRead),
		zap.String("version", Version),
		zap.String("commit", Commit),
		zap.String("build_time", BuildTime),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-serverErrCh:
		if err != nil {
			logger.Fatal("server exited unexpectedly", zap.Error(err))
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown server failed", zap.Error(err))
	}
}

func newLogger(cfg Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if strings.EqualFold(cfg.App.Env, "development") {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	if cfg.Log.Level != "" {
		if err := zapCfg.Level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
			return nil, fmt.Errorf("invalid log.level: %w", err)
		}
	}

	if cfg.Log.Encoding != "" {
		zapCfg.Encoding = cfg.Log.Encoding
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build zap logger failed: %w", err)
	}
	return logger.With(zap.String("service", "internship-hub")), nil
}

func newDBPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database.url failed: %w", err)
	}

	const maxInt32 = int(^uint32(0) >> 1)
	if cfg.Database.MaxConns > maxInt32 {
		return nil, fmt.Errorf("database.max_conns must be <= %d", maxInt32)
	}

	poolCfg.MaxConns = int32(cfg.Database.MaxConns) // #nosec G115 -- validated upper bound above.

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool failed: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Database.PingTimeout)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database failed: %w", err)
	}

	return pool, nil
}

func buildCORSMiddleware(cfg Config) gin.HandlerFunc {
	origins := make([]string, 0, len(cfg.CORS.AllowOrigins))
	for _, origin := range cfg.CORS.AllowOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		origins = append(origins, trimmed)
	}
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173"}
	}

	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

func registerPprofRoutes(router *gin.Engine) {
	pprofGroup := router.Group("/debug/pprof")
	pprofGroup.GET("/", gin.WrapF(pprof.Index))
	pprofGroup.GET("/cmdline", gin.WrapF(pprof.Cmdline))
	pprofGroup.GET("/profile", gin.WrapF(pprof.Profile))
	pprofGroup.GET("/symbol", gin.WrapF(pprof.Symbol))
	pprofGroup.POST("/symbol", gin.WrapF(pprof.Symbol))
	pprofGroup.GET("/trace", gin.WrapF(pprof.Trace))
	pprofGroup.GET("/goroutine", gin.WrapH(pprof.Handler("goroutine")))
	pprofGroup.GET("/heap", gin.WrapH(pprof.Handler("heap")))
}

func runMigrateCommand(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var direction string
	var dir string
	fs.StringVar(&direction, "direction", "up", "up | down")
	fs.StringVar(&dir, "dir", "", "migration directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config failed: %w", err)
	}

	migrationDir := strings.TrimSpace(dir)
	if migrationDir == "" {
		migrationDir = "/migrations"
		if _, statErr := os.Stat(migrationDir); statErr != nil {
			migrationDir = "./migrations"
		}
	}

	if err := runMigrate("file://"+migrationDir, cfg.Database.URL, direction); err != nil {
		return err
	}

	fmt.Printf("migrations applied successfully (%s)\n", direction)
	return nil
}

func runMigrate(sourceURL, databaseURL, direction string) error {
	migrator, err := migrate.New(sourceURL, databaseURL)
	if err != nil {
		return fmt.Errorf("init migrator failed: %w", err)
	}
	defer migrator.Close() //nolint:errcheck

	switch strings.ToLower(strings.TrimSpace(direction)) {
	case "up":
		err = migrator.Up()
	case "down":
		err = migrator.Steps(-1)
	default:
		return fmt.Errorf("unknown migrate direction %q", direction)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations failed: %w", err)
	}
	return nil
}

func runCreateUserCommand(args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var username string
	var email string
	var role string

	fs.StringVar(&username, "username", "", "username")
	fs.StringVar(&email, "email", "", "email")
	fs.StringVar(&role, "role", string(model.UserRoleStudent), "role")

	if err := fs.Parse(args); err != nil {
		return err
	}

	user, err := buildCLIUser(username, email, role)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config failed: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg.Database.MaxConns = 2
	pool, err := newDBPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect database failed: %w", err)
	}
	defer pool.Close()

	if err := postgres.NewUserRepository(pool).Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			fmt.Printf("user '%s' already exists, skip\n", user.Username)
			return nil
		}
		return fmt.Errorf("create user failed: %w", err)
	}

	fmt.Printf("user '%s' (%s) created successfully\n", user.Username, user.Role)
	return nil
}

func buildCLIUser(username, email, role string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, errors.New("username is required")
	}

	userRole := model.UserRole(strings.ToLower(strings.TrimSpace(role)))
	if !userRole.Valid() {
		return nil, fmt.Errorf("unknown role %q", role)
	}

	user := &model.User{Username: username, Role: userRole}
	if trimmed := strings.TrimSpace(email); trimmed != "" {
		if !strings.Contains(trimmed, "@") {
			return nil, errors.New("invalid email format")
		}
		user.Email = &trimmed
	}
	return user, nil
}

func runHealthcheck() int {
	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	resp, err := client.Get("http://localhost:8080/health/ready")
	if err != nil {
		return 1
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return 1
	}
	return 0
}

func sanitizeCLIError(err error) string {
	if err == nil {
		return ""
	}

	text := strings.ReplaceAll(err.Error(), "\n", " ")
	text = strings.ReplaceAll(text, "\r", " ")
	return strings.TrimSpace(text)
}
