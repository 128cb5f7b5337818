package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"rollcall/internal/attendance"
	"rollcall/internal/auth"
	"rollcall/internal/cloudinary"
	"rollcall/internal/config"
	"rollcall/internal/event"
	"rollcall/internal/handler"
	"rollcall/internal/httpmiddleware"
	"rollcall/internal/metrics"
	"rollcall/internal/queue"
	"rollcall/internal/roster"
	"rollcall/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

// stores groups the repositories behind each service.
type stores struct {
	auth       auth.Store
	events     event.Store
	roster     roster.Store
	attendance attendance.Store
	health     handler.Checker
}

func openStores(ctx context.Context, cfg config.App) (stores, func(), error) {
	if cfg.StoreBackend == "memory" {
		log.Println("using in-memory store; data is lost on restart")
		mem := store.NewMemory()
		return stores{auth: mem, events: mem, roster: mem, attendance: mem, health: mem}, func() {}, nil
	}

	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return stores{}, nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return stores{}, nil, err
	}
	return postgresStores(db.Client, db), func() { _ = db.Close() }, nil
}

func postgresStores(client *sql.DB, health handler.Checker) stores {
	return stores{
		auth:       auth.NewRepository(client),
		events:     event.NewRepository(client),
		roster:     roster.NewRepository(client),
		attendance: attendance.NewRepository(client),
		health:     health,
	}
}

func runHTTP(cfg config.App) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, closeStores, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStores()

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()

	m := metrics.New()

	var q queue.Queue
	if cfg.InProcessHours() {
		if cfg.QueueBackend == "redis" {
			log.Println("memory store: closed logs stay in-process instead of the redis queue")
		}
		mq := queue.NewInMemory(64)
		q = mq
		msgs, err := mq.Consume(ctx)
		if err != nil {
			return err
		}
		go attendance.NewHoursWorker(st.attendance, m).Run(ctx, msgs)
		log.Println("in-process hours worker started")
	} else {
		q = queue.NewRedisQueue(redisClient.Client, cfg.QueueKey)
	}

	rosterOpts := []roster.Option{roster.WithRecorder(m), roster.WithArchiveTimeout(cfg.ArchiveTimeout)}
	if cfg.CloudinaryEnabled() {
		cdn := cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		rosterOpts = append(rosterOpts, roster.WithArchiver(cdn))
		log.Println("Cloudinary configured:", cfg.CloudinaryCloudName)
	} else {
		log.Println("Cloudinary not configured, roster files will not be archived")
	}

	authSvc := auth.NewService(st.auth, auth.NewTokens(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL))
	checks := map[string]handler.Checker{"db": st.health}
	if !cfg.InProcessHours() || cfg.RateLimitBackend == "redis" {
		checks["redis"] = redisClient
	}
	h := handler.New(
		authSvc,
		event.NewService(st.events),
		roster.NewService(st.roster, rosterOpts...),
		attendance.NewService(st.attendance, q, m),
		handler.Options{
			SecureCookies:  cfg.Production(),
			CookieMaxAge:   authSvc.Tokens().TTL(),
			MaxUploadBytes: cfg.MaxUploadBytes(),
			Checks:         checks,
		},
	)

	var limiter httpmiddleware.Limiter
	if cfg.RateLimitBackend == "redis" {
		limiter = httpmiddleware.NewRedisWindow(redisClient.Client, cfg.RateLimitPerMin)
	} else {
		limiter = httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin)
	}

	r := gin.New()
	r.MaxMultipartMemory = cfg.MaxUploadBytes()

	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.ClientURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}))
	r.Use(httpmiddleware.SecurityHeaders())
	r.Use(m.Middleware())
	r.Use(httpmiddleware.RateLimit(limiter))

	r.GET("/metrics", gin.WrapH(m.Handler()))
	h.Routes(r)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}
