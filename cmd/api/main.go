package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"contractor-backend/internal/analytics"
	"contractor-backend/internal/auth"
	"contractor-backend/internal/cache"
	"contractor-backend/internal/config"
	"contractor-backend/internal/db"
	"contractor-backend/internal/handlers"
	"contractor-backend/internal/intake"
	"contractor-backend/internal/middleware"
	"contractor-backend/internal/notifications"
	"contractor-backend/internal/validation"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, cols, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		logger.Error("mongo connection failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("mongo connected", slog.String("db", cfg.MongoDB))
	defer client.Disconnect(context.Background())

	if err := db.EnsureIndexes(ctx, cols); err != nil {
		logger.Error("index creation failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var sessionCache cache.Cache
	var memory *cache.MemoryCache
	if cfg.RedisURL != "" || cfg.RedisAddr != "" {
		var redisCache *cache.RedisCache
		if cfg.RedisURL != "" {
			redisCache, err = cache.NewRedisFromURL(cfg.RedisURL)
		} else {
			redisCache = cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		}
		if err != nil {
			logger.Error("redis connection failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		if err := redisCache.Ping(ctx); err != nil {
			logger.Error("redis connection failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer redisCache.Close()
		logger.Info("redis connected")
		sessionCache = redisCache
	} else {
		memory = cache.NewMemory()
		logger.Info("session store in memory")
		sessionCache = memory
	}

	var tracker analytics.Tracker = analytics.NewNoop()
	if cfg.NATSURL != "" {
		nc, err := analytics.Connect(cfg.NATSURL)
		if err != nil {
			logger.Error("nats connection failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer nc.Drain()
		tracker = analytics.NewNATSTracker(nc, cfg.NATSSubjectPrefix, logger)
		logger.Info("analytics publishing to nats", slog.String("prefix", cfg.NATSSubjectPrefix))
	}

	var jwtManager *auth.Manager
	if cfg.JWTSecret != "" {
		jwtManager = &auth.Manager{
			Secret:     []byte(cfg.JWTSecret),
			AccessTTL:  time.Duration(cfg.AccessTTLMinutes) * time.Minute,
			RefreshTTL: time.Duration(cfg.RefreshTTLMinutes) * time.Minute,
			Issuer:     "contractor-backend",
		}
	}

	var notifier intake.Notifier
	mailer := notifications.NewBrevoClient(cfg.BrevoAPIKey, cfg.BrevoSenderEmail, cfg.BrevoSenderName, cfg.LeadInboxEmail, cfg.BrevoSandbox)
	if mailer == nil {
		logger.Info("brevo mailer disabled")
	} else {
		logger.Info("brevo mailer enabled", slog.String("sender", cfg.BrevoSenderEmail), slog.Bool("sandbox", cfg.BrevoSandbox))
		notifier = mailer
	}

	val := validation.New()
	attachments := intake.NewGridFSStore(cols.Attachments)
	leadRepo := intake.NewRepository(cols.Leads)
	leadService := intake.NewService(leadRepo, attachments, notifier, cfg.Timezone, cfg.SubmitDelay, logger)
	leadHandler := intake.NewHandler(leadService, val, logger)

	server := &handlers.Server{
		Cfg:         cfg,
		Val:         val,
		Log:         logger,
		Sessions:    handlers.NewSessionStore(sessionCache, cfg.SessionTTL, tracker),
		Deliverer:   leadService,
		Attachments: attachments,
		Tracker:     tracker,
		Users:       auth.NewUserRepository(cols.Users),
		JWT:         jwtManager,
	}

	r := chi.NewRouter()
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.FrontendOrigins))
	r.Use(chiMiddleware.Timeout(90 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Route("/api/v1", func(api chi.Router) {
		server.Mount(api, leadHandler)
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		logger.Info("server started", slog.String("addr", cfg.ServerAddr), slog.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if memory != nil {
		g.Go(func() error {
			sweepSessions(gctx, memory, time.Minute, logger)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
	}
	logger.Info("server stopped")
}

func sweepSessions(ctx context.Context, m *cache.MemoryCache, every time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				logger.Debug("expired sessions swept", slog.Int("count", n))
			}
		}
	}
}
