package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/md-rashed-zaman/apptbook/libs/auth"
	"github.com/md-rashed-zaman/apptbook/libs/config"
	"github.com/md-rashed-zaman/apptbook/libs/db"
	"github.com/md-rashed-zaman/apptbook/libs/grpcx"
	"github.com/md-rashed-zaman/apptbook/libs/httpx"
	"github.com/md-rashed-zaman/apptbook/libs/kafkax"
	otelx "github.com/md-rashed-zaman/apptbook/libs/otel"
	"github.com/md-rashed-zaman/apptbook/libs/runtime"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/catalog"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/chatbot"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/confirmation"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/feedback"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/handlers"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/notifications"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/payments"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/policy"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/query"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/store"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/store/memory"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/store/postgres"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		slog.Error("load .env failed", "err", err)
	}
	service := config.String("SERVICE_NAME", "booking-service")
	logger := runtime.NewLogger(service)
	if err := run(service, logger); err != nil {
		logger.Error("booking service stopped", "err", err)
		os.Exit(1)
	}
}

func run(service string, logger *slog.Logger) error {
	port, err := config.Port("PORT", "8083")
	if err != nil {
		return err
	}
	ctx, stop := runtime.SignalContext(logger)
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	var (
		st     store.Store
		pool   *db.Pool
		checks []runtime.ReadyCheck
	)
	switch driver := config.String("STORE_DRIVER", "postgres"); driver {
	case "memory":
		logger.Warn("using in-memory store; data is lost on restart")
		st = memory.New()
	case "postgres":
		dbURL, err := config.RequiredString("DATABASE_URL")
		if err != nil {
			return err
		}
		pool, err = db.Open(ctx, dbURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		st = postgres.New(pool)
		checks = append(checks, runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)})
	default:
		return errors.New("unknown STORE_DRIVER " + driver)
	}

	reminderMinutes, err := config.IntList("REMINDER_OFFSETS_MINUTES", "1440,60")
	if err != nil {
		return err
	}
	enforceHours, err := config.Bool("ENFORCE_WORKING_HOURS", true)
	if err != nil {
		return err
	}
	m := metrics.NewBookingMetrics(nil)
	logger.Info("reminder offsets configured", "minutes", reminderMinutes)

	h := handlers.New(logger, handlers.Deps{
		Booking: booking.NewService(st, logger, booking.Config{
			Policy:              policy.NewStaticProviderMinutes(reminderMinutes),
			Metrics:             m,
			Codes:               confirmation.NewGenerator(),
			EnforceWorkingHours: enforceHours,
		}),
		Query:         query.New(st, nil),
		Checker:       availability.NewChecker(st, nil),
		Catalog:       catalog.New(st, logger),
		Feedback:      feedback.New(st),
		Payments:      payments.New(st, logger),
		Notifications: notifications.NewDispatcher(st),
		Chatbot:       chatbot.New(st, nil),
	})

	protect, err := authMiddleware(logger)
	if err != nil {
		return err
	}

	brokers := config.String("KAFKA_BROKERS", "")
	if brokers != "" {
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(kafkax.SplitBrokers(brokers))})
	}
	mux := runtime.NewBaseMux(service, checks...)
	mux.Handle("/metrics", metrics.Handler(nil))
	h.Register(mux, protect)

	middlewares, closeLimiter, err := httpMiddlewares(logger)
	if err != nil {
		return err
	}
	defer closeLimiter()
	httpHandler := otelhttp.NewHandler(httpx.Chain(mux, middlewares...), "booking")

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "err", err)
		}
		logger.Info("http server stopped")
		return nil
	})

	if grpcPort := config.String("GRPC_PORT", ""); grpcPort != "" {
		grpcSrv, health := grpcx.NewServer(logger)
		health.SetServingStatus(service, healthpb.HealthCheckResponse_SERVING)
		lis, err := net.Listen("tcp", ":"+grpcPort)
		if err != nil {
			return err
		}
		g.Go(func() error {
			logger.Info("grpc server starting", "addr", lis.Addr().String())
			return grpcSrv.Serve(lis)
		})
		g.Go(func() error {
			<-gctx.Done()
			health.Shutdown()
			grpcSrv.GracefulStop()
			return nil
		})
	}

	if pool != nil && brokers != "" {
		pollEvery, err := config.Duration("OUTBOX_POLL_MS", time.Millisecond, 2000)
		if err != nil {
			return err
		}
		writer := kafkax.NewWriter(kafkax.SplitBrokers(brokers))
		defer func() { _ = writer.Close() }()
		publisher := outbox.NewPublisher(pool, outbox.NewRepository(), writer, logger, outbox.PublisherConfig{
			PollEvery: pollEvery,
			BatchSize: 50,
			Recorder:  m,
		})
		g.Go(func() error { return publisher.Run(gctx) })
	} else {
		logger.Warn("outbox publisher disabled", "store_driver_postgres", pool != nil, "kafka_configured", brokers != "")
	}

	return g.Wait()
}

// authMiddleware verifies bearer tokens when JWT_SECRET or JWKS_URL is set.
// Without either, identity headers are trusted as set by an upstream gateway.
func authMiddleware(logger *slog.Logger) (func(http.Handler) http.Handler, error) {
	v := &auth.Verifier{Secret: config.String("JWT_SECRET", "")}
	if url := config.String("JWKS_URL", ""); url != "" {
		ttl, err := config.Duration("JWKS_CACHE_SECONDS", time.Second, 300)
		if err != nil {
			return nil, err
		}
		v.Keys = auth.NewJWKSClient(url, ttl)
	}
	if !v.Enabled() {
		logger.Warn("jwt verification disabled; trusting identity headers")
		return nil, nil
	}
	return auth.RequireAuth(v), nil
}

func httpMiddlewares(logger *slog.Logger) ([]httpx.Middleware, func(), error) {
	perMinute, err := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	if err != nil {
		return nil, nil, err
	}
	timeout, err := config.Duration("REQUEST_TIMEOUT_SECONDS", time.Second, 15)
	if err != nil {
		return nil, nil, err
	}

	var (
		limiter httpx.Limiter
		closeFn = func() {}
	)
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		redisDB, err := config.Int("REDIS_DB", 0)
		if err != nil {
			return nil, nil, err
		}
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       redisDB,
		})
		closeFn = func() { _ = rdb.Close() }
		limiter = httpx.NewRedisRateLimiter(rdb, perMinute, time.Minute, "apptbook:rl:")
	} else {
		limiter = httpx.NewMemoryRateLimiter(perMinute, time.Minute)
	}

	return []httpx.Middleware{
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.APICORSPolicy(config.String("CORS_ALLOWED_ORIGINS", ""))),
		httpx.RateLimit(limiter, logger, true),
		httpx.WithBodyLimit(1 << 20),
		httpx.WithTimeout(timeout),
	}, closeFn, nil
}
