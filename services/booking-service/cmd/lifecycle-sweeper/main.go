package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/md-rashed-zaman/apptbook/libs/config"
	"github.com/md-rashed-zaman/apptbook/libs/db"
	"github.com/md-rashed-zaman/apptbook/libs/httpx"
	otelx "github.com/md-rashed-zaman/apptbook/libs/otel"
	"github.com/md-rashed-zaman/apptbook/libs/runtime"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/confirmation"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/policy"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/store/postgres"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/sweeper"
)

func main() {
	_ = config.LoadDotEnv()
	service := config.String("SERVICE_NAME", "lifecycle-sweeper")
	port, err := config.Port("PORT", "8090")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

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

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	interval, err := config.Duration("SWEEP_INTERVAL_SECONDS", time.Second, 60)
	if err != nil {
		panic(err)
	}
	batch, err := config.Int("SWEEP_BATCH_SIZE", 100)
	if err != nil {
		panic(err)
	}
	reminderMinutes, err := config.IntList("REMINDER_OFFSETS_MINUTES", "1440,60")
	if err != nil {
		panic(err)
	}

	st := postgres.New(pool)
	m := metrics.NewBookingMetrics(nil)
	lifecycle := booking.NewService(st, logger, booking.Config{
		Policy:  policy.NewStaticProviderMinutes(reminderMinutes),
		Metrics: m,
		Codes:   confirmation.NewGenerator(),
	})
	worker := sweeper.NewWorker(st, lifecycle, logger, sweeper.WorkerConfig{
		Interval:  interval,
		BatchSize: batch,
		Metrics:   m,
	})
	go worker.Run(ctx)

	mux := runtime.NewBaseMux(service, runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)})
	mux.Handle("/metrics", metrics.Handler(nil))
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           otelhttp.NewHandler(httpx.Chain(mux, httpx.WithRequestID, httpx.WithAccessLog(logger)), "sweeper"),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("http server starting", "addr", srv.Addr, "sweep_interval", interval.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("sweeper stopped")
}
