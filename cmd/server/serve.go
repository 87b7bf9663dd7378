package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"clinic-booking-api/internal/auth"
	"clinic-booking-api/internal/booking"
	"clinic-booking-api/internal/config"
	"clinic-booking-api/internal/database"
	"clinic-booking-api/internal/directory"
	"clinic-booking-api/internal/doctor"
	"clinic-booking-api/internal/handler"
	"clinic-booking-api/internal/logging"
	"clinic-booking-api/internal/metrics"
	"clinic-booking-api/internal/middleware"
	"clinic-booking-api/internal/notify"
	"clinic-booking-api/internal/rpc"
	"clinic-booking-api/internal/store"
	"clinic-booking-api/internal/store/memstore"
	"clinic-booking-api/internal/store/mongostore"
)

func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (store.Backend, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		if err := database.Migrate(cfg.DatabaseURL); err != nil {
			return nil, err
		}
		pool, err := database.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
		if err != nil {
			return nil, err
		}
		log.Info().Msg("connected to postgres")
		return store.New(pool), nil
	case config.DriverMongo:
		st, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		if err := st.EnsureIndexes(ctx); err != nil {
			st.Close()
			return nil, err
		}
		log.Info().Str("database", cfg.MongoDatabase).Msg("connected to mongo")
		return st, nil
	default:
		log.Warn().Msg("using in-memory store, data is lost on exit")
		return memstore.New(), nil
	}
}

func newSender(ctx context.Context, cfg *config.Config, log zerolog.Logger) (notify.EmailSender, error) {
	switch cfg.EmailProvider {
	case config.EmailSendGrid:
		return notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.EmailFrom,
			FromName:  cfg.EmailFromName,
		}, log), nil
	case config.EmailSES:
		client, err := notify.NewSESClient(ctx, cfg.AWSRegion)
		if err != nil {
			return nil, err
		}
		return notify.NewSESSender(client, notify.SESConfig{
			Region:    cfg.AWSRegion,
			FromEmail: cfg.EmailFrom,
			FromName:  cfg.EmailFromName,
		}, log), nil
	default:
		return notify.NewStubSender(log), nil
	}
}

func runServer(parent context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logging.New(cfg.LogLevel, os.Stdout, cfg.IsDev())

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	m := metrics.New(prometheus.DefaultRegisterer)
	sender, err := newSender(ctx, cfg, log)
	if err != nil {
		return err
	}
	notifier := notify.NewNotifier(sender, notify.Options{
		Attempts: cfg.NotifyAttempts,
		Timeout:  cfg.NotifyTimeout,
	}, log, m)

	signer := auth.NewSigner(cfg.TokenSecret, cfg.TokenTTL)
	users := directory.New(st, signer)
	gate := auth.NewGate(signer)
	guard := auth.NewGuard(users)
	availability := booking.NewAvailability(st, st)
	ledger := booking.NewLedger(st, notifier, booking.LedgerOptions{StrictSlots: cfg.StrictSlots}, log, m)
	doctors := doctor.NewRegistry(st)
	limiter := middleware.NewRateLimiter(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst)

	h := handler.New(availability, ledger, users, doctors, st, log)
	httpSrv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: h.Routes(handler.RouterConfig{
			Gate:        gate,
			Guard:       guard,
			Metrics:     m,
			Gatherer:    prometheus.DefaultGatherer,
			Limiter:     limiter,
			CORSOrigins: cfg.CORSOrigins,
			TrustProxy:  cfg.TrustProxy,
			Log:         log,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcSrv := rpc.NewServer(rpc.Deps{
		Availability: availability,
		Ledger:       ledger,
		Users:        users,
		Doctors:      doctors,
		Gate:         gate,
		Guard:        guard,
		Limiter:      limiter,
		Metrics:      m,
		Log:          log,
	})
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info().Str("port", cfg.GRPCPort).Msg("grpc listening")
		if err := grpcSrv.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc: %w", err)
		}
	}()
	go func() {
		log.Info().Str("port", cfg.Port).Str("store", cfg.StoreDriver).Bool("strict_slots", cfg.StrictSlots).Msg("http listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
	case err = <-errCh:
		log.Error().Err(err).Msg("server failed")
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if serr := httpSrv.Shutdown(shutdownCtx); serr != nil {
		log.Error().Err(serr).Msg("http shutdown")
	}
	grpcSrv.GracefulStop()
	// let queued confirmation emails finish
	notifier.Wait()
	log.Info().Msg("stopped")
	return err
}
