package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"lexcrm/backend/internal/blob"
	"lexcrm/backend/internal/calendar"
	"lexcrm/backend/internal/config"
	"lexcrm/backend/internal/observability/metrics"
	"lexcrm/backend/internal/service/appointments"
	"lexcrm/backend/internal/service/availability"
	"lexcrm/backend/internal/service/clients"
	"lexcrm/backend/internal/service/documents"
	"lexcrm/backend/internal/service/messaging"
	"lexcrm/backend/internal/service/users"
	"lexcrm/backend/internal/store/postgres"
	grpcTransport "lexcrm/backend/internal/transport/grpc"
	"lexcrm/backend/internal/transport/rest"
	"lexcrm/backend/internal/whatsapp"
)

// calendarClient is what both the reconciler and availability need from the
// calendar; the real client and calendar.Disabled satisfy it.
type calendarClient interface {
	appointments.Calendar
	availability.BusyLister
}

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With(
		slog.String("service", "lexcrm-server"),
	)
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)})).With(
		slog.String("service", "lexcrm-server"),
	)
	slog.SetDefault(log)

	log.Info("starting",
		slog.String("http_addr", cfg.HTTPAddr),
		slog.String("grpc_addr", cfg.GRPCAddr()),
		slog.String("log_level", cfg.LogLevel),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MigrateOnStart {
		log.Info("applying migrations")
		if err := postgres.MigrateUp(cfg.DatabaseURL); err != nil {
			log.Error("migrations failed", slog.Any("err", err))
			os.Exit(1)
		}
	}

	log.Info("connecting to database", databaseLogArgs(cfg.DatabaseURL)...)
	db, err := postgres.Open(ctx, cfg.DatabaseURL, postgres.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
		SlowQuery:       cfg.DBSlowQuery,
	}, log)
	if err != nil {
		args := append([]any{slog.Any("err", err)}, databaseLogArgs(cfg.DatabaseURL)...)
		log.Error("database connection failed", args...)
		os.Exit(1)
	}
	defer func() {
		if err := postgres.Close(db); err != nil {
			log.Warn("database close failed", slog.Any("err", err))
		}
	}()

	loc, err := time.LoadLocation(cfg.CalendarTimezone)
	if err != nil {
		log.Error("invalid calendar timezone", slog.String("timezone", cfg.CalendarTimezone), slog.Any("err", err))
		os.Exit(1)
	}

	cal := newCalendar(ctx, cfg, loc, log)

	apptRepo := postgres.NewAppointmentRepo(db)
	clientRepo := postgres.NewClientRepo(db)
	docRepo := postgres.NewDocumentRepo(db)
	convRepo := postgres.NewConversationRepo(db)
	userRepo := postgres.NewUserRepo(db)
	instanceRepo := postgres.NewInstanceRepo(db)
	dashboardRepo := postgres.NewDashboardRepo(db)

	var fallback availability.BusyLister
	if cfg.AvailabilityFallback {
		fallback = availability.BusyListerFunc(apptRepo.BusyTimes)
	}
	availabilitySvc, err := availability.NewService(cal, fallback, availability.Config{
		SlotTimes:     cfg.SlotTimes,
		LookaheadDays: cfg.LookaheadDays,
		Location:      loc,
	}, log.With(slog.String("component", "availability")))
	if err != nil {
		log.Error("availability setup failed", slog.Any("err", err))
		os.Exit(1)
	}

	blobs, err := newBlobStore(ctx, cfg)
	if err != nil {
		log.Error("document storage setup failed", slog.String("backend", cfg.BlobBackend), slog.Any("err", err))
		os.Exit(1)
	}

	var tokens *users.TokenIssuer
	if cfg.JWTSecret != "" {
		if tokens, err = users.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL); err != nil {
			log.Error("token issuer setup failed", slog.Any("err", err))
			os.Exit(1)
		}
	} else {
		log.Warn("auth.jwt_secret not set; the API is unauthenticated and login is disabled")
	}

	gateway := whatsapp.NewClient(whatsapp.WithTimeouts(cfg.GatewayState, cfg.GatewaySend))

	apptSvc := appointments.NewService(apptRepo, clientRepo, cal, metrics.NewMirrorMetrics(nil), log.With(slog.String("component", "appointments")))
	clientSvc := clients.NewService(clientRepo, apptRepo, docRepo, convRepo, dashboardRepo, log)
	docSvc := documents.NewService(docRepo, clientRepo, blobs, log.With(slog.String("component", "documents")))
	userSvc := users.NewService(userRepo, tokens, log.With(slog.String("component", "users")))
	msgSvc := messaging.NewService(instanceRepo, convRepo, gateway, log.With(slog.String("component", "messaging")))

	if err := userSvc.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Error("bootstrap admin failed", slog.Any("err", err))
		os.Exit(1)
	}

	opts := rest.Options{
		CORSOrigins:    cfg.CORSOrigins,
		RequestTimeout: cfg.HTTPRequestTimeout,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Limiter:        newLimiter(cfg, log),
		Observer:       metrics.NewHTTPMetrics(nil),
		Metrics:        promhttp.Handler(),
		Log:            log,
	}
	if tokens != nil {
		opts.Tokens = tokens
	}
	handler := rest.NewRouter(rest.Services{
		Appointments: apptSvc,
		Availability: availabilitySvc,
		Clients:      clientSvc,
		Documents:    docSvc,
		Users:        userSvc,
		Messaging:    msgSvc,
	}, opts)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
	}
	grpcServer := grpcTransport.NewServer(cfg.GRPCRequestTimeout, log)

	lis, err := net.Listen("tcp", cfg.GRPCAddr())
	if err != nil {
		log.Error("grpc listen failed", slog.Any("err", err), slog.String("grpc_addr", cfg.GRPCAddr()))
		os.Exit(1)
	}

	errCh := make(chan error, 2)
	go func() {
		errCh <- grpcServer.Serve(lis)
	}()
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go grpcServer.Watch(ctx, db, 15*time.Second)

	log.Info("servers started", slog.String("http_addr", cfg.HTTPAddr), slog.String("grpc_addr", cfg.GRPCAddr()))

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error("server stopped with error", slog.Any("err", err))
		}
	}
	shutdown(log, httpServer, grpcServer, cfg.ShutdownTimeout)
}

// newCalendar builds the Google Calendar client, or a Disabled stand-in when
// the calendar is not configured so the CRM still runs without mirroring.
func newCalendar(ctx context.Context, cfg config.Config, loc *time.Location, log *slog.Logger) calendarClient {
	creds := []byte(cfg.CalendarCredentialsJSON)
	if len(creds) == 0 && cfg.CalendarCredentialsFile != "" {
		b, err := os.ReadFile(cfg.CalendarCredentialsFile)
		if err != nil {
			reason := &calendar.ConfigurationError{Field: "credentials file", Err: err}
			log.Warn("calendar disabled", slog.Any("err", reason))
			return calendar.Disabled{Reason: reason}
		}
		creds = b
	}

	client, err := calendar.NewFromCredentials(ctx, calendar.Config{
		CalendarID:      cfg.CalendarID,
		CredentialsJSON: creds,
		Location:        loc,
		EventDuration:   cfg.EventDuration,
		CallTimeout:     cfg.CalendarCallTimeout,
		Observer:        metrics.NewCalendarMetrics(nil),
	})
	if err != nil {
		var cfgErr *calendar.ConfigurationError
		if !errors.As(err, &cfgErr) {
			cfgErr = &calendar.ConfigurationError{Field: "client", Err: err}
		}
		log.Warn("calendar disabled", slog.Any("err", cfgErr))
		return calendar.Disabled{Reason: cfgErr}
	}
	log.Info("calendar enabled", slog.String("calendar_id", cfg.CalendarID), slog.String("timezone", loc.String()))
	return client
}

func newBlobStore(ctx context.Context, cfg config.Config) (blob.Store, error) {
	switch cfg.BlobBackend {
	case "s3":
		var loaders []func(*awsconfig.LoadOptions) error
		if cfg.S3Region != "" {
			loaders = append(loaders, awsconfig.WithRegion(cfg.S3Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loaders...)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		store, err := blob.NewS3(s3.NewFromConfig(awsCfg), cfg.S3Bucket, cfg.S3Prefix)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		store, err := blob.NewLocal(cfg.BlobDir)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
}

func newLimiter(cfg config.Config, log *slog.Logger) rest.Limiter {
	if cfg.RedisURL == "" {
		return rest.NewMemoryLimiter(cfg.RateLimitPerMinute)
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Warn("invalid redis url; using in-process rate limiting", slog.Any("err", err))
		return rest.NewMemoryLimiter(cfg.RateLimitPerMinute)
	}
	return rest.NewRedisLimiter(redis.NewClient(opts), cfg.RateLimitPerMinute, time.Minute, "")
}

func shutdown(log *slog.Logger, httpServer *http.Server, grpcServer *grpcTransport.Server, timeout time.Duration) {
	log.Info("shutting down http server", slog.Duration("timeout", timeout))
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Warn("http graceful shutdown failed; closing", slog.Any("err", err))
		_ = httpServer.Close()
	}
	grpcServer.Shutdown(timeout)
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func databaseLogArgs(databaseURL string) []any {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return []any{slog.String("db_url", "invalid")}
	}
	name := strings.TrimPrefix(u.Path, "/")
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "default"
	}
	if host == "" {
		host = "unknown"
	}
	if name == "" {
		name = "unknown"
	}
	return []any{
		slog.String("db_host", host),
		slog.String("db_port", port),
		slog.String("db_name", name),
	}
}
