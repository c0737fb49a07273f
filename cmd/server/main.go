package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"bharatkyc/internal/i18n"
	i18nhandler "bharatkyc/internal/i18n/handler"
	localestore "bharatkyc/internal/i18n/store"
	jwttoken "bharatkyc/internal/jwt_token"
	kychandler "bharatkyc/internal/kyc/handler"
	kycmetrics "bharatkyc/internal/kyc/metrics"
	"bharatkyc/internal/kyc/otp"
	"bharatkyc/internal/kyc/service"
	"bharatkyc/internal/kyc/store"
	"bharatkyc/internal/platform/config"
	"bharatkyc/internal/platform/httpserver"
	"bharatkyc/internal/platform/logger"
	"bharatkyc/internal/platform/metrics"
	"bharatkyc/internal/platform/redis"
	ratelimitmetrics "bharatkyc/internal/ratelimit/metrics"
	ratelimit "bharatkyc/internal/ratelimit/middleware"
	"bharatkyc/internal/ratelimit/store/bucket"
	"bharatkyc/internal/shell"
	httptransport "bharatkyc/internal/transport/http"
	"bharatkyc/pkg/platform/audit/publisher"
	auditstore "bharatkyc/pkg/platform/audit/store/memory"
	"bharatkyc/pkg/platform/circuit"
)

const (
	tokenIssuer   = "bharat-kyc"
	tokenAudience = "bharat-kyc-web"
	// tokenTTL outlives any realistic wizard run; the session's idle TTL is
	// what actually ends it.
	tokenTTL = 12 * time.Hour

	shutdownTimeout = 10 * time.Second
	auditBuffer     = 1024
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

// run wires dependencies and blocks until ctx is cancelled or a component fails.
func run(ctx context.Context, cfg *config.Server, log *slog.Logger) error {
	catalog, err := i18n.Load()
	if err != nil {
		return err
	}
	theme, err := shell.LoadTheme()
	if err != nil {
		return err
	}

	redisClient, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	checks := map[string]httptransport.HealthChecker{}
	var preferences i18n.PreferenceStore = localestore.NewInMemory()
	if redisClient != nil {
		defer redisClient.Close()
		preferences = localestore.NewRedis(redisClient.Client)
		checks["redis"] = redisClient
		log.Info("locale preferences stored in redis")
	}
	locales := i18n.NewService(catalog, preferences, log)

	audit := publisher.NewPublisher(auditstore.NewInMemoryStore(auditstore.DefaultCapacity),
		publisher.WithAsyncBuffer(auditBuffer),
		publisher.WithLogger(log),
	)
	defer audit.Close()

	var sender otp.Sender = otp.EchoSender{}
	if !cfg.OTP.ReturnToClient {
		sms := otp.NewSMSLocalSender(cfg.OTP.SMSLocalAPIKey, cfg.OTP.SMSLocalBaseURL, cfg.OTP.SMSLocalSender)
		sender = otp.NewGuardedSender(sms, circuit.New("sms_local", circuit.WithFailureThreshold(5), circuit.WithSuccessThreshold(1)), log)
		log.Info("otp delivery via sms")
	}

	svc := service.New(store.NewInMemory[*service.Session](cfg.SessionTTL), catalog, log,
		service.WithMetrics(kycmetrics.New()),
		service.WithAuditPublisher(audit),
		service.WithOTPSender(sender),
		service.WithReplyDelay(cfg.AssistantReplyDelay),
		service.WithFaceTickInterval(cfg.FaceTickInterval),
		service.WithTheme(theme),
	)
	locales.Subscribe(svc)

	jwt := jwttoken.NewJWTService(cfg.SessionSigningKey, tokenIssuer, tokenAudience)
	buckets := bucket.NewInMemoryBucketStore()
	limiter := ratelimit.New(buckets, cfg.RateLimitPerMinute, time.Minute, log,
		ratelimit.WithMetrics(ratelimitmetrics.New()),
		ratelimit.WithAuditPublisher(audit),
	)

	router := httptransport.NewRouter(httptransport.Dependencies{
		Logger:       log,
		Metrics:      metrics.New(),
		RateLimit:    limiter,
		SecureCookie: cfg.IsProduction(),
		Checks:       checks,
	},
		kychandler.New(svc, catalog, locales, jwt, jwttoken.NewJWTServiceAdapter(jwt), tokenTTL, log),
		i18nhandler.New(locales, log),
	)
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting bharat-kyc", "addr", cfg.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return svc.RunSweeper(gctx, cfg.SessionSweepInterval)
	})
	g.Go(func() error {
		ticker := time.NewTicker(cfg.SessionSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				buckets.Sweep()
			}
		}
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		svc.Shutdown(shutdownCtx)
		return err
	})
	return g.Wait()
}
