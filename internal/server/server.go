package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"interiorly/internal/config"
	"interiorly/internal/database"
	"interiorly/internal/events"
	"interiorly/internal/middlewares"
	"interiorly/internal/repositories"
	"interiorly/internal/services"
)

const (
	limiterCleanupInterval = time.Minute
	limiterIdleTTL         = 30 * time.Minute
	userGaugeInterval      = time.Minute
)

type Server struct {
	cfg        config.Config
	httpServer *http.Server
	db         database.Service
	registry   *prometheus.Registry
	sink       events.Sink
	closers    []func() error
	stop       context.CancelFunc

	sessions         services.SessionService
	authService      services.AuthService
	adminAuthService services.AdminAuthService
	bookingService   services.BookingService
	statsService     services.StatsService

	apiLimiter    *middlewares.RateLimiter
	otpLimiter    *middlewares.RateLimiter
	verifyLimiter *middlewares.RateLimiter
	loginLimiter  *middlewares.RateLimiter
}

// NewServer connects to MongoDB, ensures the indexes the booking guard depends
// on and wires every service.
func NewServer(ctx context.Context, cfg config.Config) (*Server, error) {
	db, err := database.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return nil, err
	}

	indexCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.EnsureIndexes(indexCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	sink, closers := newEventSink(cfg)
	s := newServer(cfg, db, sink)
	s.closers = append(s.closers, closers...)
	s.closers = append(s.closers, db.Close)
	return s, nil
}

// newEventSink always logs events and additionally publishes them to the
// broker when AMQP_URL is set. A broker that cannot be reached at startup is
// logged and skipped.
func newEventSink(cfg config.Config) (events.Sink, []func() error) {
	if cfg.AMQPURL == "" {
		return events.LogSink{}, nil
	}

	amqpSink, err := events.NewAMQPSink(cfg.AMQPURL, cfg.AMQPExchange)
	if err != nil {
		log.Error().Err(err).Str("exchange", cfg.AMQPExchange).Msg("Event broker unavailable, events will only be logged")
		return events.LogSink{}, nil
	}
	log.Info().Str("exchange", cfg.AMQPExchange).Msg("Publishing events to broker")
	return events.MultiSink{events.LogSink{}, amqpSink}, []func() error{amqpSink.Close}
}

func newServer(cfg config.Config, db database.Service, sink events.Sink) *Server {
	userRepo := repositories.NewUserRepository(db)
	adminRepo := repositories.NewAdminRepository(db)
	auditRepo := repositories.NewAuditRepository(db)
	bookingRepo := repositories.NewBookingRepository(db)

	email := services.NewEmailService(services.EmailConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		DryRun:   cfg.DeliveryDryRun,
	})
	sms := services.NewSMSService(services.SMSConfig{
		AccountSID:  cfg.TwilioAccountSID,
		AuthToken:   cfg.TwilioAuthToken,
		From:        cfg.TwilioFrom,
		CountryCode: cfg.SMSCountryCode,
		DryRun:      cfg.DeliveryDryRun,
	})

	if cfg.JWTSecret == "" {
		log.Warn().Msg("JWT_SECRET is not set, logins will fail until it is configured")
	}

	otp := services.NewOTPService(cfg.DeliveryTimeout, bcrypt.DefaultCost)
	sessions := services.NewSessionService(cfg.JWTSecret, cfg.SessionTTL)

	return &Server{
		cfg:      cfg,
		db:       db,
		registry: prometheus.NewRegistry(),
		sink:     sink,

		sessions:         sessions,
		authService:      services.NewAuthService(userRepo, otp, sessions, email, sms),
		adminAuthService: services.NewAdminAuthService(adminRepo, auditRepo, otp, sessions, email, sms),
		bookingService:   services.NewBookingService(bookingRepo, userRepo, sink),
		statsService:     services.NewStatsService(bookingRepo, userRepo),

		apiLimiter:    middlewares.NewRateLimiter("api", rate.Limit(cfg.APIRatePerSec), cfg.APIRateBurst, cfg.TrustProxy),
		otpLimiter:    middlewares.NewWindowLimiter("otp", cfg.OTPRateLimit, cfg.OTPRateWindow, cfg.TrustProxy),
		verifyLimiter: middlewares.NewWindowLimiter("otp_verify", cfg.OTPVerifyRateLimit, cfg.OTPRateWindow, cfg.TrustProxy),
		loginLimiter:  middlewares.NewWindowLimiter("admin_login", cfg.LoginRateLimit, cfg.LoginRateWindow, cfg.TrustProxy),
	}
}

// Start runs the background jobs and serves HTTP until Shutdown is called.
func (s *Server) Start() error {
	ctx, stop := context.WithCancel(context.Background())
	s.stop = stop

	for _, l := range []*middlewares.RateLimiter{s.apiLimiter, s.otpLimiter, s.verifyLimiter, s.loginLimiter} {
		go l.Cleanup(ctx, limiterCleanupInterval, limiterIdleTTL)
	}
	go s.statsService.RunUserGauge(ctx, userGaugeInterval)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Info().Int("port", s.cfg.Port).Str("env", s.cfg.Env).Msg("Starting server")
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests, stops background jobs and releases the
// broker and database connections.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}
	if s.stop != nil {
		s.stop()
	}
	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Server) GracefulShutdown(done chan bool) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	log.Info().Msg("Shutting down gracefully, press Ctrl+C again to force")
	stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown with error")
	}

	log.Info().Msg("Server exiting")
	done <- true
}
