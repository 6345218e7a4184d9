package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/samrato/QMMMUST/internal/config"
	"github.com/samrato/QMMMUST/internal/events"
	"github.com/samrato/QMMMUST/internal/guard"
	"github.com/samrato/QMMMUST/internal/jobs"
	"github.com/samrato/QMMMUST/internal/mail"
	"github.com/samrato/QMMMUST/internal/metrics"
	"github.com/samrato/QMMMUST/internal/middleware"
	"github.com/samrato/QMMMUST/internal/routes"
	"github.com/samrato/QMMMUST/internal/services"
	"github.com/samrato/QMMMUST/internal/store"
	"github.com/samrato/QMMMUST/internal/telemetry"
	"github.com/samrato/QMMMUST/internal/utils"
	"github.com/samrato/QMMMUST/internal/websocket"
)

func main() {
	appConfig := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Init(ctx, appConfig)
	if err != nil {
		log.Fatalf("tracing setup failed: %v", err)
	}

	st, err := setupDatabase(ctx, appConfig)
	if err != nil {
		log.Fatalf("database setup failed: %v", err)
	}
	defer st.Close()

	cipher, err := utils.NewCipher(appConfig.EncryptionKey)
	if err != nil {
		log.Fatalf("encryption key rejected: %v", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	mailer := setupMailer(appConfig)

	hub := websocket.NewHub()
	go hub.Run(ctx)

	publishers := events.Multi{hub}
	if len(appConfig.KafkaBrokers) > 0 {
		kp, err := events.NewKafkaPublisher(events.KafkaConfig{Brokers: appConfig.KafkaBrokers, Topic: appConfig.KafkaTopic})
		if err != nil {
			log.Fatalf("kafka publisher: %v", err)
		}
		defer kp.Close()
		publishers = append(publishers, kp)
		log.Printf("publishing gate events to kafka topic %s", appConfig.KafkaTopic)
	}

	scanLimiter, loginLimiter, replay, closeRedis := setupGuards(ctx, appConfig)
	defer closeRedis()

	alerts := services.NewAlertEmitter(st, mailer, appConfig.MailTimeout)
	alerts.SetPublisher(publishers)
	alerts.SetMetrics(m)

	issuer := services.NewPassIssuer(st, cipher, mailer, appConfig.PassTTL, appConfig.MailTimeout)
	issuer.SetPublisher(publishers)
	issuer.SetMetrics(m)

	verifier := services.NewScanVerifier(st, cipher, alerts)
	verifier.SetLimiter(scanLimiter)
	if replay != nil {
		verifier.SetReplayGuard(replay)
	}
	verifier.SetPublisher(publishers)
	verifier.SetMetrics(m)

	jobs.StartAlertRetryJob(ctx, appConfig, alerts)

	router := routes.SetupRouter(appConfig, routes.Dependencies{
		Store:        st,
		Auth:         middleware.NewAuthMiddleware(st, appConfig.JWTSecret, appConfig.TokenTTL),
		Issuer:       issuer,
		Verifier:     verifier,
		Alerts:       alerts,
		Audit:        services.NewAuditReader(st),
		Stats:        services.NewStatisticsService(st),
		LoginLimiter: loginLimiter,
		Hub:          hub,
		Gatherer:     reg,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", appConfig.Port),
		Handler:           telemetry.Handler(router, appConfig.ServiceName),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("server listening on port %s", appConfig.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
	alerts.Wait()

	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Printf("tracing shutdown: %v", err)
	}
}

func setupDatabase(ctx context.Context, config *config.Config) (*store.Store, error) {
	st, err := store.Open(config.DBDriver, config.DBPath)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(); err != nil {
		st.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	if config.SeedDemoData {
		if err := createInitialData(ctx, st); err != nil {
			st.Close()
			return nil, fmt.Errorf("seeding demo data failed: %w", err)
		}
	}

	return st, nil
}

func setupMailer(config *config.Config) mail.Mailer {
	if config.SMTPHost == "" {
		log.Println("SMTP_HOST not set, emails are written to the log")
		return mail.LogMailer{}
	}
	return mail.NewSMTPMailer(config.SMTPHost, config.SMTPPort, config.SMTPUser, config.SMTPPassword, config.MailFrom)
}

// setupGuards prefers Redis so limits hold across replicas, and falls back to process memory.
func setupGuards(ctx context.Context, config *config.Config) (scan, login guard.Limiter, replay guard.ReplayGuard, closeFn func()) {
	closeFn = func() {}

	if config.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: config.RedisAddr, Password: config.RedisPassword})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			log.Printf("using redis at %s for scan guards", config.RedisAddr)
			scan = guard.NewRedis(client, config.ScanRateLimit, config.ScanRateWindow)
			login = guard.NewRedis(client, 10, 10*time.Minute)
			if config.ScanReplayWindow > 0 {
				replay = guard.NewRedisReplay(client, config.ScanReplayWindow)
			}
			return scan, login, replay, func() { client.Close() }
		}
		log.Printf("redis unavailable (%v), falling back to in-memory guards", err)
		client.Close()
	}

	scan = guard.NewInMemory(config.ScanRateLimit, config.ScanRateWindow)
	login = guard.NewInMemory(10, 10*time.Minute)
	if config.ScanReplayWindow > 0 {
		replay = guard.NewInMemoryReplay(config.ScanReplayWindow)
	}
	return scan, login, replay, closeFn
}
