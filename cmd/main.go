/**
 * @description
 * This is the main entry point for the adoption-service. It is responsible for
 * initializing all components of the service, including configuration, the database
 * pool and migrations, the payment gateway, the rate limiter, the message broker,
 * the ledger reconciliation scheduler and the HTTP server. It wires everything
 * together and starts the service.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - github.com/joho/godotenv: Local .env loading for development.
 * - github.com/redis/go-redis/v9: Shared rate limiting.
 * - internal/api, internal/app, internal/config, internal/store: Internal packages for the service.
 * - pkg/paymentclient: Client for the payment gateway.
 * - pkg/rabbitmq: Client for RabbitMQ.
 */

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/pawhaven/adoption-service/internal/api"
	"github.com/pawhaven/adoption-service/internal/app"
	"github.com/pawhaven/adoption-service/internal/config"
	"github.com/pawhaven/adoption-service/internal/store"
	"github.com/pawhaven/adoption-service/pkg/paymentclient"
	rmrabbit "github.com/pawhaven/adoption-service/pkg/rabbitmq"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("level=warn component=bootstrap msg=\".env load failed\" err=%v", err)
	}

	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config invalid\" err=%v", err)
	}

	log.Printf("level=info component=bootstrap msg=\"starting adoption-service\" port=%s", cfg.ServerPort)

	if cfg.RunMigrations {
		if err := store.RunMigrations(cfg.DatabaseURL); err != nil {
			log.Fatalf("level=fatal component=bootstrap msg=\"migrations failed\" err=%v", err)
		}
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database url parse failed\" err=%v", err)
	}
	poolConfig.MaxConns = 50
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database connection failed\" err=%v", err)
	}
	defer dbpool.Close()
	log.Println("level=info component=bootstrap msg=\"database connected\"")

	repository := store.NewPostgresRepository(dbpool)

	var producer rmrabbit.Publisher = rmrabbit.FallbackProducer{}
	if strings.TrimSpace(cfg.RabbitMQURL) == "" {
		log.Println("level=warn component=bootstrap msg=\"rabbitmq url missing; events disabled\" env=RABBITMQ_URL")
	} else if eventProducer, err := rmrabbit.NewEventProducer(cfg.RabbitMQURL, cfg.EventsExchange); err != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq producer unavailable; using fallback\" err=%v", err)
	} else {
		producer = eventProducer
		log.Println("level=info component=bootstrap msg=\"rabbitmq producer connected\"")
	}
	defer producer.Close()

	var payments app.PaymentGateway
	if cfg.UseMockPayments() {
		log.Printf("level=warn component=bootstrap msg=\"payment gateway url missing; using mock gateway\" decline_percent=%d latency=%s",
			cfg.PaymentMockDeclinePercent, cfg.PaymentMockLatency)
		payments = paymentclient.NewMockGateway(cfg.PaymentMockDeclinePercent, cfg.PaymentMockLatency)
	} else {
		payments = paymentclient.NewClient(cfg.PaymentGatewayURL, cfg.PaymentGatewayAPIKey)
	}

	donationPolicy, ok := app.ParseNonHelpRequestDonationPolicy(cfg.DonationNonHelpRequestPolicy)
	if !ok {
		log.Printf("level=warn component=bootstrap msg=\"unknown donation policy; using default\" value=%q default=%s",
			cfg.DonationNonHelpRequestPolicy, app.DonationPolicyAccept)
		donationPolicy = app.DonationPolicyAccept
	}

	adoptionService := app.NewService(repository, payments, producer, app.Options{
		PaymentTimeout:          cfg.PaymentTimeout,
		NonHelpRequestDonations: donationPolicy,
	})

	var limiter app.RateLimiter = app.NewLocalRateLimiter()
	if strings.TrimSpace(cfg.RedisURL) == "" {
		log.Println("level=warn component=bootstrap msg=\"redis url missing; using in-process rate limiting\" env=REDIS_URL")
	} else if redisOptions, parseErr := redis.ParseURL(cfg.RedisURL); parseErr != nil {
		log.Printf("level=warn component=bootstrap msg=\"redis url parse failed; using in-process rate limiting\" err=%v", parseErr)
	} else {
		redisClient := redis.NewClient(redisOptions)
		pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
		pingErr := redisClient.Ping(pingCtx).Err()
		cancelPing()
		if pingErr != nil {
			log.Printf("level=warn component=bootstrap msg=\"redis ping failed; using in-process rate limiting\" err=%v", pingErr)
			redisClient.Close()
		} else {
			defer redisClient.Close()
			limiter = app.NewRedisRateLimiter(redisClient, cfg.RedisRateLimitPrefix)
			log.Println("level=info component=bootstrap msg=\"redis connected\"")
		}
	}

	if strings.TrimSpace(cfg.RabbitMQURL) != "" {
		rabbitConsumer, err := rmrabbit.NewConsumer(cfg.RabbitMQURL)
		if err != nil {
			log.Printf("level=warn component=bootstrap msg=\"rabbitmq consumer unavailable; in-app notifications disabled\" err=%v", err)
		} else {
			defer rabbitConsumer.Close()
			bindings := app.NewNotificationConsumer(repository).Bindings()
			if err := rabbitConsumer.ConsumeWithBindings(cfg.EventsExchange, cfg.NotificationEventQueue, bindings); err != nil {
				log.Fatalf("level=fatal component=bootstrap msg=\"notification consumer start failed\" err=%v", err)
			}
		}
	}

	scheduler := app.NewScheduler(adoptionService, cfg.LedgerReconcileSchedule)
	if err := scheduler.Start(); err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"scheduler start failed\" err=%v", err)
	}

	router := api.Routes(api.NewHandlers(adoptionService), api.RouterOptions{
		JWTSecret:              []byte(cfg.JWTSecret),
		AllowedOrigins:         cfg.CORSAllowedOrigins,
		RateLimiter:            limiter,
		MessageLimitPerMinute:  cfg.MessageSendRateLimitPerMinute,
		DonationLimitPerMinute: cfg.DonationRateLimitPerMinute,
	})

	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("level=info component=http msg=\"server listening\" addr=%s", serverAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("level=fatal component=http msg=\"server stopped unexpectedly\" err=%v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("level=info component=http msg=\"shutdown started\"")

	<-scheduler.Stop().Done()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("level=error component=http msg=\"shutdown failed\" err=%v", err)
	}

	log.Println("level=info component=http msg=\"shutdown complete\"")
}
