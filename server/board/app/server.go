package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"bragboard/server/board/api"
	"bragboard/server/board/realtime"
	"bragboard/server/board/repository"
	"bragboard/server/board/service"
	commonauth "bragboard/server/common/auth"
	"bragboard/server/common/infra/cache"
	"bragboard/server/common/infra/db"
	"bragboard/server/common/infra/mq"
	"bragboard/server/common/infra/object"
	commonlog "bragboard/server/common/log"
	"bragboard/server/common/middleware"
)

type Server struct {
	HTTPServer  *http.Server
	Pool        *pgxpool.Pool
	Redis       *redis.Client
	MQConn      *amqp.Connection
	MQPublisher *mq.Publisher
	Hub         *realtime.Hub
}

func NewServer(cfg Config) (*Server, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.PostgresDSN, db.PoolOptions{MaxConns: int32(cfg.PostgresMaxConns), MaxConnLifetime: time.Hour})
	if err != nil {
		return nil, fmt.Errorf("initialize postgres: %w", err)
	}
	if err := db.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}

	redisClient := cache.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := cache.Ping(ctx, redisClient); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	s := &Server{Pool: pool, Redis: redisClient}
	ready := map[string]api.ReadinessCheck{
		"postgres": pool.Ping,
		"redis":    func(ctx context.Context) error { return cache.Ping(ctx, redisClient) },
	}

	var media service.MediaUploader
	if cfg.MinIOEndpoint != "" {
		minioClient, err := object.NewClient(cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey, cfg.MinIOUseSSL)
		if err != nil {
			s.closeInfra()
			return nil, fmt.Errorf("initialize minio: %w", err)
		}
		if err := object.EnsureBucket(ctx, minioClient, cfg.MinIOBucket); err != nil {
			s.closeInfra()
			return nil, fmt.Errorf("ensure minio bucket: %w", err)
		}
		media = object.NewMediaStore(minioClient, cfg.MinIOBucket, cfg.MediaPublicBaseURL)
		ready["minio"] = func(ctx context.Context) error {
			_, err := minioClient.BucketExists(ctx, cfg.MinIOBucket)
			return err
		}
	} else {
		commonlog.Warnf("event=startup action=media status=disabled reason=no_minio_endpoint")
	}

	var publisher service.EventPublisher
	if cfg.UseMQ {
		s.MQConn, err = mq.NewConnection(cfg.LavinMQURL)
		if err != nil {
			s.closeInfra()
			return nil, fmt.Errorf("initialize lavinmq: %w", err)
		}
		s.MQPublisher, err = mq.NewPublisher(s.MQConn, mq.BoardExchange)
		if err != nil {
			s.closeInfra()
			return nil, fmt.Errorf("initialize amqp publisher: %w", err)
		}
		publisher = s.MQPublisher
	}

	s.Hub = realtime.NewHub(cfg.WSAllowedOrigins)
	s.Hub.UseRedis(redisClient)
	if err := s.Hub.StartRedisSubscriber(context.Background()); err != nil {
		s.closeInfra()
		return nil, fmt.Errorf("start realtime subscriber: %w", err)
	}

	users := repository.NewUserRepository(pool)
	shoutouts := repository.NewShoutoutRepository(pool)
	notificationStore := repository.NewNotificationRepository(pool)
	adminStore := repository.NewAdminRepository(pool)
	tokens := commonauth.NewService(cfg.JWTSecret, cfg.JWTTTLMinutes)

	notifications := service.NewNotificationService(notificationStore, s.Hub)
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	h := api.NewHandler(api.Deps{
		Auth:           service.NewAuthService(users, tokens),
		Users:          service.NewUserService(users, media),
		Shoutouts:      service.NewShoutoutService(shoutouts, users, media, notifications, publisher, s.Hub),
		Notifications:  notifications,
		Admin:          service.NewAdminService(adminStore, users, shoutouts, notifications, publisher, s.Hub),
		Tokens:         tokens,
		Hub:            s.Hub,
		Idempotency:    redisClient,
		IdempotencyTTL: cfg.IdempotencyTTL,
		Metrics:        middleware.NewHTTPMetrics(registry, "bragboard"),
		Gatherer:       registry,
		Ready:          ready,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	h.RegisterRoutes(r)

	s.HTTPServer = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

func (s *Server) closeInfra() {
	if s.Hub != nil {
		s.Hub.StopRedisSubscriber()
	}
	if s.MQPublisher != nil {
		s.MQPublisher.Close()
	}
	if s.MQConn != nil {
		_ = s.MQConn.Close()
	}
	if s.Redis != nil {
		_ = s.Redis.Close()
	}
	if s.Pool != nil {
		s.Pool.Close()
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	err := s.HTTPServer.Shutdown(ctx)
	s.closeInfra()
	return err
}
