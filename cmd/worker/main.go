package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/framepipe/video-processing-service/internal/infra/config"
	"github.com/framepipe/video-processing-service/internal/infra/email"
	"github.com/framepipe/video-processing-service/internal/infra/ffmpeg"
	"github.com/framepipe/video-processing-service/internal/infra/metrics"
	miniostorage "github.com/framepipe/video-processing-service/internal/infra/minio"
	"github.com/framepipe/video-processing-service/internal/infra/postgres"
	"github.com/framepipe/video-processing-service/internal/infra/rabbitmq"
	"github.com/framepipe/video-processing-service/internal/infra/redisqueue"
	"github.com/framepipe/video-processing-service/internal/infra/tracing"
	"github.com/framepipe/video-processing-service/internal/infra/ziparchive"
	"github.com/framepipe/video-processing-service/internal/usecase"
	"github.com/framepipe/video-processing-service/internal/worker"
	"github.com/framepipe/video-processing-service/pkg/logger"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	r "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	fatalOnErr(err, "load config")

	log, err := logger.New(cfg.LogLevel)
	fatalOnErr(err, "init logger")
	defer log.Sync()

	log.Info("starting video-processing worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing (non-fatal if the collector is unavailable)
	tp, err := tracing.InitTracer(ctx, cfg.JaegerEndpoint)
	if err != nil {
		log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
	} else {
		defer tp.Shutdown(ctx)
	}

	// Database
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	fatalOnErr(err, "connect to postgres")
	defer pool.Close()

	if err := postgres.RunMigrations(cfg.DatabaseURL, "migrations"); err != nil {
		log.Warn("migration warning", zap.Error(err))
	}

	// Blob storage
	storage, err := miniostorage.NewStorage(miniostorage.StorageConfig{
		Endpoint:      cfg.MinIOEndpoint,
		AccessKey:     cfg.MinIOAccessKey,
		SecretKey:     cfg.MinIOSecretKey,
		UseSSL:        cfg.MinIOUseSSL,
		Bucket:        cfg.MinIOBucket,
		PublicURL:     cfg.MinIOPublicURL,
		PresignExpiry: time.Duration(cfg.PresignExpiryMinutes) * time.Minute,
	})
	fatalOnErr(err, "create minio storage")
	fatalOnErr(storage.EnsureBucket(ctx), "ensure minio bucket")

	// Queue
	rdb := r.NewClient(&r.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	defer rdb.Close()
	queue := redisqueue.New(rdb, redisqueue.Config{
		QueueKey:    cfg.QueueKey,
		InflightKey: cfg.QueueInflightKey,
		DLQKey:      cfg.QueueDLQKey,
	})

	// Status events
	rmqConn, err := amqp.Dial(cfg.RabbitMQURL)
	fatalOnErr(err, "connect to rabbitmq")
	defer rmqConn.Close()

	pub, err := rabbitmq.NewPublisher(rmqConn, cfg.RabbitMQExchange, cfg.RabbitMQStatusQueue)
	fatalOnErr(err, "create rabbitmq publisher")
	statusPub := rabbitmq.NewStatusPublisher(pub)

	// Infra adapters
	repo := postgres.NewVideoRepository(pool)
	extractor := ffmpeg.NewExtractor(cfg.FFmpegFPS, log)
	archiver := ziparchive.NewArchiver()
	notifier := email.NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, cfg.NotificationTo, log)

	// Use cases
	enqueueVideo := usecase.NewEnqueueVideoUseCase(repo, queue, log)
	processVideo := usecase.NewProcessVideoUseCase(
		repo, storage, extractor, archiver,
		statusPub, notifier,
		log,
		usecase.ProcessVideoConfig{TempDir: cfg.TempDir},
	)

	// Metrics server
	metricsSrv := metrics.StartMetricsServer(ctx, cfg.MetricsPort, log)

	w := worker.New(queue, storage, enqueueVideo, processVideo, log, worker.Config{
		ReceiveWait:       time.Duration(cfg.QueueWaitSeconds) * time.Second,
		VisibilityTimeout: time.Duration(cfg.QueueVisibilitySeconds) * time.Second,
		IdleDelay:         time.Duration(cfg.WorkerIdleDelayMs) * time.Millisecond,
		ErrorDelay:        time.Duration(cfg.WorkerErrorDelayMs) * time.Millisecond,
	})

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	log.Info("video-processing worker started, polling queue")

	if err := w.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error("worker error", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metricsSrv.Shutdown(shutdownCtx)

	log.Info("video-processing worker stopped")
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}
