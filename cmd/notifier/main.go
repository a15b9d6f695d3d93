package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	config "github.com/heraldhq/herald/internal/config/notifier"
	"github.com/heraldhq/herald/internal/digest"
	"github.com/heraldhq/herald/internal/dispatch"
	"github.com/heraldhq/herald/internal/intake"
	"github.com/heraldhq/herald/internal/obs"
	"github.com/heraldhq/herald/internal/outbound"
	pg "github.com/heraldhq/herald/internal/repository/postgres"
	"github.com/heraldhq/herald/internal/retryq"
	"github.com/heraldhq/herald/internal/service/notification"
	"github.com/heraldhq/herald/internal/suppress"
)

func wiring(db *pg.DB, rdb *redis.Client, cfg *config.Config, l *zap.Logger) *notification.Service {
	records := pg.NewDeliveryRepo(db, l)
	policies := pg.NewPolicyRepo(db)
	recipients := pg.NewRecipientRepo(db)
	audit := pg.NewAuditRepo(db, l)
	out := outbound.NewClient(cfg.SMTP, cfg.Chat, l)
	supp := suppress.NewRedis(rdb)

	digests := digest.NewAggregator(l, out, records)
	engine := dispatch.NewEngine(l, policies, supp, recipients, out, records, audit, digests)
	queue := retryq.New(records)

	return notification.New(
		l,
		engine,
		queue,
		retryq.NewRunner(l, queue, engine, cfg.Notify.QueueInterval),
		digest.NewRunner(l, digests, cfg.Notify.DigestInterval),
		notification.Config{
			Enabled:        cfg.Notify.Enabled,
			QueueInterval:  cfg.Notify.QueueInterval,
			DigestInterval: cfg.Notify.DigestInterval,
		},
	)
}

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(os.Getenv("NOTIFIER_CONFIG"))
	if err != nil {
		log.Fatal(err)
	}

	l, err := obs.NewLogger(cfg.Log.AsLoggerConfig())
	if err != nil {
		log.Fatal(err)
	}

	l.Info("starting notifier",
		zap.Any("kafka_in", cfg.In),
		zap.String("metrics_addr", cfg.Server.MetricsAddr),
		zap.String("smtp_addr", cfg.SMTP.Addr),
		zap.Bool("notify_enabled", cfg.Notify.Enabled),
	)

	otelCloser, err := obs.SetupOTel(rootCtx, cfg.OTEL.AsOTELConfig())
	if err != nil {
		l.Warn("otel init", zap.Error(err))
	}
	defer func() { _ = otelCloser.Shutdown(context.Background()) }()

	db, err := pg.New(rootCtx, cfg.DB)
	if err != nil {
		l.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()
	l.Info("db connected")

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() { _ = rdb.Close() }()

	ms := obs.BootstrapMetricsServer(cfg.Server.MetricsAddr, func(ctx context.Context) error {
		hctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		return db.Pool.Ping(hctx)
	}, l)

	cons := intake.NewConsumer(&cfg.In, l)
	defer func() { _ = cons.Close() }()
	l.Info("kafka consumer initialized",
		zap.Strings("brokers", cfg.In.Brokers),
		zap.String("group_id", cfg.In.GroupID),
		zap.String("topic", cfg.In.Topic),
	)

	svc := wiring(db, rdb, cfg, l)
	svc.Start(rootCtx)
	defer svc.Stop()

	ctrl := &intake.Controller{Log: l, Sub: cons, Svc: svc}
	errCh := make(chan error, 1)
	go func() {
		l.Info("intake starting")
		errCh <- ctrl.Run(rootCtx)
	}()

	var runErr error
	select {
	case <-rootCtx.Done():
		l.Info("shutdown signal")
	case runErr = <-errCh:
		if runErr != nil && !errors.Is(runErr, context.Canceled) {
			l.Error("intake error", zap.Error(runErr))
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = ms.Shutdown(shCtx)
	l.Info("bye")
}
