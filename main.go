package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"ticket-checkout/clients"
	"ticket-checkout/config"
	"ticket-checkout/message"
	"ticket-checkout/observability"
	"ticket-checkout/service"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	log.Init(logrus.InfoLevel)

	if err := run(); err != nil {
		logrus.WithError(err).Error("failed to run")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logrus.SetLevel(cfg.LogLevel)

	logger := log.NewWatermill(logrus.NewEntry(logrus.StandardLogger()))

	tp, err := observability.ConfigureTraceProvider(cfg.JaegerEndpoint)
	if err != nil {
		return fmt.Errorf("configuring tracing: %w", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logrus.WithError(err).Error("failed to shut down trace provider")
		}
	}()

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})
	defer func() {
		if err := rdb.Close(); err != nil {
			logrus.WithError(err).Error("failed to close redis connection")
		}
	}()

	publisher, err := message.NewRedisPublisher(rdb, logger)
	if err != nil {
		return err
	}

	subscriber, err := message.NewRedisSubscriber(rdb, logger)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	svc, err := service.New(service.Deps{
		Logger:       logger,
		Publisher:    publisher,
		Subscriber:   subscriber,
		Gateway:      clients.NewOrdersClient(cfg.OrderAPIAddr),
		Ticket:       cfg.Ticket,
		OrderTimeout: cfg.OrderTimeout,
		ClaimTimeout: cfg.ClaimTimeout,
		HTTPAddr:     cfg.HTTPAddr,
	})
	if err != nil {
		return fmt.Errorf("creating service: %w", err)
	}

	return svc.Run(ctx)
}
