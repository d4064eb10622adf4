package message

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"
)

const (
	TopicZapReceipts = "zap-receipts"

	consumerGroupPrefix = "svc-checkout."
	handlerZapReceipts  = "dispatch-zap-receipts"
)

type RouterDeps struct {
	Dispatcher *Dispatcher
	Logger     watermill.LoggerAdapter
	Subscriber message.Subscriber
}

type Router struct {
	*message.Router
}

func NewRouter(deps RouterDeps) (*Router, error) {
	router, err := message.NewRouter(message.RouterConfig{}, deps.Logger)
	if err != nil {
		return nil, fmt.Errorf("creating router: %w", err)
	}

	addMiddlewares(router, deps.Logger)

	router.AddNoPublisherHandler(
		handlerZapReceipts,
		TopicZapReceipts,
		deps.Subscriber,
		deps.Dispatcher.HandleZapReceipt,
	)

	return &Router{router}, nil
}

func NewRedisSubscriber(rdb *redis.Client, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	sub, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
		Client:        rdb,
		ConsumerGroup: consumerGroupPrefix + handlerZapReceipts,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("creating redis subscriber: %w", err)
	}

	return sub, nil
}
