package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"ticket-checkout/checkout"
	"ticket-checkout/entity"
	"ticket-checkout/event"
	"ticket-checkout/http"
	"ticket-checkout/message"

	"github.com/ThreeDotsLabs/watermill"
	watermillMessage "github.com/ThreeDotsLabs/watermill/message"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type Deps struct {
	Logger     watermill.LoggerAdapter
	Publisher  watermillMessage.Publisher
	Subscriber watermillMessage.Subscriber
	Gateway    checkout.OrderGateway

	Ticket       entity.Ticket
	OrderTimeout time.Duration
	ClaimTimeout time.Duration
	HTTPAddr     string
}

type Service struct {
	dispatcher *message.Dispatcher
	msgRouter  *message.Router
	controller *checkout.Controller
	httpRouter *echo.Echo
	httpAddr   string
}

func New(deps Deps) (*Service, error) {
	publisher := message.DecoratePublisher(deps.Publisher)

	eventBus, err := event.NewBus(publisher, deps.Logger)
	if err != nil {
		return nil, fmt.Errorf("creating event bus: %w", err)
	}

	dispatcher := message.NewDispatcher()

	msgRouter, err := message.NewRouter(message.RouterDeps{
		Dispatcher: dispatcher,
		Logger:     deps.Logger,
		Subscriber: deps.Subscriber,
	})
	if err != nil {
		return nil, fmt.Errorf("creating message router: %w", err)
	}

	controller, err := checkout.NewController(checkout.Deps{
		Ticket:       deps.Ticket,
		Gateway:      deps.Gateway,
		EventSource:  dispatcher,
		Publisher:    eventBus,
		OrderTimeout: deps.OrderTimeout,
		ClaimTimeout: deps.ClaimTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("creating checkout controller: %w", err)
	}

	httpAddr := deps.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":8080"
	}

	return &Service{
		dispatcher: dispatcher,
		msgRouter:  msgRouter,
		controller: controller,
		httpRouter: http.NewRouter(controller, publisher),
		httpAddr:   httpAddr,
	}, nil
}

// Addr is the address the HTTP server listens on, nil until it started.
func (s *Service) Addr() net.Addr {
	return s.httpRouter.ListenerAddr()
}

func (s *Service) Run(ctx context.Context) error {
	g, runCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := s.msgRouter.Run(runCtx); err != nil {
			return fmt.Errorf("running messaging router: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		if err := s.controller.Run(runCtx); err != nil {
			return fmt.Errorf("running checkout controller: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		// Wait for message router and controller
		for _, running := range []<-chan struct{}{s.msgRouter.Running(), s.controller.Running()} {
			select {
			case <-running:
			case <-runCtx.Done():
				return nil
			}
		}

		logrus.Info("Starting HTTP server...")
		err := s.httpRouter.Start(s.httpAddr)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("starting http server: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		<-runCtx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		logrus.Info("Shutting down HTTP server...")
		if err := s.httpRouter.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down http server: %w", err)
		}

		if err := s.dispatcher.Close(); err != nil {
			return fmt.Errorf("closing dispatcher: %w", err)
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("waiting for shutdown: %w", err)
	}
	logrus.Info("Shutdown complete.")

	return nil
}
