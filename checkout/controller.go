package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ticket-checkout/entity"
	"ticket-checkout/event"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/sirupsen/logrus"
)

const defaultCallTimeout = 30 * time.Second

var ErrStopped = errors.New("checkout controller is not running")

type OrderGateway interface {
	RequestOrder(ctx context.Context, draft entity.OrderDraft) (entity.Order, error)
	ClaimPayment(ctx context.Context, customer entity.CustomerData, confirmation entity.PaymentConfirmation) error
}

type Subscription interface {
	Events() <-chan entity.PaymentConfirmation
	Close() error
}

type PaymentEventSource interface {
	Subscribe(ctx context.Context, referenceID string) (Subscription, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event any) error
}

type Deps struct {
	Ticket       entity.Ticket
	Gateway      OrderGateway
	EventSource  PaymentEventSource
	Publisher    EventPublisher
	OrderTimeout time.Duration
	ClaimTimeout time.Duration
}

// Controller owns the checkout State. Only the Run goroutine reads or
// writes it; everything else talks to it through the inbox.
type Controller struct {
	ticket       entity.Ticket
	gateway      OrderGateway
	source       PaymentEventSource
	publisher    EventPublisher
	orderTimeout time.Duration
	claimTimeout time.Duration

	inbox   chan input
	running chan struct{}
	done    chan struct{}

	state  State
	sub    Subscription
	subRef string
}

type input interface {
	context() context.Context
}

type action struct {
	ctx   context.Context
	name  string
	apply func(State) Outcome
	reply chan ActionResult
}

type orderResult struct {
	ctx    context.Context
	effect RequestOrder
	order  entity.Order
	err    error
}

type claimResult struct {
	ctx    context.Context
	effect ClaimPayment
	err    error
}

func (a action) context() context.Context      { return a.ctx }
func (r orderResult) context() context.Context { return r.ctx }
func (r claimResult) context() context.Context { return r.ctx }

type ActionResult struct {
	State   State
	Ignored string
}

func (r ActionResult) Accepted() bool {
	return r.Ignored == ""
}

func NewController(deps Deps) (*Controller, error) {
	if deps.Gateway == nil {
		return nil, errors.New("missing order gateway")
	}
	if deps.EventSource == nil {
		return nil, errors.New("missing payment event source")
	}
	if deps.Ticket.Price <= 0 {
		return nil, fmt.Errorf("invalid ticket price: %d", deps.Ticket.Price)
	}

	orderTimeout := deps.OrderTimeout
	if orderTimeout <= 0 {
		orderTimeout = defaultCallTimeout
	}
	claimTimeout := deps.ClaimTimeout
	if claimTimeout <= 0 {
		claimTimeout = defaultCallTimeout
	}

	return &Controller{
		ticket:       deps.Ticket,
		gateway:      deps.Gateway,
		source:       deps.EventSource,
		publisher:    deps.Publisher,
		orderTimeout: orderTimeout,
		claimTimeout: claimTimeout,
		inbox:        make(chan input),
		running:      make(chan struct{}),
		done:         make(chan struct{}),
		state:        InitialState(deps.Ticket),
	}, nil
}

func (c *Controller) Ticket() entity.Ticket {
	return c.ticket
}

// Running is closed once Run started processing the inbox.
func (c *Controller) Running() <-chan struct{} {
	return c.running
}

func (c *Controller) Run(ctx context.Context) error {
	defer close(c.done)
	defer c.closeSubscription(ctx)

	logger := log.FromContext(ctx)
	logger.Info("Checkout controller started")
	close(c.running)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Checkout controller stopped")
			return nil
		case in := <-c.inbox:
			c.handle(ctx, in)
		case confirmation, ok := <-c.subscriptionEvents():
			if !ok {
				logger.WithField("order_reference_id", c.subRef).Warn("Payment subscription closed by source")
				c.sub = nil
				c.subRef = ""
				continue
			}
			c.handleConfirmation(ctx, confirmation)
		}
	}
}

func (c *Controller) State(ctx context.Context) (State, error) {
	res, err := c.do(ctx, "state", func(s State) Outcome {
		return Outcome{State: s}
	})
	return res.State, err
}

func (c *Controller) Increment(ctx context.Context) (ActionResult, error) {
	return c.do(ctx, "increment", func(s State) Outcome {
		return Increment(s, c.ticket)
	})
}

func (c *Controller) Decrement(ctx context.Context) (ActionResult, error) {
	return c.do(ctx, "decrement", func(s State) Outcome {
		return Decrement(s, c.ticket)
	})
}

func (c *Controller) SetQuantity(ctx context.Context, qty int) (ActionResult, error) {
	return c.do(ctx, "set-quantity", func(s State) Outcome {
		return SetQuantity(s, c.ticket, qty)
	})
}

func (c *Controller) Submit(ctx context.Context, customer entity.CustomerData) (ActionResult, error) {
	return c.do(ctx, "submit", func(s State) Outcome {
		return Submit(s, customer)
	})
}

func (c *Controller) Reset(ctx context.Context) (ActionResult, error) {
	return c.do(ctx, "reset", func(s State) Outcome {
		return Reset(s, c.ticket)
	})
}

func (c *Controller) CloseAlert(ctx context.Context) (ActionResult, error) {
	return c.do(ctx, "close-alert", CloseAlert)
}

func (c *Controller) do(ctx context.Context, name string, apply func(State) Outcome) (ActionResult, error) {
	a := action{
		ctx:   detach(ctx),
		name:  name,
		apply: apply,
		reply: make(chan ActionResult, 1),
	}

	select {
	case c.inbox <- a:
	case <-c.done:
		return ActionResult{}, ErrStopped
	case <-ctx.Done():
		return ActionResult{}, ctx.Err()
	}

	select {
	case res := <-a.reply:
		return res, nil
	case <-c.done:
		return ActionResult{}, ErrStopped
	case <-ctx.Done():
		return ActionResult{}, ctx.Err()
	}
}

func (c *Controller) handle(ctx context.Context, in input) {
	switch in := in.(type) {
	case action:
		out := in.apply(c.state)
		if out.Ignored != "" && in.name != "state" {
			log.FromContext(in.ctx).WithField("action", in.name).Infof("Action ignored: %s", out.Ignored)
		}
		c.commit(ctx, in.ctx, out)
		in.reply <- ActionResult{State: c.state, Ignored: out.Ignored}
	case orderResult:
		prev := c.state
		var out Outcome
		if in.err != nil {
			out = OrderFailed(prev, in.effect.Generation, in.err)
		} else {
			out = OrderCreated(prev, c.ticket, in.effect.Generation, in.effect.Draft, in.order)
		}
		c.logResult(in.ctx, "order", in.err, out)
		c.commit(ctx, in.ctx, out)

		if in.err == nil && out.Ignored == "" {
			c.publish(ctx, in.ctx, event.NewOrderCreated(
				in.order.ReferenceID,
				in.order.PaymentRequest,
				in.effect.Draft.Quantity,
				event.Money{Amount: in.effect.Draft.Total(c.ticket.Price), Currency: c.ticket.Currency},
				in.effect.Draft.Customer.Email,
			))
		}
	case claimResult:
		prev := c.state
		var out Outcome
		if in.err != nil {
			out = ClaimFailed(prev, in.effect.Generation, in.err)
		} else {
			out = PaymentClaimed(prev, in.effect.Generation)
		}
		c.logResult(in.ctx, "claim", in.err, out)
		c.commit(ctx, in.ctx, out)

		if in.err == nil && out.Ignored == "" {
			c.publish(ctx, in.ctx, event.NewPaymentClaimed(
				prev.ReferenceID(),
				in.effect.Confirmation.ID,
				prev.Quantity,
				event.Money{Amount: prev.Total, Currency: c.ticket.Currency},
				in.effect.Customer.Email,
			))
		}
	}
}

func (c *Controller) handleConfirmation(ctx context.Context, confirmation entity.PaymentConfirmation) {
	logger := log.FromContext(ctx).WithFields(logrus.Fields{
		"confirmation_id":    confirmation.ID,
		"order_reference_id": confirmation.ReferenceID,
	})

	out := ConfirmationReceived(c.state, confirmation)
	if out.Ignored != "" {
		confirmationsIgnored.Inc()
		logger.Warnf("Confirmation ignored: %s", out.Ignored)
	} else {
		logger.Info("Payment confirmation received, claiming payment")
	}

	c.commit(ctx, ctx, out)
}

func (c *Controller) commit(runCtx, ctx context.Context, out Outcome) {
	c.state = out.State
	for _, e := range out.Effects {
		c.start(runCtx, ctx, e)
	}
	c.syncSubscription(runCtx)
}

// start runs an effect on its own goroutine. The result is fed back
// through the inbox so the state is only touched by Run.
func (c *Controller) start(runCtx, ctx context.Context, e Effect) {
	switch e := e.(type) {
	case RequestOrder:
		go func() {
			callCtx, cancel := context.WithTimeout(ctx, c.orderTimeout)
			defer cancel()

			order, err := c.gateway.RequestOrder(callCtx, e.Draft)
			if err != nil {
				err = OrderCreationError{Err: err}
			}
			ordersRequested.WithLabelValues(resultLabel(err)).Inc()

			c.post(runCtx, orderResult{ctx: ctx, effect: e, order: order, err: err})
		}()
	case ClaimPayment:
		go func() {
			callCtx, cancel := context.WithTimeout(ctx, c.claimTimeout)
			defer cancel()

			err := c.gateway.ClaimPayment(callCtx, e.Customer, e.Confirmation)
			if err != nil {
				err = PaymentClaimError{Err: err}
			}
			paymentsClaimed.WithLabelValues(resultLabel(err)).Inc()

			c.post(runCtx, claimResult{ctx: ctx, effect: e, err: err})
		}()
	}
}

func (c *Controller) post(runCtx context.Context, in input) {
	select {
	case c.inbox <- in:
	case <-runCtx.Done():
	}
}

func (c *Controller) logResult(ctx context.Context, operation string, err error, out Outcome) {
	logger := log.FromContext(ctx).WithField("operation", operation)
	switch {
	case out.Ignored != "":
		logger.Infof("Result ignored: %s", out.Ignored)
	case err != nil:
		logger.WithError(err).Error("Checkout operation failed")
	default:
		logger.Info("Checkout operation succeeded")
	}
}

func (c *Controller) publish(runCtx, ctx context.Context, e any) {
	if c.publisher == nil {
		return
	}

	pubCtx := log.ContextWithCorrelationID(runCtx, log.CorrelationIDFromContext(ctx))
	if err := c.publisher.Publish(pubCtx, e); err != nil {
		log.FromContext(ctx).WithError(err).Errorf("Failed to publish %T", e)
	}
}

func (c *Controller) subscriptionEvents() <-chan entity.PaymentConfirmation {
	if c.sub == nil {
		return nil
	}
	return c.sub.Events()
}

// syncSubscription keeps exactly one subscription open for the active
// order reference id.
func (c *Controller) syncSubscription(ctx context.Context) {
	ref := c.state.ReferenceID()
	if ref == c.subRef {
		return
	}

	c.closeSubscription(ctx)
	if ref == "" {
		return
	}

	logger := log.FromContext(ctx).WithField("order_reference_id", ref)

	// subRef is kept on failure so the subscribe is retried only when the
	// reference id changes, not on every action.
	c.subRef = ref

	sub, err := c.source.Subscribe(ctx, ref)
	if err != nil {
		logger.WithError(err).Error("Failed to subscribe to payment confirmations")
		c.state = SubscriptionFailed(c.state, fmt.Errorf("subscribing to payment confirmations: %w", err)).State
		return
	}

	logger.Info("Subscribed to payment confirmations")
	c.sub = sub
}

func (c *Controller) closeSubscription(ctx context.Context) {
	c.subRef = ""
	if c.sub == nil {
		return
	}

	if err := c.sub.Close(); err != nil {
		log.FromContext(ctx).WithError(err).Warn("Failed to close payment subscription")
	}
	c.sub = nil
}

// detach keeps the logger and correlation id of ctx without its
// cancellation, so work started by a request outlives the request.
func detach(ctx context.Context) context.Context {
	detached := log.ToContext(context.Background(), log.FromContext(ctx))
	return log.ContextWithCorrelationID(detached, log.CorrelationIDFromContext(ctx))
}
