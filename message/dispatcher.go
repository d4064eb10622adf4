package message

import (
	"context"
	"errors"
	"sync"

	"ticket-checkout/checkout"
	"ticket-checkout/entity"
	"ticket-checkout/zap"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/sirupsen/logrus"
)

const subscriptionBuffer = 16

var ErrDispatcherClosed = errors.New("dispatcher closed")

// Dispatcher fans zap receipts out to subscriptions keyed by the order
// reference id found in the receipt's "e" tag.
type Dispatcher struct {
	lock   sync.RWMutex
	subs   map[string]map[*subscription]struct{}
	closed bool
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		subs: map[string]map[*subscription]struct{}{},
	}
}

type subscription struct {
	referenceID string
	events      chan entity.PaymentConfirmation
	done        chan struct{}
	once        sync.Once
	dispatcher  *Dispatcher
}

func (s *subscription) Events() <-chan entity.PaymentConfirmation {
	return s.events
}

func (s *subscription) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.dispatcher.remove(s)
	})
	return nil
}

func (d *Dispatcher) Subscribe(ctx context.Context, referenceID string) (checkout.Subscription, error) {
	if referenceID == "" {
		return nil, errors.New("empty order reference id")
	}

	d.lock.Lock()
	defer d.lock.Unlock()

	if d.closed {
		return nil, ErrDispatcherClosed
	}

	sub := &subscription{
		referenceID: referenceID,
		events:      make(chan entity.PaymentConfirmation, subscriptionBuffer),
		done:        make(chan struct{}),
		dispatcher:  d,
	}

	if d.subs[referenceID] == nil {
		d.subs[referenceID] = map[*subscription]struct{}{}
	}
	d.subs[referenceID][sub] = struct{}{}

	log.FromContext(ctx).WithField("order_reference_id", referenceID).Debug("Payment subscription opened")

	return sub, nil
}

func (d *Dispatcher) remove(s *subscription) {
	d.lock.Lock()
	defer d.lock.Unlock()

	delete(d.subs[s.referenceID], s)
	if len(d.subs[s.referenceID]) == 0 {
		delete(d.subs, s.referenceID)
	}
}

func (d *Dispatcher) subscriptions(referenceID string) []*subscription {
	d.lock.RLock()
	defer d.lock.RUnlock()

	subs := make([]*subscription, 0, len(d.subs[referenceID]))
	for s := range d.subs[referenceID] {
		subs = append(subs, s)
	}

	return subs
}

// Dispatch delivers c to every live subscription for its reference id and
// returns how many received it. It blocks while a subscriber's buffer is
// full, so delivery order is kept.
func (d *Dispatcher) Dispatch(ctx context.Context, c entity.PaymentConfirmation) (int, error) {
	delivered := 0
	for _, s := range d.subscriptions(c.ReferenceID) {
		select {
		case s.events <- c:
			delivered++
		case <-s.done:
		case <-ctx.Done():
			return delivered, ctx.Err()
		}
	}

	return delivered, nil
}

// Close drops all subscriptions; later Subscribe calls fail.
func (d *Dispatcher) Close() error {
	d.lock.Lock()
	subs := d.subs
	d.subs = map[string]map[*subscription]struct{}{}
	d.closed = true
	d.lock.Unlock()

	for _, byRef := range subs {
		for s := range byRef {
			s.once.Do(func() { close(s.done) })
		}
	}

	return nil
}

// HandleZapReceipt is the router handler for the zap receipts topic.
// Malformed or unmatched receipts are logged and acked.
func (d *Dispatcher) HandleZapReceipt(msg *message.Message) error {
	logger := log.FromContext(msg.Context())

	c, err := zap.ConvertEvent(msg.Payload)
	if err != nil {
		confirmationsDropped.WithLabelValues(dropReasonMalformed).Inc()
		logger.WithError(err).Warn("Dropping malformed zap receipt")
		return nil
	}

	logger = logger.WithFields(logrus.Fields{
		"confirmation_id":    c.ID,
		"order_reference_id": c.ReferenceID,
	})

	delivered, err := d.Dispatch(msg.Context(), c)
	if err != nil {
		return err
	}

	if delivered == 0 {
		confirmationsDropped.WithLabelValues(dropReasonUnmatched).Inc()
		logger.Debug("No subscription for zap receipt")
		return nil
	}

	logger.WithField("subscriptions", delivered).Info("Zap receipt dispatched")

	return nil
}
