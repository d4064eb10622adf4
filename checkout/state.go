package checkout

import (
	"fmt"
	"math"

	"ticket-checkout/entity"
)

// MaxQuantity caps the tickets in a single order.
const MaxQuantity = 10_000

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAwaitingOrder
	PhaseAwaitingClaim
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAwaitingOrder:
		return "awaiting_order"
	case PhaseAwaitingClaim:
		return "awaiting_claim"
	default:
		return "unknown"
	}
}

type Alert struct {
	Open bool
	Text string
}

const defaultAlertText = "Try again."

// State is a snapshot of the checkout session. Transitions never mutate a
// State in place, they return a new one.
type State struct {
	Screen   entity.Screen
	Phase    Phase
	Quantity int
	Total    int64
	Customer *entity.CustomerData
	Order    *entity.Order
	Paid     bool
	Alert    Alert

	// Generation changes on every reset. Gateway results from an older
	// generation are discarded.
	Generation  uint64
	LastEventID string
}

func InitialState(ticket entity.Ticket) State {
	return State{
		Screen:   entity.ScreenInformation,
		Phase:    PhaseIdle,
		Quantity: 1,
		Total:    ticket.Total(1),
		Alert:    Alert{Text: defaultAlertText},
	}
}

func (s State) ReferenceID() string {
	if s.Order == nil {
		return ""
	}
	return s.Order.ReferenceID
}

func (s State) PaymentRequest() string {
	if s.Order == nil {
		return ""
	}
	return s.Order.PaymentRequest
}

func (s State) Pending() bool {
	return s.Phase != PhaseIdle
}

func (s State) quantityEditable() bool {
	return s.Screen == entity.ScreenInformation && s.Phase == PhaseIdle
}

// Effect is work the controller has to run outside the state machine.
type Effect interface {
	isEffect()
}

type RequestOrder struct {
	Generation uint64
	Draft      entity.OrderDraft
}

type ClaimPayment struct {
	Generation   uint64
	Customer     entity.CustomerData
	Confirmation entity.PaymentConfirmation
}

func (RequestOrder) isEffect() {}
func (ClaimPayment) isEffect() {}

// Outcome is the result of a transition. Ignored is set when the input
// caused no change, with the reason why.
type Outcome struct {
	State   State
	Effects []Effect
	Ignored string
}

func changed(s State, effects ...Effect) Outcome {
	return Outcome{State: s, Effects: effects}
}

func ignored(s State, reason string) Outcome {
	return Outcome{State: s, Ignored: reason}
}

// maxQuantity is MaxQuantity, lowered when the ticket price would make the
// total overflow.
func maxQuantity(ticket entity.Ticket) int {
	if ticket.Price <= 0 {
		return MaxQuantity
	}
	if limit := math.MaxInt64 / ticket.Price; limit < MaxQuantity {
		return int(limit)
	}
	return MaxQuantity
}

func SetQuantity(s State, ticket entity.Ticket, qty int) Outcome {
	if !s.quantityEditable() {
		return ignored(s, "quantity can only be changed on the information screen")
	}

	if limit := maxQuantity(ticket); qty > limit {
		return ignored(s, fmt.Sprintf("quantity cannot exceed %d", limit))
	}
	if qty < 1 {
		qty = 1
	}

	s.Quantity = qty
	s.Total = ticket.Total(qty)

	return changed(s)
}

func Increment(s State, ticket entity.Ticket) Outcome {
	return SetQuantity(s, ticket, s.Quantity+1)
}

func Decrement(s State, ticket entity.Ticket) Outcome {
	if s.Quantity <= 1 {
		return ignored(s, "quantity is already at the minimum")
	}

	return SetQuantity(s, ticket, s.Quantity-1)
}

func Submit(s State, customer entity.CustomerData) Outcome {
	switch {
	case s.Phase == PhaseAwaitingOrder:
		return ignored(s, "order request already in flight")
	case s.Screen != entity.ScreenInformation:
		return ignored(s, "customer data can only be submitted on the information screen")
	case s.Phase != PhaseIdle:
		return ignored(s, "another operation is in flight")
	case s.Order != nil:
		return ignored(s, "an order is already pending payment")
	case s.Quantity < 1:
		return ignored(s, "quantity must be at least 1")
	}

	s.Phase = PhaseAwaitingOrder

	return changed(s, RequestOrder{
		Generation: s.Generation,
		Draft: entity.OrderDraft{
			Quantity: s.Quantity,
			Customer: customer,
		},
	})
}

func OrderCreated(s State, ticket entity.Ticket, gen uint64, draft entity.OrderDraft, order entity.Order) Outcome {
	if gen != s.Generation || s.Phase != PhaseAwaitingOrder {
		return ignored(s, "stale order result")
	}

	s.Phase = PhaseIdle
	s.Order = &order
	s.Quantity = draft.Quantity
	s.Total = draft.Total(ticket.Price)
	s.Customer = &draft.Customer
	s.Screen = entity.ScreenPayment

	return changed(s)
}

func OrderFailed(s State, gen uint64, err error) Outcome {
	if gen != s.Generation || s.Phase != PhaseAwaitingOrder {
		return ignored(s, "stale order result")
	}

	s.Phase = PhaseIdle
	s.Alert = Alert{Open: true, Text: err.Error()}

	return changed(s)
}

func ConfirmationReceived(s State, c entity.PaymentConfirmation) Outcome {
	switch {
	case c.ReferenceID == "":
		return ignored(s, "confirmation has no order reference")
	case s.Order == nil:
		return ignored(s, "no active order")
	case c.ReferenceID != s.Order.ReferenceID:
		return ignored(s, "confirmation does not match the active order")
	case s.Customer == nil:
		return ignored(s, "customer data not defined")
	case s.Screen != entity.ScreenPayment:
		return ignored(s, "not waiting for payment")
	case s.Phase != PhaseIdle:
		return ignored(s, "claim already in flight")
	case c.ID != "" && c.ID == s.LastEventID:
		return ignored(s, "confirmation already processed")
	}

	s.Phase = PhaseAwaitingClaim
	s.LastEventID = c.ID

	return changed(s, ClaimPayment{
		Generation:   s.Generation,
		Customer:     *s.Customer,
		Confirmation: c,
	})
}

func PaymentClaimed(s State, gen uint64) Outcome {
	if gen != s.Generation || s.Phase != PhaseAwaitingClaim {
		return ignored(s, "stale claim result")
	}

	s.Phase = PhaseIdle
	s.Paid = true
	s.Customer = nil
	s.Order = nil
	s.LastEventID = ""
	s.Screen = entity.ScreenSummary

	return changed(s)
}

func ClaimFailed(s State, gen uint64, err error) Outcome {
	if gen != s.Generation || s.Phase != PhaseAwaitingClaim {
		return ignored(s, "stale claim result")
	}

	s.Phase = PhaseIdle
	s.Alert = Alert{Open: true, Text: err.Error()}

	return changed(s)
}

func Reset(s State, ticket entity.Ticket) Outcome {
	next := InitialState(ticket)
	next.Generation = s.Generation + 1

	return changed(next)
}

func CloseAlert(s State) Outcome {
	if !s.Alert.Open {
		return ignored(s, "alert is not open")
	}

	s.Alert.Open = false

	return changed(s)
}

// SubscriptionFailed opens the alert without leaving the payment screen,
// the invoice is still payable.
func SubscriptionFailed(s State, err error) Outcome {
	s.Alert = Alert{Open: true, Text: err.Error()}

	return changed(s)
}
