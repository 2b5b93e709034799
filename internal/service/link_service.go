package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"paybridge/internal/audit"
	"paybridge/internal/models"
	"paybridge/internal/registry"
	"paybridge/pkg/shopify"
	"paybridge/pkg/stripepay"
)

// AmountResolver reads an order's total from the order system.
type AmountResolver interface {
	GetOrderAmount(ctx context.Context, orderID int64) (int64, error)
}

// LinkIssuer creates the hosted payment artifact at the processor.
type LinkIssuer interface {
	CreatePaymentLink(ctx context.Context, orderID, amountCents int64) (*models.PaymentLink, error)
}

// Reconciler writes results back to the order system. Both calls report
// failure as false instead of an error: neither outcome may abort the flow.
type Reconciler interface {
	AnnotateOrder(ctx context.Context, orderID int64, note string) bool
	MarkOrderPaid(ctx context.Context, orderID, amountCents int64) bool
}

// Mailer sends the payment link to the customer.
type Mailer interface {
	Enabled() bool
	SendPaymentLink(to string, orderID int64, linkURL string, amountCents int64, currency string) error
}

// ErrNoAmount is the terminal "cannot price this order" condition: the order
// is missing, has no price fields, or totals zero. Not retryable.
var ErrNoAmount = errors.New("service: no chargeable amount for order")

// Status is the terminal state of an order-created event.
type Status string

const (
	StatusLinkCreated    Status = "link_created"
	StatusLinkReused     Status = "link_reused"
	StatusIgnoredGateway Status = "ignored_gateway"
	StatusNoAmount       Status = "no_amount"
	StatusProcessorError Status = "processor_error"
)

// Result is what an order-created event resolved to. Message is safe to
// return to the webhook caller.
type Result struct {
	Status  Status
	Link    *models.PaymentLink
	Message string
}

// OrderCreatedEvent is the classified payload of an order-created webhook.
type OrderCreatedEvent struct {
	OrderID int64
	Gateway string
	Email   string
}

// LinkService sequences amount resolution, idempotent link creation, order
// annotation and customer notification, and reconciles completion events.
type LinkService struct {
	resolver    AmountResolver
	issuer      LinkIssuer
	reconciler  Reconciler
	mailer      Mailer
	registry    *registry.Registry
	trail       *audit.Trail
	gatewayName string
	currency    string
}

func NewLinkService(
	resolver AmountResolver,
	issuer LinkIssuer,
	reconciler Reconciler,
	mailer Mailer,
	reg *registry.Registry,
	trail *audit.Trail,
	gatewayName, currency string,
) *LinkService {
	return &LinkService{
		resolver:    resolver,
		issuer:      issuer,
		reconciler:  reconciler,
		mailer:      mailer,
		registry:    reg,
		trail:       trail,
		gatewayName: gatewayName,
		currency:    currency,
	}
}

// Registry exposes the link store to the operator API.
func (s *LinkService) Registry() *registry.Registry {
	return s.registry
}

// ProcessOrderCreated runs the order-created flow after authentication and
// topic classification. Every outcome is terminal and acknowledged; only the
// processor and data failures are error-severity for operator follow-up.
func (s *LinkService) ProcessOrderCreated(ctx context.Context, ev OrderCreatedEvent) Result {
	if ev.Gateway != s.gatewayName {
		s.trail.Record("order_ignored_gateway", ev.OrderID, ev.Gateway)
		return Result{Status: StatusIgnoredGateway, Message: "gateway not handled"}
	}

	link, reused, err := s.EnsureLink(ctx, ev.OrderID, ev.Email)
	if err != nil {
		var procErr *stripepay.ProcessorError
		switch {
		case errors.As(err, &procErr):
			log.Printf("[LinkService] order %d: processor error: %v", ev.OrderID, err)
			s.trail.Record("link_processor_error", ev.OrderID, procErr.UserMessage)
			return Result{Status: StatusProcessorError, Message: procErr.UserMessage}
		case errors.Is(err, ErrNoAmount), errors.Is(err, shopify.ErrOrderNotFound):
			log.Printf("[LinkService] order %d: no chargeable amount: %v", ev.OrderID, err)
			s.trail.Record("link_no_amount", ev.OrderID, err.Error())
			return Result{Status: StatusNoAmount, Message: "order amount unavailable"}
		default:
			// Upstream order-system failure. Redelivery will not help until
			// the upstream recovers, so this is acknowledged like no-amount.
			log.Printf("[LinkService] order %d: amount resolution failed: %v", ev.OrderID, err)
			s.trail.Record("link_no_amount", ev.OrderID, err.Error())
			return Result{Status: StatusNoAmount, Message: "order amount unavailable"}
		}
	}

	if reused {
		s.trail.Record("link_reused", ev.OrderID, link.URL)
		return Result{Status: StatusLinkReused, Link: link, Message: "payment link already exists"}
	}

	note := fmt.Sprintf("Complete your payment using this secure link: %s", link.URL)
	if !s.reconciler.AnnotateOrder(ctx, ev.OrderID, note) {
		// Partial success: the link exists and is the source of truth even
		// when the order note is stale.
		log.Printf("[LinkService] order %d: annotation failed, link %s still valid", ev.OrderID, link.URL)
		s.trail.Record("annotate_failed", ev.OrderID, link.URL)
	}

	s.notify(ev.OrderID, link)
	s.trail.Record("link_created", ev.OrderID, link.URL)
	return Result{Status: StatusLinkCreated, Link: link, Message: "payment link created"}
}

// EnsureLink returns the order's payment link, creating it when absent. The
// registry guarantees at most one processor create call per order even under
// concurrent duplicate delivery.
func (s *LinkService) EnsureLink(ctx context.Context, orderID int64, email string) (*models.PaymentLink, bool, error) {
	return s.registry.GetOrCreate(orderID, func() (*models.PaymentLink, error) {
		amountCents, err := s.resolver.GetOrderAmount(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if amountCents <= 0 {
			return nil, fmt.Errorf("%w: order %d totals %d cents", ErrNoAmount, orderID, amountCents)
		}
		link, err := s.issuer.CreatePaymentLink(ctx, orderID, amountCents)
		if err != nil {
			return nil, err
		}
		link.CustomerEmail = email
		return link, nil
	})
}

// ProcessCompletion marks the order paid for a settled completion event.
// Safe to call repeatedly for the same payment: the order system's own
// transaction semantics reject the duplicate, which is logged and absorbed.
func (s *LinkService) ProcessCompletion(ctx context.Context, orderID, amountCents int64) {
	if ok := s.reconciler.MarkOrderPaid(ctx, orderID, amountCents); !ok {
		log.Printf("[LinkService] order %d: mark paid rejected (possibly already settled)", orderID)
		s.trail.Record("mark_paid_rejected", orderID, "")
	} else {
		s.trail.Record("order_marked_paid", orderID, "")
	}
	if !s.registry.MarkPaid(orderID) {
		// Registry state is process-local; a restart between link creation
		// and completion loses the entry while the order system still settles.
		log.Printf("[LinkService] order %d: completion for unknown link entry", orderID)
	}
}

// ResendLink re-sends the payment link email for an existing entry.
func (s *LinkService) ResendLink(orderID int64) error {
	link, ok := s.registry.Get(orderID)
	if !ok {
		return fmt.Errorf("no payment link for order %d", orderID)
	}
	if link.CustomerEmail == "" {
		return fmt.Errorf("order %d has no customer email on record", orderID)
	}
	if err := s.mailer.SendPaymentLink(link.CustomerEmail, orderID, link.URL, link.AmountCents, link.Currency); err != nil {
		return err
	}
	s.trail.Record("link_email_resent", orderID, link.CustomerEmail)
	return nil
}

func (s *LinkService) notify(orderID int64, link *models.PaymentLink) {
	if link.CustomerEmail == "" || !s.mailer.Enabled() {
		return
	}
	if err := s.mailer.SendPaymentLink(link.CustomerEmail, orderID, link.URL, link.AmountCents, link.Currency); err != nil {
		// Delivery is best-effort and never affects the acknowledgment.
		log.Printf("[LinkService] order %d: payment link email failed: %v", orderID, err)
		s.trail.Record("link_email_failed", orderID, err.Error())
		return
	}
	s.trail.Record("link_email_sent", orderID, link.CustomerEmail)
}
