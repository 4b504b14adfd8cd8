package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Lifecycle event kinds the notifier acts on. Anything else is ignored so new
// processor event types never break the endpoint.
const (
	KindPaymentSucceeded = "payment_intent.succeeded"
	KindPaymentFailed    = "payment_intent.payment_failed"
	KindMethodAttached   = "payment_method.attached"
)

// Record is one observed lifecycle event.
type Record struct {
	ID         string
	Kind       string
	ObjectID   string
	Detail     string
	ReceivedAt time.Time
}

// Store persists lifecycle event records.
type Store interface {
	Append(ctx context.Context, rec Record) error
}

// Notifier dispatches processor lifecycle events to log and store side
// effects. It is fully decoupled from the synchronous charge path: there is no
// ordering guarantee between a client observing success and the matching
// event arriving here.
type Notifier struct {
	store  Store
	logger *slog.Logger
}

// NewNotifier constructs an event notifier.
func NewNotifier(store Store, logger *slog.Logger) *Notifier {
	return &Notifier{store: store, logger: logger}
}

type intentPayload struct {
	ID               string `json:"id"`
	PaymentMethod    string `json:"payment_method"`
	LastPaymentError *struct {
		Message string `json:"message"`
	} `json:"last_payment_error"`
}

type methodPayload struct {
	ID       string `json:"id"`
	Customer string `json:"customer"`
}

// Dispatch routes one verified event by kind. Unrecognized kinds return nil
// without side effects.
func (n *Notifier) Dispatch(ctx context.Context, kind string, object json.RawMessage) error {
	switch kind {
	case KindPaymentSucceeded:
		var intent intentPayload
		if err := json.Unmarshal(object, &intent); err != nil {
			return err
		}
		n.logger.Info("payment succeeded", "charge", intent.ID, "payment_method", intent.PaymentMethod)
		return n.record(ctx, Record{Kind: kind, ObjectID: intent.ID, Detail: intent.PaymentMethod})
	case KindPaymentFailed:
		var intent intentPayload
		if err := json.Unmarshal(object, &intent); err != nil {
			return err
		}
		reason := ""
		if intent.LastPaymentError != nil {
			reason = intent.LastPaymentError.Message
		}
		n.logger.Info("payment failed", "charge", intent.ID, "reason", reason)
		return n.record(ctx, Record{Kind: kind, ObjectID: intent.ID, Detail: reason})
	case KindMethodAttached:
		var method methodPayload
		if err := json.Unmarshal(object, &method); err != nil {
			return err
		}
		n.logger.Info("payment method attached", "payment_method", method.ID, "customer", method.Customer)
		return n.record(ctx, Record{Kind: kind, ObjectID: method.ID, Detail: method.Customer})
	default:
		return nil
	}
}

func (n *Notifier) record(ctx context.Context, rec Record) error {
	if n.store == nil {
		return nil
	}
	rec.ID = uuid.NewString()
	rec.ReceivedAt = time.Now().UTC()
	return n.store.Append(ctx, rec)
}
