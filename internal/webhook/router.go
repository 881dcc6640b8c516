// Package webhook normalizes inbound BotPe webhook bodies and routes each
// item to persistence, observers and the booking bot.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wolfman30/botpe-relay/internal/accounts"
	"github.com/wolfman30/botpe-relay/internal/booking"
	"github.com/wolfman30/botpe-relay/internal/events"
	"github.com/wolfman30/botpe-relay/internal/messaging"
	"github.com/wolfman30/botpe-relay/internal/observability/metrics"
	"github.com/wolfman30/botpe-relay/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("botpe.internal.webhook")

// Bot consumes canonical events for accounts that run the booking flow.
type Bot interface {
	Handle(ctx context.Context, sender booking.Sender, evt events.Inbound) error
}

// Observer receives every canonical event after persistence.
type Observer interface {
	Observe(ctx context.Context, env events.Envelope) error
}

// Router dispatches normalized items. Failures are isolated per item.
type Router struct {
	registry  *accounts.Registry
	sink      messaging.Sink
	bot       Bot
	observers []Observer
	metrics   *metrics.RelayMetrics
	logger    *logging.Logger
	now       func() time.Time
}

func NewRouter(registry *accounts.Registry, sink messaging.Sink, logger *logging.Logger) *Router {
	if logger == nil {
		logger = logging.Default()
	}
	return &Router{
		registry: registry,
		sink:     sink,
		logger:   logger,
		now:      time.Now,
	}
}

func (r *Router) WithBot(bot Bot) *Router {
	r.bot = bot
	return r
}

// WithObservers appends observers; nil entries are ignored.
func (r *Router) WithObservers(obs ...Observer) *Router {
	for _, o := range obs {
		if o != nil {
			r.observers = append(r.observers, o)
		}
	}
	return r
}

func (r *Router) WithMetrics(m *metrics.RelayMetrics) *Router {
	r.metrics = m
	return r
}

func (r *Router) WithClock(now func() time.Time) *Router {
	if now != nil {
		r.now = now
	}
	return r
}

// Dispatch processes one webhook body received on the endpoint bound to
// routeAccount. It returns an error only when the body as a whole is unusable.
func (r *Router) Dispatch(ctx context.Context, routeAccount string, body []byte) error {
	batch, err := Normalize(body, routeAccount, r.registry, r.now())
	if err != nil {
		reason := "malformed"
		if errors.Is(err, ErrUnrecognized) {
			reason = "unrecognized"
		}
		r.metrics.ObserveDropped(reason)
		r.logger.Warn("webhook body dropped", "error", err, "route_account", routeAccount)
		return err
	}
	for _, skipped := range batch.Skipped {
		r.metrics.ObserveDropped("invalid_item")
		r.logger.Warn("webhook item skipped", "error", skipped, "route_account", routeAccount)
	}
	for _, item := range batch.Items {
		r.handleItem(ctx, item)
	}
	return nil
}

func (r *Router) handleItem(ctx context.Context, item Item) {
	evt := item.Event
	defer func() {
		if rec := recover(); rec != nil {
			r.metrics.ObserveDropped("panic")
			r.logger.Error("webhook item panicked", "panic", fmt.Sprint(rec), "id", evt.ID, "kind", string(evt.Kind))
		}
	}()

	ctx, span := tracer.Start(ctx, "webhook.item",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("botpe.account", evt.Account),
			attribute.String("botpe.event.kind", string(evt.Kind)),
			attribute.String("botpe.event.type", evt.Type),
		),
	)
	defer span.End()
	r.metrics.ObserveInbound(evt.Account, string(evt.Kind), evt.Type)

	if err := r.persist(ctx, item); err != nil {
		span.RecordError(err)
		r.logger.Error("persist webhook item failed", "error", err, "id", evt.ID, "kind", string(evt.Kind))
	}
	r.notify(ctx, evt)
	if err := r.runBot(ctx, evt); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "bot")
		r.logger.Error("booking bot failed", "error", err, "from", evt.From, "account", evt.Account)
	}
}

func (r *Router) persist(ctx context.Context, item Item) error {
	if r.sink == nil {
		return nil
	}
	evt := item.Event
	var err error
	switch evt.Kind {
	case events.KindMessage:
		_, err = r.sink.SaveIncomingMessage(ctx, messaging.IncomingMessage{
			QueueID:   evt.ID,
			From:      evt.From,
			To:        evt.To,
			Type:      evt.Type,
			Content:   Content(item.Message, evt.Payload, evt.ContactName),
			Timestamp: evt.Timestamp,
			AccountID: evt.Account,
		})
	case events.KindStatus:
		_, err = r.sink.UpdateMessageStatus(ctx, messaging.StatusUpdate{
			QueueID:      evt.ID,
			Status:       evt.Status,
			Timestamp:    evt.Timestamp,
			ErrorMessage: evt.ErrorMessage,
		})
	case events.KindInteractive:
		resp := messaging.InteractiveResponse{
			QueueID:    evt.ID,
			UserNumber: evt.From,
			Timestamp:  evt.Timestamp,
		}
		if evt.Reply != nil {
			resp.ResponseType = evt.Reply.Kind
			resp.ResponseID = evt.Reply.ID
			resp.ResponseTitle = evt.Reply.Title
		}
		if item.Message != nil && item.Message.Interactive != nil {
			resp.ResponseData = item.Message.Interactive.Data()
		}
		_, err = r.sink.SaveInteractiveResponse(ctx, resp)
	default:
		return nil
	}
	r.metrics.ObservePersist(string(evt.Kind), err)
	return err
}

func (r *Router) notify(ctx context.Context, evt events.Inbound) {
	if len(r.observers) == 0 {
		return
	}
	env, err := events.Wrap(evt, events.ReceivedAt(r.now()), events.CorrelatedWith(evt.ID))
	if err != nil {
		r.logger.Warn("build event envelope failed", "error", err, "id", evt.ID)
		return
	}
	for _, o := range r.observers {
		if err := o.Observe(ctx, env); err != nil {
			r.logger.Warn("event observer failed", "error", err, "event_type", env.EventType)
		}
	}
}

func (r *Router) runBot(ctx context.Context, evt events.Inbound) error {
	if r.bot == nil || evt.Kind == events.KindStatus {
		return nil
	}
	acct, err := r.registry.Lookup(evt.Account)
	if err != nil || !acct.Bot || acct.Client == nil {
		return nil
	}
	return r.bot.Handle(ctx, acct.Client, evt)
}
