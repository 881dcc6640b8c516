package booking

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/wolfman30/botpe-relay/internal/botpe"
	"github.com/wolfman30/botpe-relay/internal/events"
	"github.com/wolfman30/botpe-relay/internal/observability/metrics"
	"github.com/wolfman30/botpe-relay/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var engineTracer = otel.Tracer("botpe.internal.booking.engine")

const lockStripes = 64

// Sender is the outbound surface the bot needs from an account client.
type Sender interface {
	SendList(ctx context.Context, to string, list botpe.ListMessage) (*botpe.MessageResponse, error)
	SendLocationRequest(ctx context.Context, to, body string) (*botpe.MessageResponse, error)
	SendCTAURL(ctx context.Context, to string, msg botpe.CTAURLMessage) (*botpe.MessageResponse, error)
}

// AppointmentRecorder stores confirmed bookings.
type AppointmentRecorder interface {
	RecordAppointment(ctx context.Context, b Booking) error
}

// DelayFunc waits before a prompt is sent. It returns early with ctx.Err() on cancellation.
type DelayFunc func(ctx context.Context, d time.Duration) error

// SleepDelay waits for d or until ctx is done.
func SleepDelay(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Engine applies Machine transitions against a SessionStore and sends prompts.
// Events for the same identity are handled one at a time.
type Engine struct {
	machine  *Machine
	store    SessionStore
	recorder AppointmentRecorder
	metrics  *metrics.RelayMetrics
	logger   *logging.Logger
	delay    DelayFunc
	now      func() time.Time
	locks    [lockStripes]sync.Mutex
}

func NewEngine(machine *Machine, store SessionStore, logger *logging.Logger) *Engine {
	if machine == nil {
		panic("booking: machine required")
	}
	if store == nil {
		panic("booking: session store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Engine{
		machine: machine,
		store:   store,
		logger:  logger,
		delay:   SleepDelay,
		now:     time.Now,
	}
}

// WithRecorder records confirmed bookings.
func (e *Engine) WithRecorder(r AppointmentRecorder) *Engine {
	e.recorder = r
	return e
}

// WithMetrics attaches prometheus counters.
func (e *Engine) WithMetrics(m *metrics.RelayMetrics) *Engine {
	e.metrics = m
	return e
}

// WithDelay swaps the typing delay; nil disables it.
func (e *Engine) WithDelay(d DelayFunc) *Engine {
	if d == nil {
		d = func(context.Context, time.Duration) error { return nil }
	}
	e.delay = d
	return e
}

// WithClock overrides the time source.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	if now != nil {
		e.now = now
	}
	return e
}

// HasSession reports whether identity has a booking in progress.
func (e *Engine) HasSession(ctx context.Context, identity string) (bool, error) {
	return e.store.Has(ctx, identity)
}

// Handle runs one inbound event through the state machine and replies via sender.
// A failed send leaves the stored session untouched.
func (e *Engine) Handle(ctx context.Context, sender Sender, evt events.Inbound) error {
	if sender == nil {
		return errors.New("booking: sender required")
	}
	in := InputFromEvent(evt, e.now())
	if in.Identity == "" {
		return errors.New("booking: event has no sender identity")
	}

	mu := e.lockFor(in.Identity)
	mu.Lock()
	defer mu.Unlock()

	ctx, span := engineTracer.Start(ctx, "booking.handle")
	defer span.End()
	span.SetAttributes(
		attribute.String("botpe.account", in.AccountID),
		attribute.String("botpe.event.kind", string(evt.Kind)),
		attribute.String("botpe.event.type", evt.Type),
	)

	current, _, err := e.store.Get(ctx, in.Identity)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load session")
		return fmt.Errorf("booking: load session: %w", err)
	}
	from := stageLabel(current)
	result := e.machine.Transition(current, in)
	span.SetAttributes(
		attribute.String("botpe.stage.from", from),
		attribute.String("botpe.outcome", result.Outcome),
	)
	if result.Err != nil {
		e.logger.Info("booking input rejected", "identity", in.Identity, "stage", from, "reason", result.Err)
	}
	if result.Prompt == nil {
		e.metrics.ObserveTransition(from, from, result.Outcome)
		return nil
	}

	if err := e.delay(ctx, result.Prompt.Delay); err != nil {
		return fmt.Errorf("booking: typing delay: %w", err)
	}
	if err := e.send(ctx, sender, in, result.Prompt); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "send prompt")
		e.metrics.ObserveTransition(from, from, "send_failed")
		e.logger.Error("booking prompt send failed", "error", err, "identity", in.Identity, "stage", from, "prompt", string(result.Prompt.Kind))
		return err
	}

	to := stageLabel(result.Session)
	switch result.Action {
	case ActionSave:
		if err := e.store.Put(ctx, in.Identity, result.Session); err != nil {
			return fmt.Errorf("booking: save session: %w", err)
		}
	case ActionDelete:
		to = string(StageSlotSelected)
		if err := e.store.Delete(ctx, in.Identity); err != nil {
			return fmt.Errorf("booking: delete session: %w", err)
		}
		e.record(ctx, result.Session.Summary(in.At))
	}
	e.metrics.ObserveTransition(from, to, result.Outcome)
	e.logger.Debug("booking transition", "identity", in.Identity, "from", from, "to", to, "outcome", result.Outcome)
	return nil
}

func (e *Engine) send(ctx context.Context, sender Sender, in Input, p *Prompt) error {
	var err error
	switch p.Kind {
	case PromptList:
		_, err = sender.SendList(ctx, in.Identity, p.List)
	case PromptLocationRequest:
		_, err = sender.SendLocationRequest(ctx, in.Identity, p.Body)
	case PromptCTA:
		_, err = sender.SendCTAURL(ctx, in.Identity, p.CTA)
	default:
		err = fmt.Errorf("booking: unknown prompt kind %q", p.Kind)
	}
	e.metrics.ObserveOutbound(in.AccountID, string(p.Kind), err)
	if err != nil {
		return fmt.Errorf("booking: send %s: %w", p.Kind, err)
	}
	return nil
}

func (e *Engine) record(ctx context.Context, b Booking) {
	if e.recorder == nil {
		return
	}
	if err := e.recorder.RecordAppointment(ctx, b); err != nil {
		e.logger.Error("record appointment failed", "error", err, "identity", b.Identity)
	}
}

func (e *Engine) lockFor(identity string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(identity))
	return &e.locks[h.Sum32()%lockStripes]
}

func stageLabel(s *Session) string {
	if s == nil {
		return "NONE"
	}
	return string(s.Stage)
}

// InputFromEvent reduces a canonical event to a machine input.
func InputFromEvent(evt events.Inbound, now time.Time) Input {
	at := now
	if evt.Timestamp > 0 {
		at = time.UnixMilli(evt.Timestamp)
	}
	in := Input{
		Kind:        InputOther,
		Identity:    evt.From,
		AccountID:   evt.Account,
		ContactName: evt.ContactName,
		At:          at.UTC(),
	}
	switch {
	case evt.Kind == events.KindInteractive && evt.Reply != nil:
		in.ReplyID = evt.Reply.ID
		in.ReplyTitle = evt.Reply.Title
		switch evt.Reply.Kind {
		case events.ReplyList:
			in.Kind = InputListReply
		case events.ReplyButton:
			in.Kind = InputButtonReply
		}
	case evt.Kind == events.KindMessage && evt.Type == "text":
		in.Kind = InputText
		in.Text = evt.Text
	case evt.Kind == events.KindMessage && evt.Type == "location":
		in.Kind = InputLocation
		in.Location = evt.Location
	}
	return in
}
