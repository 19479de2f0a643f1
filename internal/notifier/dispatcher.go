package notifier

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/lyraio/lyra/internal/deliverylog"
	"github.com/lyraio/lyra/internal/types"
)

// Resolver resolves the recipients of an event's subject.
type Resolver interface {
	Resolve(ctx context.Context, subjectUserID string) (types.Recipients, error)
}

// Recorder persists the delivery log record of a processed event.
type Recorder interface {
	Record(ctx context.Context, entry types.DeliveryLogEntry) error
}

// State is a step of the per-event state machine.
type State string

const (
	StateReceived  State = "received"
	StateValidated State = "validated"
	StateResolved  State = "resolved"
	StateRouted    State = "routed"
	StateSent      State = "sent"
	StateLogged    State = "logged"
	StateAborted   State = "aborted"
)

// Recipient group labels used in logs and metrics.
const (
	groupGuardians   = "guardians"
	groupAuthorities = "authorities"
)

// DispatcherOptions configures the Dispatcher behavior.
type DispatcherOptions struct {
	TrackingLinkBase string        // default DefaultTrackingLinkBase
	TaskTimeout      time.Duration // bound on a submitted task; 0 means none
}

// DefaultDispatcherOptions returns sensible defaults.
func DefaultDispatcherOptions() DispatcherOptions {
	return DispatcherOptions{
		TrackingLinkBase: DefaultTrackingLinkBase,
		TaskTimeout:      60 * time.Second,
	}
}

// Outcome reports how an event was processed.
type Outcome struct {
	EventID  string
	Kind     types.EventKind
	State    State
	Decision types.Decision

	// Zero when the group was not sent to.
	GuardianSends  types.SendResult
	AuthoritySends types.SendResult

	// Err is the reason for an abort. It wraps types.ErrInvalidEvent or
	// types.ErrIgnoredEvent when the event was rejected at validation.
	Err error
}

// Rejected reports whether the event was dropped at validation.
func (o Outcome) Rejected() bool {
	return errors.Is(o.Err, types.ErrInvalidEvent) || errors.Is(o.Err, types.ErrIgnoredEvent)
}

// Stats counts processed events since the Dispatcher was created.
type Stats struct {
	Received int64 `json:"received"`
	Logged   int64 `json:"logged"`
	Rejected int64 `json:"rejected"`
	Aborted  int64 `json:"aborted"`
	InFlight int64 `json:"inFlight"`
}

// Dispatcher runs the per-event state machine. Events share no mutable state,
// so Dispatch may be called concurrently.
type Dispatcher struct {
	logger       *zap.Logger
	opts         DispatcherOptions
	resolver     Resolver
	sender       MulticastSender
	recorder     Recorder
	eventBuilder *EventBuilder

	wg       sync.WaitGroup
	received atomic.Int64
	logged   atomic.Int64
	rejected atomic.Int64
	aborted  atomic.Int64
	inFlight atomic.Int64
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(r Resolver, s MulticastSender, rec Recorder, logger *zap.Logger, opts DispatcherOptions) *Dispatcher {
	return &Dispatcher{
		logger:       logger.Named("dispatcher"),
		opts:         opts,
		resolver:     r,
		sender:       s,
		recorder:     rec,
		eventBuilder: NewEventBuilder(opts.TrackingLinkBase),
	}
}

// Submit processes ev on its own goroutine. The task is detached from ctx
// cancellation so a shutting-down trigger does not abort it halfway; use Wait
// to drain.
func (d *Dispatcher) Submit(ctx context.Context, ev types.Event) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		taskCtx := context.WithoutCancel(ctx)
		if d.opts.TaskTimeout > 0 {
			var cancel context.CancelFunc
			taskCtx, cancel = context.WithTimeout(taskCtx, d.opts.TaskTimeout)
			defer cancel()
		}
		d.Dispatch(taskCtx, ev)
	}()
}

// Wait blocks until every submitted task has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Stats returns a snapshot of the counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Received: d.received.Load(),
		Logged:   d.logged.Load(),
		Rejected: d.rejected.Load(),
		Aborted:  d.aborted.Load(),
		InFlight: d.inFlight.Load(),
	}
}

// SenderName returns the name of the configured sender.
func (d *Dispatcher) SenderName() string {
	return d.sender.Name()
}

// Dispatch processes one event to completion. It never returns an error:
// failures, including panics, end in StateAborted and are logged.
func (d *Dispatcher) Dispatch(ctx context.Context, ev types.Event) (out Outcome) {
	start := time.Now()
	d.received.Add(1)
	d.inFlight.Add(1)
	out = Outcome{EventID: ev.ID, Kind: ev.Kind, State: StateReceived}

	defer func() {
		if r := recover(); r != nil {
			out.Err = fmt.Errorf("panic while in state %s: %v", out.State, r)
			out.State = StateAborted
			d.logger.Error("Recovered panic while dispatching event",
				zap.String("event_id", ev.ID),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
		}
		d.finish(out, start)
	}()

	if err := ev.Validate(); err != nil {
		d.logger.Debug("Ignoring event",
			zap.String("event_id", ev.ID),
			zap.String("kind", string(ev.Kind)),
			zap.String("reason", err.Error()),
		)
		return d.abort(out, err)
	}
	out.State = StateValidated

	recipients, err := d.resolver.Resolve(ctx, ev.SubjectUserID)
	if err != nil {
		return d.fail(out, ev, fmt.Errorf("resolve recipients: %w", err))
	}
	out.State = StateResolved

	out.Decision = Route(ev)
	out.State = StateRouted

	payload := d.eventBuilder.Build(ev, recipients.DisplayName)

	out.GuardianSends, out.AuthoritySends, err = d.sendAll(ctx, out.Decision, recipients, payload)
	if err != nil {
		return d.fail(out, ev, err)
	}
	out.State = StateSent

	entry := deliverylog.NewEntry(ev, out.Decision, recipients)
	if err := d.recorder.Record(ctx, entry); err != nil {
		return d.fail(out, ev, err)
	}
	out.State = StateLogged

	d.logger.Info("Dispatched notification",
		zap.String("event_id", ev.ID),
		zap.String("kind", string(ev.Kind)),
		zap.String("user_id", ev.SubjectUserID),
		zap.Bool("guardians", out.Decision.NotifyGuardians),
		zap.Bool("authorities", out.Decision.NotifyAuthorities),
		zap.Int("guardian_tokens", len(recipients.Guardians)),
		zap.Int("authority_tokens", len(recipients.Authorities)),
	)
	return out
}

// sendAll sends p to each flagged, non-empty group concurrently and waits for
// both. A failure in one group does not cancel the other.
func (d *Dispatcher) sendAll(ctx context.Context, dec types.Decision, r types.Recipients, p types.Payload) (types.SendResult, types.SendResult, error) {
	var (
		wg                     sync.WaitGroup
		guardians, authorities types.SendResult
		gErr, aErr             error
	)
	if dec.NotifyGuardians && len(r.Guardians) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			guardians, gErr = d.send(ctx, groupGuardians, r.Guardians, p)
		}()
	}
	if dec.NotifyAuthorities && len(r.Authorities) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			authorities, aErr = d.send(ctx, groupAuthorities, r.Authorities, p)
		}()
	}
	wg.Wait()
	return guardians, authorities, errors.Join(gErr, aErr)
}

func (d *Dispatcher) send(ctx context.Context, group string, tokens []string, p types.Payload) (res types.SendResult, err error) {
	defer func() {
		// A panic here would escape the task guard, which runs on another goroutine.
		if r := recover(); r != nil {
			err = fmt.Errorf("send to %s panicked: %v", group, r)
		}
	}()
	res, err = d.sender.SendMulticast(ctx, tokens, p)
	if err != nil {
		multicastSendTotal.WithLabelValues(group, "error").Inc()
		return res, fmt.Errorf("send to %s: %w", group, err)
	}
	multicastSendTotal.WithLabelValues(group, "success").Inc()
	if res.FailureCount > 0 {
		multicastTokenFailures.WithLabelValues(group).Add(float64(res.FailureCount))
		d.logger.Warn("Some push addresses were not delivered to",
			zap.String("group", group),
			zap.Int("failed", res.FailureCount),
			zap.Int("succeeded", res.SuccessCount),
		)
	}
	return res, nil
}

// fail aborts after a collaborator failure.
func (d *Dispatcher) fail(out Outcome, ev types.Event, err error) Outcome {
	d.logger.Error("Aborted event processing",
		zap.String("event_id", ev.ID),
		zap.String("kind", string(ev.Kind)),
		zap.String("user_id", ev.SubjectUserID),
		zap.String("state", string(out.State)),
		zap.Error(err),
	)
	return d.abort(out, err)
}

func (d *Dispatcher) abort(out Outcome, err error) Outcome {
	out.State = StateAborted
	out.Err = err
	return out
}

func (d *Dispatcher) finish(out Outcome, start time.Time) {
	d.inFlight.Add(-1)
	switch {
	case out.State == StateLogged:
		d.logged.Add(1)
	case out.Rejected():
		d.rejected.Add(1)
	default:
		d.aborted.Add(1)
	}
	kind := string(out.Kind)
	if kind == "" {
		kind = "unknown"
	}
	dispatchTotal.WithLabelValues(kind, string(out.State)).Inc()
	dispatchDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}
