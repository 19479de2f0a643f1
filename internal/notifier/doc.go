// Package notifier decides who is told about a safety event, renders the push
// notification and dispatches it through a multicast sender.
//
// # Contract
//
// The Dispatcher, for each event:
//  1. Validates the event record (missing subject, missing alert source, or a
//     tracking kind other than "started" ends processing with no side effects)
//  2. Resolves the subject's display name and the guardian and authority
//     push addresses
//  3. Routes the event (see Route):
//     - alert:    guardians always; authorities for manual and voice alerts,
//     and for ai alerts with a risk score of at least AuthorityRiskThreshold
//     - tracking: guardians only
//  4. Renders one payload shared by both groups (see EventBuilder)
//  5. Sends to each flagged, non-empty group concurrently and waits for both
//  6. Appends one delivery log record holding the routing decision
//
// # Failures
//
// A lookup, send or log write failure aborts the event: it is logged at error
// level and no delivery log record is written. Dispatch never returns an
// error, and a panic inside a task is recovered and treated the same way.
// There is no retry here; redelivery is up to the event producer.
//
// # Types
//
//	type Dispatcher struct { ... }
//	func NewDispatcher(r Resolver, s MulticastSender, rec Recorder, logger *zap.Logger, opts DispatcherOptions) *Dispatcher
//	func (d *Dispatcher) Dispatch(ctx context.Context, ev types.Event) Outcome
//	func (d *Dispatcher) Submit(ctx context.Context, ev types.Event)
//	func (d *Dispatcher) Wait()
//
// # Rendering Rules
//
// alert:
//
//	title "🚨 LYRA SOS ALERT"
//	body  "AI detected high danger" | "Voice SOS triggered" | "Manual SOS triggered"
//	data  source, risk, latitude, longitude, userId
//
// tracking:
//
//	title "📍 Live Tracking Started"
//	body  "{name} started live tracking. Tap to view location."
//	data  type=tracking, userId, link={trackingLinkBase}?user={userId}
package notifier
