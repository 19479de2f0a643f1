// Package trigger turns newly created sos_alerts and tracking_events
// documents into events and hands them to the dispatcher.
//
// Three sources are supported: an HTTP ingest endpoint, a Firestore snapshot
// listener and a SQL table poller. All of them decode documents the same way
// (see Decode) and submit every decoded event, valid or not; validation
// happens in the dispatcher so rejected events are counted in one place.
package trigger
