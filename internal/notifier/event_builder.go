package notifier

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/lyraio/lyra/internal/types"
)

// DefaultTrackingLinkBase is the live tracking page opened from a tracking notification.
const DefaultTrackingLinkBase = "https://lyra-tracking.web.app/"

const (
	AlertTitle    = "🚨 LYRA SOS ALERT"
	TrackingTitle = "📍 Live Tracking Started"

	bodyAI       = "AI detected high danger"
	bodyVoice    = "Voice SOS triggered"
	bodyManual   = "Manual SOS triggered"
	trackingBody = "%s started live tracking. Tap to view location."
)

// Payload data keys.
const (
	DataKeySource    = "source"
	DataKeyRisk      = "risk"
	DataKeyLatitude  = "latitude"
	DataKeyLongitude = "longitude"
	DataKeyUserID    = "userId"
	DataKeyType      = "type"
	DataKeyLink      = "link"

	dataTypeTracking = "tracking"
	linkUserParam    = "user"
)

// EventBuilder renders notification payloads. It holds no per-event state and
// is safe for concurrent use.
type EventBuilder struct {
	trackingLinkBase string
}

// NewEventBuilder creates an EventBuilder. An empty base uses DefaultTrackingLinkBase.
func NewEventBuilder(trackingLinkBase string) *EventBuilder {
	if trackingLinkBase == "" {
		trackingLinkBase = DefaultTrackingLinkBase
	}
	return &EventBuilder{trackingLinkBase: trackingLinkBase}
}

// Build renders the payload for a validated event. displayName is only used
// by tracking events.
func (eb *EventBuilder) Build(ev types.Event, displayName string) types.Payload {
	if ev.Kind == types.EventKindTracking {
		return eb.BuildTracking(ev, displayName)
	}
	return eb.BuildAlert(ev)
}

// BuildAlert renders an alert payload. Absent numbers render as "".
func (eb *EventBuilder) BuildAlert(ev types.Event) types.Payload {
	return types.Payload{
		Title: AlertTitle,
		Body:  alertBody(ev.Source),
		Data: map[string]string{
			DataKeySource:    string(ev.Source),
			DataKeyRisk:      formatNumber(ev.RiskScore),
			DataKeyLatitude:  formatNumber(ev.Latitude),
			DataKeyLongitude: formatNumber(ev.Longitude),
			DataKeyUserID:    ev.SubjectUserID,
		},
	}
}

// BuildTracking renders a tracking start payload.
func (eb *EventBuilder) BuildTracking(ev types.Event, displayName string) types.Payload {
	return types.Payload{
		Title: TrackingTitle,
		Body:  fmt.Sprintf(trackingBody, displayName),
		Data: map[string]string{
			DataKeyType:   dataTypeTracking,
			DataKeyUserID: ev.SubjectUserID,
			DataKeyLink:   eb.TrackingLink(ev.SubjectUserID),
		},
	}
}

// TrackingLink returns the tracking page URL for userID, with the id query-escaped.
func (eb *EventBuilder) TrackingLink(userID string) string {
	u, err := url.Parse(eb.trackingLinkBase)
	if err != nil {
		return eb.trackingLinkBase + "?" + linkUserParam + "=" + url.QueryEscape(userID)
	}
	q := u.Query()
	q.Set(linkUserParam, userID)
	u.RawQuery = q.Encode()
	return u.String()
}

// alertBody maps a source to its body text. Unknown sources read as manual.
func alertBody(s types.Source) string {
	switch s {
	case types.SourceAI:
		return bodyAI
	case types.SourceVoice:
		return bodyVoice
	default:
		return bodyManual
	}
}

// formatNumber renders the shortest representation that round-trips, or "" when absent.
func formatNumber(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
