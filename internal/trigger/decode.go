package trigger

import (
	"context"
	"errors"
	"fmt"

	v1 "github.com/lyraio/lyra/api/v1"
	"github.com/lyraio/lyra/internal/types"
	"github.com/lyraio/lyra/internal/util"
)

// ErrUnknownCollection is returned by Decode for collections that do not carry events.
var ErrUnknownCollection = errors.New("not a trigger collection")

// Collections lists the trigger collections in a fixed order.
var Collections = []string{v1.CollectionSOSAlerts, v1.CollectionTrackingEvents}

// Submitter accepts events for asynchronous processing.
type Submitter interface {
	Submit(ctx context.Context, ev types.Event)
}

// Decode maps a raw document from collection to an event.
// Fields of the wrong type read as absent; the dispatcher rejects the result
// if required fields end up missing.
func Decode(collection, id string, doc map[string]any) (types.Event, error) {
	switch collection {
	case v1.CollectionSOSAlerts:
		return DecodeAlert(id, doc), nil
	case v1.CollectionTrackingEvents:
		return DecodeTracking(id, doc), nil
	default:
		return types.Event{}, fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}
}

// DecodeAlert maps an sos_alerts document.
func DecodeAlert(id string, doc map[string]any) types.Event {
	return types.Event{
		ID:            id,
		Kind:          types.EventKindAlert,
		SubjectUserID: util.SafeStringFromMap(doc, v1.FieldUserID),
		Source:        types.Source(util.SafeStringFromMap(doc, v1.FieldSource)),
		RiskScore:     util.SafeNumberFromMap(doc, v1.FieldRisk),
		Latitude:      util.SafeNumberFromMap(doc, v1.FieldLatitude),
		Longitude:     util.SafeNumberFromMap(doc, v1.FieldLongitude),
	}
}

// DecodeTracking maps a tracking_events document.
func DecodeTracking(id string, doc map[string]any) types.Event {
	return types.Event{
		ID:            id,
		Kind:          types.EventKindTracking,
		SubjectUserID: util.SafeStringFromMap(doc, v1.FieldUserID),
		TrackingKind:  util.SafeStringFromMap(doc, v1.FieldType),
	}
}

// IsTriggerCollection reports whether events are read from collection.
func IsTriggerCollection(collection string) bool {
	for _, c := range Collections {
		if c == collection {
			return true
		}
	}
	return false
}
