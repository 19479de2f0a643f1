package notifier

import (
	"context"

	"github.com/lyraio/lyra/internal/types"
)

// MulticastSender delivers one payload to a set of push addresses.
// Per-address failures are reported in the result; an error means the send
// as a whole failed.
type MulticastSender interface {
	// Name returns the sender's identifier (e.g., "fcm", "http", "log").
	Name() string

	// SendMulticast delivers p to every token. Implementations must be safe
	// for concurrent use.
	SendMulticast(ctx context.Context, tokens []string, p types.Payload) (types.SendResult, error)
}
