package notifier

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogSender(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	s := NewLogSender(zap.New(core))
	assert.Equal(t, "log", s.Name())

	res, err := s.SendMulticast(context.Background(), []string{"t1", "t2"}, testPayload())
	require.NoError(t, err)
	assert.Equal(t, 2, res.SuccessCount)

	entries := logs.FilterMessage("Multicast send (dry run)").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(2), entries[0].ContextMap()["tokens"])
	assert.Equal(t, AlertTitle, entries[0].ContextMap()["title"])
}

func TestLogSender_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLogSender(zap.NewNop()).SendMulticast(ctx, []string{"t1"}, testPayload())
	assert.ErrorIs(t, err, context.Canceled)
}
