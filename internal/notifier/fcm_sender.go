package notifier

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/lyraio/lyra/internal/types"
)

// fcmMaxBatch is the FCM limit on tokens per multicast message.
const fcmMaxBatch = 500

// FCMClient is the subset of *messaging.Client used by FCMSender.
type FCMClient interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// FCMSender implements MulticastSender with Firebase Cloud Messaging.
type FCMSender struct {
	client FCMClient
	logger *zap.Logger
}

var _ MulticastSender = (*FCMSender)(nil)

// NewFCMSender creates a sender from a Firebase app. Credentials come from
// credentialsFile or Application Default Credentials when empty.
func NewFCMSender(ctx context.Context, credentialsFile string, logger *zap.Logger) (*FCMSender, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create messaging client: %w", err)
	}
	return NewFCMSenderFromClient(client, logger), nil
}

// NewFCMSenderFromClient wraps an existing messaging client.
func NewFCMSenderFromClient(client FCMClient, logger *zap.Logger) *FCMSender {
	return &FCMSender{
		client: client,
		logger: logger.Named("fcm-sender"),
	}
}

// Name implements MulticastSender.
func (s *FCMSender) Name() string { return "fcm" }

// SendMulticast implements MulticastSender. Tokens are sent in batches of at
// most 500; a failed batch fails the send, with the counts so far returned.
func (s *FCMSender) SendMulticast(ctx context.Context, tokens []string, p types.Payload) (types.SendResult, error) {
	var res types.SendResult
	for start := 0; start < len(tokens); start += fcmMaxBatch {
		end := min(start+fcmMaxBatch, len(tokens))
		batch := tokens[start:end]

		br, err := s.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
			Tokens: batch,
			Data:   p.Data,
			Notification: &messaging.Notification{
				Title: p.Title,
				Body:  p.Body,
			},
		})
		if err != nil {
			fcmBatchTotal.WithLabelValues("error").Inc()
			return res, fmt.Errorf("fcm multicast batch %d-%d: %w", start, end, err)
		}
		fcmBatchTotal.WithLabelValues("success").Inc()

		res.SuccessCount += br.SuccessCount
		res.FailureCount += br.FailureCount
		for i, r := range br.Responses {
			if r != nil && !r.Success && i < len(batch) {
				res.FailedTokens = append(res.FailedTokens, batch[i])
				s.logger.Debug("FCM token rejected", zap.Int("index", start+i), zap.Error(r.Error))
			}
		}
	}
	return res, nil
}
