package services

import (
	"context"
	"time"
)

// DefaultDeliveryTimeout bounds a single email or SMS send.
const DefaultDeliveryTimeout = 12 * time.Second

// withTimeout runs send and gives up after timeout. The SMTP and SMS clients
// take no context, so an abandoned send keeps running in its goroutine.
func withTimeout(ctx context.Context, timeout time.Duration, send func(ctx context.Context) error) error {
	if timeout <= 0 {
		timeout = DefaultDeliveryTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- send(ctx) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
