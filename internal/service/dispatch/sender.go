package dispatch

import "context"

// Sender performs the actual delivery of a resolved message. Delivery
// is simulated in this service; the default sender always succeeds,
// and tests or future transports plug in their own implementation.
type Sender interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

// SenderFunc adapts a plain function to the Sender interface.
type SenderFunc func(ctx context.Context, recipient, subject, body string) error

func (f SenderFunc) Send(ctx context.Context, recipient, subject, body string) error {
	return f(ctx, recipient, subject, body)
}

// NewSimulatedSender returns the default always-successful sender.
func NewSimulatedSender() Sender {
	return SenderFunc(func(ctx context.Context, recipient, subject, body string) error {
		return nil
	})
}
