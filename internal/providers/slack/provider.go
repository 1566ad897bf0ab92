package slack

import "context"

// Provider posts operational notifications to the workspace channel the
// configured webhook is bound to.
type Provider interface {
	PostMessage(ctx context.Context, message string) error
}

type NoOpProvider struct{}

func (p *NoOpProvider) PostMessage(ctx context.Context, message string) error {
	return nil
}
