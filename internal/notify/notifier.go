package notify

import "context"

// Alert describes a low-rating review that needs operator follow-up.
type Alert struct {
	BusinessName string
	Email        string // recipient (the business's contact address)
	Rating       int
	Comment      string
}

// Notifier delivers low-rating alerts to the business operator. The
// submission flow publishes in a background goroutine; a failed delivery is
// logged and dropped, never retried.
type Notifier interface {
	Publish(ctx context.Context, alert Alert) error
}
