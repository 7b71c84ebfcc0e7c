package event

import "time"

// Subscriber is a callback invoked with the published payload.
type Subscriber func(param any)

// The host provides several default topics.
const (
	// ContextLifecycle carries log context lifecycle transitions.
	ContextLifecycle = "ContextLifecycle"
	// ReloadConfig signals a process configuration update.
	ReloadConfig = "ReloadConfig"
)

// Topic subscription list for a single topic.
type Topic struct {
	timeout     time.Duration // Publish timeout.
	subscribers []Subscriber  // Subscription queue.
}
