package eventbus

import "context"

// Event is any domain event with a name identifier. The name doubles as the
// subscription key and, on brokered transports, the topic selector.
type Event interface {
	EventName() string
}

// Handler processes a delivered event. Delivery is at-least-once: handlers
// must tolerate duplicates.
type Handler func(ctx context.Context, e Event) error

// Publisher hands an event to the transport. Implementations must preserve
// per-product send order for events that carry a product key.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Subscriber registers handlers for event names.
type Subscriber interface {
	Subscribe(eventName string, h Handler)
}
