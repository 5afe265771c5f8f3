package shared

import "context"

// EventHandler reacts to delivered domain events. An empty EventTypes
// subscribes to every type.
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	EventTypes() []string
}

// EventPublisher delivers committed events to a downstream: the in-process
// bus or an external broker
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventBus is the in-process publisher that handlers subscribe to
type EventBus interface {
	EventPublisher
	Subscribe(handler EventHandler, eventTypes ...string)
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// OutboxWriter records events inside the caller's database transaction so
// they commit or roll back with the state change that raised them
type OutboxWriter interface {
	Append(ctx context.Context, events ...DomainEvent) error
}
