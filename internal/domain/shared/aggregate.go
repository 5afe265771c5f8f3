package shared

import "time"

// AggregateRoot is an entity that owns its invariants and records the domain
// events raised while enforcing them
type AggregateRoot interface {
	Entity
	GetVersion() int
	RecordEvent(event DomainEvent)
	PendingEvents() []DomainEvent
	PullEvents() []DomainEvent
}

// BaseAggregateRoot carries the optimistic-lock version and pending events.
// Version starts at 1 and moves by one per persisted change.
type BaseAggregateRoot struct {
	BaseEntity
	Version int
	pending []DomainEvent
}

func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{
		BaseEntity: NewBaseEntity(),
		Version:    1,
	}
}

func (a *BaseAggregateRoot) GetVersion() int {
	return a.Version
}

// Bump marks a state change made at t
func (a *BaseAggregateRoot) Bump(t time.Time) {
	a.Version++
	a.Touch(t)
}

func (a *BaseAggregateRoot) RecordEvent(event DomainEvent) {
	a.pending = append(a.pending, event)
}

// PendingEvents returns the recorded events without clearing them
func (a *BaseAggregateRoot) PendingEvents() []DomainEvent {
	return a.pending
}

// PullEvents returns the recorded events and forgets them
func (a *BaseAggregateRoot) PullEvents() []DomainEvent {
	events := a.pending
	a.pending = nil
	return events
}
