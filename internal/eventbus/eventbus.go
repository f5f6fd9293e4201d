package eventbus

// Event is anything published on the bus. The dispatch engine emits
// slot, trip and notification events as plain structs.
type Event interface{}

// EventBus is a fan-out publish/subscribe bus. Publishing never blocks:
// a subscriber that falls behind loses events instead of stalling the
// dispatcher.
type EventBus interface {
	Publish(Event)
	Subscribe() <-chan Event
	Unsubscribe(<-chan Event)
	Close()
}

// Bus is the default EventBus, a TypedBus carrying untyped events.
type Bus struct {
	inner TypedBus[Event]
}

// New creates an empty Bus.
func New() *Bus { return &Bus{} }

func (b *Bus) Publish(e Event)              { b.inner.Publish(e) }
func (b *Bus) Subscribe() <-chan Event      { return b.inner.Subscribe() }
func (b *Bus) Unsubscribe(sub <-chan Event) { b.inner.Unsubscribe(sub) }
func (b *Bus) Close()                       { b.inner.Close() }
