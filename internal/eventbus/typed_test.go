package eventbus

import "testing"

func TestTypedBusPublishSubscribe(t *testing.T) {
	bus := NewTyped[string]()
	ch := bus.Subscribe()
	bus.Publish("slot dispatched")
	if v := <-ch; v != "slot dispatched" {
		t.Fatalf("received %q", v)
	}
	bus.Unsubscribe(ch)

	// A second publish after unsubscribing must not reach the channel.
	bus.Publish("next")
	if _, ok := <-ch; ok {
		t.Fatal("expected closed channel after Unsubscribe")
	}
}

func TestTypedBusClose(t *testing.T) {
	bus := NewTyped[int]()
	ch := bus.Subscribe()
	bus.Close()
	if _, ok := <-ch; ok {
		t.Fatal("expected closed channel")
	}
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("panic after Close: %v", r)
		}
	}()
	bus.Publish(1)
	bus.Unsubscribe(ch)
}
