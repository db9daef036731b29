package notify

import "testing"

func TestHubReplaysRetainedEventsAfterSeq(t *testing.T) {
	h := NewHub(2)
	h.Publish("a", nil)
	h.Publish("b", nil)
	h.Publish("c", nil)

	if got := h.BacklogSize(); got != 2 {
		t.Fatalf("history must be bounded, got=%d", got)
	}
	replay, _, cancel := h.Subscribe(2)
	defer cancel()
	if len(replay) != 1 || replay[0].Method != "c" || replay[0].Seq != 3 {
		t.Fatalf("unexpected replay: %+v", replay)
	}
}

func TestHubDeliversToSubscribersUntilCancelled(t *testing.T) {
	h := NewHub(8)
	_, ch, cancel := h.Subscribe(0)
	h.Publish("registration.succeeded", "sub-1")

	event, ok := <-ch
	if !ok || event.Method != "registration.succeeded" || event.Payload != "sub-1" {
		t.Fatalf("unexpected event: %+v ok=%v", event, ok)
	}
	cancel()
	if _, ok := <-ch; ok {
		t.Fatal("channel must be closed after cancel")
	}
	cancel()
}

func TestHubDropsSlowSubscriber(t *testing.T) {
	h := NewHub(64)
	_, ch, cancel := h.Subscribe(0)
	defer cancel()
	for i := 0; i < 40; i++ {
		h.Publish("tick", i)
	}
	count := 0
	for range ch {
		count++
	}
	if count != DefaultSubscriberBuffer {
		t.Fatalf("slow subscriber must receive its buffer then be closed, got=%d", count)
	}
}

func TestHubSubscriberBufferIsConfigurable(t *testing.T) {
	h := NewHub(64, WithSubscriberBuffer(4))
	_, ch, cancel := h.Subscribe(0)
	defer cancel()
	for i := 0; i < 10; i++ {
		h.Publish("tick", i)
	}
	count := 0
	for range ch {
		count++
	}
	if count != 4 {
		t.Fatalf("subscriber must hold the configured buffer, got=%d", count)
	}

	fallback := NewHub(8, WithSubscriberBuffer(0))
	if fallback.buffer != DefaultSubscriberBuffer {
		t.Fatalf("non-positive buffer must keep the default, got=%d", fallback.buffer)
	}
}
