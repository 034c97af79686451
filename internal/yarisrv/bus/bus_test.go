package bus

import (
	"testing"
	"time"
)

func TestSubscribeAndPublish(t *testing.T) {
	b := New()
	topic := UserTopic("abc")

	ch, unsubscribe := b.Subscribe(topic, 1)
	defer unsubscribe()

	b.Publish(Message{Topic: topic, Event: "ping", Payload: []byte("x")}, 100*time.Millisecond)

	select {
	case msg := <-ch:
		if msg.Topic != topic {
			t.Errorf("expected topic %s, got %s", topic, msg.Topic)
		}
		if msg.Event != "ping" {
			t.Errorf("expected event ping, got %s", msg.Event)
		}
	case <-time.After(200 * time.Millisecond):
		t.Error("timeout waiting for message")
	}
}

func TestMultipleSubscribers(t *testing.T) {
	b := New()
	topic := SessionTopic("s1")

	ch1, unsub1 := b.Subscribe(topic, 1)
	defer unsub1()
	ch2, unsub2 := b.Subscribe(topic, 1)
	defer unsub2()

	b.Publish(Message{Topic: topic, Event: "update"}, 100*time.Millisecond)

	for i, ch := range []<-chan Message{ch1, ch2} {
		select {
		case msg := <-ch:
			if msg.Event != "update" {
				t.Errorf("subscriber %d: expected event update, got %s", i, msg.Event)
			}
		case <-time.After(200 * time.Millisecond):
			t.Errorf("subscriber %d: timeout waiting for message", i)
		}
	}
}

func TestWildcardTopic(t *testing.T) {
	b := New()

	ch, unsubscribe := b.Subscribe("user.*", 1)
	defer unsubscribe()

	b.Publish(Message{Topic: UserTopic("u1"), Event: "hello"}, 100*time.Millisecond)

	select {
	case msg := <-ch:
		if msg.Topic != "user.u1" {
			t.Errorf("expected topic user.u1, got %s", msg.Topic)
		}
	case <-time.After(200 * time.Millisecond):
		t.Error("timeout waiting for wildcard message")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := New()
	topic := "yariconnect.queue"

	ch, unsubscribe := b.Subscribe(topic, 1)
	unsubscribe()

	b.Publish(Message{Topic: topic, Event: "join"}, 100*time.Millisecond)

	if _, ok := <-ch; ok {
		t.Error("channel is still open after unsubscribe")
	}
}

func TestPublishDropsSlowSubscriber(t *testing.T) {
	b := New()
	topic := UserTopic("slow")

	ch, unsubscribe := b.Subscribe(topic, 1)
	defer unsubscribe()

	// Fill the buffer; the second publish must return despite no reader.
	b.Publish(Message{Topic: topic, Event: "one"}, 10*time.Millisecond)

	done := make(chan struct{})
	go func() {
		b.Publish(Message{Topic: topic, Event: "two"}, 10*time.Millisecond)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	msg := <-ch
	if msg.Event != "one" {
		t.Errorf("expected first message, got %s", msg.Event)
	}
}

func TestShutdown(t *testing.T) {
	b := New()

	ch1, unsub1 := b.Subscribe("a.b", 1)
	defer unsub1()
	ch2, unsub2 := b.Subscribe("c.d", 1)
	defer unsub2()

	b.Shutdown()

	for i, ch := range []<-chan Message{ch1, ch2} {
		if _, ok := <-ch; ok {
			t.Errorf("channel %d still open after shutdown", i)
		}
	}
}
