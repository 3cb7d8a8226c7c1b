package hub

import "testing"

func drain(ch chan []byte) [][]byte {
	var out [][]byte
	for {
		select {
		case msg := <-ch:
			out = append(out, msg)
		default:
			return out
		}
	}
}

func TestBroadcastScoping(t *testing.T) {
	h := New()
	all := &Client{ID: "all", Send: make(chan []byte, 4)}
	scoped := &Client{ID: "scoped", Send: make(chan []byte, 4), Subscription: Subscription{SalonID: "salon-1"}}
	other := &Client{ID: "other", Send: make(chan []byte, 4), Subscription: Subscription{SalonID: "salon-2"}}
	h.Register(all)
	h.Register(scoped)
	h.Register(other)

	h.Broadcast([]byte("event"), Subscription{SalonID: "salon-1"})

	if got := drain(all.Send); len(got) != 1 {
		t.Fatalf("unscoped client expected 1 message, got %d", len(got))
	}
	if got := drain(scoped.Send); len(got) != 1 {
		t.Fatalf("matching client expected 1 message, got %d", len(got))
	}
	if got := drain(other.Send); len(got) != 0 {
		t.Fatalf("non-matching client expected 0 messages, got %d", len(got))
	}
}

func TestBroadcastDropsWhenFull(t *testing.T) {
	h := New()
	client := &Client{ID: "slow", Send: make(chan []byte, 1)}
	h.Register(client)

	h.Broadcast([]byte("a"), Subscription{})
	h.Broadcast([]byte("b"), Subscription{})

	if got := drain(client.Send); len(got) != 1 || string(got[0]) != "a" {
		t.Fatalf("expected only first message retained, got %q", got)
	}
}

func TestUnregisterClosesSend(t *testing.T) {
	h := New()
	client := &Client{ID: "c", Send: make(chan []byte, 1)}
	h.Register(client)
	h.Unregister(client)

	if _, open := <-client.Send; open {
		t.Fatalf("send channel still open after unregister")
	}
	h.Broadcast([]byte("late"), Subscription{})
}

func TestParseSubscribe(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		ok      bool
		action  string
		salonID string
	}{
		{"subscribe", `{"action":"subscribe","salon_id":"salon-1"}`, true, "subscribe", "salon-1"},
		{"unsubscribe", `{"action":"unsubscribe"}`, true, "unsubscribe", ""},
		{"unknown action", `{"action":"ping"}`, false, "", ""},
		{"not json", `subscribe salon-1`, false, "", ""},
	}

	for _, tc := range cases {
		msg, ok := ParseSubscribe([]byte(tc.payload))
		if ok != tc.ok {
			t.Fatalf("%s: expected ok=%v, got %v", tc.name, tc.ok, ok)
		}
		if msg.Action != tc.action || msg.SalonID != tc.salonID {
			t.Fatalf("%s: unexpected message %+v", tc.name, msg)
		}
	}
}
