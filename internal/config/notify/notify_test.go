package notify

import (
	"reflect"
	"testing"

	"github.com/dshills/esplay/internal/optree"
)

func TestChangeType_String(t *testing.T) {
	tests := []struct {
		ct   ChangeType
		want string
	}{
		{ChangeSet, "set"},
		{ChangeDelete, "delete"},
		{ChangePreset, "preset"},
		{ChangeReplace, "replace"},
		{ChangeType(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.ct.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.ct, got, tt.want)
		}
	}
}

func TestNotifier_Subscribe(t *testing.T) {
	n := New()
	defer n.Close()

	var received int
	sub := n.Subscribe(func(change Change) {
		received++
	})

	n.Notify(Change{Path: optree.Path{"indent"}, Type: ChangeSet})
	if received != 1 {
		t.Fatalf("received = %d, want 1", received)
	}

	sub.Unsubscribe()
	n.Notify(Change{Path: optree.Path{"indent"}, Type: ChangeSet})
	if received != 1 {
		t.Error("unsubscribed observer received notification")
	}
}

func TestNotifier_SubscribePath(t *testing.T) {
	n := New()
	defer n.Close()

	var indent, ws int
	n.SubscribePath(optree.Path{"indent"}, func(Change) { indent++ })
	n.SubscribePath(optree.Path{"whiteSpace"}, func(Change) { ws++ })

	n.Notify(Change{Path: optree.ParsePath("indent/value"), Type: ChangeSet})
	n.Notify(Change{Path: optree.ParsePath("indent"), Type: ChangeDelete})
	n.Notify(Change{Path: optree.ParsePath("indentation"), Type: ChangeSet})

	if indent != 2 {
		t.Errorf("indent observer called %d times, want 2", indent)
	}
	if ws != 0 {
		t.Errorf("whiteSpace observer called %d times, want 0", ws)
	}

	n.Notify(Change{Type: ChangeReplace})
	if indent != 3 || ws != 1 {
		t.Errorf("replace not delivered to path observers: indent=%d ws=%d", indent, ws)
	}
}

func TestNotifier_Order(t *testing.T) {
	n := New()
	defer n.Close()

	var calls []string
	n.Subscribe(func(Change) { calls = append(calls, "persist") })
	n.SubscribePath(optree.Path{"a"}, func(Change) { calls = append(calls, "path") })
	n.Subscribe(func(Change) { calls = append(calls, "export") })

	n.Notify(Change{Path: optree.Path{"a", "b"}})
	if want := []string{"persist", "path", "export"}; !reflect.DeepEqual(calls, want) {
		t.Errorf("calls = %v, want %v", calls, want)
	}
}

func TestNotifier_Closed(t *testing.T) {
	n := New()
	var received bool
	n.Subscribe(func(Change) { received = true })

	n.Close()
	n.Close()
	n.Notify(Change{Type: ChangeReplace})
	if received {
		t.Error("closed notifier delivered a change")
	}
}
