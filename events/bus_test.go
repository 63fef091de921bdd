package events

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/kbukum/melos/task"
)

// --- Bus tests ---

func TestBus_MultipleSubscribersSeeEveryEvent(t *testing.T) {
	bus := NewBus()
	a := bus.Subscribe()
	b := bus.Subscribe()

	bus.Publish(CommandStarted{Command: "exit 0", PackageCount: 1})
	bus.Publish(PackageStarted{Name: "core"})
	bus.Publish(PackageFinished{Name: "core", Outcome: task.Succeeded()})
	bus.Close()

	for name, sub := range map[string]*Subscription{"a": a, "b": b} {
		got := sub.Drain()
		if len(got) != 3 {
			t.Fatalf("%s: expected 3 events, got %d", name, len(got))
		}
		if got[0].Kind() != KindCommandStarted || got[2].Kind() != KindPackageFinished {
			t.Errorf("%s: unexpected order %v", name, got)
		}
	}
}

func TestBus_PublishNeverBlocks(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10000; i++ {
			bus.Publish(PackageOutput{Name: "core", Line: fmt.Sprint(i)})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("publish blocked on a consumer that is not reading")
	}
	bus.Close()

	got := sub.Drain()
	if len(got) != 10000 {
		t.Fatalf("expected 10000 events, got %d", len(got))
	}
	for i, e := range got {
		if e.(PackageOutput).Line != fmt.Sprint(i) {
			t.Fatalf("event %d out of order: %v", i, e)
		}
	}
}

func TestBus_ConcurrentPublishers(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe()

	var wg sync.WaitGroup
	for p := 0; p < 8; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			name := fmt.Sprintf("pkg%d", p)
			bus.Publish(PackageStarted{Name: name})
			for i := 0; i < 50; i++ {
				bus.Publish(PackageOutput{Name: name, Line: fmt.Sprint(i)})
			}
			bus.Publish(PackageFinished{Name: name, Outcome: task.Succeeded()})
		}(p)
	}
	wg.Wait()
	bus.Close()

	blocks := Group(sub.Drain())
	if len(blocks) != 8 {
		t.Fatalf("expected 8 blocks, got %d", len(blocks))
	}
	for _, b := range blocks {
		if !b.Started || len(b.Lines) != 50 {
			t.Fatalf("block %s incomplete: started=%v lines=%d", b.Name, b.Started, len(b.Lines))
		}
		for i, l := range b.Lines {
			if l.Text != fmt.Sprint(i) {
				t.Fatalf("block %s line %d out of order: %q", b.Name, i, l.Text)
			}
		}
	}
}

func TestBus_UnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe()
	bus.Publish(Info{Message: "one"})
	sub.Unsubscribe()

	select {
	case _, ok := <-sub.Events():
		if ok {
			// a single buffered event may still be in flight
			if _, ok := <-sub.Events(); ok {
				t.Fatal("expected channel to close after unsubscribe")
			}
		}
	case <-time.After(time.Second):
		t.Fatal("channel did not close after unsubscribe")
	}

	// publishing afterwards must not panic or block
	bus.Publish(Info{Message: "two"})
	bus.Close()
}

func TestBus_SubscribeAfterClose(t *testing.T) {
	bus := NewBus()
	bus.Close()
	sub := bus.Subscribe()
	if got := sub.Drain(); len(got) != 0 {
		t.Errorf("expected no events, got %v", got)
	}
	bus.Publish(Warning{Message: "ignored"})
	bus.Close()
}

func TestDiscard(t *testing.T) {
	Discard.Publish(Info{Message: "dropped"})
}

// --- Event tests ---

func TestPackageName(t *testing.T) {
	tests := []struct {
		event Event
		want  string
	}{
		{PackageStarted{Name: "a"}, "a"},
		{PackageOutput{Name: "b"}, "b"},
		{PackageFinished{Name: "c"}, "c"},
		{Progress{Completed: 1, Total: 2}, ""},
		{CommandFinished{}, ""},
	}
	for _, tt := range tests {
		t.Run(string(tt.event.Kind()), func(t *testing.T) {
			if got := PackageName(tt.event); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

// --- Grouper tests ---

func TestGrouper_ReconstructsInterleavedBlocks(t *testing.T) {
	stream := []Event{
		CommandStarted{PackageCount: 3},
		PackageStarted{Name: "a"},
		PackageStarted{Name: "b"},
		PackageOutput{Name: "a", Line: "a1"},
		PackageOutput{Name: "b", Line: "b1", IsStderr: true},
		PackageOutput{Name: "a", Line: "a2"},
		PackageFinished{Name: "b", Outcome: task.Failed(1), Duration: time.Second},
		PackageFinished{Name: "c", Outcome: task.Skipped()},
		PackageFinished{Name: "a", Outcome: task.Succeeded()},
		CommandFinished{},
	}

	blocks := Group(stream)
	if len(blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(blocks))
	}
	b := blocks[0]
	if b.Name != "b" || b.Outcome != task.Failed(1) || b.Duration != time.Second {
		t.Errorf("unexpected first block %+v", b)
	}
	if len(b.Lines) != 1 || !b.Lines[0].IsStderr {
		t.Errorf("expected one stderr line, got %+v", b.Lines)
	}
	if blocks[1].Name != "c" || blocks[1].Started {
		t.Errorf("expected skipped c without start, got %+v", blocks[1])
	}
	a := blocks[2]
	if len(a.Lines) != 2 || a.Lines[0].Text != "a1" || a.Lines[1].Text != "a2" {
		t.Errorf("unexpected lines for a: %+v", a.Lines)
	}
}

func TestGrouper_Pending(t *testing.T) {
	g := NewGrouper()
	g.Add(PackageStarted{Name: "a"})
	g.Add(PackageStarted{Name: "b"})
	g.Add(PackageFinished{Name: "a"})
	if p := g.Pending(); len(p) != 1 || p[0] != "b" {
		t.Errorf("expected [b] pending, got %v", p)
	}
}
