package reactive

import (
	"sync"
	"sync/atomic"
	"testing"
)

type recordingDispatcher struct {
	mu    sync.Mutex
	tasks []func()
	deny  bool
}

func (d *recordingDispatcher) Post(task func()) bool {
	if d.deny {
		return false
	}
	d.mu.Lock()
	d.tasks = append(d.tasks, task)
	d.mu.Unlock()
	return true
}

func (d *recordingDispatcher) run() {
	d.mu.Lock()
	tasks := d.tasks
	d.tasks = nil
	d.mu.Unlock()
	for _, task := range tasks {
		task()
	}
}

func TestState_GetSet(t *testing.T) {
	state := NewState(42, nil)

	if got := state.Get(); got != 42 {
		t.Errorf("Expected initial value 42, got %d", got)
	}

	state.Set(100)
	if got := state.Get(); got != 100 {
		t.Errorf("Expected value 100 after Set, got %d", got)
	}
}

func TestState_NotifiesInline(t *testing.T) {
	state := NewState("hello", nil)

	var gotOld, gotNew string
	calls := 0
	state.Subscribe(func(old, new string) {
		calls++
		gotOld, gotNew = old, new
	})

	state.Set("world")
	if calls != 1 {
		t.Fatalf("Expected 1 notification, got %d", calls)
	}
	if gotOld != "hello" || gotNew != "world" {
		t.Errorf("Expected hello->world, got %s->%s", gotOld, gotNew)
	}

	// Same value still notifies
	state.Set("world")
	if calls != 2 {
		t.Errorf("Expected 2 notifications after repeated Set, got %d", calls)
	}
}

func TestState_Unsubscribe(t *testing.T) {
	state := NewState(0, nil)

	var calls atomic.Int32
	unsubscribe := state.Subscribe(func(_, _ int) { calls.Add(1) })

	state.Set(1)
	unsubscribe()
	unsubscribe()
	state.Set(2)

	if calls.Load() != 1 {
		t.Errorf("Expected 1 call before unsubscribe, got %d", calls.Load())
	}
	if state.SubscriberCount() != 0 {
		t.Errorf("Expected no subscribers, got %d", state.SubscriberCount())
	}
}

func TestState_SubscriptionOrder(t *testing.T) {
	state := NewState(0, nil)

	var order []int
	for i := 0; i < 5; i++ {
		i := i
		state.Subscribe(func(_, _ int) { order = append(order, i) })
	}
	state.Set(1)

	for i, got := range order {
		if got != i {
			t.Fatalf("Expected listeners in subscription order, got %v", order)
		}
	}
}

func TestState_Dispatcher(t *testing.T) {
	d := &recordingDispatcher{}
	state := NewState(1, d)

	var seen int
	state.Subscribe(func(_, new int) { seen = new })

	state.Set(7)
	if seen != 0 {
		t.Fatalf("Listener ran before dispatcher delivered it")
	}
	d.run()
	if seen != 7 {
		t.Errorf("Expected 7 after dispatch, got %d", seen)
	}

	d.deny = true
	state.Set(9)
	d.run()
	if seen != 7 {
		t.Errorf("Rejected notification was delivered: %d", seen)
	}
}

func TestState_Update(t *testing.T) {
	state := NewState(10, nil)

	state.Update(func(v int) int {
		return v * 2
	})

	if got := state.Get(); got != 20 {
		t.Errorf("Expected value 20 after Update, got %d", got)
	}
}

func TestState_ListenerMayWrite(t *testing.T) {
	state := NewState(0, nil)
	state.Subscribe(func(_, new int) {
		if new == 1 {
			state.Set(2)
		}
	})

	state.Set(1)
	if got := state.Get(); got != 2 {
		t.Errorf("Expected listener write to land, got %d", got)
	}
}

func TestState_ConcurrentAccess(t *testing.T) {
	state := NewState(0, nil)
	state.Subscribe(func(_, _ int) {})

	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(val int) {
			defer wg.Done()
			state.Set(val)
		}(i)
	}

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = state.Get()
		}()
	}

	wg.Wait()

	t.Log("Concurrent access completed without panic")
}
