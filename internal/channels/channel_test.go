package channels

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nextlevelbuilder/agdabot/internal/bus"
)

func TestDispatchBoundsConcurrency(t *testing.T) {
	c := NewBaseChannel("test", 2)

	var active, peak atomic.Int32
	release := make(chan struct{})
	c.SetHandler(bus.HandlerFunc(func(ctx context.Context, ev bus.Event) error {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		<-release
		active.Add(-1)
		return nil
	}))

	dispatched := make(chan struct{})
	go func() {
		defer close(dispatched)
		for i := 0; i < 6; i++ {
			c.Dispatch(context.Background(), bus.NewMessage{MessageID: i})
		}
	}()

	time.Sleep(50 * time.Millisecond)
	close(release)
	<-dispatched

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if !c.Wait(ctx) {
		t.Fatal("events did not drain")
	}
	if p := peak.Load(); p > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", p)
	}
}

func TestDispatchOutlivesCancellation(t *testing.T) {
	c := NewBaseChannel("test", 0)

	var sawCancel atomic.Bool
	started := make(chan struct{})
	c.SetHandler(bus.HandlerFunc(func(ctx context.Context, ev bus.Event) error {
		close(started)
		time.Sleep(20 * time.Millisecond)
		sawCancel.Store(ctx.Err() != nil)
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	c.Dispatch(ctx, bus.NewMessage{})
	<-started
	cancel()

	if !c.Wait(context.Background()) {
		t.Fatal("wait failed")
	}
	if sawCancel.Load() {
		t.Error("handler context was cancelled with the dispatch context")
	}
}

func TestDispatchErrorHook(t *testing.T) {
	c := NewBaseChannel("test", 0)
	boom := errors.New("boom")
	c.SetHandler(bus.HandlerFunc(func(context.Context, bus.Event) error { return boom }))

	var mu sync.Mutex
	var got []error
	c.OnError(func(ev bus.Event, err error) {
		mu.Lock()
		got = append(got, err)
		mu.Unlock()
	})

	c.Dispatch(context.Background(), bus.InlineQuery{ID: "q"})
	c.Wait(context.Background())

	if len(got) != 1 || !errors.Is(got[0], boom) {
		t.Errorf("hook errors = %v", got)
	}
}

func TestDispatchWithoutHandler(t *testing.T) {
	c := NewBaseChannel("test", 0)
	c.Dispatch(context.Background(), bus.NewMessage{})
	if !c.Wait(context.Background()) {
		t.Error("nothing should be in flight")
	}
}

func TestWaitTimesOut(t *testing.T) {
	c := NewBaseChannel("test", 0)
	block := make(chan struct{})
	defer close(block)
	c.SetHandler(bus.HandlerFunc(func(context.Context, bus.Event) error {
		<-block
		return nil
	}))
	c.Dispatch(context.Background(), bus.NewMessage{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if c.Wait(ctx) {
		t.Error("Wait should report unfinished events")
	}
}

func TestRunningState(t *testing.T) {
	c := NewBaseChannel("telegram", 1)
	if c.Name() != "telegram" || c.IsRunning() {
		t.Fatal("unexpected initial state")
	}
	c.SetRunning(true)
	if !c.IsRunning() {
		t.Error("SetRunning(true) not reflected")
	}
}

func TestDispatchAfterClose(t *testing.T) {
	c := NewBaseChannel("test", 0)
	var calls atomic.Int32
	c.SetHandler(bus.HandlerFunc(func(context.Context, bus.Event) error {
		calls.Add(1)
		return nil
	}))

	if !c.Dispatch(context.Background(), bus.NewMessage{MessageID: 1}) {
		t.Fatal("open channel rejected an event")
	}
	c.Close()
	if c.Dispatch(context.Background(), bus.NewMessage{MessageID: 2}) {
		t.Error("closed channel accepted an event")
	}
	if !c.Wait(context.Background()) {
		t.Fatal("wait failed")
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("handler calls = %d, want 1", n)
	}

	c.SetHandler(c.Handler())
	if !c.Dispatch(context.Background(), bus.NewMessage{MessageID: 3}) {
		t.Error("SetHandler should reopen the channel")
	}
	c.Wait(context.Background())
}

// Dispatches racing Close must each either be rejected or be drained by
// the Wait that follows it.
func TestCloseRacingDispatch(t *testing.T) {
	c := NewBaseChannel("test", 4)
	var handled, accepted atomic.Int32
	c.SetHandler(bus.HandlerFunc(func(context.Context, bus.Event) error {
		time.Sleep(time.Millisecond)
		handled.Add(1)
		return nil
	}))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				if c.Dispatch(context.Background(), bus.NewMessage{MessageID: j}) {
					accepted.Add(1)
				}
			}
		}()
	}

	time.Sleep(5 * time.Millisecond)
	c.Close()
	if !c.Wait(context.Background()) {
		t.Fatal("wait failed")
	}
	handledAtWait := handled.Load()
	wg.Wait()
	if want := accepted.Load(); handledAtWait != want {
		t.Errorf("handled %d events by Wait, accepted %d", handledAtWait, want)
	}
}
