package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/robalobadob/memory/internal/game"
)

var layout = [][]game.Token{
	{0, 1, 2, 3},
	{0, 1, 2, 3},
	{4, 5, 6, 7},
	{4, 5, 6, 7},
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newClock() *clock { return &clock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)} }

func newFixed(t *testing.T, cfg Config, opts ...Option) *Session {
	t.Helper()
	opts = append([]Option{WithEngineOptions(game.WithDealer(game.FixedDealer(layout)))}, opts...)
	s, err := New(cfg, 4, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func next(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if !ok {
			t.Fatal("subscription closed")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestNewRejectsOddSize(t *testing.T) {
	if _, err := New(Config{}, 3); !errors.Is(err, game.ErrInvalidConfiguration) {
		t.Fatalf("err = %v; want ErrInvalidConfiguration", err)
	}
}

func TestPreviewGatesInput(t *testing.T) {
	clk := newClock()
	s := newFixed(t, Config{PreviewDuration: 3 * time.Second, PreviewStagger: 100 * time.Millisecond}, WithClock(clk.Now))

	p, err := s.Preview()
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if len(p.Steps) != 16 {
		t.Fatalf("steps = %d; want 16", len(p.Steps))
	}
	if last := p.Steps[15]; last.Row != 3 || last.Col != 3 || last.At != 1500 || last.Token != 7 {
		t.Errorf("last step = %+v", last)
	}
	if p.ConcealAt != 4600*time.Millisecond {
		t.Errorf("ConcealAt = %v; want 4.6s", p.ConcealAt)
	}

	if _, err := s.Select(0, 0); !errors.Is(err, ErrPreviewActive) {
		t.Fatalf("Select during preview err = %v", err)
	}

	clk.Advance(4600 * time.Millisecond)
	if _, err := s.Preview(); !errors.Is(err, ErrPreviewOver) {
		t.Fatalf("Preview after window err = %v", err)
	}
	res, err := s.Select(0, 0)
	if err != nil || res.Kind != game.ResultRevealed {
		t.Fatalf("Select after window = %v, %v", res.Kind, err)
	}
}

func TestMismatchAutoResolves(t *testing.T) {
	s := newFixed(t, Config{MismatchDelay: 10 * time.Millisecond})
	events, cancel := s.Subscribe()
	defer cancel()

	if _, err := s.Select(0, 0); err != nil {
		t.Fatal(err)
	}
	res, err := s.Select(0, 1)
	if err != nil || res.Kind != game.ResultMismatched {
		t.Fatalf("second pick = %v, %v", res.Kind, err)
	}

	if ev := next(t, events); ev.Type != EventRevealed {
		t.Fatalf("event = %s; want revealed", ev.Type)
	}
	ev := next(t, events)
	if ev.Type != EventMismatched || len(ev.Cells) != 2 || ev.Mistakes != 1 {
		t.Fatalf("event = %+v; want mismatched with two cells", ev)
	}
	ev = next(t, events)
	if ev.Type != EventConcealed {
		t.Fatalf("event = %s; want concealed", ev.Type)
	}
	for _, c := range ev.Cells {
		if c.Token != nil || c.Revealed {
			t.Errorf("concealed cell leaks state: %+v", c)
		}
	}
	if ph := s.Snapshot().Phase; ph != "idle" {
		t.Errorf("phase = %s; want idle", ph)
	}
}

func TestManualResolveCancelsTimer(t *testing.T) {
	s := newFixed(t, Config{MismatchDelay: 50 * time.Millisecond})
	s.Select(0, 0)
	s.Select(0, 1)

	if _, err := s.Resolve(); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	// A fresh mismatch must not be resolved by the stale timer.
	s.Select(1, 0)
	s.Select(1, 1)
	time.Sleep(200 * time.Millisecond)
	// The second timer has fired by now too; both mismatches resolved exactly once.
	if _, err := s.Resolve(); !errors.Is(err, game.ErrNoPendingResolution) {
		t.Fatalf("Resolve err = %v; want ErrNoPendingResolution", err)
	}
	if m := s.Snapshot().Mistakes; m != 2 {
		t.Errorf("mistakes = %d; want 2", m)
	}
}

func TestZeroDelayWaitsForClient(t *testing.T) {
	s := newFixed(t, Config{})
	s.Select(0, 0)
	s.Select(0, 1)
	time.Sleep(10 * time.Millisecond)
	if ph := s.Snapshot().Phase; ph != "resolving" {
		t.Fatalf("phase = %s; want resolving", ph)
	}
	if res, _ := s.Select(2, 2); res.Kind != game.ResultNoEffect {
		t.Errorf("select while resolving = %v", res.Kind)
	}
	if _, err := s.Resolve(); err != nil {
		t.Fatal(err)
	}
}

func TestOnFinishFiresOnceOnWin(t *testing.T) {
	clk := newClock()
	var (
		mu    sync.Mutex
		calls []Summary
	)
	s := newFixed(t, Config{},
		WithOwner("anon-1"),
		WithEngineOptions(game.WithClock(clk.Now)),
		OnFinish(func(sum Summary) {
			mu.Lock()
			calls = append(calls, sum)
			mu.Unlock()
		}),
	)

	clk.Advance(42 * time.Second)
	for col := 0; col < 4; col++ {
		s.Select(0, col)
		s.Select(1, col)
		s.Select(2, col)
		s.Select(3, col)
	}
	if _, err := s.Select(0, 0); !errors.Is(err, game.ErrGameAlreadyOver) {
		t.Fatalf("select after win err = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(calls) != 1 {
		t.Fatalf("OnFinish calls = %d; want 1", len(calls))
	}
	got := calls[0]
	if got.Outcome != game.StatusWon || got.Owner != "anon-1" || got.Size != 4 || got.Elapsed != 42*time.Second {
		t.Errorf("summary = %+v", got)
	}
	if snap := s.Snapshot(); snap.Status != "won" || snap.ElapsedSeconds != 42 {
		t.Errorf("snapshot = %s / %d", snap.Status, snap.ElapsedSeconds)
	}
}

func TestLossAfterThirdMistake(t *testing.T) {
	done := make(chan Summary, 1)
	s := newFixed(t, Config{MismatchDelay: 5 * time.Millisecond}, OnFinish(func(sum Summary) { done <- sum }))
	events, cancel := s.Subscribe()
	defer cancel()

	for i := 0; i < game.MaxMistakes; i++ {
		s.Select(0, 0)
		s.Select(0, 1)
		for {
			if ev := next(t, events); ev.Type == EventConcealed {
				break
			}
		}
	}
	if ev := next(t, events); ev.Type != EventLost || ev.Status != "lost" {
		t.Fatalf("event = %+v; want lost", ev)
	}
	select {
	case sum := <-done:
		if sum.Outcome != game.StatusLost || sum.Mistakes != game.MaxMistakes {
			t.Errorf("summary = %+v", sum)
		}
	case <-time.After(time.Second):
		t.Fatal("OnFinish not called")
	}
}

func TestCloseEndsSubscriptions(t *testing.T) {
	s := newFixed(t, Config{})
	events, _ := s.Subscribe()
	s.Close()
	s.Close()

	if _, ok := <-events; ok {
		t.Fatal("channel still open after Close")
	}
	if _, err := s.Select(0, 0); !errors.Is(err, ErrClosed) {
		t.Errorf("Select err = %v", err)
	}
	if _, err := s.Resolve(); !errors.Is(err, ErrClosed) {
		t.Errorf("Resolve err = %v", err)
	}
	late, _ := s.Subscribe()
	if _, ok := <-late; ok {
		t.Error("subscribe after Close returned an open channel")
	}
}
