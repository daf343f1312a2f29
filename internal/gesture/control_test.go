package gesture

import (
	"sync/atomic"
	"testing"
	"time"
)

type recorder struct {
	announced atomic.Int32
	activated atomic.Int32
}

func (r *recorder) control(window time.Duration) *Control {
	return New("Describe scene", window,
		func(string) { r.announced.Add(1) },
		func() { r.activated.Add(1) })
}

// TestDoubleTapActivates verifies the second tap inside the window activates.
func TestDoubleTapActivates(t *testing.T) {
	var r recorder
	c := r.control(time.Second)

	c.Tap()
	if !c.Pending() {
		t.Fatal("first tap did not leave a pending tap")
	}
	c.Tap()

	if got := r.announced.Load(); got != 1 {
		t.Fatalf("announced = %d, want 1", got)
	}
	if got := r.activated.Load(); got != 1 {
		t.Fatalf("activated = %d, want 1", got)
	}
	if c.Pending() {
		t.Fatal("control still pending after activation")
	}
}

// TestSlowTapsOnlyAnnounce verifies taps further apart than the window
// never activate.
func TestSlowTapsOnlyAnnounce(t *testing.T) {
	var r recorder
	c := r.control(10 * time.Millisecond)

	c.Tap()
	time.Sleep(40 * time.Millisecond)
	if c.Pending() {
		t.Fatal("pending tap survived the window")
	}
	c.Tap()

	if got := r.announced.Load(); got != 2 {
		t.Fatalf("announced = %d, want 2", got)
	}
	if got := r.activated.Load(); got != 0 {
		t.Fatalf("activated = %d, want 0", got)
	}
}

// TestResetClearsPendingTap verifies an explicit reset.
func TestResetClearsPendingTap(t *testing.T) {
	var r recorder
	c := r.control(time.Second)

	c.Tap()
	c.Reset()
	c.Tap()

	if got := r.activated.Load(); got != 0 {
		t.Fatalf("activated = %d, want 0", got)
	}
	if got := r.announced.Load(); got != 2 {
		t.Fatalf("announced = %d, want 2", got)
	}
}

func TestDefaultWindow(t *testing.T) {
	c := New("x", 0, nil, nil)
	if c.window != DefaultWindow {
		t.Fatalf("window = %s, want %s", c.window, DefaultWindow)
	}
	c.Tap()
	c.Tap()
}
