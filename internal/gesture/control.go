// Package gesture implements the two-tap accessible control: the first tap
// announces the control's label, a second tap inside the window activates it.
package gesture

import (
	"sync"
	"time"
)

// DefaultWindow is the maximum gap between the two taps of an activation.
const DefaultWindow = 500 * time.Millisecond

// Control is a debounced two-tap detector with a single timer.
type Control struct {
	Label string

	window   time.Duration
	announce func(label string)
	activate func()

	mu      sync.Mutex
	pending bool
	gen     uint64
	timer   *time.Timer
}

// New creates a control. A non-positive window selects DefaultWindow.
// announce runs on the first tap and activate on the second; both run on
// the tapping goroutine, outside the control's lock.
func New(label string, window time.Duration, announce func(label string), activate func()) *Control {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Control{
		Label:    label,
		window:   window,
		announce: announce,
		activate: activate,
	}
}

// Tap registers one tap.
func (c *Control) Tap() {
	c.mu.Lock()
	c.gen++
	if c.pending {
		c.clear()
		c.mu.Unlock()
		if c.activate != nil {
			c.activate()
		}
		return
	}

	c.pending = true
	gen := c.gen
	c.timer = time.AfterFunc(c.window, func() { c.expire(gen) })
	c.mu.Unlock()

	if c.announce != nil {
		c.announce(c.Label)
	}
}

// Reset discards a pending first tap.
func (c *Control) Reset() {
	c.mu.Lock()
	c.gen++
	c.clear()
	c.mu.Unlock()
}

// Pending reports whether a first tap is waiting for its second.
func (c *Control) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

func (c *Control) expire(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	c.pending = false
	c.timer = nil
}

// clear must be called with c.mu held.
func (c *Control) clear() {
	c.pending = false
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
