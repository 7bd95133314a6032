package game

import (
	"fmt"
	"time"
)

// Timer accumulates play time from explicit ticks.
type Timer struct {
	elapsed time.Duration
	running bool
}

func (t *Timer) Reset()                 { t.elapsed = 0 }
func (t *Timer) Stop()                  { t.running = false }
func (t *Timer) Resume()                { t.running = true }
func (t *Timer) Running() bool          { return t.running }
func (t *Timer) Elapsed() time.Duration { return t.elapsed }
func (t *Timer) Set(d time.Duration)    { t.elapsed = d }

// Add advances the timer by dt while it is running.
func (t *Timer) Add(dt time.Duration) {
	if t.running && dt > 0 {
		t.elapsed += dt
	}
}

// Format renders the elapsed time as mm:ss, or h:mm:ss past an hour.
func (t *Timer) Format() string {
	total := int(t.elapsed / time.Second)
	h, m, s := total/3600, total/60%60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
