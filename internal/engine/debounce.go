package engine

import (
	"sync"
	"time"

	"sova-grid/internal/model"
)

// ResizeDebouncer coalesces bursts of duration changes (held +/- keys, pointer drags on a
// frame edge) into one set_duration per frame, carrying the last requested value.
type ResizeDebouncer struct {
	delay time.Duration
	apply func(p model.Pos, duration float64)

	mu      sync.Mutex
	timer   *time.Timer
	pending map[model.Pos]float64
	running bool
	stopped bool
	idle    *sync.Cond
}

func NewResizeDebouncer(delay time.Duration, apply func(p model.Pos, duration float64)) *ResizeDebouncer {
	if delay <= 0 {
		delay = 150 * time.Millisecond
	}
	d := &ResizeDebouncer{delay: delay, apply: apply, pending: map[model.Pos]float64{}}
	d.idle = sync.NewCond(&d.mu)
	return d
}

func (d *ResizeDebouncer) Notify(p model.Pos, duration float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.pending[p] = duration
	if d.timer == nil {
		d.timer = time.AfterFunc(d.delay, d.onTimer)
		return
	}
	d.timer.Reset(d.delay)
}

// Pending returns the not yet sent duration for p.
func (d *ResizeDebouncer) Pending(p model.Pos) (float64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.pending[p]
	return v, ok
}

// Flush sends everything pending now. A batch already being sent by the timer is waited
// for first, so values noted while it ran are not lost.
func (d *ResizeDebouncer) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
	}
	for d.running {
		d.idle.Wait()
	}
	for len(d.pending) > 0 {
		d.sendLocked()
	}
	d.mu.Unlock()
}

// Stop drops pending work and disables the debouncer.
func (d *ResizeDebouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	d.pending = map[model.Pos]float64{}
	if d.timer != nil {
		d.timer.Stop()
	}
}

func (d *ResizeDebouncer) onTimer() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		// A batch is still being sent; look again later.
		if d.timer != nil {
			d.timer.Reset(d.delay)
		}
		return
	}
	if len(d.pending) == 0 {
		return
	}
	d.sendLocked()
	if len(d.pending) > 0 && d.timer != nil && !d.stopped {
		d.timer.Reset(d.delay)
	}
}

// sendLocked applies the current batch with d.mu released and wakes any waiting Flush.
func (d *ResizeDebouncer) sendLocked() {
	batch := d.pending
	d.pending = map[model.Pos]float64{}
	d.running = true
	d.mu.Unlock()

	for p, v := range batch {
		d.apply(p, v)
	}

	d.mu.Lock()
	d.running = false
	d.idle.Broadcast()
}
