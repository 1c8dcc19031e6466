package txn

import (
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
)

const (
	deadlineArmed int32 = iota
	deadlineFired
	deadlineCancelled
)

// Deadline is a one-shot, cancellable timer owned by a single transaction. Fire and
// Cancel race through a compare-and-set on the handle's status, so whichever happens
// first wins and the other is a no-op.
type Deadline struct {
	status atomic.Int32
	fires  atomic.Int32
	timer  *clock.Timer
}

// ArmDeadline schedules onExpire to run once after d on clk.
func ArmDeadline(clk clock.Clock, d time.Duration, onExpire func()) *Deadline {
	dl := &Deadline{}
	dl.timer = clk.AfterFunc(d, func() {
		if dl.status.CompareAndSwap(deadlineArmed, deadlineFired) {
			dl.fires.Add(1)
			onExpire()
		}
	})
	return dl
}

// Cancel stops the timer. It returns false if the deadline already fired or was
// already cancelled.
func (dl *Deadline) Cancel() bool {
	if !dl.status.CompareAndSwap(deadlineArmed, deadlineCancelled) {
		return false
	}
	dl.timer.Stop()
	return true
}

// Fired reports whether the expiry callback ran.
func (dl *Deadline) Fired() bool {
	return dl.status.Load() == deadlineFired
}

// Cancelled reports whether Cancel won the race against expiry.
func (dl *Deadline) Cancelled() bool {
	return dl.status.Load() == deadlineCancelled
}

// Fires returns how many times the expiry callback ran; it is never more than one.
func (dl *Deadline) Fires() int {
	return int(dl.fires.Load())
}
