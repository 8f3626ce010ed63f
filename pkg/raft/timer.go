package raft

import (
	"math/rand"
	"time"
)

// Cancel stops a pending timer callback from firing. Cancellation is
// idempotent: calling it twice, or after the timer already fired, is safe.
type Cancel func()

// Timer is the injectable abstraction behind the two logical clocks a node
// owns. Production code backs it with time.AfterFunc; tests back it with a
// simulated virtual clock so whole clusters can be driven deterministically.
type Timer interface {
	// Reset arms the timer to fire callback after d, cancelling whatever
	// was previously armed on this Timer. At most one armed callback is
	// live per Timer.
	Reset(d time.Duration, callback func()) Cancel
}

// RealTimer backs Timer with the standard library's real clock.
type RealTimer struct {
	cancel Cancel
}

func NewRealTimer() *RealTimer {
	return &RealTimer{}
}

func (t *RealTimer) Reset(d time.Duration, callback func()) Cancel {
	if t.cancel != nil {
		t.cancel()
	}

	timer := time.AfterFunc(d, callback)

	cancel := func() {
		timer.Stop()
	}
	t.cancel = cancel

	return cancel
}

// TimeoutRange draws election timeouts uniformly from [Min, Max). The
// election timeout must be strictly larger than the heartbeat interval so
// a healthy leader's heartbeats always arrive before a follower times out.
type TimeoutRange struct {
	Min time.Duration
	Max time.Duration
}

func (r TimeoutRange) sample(rnd *rand.Rand) time.Duration {
	if r.Max <= r.Min {
		return r.Min
	}
	delta := r.Max - r.Min
	return r.Min + time.Duration(rnd.Int63n(int64(delta)))
}

// Timers bundles the two logical timers a node owns, plus the randomized
// election timeout distribution used to reset the receive-heartbeat timer.
type Timers struct {
	ReceiveHeartbeat Timer
	SendHeartbeat    Timer

	ElectionTimeout   TimeoutRange
	HeartbeatInterval time.Duration

	rnd *rand.Rand

	receiveCancel Cancel
	sendCancel    Cancel
}

func NewTimers(receive, send Timer, electionTimeout TimeoutRange, heartbeatInterval time.Duration, rnd *rand.Rand) *Timers {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(1))
	}
	return &Timers{
		ReceiveHeartbeat:  receive,
		SendHeartbeat:     send,
		ElectionTimeout:   electionTimeout,
		HeartbeatInterval: heartbeatInterval,
		rnd:               rnd,
	}
}

func (t *Timers) ResetReceiveHeartbeat(callback func()) {
	if t.receiveCancel != nil {
		t.receiveCancel()
	}
	t.receiveCancel = t.ReceiveHeartbeat.Reset(t.ElectionTimeout.sample(t.rnd), callback)
}

func (t *Timers) CancelReceiveHeartbeat() {
	if t.receiveCancel != nil {
		t.receiveCancel()
		t.receiveCancel = nil
	}
}

func (t *Timers) ResetSendHeartbeat(callback func()) {
	if t.sendCancel != nil {
		t.sendCancel()
	}
	t.sendCancel = t.SendHeartbeat.Reset(t.HeartbeatInterval, callback)
}

func (t *Timers) CancelSendHeartbeat() {
	if t.sendCancel != nil {
		t.sendCancel()
		t.sendCancel = nil
	}
}
