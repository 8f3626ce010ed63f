package driver

import (
	"time"

	"github.com/quorumkv/raft/pkg/raft"
)

// SerialTimer implements raft.Timer by wrapping time.AfterFunc, but posts
// the fired callback to a Loop instead of invoking it from the timer
// goroutine — this is what keeps the real-clock production path from
// violating the core's single-owning-goroutine requirement.
type SerialTimer struct {
	loop  *Loop
	timer *time.Timer
}

func NewSerialTimer(loop *Loop) *SerialTimer {
	return &SerialTimer{loop: loop}
}

func (t *SerialTimer) Reset(d time.Duration, callback func()) raft.Cancel {
	if t.timer != nil {
		t.timer.Stop()
	}

	timer := time.AfterFunc(d, func() {
		t.loop.Post(callback)
	})
	t.timer = timer

	return func() {
		timer.Stop()
	}
}
