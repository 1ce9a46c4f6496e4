// Package lifecycle ties the bridge's lifetime to an external owner process
// and implements the explicit remote-shutdown control.
package lifecycle

import (
	"errors"
	"os"
	"time"

	"ncmbridge/logger"
)

const probeInterval = 2 * time.Second

// Monitor periodically probes an owner process and terminates this process
// when the owner is gone. A probe rejected for permission reasons counts as
// alive; false termination is worse than a lingering bridge.
type Monitor struct {
	ownerPID int
	interval time.Duration
	probe    func(pid int) error
	exit     func(code int)
	stop     chan struct{}
}

// NewMonitor builds a monitor for the given owner pid. A zero or negative
// pid, or the bridge's own pid, disables monitoring.
func NewMonitor(ownerPID int) *Monitor {
	return &Monitor{
		ownerPID: ownerPID,
		interval: probeInterval,
		probe:    probeProcess,
		exit:     os.Exit,
		stop:     make(chan struct{}),
	}
}

// Start launches the probe loop. The goroutine holds nothing that keeps the
// process alive; normal shutdown proceeds regardless.
func (m *Monitor) Start() {
	if m.ownerPID <= 0 {
		return
	}
	if m.ownerPID == os.Getpid() {
		logger.Warn("skip owner monitor: owner pid equals self pid")
		return
	}
	logger.Info("owner monitor enabled", logger.Int("owner_pid", m.ownerPID))

	go func() {
		m.check()
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.check()
			case <-m.stop:
				return
			}
		}
	}()
}

// Stop ends the probe loop. Idempotent use is not needed; Stop is called at
// most once during shutdown.
func (m *Monitor) Stop() {
	close(m.stop)
}

func (m *Monitor) check() {
	if m.ownerAlive() {
		return
	}
	logger.Error("owner process exited, shutting down", logger.Int("owner_pid", m.ownerPID))
	m.exit(0)
}

func (m *Monitor) ownerAlive() bool {
	err := m.probe(m.ownerPID)
	if err == nil {
		return true
	}
	// A permission error still proves the pid exists.
	if errors.Is(err, os.ErrPermission) {
		return true
	}
	return false
}

// Terminator exits the process after a short fixed delay, long enough for
// an in-flight HTTP response to flush.
type Terminator struct {
	delay time.Duration
	exit  func(code int)
}

// NewTerminator builds the default terminator used by the shutdown endpoint.
func NewTerminator() *Terminator {
	return NewTerminatorWith(60*time.Millisecond, os.Exit)
}

// NewTerminatorWith builds a terminator with an explicit delay and exit
// function.
func NewTerminatorWith(delay time.Duration, exit func(code int)) *Terminator {
	return &Terminator{delay: delay, exit: exit}
}

// ExitSoon schedules process termination and returns immediately.
func (t *Terminator) ExitSoon() {
	time.AfterFunc(t.delay, func() {
		t.exit(0)
	})
}
