package lifecycle

import (
	"errors"
	"os"
	"syscall"
	"testing"
	"time"
)

func testMonitor(probe func(pid int) error, exit func(code int)) *Monitor {
	return &Monitor{
		ownerPID: 4242,
		interval: time.Millisecond,
		probe:    probe,
		exit:     exit,
		stop:     make(chan struct{}),
	}
}

func TestMonitorCheck(t *testing.T) {
	t.Run("alive owner does not terminate", func(t *testing.T) {
		exited := false
		m := testMonitor(func(pid int) error { return nil }, func(code int) { exited = true })
		m.check()
		if exited {
			t.Error("process terminated with a live owner")
		}
	})

	t.Run("permission error counts as alive", func(t *testing.T) {
		exited := false
		m := testMonitor(func(pid int) error { return syscall.EPERM }, func(code int) { exited = true })
		m.check()
		if exited {
			t.Error("process terminated on a permission-denied probe")
		}
	})

	t.Run("wrapped permission error counts as alive", func(t *testing.T) {
		exited := false
		probe := func(pid int) error { return os.NewSyscallError("kill", os.ErrPermission) }
		m := testMonitor(probe, func(code int) { exited = true })
		m.check()
		if exited {
			t.Error("process terminated on a wrapped permission error")
		}
	})

	t.Run("dead owner terminates", func(t *testing.T) {
		code := -1
		probe := func(pid int) error { return errors.New("no such process") }
		m := testMonitor(probe, func(c int) { code = c })
		m.check()
		if code != 0 {
			t.Errorf("expected exit(0), got %d", code)
		}
	})
}

func TestMonitorLoop(t *testing.T) {
	exited := make(chan int, 1)
	calls := 0
	m := testMonitor(func(pid int) error {
		calls++
		if calls < 3 {
			return nil
		}
		return errors.New("no such process")
	}, func(code int) {
		select {
		case exited <- code:
		default:
		}
	})

	m.Start()
	defer m.Stop()

	select {
	case code := <-exited:
		if code != 0 {
			t.Errorf("expected exit(0), got %d", code)
		}
	case <-time.After(time.Second):
		t.Fatal("monitor never noticed the dead owner")
	}
}

func TestMonitorDisabled(t *testing.T) {
	t.Run("zero pid", func(t *testing.T) {
		m := NewMonitor(0)
		m.probe = func(pid int) error {
			t.Error("probe ran with monitoring disabled")
			return nil
		}
		m.Start()
		time.Sleep(10 * time.Millisecond)
	})

	t.Run("self pid", func(t *testing.T) {
		m := NewMonitor(os.Getpid())
		m.interval = time.Millisecond
		m.probe = func(pid int) error {
			t.Error("probe ran against our own pid")
			return nil
		}
		m.Start()
		time.Sleep(10 * time.Millisecond)
	})
}

func TestTerminator(t *testing.T) {
	exited := make(chan int, 1)
	term := &Terminator{
		delay: time.Millisecond,
		exit:  func(code int) { exited <- code },
	}

	term.ExitSoon()

	select {
	case code := <-exited:
		if code != 0 {
			t.Errorf("expected exit(0), got %d", code)
		}
	case <-time.After(time.Second):
		t.Fatal("terminator never fired")
	}
}
