//go:build !windows

package lifecycle

import "syscall"

// probeProcess sends the zero signal: no effect on the target, but the
// kernel reports whether the pid exists. EPERM satisfies os.ErrPermission
// via syscall.Errno.Is and is treated as alive by the caller.
func probeProcess(pid int) error {
	return syscall.Kill(pid, 0)
}
