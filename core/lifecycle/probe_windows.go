//go:build windows

package lifecycle

import "os"

// probeProcess checks liveness via FindProcess, which on Windows opens a
// handle to the target and fails when the pid does not exist.
func probeProcess(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Release()
}
