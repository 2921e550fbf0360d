//go:build windows

package scripts

import (
	"os"
	"os/exec"
)

// setupProcessControl arranges cancellation for the direct child. Windows
// has no POSIX process groups; grandchildren are not tracked.
func setupProcessControl(cmd *exec.Cmd) {
	cmd.Cancel = func() error {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		return nil
	}
	cmd.WaitDelay = killGracePeriod
}

// terminationSignal never reports a signal; signal exit is not a Windows
// concept and the optional result fields stay empty.
func terminationSignal(_ *os.ProcessState) (string, bool) {
	return "", false
}
