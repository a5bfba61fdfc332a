//go:build unix

package decoder

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// configureProcess runs ffmpeg in its own process group so a timeout kills
// any helpers it spawned as well.
func configureProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	}
}
