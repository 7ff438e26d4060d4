//go:build unix

package speech

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// TTS front-ends such as spd-say and espeak wrappers fork audio helpers, so
// the whole group is signalled on cancel.
func configureProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	if err := unix.Kill(-cmd.Process.Pid, unix.SIGTERM); err != nil && err != unix.ESRCH {
		return cmd.Process.Kill()
	}
	return nil
}
