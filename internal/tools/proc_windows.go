//go:build windows

package tools

import "os/exec"

func setProcessGroup(_ *exec.Cmd) {}

func killProcess(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	_ = cmd.Process.Kill()
}
