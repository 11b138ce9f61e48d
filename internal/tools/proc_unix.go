//go:build !windows

package tools

import (
	"os/exec"
	"syscall"
)

// setProcessGroup は子プロセスを新しいプロセスグループで起動する。
// ツールが起動した孫プロセスもまとめて終了させるため。
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// killProcess はプロセスグループごと SIGKILL する。
func killProcess(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil {
		_ = cmd.Process.Kill()
	}
}
