//go:build unix

package watcher

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"syscall"
)

type groupProcess struct {
	cmd    *exec.Cmd
	exited chan struct{}
}

// spawnGroup runs command through sh in a new process group so the whole
// tree it starts can be killed at once.
func spawnGroup(command string, stdout, stderr io.Writer) (process, error) {
	cmd := exec.Command("sh", "-c", command)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %q: %w", command, err)
	}

	p := &groupProcess{cmd: cmd, exited: make(chan struct{})}
	go func() {
		_ = cmd.Wait()
		close(p.exited)
	}()
	return p, nil
}

func (p *groupProcess) Pid() int {
	return p.cmd.Process.Pid
}

func (p *groupProcess) Stop() error {
	err := syscall.Kill(-p.cmd.Process.Pid, syscall.SIGKILL)
	if errors.Is(err, syscall.ESRCH) {
		err = nil
	}
	<-p.exited
	return err
}
