//go:build !unix

package watcher

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
)

type plainProcess struct {
	cmd    *exec.Cmd
	exited chan struct{}
}

// spawnGroup runs command through sh. Without process groups only the shell
// itself is killed on Stop.
func spawnGroup(command string, stdout, stderr io.Writer) (process, error) {
	cmd := exec.Command("sh", "-c", command)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %q: %w", command, err)
	}

	p := &plainProcess{cmd: cmd, exited: make(chan struct{})}
	go func() {
		_ = cmd.Wait()
		close(p.exited)
	}()
	return p, nil
}

func (p *plainProcess) Pid() int {
	return p.cmd.Process.Pid
}

func (p *plainProcess) Stop() error {
	err := p.cmd.Process.Kill()
	if errors.Is(err, os.ErrProcessDone) {
		err = nil
	}
	<-p.exited
	return err
}
