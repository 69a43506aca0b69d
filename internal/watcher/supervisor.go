package watcher

import (
	"context"
	"errors"
	"io"

	"github.com/vk/bndl/internal/ctxlog"
)

// ErrSupervisorStopped is returned by requests sent after Shutdown.
var ErrSupervisorStopped = errors.New("supervisor stopped")

// process is a running child process group.
type process interface {
	// Stop kills the whole group and waits for the leader to exit.
	Stop() error
	// Pid is the group leader's process id.
	Pid() int
}

// spawnFunc starts command and returns the running process.
type spawnFunc func(command string, stdout, stderr io.Writer) (process, error)

type request int

const (
	requestRestart request = iota
	requestShutdown
)

type message struct {
	req   request
	reply chan error
}

// Supervisor owns a child process and runs it through the states Stopped
// and Running. All transitions happen on one goroutine driven by messages,
// so a restart and a shutdown can never interleave.
type Supervisor struct {
	command string
	stdout  io.Writer
	stderr  io.Writer
	spawn   spawnFunc

	msgs chan message
	done chan struct{}
}

// NewSupervisor creates a Supervisor for a shell command. Nothing runs until
// Start.
func NewSupervisor(command string, stdout, stderr io.Writer) *Supervisor {
	return &Supervisor{
		command: command,
		stdout:  stdout,
		stderr:  stderr,
		spawn:   spawnGroup,
		msgs:    make(chan message),
		done:    make(chan struct{}),
	}
}

// Start spawns the child and the goroutine owning it. The returned error
// reports a failed initial spawn, in which case the supervisor is not
// running.
func (s *Supervisor) Start(ctx context.Context) error {
	proc, err := s.spawn(s.command, s.stdout, s.stderr)
	if err != nil {
		close(s.done)
		return err
	}
	ctxlog.FromContext(ctx).Info("🚀 Started process.", "command", s.command, "pid", proc.Pid())
	go s.loop(ctx, proc)
	return nil
}

// Restart kills the running child group and spawns a new one. It blocks
// until the new child has been started.
func (s *Supervisor) Restart() error {
	return s.send(requestRestart)
}

// Shutdown kills the child group and stops the supervisor. It blocks until
// the group is gone; later calls return ErrSupervisorStopped.
func (s *Supervisor) Shutdown() error {
	return s.send(requestShutdown)
}

// Done is closed once the supervisor has stopped.
func (s *Supervisor) Done() <-chan struct{} {
	return s.done
}

func (s *Supervisor) send(req request) error {
	reply := make(chan error, 1)
	select {
	case s.msgs <- message{req: req, reply: reply}:
		return <-reply
	case <-s.done:
		return ErrSupervisorStopped
	}
}

func (s *Supervisor) loop(ctx context.Context, proc process) {
	logger := ctxlog.FromContext(ctx)
	defer close(s.done)

	for msg := range s.msgs {
		switch msg.req {
		case requestShutdown:
			var err error
			if proc != nil {
				logger.Debug("Stopping process group.", "pid", proc.Pid())
				err = proc.Stop()
			}
			msg.reply <- err
			return

		case requestRestart:
			if proc != nil {
				logger.Debug("Stopping process group.", "pid", proc.Pid())
				if err := proc.Stop(); err != nil {
					logger.Warn("Failed to stop process group.", "pid", proc.Pid(), "error", err)
				}
				proc = nil
			}
			next, err := s.spawn(s.command, s.stdout, s.stderr)
			if err != nil {
				msg.reply <- err
				continue
			}
			proc = next
			logger.Info("🔄 Restarted process.", "command", s.command, "pid", proc.Pid())
			msg.reply <- nil
		}
	}
}
