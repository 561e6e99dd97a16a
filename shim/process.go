package shim

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/containerd/fifo"
	"github.com/containerd/log"
)

// proc is the init process of a task.
type proc struct {
	pid int

	done       context.Context
	exitTime   time.Time
	exitStatus int

	stdout string
	stdin  string
}

func (p *proc) String() string {
	if p.done.Err() != nil {
		return fmt.Sprintf("pid:%d, exitTime:%s, exitStatus:%d", p.pid, p.exitTime.Format(time.RFC3339), p.exitStatus)
	}
	return fmt.Sprintf("pid:%d running", p.pid)
}

func (p *proc) exited() bool {
	return p.done.Err() != nil
}

// The init process stops itself before exec so that Create can return a
// pid while Start decides when the program runs.
const startStoppedScript = `#!/bin/sh
kill -STOP $$
exec "$@"
`

const commandWaitDelay = 100 * time.Millisecond

func exitStatus(state *os.ProcessState) int {
	if state == nil {
		return 255
	}
	if state.Exited() {
		return state.ExitCode()
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return exitCodeSignal + int(ws.Signal())
	}
	return 255
}

// openFifo opens the containerd fifo at path.
func openFifo(ctx context.Context, path string, flag int) (io.ReadWriteCloser, error) {
	ok, err := fifo.IsFifo(path)
	if err != nil {
		return nil, fmt.Errorf("checking whether file %s is a fifo: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("file %s is not a fifo", path)
	}
	f, err := fifo.OpenFifo(ctx, path, flag, 0)
	if err != nil {
		return nil, fmt.Errorf("opening fifo %s: %w", path, err)
	}
	return f, nil
}

// forward copies the child output stream src into the fifo at path. With
// no path the stream is drained.
func forward(ctx context.Context, path string, src io.Reader) error {
	if path == "" {
		go io.Copy(io.Discard, src)
		return nil
	}
	dst, err := openFifo(ctx, path, syscall.O_WRONLY)
	if err != nil {
		return err
	}
	go func() {
		defer dst.Close()
		if _, err := io.Copy(dst, src); err != nil {
			log.G(ctx).WithError(err).Errorf("failed to copy output to fifo %s", path)
		}
	}()
	return nil
}

// wait reaps the init process of task id, records its exit and shuts the
// shim down once no task is left running.
func (s *bfTaskService) wait(ctx context.Context, id string, cmd *exec.Cmd, markDone func()) {
	pid := cmd.Process.Pid
	if err := cmd.Wait(); err != nil {
		if _, ok := err.(*exec.ExitError); !ok {
			log.G(ctx).WithError(err).Errorf("failed to wait for init process %d", pid)
		}
	}
	status := exitStatus(cmd.ProcessState)
	log.G(ctx).WithField("status", status).Debugf("init process %d exited", pid)

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.procs[id]
	if !ok {
		log.G(ctx).Errorf("failed to write final status of done init process: task %s was removed", id)
		markDone()
		return
	}
	p.exitStatus = status
	p.exitTime = time.Now()
	markDone()

	for _, p := range s.procs {
		if !p.exited() {
			return
		}
	}
	log.G(ctx).Debug("all procs exited. shutting down the shim")
	s.shutdown.Shutdown()
}
