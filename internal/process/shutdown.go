package process

import (
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// Stop gracefully terminates one upstream: SIGTERM, wait up to
// GracefulShutdownTimeout, then SIGKILL. Idempotent.
func (s *Supervisor) Stop(name string) error {
	s.mu.RLock()
	child, ok := s.children[name]
	s.mu.RUnlock()
	if !ok {
		return nil
	}
	child.stop()
	return nil
}

// StopAll stops admitting restarts, then gracefully terminates every
// supervised child in parallel.
func (s *Supervisor) StopAll() {
	close(s.stopping)

	s.mu.RLock()
	children := make([]*ChildProcess, 0, len(s.children))
	for _, c := range s.children {
		children = append(children, c)
	}
	s.mu.RUnlock()

	var wg sync.WaitGroup
	for _, c := range children {
		wg.Add(1)
		go func(c *ChildProcess) {
			defer wg.Done()
			c.stop()
		}(c)
	}
	wg.Wait()
}

func (c *ChildProcess) stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	cmd := c.cmd
	done := c.done
	if c.driver != nil {
		_ = c.driver.Close()
	}
	c.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return
	}

	_ = cmd.Process.Signal(syscall.SIGTERM)

	select {
	case <-done:
	case <-time.After(GracefulShutdownTimeout):
		_ = cmd.Process.Signal(syscall.SIGKILL)
		<-done
	}
}

// exitInfo extracts the exit code and, if the process died from a signal,
// its name, from a command that has already been waited on.
func exitInfo(cmd *exec.Cmd) (code int, signal string) {
	if cmd.ProcessState == nil {
		return 0, ""
	}
	code = cmd.ProcessState.ExitCode()
	if ws, ok := cmd.ProcessState.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		signal = ws.Signal().String()
	}
	return code, signal
}
