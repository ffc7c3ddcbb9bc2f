package process

import (
	"time"

	"github.com/Bigsy/mcp-gateway/internal/events"
)

// watch waits for child's process to exit, then applies the restart policy:
// respawn after restartDelay while restartCount stays below maxRestarts,
// otherwise give up permanently. Mirrors process_monitor.py::monitor_processes,
// but event-driven (one goroutine per child waiting on cmd.Wait()) rather
// than a shared poll loop, since Go's os/exec already blocks efficiently on
// process exit.
func (s *Supervisor) watch(child *ChildProcess) {
	child.mu.Lock()
	cmd := child.cmd
	done := child.done
	child.mu.Unlock()

	waitErr := cmd.Wait()
	close(done)

	child.mu.Lock()
	wasStopped := child.stopped
	exitCode, signal := exitInfo(cmd)
	child.lastExit = &events.LastExit{Code: exitCode, Signal: signal, Timestamp: time.Now()}
	child.mu.Unlock()

	if wasStopped {
		child.mu.Lock()
		child.state = events.StateExited
		child.mu.Unlock()
		s.emitStatus(child.id, events.StateRunning, events.StateExited, child.status())
		return
	}

	log.Warn("upstream exited", "upstream", child.id, "code", exitCode, "signal", signal, "error", waitErr)

	child.mu.Lock()
	child.state = events.StateExited
	child.mu.Unlock()
	s.emitStatus(child.id, events.StateRunning, events.StateExited, child.status())

	child.mu.Lock()
	attempt := child.restartCount + 1
	giveUp := attempt > s.policy.MaxRestarts
	if !giveUp {
		child.restartCount = attempt
	}
	child.mu.Unlock()

	if giveUp {
		child.mu.Lock()
		child.state = events.StateGivenUp
		child.mu.Unlock()
		log.Error("upstream restarted too many times, giving up", "upstream", child.id, "restarts", s.policy.MaxRestarts)
		s.emitStatus(child.id, events.StateExited, events.StateGivenUp, child.status())
		return
	}

	log.Info("restarting upstream", "upstream", child.id, "attempt", attempt, "maxRestarts", s.policy.MaxRestarts)
	time.Sleep(time.Duration(s.policy.RestartDelaySecs) * time.Second)

	if s.isStopping() {
		return
	}

	if err := s.spawn(child); err != nil {
		log.Error("restart failed", "upstream", child.id, "error", err)
	}
}

func (s *Supervisor) isStopping() bool {
	select {
	case <-s.stopping:
		return true
	default:
		return false
	}
}
