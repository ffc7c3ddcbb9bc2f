// Package process supervises the child processes backing "command"-kind
// upstreams: it starts them, restarts them on unexpected exit according to
// a bounded policy, and exposes a point-in-time snapshot of their state.
//
// HTTP and SSE upstreams have no process to supervise; the registry talks to
// them directly via stateless mcp.Driver instances built per call.
package process

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/Bigsy/mcp-gateway/internal/config"
	"github.com/Bigsy/mcp-gateway/internal/events"
	"github.com/Bigsy/mcp-gateway/internal/gwlog"
	"github.com/Bigsy/mcp-gateway/internal/mcp"
)

// GracefulShutdownTimeout is how long Stop waits for SIGTERM before SIGKILL.
const GracefulShutdownTimeout = 10 * time.Second

var log = gwlog.Named("supervisor")

// ChildProcess is one supervised command-kind upstream.
type ChildProcess struct {
	id   string
	spec config.UpstreamSpec

	mu           sync.Mutex
	cmd          *exec.Cmd
	driver       *mcp.CommandDriver
	state        events.RuntimeState
	restartCount int
	lastExit     *events.LastExit
	startedAt    time.Time
	stopped      bool
	done         chan struct{}
}

// Supervisor owns every ChildProcess, keyed by upstream name, behind one
// mutex. No I/O happens while the mutex is held.
type Supervisor struct {
	bus      *events.Bus
	policy   config.RestartPolicy
	children map[string]*ChildProcess
	mu       sync.RWMutex
	stopping chan struct{}
}

// NewSupervisor creates a supervisor applying policy to every started child.
func NewSupervisor(bus *events.Bus, policy config.RestartPolicy) *Supervisor {
	return &Supervisor{
		bus:      bus,
		policy:   policy,
		children: make(map[string]*ChildProcess),
		stopping: make(chan struct{}),
	}
}

// Start launches a command-kind upstream's child process and begins
// supervising it. It does not block on an MCP handshake: the gateway issues
// tools/list and tools/call directly, with no initialize round trip.
func (s *Supervisor) Start(spec config.UpstreamSpec) error {
	if spec.Kind != config.TransportCommand {
		return fmt.Errorf("process.Start: %s is not a command-kind upstream", spec.Name)
	}

	s.mu.Lock()
	if _, exists := s.children[spec.Name]; exists {
		s.mu.Unlock()
		return fmt.Errorf("process.Start: %s is already supervised", spec.Name)
	}

	child := &ChildProcess{id: spec.Name, spec: spec}
	s.children[spec.Name] = child
	s.mu.Unlock()

	return s.spawn(child)
}

// spawn starts (or restarts) child's process. Caller must not hold child.mu.
func (s *Supervisor) spawn(child *ChildProcess) error {
	s.emitStatus(child.id, events.StateIdle, events.StateStarting, events.ServerStatus{ID: child.id, State: events.StateStarting})

	cmd := exec.Command(child.spec.Command, child.spec.Args...)
	cmd.Env = buildEnv(child.spec.Env)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return s.failStart(child, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return s.failStart(child, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return s.failStart(child, err)
	}

	if err := cmd.Start(); err != nil {
		return s.failStart(child, err)
	}

	transport := mcp.NewStdioTransport(child.id, stdin, stdout)

	child.mu.Lock()
	child.cmd = cmd
	child.driver = mcp.NewCommandDriver(child.id, transport)
	child.state = events.StateRunning
	child.startedAt = time.Now()
	child.stopped = false
	child.done = make(chan struct{})
	child.mu.Unlock()

	go child.readStderr(stderr)
	go s.watch(child)

	s.emitStatus(child.id, events.StateStarting, events.StateRunning, child.status())
	return nil
}

func (s *Supervisor) failStart(child *ChildProcess, err error) error {
	child.mu.Lock()
	child.state = events.StateError
	child.mu.Unlock()
	s.emitStatus(child.id, events.StateStarting, events.StateError, child.status())
	log.Error("failed to start upstream", "upstream", child.id, "error", err)
	return fmt.Errorf("start %s: %w", child.id, err)
}

func (c *ChildProcess) readStderr(stderr io.ReadCloser) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		log.Debug("upstream stderr", "upstream", c.id, "line", scanner.Text())
	}
}

func (c *ChildProcess) status() events.ServerStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := events.ServerStatus{
		ID:           c.id,
		State:        c.state,
		RestartCount: c.restartCount,
		LastExit:     c.lastExit,
	}
	if c.cmd != nil && c.cmd.Process != nil {
		status.PID = c.cmd.Process.Pid
	}
	if !c.startedAt.IsZero() {
		t := c.startedAt
		status.StartedAt = &t
	}
	return status
}

// Driver returns the live driver for a running command-kind upstream.
func (s *Supervisor) Driver(name string) (mcp.Driver, error) {
	s.mu.RLock()
	child, ok := s.children[name]
	s.mu.RUnlock()
	if !ok {
		return nil, &mcp.UpstreamError{Upstream: name, Kind: mcp.ErrUnavailable, Message: "upstream is not supervised"}
	}

	child.mu.Lock()
	defer child.mu.Unlock()
	if child.state != events.StateRunning || child.driver == nil {
		return nil, &mcp.UpstreamError{Upstream: name, Kind: mcp.ErrUnavailable, Message: fmt.Sprintf("upstream is %s", child.state)}
	}
	return child.driver, nil
}

// Snapshot returns a value-copy of every supervised upstream's current
// status. Callers never observe a pointer into supervisor-owned state.
func (s *Supervisor) Snapshot() []events.ServerStatus {
	s.mu.RLock()
	children := make([]*ChildProcess, 0, len(s.children))
	for _, c := range s.children {
		children = append(children, c)
	}
	s.mu.RUnlock()

	out := make([]events.ServerStatus, 0, len(children))
	for _, c := range children {
		out = append(out, c.status())
	}
	return out
}

func (s *Supervisor) emitStatus(id string, oldState, newState events.RuntimeState, status events.ServerStatus) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.NewStatusChangedEvent(id, oldState, newState, status))
}

func buildEnv(custom map[string]string) []string {
	env := os.Environ()
	resolved, warnings := config.SubstituteProcessEnv(custom, environToMap(env))
	for _, w := range warnings {
		log.Warn(w)
	}

	for k, v := range resolved {
		prefix := k + "="
		found := false
		for i, e := range env {
			if strings.HasPrefix(e, prefix) {
				env[i] = k + "=" + v
				found = true
				break
			}
		}
		if !found {
			env = append(env, k+"="+v)
		}
	}
	return env
}

func environToMap(entries []string) map[string]string {
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		for i := 0; i < len(e); i++ {
			if e[i] == '=' {
				out[e[:i]] = e[i+1:]
				break
			}
		}
	}
	return out
}
