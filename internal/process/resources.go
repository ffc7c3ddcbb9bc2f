package process

import (
	"os/exec"
	"strconv"
	"strings"
)

// ResourceUsage is one process's point-in-time CPU/memory sample.
type ResourceUsage struct {
	CPUPercent float64
	MemPercent float64
}

// sampleResourceUsage shells out to ps, mirroring
// process_monitor.py::get_process_resource_usage. ps is universally
// available on the Linux/macOS targets this gateway runs on; no process-
// metrics library appears anywhere in the example pack, so shelling out
// matches the original's own approach rather than introducing one.
func sampleResourceUsage(pid int) (ResourceUsage, error) {
	out, err := exec.Command("ps", "-p", strconv.Itoa(pid), "-o", "%cpu,%mem", "--no-headers").Output()
	if err != nil {
		return ResourceUsage{}, err
	}

	fields := strings.Fields(string(out))
	if len(fields) < 2 {
		return ResourceUsage{}, nil
	}

	cpu, _ := strconv.ParseFloat(fields[0], 64)
	mem, _ := strconv.ParseFloat(fields[1], 64)
	return ResourceUsage{CPUPercent: cpu, MemPercent: mem}, nil
}

// Resources returns the current CPU/memory sample for a running upstream.
// It tolerates failures the way the reference implementation does: a ps
// failure, an unknown name, or a child with no process all yield a zeroed
// sample and a nil error.
func (s *Supervisor) Resources(name string) (ResourceUsage, error) {
	s.mu.RLock()
	child, ok := s.children[name]
	s.mu.RUnlock()
	if !ok {
		return ResourceUsage{}, nil
	}

	child.mu.Lock()
	cmd := child.cmd
	child.mu.Unlock()
	if cmd == nil || cmd.Process == nil {
		return ResourceUsage{}, nil
	}

	usage, err := sampleResourceUsage(cmd.Process.Pid)
	if err != nil {
		log.Debug("resource sample failed", "upstream", name, "error", err)
		return ResourceUsage{}, nil
	}
	return usage, nil
}
