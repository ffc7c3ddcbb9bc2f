package health

import (
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// SystemResources is a point-in-time system-wide resource sample.
type SystemResources struct {
	CPUPercent   float64 `json:"cpuPercent"`
	MemPercent   float64 `json:"memPercent"`
	ProcessCount int     `json:"processCount"`
	DiskPercent  float64 `json:"diskPercent"`
}

// sampleSystemResources shells out to ps/df, the same tools
// health_check.py::check_system_resources uses, each wrapped so a single
// failing sub-metric degrades to zero rather than failing the whole sample.
func sampleSystemResources() SystemResources {
	return SystemResources{
		CPUPercent:   sumPS("%cpu"),
		MemPercent:   sumPS("%mem"),
		ProcessCount: countPS(),
		DiskPercent:  diskPercent("/"),
	}
}

func sumPS(field string) float64 {
	out, err := exec.Command("ps", "-eo", field, "--no-headers").Output()
	if err != nil {
		return procFallbackPercent(field)
	}
	var total float64
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if v, err := strconv.ParseFloat(line, 64); err == nil {
			total += v
		}
	}
	return total
}

func countPS() int {
	out, err := exec.Command("ps", "-e", "--no-headers").Output()
	if err != nil {
		entries, rerr := os.ReadDir("/proc")
		if rerr != nil {
			return 0
		}
		count := 0
		for _, e := range entries {
			if _, err := strconv.Atoi(e.Name()); err == nil {
				count++
			}
		}
		return count
	}
	count := 0
	for _, line := range strings.Split(string(out), "\n") {
		if strings.TrimSpace(line) != "" {
			count++
		}
	}
	return count
}

func diskPercent(path string) float64 {
	out, err := exec.Command("df", "-h", path).Output()
	if err != nil {
		return 0
	}
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) < 2 {
		return 0
	}
	fields := strings.Fields(lines[len(lines)-1])
	for _, f := range fields {
		if strings.HasSuffix(f, "%") {
			v, err := strconv.ParseFloat(strings.TrimSuffix(f, "%"), 64)
			if err == nil {
				return v
			}
		}
	}
	return 0
}

// procFallbackPercent is a best-effort substitute for ps on systems where it
// is absent (minimal containers): without ps there is no portable way to
// sum per-process CPU/mem percentages from /proc alone without sampling
// over an interval, so this returns 0 rather than a misleading instantaneous
// figure, matching the original's own "return 0 on failure" behavior for
// each sub-metric.
func procFallbackPercent(field string) float64 {
	return 0
}
