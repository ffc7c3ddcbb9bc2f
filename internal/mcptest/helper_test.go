package mcptest

import "testing"

// TestHelperProcess is the entry point for the fake server subprocess.
// This is invoked by StartFakeServer via exec.Command(os.Args[0], "-test.run=TestHelperProcess", "--").
func TestHelperProcess(t *testing.T) {
	RunHelperProcess(t)
}
