package process

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/Bigsy/mcp-gateway/internal/config"
	"github.com/Bigsy/mcp-gateway/internal/events"
	"github.com/Bigsy/mcp-gateway/internal/mcptest"
	"github.com/Bigsy/mcp-gateway/internal/mcptest/fakeserver"
	"github.com/Bigsy/mcp-gateway/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHelperProcess re-execs this test binary as a fake MCP server child,
// the same re-exec pattern mcptest.StartFakeServer uses directly.
func TestHelperProcess(t *testing.T) {
	mcptest.RunHelperProcess(t)
}

// fakeCommandSpec builds an UpstreamSpec that, when started, re-execs this
// test binary with GO_WANT_HELPER_PROCESS=1 so it behaves as cfg describes.
func fakeCommandSpec(t *testing.T, name string, cfg fakeserver.Config) config.UpstreamSpec {
	t.Helper()
	cfgJSON, err := json.Marshal(cfg)
	require.NoError(t, err)

	return config.UpstreamSpec{
		Name:    name,
		Kind:    config.TransportCommand,
		Command: os.Args[0],
		Args:    []string{"-test.run=TestHelperProcess", "--"},
		Env: map[string]string{
			"GO_WANT_HELPER_PROCESS": "1",
			"FAKE_MCP_CFG":           string(cfgJSON),
		},
	}
}

func TestSupervisorStartAndSnapshot(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()

	sup := NewSupervisor(bus, config.RestartPolicy{MaxRestarts: 3, RestartDelaySecs: 0, CheckIntervalSecs: 1})
	spec := fakeCommandSpec(t, "fake", fakeserver.Config{Tools: []fakeserver.Tool{{Name: "noop"}}})

	require.NoError(t, sup.Start(spec))
	defer sup.StopAll()

	require.Eventually(t, func() bool {
		snap := sup.Snapshot()
		return len(snap) == 1 && snap[0].State == events.StateRunning
	}, time.Second, 10*time.Millisecond)

	driver, err := sup.Driver("fake")
	require.NoError(t, err)
	tools, err := driver.ListTools(context.Background())
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "noop", tools[0].Name)
}

func TestSupervisorRestartsOnExit(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()

	collector := testutil.NewEventCollector()
	bus.Subscribe(collector.Handler)

	sup := NewSupervisor(bus, config.RestartPolicy{MaxRestarts: 2, RestartDelaySecs: 0, CheckIntervalSecs: 1})
	spec := fakeCommandSpec(t, "fake", fakeserver.Config{CrashOnNthRequest: 1, CrashExitCode: 1})

	require.NoError(t, sup.Start(spec))
	defer sup.StopAll()

	require.True(t, collector.WaitForState("fake", events.StateRunning, time.Second))

	driver, err := sup.Driver("fake")
	require.NoError(t, err)
	_, _ = driver.ListTools(context.Background())

	state, ok := collector.WaitForAnyState("fake", []events.RuntimeState{events.StateRunning, events.StateStarting}, 2*time.Second)
	require.True(t, ok)
	assert.Contains(t, []events.RuntimeState{events.StateRunning, events.StateStarting}, state)

	require.Eventually(t, func() bool {
		snap := sup.Snapshot()
		return len(snap) == 1 && snap[0].RestartCount >= 1
	}, 2*time.Second, 20*time.Millisecond)
}

func TestSupervisorGivesUpAfterMaxRestarts(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()

	collector := testutil.NewEventCollector()
	bus.Subscribe(collector.Handler)

	sup := NewSupervisor(bus, config.RestartPolicy{MaxRestarts: 0, RestartDelaySecs: 0, CheckIntervalSecs: 1})
	spec := fakeCommandSpec(t, "fake", fakeserver.Config{CrashOnNthRequest: 1, CrashExitCode: 1})

	require.NoError(t, sup.Start(spec))
	defer sup.StopAll()

	require.True(t, collector.WaitForState("fake", events.StateRunning, time.Second))

	driver, err := sup.Driver("fake")
	require.NoError(t, err)
	_, _ = driver.ListTools(context.Background())

	require.True(t, collector.WaitForState("fake", events.StateGivenUp, 2*time.Second))
	assert.True(t, testutil.StatesContainSequence(collector.StatesFor("fake"), []events.RuntimeState{events.StateRunning, events.StateExited, events.StateGivenUp}))
}

func TestSupervisorStopAllTerminatesChildren(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()

	sup := NewSupervisor(bus, config.RestartPolicy{MaxRestarts: 3, RestartDelaySecs: 0, CheckIntervalSecs: 1})
	spec := fakeCommandSpec(t, "fake", fakeserver.Config{})
	require.NoError(t, sup.Start(spec))

	require.Eventually(t, func() bool {
		_, err := sup.Driver("fake")
		return err == nil
	}, time.Second, 10*time.Millisecond)

	sup.StopAll()

	_, err := sup.Driver("fake")
	require.Error(t, err)
}
