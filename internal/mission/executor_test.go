package mission

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalsfoundry/comms-inspector/internal/config"
)

func TestObserverBlock(t *testing.T) {
	block, err := ObserverBlock(map[string]bool{
		"MESSAGE_RECEIVED": true,
		"MESSAGE_HOP":      false,
	})
	require.NoError(t, err)

	want := "observer" +
		"\n   enable SIMULATION_STARTING SetupParameters" +
		"\n   enable SIMULATION_COMPLETE FinishVisualization" +
		"\n   # enable MESSAGE_HOP MessageHop" +
		"\n   enable MESSAGE_RECEIVED MessageReceived" +
		"\nend_observer"
	assert.Equal(t, want, block)
}

func TestObserverBlockUnknownEvent(t *testing.T) {
	_, err := ObserverBlock(map[string]bool{"MESSAGE_TELEPORTED": true})
	assert.ErrorIs(t, err, ErrUnknownEvent)
}

func TestKnownEvents(t *testing.T) {
	events := KnownEvents()
	assert.Len(t, events, 13)
	assert.Equal(t, "MESSAGE_OUTGOING", events[0])
	assert.Equal(t, "MESSAGE_TRANSMIT_ENDED", events[12])
}

func TestBuildScript(t *testing.T) {
	dir := t.TempDir()
	startup := filepath.Join(dir, "startup.txt")

	script, err := BuildScript(startup, "script_variables\nend_script_variables", nil)
	require.NoError(t, err)

	lines := strings.Split(script, "\n")
	assert.Equal(t, "include_once "+filepath.ToSlash(startup), lines[0])
	assert.Equal(t, "script_variables", lines[1])
	assert.Equal(t, "end_script_variables", lines[2])
	assert.Equal(t, "observer", lines[3])
	assert.Equal(t, "end_observer", lines[len(lines)-1])
}

// fakeSimulator writes a shell script that records its argument and drops
// an event table into its working directory.
func fakeSimulator(t *testing.T, exitCode int) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake simulator needs a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "mission")
	body := "#!/bin/sh\n" +
		"cp \"$1\" seen.afsim\n" +
		"echo 'Event_Type,Time' > " + ResultFile + "\n" +
		"exit " + string(rune('0'+exitCode)) + "\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o755))
	return path
}

func missionConfig(t *testing.T, exe string) config.MissionConfig {
	t.Helper()
	scenario := t.TempDir()
	startup := filepath.Join(scenario, "startup.txt")
	require.NoError(t, os.WriteFile(startup, []byte("end_time 10 s\n"), 0o644))
	collector := filepath.Join(t.TempDir(), "collector.txt")
	require.NoError(t, os.WriteFile(collector, []byte("# collector"), 0o644))

	return config.MissionConfig{
		RunMission:      true,
		ExePath:         exe,
		ScenarioStartup: startup,
		CollectorScript: collector,
		OutputName:      "demo",
		OutputDir:       filepath.Join(t.TempDir(), "output"),
		MessageEvents:   map[string]bool{"MESSAGE_QUEUED": true},
	}
}

func TestRunCollectsResult(t *testing.T) {
	cfg := missionConfig(t, fakeSimulator(t, 0))
	exec := NewExecutor(cfg, nil)

	out, err := exec.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.OutputDir, "demo.csv"), out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "Event_Type,Time\n", string(data))

	scenarioDir := filepath.Dir(cfg.ScenarioStartup)
	assert.NoFileExists(t, filepath.Join(scenarioDir, ResultFile))
	assert.NoFileExists(t, filepath.Join(cfg.OutputDir, "demo.afsim"), "script is removed after the run")

	seen, err := os.ReadFile(filepath.Join(scenarioDir, "seen.afsim"))
	require.NoError(t, err)
	assert.Contains(t, string(seen), "# collector")
	assert.Contains(t, string(seen), "enable MESSAGE_QUEUED MessageQueued")
}

func TestRunFailure(t *testing.T) {
	cfg := missionConfig(t, fakeSimulator(t, 3))
	_, err := NewExecutor(cfg, nil).Run(context.Background())
	assert.ErrorIs(t, err, ErrMissionFailed)
}

func TestRunMissingCollector(t *testing.T) {
	cfg := missionConfig(t, fakeSimulator(t, 0))
	cfg.CollectorScript = filepath.Join(t.TempDir(), "absent.txt")
	_, err := NewExecutor(cfg, nil).Run(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}
