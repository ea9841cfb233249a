// Package mission runs the simulator with a generated observer script and
// collects the event table it writes.
package mission

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/signalsfoundry/comms-inspector/internal/config"
	"github.com/signalsfoundry/comms-inspector/internal/logging"
)

var (
	// ErrMissionFailed is returned when the simulator exits unsuccessfully.
	ErrMissionFailed = errors.New("mission execution failed")
	// ErrUnknownEvent is returned for message_events keys with no observer hook.
	ErrUnknownEvent = errors.New("unknown message event")
)

// ResultFile is the event table the collector script writes next to the
// scenario startup file.
const ResultFile = "comms_analysis.csv"

const scriptIndent = "\n   "

var requiredEvents = []string{
	"enable SIMULATION_STARTING SetupParameters",
	"enable SIMULATION_COMPLETE FinishVisualization",
}

// eventHooks lists the observable message events in script order.
var eventHooks = []struct{ event, hook string }{
	{"MESSAGE_OUTGOING", "MessageOutgoing"},
	{"MESSAGE_INCOMING", "MessageIncoming"},
	{"MESSAGE_INTERNAL", "MessageInternal"},
	{"MESSAGE_DELIVERY_ATTEMPT", "MessageDeliveryAttempt"},
	{"MESSAGE_DISCARDED", "MessageDiscarded"},
	{"MESSAGE_FAILED_ROUTING", "MessageFailedRouting"},
	{"MESSAGE_HOP", "MessageHop"},
	{"MESSAGE_UPDATED", "MessageUpdated"},
	{"MESSAGE_QUEUED", "MessageQueued"},
	{"MESSAGE_RECEIVED", "MessageReceived"},
	{"MESSAGE_TRANSMITTED", "MessageTransmitted"},
	{"MESSAGE_TRANSMITTED_HEARTBEAT", "MessageTransmittedHeartbeat"},
	{"MESSAGE_TRANSMIT_ENDED", "MessageTransmitEnded"},
}

// KnownEvents returns the event names accepted in message_events.
func KnownEvents() []string {
	out := make([]string, len(eventHooks))
	for i, h := range eventHooks {
		out[i] = h.event
	}
	return out
}

// ObserverBlock renders the observer section of the script. Events listed
// in events are enabled when true and commented out when false; events not
// listed are left out.
func ObserverBlock(events map[string]bool) (string, error) {
	for name := range events {
		if !known(name) {
			return "", fmt.Errorf("%w: %q", ErrUnknownEvent, name)
		}
	}

	var b strings.Builder
	b.WriteString("observer")
	for _, line := range requiredEvents {
		b.WriteString(scriptIndent + line)
	}
	for _, h := range eventHooks {
		enabled, ok := events[h.event]
		if !ok {
			continue
		}
		line := "enable " + h.event + " " + h.hook
		if !enabled {
			line = "# " + line
		}
		b.WriteString(scriptIndent + line)
	}
	b.WriteString("\nend_observer")
	return b.String(), nil
}

func known(event string) bool {
	for _, h := range eventHooks {
		if h.event == event {
			return true
		}
	}
	return false
}

// BuildScript assembles the full script: the include of the scenario
// startup file, the collector script and the observer block.
func BuildScript(startup, collector string, events map[string]bool) (string, error) {
	abs, err := filepath.Abs(startup)
	if err != nil {
		return "", fmt.Errorf("resolve scenario startup: %w", err)
	}
	observer, err := ObserverBlock(events)
	if err != nil {
		return "", err
	}
	include := "include_once " + filepath.ToSlash(abs)
	return strings.Join([]string{include, collector, observer}, "\n"), nil
}

// Executor runs missions described by a MissionConfig.
type Executor struct {
	cfg config.MissionConfig
	log logging.Logger
}

// NewExecutor returns an executor for cfg.
func NewExecutor(cfg config.MissionConfig, log logging.Logger) *Executor {
	if log == nil {
		log = logging.Noop()
	}
	return &Executor{cfg: cfg, log: log}
}

// OutputPath is where the collected event table ends up.
func (e *Executor) OutputPath() string {
	return filepath.Join(e.cfg.OutputDir, e.cfg.OutputName+".csv")
}

// Run writes the script, runs the simulator from the scenario directory and
// moves the resulting table to OutputPath, which it returns.
func (e *Executor) Run(ctx context.Context) (string, error) {
	collector, err := os.ReadFile(e.cfg.CollectorScript)
	if err != nil {
		return "", fmt.Errorf("Run: read collector script: %w", err)
	}
	script, err := BuildScript(e.cfg.ScenarioStartup, string(collector), e.cfg.MessageEvents)
	if err != nil {
		return "", fmt.Errorf("Run: %w", err)
	}

	if err := os.MkdirAll(e.cfg.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("Run: create output dir: %w", err)
	}
	scriptPath, err := filepath.Abs(filepath.Join(e.cfg.OutputDir, e.cfg.OutputName+".afsim"))
	if err != nil {
		return "", fmt.Errorf("Run: resolve script path: %w", err)
	}
	if err := os.WriteFile(scriptPath, []byte(script), 0o644); err != nil {
		return "", fmt.Errorf("Run: write script: %w", err)
	}
	defer os.Remove(scriptPath)

	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	scenarioDir := filepath.Dir(e.cfg.ScenarioStartup)
	cmd := exec.CommandContext(ctx, e.cfg.ExePath, scriptPath)
	cmd.Dir = scenarioDir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	e.log.Info(ctx, "running mission",
		logging.String("startup", e.cfg.ScenarioStartup),
		logging.String("executable", e.cfg.ExePath),
	)
	start := time.Now()
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrMissionFailed, e.cfg.ScenarioStartup, err)
	}
	e.log.Info(ctx, "mission completed",
		logging.String("startup", e.cfg.ScenarioStartup),
		logging.Duration("elapsed", time.Since(start)),
	)

	out := e.OutputPath()
	if err := moveFile(filepath.Join(scenarioDir, ResultFile), out); err != nil {
		return "", fmt.Errorf("Run: collect %s: %w", ResultFile, err)
	}
	return out, nil
}

// moveFile renames src to dst, copying when they sit on different devices.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return err
	}
	return os.Remove(src)
}
