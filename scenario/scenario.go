package scenario

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wippyai/fibers/errors"
	"github.com/wippyai/fibers/ledger"
)

// Step kinds executed inside the fiber.
const (
	StepEnter  = "enter"
	StepExit   = "exit"
	StepYield  = "yield"
	StepReturn = "return"
	StepFail   = "fail"
)

// Action kinds performed by the driver.
const (
	ActionRun   = "run"
	ActionThrow = "throw"
	ActionReset = "reset"
)

// Scenario describes a fiber body, the driver actions that move it, and
// the ledger frames live on the driver side before the first action.
type Scenario struct {
	Name   string  `yaml:"name"`
	Ledger []Frame `yaml:"ledger"`
	Fiber  []Step  `yaml:"fiber"`
	Driver []Step  `yaml:"driver"`
}

// Frame is a ledger frame as written in a scenario file.
type Frame struct {
	Resource string    `yaml:"resource,omitempty"`
	Op       ledger.ID `yaml:"op"`
	Trigger  ledger.ID `yaml:"trig"`
}

// Step is a single-key mapping such as `yield: x` or `run: 1`.
type Step struct {
	Value any
	Kind  string
}

// UnmarshalYAML decodes a single-key mapping.
func (s *Step) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.MappingNode || len(n.Content) != 2 {
		return errors.InvalidInput(errors.PhaseScenario,
			fmt.Sprintf("line %d: step must be a mapping with exactly one key", n.Line))
	}
	s.Kind = n.Content[0].Value
	return n.Content[1].Decode(&s.Value)
}

// MarshalYAML encodes the step back into its single-key form.
func (s Step) MarshalYAML() (any, error) {
	return map[string]any{s.Kind: s.Value}, nil
}

func (s Step) String() string {
	if s.Value == nil {
		return s.Kind
	}
	return fmt.Sprintf("%s %v", s.Kind, s.Value)
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseScenario, errors.KindNotFound, err, "read "+path)
	}
	return Parse(data)
}

// Parse decodes and validates a scenario document.
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, errors.ParseFailed(errors.PhaseScenario, "scenario", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate checks step kinds and ledger ids.
func (sc *Scenario) Validate() error {
	seen := make(map[ledger.ID]bool, len(sc.Ledger))
	for _, f := range sc.Ledger {
		if f.Op == 0 {
			return errors.InvalidInput(errors.PhaseScenario, "ledger frame with op 0")
		}
		if seen[f.Op] {
			return errors.InvalidInput(errors.PhaseScenario, fmt.Sprintf("duplicate ledger op %d", f.Op))
		}
		seen[f.Op] = true
	}
	for _, s := range sc.Fiber {
		switch s.Kind {
		case StepEnter, StepExit, StepYield, StepReturn, StepFail:
		default:
			return errors.NotFound(errors.PhaseScenario, "fiber step", s.Kind)
		}
	}
	for _, s := range sc.Driver {
		switch s.Kind {
		case ActionRun, ActionThrow, ActionReset:
		default:
			return errors.NotFound(errors.PhaseScenario, "driver action", s.Kind)
		}
	}
	return nil
}

// Snapshot converts the scenario ledger into ledger frames.
func (sc *Scenario) Snapshot() ledger.Snapshot {
	out := make(ledger.Snapshot, len(sc.Ledger))
	for i, f := range sc.Ledger {
		out[i] = ledger.Frame{ID: f.Op, TriggerID: f.Trigger}
		if f.Resource != "" {
			out[i].Resource = f.Resource
		}
	}
	return out
}

// Demo returns the built-in scenario: a driver holding two frames runs a
// fiber that enters its own frame, yields "x" and finishes.
func Demo() *Scenario {
	return &Scenario{
		Name: "yield-preserves-ledger",
		Ledger: []Frame{
			{Op: 1, Trigger: 0},
			{Op: 2, Trigger: 1},
		},
		Fiber: []Step{
			{Kind: StepEnter, Value: "job"},
			{Kind: StepYield, Value: "x"},
			{Kind: StepExit},
			{Kind: StepReturn, Value: "done"},
		},
		Driver: []Step{
			{Kind: ActionRun, Value: "start"},
			{Kind: ActionRun, Value: "resumed"},
		},
	}
}
