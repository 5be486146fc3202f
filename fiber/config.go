package fiber

import (
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"

	"github.com/wippyai/fibers/errors"
)

// Config describes a Runtime. LoadConfig fills it from the environment;
// options passed to NewRuntime override it.
type Config struct {
	// IncludeInPath restricts TraceStack output to stacks containing it.
	IncludeInPath string `env:"LOG_USE_FIBERS_INCLUDE_IN_PATH"`
	// Backend overrides the platform key used to resolve the native backend.
	Backend string `env:"FIBERS_BACKEND"`
	// TraceLevel selects the per-switch diagnostic output.
	TraceLevel TraceLevel `env:"ENABLE_LOG_USE_FIBERS" envDefault:"0"`
	// PreserveCausality saves and restores the causality ledger around
	// every stack switch.
	PreserveCausality bool `env:"FIBERS_PRESERVE_CAUSALITY" envDefault:"true"`
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return Config{PreserveCausality: true}
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "parse env")
	}
	return cfg, nil
}

// TraceLevel selects what is logged before each intercepted switch.
type TraceLevel int

const (
	TraceOff    TraceLevel = 0 // silent
	TraceNotice TraceLevel = 1 // one line naming the operation
	TraceStack  TraceLevel = 2 // full stack, filtered by IncludeInPath
)

// UnmarshalText parses a numeric level. Anything that is not a positive
// number turns tracing off, values above 2 mean TraceStack.
func (l *TraceLevel) UnmarshalText(text []byte) error {
	n, err := strconv.Atoi(strings.TrimSpace(string(text)))
	switch {
	case err != nil || n <= 0:
		*l = TraceOff
	case n == 1:
		*l = TraceNotice
	default:
		*l = TraceStack
	}
	return nil
}

func (l TraceLevel) String() string {
	switch {
	case l <= TraceOff:
		return "off"
	case l == TraceNotice:
		return "notice"
	default:
		return "stack"
	}
}
