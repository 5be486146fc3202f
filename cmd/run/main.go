package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/fibers/fiber"
	"github.com/wippyai/fibers/ledger"
	"github.com/wippyai/fibers/scenario"
)

type cliOptions struct {
	scenarioFile string
	format       string
	include      string
	otlp         string
	traceLevel   int
	noCausality  bool
	dump         bool
	verbose      bool
	interactive  bool
}

func main() {
	var opts cliOptions
	flag.StringVar(&opts.scenarioFile, "scenario", "", "Path to scenario yaml (built-in demo when empty)")
	flag.BoolVar(&opts.noCausality, "no-causality", false, "Disable causality preservation")
	flag.IntVar(&opts.traceLevel, "trace", -1, "Fiber diagnostics level (0 off, 1 notice, 2 stack)")
	flag.StringVar(&opts.include, "include", "", "Only log stacks containing this substring")
	flag.StringVar(&opts.format, "format", "text", "Output format (text, yaml)")
	flag.StringVar(&opts.otlp, "otlp", "", "OTLP/HTTP endpoint receiving one span per switch")
	flag.BoolVar(&opts.dump, "dump", false, "Print the scenario and exit")
	flag.BoolVar(&opts.verbose, "v", false, "Verbose logging")
	flag.BoolVar(&opts.interactive, "i", false, "Interactive mode with TUI")
	flag.Parse()

	if err := execute(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func execute(opts cliOptions) (err error) {
	sc, err := loadScenario(opts.scenarioFile)
	if err != nil {
		return err
	}

	if opts.dump {
		out, err := yaml.Marshal(sc)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(out)
		return err
	}

	if opts.interactive && !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("interactive mode needs a terminal")
	}

	cfg, err := fiber.LoadConfig()
	if err != nil {
		return err
	}
	if opts.noCausality {
		cfg.PreserveCausality = false
	}
	if opts.traceLevel >= 0 {
		cfg.TraceLevel = fiber.TraceLevel(opts.traceLevel)
	}
	if opts.include != "" {
		cfg.IncludeInPath = opts.include
	}

	log := zap.NewNop()
	if opts.verbose || cfg.TraceLevel > fiber.TraceOff {
		log, err = zap.NewDevelopment()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()
	}
	if opts.verbose {
		fiber.SetLogger(log)
		ledger.SetLogger(log)
		scenario.SetLogger(log)
	}

	ctx := context.Background()
	shutdown, err := setupTracing(ctx, opts.otlp)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		if serr := shutdown(ctx); serr != nil {
			log.Warn("trace shutdown failed", zap.Error(serr))
		}
	}()

	host := ledger.Default()
	rt, err := fiber.NewRuntime(
		fiber.WithConfig(cfg),
		fiber.WithLogger(log),
		fiber.WithLedgerHost(host),
	)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rt.Close(); err == nil {
			err = cerr
		}
	}()
	if opts.verbose {
		rt.Subscribe(&logObserver{log: log})
	}

	if opts.interactive {
		return runInteractive(rt, host, sc)
	}
	return run(rt, host, sc, opts.format)
}

type logObserver struct {
	log *zap.Logger
}

func (o *logObserver) OnFiberEvent(e fiber.Event) {
	o.log.Debug("fiber "+e.Type.String(), zap.Uint64("fiber", e.Fiber), zap.Error(e.Err))
}

func loadScenario(path string) (*scenario.Scenario, error) {
	if path == "" {
		return scenario.Demo(), nil
	}
	return scenario.Load(path)
}

func run(rt *fiber.Runtime, host *ledger.Stack, sc *scenario.Scenario, format string) error {
	tr, err := scenario.Execute(rt, host, sc)
	if err != nil {
		return err
	}

	switch format {
	case "yaml":
		out, err := yaml.Marshal(tr)
		if err != nil {
			return fmt.Errorf("encode trace: %w", err)
		}
		_, err = os.Stdout.Write(out)
		return err
	case "text":
	default:
		return fmt.Errorf("unknown format %q", format)
	}

	caps := rt.Capabilities()
	fmt.Printf("Scenario: %s\n", tr.Name)
	fmt.Printf("Backend: %s\n", rt.Backend())
	fmt.Printf("Causality: %v\n", tr.Preserving)
	if !caps.Available {
		if err := caps.Err(); err != nil {
			fmt.Printf("  %v\n", err)
		}
	}
	fmt.Printf("Initial ledger: %s\n\n", tr.Initial)

	for i, ev := range tr.Events {
		fmt.Printf("%d. %s", i+1, ev.Action)
		if ev.Input != nil {
			fmt.Printf(" %v", ev.Input)
		}
		fmt.Printf(" -> %s", ev.State)
		if ev.Output != nil {
			fmt.Printf(" (%v)", ev.Output)
		}
		if ev.Error != "" {
			fmt.Printf(" error: %s", ev.Error)
		}
		fmt.Println()
		fmt.Printf("   fiber:  %s\n", ev.Fiber)
		mark := ""
		if !ev.Restored {
			mark = "  (changed)"
		}
		fmt.Printf("   driver: %s%s\n", ev.Driver, mark)
	}

	if tr.Consistent {
		fmt.Printf("\nDriver ledger preserved across every switch.\n")
	} else {
		fmt.Printf("\nDriver ledger changed across a switch.\n")
	}
	return nil
}
