// khiinctl drives the khiin composition engine from a terminal.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/pterm/pterm"

	"khiin/internal/config"
	"khiin/internal/ime"
	"khiin/internal/logging"
	"khiin/internal/metrics"
)

var (
	configPath    = flag.String("config", "", "path to config file")
	databasePath  = flag.String("db", "", "lexicon database (overrides config)")
	metricsFormat = flag.String("metrics", "", "print metrics on exit: prometheus or json")
	verbose       = flag.Bool("v", false, "debug logging")
)

func main() {
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(1)
	}

	initDisplay()

	var err error
	switch cmd := flag.Arg(0); cmd {
	case "init-db":
		err = cmdInitDB()
	case "stats":
		err = cmdStats()
	case "rollback-db":
		err = cmdRollbackDB()
	case "type":
		if flag.NArg() < 2 {
			fmt.Fprintln(os.Stderr, "Usage: khiinctl type <keys>")
			os.Exit(1)
		}
		err = cmdType(flag.Args()[1:])
	case "repl":
		err = cmdREPL()
	case "emojis":
		err = cmdEmojis()
	case "reset-user-data":
		err = cmdResetUserData()
	case "init-config":
		err = cmdInitConfig()
	case "check-config":
		err = cmdCheckConfig()
	case "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}

	if err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `khiinctl - Terminal front end for the khiin input method

Usage: khiinctl [options] <command> [args]

Commands:
  init-db           Create the lexicon database and load the demo lexicon
  stats             Show lexicon row counts and schema migrations
  rollback-db       Undo the newest lexicon schema migration
  type <keys>       Feed a key script to the engine and show the result
  repl              Type interactively, one key script per line
  emojis            List the emoji table
  reset-user-data   Forget learned word frequencies
  init-config       Write the default config file if there is none
  check-config      Validate the config file
  help              Show this help message

Key scripts:
  Characters are typed as they are. Named keys go in angle brackets:
  <space> <enter> <escape> <backspace> <delete> <tab> <left> <right>
  <up> <down>. Prefix S- C- A- M- for Shift, Control, Alt, Meta.

Options:`)
	flag.PrintDefaults()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, err
	}
	if *databasePath != "" {
		cfg.Dictionary.DatabasePath = *databasePath
	}
	if *verbose {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupLogging installs the configured logger as the default. The
// returned function flushes and closes it.
func setupLogging(cfg *config.Config) (func(), error) {
	lc, err := cfg.LoggerConfig()
	if err != nil {
		return nil, err
	}
	lc.Component = "khiinctl"

	logger, err := logging.New(lc)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	logging.SetDefault(logger)
	return func() {
		logger.Sync()
		logger.Close()
	}, nil
}

// openEngine loads the config, sets up logging and builds an engine. The
// returned function closes everything and prints metrics if asked to.
func openEngine() (*ime.Engine, *config.Config, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, nil, nil, err
	}

	closeLog, err := setupLogging(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	engine, err := ime.NewEngine(cfg, ime.Options{
		Metrics:      metrics.NewEngineMetrics(metrics.Default()),
		CrashHandler: logging.DefaultCrashHandler(),
	})
	if err != nil {
		closeLog()
		return nil, nil, nil, err
	}

	return engine, cfg, func() {
		if err := writeMetrics(engine); err != nil {
			pterm.Error.Println(err)
		}
		engine.Close()
		closeLog()
	}, nil
}

func writeMetrics(engine *ime.Engine) error {
	registry := engine.Metrics().Registry()
	switch *metricsFormat {
	case "":
		return nil
	case "prometheus":
		return registry.WritePrometheus(os.Stdout)
	case "json":
		return registry.WriteJSON(os.Stdout)
	default:
		return fmt.Errorf("unknown metrics format %q", *metricsFormat)
	}
}
