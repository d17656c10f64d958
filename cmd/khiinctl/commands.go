package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/pterm/pterm"

	"khiin/internal/config"
	"khiin/internal/ime"
	"khiin/internal/logging"
	"khiin/internal/store"
)

func cmdInitDB() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	s, err := store.Open(cfg.Dictionary.DatabasePath)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := store.SeedDemo(s); err != nil {
		return err
	}
	st, err := s.Stats()
	if err != nil {
		return err
	}
	pterm.Success.Printf("Initialized %s\n", cfg.Dictionary.DatabasePath)
	printStats(cfg.Dictionary.DatabasePath, st)
	return nil
}

func cmdStats() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if _, err := os.Stat(cfg.Dictionary.DatabasePath); err != nil {
		return fmt.Errorf("no lexicon at %s (run khiinctl init-db)", cfg.Dictionary.DatabasePath)
	}

	s, err := store.Open(cfg.Dictionary.DatabasePath)
	if err != nil {
		return err
	}
	defer s.Close()

	st, err := s.Stats()
	if err != nil {
		return err
	}
	printStats(cfg.Dictionary.DatabasePath, st)

	status, err := s.MigrationStatus()
	if err != nil {
		return err
	}
	printMigrations(status)
	return nil
}

// cmdRollbackDB undoes the newest schema migration. Opening the lexicon
// again reapplies it, so this only matters to tooling that inspects the
// file in between.
func cmdRollbackDB() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if _, err := os.Stat(cfg.Dictionary.DatabasePath); err != nil {
		return fmt.Errorf("no lexicon at %s (run khiinctl init-db)", cfg.Dictionary.DatabasePath)
	}

	s, err := store.Open(cfg.Dictionary.DatabasePath)
	if err != nil {
		return err
	}
	defer s.Close()

	m, err := s.Rollback()
	if err != nil {
		return err
	}
	pterm.Success.Printf("Rolled back migration %d (%s)\n", m.Version, m.Description)

	status, err := s.MigrationStatus()
	if err != nil {
		return err
	}
	printMigrations(status)
	return nil
}

// sendKeys feeds keys to the engine the way a host does: each key is
// tested first and only sent if the engine would consume it.
func sendKeys(engine *ime.Engine, keys []ime.Key) (*ime.Response, error) {
	var last *ime.Response
	for _, k := range keys {
		test, err := engine.Handle(ime.Request{Type: ime.CmdTestSendKey, Key: k})
		if err != nil {
			return nil, err
		}
		if !test.Consumable {
			pterm.Printf("passed through %s\n", describeKey(k))
			continue
		}

		resp, err := engine.Handle(ime.Request{Type: ime.CmdSendKey, Key: k})
		if err != nil {
			return nil, err
		}
		if resp.Committed {
			pterm.Success.Printf("committed %q\n", resp.CommittedText)
		}
		last = resp
	}
	return last, nil
}

func describeKey(k ime.Key) string {
	if k.Special != ime.KeyNone {
		return "<" + k.Special.String() + ">"
	}
	return fmt.Sprintf("%q", k.Char)
}

func cmdType(args []string) error {
	keys, err := parseKeys(strings.Join(args, " "))
	if err != nil {
		return err
	}

	engine, _, closeAll, err := openEngine()
	if err != nil {
		return err
	}
	defer closeAll()

	resp, err := sendKeys(engine, keys)
	if err != nil {
		return err
	}
	if resp != nil {
		resp.Committed = false
		printResponse(resp)
	}
	return nil
}

func cmdREPL() error {
	engine, cfg, closeAll, err := openEngine()
	if err != nil {
		return err
	}
	defer closeAll()

	loader := config.NewLoader(*configPath)
	if _, err := loader.Load(); err != nil {
		logging.Warn("config not watched", "path", loader.Path(), "error", err)
	} else {
		loader.OnChange(func(next *config.Config) {
			next.Dictionary.DatabasePath = cfg.Dictionary.DatabasePath
			if err := engine.SetConfig(next); err != nil {
				pterm.Error.Printf("config reload: %v\n", err)
				return
			}
			pterm.Info.Println("config reloaded")
		})
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		if err := loader.Watch(ctx); err != nil {
			logging.Warn("config not watched", "path", loader.Path(), "error", err)
		} else {
			defer loader.Close()
			go func() {
				for err := range loader.Errors() {
					pterm.Error.Printf("config reload: %v\n", err)
				}
			}()
		}
	}

	historyFile := ""
	if dir := config.DataDir(); dir != "" {
		historyFile = filepath.Join(dir, "khiinctl_history")
	}
	repl, err := readline.NewEx(&readline.Config{
		Prompt:      "khiin > ",
		HistoryFile: historyFile,
	})
	if err != nil {
		return fmt.Errorf("start readline: %w", err)
	}
	defer repl.Close()

	pterm.Info.Println("Type key scripts; :help lists commands. Quit with <ctrl>D")
	for {
		line, err := repl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if err != nil { // io.EOF
			break
		}
		if line = strings.TrimSpace(line); line == "" {
			continue
		}

		quit, err := replLine(engine, line)
		if err != nil {
			pterm.Error.Println(err)
			continue
		}
		if quit {
			break
		}
	}
	pterm.Info.Println("Good bye!")
	return nil
}

// replLine runs one REPL line. Lines starting with ':' are commands; any
// other line is a key script.
func replLine(engine *ime.Engine, line string) (quit bool, err error) {
	if !strings.HasPrefix(line, ":") {
		keys, err := parseKeys(line)
		if err != nil {
			return false, err
		}
		resp, err := sendKeys(engine, keys)
		if err != nil {
			return false, err
		}
		if resp != nil {
			resp.Committed = false
			printResponse(resp)
		}
		return false, nil
	}

	fields := strings.Fields(line[1:])
	if len(fields) == 0 {
		return false, nil
	}

	var req ime.Request
	switch fields[0] {
	case "q", "quit":
		return true, nil
	case "help":
		pterm.Println(`:commit          commit the composition
:reset           drop the composition
:select <n>      select candidate n
:focus <n>       focus candidate n
:mode <mode>     switch to continuous, basic or manual input
:emojis          list emojis
:metrics         print metrics
:quit            leave`)
		return false, nil
	case "commit":
		req.Type = ime.CmdCommit
	case "reset":
		req.Type = ime.CmdReset
	case "select", "focus":
		if len(fields) < 2 {
			return false, fmt.Errorf(":%s needs a candidate number", fields[0])
		}
		if _, err := fmt.Sscanf(fields[1], "%d", &req.CandidateID); err != nil {
			return false, fmt.Errorf("bad candidate number %q", fields[1])
		}
		req.Type = ime.CmdSelectCandidate
		if fields[0] == "focus" {
			req.Type = ime.CmdFocusCandidate
		}
	case "mode":
		if len(fields) < 2 {
			return false, fmt.Errorf(":mode needs a mode")
		}
		cfg := engine.Config()
		cfg.Input.Mode = fields[1]
		req = ime.Request{Type: ime.CmdSetConfig, Config: cfg}
	case "emojis":
		resp, err := engine.Handle(ime.Request{Type: ime.CmdListEmojis})
		if err != nil {
			return false, err
		}
		printEmojis(resp.Candidates)
		return false, nil
	case "metrics":
		return false, engine.Metrics().Registry().WritePrometheus(os.Stdout)
	default:
		return false, fmt.Errorf("unknown command :%s", fields[0])
	}

	resp, err := engine.Handle(req)
	if err != nil {
		return false, err
	}
	printResponse(resp)
	return false, nil
}

func cmdEmojis() error {
	engine, _, closeAll, err := openEngine()
	if err != nil {
		return err
	}
	defer closeAll()

	resp, err := engine.Handle(ime.Request{Type: ime.CmdListEmojis})
	if err != nil {
		return err
	}
	printEmojis(resp.Candidates)
	return nil
}

func cmdResetUserData() error {
	engine, _, closeAll, err := openEngine()
	if err != nil {
		return err
	}
	defer closeAll()

	if _, err := engine.Handle(ime.Request{Type: ime.CmdResetUserData}); err != nil {
		return err
	}
	pterm.Success.Println("Learned frequencies cleared")
	return nil
}

func cmdInitConfig() error {
	path := *configPath
	if path == "" {
		path = config.ConfigPath()
	}

	_, created, err := config.LoadOrCreate(path)
	if err != nil {
		return err
	}
	if created {
		pterm.Success.Printf("Wrote default config to %s\n", path)
	} else {
		pterm.Info.Printf("Config already exists at %s\n", path)
	}
	return nil
}

func cmdCheckConfig() error {
	path := *configPath
	if path == "" {
		path = config.FindConfigFile()
	}
	if path == "" {
		pterm.Info.Println("No config file found, defaults apply")
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := config.ValidateSchema(data, filepath.Ext(path)); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if _, err := config.NewLoader(path).Load(); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	pterm.Success.Printf("%s is valid\n", path)
	return nil
}
