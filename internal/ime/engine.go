package ime

import (
	"fmt"
	"sync"
	"time"

	"khiin/internal/bufmgr"
	"khiin/internal/candidates"
	"khiin/internal/config"
	"khiin/internal/dictionary"
	"khiin/internal/keyconfig"
	"khiin/internal/khin"
	"khiin/internal/logging"
	"khiin/internal/lomaji"
	"khiin/internal/metrics"
	"khiin/internal/segmenter"
	"khiin/internal/store"
	"khiin/internal/syllable"
	"khiin/internal/watcher"
)

// userDictDebounce is how long the user dictionary must be quiet before
// it is reloaded.
const userDictDebounce = 200 * time.Millisecond

// Options supplies optional collaborators to NewEngine.
type Options struct {
	// Store is used instead of opening the configured database. The
	// engine does not close it.
	Store *store.Store

	// Metrics receives engine metrics. If nil, the default registry is
	// used when metrics are enabled and a private one otherwise.
	Metrics *metrics.EngineMetrics

	// CrashHandler records panics raised while handling a request.
	CrashHandler *logging.CrashHandler
}

// Engine owns the conversion components and serializes requests to them.
type Engine struct {
	// watchMu guards the watcher lifecycle and is taken before mu. The
	// watcher goroutine takes mu, so mu is never held while waiting on it.
	watchMu sync.Mutex
	closed  bool

	mu sync.Mutex

	cfg       *config.Config
	store     *store.Store
	ownsStore bool

	keys   *keyconfig.KeyConfig
	parser *syllable.Parser
	dict   *dictionary.Dictionary
	user   *dictionary.UserDictionary
	mgr    *bufmgr.Manager

	watcher *watcher.Watcher
	wg      sync.WaitGroup

	metrics *metrics.EngineMetrics
	crash   *logging.CrashHandler
	log     *logging.Logger
}

// NewEngine builds an engine for cfg. If the lexicon database cannot be
// opened the engine falls back to an empty in-memory store and yields no
// candidates.
func NewEngine(cfg *config.Config, opts Options) (*Engine, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	e := &Engine{
		cfg:     cfg.Clone(),
		metrics: opts.Metrics,
		crash:   opts.CrashHandler,
		log:     logging.Default().WithComponent("ime"),
	}
	if e.metrics == nil {
		registry := metrics.Default()
		if !cfg.Metrics.Enabled {
			registry = metrics.NewRegistry("khiin", "")
		}
		e.metrics = metrics.NewEngineMetrics(registry)
	}
	if e.crash == nil {
		e.crash = logging.DefaultCrashHandler()
	}

	if opts.Store != nil {
		e.store = opts.Store
	} else {
		e.store = e.openStore(cfg.Dictionary.DatabasePath)
		e.ownsStore = true
	}
	if e.store == nil {
		return nil, fmt.Errorf("open fallback store: %w", store.ErrClosed)
	}

	if err := e.build(); err != nil {
		e.closeStore()
		return nil, err
	}
	e.startUserDictWatcher(e.cfg.Dictionary.UserDictionaryPath, e.cfg.Dictionary.WatchUserDictionary)

	return e, nil
}

func (e *Engine) openStore(path string) *store.Store {
	s, err := store.Open(path)
	if err == nil {
		return s
	}

	e.log.Warn("lexicon unavailable, using empty in-memory store", "path", path, "error", err)
	e.metrics.RecordError()
	s, err = store.OpenMemory()
	if err != nil {
		e.log.Error("open in-memory store failed", "error", err)
		return nil
	}
	return s
}

// build creates the key config, parser, dictionary and buffer manager
// from e.cfg. The caller holds e.mu or has exclusive access.
func (e *Engine) build() error {
	keys, err := keyconfig.FromLayout(e.cfg.Layout())
	if err != nil {
		e.log.Warn("invalid key bindings, using defaults", "error", err)
	}

	parser := syllable.NewParser(keys, e.cfg.Input.DottedKhin)
	dict, err := dictionary.New(e.store, parser)
	if err != nil {
		return fmt.Errorf("build dictionary: %w", err)
	}

	user, err := e.loadUserDictionary()
	if err != nil {
		e.log.Warn("user dictionary not loaded", "path", e.cfg.Dictionary.UserDictionaryPath, "error", err)
		e.metrics.RecordError()
	}
	dict.SetUserDictionary(user)

	mode, err := bufmgr.ParseInputMode(e.cfg.Input.Mode)
	if err != nil {
		e.log.Warn("invalid input mode, using continuous", "error", err)
	}

	finder := candidates.New(dict, segmenter.New(dict))
	e.keys = keys
	e.parser = parser
	e.dict = dict
	e.user = user
	e.mgr = bufmgr.New(finder, khin.New(parser, e.cfg.Input.Autokhin), dict, mode)

	e.metrics.SetDictionarySize(dict.InputCount(), user.Len())
	e.log.Info("engine ready",
		"mode", mode.String(),
		"words", dict.InputCount(),
		"user_words", user.Len(),
	)
	return nil
}

func (e *Engine) loadUserDictionary() (*dictionary.UserDictionary, error) {
	path := e.cfg.Dictionary.UserDictionaryPath
	if path == "" {
		return nil, nil
	}
	return dictionary.LoadUserDictionary(path)
}

// startUserDictWatcher watches path for changes. The caller holds
// e.watchMu or has exclusive access.
func (e *Engine) startUserDictWatcher(path string, watch bool) {
	if !watch || path == "" {
		return
	}

	w, err := watcher.New([]string{path}, userDictDebounce)
	if err != nil {
		e.log.Warn("user dictionary watcher unavailable", "error", err)
		return
	}
	if err := w.Start(); err != nil {
		e.log.Warn("user dictionary watcher unavailable", "path", path, "error", err)
		w.Stop()
		return
	}
	e.watcher = w

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		events, errs := w.Events(), w.Errors()
		for events != nil || errs != nil {
			select {
			case ev, ok := <-events:
				if !ok {
					events = nil
					continue
				}
				e.reloadUserDictionary(ev)
			case err, ok := <-errs:
				if !ok {
					errs = nil
					continue
				}
				e.log.Warn("user dictionary watcher error", "error", err)
			}
		}
	}()
}

// stopUserDictWatcher stops the watcher and waits for its goroutine. The
// caller holds e.watchMu but not e.mu.
func (e *Engine) stopUserDictWatcher() {
	if e.watcher == nil {
		return
	}
	e.watcher.Stop()
	e.wg.Wait()
	e.watcher = nil
}

func (e *Engine) reloadUserDictionary(ev watcher.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.user == nil {
		user, err := e.loadUserDictionary()
		if err != nil {
			e.log.Error("reload user dictionary failed", "path", ev.Path, "error", err)
			e.metrics.RecordError()
			return
		}
		e.user = user
		e.dict.SetUserDictionary(user)
	} else if err := e.user.Reload(); err != nil {
		e.log.Error("reload user dictionary failed", "path", ev.Path, "error", err)
		e.metrics.RecordError()
		return
	}

	e.metrics.SetDictionarySize(e.dict.InputCount(), e.user.Len())
	e.log.Info("user dictionary reloaded", "path", ev.Path, "entries", e.user.Len(), "removed", ev.Removed)
}

// Handle runs one request and returns the resulting engine state.
func (e *Engine) Handle(req Request) (*Response, error) {
	if req.Type != CmdSetConfig {
		resp, _, err := e.handle(req)
		return resp, err
	}

	e.watchMu.Lock()
	defer e.watchMu.Unlock()

	resp, restart, err := e.handle(req)
	if err == nil && restart {
		e.restartUserDictWatcher()
	}
	return resp, err
}

// restartUserDictWatcher replaces the watcher after a config change. The
// caller holds e.watchMu.
func (e *Engine) restartUserDictWatcher() {
	e.stopUserDictWatcher()
	if e.closed {
		return
	}

	e.mu.Lock()
	path, watch := e.cfg.Dictionary.UserDictionaryPath, e.cfg.Dictionary.WatchUserDictionary
	e.mu.Unlock()

	e.startUserDictWatcher(path, watch)
}

// handle runs req under e.mu. restart reports that a config change needs
// a new user dictionary watcher.
func (e *Engine) handle(req Request) (resp *Response, restart bool, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.crash.Guard(map[string]string{"command": req.Type.String()})

	timer := e.metrics.StartLookupTimer()
	defer timer.Stop()
	e.metrics.RecordKey(req.Type.String())

	e.log.Debug("handle", "command", req.Type.String(), "special", req.Key.Special.String(), "candidate_id", req.CandidateID)

	resp = &Response{}
	switch req.Type {
	case CmdTestSendKey:
		resp.Consumable = e.testSendKey(req.Key)
		return resp, false, nil
	case CmdSendKey:
		e.sendKey(req.Key, resp)
	case CmdSelectCandidate:
		e.mgr.SelectCandidate(req.CandidateID)
		resp.Consumable = true
	case CmdFocusCandidate:
		e.mgr.FocusCandidate(req.CandidateID)
		resp.Consumable = true
	case CmdReset:
		e.mgr.Clear()
	case CmdCommit:
		e.commit(e.mgr.Commit(), resp)
	case CmdSetConfig:
		if restart, err = e.setConfig(req.Config); err != nil {
			e.metrics.RecordError()
			return nil, false, err
		}
	case CmdListEmojis:
		if err := e.listEmojis(resp); err != nil {
			e.metrics.RecordError()
			return nil, false, err
		}
		return resp, false, nil
	case CmdResetUserData:
		if err := e.store.ClearNGrams(); err != nil {
			e.metrics.RecordError()
			return nil, false, fmt.Errorf("reset user data: %w", err)
		}
		e.log.Info("user data reset")
		return resp, false, nil
	default:
		return nil, false, fmt.Errorf("%w: %v", ErrUnknownCommand, req.Type)
	}

	e.attachState(resp)
	return resp, restart, nil
}

// testSendKey reports whether the key would be consumed. Keys are passed
// through when input is disabled, when a modifier other than Shift is
// held, or when nothing is being composed and the key is not a visible
// character.
func (e *Engine) testSendKey(k Key) bool {
	switch {
	case !e.cfg.Input.Enabled:
		return false
	case !k.onlyShift():
		return false
	case e.mgr.IsEmpty() && !k.isGraphic():
		return false
	}
	return true
}

func (e *Engine) sendKey(k Key, resp *Response) {
	resp.Consumable = true

	switch k.Special {
	case KeyNone:
		if k.isGraphic() {
			e.mgr.Insert(k.Char)
		}
	case KeyRight:
		e.mgr.HandleLeftRight(lomaji.Right)
	case KeyLeft:
		e.mgr.HandleLeftRight(lomaji.Left)
	case KeyTab:
		if k.Modifiers&ModShift != 0 {
			e.mgr.FocusPrevCandidate()
		} else {
			e.mgr.FocusNextCandidate()
		}
	case KeyDown:
		e.mgr.FocusNextCandidate()
	case KeyUp:
		e.mgr.FocusPrevCandidate()
	case KeyEnter:
		if text, ok := e.mgr.HandleSelectOrCommit(); ok {
			e.commit(text, resp)
		}
	case KeyBackspace, KeyDelete, KeySpace:
		if e.mgr.IsEmpty() {
			resp.Consumable = false
			return
		}
		switch k.Special {
		case KeyBackspace:
			e.mgr.Erase(lomaji.Left)
		case KeyDelete:
			e.mgr.Erase(lomaji.Right)
		default:
			e.mgr.HandleSelectOrFocus()
		}
	case KeyEscape:
		e.mgr.Revert()
	default:
		resp.Consumable = !e.mgr.IsEmpty()
	}
}

func (e *Engine) commit(text string, resp *Response) {
	resp.Committed = true
	resp.CommittedText = text
	if text != "" {
		e.metrics.RecordCommit()
		e.log.Debug("committed", "committed", text)
	}
}

func (e *Engine) attachState(resp *Response) {
	resp.Preedit = e.mgr.BuildPreedit()
	resp.Candidates = e.mgr.Candidates()
	resp.EditState = e.mgr.EditState()
	if len(resp.Candidates.Candidates) > 0 {
		e.metrics.RecordLookup()
	}
	e.log.Debug("state", "state", resp.EditState.String(), "preedit", resp.Preedit.Text())
}

func (e *Engine) listEmojis(resp *Response) error {
	emojis, err := e.store.Emojis()
	if err != nil {
		return fmt.Errorf("list emojis: %w", err)
	}

	resp.Candidates.Candidates = make([]bufmgr.Candidate, 0, len(emojis))
	for _, em := range emojis {
		resp.Candidates.Candidates = append(resp.Candidates.Candidates, bufmgr.Candidate{
			ID:    em.Category,
			Value: em.Value,
		})
	}
	return nil
}

// setConfig validates and applies cfg, rebuilding every component. The
// composition in progress is discarded. It reports whether the user
// dictionary watcher must be restarted.
func (e *Engine) setConfig(cfg *config.Config) (bool, error) {
	if cfg == nil {
		return false, nil
	}
	if err := cfg.Validate(); err != nil {
		return false, fmt.Errorf("set config: %w", err)
	}

	old := e.cfg
	e.cfg = cfg.Clone()

	if e.ownsStore && cfg.Dictionary.DatabasePath != old.Dictionary.DatabasePath {
		s := e.openStore(cfg.Dictionary.DatabasePath)
		if s == nil {
			e.cfg = old
			return false, fmt.Errorf("set config: open %s: %w", cfg.Dictionary.DatabasePath, store.ErrClosed)
		}
		e.closeStore()
		e.store = s
	}

	if err := e.build(); err != nil {
		e.cfg = old
		return false, fmt.Errorf("set config: %w", err)
	}

	e.metrics.RecordReload()
	e.log.Info("config applied", "mode", e.cfg.Input.Mode)
	return cfg.Dictionary.UserDictionaryPath != old.Dictionary.UserDictionaryPath ||
		cfg.Dictionary.WatchUserDictionary != old.Dictionary.WatchUserDictionary, nil
}

// SetConfig applies cfg as a CmdSetConfig request would. It suits use as a
// config.Loader change callback.
func (e *Engine) SetConfig(cfg *config.Config) error {
	_, err := e.Handle(Request{Type: CmdSetConfig, Config: cfg})
	return err
}

// Config returns a copy of the active configuration.
func (e *Engine) Config() *config.Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg.Clone()
}

// Metrics returns the engine metrics with the uptime gauge refreshed.
func (e *Engine) Metrics() *metrics.EngineMetrics {
	e.metrics.UpdateUptime()
	return e.metrics
}

// Close stops the user dictionary watcher and closes the store if the
// engine opened it.
func (e *Engine) Close() error {
	e.watchMu.Lock()
	e.closed = true
	e.stopUserDictWatcher()
	e.watchMu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closeStore()
}

func (e *Engine) closeStore() error {
	if !e.ownsStore || e.store == nil {
		return nil
	}
	err := e.store.Close()
	e.store = nil
	return err
}
