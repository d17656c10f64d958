package ime

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"khiin/internal/bufmgr"
	"khiin/internal/config"
	"khiin/internal/metrics"
	"khiin/internal/store"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Dictionary.DatabasePath = filepath.Join(dir, "khiin.db")
	cfg.Dictionary.UserDictionaryPath = filepath.Join(dir, "userdict.txt")
	cfg.Dictionary.WatchUserDictionary = false
	return cfg
}

func newTestEngine(t *testing.T, cfg *config.Config) *Engine {
	t.Helper()
	s, err := store.OpenDemo()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	e, err := NewEngine(cfg, Options{
		Store:   s,
		Metrics: metrics.NewEngineMetrics(metrics.NewRegistry("khiin", "")),
	})
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func send(t *testing.T, e *Engine, k Key) *Response {
	t.Helper()
	resp, err := e.Handle(Request{Type: CmdSendKey, Key: k})
	require.NoError(t, err)
	return resp
}

func sendString(t *testing.T, e *Engine, s string) *Response {
	t.Helper()
	var resp *Response
	for _, r := range s {
		resp = send(t, e, NewKey(r))
	}
	return resp
}

func testKey(t *testing.T, e *Engine, k Key) bool {
	t.Helper()
	resp, err := e.Handle(Request{Type: CmdTestSendKey, Key: k})
	require.NoError(t, err)
	return resp.Consumable
}

func values(l bufmgr.CandidateList) []string {
	out := make([]string, len(l.Candidates))
	for i, c := range l.Candidates {
		out[i] = c.Value
	}
	return out
}

func TestTestSendKey(t *testing.T) {
	e := newTestEngine(t, testConfig(t))

	assert.True(t, testKey(t, e, NewKey('a')))
	assert.True(t, testKey(t, e, NewKey('A').WithModifiers(ModShift)))
	assert.False(t, testKey(t, e, NewKey(' ')))
	assert.False(t, testKey(t, e, NewSpecialKey(KeyEnter)))
	assert.False(t, testKey(t, e, NewKey('a').WithModifiers(ModControl)))
	assert.False(t, testKey(t, e, NewKey('a').WithModifiers(ModShift|ModAlt)))

	sendString(t, e, "a")
	assert.True(t, testKey(t, e, NewKey(' ')))
	assert.True(t, testKey(t, e, NewSpecialKey(KeyBackspace)))
	assert.False(t, testKey(t, e, NewKey('a').WithModifiers(ModMeta)))
}

func TestTestSendKeyDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Input.Enabled = false
	e := newTestEngine(t, cfg)

	assert.False(t, testKey(t, e, NewKey('a')))
}

func TestTestSendKeyLeavesStateAlone(t *testing.T) {
	e := newTestEngine(t, testConfig(t))

	resp, err := e.Handle(Request{Type: CmdTestSendKey, Key: NewKey('e')})
	require.NoError(t, err)
	assert.Empty(t, resp.Preedit.Segments)

	resp = send(t, e, NewSpecialKey(KeyEscape))
	assert.Equal(t, bufmgr.Empty, resp.EditState)
}

func TestTypeSelectCommit(t *testing.T) {
	e := newTestEngine(t, testConfig(t))

	resp := sendString(t, e, "ebo")
	assert.True(t, resp.Consumable)
	assert.Equal(t, bufmgr.Composing, resp.EditState)
	assert.Equal(t, "e bo", resp.Preedit.Text())
	assert.Equal(t, []string{"个無", "个", "兮", "鞋", "ê"}, values(resp.Candidates))

	resp = send(t, e, NewKey(' '))
	assert.True(t, resp.Consumable)
	assert.Equal(t, bufmgr.Converted, resp.EditState)
	assert.Equal(t, "个無", resp.Preedit.Text())
	assert.Empty(t, resp.Candidates.Candidates)
	assert.False(t, resp.Committed)

	resp = send(t, e, NewKey('\r'))
	assert.True(t, resp.Consumable)
	assert.True(t, resp.Committed)
	assert.Equal(t, "个無", resp.CommittedText)
	assert.Equal(t, bufmgr.Empty, resp.EditState)
	assert.Empty(t, resp.Preedit.Segments)

	assert.Equal(t, uint64(1), e.Metrics().CommitsTotal.Value())
}

func TestEnterWhileComposingCommits(t *testing.T) {
	e := newTestEngine(t, testConfig(t))
	sendString(t, e, "goali")

	resp := send(t, e, NewSpecialKey(KeyEnter))
	assert.True(t, resp.Committed)
	assert.Equal(t, "goa li", resp.CommittedText)
}

func TestEmptyBufferKeysPassThrough(t *testing.T) {
	e := newTestEngine(t, testConfig(t))

	for _, k := range []SpecialKey{KeyBackspace, KeyDelete, KeySpace} {
		resp := send(t, e, NewSpecialKey(k))
		assert.False(t, resp.Consumable, k.String())
		assert.Equal(t, bufmgr.Empty, resp.EditState, k.String())
	}
}

func TestBackspace(t *testing.T) {
	e := newTestEngine(t, testConfig(t))
	sendString(t, e, "eb")

	resp := send(t, e, NewKey('\b'))
	assert.True(t, resp.Consumable)
	assert.Equal(t, "e", resp.Preedit.Text())

	resp = send(t, e, NewKey('\b'))
	assert.Equal(t, bufmgr.Empty, resp.EditState)
	assert.Empty(t, resp.Preedit.Segments)
}

func TestEscapeReverts(t *testing.T) {
	e := newTestEngine(t, testConfig(t))
	sendString(t, e, "ebo")
	send(t, e, NewKey(' '))

	resp := send(t, e, NewSpecialKey(KeyEscape))
	assert.Equal(t, bufmgr.Composing, resp.EditState)
	assert.Equal(t, "e 無", resp.Preedit.Text())
}

func TestFocusAndSelectCandidate(t *testing.T) {
	e := newTestEngine(t, testConfig(t))
	sendString(t, e, "e")

	resp := send(t, e, NewSpecialKey(KeyDown))
	assert.Equal(t, bufmgr.Selecting, resp.EditState)
	assert.Equal(t, 0, resp.Candidates.Focused)

	resp = send(t, e, NewSpecialKey(KeyTab).WithModifiers(ModShift))
	assert.Equal(t, 3, resp.Candidates.Focused)
	assert.Equal(t, "ê", resp.Preedit.Text())

	resp, err := e.Handle(Request{Type: CmdFocusCandidate, CandidateID: 2})
	require.NoError(t, err)
	assert.Equal(t, bufmgr.Selecting, resp.EditState)
	assert.Equal(t, 2, resp.Candidates.Focused)
	assert.Equal(t, "鞋", resp.Preedit.Text())

	resp, err = e.Handle(Request{Type: CmdSelectCandidate, CandidateID: 1})
	require.NoError(t, err)
	assert.Equal(t, bufmgr.Converted, resp.EditState)
	assert.Equal(t, "兮", resp.Preedit.Text())

	resp, err = e.Handle(Request{Type: CmdCommit})
	require.NoError(t, err)
	assert.True(t, resp.Committed)
	assert.Equal(t, "兮", resp.CommittedText)
}

func TestReset(t *testing.T) {
	e := newTestEngine(t, testConfig(t))
	sendString(t, e, "goa")

	resp, err := e.Handle(Request{Type: CmdReset})
	require.NoError(t, err)
	assert.False(t, resp.Committed)
	assert.Equal(t, bufmgr.Empty, resp.EditState)
	assert.Empty(t, resp.Preedit.Segments)
}

func TestSetConfig(t *testing.T) {
	cfg := testConfig(t)
	e := newTestEngine(t, cfg)
	sendString(t, e, "goali")

	next := cfg.Clone()
	next.Input.Mode = "basic"
	resp, err := e.Handle(Request{Type: CmdSetConfig, Config: next})
	require.NoError(t, err)
	assert.Equal(t, bufmgr.Empty, resp.EditState)
	assert.Equal(t, "basic", e.Config().Input.Mode)
	assert.Equal(t, uint64(1), e.Metrics().ConfigReloadsTotal.Value())

	resp = sendString(t, e, "goali")
	assert.Equal(t, []string{"我", "góa"}, values(resp.Candidates))
}

func TestSetConfigRejectsInvalid(t *testing.T) {
	cfg := testConfig(t)
	e := newTestEngine(t, cfg)

	bad := cfg.Clone()
	bad.Input.Mode = "nonsense"
	_, err := e.Handle(Request{Type: CmdSetConfig, Config: bad})
	require.ErrorIs(t, err, config.ErrInvalid)
	assert.Equal(t, "continuous", e.Config().Input.Mode)

	require.NoError(t, e.SetConfig(nil))
}

func TestListEmojis(t *testing.T) {
	e := newTestEngine(t, testConfig(t))

	resp, err := e.Handle(Request{Type: CmdListEmojis})
	require.NoError(t, err)
	require.Len(t, resp.Candidates.Candidates, 10)
	assert.Equal(t, bufmgr.Candidate{ID: 1, Value: "😀"}, resp.Candidates.Candidates[0])
}

func TestResetUserData(t *testing.T) {
	s, err := store.OpenDemo()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	e, err := NewEngine(testConfig(t), Options{
		Store:   s,
		Metrics: metrics.NewEngineMetrics(metrics.NewRegistry("khiin", "")),
	})
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })

	sendString(t, e, "ebo")
	send(t, e, NewKey(' '))
	send(t, e, NewKey('\r'))

	bi, err := s.BigramCounts("个", []string{"無"})
	require.NoError(t, err)
	require.Len(t, bi, 1)

	_, err = e.Handle(Request{Type: CmdResetUserData})
	require.NoError(t, err)

	bi, err = s.BigramCounts("个", []string{"無"})
	require.NoError(t, err)
	assert.Empty(t, bi)
}

func TestUnknownCommand(t *testing.T) {
	e := newTestEngine(t, testConfig(t))

	_, err := e.Handle(Request{Type: CommandType(99)})
	require.ErrorIs(t, err, ErrUnknownCommand)
}

func TestMissingDatabaseFallsBack(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0600))

	cfg := testConfig(t)
	cfg.Dictionary.DatabasePath = filepath.Join(blocker, "khiin.db")

	e, err := NewEngine(cfg, Options{Metrics: metrics.NewEngineMetrics(metrics.NewRegistry("khiin", ""))})
	require.NoError(t, err)
	defer e.Close()

	resp := sendString(t, e, "goa")
	assert.True(t, resp.Consumable)
	assert.NotContains(t, values(resp.Candidates), "我")
	assert.Equal(t, uint64(1), e.Metrics().ErrorsTotal.Value())
}

func TestOpensConfiguredDatabase(t *testing.T) {
	cfg := testConfig(t)
	s, err := store.Open(cfg.Dictionary.DatabasePath)
	require.NoError(t, err)
	require.NoError(t, store.SeedDemo(s))
	require.NoError(t, s.Close())

	e, err := NewEngine(cfg, Options{Metrics: metrics.NewEngineMetrics(metrics.NewRegistry("khiin", ""))})
	require.NoError(t, err)

	resp := sendString(t, e, "e")
	assert.Equal(t, "个", resp.Candidates.Candidates[0].Value)
	require.NoError(t, e.Close())
}

func TestUserDictionaryReload(t *testing.T) {
	cfg := testConfig(t)
	cfg.Dictionary.WatchUserDictionary = true
	require.NoError(t, os.WriteFile(cfg.Dictionary.UserDictionaryPath, []byte("hoo 好\n"), 0600))

	e := newTestEngine(t, cfg)
	m := e.Metrics()
	assert.Equal(t, int64(1), m.UserDictWords.Value())

	require.NoError(t, os.WriteFile(cfg.Dictionary.UserDictionaryPath, []byte("hoo 好\nbo 無\n"), 0600))

	require.Eventually(t, func() bool {
		return m.UserDictWords.Value() == 2
	}, 5*time.Second, 50*time.Millisecond)
}

func TestSetConfigWatcherToggleConcurrent(t *testing.T) {
	cfg := testConfig(t)
	cfg.Dictionary.WatchUserDictionary = true
	require.NoError(t, os.WriteFile(cfg.Dictionary.UserDictionaryPath, []byte("hoo 好\n"), 0600))

	e := newTestEngine(t, cfg)

	done := make(chan struct{})
	go func() {
		defer close(done)
		var wg sync.WaitGroup
		for i := 0; i < 4; i++ {
			i := i
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 10; j++ {
					next := e.Config()
					next.Dictionary.WatchUserDictionary = (i+j)%2 == 0
					assert.NoError(t, e.SetConfig(next))
				}
			}()
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := 0; k < 20; k++ {
				_, err := e.Handle(Request{Type: CmdSendKey, Key: Key{Char: 'a'}})
				assert.NoError(t, err)
				_, err = e.Handle(Request{Type: CmdReset})
				assert.NoError(t, err)
			}
		}()
		wg.Wait()
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("SetConfig and Handle deadlocked")
	}

	next := e.Config()
	next.Dictionary.WatchUserDictionary = true
	require.NoError(t, e.SetConfig(next))

	m := e.Metrics()
	require.NoError(t, os.WriteFile(cfg.Dictionary.UserDictionaryPath, []byte("hoo 好\nbo 無\n"), 0600))
	require.Eventually(t, func() bool {
		return m.UserDictWords.Value() == 2
	}, 5*time.Second, 50*time.Millisecond)
}

func TestCloseStopsWatcherForGood(t *testing.T) {
	cfg := testConfig(t)
	cfg.Dictionary.WatchUserDictionary = true
	require.NoError(t, os.WriteFile(cfg.Dictionary.UserDictionaryPath, []byte("hoo 好\n"), 0600))

	e := newTestEngine(t, cfg)

	closed := make(chan error, 1)
	go func() { closed <- e.Close() }()
	for i := 0; i < 5; i++ {
		next := e.Config()
		next.Dictionary.WatchUserDictionary = i%2 == 1
		_ = e.SetConfig(next)
	}
	require.NoError(t, <-closed)

	// A config change after Close must not start a new watcher.
	next := e.Config()
	next.Dictionary.WatchUserDictionary = false
	require.NoError(t, e.SetConfig(next))
	next.Dictionary.WatchUserDictionary = true
	require.NoError(t, e.SetConfig(next))

	e.watchMu.Lock()
	defer e.watchMu.Unlock()
	assert.Nil(t, e.watcher)
}
