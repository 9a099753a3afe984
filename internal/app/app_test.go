package app

import (
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/chzyer/readline"
	"go.uber.org/zap"

	"cmdk/internal/config"
	"cmdk/internal/contextmgr"
	"cmdk/internal/dispatch"
	"cmdk/internal/provider"
	"cmdk/internal/storage"
)

type inputStep struct {
	line string
	err  error
}

// scriptedInput 按脚本回放输入行，耗尽后返回 EOF
// scriptedInput replays input lines from a script, then EOF.
type scriptedInput struct {
	steps []inputStep
	pos   int
}

func (s *scriptedInput) ReadLine(string) (string, error) {
	if s.pos >= len(s.steps) {
		return "", io.EOF
	}
	st := s.steps[s.pos]
	s.pos++
	return st.line, st.err
}

func (s *scriptedInput) Close() error { return nil }

type fakeCopier struct {
	copied []string
	err    error
}

func (f *fakeCopier) Copy(text string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.copied = append(f.copied, text)
	return "fake", nil
}

type recordingSurface struct {
	ops []string
	err error
}

func (r *recordingSurface) SendLiteral(text string) error {
	if r.err != nil {
		return r.err
	}
	r.ops = append(r.ops, "lit:"+text)
	return nil
}

func (r *recordingSurface) SendKey(name string) error {
	if r.err != nil {
		return r.err
	}
	r.ops = append(r.ops, "key:"+name)
	return nil
}

type testEnv struct {
	app     *App
	out     *strings.Builder
	store   *storage.Store
	copier  *fakeCopier
	surface *recordingSurface
}

// newTestEnv 构造一个全注入、不碰宿主环境的 App
// newTestEnv builds a fully injected App that never touches the host
// environment.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv("CMDK_DIR", t.TempDir())
	t.Setenv("CMDK_BACKEND", "")
	t.Setenv("CMDK_MODEL", "")
	t.Setenv("CMDK_BASE_URL", "")
	t.Setenv("CMDK_LOG_LEVEL", "")

	dir := t.TempDir()
	st, err := storage.Open(filepath.Join(dir, "cmdk.db"), time.Hour)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	cfg := config.Default()
	cfg.Backend.Kind = provider.KindMock
	cfg.Storage.BaseDir = dir
	cfg.Context.SetAll(false)

	out := &strings.Builder{}
	copier := &fakeCopier{}
	surface := &recordingSurface{}

	a := New(Options{
		Config:     cfg,
		Identity:   "test-target",
		Store:      st,
		Prompts:    storage.NewPromptHistory(filepath.Join(dir, "prompt_history")),
		Assembler:  contextmgr.New(cfg.Context, nil),
		Resolver:   provider.NewResolver(cfg.Backend),
		Dispatcher: dispatch.New(surface, copier),
		Log:        zap.NewNop(),
		Input:      &scriptedInput{},
		Output:     out,
	})
	a.interactive = true
	a.reloadConfig = func() (config.Config, error) { return cfg, nil }
	a.pickAction = func(string, string) (dispatch.Action, error) { return dispatch.ActionFollowUp, nil }
	a.pickPrompt = func([]string) (string, error) { return "", nil }
	a.editSettings = func(tg config.ContextConfig, b string) (config.ContextConfig, string, bool, error) {
		return tg, b, false, nil
	}
	return &testEnv{app: a, out: out, store: st, copier: copier, surface: surface}
}

func TestNewSharesPromptHistoryFile(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.BaseDir = t.TempDir()

	a := New(Options{Config: cfg})
	defer a.Close()

	// 行编辑器与提示词历史共用同一个文件
	// The line editor persists into the same file the prompt history
	// picker reads from.
	rl, ok := a.in.(*readlineInput)
	if !ok {
		t.Skip("line editor unavailable in this environment")
	}
	if got := rl.instance.Config.HistoryFile; got != cfg.HistoryPath() {
		t.Fatalf("history file = %q, want %q", got, cfg.HistoryPath())
	}
}

func TestRunHelpThenQuit(t *testing.T) {
	env := newTestEnv(t)
	env.app.in = &scriptedInput{steps: []inputStep{{line: "/help"}, {line: "/quit"}}}

	if err := env.app.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(env.out.String(), "commands:") {
		t.Fatalf("missing help output: %q", env.out.String())
	}
}

func TestRunInterruptExitsClean(t *testing.T) {
	env := newTestEnv(t)
	env.app.in = &scriptedInput{steps: []inputStep{{err: readline.ErrInterrupt}}}

	if err := env.app.Run(); err != nil {
		t.Fatalf("interrupt should exit clean, got %v", err)
	}
}

func TestRunEOFExitsClean(t *testing.T) {
	env := newTestEnv(t)
	if err := env.app.Run(); err != nil {
		t.Fatalf("eof should exit clean, got %v", err)
	}
}

func TestRunEmptyInputReprompts(t *testing.T) {
	env := newTestEnv(t)
	env.app.in = &scriptedInput{steps: []inputStep{{line: "   "}, {line: "/quit"}}}

	if err := env.app.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if n, _ := env.store.TurnCount("test-target"); n != 0 {
		t.Fatalf("turns = %d, want 0 for empty input", n)
	}
}

func TestRunResumedBanner(t *testing.T) {
	env := newTestEnv(t)
	if err := env.store.AppendTurn("test-target", "hi", "hello"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := env.app.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(env.out.String(), "Continuing conversation (1 previous turns)") {
		t.Fatalf("missing continuity banner: %q", env.out.String())
	}
}

func TestExchangePersistsTurnAndPending(t *testing.T) {
	env := newTestEnv(t)

	exit, err := env.app.runExchange("list files")
	if err != nil || exit {
		t.Fatalf("exchange: exit=%v err=%v", exit, err)
	}
	if n, _ := env.store.TurnCount("test-target"); n != 1 {
		t.Fatalf("turns = %d, want 1", n)
	}
	pr, err := env.store.Pending("test-target")
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if !strings.Contains(pr.Response, "Mock response for:") {
		t.Fatalf("unexpected pending response: %q", pr.Response)
	}
	if pr.ExchangeID == "" {
		t.Fatal("missing exchange id")
	}
	if got := env.app.prompts.Recent(5); len(got) != 1 || got[0] != "list files" {
		t.Fatalf("recent prompts = %v", got)
	}
}

func TestExchangeFailureNeverPersists(t *testing.T) {
	env := newTestEnv(t)
	cfg := env.app.cfg
	cfg.Backend.Kind = provider.KindCustom
	cfg.Backend.CustomCommand = "false"
	env.app.reloadConfig = func() (config.Config, error) { return cfg, nil }

	if _, err := env.app.runExchange("doomed"); err == nil {
		t.Fatal("expected invocation error")
	}
	if n, _ := env.store.TurnCount("test-target"); n != 0 {
		t.Fatalf("turns = %d, want 0 after failure", n)
	}
	if _, err := env.store.Pending("test-target"); !errors.Is(err, storage.ErrNoPending) {
		t.Fatalf("pending after failure: %v", err)
	}
}

func TestExchangeUnavailableBackend(t *testing.T) {
	env := newTestEnv(t)
	cfg := env.app.cfg
	cfg.Backend.Kind = provider.KindCustom
	cfg.Backend.CustomCommand = ""
	env.app.reloadConfig = func() (config.Config, error) { return cfg, nil }

	if _, err := env.app.runExchange("anything"); !errors.Is(err, provider.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestActionLoopCopyThenQuit(t *testing.T) {
	env := newTestEnv(t)
	actions := []dispatch.Action{dispatch.ActionCopy, dispatch.ActionQuit}
	env.app.pickAction = func(string, string) (dispatch.Action, error) {
		next := actions[0]
		actions = actions[1:]
		return next, nil
	}

	exit, err := env.app.runExchange("list files")
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if !exit {
		t.Fatal("expected exit after quit action")
	}
	if len(env.copier.copied) != 1 {
		t.Fatalf("copied %d times, want 1", len(env.copier.copied))
	}
	if !strings.Contains(env.out.String(), "Copied via fake.") {
		t.Fatalf("missing copy confirmation: %q", env.out.String())
	}
}

func TestActionLoopInsertSendsLiteral(t *testing.T) {
	env := newTestEnv(t)
	actions := []dispatch.Action{dispatch.ActionInsert, dispatch.ActionFollowUp}
	env.app.pickAction = func(string, string) (dispatch.Action, error) {
		next := actions[0]
		actions = actions[1:]
		return next, nil
	}

	exit, err := env.app.runExchange("undo last commit")
	if err != nil || exit {
		t.Fatalf("exchange: exit=%v err=%v", exit, err)
	}
	if len(env.surface.ops) != 1 || !strings.HasPrefix(env.surface.ops[0], "lit:") {
		t.Fatalf("surface ops = %v, want one literal send", env.surface.ops)
	}
}

func TestActionLoopInsertFailureRetriesMenu(t *testing.T) {
	env := newTestEnv(t)
	env.app.dispatcher = dispatch.New(nil, env.copier)
	actions := []dispatch.Action{dispatch.ActionInsert, dispatch.ActionCopy, dispatch.ActionFollowUp}
	env.app.pickAction = func(string, string) (dispatch.Action, error) {
		next := actions[0]
		actions = actions[1:]
		return next, nil
	}

	exit, err := env.app.runExchange("x")
	if err != nil || exit {
		t.Fatalf("exchange: exit=%v err=%v", exit, err)
	}
	if !strings.Contains(env.out.String(), "no target pane") {
		t.Fatalf("missing unreachable report: %q", env.out.String())
	}
	if len(env.copier.copied) != 1 {
		t.Fatal("copy after failed insert should have run")
	}
}

func TestActionLoopNewSessionClears(t *testing.T) {
	env := newTestEnv(t)
	env.app.pickAction = func(string, string) (dispatch.Action, error) {
		return dispatch.ActionNewSession, nil
	}

	exit, err := env.app.runExchange("first question")
	if err != nil || exit {
		t.Fatalf("exchange: exit=%v err=%v", exit, err)
	}
	if n, _ := env.store.TurnCount("test-target"); n != 0 {
		t.Fatalf("turns = %d, want 0 after new session", n)
	}
	// Pending Result 不随新会话清掉 / the Pending Result survives new-session
	if _, err := env.store.Pending("test-target"); err != nil {
		t.Fatalf("pending should survive new session: %v", err)
	}
}

func TestExchangePipeModeSkipsMenu(t *testing.T) {
	env := newTestEnv(t)
	env.app.interactive = false
	env.app.pickAction = func(string, string) (dispatch.Action, error) {
		t.Fatal("menu must not open in pipe mode")
		return dispatch.ActionQuit, nil
	}

	exit, err := env.app.runExchange("list files")
	if err != nil || exit {
		t.Fatalf("exchange: exit=%v err=%v", exit, err)
	}
	if !strings.Contains(env.out.String(), "Mock response for:") {
		t.Fatalf("answer not printed: %q", env.out.String())
	}
}
