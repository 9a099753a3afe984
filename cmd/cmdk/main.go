// cmdk 终端 AI 命令助手入口：解析旗标、装配协作者并选择运行模式
// cmdk is the terminal AI command assistant. main parses flags, wires
// the collaborators together, and picks a run mode: interactive loop,
// one-shot query, context view, settings, re-insert, or editor bridge.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/term"

	"cmdk/internal/app"
	"cmdk/internal/clipboard"
	"cmdk/internal/config"
	"cmdk/internal/contextmgr"
	"cmdk/internal/dispatch"
	"cmdk/internal/keys"
	"cmdk/internal/logging"
	"cmdk/internal/provider"
	"cmdk/internal/storage"
	"cmdk/internal/target"
)

const version = "0.4.0"

func main() {
	os.Exit(run())
}

func run() int {
	var (
		query         string
		showContext   bool
		openSettings  bool
		insertLast    bool
		editorContext string
		targetPane    string
		showVersion   bool
	)
	flag.StringVar(&query, "q", "", "One-shot query, print the answer and exit")
	flag.StringVar(&query, "query", "", "Alias of -q")
	flag.BoolVar(&showContext, "context", false, "Print the context document and exit")
	flag.BoolVar(&openSettings, "settings", false, "Open the settings menu and exit")
	flag.BoolVar(&insertLast, "insert-last", false, "Re-insert the last response into the target pane and exit")
	flag.StringVar(&editorContext, "editor-context", "", "Path to an editor-written context file")
	flag.StringVar(&targetPane, "target", "", "Explicit tmux pane to control (e.g. %3)")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("cmdk %s\n", version)
		return 0
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		return 1
	}
	if v := strings.TrimSpace(os.Getenv("CMDK_TARGET")); v != "" && targetPane == "" {
		targetPane = v
	}

	log := logging.Open(cfg.LogPath(), cfg.Log.Level)
	defer func() { _ = log.Sync() }()

	store, err := storage.Open(cfg.DBPath(), time.Duration(cfg.Session.StaleAfterSeconds)*time.Second)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open session store failed: %v\n", err)
		return 1
	}
	defer func() { _ = store.Close() }()

	// 中断清理只在进程启动时注册一次，覆盖所有退出路径。中断以零状态
	// 收尾，宿主的快捷键绑定不会把它当成错误。
	// Interrupt cleanup is registered once at process start and covers
	// every exit path. Interrupt finishes with a zero status so the
	// host keybinding never sees it as an error.
	interrupted := make(chan os.Signal, 1)
	signal.Notify(interrupted, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-interrupted
		fmt.Fprintln(os.Stderr)
		_ = store.Close()
		_ = log.Sync()
		os.Exit(0)
	}()

	// 懒迁移旧版 Markdown 会话，再顺手清理过期行。两者都是尽力而为。
	// Lazily migrate legacy markdown transcripts, then sweep stale
	// rows. Both are best effort.
	if n, merr := storage.ImportLegacy(cfg.Storage.BaseDir, store); merr != nil {
		log.Warn("legacy import failed", zap.Error(merr))
	} else if n > 0 {
		log.Info("imported legacy sessions", zap.Int("count", n))
	}
	if n, serr := store.SweepStale(); serr != nil {
		log.Warn("stale sweep failed", zap.Error(serr))
	} else if n > 0 {
		log.Info("swept stale sessions", zap.Int("count", n))
	}

	pane, identity := resolveTarget(targetPane)
	prompts := storage.NewPromptHistory(cfg.HistoryPath())

	assembler := newAssembler(cfg, pane)
	assembler.Recent = prompts.Recent
	resolver := provider.NewResolver(cfg.Backend)
	dispatcher := newDispatcher(cfg, pane)

	if query == "" && flag.NArg() > 0 {
		query = strings.TrimSpace(strings.Join(flag.Args(), " "))
	}

	switch {
	case showContext:
		return runContextView(assembler)
	case openSettings:
		return runSettingsMode(cfg)
	case insertLast:
		return runInsertLast(store, identity, dispatcher)
	case editorContext != "":
		return runEditorMode(editorContext, query, cfg, assembler, resolver, store, identity, dispatcher, log)
	}

	if piped, ok := pipedQuery(query); ok {
		query = piped
	}
	if query != "" {
		return runDirectQuery(query, cfg, assembler, resolver, store, identity, log)
	}

	a := app.New(app.Options{
		Config:     cfg,
		Identity:   identity,
		Store:      store,
		Prompts:    prompts,
		Assembler:  assembler,
		Resolver:   resolver,
		Dispatcher: dispatcher,
		Log:        log,
	})
	defer func() { _ = a.Close() }()

	if err := a.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// resolveTarget 选定受控面板与会话身份。显式旗标优先，其次当前 tmux
// 面板，都没有时退回目录派生身份（此时无可注入的面板）。
// resolveTarget picks the controlled pane and the session identity:
// the explicit flag first, then the surrounding tmux pane, and as a
// last resort the directory-derived identity with no injectable pane.
func resolveTarget(flagPane string) (*target.Pane, string) {
	if flagPane != "" {
		p := target.NewPane(flagPane)
		return p, p.ID()
	}
	if p := target.Current(); p != nil {
		return p, p.ID()
	}
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "unknown"
	}
	return nil, target.FallbackIdentity(cwd)
}

func newAssembler(cfg config.Config, pane *target.Pane) *contextmgr.Assembler {
	if pane != nil {
		return contextmgr.New(cfg.Context, pane)
	}
	return contextmgr.New(cfg.Context, target.Local{})
}

func newDispatcher(cfg config.Config, pane *target.Pane) *dispatch.Dispatcher {
	var surface keys.Sender
	var buf clipboard.BufferTarget
	if pane != nil {
		surface = pane
		buf = pane
	}
	return dispatch.New(surface, clipboard.NewChain(cfg.Clipboard.Order, buf))
}

// pipedQuery 把管道输入当作一次性查询文本，除非旗标已给出查询
// pipedQuery treats piped stdin as one-shot query text unless a query
// flag was already given.
func pipedQuery(flagQuery string) (string, bool) {
	if flagQuery != "" || term.IsTerminal(int(os.Stdin.Fd())) {
		return "", false
	}
	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", false
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return "", false
	}
	return text, true
}
