package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/google/uuid"

	"cmdk/internal/config"
	"cmdk/internal/contextmgr"
	"cmdk/internal/dispatch"
	"cmdk/internal/editor"
	"cmdk/internal/prompt"
	"cmdk/internal/provider"
	"cmdk/internal/storage"
	"cmdk/internal/tui"
)

// runContextView 对应 -context 旗标，打印将随查询发送的上下文预览
// runContextView backs the -context flag: print the preview of what a
// query would carry, then exit.
func runContextView(assembler *contextmgr.Assembler) int {
	doc := assembler.Display()
	if doc == "" {
		fmt.Println("Context is empty (all sections disabled).")
		return 0
	}
	fmt.Println(doc)
	return 0
}

// runSettingsMode 对应 -settings 旗标，改动立即写回全局配置
// runSettingsMode backs the -settings flag; changes persist to the
// global config immediately.
func runSettingsMode(cfg config.Config) int {
	toggles, kind, saved, err := tui.RunSettings(cfg.Context, cfg.Backend.Kind)
	if err != nil {
		fmt.Fprintf(os.Stderr, "settings: %v\n", err)
		return 1
	}
	if !saved {
		fmt.Println("Settings unchanged.")
		return 0
	}
	if err := config.WriteContextToggles(toggles); err != nil {
		fmt.Fprintf(os.Stderr, "save settings: %v\n", err)
		return 1
	}
	if err := config.WriteBackendKind(kind); err != nil {
		fmt.Fprintf(os.Stderr, "save settings: %v\n", err)
		return 1
	}
	fmt.Println("Settings saved.")
	return 0
}

// runInsertLast 对应 -insert-last 旗标，是宿主快捷键的入口：把上一条
// 回答重新注入目标面板，不触发新交换。
// runInsertLast backs the -insert-last flag, the host keybinding entry
// point: re-inject the previous answer into the target pane without a
// new exchange.
func runInsertLast(store *storage.Store, identity string, dispatcher *dispatch.Dispatcher) int {
	pr, err := store.Pending(identity)
	if errors.Is(err, storage.ErrNoPending) {
		fmt.Println("No pending result yet.")
		return 0
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	if err := dispatcher.Insert(pr.Response); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// runDirectQuery 对应 -q 与管道输入：只带上下文、不带会话历史的一次
// 性查询，回答打印到标准输出，会话保持不变，但仍保存 Pending Result。
// runDirectQuery backs -q and piped stdin: one query with context but
// without session history, answer on stdout. The session is untouched
// but the Pending Result is still saved for a later -insert-last.
func runDirectQuery(question string, cfg config.Config, assembler *contextmgr.Assembler,
	resolver *provider.Resolver, store *storage.Store, identity string, log *zap.Logger) int {

	answer, backendName, err := invokeOnce(cfg, assembler, resolver, question, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	log.Info("direct query complete",
		zap.String("backend", backendName),
		zap.Int("answer_bytes", len(answer)))

	fmt.Println(answer)
	if err := store.SavePending(identity, storage.PendingResult{
		ExchangeID: uuid.NewString(),
		Response:   answer,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	return 0
}

// runEditorMode 对应 -editor-context：解析插件写下的上下文文件，跑一轮
// 交换，再把回答与所选动作写回 sidecar 文件供插件消费。
// runEditorMode backs -editor-context: parse the plugin-written
// context file, run one exchange, and write the answer plus the chosen
// action back to the sidecar files the plugin polls.
func runEditorMode(contextFile, question string, cfg config.Config, assembler *contextmgr.Assembler,
	resolver *provider.Resolver, store *storage.Store, identity string,
	dispatcher *dispatch.Dispatcher, log *zap.Logger) int {

	ec, err := editor.Load(contextFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	if question == "" {
		fmt.Fprintln(os.Stderr, "error: no query given (use -q with -editor-context)")
		return 1
	}

	answer, backendName, err := invokeOnce(cfg, assembler, resolver, question, ec.Markdown())
	if err != nil {
		// 插件在轮询 sidecar 文件，失败也要给它一个结束信号
		// The plugin is polling the sidecar files; a failure still owes
		// it a completion signal.
		_ = editor.WriteResult(contextFile, "cancel", "")
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	log.Info("editor exchange complete",
		zap.String("backend", backendName),
		zap.Int("answer_bytes", len(answer)))

	if err := store.SavePending(identity, storage.PendingResult{
		ExchangeID: uuid.NewString(),
		Response:   answer,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	action := editorAction(backendName, answer, dispatcher)
	if err := editor.WriteResult(contextFile, action, answer); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// editorAction 在有终端时打开动作菜单并执行本地动作（复制在助手侧完
// 成，插入交给插件），无终端时默认 insert。
// editorAction opens the action menu when a terminal is attached and
// performs the local side of the action (copy happens here, insert is
// the plugin's job). Without a terminal it defaults to insert.
func editorAction(backendName, answer string, dispatcher *dispatch.Dispatcher) string {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "insert"
	}
	choice, err := tui.RunActionMenu(backendName, answer)
	if err != nil {
		return "cancel"
	}
	switch choice {
	case dispatch.ActionInsert:
		return "insert"
	case dispatch.ActionCopy:
		if _, cerr := dispatcher.Copy(answer); cerr != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", cerr)
			return "cancel"
		}
		return "copy"
	}
	return "cancel"
}

// invokeOnce 组装并执行一次不带会话历史的交换
// invokeOnce assembles and runs one history-less exchange.
func invokeOnce(cfg config.Config, assembler *contextmgr.Assembler,
	resolver *provider.Resolver, question, extraContext string) (answer, backendName string, err error) {

	contextDoc := assembler.Assemble()
	if extraContext != "" {
		contextDoc += "\n" + extraContext
	}
	full := prompt.Build(prompt.Instructions, contextDoc, "", question)

	backend, err := resolver.Resolve()
	if err != nil {
		return "", "", err
	}

	ctx := context.Background()
	if secs := cfg.Backend.TimeoutSeconds; secs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(secs)*time.Second)
		defer cancel()
	}

	answer, err = backend.Invoke(ctx, full)
	if err != nil {
		return "", backend.Name(), err
	}
	return answer, backend.Name(), nil
}
