package app

import (
	"errors"
	"fmt"
	"strings"

	"cmdk/internal/config"
	"cmdk/internal/provider"
	"cmdk/internal/storage"
)

// replCommands /help 列出的命令 / the commands /help lists.
var replCommands = []string{
	"/clear     clear the current session",
	"/context   show the context document sent with queries",
	"/history   show the session transcript",
	"/settings  open the settings menu",
	"/last      re-insert the last response into the target",
	"/prompts   pick a recent prompt to ask again",
	"/backend   show or switch the backend (/backend codex)",
	"/help      list commands",
	"/quit      exit (also /exit)",
}

func (a *App) printCommands() {
	fmt.Fprintln(a.out, "commands:")
	for _, c := range replCommands {
		fmt.Fprintf(a.out, "  %s\n", c)
	}
}

// handleCommand 执行一条斜杠命令，返回是否应退出循环
// handleCommand runs one slash command and reports whether the loop
// should exit.
func (a *App) handleCommand(input string) (exit bool) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return false
	}
	switch parts[0] {
	case "/quit", "/exit":
		return true
	case "/help":
		a.printCommands()
	case "/clear":
		if err := a.store.Clear(a.identity); err != nil {
			a.printError(err)
			return false
		}
		fmt.Fprintln(a.out, "Session cleared.")
	case "/context":
		if doc := a.assembler.Display(); doc != "" {
			fmt.Fprintln(a.out, doc)
		} else {
			fmt.Fprintln(a.out, "Context is empty (all sections disabled).")
		}
	case "/history":
		a.showHistory()
	case "/settings":
		a.openSettings()
	case "/last":
		a.insertLast()
	case "/prompts":
		return a.runPickedPrompt()
	case "/backend":
		a.switchBackend(parts[1:])
	default:
		fmt.Fprintf(a.out, "Unknown command: %s (try /help)\n", parts[0])
	}
	return false
}

func (a *App) showHistory() {
	transcript, err := a.store.Render(a.identity, a.cfg.Session.MaxTurns)
	if err != nil {
		a.printError(err)
		return
	}
	if transcript == "" {
		fmt.Fprintln(a.out, "No conversation yet.")
		return
	}
	fmt.Fprint(a.out, transcript)
}

func (a *App) openSettings() {
	toggles, kind, saved, err := a.editSettings(a.cfg.Context, a.cfg.Backend.Kind)
	if err != nil {
		a.printError(err)
		return
	}
	if !saved {
		fmt.Fprintln(a.out, "Settings unchanged.")
		return
	}
	if err := config.WriteContextToggles(toggles); err != nil {
		a.printError(err)
		return
	}
	if err := config.WriteBackendKind(kind); err != nil {
		a.printError(err)
		return
	}
	a.cfg.Context = toggles
	a.cfg.Backend.Kind = kind
	a.assembler.Config = toggles
	a.resolver = provider.NewResolver(a.cfg.Backend)
	fmt.Fprintln(a.out, "Settings saved.")
}

func (a *App) insertLast() {
	pr, err := a.store.Pending(a.identity)
	if errors.Is(err, storage.ErrNoPending) {
		fmt.Fprintln(a.out, "No pending result yet.")
		return
	}
	if err != nil {
		a.printError(err)
		return
	}
	if err := a.dispatcher.Insert(pr.Response); err != nil {
		a.printError(err)
		return
	}
	fmt.Fprintln(a.out, "Inserted last result into target pane.")
}

// runPickedPrompt 让用户从最近提示词中挑一条并重新发起交换
// runPickedPrompt lets the user pick a recent prompt and runs it as a
// fresh exchange.
func (a *App) runPickedPrompt() (exit bool) {
	recent := a.prompts.Recent(9)
	if len(recent) == 0 {
		fmt.Fprintln(a.out, "No recent prompts.")
		return false
	}
	choice, err := a.pickPrompt(recent)
	if err != nil {
		a.printError(err)
		return false
	}
	if choice == "" {
		return false
	}
	exit, err = a.runExchange(choice)
	if err != nil {
		a.printError(err)
		return false
	}
	return exit
}

func (a *App) switchBackend(args []string) {
	if len(args) == 0 {
		fmt.Fprintf(a.out, "Backend: %s (kind %s)\n",
			a.resolver.DisplayName(), a.cfg.Backend.Kind)
		return
	}
	kind := strings.ToLower(args[0])
	switch kind {
	case provider.KindAuto, provider.KindClaude, provider.KindCodex,
		provider.KindCustom, provider.KindMock, provider.KindAPI:
	default:
		fmt.Fprintf(a.out, "Unknown backend %q (auto, claude, codex, custom, mock, api)\n", args[0])
		return
	}
	if err := config.WriteBackendKind(kind); err != nil {
		a.printError(err)
		return
	}
	a.cfg.Backend.Kind = kind
	a.resolver = provider.NewResolver(a.cfg.Backend)
	fmt.Fprintf(a.out, "Backend set to %s.\n", a.resolver.DisplayName())
}
