// Package app 驱动交互主循环：读输入、跑交换、落动作
// Package app drives the interactive loop: read a request, run the
// exchange against the backend, then land the chosen action.
package app

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/term"

	"cmdk/internal/config"
	"cmdk/internal/contextmgr"
	"cmdk/internal/dispatch"
	"cmdk/internal/provider"
	"cmdk/internal/storage"
	"cmdk/internal/tui"
)

// ANSI colors for plain loop output
const (
	ansiReset = "\x1b[0m"
	ansiRed   = "\x1b[31m"
	ansiDim   = "\x1b[90m"
)

// App 汇集一次交互会话需要的全部协作者。函数字段默认为真实实现，
// 测试中可替换。
// App gathers every collaborator one interactive session needs. The
// function fields default to the real implementations and are swapped
// out in tests.
type App struct {
	cfg        config.Config
	identity   string
	store      *storage.Store
	prompts    *storage.PromptHistory
	assembler  *contextmgr.Assembler
	resolver   *provider.Resolver
	dispatcher *dispatch.Dispatcher
	log        *zap.Logger

	in          lineInput
	out         io.Writer
	interactive bool

	pickAction    func(backend, answer string) (dispatch.Action, error)
	editSettings  func(toggles config.ContextConfig, backend string) (config.ContextConfig, string, bool, error)
	pickPrompt    func(prompts []string) (string, error)
	reloadConfig  func() (config.Config, error)
	newExchangeID func() string
}

// Options 是 New 的装配清单 / the assembly list for New.
type Options struct {
	Config     config.Config
	Identity   string
	Store      *storage.Store
	Prompts    *storage.PromptHistory
	Assembler  *contextmgr.Assembler
	Resolver   *provider.Resolver
	Dispatcher *dispatch.Dispatcher
	Log        *zap.Logger
	Input      lineInput // nil 时自动选择 / picked automatically when nil
	Output     io.Writer // nil 时为 os.Stdout / os.Stdout when nil
}

// New 按 Options 装配 App，缺省字段补上真实实现
// New assembles an App from Options, filling absent fields with the
// real implementations.
func New(opts Options) *App {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	in := opts.Input
	if in == nil {
		var inErr error
		in, inErr = newLineInput(opts.Config.HistoryPath())
		if inErr != nil {
			log.Warn("line editor unavailable, using basic input", zap.Error(inErr))
		}
	}

	return &App{
		cfg:        opts.Config,
		identity:   opts.Identity,
		store:      opts.Store,
		prompts:    opts.Prompts,
		assembler:  opts.Assembler,
		resolver:   opts.Resolver,
		dispatcher: opts.Dispatcher,
		log:        log,

		in:          in,
		out:         out,
		interactive: term.IsTerminal(int(os.Stdin.Fd())),

		pickAction:    tui.RunActionMenu,
		editSettings:  tui.RunSettings,
		pickPrompt:    tui.RunPromptPicker,
		reloadConfig:  config.Load,
		newExchangeID: uuid.NewString,
	}
}

// Close 释放输入端 / Close releases the input side.
func (a *App) Close() error {
	if a.in == nil {
		return nil
	}
	return a.in.Close()
}

// Run 主循环。中断与 EOF 都以零状态收尾，不向调用方冒泡错误。
// Run is the main loop. Interrupt and EOF both finish with a zero
// status instead of bubbling an error to the host.
func (a *App) Run() error {
	info, err := a.store.OpenSession(a.identity)
	if err != nil {
		return err
	}
	a.printBanner(info)

	for {
		line, err := a.in.ReadLine("cmdk> ")
		if err != nil {
			switch {
			case errors.Is(err, readline.ErrInterrupt):
				fmt.Fprintln(a.out)
				return nil
			case errors.Is(err, io.EOF):
				return nil
			default:
				return err
			}
		}
		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if strings.HasPrefix(input, "/") {
			if a.handleCommand(input) {
				return nil
			}
			continue
		}

		exit, err := a.runExchange(input)
		if err != nil {
			a.printError(err)
			continue
		}
		if exit {
			return nil
		}
	}
}

func (a *App) printBanner(info storage.SessionInfo) {
	fmt.Fprintf(a.out, "cmdk · backend: %s · target: %s\n",
		a.resolver.DisplayName(), a.identity)
	if info.Resumed {
		msg := fmt.Sprintf("↪ Continuing conversation (%d previous turns)", info.Turns)
		if useColor() {
			fmt.Fprintf(a.out, "%s%s%s\n", ansiDim, msg, ansiReset)
		} else {
			fmt.Fprintln(a.out, msg)
		}
	}
	fmt.Fprintln(a.out, "Type a request, or /help for commands.")
}

// printError 把错误转成一行用户可见消息，分类信息在错误文本里
// printError converts an error into one user-visible line; the
// category is carried by the error text itself.
func (a *App) printError(err error) {
	if useColor() {
		fmt.Fprintf(a.out, "%serror: %v%s\n", ansiRed, err, ansiReset)
	} else {
		fmt.Fprintf(a.out, "error: %v\n", err)
	}
}

func useColor() bool {
	if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		return false
	}
	return strings.ToLower(strings.TrimSpace(os.Getenv("TERM"))) != "dumb"
}
