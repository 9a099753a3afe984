package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"cmdk/internal/dispatch"
	"cmdk/internal/prompt"
	"cmdk/internal/provider"
	"cmdk/internal/storage"
)

// runExchange 跑一轮完整交换：组装、调用、落库、动作子循环。
// 返回用户是否在动作菜单里选择了退出。
// runExchange runs one full exchange: assemble the query, invoke the
// backend, persist the outcome, then the action sub-loop. It reports
// whether the user chose to exit from the action menu.
func (a *App) runExchange(question string) (exit bool, err error) {
	exchangeID := a.newExchangeID()
	log := a.log.With(zap.String("exchange", exchangeID))

	if err := a.prompts.Add(question); err != nil {
		log.Warn("recording prompt failed", zap.Error(err))
	}

	// 每轮交换前重读配置，设置变更无需重启即可生效
	// Config is re-read before each exchange so settings changes take
	// effect without a restart.
	if fresh, ferr := a.reloadConfig(); ferr == nil {
		a.cfg = fresh
		a.assembler.Config = fresh.Context
		a.resolver = provider.NewResolver(fresh.Backend)
	} else {
		log.Warn("config reload failed", zap.Error(ferr))
	}

	contextDoc := a.assembler.Assemble()
	transcript, terr := a.store.Render(a.identity, a.cfg.Session.MaxTurns)
	if terr != nil {
		// 历史读不出来就发一个没有历史的请求，好过整轮放弃
		// A transcript read failure degrades to a history-less query
		// rather than aborting the exchange.
		a.printError(terr)
		transcript = ""
	}
	full := prompt.Build(prompt.Instructions, contextDoc, transcript, question)

	backend, err := a.resolver.Resolve()
	if err != nil {
		return false, err
	}

	ctx := context.Background()
	if secs := a.cfg.Backend.TimeoutSeconds; secs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(secs)*time.Second)
		defer cancel()
	}

	fmt.Fprintf(a.out, "Querying %s...\n", a.resolver.DisplayName())
	started := time.Now()
	answer, err := backend.Invoke(ctx, full)
	if err != nil {
		log.Warn("backend invocation failed",
			zap.String("backend", backend.Name()),
			zap.Error(err))
		return false, err
	}
	log.Info("exchange complete",
		zap.String("backend", backend.Name()),
		zap.Int("prompt_tokens", prompt.DefaultTokenizer().CountText(full)),
		zap.Int("answer_bytes", len(answer)),
		zap.Duration("took", time.Since(started)))

	if serr := a.store.SavePending(a.identity, storage.PendingResult{
		ExchangeID: exchangeID,
		Response:   answer,
	}); serr != nil {
		a.printError(serr)
	}
	if serr := a.store.AppendTurn(a.identity, question, answer); serr != nil {
		a.printError(serr)
	}

	if !a.interactive {
		// 管道模式没有菜单可开，直接打印回答
		// Pipe mode has no terminal to open a menu on; print the answer.
		fmt.Fprintln(a.out, answer)
		return false, nil
	}
	return a.actionLoop(answer)
}

// actionLoop 动作子循环：插入与复制执行后回到菜单，追问、新会话
// 或退出才离开。
// actionLoop is the action sub-loop: insert and copy return to the
// menu after running, only follow-up, new-session, or quit leave it.
func (a *App) actionLoop(answer string) (exit bool, err error) {
	name := a.resolver.DisplayName()
	for {
		action, err := a.pickAction(name, answer)
		if err != nil {
			return false, err
		}
		switch action {
		case dispatch.ActionInsert:
			if ierr := a.dispatcher.Insert(answer); ierr != nil {
				a.printError(ierr)
				continue
			}
			fmt.Fprintln(a.out, "Inserted into target pane.")
		case dispatch.ActionCopy:
			mech, cerr := a.dispatcher.Copy(answer)
			if cerr != nil {
				a.printError(cerr)
				continue
			}
			fmt.Fprintf(a.out, "Copied via %s.\n", mech)
		case dispatch.ActionFollowUp:
			return false, nil
		case dispatch.ActionNewSession:
			if cerr := a.store.Clear(a.identity); cerr != nil {
				a.printError(cerr)
			} else {
				fmt.Fprintln(a.out, "Started a new session.")
			}
			return false, nil
		case dispatch.ActionQuit:
			return true, nil
		}
	}
}
