// Package provider 封装可插拔的应答后端：本机 CLI、自定义命令或 OpenAI 兼容 API
// Package provider wraps the pluggable answering backends: local CLIs,
// a custom command, or an OpenAI-compatible API.
package provider

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"cmdk/internal/config"
)

// 后端种类 / backend kinds.
const (
	KindAuto   = "auto"
	KindClaude = "claude"
	KindCodex  = "codex"
	KindCustom = "custom"
	KindMock   = "mock"
	KindAPI    = "api"
)

// ErrUnavailable 表示按当前配置解析不出可用后端。对本次交换是致命的，
// 对进程不是。
// ErrUnavailable means no usable backend resolves under the current
// configuration. Fatal to the exchange, not to the process.
var ErrUnavailable = errors.New("no usable backend")

// InvokeError 描述一次失败的后端调用 / one failed backend invocation.
type InvokeError struct {
	Backend  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *InvokeError) Error() string {
	msg := fmt.Sprintf("%s invocation failed", e.Backend)
	if e.ExitCode > 0 {
		msg += fmt.Sprintf(" (exit %d)", e.ExitCode)
	}
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InvokeError) Unwrap() error { return e.Err }

// Backend 是一次性问答后端 / Backend answers one query at a time.
type Backend interface {
	// Name 返回展示名 / Name returns the display name.
	Name() string

	// Invoke 发送查询并整体返回回答，阻塞直至完成或 ctx 取消
	// Invoke sends the query and returns the whole answer, blocking
	// until done or ctx is cancelled.
	Invoke(ctx context.Context, prompt string) (string, error)
}

// Resolver 将配置映射为具体后端 / Resolver maps configuration to a backend.
type Resolver struct {
	cfg config.BackendConfig

	// lookPath 可注入以便测试 / injectable for tests.
	lookPath func(string) (string, error)
	getenv   func(string) string
}

// NewResolver 创建解析器 / NewResolver builds a resolver.
func NewResolver(cfg config.BackendConfig) *Resolver {
	return &Resolver{cfg: cfg, lookPath: exec.LookPath, getenv: os.Getenv}
}

// Resolve 依据配置挑选后端。auto 优先 claude，其次 codex。
// Resolve picks the backend for the configured kind. auto prefers
// claude, then codex.
func (r *Resolver) Resolve() (Backend, error) {
	switch r.cfg.Kind {
	case KindClaude:
		if !r.found(KindClaude) {
			return nil, fmt.Errorf("%w: claude not found in PATH", ErrUnavailable)
		}
		return &claudeBackend{}, nil
	case KindCodex:
		if !r.found(KindCodex) {
			return nil, fmt.Errorf("%w: codex not found in PATH", ErrUnavailable)
		}
		return &codexBackend{}, nil
	case KindCustom:
		cmd := strings.TrimSpace(r.cfg.CustomCommand)
		if cmd == "" {
			return nil, fmt.Errorf("%w: custom_command not set", ErrUnavailable)
		}
		return &customBackend{command: cmd}, nil
	case KindMock:
		return &mockBackend{}, nil
	case KindAPI:
		key := strings.TrimSpace(r.getenv(r.cfg.APIKeyEnv))
		if key == "" {
			return nil, fmt.Errorf("%w: %s is not set", ErrUnavailable, r.cfg.APIKeyEnv)
		}
		return newAPIBackend(key, r.cfg.BaseURL, r.cfg.Model), nil
	default:
		if r.found(KindClaude) {
			return &claudeBackend{}, nil
		}
		if r.found(KindCodex) {
			return &codexBackend{}, nil
		}
		return nil, fmt.Errorf("%w: no AI CLI found (install claude or codex)", ErrUnavailable)
	}
}

// DisplayName 返回当前后端的展示名，auto 解析出的带 "(auto)" 后缀，
// 解析失败时为 "None"。
// DisplayName names the resolved backend for the UI; auto resolution
// carries an "(auto)" suffix and failure reads "None".
func (r *Resolver) DisplayName() string {
	b, err := r.Resolve()
	if err != nil {
		return "None"
	}
	if r.cfg.Kind == KindAuto || r.cfg.Kind == "" {
		return b.Name() + " (auto)"
	}
	return b.Name()
}

func (r *Resolver) found(cmd string) bool {
	_, err := r.lookPath(cmd)
	return err == nil
}
