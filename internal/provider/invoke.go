package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// claudeBackend 走 claude CLI 的打印模式：提示词进 stdin，回答出 stdout
// claudeBackend drives the claude CLI in print mode: prompt on stdin,
// answer on stdout.
type claudeBackend struct{}

func (b *claudeBackend) Name() string { return "Claude" }

func (b *claudeBackend) Invoke(ctx context.Context, prompt string) (string, error) {
	return runStdinCommand(ctx, "claude", []string{"--print"}, prompt)
}

// codexBackend 走 codex exec 模式。codex 把最终回答写进 -o 指定的文件，
// stdout 上只有进度噪音，所以从临时文件取回答。
// codexBackend drives codex in exec mode. codex writes the final
// answer into the -o file while stdout carries progress noise, so the
// answer is read back from a temp file.
type codexBackend struct{}

func (b *codexBackend) Name() string { return "Codex" }

func (b *codexBackend) Invoke(ctx context.Context, prompt string) (string, error) {
	outFile := filepath.Join(os.TempDir(), fmt.Sprintf("cmdk-codex-%d.txt", os.Getpid()))
	defer os.Remove(outFile)

	cmd := exec.CommandContext(ctx, "codex",
		"exec", "--skip-git-repo-check", "--sandbox", "read-only", "-o", outFile, "-")
	cmd.Stdin = strings.NewReader(prompt)
	runErr := cmd.Run()

	raw, readErr := os.ReadFile(outFile)
	if readErr != nil {
		return "", &InvokeError{Backend: "codex", ExitCode: exitCode(runErr),
			Err: errors.New("codex did not produce output")}
	}
	response := strings.TrimSpace(string(raw))
	if runErr != nil && response == "" {
		return "", &InvokeError{Backend: "codex", ExitCode: exitCode(runErr), Err: runErr}
	}
	return response, nil
}

// customBackend 执行用户配置的命令行，按空白切分参数
// customBackend runs the user-configured command line, split on
// whitespace.
type customBackend struct {
	command string
}

func (b *customBackend) Name() string { return "Custom" }

func (b *customBackend) Invoke(ctx context.Context, prompt string) (string, error) {
	parts := strings.Fields(b.command)
	if len(parts) == 0 {
		return "", &InvokeError{Backend: "custom", Err: errors.New("empty custom command")}
	}
	return runStdinCommand(ctx, parts[0], parts[1:], prompt)
}

// mockBackend 不依赖外部进程，回显提示词末行，供测试与演示
// mockBackend needs no external process; it echoes the prompt's last
// line for tests and demos.
type mockBackend struct{}

func (b *mockBackend) Name() string { return "Mock (test)" }

func (b *mockBackend) Invoke(ctx context.Context, prompt string) (string, error) {
	return fmt.Sprintf("echo 'Mock response for: %s'", lastLine(prompt)), nil
}

// runStdinCommand 运行子进程：提示词写 stdin，修剪后的 stdout 即回答
// runStdinCommand runs a subprocess with the prompt on stdin and the
// trimmed stdout as the answer.
func runStdinCommand(ctx context.Context, name string, args []string, prompt string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = strings.NewReader(prompt)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return "", &InvokeError{
			Backend:  name,
			ExitCode: exitCode(err),
			Stderr:   strings.TrimSpace(stderr.String()),
			Err:      err,
		}
	}
	return strings.TrimSpace(stdout.String()), nil
}

func exitCode(err error) int {
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode()
	}
	return 0
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	last := lines[len(lines)-1]
	if last == "" {
		return "empty"
	}
	return last
}
