package app

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
)

// lineInput 抽象一行输入的来源，便于测试注入脚本化输入
// lineInput abstracts where an input line comes from so tests can
// inject scripted input.
type lineInput interface {
	ReadLine(prompt string) (string, error)
	Close() error
}

// readlineInput 带历史与行编辑的交互输入
// readlineInput is interactive input with history and line editing.
type readlineInput struct {
	instance *readline.Instance
}

func newReadlineInput(historyPath string) (*readlineInput, error) {
	if historyPath != "" {
		if err := os.MkdirAll(filepath.Dir(historyPath), 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}
	instance, err := readline.NewEx(&readline.Config{
		Prompt:            "cmdk> ",
		HistoryFile:       historyPath,
		HistorySearchFold: true,
	})
	if err != nil {
		return nil, err
	}
	return &readlineInput{instance: instance}, nil
}

func (r *readlineInput) ReadLine(prompt string) (string, error) {
	r.instance.SetPrompt(prompt)
	return r.instance.Readline()
}

func (r *readlineInput) Close() error {
	if r == nil || r.instance == nil {
		return nil
	}
	return r.instance.Close()
}

// basicLineInput 无行编辑的兜底输入（管道场景或 readline 初始化失败）
// basicLineInput is the fallback without line editing, used for pipes
// or when readline cannot initialize.
type basicLineInput struct {
	reader *bufio.Reader
	out    io.Writer
}

func newBasicLineInput(in io.Reader, out io.Writer) *basicLineInput {
	return &basicLineInput{reader: bufio.NewReader(in), out: out}
}

func (b *basicLineInput) ReadLine(prompt string) (string, error) {
	if b.out != nil {
		fmt.Fprint(b.out, prompt)
	}
	line, err := b.reader.ReadString('\n')
	if err != nil {
		// 最后一行没有换行符时仍然算一行输入
		// A trailing line without a newline still counts as input.
		if err == io.EOF && strings.TrimSpace(line) != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (b *basicLineInput) Close() error { return nil }

// newLineInput 优先 readline，失败时退回 basic 并返回失败原因
// newLineInput prefers readline and falls back to basic input,
// reporting why readline was unavailable.
func newLineInput(historyPath string) (lineInput, error) {
	rl, err := newReadlineInput(historyPath)
	if err == nil {
		return rl, nil
	}
	return newBasicLineInput(os.Stdin, os.Stdout), err
}
