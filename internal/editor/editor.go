// Package editor 对接编辑器插件：读取插件写出的上下文文件，并把回答
// 与所选动作写回给插件消费
// Package editor integrates with the editor plugin: it reads the
// context file the plugin writes before launching us, and hands the
// answer plus the chosen action back through sidecar files.
package editor

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"
)

// 插件协议里的键名 / keys of the plugin protocol.
const (
	keyFilePath    = "CMDK_NVIM_FILEPATH"
	keyFileName    = "CMDK_NVIM_FILENAME"
	keyFileType    = "CMDK_NVIM_FILETYPE"
	keyCursorLine  = "CMDK_NVIM_CURSOR_LINE"
	keyCursorCol   = "CMDK_NVIM_CURSOR_COL"
	keyCurrentLine = "CMDK_NVIM_CURRENT_LINE"
	keySelection   = "CMDK_NVIM_VISUAL_SELECTION"
	keyDiagnostics = "CMDK_NVIM_LSP_DIAGNOSTICS"
	keyBufferFile  = "CMDK_NVIM_BUFFER_FILE"
)

// maxBufferBytes 限制带进提示词的缓冲区体积 / cap on quoted buffer size.
const maxBufferBytes = 5000

// Context 是插件采集的编辑器现场 / the editor snapshot from the plugin.
type Context struct {
	FilePath    string
	FileName    string
	FileType    string
	CursorLine  int
	CursorCol   int
	CurrentLine string
	Selection   string
	Diagnostics string
	Buffer      string
}

// Actions 是编辑器模式下的动作集，顺序即菜单顺序
// Actions is the editor-mode action set, in menu order.
var Actions = []string{"insert", "replace", "run", "copy", "cancel"}

// ActionLabel 返回动作的菜单文案 / menu label for an action.
func ActionLabel(action string) string {
	switch action {
	case "insert":
		return "Insert at cursor"
	case "replace":
		return "Replace line/selection"
	case "run":
		return "Run/execute keys"
	case "copy":
		return "Copy to clipboard"
	case "cancel":
		return "Cancel"
	}
	return action
}

// Load 解析 KEY=VALUE 上下文文件。值里的 \n 转义还原为换行；
// 缓冲区内容从 CMDK_NVIM_BUFFER_FILE 指向的文件旁路读取。
// Load parses the KEY=VALUE context file. Escaped \n in values turn
// back into newlines; buffer content is side-loaded from the file
// named by CMDK_NVIM_BUFFER_FILE.
func Load(path string) (*Context, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read editor context %s: %w", path, err)
	}

	kv := map[string]string{}
	for _, line := range strings.Split(string(raw), "\n") {
		if k, v, ok := strings.Cut(line, "="); ok {
			kv[k] = strings.ReplaceAll(v, `\n`, "\n")
		}
	}

	ctx := &Context{
		FilePath:    kv[keyFilePath],
		FileName:    kv[keyFileName],
		FileType:    kv[keyFileType],
		CurrentLine: kv[keyCurrentLine],
		Selection:   kv[keySelection],
		Diagnostics: kv[keyDiagnostics],
	}
	ctx.CursorLine, _ = strconv.Atoi(kv[keyCursorLine])
	ctx.CursorCol, _ = strconv.Atoi(kv[keyCursorCol])

	if bufFile := kv[keyBufferFile]; bufFile != "" {
		if content, err := os.ReadFile(bufFile); err == nil {
			ctx.Buffer = string(content)
		}
	}
	return ctx, nil
}

// Markdown 渲染并入提示词的编辑器上下文段
// Markdown renders the editor context section quoted into the prompt.
func (c *Context) Markdown() string {
	var b strings.Builder
	b.WriteString("## Neovim Context\n\n")

	if c.FilePath != "" {
		fmt.Fprintf(&b, "**File:** %s\n", c.FilePath)
	}
	if c.FileType != "" {
		fmt.Fprintf(&b, "**Filetype:** %s\n", c.FileType)
	}
	if c.CursorLine > 0 && c.CursorCol > 0 {
		fmt.Fprintf(&b, "**Cursor Position:** Line %d, Column %d\n", c.CursorLine, c.CursorCol)
	}
	if c.CurrentLine != "" {
		fmt.Fprintf(&b, "\n**Current Line:**\n```\n%s\n```\n", c.CurrentLine)
	}
	if c.Selection != "" {
		fmt.Fprintf(&b, "\n**Selected Text:**\n```\n%s\n```\n", c.Selection)
	}
	if c.Diagnostics != "" {
		fmt.Fprintf(&b, "\n**LSP Diagnostics:**\n```\n%s\n```\n", c.Diagnostics)
	}
	if c.Buffer != "" {
		fmt.Fprintf(&b, "\n**Buffer Content:**\n```%s\n%s\n```\n", c.FileType, truncate(c.Buffer, maxBufferBytes))
	}
	return b.String()
}

// Display 渲染 /context 预览用的纯文本 / plain preview for /context.
func (c *Context) Display() string {
	var lines []string
	if c.FilePath != "" {
		lines = append(lines, "File: "+c.FilePath)
	}
	if c.FileType != "" {
		lines = append(lines, "Filetype: "+c.FileType)
	}
	if c.CursorLine > 0 && c.CursorCol > 0 {
		lines = append(lines, fmt.Sprintf("Cursor: Line %d, Column %d", c.CursorLine, c.CursorCol))
	}
	if c.CurrentLine != "" {
		lines = append(lines, "", "Current Line:", "  "+c.CurrentLine)
	}
	if c.Selection != "" {
		lines = append(lines, "", "Visual Selection:")
		sel := strings.Split(strings.TrimRight(c.Selection, "\n"), "\n")
		for i, l := range sel {
			if i == 10 {
				lines = append(lines, "  ... (truncated)")
				break
			}
			lines = append(lines, "  "+l)
		}
	}
	if c.Diagnostics != "" {
		lines = append(lines, "", "LSP Diagnostics:")
		for i, l := range strings.Split(strings.TrimRight(c.Diagnostics, "\n"), "\n") {
			if i == 5 {
				break
			}
			lines = append(lines, "  "+l)
		}
	}
	if c.Buffer != "" {
		lines = append(lines, "", fmt.Sprintf("Buffer Content: %d chars", len(c.Buffer)))
	}
	return strings.Join(lines, "\n")
}

// WriteResult 把回答与动作写到插件等待的 sidecar 文件
// WriteResult writes the answer and action to the sidecar files the
// plugin polls for.
func WriteResult(contextFile, action, result string) error {
	if err := os.WriteFile(contextFile+".result", []byte(result), 0o644); err != nil {
		return fmt.Errorf("write result file: %w", err)
	}
	if err := os.WriteFile(contextFile+".action", []byte(action), 0o644); err != nil {
		return fmt.Errorf("write action file: %w", err)
	}
	return nil
}

// truncate 在 UTF-8 边界上截断 / cut on a UTF-8 boundary.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "...\n(truncated)"
}
