package editor

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeContextFile(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ctx")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	bufPath := filepath.Join(t.TempDir(), "buffer.txt")
	if err := os.WriteFile(bufPath, []byte("package main\n"), 0o644); err != nil {
		t.Fatalf("write buffer: %v", err)
	}

	path := writeContextFile(t,
		"CMDK_NVIM_FILEPATH=/src/main.go",
		"CMDK_NVIM_FILENAME=main.go",
		"CMDK_NVIM_FILETYPE=go",
		"CMDK_NVIM_CURSOR_LINE=12",
		"CMDK_NVIM_CURSOR_COL=4",
		`CMDK_NVIM_VISUAL_SELECTION=first\nsecond`,
		"CMDK_NVIM_BUFFER_FILE="+bufPath,
		"not a key value line",
	)

	ctx, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ctx.FilePath != "/src/main.go" || ctx.FileType != "go" {
		t.Fatalf("ctx = %+v", ctx)
	}
	if ctx.CursorLine != 12 || ctx.CursorCol != 4 {
		t.Fatalf("cursor = %d,%d", ctx.CursorLine, ctx.CursorCol)
	}
	if ctx.Selection != "first\nsecond" {
		t.Fatalf("selection = %q, want unescaped newline", ctx.Selection)
	}
	if ctx.Buffer != "package main\n" {
		t.Fatalf("buffer = %q", ctx.Buffer)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("want error for missing context file")
	}
}

func TestMarkdownSections(t *testing.T) {
	ctx := &Context{
		FilePath:    "/src/main.go",
		FileType:    "go",
		CursorLine:  3,
		CursorCol:   7,
		CurrentLine: "fmt.Println(x)",
		Diagnostics: "main.go:3: undefined: x",
		Buffer:      "package main\n",
	}
	got := ctx.Markdown()

	for _, part := range []string{
		"## Neovim Context",
		"**File:** /src/main.go",
		"**Filetype:** go",
		"**Cursor Position:** Line 3, Column 7",
		"**Current Line:**",
		"**LSP Diagnostics:**",
		"```go\npackage main",
	} {
		if !strings.Contains(got, part) {
			t.Fatalf("missing %q in:\n%s", part, got)
		}
	}
	if strings.Contains(got, "Selected Text") {
		t.Fatalf("empty selection rendered:\n%s", got)
	}
}

func TestMarkdownTruncatesBuffer(t *testing.T) {
	ctx := &Context{Buffer: strings.Repeat("a", maxBufferBytes+100)}
	got := ctx.Markdown()
	if !strings.Contains(got, "(truncated)") {
		t.Fatal("oversized buffer should carry the truncation marker")
	}
	if strings.Contains(got, strings.Repeat("a", maxBufferBytes+1)) {
		t.Fatal("buffer was not truncated")
	}
}

func TestTruncateKeepsUTF8Boundary(t *testing.T) {
	s := strings.Repeat("界", 10)
	got := truncate(s, 10) // 10 bytes falls mid-rune; 界 is 3 bytes
	cut := strings.TrimSuffix(got, "...\n(truncated)")
	if !strings.HasPrefix(s, cut) {
		t.Fatalf("cut %q is not a prefix of the original", cut)
	}
	if len(cut)%3 != 0 {
		t.Fatalf("cut %q splits a rune", cut)
	}
}

func TestWriteResult(t *testing.T) {
	ctxFile := filepath.Join(t.TempDir(), "ctx")
	if err := WriteResult(ctxFile, "replace", ":%s/foo/bar/g"); err != nil {
		t.Fatalf("WriteResult: %v", err)
	}

	result, err := os.ReadFile(ctxFile + ".result")
	if err != nil || string(result) != ":%s/foo/bar/g" {
		t.Fatalf("result file: %q, %v", result, err)
	}
	action, err := os.ReadFile(ctxFile + ".action")
	if err != nil || string(action) != "replace" {
		t.Fatalf("action file: %q, %v", action, err)
	}
}

func TestActionLabels(t *testing.T) {
	if len(Actions) != 5 {
		t.Fatalf("actions = %v", Actions)
	}
	if ActionLabel("replace") != "Replace line/selection" {
		t.Fatalf("label = %q", ActionLabel("replace"))
	}
	if ActionLabel("listdir") != "listdir" {
		t.Fatal("unknown actions should fall through unchanged")
	}
}
