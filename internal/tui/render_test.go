package tui

import (
	"strings"
	"testing"
)

func TestRenderMarkdownBasic(t *testing.T) {
	input := "# Hello\n\nThis is **bold** text."
	result := RenderMarkdown(input, 80)
	if result == "" {
		t.Fatal("RenderMarkdown returned empty")
	}
	// Glamour 应渲染出标题文本 / Glamour should render the heading text
	if !strings.Contains(result, "Hello") {
		t.Fatalf("result should contain 'Hello': %q", result)
	}
}

func TestRenderMarkdownEmpty(t *testing.T) {
	if RenderMarkdown("", 80) != "" {
		t.Fatal("empty input should return empty")
	}
	if RenderMarkdown("  ", 80) != "" {
		t.Fatal("whitespace input should return empty")
	}
}

func TestRenderMarkdownCommand(t *testing.T) {
	// 典型回答是一条裸命令 / the typical answer is a bare command
	result := RenderMarkdown("git reset --soft HEAD~1", 80)
	if !strings.Contains(result, "git reset --soft HEAD~1") {
		t.Fatalf("command should survive rendering: %q", result)
	}
}

func TestRenderMarkdownCodeBlock(t *testing.T) {
	input := "```sh\ntar -xzf backup.tar.gz\n```"
	result := RenderMarkdown(input, 80)
	if !strings.Contains(result, "tar -xzf") {
		t.Fatalf("code block should contain command: %q", result)
	}
}

func TestRenderMarkdownZeroWidth(t *testing.T) {
	if RenderMarkdown("plain", 0) == "" {
		t.Fatal("zero width should fall back to default")
	}
}
