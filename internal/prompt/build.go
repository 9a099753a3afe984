// Package prompt 将指令、上下文与会话历史拼装为后端查询
// Package prompt composes the outbound backend query from fixed
// instructions, the context document and the session transcript.
package prompt

import (
	"fmt"
	"strings"
)

// Instructions 是固定的系统指令，要求后端只输出可执行的命令本身
// Instructions is the fixed system preamble asking the backend for the
// bare command and nothing else.
const Instructions = `You are a terminal command assistant. Output ONLY the exact command to run.

CRITICAL RULES:
- Output ONLY the command itself - no shell prompts, no $, no explanation
- No markdown code blocks - just the raw command
- Single command only (use && or ; for multiple)
- If asked for explanation, then explain - otherwise just the command

`

// Build 以固定顺序拼接查询：指令、上下文、既往对话（仅当非空）、新问题。
// 纯函数，不做任何 I/O，相同输入恒产生相同输出。
// Build concatenates the query in fixed order: instructions, context,
// the prior conversation (only when non-empty), then the new question.
// It is pure: no I/O, same inputs always yield the same string.
func Build(instructions, contextDoc, transcript, userText string) string {
	var b strings.Builder
	b.WriteString(instructions)
	b.WriteString(contextDoc)
	if transcript != "" {
		b.WriteString("\n## Previous Conversation:\n")
		b.WriteString(transcript)
	}
	fmt.Fprintf(&b, "\n## User: %s\n", userText)
	return b.String()
}
